package handlers

import (
	"net/http"

	"wallfloor-backend/internal/repositories"
	"wallfloor-backend/pkg/utils"
)

// SMSHandler exposes the delivery ledger to admins
type SMSHandler struct {
	SMSLogRepo *repositories.SMSLogRepository
}

func NewSMSHandler(smsLogRepo *repositories.SMSLogRepository) *SMSHandler {
	return &SMSHandler{SMSLogRepo: smsLogRepo}
}

// ListLogs returns paginated SMS logs, optionally filtered by type
func (h *SMSHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	messageType := r.URL.Query().Get("type")

	logs, total, err := h.SMSLogRepo.List(r.Context(), limit, offset, messageType)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.Paginated(w, logs, total, limit, offset)
}

// GetStats returns ledger totals for the dashboard
func (h *SMSHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.SMSLogRepo.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, stats)
}
