package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"wallfloor-backend/internal/services"
	"wallfloor-backend/internal/timeutil"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

// Appointments streams a date-ranged appointments PDF
func (h *ReportHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, "appointments", h.Service.GenerateAppointmentsPDF)
}

// WorkerVisits streams a date-ranged worker-visits PDF
func (h *ReportHandler) WorkerVisits(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, "worker-visits", h.Service.GenerateWorkerVisitsPDF)
}

func (h *ReportHandler) servePDF(w http.ResponseWriter, r *http.Request, name string, generate func(ctx context.Context, from, to time.Time) ([]byte, error)) {
	from, to, err := services.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := generate(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	// upload=true additionally archives the report to object storage
	if r.URL.Query().Get("upload") == "true" {
		key, err := h.Service.UploadReport(r.Context(), name, data)
		if err != nil {
			writeError(w, err)
			return
		}
		if key != "" {
			w.Header().Set("X-Report-Key", key)
		}
	}

	filename := fmt.Sprintf("%s-%s.pdf", name, timeutil.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
