package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/services"
	"wallfloor-backend/pkg/utils"
)

type InventoryHandler struct {
	Service *services.InventoryService
}

func NewInventoryHandler(s *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{Service: s}
}

// RecordMovement appends an in/out row to the stock ledger
func (h *InventoryHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID, _ := actor(r)
	movement, err := h.Service.RecordMovement(r.Context(), actorID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, movement)
}

// ListMovements returns the paginated ledger, optionally for one material
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	materialID, _ := strconv.Atoi(r.URL.Query().Get("material_id"))

	movements, total, err := h.Service.ListMovements(r.Context(), materialID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.Paginated(w, movements, total, limit, offset)
}

// StockSummaries returns the aggregated position of every material
func (h *InventoryHandler) StockSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Service.StockSummaries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, summaries)
}
