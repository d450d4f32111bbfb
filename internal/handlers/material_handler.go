package handlers

import (
	"encoding/json"
	"net/http"

	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/services"
	"wallfloor-backend/pkg/utils"
)

type MaterialHandler struct {
	Service *services.MaterialService
}

func NewMaterialHandler(s *services.MaterialService) *MaterialHandler {
	return &MaterialHandler{Service: s}
}

func (h *MaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	material, err := h.Service.Create(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, material)
}

func (h *MaterialHandler) Get(w http.ResponseWriter, r *http.Request) {
	material, err := h.Service.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, material)
}

func (h *MaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	materials, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, materials)
}

func (h *MaterialHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	material, err := h.Service.Update(r.Context(), pathID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, material)
}

func (h *MaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
