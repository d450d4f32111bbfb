package handlers

import (
	"encoding/json"
	"net/http"

	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/services"
	"wallfloor-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type SystemSettingHandler struct {
	Service *services.SystemSettingService
}

func NewSystemSettingHandler(s *services.SystemSettingService) *SystemSettingHandler {
	return &SystemSettingHandler{Service: s}
}

func (h *SystemSettingHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, settings)
}

func (h *SystemSettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.Service.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		utils.Error(w, http.StatusNotFound, "setting not found")
		return
	}
	utils.JSON(w, http.StatusOK, setting)
}

func (h *SystemSettingHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID, _ := actor(r)
	key := mux.Vars(r)["key"]
	if err := h.Service.Upsert(r.Context(), key, req.SettingValue, "", actorID); err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"setting_key": key, "setting_value": req.SettingValue})
}
