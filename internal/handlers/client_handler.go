package handlers

import (
	"encoding/json"
	"net/http"

	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/services"
	"wallfloor-backend/pkg/utils"
)

type ClientHandler struct {
	Service *services.ClientService
}

func NewClientHandler(s *services.ClientService) *ClientHandler {
	return &ClientHandler{Service: s}
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	client, err := h.Service.Create(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	client, err := h.Service.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, client)
}

// SearchByPhone finds a client by any spelling of their number
func (h *ClientHandler) SearchByPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		utils.Error(w, http.StatusBadRequest, "phone parameter is required")
		return
	}

	client, err := h.Service.SearchByPhone(r.Context(), phone)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	clients, total, err := h.Service.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.Paginated(w, clients, total, limit, offset)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	client, err := h.Service.Update(r.Context(), pathID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
