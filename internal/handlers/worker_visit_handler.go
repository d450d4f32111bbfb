package handlers

import (
	"encoding/json"
	"net/http"

	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/services"
	"wallfloor-backend/pkg/utils"
)

type WorkerVisitHandler struct {
	Service *services.WorkerVisitService
}

func NewWorkerVisitHandler(s *services.WorkerVisitService) *WorkerVisitHandler {
	return &WorkerVisitHandler{Service: s}
}

func (h *WorkerVisitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWorkerVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID, role := actor(r)
	visit, err := h.Service.Create(r.Context(), actorID, role, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, visit)
}

func (h *WorkerVisitHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	limit, offset := pagination(r)

	visits, total, err := h.Service.List(r.Context(), actorID, role, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.Paginated(w, visits, total, limit, offset)
}

func (h *WorkerVisitHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	visit, err := h.Service.Get(r.Context(), actorID, role, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, visit)
}

func (h *WorkerVisitHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	visit, err := h.Service.ResendOTP(r.Context(), actorID, role, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, visit)
}

func (h *WorkerVisitHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyWorkerVisitOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID, role := actor(r)
	visit, err := h.Service.VerifyOTP(r.Context(), actorID, role, pathID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, visit)
}

func (h *WorkerVisitHandler) IssueWidgetToken(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	token, err := h.Service.IssueWidgetToken(r.Context(), actorID, role, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *WorkerVisitHandler) VerifyWidgetToken(w http.ResponseWriter, r *http.Request) {
	var req models.WidgetVerifyWorkerVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID, role := actor(r)
	visit, err := h.Service.VerifyWidgetToken(r.Context(), actorID, role, pathID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, visit)
}
