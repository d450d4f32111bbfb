package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"wallfloor-backend/internal/middleware"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/services"
	"wallfloor-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	Service *services.AppointmentService
}

func NewAppointmentHandler(s *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Service: s}
}

func actor(r *http.Request) (int, string) {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetRoleFromContext(r.Context())
	return id, role
}

func pathID(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, role := actor(r)
	appointment, err := h.Service.Create(r.Context(), role, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, appointment)
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	limit, offset := pagination(r)

	appointments, total, err := h.Service.List(r.Context(), actorID, role, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.Paginated(w, appointments, total, limit, offset)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	appointment, err := h.Service.Get(r.Context(), actorID, role, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, appointment)
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	if err := h.Service.Cancel(r.Context(), actorID, role, pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": models.AppointmentCancelled})
}

func (h *AppointmentHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	appointment, err := h.Service.SendOTP(r.Context(), actorID, role, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, appointment)
}

func (h *AppointmentHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	appointment, err := h.Service.ResendOTP(r.Context(), actorID, role, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, appointment)
}

func (h *AppointmentHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyAppointmentOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID, role := actor(r)
	appointment, err := h.Service.VerifyOTP(r.Context(), actorID, role, pathID(r), req.OTP)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, appointment)
}

func (h *AppointmentHandler) IssueWidgetToken(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	token, err := h.Service.IssueWidgetToken(r.Context(), actorID, role, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *AppointmentHandler) VerifyWidgetToken(w http.ResponseWriter, r *http.Request) {
	var req models.WidgetVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID, role := actor(r)
	appointment, err := h.Service.VerifyWidgetToken(r.Context(), actorID, role, pathID(r), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, appointment)
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req models.CompleteAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID, role := actor(r)
	appointment, err := h.Service.Complete(r.Context(), actorID, role, pathID(r), req.Feedback)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, appointment)
}
