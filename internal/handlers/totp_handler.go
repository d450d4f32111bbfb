package handlers

import (
	"encoding/json"
	"net/http"

	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/services"
	"wallfloor-backend/pkg/utils"
)

// TOTPHandler manages authenticator-app 2FA enrolment
type TOTPHandler struct {
	TOTPService *services.TOTPService
	UserService *services.UserService
}

func NewTOTPHandler(totpService *services.TOTPService, userService *services.UserService) *TOTPHandler {
	return &TOTPHandler{TOTPService: totpService, UserService: userService}
}

// Setup starts enrolment for the authenticated account and returns the
// secret plus a QR code
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	actorID, _ := actor(r)
	user, err := h.UserService.GetUser(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.TOTPService.GenerateSetup(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Verify confirms the authenticator works and switches 2FA on
func (h *TOTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actorID, _ := actor(r)
	if err := h.TOTPService.VerifyAndEnable(r.Context(), actorID, req.Code); err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]bool{"totp_enabled": true})
}

// Disable switches 2FA off for the authenticated account
func (h *TOTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	actorID, _ := actor(r)
	if err := h.TOTPService.Disable(r.Context(), actorID); err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]bool{"totp_enabled": false})
}
