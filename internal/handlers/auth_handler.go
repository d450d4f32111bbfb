package handlers

import (
	"encoding/json"
	"net/http"

	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/services"
	"wallfloor-backend/pkg/utils"
)

type AuthHandler struct {
	UserService *services.UserService
	TOTPService *services.TOTPService
}

func NewAuthHandler(userService *services.UserService, totpService *services.TOTPService) *AuthHandler {
	return &AuthHandler{UserService: userService, TOTPService: totpService}
}

// Login authenticates by email/password. Accounts with 2FA enabled get
// a temp token and must call Verify2FA to finish.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.UserService.Login(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Verify2FA exchanges a temp token plus an authenticator code for a
// session token
func (h *AuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.TOTPService.CompleteLogin(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Me returns the authenticated account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actorID, _ := actor(r)
	user, err := h.UserService.GetUser(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}
