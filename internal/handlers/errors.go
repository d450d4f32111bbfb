package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/pkg/utils"
)

// writeError maps the service error taxonomy onto HTTP statuses. The
// OTP error kinds carry extra fields the client needs (retry_after,
// attempts_remaining), so they get structured bodies.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation   *apperr.ValidationError
		notFound     *apperr.NotFoundError
		authz        *apperr.AuthorizationError
		conflict     *apperr.StatusConflictError
		rateLimit    *apperr.RateLimitError
		expired      *apperr.OTPExpiredError
		exceeded     *apperr.OTPAttemptsExceededError
		mismatch     *apperr.OTPMismatchError
		delivery     *apperr.DeliveryFailureError
		verification *apperr.ExternalVerificationError
	)

	switch {
	case errors.As(err, &validation):
		utils.Error(w, http.StatusBadRequest, validation.Msg)
	case errors.As(err, &notFound):
		utils.Error(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &authz):
		utils.Error(w, http.StatusForbidden, authz.Msg)
	case errors.As(err, &conflict):
		utils.Error(w, http.StatusConflict, conflict.Msg)
	case errors.As(err, &rateLimit):
		retryAfter := int(rateLimit.RetryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		utils.JSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":       rateLimit.Error(),
			"retry_after": retryAfter,
		})
	case errors.As(err, &expired):
		utils.Error(w, http.StatusBadRequest, expired.Error())
	case errors.As(err, &exceeded):
		utils.Error(w, http.StatusTooManyRequests, exceeded.Error())
	case errors.As(err, &mismatch):
		utils.JSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error":              mismatch.Error(),
			"attempts_remaining": mismatch.AttemptsRemaining,
		})
	case errors.As(err, &delivery):
		utils.Error(w, http.StatusBadGateway, delivery.Error())
	case errors.As(err, &verification):
		utils.Error(w, http.StatusBadGateway, verification.Error())
	default:
		log.Printf("[Handler] internal error: %v", err)
		utils.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
