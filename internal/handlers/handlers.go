package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"stickerchart/internal/db"
	"stickerchart/internal/middleware"
	"stickerchart/internal/services"
	"stickerchart/internal/validator"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func actorFromRequest(r *http.Request) (services.Actor, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{UserID: identity.UserID, Role: identity.Role}, true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

var validationErrors = []error{
	validator.ErrInvalidCode,
	validator.ErrInvalidUserName,
	validator.ErrInvalidProductName,
	validator.ErrInvalidDescription,
	validator.ErrInvalidEventType,
	validator.ErrInvalidWeight,
	validator.ErrInvalidAvailability,
	validator.ErrInvalidPrice,
	validator.ErrInvalidQuantity,
	services.ErrInvalidAmount,
	services.ErrUnknownRole,
}

func statusFor(err error) int {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrProtectedUser),
		errors.Is(err, services.ErrOwnProduct):
		return http.StatusForbidden
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrWalletNotFound),
		errors.Is(err, services.ErrEventTypeNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrPurchaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrDuplicateEventType),
		errors.Is(err, services.ErrAlreadyVerified),
		errors.Is(err, services.ErrAlreadyCanceled),
		errors.Is(err, services.ErrAlreadyFulfilled),
		errors.Is(err, services.ErrPurchasePending),
		errors.Is(err, services.ErrProductHasOrders),
		errors.Is(err, services.ErrUserHasOrders),
		errors.Is(err, services.ErrPriceChanged):
		return http.StatusConflict
	case errors.Is(err, services.ErrInsufficientAssets),
		errors.Is(err, services.ErrInsufficientCredit),
		errors.Is(err, services.ErrInsufficientQuantity),
		errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrEventTypeExpired),
		errors.Is(err, services.ErrAvailabilityReached):
		return http.StatusUnprocessableEntity
	case errors.Is(err, db.ErrNotInitialized):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondServiceError maps a service error to its status. Unexpected errors
// are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error(fallback)
		respondError(w, status, fallback)
		return
	}
	respondError(w, status, err.Error())
}
