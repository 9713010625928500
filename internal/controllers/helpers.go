package controllers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/trimooo/SecurePasskey/internal/utils"
)

const refreshCookiePath = "/auth/v1/refresh"

var validate = validator.New()

// decodeAndValidate unmarshals the request body into dst and runs
// struct validation, writing the error response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", nil, err,
		)
		return false
	}
	return true
}

// clientIP extracts the caller address, preferring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// respondServiceError maps service sentinel errors onto HTTP responses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, utils.ErrUserNotFound), errors.Is(err, utils.ErrCredentialNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), nil)
	case errors.Is(err, utils.ErrAlreadyRegistered),
		errors.Is(err, utils.ErrEmailExists),
		errors.Is(err, utils.ErrUsernameExists):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeConflict, err.Error(), nil)
	case errors.Is(err, utils.ErrNotRegistered):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "Invalid credentials", nil)
	case errors.Is(err, utils.ErrNoActiveChallenge):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeNoActiveChallenge, err.Error(), nil)
	case errors.Is(err, utils.ErrChallengeMismatch):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeChallengeMismatch, err.Error(), nil)
	case errors.Is(err, utils.ErrChallengeExpired):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeChallengeExpired, err.Error(), nil)
	case errors.Is(err, utils.ErrRpIDMismatch):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeRpIDMismatch, err.Error(), nil)
	case errors.Is(err, utils.ErrOriginMismatch):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeOriginMismatch, err.Error(), nil)
	case errors.Is(err, utils.ErrUserNotVerified), errors.Is(err, utils.ErrCounterRollback):
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, err.Error(), nil)
	case errors.Is(err, utils.ErrInvalidMfaCode):
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeInvalidMfaCode, "Invalid MFA code", nil)
	case errors.Is(err, utils.ErrInvalidRecoveryCode):
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeInvalidRecoveryCode, "Invalid recovery code", nil)
	case errors.Is(err, utils.ErrMfaNotEnabled):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, utils.ErrPhoneRequired), errors.Is(err, utils.ErrInvalidPhone):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, utils.ErrRequiresAuthentication):
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeRequiresAuth, err.Error(), nil)
	case errors.Is(err, utils.ErrExternalServiceFailure):
		utils.RespondErrorWithCode(w, http.StatusBadGateway, utils.ErrCodeExternalService, "Upstream provider error", nil, err)
	default:
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Internal server error", nil, err)
	}
}
