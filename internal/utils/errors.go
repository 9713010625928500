package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrUserNotFound       = errors.New("user_not_found")
	ErrCredentialNotFound = errors.New("credential_not_found")
	ErrEmailExists        = errors.New("email_exists")
	ErrUsernameExists     = errors.New("username_exists")
	ErrAlreadyRegistered  = errors.New("already_registered")
	ErrNotRegistered      = errors.New("not_registered")
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// Ceremony failures. A stale challenge cannot be resurrected; the
	// client must restart the ceremony.
	ErrNoActiveChallenge = errors.New("no_active_challenge")
	ErrChallengeMismatch = errors.New("challenge_mismatch")
	ErrChallengeExpired  = errors.New("challenge_expired")
	ErrRpIDMismatch      = errors.New("rp_id_mismatch")
	ErrOriginMismatch    = errors.New("origin_mismatch")
	ErrUserNotVerified   = errors.New("user_not_verified")
	ErrCounterRollback   = errors.New("counter_rollback")

	// MFA failures. The login session must not be established.
	ErrInvalidMfaCode      = errors.New("invalid_mfa_code")
	ErrInvalidRecoveryCode = errors.New("invalid_recovery_code")
	ErrMfaNotEnabled       = errors.New("mfa_not_enabled")
	ErrPhoneRequired       = errors.New("phone_required")
	ErrInvalidPhone        = errors.New("invalid_phone")

	// QR cross-device login: the challenge has no associated user yet,
	// an authenticated device must claim it first.
	ErrRequiresAuthentication = errors.New("requires_authentication")

	// For external service failures (e.g., Twilio, SendGrid)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	} else {
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
