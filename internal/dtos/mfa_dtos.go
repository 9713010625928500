package dtos

// ----------------------
// TOTP enrollment
// ----------------------

type SetupTOTPResponse struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode"`
	// RecoveryCodes are provisioned at setup and shown only here.
	RecoveryCodes []string `json:"recoveryCodes"`
}

// RequestCodeResponse acknowledges delivery; RecoveryCodes is only set
// when the request was the first-time setup of the factor.
type RequestCodeResponse struct {
	Message       string   `json:"message"`
	RecoveryCodes []string `json:"recoveryCodes,omitempty"`
}

// ----------------------
// Factor management
// ----------------------

type RequestMFACodeRequest struct {
	Type string `json:"type" validate:"required,oneof=email sms"`
}

// RequestLoginCodeRequest asks for a login-time code before the session
// exists, so the user is named explicitly.
type RequestLoginCodeRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
}

type EnableMFARequest struct {
	Type string `json:"type" validate:"required,oneof=totp email sms"`
	Code string `json:"code" validate:"required,min=6,max=11"`
}

type EnableMFAResponse struct {
	Message       string   `json:"message"`
	RecoveryCodes []string `json:"recoveryCodes"`
}

type VerifyMFARequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Code     string `json:"code" validate:"required,min=6,max=11"`
	// Recovery marks the code as a single-use recovery code instead of
	// a factor code.
	Recovery bool `json:"recovery,omitempty"`
}

type DisableMFARequest struct {
	Code string `json:"code" validate:"required,min=6,max=11"`
}

type RotateRecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recoveryCodes"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
