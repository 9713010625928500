package dtos

import "github.com/trimooo/SecurePasskey/internal/webauthn"

// ----------------------
// Registration ceremony
// ----------------------

type BeginRegistrationRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	DisplayName string `json:"displayName" validate:"omitempty,max=128"`
}

type FinishRegistrationRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	// ExpectedChallenge pins the outstanding challenge this response
	// answers when several are active.
	ExpectedChallenge string                        `json:"expectedChallenge" validate:"omitempty"`
	Credential        webauthn.RegistrationResponse `json:"credential" validate:"required"`
}

type FinishRegistrationResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// ----------------------
// Authentication ceremony
// ----------------------

type BeginLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
}

type FinishLoginRequest struct {
	Username          string                          `json:"username" validate:"required,min=3,max=64"`
	ExpectedChallenge string                          `json:"expectedChallenge" validate:"omitempty"`
	Credential        webauthn.AuthenticationResponse `json:"credential" validate:"required"`
}

type LoginResponse struct {
	Message     string `json:"message"`
	RequiresMFA bool   `json:"requiresMfa,omitempty"`
	// MFAType and UserID tell the client which factor to complete, and
	// for whom, when RequiresMFA is set.
	MFAType string `json:"mfaType,omitempty"`
	UserID  int64  `json:"userId,omitempty"`
}
