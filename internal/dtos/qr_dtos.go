package dtos

// ----------------------
// QR cross-device login
// ----------------------

// StartQRRequest is optional: an empty body starts an anonymous
// session, a known email pre-binds the session to that account.
type StartQRRequest struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type ClaimQRRequest struct {
	ChallengeID string `json:"challengeId" validate:"required,uuid4"`
}

type CompleteQRRequest struct {
	ChallengeID string `json:"challengeId" validate:"required,uuid4"`
}
