package models

import "time"

// Credential is one WebAuthn authenticator binding for a user.
type Credential struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`

	// CredentialID is the authenticator-assigned external identifier,
	// base64url-encoded, unique across all users.
	CredentialID string `json:"credential_id"`

	// PublicKey holds the attested COSE key bytes, base64url-encoded,
	// kept opaque.
	PublicKey string `json:"public_key"`

	// SignCount is the authenticator's signature counter, a monotonic
	// anti-clone signal.
	SignCount  uint32    `json:"sign_count"`
	Transports []string  `json:"transports"`
	CreatedAt  time.Time `json:"created_at"`
}
