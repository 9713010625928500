package models

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeType string

const (
	ChallengeTypeRegistration   ChallengeType = "registration"
	ChallengeTypeAuthentication ChallengeType = "authentication"
	ChallengeTypeQRCode         ChallengeType = "qrcode"
)

// Challenge is a single-use, time-bounded nonce tied to one ceremony
// attempt. UserID is nil for anonymous QR challenges until an
// authenticated device claims them.
type Challenge struct {
	ID        uuid.UUID     `json:"id"`
	UserID    *int64        `json:"user_id,omitempty"`
	Challenge string        `json:"challenge"`
	Type      ChallengeType `json:"type"`
	QRPayload *string       `json:"qr_payload,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Expired reports whether the challenge is past its expiry at t.
func (c *Challenge) Expired(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}
