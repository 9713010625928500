package models

import (
	"time"
)

type MFAType string

const (
	MFATypeTOTP  MFAType = "totp"
	MFATypeEmail MFAType = "email"
	MFATypeSMS   MFAType = "sms"
)

// Valid reports whether t is one of the supported factor types.
func (t MFAType) Valid() bool {
	switch t {
	case MFATypeTOTP, MFATypeEmail, MFATypeSMS:
		return true
	}
	return false
}

type User struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name,omitempty"`

	// PasswordHash is nil for passkey-only accounts.
	PasswordHash *string `json:"-"`

	// Registered flips to true once a first passkey credential or a
	// password is committed.
	Registered bool `json:"registered"`

	MFAEnabled bool     `json:"mfa_enabled"`
	MFAType    *MFAType `json:"mfa_type,omitempty"`
	MFASecret  *string  `json:"-"`
	Phone      *string  `json:"phone,omitempty"`

	// Transient one-time code for email/sms factors, cleared after
	// consumption.
	VerificationCode   *string    `json:"-"`
	VerificationExpiry *time.Time `json:"-"`

	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
