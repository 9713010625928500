package webauthn

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Authenticator data flag bits.
const (
	FlagUserPresent  byte = 0x01
	FlagUserVerified byte = 0x04
)

// COSE algorithm identifiers accepted at registration.
const (
	AlgES256 = -7   // ECDSA w/ SHA-256 over P-256
	AlgRS256 = -257 // RSASSA-PKCS1-v1_5 w/ SHA-256
)

// ClientData is the parsed form of the clientDataJSON blob signed by
// the browser.
type ClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

const (
	ClientDataTypeCreate = "webauthn.create"
	ClientDataTypeGet    = "webauthn.get"
)

// RegistrationResponse is the credential the client returns from
// navigator.credentials.create().
type RegistrationResponse struct {
	ID       string `json:"id" validate:"required"`
	RawID    string `json:"rawId"`
	Type     string `json:"type"`
	Response struct {
		AttestationObject string   `json:"attestationObject" validate:"required"`
		ClientDataJSON    string   `json:"clientDataJSON" validate:"required"`
		Transports        []string `json:"transports,omitempty"`
	} `json:"response"`
}

// AuthenticationResponse is the assertion the client returns from
// navigator.credentials.get().
type AuthenticationResponse struct {
	ID       string `json:"id" validate:"required"`
	RawID    string `json:"rawId"`
	Type     string `json:"type"`
	Response struct {
		AuthenticatorData string `json:"authenticatorData" validate:"required"`
		ClientDataJSON    string `json:"clientDataJSON" validate:"required"`
		Signature         string `json:"signature"`
		UserHandle        string `json:"userHandle,omitempty"`
	} `json:"response"`
}

// AuthenticatorData is the fixed-layout binary structure returned by an
// authenticator: 32-byte RP-ID hash, one flags byte, and a 4-byte
// big-endian signature counter.
type AuthenticatorData struct {
	RPIDHash  [32]byte
	Flags     byte
	SignCount uint32
}

func (a *AuthenticatorData) UserPresent() bool {
	return a.Flags&FlagUserPresent != 0
}

func (a *AuthenticatorData) UserVerified() bool {
	return a.Flags&FlagUserVerified != 0
}

const authenticatorDataMinLen = 37

// ParseAuthenticatorData decodes the leading 37 bytes of authenticator
// data. Trailing extensions and attested credential data are ignored
// here; ParseAttestationObject handles the latter.
func ParseAuthenticatorData(raw []byte) (*AuthenticatorData, error) {
	if len(raw) < authenticatorDataMinLen {
		return nil, fmt.Errorf("authenticator data too short: %d bytes", len(raw))
	}
	var ad AuthenticatorData
	copy(ad.RPIDHash[:], raw[:32])
	ad.Flags = raw[32]
	ad.SignCount = binary.BigEndian.Uint32(raw[33:37])
	return &ad, nil
}

// ParseClientData decodes a base64url clientDataJSON blob.
func ParseClientData(encoded string) (*ClientData, error) {
	raw, err := Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode clientDataJSON: %w", err)
	}
	var cd ClientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return nil, fmt.Errorf("parse clientDataJSON: %w", err)
	}
	return &cd, nil
}
