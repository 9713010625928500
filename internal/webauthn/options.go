package webauthn

import (
	"crypto/rand"
	"strconv"
)

const challengeBytes = 32

// GenerateChallenge produces a fresh 32-byte cryptographically random
// challenge, base64url-encoded. Entropy exhaustion is not survivable.
func GenerateChallenge() string {
	raw := make([]byte, challengeBytes)
	if _, err := rand.Read(raw); err != nil {
		panic(err)
	}
	return Encode(raw)
}

// EncodeUserHandle renders a numeric user id as the opaque user handle
// carried in ceremony options and authenticator responses.
func EncodeUserHandle(userID int64) string {
	return Encode([]byte(strconv.FormatInt(userID, 10)))
}

// ---------------------------------------------------------------------
// Option payloads consumed by the browser WebAuthn API
// ---------------------------------------------------------------------

type RelyingParty struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type UserEntity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type CredentialParameter struct {
	Type string `json:"type"`
	Alg  int    `json:"alg"`
}

type AuthenticatorSelection struct {
	AuthenticatorAttachment string `json:"authenticatorAttachment,omitempty"`
	UserVerification        string `json:"userVerification"`
	RequireResidentKey      bool   `json:"requireResidentKey"`
}

type CredentialDescriptor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RegistrationOptions is the PublicKeyCredentialCreationOptions payload.
type RegistrationOptions struct {
	Challenge              string                 `json:"challenge"`
	RP                     RelyingParty           `json:"rp"`
	User                   UserEntity             `json:"user"`
	PubKeyCredParams       []CredentialParameter  `json:"pubKeyCredParams"`
	AuthenticatorSelection AuthenticatorSelection `json:"authenticatorSelection"`
	Timeout                int                    `json:"timeout"`
	Attestation            string                 `json:"attestation"`
}

// AuthenticationOptions is the PublicKeyCredentialRequestOptions payload.
type AuthenticationOptions struct {
	Challenge        string                 `json:"challenge"`
	RPID             string                 `json:"rpId"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials"`
	Timeout          int                    `json:"timeout"`
	UserVerification string                 `json:"userVerification"`
}

// BuildRegistrationOptions assembles the creation options for one
// registration ceremony. No attestation statement is requested.
func BuildRegistrationOptions(
	userID int64,
	username, displayName string,
	challenge, rpName, rpID string,
	timeoutMs int,
) *RegistrationOptions {
	return &RegistrationOptions{
		Challenge: challenge,
		RP:        RelyingParty{Name: rpName, ID: rpID},
		User: UserEntity{
			ID:          EncodeUserHandle(userID),
			Name:        username,
			DisplayName: displayName,
		},
		PubKeyCredParams: []CredentialParameter{
			{Type: "public-key", Alg: AlgES256},
			{Type: "public-key", Alg: AlgRS256},
		},
		AuthenticatorSelection: AuthenticatorSelection{
			AuthenticatorAttachment: "platform",
			UserVerification:        "preferred",
			RequireResidentKey:      false,
		},
		Timeout:     timeoutMs,
		Attestation: "none",
	}
}

// BuildAuthenticationOptions assembles the request options for one
// authentication ceremony scoped to the given credential ids.
func BuildAuthenticationOptions(
	challenge, rpID string,
	allowedCredentialIDs []string,
	timeoutMs int,
	userVerification string,
) *AuthenticationOptions {
	allow := make([]CredentialDescriptor, 0, len(allowedCredentialIDs))
	for _, id := range allowedCredentialIDs {
		allow = append(allow, CredentialDescriptor{Type: "public-key", ID: id})
	}
	return &AuthenticationOptions{
		Challenge:        challenge,
		RPID:             rpID,
		AllowCredentials: allow,
		Timeout:          timeoutMs,
		UserVerification: userVerification,
	}
}
