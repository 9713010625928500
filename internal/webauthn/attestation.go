package webauthn

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// AttestationObject is the CBOR envelope returned at registration.
// The attestation statement is not evaluated (preference "none"); the
// interesting part is the attested credential data inside authData.
type AttestationObject struct {
	Format       string          `cbor:"fmt"`
	AttStatement cbor.RawMessage `cbor:"attStmt"`
	AuthData     []byte          `cbor:"authData"`
}

// AttestedCredential is the credential material extracted from the
// attested-credential-data section of registration authenticator data.
type AttestedCredential struct {
	AuthData     *AuthenticatorData
	AAGUID       [16]byte
	CredentialID []byte
	// PublicKey carries the raw COSE key bytes. They are stored opaque;
	// per-assertion signature verification against them is a known gap
	// inherited from requesting no attestation.
	PublicKey []byte
}

const attestedCredentialFlag byte = 0x40

// ParseAttestationObject decodes the base64url CBOR attestation object
// and extracts the attested credential.
func ParseAttestationObject(encoded string) (*AttestedCredential, error) {
	raw, err := Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode attestationObject: %w", err)
	}

	var obj AttestationObject
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("parse attestationObject: %w", err)
	}

	ad, err := ParseAuthenticatorData(obj.AuthData)
	if err != nil {
		return nil, err
	}
	if obj.AuthData[32]&attestedCredentialFlag == 0 {
		return nil, fmt.Errorf("attestation authData carries no attested credential data")
	}

	// Layout after the 37-byte header:
	// 16-byte AAGUID | 2-byte credential id length | credential id | COSE key
	rest := obj.AuthData[authenticatorDataMinLen:]
	if len(rest) < 18 {
		return nil, fmt.Errorf("attested credential data too short: %d bytes", len(rest))
	}

	cred := &AttestedCredential{AuthData: ad}
	copy(cred.AAGUID[:], rest[:16])

	idLen := int(binary.BigEndian.Uint16(rest[16:18]))
	if len(rest) < 18+idLen {
		return nil, fmt.Errorf("credential id truncated: want %d bytes, have %d", idLen, len(rest)-18)
	}
	cred.CredentialID = rest[18 : 18+idLen]
	cred.PublicKey = rest[18+idLen:]
	if len(cred.PublicKey) == 0 {
		return nil, fmt.Errorf("attested credential data carries no public key")
	}

	return cred, nil
}
