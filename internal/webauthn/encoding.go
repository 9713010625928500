package webauthn

import (
	"encoding/base64"
	"strings"
)

// Base64url codec used for challenge values, credential ids and the raw
// fields of authenticator responses. Encoding is RFC 4648 §5 with the
// padding stripped. Decoding tolerates input produced with the standard
// alphabet and any padding state.

// Encode converts binary data to unpadded base64url text.
func Encode(data []byte) string {
	s := base64.StdEncoding.EncodeToString(data)
	s = strings.ReplaceAll(s, "+", "-")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.TrimRight(s, "=")
}

// Decode reverses Encode. Missing padding is reconstructed and standard
// base64 charset variants are remapped before decoding.
func Decode(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return base64.StdEncoding.DecodeString(s)
}

// NormalizeChallenge maps a challenge string to its canonical
// unpadded-base64url form, guarding against clients that encoded with
// standard base64 instead of base64url.
func NormalizeChallenge(s string) string {
	s = strings.TrimRight(s, "=")
	s = strings.ReplaceAll(s, "+", "-")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}
