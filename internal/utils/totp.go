package utils

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	TOTPPeriod = 30
	TOTPSkew   = 1
	TOTPDigits = otp.DigitsSix
)

// TOTPEnrollment carries everything a client needs to enroll an
// authenticator app: the shared secret, the otpauth:// URI, and a
// QR code of that URI as a PNG data URL.
type TOTPEnrollment struct {
	Secret     string
	OtpauthURL string
	QRCode     string
}

// GenerateTOTPSecret creates a new TOTP key for the given issuer/account
// and renders its enrollment QR code.
func GenerateTOTPSecret(issuer, accountName string) (*TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      TOTPPeriod,
		Digits:      TOTPDigits,
	})
	if err != nil {
		return nil, err
	}

	img, err := key.Image(256, 256)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}

	return &TOTPEnrollment{
		Secret:     key.Secret(),
		OtpauthURL: key.URL(),
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// ValidateTOTPCode verifies a code against the secret with the standard
// 30-second step and a ±1 step tolerance window.
func ValidateTOTPCode(secret, code string) bool {
	return ValidateTOTPCodeAt(secret, code, time.Now())
}

// ValidateTOTPCodeAt is the time-injectable variant used by tests.
func ValidateTOTPCodeAt(secret, code string, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, t, totp.ValidateOpts{
		Period:    TOTPPeriod,
		Skew:      TOTPSkew,
		Digits:    TOTPDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// GenerateTOTPCodeAt produces the code for a given moment, for tests and
// for pre-verifying a freshly generated secret.
func GenerateTOTPCodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, totp.ValidateOpts{
		Period:    TOTPPeriod,
		Skew:      TOTPSkew,
		Digits:    TOTPDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
}
