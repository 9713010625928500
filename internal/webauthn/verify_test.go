package webauthn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trimooo/SecurePasskey/internal/utils"
)

const (
	testRPID   = "example.com"
	testOrigin = "https://app.example.com"
)

func strictVerifier() *Verifier {
	return NewVerifier(Policy{RPID: testRPID, ExpectedOrigin: testOrigin, Strict: true})
}

func lenientVerifier() *Verifier {
	return NewVerifier(Policy{RPID: testRPID, ExpectedOrigin: testOrigin, Strict: false})
}

func TestVerifyClientDataTypeMismatch(t *testing.T) {
	cd := &ClientData{Type: ClientDataTypeGet, Origin: testOrigin}
	err := strictVerifier().VerifyClientData(cd, ClientDataTypeCreate)
	require.Error(t, err)

	// type check is hard even under a lenient policy
	err = lenientVerifier().VerifyClientData(cd, ClientDataTypeCreate)
	require.Error(t, err)
}

func TestVerifyClientDataOriginPolicy(t *testing.T) {
	cd := &ClientData{Type: ClientDataTypeGet, Origin: "https://evil.example.com"}

	err := strictVerifier().VerifyClientData(cd, ClientDataTypeGet)
	require.ErrorIs(t, err, utils.ErrOriginMismatch)

	err = lenientVerifier().VerifyClientData(cd, ClientDataTypeGet)
	require.NoError(t, err)
}

func TestVerifyAssertionRPIDHashAlwaysHard(t *testing.T) {
	raw := buildAuthData("other.example.com", FlagUserPresent|FlagUserVerified, 5)
	ad, err := ParseAuthenticatorData(raw)
	require.NoError(t, err)

	require.ErrorIs(t, strictVerifier().VerifyAssertion(ad, 1), utils.ErrRpIDMismatch)
	require.ErrorIs(t, lenientVerifier().VerifyAssertion(ad, 1), utils.ErrRpIDMismatch)
}

func TestVerifyAssertionUserVerifiedPolicy(t *testing.T) {
	raw := buildAuthData(testRPID, FlagUserPresent, 5)
	ad, err := ParseAuthenticatorData(raw)
	require.NoError(t, err)

	require.ErrorIs(t, strictVerifier().VerifyAssertion(ad, 1), utils.ErrUserNotVerified)
	require.NoError(t, lenientVerifier().VerifyAssertion(ad, 1))
}

func TestVerifyAssertionCounterPolicy(t *testing.T) {
	raw := buildAuthData(testRPID, FlagUserPresent|FlagUserVerified, 5)
	ad, err := ParseAuthenticatorData(raw)
	require.NoError(t, err)

	// advancing counter passes everywhere
	require.NoError(t, strictVerifier().VerifyAssertion(ad, 4))

	// non-increasing counter is policy gated
	require.ErrorIs(t, strictVerifier().VerifyAssertion(ad, 5), utils.ErrCounterRollback)
	require.ErrorIs(t, strictVerifier().VerifyAssertion(ad, 9), utils.ErrCounterRollback)
	require.NoError(t, lenientVerifier().VerifyAssertion(ad, 9))
}

func TestVerifyRegistration(t *testing.T) {
	good, err := ParseAuthenticatorData(buildAuthData(testRPID, FlagUserPresent|FlagUserVerified, 0))
	require.NoError(t, err)
	require.NoError(t, strictVerifier().VerifyRegistration(good))

	wrongRP, err := ParseAuthenticatorData(buildAuthData("other.example.com", FlagUserPresent|FlagUserVerified, 0))
	require.NoError(t, err)
	require.ErrorIs(t, strictVerifier().VerifyRegistration(wrongRP), utils.ErrRpIDMismatch)
	require.ErrorIs(t, lenientVerifier().VerifyRegistration(wrongRP), utils.ErrRpIDMismatch)

	presenceOnly, err := ParseAuthenticatorData(buildAuthData(testRPID, FlagUserPresent, 0))
	require.NoError(t, err)
	require.ErrorIs(t, strictVerifier().VerifyRegistration(presenceOnly), utils.ErrUserNotVerified)
	require.NoError(t, lenientVerifier().VerifyRegistration(presenceOnly))
}
