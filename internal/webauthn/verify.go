package webauthn

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/trimooo/SecurePasskey/internal/utils"
)

// Policy gates which ceremony checks are hard failures. Strict mode is
// the default; lenient mode downgrades the origin, user-verified and
// counter checks to logged warnings for deployments fronted by proxies
// or test origins.
type Policy struct {
	RPID           string
	ExpectedOrigin string
	Strict         bool
}

// Verifier performs the storage-free parts of ceremony response
// verification. Challenge matching is the resolver's job and happens
// before these checks run.
type Verifier struct {
	policy Policy
}

func NewVerifier(policy Policy) *Verifier {
	return &Verifier{policy: policy}
}

// VerifyClientData checks the ceremony type and the origin embedded in
// the signed client data. Origin mismatch is a hard failure under a
// strict policy, a logged warning otherwise.
func (v *Verifier) VerifyClientData(cd *ClientData, wantType string) error {
	if cd.Type != wantType {
		return fmt.Errorf("unexpected client data type %q, want %q", cd.Type, wantType)
	}

	if cd.Origin != v.policy.ExpectedOrigin {
		if v.policy.Strict {
			return fmt.Errorf("%w: got %q, want %q", utils.ErrOriginMismatch, cd.Origin, v.policy.ExpectedOrigin)
		}
		utils.Logger.Warnf("origin mismatch tolerated by lenient policy: got %q, want %q",
			cd.Origin, v.policy.ExpectedOrigin)
	}
	return nil
}

// VerifyRegistration checks the authenticator data embedded in an
// attestation object. There is no counter to compare at registration;
// the RP-ID hash must match (hard failure) and the user-verified flag
// is policy-gated like at authentication.
func (v *Verifier) VerifyRegistration(ad *AuthenticatorData) error {
	want := sha256.Sum256([]byte(v.policy.RPID))
	if subtle.ConstantTimeCompare(ad.RPIDHash[:], want[:]) != 1 {
		return fmt.Errorf("%w: authenticator RP-ID hash does not match %q", utils.ErrRpIDMismatch, v.policy.RPID)
	}

	if !ad.UserVerified() {
		if v.policy.Strict {
			return fmt.Errorf("%w: user-verified flag not set", utils.ErrUserNotVerified)
		}
		utils.Logger.Warn("registration asserted presence only, user-verified flag not set")
	}
	return nil
}

// VerifyAssertion checks the parsed authenticator data of an
// authentication response against the relying party and the stored
// signature counter:
//
//   - the RP-ID hash must equal SHA-256 of the relying-party id
//     (always a hard failure),
//   - the user-verified flag should be set (policy-gated),
//   - the counter must exceed storedCount (policy-gated; a
//     non-increasing counter is a possible cloned-credential signal).
func (v *Verifier) VerifyAssertion(ad *AuthenticatorData, storedCount uint32) error {
	want := sha256.Sum256([]byte(v.policy.RPID))
	if subtle.ConstantTimeCompare(ad.RPIDHash[:], want[:]) != 1 {
		return fmt.Errorf("%w: authenticator RP-ID hash does not match %q", utils.ErrRpIDMismatch, v.policy.RPID)
	}

	if !ad.UserVerified() {
		if v.policy.Strict {
			return fmt.Errorf("%w: user-verified flag not set", utils.ErrUserNotVerified)
		}
		utils.Logger.Warn("authenticator asserted presence only, user-verified flag not set")
	}

	if ad.SignCount <= storedCount {
		if v.policy.Strict {
			return fmt.Errorf("%w: counter %d did not advance past stored %d",
				utils.ErrCounterRollback, ad.SignCount, storedCount)
		}
		utils.Logger.Warnf("signature counter did not advance (got %d, stored %d); possible cloned credential",
			ad.SignCount, storedCount)
	}
	return nil
}
