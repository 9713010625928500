package services

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/testutil"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

func newMFAFixture() (MFAService, *testutil.FakeUserRepo, *testutil.FakeRecoveryCodeRepo) {
	cfg := &config.Config{
		RPName:                 "SecurePasskey",
		TOTPIssuer:             "SecurePasskey",
		DBEncryptionKey:        bytes.Repeat([]byte("k"), 32),
		VerificationCodeLength: 6,
		VerificationCodeExpiry: 10 * time.Minute,
		RecoveryCodeCount:      10,
	}
	users := testutil.NewFakeUserRepo()
	codes := testutil.NewFakeRecoveryCodeRepo()
	svc := NewMFAService(cfg, users, codes).(*mfaService)
	// keep provider calls out of tests
	svc.sendEmail = func(string, string) error { return nil }
	svc.sendSMS = func(string, string) error { return nil }
	return svc, users, codes
}

func createMFAUser(t *testing.T, users *testutil.FakeUserRepo, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Registered: true}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func setDeliveredCode(t *testing.T, users *testutil.FakeUserRepo, userID int64, code string, expiry time.Time) {
	t.Helper()
	ctx := context.Background()
	u, err := users.GetByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, u)
	u.VerificationCode = &code
	u.VerificationExpiry = &expiry
	require.NoError(t, users.Update(ctx, u))
}

// enableEmailMFA flips the email factor on by planting a delivered code
// and enabling with it, without going through a mail provider.
func enableEmailMFA(t *testing.T, svc MFAService, users *testutil.FakeUserRepo, userID int64) []string {
	t.Helper()
	setDeliveredCode(t, users, userID, "111222", time.Now().Add(10*time.Minute))
	codes, err := svc.Enable(context.Background(), userID, models.MFATypeEmail, "111222")
	require.NoError(t, err)
	return codes
}

var recoveryCodePattern = regexp.MustCompile(`^[0-9A-F]{5}-[0-9A-F]{5}$`)

// ---------------------------------------------------------------------
// TOTP
// ---------------------------------------------------------------------

func TestSetupTOTPStoresEncryptedSecret(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")

	enrollment, _, err := svc.SetupTOTP(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.OtpauthURL, "otpauth://totp/")
	require.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.MFASecret)
	require.NotEqual(t, enrollment.Secret, *stored.MFASecret, "secret must not be stored in the clear")

	plain, err := utils.Decrypt(bytes.Repeat([]byte("k"), 32), *stored.MFASecret)
	require.NoError(t, err)
	require.Equal(t, enrollment.Secret, plain)
}

func TestEnableAndVerifyTOTP(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")

	enrollment, _, err := svc.SetupTOTP(ctx, u.ID)
	require.NoError(t, err)

	code, err := utils.GenerateTOTPCodeAt(enrollment.Secret, time.Now())
	require.NoError(t, err)

	recovery, err := svc.Enable(ctx, u.ID, models.MFATypeTOTP, code)
	require.NoError(t, err)
	require.Len(t, recovery, 10)
	for _, rc := range recovery {
		require.Regexp(t, recoveryCodePattern, rc)
	}

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.MFAEnabled)
	require.NotNil(t, stored.MFAType)
	require.Equal(t, models.MFATypeTOTP, *stored.MFAType)

	fresh, err := utils.GenerateTOTPCodeAt(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, u.ID, fresh))

	require.ErrorIs(t, svc.Verify(ctx, u.ID, "000000"), utils.ErrInvalidMfaCode)
}

func TestVerifyTOTPAcceptsAdjacentStep(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")

	enrollment, _, err := svc.SetupTOTP(ctx, u.ID)
	require.NoError(t, err)
	code, err := utils.GenerateTOTPCodeAt(enrollment.Secret, time.Now())
	require.NoError(t, err)
	_, err = svc.Enable(ctx, u.ID, models.MFATypeTOTP, code)
	require.NoError(t, err)

	// a code from the previous 30s step stays inside the skew window
	previous, err := utils.GenerateTOTPCodeAt(enrollment.Secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, u.ID, previous))
}

// ---------------------------------------------------------------------
// delivered codes
// ---------------------------------------------------------------------

func TestEnableEmailFactor(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")

	setDeliveredCode(t, users, u.ID, "123456", time.Now().Add(10*time.Minute))

	_, err := svc.Enable(ctx, u.ID, models.MFATypeEmail, "999999")
	require.ErrorIs(t, err, utils.ErrInvalidMfaCode)

	_, err = svc.Enable(ctx, u.ID, models.MFATypeEmail, "123456")
	require.NoError(t, err)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.MFAEnabled)
	require.Nil(t, stored.VerificationCode, "delivered code is cleared once used")
}

func TestEnableEmailFactorExpiredCode(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")

	setDeliveredCode(t, users, u.ID, "123456", time.Now().Add(-time.Second))
	_, err := svc.Enable(ctx, u.ID, models.MFATypeEmail, "123456")
	require.ErrorIs(t, err, utils.ErrInvalidMfaCode)
}

func TestEnableSMSRequiresPhone(t *testing.T) {
	svc, users, _ := newMFAFixture()
	u := createMFAUser(t, users, "alice")

	_, err := svc.Enable(context.Background(), u.ID, models.MFATypeSMS, "123456")
	require.ErrorIs(t, err, utils.ErrPhoneRequired)
}

func TestVerifyConsumesDeliveredCode(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")
	enableEmailMFA(t, svc, users, u.ID)

	setDeliveredCode(t, users, u.ID, "654321", time.Now().Add(10*time.Minute))
	require.NoError(t, svc.Verify(ctx, u.ID, "654321"))

	// single use: a second presentation of the same code fails
	require.ErrorIs(t, svc.Verify(ctx, u.ID, "654321"), utils.ErrInvalidMfaCode)
}

func TestVerifyRequiresEnabledMFA(t *testing.T) {
	svc, users, _ := newMFAFixture()
	u := createMFAUser(t, users, "alice")

	require.ErrorIs(t, svc.Verify(context.Background(), u.ID, "123456"), utils.ErrMfaNotEnabled)
}

// ---------------------------------------------------------------------
// login-time step
// ---------------------------------------------------------------------

func TestVerifyLogin(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")
	enableEmailMFA(t, svc, users, u.ID)

	setDeliveredCode(t, users, u.ID, "777888", time.Now().Add(10*time.Minute))

	user, err := svc.VerifyLogin(ctx, "alice", "777888", false)
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)
	require.Nil(t, user.VerificationCode)

	_, err = svc.VerifyLogin(ctx, "alice", "777888", false)
	require.ErrorIs(t, err, utils.ErrInvalidMfaCode)
}

func TestVerifyLoginWithRecoveryCode(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")
	recovery := enableEmailMFA(t, svc, users, u.ID)

	user, err := svc.VerifyLogin(ctx, "alice", recovery[0], true)
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)

	// the code is burned
	_, err = svc.VerifyLogin(ctx, "alice", recovery[0], true)
	require.ErrorIs(t, err, utils.ErrInvalidRecoveryCode)
}

func TestRequestLoginCodeRequiresEnabledMFA(t *testing.T) {
	svc, users, _ := newMFAFixture()
	createMFAUser(t, users, "alice")

	require.ErrorIs(t, svc.RequestLoginCode(context.Background(), "alice"), utils.ErrMfaNotEnabled)
	require.ErrorIs(t, svc.RequestLoginCode(context.Background(), "nobody"), utils.ErrUserNotFound)
}

// ---------------------------------------------------------------------
// recovery codes
// ---------------------------------------------------------------------

func TestRecoveryCodeSingleUse(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")
	recovery := enableEmailMFA(t, svc, users, u.ID)

	require.NoError(t, svc.VerifyRecoveryCode(ctx, u.ID, recovery[0]))
	require.ErrorIs(t, svc.VerifyRecoveryCode(ctx, u.ID, recovery[0]), utils.ErrInvalidRecoveryCode)
	require.NoError(t, svc.VerifyRecoveryCode(ctx, u.ID, recovery[1]))
}

func TestRecoveryCodeConcurrentConsume(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")
	recovery := enableEmailMFA(t, svc, users, u.ID)

	// many racing presentations of one code yield exactly one winner
	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.VerifyRecoveryCode(ctx, u.ID, recovery[0]) == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins)
}

func TestSetupTOTPProvisionsRecoveryCodes(t *testing.T) {
	svc, users, codes := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")

	enrollment, recovery, err := svc.SetupTOTP(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, recovery, 10)
	for _, rc := range recovery {
		require.Regexp(t, recoveryCodePattern, rc)
	}

	stored, err := codes.ListByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, stored, 10)

	// enabling keeps the batch handed out at setup
	code, err := utils.GenerateTOTPCodeAt(enrollment.Secret, time.Now())
	require.NoError(t, err)
	enabled, err := svc.Enable(ctx, u.ID, models.MFATypeTOTP, code)
	require.NoError(t, err)
	require.ElementsMatch(t, recovery, enabled)
}

func TestRequestCodeFirstTimeProvisionsRecoveryCodes(t *testing.T) {
	svc, users, codes := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")

	recovery, err := svc.RequestCode(ctx, u.ID, models.MFATypeEmail)
	require.NoError(t, err)
	require.Len(t, recovery, 10)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationCode)

	_, err = svc.Enable(ctx, u.ID, models.MFATypeEmail, *stored.VerificationCode)
	require.NoError(t, err)

	// a login-time code for the now-enabled factor leaves the batch alone
	again, err := svc.RequestCode(ctx, u.ID, models.MFATypeEmail)
	require.NoError(t, err)
	require.Nil(t, again)

	remaining, err := codes.ListByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 10)
	require.NoError(t, svc.VerifyRecoveryCode(ctx, u.ID, recovery[0]))
}

func TestRotateRecoveryCodes(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")
	old := enableEmailMFA(t, svc, users, u.ID)

	fresh, err := svc.RotateRecoveryCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, fresh, 10)
	require.NotEqual(t, old, fresh)

	require.ErrorIs(t, svc.VerifyRecoveryCode(ctx, u.ID, old[0]), utils.ErrInvalidRecoveryCode)
	require.NoError(t, svc.VerifyRecoveryCode(ctx, u.ID, fresh[0]))
}

func TestRotateRecoveryCodesRequiresEnabledMFA(t *testing.T) {
	svc, users, _ := newMFAFixture()
	u := createMFAUser(t, users, "alice")

	_, err := svc.RotateRecoveryCodes(context.Background(), u.ID)
	require.ErrorIs(t, err, utils.ErrMfaNotEnabled)
}

// ---------------------------------------------------------------------
// disable
// ---------------------------------------------------------------------

func TestDisableWithRecoveryCode(t *testing.T) {
	svc, users, codes := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")
	recovery := enableEmailMFA(t, svc, users, u.ID)

	require.NoError(t, svc.Disable(ctx, u.ID, recovery[0]))

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, stored.MFAEnabled)
	require.Nil(t, stored.MFAType)
	require.Nil(t, stored.MFASecret)

	remaining, err := codes.ListByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestDisableRejectsBadCode(t *testing.T) {
	svc, users, _ := newMFAFixture()
	ctx := context.Background()
	u := createMFAUser(t, users, "alice")
	enableEmailMFA(t, svc, users, u.ID)

	require.ErrorIs(t, svc.Disable(ctx, u.ID, "not-a-code"), utils.ErrInvalidMfaCode)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.MFAEnabled)
}
