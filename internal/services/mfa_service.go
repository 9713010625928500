package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

// ---------------------------------------------------------------------
// MFAService interface
// ---------------------------------------------------------------------

type MFAService interface {
	// SetupTOTP provisions a pending TOTP secret and a recovery-code
	// batch for the user. MFA is not enabled until the user proves
	// possession via Enable.
	SetupTOTP(ctx context.Context, userID int64) (*utils.TOTPEnrollment, []string, error)

	// RequestCode generates and delivers a short-lived numeric code for
	// email or sms factors. On first-time setup it also provisions the
	// recovery-code batch and returns it.
	RequestCode(ctx context.Context, userID int64, mfaType models.MFAType) ([]string, error)

	// Enable turns on the given factor after verifying the supplied
	// code, and returns the recovery-code batch provisioned at setup.
	Enable(ctx context.Context, userID int64, mfaType models.MFAType, code string) ([]string, error)

	// Verify checks a code against the user's enabled factor.
	Verify(ctx context.Context, userID int64, code string) error

	// RequestLoginCode delivers a login-time code for a user mid-login,
	// before any session exists.
	RequestLoginCode(ctx context.Context, username string) error

	// VerifyLogin completes the MFA step of a login and returns the
	// user to issue tokens for.
	VerifyLogin(ctx context.Context, username, code string, recovery bool) (*models.User, error)

	// VerifyRecoveryCode consumes a single-use recovery code.
	VerifyRecoveryCode(ctx context.Context, userID int64, code string) error

	// Disable turns MFA off after verifying a current code or recovery
	// code, and deletes any remaining recovery codes.
	Disable(ctx context.Context, userID int64, code string) error

	// RotateRecoveryCodes replaces all recovery codes with a new batch.
	RotateRecoveryCodes(ctx context.Context, userID int64) ([]string, error)
}

type mfaService struct {
	cfg              *config.Config
	userRepo         repositories.UserRepository
	recoveryCodeRepo repositories.RecoveryCodeRepository
	sendgridClient   *sendgrid.Client
	twilioClient     *twilio.RestClient

	// delivery seams, default to the provider-backed senders
	sendEmail func(email, code string) error
	sendSMS   func(phone, code string) error
}

func NewMFAService(
	cfg *config.Config,
	userRepo repositories.UserRepository,
	recoveryCodeRepo repositories.RecoveryCodeRepository,
) MFAService {
	sgClient := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	twClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	s := &mfaService{
		cfg:              cfg,
		userRepo:         userRepo,
		recoveryCodeRepo: recoveryCodeRepo,
		sendgridClient:   sgClient,
		twilioClient:     twClient,
	}
	s.sendEmail = s.sendEmailCode
	s.sendSMS = s.sendSMSCode
	return s
}

// ---------------------------------------------------------------------
// SetupTOTP
// ---------------------------------------------------------------------

func (s *mfaService) SetupTOTP(ctx context.Context, userID int64) (*utils.TOTPEnrollment, []string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, utils.ErrUserNotFound
	}

	enrollment, err := utils.GenerateTOTPSecret(s.cfg.TOTPIssuer, user.Username)
	if err != nil {
		return nil, nil, err
	}

	encrypted, err := utils.Encrypt(s.cfg.DBEncryptionKey, enrollment.Secret)
	if err != nil {
		return nil, nil, err
	}
	user.MFASecret = &encrypted
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, err
	}

	recovery, err := s.issueRecoveryCodes(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return enrollment, recovery, nil
}

// ---------------------------------------------------------------------
// RequestCode
// ---------------------------------------------------------------------

func (s *mfaService) RequestCode(ctx context.Context, userID int64, mfaType models.MFAType) ([]string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	switch mfaType {
	case models.MFATypeEmail, models.MFATypeSMS:
	default:
		return nil, fmt.Errorf("factor %q does not use delivered codes", mfaType)
	}
	if mfaType == models.MFATypeSMS && user.Phone == nil {
		return nil, utils.ErrPhoneRequired
	}

	code, err := generateVerificationCode(s.cfg.VerificationCodeLength)
	if err != nil {
		return nil, err
	}
	expiry := time.Now().Add(s.cfg.VerificationCodeExpiry)
	user.VerificationCode = &code
	user.VerificationExpiry = &expiry
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	// First-time setup of a delivered-code factor also provisions the
	// recovery batch; later requests (login codes) leave it alone.
	var recovery []string
	if !user.MFAEnabled {
		recovery, err = s.issueRecoveryCodes(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	if mfaType == models.MFATypeEmail {
		err = s.sendEmail(user.Email, code)
	} else {
		err = s.sendSMS(*user.Phone, code)
	}
	if err != nil {
		return nil, err
	}
	return recovery, nil
}

func (s *mfaService) sendEmailCode(email, code string) error {
	from := mail.NewEmail(s.cfg.RPName, s.cfg.LDFlag_SendgridFromEmail)
	to := mail.NewEmail("", email)
	subject := s.cfg.RPName + " - Sign-In Code"
	plainTextContent := fmt.Sprintf("Your sign-in code is %s", code)
	htmlContent := fmt.Sprintf(verificationEmailHTML,
		"Sign-In Code",
		"Please use the following code to complete sign-in. This code will expire in 10 minutes.",
		code, time.Now().Year())
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	if s.cfg.LDFlag_SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	if _, sendErr := s.sendgridClient.Send(message); sendErr != nil {
		utils.Logger.WithError(sendErr).Errorf("Failed to send sign-in code to %s via SendGrid", email)
		return fmt.Errorf("%w: failed to send email via sendgrid: %v", utils.ErrExternalServiceFailure, sendErr)
	}
	return nil
}

func (s *mfaService) sendSMSCode(phone, code string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.cfg.LDFlag_TwilioFromPhone)
	params.SetBody(fmt.Sprintf("Your %s sign-in code is %s", s.cfg.RPName, code))

	if _, sendErr := s.twilioClient.Api.CreateMessage(params); sendErr != nil {
		utils.Logger.WithError(sendErr).Errorf("Failed to send sign-in code to %s via Twilio", phone)
		return fmt.Errorf("%w: failed to send sms via twilio: %v", utils.ErrExternalServiceFailure, sendErr)
	}
	return nil
}

// ---------------------------------------------------------------------
// Enable
// ---------------------------------------------------------------------

func (s *mfaService) Enable(ctx context.Context, userID int64, mfaType models.MFAType, code string) ([]string, error) {
	if !mfaType.Valid() {
		return nil, fmt.Errorf("unknown mfa type %q", mfaType)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	if mfaType == models.MFATypeSMS && user.Phone == nil {
		return nil, utils.ErrPhoneRequired
	}

	if err := s.checkFactorCode(user, mfaType, code); err != nil {
		return nil, err
	}

	user.MFAEnabled = true
	user.MFAType = &mfaType
	user.VerificationCode = nil
	user.VerificationExpiry = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	// The batch issued at setup stays valid; only provision one here if
	// setup somehow left none behind.
	codes, err := s.unusedRecoveryCodes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		codes, err = s.issueRecoveryCodes(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	utils.Logger.Infof("mfa enabled (%s) for user %d", mfaType, userID)
	return codes, nil
}

// issueRecoveryCodes replaces any existing recovery codes with a fresh
// batch and returns the plaintext codes, the only time they are shown.
func (s *mfaService) issueRecoveryCodes(ctx context.Context, userID int64) ([]string, error) {
	if _, err := s.recoveryCodeRepo.DeleteAllByUserID(ctx, userID); err != nil {
		return nil, err
	}
	codes, err := generateRecoveryCodes(s.cfg.RecoveryCodeCount)
	if err != nil {
		return nil, err
	}
	if err := s.recoveryCodeRepo.CreateBatch(ctx, userID, codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *mfaService) unusedRecoveryCodes(ctx context.Context, userID int64) ([]string, error) {
	recs, err := s.recoveryCodeRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rec := range recs {
		if !rec.Used {
			out = append(out, rec.Code)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------
// Verify
// ---------------------------------------------------------------------

func (s *mfaService) Verify(ctx context.Context, userID int64, code string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return utils.ErrUserNotFound
	}
	if !user.MFAEnabled || user.MFAType == nil {
		return utils.ErrMfaNotEnabled
	}

	if err := s.checkFactorCode(user, *user.MFAType, code); err != nil {
		return err
	}

	if *user.MFAType != models.MFATypeTOTP {
		user.VerificationCode = nil
		user.VerificationExpiry = nil
		if err := s.userRepo.Update(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// checkFactorCode validates a code against one factor without touching
// MFA enablement state.
func (s *mfaService) checkFactorCode(user *models.User, mfaType models.MFAType, code string) error {
	switch mfaType {
	case models.MFATypeTOTP:
		if user.MFASecret == nil {
			return utils.ErrMfaNotEnabled
		}
		secret, err := utils.Decrypt(s.cfg.DBEncryptionKey, *user.MFASecret)
		if err != nil {
			return err
		}
		if !utils.ValidateTOTPCode(secret, code) {
			return utils.ErrInvalidMfaCode
		}
	case models.MFATypeEmail, models.MFATypeSMS:
		if user.VerificationCode == nil || user.VerificationExpiry == nil {
			return utils.ErrInvalidMfaCode
		}
		if time.Now().After(*user.VerificationExpiry) || *user.VerificationCode != code {
			return utils.ErrInvalidMfaCode
		}
	default:
		return utils.ErrMfaNotEnabled
	}
	return nil
}

// ---------------------------------------------------------------------
// RequestLoginCode / VerifyLogin – the MFA step of a login
// ---------------------------------------------------------------------

func (s *mfaService) RequestLoginCode(ctx context.Context, username string) error {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return utils.ErrUserNotFound
	}
	if !user.MFAEnabled || user.MFAType == nil {
		return utils.ErrMfaNotEnabled
	}
	_, err = s.RequestCode(ctx, user.ID, *user.MFAType)
	return err
}

func (s *mfaService) VerifyLogin(ctx context.Context, username, code string, recovery bool) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	if recovery {
		if err := s.VerifyRecoveryCode(ctx, user.ID, code); err != nil {
			return nil, err
		}
	} else if err := s.Verify(ctx, user.ID, code); err != nil {
		return nil, err
	}

	// Verify may have cleared the stored code; work from fresh state.
	user, err = s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ---------------------------------------------------------------------
// VerifyRecoveryCode
// ---------------------------------------------------------------------

func (s *mfaService) VerifyRecoveryCode(ctx context.Context, userID int64, code string) error {
	consumed, err := s.recoveryCodeRepo.Consume(ctx, userID, code)
	if err != nil {
		return err
	}
	if !consumed {
		return utils.ErrInvalidRecoveryCode
	}
	utils.Logger.Infof("recovery code consumed for user %d", userID)
	return nil
}

// ---------------------------------------------------------------------
// Disable
// ---------------------------------------------------------------------

func (s *mfaService) Disable(ctx context.Context, userID int64, code string) error {
	if err := s.Verify(ctx, userID, code); err != nil {
		if vErr := s.VerifyRecoveryCode(ctx, userID, code); vErr != nil {
			return err
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return utils.ErrUserNotFound
	}

	user.MFAEnabled = false
	user.MFAType = nil
	user.MFASecret = nil
	user.VerificationCode = nil
	user.VerificationExpiry = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if _, err := s.recoveryCodeRepo.DeleteAllByUserID(ctx, userID); err != nil {
		return err
	}
	utils.Logger.Infof("mfa disabled for user %d", userID)
	return nil
}

// ---------------------------------------------------------------------
// RotateRecoveryCodes
// ---------------------------------------------------------------------

func (s *mfaService) RotateRecoveryCodes(ctx context.Context, userID int64) ([]string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	if !user.MFAEnabled {
		return nil, utils.ErrMfaNotEnabled
	}
	return s.issueRecoveryCodes(ctx, userID)
}
