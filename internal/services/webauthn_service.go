package services

import (
	"context"
	"time"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/utils"
	"github.com/trimooo/SecurePasskey/internal/webauthn"
)

// ---------------------------------------------------------------------
// WebAuthnService interface
// ---------------------------------------------------------------------

type WebAuthnService interface {
	BeginRegistration(ctx context.Context, username, displayName string) (*webauthn.RegistrationOptions, error)
	FinishRegistration(ctx context.Context, username, expectedChallenge string, resp *webauthn.RegistrationResponse) (*models.User, error)
	BeginLogin(ctx context.Context, username string) (*webauthn.AuthenticationOptions, error)
	// FinishLogin verifies an assertion. The returned bool reports
	// whether an MFA step is still required before tokens may be issued.
	FinishLogin(ctx context.Context, username, expectedChallenge string, resp *webauthn.AuthenticationResponse) (*models.User, bool, error)
}

type webauthnService struct {
	cfg            *config.Config
	verifier       *webauthn.Verifier
	userRepo       repositories.UserRepository
	credentialRepo repositories.CredentialRepository
	challengeSvc   ChallengeService
}

func NewWebAuthnService(
	cfg *config.Config,
	userRepo repositories.UserRepository,
	credentialRepo repositories.CredentialRepository,
	challengeSvc ChallengeService,
) WebAuthnService {
	verifier := webauthn.NewVerifier(webauthn.Policy{
		RPID:           cfg.RPID,
		ExpectedOrigin: cfg.ExpectedOrigin,
		Strict:         cfg.StrictCeremonyChecks,
	})
	return &webauthnService{
		cfg:            cfg,
		verifier:       verifier,
		userRepo:       userRepo,
		credentialRepo: credentialRepo,
		challengeSvc:   challengeSvc,
	}
}

// ---------------------------------------------------------------------
// BeginRegistration
// ---------------------------------------------------------------------

func (s *webauthnService) BeginRegistration(ctx context.Context, username, displayName string) (*webauthn.RegistrationOptions, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user != nil && user.Registered {
		return nil, utils.ErrAlreadyRegistered
	}
	if user == nil {
		user = &models.User{
			Username: username,
			Email:    username,
		}
		if displayName != "" {
			user.DisplayName = &displayName
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	challenge, err := s.challengeSvc.Issue(ctx, &user.ID, models.ChallengeTypeRegistration, nil)
	if err != nil {
		return nil, err
	}

	display := username
	if user.DisplayName != nil {
		display = *user.DisplayName
	}
	return webauthn.BuildRegistrationOptions(
		user.ID, username, display,
		challenge.Challenge, s.cfg.RPName, s.cfg.RPID,
		int(s.cfg.CeremonyTimeout/time.Millisecond),
	), nil
}

// ---------------------------------------------------------------------
// FinishRegistration
// ---------------------------------------------------------------------

func (s *webauthnService) FinishRegistration(
	ctx context.Context,
	username, expectedChallenge string,
	resp *webauthn.RegistrationResponse,
) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	if user.Registered {
		return nil, utils.ErrAlreadyRegistered
	}

	cd, err := webauthn.ParseClientData(resp.Response.ClientDataJSON)
	if err != nil {
		return nil, err
	}
	if err := s.verifier.VerifyClientData(cd, webauthn.ClientDataTypeCreate); err != nil {
		return nil, err
	}

	challenge, err := s.challengeSvc.Resolve(
		ctx, user.ID, models.ChallengeTypeRegistration, cd.Challenge, expectedChallenge)
	if err != nil {
		return nil, err
	}

	attested, err := webauthn.ParseAttestationObject(resp.Response.AttestationObject)
	if err != nil {
		return nil, err
	}
	if err := s.verifier.VerifyRegistration(attested.AuthData); err != nil {
		return nil, err
	}

	// Consume before persisting so a concurrent duplicate of the same
	// response cannot also complete.
	consumed, err := s.challengeSvc.Consume(ctx, challenge.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, utils.ErrNoActiveChallenge
	}

	credential := &models.Credential{
		UserID:       user.ID,
		CredentialID: webauthn.Encode(attested.CredentialID),
		PublicKey:    webauthn.Encode(attested.PublicKey),
		SignCount:    attested.AuthData.SignCount,
		Transports:   resp.Response.Transports,
	}
	if err := s.credentialRepo.Create(ctx, credential); err != nil {
		return nil, err
	}

	user.Registered = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	utils.Logger.Infof("registered credential %s for user %d", credential.CredentialID, user.ID)
	return user, nil
}

// ---------------------------------------------------------------------
// BeginLogin
// ---------------------------------------------------------------------

func (s *webauthnService) BeginLogin(ctx context.Context, username string) (*webauthn.AuthenticationOptions, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	if !user.Registered {
		return nil, utils.ErrNotRegistered
	}

	credentials, err := s.credentialRepo.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(credentials) == 0 {
		return nil, utils.ErrCredentialNotFound
	}

	challenge, err := s.challengeSvc.Issue(ctx, &user.ID, models.ChallengeTypeAuthentication, nil)
	if err != nil {
		return nil, err
	}

	allowed := make([]string, 0, len(credentials))
	for _, c := range credentials {
		allowed = append(allowed, c.CredentialID)
	}
	return webauthn.BuildAuthenticationOptions(
		challenge.Challenge, s.cfg.RPID, allowed,
		int(s.cfg.CeremonyTimeout/time.Millisecond),
		"preferred",
	), nil
}

// ---------------------------------------------------------------------
// FinishLogin
// ---------------------------------------------------------------------

func (s *webauthnService) FinishLogin(
	ctx context.Context,
	username, expectedChallenge string,
	resp *webauthn.AuthenticationResponse,
) (*models.User, bool, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, utils.ErrUserNotFound
	}
	if !user.Registered {
		return nil, false, utils.ErrNotRegistered
	}

	credential, err := s.credentialRepo.GetByCredentialID(ctx, resp.ID)
	if err != nil {
		return nil, false, err
	}
	if credential == nil || credential.UserID != user.ID {
		return nil, false, utils.ErrCredentialNotFound
	}

	cd, err := webauthn.ParseClientData(resp.Response.ClientDataJSON)
	if err != nil {
		return nil, false, err
	}
	if err := s.verifier.VerifyClientData(cd, webauthn.ClientDataTypeGet); err != nil {
		return nil, false, err
	}

	challenge, err := s.challengeSvc.Resolve(
		ctx, user.ID, models.ChallengeTypeAuthentication, cd.Challenge, expectedChallenge)
	if err != nil {
		return nil, false, err
	}

	rawAuthData, err := webauthn.Decode(resp.Response.AuthenticatorData)
	if err != nil {
		return nil, false, err
	}
	ad, err := webauthn.ParseAuthenticatorData(rawAuthData)
	if err != nil {
		return nil, false, err
	}
	if err := s.verifier.VerifyAssertion(ad, credential.SignCount); err != nil {
		return nil, false, err
	}

	consumed, err := s.challengeSvc.Consume(ctx, challenge.ID)
	if err != nil {
		return nil, false, err
	}
	if !consumed {
		return nil, false, utils.ErrNoActiveChallenge
	}

	// Only a strictly increasing counter is persisted; under the lenient
	// policy a stuck counter is tolerated but never written back, so the
	// stored high-water mark keeps its value.
	if ad.SignCount > credential.SignCount {
		if err := s.credentialRepo.UpdateSignCount(ctx, credential.ID, ad.SignCount); err != nil {
			return nil, false, err
		}
	}

	if user.MFAEnabled {
		return user, true, nil
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, false, err
	}
	return user, false, nil
}
