package services

import (
	"context"
	"time"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

// ---------------------------------------------------------------------
// PasswordAuthService – username/password fallback alongside passkeys
// ---------------------------------------------------------------------

type PasswordAuthService interface {
	Register(ctx context.Context, username, email, password string, displayName *string) (*models.User, error)
	// Login returns the user plus whether an MFA step is still required.
	Login(ctx context.Context, username, password string) (*models.User, bool, error)
	UpdatePhone(ctx context.Context, userID int64, phone string) error
}

type passwordAuthService struct {
	cfg      *config.Config
	userRepo repositories.UserRepository
	mfa      MFAService
}

func NewPasswordAuthService(cfg *config.Config, userRepo repositories.UserRepository, mfa MFAService) PasswordAuthService {
	return &passwordAuthService{cfg: cfg, userRepo: userRepo, mfa: mfa}
}

func (s *passwordAuthService) Register(
	ctx context.Context,
	username, email, password string,
	displayName *string,
) (*models.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrUsernameExists
	}
	existing, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrEmailExists
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: &hash,
		Registered:   true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	utils.Logger.Infof("password account created for user %d", user.ID)
	return user, nil
}

func (s *passwordAuthService) Login(ctx context.Context, username, password string) (*models.User, bool, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if user == nil || user.PasswordHash == nil {
		return nil, false, utils.ErrInvalidCredentials
	}
	if !utils.CheckPasswordHash(password, *user.PasswordHash) {
		return nil, false, utils.ErrInvalidCredentials
	}

	if user.MFAEnabled {
		// Delivered-code factors get their login code now, so the client
		// only has to prompt for it. TOTP needs nothing sent.
		if user.MFAType != nil && *user.MFAType != models.MFATypeTOTP {
			if _, err := s.mfa.RequestCode(ctx, user.ID, *user.MFAType); err != nil {
				return nil, false, err
			}
		}
		return user, true, nil
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, false, err
	}
	return user, false, nil
}

func (s *passwordAuthService) UpdatePhone(ctx context.Context, userID int64, phone string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return utils.ErrUserNotFound
	}
	if phone == "" {
		return utils.ErrInvalidPhone
	}
	user.Phone = &phone
	return s.userRepo.Update(ctx, user)
}
