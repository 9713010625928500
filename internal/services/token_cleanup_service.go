package services

import (
	"context"

	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

// TokenCleanupService removes expired and revoked refresh tokens each
// night.
type TokenCleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type tokenCleanupService struct {
	tokenRepo repositories.TokenRepository
}

func NewTokenCleanupService(tokenRepo repositories.TokenRepository) TokenCleanupService {
	return &tokenCleanupService{tokenRepo: tokenRepo}
}

func (s *tokenCleanupService) CleanupDaily(ctx context.Context) error {
	var removed int64
	op := func(ctx context.Context) error {
		var err error
		removed, err = s.tokenRepo.DeleteExpired(ctx)
		return err
	}
	if err := runWithRetry(ctx, op, "token cleanup"); err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup expired refresh_tokens")
		return err
	}
	utils.Logger.Infof("Daily token cleanup completed, removed %d rows.", removed)
	return nil
}
