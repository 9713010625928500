package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/testutil"
)

func TestTokenCleanupDropsExpiredAndRevoked(t *testing.T) {
	repo := testutil.NewFakeTokenRepo()
	svc := NewTokenCleanupService(repo)
	ctx := context.Background()

	live := &models.RefreshToken{UserID: 1, Token: "live", ExpiresAt: time.Now().Add(time.Hour)}
	expired := &models.RefreshToken{UserID: 1, Token: "expired", ExpiresAt: time.Now().Add(-time.Hour)}
	revoked := &models.RefreshToken{UserID: 1, Token: "revoked", ExpiresAt: time.Now().Add(time.Hour)}
	for _, rt := range []*models.RefreshToken{live, expired, revoked} {
		require.NoError(t, repo.Create(ctx, rt))
	}
	require.NoError(t, repo.Revoke(ctx, revoked.ID))

	require.NoError(t, svc.CleanupDaily(ctx))

	kept, err := repo.GetByToken(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, kept)
	for _, gone := range []string{"expired", "revoked"} {
		rt, err := repo.GetByToken(ctx, gone)
		require.NoError(t, err)
		require.Nil(t, rt)
	}
}
