package services

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/testutil"
	"github.com/trimooo/SecurePasskey/internal/utils"
	"github.com/trimooo/SecurePasskey/internal/webauthn"
)

func newChallengeFixture() (ChallengeService, *testutil.FakeChallengeRepo) {
	repo := testutil.NewFakeChallengeRepo()
	cfg := &config.Config{ChallengeTTL: 5 * time.Minute}
	return NewChallengeService(cfg, repo), repo
}

func TestIssueStoresFreshChallenge(t *testing.T) {
	svc, repo := newChallengeFixture()
	userID := int64(1)

	c, err := svc.Issue(context.Background(), &userID, models.ChallengeTypeRegistration, nil)
	require.NoError(t, err)
	require.NotEmpty(t, c.Challenge)
	require.True(t, c.ExpiresAt.After(time.Now().Add(4*time.Minute)))

	stored, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, c.Challenge, stored.Challenge)
}

func TestResolveDefaultsToMostRecent(t *testing.T) {
	svc, _ := newChallengeFixture()
	userID := int64(1)
	ctx := context.Background()

	older, err := svc.Issue(ctx, &userID, models.ChallengeTypeAuthentication, nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	newer, err := svc.Issue(ctx, &userID, models.ChallengeTypeAuthentication, nil)
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, newer.Challenge, "")
	require.NoError(t, err)
	require.Equal(t, newer.ID, resolved.ID)

	// the default candidate is the newest, so echoing the older value
	// without pinning it is a mismatch
	_, err = svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, older.Challenge, "")
	require.ErrorIs(t, err, utils.ErrChallengeMismatch)
}

func TestResolveHonorsExpectedChallenge(t *testing.T) {
	svc, _ := newChallengeFixture()
	userID := int64(1)
	ctx := context.Background()

	older, err := svc.Issue(ctx, &userID, models.ChallengeTypeAuthentication, nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Issue(ctx, &userID, models.ChallengeTypeAuthentication, nil)
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, older.Challenge, older.Challenge)
	require.NoError(t, err)
	require.Equal(t, older.ID, resolved.ID)
}

func TestResolveExpectedChallengeNotFoundFallsBack(t *testing.T) {
	svc, _ := newChallengeFixture()
	userID := int64(1)
	ctx := context.Background()

	older, err := svc.Issue(ctx, &userID, models.ChallengeTypeAuthentication, nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	newer, err := svc.Issue(ctx, &userID, models.ChallengeTypeAuthentication, nil)
	require.NoError(t, err)

	// a stale hint falls back to the most recent challenge, which the
	// client data still has to match
	resolved, err := svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, newer.Challenge, webauthn.GenerateChallenge())
	require.NoError(t, err)
	require.Equal(t, newer.ID, resolved.ID)

	_, err = svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, older.Challenge, webauthn.GenerateChallenge())
	require.ErrorIs(t, err, utils.ErrChallengeMismatch)
}

func TestResolveToleratesBase64Variants(t *testing.T) {
	svc, _ := newChallengeFixture()
	userID := int64(1)
	ctx := context.Background()

	c, err := svc.Issue(ctx, &userID, models.ChallengeTypeAuthentication, nil)
	require.NoError(t, err)

	raw, err := webauthn.Decode(c.Challenge)
	require.NoError(t, err)
	stdPadded := base64.StdEncoding.EncodeToString(raw)

	resolved, err := svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, stdPadded, "")
	require.NoError(t, err)
	require.Equal(t, c.ID, resolved.ID)

	// the variant also works as the expected-challenge assertion
	resolved, err = svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, c.Challenge, stdPadded)
	require.NoError(t, err)
	require.Equal(t, c.ID, resolved.ID)
}

func TestResolveNoActiveChallenge(t *testing.T) {
	svc, repo := newChallengeFixture()
	userID := int64(1)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, "anything", "")
	require.ErrorIs(t, err, utils.ErrNoActiveChallenge)

	c, err := svc.Issue(ctx, &userID, models.ChallengeTypeAuthentication, nil)
	require.NoError(t, err)
	repo.Expire(c.ID)

	_, err = svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, c.Challenge, "")
	require.ErrorIs(t, err, utils.ErrNoActiveChallenge)
}

func TestResolveScopedByType(t *testing.T) {
	svc, _ := newChallengeFixture()
	userID := int64(1)
	ctx := context.Background()

	c, err := svc.Issue(ctx, &userID, models.ChallengeTypeRegistration, nil)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, c.Challenge, "")
	require.ErrorIs(t, err, utils.ErrNoActiveChallenge)
}

func TestConsumeExactlyOnce(t *testing.T) {
	svc, _ := newChallengeFixture()
	userID := int64(1)
	ctx := context.Background()

	c, err := svc.Issue(ctx, &userID, models.ChallengeTypeAuthentication, nil)
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Consume(ctx, c.ID)
			require.NoError(t, err)
			if ok {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	require.Len(t, wins, 1, "exactly one consumer may win")

	// a consumed challenge no longer resolves
	_, err = svc.Resolve(ctx, userID, models.ChallengeTypeAuthentication, c.Challenge, "")
	require.ErrorIs(t, err, utils.ErrNoActiveChallenge)
}
