package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/testutil"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

type qrFixture struct {
	svc        QRLoginService
	users      *testutil.FakeUserRepo
	challenges *testutil.FakeChallengeRepo
}

func newQRFixture() *qrFixture {
	cfg := &config.Config{ChallengeTTL: 5 * time.Minute}
	users := testutil.NewFakeUserRepo()
	challenges := testutil.NewFakeChallengeRepo()
	challengeSvc := NewChallengeService(cfg, challenges)
	return &qrFixture{
		svc:        NewQRLoginService(cfg, users, challenges, challengeSvc),
		users:      users,
		challenges: challenges,
	}
}

func (f *qrFixture) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Registered: true}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestQRStartIssuesAnonymousChallenge(t *testing.T) {
	f := newQRFixture()
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, session.ChallengeID)
	require.True(t, strings.HasPrefix(session.QRCode, "data:image/png;base64,"))
	require.True(t, session.ExpiresAt.After(time.Now()))

	stored, err := f.challenges.GetByID(ctx, session.ChallengeID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, models.ChallengeTypeQRCode, stored.Type)
	require.Nil(t, stored.UserID)
	require.NotNil(t, stored.QRPayload)
	require.True(t, strings.HasSuffix(*stored.QRPayload, ":anonymous"))
}

func TestQRStartBindsKnownEmail(t *testing.T) {
	f := newQRFixture()
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	session, err := f.svc.Start(ctx, "alice@example.com")
	require.NoError(t, err)

	stored, err := f.challenges.GetByID(ctx, session.ChallengeID)
	require.NoError(t, err)
	require.NotNil(t, stored.UserID)
	require.Equal(t, alice.ID, *stored.UserID)
	require.True(t, strings.HasSuffix(*stored.QRPayload, fmt.Sprintf(":%d", alice.ID)))

	// born bound, so it completes without a separate claim
	status, err := f.svc.Status(ctx, session.ChallengeID)
	require.NoError(t, err)
	require.True(t, status.Claimed)

	user, err := f.svc.Complete(ctx, session.ChallengeID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, user.ID)
}

func TestQRStartUnknownEmail(t *testing.T) {
	f := newQRFixture()
	_, err := f.svc.Start(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, utils.ErrUserNotFound)
}

func TestQRStatusReflectsClaim(t *testing.T) {
	f := newQRFixture()
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	session, err := f.svc.Start(ctx, "")
	require.NoError(t, err)

	status, err := f.svc.Status(ctx, session.ChallengeID)
	require.NoError(t, err)
	require.False(t, status.Claimed)

	require.NoError(t, f.svc.Claim(ctx, session.ChallengeID, alice.ID))

	status, err = f.svc.Status(ctx, session.ChallengeID)
	require.NoError(t, err)
	require.True(t, status.Claimed)
}

func TestQRStatusUnknownSession(t *testing.T) {
	f := newQRFixture()
	_, err := f.svc.Status(context.Background(), uuid.New())
	require.ErrorIs(t, err, utils.ErrNoActiveChallenge)
}

func TestQRClaimRejectsDoubleClaim(t *testing.T) {
	f := newQRFixture()
	ctx := context.Background()
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	session, err := f.svc.Start(ctx, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Claim(ctx, session.ChallengeID, alice.ID))
	require.ErrorIs(t, f.svc.Claim(ctx, session.ChallengeID, bob.ID), utils.ErrChallengeMismatch)

	// alice keeps the session
	user, err := f.svc.Complete(ctx, session.ChallengeID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, user.ID)
}

func TestQRClaimExpiredSession(t *testing.T) {
	f := newQRFixture()
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	session, err := f.svc.Start(ctx, "")
	require.NoError(t, err)
	f.challenges.Expire(session.ChallengeID)

	require.ErrorIs(t, f.svc.Claim(ctx, session.ChallengeID, alice.ID), utils.ErrNoActiveChallenge)
}

func TestQRCompleteRequiresClaim(t *testing.T) {
	f := newQRFixture()
	ctx := context.Background()

	session, err := f.svc.Start(ctx, "")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, session.ChallengeID)
	require.ErrorIs(t, err, utils.ErrRequiresAuthentication)
}

func TestQRCompleteExactlyOnce(t *testing.T) {
	f := newQRFixture()
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	session, err := f.svc.Start(ctx, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Claim(ctx, session.ChallengeID, alice.ID))

	user, err := f.svc.Complete(ctx, session.ChallengeID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, user.ID)
	require.NotNil(t, user.LastLogin)

	_, err = f.svc.Complete(ctx, session.ChallengeID)
	require.ErrorIs(t, err, utils.ErrNoActiveChallenge)
}
