package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/testutil"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

func newJWTFixture(t *testing.T, tokenExpiry time.Duration) (JWTService, *testutil.FakeTokenRepo) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	cfg := &config.Config{
		TokenExpiry:        tokenExpiry,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		RSAPrivateKey:      key,
		RSAPublicKey:       &key.PublicKey,
	}
	tokens := testutil.NewFakeTokenRepo()
	return NewJWTService(cfg, tokens), tokens
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, _ := newJWTFixture(t, 10*time.Minute)
	ctx := context.Background()

	token, err := svc.GenerateAccessToken(ctx, 42, "203.0.113.7")
	require.NoError(t, err)

	userID, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc, _ := newJWTFixture(t, 10*time.Minute)

	_, err := svc.ValidateAccessToken("not-a-jwt")
	require.ErrorIs(t, err, utils.ErrRequiresAuthentication)
}

func TestValidateAccessTokenRejectsExpired(t *testing.T) {
	svc, _ := newJWTFixture(t, -time.Minute)

	token, err := svc.GenerateAccessToken(context.Background(), 42, "")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, utils.ErrRequiresAuthentication)
}

func TestValidateAccessTokenRejectsForeignKey(t *testing.T) {
	issuing, _ := newJWTFixture(t, 10*time.Minute)
	verifying, _ := newJWTFixture(t, 10*time.Minute)

	token, err := issuing.GenerateAccessToken(context.Background(), 42, "")
	require.NoError(t, err)

	_, err = verifying.ValidateAccessToken(token)
	require.ErrorIs(t, err, utils.ErrRequiresAuthentication)
}

func TestValidateAccessTokenRejectsHMAC(t *testing.T) {
	svc, _ := newJWTFixture(t, 10*time.Minute)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": TokenIssuer,
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("guessable"))
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(forged)
	require.ErrorIs(t, err, utils.ErrRequiresAuthentication)
}

func TestRefreshTokenRotation(t *testing.T) {
	svc, tokens := newJWTFixture(t, 10*time.Minute)
	ctx := context.Background()

	rt, err := svc.GenerateRefreshToken(ctx, 42, "203.0.113.7")
	require.NoError(t, err)
	require.Len(t, rt.Token, 64)

	access, rotated, err := svc.RefreshToken(ctx, rt.Token, "203.0.113.7")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEqual(t, rt.Token, rotated)

	userID, err := svc.ValidateAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)

	// the old token is revoked; replaying it must fail
	_, _, err = svc.RefreshToken(ctx, rt.Token, "203.0.113.7")
	require.ErrorIs(t, err, utils.ErrRequiresAuthentication)

	// the rotated token still works
	_, _, err = svc.RefreshToken(ctx, rotated, "203.0.113.7")
	require.NoError(t, err)

	stored, err := tokens.GetByToken(ctx, rt.Token)
	require.NoError(t, err)
	require.True(t, stored.Revoked)
}

func TestRefreshTokenUnknown(t *testing.T) {
	svc, _ := newJWTFixture(t, 10*time.Minute)

	_, _, err := svc.RefreshToken(context.Background(), "never-issued", "")
	require.ErrorIs(t, err, utils.ErrRequiresAuthentication)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _ := newJWTFixture(t, 10*time.Minute)
	ctx := context.Background()

	rt, err := svc.GenerateRefreshToken(ctx, 42, "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, rt.Token))

	_, _, err = svc.RefreshToken(ctx, rt.Token, "")
	require.ErrorIs(t, err, utils.ErrRequiresAuthentication)

	// logging out an unknown token is a no-op
	require.NoError(t, svc.Logout(ctx, "never-issued"))
}
