package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

const TokenIssuer = "SecurePasskey"

// ---------------------------------------------------------------------
// JWTService interface
// ---------------------------------------------------------------------

type JWTService interface {
	GenerateAccessToken(ctx context.Context, userID int64, ipAddress string) (string, error)
	GenerateRefreshToken(ctx context.Context, userID int64, ipAddress string) (*models.RefreshToken, error)
	ValidateAccessToken(tokenString string) (int64, error)
	RefreshToken(ctx context.Context, refreshTokenString, ipAddress string) (string, string, error)
	Logout(ctx context.Context, refreshTokenString string) error
}

type jwtService struct {
	cfg        *config.Config
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	tokenRepo  repositories.TokenRepository
}

func NewJWTService(cfg *config.Config, tokenRepo repositories.TokenRepository) JWTService {
	return &jwtService{
		cfg:        cfg,
		privateKey: cfg.RSAPrivateKey,
		publicKey:  cfg.RSAPublicKey,
		tokenRepo:  tokenRepo,
	}
}

// ---------------------------------------------------------------------
// GenerateAccessToken
// ---------------------------------------------------------------------

func (j *jwtService) GenerateAccessToken(ctx context.Context, userID int64, ipAddress string) (string, error) {
	claims := jwt.MapClaims{
		"iss": TokenIssuer,
		"sub": strconv.FormatInt(userID, 10),
		"exp": time.Now().Add(j.cfg.TokenExpiry).Unix(),
		"iat": time.Now().Unix(),
		"jti": uuid.NewString(),
	}
	if ipAddress != "" {
		claims["ip"] = ipAddress
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(j.privateKey)
}

// ---------------------------------------------------------------------
// GenerateRefreshToken
// ---------------------------------------------------------------------

func (j *jwtService) GenerateRefreshToken(ctx context.Context, userID int64, ipAddress string) (*models.RefreshToken, error) {
	rt := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     generateSecureToken(64),
		IPAddress: ipAddress,
		ExpiresAt: time.Now().Add(j.cfg.RefreshTokenExpiry),
	}
	if err := j.tokenRepo.Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// ---------------------------------------------------------------------
// ValidateAccessToken
// ---------------------------------------------------------------------

func (j *jwtService) ValidateAccessToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.publicKey, nil
	}, jwt.WithIssuer(TokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, utils.ErrRequiresAuthentication
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, utils.ErrRequiresAuthentication
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, utils.ErrRequiresAuthentication
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, utils.ErrRequiresAuthentication
	}
	return userID, nil
}

// ---------------------------------------------------------------------
// RefreshToken – rotates the refresh token and issues a new access token
// ---------------------------------------------------------------------

func (j *jwtService) RefreshToken(ctx context.Context, refreshTokenString, ipAddress string) (string, string, error) {
	oldToken, err := j.tokenRepo.GetByToken(ctx, refreshTokenString)
	if err != nil || oldToken == nil || oldToken.Revoked {
		utils.Logger.WithError(err).Error("invalid or missing refresh token in jwtService.RefreshToken")
		return "", "", utils.ErrRequiresAuthentication
	}

	if oldToken.IsExpired() {
		utils.Logger.Error("refresh token expired in jwtService.RefreshToken")
		return "", "", utils.ErrRequiresAuthentication
	}

	if err := j.tokenRepo.Revoke(ctx, oldToken.ID); err != nil {
		utils.Logger.WithError(err).Error("failed to revoke old refresh token in jwtService.RefreshToken")
		return "", "", errors.New("failed to rotate refresh token")
	}

	newAccess, err := j.GenerateAccessToken(ctx, oldToken.UserID, ipAddress)
	if err != nil {
		return "", "", err
	}
	newRT, err := j.GenerateRefreshToken(ctx, oldToken.UserID, ipAddress)
	if err != nil {
		return "", "", err
	}
	return newAccess, newRT.Token, nil
}

// ---------------------------------------------------------------------
// Logout
// ---------------------------------------------------------------------

func (j *jwtService) Logout(ctx context.Context, refreshTokenString string) error {
	oldToken, err := j.tokenRepo.GetByToken(ctx, refreshTokenString)
	if err != nil {
		utils.Logger.WithError(err).Error("logout fetch refresh token error in jwtService")
		return errors.New("logout server error")
	}
	if oldToken == nil {
		return nil
	}
	return j.tokenRepo.Revoke(ctx, oldToken.ID)
}
