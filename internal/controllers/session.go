package controllers

import (
	"net/http"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/services"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

// issueSession mints an access/refresh token pair for the user and
// writes the hardened auth cookies.
func issueSession(
	w http.ResponseWriter,
	r *http.Request,
	cfg *config.Config,
	jwtService services.JWTService,
	userID int64,
) error {
	ip := clientIP(r)

	access, err := jwtService.GenerateAccessToken(r.Context(), userID, ip)
	if err != nil {
		return err
	}
	refresh, err := jwtService.GenerateRefreshToken(r.Context(), userID, ip)
	if err != nil {
		return err
	}

	utils.SetAuthCookies(
		w,
		access,
		refresh.Token,
		cfg.TokenExpiry,
		cfg.RefreshTokenExpiry,
		refreshCookiePath,
		cfg.LDFlag_CORSHighSecurity,
	)
	return nil
}
