package controllers

import (
	"net/http"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/dtos"
	"github.com/trimooo/SecurePasskey/internal/services"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

// PasswordAuthController handles the username/password fallback flow
// plus token refresh and logout.
type PasswordAuthController struct {
	passwordAuthService services.PasswordAuthService
	jwtService          services.JWTService
	cfg                 *config.Config
}

func NewPasswordAuthController(
	passwordAuthService services.PasswordAuthService,
	jwtService services.JWTService,
	cfg *config.Config,
) *PasswordAuthController {
	return &PasswordAuthController{
		passwordAuthService: passwordAuthService,
		jwtService:          jwtService,
		cfg:                 cfg,
	}
}

func (c *PasswordAuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req dtos.PasswordRegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := c.passwordAuthService.Register(r.Context(), req.Username, req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := issueSession(w, r, c.cfg, c.jwtService, user.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.MessageResponse{Message: "Account created"})
}

func (c *PasswordAuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dtos.PasswordLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, requiresMFA, err := c.passwordAuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if requiresMFA {
		mfaType := ""
		if user.MFAType != nil {
			mfaType = string(*user.MFAType)
		}
		utils.RespondWithJSON(w, http.StatusOK, dtos.LoginResponse{
			Message:     "MFA verification required",
			RequiresMFA: true,
			MFAType:     mfaType,
			UserID:      user.ID,
		})
		return
	}

	if err := issueSession(w, r, c.cfg, c.jwtService, user.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.LoginResponse{Message: "Login successful"})
}

func (c *PasswordAuthController) UpdatePhone(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.UpdatePhoneRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.passwordAuthService.UpdatePhone(r.Context(), userID, req.Phone); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Phone updated"})
}

// ---------------------------------------------------------------------
// Refresh / Logout
// ---------------------------------------------------------------------

func (c *PasswordAuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := refreshTokenFromRequest(w, r)
	if refreshToken == "" {
		return
	}

	access, refresh, err := c.jwtService.RefreshToken(r.Context(), refreshToken, clientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.SetAuthCookies(
		w, access, refresh,
		c.cfg.TokenExpiry, c.cfg.RefreshTokenExpiry,
		refreshCookiePath, c.cfg.LDFlag_CORSHighSecurity,
	)
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Tokens refreshed"})
}

func (c *PasswordAuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(utils.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		if err := c.jwtService.Logout(r.Context(), cookie.Value); err != nil {
			utils.Logger.WithError(err).Warn("logout failed to revoke refresh token")
		}
	}
	utils.ClearAuthCookies(w, refreshCookiePath, c.cfg.LDFlag_CORSHighSecurity)
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Logged out"})
}

// refreshTokenFromRequest reads the refresh token from its cookie,
// falling back to the request body for non-browser clients. Writes the
// error response itself when nothing is found.
func refreshTokenFromRequest(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(utils.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req dtos.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return ""
	}
	if req.RefreshToken == "" {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeRequiresAuth, "Missing refresh token", nil,
		)
		return ""
	}
	return req.RefreshToken
}
