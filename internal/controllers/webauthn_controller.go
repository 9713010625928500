package controllers

import (
	"net/http"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/dtos"
	"github.com/trimooo/SecurePasskey/internal/services"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

// WebAuthnController handles passkey registration and login ceremonies.
type WebAuthnController struct {
	webauthnService services.WebAuthnService
	jwtService      services.JWTService
	cfg             *config.Config
}

func NewWebAuthnController(
	webauthnService services.WebAuthnService,
	jwtService services.JWTService,
	cfg *config.Config,
) *WebAuthnController {
	return &WebAuthnController{
		webauthnService: webauthnService,
		jwtService:      jwtService,
		cfg:             cfg,
	}
}

// ---------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------

func (c *WebAuthnController) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	var req dtos.BeginRegistrationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	options, err := c.webauthnService.BeginRegistration(r.Context(), req.Username, req.DisplayName)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, options)
}

func (c *WebAuthnController) FinishRegistration(w http.ResponseWriter, r *http.Request) {
	var req dtos.FinishRegistrationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := c.webauthnService.FinishRegistration(r.Context(), req.Username, req.ExpectedChallenge, &req.Credential)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := issueSession(w, r, c.cfg, c.jwtService, user.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.FinishRegistrationResponse{
		Message:  "Registration complete",
		Username: user.Username,
	})
}

// ---------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------

func (c *WebAuthnController) BeginLogin(w http.ResponseWriter, r *http.Request) {
	var req dtos.BeginLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	options, err := c.webauthnService.BeginLogin(r.Context(), req.Username)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, options)
}

func (c *WebAuthnController) FinishLogin(w http.ResponseWriter, r *http.Request) {
	var req dtos.FinishLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, requiresMFA, err := c.webauthnService.FinishLogin(r.Context(), req.Username, req.ExpectedChallenge, &req.Credential)
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
