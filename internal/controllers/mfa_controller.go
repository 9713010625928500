package controllers

import (
	"net/http"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/dtos"
	"github.com/trimooo/SecurePasskey/internal/middleware"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/services"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

// MFAController handles factor enrollment, the login-time MFA step and
// recovery codes.
type MFAController struct {
	mfaService services.MFAService
	jwtService services.JWTService
	cfg        *config.Config
}

func NewMFAController(
	mfaService services.MFAService,
	jwtService services.JWTService,
	cfg *config.Config,
) *MFAController {
	return &MFAController{
		mfaService: mfaService,
		jwtService: jwtService,
		cfg:        cfg,
	}
}

func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeRequiresAuth, "Authentication required", nil,
		)
		return 0, false
	}
	return userID, true
}

// ---------------------------------------------------------------------
// Enrollment (authenticated)
// ---------------------------------------------------------------------

func (c *MFAController) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	enrollment, recovery, err := c.mfaService.SetupTOTP(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.SetupTOTPResponse{
		Secret:        enrollment.Secret,
		OtpauthURL:    enrollment.OtpauthURL,
		QRCode:        enrollment.QRCode,
		RecoveryCodes: recovery,
	})
}

func (c *MFAController) RequestCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.RequestMFACodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	recovery, err := c.mfaService.RequestCode(r.Context(), userID, models.MFAType(req.Type))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.RequestCodeResponse{
		Message:       "Code sent",
		RecoveryCodes: recovery,
	})
}

func (c *MFAController) Enable(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.EnableMFARequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	codes, err := c.mfaService.Enable(r.Context(), userID, models.MFAType(req.Type), req.Code)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.EnableMFAResponse{
		Message:       "MFA enabled",
		RecoveryCodes: codes,
	})
}

func (c *MFAController) Disable(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.DisableMFARequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.mfaService.Disable(r.Context(), userID, req.Code); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "MFA disabled"})
}

func (c *MFAController) RotateRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	codes, err := c.mfaService.RotateRecoveryCodes(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.RotateRecoveryCodesResponse{RecoveryCodes: codes})
}

// ---------------------------------------------------------------------
// Login-time step (unauthenticated)
// ---------------------------------------------------------------------

func (c *MFAController) RequestLoginCode(w http.ResponseWriter, r *http.Request) {
	var req dtos.RequestLoginCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.mfaService.RequestLoginCode(r.Context(), req.Username); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Code sent"})
}

func (c *MFAController) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req dtos.VerifyMFARequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := c.mfaService.VerifyLogin(r.Context(), req.Username, req.Code, req.Recovery)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := issueSession(w, r, c.cfg, c.jwtService, user.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.LoginResponse{Message: "Login successful"})
}
