package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/dtos"
	"github.com/trimooo/SecurePasskey/internal/services"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

// QRController handles the cross-device QR login flow.
type QRController struct {
	qrLoginService services.QRLoginService
	jwtService     services.JWTService
	cfg            *config.Config
}

func NewQRController(
	qrLoginService services.QRLoginService,
	jwtService services.JWTService,
	cfg *config.Config,
) *QRController {
	return &QRController{
		qrLoginService: qrLoginService,
		jwtService:     jwtService,
		cfg:            cfg,
	}
}

func challengeIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["challengeId"]
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid challenge id", nil, err,
		)
		return uuid.Nil, false
	}
	return id, true
}

// Start creates a QR session for the initiating device. The body is
// optional; supplying an email pre-binds the session to that account.
func (c *QRController) Start(w http.ResponseWriter, r *http.Request) {
	var req dtos.StartQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := validate.Struct(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", nil, err,
		)
		return
	}

	session, err := c.qrLoginService.Start(r.Context(), req.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, session)
}

// Status is polled by the initiating device.
func (c *QRController) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := challengeIDFromPath(w, r)
	if !ok {
		return
	}

	status, err := c.qrLoginService.Status(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, status)
}

// Claim is called by an authenticated device that scanned the code.
func (c *QRController) Claim(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.ClaimQRRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	id, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid challenge id", nil, err,
		)
		return
	}

	if err := c.qrLoginService.Claim(r.Context(), id, userID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Challenge claimed"})
}

// Complete finishes the login on the initiating device once claimed.
func (c *QRController) Complete(w http.ResponseWriter, r *http.Request) {
	var req dtos.CompleteQRRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	id, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid challenge id", nil, err,
		)
		return
	}

	user, err := c.qrLoginService.Complete(r.Context(), id)
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
