package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"strconv"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/google/uuid"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/utils"
	"github.com/trimooo/SecurePasskey/internal/webauthn"
)

const qrImageSize = 256

// QRSession is what the initiating (unauthenticated) device receives.
type QRSession struct {
	ChallengeID uuid.UUID `json:"challengeId"`
	QRCode      string    `json:"qrCode"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// QRStatus reports whether an authenticated device has claimed the
// session yet.
type QRStatus struct {
	Claimed   bool      `json:"claimed"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ---------------------------------------------------------------------
// QRLoginService interface
//
// Cross-device flow: an unauthenticated device starts a session and
// renders the QR code; an already-authenticated device scans it and
// claims the challenge; the first device polls status and completes the
// login once claimed.
// ---------------------------------------------------------------------

type QRLoginService interface {
	// Start opens a session. An empty email starts an anonymous session
	// that a scanning device must claim; a known email binds the session
	// to that account up front.
	Start(ctx context.Context, email string) (*QRSession, error)
	Status(ctx context.Context, challengeID uuid.UUID) (*QRStatus, error)
	Claim(ctx context.Context, challengeID uuid.UUID, userID int64) error
	// Complete consumes the claimed challenge and returns the user to
	// log in. An unclaimed session cannot complete.
	Complete(ctx context.Context, challengeID uuid.UUID) (*models.User, error)
}

type qrLoginService struct {
	cfg           *config.Config
	userRepo      repositories.UserRepository
	challengeRepo repositories.ChallengeRepository
	challengeSvc  ChallengeService
}

func NewQRLoginService(
	cfg *config.Config,
	userRepo repositories.UserRepository,
	challengeRepo repositories.ChallengeRepository,
	challengeSvc ChallengeService,
) QRLoginService {
	return &qrLoginService{
		cfg:           cfg,
		userRepo:      userRepo,
		challengeRepo: challengeRepo,
		challengeSvc:  challengeSvc,
	}
}

// ---------------------------------------------------------------------
// Start
// ---------------------------------------------------------------------

func (s *qrLoginService) Start(ctx context.Context, email string) (*QRSession, error) {
	nonce := webauthn.GenerateChallenge()

	var boundUserID *int64
	suffix := "anonymous"
	if email != "" {
		user, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, utils.ErrUserNotFound
		}
		boundUserID = &user.ID
		suffix = strconv.FormatInt(user.ID, 10)
	}
	payload := fmt.Sprintf("%s:%s", nonce, suffix)

	challenge, err := s.challengeSvc.Issue(ctx, boundUserID, models.ChallengeTypeQRCode, &payload)
	if err != nil {
		return nil, err
	}

	img, err := renderQRCode(payload)
	if err != nil {
		return nil, err
	}
	return &QRSession{
		ChallengeID: challenge.ID,
		QRCode:      img,
		ExpiresAt:   challenge.ExpiresAt,
	}, nil
}

// ---------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------

func (s *qrLoginService) Status(ctx context.Context, challengeID uuid.UUID) (*QRStatus, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil || challenge.Type != models.ChallengeTypeQRCode || challenge.Expired(time.Now()) {
		return nil, utils.ErrNoActiveChallenge
	}
	return &QRStatus{
		Claimed:   challenge.UserID != nil,
		ExpiresAt: challenge.ExpiresAt,
	}, nil
}

// ---------------------------------------------------------------------
// Claim
// ---------------------------------------------------------------------

func (s *qrLoginService) Claim(ctx context.Context, challengeID uuid.UUID, userID int64) error {
	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge == nil || challenge.Type != models.ChallengeTypeQRCode || challenge.Expired(time.Now()) {
		return utils.ErrNoActiveChallenge
	}
	if challenge.UserID != nil {
		return utils.ErrChallengeMismatch
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return utils.ErrUserNotFound
	}

	if err := s.challengeRepo.AssignUser(ctx, challengeID, userID); err != nil {
		return err
	}
	utils.Logger.Infof("qr challenge %s claimed by user %d", challengeID, userID)
	return nil
}

// ---------------------------------------------------------------------
// Complete
// ---------------------------------------------------------------------

func (s *qrLoginService) Complete(ctx context.Context, challengeID uuid.UUID) (*models.User, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil || challenge.Type != models.ChallengeTypeQRCode || challenge.Expired(time.Now()) {
		return nil, utils.ErrNoActiveChallenge
	}
	if challenge.UserID == nil {
		return nil, utils.ErrRequiresAuthentication
	}

	consumed, err := s.challengeSvc.Consume(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, utils.ErrNoActiveChallenge
	}

	user, err := s.userRepo.GetByID(ctx, *challenge.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// renderQRCode encodes the payload as a PNG data URL.
func renderQRCode(payload string) (string, error) {
	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return "", err
	}
	code, err = barcode.Scale(code, qrImageSize, qrImageSize)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
