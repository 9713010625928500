package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trimooo/SecurePasskey/internal/config"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/utils"
	"github.com/trimooo/SecurePasskey/internal/webauthn"
)

// ---------------------------------------------------------------------
// ChallengeService interface
// ---------------------------------------------------------------------

type ChallengeService interface {
	// Issue creates and stores a fresh challenge. userID is nil for
	// anonymous (QR) challenges.
	Issue(ctx context.Context, userID *int64, challengeType models.ChallengeType, qrPayload *string) (*models.Challenge, error)

	// Resolve picks the stored challenge a ceremony response should be
	// verified against. clientChallenge is the value echoed in
	// clientDataJSON; expectedChallenge, when non-empty, is the
	// client's assertion of which outstanding challenge it answered.
	Resolve(ctx context.Context, userID int64, challengeType models.ChallengeType, clientChallenge, expectedChallenge string) (*models.Challenge, error)

	// Consume removes the challenge so it can never verify twice. It
	// reports whether this caller won the removal.
	Consume(ctx context.Context, id uuid.UUID) (bool, error)
}

type challengeService struct {
	cfg           *config.Config
	challengeRepo repositories.ChallengeRepository
}

func NewChallengeService(cfg *config.Config, challengeRepo repositories.ChallengeRepository) ChallengeService {
	return &challengeService{
		cfg:           cfg,
		challengeRepo: challengeRepo,
	}
}

// ---------------------------------------------------------------------
// Issue
// ---------------------------------------------------------------------

func (s *challengeService) Issue(
	ctx context.Context,
	userID *int64,
	challengeType models.ChallengeType,
	qrPayload *string,
) (*models.Challenge, error) {
	c := &models.Challenge{
		ID:        uuid.New(),
		UserID:    userID,
		Challenge: webauthn.GenerateChallenge(),
		Type:      challengeType,
		QRPayload: qrPayload,
		ExpiresAt: time.Now().Add(s.cfg.ChallengeTTL),
	}
	if err := s.challengeRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ---------------------------------------------------------------------
// Resolve
//
// Multiple challenges can be outstanding for the same user (several
// tabs, retried ceremonies). The newest one is the default candidate;
// a client that knows which challenge it answered can pin it with
// expectedChallenge. The final comparison against the clientDataJSON
// value tolerates base64 padding/alphabet differences but nothing else.
// ---------------------------------------------------------------------

func (s *challengeService) Resolve(
	ctx context.Context,
	userID int64,
	challengeType models.ChallengeType,
	clientChallenge, expectedChallenge string,
) (*models.Challenge, error) {
	active, err := s.challengeRepo.ListActiveByUser(ctx, userID, challengeType)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, utils.ErrNoActiveChallenge
	}

	candidate := active[0]
	if expectedChallenge != "" {
		candidate = nil
		for _, c := range active {
			if challengesEqual(c.Challenge, expectedChallenge) {
				candidate = c
				break
			}
		}
		if candidate == nil {
			// The hint did not match anything we still hold; fall back to
			// the most recent challenge and let the client-data comparison
			// decide.
			utils.Logger.Warnf("expected challenge not found among %d active challenges for user %d, falling back to most recent", len(active), userID)
			candidate = active[0]
		}
	}

	if !challengesEqual(candidate.Challenge, clientChallenge) {
		utils.Logger.Warnf("client data challenge does not match stored challenge for user %d", userID)
		return nil, utils.ErrChallengeMismatch
	}

	return candidate, nil
}

// challengesEqual compares exactly first, then after normalizing both
// sides to unpadded base64url.
func challengesEqual(stored, presented string) bool {
	if stored == presented {
		return true
	}
	return webauthn.NormalizeChallenge(stored) == webauthn.NormalizeChallenge(presented)
}

// ---------------------------------------------------------------------
// Consume
// ---------------------------------------------------------------------

func (s *challengeService) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.challengeRepo.Consume(ctx, id)
}
