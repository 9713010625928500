package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgconn"

	"github.com/trimooo/SecurePasskey/internal/repositories"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

const cleanupRetryDelay = 3 * time.Second

// ChallengeCleanupService sweeps expired challenges on a short interval.
// The sweep is best-effort; the repositories never hand out expired rows
// even between sweeps.
type ChallengeCleanupService interface {
	Sweep(ctx context.Context) error
}

type challengeCleanupService struct {
	challengeRepo repositories.ChallengeRepository
	running       atomic.Bool
}

func NewChallengeCleanupService(challengeRepo repositories.ChallengeRepository) ChallengeCleanupService {
	return &challengeCleanupService{challengeRepo: challengeRepo}
}

// Sweep deletes expired challenges. Overlapping ticks are skipped.
func (s *challengeCleanupService) Sweep(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		utils.Logger.Debug("challenge sweep still running, skipping tick")
		return nil
	}
	defer s.running.Store(false)

	var removed int64
	op := func(ctx context.Context) error {
		var err error
		removed, err = s.challengeRepo.DeleteExpired(ctx)
		return err
	}
	if err := runWithRetry(ctx, op, "challenge sweep"); err != nil {
		utils.Logger.WithError(err).Error("Failed to sweep expired challenges")
		return err
	}
	if removed > 0 {
		utils.Logger.Infof("challenge sweep removed %d expired challenges", removed)
	}
	return nil
}

// runWithRetry executes op(ctx) and, on a transient network error (EOF,
// pgconn safe-to-retry, closed connection), waits a moment then retries
// once.
func runWithRetry(ctx context.Context, op func(context.Context) error, name string) error {
	if err := op(ctx); err != nil {
		if errors.Is(err, io.EOF) || pgconn.SafeToRetry(err) ||
			strings.Contains(err.Error(), "connection was closed") {
			utils.Logger.WithError(err).Warnf("%s hit transient DB error; retrying once", name)
			time.Sleep(cleanupRetryDelay)
			return op(ctx)
		}
		return err
	}
	return nil
}
