package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/trimooo/SecurePasskey/internal/models"
)

type ChallengeRepository interface {
	Create(ctx context.Context, c *models.Challenge) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error)
	// ListActiveByUser returns unexpired challenges for a user and type,
	// most recent first.
	ListActiveByUser(ctx context.Context, userID int64, challengeType models.ChallengeType) ([]*models.Challenge, error)
	AssignUser(ctx context.Context, id uuid.UUID, userID int64) error
	// Consume deletes the challenge if it is still active. It reports
	// whether this call was the one that removed it, so at most one
	// concurrent caller observes true.
	Consume(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type challengeRepo struct {
	db DB
}

func NewChallengeRepository(db DB) ChallengeRepository {
	return &challengeRepo{db: db}
}

func (r *challengeRepo) Create(ctx context.Context, c *models.Challenge) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
        INSERT INTO challenges (id, user_id, challenge, type, qr_payload, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at
    `, c.ID, c.UserID, c.Challenge, c.Type, c.QRPayload, c.ExpiresAt)
	return row.Scan(&c.CreatedAt)
}

func (r *challengeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Challenge, error) {
	row := r.db.QueryRow(ctx, baseSelectChallenge()+" WHERE id=$1", id)
	return scanChallenge(row)
}

func (r *challengeRepo) ListActiveByUser(ctx context.Context, userID int64, challengeType models.ChallengeType) ([]*models.Challenge, error) {
	rows, err := r.db.Query(ctx,
		baseSelectChallenge()+` WHERE user_id=$1 AND type=$2 AND expires_at > NOW() ORDER BY created_at DESC`,
		userID, challengeType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []*models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (r *challengeRepo) AssignUser(ctx context.Context, id uuid.UUID, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE challenges SET user_id=$1 WHERE id=$2`, userID, id)
	return err
}

func (r *challengeRepo) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM challenges WHERE id=$1 AND expires_at > NOW()`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *challengeRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM challenges WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func baseSelectChallenge() string {
	return `
    SELECT id, user_id, challenge, type, qr_payload, created_at, expires_at
    FROM challenges`
}

func scanChallenge(row pgx.Row) (*models.Challenge, error) {
	var c models.Challenge
	err := row.Scan(&c.ID, &c.UserID, &c.Challenge, &c.Type, &c.QRPayload, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
