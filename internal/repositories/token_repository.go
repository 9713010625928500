package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/trimooo/SecurePasskey/internal/models"
)

type TokenRepository interface {
	Create(ctx context.Context, t *models.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type tokenRepo struct {
	db DB
}

func NewTokenRepository(db DB) TokenRepository {
	return &tokenRepo{db: db}
}

func (r *tokenRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
        INSERT INTO refresh_tokens (id, user_id, token, ip_address, expires_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at
    `, t.ID, t.UserID, t.Token, t.IPAddress, t.ExpiresAt)
	return row.Scan(&t.CreatedAt)
}

func (r *tokenRepo) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, user_id, token, ip_address, expires_at, created_at, revoked
        FROM refresh_tokens WHERE token=$1
    `, token)

	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.IPAddress, &t.ExpiresAt, &t.CreatedAt, &t.Revoked)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked=TRUE WHERE id=$1`, id)
	return err
}

func (r *tokenRepo) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked=TRUE WHERE user_id=$1 AND revoked=FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *tokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= NOW() OR revoked=TRUE`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
