package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/trimooo/SecurePasskey/internal/models"
)

type RecoveryCodeRepository interface {
	CreateBatch(ctx context.Context, userID int64, codes []string) error
	// Consume atomically spends an unused code. It returns true only for
	// the caller whose UPDATE actually flipped the row.
	Consume(ctx context.Context, userID int64, code string) (bool, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.RecoveryCode, error)
	DeleteAllByUserID(ctx context.Context, userID int64) (int64, error)
}

type recoveryCodeRepo struct {
	db DB
}

func NewRecoveryCodeRepository(db DB) RecoveryCodeRepository {
	return &recoveryCodeRepo{db: db}
}

func (r *recoveryCodeRepo) CreateBatch(ctx context.Context, userID int64, codes []string) error {
	for _, code := range codes {
		_, err := r.db.Exec(ctx,
			`INSERT INTO recovery_codes (user_id, code) VALUES ($1,$2)`,
			userID, code,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *recoveryCodeRepo) Consume(ctx context.Context, userID int64, code string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE recovery_codes SET used=TRUE, used_at=NOW()
         WHERE user_id=$1 AND code=$2 AND used=FALSE`,
		userID, code,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *recoveryCodeRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.RecoveryCode, error) {
	rows, err := r.db.Query(ctx,
		baseSelectRecoveryCode()+" WHERE user_id=$1 ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []*models.RecoveryCode
	for rows.Next() {
		c, err := scanRecoveryCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *recoveryCodeRepo) DeleteAllByUserID(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM recovery_codes WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func baseSelectRecoveryCode() string {
	return `
    SELECT id, user_id, code, used, created_at, used_at
    FROM recovery_codes`
}

func scanRecoveryCode(row pgx.Row) (*models.RecoveryCode, error) {
	var c models.RecoveryCode
	err := row.Scan(&c.ID, &c.UserID, &c.Code, &c.Used, &c.CreatedAt, &c.UsedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
