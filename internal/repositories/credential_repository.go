package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/trimooo/SecurePasskey/internal/models"
)

type CredentialRepository interface {
	Create(ctx context.Context, c *models.Credential) error
	GetByCredentialID(ctx context.Context, credentialID string) (*models.Credential, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Credential, error)
	UpdateSignCount(ctx context.Context, id int64, signCount uint32) error
	DeleteByUserID(ctx context.Context, userID int64) (int64, error)
}

type credentialRepo struct {
	db DB
}

func NewCredentialRepository(db DB) CredentialRepository {
	return &credentialRepo{db: db}
}

func (r *credentialRepo) Create(ctx context.Context, c *models.Credential) error {
	row := r.db.QueryRow(ctx, `
        INSERT INTO credentials (user_id, credential_id, public_key, sign_count, transports)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at
    `, c.UserID, c.CredentialID, c.PublicKey, c.SignCount, c.Transports)
	return row.Scan(&c.ID, &c.CreatedAt)
}

func (r *credentialRepo) GetByCredentialID(ctx context.Context, credentialID string) (*models.Credential, error) {
	row := r.db.QueryRow(ctx, baseSelectCredential()+" WHERE credential_id=$1", credentialID)
	return scanCredential(row)
}

func (r *credentialRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Credential, error) {
	rows, err := r.db.Query(ctx, baseSelectCredential()+" WHERE user_id=$1 ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*models.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (r *credentialRepo) UpdateSignCount(ctx context.Context, id int64, signCount uint32) error {
	_, err := r.db.Exec(ctx, `UPDATE credentials SET sign_count=$1 WHERE id=$2`, signCount, id)
	return err
}

func (r *credentialRepo) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func baseSelectCredential() string {
	return `
    SELECT id, user_id, credential_id, public_key, sign_count, transports, created_at
    FROM credentials`
}

func scanCredential(row pgx.Row) (*models.Credential, error) {
	var c models.Credential
	err := row.Scan(&c.ID, &c.UserID, &c.CredentialID, &c.PublicKey, &c.SignCount, &c.Transports, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
