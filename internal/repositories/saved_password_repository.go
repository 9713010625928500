package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/trimooo/SecurePasskey/internal/models"
)

type SavedPasswordRepository interface {
	Create(ctx context.Context, p *models.SavedPassword) error
	GetByID(ctx context.Context, id, userID int64) (*models.SavedPassword, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.SavedPassword, error)
	Update(ctx context.Context, p *models.SavedPassword) error
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

type savedPasswordRepo struct {
	db DB
}

func NewSavedPasswordRepository(db DB) SavedPasswordRepository {
	return &savedPasswordRepo{db: db}
}

func (r *savedPasswordRepo) Create(ctx context.Context, p *models.SavedPassword) error {
	row := r.db.QueryRow(ctx, `
        INSERT INTO saved_passwords (user_id, website, url, username, password, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at
    `, p.UserID, p.Website, p.URL, p.Username, p.Password, p.Notes)
	return row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *savedPasswordRepo) GetByID(ctx context.Context, id, userID int64) (*models.SavedPassword, error) {
	row := r.db.QueryRow(ctx, baseSelectSavedPassword()+" WHERE id=$1 AND user_id=$2", id, userID)
	return scanSavedPassword(row)
}

func (r *savedPasswordRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SavedPassword, error) {
	rows, err := r.db.Query(ctx, baseSelectSavedPassword()+" WHERE user_id=$1 ORDER BY website ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passwords []*models.SavedPassword
	for rows.Next() {
		p, err := scanSavedPassword(rows)
		if err != nil {
			return nil, err
		}
		passwords = append(passwords, p)
	}
	return passwords, rows.Err()
}

func (r *savedPasswordRepo) Update(ctx context.Context, p *models.SavedPassword) error {
	_, err := r.db.Exec(ctx, `
        UPDATE saved_passwords SET
            website=$1, url=$2, username=$3, password=$4, notes=$5, updated_at=NOW()
        WHERE id=$6 AND user_id=$7
    `, p.Website, p.URL, p.Username, p.Password, p.Notes, p.ID, p.UserID)
	return err
}

func (r *savedPasswordRepo) Delete(ctx context.Context, id, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM saved_passwords WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func baseSelectSavedPassword() string {
	return `
    SELECT id, user_id, website, url, username, password, notes, created_at, updated_at
    FROM saved_passwords`
}

func scanSavedPassword(row pgx.Row) (*models.SavedPassword, error) {
	var p models.SavedPassword
	err := row.Scan(&p.ID, &p.UserID, &p.Website, &p.URL, &p.Username, &p.Password, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
