package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/trimooo/SecurePasskey/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

type userRepo struct {
	db DB
}

func NewUserRepository(db DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	row := r.db.QueryRow(ctx, `
        INSERT INTO users (
            username, email, display_name, password_hash, registered,
            mfa_enabled, mfa_type, mfa_secret, phone
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at
    `,
		u.Username, u.Email, u.DisplayName, u.PasswordHash, u.Registered,
		u.MFAEnabled, u.MFAType, u.MFASecret, u.Phone,
	)
	return row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRow(ctx, baseSelectUser()+" WHERE id=$1", id)
	return scanUser(row)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRow(ctx, baseSelectUser()+" WHERE email=$1", email)
	return scanUser(row)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRow(ctx, baseSelectUser()+" WHERE username=$1", username)
	return scanUser(row)
}

func (r *userRepo) Update(ctx context.Context, u *models.User) error {
	_, err := r.db.Exec(ctx, `
        UPDATE users SET
            username=$1, email=$2, display_name=$3, password_hash=$4,
            registered=$5, mfa_enabled=$6, mfa_type=$7, mfa_secret=$8,
            phone=$9, verification_code=$10, verification_expiry=$11,
            last_login=$12, updated_at=NOW()
        WHERE id=$13
    `,
		u.Username, u.Email, u.DisplayName, u.PasswordHash,
		u.Registered, u.MFAEnabled, u.MFAType, u.MFASecret,
		u.Phone, u.VerificationCode, u.VerificationExpiry,
		u.LastLogin, u.ID,
	)
	return err
}

func baseSelectUser() string {
	return `
    SELECT
        id, username, email, display_name, password_hash, registered,
        mfa_enabled, mfa_type, mfa_secret, phone,
        verification_code, verification_expiry,
        last_login, created_at, updated_at
    FROM users`
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var mfaType *string
	var verificationExpiry, lastLogin *time.Time

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Registered,
		&u.MFAEnabled, &mfaType, &u.MFASecret, &u.Phone,
		&u.VerificationCode, &verificationExpiry,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if mfaType != nil {
		t := models.MFAType(*mfaType)
		u.MFAType = &t
	}
	u.VerificationExpiry = verificationExpiry
	u.LastLogin = lastLogin

	return &u, nil
}
