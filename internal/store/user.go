package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jobdesk/apiserver/types"
)

// UserRepository handles persistence for user principals.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, image, resume, email_verified, otp_code, otp_expires, created_at, updated_at`

func scanUser(row *sql.Row) (types.Principal, error) {
	var p types.Principal
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.PasswordHash,
		&p.Image,
		&p.Resume,
		&p.EmailVerified,
		&p.OTP,
		&p.OTPExpires,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Principal{}, ErrNotFound
		}
		return types.Principal{}, err
	}
	p.Kind = types.KindUser
	return p, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.Principal, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.Principal, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, p types.Principal) (types.Principal, error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Kind = types.KindUser

	const query = `
		INSERT INTO users (name, email, password_hash, image, resume, email_verified, otp_code, otp_expires, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		p.Name,
		p.Email,
		p.PasswordHash,
		p.Image,
		p.Resume,
		p.EmailVerified,
		p.OTP,
		p.OTPExpires,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Principal{}, ErrConflict
		}
		return types.Principal{}, err
	}
	return p, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int, name, email, image string) error {
	const query = `
		UPDATE users
		SET name = $1, email = $2, image = $3, updated_at = $4
		WHERE id = $5`
	return execOne(ctx, r.db, query, name, email, image, time.Now(), id)
}

func (r *UserRepository) SetOTP(ctx context.Context, id int, otp string, expires time.Time) error {
	const query = `UPDATE users SET otp_code = $1, otp_expires = $2, updated_at = $3 WHERE id = $4`
	return execOne(ctx, r.db, query, otp, expires, time.Now(), id)
}

func (r *UserRepository) MarkVerified(ctx context.Context, id int) error {
	const query = `
		UPDATE users
		SET email_verified = TRUE, otp_code = '', otp_expires = 'epoch', updated_at = $1
		WHERE id = $2`
	return execOne(ctx, r.db, query, time.Now(), id)
}

func (r *UserRepository) SetPassword(ctx context.Context, id int, hash string) error {
	const query = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	return execOne(ctx, r.db, query, hash, time.Now(), id)
}

func (r *UserRepository) SetResume(ctx context.Context, id int, resume string) error {
	const query = `UPDATE users SET resume = $1, updated_at = $2 WHERE id = $3`
	return execOne(ctx, r.db, query, resume, time.Now(), id)
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string, excludeID int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`
	var taken bool
	if err := r.db.QueryRowContext(ctx, query, email, excludeID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

func execOne(ctx context.Context, db *sql.DB, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
