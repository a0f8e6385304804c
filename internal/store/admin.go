package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jobdesk/apiserver/types"
)

// AdminRepository handles persistence for admin principals. Admins carry
// no OTP state; they are implicitly email-verified and gated by the
// active flag instead.
type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

const adminColumns = `id, name, email, password_hash, image, role, is_active, created_at, updated_at`

func scanAdmin(row *sql.Row) (types.Principal, error) {
	var p types.Principal
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.PasswordHash,
		&p.Image,
		&p.Role,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Principal{}, ErrNotFound
		}
		return types.Principal{}, err
	}
	p.Kind = types.KindAdmin
	p.EmailVerified = true
	return p, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id int) (types.Principal, error) {
	const query = `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return scanAdmin(r.db.QueryRowContext(ctx, query, id))
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (types.Principal, error) {
	const query = `SELECT ` + adminColumns + ` FROM admins WHERE email = $1`
	return scanAdmin(r.db.QueryRowContext(ctx, query, email))
}

func (r *AdminRepository) Create(ctx context.Context, p types.Principal) (types.Principal, error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Kind = types.KindAdmin
	p.EmailVerified = true

	const query = `
		INSERT INTO admins (name, email, password_hash, image, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		p.Name,
		p.Email,
		p.PasswordHash,
		p.Image,
		p.Role,
		p.Active,
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

func (r *AdminRepository) UpdateProfile(ctx context.Context, id int, name, email, image string) error {
	const query = `
		UPDATE admins
		SET name = $1, email = $2, image = $3, updated_at = $4
		WHERE id = $5`
	return execOne(ctx, r.db, query, name, email, image, time.Now(), id)
}

// SetOTP is a no-op for admins; the flow never issues them an OTP.
func (r *AdminRepository) SetOTP(ctx context.Context, id int, otp string, expires time.Time) error {
	return nil
}

// MarkVerified is a no-op for admins; they are verified at creation.
func (r *AdminRepository) MarkVerified(ctx context.Context, id int) error {
	return nil
}

func (r *AdminRepository) SetPassword(ctx context.Context, id int, hash string) error {
	const query = `UPDATE admins SET password_hash = $1, updated_at = $2 WHERE id = $3`
	return execOne(ctx, r.db, query, hash, time.Now(), id)
}

func (r *AdminRepository) EmailTaken(ctx context.Context, email string, excludeID int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM admins WHERE email = $1 AND id <> $2)`
	var taken bool
	if err := r.db.QueryRowContext(ctx, query, email, excludeID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}
