package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jobdesk/apiserver/types"
)

// ApplicationRepository handles persistence for job applications. The
// company_id column is denormalized from the job at apply time so that
// company-side listings never need a three-way join for ownership.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts an application in the pending state. The UNIQUE
// (user_id, job_id) constraint is the authority on duplicates; a
// violation maps to ErrConflict.
func (r *ApplicationRepository) Create(ctx context.Context, userID, jobID, companyID int) (types.Application, error) {
	now := time.Now()
	app := types.Application{
		JobID:       jobID,
		UserID:      userID,
		CompanyID:   companyID,
		Status:      types.StatusPending,
		AppliedDate: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	const query = `
		INSERT INTO job_applications (job_id, user_id, company_id, status, applied_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		app.JobID,
		app.UserID,
		app.CompanyID,
		app.Status,
		app.AppliedDate,
		app.CreatedAt,
		app.UpdatedAt,
	).Scan(&app.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Application{}, ErrConflict
		}
		return types.Application{}, err
	}
	return app, nil
}

func (r *ApplicationRepository) Get(ctx context.Context, id int) (types.Application, error) {
	const query = `
		SELECT id, job_id, user_id, company_id, status, applied_date, created_at, updated_at
		FROM job_applications
		WHERE id = $1`
	var app types.Application
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&app.ID,
		&app.JobID,
		&app.UserID,
		&app.CompanyID,
		&app.Status,
		&app.AppliedDate,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Application{}, ErrNotFound
		}
		return types.Application{}, err
	}
	return app, nil
}

func (r *ApplicationRepository) Exists(ctx context.Context, userID, jobID int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM job_applications WHERE user_id = $1 AND job_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, jobID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListForUser returns the user's applications joined with the job and
// the hiring company, newest first.
func (r *ApplicationRepository) ListForUser(ctx context.Context, userID int) ([]types.UserApplication, error) {
	const query = `
		SELECT a.id, a.job_id, a.user_id, a.company_id, a.status, a.applied_date, a.created_at, a.updated_at,
			j.title, j.location_city, j.location_state, j.location_country, j.location_pincode,
			j.job_type, j.employment_type, j.remote_option,
			c.id, c.name, c.email, c.image
		FROM job_applications a
		JOIN jobs j ON j.id = a.job_id
		JOIN companies c ON c.id = a.company_id
		WHERE a.user_id = $1
		ORDER BY a.applied_date DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]types.UserApplication, 0)
	for rows.Next() {
		var ua types.UserApplication
		err := rows.Scan(
			&ua.ID,
			&ua.JobID,
			&ua.UserID,
			&ua.CompanyID,
			&ua.Status,
			&ua.AppliedDate,
			&ua.CreatedAt,
			&ua.UpdatedAt,
			&ua.Job.Title,
			&ua.Job.Location.City,
			&ua.Job.Location.State,
			&ua.Job.Location.Country,
			&ua.Job.Location.Pincode,
			&ua.Job.JobType,
			&ua.Job.EmploymentType,
			&ua.Job.RemoteOption,
			&ua.Company.ID,
			&ua.Company.Name,
			&ua.Company.Email,
			&ua.Company.Image,
		)
		if err != nil {
			return nil, err
		}
		ua.Job.ID = ua.JobID
		apps = append(apps, ua)
	}
	return apps, rows.Err()
}

// ListForCompany returns applications to the company's jobs joined with
// the applicant and the job, filtered and paginated. Search matches the
// applicant's name, the job title and the job's location subfields.
func (r *ApplicationRepository) ListForCompany(ctx context.Context, companyID int, filter types.ApplicationFilter) ([]types.CompanyApplication, int, error) {
	where := []string{"a.company_id = $1"}
	args := []any{companyID}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(u.name ILIKE $%d
			OR j.title ILIKE $%d
			OR j.location_city ILIKE $%d
			OR j.location_state ILIKE $%d
			OR j.location_country ILIKE $%d)`, n, n, n, n, n))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	countQuery := `
		SELECT COUNT(1)
		FROM job_applications a
		JOIN jobs j ON j.id = a.job_id
		JOIN users u ON u.id = a.user_id
		WHERE ` + whereClause
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	args = append(args, offset, filter.Limit)
	listQuery := fmt.Sprintf(`
		SELECT a.id, a.job_id, a.user_id, a.company_id, a.status, a.applied_date, a.created_at, a.updated_at,
			j.title, j.location_city, j.location_state, j.location_country, j.location_pincode,
			j.job_type, j.employment_type, j.remote_option,
			u.id, u.name, u.email, u.image, u.resume
		FROM job_applications a
		JOIN jobs j ON j.id = a.job_id
		JOIN users u ON u.id = a.user_id
		WHERE %s
		ORDER BY a.applied_date DESC
		OFFSET $%d LIMIT $%d`, whereClause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps := make([]types.CompanyApplication, 0, filter.Limit)
	for rows.Next() {
		var ca types.CompanyApplication
		err := rows.Scan(
			&ca.ID,
			&ca.JobID,
			&ca.UserID,
			&ca.CompanyID,
			&ca.Status,
			&ca.AppliedDate,
			&ca.CreatedAt,
			&ca.UpdatedAt,
			&ca.Job.Title,
			&ca.Job.Location.City,
			&ca.Job.Location.State,
			&ca.Job.Location.Country,
			&ca.Job.Location.Pincode,
			&ca.Job.JobType,
			&ca.Job.EmploymentType,
			&ca.Job.RemoteOption,
			&ca.User.ID,
			&ca.User.Name,
			&ca.User.Email,
			&ca.User.Image,
			&ca.User.Resume,
		)
		if err != nil {
			return nil, 0, err
		}
		ca.Job.ID = ca.JobID
		apps = append(apps, ca)
	}
	return apps, total, rows.Err()
}

func (r *ApplicationRepository) ChangeStatus(ctx context.Context, id int, status string) (types.Application, error) {
	const query = `
		UPDATE job_applications
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, job_id, user_id, company_id, status, applied_date, created_at, updated_at`
	var app types.Application
	err := r.db.QueryRowContext(ctx, query, status, time.Now(), id).Scan(
		&app.ID,
		&app.JobID,
		&app.UserID,
		&app.CompanyID,
		&app.Status,
		&app.AppliedDate,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Application{}, ErrNotFound
		}
		return types.Application{}, err
	}
	return app, nil
}
