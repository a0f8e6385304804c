package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/jobdesk/apiserver/types"
)

// JobRepository handles persistence for job postings. All writes maintain
// the referenced category's usage_count inside the same transaction as the
// job row, so the cached counter cannot drift from the true reference
// count on a crash between the two writes.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, title, location_city, location_state, location_country, location_pincode,
	description, salary_min, salary_max, job_type, experience_level, skills,
	category_id, company_id, employment_type, remote_option, visible, created_at, updated_at`

func scanJob(scanner interface{ Scan(...any) error }, extra ...any) (types.Job, error) {
	var j types.Job
	var salaryMin, salaryMax sql.NullInt64
	dest := []any{
		&j.ID,
		&j.Title,
		&j.Location.City,
		&j.Location.State,
		&j.Location.Country,
		&j.Location.Pincode,
		&j.Description,
		&salaryMin,
		&salaryMax,
		&j.JobType,
		&j.ExperienceLevel,
		pq.Array(&j.Skills),
		&j.CategoryID,
		&j.CompanyID,
		&j.EmploymentType,
		&j.RemoteOption,
		&j.Visible,
		&j.CreatedAt,
		&j.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return types.Job{}, err
	}
	if salaryMin.Valid {
		j.SalaryMin = &salaryMin.Int64
	}
	if salaryMax.Valid {
		j.SalaryMax = &salaryMax.Int64
	}
	return j, nil
}

func (r *JobRepository) Get(ctx context.Context, id int) (types.Job, error) {
	const query = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Job{}, ErrNotFound
		}
		return types.Job{}, err
	}
	return job, nil
}

// Create inserts the job and increments the referenced category's usage
// counter. A missing category is logged and does not fail the insert.
func (r *JobRepository) Create(ctx context.Context, job types.Job) (types.Job, error) {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Job{}, err
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO jobs (title, location_city, location_state, location_country, location_pincode,
			description, salary_min, salary_max, job_type, experience_level, skills,
			category_id, company_id, employment_type, remote_option, visible, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`
	err = tx.QueryRowContext(
		ctx,
		query,
		job.Title,
		job.Location.City,
		job.Location.State,
		job.Location.Country,
		job.Location.Pincode,
		job.Description,
		job.SalaryMin,
		job.SalaryMax,
		job.JobType,
		job.ExperienceLevel,
		pq.Array(job.Skills),
		job.CategoryID,
		job.CompanyID,
		job.EmploymentType,
		job.RemoteOption,
		job.Visible,
		job.CreatedAt,
		job.UpdatedAt,
	).Scan(&job.ID)
	if err != nil {
		return types.Job{}, err
	}

	if err := bumpUsageCount(ctx, tx, job.CategoryID, +1); err != nil {
		return types.Job{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

// Update rewrites the job row. When the category reference changed, the
// old category's counter is decremented and the new one's incremented in
// the same transaction.
func (r *JobRepository) Update(ctx context.Context, job types.Job) (types.Job, error) {
	job.UpdatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Job{}, err
	}
	defer tx.Rollback()

	var oldCategoryID int
	err = tx.QueryRowContext(ctx, `SELECT category_id FROM jobs WHERE id = $1 FOR UPDATE`, job.ID).Scan(&oldCategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Job{}, ErrNotFound
		}
		return types.Job{}, err
	}

	const query = `
		UPDATE jobs
		SET title = $1,
			location_city = $2,
			location_state = $3,
			location_country = $4,
			location_pincode = $5,
			description = $6,
			salary_min = $7,
			salary_max = $8,
			job_type = $9,
			experience_level = $10,
			skills = $11,
			category_id = $12,
			employment_type = $13,
			remote_option = $14,
			visible = $15,
			updated_at = $16
		WHERE id = $17`
	_, err = tx.ExecContext(
		ctx,
		query,
		job.Title,
		job.Location.City,
		job.Location.State,
		job.Location.Country,
		job.Location.Pincode,
		job.Description,
		job.SalaryMin,
		job.SalaryMax,
		job.JobType,
		job.ExperienceLevel,
		pq.Array(job.Skills),
		job.CategoryID,
		job.EmploymentType,
		job.RemoteOption,
		job.Visible,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return types.Job{}, err
	}

	if oldCategoryID != job.CategoryID {
		if err := bumpUsageCount(ctx, tx, oldCategoryID, -1); err != nil {
			return types.Job{}, err
		}
		if err := bumpUsageCount(ctx, tx, job.CategoryID, +1); err != nil {
			return types.Job{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

// Delete removes a job with no applications and decrements its category's
// usage counter. Returns ErrInUse while applications still reference it.
func (r *JobRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var categoryID int
	err = tx.QueryRowContext(ctx, `SELECT category_id FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	var applications int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM job_applications WHERE job_id = $1`, id).Scan(&applications); err != nil {
		return err
	}
	if applications > 0 {
		return ErrInUse
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return err
	}
	if err := bumpUsageCount(ctx, tx, categoryID, -1); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *JobRepository) ToggleVisibility(ctx context.Context, id int) (bool, error) {
	const query = `UPDATE jobs SET visible = NOT visible, updated_at = $1 WHERE id = $2 RETURNING visible`
	var visible bool
	err := r.db.QueryRowContext(ctx, query, time.Now(), id).Scan(&visible)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return visible, nil
}

// ListPublic returns every visible job joined with its company (password
// excluded) and category type.
func (r *JobRepository) ListPublic(ctx context.Context) ([]types.PublicJob, error) {
	const query = `
		SELECT ` + prefixedJobColumns + `,
			c.id, c.name, c.email, c.image,
			COALESCE(cat.type, '')
		FROM jobs j
		JOIN companies c ON c.id = j.company_id
		LEFT JOIN categories cat ON cat.id = j.category_id
		WHERE j.visible
		ORDER BY j.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]types.PublicJob, 0)
	for rows.Next() {
		var pub types.PublicJob
		job, err := scanJob(rows,
			&pub.Company.ID,
			&pub.Company.Name,
			&pub.Company.Email,
			&pub.Company.Image,
			&pub.CategoryType,
		)
		if err != nil {
			return nil, err
		}
		pub.Job = job
		jobs = append(jobs, pub)
	}
	return jobs, rows.Err()
}

// ListForCompany returns the company's jobs with applicant counts,
// filtered and paginated. Search matches title, skills and the location
// subfields case-insensitively.
func (r *JobRepository) ListForCompany(ctx context.Context, companyID int, filter types.JobFilter) ([]types.CompanyJob, int, error) {
	where := []string{"j.company_id = $1"}
	args := []any{companyID}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(j.title ILIKE $%d
			OR j.location_city ILIKE $%d
			OR j.location_state ILIKE $%d
			OR j.location_country ILIKE $%d
			OR EXISTS (SELECT 1 FROM unnest(j.skills) AS skill WHERE skill ILIKE $%d))`, n, n, n, n, n))
	}
	if filter.CategoryID > 0 {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("j.category_id = $%d", len(args)))
	}
	if filter.Visible != nil {
		args = append(args, *filter.Visible)
		where = append(where, fmt.Sprintf("j.visible = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	countQuery := `SELECT COUNT(1) FROM jobs j WHERE ` + whereClause
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	args = append(args, offset, filter.Limit)
	listQuery := fmt.Sprintf(`
		SELECT `+prefixedJobColumns+`,
			COALESCE(cat.type, ''),
			(SELECT COUNT(1) FROM job_applications a WHERE a.job_id = j.id)
		FROM jobs j
		LEFT JOIN categories cat ON cat.id = j.category_id
		WHERE %s
		ORDER BY j.created_at DESC
		OFFSET $%d LIMIT $%d`, whereClause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	jobs := make([]types.CompanyJob, 0, filter.Limit)
	for rows.Next() {
		var cj types.CompanyJob
		job, err := scanJob(rows, &cj.CategoryType, &cj.Applicants)
		if err != nil {
			return nil, 0, err
		}
		cj.Job = job
		jobs = append(jobs, cj)
	}
	return jobs, total, rows.Err()
}

const prefixedJobColumns = `j.id, j.title, j.location_city, j.location_state, j.location_country, j.location_pincode,
	j.description, j.salary_min, j.salary_max, j.job_type, j.experience_level, j.skills,
	j.category_id, j.company_id, j.employment_type, j.remote_option, j.visible, j.created_at, j.updated_at`

// bumpUsageCount adjusts a category's cached reference counter. A missing
// category row is logged, not fatal: job rows are allowed to outlive their
// category reference.
func bumpUsageCount(ctx context.Context, tx *sql.Tx, categoryID, delta int) error {
	const query = `
		UPDATE categories
		SET usage_count = GREATEST(usage_count + $1, 0)
		WHERE id = $2`
	result, err := tx.ExecContext(ctx, query, delta, categoryID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		slog.Warn("job references unknown category", "category_id", categoryID)
	}
	return nil
}
