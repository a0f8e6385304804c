package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jobdesk/apiserver/types"
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Get(ctx context.Context, id int) (types.Category, error) {
	const query = `SELECT id, type, usage_count, is_visible FROM categories WHERE id = $1`
	var c types.Category
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Type, &c.UsageCount, &c.Visible)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return c, nil
}

func (r *CategoryRepository) GetByType(ctx context.Context, categoryType string) (types.Category, error) {
	const query = `SELECT id, type, usage_count, is_visible FROM categories WHERE type = $1`
	var c types.Category
	err := r.db.QueryRowContext(ctx, query, categoryType).Scan(&c.ID, &c.Type, &c.UsageCount, &c.Visible)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, categoryType string) (types.Category, error) {
	c := types.Category{Type: categoryType, UsageCount: 0, Visible: true}

	const query = `
		INSERT INTO categories (type, usage_count, is_visible)
		VALUES ($1, 0, TRUE)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, categoryType).Scan(&c.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Category{}, ErrConflict
		}
		return types.Category{}, err
	}
	return c, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id int, categoryType string, visible bool) (types.Category, error) {
	const query = `
		UPDATE categories
		SET type = $1, is_visible = $2
		WHERE id = $3
		RETURNING id, type, usage_count, is_visible`
	var c types.Category
	err := r.db.QueryRowContext(ctx, query, categoryType, visible, id).Scan(&c.ID, &c.Type, &c.UsageCount, &c.Visible)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return types.Category{}, ErrConflict
		}
		return types.Category{}, err
	}
	return c, nil
}

// Delete removes a category unless any job still references it. The guard
// counts live job rows rather than trusting the cached usage counter.
func (r *CategoryRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	var jobCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE category_id = $1`, id).Scan(&jobCount); err != nil {
		return err
	}
	if jobCount > 0 {
		return ErrInUse
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CategoryRepository) ToggleVisibility(ctx context.Context, id int) (types.Category, error) {
	const query = `
		UPDATE categories
		SET is_visible = NOT is_visible
		WHERE id = $1
		RETURNING id, type, usage_count, is_visible`
	var c types.Category
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Type, &c.UsageCount, &c.Visible)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return c, nil
}

// List returns categories ordered by type. When visibleOnly is set, hidden
// categories are excluded.
func (r *CategoryRepository) List(ctx context.Context, visibleOnly bool) ([]types.Category, error) {
	query := `SELECT id, type, usage_count, is_visible FROM categories ORDER BY type`
	if visibleOnly {
		query = `SELECT id, type, usage_count, is_visible FROM categories WHERE is_visible ORDER BY type`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]types.Category, 0)
	for rows.Next() {
		var c types.Category
		if err := rows.Scan(&c.ID, &c.Type, &c.UsageCount, &c.Visible); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
