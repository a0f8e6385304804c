package services

import (
	"context"

	"github.com/jobdesk/apiserver/types"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Get(ctx context.Context, id int) (types.Category, error)
	GetByType(ctx context.Context, categoryType string) (types.Category, error)
	Create(ctx context.Context, categoryType string) (types.Category, error)
	Update(ctx context.Context, id int, categoryType string, visible bool) (types.Category, error)
	Delete(ctx context.Context, id int) error
	ToggleVisibility(ctx context.Context, id int) (types.Category, error)
	List(ctx context.Context, visibleOnly bool) ([]types.Category, error)
}

// CategoryService encapsulates category use-cases.
type CategoryService struct {
	repo CategoryRepository
}

func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) Get(ctx context.Context, id int) (types.Category, error) {
	return s.repo.Get(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, categoryType string) (types.Category, error) {
	return s.repo.Create(ctx, categoryType)
}

func (s *CategoryService) Update(ctx context.Context, id int, categoryType string, visible bool) (types.Category, error) {
	return s.repo.Update(ctx, id, categoryType, visible)
}

func (s *CategoryService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *CategoryService) ToggleVisibility(ctx context.Context, id int) (types.Category, error) {
	return s.repo.ToggleVisibility(ctx, id)
}

func (s *CategoryService) List(ctx context.Context, visibleOnly bool) ([]types.Category, error) {
	return s.repo.List(ctx, visibleOnly)
}
