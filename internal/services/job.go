package services

import (
	"context"

	"github.com/jobdesk/apiserver/types"
)

// JobRepository defines persistence operations for job postings.
type JobRepository interface {
	Get(ctx context.Context, id int) (types.Job, error)
	Create(ctx context.Context, job types.Job) (types.Job, error)
	Update(ctx context.Context, job types.Job) (types.Job, error)
	Delete(ctx context.Context, id int) error
	ToggleVisibility(ctx context.Context, id int) (bool, error)
	ListPublic(ctx context.Context) ([]types.PublicJob, error)
	ListForCompany(ctx context.Context, companyID int, filter types.JobFilter) ([]types.CompanyJob, int, error)
}

// JobService encapsulates job use-cases.
type JobService struct {
	repo JobRepository
}

func NewJobService(repo JobRepository) *JobService {
	return &JobService{repo: repo}
}

func (s *JobService) Get(ctx context.Context, id int) (types.Job, error) {
	return s.repo.Get(ctx, id)
}

func (s *JobService) Create(ctx context.Context, job types.Job) (types.Job, error) {
	return s.repo.Create(ctx, job)
}

func (s *JobService) Update(ctx context.Context, job types.Job) (types.Job, error) {
	return s.repo.Update(ctx, job)
}

func (s *JobService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *JobService) ToggleVisibility(ctx context.Context, id int) (bool, error) {
	return s.repo.ToggleVisibility(ctx, id)
}

func (s *JobService) ListPublic(ctx context.Context) ([]types.PublicJob, error) {
	return s.repo.ListPublic(ctx)
}

func (s *JobService) ListForCompany(ctx context.Context, companyID int, filter types.JobFilter) ([]types.CompanyJob, int, error) {
	return s.repo.ListForCompany(ctx, companyID, filter.Normalized())
}
