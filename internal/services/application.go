package services

import (
	"context"

	"github.com/jobdesk/apiserver/internal/store"
	"github.com/jobdesk/apiserver/types"
)

// ApplicationRepository defines persistence operations for applications.
type ApplicationRepository interface {
	Create(ctx context.Context, userID, jobID, companyID int) (types.Application, error)
	Get(ctx context.Context, id int) (types.Application, error)
	Exists(ctx context.Context, userID, jobID int) (bool, error)
	ListForUser(ctx context.Context, userID int) ([]types.UserApplication, error)
	ListForCompany(ctx context.Context, companyID int, filter types.ApplicationFilter) ([]types.CompanyApplication, int, error)
	ChangeStatus(ctx context.Context, id int, status string) (types.Application, error)
}

// ApplicationService encapsulates application use-cases.
type ApplicationService struct {
	repo ApplicationRepository
	jobs JobRepository
}

func NewApplicationService(repo ApplicationRepository, jobs JobRepository) *ApplicationService {
	return &ApplicationService{repo: repo, jobs: jobs}
}

// Apply records the user's application to the job, denormalizing the
// job's company. Passes through store.ErrNotFound for a missing job and
// store.ErrConflict for a duplicate application. The Exists pre-check is
// the fast path; the unique (user_id, job_id) constraint stays
// authoritative for concurrent applies.
func (s *ApplicationService) Apply(ctx context.Context, userID, jobID int) (types.Application, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return types.Application{}, err
	}
	applied, err := s.repo.Exists(ctx, userID, jobID)
	if err != nil {
		return types.Application{}, err
	}
	if applied {
		return types.Application{}, store.ErrConflict
	}
	return s.repo.Create(ctx, userID, jobID, job.CompanyID)
}

func (s *ApplicationService) Get(ctx context.Context, id int) (types.Application, error) {
	return s.repo.Get(ctx, id)
}

func (s *ApplicationService) HasApplied(ctx context.Context, userID, jobID int) (bool, error) {
	return s.repo.Exists(ctx, userID, jobID)
}

func (s *ApplicationService) ListForUser(ctx context.Context, userID int) ([]types.UserApplication, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *ApplicationService) ListForCompany(ctx context.Context, companyID int, filter types.ApplicationFilter) ([]types.CompanyApplication, int, error) {
	return s.repo.ListForCompany(ctx, companyID, filter.Normalized())
}

func (s *ApplicationService) ChangeStatus(ctx context.Context, id int, status string) (types.Application, error) {
	return s.repo.ChangeStatus(ctx, id, status)
}
