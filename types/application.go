package types

import "time"

// Application statuses. The set is site-defined; "pending" is the default.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Application records a user applying to a job. CompanyID is denormalized
// from the job at creation time. At most one application exists per
// (user, job) pair, enforced by a unique constraint.
type Application struct {
	ID          int       `json:"id" db:"id"`
	JobID       int       `json:"jobId" db:"job_id"`
	UserID      int       `json:"userId" db:"user_id"`
	CompanyID   int       `json:"companyId" db:"company_id"`
	Status      string    `json:"status" db:"status"`
	AppliedDate time.Time `json:"date" db:"applied_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// JobSummary is the subset of job fields embedded in application listings.
type JobSummary struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Location       Location `json:"location"`
	JobType        string   `json:"jobType"`
	EmploymentType string   `json:"employmentType"`
	RemoteOption   string   `json:"remoteOption"`
}

// UserApplication is an application row in the applicant's own listing,
// joined with the company and the job.
type UserApplication struct {
	Application
	Company CompanySummary `json:"company"`
	Job     JobSummary     `json:"job"`
}

// CompanyApplication is an application row in the owning company's
// listing, joined with the applicant and the job.
type CompanyApplication struct {
	Application
	User UserSummary `json:"user"`
	Job  JobSummary  `json:"job"`
}

// ApplicationFilter narrows a company's applicant listing. Search matches
// job title, job location subfields and applicant name.
type ApplicationFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// Normalized clamps page and limit to their served bounds, mirroring
// JobFilter.Normalized.
func (f ApplicationFilter) Normalized() ApplicationFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}
