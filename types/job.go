package types

import "time"

// Job type enums. Values mirror the public API contract.
const (
	JobTypeFullTime   = "full-time"
	JobTypePartTime   = "part-time"
	JobTypeContract   = "contract"
	JobTypeInternship = "internship"
	JobTypeTemporary  = "temporary"
)

const (
	ExperienceEntry     = "entry"
	ExperienceMid       = "mid"
	ExperienceSenior    = "senior"
	ExperienceExecutive = "executive"
)

const (
	EmploymentPermanent = "permanent"
	EmploymentContract  = "contract"
	EmploymentFreelance = "freelance"
)

const (
	RemoteOptionRemote = "remote"
	RemoteOptionHybrid = "hybrid"
	RemoteOptionOnSite = "on-site"
)

// Location is the nested location object of a job posting. City, state and
// country are required; pincode, when present, must be a 6-digit string.
type Location struct {
	City    string `json:"city" db:"location_city"`
	State   string `json:"state" db:"location_state"`
	Country string `json:"country" db:"location_country"`
	Pincode string `json:"pincode,omitempty" db:"location_pincode"`
}

// Job represents a posting owned by a company and classified by a category.
type Job struct {
	ID              int       `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Location        Location  `json:"location"`
	Description     string    `json:"description" db:"description"`
	SalaryMin       *int64    `json:"salaryMin" db:"salary_min"`
	SalaryMax       *int64    `json:"salaryMax" db:"salary_max"`
	JobType         string    `json:"jobType" db:"job_type"`
	ExperienceLevel string    `json:"experienceLevel" db:"experience_level"`
	Skills          []string  `json:"skills" db:"skills"`
	CategoryID      int       `json:"category" db:"category_id"`
	CompanyID       int       `json:"companyId" db:"company_id"`
	EmploymentType  string    `json:"employmentType" db:"employment_type"`
	RemoteOption    string    `json:"remoteOption" db:"remote_option"`
	Visible         bool      `json:"visible" db:"visible"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// PublicJob is a visible job joined with its company (password excluded)
// and category type for the public board.
type PublicJob struct {
	Job
	Company      CompanySummary `json:"company"`
	CategoryType string         `json:"categoryType"`
}

// CompanyJob is a job row in the owning company's dashboard listing,
// carrying the applicant count and category type.
type CompanyJob struct {
	Job
	Applicants   int    `json:"applicants"`
	CategoryType string `json:"categoryType"`
}

// JobFilter narrows a company's job listing. Search matches title, skills
// and the location subfields case-insensitively.
type JobFilter struct {
	Search     string
	CategoryID int
	Visible    *bool
	Page       int
	Limit      int
}

// Normalized clamps page and limit to their served bounds. Callers
// reporting pagination metadata must use the normalized values so the
// metadata matches the rows actually returned.
func (f JobFilter) Normalized() JobFilter {
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
