package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jobdesk/apiserver/internal/services"
	"github.com/jobdesk/apiserver/internal/store"
	"github.com/jobdesk/apiserver/types"
)

// JobHandler provides the company-side job endpoints and the public board.
type JobHandler struct {
	svc *services.JobService
	dev bool
}

func NewJobHandler(svc *services.JobService, dev bool) *JobHandler {
	return &JobHandler{svc: svc, dev: dev}
}

// CompanyRoutes registers the job mutation endpoints. The caller mounts
// them behind company authentication.
func (h *JobHandler) CompanyRoutes(r chi.Router) {
	r.Post("/add-job", h.Create)
	r.Put("/update-job/{id}", h.Update)
	r.Delete("/delete-job/{id}", h.Delete)
	r.Patch("/toggle-job/{id}", h.ToggleVisibility)
	r.Get("/jobs", h.ListForCompany)
}

type jobRequest struct {
	Title           string         `json:"title"`
	Location        types.Location `json:"location"`
	Description     string         `json:"description"`
	SalaryMin       *int64         `json:"salaryMin"`
	SalaryMax       *int64         `json:"salaryMax"`
	JobType         string         `json:"jobType"`
	ExperienceLevel string         `json:"experienceLevel"`
	Skills          []string       `json:"skills"`
	Category        int            `json:"category"`
	EmploymentType  string         `json:"employmentType"`
	RemoteOption    string         `json:"remoteOption"`
}

// validate returns an empty string when the request is acceptable, a
// client-facing message otherwise.
func (req *jobRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.JobType = strings.TrimSpace(req.JobType)
	req.Location.City = strings.TrimSpace(req.Location.City)
	req.Location.State = strings.TrimSpace(req.Location.State)
	req.Location.Country = strings.TrimSpace(req.Location.Country)
	req.Location.Pincode = strings.TrimSpace(req.Location.Pincode)

	if req.Title == "" || req.Description == "" || req.Category < 1 || req.JobType == "" {
		return "Title, description, category and job type are required"
	}
	if req.Location.City == "" || req.Location.State == "" || req.Location.Country == "" {
		return "Location city, state and country are required"
	}
	if req.Location.Pincode != "" && !isPincode(req.Location.Pincode) {
		return "Pincode must be a 6-digit number"
	}
	if req.SalaryMin != nil && req.SalaryMax != nil && *req.SalaryMax < *req.SalaryMin {
		return "salaryMax must be greater than or equal to salaryMin"
	}
	return ""
}

func isPincode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (req *jobRequest) toJob(companyID int) types.Job {
	job := types.Job{
		Title:           req.Title,
		Location:        req.Location,
		Description:     req.Description,
		SalaryMin:       req.SalaryMin,
		SalaryMax:       req.SalaryMax,
		JobType:         req.JobType,
		ExperienceLevel: req.ExperienceLevel,
		Skills:          req.Skills,
		CategoryID:      req.Category,
		CompanyID:       companyID,
		EmploymentType:  req.EmploymentType,
		RemoteOption:    req.RemoteOption,
		Visible:         true,
	}
	if job.ExperienceLevel == "" {
		job.ExperienceLevel = types.ExperienceEntry
	}
	if job.EmploymentType == "" {
		job.EmploymentType = types.EmploymentPermanent
	}
	if job.RemoteOption == "" {
		job.RemoteOption = types.RemoteOptionOnSite
	}
	if job.Skills == nil {
		job.Skills = []string{}
	}
	return job
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	company, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid request body"))
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, failure(msg))
		return
	}

	job, err := h.svc.Create(r.Context(), req.toJob(company.ID))
	if err != nil {
		writeInternal(w, h.dev, "Failed to add job", err)
		return
	}

	writeJSON(w, http.StatusCreated,
		success("Job added successfully").with("jobData", job))
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	company, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid job id"))
		return
	}

	existing, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failure("Job not found"))
			return
		}
		writeInternal(w, h.dev, "Failed to update job", err)
		return
	}
	if existing.CompanyID != company.ID {
		writeJSON(w, http.StatusForbidden, failure("Unauthorized to update this job"))
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid request body"))
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, failure(msg))
		return
	}

	job := req.toJob(company.ID)
	job.ID = id
	job.Visible = existing.Visible
	job.CreatedAt = existing.CreatedAt

	job, err = h.svc.Update(r.Context(), job)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failure("Job not found"))
			return
		}
		writeInternal(w, h.dev, "Failed to update job", err)
		return
	}

	writeJSON(w, http.StatusOK,
		success("Job updated successfully").with("jobData", job))
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	company, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid job id"))
		return
	}

	existing, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failure("Job not found"))
			return
		}
		writeInternal(w, h.dev, "Failed to delete job", err)
		return
	}
	if existing.CompanyID != company.ID {
		writeJSON(w, http.StatusForbidden, failure("Unauthorized to delete this job"))
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, failure("Job not found"))
		case errors.Is(err, store.ErrInUse):
			writeJSON(w, http.StatusBadRequest, failure("Cannot delete job because it has existing applications"))
		default:
			writeInternal(w, h.dev, "Failed to delete job", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, success("Job deleted successfully"))
}

// ToggleVisibility flips the visible flag. Ownership is enforced the same
// way as Update and Delete.
func (h *JobHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	company, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid job id"))
		return
	}

	existing, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failure("Job not found"))
			return
		}
		writeInternal(w, h.dev, "Failed to update job", err)
		return
	}
	if existing.CompanyID != company.ID {
		writeJSON(w, http.StatusForbidden, failure("Unauthorized to update this job"))
		return
	}

	visible, err := h.svc.ToggleVisibility(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failure("Job not found"))
			return
		}
		writeInternal(w, h.dev, "Failed to update job", err)
		return
	}

	existing.Visible = visible
	writeJSON(w, http.StatusOK,
		success("Job visibility updated").with("jobData", existing))
}

// ListPublic returns every visible job for the public board.
func (h *JobHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.svc.ListPublic(r.Context())
	if err != nil {
		writeInternal(w, h.dev, "Failed to fetch jobs", err)
		return
	}
	writeJSON(w, http.StatusOK,
		success("Jobs fetched successfully").with("jobData", jobs))
}

// ListForCompany returns the company's own jobs with applicant counts.
func (h *JobHandler) ListForCompany(w http.ResponseWriter, r *http.Request) {
	company, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}

	filter := types.JobFilter{
		Search:     r.URL.Query().Get("search"),
		CategoryID: queryInt(r, "category", 0),
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", 10),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("isVisible")); raw != "" {
		visible := raw == "true"
		filter.Visible = &visible
	}
	filter = filter.Normalized()

	jobs, total, err := h.svc.ListForCompany(r.Context(), company.ID, filter)
	if err != nil {
		writeInternal(w, h.dev, "Failed to fetch jobs", err)
		return
	}

	writeJSON(w, http.StatusOK,
		success("Jobs fetched successfully").
			with("jobData", jobs).
			with("pagination", paginationOf(total, filter.Page, filter.Limit)))
}
