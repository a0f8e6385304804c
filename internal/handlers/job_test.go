package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jobdesk/apiserver/internal/services"
	"github.com/jobdesk/apiserver/types"
)

// asPrincipal injects a fixed principal the way RequireAuth would.
func asPrincipal(p types.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
		})
	}
}

type jobFixture struct {
	repo    *fakeJobRepo
	handler *JobHandler
	router  *chi.Mux
}

func newJobFixture(t *testing.T, companyID int) *jobFixture {
	t.Helper()

	repo := newFakeJobRepo()
	handler := NewJobHandler(services.NewJobService(repo), true)
	router := chi.NewRouter()
	router.Use(asPrincipal(types.Principal{ID: companyID, Kind: types.KindCompany, Name: "Acme"}))
	handler.CompanyRoutes(router)
	return &jobFixture{repo: repo, handler: handler, router: router}
}

func (f *jobFixture) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, reader))
	return rec
}

func validJobRequest() map[string]any {
	return map[string]any{
		"title":       "Backend Engineer",
		"description": "Build APIs",
		"jobType":     types.JobTypeFullTime,
		"category":    1,
		"location": map[string]string{
			"city":    "Pune",
			"state":   "MH",
			"country": "IN",
		},
	}
}

func TestCreateJobAppliesDefaults(t *testing.T) {
	f := newJobFixture(t, 1)

	rec := f.do(http.MethodPost, "/add-job", validJobRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	job, err := f.repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("stored job: %v", err)
	}
	if job.ExperienceLevel != types.ExperienceEntry {
		t.Fatalf("experienceLevel = %q, want %q", job.ExperienceLevel, types.ExperienceEntry)
	}
	if job.EmploymentType != types.EmploymentPermanent {
		t.Fatalf("employmentType = %q, want %q", job.EmploymentType, types.EmploymentPermanent)
	}
	if job.RemoteOption != types.RemoteOptionOnSite {
		t.Fatalf("remoteOption = %q, want %q", job.RemoteOption, types.RemoteOptionOnSite)
	}
	if !job.Visible {
		t.Fatalf("new job must start visible")
	}
	if job.Skills == nil {
		t.Fatalf("skills must marshal as an empty array, not null")
	}
	if job.CompanyID != 1 {
		t.Fatalf("companyId = %d, want the authenticated company", job.CompanyID)
	}
	if f.repo.usageCounts[1] != 1 {
		t.Fatalf("category usage = %d, want 1", f.repo.usageCounts[1])
	}
}

func TestCreateJobValidation(t *testing.T) {
	f := newJobFixture(t, 1)

	cases := []struct {
		name    string
		mutate  func(req map[string]any)
		message string
	}{
		{
			name:    "missing title",
			mutate:  func(req map[string]any) { req["title"] = "  " },
			message: "Title, description, category and job type are required",
		},
		{
			name: "missing city",
			mutate: func(req map[string]any) {
				req["location"] = map[string]string{"state": "MH", "country": "IN"}
			},
			message: "Location city, state and country are required",
		},
		{
			name: "bad pincode",
			mutate: func(req map[string]any) {
				req["location"] = map[string]string{
					"city": "Pune", "state": "MH", "country": "IN", "pincode": "12ab56",
				}
			},
			message: "Pincode must be a 6-digit number",
		},
		{
			name: "inverted salary range",
			mutate: func(req map[string]any) {
				req["salaryMin"] = 90000
				req["salaryMax"] = 50000
			},
			message: "salaryMax must be greater than or equal to salaryMin",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validJobRequest()
			tc.mutate(req)
			rec := f.do(http.MethodPost, "/add-job", req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			if msg := decodeEnvelope(t, rec)["message"]; msg != tc.message {
				t.Fatalf("message = %v, want %q", msg, tc.message)
			}
		})
	}
}

func TestUpdateJobOwnership(t *testing.T) {
	f := newJobFixture(t, 1)
	other, _ := f.repo.Create(context.Background(), types.Job{Title: "Theirs", CompanyID: 2, CategoryID: 1, Visible: true})

	rec := f.do(http.MethodPut, "/update-job/1", validJobRequest())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
	if msg := decodeEnvelope(t, rec)["message"]; msg != "Unauthorized to update this job" {
		t.Fatalf("message = %v", msg)
	}

	kept, _ := f.repo.Get(context.Background(), other.ID)
	if kept.Title != "Theirs" {
		t.Fatalf("foreign job must be untouched, title = %q", kept.Title)
	}
}

func TestUpdateJobPreservesVisibility(t *testing.T) {
	f := newJobFixture(t, 1)
	job, _ := f.repo.Create(context.Background(), types.Job{Title: "Old", CompanyID: 1, CategoryID: 1, Visible: true})
	if _, err := f.repo.ToggleVisibility(context.Background(), job.ID); err != nil {
		t.Fatalf("hide job: %v", err)
	}

	rec := f.do(http.MethodPut, "/update-job/1", validJobRequest())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	updated, _ := f.repo.Get(context.Background(), job.ID)
	if updated.Title != "Backend Engineer" {
		t.Fatalf("title = %q, want Backend Engineer", updated.Title)
	}
	if updated.Visible {
		t.Fatalf("update must not resurrect a hidden job")
	}
}

func TestUpdateJobMovesCategoryUsage(t *testing.T) {
	f := newJobFixture(t, 1)
	_, _ = f.repo.Create(context.Background(), types.Job{Title: "Old", CompanyID: 1, CategoryID: 1, Visible: true})

	req := validJobRequest()
	req["category"] = 2
	rec := f.do(http.MethodPut, "/update-job/1", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if f.repo.usageCounts[1] != 0 || f.repo.usageCounts[2] != 1 {
		t.Fatalf("usage counts = %v, want moved from 1 to 2", f.repo.usageCounts)
	}
}

func TestDeleteJobWithApplicationsRefused(t *testing.T) {
	f := newJobFixture(t, 1)
	job, _ := f.repo.Create(context.Background(), types.Job{Title: "Mine", CompanyID: 1, CategoryID: 1, Visible: true})
	f.repo.applications[job.ID] = 3

	rec := f.do(http.MethodDelete, "/delete-job/1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if msg := decodeEnvelope(t, rec)["message"]; msg != "Cannot delete job because it has existing applications" {
		t.Fatalf("message = %v", msg)
	}
	if _, err := f.repo.Get(context.Background(), job.ID); err != nil {
		t.Fatalf("job must survive a refused delete: %v", err)
	}
}

func TestDeleteJobOwnership(t *testing.T) {
	f := newJobFixture(t, 1)
	_, _ = f.repo.Create(context.Background(), types.Job{Title: "Theirs", CompanyID: 2, CategoryID: 1, Visible: true})

	rec := f.do(http.MethodDelete, "/delete-job/1", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if msg := decodeEnvelope(t, rec)["message"]; msg != "Unauthorized to delete this job" {
		t.Fatalf("message = %v", msg)
	}
}

func TestToggleJobOwnership(t *testing.T) {
	f := newJobFixture(t, 1)
	_, _ = f.repo.Create(context.Background(), types.Job{Title: "Theirs", CompanyID: 2, CategoryID: 1, Visible: true})

	rec := f.do(http.MethodPatch, "/toggle-job/1", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestToggleJobFlipsVisibility(t *testing.T) {
	f := newJobFixture(t, 1)
	job, _ := f.repo.Create(context.Background(), types.Job{Title: "Mine", CompanyID: 1, CategoryID: 1, Visible: true})

	rec := f.do(http.MethodPatch, "/toggle-job/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	toggled, _ := f.repo.Get(context.Background(), job.ID)
	if toggled.Visible {
		t.Fatalf("toggle must hide a visible job")
	}

	body := decodeEnvelope(t, rec)
	jobData, _ := body["jobData"].(map[string]any)
	if jobData["visible"] != false {
		t.Fatalf("response visible = %v, want false", jobData["visible"])
	}
}

func TestListForCompanyPagination(t *testing.T) {
	f := newJobFixture(t, 1)
	for _, title := range []string{"One", "Two", "Three"} {
		_, _ = f.repo.Create(context.Background(), types.Job{Title: title, CompanyID: 1, CategoryID: 1, Visible: true})
	}
	_, _ = f.repo.Create(context.Background(), types.Job{Title: "Foreign", CompanyID: 2, CategoryID: 1, Visible: true})

	rec := f.do(http.MethodGet, "/jobs?page=1&limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	jobs, _ := body["jobData"].([]any)
	if len(jobs) != 2 {
		t.Fatalf("page 1 holds %d jobs, want 2", len(jobs))
	}
	pagination, _ := body["pagination"].(map[string]any)
	if pagination["total"] != float64(3) || pagination["totalPages"] != float64(2) {
		t.Fatalf("pagination = %v, want total 3 totalPages 2", pagination)
	}

	rec = f.do(http.MethodGet, "/jobs?page=2&limit=2", nil)
	body = decodeEnvelope(t, rec)
	jobs, _ = body["jobData"].([]any)
	if len(jobs) != 1 {
		t.Fatalf("page 2 holds %d jobs, want 1", len(jobs))
	}
}

func TestListForCompanyClampsLimit(t *testing.T) {
	f := newJobFixture(t, 1)
	for _, title := range []string{"One", "Two", "Three"} {
		_, _ = f.repo.Create(context.Background(), types.Job{Title: title, CompanyID: 1, CategoryID: 1, Visible: true})
	}

	rec := f.do(http.MethodGet, "/jobs?limit=500", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	pagination, _ := body["pagination"].(map[string]any)
	if pagination["limit"] != float64(100) {
		t.Fatalf("limit = %v, want the served ceiling 100", pagination["limit"])
	}
	if pagination["totalPages"] != float64(1) {
		t.Fatalf("totalPages = %v, want 1 for 3 rows at limit 100", pagination["totalPages"])
	}
}

func TestListForCompanySearchFilter(t *testing.T) {
	f := newJobFixture(t, 1)
	_, _ = f.repo.Create(context.Background(), types.Job{Title: "Backend Engineer", CompanyID: 1, CategoryID: 1, Visible: true})
	_, _ = f.repo.Create(context.Background(), types.Job{Title: "Designer", CompanyID: 1, CategoryID: 1, Visible: true})

	rec := f.do(http.MethodGet, "/jobs?search=backend", nil)
	body := decodeEnvelope(t, rec)
	jobs, _ := body["jobData"].([]any)
	if len(jobs) != 1 {
		t.Fatalf("search matched %d jobs, want 1", len(jobs))
	}
}

func TestListPublicHidesInvisibleJobs(t *testing.T) {
	f := newJobFixture(t, 1)
	_, _ = f.repo.Create(context.Background(), types.Job{Title: "Visible", CompanyID: 1, CategoryID: 1, Visible: true})
	hidden, _ := f.repo.Create(context.Background(), types.Job{Title: "Hidden", CompanyID: 1, CategoryID: 1, Visible: true})
	_, _ = f.repo.ToggleVisibility(context.Background(), hidden.ID)

	rec := httptest.NewRecorder()
	f.handler.ListPublic(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	jobs, _ := decodeEnvelope(t, rec)["jobData"].([]any)
	if len(jobs) != 1 {
		t.Fatalf("public board holds %d jobs, want 1", len(jobs))
	}
	first, _ := jobs[0].(map[string]any)
	if first["title"] != "Visible" {
		t.Fatalf("public board = %v, want only the visible job", jobs)
	}
}
