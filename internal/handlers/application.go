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

// ApplicationHandler provides the user-side and company-side application
// endpoints.
type ApplicationHandler struct {
	svc *services.ApplicationService
	dev bool
}

func NewApplicationHandler(svc *services.ApplicationService, dev bool) *ApplicationHandler {
	return &ApplicationHandler{svc: svc, dev: dev}
}

// UserRoutes registers the applicant endpoints. The caller mounts them
// behind user authentication.
func (h *ApplicationHandler) UserRoutes(r chi.Router) {
	r.Post("/apply-job/{jobId}", h.Apply)
	r.Get("/applied-jobs", h.ListForUser)
}

// CompanyRoutes registers the hiring-side endpoints. The caller mounts
// them behind company authentication.
func (h *ApplicationHandler) CompanyRoutes(r chi.Router) {
	r.Get("/view-applications", h.ListForCompany)
	r.Patch("/application-status/{id}", h.ChangeStatus)
}

func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	user, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}
	jobID, err := pathID(r, "jobId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Job id is required"))
		return
	}

	application, err := h.svc.Apply(r.Context(), user.ID, jobID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, failure("Job not found"))
		case errors.Is(err, store.ErrConflict):
			writeJSON(w, http.StatusConflict, failure("You have already applied for this job"))
		default:
			writeInternal(w, h.dev, "Failed to apply for job", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated,
		success("Application submitted successfully").with("application", application))
}

func (h *ApplicationHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	user, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}

	applications, err := h.svc.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeInternal(w, h.dev, "Failed to fetch applications", err)
		return
	}

	writeJSON(w, http.StatusOK,
		success("Applications fetched successfully").with("jobApplications", applications))
}

func (h *ApplicationHandler) ListForCompany(w http.ResponseWriter, r *http.Request) {
	company, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}

	filter := types.ApplicationFilter{
		Search: r.URL.Query().Get("search"),
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 10),
	}
	filter = filter.Normalized()

	applications, total, err := h.svc.ListForCompany(r.Context(), company.ID, filter)
	if err != nil {
		writeInternal(w, h.dev, "Failed to fetch applications", err)
		return
	}

	writeJSON(w, http.StatusOK,
		success("Applications fetched successfully").
			with("viewApplicationData", applications).
			with("pagination", paginationOf(total, filter.Page, filter.Limit)))
}

// ChangeStatus updates an application's status by id. Any authenticated
// company may change any application; the id is not scoped to the caller.
func (h *ApplicationHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := principalFromContext(r.Context()); !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Application id and status are required"))
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid request body"))
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, failure("Application id and status are required"))
		return
	}
	switch req.Status {
	case types.StatusPending, types.StatusAccepted, types.StatusRejected:
	default:
		writeJSON(w, http.StatusBadRequest, failure("Invalid status"))
		return
	}

	application, err := h.svc.ChangeStatus(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failure("Application not found"))
			return
		}
		writeInternal(w, h.dev, "Failed to update application status", err)
		return
	}

	writeJSON(w, http.StatusOK,
		success("Application status updated").with("application", application))
}
