package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jobdesk/apiserver/internal/services"
	"github.com/jobdesk/apiserver/internal/store"
)

// CategoryHandler provides the admin-side category endpoints plus the
// public visible-only listing.
type CategoryHandler struct {
	svc *services.CategoryService
	dev bool
}

func NewCategoryHandler(svc *services.CategoryService, dev bool) *CategoryHandler {
	return &CategoryHandler{svc: svc, dev: dev}
}

// AdminRoutes registers the moderation endpoints. The caller mounts them
// behind admin authentication.
func (h *CategoryHandler) AdminRoutes(r chi.Router) {
	r.Post("/add-category", h.Create)
	r.Put("/update-category/{id}", h.Update)
	r.Delete("/delete-category/{id}", h.Delete)
	r.Patch("/toggle-category/{id}", h.ToggleVisibility)
	r.Get("/categories", h.ListAll)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid request body"))
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, failure("Category type is required"))
		return
	}

	category, err := h.svc.Create(r.Context(), req.Type)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeJSON(w, http.StatusConflict, failure("Category already exists"))
			return
		}
		writeInternal(w, h.dev, "Failed to add category", err)
		return
	}

	writeJSON(w, http.StatusCreated,
		success("Category added successfully").with("category", category))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid category id"))
		return
	}

	var req struct {
		Type      string `json:"type"`
		IsVisible *bool  `json:"isVisible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid request body"))
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, failure("Category type is required"))
		return
	}

	var visible bool
	if req.IsVisible != nil {
		visible = *req.IsVisible
	} else {
		current, err := h.svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, failure("Category not found"))
				return
			}
			writeInternal(w, h.dev, "Failed to update category", err)
			return
		}
		visible = current.Visible
	}

	category, err := h.svc.Update(r.Context(), id, req.Type, visible)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, failure("Category not found"))
		case errors.Is(err, store.ErrConflict):
			writeJSON(w, http.StatusConflict, failure("Category already exists"))
		default:
			writeInternal(w, h.dev, "Failed to update category", err)
		}
		return
	}

	writeJSON(w, http.StatusOK,
		success("Category updated successfully").with("category", category))
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid category id"))
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, failure("Category not found"))
		case errors.Is(err, store.ErrInUse):
			writeJSON(w, http.StatusBadRequest, failure("Cannot delete category because it is used in existing jobs"))
		default:
			writeInternal(w, h.dev, "Failed to delete category", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, success("Category deleted successfully"))
}

func (h *CategoryHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid category id"))
		return
	}

	category, err := h.svc.ToggleVisibility(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failure("Category not found"))
			return
		}
		writeInternal(w, h.dev, "Failed to update category", err)
		return
	}

	writeJSON(w, http.StatusOK,
		success("Category visibility updated").with("category", category))
}

// ListAll returns every category, hidden ones included.
func (h *CategoryHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// ListVisible returns only visible categories.
func (h *CategoryHandler) ListVisible(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *CategoryHandler) list(w http.ResponseWriter, r *http.Request, visibleOnly bool) {
	categories, err := h.svc.List(r.Context(), visibleOnly)
	if err != nil {
		writeInternal(w, h.dev, "Failed to fetch categories", err)
		return
	}
	writeJSON(w, http.StatusOK,
		success("Categories fetched successfully").with("categories", categories))
}
