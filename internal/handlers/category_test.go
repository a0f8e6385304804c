package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jobdesk/apiserver/internal/services"
)

type categoryFixture struct {
	repo   *fakeCategoryRepo
	router *chi.Mux
}

func newCategoryFixture(t *testing.T) *categoryFixture {
	t.Helper()

	repo := newFakeCategoryRepo()
	handler := NewCategoryHandler(services.NewCategoryService(repo), true)
	router := chi.NewRouter()
	handler.AdminRoutes(router)
	return &categoryFixture{repo: repo, router: router}
}

func (f *categoryFixture) do(method, target string, body any) *httptest.ResponseRecorder {
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

func TestCreateCategory(t *testing.T) {
	f := newCategoryFixture(t)

	rec := f.do(http.MethodPost, "/add-category", map[string]string{"type": "Engineering"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	category, _ := body["category"].(map[string]any)
	if category["type"] != "Engineering" {
		t.Fatalf("category = %v, want type Engineering", category)
	}
	if category["isVisible"] != true {
		t.Fatalf("new category must start visible, got %v", category["isVisible"])
	}
}

func TestCreateCategoryRejectsBlankType(t *testing.T) {
	f := newCategoryFixture(t)

	rec := f.do(http.MethodPost, "/add-category", map[string]string{"type": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeEnvelope(t, rec)["message"]; msg != "Category type is required" {
		t.Fatalf("message = %v", msg)
	}
}

func TestCreateCategoryDuplicateConflicts(t *testing.T) {
	f := newCategoryFixture(t)
	if _, err := f.repo.Create(context.Background(), "Engineering"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := f.do(http.MethodPost, "/add-category", map[string]string{"type": "Engineering"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if msg := decodeEnvelope(t, rec)["message"]; msg != "Category already exists" {
		t.Fatalf("message = %v", msg)
	}
}

func TestUpdateCategory(t *testing.T) {
	f := newCategoryFixture(t)
	c, _ := f.repo.Create(context.Background(), "Engneering")

	rec := f.do(http.MethodPut, "/update-category/1", map[string]any{"type": "Engineering"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	updated, _ := f.repo.Get(context.Background(), c.ID)
	if updated.Type != "Engineering" {
		t.Fatalf("type = %q, want Engineering", updated.Type)
	}
	if !updated.Visible {
		t.Fatalf("update without isVisible must keep current visibility")
	}
}

func TestUpdateCategoryLookupFailureKeepsVisibility(t *testing.T) {
	f := newCategoryFixture(t)
	c, _ := f.repo.Create(context.Background(), "Engineering")
	_, _ = f.repo.ToggleVisibility(context.Background(), c.ID)
	f.repo.getErr = errors.New("connection reset")

	rec := f.do(http.MethodPut, "/update-category/1", map[string]string{"type": "Platform"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500: %s", rec.Code, rec.Body.String())
	}

	f.repo.getErr = nil
	kept, _ := f.repo.Get(context.Background(), c.ID)
	if kept.Visible {
		t.Fatalf("a failed lookup must not flip a hidden category visible")
	}
	if kept.Type != "Engineering" {
		t.Fatalf("type = %q, want the update to be abandoned", kept.Type)
	}
}

func TestUpdateCategoryNotFound(t *testing.T) {
	f := newCategoryFixture(t)

	rec := f.do(http.MethodPut, "/update-category/42", map[string]string{"type": "Sales"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteCategoryInUse(t *testing.T) {
	f := newCategoryFixture(t)
	c, _ := f.repo.Create(context.Background(), "Engineering")
	f.repo.jobsUsing[c.ID] = 2

	rec := f.do(http.MethodDelete, "/delete-category/1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeEnvelope(t, rec)["message"]; msg != "Cannot delete category because it is used in existing jobs" {
		t.Fatalf("message = %v", msg)
	}
	if _, err := f.repo.Get(context.Background(), c.ID); err != nil {
		t.Fatalf("category must survive a refused delete: %v", err)
	}
}

func TestDeleteCategory(t *testing.T) {
	f := newCategoryFixture(t)
	c, _ := f.repo.Create(context.Background(), "Engineering")

	rec := f.do(http.MethodDelete, "/delete-category/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if _, err := f.repo.Get(context.Background(), c.ID); err == nil {
		t.Fatalf("category must be gone after delete")
	}
}

func TestToggleCategoryFlipsVisibility(t *testing.T) {
	f := newCategoryFixture(t)
	c, _ := f.repo.Create(context.Background(), "Engineering")

	rec := f.do(http.MethodPatch, "/toggle-category/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	toggled, _ := f.repo.Get(context.Background(), c.ID)
	if toggled.Visible {
		t.Fatalf("first toggle must hide the category")
	}

	if rec := f.do(http.MethodPatch, "/toggle-category/1", nil); rec.Code != http.StatusOK {
		t.Fatalf("second toggle status = %d", rec.Code)
	}
	toggled, _ = f.repo.Get(context.Background(), c.ID)
	if !toggled.Visible {
		t.Fatalf("second toggle must restore visibility")
	}
}

func TestListCategoriesVisibility(t *testing.T) {
	f := newCategoryFixture(t)
	_, _ = f.repo.Create(context.Background(), "Engineering")
	hidden, _ := f.repo.Create(context.Background(), "Sales")
	_, _ = f.repo.ToggleVisibility(context.Background(), hidden.ID)

	rec := f.do(http.MethodGet, "/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	all, _ := decodeEnvelope(t, rec)["categories"].([]any)
	if len(all) != 2 {
		t.Fatalf("admin listing returned %d categories, want 2", len(all))
	}

	handler := NewCategoryHandler(services.NewCategoryService(f.repo), true)
	rec = httptest.NewRecorder()
	handler.ListVisible(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))
	visible, _ := decodeEnvelope(t, rec)["categories"].([]any)
	if len(visible) != 1 {
		t.Fatalf("public listing returned %d categories, want 1", len(visible))
	}
	first, _ := visible[0].(map[string]any)
	if first["type"] != "Engineering" {
		t.Fatalf("public listing = %v, want only Engineering", visible)
	}
}
