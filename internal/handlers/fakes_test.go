package handlers

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jobdesk/apiserver/internal/store"
	"github.com/jobdesk/apiserver/types"
)

type fakePrincipalRepo struct {
	kind   types.PrincipalKind
	nextID int
	byID   map[int]types.Principal
}

func newFakePrincipalRepo(kind types.PrincipalKind) *fakePrincipalRepo {
	return &fakePrincipalRepo{kind: kind, byID: map[int]types.Principal{}}
}

func (f *fakePrincipalRepo) GetByID(ctx context.Context, id int) (types.Principal, error) {
	p, ok := f.byID[id]
	if !ok {
		return types.Principal{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakePrincipalRepo) GetByEmail(ctx context.Context, email string) (types.Principal, error) {
	for _, p := range f.byID {
		if p.Email == email {
			return p, nil
		}
	}
	return types.Principal{}, store.ErrNotFound
}

func (f *fakePrincipalRepo) Create(ctx context.Context, p types.Principal) (types.Principal, error) {
	for _, existing := range f.byID {
		if existing.Email == p.Email {
			return types.Principal{}, store.ErrConflict
		}
	}
	f.nextID++
	p.ID = f.nextID
	p.Kind = f.kind
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakePrincipalRepo) UpdateProfile(ctx context.Context, id int, name, email, image string) error {
	p, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Name, p.Email, p.Image = name, email, image
	f.byID[id] = p
	return nil
}

func (f *fakePrincipalRepo) SetOTP(ctx context.Context, id int, otp string, expires time.Time) error {
	p, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.OTP = otp
	p.OTPExpires = expires
	f.byID[id] = p
	return nil
}

func (f *fakePrincipalRepo) MarkVerified(ctx context.Context, id int) error {
	p, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.EmailVerified = true
	p.OTP = ""
	f.byID[id] = p
	return nil
}

func (f *fakePrincipalRepo) SetPassword(ctx context.Context, id int, hash string) error {
	p, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.PasswordHash = hash
	f.byID[id] = p
	return nil
}

func (f *fakePrincipalRepo) EmailTaken(ctx context.Context, email string, excludeID int) (bool, error) {
	for _, p := range f.byID {
		if p.Email == email && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePrincipalRepo) SetResume(ctx context.Context, id int, resume string) error {
	p, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Resume = resume
	f.byID[id] = p
	return nil
}

type fakeNotifier struct {
	sent []string // otp codes, in dispatch order
}

func (f *fakeNotifier) NotifyOTP(ctx context.Context, to, name, otp string) error {
	f.sent = append(f.sent, otp)
	return nil
}

type fakeObjectStorage struct {
	objects map[string][]byte
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: map[string][]byte{}}
}

func (f *fakeObjectStorage) EnsureBucket(ctx context.Context) error { return nil }

func (f *fakeObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStorage) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStorage) Bucket() string { return "test" }

type fakeCategoryRepo struct {
	nextID    int
	byID      map[int]types.Category
	jobsUsing map[int]int // category id -> live job count
	getErr    error       // forced failure for Get
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{byID: map[int]types.Category{}, jobsUsing: map[int]int{}}
}

func (f *fakeCategoryRepo) Get(ctx context.Context, id int) (types.Category, error) {
	if f.getErr != nil {
		return types.Category{}, f.getErr
	}
	c, ok := f.byID[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeCategoryRepo) GetByType(ctx context.Context, categoryType string) (types.Category, error) {
	for _, c := range f.byID {
		if c.Type == categoryType {
			return c, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (f *fakeCategoryRepo) Create(ctx context.Context, categoryType string) (types.Category, error) {
	for _, c := range f.byID {
		if c.Type == categoryType {
			return types.Category{}, store.ErrConflict
		}
	}
	f.nextID++
	c := types.Category{ID: f.nextID, Type: categoryType, Visible: true}
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, id int, categoryType string, visible bool) (types.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	for _, other := range f.byID {
		if other.ID != id && other.Type == categoryType {
			return types.Category{}, store.ErrConflict
		}
	}
	c.Type = categoryType
	c.Visible = visible
	f.byID[id] = c
	return c, nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	if f.jobsUsing[id] > 0 {
		return store.ErrInUse
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCategoryRepo) ToggleVisibility(ctx context.Context, id int) (types.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	c.Visible = !c.Visible
	f.byID[id] = c
	return c, nil
}

func (f *fakeCategoryRepo) List(ctx context.Context, visibleOnly bool) ([]types.Category, error) {
	out := make([]types.Category, 0, len(f.byID))
	for _, c := range f.byID {
		if visibleOnly && !c.Visible {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

type fakeJobRepo struct {
	nextID       int
	byID         map[int]types.Job
	applications map[int]int // job id -> application count
	usageCounts  map[int]int // category id -> usage count
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		byID:         map[int]types.Job{},
		applications: map[int]int{},
		usageCounts:  map[int]int{},
	}
}

func (f *fakeJobRepo) Get(ctx context.Context, id int) (types.Job, error) {
	j, ok := f.byID[id]
	if !ok {
		return types.Job{}, store.ErrNotFound
	}
	return j, nil
}

func (f *fakeJobRepo) Create(ctx context.Context, job types.Job) (types.Job, error) {
	f.nextID++
	job.ID = f.nextID
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	f.byID[job.ID] = job
	f.usageCounts[job.CategoryID]++
	return job, nil
}

func (f *fakeJobRepo) Update(ctx context.Context, job types.Job) (types.Job, error) {
	old, ok := f.byID[job.ID]
	if !ok {
		return types.Job{}, store.ErrNotFound
	}
	if old.CategoryID != job.CategoryID {
		f.usageCounts[old.CategoryID]--
		f.usageCounts[job.CategoryID]++
	}
	job.UpdatedAt = time.Now()
	f.byID[job.ID] = job
	return job, nil
}

func (f *fakeJobRepo) Delete(ctx context.Context, id int) error {
	job, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	if f.applications[id] > 0 {
		return store.ErrInUse
	}
	delete(f.byID, id)
	f.usageCounts[job.CategoryID]--
	return nil
}

func (f *fakeJobRepo) ToggleVisibility(ctx context.Context, id int) (bool, error) {
	job, ok := f.byID[id]
	if !ok {
		return false, store.ErrNotFound
	}
	job.Visible = !job.Visible
	f.byID[id] = job
	return job.Visible, nil
}

func (f *fakeJobRepo) ListPublic(ctx context.Context) ([]types.PublicJob, error) {
	out := make([]types.PublicJob, 0)
	for _, j := range f.sorted() {
		if !j.Visible {
			continue
		}
		out = append(out, types.PublicJob{Job: j})
	}
	return out, nil
}

func (f *fakeJobRepo) ListForCompany(ctx context.Context, companyID int, filter types.JobFilter) ([]types.CompanyJob, int, error) {
	matched := make([]types.CompanyJob, 0)
	for _, j := range f.sorted() {
		if j.CompanyID != companyID {
			continue
		}
		if filter.Visible != nil && j.Visible != *filter.Visible {
			continue
		}
		if filter.CategoryID > 0 && j.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(j.Title), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, types.CompanyJob{Job: j, Applicants: f.applications[j.ID]})
	}

	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeJobRepo) sorted() []types.Job {
	out := make([]types.Job, 0, len(f.byID))
	for _, j := range f.byID {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeApplicationRepo struct {
	nextID int
	byID   map[int]types.Application
	jobs   map[int]types.JobSummary  // job id -> joined job fields
	users  map[int]types.UserSummary // user id -> joined applicant fields
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{
		byID:  map[int]types.Application{},
		jobs:  map[int]types.JobSummary{},
		users: map[int]types.UserSummary{},
	}
}

// matchesSearch mirrors the store's company-side search predicate:
// applicant name, job title and the job's location subfields.
func (f *fakeApplicationRepo) matchesSearch(a types.Application, search string) bool {
	search = strings.ToLower(search)
	job := f.jobs[a.JobID]
	user := f.users[a.UserID]
	for _, field := range []string{
		user.Name,
		job.Title,
		job.Location.City,
		job.Location.State,
		job.Location.Country,
	} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func (f *fakeApplicationRepo) Create(ctx context.Context, userID, jobID, companyID int) (types.Application, error) {
	for _, a := range f.byID {
		if a.UserID == userID && a.JobID == jobID {
			return types.Application{}, store.ErrConflict
		}
	}
	f.nextID++
	now := time.Now()
	a := types.Application{
		ID:          f.nextID,
		JobID:       jobID,
		UserID:      userID,
		CompanyID:   companyID,
		Status:      types.StatusPending,
		AppliedDate: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.byID[a.ID] = a
	return a, nil
}

func (f *fakeApplicationRepo) Get(ctx context.Context, id int) (types.Application, error) {
	a, ok := f.byID[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeApplicationRepo) Exists(ctx context.Context, userID, jobID int) (bool, error) {
	for _, a := range f.byID {
		if a.UserID == userID && a.JobID == jobID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeApplicationRepo) ListForUser(ctx context.Context, userID int) ([]types.UserApplication, error) {
	out := make([]types.UserApplication, 0)
	for _, a := range f.byID {
		if a.UserID == userID {
			out = append(out, types.UserApplication{Application: a})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeApplicationRepo) ListForCompany(ctx context.Context, companyID int, filter types.ApplicationFilter) ([]types.CompanyApplication, int, error) {
	matched := make([]types.CompanyApplication, 0)
	for _, a := range f.byID {
		if a.CompanyID != companyID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !f.matchesSearch(a, filter.Search) {
			continue
		}
		matched = append(matched, types.CompanyApplication{
			Application: a,
			Job:         f.jobs[a.JobID],
			User:        f.users[a.UserID],
		})
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeApplicationRepo) ChangeStatus(ctx context.Context, id int, status string) (types.Application, error) {
	a, ok := f.byID[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	f.byID[id] = a
	return a, nil
}
