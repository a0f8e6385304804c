package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/jobdesk/apiserver/internal/services"
	"github.com/jobdesk/apiserver/internal/storage"
	"github.com/jobdesk/apiserver/internal/store"
	"github.com/jobdesk/apiserver/types"
)

const defaultTokenTTL = 24 * time.Hour
const minPasswordLength = 6

// KindPolicy captures the per-kind rules of the shared account flow.
type KindPolicy struct {
	Kind    types.PrincipalKind
	Label   string
	DataKey string

	// RequireImage makes registration demand an image upload.
	RequireImage bool
	// OTPGated withholds the token until email verification completes.
	OTPGated bool
	// TokenOnRegister issues a token directly at registration.
	TokenOnRegister bool
	// GateOnActive rejects authentication for deactivated accounts.
	GateOnActive bool
}

var (
	UserPolicy = KindPolicy{
		Kind: types.KindUser, Label: "User", DataKey: "userData",
		RequireImage: true, OTPGated: true,
	}
	CompanyPolicy = KindPolicy{
		Kind: types.KindCompany, Label: "Company", DataKey: "companyData",
		RequireImage: true, OTPGated: true,
	}
	AdminPolicy = KindPolicy{
		Kind: types.KindAdmin, Label: "Admin", DataKey: "adminData",
		TokenOnRegister: true, GateOnActive: true,
	}
)

// AuthHandler provides the account endpoints of one principal kind.
type AuthHandler struct {
	svc      *services.PrincipalService
	resumes  services.ResumeStore
	uploads  *storage.Storage
	policy   KindPolicy
	secret   []byte
	tokenTTL time.Duration
	dev      bool
}

// NewAuthHandler constructs an AuthHandler. resumes is nil for kinds
// without resume uploads.
func NewAuthHandler(svc *services.PrincipalService, resumes services.ResumeStore, uploads *storage.Storage, policy KindPolicy, jwtSecret string, dev bool) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		resumes:  resumes,
		uploads:  uploads,
		policy:   policy,
		secret:   []byte(jwtSecret),
		tokenTTL: defaultTokenTTL,
		dev:      dev,
	}
}

// Routes registers the account endpoints on the given router.
func (h *AuthHandler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	if h.policy.OTPGated {
		r.Post("/verify-otp", h.VerifyOTP)
	}
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/data", h.Data)
		r.Put("/update-profile", h.UpdateProfile)
		r.Put("/change-password", h.ChangePassword)
		if h.resumes != nil {
			r.Post("/upload-resume", h.UploadResume)
		}
	})
}

// RequireAuth resolves the bearer token to a live principal and attaches
// it to the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := requestToken(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, failure("Unauthorized: token missing"))
			return
		}

		id, err := parseTokenSubject(tokenString, h.secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeJSON(w, http.StatusUnauthorized, failure("Token expired"))
				return
			}
			writeJSON(w, http.StatusUnauthorized, failure("Invalid token"))
			return
		}

		p, err := h.svc.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, failure(fmt.Sprintf("%s not found", h.policy.Label)))
				return
			}
			writeInternal(w, h.dev, "Failed to authenticate", err)
			return
		}
		if h.policy.GateOnActive && !p.Active {
			writeJSON(w, http.StatusForbidden, failure("Account is deactivated"))
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

// Register creates an account. User and company registrations are
// multipart with a mandatory image and start unverified with a fresh OTP;
// admin registration is JSON and returns a token immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var (
		name, email, password, role string
		imageFile                   *multipart.FileHeader
	)

	if h.policy.RequireImage {
		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize)
		if err := r.ParseMultipartForm(storage.MaxUploadSize); err != nil {
			writeJSON(w, http.StatusBadRequest, failure("Invalid form data"))
			return
		}
		name = strings.TrimSpace(r.FormValue("name"))
		email = strings.TrimSpace(r.FormValue("email"))
		password = r.FormValue("password")
		if files := r.MultipartForm.File["image"]; len(files) > 0 {
			imageFile = files[0]
		}
	} else {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, failure("Invalid request body"))
			return
		}
		name = strings.TrimSpace(req.Name)
		email = strings.TrimSpace(req.Email)
		password = req.Password
		role = strings.TrimSpace(req.Role)
	}

	if name == "" || email == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, failure("Name, email and password are required"))
		return
	}
	if h.policy.Kind == types.KindAdmin {
		if len(password) < minPasswordLength {
			writeJSON(w, http.StatusBadRequest, failure("Password must be at least 6 characters"))
			return
		}
		if role == "" {
			role = types.RoleAdmin
		}
		if role != types.RoleAdmin && role != types.RoleSuperAdmin {
			writeJSON(w, http.StatusBadRequest, failure("Invalid role"))
			return
		}
	}

	if _, err := h.svc.GetByEmail(r.Context(), email); err == nil {
		writeJSON(w, http.StatusConflict, failure(fmt.Sprintf("%s already exists", h.policy.Label)))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeInternal(w, h.dev, "Registration failed", err)
		return
	}

	imageKey := ""
	if h.policy.RequireImage {
		if imageFile == nil {
			writeJSON(w, http.StatusBadRequest, failure("Image is required"))
			return
		}
		if !storage.IsImageType(imageFile.Header.Get("Content-Type")) {
			writeJSON(w, http.StatusBadRequest, failure("Only image files are allowed"))
			return
		}
		key, err := h.uploads.SaveUpload(r.Context(), storage.FolderImages, imageFile)
		if err != nil {
			writeInternal(w, h.dev, "Failed to store image", err)
			return
		}
		imageKey = key
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.discardUpload(r, imageKey)
		writeInternal(w, h.dev, "Registration failed", err)
		return
	}

	p, err := h.svc.Create(r.Context(), types.Principal{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Image:        imageKey,
		Role:         role,
		Active:       h.policy.GateOnActive,
	})
	if err != nil {
		h.discardUpload(r, imageKey)
		if errors.Is(err, store.ErrConflict) {
			writeJSON(w, http.StatusConflict, failure(fmt.Sprintf("%s already exists", h.policy.Label)))
			return
		}
		writeInternal(w, h.dev, "Registration failed", err)
		return
	}

	if h.policy.OTPGated {
		// Mail dispatch is fire-and-forget; a failure never unwinds the
		// registration that triggered it.
		if err := h.svc.IssueOTP(r.Context(), p); err != nil {
			slog.Error("failed to issue otp", "kind", h.policy.Kind, "email", p.Email, "error", err)
		}
		writeJSON(w, http.StatusCreated,
			success("Registration successful. An OTP has been sent to your email for verification.").
				with(h.policy.DataKey, p))
		return
	}

	token, err := issueToken(p.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeInternal(w, h.dev, "Registration failed", err)
		return
	}
	writeJSON(w, http.StatusCreated,
		success(fmt.Sprintf("%s registered successfully", h.policy.Label)).
			with("token", token).
			with(h.policy.DataKey, p))
}

// Login authenticates by email and password. Unverified accounts get a
// fresh OTP and an HTTP 200 soft fail carrying isEmailVerified:false so
// clients can branch into the verification flow.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid request body"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, failure("Email and password are required"))
		return
	}

	p, err := h.svc.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failure(fmt.Sprintf("%s not found", h.policy.Label)))
			return
		}
		writeInternal(w, h.dev, "Login failed", err)
		return
	}

	if h.policy.GateOnActive && !p.Active {
		writeJSON(w, http.StatusForbidden, failure("Account is deactivated"))
		return
	}

	if h.policy.OTPGated && !p.EmailVerified {
		if err := h.svc.IssueOTP(r.Context(), p); err != nil {
			slog.Error("failed to issue otp", "kind", h.policy.Kind, "email", p.Email, "error", err)
		}
		writeJSON(w, http.StatusOK,
			failure("Email not verified. A new OTP has been sent to your email.").
				with("isEmailVerified", false))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, failure("Invalid credentials"))
		return
	}

	token, err := issueToken(p.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeInternal(w, h.dev, "Login failed", err)
		return
	}
	writeJSON(w, http.StatusOK,
		success("Login successful").
			with("token", token).
			with(h.policy.DataKey, p))
}

// VerifyOTP completes email verification and issues the first token.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid request body"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.OTP = strings.TrimSpace(req.OTP)
	if req.Email == "" || req.OTP == "" {
		writeJSON(w, http.StatusBadRequest, failure("Email and OTP are required"))
		return
	}

	p, err := h.svc.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, failure(fmt.Sprintf("%s not found", h.policy.Label)))
		case errors.Is(err, services.ErrAlreadyVerified):
			writeJSON(w, http.StatusBadRequest, failure("Email already verified"))
		case errors.Is(err, services.ErrOTPInvalid):
			writeJSON(w, http.StatusBadRequest, failure("Invalid or expired OTP"))
		default:
			writeInternal(w, h.dev, "Verification failed", err)
		}
		return
	}

	token, err := issueToken(p.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeInternal(w, h.dev, "Verification failed", err)
		return
	}
	writeJSON(w, http.StatusOK,
		success("Email verified successfully").
			with("token", token).
			with(h.policy.DataKey, p))
}

// Logout is stateless: tokens are not revoked server-side. A supplied
// token is decoded for the log only; the endpoint always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if tokenString, err := requestToken(r); err == nil {
		if id, err := parseTokenSubject(tokenString, h.secret); err == nil {
			slog.Info("logout", "kind", h.policy.Kind, "principal_id", id)
		}
	}
	writeJSON(w, http.StatusOK, success("Logged out successfully"))
}

// Data returns the authenticated principal.
func (h *AuthHandler) Data(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}
	writeJSON(w, http.StatusOK,
		success("Data fetched successfully").with(h.policy.DataKey, p))
}

// UpdateProfile rewrites name and email, with an optional replacement
// image upload.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize)
	if err := r.ParseMultipartForm(storage.MaxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid form data"))
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	if name == "" || email == "" {
		writeJSON(w, http.StatusBadRequest, failure("Name and email are required"))
		return
	}

	imageKey := p.Image
	newUpload := ""
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		file := files[0]
		if !storage.IsImageType(file.Header.Get("Content-Type")) {
			writeJSON(w, http.StatusBadRequest, failure("Only image files are allowed"))
			return
		}
		key, err := h.uploads.SaveUpload(r.Context(), storage.FolderImages, file)
		if err != nil {
			writeInternal(w, h.dev, "Failed to store image", err)
			return
		}
		imageKey = key
		newUpload = key
	}

	updated, err := h.svc.UpdateProfile(r.Context(), p.ID, name, email, imageKey)
	if err != nil {
		h.discardUpload(r, newUpload)
		switch {
		case errors.Is(err, store.ErrConflict):
			writeJSON(w, http.StatusConflict, failure("Email already in use"))
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, failure(fmt.Sprintf("%s not found", h.policy.Label)))
		default:
			writeInternal(w, h.dev, "Failed to update profile", err)
		}
		return
	}

	writeJSON(w, http.StatusOK,
		success("Profile updated successfully").with(h.policy.DataKey, updated))
}

// ChangePassword verifies the current password and stores a new hash.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid request body"))
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, failure("Current and new password are required"))
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, failure("Password must be at least 6 characters"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeJSON(w, http.StatusUnauthorized, failure("Current password is incorrect"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeInternal(w, h.dev, "Failed to change password", err)
		return
	}
	if err := h.svc.SetPassword(r.Context(), p.ID, string(hashed)); err != nil {
		writeInternal(w, h.dev, "Failed to change password", err)
		return
	}

	writeJSON(w, http.StatusOK, success("Password changed successfully"))
}

// UploadResume stores a resume document and saves its reference.
func (h *AuthHandler) UploadResume(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, failure("Unauthorized"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize)
	if err := r.ParseMultipartForm(storage.MaxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, failure("Invalid form data"))
		return
	}
	files := r.MultipartForm.File["resume"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, failure("Resume file is required"))
		return
	}
	file := files[0]
	if !storage.IsResumeType(file.Header.Get("Content-Type")) {
		writeJSON(w, http.StatusBadRequest, failure("Only PDF and Word documents are allowed"))
		return
	}

	key, err := h.uploads.SaveUpload(r.Context(), storage.FolderResumes, file)
	if err != nil {
		writeInternal(w, h.dev, "Failed to store resume", err)
		return
	}
	if err := h.resumes.SetResume(r.Context(), p.ID, key); err != nil {
		h.discardUpload(r, key)
		writeInternal(w, h.dev, "Failed to save resume", err)
		return
	}

	writeJSON(w, http.StatusOK,
		success("Resume uploaded successfully").with("resumeUrl", key))
}

// discardUpload removes an object whose owning record failed to persist.
func (h *AuthHandler) discardUpload(r *http.Request, key string) {
	if key == "" || h.uploads == nil {
		return
	}
	if err := h.uploads.Delete(r.Context(), key); err != nil {
		slog.Error("failed to discard orphaned upload", "key", key, "error", err)
	}
}
