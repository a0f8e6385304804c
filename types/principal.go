package types

import "time"

// PrincipalKind distinguishes the three authenticable actor kinds.
type PrincipalKind string

const (
	KindUser    PrincipalKind = "user"
	KindCompany PrincipalKind = "company"
	KindAdmin   PrincipalKind = "admin"
)

// Admin roles.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// Principal represents an authenticable account: a user, a company, or an
// admin. The three kinds persist to separate tables but share one record
// shape; fields that do not apply to a kind are left at their zero value.
type Principal struct {
	// ID is the unique identifier of the principal within its kind.
	ID int `json:"id" db:"id"`

	// Kind identifies which principal table this record belongs to.
	Kind PrincipalKind `json:"-" db:"-"`

	// Name is the display name of the account.
	Name string `json:"name" db:"name"`

	// Email is the unique login email within the kind.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Image is the stored reference of the profile image or company logo.
	Image string `json:"image" db:"image"`

	// Resume is the stored reference of the uploaded resume. Users only.
	Resume string `json:"resume,omitempty" db:"resume"`

	// Role is the admin authorization level ("admin" or "superadmin").
	// Admins only.
	Role string `json:"role,omitempty" db:"role"`

	// Active gates admin login; a deactivated admin cannot authenticate.
	Active bool `json:"isActive,omitempty" db:"is_active"`

	// EmailVerified reports whether the OTP verification completed.
	// Admins are implicitly verified.
	EmailVerified bool `json:"isEmailVerified" db:"email_verified"`

	// OTP is the pending verification code, cleared on success.
	OTP string `json:"-" db:"otp_code"`

	// OTPExpires is the expiry instant of the pending code.
	OTPExpires time.Time `json:"-" db:"otp_expires"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CompanySummary is the subset of company fields embedded in job and
// application listings.
type CompanySummary struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Image string `json:"image" db:"image"`
}

// UserSummary is the subset of user fields embedded in applicant listings.
type UserSummary struct {
	ID     int    `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Email  string `json:"email" db:"email"`
	Image  string `json:"image" db:"image"`
	Resume string `json:"resume" db:"resume"`
}
