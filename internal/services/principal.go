package services

import (
	"context"
	"errors"
	"time"

	"github.com/jobdesk/apiserver/internal/mailer"
	"github.com/jobdesk/apiserver/internal/store"
	"github.com/jobdesk/apiserver/types"
)

// ErrOTPInvalid is returned when a submitted verification code does not
// match the pending one or has expired.
var ErrOTPInvalid = errors.New("invalid or expired otp")

// ErrAlreadyVerified is returned when verification is attempted on an
// account that already completed it.
var ErrAlreadyVerified = errors.New("email already verified")

// PrincipalRepository defines persistence operations shared by the three
// principal kinds.
type PrincipalRepository interface {
	GetByID(ctx context.Context, id int) (types.Principal, error)
	GetByEmail(ctx context.Context, email string) (types.Principal, error)
	Create(ctx context.Context, p types.Principal) (types.Principal, error)
	UpdateProfile(ctx context.Context, id int, name, email, image string) error
	SetOTP(ctx context.Context, id int, otp string, expires time.Time) error
	MarkVerified(ctx context.Context, id int) error
	SetPassword(ctx context.Context, id int, hash string) error
	EmailTaken(ctx context.Context, email string, excludeID int) (bool, error)
}

// ResumeStore persists resume references. Users only.
type ResumeStore interface {
	SetResume(ctx context.Context, id int, resume string) error
}

// OTPNotifier delivers a verification code to a principal's mailbox.
type OTPNotifier interface {
	NotifyOTP(ctx context.Context, to, name, otp string) error
}

// PrincipalService encapsulates account use-cases for one principal kind.
type PrincipalService struct {
	repo     PrincipalRepository
	notifier OTPNotifier
}

func NewPrincipalService(repo PrincipalRepository, notifier OTPNotifier) *PrincipalService {
	return &PrincipalService{repo: repo, notifier: notifier}
}

func (s *PrincipalService) GetByID(ctx context.Context, id int) (types.Principal, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PrincipalService) GetByEmail(ctx context.Context, email string) (types.Principal, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *PrincipalService) Create(ctx context.Context, p types.Principal) (types.Principal, error) {
	return s.repo.Create(ctx, p)
}

// IssueOTP stores a fresh verification code on the account and hands it to
// the notifier for delivery.
func (s *PrincipalService) IssueOTP(ctx context.Context, p types.Principal) error {
	otp, err := mailer.GenerateOTP()
	if err != nil {
		return err
	}
	expires := time.Now().Add(mailer.OTPTTLMinutes * time.Minute)
	if err := s.repo.SetOTP(ctx, p.ID, otp, expires); err != nil {
		return err
	}
	return s.notifier.NotifyOTP(ctx, p.Email, p.Name, otp)
}

// VerifyOTP checks the submitted code against the pending one and marks
// the account verified on match. Returns ErrOTPInvalid on mismatch or
// expiry, store.ErrNotFound when no account has the email.
func (s *PrincipalService) VerifyOTP(ctx context.Context, email, otp string) (types.Principal, error) {
	p, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return types.Principal{}, err
	}
	if p.EmailVerified {
		return types.Principal{}, ErrAlreadyVerified
	}
	if p.OTP == "" || p.OTP != otp || time.Now().After(p.OTPExpires) {
		return types.Principal{}, ErrOTPInvalid
	}
	if err := s.repo.MarkVerified(ctx, p.ID); err != nil {
		return types.Principal{}, err
	}
	p.EmailVerified = true
	p.OTP = ""
	return p, nil
}

// UpdateProfile rewrites name, email and image. A different account of
// the same kind already holding the email yields store.ErrConflict.
func (s *PrincipalService) UpdateProfile(ctx context.Context, id int, name, email, image string) (types.Principal, error) {
	taken, err := s.repo.EmailTaken(ctx, email, id)
	if err != nil {
		return types.Principal{}, err
	}
	if taken {
		return types.Principal{}, store.ErrConflict
	}
	if err := s.repo.UpdateProfile(ctx, id, name, email, image); err != nil {
		return types.Principal{}, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *PrincipalService) SetPassword(ctx context.Context, id int, hash string) error {
	return s.repo.SetPassword(ctx, id, hash)
}
