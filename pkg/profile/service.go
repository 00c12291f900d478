package profile

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-settings/pkg/account"
	"github.com/tendant/simple-settings/pkg/errors"
	"github.com/tendant/simple-settings/pkg/notice"
	"github.com/tendant/simple-settings/pkg/passwordhash"
	"github.com/tendant/simple-settings/pkg/validation"
)

const (
	MsgPasswordInvalid = "Current password is invalid"
	MsgSettingsSaved   = "Settings are saved"
)

// ChangePasswordInput is the password change form
type ChangePasswordInput struct {
	CurrentPassword         string `json:"password" validate:"required"`
	NewPassword             string `json:"new_password" validate:"required,min=6"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,min=6,eqfield=NewPassword"`
}

// ProfileService provides profile-related operations
type ProfileService struct {
	repo      account.Repository
	hasher    passwordhash.Hasher
	validator *validation.Validator
	notifier  notice.Notifier
}

// Option configures a ProfileService
type Option func(*ProfileService)

// WithNotifier sends a notice after each password change
func WithNotifier(notifier notice.Notifier) Option {
	return func(s *ProfileService) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// NewProfileService creates a new ProfileService
func NewProfileService(repo account.Repository, hasher passwordhash.Hasher, opts ...Option) (*ProfileService, error) {
	v, err := validation.New()
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to create validator")
	}
	s := &ProfileService{
		repo:      repo,
		hasher:    hasher,
		validator: v,
		notifier:  notice.NoopNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ChangePassword replaces the password hash of rec after verifying the
// current password. On success rec is updated in place.
func (s *ProfileService) ChangePassword(ctx context.Context, rec *account.Record, in ChangePasswordInput) error {
	if err := s.validator.Validate(in); err != nil {
		return err
	}

	match, err := s.hasher.Verify(in.CurrentPassword, rec.PasswordHash)
	if err != nil {
		slog.Warn("Failed to verify current password", "loginID", rec.LoginID, "error", err)
		match = false
	}
	if !match {
		slog.Info("Invalid current password", "loginID", rec.LoginID)
		return errors.InvalidCredentials(MsgPasswordInvalid)
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		slog.Error("Failed to hash new password", "loginID", rec.LoginID, "error", err)
		return errors.InternalWrap(err, "failed to hash password")
	}

	updated := *rec
	updated.PasswordHash = hash
	if err := s.repo.Save(ctx, updated); err != nil {
		slog.Error("Failed to update password", "loginID", rec.LoginID, "error", err)
		return errors.InternalWrap(err, "failed to update password")
	}
	*rec = account.Reload(ctx, s.repo, updated)

	slog.Info("Password changed", "loginID", rec.LoginID)
	event := notice.Event{Type: notice.PasswordChanged, To: rec.Email, Account: rec.Email}
	if err := s.notifier.Notify(ctx, event); err != nil {
		slog.Warn("Failed to send password change notice", "loginID", rec.LoginID, "error", err)
	}
	return nil
}
