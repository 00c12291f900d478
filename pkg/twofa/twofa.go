package twofa

import (
	"context"
	"log/slog"
	"time"

	"github.com/tendant/simple-settings/pkg/account"
	"github.com/tendant/simple-settings/pkg/errors"
	"github.com/tendant/simple-settings/pkg/notice"
	"github.com/tendant/simple-settings/pkg/pgp"
	"github.com/tendant/simple-settings/pkg/totp"
	"github.com/tendant/simple-settings/pkg/utils"
	"github.com/tendant/simple-settings/pkg/validation"
)

// Session keys for pending challenges
const (
	KeyTotpSecret = "2fa:totp:key"
	KeyPgpKey     = "2fa:pgp:pgp_key"
	KeyPgpCode    = "2fa:pgp:code"
)

// Method names reported by GetSecurityStatus
const (
	MethodNone = "none"
	MethodTotp = "totp"
	MethodPgp  = "pgp"
)

const (
	DefaultIssuer   = "simple-settings"
	PgpCodeLength   = 16
	forbiddenReason = "two-factor state does not allow this operation"
)

// Messages shown to the user after an operation
const (
	MsgCodeInvalid       = "Entered code is invalid"
	MsgPgpCheckFailed    = "Message verification failed. Please try again."
	MsgTwoFactorEnabled  = "2FA is switched on"
	MsgTwoFactorDisabled = "2FA is switched off"
)

// CodeInput carries a six digit TOTP code
type CodeInput struct {
	Code string `json:"code" validate:"required,len=6,number"`
}

// PgpKeyInput carries an ASCII-armored public key
type PgpKeyInput struct {
	PgpKey string `json:"pgp_key" validate:"required,pgp_public_key"`
}

// PgpCodeInput carries the decrypted PGP challenge
type PgpCodeInput struct {
	Code string `json:"code" validate:"required"`
}

// TotpEnrollment is what the user needs to add the account to an authenticator app
type TotpEnrollment struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

// PgpChallenge is a code encrypted to the user's key
type PgpChallenge struct {
	Message string `json:"message"`
}

// Status reports which 2FA method, if any, is active
type Status struct {
	Method      string    `json:"method"`
	TotpEnabled bool      `json:"totp_enabled"`
	PgpEnabled  bool      `json:"pgp_enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Manager runs the enrollment and removal flows for both 2FA methods.
//
// Every operation receives the caller's record and the challenge session of
// the current request. Records are only written on a successful confirm.
type Manager struct {
	repo      account.Repository
	totp      totp.Provider
	cipher    pgp.Cipher
	validator *validation.Validator
	notifier  notice.Notifier
	issuer    string
	qrSize    int
	newCode   func() (string, error)
}

// Option configures a Manager
type Option func(*Manager)

// WithIssuer sets the application title shown in authenticator apps
func WithIssuer(issuer string) Option {
	return func(m *Manager) {
		if issuer != "" {
			m.issuer = issuer
		}
	}
}

// WithQRSize sets the QR code edge length in pixels
func WithQRSize(size int) Option {
	return func(m *Manager) {
		if size > 0 {
			m.qrSize = size
		}
	}
}

// WithNotifier sends a notice after each successful enable or disable
func WithNotifier(notifier notice.Notifier) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithCodeGenerator replaces the PGP challenge code source
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(m *Manager) {
		m.newCode = gen
	}
}

// NewManager creates a Manager. The validator is built here so the
// pgp_public_key rule uses the same cipher that encrypts challenges.
func NewManager(repo account.Repository, totpProvider totp.Provider, cipher pgp.Cipher, opts ...Option) (*Manager, error) {
	v, err := validation.New(validation.WithPublicKeyCheck(cipher.IsValidPublicKey))
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to create validator")
	}

	m := &Manager{
		repo:      repo,
		totp:      totpProvider,
		cipher:    cipher,
		validator: v,
		notifier:  notice.NoopNotifier{},
		issuer:    DefaultIssuer,
		qrSize:    totp.DefaultQRSize,
		newCode: func() (string, error) {
			return utils.GenerateRandomString(PgpCodeLength)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GetSecurityStatus reports the active method of rec
func (m *Manager) GetSecurityStatus(rec account.Record) Status {
	status := Status{
		Method:      MethodNone,
		TotpEnabled: rec.TotpEnabled(),
		PgpEnabled:  rec.PgpEnabled(),
		UpdatedAt:   rec.UpdatedAt,
	}
	switch {
	case rec.TotpEnabled():
		status.Method = MethodTotp
	case rec.PgpEnabled():
		status.Method = MethodPgp
	}
	return status
}

func forbidden() *errors.Error {
	return errors.Forbidden(forbiddenReason)
}

// save persists updated and replaces rec with the stored copy, which carries
// the UpdatedAt assigned by the repository.
func (m *Manager) save(ctx context.Context, rec *account.Record, updated account.Record) error {
	if err := m.repo.Save(ctx, updated); err != nil {
		slog.Error("Failed to save security record", "loginID", rec.LoginID, "error", err)
		return errors.InternalWrap(err, "failed to save security record")
	}
	*rec = account.Reload(ctx, m.repo, updated)
	return nil
}

// notify never fails the operation; the change is already persisted.
func (m *Manager) notify(ctx context.Context, rec account.Record, event notice.Event) {
	event.To = rec.Email
	event.Account = rec.Email
	if err := m.notifier.Notify(ctx, event); err != nil {
		slog.Warn("Failed to send security notice", "loginID", rec.LoginID, "notice", event.Type, "error", err)
	}
}

func storeError(err error, op string) error {
	slog.Error("Challenge store failure", "operation", op, "error", err)
	return errors.InternalWrap(err, "challenge store unavailable")
}
