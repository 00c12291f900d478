package account

import (
	"time"

	"github.com/google/uuid"
)

// Record is the persisted security state of one login.
//
// At most one of TotpSecret and PgpPublicKey is non-empty at any time. The
// settings service enforces this with guard checks before every write; the
// Postgres schema additionally rejects rows with both set.
type Record struct {
	LoginID      uuid.UUID `json:"login_id"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"password_hash"`
	TotpSecret   string    `json:"totp_secret,omitempty"`
	PgpPublicKey string    `json:"pgp_public_key,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TotpEnabled reports whether TOTP 2FA is active.
func (r Record) TotpEnabled() bool {
	return r.TotpSecret != ""
}

// PgpEnabled reports whether PGP 2FA is active.
func (r Record) PgpEnabled() bool {
	return r.PgpPublicKey != ""
}

// TwoFactorEnabled reports whether any 2FA method is active.
func (r Record) TwoFactorEnabled() bool {
	return r.TotpEnabled() || r.PgpEnabled()
}
