package twofa

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/tendant/simple-settings/pkg/account"
	"github.com/tendant/simple-settings/pkg/challenge"
	"github.com/tendant/simple-settings/pkg/errors"
	"github.com/tendant/simple-settings/pkg/notice"
)

func codesEqual(expected, got string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// newChallenge stores a fresh code under KeyPgpCode and returns it encrypted
// to publicKey.
func (m *Manager) newChallenge(ctx context.Context, session challenge.Session, publicKey string) (PgpChallenge, error) {
	code, err := m.newCode()
	if err != nil {
		return PgpChallenge{}, errors.InternalWrap(err, "failed to generate challenge code")
	}
	message, err := m.cipher.Encrypt(publicKey, code)
	if err != nil {
		return PgpChallenge{}, errors.InternalWrap(err, "failed to encrypt challenge")
	}
	if err := session.Put(ctx, KeyPgpCode, code); err != nil {
		return PgpChallenge{}, storeError(err, "put pgp code")
	}
	return PgpChallenge{Message: message}, nil
}

// ShowPgpKeyForm only checks that no 2FA method is active.
func (m *Manager) ShowPgpKeyForm(ctx context.Context, rec account.Record) error {
	if rec.TwoFactorEnabled() {
		return forbidden()
	}
	return nil
}

// ShowPgpEnroll stages publicKey and returns a challenge encrypted to it.
// Each call replaces any earlier candidate key and code.
func (m *Manager) ShowPgpEnroll(ctx context.Context, rec account.Record, session challenge.Session, in PgpKeyInput) (PgpChallenge, error) {
	if err := m.validator.Validate(in); err != nil {
		return PgpChallenge{}, err
	}
	if rec.TwoFactorEnabled() {
		return PgpChallenge{}, forbidden()
	}

	publicKey := strings.TrimSpace(in.PgpKey)
	if err := session.Put(ctx, KeyPgpKey, publicKey); err != nil {
		return PgpChallenge{}, storeError(err, "put pgp key")
	}
	ch, err := m.newChallenge(ctx, session, publicKey)
	if err != nil {
		return PgpChallenge{}, err
	}

	slog.Info("Issued pgp enrollment challenge", "loginID", rec.LoginID)
	return ch, nil
}

// ConfirmPgpEnroll activates the staged key when the decrypted code matches.
// A mismatch keeps the staged key and code.
func (m *Manager) ConfirmPgpEnroll(ctx context.Context, rec *account.Record, session challenge.Session, in PgpCodeInput) error {
	if err := m.validator.Validate(in); err != nil {
		return err
	}
	if rec.TwoFactorEnabled() {
		return forbidden()
	}

	publicKey, ok, err := session.Get(ctx, KeyPgpKey)
	if err != nil {
		return storeError(err, "get pgp key")
	}
	if !ok {
		return forbidden()
	}
	expected, ok, err := session.Get(ctx, KeyPgpCode)
	if err != nil {
		return storeError(err, "get pgp code")
	}

	if !ok || !codesEqual(expected, strings.TrimSpace(in.Code)) {
		slog.Info("Pgp enrollment code rejected", "loginID", rec.LoginID)
		return errors.InvalidCode(MsgPgpCheckFailed)
	}

	updated := *rec
	updated.PgpPublicKey = publicKey
	if err := m.save(ctx, rec, updated); err != nil {
		return err
	}
	if err := session.Forget(ctx, KeyPgpKey, KeyPgpCode); err != nil {
		slog.Warn("Failed to clear pending pgp challenge", "loginID", rec.LoginID, "error", err)
	}

	slog.Info("Pgp enabled", "loginID", rec.LoginID)
	m.notify(ctx, *rec, notice.Event{Type: notice.TwoFactorEnabled, Method: MethodPgp})
	return nil
}

// ShowPgpDisable returns a fresh challenge encrypted to the active key.
func (m *Manager) ShowPgpDisable(ctx context.Context, rec account.Record, session challenge.Session) (PgpChallenge, error) {
	if !rec.PgpEnabled() {
		return PgpChallenge{}, forbidden()
	}

	ch, err := m.newChallenge(ctx, session, rec.PgpPublicKey)
	if err != nil {
		return PgpChallenge{}, err
	}
	slog.Info("Issued pgp removal challenge", "loginID", rec.LoginID)
	return ch, nil
}

// ConfirmPgpDisable removes the active key when the decrypted code matches.
// The pending code is consumed whatever the outcome, so a failed attempt
// needs a new ShowPgpDisable.
func (m *Manager) ConfirmPgpDisable(ctx context.Context, rec *account.Record, session challenge.Session, in PgpCodeInput) error {
	if err := m.validator.Validate(in); err != nil {
		return err
	}
	if !rec.PgpEnabled() {
		return forbidden()
	}

	has, err := session.Has(ctx, KeyPgpCode)
	if err != nil {
		return storeError(err, "check pgp code")
	}
	if !has {
		return forbidden()
	}

	expected, ok, err := session.Pull(ctx, KeyPgpCode)
	if err != nil {
		return storeError(err, "pull pgp code")
	}
	if !ok || !codesEqual(expected, strings.TrimSpace(in.Code)) {
		slog.Info("Pgp removal code rejected", "loginID", rec.LoginID)
		return errors.InvalidCode(MsgPgpCheckFailed)
	}

	updated := *rec
	updated.PgpPublicKey = ""
	if err := m.save(ctx, rec, updated); err != nil {
		return err
	}

	slog.Info("Pgp disabled", "loginID", rec.LoginID)
	m.notify(ctx, *rec, notice.Event{Type: notice.TwoFactorDisabled, Method: MethodPgp})
	return nil
}
