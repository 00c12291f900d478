package twofa

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-settings/pkg/account"
	"github.com/tendant/simple-settings/pkg/challenge"
	"github.com/tendant/simple-settings/pkg/errors"
	"github.com/tendant/simple-settings/pkg/notice"
)

// ShowTotpEnroll returns the pending TOTP secret for this session, creating
// one on first call. Repeated calls return the same secret until it is
// confirmed or the session expires.
func (m *Manager) ShowTotpEnroll(ctx context.Context, rec account.Record, session challenge.Session) (TotpEnrollment, error) {
	if rec.TwoFactorEnabled() {
		return TotpEnrollment{}, forbidden()
	}

	secret, ok, err := session.Get(ctx, KeyTotpSecret)
	if err != nil {
		return TotpEnrollment{}, storeError(err, "get totp secret")
	}
	if !ok {
		secret, err = m.totp.GenerateSecret(m.issuer)
		if err != nil {
			return TotpEnrollment{}, errors.InternalWrap(err, "failed to generate totp secret")
		}
		if err := session.Put(ctx, KeyTotpSecret, secret); err != nil {
			return TotpEnrollment{}, storeError(err, "put totp secret")
		}
		slog.Info("Generated pending totp secret", "loginID", rec.LoginID)
	}

	qr, err := m.totp.RenderQR(m.issuer, m.issuer, secret, m.qrSize)
	if err != nil {
		return TotpEnrollment{}, errors.InternalWrap(err, "failed to render qr code")
	}
	return TotpEnrollment{Secret: secret, QRCode: qr}, nil
}

// ConfirmTotpEnroll activates TOTP when code matches the pending secret. A
// wrong code leaves the pending secret in place so the user can retry.
func (m *Manager) ConfirmTotpEnroll(ctx context.Context, rec *account.Record, session challenge.Session, in CodeInput) error {
	if err := m.validator.Validate(in); err != nil {
		return err
	}
	if rec.TwoFactorEnabled() {
		return forbidden()
	}

	secret, ok, err := session.Get(ctx, KeyTotpSecret)
	if err != nil {
		return storeError(err, "get totp secret")
	}
	if !ok {
		return forbidden()
	}

	if !m.totp.Verify(secret, in.Code) {
		slog.Info("Totp enrollment code rejected", "loginID", rec.LoginID)
		return errors.InvalidCode(MsgCodeInvalid)
	}

	updated := *rec
	updated.TotpSecret = secret
	if err := m.save(ctx, rec, updated); err != nil {
		return err
	}
	if err := session.Forget(ctx, KeyTotpSecret); err != nil {
		// record already active; a stale pending secret is harmless
		slog.Warn("Failed to clear pending totp secret", "loginID", rec.LoginID, "error", err)
	}

	slog.Info("Totp enabled", "loginID", rec.LoginID)
	m.notify(ctx, *rec, notice.Event{Type: notice.TwoFactorEnabled, Method: MethodTotp})
	return nil
}

// ShowTotpDisable only checks that TOTP is active.
func (m *Manager) ShowTotpDisable(ctx context.Context, rec account.Record) error {
	if !rec.TotpEnabled() {
		return forbidden()
	}
	return nil
}

// ConfirmTotpDisable removes TOTP when code matches the active secret.
func (m *Manager) ConfirmTotpDisable(ctx context.Context, rec *account.Record, in CodeInput) error {
	if err := m.validator.Validate(in); err != nil {
		return err
	}
	if !rec.TotpEnabled() {
		return forbidden()
	}

	if !m.totp.Verify(rec.TotpSecret, in.Code) {
		slog.Info("Totp removal code rejected", "loginID", rec.LoginID)
		return errors.InvalidCode(MsgCodeInvalid)
	}

	updated := *rec
	updated.TotpSecret = ""
	if err := m.save(ctx, rec, updated); err != nil {
		return err
	}

	slog.Info("Totp disabled", "loginID", rec.LoginID)
	m.notify(ctx, *rec, notice.Event{Type: notice.TwoFactorDisabled, Method: MethodTotp})
	return nil
}
