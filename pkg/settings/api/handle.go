package api

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-settings/pkg/account"
	"github.com/tendant/simple-settings/pkg/challenge"
	"github.com/tendant/simple-settings/pkg/client"
	"github.com/tendant/simple-settings/pkg/errors"
	"github.com/tendant/simple-settings/pkg/profile"
	"github.com/tendant/simple-settings/pkg/twofa"
)

// Handler serves the account security settings pages as JSON
type Handler struct {
	repo    account.Repository
	store   challenge.Store
	twoFa   *twofa.Manager
	profile *profile.ProfileService
}

// NewHandler creates a new settings API handler
func NewHandler(repo account.Repository, store challenge.Store, twoFa *twofa.Manager, profileService *profile.ProfileService) *Handler {
	return &Handler{
		repo:    repo,
		store:   store,
		twoFa:   twoFa,
		profile: profileService,
	}
}

// RegisterRoutes registers the settings routes. The caller is expected to
// install client.AuthUserMiddleware in front of them.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route(PathSettings, func(r chi.Router) {
		r.Get("/", h.Index)
		r.Route("/security", func(r chi.Router) {
			r.Get("/", h.GetSecurity)
			r.Post("/", h.ChangePassword)

			r.Get("/2fa/otp/enable", h.ShowTotpEnroll)
			r.Post("/2fa/otp/enable", h.ConfirmTotpEnroll)
			r.Get("/2fa/otp/disable", h.ShowTotpDisable)
			r.Post("/2fa/otp/disable", h.ConfirmTotpDisable)

			r.Get("/2fa/pgp/enable", h.ShowPgpKeyForm)
			r.Post("/2fa/pgp/enable", h.ShowPgpEnroll)
			r.Post("/2fa/pgp/check", h.ConfirmPgpEnroll)
			r.Get("/2fa/pgp/disable", h.ShowPgpDisable)
			r.Post("/2fa/pgp/disable", h.ConfirmPgpDisable)
		})
	})
}

// Index handles GET /settings
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, PathSecurity, http.StatusFound)
}

// GetSecurity handles GET /settings/security
func (h *Handler) GetSecurity(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, h.twoFa.GetSecurityStatus(rec))
}

// ChangePassword handles POST /settings/security
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	var in profile.ChangePasswordInput
	if !decode(w, r, &in) {
		return
	}
	if err := h.profile.ChangePassword(r.Context(), &rec, in); err != nil {
		writeError(w, r, err, PathSecurity)
		return
	}
	writeFlash(w, r, LevelSuccess, profile.MsgSettingsSaved, PathSecurity)
}

// ShowTotpEnroll handles GET /settings/security/2fa/otp/enable
func (h *Handler) ShowTotpEnroll(w http.ResponseWriter, r *http.Request) {
	user, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	enrollment, err := h.twoFa.ShowTotpEnroll(r.Context(), rec, h.session(user))
	if err != nil {
		writeError(w, r, err, PathSecurity)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, enrollment)
}

// ConfirmTotpEnroll handles POST /settings/security/2fa/otp/enable
func (h *Handler) ConfirmTotpEnroll(w http.ResponseWriter, r *http.Request) {
	user, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	var in twofa.CodeInput
	if !decode(w, r, &in) {
		return
	}
	if err := h.twoFa.ConfirmTotpEnroll(r.Context(), &rec, h.session(user), in); err != nil {
		writeError(w, r, err, PathTotpEnable)
		return
	}
	writeFlash(w, r, LevelSuccess, twofa.MsgTwoFactorEnabled, PathSecurity)
}

// ShowTotpDisable handles GET /settings/security/2fa/otp/disable
func (h *Handler) ShowTotpDisable(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	if err := h.twoFa.ShowTotpDisable(r.Context(), rec); err != nil {
		writeError(w, r, err, PathSecurity)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, h.twoFa.GetSecurityStatus(rec))
}

// ConfirmTotpDisable handles POST /settings/security/2fa/otp/disable
func (h *Handler) ConfirmTotpDisable(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	var in twofa.CodeInput
	if !decode(w, r, &in) {
		return
	}
	if err := h.twoFa.ConfirmTotpDisable(r.Context(), &rec, in); err != nil {
		writeError(w, r, err, PathTotpDisable)
		return
	}
	writeFlash(w, r, LevelSuccess, twofa.MsgTwoFactorDisabled, PathSecurity)
}

// ShowPgpKeyForm handles GET /settings/security/2fa/pgp/enable
func (h *Handler) ShowPgpKeyForm(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	if err := h.twoFa.ShowPgpKeyForm(r.Context(), rec); err != nil {
		writeError(w, r, err, PathSecurity)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, PgpKeyFormResponse{Field: "pgp_key", Format: "ascii-armored public key"})
}

// ShowPgpEnroll handles POST /settings/security/2fa/pgp/enable
func (h *Handler) ShowPgpEnroll(w http.ResponseWriter, r *http.Request) {
	user, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	var in twofa.PgpKeyInput
	if !decode(w, r, &in) {
		return
	}
	msg, err := h.twoFa.ShowPgpEnroll(r.Context(), rec, h.session(user), in)
	if err != nil {
		writeError(w, r, err, PathPgpEnable)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, msg)
}

// ConfirmPgpEnroll handles POST /settings/security/2fa/pgp/check
func (h *Handler) ConfirmPgpEnroll(w http.ResponseWriter, r *http.Request) {
	user, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	var in twofa.PgpCodeInput
	if !decode(w, r, &in) {
		return
	}
	if err := h.twoFa.ConfirmPgpEnroll(r.Context(), &rec, h.session(user), in); err != nil {
		writeError(w, r, err, PathPgpEnable)
		return
	}
	writeFlash(w, r, LevelSuccess, twofa.MsgTwoFactorEnabled, PathSecurity)
}

// ShowPgpDisable handles GET /settings/security/2fa/pgp/disable
func (h *Handler) ShowPgpDisable(w http.ResponseWriter, r *http.Request) {
	user, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	msg, err := h.twoFa.ShowPgpDisable(r.Context(), rec, h.session(user))
	if err != nil {
		writeError(w, r, err, PathSecurity)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, msg)
}

// ConfirmPgpDisable handles POST /settings/security/2fa/pgp/disable.
// A wrong code consumes the challenge, so the retry starts from the overview.
func (h *Handler) ConfirmPgpDisable(w http.ResponseWriter, r *http.Request) {
	user, rec, ok := h.loadRecord(w, r)
	if !ok {
		return
	}
	var in twofa.PgpCodeInput
	if !decode(w, r, &in) {
		return
	}
	if err := h.twoFa.ConfirmPgpDisable(r.Context(), &rec, h.session(user), in); err != nil {
		writeError(w, r, err, PathSecurity)
		return
	}
	writeFlash(w, r, LevelSuccess, twofa.MsgTwoFactorDisabled, PathSecurity)
}

func (h *Handler) session(user *client.AuthUser) challenge.Session {
	return challenge.Bind(h.store, user.SessionID())
}

// loadRecord writes the error response itself and reports false on failure.
func (h *Handler) loadRecord(w http.ResponseWriter, r *http.Request) (*client.AuthUser, account.Record, bool) {
	user, ok := client.GetAuthUser(r)
	if !ok {
		slog.Error("Failed getting AuthUser")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: http.StatusText(http.StatusUnauthorized)})
		return nil, account.Record{}, false
	}

	rec, err := h.repo.GetByLoginID(r.Context(), user.LoginID)
	if err != nil {
		if stderrors.Is(err, account.ErrRecordNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{Error: "Security settings not found"})
			return nil, account.Record{}, false
		}
		slog.Error("Failed to load security record", "loginID", user.LoginID, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		return nil, account.Record{}, false
	}
	return user, rec, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		slog.Warn("Failed to decode request body", "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

func writeFlash(w http.ResponseWriter, r *http.Request, level, message, redirect string) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, FlashResponse{Level: level, Message: message, Redirect: redirect})
}

// writeError maps a structured error to a response. Wrong passwords and
// codes become a warning that sends the user back to retry.
func writeError(w http.ResponseWriter, r *http.Request, err error, retry string) {
	code := errors.GetCode(err)
	status := errors.MapErrorCodeToHTTPStatus(code)

	switch code {
	case errors.ErrCodeValidationFailed:
		render.Status(r, status)
		render.JSON(w, r, ValidationErrorResponse{Message: "validation failed", Errors: errors.GetDetails(err)})
	case errors.ErrCodeInvalidCredentials, errors.ErrCode2FAInvalid:
		message := err.Error()
		var appErr *errors.Error
		if stderrors.As(err, &appErr) {
			message = appErr.Message
		}
		writeFlash(w, r, LevelWarning, message, retry)
	case errors.ErrCodeForbidden, errors.ErrCodeNotFound:
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: http.StatusText(status)})
	default:
		slog.Error("Settings request failed", "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}
