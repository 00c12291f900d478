package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

type ExtraClaims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// AuthUser is the authenticated caller, decoded from JWT claims.
type AuthUser struct {
	LoginId   string `json:"login_id,omitempty"`
	SessionId string `json:"sid,omitempty"`
	TokenId   string `json:"jti,omitempty"`
	Subject   string `json:"sub,omitempty"`
	// LoginID as UUID for direct use (parsed from LoginId string)
	LoginID     uuid.UUID   `json:"-"`
	ExtraClaims ExtraClaims `json:"extra_claims,omitempty"`
}

// SessionID scopes pending 2FA challenges. Tokens without a sid claim fall
// back to the token ID and then to the login ID.
func (i AuthUser) SessionID() string {
	switch {
	case i.SessionId != "":
		return i.SessionId
	case i.TokenId != "":
		return i.TokenId
	default:
		return i.LoginID.String()
	}
}

func (i AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("login_id", i.LoginId),
		slog.Any("roles", i.ExtraClaims.Roles),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "settings context value " + k.name
}

const (
	ACCESS_TOKEN_NAME = "access_token"
)

var (
	AuthUserKey = &contextKey{"AuthUser"}
)

func LoadFromMap[T any](m map[string]interface{}, c *T) error {
	data, err := json.Marshal(m)
	if err == nil {
		err = json.Unmarshal(data, c)
	}
	return err
}

// WithAuthUser returns a copy of ctx carrying user
func WithAuthUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, AuthUserKey, user)
}

// GetAuthUser returns the user stored by AuthUserMiddleware
func GetAuthUser(r *http.Request) (*AuthUser, bool) {
	user, ok := r.Context().Value(AuthUserKey).(*AuthUser)
	return user, ok && user != nil
}

// AuthUserMiddleware turns verified JWT claims into an AuthUser. The login
// ID is read from the login_id claim, or from sub when login_id is absent.
func AuthUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("missing or invalid JWT: %v", err), http.StatusUnauthorized)
			return
		}
		if claims == nil {
			http.Error(w, "missing JWT claims", http.StatusUnauthorized)
			return
		}

		authUser := new(AuthUser)
		if err := LoadFromMap(claims, authUser); err != nil {
			slog.Error("failed to parse standard claims", "error", err)
			http.Error(w, "invalid token claims", http.StatusUnauthorized)
			return
		}

		if authUser.LoginId == "" {
			authUser.LoginId = authUser.Subject
		}
		loginUUID, err := uuid.Parse(authUser.LoginId)
		if err != nil {
			slog.Warn("failed to parse login ID as UUID", "loginId", authUser.LoginId, "error", err)
			http.Error(w, "missing or invalid login ID in token", http.StatusUnauthorized)
			return
		}
		authUser.LoginID = loginUUID

		slog.Debug("authenticated user", "user", authUser)
		next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), authUser)))
	})
}

// Verifier checks the bearer header first, then the access token cookie
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)
}

func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(ACCESS_TOKEN_NAME)
	if err != nil {
		return ""
	}
	return cookie.Value
}
