package client

import (
	"log/slog"
	"net/http"
)

// RequireAuth returns 401 unless AuthUserMiddleware stored a user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetAuthUser(r); !ok {
			slog.Debug("Unauthenticated request to protected resource", "path", r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
