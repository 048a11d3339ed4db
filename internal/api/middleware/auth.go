package middleware

import (
	"net/http"
	"strings"

	"github.com/hszk-dev/gotube/internal/infrastructure/session"
)

// Authenticate binds the bearer token of the request to its context.
// Requests without an Authorization header pass through anonymously; the
// services reject them where a caller is required. A malformed header is 401.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "Authorization header must be a bearer token")
			return
		}

		next.ServeHTTP(w, r.WithContext(session.WithToken(r.Context(), token)))
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Codes and messages are constants without characters needing escape.
	_, _ = w.Write([]byte(`{"error":"` + code + `","message":"` + message + `"}` + "\n"))
}
