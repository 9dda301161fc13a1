package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jeremyjsx/inkwell/internal/authz"
	"github.com/jeremyjsx/inkwell/internal/session"
)

// Identity resolves a bearer token into an authz.Identity on the request
// context. Requests without a token pass through anonymously; a token that
// does not resolve is rejected.
func Identity(store session.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := store.Lookup(r.Context(), token)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(authz.WithIdentity(r.Context(), id)))
			case errors.Is(err, session.ErrNoSession),
				errors.Is(err, session.ErrInvalidSession),
				errors.Is(err, authz.ErrUnknownRole):
				writeAuthError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			default:
				logger.Error("session lookup failed", "error", err, "request_id", GetRequestID(r.Context()))
				w.Header().Set("Retry-After", "1")
				writeAuthError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "identity service unavailable")
			}
		})
	}
}

func extractBearer(r *http.Request) string {
	const prefix = "Bearer "
	if s := r.Header.Get("Authorization"); len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(r.Context()),
		},
	})
}
