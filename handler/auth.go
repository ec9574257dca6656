package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenValidator resolves a bearer token to a user ID. Credential issuance
// and validation live outside this service; the HTTP layer only needs a way
// to ask "who is this".
type TokenValidator func(ctx context.Context, token string) (userID string, err error)

type contextKey string

const userIDKey contextKey = "auth.user_id"

// RequireAuth returns middleware that enforces a bearer Authorization header.
// Missing, malformed, or rejected credentials all yield the same uniform
// unauthorized response, so probes cannot distinguish the failure mode.
func RequireAuth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				Error(w, ErrUnauthorized)
				return
			}

			userID, err := validate(r.Context(), token)
			if err != nil || userID == "" {
				Error(w, ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user ID stored by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// StaticTokenValidator validates against a fixed token-to-user mapping,
// useful for single-tenant deployments and tests. Comparison is constant
// time per candidate token.
func StaticTokenValidator(tokens map[string]string) TokenValidator {
	return func(_ context.Context, token string) (string, error) {
		for candidate, userID := range tokens {
			if len(candidate) == len(token) &&
				subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
				return userID, nil
			}
		}
		return "", ErrUnauthorized
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
