package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/forgecrm/forgecrm/handler"
)

// KeyFunc derives the rate-limit key from a request. Returning "" skips the
// check for that request.
type KeyFunc func(r *http.Request) string

// ByUser keys the limit on the authenticated user.
func ByUser(r *http.Request) string {
	userID, _ := handler.UserIDFromContext(r.Context())
	return userID
}

// Middleware enforces the limiter on every request, keyed by keyFn.
// Responses carry X-RateLimit-* headers; rejected requests get 429 with a
// Retry-After hint. A limiter backend failure lets the request through:
// dropping legitimate traffic is worse than briefly not limiting it.
func Middleware(limiter Limiter, keyFn KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.ErrorContext(r.Context(), "rate limit check failed",
					slog.String("key", key), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
				}
				handler.Error(w, handler.NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
