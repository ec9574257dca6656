package ratelimit

import (
	"context"
	"time"
)

// Result reports the outcome of one rate-limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter answers whether one more request under the given key fits the
// configured budget. Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Config describes a fixed-window budget: at most Requests per Window.
type Config struct {
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}
