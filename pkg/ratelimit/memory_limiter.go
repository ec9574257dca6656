package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLimiter is a fixed-window Limiter for tests and single-node
// deployments.
type MemoryLimiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		panic(fmt.Sprintf("ratelimit: invalid config %+v", cfg))
	}
	return &MemoryLimiter{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
	}
	w.count++

	res := Result{
		Allowed:   w.count <= l.cfg.Requests,
		Limit:     l.cfg.Requests,
		Remaining: max(l.cfg.Requests-w.count, 0),
	}
	if !res.Allowed {
		res.RetryAfter = w.resetAt.Sub(now)
	}
	return res, nil
}
