package poller

import (
	"fmt"
	"log/slog"
	"time"
)

// Option configures a Poller.
type Option[T any] func(*Poller[T])

// WithInterval sets the refresh interval. Panics on non-positive values.
func WithInterval[T any](interval time.Duration) Option[T] {
	if interval <= 0 {
		panic(fmt.Sprintf("poller: invalid interval %v", interval))
	}
	return func(p *Poller[T]) {
		p.interval = interval
	}
}

// WithLogger sets the logger for refresh failures.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Poller[T]) {
		if logger != nil {
			p.logger = logger
		}
	}
}
