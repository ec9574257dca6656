package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the current snapshot for one user.
type FetchFunc[T any] func(ctx context.Context, userID string) (T, error)

// Poller periodically fetches a per-user snapshot and pushes it to that
// user's subscribers. Fetches for the same user are collapsed with
// singleflight, so an interval tick racing an on-demand Refresh costs one
// backend call, not two.
type Poller[T any] struct {
	fetch    FetchFunc[T]
	interval time.Duration
	logger   *slog.Logger

	group singleflight.Group

	mu   sync.Mutex
	subs map[string]map[*subscription[T]]struct{}
}

type subscription[T any] struct {
	ch     chan T
	once   sync.Once
	cancel func()
}

// New creates a poller around the given fetch function.
func New[T any](fetch FetchFunc[T], opts ...Option[T]) *Poller[T] {
	p := &Poller[T]{
		fetch:    fetch,
		interval: 30 * time.Second,
		logger:   slog.Default(),
		subs:     make(map[string]map[*subscription[T]]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives the interval refresh loop until ctx is cancelled. Cancelling
// tears everything down: the loop exits and every subscriber channel is
// closed.
func (p *Poller[T]) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.closeAll()
			return ctx.Err()
		case <-ticker.C:
			for _, userID := range p.subscribedUsers() {
				if _, err := p.Refresh(ctx, userID); err != nil {
					p.logger.ErrorContext(ctx, "poll refresh failed",
						slog.String("user_id", userID), slog.Any("error", err))
				}
			}
		}
	}
}

// Subscribe registers a listener for the user's snapshots and immediately
// triggers a refresh so the first value arrives without waiting a full
// interval. The returned cancel function detaches the listener and closes
// its channel; cancelling ctx does the same.
//
// The channel holds only the latest snapshot: a slow consumer sees fresh
// data, never a backlog.
func (p *Poller[T]) Subscribe(ctx context.Context, userID string) (<-chan T, func()) {
	sub := &subscription[T]{ch: make(chan T, 1)}
	sub.cancel = func() {
		sub.once.Do(func() {
			p.mu.Lock()
			if set, ok := p.subs[userID]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(p.subs, userID)
				}
			}
			p.mu.Unlock()
			close(sub.ch)
		})
	}

	p.mu.Lock()
	if p.subs[userID] == nil {
		p.subs[userID] = make(map[*subscription[T]]struct{})
	}
	p.subs[userID][sub] = struct{}{}
	p.mu.Unlock()

	context.AfterFunc(ctx, sub.cancel)

	go func() {
		if _, err := p.Refresh(ctx, userID); err != nil && ctx.Err() == nil {
			p.logger.ErrorContext(ctx, "initial poll refresh failed",
				slog.String("user_id", userID), slog.Any("error", err))
		}
	}()

	return sub.ch, sub.cancel
}

// Refresh fetches the user's snapshot now and fans it out to subscribers.
// Concurrent refreshes for the same user share one fetch.
func (p *Poller[T]) Refresh(ctx context.Context, userID string) (T, error) {
	v, err, _ := p.group.Do(userID, func() (any, error) {
		return p.fetch(ctx, userID)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	snapshot := v.(T)
	p.broadcast(userID, snapshot)
	return snapshot, nil
}

func (p *Poller[T]) broadcast(userID string, snapshot T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for sub := range p.subs[userID] {
		// Replace a pending unconsumed snapshot with the newer one.
		select {
		case sub.ch <- snapshot:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snapshot:
			default:
			}
		}
	}
}

func (p *Poller[T]) subscribedUsers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	users := make([]string, 0, len(p.subs))
	for userID := range p.subs {
		users = append(users, userID)
	}
	return users
}

func (p *Poller[T]) closeAll() {
	p.mu.Lock()
	cancels := make([]func(), 0)
	for _, set := range p.subs {
		for sub := range set {
			cancels = append(cancels, sub.cancel)
		}
	}
	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
