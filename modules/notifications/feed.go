package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Feed orchestrates a per-user notification inbox on top of a Storage.
type Feed struct {
	storage Storage
	logger  *slog.Logger
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithFeedLogger sets the logger for the Feed.
func WithFeedLogger(logger *slog.Logger) FeedOption {
	return func(f *Feed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFeed creates a notification feed backed by the given storage.
func NewFeed(storage Storage, opts ...FeedOption) *Feed {
	f := &Feed{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Append adds a notification to its user's feed, generating the ID and
// creation time when not provided. The stored notification is returned.
func (f *Feed) Append(ctx context.Context, notif Notification) (Notification, error) {
	if notif.UserID == "" {
		return Notification{}, fmt.Errorf("%w: user id is required", ErrInvalidNotification)
	}
	if !notif.Type.Valid() {
		return Notification{}, fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, notif.Type)
	}

	if notif.ID == "" {
		notif.ID = uuid.New().String()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}
	// A notification is born unread.
	notif.Read = false
	notif.ReadAt = nil

	if err := f.storage.Create(ctx, notif); err != nil {
		return Notification{}, fmt.Errorf("failed to store notification: %w", err)
	}

	return notif, nil
}

// List returns up to limit notifications for the user, newest first, along
// with the unread count across the entire feed (not just the returned page).
func (f *Feed) List(ctx context.Context, userID string, limit int) ([]Notification, int, error) {
	items, err := f.storage.List(ctx, userID, limit)
	if err != nil {
		return nil, 0, err
	}

	unread, err := f.storage.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return items, unread, nil
}

// MarkRead marks a single notification as read. Idempotent: marking an
// already-read notification is a no-op, not an error.
func (f *Feed) MarkRead(ctx context.Context, userID, notifID string) error {
	return f.storage.MarkRead(ctx, userID, notifID)
}

// MarkAllRead marks every unread notification for the user as read.
func (f *Feed) MarkAllRead(ctx context.Context, userID string) error {
	return f.storage.MarkAllRead(ctx, userID)
}

// CountUnread returns the user's unread count across the entire feed.
func (f *Feed) CountUnread(ctx context.Context, userID string) (int, error) {
	return f.storage.CountUnread(ctx, userID)
}
