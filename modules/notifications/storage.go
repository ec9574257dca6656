package notifications

import "context"

// Storage handles notification persistence and retrieval.
//
// Unread counts are always computed from the stored rows rather than kept as
// a separate counter, so concurrent writers cannot leave the count drifting
// from reality.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// List returns up to limit notifications for a user, newest first.
	// limit <= 0 means no limit.
	List(ctx context.Context, userID string, limit int) ([]Notification, error)

	// MarkRead marks one notification as read. Marking an already-read
	// notification is a no-op. Returns ErrNotificationNotFound when the id
	// does not exist for that user.
	MarkRead(ctx context.Context, userID, notifID string) error

	// MarkAllRead marks every unread notification for the user as read in
	// one logical operation.
	MarkAllRead(ctx context.Context, userID string) error

	// CountUnread returns the unread count across the user's entire feed.
	CountUnread(ctx context.Context, userID string) (int, error)
}
