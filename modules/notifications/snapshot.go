package notifications

import "context"

// Snapshot is a point-in-time view of a user's feed, suitable for pushing
// to live listeners.
type Snapshot struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}

// Snapshot returns the user's latest notifications and total unread count
// in one value.
func (f *Feed) Snapshot(ctx context.Context, userID string, limit int) (Snapshot, error) {
	items, unread, err := f.List(ctx, userID, limit)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Notifications: items, Unread: unread}, nil
}
