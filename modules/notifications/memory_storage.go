package notifications

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	notifications map[string][]Notification // userID -> notifications
	mu            sync.RWMutex
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[string][]Notification),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if notif.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidNotification)
	}
	if notif.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidNotification)
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	s.notifications[notif.UserID] = append(s.notifications[notif.UserID], notif)
	return nil
}

func (s *MemoryStorage) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.notifications[userID]
	if !exists {
		return []Notification{}, nil
	}

	out := make([]Notification, len(stored))
	copy(out, stored)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}

	return out, nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, userID, notifID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.notifications[userID]
	for i := range stored {
		if stored[i].ID == notifID {
			stored[i].MarkAsRead()
			return nil
		}
	}

	return ErrNotificationNotFound
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.notifications[userID]
	for i := range stored {
		stored[i].MarkAsRead()
	}

	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications[userID] {
		if !n.Read {
			count++
		}
	}

	return count, nil
}
