package emails

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string]Message)}
}

// Record stores msg, rejecting reused IDs.
func (s *MemoryStore) Record(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, msg.ID)
	}
	s.messages[msg.ID] = msg
	return nil
}

// Get returns the message with the given ID.
func (s *MemoryStore) Get(_ context.Context, id string) (Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	return msg, nil
}

// Transition moves the message forward through the status lifecycle.
func (s *MemoryStore) Transition(_ context.Context, id string, next Status, at time.Time) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	if !msg.Status.CanTransitionTo(next) {
		return msg.Status, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, msg.Status, next)
	}

	previous := msg.Status
	msg.Status = next
	msg.UpdatedAt = at
	switch next {
	case StatusSent:
		msg.SentAt = &at
	case StatusDelivered:
		msg.DeliveredAt = &at
	case StatusOpened:
		msg.OpenedAt = &at
	}
	s.messages[id] = msg

	return previous, nil
}

// ListByContact returns the contact's messages, most recently sent first.
func (s *MemoryStore) ListByContact(_ context.Context, contactID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Message, 0)
	for _, msg := range s.messages {
		if msg.ContactID == contactID {
			result = append(result, msg)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].SentAt, result[j].SentAt
		switch {
		case a == nil && b == nil:
			return result[i].CreatedAt.After(result[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})

	return result, nil
}
