package emails

import (
	"context"
	"time"
)

// Store persists email messages and their delivery-status record.
//
// The record is append-only in spirit: Record writes a message exactly once,
// and Transition is the only mutation afterwards, restricted to forward
// moves through the status lifecycle.
type Store interface {
	// Record stores a new message. Returns ErrDuplicateMessage when the ID
	// is already taken.
	Record(ctx context.Context, msg Message) error

	// Get returns the message with the given ID, or ErrMessageNotFound.
	Get(ctx context.Context, id string) (Message, error)

	// Transition atomically moves the message to next, stamping the matching
	// timestamp column with at. It returns the status the message held
	// before the call, which lets callers detect whether they performed the
	// first move into next. Disallowed moves return the current status
	// alongside ErrInvalidTransition and leave the row untouched.
	Transition(ctx context.Context, id string, next Status, at time.Time) (previous Status, err error)

	// ListByContact returns every message addressed to the contact, ordered
	// by sent_at descending (never-sent messages last). An unknown contact
	// yields an empty slice, not an error.
	ListByContact(ctx context.Context, contactID string) ([]Message, error)
}
