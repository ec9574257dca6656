package emails

import "time"

// Status is the delivery lifecycle state of an outbound email.
//
// The happy path moves strictly forward: draft -> sent -> delivered ->
// opened. A message that could not be handed to the transport goes draft ->
// failed instead, and failed is terminal. Status never moves backwards.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusOpened    Status = "opened"
	StatusFailed    Status = "failed"
)

// statusRank orders the delivery chain. failed sits outside the chain and
// is handled explicitly in CanTransitionTo.
var statusRank = map[Status]int{
	StatusDraft:     0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusOpened:    3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusDelivered, StatusOpened, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusOpened || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next preserves the
// lifecycle rules. Skipping ahead in the chain is allowed (a provider may
// report an open before the delivery receipt), going back never is, and
// failed is only reachable from draft.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusFailed {
		return false
	}
	if next == StatusFailed {
		return s == StatusDraft
	}
	if next == StatusSent {
		return s == StatusDraft
	}

	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	// Delivery receipts only apply to messages that actually went out.
	return s != StatusDraft && to > from
}

// Message is an outbound email and its delivery-status record. Rows are
// written once at dispatch time and afterwards only move forward through
// the status lifecycle.
type Message struct {
	ID            string     `json:"id"`
	ContactID     string     `json:"contact_id"`
	UserID        string     `json:"user_id"`
	To            string     `json:"recipient_email"`
	ToName        string     `json:"recipient_name,omitempty"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	TemplateID    string     `json:"template_id,omitempty"`
	Status        Status     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	OpenedAt      *time.Time `json:"opened_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Event is a delivery callback reported by the mail provider.
type Event string

const (
	EventDelivered Event = "delivered"
	EventOpened    Event = "opened"
)

// Valid reports whether e is a known delivery event.
func (e Event) Valid() bool {
	return e == EventDelivered || e == EventOpened
}

// TargetStatus returns the status an event moves a message into.
func (e Event) TargetStatus() Status {
	switch e {
	case EventDelivered:
		return StatusDelivered
	case EventOpened:
		return StatusOpened
	}
	return ""
}
