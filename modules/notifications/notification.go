package notifications

import "time"

// Type identifies what produced a notification.
type Type string

const (
	TypeEmailSent   Type = "email_sent"
	TypeEmailOpened Type = "email_opened"
	TypeSystem      Type = "system"
)

// Valid reports whether t is a known notification type.
func (t Type) Valid() bool {
	switch t {
	case TypeEmailSent, TypeEmailOpened, TypeSystem:
		return true
	}
	return false
}

// Notification is a single entry in a user's feed. It is created once and
// afterwards only its read flag may change, from false to true.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      Type       `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link,omitempty"`
	Read      bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MarkAsRead marks the notification as read with the current timestamp.
// Already-read notifications are left untouched so ReadAt keeps the original
// time.
func (n *Notification) MarkAsRead() {
	if n.Read {
		return
	}
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}
