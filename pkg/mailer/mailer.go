package mailer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Sender delivers a composed email. Implementations wrap an external mail
// provider; the rest of the system treats delivery as a black box that
// either succeeds or fails.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a fully composed outbound email.
type Message struct {
	To       string `json:"to"`                  // Recipient email address
	ToName   string `json:"to_name,omitempty"`   // Optional recipient display name
	Subject  string `json:"subject"`             // Subject line
	BodyHTML string `json:"body_html"`           // HTML body
	Tag      string `json:"tag,omitempty"`       // Optional provider-side tag
}

// emailRegex keeps validation permissive: it catches obviously broken input
// without rejecting uncommon but deliverable addresses.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether addr looks like a deliverable email address
// after trimming whitespace.
func ValidEmail(addr string) bool {
	return emailRegex.MatchString(strings.TrimSpace(addr))
}

// Validate reports whether the message has everything a provider needs.
// All required fields are checked after trimming whitespace.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: To is required", ErrInvalidMessage)
	}
	if !emailRegex.MatchString(strings.TrimSpace(m.To)) {
		return fmt.Errorf("%w: To must be a valid email address", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: Subject is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.BodyHTML) == "" {
		return fmt.Errorf("%w: BodyHTML is required", ErrInvalidMessage)
	}
	return nil
}
