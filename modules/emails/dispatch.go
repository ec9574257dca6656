package emails

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgecrm/forgecrm/handler"
	"github.com/forgecrm/forgecrm/modules/notifications"
	"github.com/forgecrm/forgecrm/pkg/logger"
	"github.com/forgecrm/forgecrm/pkg/mailer"
	"github.com/forgecrm/forgecrm/pkg/templates"
)

// Service orchestrates email dispatch and delivery-status tracking: it
// validates input, resolves templates, hands the message to the transport,
// records the outcome, and pushes feed notifications.
type Service struct {
	store   Store
	sender  mailer.Sender
	feed    *notifications.Feed
	catalog *templates.Catalog
	dedup   EventDeduper
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the service.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithEventDeduper sets the deduper guarding notification emission. The
// default in-memory deduper suffices for a single instance; multi-instance
// deployments should pass a Redis-backed one.
func WithEventDeduper(d EventDeduper) ServiceOption {
	return func(s *Service) {
		if d != nil {
			s.dedup = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the email dispatch service.
func NewService(store Store, sender mailer.Sender, feed *notifications.Feed, catalog *templates.Catalog, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		sender:  sender,
		feed:    feed,
		catalog: catalog,
		dedup:   NewMemoryDeduper(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DispatchInput is a request to compose and send one email. ContactID is a
// weak reference: an email can go to an address that is not a contact yet.
type DispatchInput struct {
	ContactID  string            `json:"contact_id,omitempty"`
	To         string            `json:"recipient_email"`
	ToName     string            `json:"recipient_name,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Body       string            `json:"body,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
}

// Dispatch validates the input, resolves the template when one is named,
// sends the email, and records the result.
//
// Outcomes:
//   - validation failure: nothing sent, nothing stored, ValidationError
//   - transport failure: message recorded as failed, error wraps ErrTransport
//   - send ok, store failure: error wraps ErrPersistence and
//     ErrSentStatusUnknown; the email is out, its record is not
//   - success: message recorded as sent and an email_sent notification
//     appended to the sender's feed
func (s *Service) Dispatch(ctx context.Context, userID string, in DispatchInput) (Message, error) {
	subject, body, err := s.compose(in)
	if err != nil {
		return Message{}, err
	}

	now := s.now()
	msg := Message{
		ID:         uuid.New().String(),
		ContactID:  in.ContactID,
		UserID:     userID,
		To:         strings.TrimSpace(in.To),
		ToName:     strings.TrimSpace(in.ToName),
		Subject:    subject,
		Body:       body,
		TemplateID: in.TemplateID,
		Status:     StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	sendErr := s.sender.Send(ctx, mailer.Message{
		To:       msg.To,
		ToName:   msg.ToName,
		Subject:  msg.Subject,
		BodyHTML: msg.Body,
		Tag:      msg.TemplateID,
	})

	if sendErr != nil {
		msg.Status = StatusFailed
		msg.FailureReason = sendErr.Error()
		if recErr := s.store.Record(ctx, msg); recErr != nil {
			s.logger.ErrorContext(ctx, "failed to record failed email",
				logger.MessageID(msg.ID), logger.Error(recErr))
		}
		return msg, errors.Join(ErrTransport, sendErr)
	}

	sentAt := s.now()
	msg.Status = StatusSent
	msg.SentAt = &sentAt
	msg.UpdatedAt = sentAt
	if err := s.store.Record(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "email sent but not recorded",
			logger.MessageID(msg.ID), logger.ContactID(msg.ContactID), logger.Error(err))
		return msg, errors.Join(ErrPersistence, ErrSentStatusUnknown, err)
	}

	s.notify(ctx, msg, notifications.TypeEmailSent, "Email sent",
		fmt.Sprintf("%q was sent to %s", msg.Subject, msg.To))

	return msg, nil
}

// ApplyEvent handles a delivery callback for a message. Moving into a status
// is observed exactly once even under concurrent or replayed callbacks;
// stale callbacks for a status the message already passed are ignored.
// The first open appends an email_opened notification to the sender's feed.
func (s *Service) ApplyEvent(ctx context.Context, messageID string, event Event) (Message, error) {
	if !event.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	target := event.TargetStatus()
	previous, err := s.store.Transition(ctx, messageID, target, s.now())
	switch {
	case err == nil:
		// First move into target.
	case errors.Is(err, ErrInvalidTransition) && staleEvent(previous, target):
		// Replayed or out-of-order callback: the message is already at or
		// past target. Swallow it and return the current record.
		return s.store.Get(ctx, messageID)
	case errors.Is(err, ErrMessageNotFound) || errors.Is(err, ErrInvalidTransition):
		return Message{}, err
	default:
		return Message{}, errors.Join(ErrPersistence, err)
	}

	msg, err := s.store.Get(ctx, messageID)
	if err != nil {
		return Message{}, errors.Join(ErrPersistence, err)
	}

	if event == EventOpened {
		s.notify(ctx, msg, notifications.TypeEmailOpened, "Email opened",
			fmt.Sprintf("%s opened %q", msg.To, msg.Subject))
	}

	s.logger.InfoContext(ctx, "delivery event applied",
		logger.MessageID(messageID), logger.Event(string(event)), logger.Status(string(previous)))

	return msg, nil
}

// GetMessage returns one message by ID.
func (s *Service) GetMessage(ctx context.Context, id string) (Message, error) {
	return s.store.Get(ctx, id)
}

// ListByContact returns the contact's email history, most recently sent
// first.
func (s *Service) ListByContact(ctx context.Context, contactID string) ([]Message, error) {
	return s.store.ListByContact(ctx, contactID)
}

// Templates returns the available email templates in catalog order.
func (s *Service) Templates() []templates.Template {
	return s.catalog.All()
}

// compose validates the input and produces the final subject and body,
// resolving the template when one is named. Freeform subject and body are
// required exactly when no template is used.
func (s *Service) compose(in DispatchInput) (subject, body string, err error) {
	verr := handler.NewValidationError()

	to := strings.TrimSpace(in.To)
	if to == "" {
		verr.Add("recipient_email", "recipient_email is required")
	} else if !mailer.ValidEmail(to) {
		verr.Add("recipient_email", "recipient_email must be a valid email address")
	}

	if in.TemplateID == "" {
		subject = strings.TrimSpace(in.Subject)
		body = strings.TrimSpace(in.Body)
		if subject == "" {
			verr.Add("subject", "subject is required without a template")
		}
		if body == "" {
			verr.Add("body", "body is required without a template")
		}
	} else {
		tmpl, terr := s.catalog.Get(in.TemplateID)
		if terr != nil {
			verr.Add("template_id", fmt.Sprintf("unknown template %q", in.TemplateID))
		} else {
			resolved := templates.Resolve(tmpl, in.Variables)
			subject = resolved.Subject
			body = resolved.Body
		}
	}

	if !verr.IsEmpty() {
		return "", "", verr
	}
	return subject, body, nil
}

// notify appends a feed notification at most once per (message, type).
// Notification failures never fail the email operation that triggered them.
func (s *Service) notify(ctx context.Context, msg Message, typ notifications.Type, title, text string) {
	first, err := s.dedup.FirstEmission(ctx, msg.ID, string(typ))
	if err != nil {
		// Losing the guard is better than losing the notification.
		s.logger.ErrorContext(ctx, "notification dedup check failed",
			logger.MessageID(msg.ID), logger.Error(err))
		first = true
	}
	if !first {
		return
	}

	_, err = s.feed.Append(ctx, notifications.Notification{
		UserID:  msg.UserID,
		Type:    typ,
		Title:   title,
		Message: text,
		Link:    "/emails/" + msg.ID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to append notification",
			logger.MessageID(msg.ID), logger.Error(err))
	}
}

// staleEvent reports whether a rejected transition was merely a callback
// arriving after the message already reached or passed the target status.
func staleEvent(previous, target Status) bool {
	prev, ok := statusRank[previous]
	if !ok {
		return false
	}
	return prev >= statusRank[target]
}
