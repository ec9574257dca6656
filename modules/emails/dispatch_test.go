package emails_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/forgecrm/forgecrm/handler"
	"github.com/forgecrm/forgecrm/modules/emails"
	"github.com/forgecrm/forgecrm/modules/notifications"
	"github.com/forgecrm/forgecrm/pkg/mailer"
	"github.com/forgecrm/forgecrm/pkg/templates"
)

// MockSender is a mock implementation of mailer.Sender for testing.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// failingStore wraps a real store and fails Record, to exercise the
// sent-but-not-recorded path.
type failingStore struct {
	emails.Store
	recordErr error
}

func (s *failingStore) Record(ctx context.Context, msg emails.Message) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	return s.Store.Record(ctx, msg)
}

func testCatalog(t *testing.T) *templates.Catalog {
	t.Helper()

	catalog, err := templates.NewCatalog([]templates.Template{
		{
			ID:        "welcome",
			Name:      "Welcome",
			Category:  "onboarding",
			Subject:   "Welcome, {{contact_name}}!",
			Body:      "<p>Hi {{contact_name}}, thanks for joining {{company}}.</p>",
			Variables: []string{"contact_name", "company"},
		},
	})
	require.NoError(t, err)
	return catalog
}

func newTestService(t *testing.T, sender mailer.Sender, opts ...emails.ServiceOption) (*emails.Service, *emails.MemoryStore, *notifications.Feed) {
	t.Helper()

	store := emails.NewMemoryStore()
	feed := notifications.NewFeed(notifications.NewMemoryStorage())
	svc := emails.NewService(store, sender, feed, testCatalog(t), opts...)
	return svc, store, feed
}

func TestService_Dispatch_Freeform(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m mailer.Message) bool {
		return m.To == "jean@example.com" && m.Subject == "Hello"
	})).Return(nil)

	svc, store, feed := newTestService(t, sender)

	msg, err := svc.Dispatch(ctx, "user-1", emails.DispatchInput{
		ContactID: "contact-1",
		To:        "jean@example.com",
		Subject:   "Hello",
		Body:      "<p>Hi there</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, emails.StatusSent, msg.Status)
	require.NotNil(t, msg.SentAt)

	stored, err := store.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, emails.StatusSent, stored.Status)

	items, unread, err := feed.List(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, notifications.TypeEmailSent, items[0].Type)
	assert.Equal(t, 1, unread)

	sender.AssertExpectations(t)
}

func TestService_Dispatch_WithoutContact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, store, _ := newTestService(t, sender)

	// ContactID is a weak reference; an email to an address that is not a
	// contact yet still goes out.
	msg, err := svc.Dispatch(ctx, "user-1", emails.DispatchInput{
		To:      "a@b.com",
		Subject: "Hi",
		Body:    "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, emails.StatusSent, msg.Status)
	assert.Empty(t, msg.ContactID)

	stored, err := store.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, emails.StatusSent, stored.Status)
}

func TestService_Dispatch_Template(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := new(MockSender)
	var sent mailer.Message
	sender.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(mailer.Message) }).
		Return(nil)

	svc, _, _ := newTestService(t, sender)

	msg, err := svc.Dispatch(ctx, "user-1", emails.DispatchInput{
		ContactID:  "contact-1",
		To:         "jean@example.com",
		TemplateID: "welcome",
		Variables:  map[string]string{"contact_name": "Jean"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome, Jean!", sent.Subject)
	// Unknown tokens stay verbatim instead of failing the send.
	assert.Contains(t, sent.BodyHTML, "{{company}}")
	assert.Equal(t, "welcome", sent.Tag)
	assert.Equal(t, "Welcome, Jean!", msg.Subject)
}

func TestService_Dispatch_ValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  emails.DispatchInput
		fields []string
	}{
		{
			name:   "everything missing",
			input:  emails.DispatchInput{},
			fields: []string{"recipient_email", "subject", "body"},
		},
		{
			name: "bad email address",
			input: emails.DispatchInput{
				ContactID: "c-1", To: "not-an-email", Subject: "s", Body: "b",
			},
			fields: []string{"recipient_email"},
		},
		{
			name: "unknown template",
			input: emails.DispatchInput{
				ContactID: "c-1", To: "jean@example.com", TemplateID: "missing",
			},
			fields: []string{"template_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := new(MockSender)
			svc, store, _ := newTestService(t, sender)

			_, err := svc.Dispatch(context.Background(), "user-1", tt.input)

			var verr handler.ValidationError
			require.ErrorAs(t, err, &verr)
			for _, field := range tt.fields {
				assert.True(t, verr.Has(field), "expected error on %s", field)
			}

			// Nothing sent, nothing stored.
			sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
			msgs, err := store.ListByContact(context.Background(), "c-1")
			require.NoError(t, err)
			assert.Empty(t, msgs)
		})
	}
}

func TestService_Dispatch_TransportFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("550 mailbox unavailable"))

	svc, store, feed := newTestService(t, sender)

	msg, err := svc.Dispatch(ctx, "user-1", emails.DispatchInput{
		ContactID: "contact-1",
		To:        "jean@example.com",
		Subject:   "Hello",
		Body:      "<p>Hi</p>",
	})
	require.ErrorIs(t, err, emails.ErrTransport)
	assert.Equal(t, emails.StatusFailed, msg.Status)
	assert.Contains(t, msg.FailureReason, "mailbox unavailable")

	// The failure is recorded with a nil sent_at.
	stored, err := store.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, emails.StatusFailed, stored.Status)
	assert.Nil(t, stored.SentAt)

	// No email_sent notification for a failed send.
	_, unread, err := feed.List(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}

func TestService_Dispatch_SentStatusUnknown(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	feed := notifications.NewFeed(notifications.NewMemoryStorage())
	store := &failingStore{Store: emails.NewMemoryStore(), recordErr: errors.New("connection reset")}
	svc := emails.NewService(store, sender, feed, testCatalog(t))

	_, err := svc.Dispatch(context.Background(), "user-1", emails.DispatchInput{
		ContactID: "contact-1",
		To:        "jean@example.com",
		Subject:   "Hello",
		Body:      "<p>Hi</p>",
	})
	require.ErrorIs(t, err, emails.ErrPersistence)
	require.ErrorIs(t, err, emails.ErrSentStatusUnknown)
	assert.NotErrorIs(t, err, emails.ErrTransport)
}

func TestService_ApplyEvent_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, _, feed := newTestService(t, sender)

	sent, err := svc.Dispatch(ctx, "user-1", emails.DispatchInput{
		ContactID: "contact-1", To: "jean@example.com", Subject: "s", Body: "b",
	})
	require.NoError(t, err)

	msg, err := svc.ApplyEvent(ctx, sent.ID, emails.EventDelivered)
	require.NoError(t, err)
	assert.Equal(t, emails.StatusDelivered, msg.Status)
	require.NotNil(t, msg.DeliveredAt)

	msg, err = svc.ApplyEvent(ctx, sent.ID, emails.EventOpened)
	require.NoError(t, err)
	assert.Equal(t, emails.StatusOpened, msg.Status)
	require.NotNil(t, msg.OpenedAt)

	items, _, err := feed.List(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, notifications.TypeEmailOpened, items[0].Type)
	assert.Equal(t, notifications.TypeEmailSent, items[1].Type)
}

func TestService_ApplyEvent_OpenedNotificationExactlyOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, _, feed := newTestService(t, sender)

	sent, err := svc.Dispatch(ctx, "user-1", emails.DispatchInput{
		ContactID: "contact-1", To: "jean@example.com", Subject: "s", Body: "b",
	})
	require.NoError(t, err)

	// Provider replays the open callback.
	for range 3 {
		msg, err := svc.ApplyEvent(ctx, sent.ID, emails.EventOpened)
		require.NoError(t, err)
		assert.Equal(t, emails.StatusOpened, msg.Status)
	}

	items, _, err := feed.List(ctx, "user-1", 10)
	require.NoError(t, err)

	opened := 0
	for _, n := range items {
		if n.Type == notifications.TypeEmailOpened {
			opened++
		}
	}
	assert.Equal(t, 1, opened)
}

func TestService_ApplyEvent_StaleDeliveredAfterOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, _, _ := newTestService(t, sender)

	sent, err := svc.Dispatch(ctx, "user-1", emails.DispatchInput{
		ContactID: "contact-1", To: "jean@example.com", Subject: "s", Body: "b",
	})
	require.NoError(t, err)

	_, err = svc.ApplyEvent(ctx, sent.ID, emails.EventOpened)
	require.NoError(t, err)

	// A late delivery receipt never moves the status backwards.
	msg, err := svc.ApplyEvent(ctx, sent.ID, emails.EventDelivered)
	require.NoError(t, err)
	assert.Equal(t, emails.StatusOpened, msg.Status)
}

func TestService_ApplyEvent_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := new(MockSender)
	svc, store, _ := newTestService(t, sender)

	_, err := svc.ApplyEvent(ctx, "missing", emails.EventDelivered)
	assert.ErrorIs(t, err, emails.ErrMessageNotFound)

	_, err = svc.ApplyEvent(ctx, "any", emails.Event("bounced"))
	assert.ErrorIs(t, err, emails.ErrUnknownEvent)

	// Events never apply to a failed message.
	now := time.Now()
	require.NoError(t, store.Record(ctx, emails.Message{
		ID: "failed-1", ContactID: "c-1", UserID: "user-1", To: "jean@example.com",
		Subject: "s", Body: "b", Status: emails.StatusFailed, CreatedAt: now, UpdatedAt: now,
	}))
	_, err = svc.ApplyEvent(ctx, "failed-1", emails.EventDelivered)
	assert.ErrorIs(t, err, emails.ErrInvalidTransition)
}

func TestService_ListByContact_OrderAndEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(t, sender, emails.WithClock(func() time.Time {
		current = current.Add(time.Minute)
		return current
	}))

	for _, subject := range []string{"first", "second", "third"} {
		_, err := svc.Dispatch(ctx, "user-1", emails.DispatchInput{
			ContactID: "contact-1", To: "jean@example.com", Subject: subject, Body: "b",
		})
		require.NoError(t, err)
	}

	msgs, err := svc.ListByContact(ctx, "contact-1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "third", msgs[0].Subject)
	assert.Equal(t, "first", msgs[2].Subject)

	empty, err := svc.ListByContact(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
