package emails_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/forgecrm/forgecrm/handler"
	"github.com/forgecrm/forgecrm/modules/emails"
)

const emailsTestToken = "emails-test-token" //nolint:gosec // test credential

func newEmailsRouter(t *testing.T, svc *emails.Service) http.Handler {
	t.Helper()

	validate := handler.StaticTokenValidator(map[string]string{emailsTestToken: "user-1"})
	h := emails.NewHandler(svc, nil)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth(validate))
		r.Mount("/emails", h.Router())
		r.Mount("/email-templates", h.TemplatesRouter())
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+emailsTestToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var resp struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestEmailsRouter_Dispatch(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, _, _ := newTestService(t, sender)
	router := newEmailsRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/emails",
		`{"contact_id":"c-1","recipient_email":"jean@example.com","subject":"Hello","body":"<p>Hi</p>"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	msg := decodeData[emails.Message](t, rec)
	assert.Equal(t, emails.StatusSent, msg.Status)
	assert.Equal(t, "user-1", msg.UserID)
	assert.NotEmpty(t, msg.ID)
}

func TestEmailsRouter_Dispatch_MinimalBody(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, _, _ := newTestService(t, sender)
	router := newEmailsRouter(t, svc)

	// Recipient, subject, and body are the only required fields.
	rec := doJSON(t, router, http.MethodPost, "/emails",
		`{"recipient_email":"a@b.com","subject":"Hi","body":"Hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	msg := decodeData[emails.Message](t, rec)
	assert.Equal(t, emails.StatusSent, msg.Status)
	assert.Empty(t, msg.ContactID)
	assert.Equal(t, "a@b.com", msg.To)
}

func TestEmailsRouter_Dispatch_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, new(MockSender))
	router := newEmailsRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/emails", `{"contact_id":"c-1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error struct {
			Code    string              `json:"code"`
			Details map[string][]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "recipient_email")
}

func TestEmailsRouter_Dispatch_UnknownField(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, new(MockSender))
	router := newEmailsRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/emails", `{"recipient":"jean@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmailsRouter_Dispatch_TransportFailure(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("provider down"))
	svc, _, _ := newTestService(t, sender)
	router := newEmailsRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/emails",
		`{"contact_id":"c-1","recipient_email":"jean@example.com","subject":"s","body":"b"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "transport_failed")
}

func TestEmailsRouter_ListByContact(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, _, _ := newTestService(t, sender)
	router := newEmailsRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/emails",
		`{"contact_id":"c-1","recipient_email":"jean@example.com","subject":"s","body":"b"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/emails/contact/c-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decodeData[[]emails.Message](t, rec)
	require.Len(t, msgs, 1)

	// Unknown contact yields an empty list, not an error.
	rec = doJSON(t, router, http.MethodGet, "/emails/contact/nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]emails.Message](t, rec))
}

func TestEmailsRouter_ApplyEvent(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	svc, _, _ := newTestService(t, sender)
	router := newEmailsRouter(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/emails",
		`{"contact_id":"c-1","recipient_email":"jean@example.com","subject":"s","body":"b"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[emails.Message](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/emails/"+created.ID+"/events", `{"event":"delivered"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, emails.StatusDelivered, decodeData[emails.Message](t, rec).Status)

	rec = doJSON(t, router, http.MethodPost, "/emails/"+created.ID+"/events", `{"event":"bounced"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/emails/missing/events", `{"event":"delivered"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmailsRouter_ApplyEvent_Conflict(t *testing.T) {
	t.Parallel()

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("provider down"))
	svc, _, _ := newTestService(t, sender)
	router := newEmailsRouter(t, svc)

	msg, err := svc.Dispatch(context.Background(), "user-1", emails.DispatchInput{
		To:      "jean@example.com",
		Subject: "s",
		Body:    "b",
	})
	require.Error(t, err)
	require.Equal(t, emails.StatusFailed, msg.Status)

	// A failed message cannot receive delivery receipts.
	rec := doJSON(t, router, http.MethodPost, "/emails/"+msg.ID+"/events", `{"event":"delivered"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "conflict")
}

func TestEmailsRouter_ListTemplates(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, new(MockSender))
	router := newEmailsRouter(t, svc)

	rec := doJSON(t, router, http.MethodGet, "/email-templates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"welcome"`)
}

func TestEmailsRouter_Unauthorized(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, new(MockSender))
	router := newEmailsRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/email-templates", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
