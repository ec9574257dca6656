package mailer_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/forgecrm/forgecrm/pkg/mailer"
)

// MockSender is a mock implementation of Sender for testing.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     mailer.Message
		wantErr bool
	}{
		{
			name: "valid message",
			msg: mailer.Message{
				To:       "user@example.com",
				Subject:  "Test Subject",
				BodyHTML: "<p>Test body</p>",
				Tag:      "test",
			},
		},
		{
			name: "valid without optional fields",
			msg: mailer.Message{
				To:       "user@example.com",
				Subject:  "Test Subject",
				BodyHTML: "<p>Test body</p>",
			},
		},
		{
			name: "empty recipient",
			msg: mailer.Message{
				Subject:  "Test Subject",
				BodyHTML: "<p>Test body</p>",
			},
			wantErr: true,
		},
		{
			name: "whitespace only recipient",
			msg: mailer.Message{
				To:       "   ",
				Subject:  "Test Subject",
				BodyHTML: "<p>Test body</p>",
			},
			wantErr: true,
		},
		{
			name: "invalid email format",
			msg: mailer.Message{
				To:       "not-an-email",
				Subject:  "Test Subject",
				BodyHTML: "<p>Test body</p>",
			},
			wantErr: true,
		},
		{
			name: "empty subject",
			msg: mailer.Message{
				To:       "user@example.com",
				BodyHTML: "<p>Test body</p>",
			},
			wantErr: true,
		},
		{
			name: "whitespace only body",
			msg: mailer.Message{
				To:      "user@example.com",
				Subject: "Test Subject",

				BodyHTML: "   ",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, mailer.ErrInvalidMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPostmarkClient_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  mailer.Config
	}{
		{name: "missing server token", cfg: mailer.Config{
			PostmarkAccountToken: "acc",
			SenderEmail:          "sales@forgecrm.test",
			SupportEmail:         "support@forgecrm.test",
		}},
		{name: "missing account token", cfg: mailer.Config{
			PostmarkServerToken: "srv",
			SenderEmail:         "sales@forgecrm.test",
			SupportEmail:        "support@forgecrm.test",
		}},
		{name: "invalid sender email", cfg: mailer.Config{
			PostmarkServerToken:  "srv",
			PostmarkAccountToken: "acc",
			SenderEmail:          "not-an-email",
			SupportEmail:         "support@forgecrm.test",
		}},
		{name: "missing support email", cfg: mailer.Config{
			PostmarkServerToken:  "srv",
			PostmarkAccountToken: "acc",
			SenderEmail:          "sales@forgecrm.test",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := mailer.NewPostmarkClient(tt.cfg)
			assert.ErrorIs(t, err, mailer.ErrInvalidConfig)
		})
	}
}

func TestMustNewPostmarkClient_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		mailer.MustNewPostmarkClient(mailer.Config{})
	})
}

func TestDevSender_Send(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := mailer.NewDevSender(dir)

	err := sender.Send(context.Background(), mailer.Message{
		To:       "jean@example.com",
		ToName:   "Jean",
		Subject:  "Welcome aboard",
		BodyHTML: "<p>Hello Jean</p>",
		Tag:      "welcome",
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var htmlFile, jsonFile string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".html":
			htmlFile = filepath.Join(dir, e.Name())
		case ".json":
			jsonFile = filepath.Join(dir, e.Name())
		}
	}
	require.NotEmpty(t, htmlFile)
	require.NotEmpty(t, jsonFile)

	html, err := os.ReadFile(htmlFile)
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello Jean</p>", string(html))

	raw, err := os.ReadFile(jsonFile)
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "jean@example.com", meta["to"])
	assert.Equal(t, "Welcome aboard", meta["subject"])
	assert.True(t, strings.Contains(filepath.Base(htmlFile), "welcome"))
}

func TestDevSender_RejectsInvalidMessage(t *testing.T) {
	t.Parallel()

	sender := mailer.NewDevSender(t.TempDir())
	err := sender.Send(context.Background(), mailer.Message{})
	assert.ErrorIs(t, err, mailer.ErrInvalidMessage)
}
