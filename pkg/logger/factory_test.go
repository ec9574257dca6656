package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecrm/forgecrm/pkg/logger"
)

type ctxKey string

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithFormat(logger.FormatJSON),
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("service", "test")),
	)

	log.Info("hello", slog.String("key", "value"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "value", record["key"])
	assert.Equal(t, "test", record["service"])
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithFormat(logger.FormatText),
		logger.WithOutput(&buf),
	)

	log.Info("plain message")
	assert.Contains(t, buf.String(), "plain message")
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithLevel(slog.LevelWarn),
		logger.WithOutput(&buf),
	)

	log.Info("should be dropped")
	assert.Empty(t, buf.String())

	log.Warn("should be logged")
	assert.Contains(t, buf.String(), "should be logged")
}

func TestNew_ContextValueExtraction(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextValue("request_id", ctxKey("rid")),
	)

	ctx := context.WithValue(context.Background(), ctxKey("rid"), "req-123")
	log.InfoContext(ctx, "with context")

	assert.Contains(t, buf.String(), "req-123")

	buf.Reset()
	log.InfoContext(context.Background(), "without context")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestWithFormat_PanicsOnInvalid(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, slog.Attr{}, logger.UserID(nil))
	assert.Equal(t, slog.Attr{}, logger.MessageID(nil))

	attr := logger.ContactID("c-1")
	assert.Equal(t, "contact_id", attr.Key)
	assert.Equal(t, "c-1", attr.Value.String())

	attr = logger.Status("sent")
	assert.Equal(t, "status", attr.Key)
	assert.True(t, strings.EqualFold("sent", attr.Value.String()))
}
