package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forgecrm/forgecrm/handler"
	"github.com/forgecrm/forgecrm/pkg/logger"
	"github.com/forgecrm/forgecrm/pkg/poller"
)

// defaultListLimit bounds unpaginated feed requests.
const defaultListLimit = 20

// Handler exposes the notification feed over HTTP.
type Handler struct {
	feed   *Feed
	poller *poller.Poller[Snapshot]
	logger *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithStream enables the /stream endpoint and pushes a fresh snapshot to
// connected listeners whenever a mutation changes the feed.
func WithStream(p *poller.Poller[Snapshot]) HandlerOption {
	return func(h *Handler) {
		h.poller = p
	}
}

// NewHandler creates the HTTP handler for the notifications module.
func NewHandler(feed *Feed, log *slog.Logger, opts ...HandlerOption) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{feed: feed, logger: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns the chi router for the notifications module. All routes
// expect an authenticated user in the request context.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Patch("/mark-all-read", h.markAllRead)
	r.Patch("/{id}/read", h.markRead)
	if h.poller != nil {
		r.Get("/stream", h.stream)
	}

	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := handler.UserIDFromContext(r.Context())
	if !ok {
		handler.Error(w, handler.ErrUnauthorized)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			handler.Error(w, handler.ErrBadRequest)
			return
		}
		limit = parsed
	}

	items, unread, err := h.feed.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list notifications",
			logger.UserID(userID), logger.Error(err))
		handler.Error(w, handler.ErrInternalServerError)
		return
	}

	handler.JSONWithMeta(w, http.StatusOK, items, map[string]any{"unread": unread})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := handler.UserIDFromContext(r.Context())
	if !ok {
		handler.Error(w, handler.ErrUnauthorized)
		return
	}

	notifID := chi.URLParam(r, "id")
	if err := h.feed.MarkRead(r.Context(), userID, notifID); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			handler.Error(w, handler.ErrNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to mark notification read",
			logger.UserID(userID), logger.NotificationID(notifID), logger.Error(err))
		handler.Error(w, handler.ErrInternalServerError)
		return
	}

	h.pushSnapshot(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := handler.UserIDFromContext(r.Context())
	if !ok {
		handler.Error(w, handler.ErrUnauthorized)
		return
	}

	if err := h.feed.MarkAllRead(r.Context(), userID); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to mark all notifications read",
			logger.UserID(userID), logger.Error(err))
		handler.Error(w, handler.ErrInternalServerError)
		return
	}

	h.pushSnapshot(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

// pushSnapshot refreshes the user's live listeners after a mutation. The
// request context ends with the response, so the refresh detaches from it.
func (h *Handler) pushSnapshot(ctx context.Context, userID string) {
	if h.poller == nil {
		return
	}
	go func() {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, err := h.poller.Refresh(refreshCtx, userID); err != nil {
			h.logger.ErrorContext(refreshCtx, "failed to push feed snapshot",
				logger.UserID(userID), logger.Error(err))
		}
	}()
}

// stream pushes feed snapshots to the client as server-sent events: one on
// connect, one on every poll tick, and one after each mutation. The
// subscription tears down when the client disconnects.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := handler.UserIDFromContext(r.Context())
	if !ok {
		handler.Error(w, handler.ErrUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		handler.Error(w, handler.ErrInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := h.poller.Subscribe(r.Context(), userID)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(snapshot)
			if err != nil {
				h.logger.ErrorContext(r.Context(), "failed to encode feed snapshot",
					logger.UserID(userID), logger.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
