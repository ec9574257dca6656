package emails

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forgecrm/forgecrm/handler"
	"github.com/forgecrm/forgecrm/pkg/logger"
)

// Handler exposes email dispatch and history over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates the HTTP handler for the emails module.
func NewHandler(service *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, logger: log}
}

// Router returns the chi router for /emails. All routes expect an
// authenticated user in the request context.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.dispatch)
	r.Get("/contact/{id}", h.listByContact)
	r.Post("/{id}/events", h.applyEvent)

	return r
}

// TemplatesRouter returns the chi router for /email-templates.
func (h *Handler) TemplatesRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listTemplates)
	return r
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := handler.UserIDFromContext(r.Context())
	if !ok {
		handler.Error(w, handler.ErrUnauthorized)
		return
	}

	var in DispatchInput
	if err := handler.DecodeJSON(r, &in); err != nil {
		handler.Error(w, err)
		return
	}

	msg, err := h.service.Dispatch(r.Context(), userID, in)
	if err != nil {
		h.renderDispatchError(w, r, msg, err)
		return
	}

	handler.JSON(w, http.StatusCreated, msg)
}

// renderDispatchError maps dispatch failures onto distinct client-visible
// outcomes: bad input, provider failure (the message is recorded as
// failed), and the narrow case where the provider accepted the email but
// the record was lost.
func (h *Handler) renderDispatchError(w http.ResponseWriter, r *http.Request, msg Message, err error) {
	var valErr handler.ValidationError
	switch {
	case errors.As(err, &valErr):
		handler.Error(w, valErr)
	case errors.Is(err, ErrSentStatusUnknown):
		h.logger.ErrorContext(r.Context(), "dispatch persisted nothing after send",
			logger.MessageID(msg.ID), logger.Error(err))
		handler.Error(w, handler.NewHTTPError(http.StatusInternalServerError, "sent_status_unknown"))
	case errors.Is(err, ErrTransport):
		h.logger.WarnContext(r.Context(), "mail transport rejected message",
			logger.MessageID(msg.ID), logger.ContactID(msg.ContactID), logger.Error(err))
		handler.Error(w, handler.NewHTTPError(http.StatusBadGateway, "transport_failed"))
	default:
		h.logger.ErrorContext(r.Context(), "dispatch failed",
			logger.MessageID(msg.ID), logger.Error(err))
		handler.Error(w, handler.ErrInternalServerError)
	}
}

func (h *Handler) listByContact(w http.ResponseWriter, r *http.Request) {
	if _, ok := handler.UserIDFromContext(r.Context()); !ok {
		handler.Error(w, handler.ErrUnauthorized)
		return
	}

	contactID := chi.URLParam(r, "id")
	msgs, err := h.service.ListByContact(r.Context(), contactID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list contact emails",
			logger.ContactID(contactID), logger.Error(err))
		handler.Error(w, handler.ErrInternalServerError)
		return
	}

	handler.JSON(w, http.StatusOK, msgs)
}

// eventRequest is the body of a delivery callback.
type eventRequest struct {
	Event Event `json:"event"`
}

func (h *Handler) applyEvent(w http.ResponseWriter, r *http.Request) {
	if _, ok := handler.UserIDFromContext(r.Context()); !ok {
		handler.Error(w, handler.ErrUnauthorized)
		return
	}

	var req eventRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.Error(w, err)
		return
	}

	messageID := chi.URLParam(r, "id")
	msg, err := h.service.ApplyEvent(r.Context(), messageID, req.Event)
	switch {
	case err == nil:
		handler.JSON(w, http.StatusOK, msg)
	case errors.Is(err, ErrUnknownEvent):
		verr := handler.NewValidationError()
		verr.Add("event", "event must be delivered or opened")
		handler.Error(w, verr)
	case errors.Is(err, ErrMessageNotFound):
		handler.Error(w, handler.ErrNotFound)
	case errors.Is(err, ErrInvalidTransition):
		handler.Error(w, handler.ErrConflict)
	default:
		h.logger.ErrorContext(r.Context(), "failed to apply delivery event",
			logger.MessageID(messageID), logger.Event(string(req.Event)), logger.Error(err))
		handler.Error(w, handler.ErrInternalServerError)
	}
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	if _, ok := handler.UserIDFromContext(r.Context()); !ok {
		handler.Error(w, handler.ErrUnauthorized)
		return
	}

	handler.JSON(w, http.StatusOK, h.service.Templates())
}
