// Package enqueue ставит разовое сообщение в очередь whatsapp.outbound.
// Само сообщение отправляет воркер sender.
package enqueue

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/response"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-notifier/internal/models"
	"github.com/magabrotheeeer/subscription-notifier/internal/rabbitmq"
)

type Handler struct {
	log       *slog.Logger
	publisher Publisher
	validate  *validator.Validate
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

func New(log *slog.Logger, publisher Publisher) *Handler {
	return &Handler{
		log:       log,
		publisher: publisher,
		validate:  validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.outbound.enqueue"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var msg models.OutboundMessage
	if err := render.DecodeJSON(r.Body, &msg); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := h.validate.Struct(msg); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if !msg.Type.Valid() || msg.Type.IsSubscriptionNotification() {
		log.Error("unsupported message type", slog.String("message_type", string(msg.Type)))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unsupported message type"))
		return
	}

	if err := h.publisher.Publish(r.Context(), rabbitmq.OutboundRoutingKey, msg); err != nil {
		log.Error("failed to publish outbound message", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("could not enqueue message"))
		return
	}

	log.Info("outbound message enqueued", slog.String("message_type", string(msg.Type)))
	w.WriteHeader(http.StatusAccepted)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"queued": true,
	}))
}
