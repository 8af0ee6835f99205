// Package testmessage отправляет пробное сообщение через WhatsApp.
// Отправка проходит через журнал доставки, как и любая другая.
package testmessage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/response"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-notifier/internal/models"
	"github.com/magabrotheeeer/subscription-notifier/internal/services/messaging"
)

// Request тело запроса на пробную отправку.
type Request struct {
	Phone   string `json:"phone" validate:"required,max=32"`
	Message string `json:"message" validate:"required,max=4096"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	SendTextMessage(ctx context.Context, phoneNumber, message string, userID *int64, messageType models.MessageType) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.whatsapp.testmessage"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	err := h.service.SendTextMessage(r.Context(), req.Phone, req.Message, nil, models.MessageTypeText)
	switch {
	case errors.Is(err, messaging.ErrEmptyPhone):
		log.Error("phone has no digits", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("phone must contain digits"))
		return
	case err != nil:
		log.Error("failed to send test message", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not send test message"))
		return
	}

	log.Info("test message sent")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"sent": true,
	}))
}
