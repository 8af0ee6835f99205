// Package status проверяет подключение инстанса WhatsApp у провайдера.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/response"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	CheckConnection(ctx context.Context) (bool, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.whatsapp.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	connected, err := h.service.CheckConnection(r.Context())
	if err != nil {
		log.Error("failed to check whatsapp connection", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  "could not check whatsapp connection",
			Data:   map[string]any{"connected": false},
		})
		return
	}

	log.Info("whatsapp connection checked", slog.Bool("connected", connected))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"connected": connected,
	}))
}
