// Package logs отдаёт журнал исходящих сообщений WhatsApp для аудита.
package logs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/response"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-notifier/internal/models"
)

const maxLimit = 200

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	ListDeliveryLogs(ctx context.Context, filter models.DeliveryLogFilter) ([]*models.DeliveryLog, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.whatsapp.logs"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		log.Error("failed to parse query", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	entries, err := h.service.ListDeliveryLogs(r.Context(), filter)
	if err != nil {
		log.Error("failed to list delivery logs", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list delivery logs"))
		return
	}
	if entries == nil {
		entries = []*models.DeliveryLog{}
	}

	log.Info("delivery logs listed", slog.Int("count", len(entries)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"logs": entries,
	}))
}

func parseFilter(q url.Values) (models.DeliveryLogFilter, error) {
	var filter models.DeliveryLogFilter

	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return filter, errors.New("invalid user_id")
		}
		filter.UserID = &id
	}
	if v := q.Get("type"); v != "" {
		mt := models.MessageType(v)
		if !mt.Valid() {
			return filter, errors.New("invalid type")
		}
		filter.MessageType = &mt
	}
	if v := q.Get("status"); v != "" {
		st := models.DeliveryStatus(v)
		switch st {
		case models.DeliveryStatusPending, models.DeliveryStatusSuccess, models.DeliveryStatusFailed:
		default:
			return filter, errors.New("invalid status")
		}
		filter.Status = &st
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = min(limit, maxLimit)
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return filter, errors.New("invalid offset")
		}
		filter.Offset = offset
	}
	return filter, nil
}
