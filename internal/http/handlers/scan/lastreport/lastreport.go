// Package lastreport отдаёт отчёт последнего завершённого запуска проверки подписок.
package lastreport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/response"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-notifier/internal/models"
	"github.com/magabrotheeeer/subscription-notifier/internal/services/scheduler"
)

type Handler struct {
	log   *slog.Logger
	cache Cache
}

type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
}

func New(log *slog.Logger, cache Cache) *Handler {
	return &Handler{
		log:   log,
		cache: cache,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.scan.lastreport"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var report models.TickReport
	found, err := h.cache.Get(r.Context(), scheduler.LastReportKey, &report)
	if err != nil {
		log.Error("failed to read last tick report", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read last report"))
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("no scan has finished yet"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(report))
}
