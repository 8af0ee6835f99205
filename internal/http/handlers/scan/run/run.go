// Package run запускает проверку подписок вне расписания.
package run

import (
	"context"
	"errors"
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
	log     *slog.Logger
	service Service
}

type Service interface {
	RunOnce(ctx context.Context) (*models.TickReport, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.scan.run"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	// Запуск доводится до конца, даже если клиент отключился.
	report, err := h.service.RunOnce(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, scheduler.ErrTickInProgress), errors.Is(err, scheduler.ErrTickLocked):
		log.Warn("scan is already running", sl.Err(err))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("scan is already running"))
		return
	case err != nil:
		log.Error("failed to run scan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not run scan"))
		return
	}

	log.Info("manual scan finished", slog.String("tick_id", report.TickID))
	render.JSON(w, r, response.StatusOKWithData(report))
}
