package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subscription-notifier/internal/http/handlers/health"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/handlers/outbound/enqueue"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/handlers/scan/lastreport"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/handlers/scan/run"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/handlers/whatsapp/logs"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/handlers/whatsapp/settings"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/handlers/whatsapp/status"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/handlers/whatsapp/testmessage"
	"github.com/magabrotheeeer/subscription-notifier/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-notifier/internal/metrics"
)

// WhatsAppService отправка и проверка подключения.
type WhatsAppService interface {
	status.Service
	testmessage.Service
}

// Store журнал доставки и настройки провайдера.
type Store interface {
	logs.Service
	settings.Service
}

// Deps зависимости обработчиков.
type Deps struct {
	Tokens    middlewarectx.TokenParser
	Limiter   *rate.Limiter
	Health    map[string]health.Pinger
	WhatsApp  WhatsAppService
	Store     Store
	Publisher enqueue.Publisher
	Scanner   run.Service
	Reports   lastreport.Cache
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		metrics.HTTPMiddleware,
	)

	r.Get("/health", health.New(logger, deps.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Только для администраторов
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))
		r.Use(middlewarectx.AdminOnly(logger))
		r.Use(middlewarectx.RateLimitMiddleware(deps.Limiter, logger))

		r.Get("/whatsapp/status", status.New(logger, deps.WhatsApp).ServeHTTP)
		r.Post("/whatsapp/test-message", testmessage.New(logger, deps.WhatsApp).ServeHTTP)
		r.Get("/whatsapp/logs", logs.New(logger, deps.Store).ServeHTTP)
		r.Put("/whatsapp/settings", settings.New(logger, deps.Store).ServeHTTP)
		r.Post("/outbound", enqueue.New(logger, deps.Publisher).ServeHTTP)
		r.Post("/scan", run.New(logger, deps.Scanner).ServeHTTP)
		r.Get("/scan/last", lastreport.New(logger, deps.Reports).ServeHTTP)
	})
}
