// Package metrics метрики Prometheus для отправки сообщений, планировщика и HTTP API.
// Все метрики регистрируются в стандартном реестре через promauto.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal попытки отправки WhatsApp по типу сообщения и итоговому статусу.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatsapp_messages_total",
			Help: "Number of WhatsApp send attempts by message type and outcome.",
		},
		[]string{"type", "status"},
	)

	// SchedulerTicksTotal запуски планировщика по результату: completed, skipped, locked.
	SchedulerTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Number of expiry scan ticks by outcome.",
		},
		[]string{"outcome"},
	)

	// SchedulerTickDuration длительность полного прохода A, B, C.
	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Duration of a full expiry scan tick.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// SchedulerItemsTotal обработанные подписки по проходу и результату.
	SchedulerItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_items_total",
			Help: "Subscriptions processed by the expiry scan, by pass and result.",
		},
		[]string{"pass", "result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of HTTP requests received.",
		},
		[]string{"method", "path", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "code"},
	)
)

// HTTPMiddleware считает запросы и их длительность по шаблону маршрута.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := strconv.Itoa(status)
		httpRequestsTotal.WithLabelValues(r.Method, route, code).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
	})
}
