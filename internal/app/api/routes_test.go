package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subscription-notifier/internal/http/handlers/health"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-notifier/internal/models"
)

type fakeWhatsApp struct {
	sent []string
}

func (f *fakeWhatsApp) CheckConnection(context.Context) (bool, error) { return true, nil }

func (f *fakeWhatsApp) SendTextMessage(_ context.Context, phone, _ string, _ *int64, _ models.MessageType) error {
	f.sent = append(f.sent, phone)
	return nil
}

type fakeStore struct{}

func (fakeStore) ListDeliveryLogs(context.Context, models.DeliveryLogFilter) ([]*models.DeliveryLog, error) {
	return []*models.DeliveryLog{}, nil
}

func (fakeStore) SaveWhatsAppSettings(context.Context, models.WhatsAppSettings) error { return nil }

type fakePublisher struct{}

func (fakePublisher) Publish(context.Context, string, any) error { return nil }

type fakeScanner struct{}

func (fakeScanner) RunOnce(context.Context) (*models.TickReport, error) {
	return &models.TickReport{TickID: "tick-1"}, nil
}

type fakeReports struct{}

func (fakeReports) Get(context.Context, string, any) (bool, error) { return false, nil }

type pingOK struct{}

func (pingOK) Ping(context.Context) error { return nil }

func newTestRouter(t *testing.T, limiter *rate.Limiter) (http.Handler, *jwt.MakerImpl, *fakeWhatsApp) {
	t.Helper()
	maker := jwt.NewJWTMaker("routes_secret", time.Minute)
	wa := &fakeWhatsApp{}

	r := chi.NewRouter()
	RegisterRoutes(r, slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Tokens:    maker,
		Limiter:   limiter,
		Health:    map[string]health.Pinger{"database": pingOK{}},
		WhatsApp:  wa,
		Store:     fakeStore{},
		Publisher: fakePublisher{},
		Scanner:   fakeScanner{},
		Reports:   fakeReports{},
	})
	return r, maker, wa
}

func bearer(t *testing.T, maker *jwt.MakerImpl, role string) string {
	t.Helper()
	token, err := maker.GenerateToken("someone", role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRoutes(t *testing.T) {
	router, maker, wa := newTestRouter(t, rate.NewLimiter(rate.Inf, 1))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		auth       string
		wantStatus int
	}{
		{name: "health is public", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "metrics is public", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "admin without token", method: http.MethodGet, path: "/api/v1/admin/whatsapp/status", wantStatus: http.StatusUnauthorized},
		{
			name: "admin with user role", method: http.MethodGet, path: "/api/v1/admin/whatsapp/status",
			auth: bearer(t, maker, "user"), wantStatus: http.StatusForbidden,
		},
		{
			name: "status", method: http.MethodGet, path: "/api/v1/admin/whatsapp/status",
			auth: bearer(t, maker, jwt.RoleAdmin), wantStatus: http.StatusOK,
		},
		{
			name: "test message", method: http.MethodPost, path: "/api/v1/admin/whatsapp/test-message",
			body: `{"phone":"11987654321","message":"oi"}`,
			auth: bearer(t, maker, jwt.RoleAdmin), wantStatus: http.StatusOK,
		},
		{
			name: "logs", method: http.MethodGet, path: "/api/v1/admin/whatsapp/logs?limit=10",
			auth: bearer(t, maker, jwt.RoleAdmin), wantStatus: http.StatusOK,
		},
		{
			name: "settings", method: http.MethodPut, path: "/api/v1/admin/whatsapp/settings",
			body: `{"instance_id":"i","token":"t","base_url":"https://api.z-api.io"}`,
			auth: bearer(t, maker, jwt.RoleAdmin), wantStatus: http.StatusOK,
		},
		{
			name: "outbound", method: http.MethodPost, path: "/api/v1/admin/outbound",
			body: `{"type":"text","phone":"11987654321","text":"oi"}`,
			auth: bearer(t, maker, jwt.RoleAdmin), wantStatus: http.StatusAccepted,
		},
		{
			name: "scan", method: http.MethodPost, path: "/api/v1/admin/scan",
			auth: bearer(t, maker, jwt.RoleAdmin), wantStatus: http.StatusOK,
		},
		{
			name: "last report", method: http.MethodGet, path: "/api/v1/admin/scan/last",
			auth: bearer(t, maker, jwt.RoleAdmin), wantStatus: http.StatusNotFound,
		},
		{
			name: "wrong method", method: http.MethodGet, path: "/api/v1/admin/scan",
			auth: bearer(t, maker, jwt.RoleAdmin), wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.Equal(t, []string{"11987654321"}, wa.sent)
}

func TestRoutes_AdminRateLimit(t *testing.T) {
	router, maker, _ := newTestRouter(t, rate.NewLimiter(rate.Limit(0.001), 1))
	auth := bearer(t, maker, jwt.RoleAdmin)

	codes := make([]int, 0, 2)
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/whatsapp/status", nil)
		req.Header.Set("Authorization", auth)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
