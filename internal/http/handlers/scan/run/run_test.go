package run

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-notifier/internal/models"
	"github.com/magabrotheeeer/subscription-notifier/internal/services/scheduler"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) RunOnce(ctx context.Context) (*models.TickReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TickReport), args.Error(1)
}

func TestRunHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	report := &models.TickReport{
		TickID:     "tick-1",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Reminders:  models.PassReport{Candidates: 2, Sent: 1, Skipped: 1},
		Expired:    models.PassReport{Candidates: 1, Sent: 1, Expired: 1},
	}

	tests := []struct {
		name           string
		report         *models.TickReport
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "успешный запуск",
			report:         report,
			expectedStatus: http.StatusOK,
			expectedBody:   `"tick_id":"tick-1"`,
		},
		{
			name:           "запуск уже идёт в этом процессе",
			err:            scheduler.ErrTickInProgress,
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"scan is already running"}`,
		},
		{
			name:           "запуск идёт на другой реплике",
			err:            scheduler.ErrTickLocked,
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"scan is already running"}`,
		},
		{
			name:           "прочая ошибка",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not run scan"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			if tt.report != nil {
				service.On("RunOnce", mock.Anything).Return(tt.report, nil)
			} else {
				service.On("RunOnce", mock.Anything).Return(nil, tt.err)
			}

			rec := httptest.NewRecorder()
			New(logger, service).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			service.AssertExpectations(t)
		})
	}
}

func TestRunHandler_ClientDisconnectDoesNotCancelScan(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := new(MockService)
	service.On("RunOnce", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })).
		Return(&models.TickReport{TickID: "tick-2"}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/scan", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	New(logger, service).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}
