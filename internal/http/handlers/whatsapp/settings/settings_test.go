package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-notifier/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SaveWhatsAppSettings(ctx context.Context, settings models.WhatsAppSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func TestSettingsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	valid := models.WhatsAppSettings{
		InstanceID:  "inst-2",
		Token:       "tok-2",
		BaseURL:     "https://api.z-api.io",
		ClientToken: "client-2",
	}

	tests := []struct {
		name           string
		requestBody    any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешное обновление",
			requestBody: valid,
			setupMock: func(m *MockService) {
				m.On("SaveWhatsAppSettings", mock.Anything, valid).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"instance_id":"inst-2","base_url":"https://api.z-api.io"}}`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "{",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"failed to decode request"}`,
		},
		{
			name:           "ошибка валидации",
			requestBody:    models.WhatsAppSettings{BaseURL: "not a url"},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{"status":"Error","error":"field InstanceID is a required field, ` +
				`field Token is a required field, field BaseURL is not a valid url"}`,
		},
		{
			name:        "ошибка базы",
			requestBody: valid,
			setupMock: func(m *MockService) {
				m.On("SaveWhatsAppSettings", mock.Anything, valid).Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not save settings"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)

			var body []byte
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				var err error
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPut, "/whatsapp/settings", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			New(logger, service).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "tok-2")
			service.AssertExpectations(t)
		})
	}
}
