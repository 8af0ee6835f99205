package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials(baseURL string) Credentials {
	return Credentials{BaseURL: baseURL, InstanceID: "inst", Token: "tok", ClientToken: "client"}
}

func TestClient_SendText(t *testing.T) {
	var (
		gotPath   string
		gotHeader string
		gotBody   SendTextRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("Client-Token")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"zaapId":"z1","messageId":"m1","id":"i1"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(time.Second).SendText(context.Background(), testCredentials(srv.URL+"/"),
		SendTextRequest{Phone: "5511987654321", Message: "Olá"})
	require.NoError(t, err)

	assert.Equal(t, "/instances/inst/token/tok/send-text", gotPath)
	assert.Equal(t, "client", gotHeader)
	assert.Equal(t, "5511987654321", gotBody.Phone)
	assert.Equal(t, "Olá", gotBody.Message)
	assert.Equal(t, "m1", resp.ExternalID())
}

func TestClient_Endpoints(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))
	defer srv.Close()

	client := NewClient(time.Second)
	creds := testCredentials(srv.URL)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		wantPath string
	}{
		{
			name: "image",
			call: func() error {
				_, err := client.SendImage(ctx, creds, SendImageRequest{Phone: "1", Image: "https://img"})
				return err
			},
			wantPath: "/instances/inst/token/tok/send-image",
		},
		{
			name: "document",
			call: func() error {
				_, err := client.SendDocument(ctx, creds, SendDocumentRequest{Phone: "1", Document: "https://doc", Extension: ".pdf"})
				return err
			},
			wantPath: "/instances/inst/token/tok/send-document/pdf",
		},
		{
			name: "button list",
			call: func() error {
				_, err := client.SendButtonList(ctx, creds, SendButtonListRequest{
					Phone: "1", Message: "m", ButtonList: ButtonList{Buttons: []Button{{ID: "1", Label: "Renovar"}}},
				})
				return err
			},
			wantPath: "/instances/inst/token/tok/send-button-list",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			assert.Equal(t, tt.wantPath, gotPath)
		})
	}
}

func TestClient_SendDocument_EmptyExtension(t *testing.T) {
	_, err := NewClient(time.Second).SendDocument(context.Background(), testCredentials("http://unused"),
		SendDocumentRequest{Phone: "1", Document: "d"})
	require.Error(t, err)
}

func TestClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/instances/inst/token/tok/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"connected":true,"smartphoneConnected":true}`))
	}))
	defer srv.Close()

	status, err := NewClient(time.Second).Status(context.Background(), testCredentials(srv.URL))
	require.NoError(t, err)
	assert.True(t, status.Connected)
}

func TestClient_ErrorStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "json message", status: http.StatusBadRequest, body: `{"message":"phone invalid"}`, wantMessage: "phone invalid"},
		{name: "json error", status: http.StatusUnauthorized, body: `{"error":"bad token"}`, wantMessage: "bad token"},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream down\n", wantMessage: "upstream down"},
		{name: "empty", status: http.StatusInternalServerError, body: "", wantMessage: "empty response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(time.Second).SendText(context.Background(), testCredentials(srv.URL), SendTextRequest{Phone: "1"})
			require.ErrorIs(t, err, ErrProviderStatus)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantMessage, statusErr.Message)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewClient(50*time.Millisecond).SendText(context.Background(), testCredentials(srv.URL), SendTextRequest{Phone: "1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProviderStatus)
}

func TestClient_InvalidCredentials(t *testing.T) {
	_, err := NewClient(time.Second).SendText(context.Background(), Credentials{BaseURL: "http://x"}, SendTextRequest{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient(0)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}
