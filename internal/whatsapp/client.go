// Package whatsapp HTTP-клиент провайдера WhatsApp (API в стиле Z-API).
// Клиент не хранит учётные данные: они передаются в каждый вызов.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout таймаут HTTP-запроса к провайдеру.
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 4 << 10

var (
	// ErrInvalidCredentials учётные данные не заполнены.
	ErrInvalidCredentials = errors.New("whatsapp credentials are not configured")
	// ErrProviderStatus провайдер ответил не-2xx статусом.
	ErrProviderStatus = errors.New("whatsapp provider returned error status")
)

// StatusError ответ провайдера с не-2xx статусом. Оборачивает ErrProviderStatus.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrProviderStatus
}

type Client struct {
	httpClient *http.Client
}

// NewClient создаёт клиент провайдера. timeout <= 0 заменяется на DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendText отправляет текстовое сообщение.
func (c *Client) SendText(ctx context.Context, creds Credentials, req SendTextRequest) (*SendResponse, error) {
	const op = "whatsapp.SendText"
	var resp SendResponse
	if err := c.do(ctx, creds, http.MethodPost, "send-text", req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

// SendImage отправляет изображение с подписью.
func (c *Client) SendImage(ctx context.Context, creds Credentials, req SendImageRequest) (*SendResponse, error) {
	const op = "whatsapp.SendImage"
	var resp SendResponse
	if err := c.do(ctx, creds, http.MethodPost, "send-image", req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

// SendDocument отправляет документ. Расширение файла входит в путь запроса.
func (c *Client) SendDocument(ctx context.Context, creds Credentials, req SendDocumentRequest) (*SendResponse, error) {
	const op = "whatsapp.SendDocument"
	ext := strings.TrimPrefix(req.Extension, ".")
	if ext == "" {
		return nil, fmt.Errorf("%s: empty document extension", op)
	}
	var resp SendResponse
	if err := c.do(ctx, creds, http.MethodPost, "send-document/"+url.PathEscape(ext), req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

// SendButtonList отправляет сообщение со списком кнопок.
func (c *Client) SendButtonList(ctx context.Context, creds Credentials, req SendButtonListRequest) (*SendResponse, error) {
	const op = "whatsapp.SendButtonList"
	var resp SendResponse
	if err := c.do(ctx, creds, http.MethodPost, "send-button-list", req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

// Status запрашивает состояние инстанса.
func (c *Client) Status(ctx context.Context, creds Credentials) (*StatusResponse, error) {
	const op = "whatsapp.Status"
	var resp StatusResponse
	if err := c.do(ctx, creds, http.MethodGet, "status", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

func (c *Client) endpoint(creds Credentials, action string) string {
	return fmt.Sprintf("%s/instances/%s/token/%s/%s",
		strings.TrimRight(creds.BaseURL, "/"),
		url.PathEscape(creds.InstanceID),
		url.PathEscape(creds.Token),
		action)
}

func (c *Client) do(ctx context.Context, creds Credentials, method, action string, body, out any) error {
	if !creds.Valid() {
		return ErrInvalidCredentials
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(creds, action), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if creds.ClientToken != "" {
		req.Header.Set("Client-Token", creds.ClientToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return "empty response"
	}
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
