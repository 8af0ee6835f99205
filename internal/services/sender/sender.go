// Package sender обрабатывает разовые сообщения из очереди whatsapp.outbound:
// уведомления о товарах, снижении цены, отчёты и произвольный текст.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-notifier/internal/lib/formatter"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-notifier/internal/models"
	"github.com/magabrotheeeer/subscription-notifier/internal/services/messaging"
	"github.com/magabrotheeeer/subscription-notifier/internal/whatsapp"
)

// ErrInvalidMessage сообщение из очереди не может быть отправлено ни при каком повторе.
var ErrInvalidMessage = errors.New("invalid outbound message")

type Messenger interface {
	SendTextMessage(ctx context.Context, phone, message string, userID *int64, messageType models.MessageType) error
	SendButtonList(ctx context.Context, phone, message string, buttons []whatsapp.Button, userID *int64, messageType models.MessageType) error
	SendImage(ctx context.Context, phone, image, caption string, userID *int64, messageType models.MessageType) error
	SendDocument(ctx context.Context, phone string, doc whatsapp.SendDocumentRequest, userID *int64, messageType models.MessageType) error
}

type SenderService struct {
	messenger Messenger
	formatter *formatter.Formatter
	validate  *validator.Validate
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(messenger Messenger, f *formatter.Formatter, log *slog.Logger) *SenderService {
	return &SenderService{
		messenger: messenger,
		formatter: f,
		validate:  validator.New(),
		log:       log,
	}
}

// HandleOutbound обработчик сообщения из очереди. Некорректные сообщения
// логируются и подтверждаются, ошибка провайдера возвращается для повтора.
func (s *SenderService) HandleOutbound(ctx context.Context, body []byte) error {
	const op = "sender.HandleOutbound"
	log := s.log.With(sl.Op(op))

	var msg models.OutboundMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error("failed to unmarshal message body", sl.Err(err))
		return nil
	}

	err := s.Send(ctx, msg)
	if errors.Is(err, ErrInvalidMessage) || errors.Is(err, messaging.ErrEmptyPhone) {
		log.Error("dropping outbound message", sl.Err(err), slog.String("message_type", string(msg.Type)))
		return nil
	}
	return err
}

// Send проверяет сообщение, рендерит шаблон и отправляет через WhatsApp.
func (s *SenderService) Send(ctx context.Context, msg models.OutboundMessage) error {
	const op = "sender.Send"

	if err := s.validate.Struct(msg); err != nil {
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidMessage, err.Error())
	}

	var err error
	switch msg.Type {
	case models.MessageTypeText:
		if strings.TrimSpace(msg.Text) == "" {
			return fmt.Errorf("%s: %w: empty text", op, ErrInvalidMessage)
		}
		if len(msg.Buttons) > 0 {
			err = s.messenger.SendButtonList(ctx, msg.Phone, msg.Text, buttons(msg.Buttons), msg.UserID, msg.Type)
		} else {
			err = s.messenger.SendTextMessage(ctx, msg.Phone, msg.Text, msg.UserID, msg.Type)
		}
	case models.MessageTypeProductNotification:
		if msg.Product == nil {
			return fmt.Errorf("%s: %w: product is required", op, ErrInvalidMessage)
		}
		text := s.formatter.ProductUpdate(*msg.Product)
		if msg.Product.ImageURL != "" {
			err = s.messenger.SendImage(ctx, msg.Phone, msg.Product.ImageURL, text, msg.UserID, msg.Type)
		} else {
			err = s.messenger.SendTextMessage(ctx, msg.Phone, text, msg.UserID, msg.Type)
		}
	case models.MessageTypePriceAlert:
		if msg.PriceAlert == nil {
			return fmt.Errorf("%s: %w: price alert is required", op, ErrInvalidMessage)
		}
		err = s.messenger.SendTextMessage(ctx, msg.Phone, s.formatter.PriceAlert(*msg.PriceAlert), msg.UserID, msg.Type)
	case models.MessageTypeReport:
		if msg.Report == nil {
			return fmt.Errorf("%s: %w: report is required", op, ErrInvalidMessage)
		}
		text := s.formatter.Report(*msg.Report)
		if msg.Report.DocumentURL != "" {
			err = s.messenger.SendDocument(ctx, msg.Phone, whatsapp.SendDocumentRequest{
				Document:  msg.Report.DocumentURL,
				FileName:  path.Base(documentPath(msg.Report.DocumentURL)),
				Caption:   text,
				Extension: documentExtension(msg.Report.DocumentURL),
			}, msg.UserID, msg.Type)
		} else {
			err = s.messenger.SendTextMessage(ctx, msg.Phone, text, msg.UserID, msg.Type)
		}
	default:
		// Сообщения о подписках отправляет только планировщик.
		return fmt.Errorf("%s: %w: unsupported type %q", op, ErrInvalidMessage, msg.Type)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func buttons(in []models.OutboundButton) []whatsapp.Button {
	out := make([]whatsapp.Button, 0, len(in))
	for _, b := range in {
		out = append(out, whatsapp.Button{ID: b.ID, Label: b.Label})
	}
	return out
}

func documentPath(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return u.Path
	}
	return raw
}

func documentExtension(raw string) string {
	ext := strings.TrimPrefix(path.Ext(documentPath(raw)), ".")
	if ext == "" {
		return "pdf"
	}
	return strings.ToLower(ext)
}
