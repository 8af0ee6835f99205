// Package messaging отправка сообщений WhatsApp с записью каждой попытки в журнал доставки.
//
// Перед отправкой создаётся запись со статусом pending, после ответа провайдера она
// переводится в success или failed. Ошибка провайдера возвращается вызывающему.
// Учётные данные читаются из хранилища настроек перед каждым вызовом.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/subscription-notifier/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/phone"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-notifier/internal/metrics"
	"github.com/magabrotheeeer/subscription-notifier/internal/models"
	"github.com/magabrotheeeer/subscription-notifier/internal/whatsapp"
)

// ErrEmptyPhone после нормализации номер оказался пустым.
var ErrEmptyPhone = errors.New("empty phone number")

// ErrRecordAttempt не удалось создать запись в журнале доставки. Провайдер не вызывался.
var ErrRecordAttempt = errors.New("record delivery attempt")

type DeliveryLogRepository interface {
	CreateDeliveryLog(ctx context.Context, entry models.DeliveryLog) (int64, error)
	UpdateDeliveryLogOutcome(ctx context.Context, id int64, outcome models.DeliveryOutcome) error
}

type SettingsRepository interface {
	GetWhatsAppSettings(ctx context.Context) (*models.WhatsAppSettings, error)
}

type Provider interface {
	SendText(ctx context.Context, creds whatsapp.Credentials, req whatsapp.SendTextRequest) (*whatsapp.SendResponse, error)
	SendImage(ctx context.Context, creds whatsapp.Credentials, req whatsapp.SendImageRequest) (*whatsapp.SendResponse, error)
	SendDocument(ctx context.Context, creds whatsapp.Credentials, req whatsapp.SendDocumentRequest) (*whatsapp.SendResponse, error)
	SendButtonList(ctx context.Context, creds whatsapp.Credentials, req whatsapp.SendButtonListRequest) (*whatsapp.SendResponse, error)
	Status(ctx context.Context, creds whatsapp.Credentials) (*whatsapp.StatusResponse, error)
}

type Service struct {
	provider    Provider
	logs        DeliveryLogRepository
	settings    SettingsRepository
	defaults    whatsapp.Credentials
	countryCode string
	clock       clock.Clock
	log         *slog.Logger

	mu        sync.RWMutex
	lastKnown *whatsapp.Credentials
}

// NewService создаёт сервис. defaults используются, пока в настройках ничего не сохранено.
func NewService(provider Provider, logs DeliveryLogRepository, settings SettingsRepository,
	defaults whatsapp.Credentials, countryCode string, clk clock.Clock, log *slog.Logger) *Service {
	return &Service{
		provider:    provider,
		logs:        logs,
		settings:    settings,
		defaults:    defaults,
		countryCode: countryCode,
		clock:       clk,
		log:         log,
	}
}

// Credentials возвращает учётные данные для очередного вызова провайдера.
// Порядок: таблица settings, последние успешно прочитанные, статические из конфига.
func (s *Service) Credentials(ctx context.Context) whatsapp.Credentials {
	const op = "messaging.Credentials"

	stored, err := s.settings.GetWhatsAppSettings(ctx)
	if err == nil {
		creds := whatsapp.Credentials{
			BaseURL:     stored.BaseURL,
			InstanceID:  stored.InstanceID,
			Token:       stored.Token,
			ClientToken: stored.ClientToken,
		}
		if creds.BaseURL == "" {
			creds.BaseURL = s.defaults.BaseURL
		}
		s.mu.Lock()
		s.lastKnown = &creds
		s.mu.Unlock()
		return creds
	}

	s.mu.RLock()
	last := s.lastKnown
	s.mu.RUnlock()
	if last != nil {
		s.log.Warn("failed to load whatsapp settings, using last known credentials", sl.Op(op), sl.Err(err))
		return *last
	}
	s.log.Warn("failed to load whatsapp settings, using static credentials", sl.Op(op), sl.Err(err))
	return s.defaults
}

// SendTextMessage отправляет текст и записывает попытку в журнал.
// userID может быть nil для служебных сообщений без владельца.
func (s *Service) SendTextMessage(ctx context.Context, phoneNumber, message string, userID *int64, messageType models.MessageType) error {
	return s.send(ctx, "messaging.SendTextMessage", phoneNumber, message, userID, messageType,
		func(creds whatsapp.Credentials, normalized string) (*whatsapp.SendResponse, error) {
			return s.provider.SendText(ctx, creds, whatsapp.SendTextRequest{Phone: normalized, Message: message})
		})
}

// SendImage отправляет изображение с подписью.
func (s *Service) SendImage(ctx context.Context, phoneNumber, image, caption string, userID *int64, messageType models.MessageType) error {
	return s.send(ctx, "messaging.SendImage", phoneNumber, caption, userID, messageType,
		func(creds whatsapp.Credentials, normalized string) (*whatsapp.SendResponse, error) {
			return s.provider.SendImage(ctx, creds, whatsapp.SendImageRequest{Phone: normalized, Image: image, Caption: caption})
		})
}

// SendDocument отправляет документ. В журнал пишется имя файла и подпись.
func (s *Service) SendDocument(ctx context.Context, phoneNumber string, doc whatsapp.SendDocumentRequest, userID *int64, messageType models.MessageType) error {
	logged := doc.FileName
	if doc.Caption != "" {
		logged = fmt.Sprintf("%s: %s", doc.FileName, doc.Caption)
	}
	return s.send(ctx, "messaging.SendDocument", phoneNumber, logged, userID, messageType,
		func(creds whatsapp.Credentials, normalized string) (*whatsapp.SendResponse, error) {
			doc.Phone = normalized
			return s.provider.SendDocument(ctx, creds, doc)
		})
}

// SendButtonList отправляет сообщение со списком кнопок.
func (s *Service) SendButtonList(ctx context.Context, phoneNumber, message string, buttons []whatsapp.Button, userID *int64, messageType models.MessageType) error {
	return s.send(ctx, "messaging.SendButtonList", phoneNumber, message, userID, messageType,
		func(creds whatsapp.Credentials, normalized string) (*whatsapp.SendResponse, error) {
			return s.provider.SendButtonList(ctx, creds, whatsapp.SendButtonListRequest{
				Phone:      normalized,
				Message:    message,
				ButtonList: whatsapp.ButtonList{Buttons: buttons},
			})
		})
}

// CheckConnection сообщает, подключён ли инстанс. В журнал не пишет.
func (s *Service) CheckConnection(ctx context.Context) (bool, error) {
	const op = "messaging.CheckConnection"
	status, err := s.provider.Status(ctx, s.Credentials(ctx))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return status.Connected, nil
}

type sendFunc func(creds whatsapp.Credentials, normalized string) (*whatsapp.SendResponse, error)

func (s *Service) send(ctx context.Context, op, phoneNumber, message string, userID *int64,
	messageType models.MessageType, do sendFunc) error {
	normalized := phone.Normalize(phoneNumber, s.countryCode)
	if normalized == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyPhone)
	}

	log := s.log.With(
		sl.Op(op),
		slog.String("phone", phone.Mask(normalized)),
		slog.String("message_type", string(messageType)),
	)
	if userID != nil {
		log = log.With(slog.Int64("user_id", *userID))
	}

	logID, err := s.logs.CreateDeliveryLog(ctx, models.DeliveryLog{
		UserID:      userID,
		Phone:       normalized,
		MessageType: messageType,
		Message:     message,
		Status:      models.DeliveryStatusPending,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrRecordAttempt, err)
	}

	resp, sendErr := do(s.Credentials(ctx), normalized)

	outcome := models.DeliveryOutcome{Status: models.DeliveryStatusSuccess, SentAt: s.clock.Now()}
	if sendErr != nil {
		outcome = models.DeliveryOutcome{Status: models.DeliveryStatusFailed, ErrorMessage: sendErr.Error()}
	} else if resp != nil {
		outcome.ExternalMessageID = resp.ExternalID()
	}
	metrics.MessagesTotal.WithLabelValues(string(messageType), string(outcome.Status)).Inc()

	// Запись не должна остаться pending: результат пишется и при отменённом контексте.
	if err := s.logs.UpdateDeliveryLogOutcome(context.WithoutCancel(ctx), logID, outcome); err != nil {
		log.Error("failed to record delivery outcome", sl.Err(err), slog.Int64("log_id", logID))
	}

	if sendErr != nil {
		log.Warn("whatsapp message failed", sl.Err(sendErr), slog.Int64("log_id", logID))
		return fmt.Errorf("%s: %w", op, sendErr)
	}
	log.Info("whatsapp message sent", slog.Int64("log_id", logID), slog.String("external_id", outcome.ExternalMessageID))
	return nil
}
