package models

import "time"

// MessageType тип исходящего сообщения.
type MessageType string

const (
	MessageTypeSubscriptionReminder MessageType = "subscription_reminder"
	MessageTypeSubscriptionExpired  MessageType = "subscription_expired"
	MessageTypeTesterExpired        MessageType = "tester_expired"
	MessageTypeText                 MessageType = "text"
	MessageTypeProductNotification  MessageType = "product_notification"
	MessageTypePriceAlert           MessageType = "price_alert"
	MessageTypeReport               MessageType = "report"
)

// Valid сообщает, известен ли тип сообщения.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeSubscriptionReminder, MessageTypeSubscriptionExpired, MessageTypeTesterExpired,
		MessageTypeText, MessageTypeProductNotification, MessageTypePriceAlert, MessageTypeReport:
		return true
	}
	return false
}

// IsSubscriptionNotification сообщает, относится ли тип к уведомлениям о подписке.
// Такие сообщения отправляет только планировщик.
func (t MessageType) IsSubscriptionNotification() bool {
	switch t {
	case MessageTypeSubscriptionReminder, MessageTypeSubscriptionExpired, MessageTypeTesterExpired:
		return true
	}
	return false
}

// DeliveryStatus статус попытки отправки. PENDING -> SUCCESS | FAILED.
type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSuccess DeliveryStatus = "success"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// DeliveryLog запись журнала исходящих сообщений. Записи никогда не удаляются.
type DeliveryLog struct {
	ID                int64          `json:"id"`
	UserID            *int64         `json:"user_id,omitempty"`
	Phone             string         `json:"phone"`
	MessageType       MessageType    `json:"message_type"`
	Message           string         `json:"message"`
	Status            DeliveryStatus `json:"status"`
	ExternalMessageID *string        `json:"external_message_id,omitempty"`
	ErrorMessage      *string        `json:"error_message,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	SentAt            *time.Time     `json:"sent_at,omitempty"`
}

// DeliveryOutcome результат попытки отправки.
type DeliveryOutcome struct {
	Status            DeliveryStatus
	ExternalMessageID string
	ErrorMessage      string
	SentAt            time.Time
}

// DeliveryLogFilter параметры выборки журнала.
type DeliveryLogFilter struct {
	UserID      *int64
	MessageType *MessageType
	Status      *DeliveryStatus
	Limit       int
	Offset      int
}
