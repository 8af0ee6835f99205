package models

import "time"

// OutboundMessage разовое сообщение, поставленное в очередь whatsapp.outbound.
// В зависимости от Type заполняется одно из полей с данными шаблона.
type OutboundMessage struct {
	Type   MessageType `json:"type" validate:"required"`
	Phone  string      `json:"phone" validate:"required,max=32"`
	UserID *int64      `json:"user_id,omitempty"`
	Text   string      `json:"text,omitempty"`
	// Buttons кнопки быстрого ответа к текстовому сообщению.
	Buttons    []OutboundButton `json:"buttons,omitempty" validate:"omitempty,max=3,dive"`
	Product    *ProductUpdate   `json:"product,omitempty"`
	PriceAlert *PriceAlert      `json:"price_alert,omitempty"`
	Report     *Report          `json:"report,omitempty"`
}

// OutboundButton кнопка быстрого ответа.
type OutboundButton struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label" validate:"required,max=20"`
}

// ProductUpdate данные уведомления об обновлении товара.
type ProductUpdate struct {
	UserName    string  `json:"user_name"`
	ProductName string  `json:"product_name"`
	PartnerName string  `json:"partner_name"`
	Price       float64 `json:"price"`
	URL         string  `json:"url,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"` // если задан, текст уходит подписью к изображению
}

// PriceAlert данные уведомления о снижении цены.
type PriceAlert struct {
	UserName    string  `json:"user_name"`
	ProductName string  `json:"product_name"`
	PartnerName string  `json:"partner_name"`
	OldPrice    float64 `json:"old_price"`
	NewPrice    float64 `json:"new_price"`
	URL         string  `json:"url,omitempty"`
}

// Report данные периодического отчёта для администратора.
type Report struct {
	Title       string       `json:"title"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
	Items       []ReportItem `json:"items"`
	DocumentURL string       `json:"document_url,omitempty"` // PDF-версия отчёта, отправляется документом
}

// ReportItem строка отчёта.
type ReportItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SubscriptionExpiredEvent событие для шлюза WebSocket о переводе подписки в EXPIRED.
type SubscriptionExpiredEvent struct {
	SubscriptionID int64     `json:"subscription_id"`
	UserID         int64     `json:"user_id"`
	Reason         string    `json:"reason"`
	ExpiredAt      time.Time `json:"expired_at"`
}
