package whatsapp

// Credentials учётные данные инстанса у провайдера. Передаются в каждый вызов
// по значению и не меняются во время запроса.
type Credentials struct {
	BaseURL     string
	InstanceID  string
	Token       string
	ClientToken string
}

// Valid сообщает, заполнены ли обязательные поля.
func (c Credentials) Valid() bool {
	return c.BaseURL != "" && c.InstanceID != "" && c.Token != ""
}

// SendTextRequest тело запроса send-text.
type SendTextRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// SendImageRequest тело запроса send-image. Image это URL или base64.
type SendImageRequest struct {
	Phone   string `json:"phone"`
	Image   string `json:"image"`
	Caption string `json:"caption,omitempty"`
}

// SendDocumentRequest тело запроса send-document/{extension}.
type SendDocumentRequest struct {
	Phone     string `json:"phone"`
	Document  string `json:"document"`
	FileName  string `json:"fileName,omitempty"`
	Caption   string `json:"caption,omitempty"`
	Extension string `json:"-"`
}

// Button кнопка сообщения со списком кнопок.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// SendButtonListRequest тело запроса send-button-list.
type SendButtonListRequest struct {
	Phone      string     `json:"phone"`
	Message    string     `json:"message"`
	ButtonList ButtonList `json:"buttonList"`
}

type ButtonList struct {
	Buttons []Button `json:"buttons"`
}

// SendResponse ответ провайдера на отправку сообщения.
type SendResponse struct {
	ZaapID    string `json:"zaapId"`
	MessageID string `json:"messageId"`
	ID        string `json:"id"`
}

// ExternalID идентификатор сообщения у провайдера.
func (r SendResponse) ExternalID() string {
	if r.MessageID != "" {
		return r.MessageID
	}
	if r.ID != "" {
		return r.ID
	}
	return r.ZaapID
}

// StatusResponse ответ провайдера о состоянии инстанса.
type StatusResponse struct {
	Connected           bool   `json:"connected"`
	SmartphoneConnected bool   `json:"smartphoneConnected"`
	Error               string `json:"error,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
