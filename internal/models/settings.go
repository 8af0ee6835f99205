package models

// WhatsAppSettings учётные данные провайдера WhatsApp, которые администратор
// может менять без перезапуска сервиса.
type WhatsAppSettings struct {
	InstanceID  string `json:"instance_id" validate:"required"`
	Token       string `json:"token" validate:"required"`
	BaseURL     string `json:"base_url" validate:"required,url"`
	ClientToken string `json:"client_token"`
}

// Ключи таблицы settings.
const (
	SettingWhatsAppInstanceID  = "whatsapp_instance_id"
	SettingWhatsAppToken       = "whatsapp_token"
	SettingWhatsAppBaseURL     = "whatsapp_base_url"
	SettingWhatsAppClientToken = "whatsapp_client_token"
)
