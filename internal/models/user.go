package models

import "strings"

// User владелец подписки. Для планировщика только для чтения.
type User struct {
	ID                          int64
	Name                        string
	Email                       string
	Phone                       *string
	EnableWhatsAppNotifications bool
	EnableBillingNotifications  *bool // nil означает "включено"
}

// CanReceiveBillingNotifications сообщает, можно ли отправлять пользователю
// уведомления о подписке: телефон указан, WhatsApp включён и
// уведомления о платежах явно не отключены.
func (u User) CanReceiveBillingNotifications() bool {
	if u.Phone == nil || strings.TrimSpace(*u.Phone) == "" {
		return false
	}
	if !u.EnableWhatsAppNotifications {
		return false
	}
	if u.EnableBillingNotifications != nil && !*u.EnableBillingNotifications {
		return false
	}
	return true
}

// PhoneNumber возвращает телефон или пустую строку.
func (u User) PhoneNumber() string {
	if u.Phone == nil {
		return ""
	}
	return *u.Phone
}
