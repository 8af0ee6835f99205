// Package models содержит доменные структуры подписки, пользователя,
// журнала доставки сообщений и настроек провайдера WhatsApp.
package models

import "time"

// SubscriptionStatus статус подписки.
type SubscriptionStatus string

const (
	// SubscriptionStatusActive подписка действует.
	SubscriptionStatusActive SubscriptionStatus = "ACTIVE"
	// SubscriptionStatusExpired подписка истекла.
	SubscriptionStatusExpired SubscriptionStatus = "EXPIRED"
)

// DurationType единица длительности подписки.
type DurationType string

const (
	// DurationDays подписка по дням, истекает по EndDate.
	DurationDays DurationType = "days"
	// DurationHours почасовая (тестовая) подписка, отсчёт от HoursStartedAt.
	DurationHours DurationType = "hours"
)

// Subscription подписка пользователя на тарифный план.
// Status и IsActive хранятся раздельно и меняются только вместе.
type Subscription struct {
	ID             int64
	UserID         int64
	PlanName       string
	Status         SubscriptionStatus
	IsActive       bool
	DurationType   DurationType
	EndDate        *time.Time // только для DurationDays
	HoursStartedAt *time.Time // только для DurationHours
	HoursAvailable int
	HoursUsed      int
	IsFreemium     bool
	Amount         float64
	User           User // владелец, подгружается вместе с подпиской
}

// ExpireGuard условие, при котором подписку ещё можно перевести в EXPIRED.
// Ровно одно из полей должно быть задано.
type ExpireGuard struct {
	EndDateBefore        *time.Time // подписка по дням: end_date < значения
	HoursStartedAtBefore *time.Time // тестовая подписка: hours_started_at < значения
}
