package models

import "time"

// PassReport счётчики одного прохода планировщика.
type PassReport struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Expired    int `json:"expired"`
}

// TickReport итог одного запуска планировщика: проходы A (напоминания),
// B (истёкшие подписки) и C (тестовые подписки).
type TickReport struct {
	TickID     string     `json:"tick_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Reminders  PassReport `json:"reminders"`
	Expired    PassReport `json:"expired"`
	Testers    PassReport `json:"testers"`
}

// Total сумма счётчиков по всем проходам.
func (r TickReport) Total() PassReport {
	return PassReport{
		Candidates: r.Reminders.Candidates + r.Expired.Candidates + r.Testers.Candidates,
		Sent:       r.Reminders.Sent + r.Expired.Sent + r.Testers.Sent,
		Failed:     r.Reminders.Failed + r.Expired.Failed + r.Testers.Failed,
		Skipped:    r.Reminders.Skipped + r.Expired.Skipped + r.Testers.Skipped,
		Expired:    r.Reminders.Expired + r.Expired.Expired + r.Testers.Expired,
	}
}
