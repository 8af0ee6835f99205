// Package clock задаёт единые "сейчас" и часовой пояс для планировщика,
// проверки идемпотентности и форматирования сообщений.
package clock

import "time"

// Clock источник текущего времени, привязанный к часовому поясу.
// Нулевое значение использует time.Now и UTC.
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// New возвращает часы реального времени в указанном часовом поясе.
func New(loc *time.Location) Clock {
	return Clock{now: time.Now, loc: loc}
}

// Fixed возвращает часы, всегда показывающие t. Используется в тестах.
func Fixed(t time.Time, loc *time.Location) Clock {
	return Clock{now: func() time.Time { return t }, loc: loc}
}

// Location часовой пояс часов.
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Now текущее время в часовом поясе часов.
func (c Clock) Now() time.Time {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return now().In(c.Location())
}

// StartOfDay полночь календарного дня t.
func (c Clock) StartOfDay(t time.Time) time.Time {
	t = t.In(c.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.Location())
}

// EndOfDay последняя наносекунда календарного дня t.
func (c Clock) EndOfDay(t time.Time) time.Time {
	return c.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Today начало текущего календарного дня.
func (c Clock) Today() time.Time {
	return c.StartOfDay(c.Now())
}

// DayWindow границы календарного дня через days дней от текущего.
func (c Clock) DayWindow(days int) (time.Time, time.Time) {
	day := c.Today().AddDate(0, 0, days)
	return day, c.EndOfDay(day)
}

// DaysUntil количество календарных дней от сегодня до дня t (отрицательное для прошлого).
func (c Clock) DaysUntil(t time.Time) int {
	from := c.Today()
	to := c.StartOfDay(t)
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
