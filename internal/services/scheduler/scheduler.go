// Package scheduler сканирует подписки по срокам действия, рассылает уведомления
// WhatsApp и переводит истёкшие подписки в EXPIRED.
//
// Один запуск (tick) выполняет три прохода строго по порядку:
//   - A: напоминания за N дней до окончания, без изменения подписок;
//   - B: подписки с прошедшей end_date, уведомление и перевод в EXPIRED;
//   - C: тестовые почасовые подписки после окончания льготного периода.
//
// Каждое уведомление отправляется не чаще раза в календарный день для пары
// (пользователь, тип сообщения). Ошибки отдельных подписок логируются и не прерывают проход.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-notifier/internal/cache"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/formatter"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-notifier/internal/metrics"
	"github.com/magabrotheeeer/subscription-notifier/internal/models"
	"github.com/magabrotheeeer/subscription-notifier/internal/rabbitmq"
	"github.com/magabrotheeeer/subscription-notifier/internal/services/messaging"
)

const (
	// LockKey ключ распределённой блокировки запуска в Redis.
	LockKey = "scheduler:expiry-scan:lock"
	// LastReportKey ключ, под которым хранится отчёт последнего запуска.
	LastReportKey = "scheduler:expiry-scan:last-report"

	lastReportTTL = 7 * 24 * time.Hour

	passReminders = "reminders"
	passExpired   = "expired"
	passTesters   = "testers"
)

var (
	// ErrTickInProgress предыдущий запуск в этом процессе ещё не завершён.
	ErrTickInProgress = errors.New("expiry scan already in progress")
	// ErrTickLocked запуск выполняет другая реплика.
	ErrTickLocked = errors.New("expiry scan locked by another instance")
)

// DefaultReminderDays пороги напоминаний в днях до окончания подписки.
var DefaultReminderDays = []int{5, 3, 2, 1, 0}

type SubscriptionRepository interface {
	FindExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*models.Subscription, error)
	FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.Subscription, error)
	FindExpiredTesterSubscriptions(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error)
	ExpireSubscription(ctx context.Context, id int64, guard models.ExpireGuard) (bool, error)
}

type DeliveryLedger interface {
	WasAlreadyNotifiedToday(ctx context.Context, userID int64, messageType models.MessageType, startOfDay time.Time) (bool, error)
}

type Notifier interface {
	SendTextMessage(ctx context.Context, phone, message string, userID *int64, messageType models.MessageType) error
}

type Cache interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (*cache.Lock, bool, error)
	Unlock(ctx context.Context, lock *cache.Lock) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Options настройки проходов.
type Options struct {
	ReminderDays      []int
	TesterGracePeriod time.Duration
	// TransitionRequiresNotifyAttempt: при true подписка переводится в EXPIRED только
	// после попытки уведомления (успешной или нет). Уже уведомлённые сегодня и
	// пользователи без права на уведомления в этом запуске не переводятся.
	TransitionRequiresNotifyAttempt bool
	LockTTL                         time.Duration
}

type Service struct {
	repo      SubscriptionRepository
	ledger    DeliveryLedger
	notifier  Notifier
	cache     Cache
	publisher EventPublisher
	formatter *formatter.Formatter
	clock     clock.Clock
	opts      Options
	log       *slog.Logger

	running atomic.Bool
}

// NewService создаёт планировщик. cache и publisher могут быть nil:
// тогда нет межпроцессной блокировки и событий об истечении.
func NewService(repo SubscriptionRepository, ledger DeliveryLedger, notifier Notifier, c Cache,
	publisher EventPublisher, f *formatter.Formatter, clk clock.Clock, opts Options, log *slog.Logger) *Service {
	if len(opts.ReminderDays) == 0 {
		opts.ReminderDays = DefaultReminderDays
	}
	if opts.TesterGracePeriod <= 0 {
		opts.TesterGracePeriod = 3 * time.Hour
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Hour
	}
	return &Service{
		repo:      repo,
		ledger:    ledger,
		notifier:  notifier,
		cache:     c,
		publisher: publisher,
		formatter: f,
		clock:     clk,
		opts:      opts,
		log:       log,
	}
}

// RunOnce выполняет один запуск. Если запуск уже идёт, сразу возвращает ErrTickInProgress
// или ErrTickLocked. Ошибки отдельных подписок в результат не попадают, они есть в отчёте.
func (s *Service) RunOnce(ctx context.Context) (*models.TickReport, error) {
	const op = "scheduler.RunOnce"

	if !s.running.CompareAndSwap(false, true) {
		metrics.SchedulerTicksTotal.WithLabelValues("skipped").Inc()
		return nil, ErrTickInProgress
	}
	defer s.running.Store(false)

	report := &models.TickReport{TickID: uuid.NewString(), StartedAt: s.clock.Now()}
	log := s.log.With(sl.Op(op), slog.String("tick_id", report.TickID))

	if s.cache != nil {
		lock, acquired, err := s.cache.TryLock(ctx, LockKey, s.opts.LockTTL)
		switch {
		case err != nil:
			log.Warn("failed to acquire distributed lock, running with local guard only", sl.Err(err))
		case !acquired:
			metrics.SchedulerTicksTotal.WithLabelValues("locked").Inc()
			return nil, ErrTickLocked
		default:
			defer func() {
				if err := s.cache.Unlock(context.WithoutCancel(ctx), lock); err != nil {
					log.Warn("failed to release distributed lock", sl.Err(err))
				}
			}()
		}
	}

	log.Info("expiry scan started")

	report.Reminders = s.runReminders(ctx, log)
	report.Expired = s.runExpired(ctx, log)
	report.Testers = s.runTesters(ctx, log)
	report.FinishedAt = s.clock.Now()

	metrics.SchedulerTicksTotal.WithLabelValues("completed").Inc()
	metrics.SchedulerTickDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	total := report.Total()
	log.Info("expiry scan finished",
		slog.Int("candidates", total.Candidates),
		slog.Int("sent", total.Sent),
		slog.Int("failed", total.Failed),
		slog.Int("skipped", total.Skipped),
		slog.Int("expired", total.Expired),
	)

	if s.cache != nil {
		if err := s.cache.Set(context.WithoutCancel(ctx), LastReportKey, report, lastReportTTL); err != nil {
			log.Warn("failed to store tick report", sl.Err(err))
		}
	}
	return report, nil
}

// runReminders проход A. Подписки не меняются.
func (s *Service) runReminders(ctx context.Context, log *slog.Logger) models.PassReport {
	var pr models.PassReport
	log = log.With(slog.String("pass", passReminders))

	for _, days := range s.opts.ReminderDays {
		if ctx.Err() != nil {
			log.Warn("scan interrupted", sl.Err(ctx.Err()))
			return pr
		}
		from, to := s.clock.DayWindow(days)
		subs, err := s.repo.FindExpiringSubscriptions(ctx, from, to)
		if err != nil {
			log.Error("failed to find expiring subscriptions", sl.Err(err), slog.Int("days", days))
			continue
		}
		pr.Candidates += len(subs)

		for _, sub := range subs {
			itemLog := itemLogger(log, sub).With(slog.Int("days", days))
			attempted, sent := s.notify(ctx, itemLog, sub, models.MessageTypeSubscriptionReminder, func() string {
				return s.formatter.SubscriptionExpiring(formatter.ExpiringData{
					UserName: sub.User.Name,
					PlanName: sub.PlanName,
					Amount:   sub.Amount,
					EndDate:  derefTime(sub.EndDate),
					DaysLeft: days,
				})
			})
			count(&pr, attempted, sent)
			metrics.SchedulerItemsTotal.WithLabelValues(passReminders, itemResult(attempted, sent)).Inc()
		}
	}
	return pr
}

// runExpired проход B.
func (s *Service) runExpired(ctx context.Context, log *slog.Logger) models.PassReport {
	var pr models.PassReport
	log = log.With(slog.String("pass", passExpired))

	now := s.clock.Now()
	subs, err := s.repo.FindExpiredSubscriptions(ctx, now)
	if err != nil {
		log.Error("failed to find expired subscriptions", sl.Err(err))
		return pr
	}
	pr.Candidates = len(subs)

	for _, sub := range subs {
		if ctx.Err() != nil {
			log.Warn("scan interrupted", sl.Err(ctx.Err()))
			return pr
		}
		itemLog := itemLogger(log, sub)
		attempted, sent := s.notify(ctx, itemLog, sub, models.MessageTypeSubscriptionExpired, func() string {
			return s.formatter.SubscriptionExpired(formatter.ExpiredData{
				UserName: sub.User.Name,
				PlanName: sub.PlanName,
				Amount:   sub.Amount,
				EndDate:  derefTime(sub.EndDate),
			})
		})
		count(&pr, attempted, sent)

		if attempted || !s.opts.TransitionRequiresNotifyAttempt {
			if s.expire(ctx, itemLog, sub, models.ExpireGuard{EndDateBefore: &now}, passExpired) {
				pr.Expired++
			}
		}
		metrics.SchedulerItemsTotal.WithLabelValues(passExpired, itemResult(attempted, sent)).Inc()
	}
	return pr
}

// runTesters проход C.
func (s *Service) runTesters(ctx context.Context, log *slog.Logger) models.PassReport {
	var pr models.PassReport
	log = log.With(slog.String("pass", passTesters))

	cutoff := s.clock.Now().Add(-s.opts.TesterGracePeriod)
	subs, err := s.repo.FindExpiredTesterSubscriptions(ctx, cutoff)
	if err != nil {
		log.Error("failed to find expired tester subscriptions", sl.Err(err))
		return pr
	}
	pr.Candidates = len(subs)

	for _, sub := range subs {
		if ctx.Err() != nil {
			log.Warn("scan interrupted", sl.Err(ctx.Err()))
			return pr
		}
		itemLog := itemLogger(log, sub)
		attempted, sent := s.notify(ctx, itemLog, sub, models.MessageTypeTesterExpired, func() string {
			return s.formatter.TesterExpired(formatter.TesterExpiredData{
				UserName:  sub.User.Name,
				StartedAt: derefTime(sub.HoursStartedAt),
				Grace:     s.opts.TesterGracePeriod,
			})
		})
		count(&pr, attempted, sent)

		if attempted || !s.opts.TransitionRequiresNotifyAttempt {
			if s.expire(ctx, itemLog, sub, models.ExpireGuard{HoursStartedAtBefore: &cutoff}, passTesters) {
				pr.Expired++
			}
		}
		metrics.SchedulerItemsTotal.WithLabelValues(passTesters, itemResult(attempted, sent)).Inc()
	}
	return pr
}

// notify проверяет идемпотентность и право на уведомление, затем отправляет сообщение.
// attempted означает, что отправка была начата, sent что провайдер принял сообщение.
func (s *Service) notify(ctx context.Context, log *slog.Logger, sub *models.Subscription,
	messageType models.MessageType, render func() string) (attempted, sent bool) {
	already, err := s.ledger.WasAlreadyNotifiedToday(ctx, sub.UserID, messageType, s.clock.Today())
	if err != nil {
		log.Error("failed to check delivery log", sl.Err(err))
		return false, false
	}
	if already {
		log.Debug("already notified today")
		return false, false
	}
	if !sub.User.CanReceiveBillingNotifications() {
		log.Debug("user is not eligible for notifications")
		return false, false
	}

	userID := sub.UserID
	err = s.notifier.SendTextMessage(ctx, sub.User.PhoneNumber(), render(), &userID, messageType)
	switch {
	case err == nil:
		return true, true
	case errors.Is(err, messaging.ErrEmptyPhone):
		log.Warn("user phone is not a valid number", sl.Err(err))
		return false, false
	case errors.Is(err, messaging.ErrRecordAttempt):
		log.Error("failed to record delivery attempt", sl.Err(err))
		return false, false
	default:
		log.Warn("failed to send notification", sl.Err(err))
		return true, false
	}
}

// expire переводит подписку в EXPIRED условным обновлением и публикует событие.
func (s *Service) expire(ctx context.Context, log *slog.Logger, sub *models.Subscription, guard models.ExpireGuard, reason string) bool {
	changed, err := s.repo.ExpireSubscription(ctx, sub.ID, guard)
	if err != nil {
		log.Error("failed to expire subscription", sl.Err(err))
		return false
	}
	if !changed {
		log.Info("subscription changed concurrently, transition skipped")
		return false
	}
	log.Info("subscription expired")

	if s.publisher != nil {
		event := models.SubscriptionExpiredEvent{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			Reason:         reason,
			ExpiredAt:      s.clock.Now(),
		}
		if err := s.publisher.Publish(ctx, rabbitmq.SubscriptionExpiredRoutingKey, event); err != nil {
			log.Warn("failed to publish subscription expired event", sl.Err(err))
		}
	}
	return true
}

func itemLogger(log *slog.Logger, sub *models.Subscription) *slog.Logger {
	return log.With(slog.Int64("subscription_id", sub.ID), slog.Int64("user_id", sub.UserID))
}

func itemResult(attempted, sent bool) string {
	switch {
	case sent:
		return "sent"
	case attempted:
		return "failed"
	default:
		return "skipped"
	}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func count(pr *models.PassReport, attempted, sent bool) {
	switch {
	case sent:
		pr.Sent++
	case attempted:
		pr.Failed++
	default:
		pr.Skipped++
	}
}
