// Package bootstrap собирает зависимости, общие для процессов api, scheduler и sender.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata" // образ без системной базы часовых поясов

	"github.com/magabrotheeeer/subscription-notifier/internal/config"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/formatter"
	"github.com/magabrotheeeer/subscription-notifier/internal/services/messaging"
	"github.com/magabrotheeeer/subscription-notifier/internal/services/scheduler"
	"github.com/magabrotheeeer/subscription-notifier/internal/storage/repository"
	"github.com/magabrotheeeer/subscription-notifier/internal/whatsapp"
)

const (
	dbReadyRetries = 10
	dbReadyDelay   = 3 * time.Second
)

// WaitForDB ждёт, пока процесс api применит миграции.
func WaitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range dbReadyRetries {
		if err = repository.CheckDatabaseReady(db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbReadyDelay):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// Clock часы в часовом поясе из настроек планировщика.
// Один и тот же экземпляр передаётся планировщику, журналу и форматтеру.
func Clock(cfg *config.Config) (clock.Clock, error) {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return clock.Clock{}, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}
	return clock.New(loc), nil
}

// StaticCredentials учётные данные провайдера из конфига.
func StaticCredentials(cfg config.WhatsApp) whatsapp.Credentials {
	return whatsapp.Credentials{
		BaseURL:     cfg.BaseURL,
		InstanceID:  cfg.InstanceID,
		Token:       cfg.Token,
		ClientToken: cfg.ClientToken,
	}
}

// NewMessaging сервис отправки WhatsApp поверх журнала доставки.
func NewMessaging(cfg *config.Config, db *repository.Storage, clk clock.Clock, log *slog.Logger) *messaging.Service {
	return messaging.NewService(
		whatsapp.NewClient(cfg.WhatsApp.Timeout),
		db,
		db,
		StaticCredentials(cfg.WhatsApp),
		cfg.CountryCode,
		clk,
		log,
	)
}

// SchedulerOptions переводит настройки из конфига в параметры проходов.
func SchedulerOptions(cfg config.Scheduler) scheduler.Options {
	return scheduler.Options{
		ReminderDays:                    cfg.ReminderDays,
		TesterGracePeriod:               cfg.TesterGracePeriod,
		TransitionRequiresNotifyAttempt: cfg.TransitionRequiresNotifyAttempt(),
		LockTTL:                         cfg.LockTTL,
	}
}

// NewScheduler планировщик проверки подписок. Блокировка в Redis общая для
// всех процессов, поэтому ручной запуск из api не пересекается с запуском по расписанию.
func NewScheduler(cfg *config.Config, db *repository.Storage, notifier scheduler.Notifier, c scheduler.Cache,
	publisher scheduler.EventPublisher, clk clock.Clock, log *slog.Logger) *scheduler.Service {
	return scheduler.NewService(
		db,
		db,
		notifier,
		c,
		publisher,
		formatter.New(clk.Location()),
		clk,
		SchedulerOptions(cfg.Scheduler),
		log,
	)
}
