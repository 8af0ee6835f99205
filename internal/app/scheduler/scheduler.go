// Package scheduler процесс, который по расписанию проверяет подписки,
// отправляет напоминания и переводит истёкшие подписки в EXPIRED.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-notifier/internal/app/bootstrap"
	"github.com/magabrotheeeer/subscription-notifier/internal/cache"
	"github.com/magabrotheeeer/subscription-notifier/internal/config"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-notifier/internal/models"
	"github.com/magabrotheeeer/subscription-notifier/internal/rabbitmq"
	schedulerservice "github.com/magabrotheeeer/subscription-notifier/internal/services/scheduler"
	"github.com/magabrotheeeer/subscription-notifier/internal/storage/repository"
)

const stopTimeout = 30 * time.Second

// Runner выполняет один запуск проверки.
type Runner interface {
	RunOnce(ctx context.Context) (*models.TickReport, error)
}

// App представляет приложение планировщика.
type App struct {
	runner         Runner
	schedule       string
	skipInitialRun bool
	logger         *slog.Logger

	db    *repository.Storage
	cache *cache.Cache
	conn  *amqp.Connection
	ch    *amqp.Channel
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	clk, err := bootstrap.Clock(cfg)
	if err != nil {
		return nil, err
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := bootstrap.WaitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	messagingService := bootstrap.NewMessaging(cfg, db, clk, logger)
	schedulerService := bootstrap.NewScheduler(cfg, db, messagingService, cacheRedis, rabbitmq.NewPublisher(ch), clk, logger)

	return &App{
		runner:         schedulerService,
		schedule:       cfg.Schedule,
		skipInitialRun: cfg.SkipInitialRun,
		logger:         logger,
		db:             db,
		cache:          cacheRedis,
		conn:           conn,
		ch:             ch,
	}, nil
}

// Run запускает проверку по расписанию и, если не отключено, сразу при старте.
// Возвращает управление после отмены ctx и завершения текущего запуска.
func (a *App) Run(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(a.logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	if _, err := c.AddFunc(a.schedule, func() { a.tick(ctx) }); err != nil {
		a.close()
		return fmt.Errorf("failed to schedule expiry scan: %w", err)
	}
	c.Start()
	a.logger.Info("scheduler started", slog.String("schedule", a.schedule))

	if !a.skipInitialRun {
		go a.tick(ctx)
	}

	<-ctx.Done()
	a.logger.Info("shutting down scheduler service")

	select {
	case <-c.Stop().Done():
	case <-time.After(stopTimeout):
		a.logger.Warn("expiry scan did not finish before shutdown timeout")
	}
	a.close()
	return nil
}

func (a *App) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := a.runner.RunOnce(ctx)
	switch {
	case errors.Is(err, schedulerservice.ErrTickInProgress):
		a.logger.Warn("previous expiry scan is still running, skipping")
	case errors.Is(err, schedulerservice.ErrTickLocked):
		a.logger.Info("expiry scan is running on another instance, skipping")
	case err != nil:
		a.logger.Error("expiry scan failed", sl.Err(err))
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
