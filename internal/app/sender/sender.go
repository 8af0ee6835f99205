// Package sender процесс, который отправляет разовые сообщения из очереди whatsapp.outbound.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-notifier/internal/app/bootstrap"
	"github.com/magabrotheeeer/subscription-notifier/internal/config"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/formatter"
	"github.com/magabrotheeeer/subscription-notifier/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-notifier/internal/rabbitmq"
	senderservice "github.com/magabrotheeeer/subscription-notifier/internal/services/sender"
	"github.com/magabrotheeeer/subscription-notifier/internal/storage/repository"
)

type App struct {
	db            *repository.Storage
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	clk, err := bootstrap.Clock(cfg)
	if err != nil {
		return nil, err
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := bootstrap.WaitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	messagingService := bootstrap.NewMessaging(cfg, db, clk, logger)
	senderService := senderservice.NewSenderService(messagingService, formatter.New(clk.Location()), logger)

	return &App{
		db:            db,
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.OutboundQueue, a.senderService.HandleOutbound)
	if err != nil {
		a.logger.Error("failed to start outbound consumer", sl.Err(err))
		return err
	}
	a.logger.Info("outbound consumer started", slog.String("queue", rabbitmq.OutboundQueue))

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
