package rabbitmq

const (
	// NotificationsExchange direct exchange для всех сообщений сервиса.
	NotificationsExchange = "notifications"

	// OutboundQueue разовые сообщения WhatsApp для воркера sender.
	OutboundQueue      = "whatsapp.outbound"
	OutboundRoutingKey = "whatsapp.outbound"

	// SubscriptionExpiredQueue события перевода подписки в EXPIRED для шлюза WebSocket.
	SubscriptionExpiredQueue      = "subscription.expired"
	SubscriptionExpiredRoutingKey = "subscription.expired"

	prefetchCount  = 10
	maxConcurrency = 10
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые объявляют все сервисы при старте.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: OutboundQueue, RoutingKey: OutboundRoutingKey},
		{QueueName: SubscriptionExpiredQueue, RoutingKey: SubscriptionExpiredRoutingKey},
	}
}
