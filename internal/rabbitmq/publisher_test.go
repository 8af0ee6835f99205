package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-notifier/internal/models"
)

func TestPublisher_Publish(t *testing.T) {
	amqpURI := amqpURIForTest(t)
	ctx := context.Background()

	conn, err := Connect(ctx, amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ch, err := SetupChannel(conn, GetNotificationQueues())
	require.NoError(t, err)
	defer func() { _ = ch.Close() }()

	event := models.SubscriptionExpiredEvent{SubscriptionID: 7, UserID: 3, Reason: "expired"}
	require.NoError(t, NewPublisher(ch).Publish(ctx, SubscriptionExpiredRoutingKey, event))

	deliveries, err := ch.Consume(SubscriptionExpiredQueue, "test-consumer", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var got models.SubscriptionExpiredEvent
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, event.SubscriptionID, got.SubscriptionID)
		assert.Equal(t, "application/json", d.ContentType)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishMessage_MarshalError(t *testing.T) {
	err := PublishMessage(nil, NotificationsExchange, "key", make(chan int))
	require.Error(t, err)
}

func TestPublisher_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPublisher(nil).Publish(ctx, OutboundRoutingKey, "x")
	require.ErrorIs(t, err, context.Canceled)
}
