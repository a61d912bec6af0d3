package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// NotificationHandler persists one event. Returning an error requeues the
// delivery once; a second failure drops it.
type NotificationHandler func(ctx context.Context, event *NotificationEvent) error

type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	handler NotificationHandler
}

func NewConsumer(rabbitmqURL string, handler NotificationHandler) (*Consumer, error) {
	conn, err := amqp091.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return &Consumer{
		conn:    conn,
		channel: ch,
		handler: handler,
	}, nil
}

// Start consumes the notification queue until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(
		NotificationEventQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				c.handleDelivery(ctx, delivery)
			}
		}
	}()

	logrus.Info("notification consumer started")
	return nil
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp091.Delivery) {
	var event NotificationEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		logrus.Errorf("failed to unmarshal notification event: %v", err)
		_ = delivery.Nack(false, false)
		return
	}

	if err := c.handler(ctx, &event); err != nil {
		logrus.WithField("event_id", event.EventID).
			Errorf("failed to handle notification event: %v", err)
		_ = delivery.Nack(false, !delivery.Redelivered)
		return
	}

	_ = delivery.Ack(false)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
