package mq

import "context"

// NotificationProducer is what the engines depend on; tests substitute a
// recording fake, production wires *Producer.
type NotificationProducer interface {
	PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error
}

var _ NotificationProducer = (*Producer)(nil)
