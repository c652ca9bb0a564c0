// Package notify fans stored notifications out to the delivery side over AMQP.
package notify

import (
	"context"

	"famledger/internal/logger"
)

// Publisher hands notifications to whatever delivers them to users.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
	Close() error
}

// LogPublisher only logs messages. It is used when no broker is configured.
type LogPublisher struct{}

// Publish logs the message and never fails.
func (LogPublisher) Publish(_ context.Context, msg *Message) error {
	logger.Named("notify").Debugw("notification not published, no broker configured",
		"notification_id", msg.NotificationID,
		"title", msg.Title,
	)
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }
