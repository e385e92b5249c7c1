package queue

import (
	"context"
	"errors"
	"fmt"
)

const (
	// EventQueue carries producer events awaiting fan-out into notifications.
	EventQueue = "notification.events"
	// DispatchQueue carries per-recipient dispatch work units.
	DispatchQueue = "notification.dispatch"
)

// ErrBadMessage marks a message that can never be processed. The consumer
// rejects it to the dead-letter queue instead of requeueing.
var ErrBadMessage = errors.New("bad message")

// Message is a broker payload with enough metadata for publishing.
type Message interface {
	Validate() error
	MessageID() string
	Correlation() string
}

// Publisher publishes messages to a work queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg Message) error
	Close() error
}

// MessageHandler processes one consumed message body. Returning an error
// that wraps ErrBadMessage dead-letters the message; any other error
// requeues it for at-least-once redelivery.
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer consumes raw messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// WorkQueueNames returns all work queues (2 total).
func WorkQueueNames() []string {
	return []string{EventQueue, DispatchQueue}
}

// DLQName returns the dead-letter queue name, e.g. dlq.notification.events.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}
