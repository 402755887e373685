// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Publisher sends messages. The alignment service only needs this half.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	Publisher

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects used by taskalign. All live under the "alignment." prefix
// captured by the TASKALIGN stream.
const (
	SubjectVerifyRequest   = "alignment.verify.request"
	SubjectReportCompleted = "alignment.report.completed"
	SubjectReportFailed    = "alignment.report.failed"

	// DLQSuffix is appended to a subject for messages that failed validation
	// or exhausted their delivery attempts.
	DLQSuffix = ".dlq"
)
