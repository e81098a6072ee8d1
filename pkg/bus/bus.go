// Package bus provides an in-process publish/subscribe bus for generation
// lifecycle events. Subjects are dot-separated, e.g. "generation.completed";
// subscriptions may use "*" for one token or ">" for the rest.
package bus

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned when operating on a closed bus or subscription.
	ErrClosed = errors.New("bus or subscription closed")
)

// Well-known subjects.
const (
	SubjectGenerationStarted   = "generation.started"
	SubjectGenerationCompleted = "generation.completed"
	SubjectGenerationFailed    = "generation.failed"
	SubjectProviderSkipped     = "provider.skipped"
	SubjectBudgetAlert         = "cost.budget_alert"
)

// MessageBus is the interface between event producers and consumers.
// Implementations must be safe for concurrent use.
type MessageBus interface {
	// Publish sends a message to all subscribers of the given subject.
	// Returns immediately; does not wait for message delivery.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The handler is called in a separate goroutine for each message.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(msg *Message)

// Message represents an incoming message from the bus.
type Message struct {
	Subject string
	Data    []byte
}

// Subscription represents an active subscription that can be cancelled.
type Subscription interface {
	// Unsubscribe stops receiving messages and cleans up resources.
	Unsubscribe() error

	// Subject returns the subject pattern this subscription is for.
	Subject() string
}
