// Package notify delivers trade events to the user. Sending is
// fire-and-forget: failures are logged by callers and never block trading.
package notify

import "context"

// Event is one user-visible notification.
type Event struct {
	Title   string
	Message string
}

// Notifier is the outbound notification sink.
type Notifier interface {
	Send(ctx context.Context, userID string, event Event) error
	Close() error
}

// NoOp is a notifier that does nothing. It is used when notifications are
// disabled.
type NoOp struct{}

// NewNoOp creates a NoOp notifier.
func NewNoOp() *NoOp { return &NoOp{} }

// Send does nothing and returns nil.
func (n *NoOp) Send(ctx context.Context, userID string, event Event) error { return nil }

// Close does nothing and returns nil.
func (n *NoOp) Close() error { return nil }
