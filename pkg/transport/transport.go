package transport

import (
	"context"
	"fmt"
	"strings"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Subject string `json:"subject"`
	// Body is rendered HTML.
	Body string `json:"body"`
	Tag  string `json:"tag,omitempty"`
	// IdempotencyKey is stable across retries of the same job so receivers can drop duplicates.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Validate checks the fields every transport relies on.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	case strings.TrimSpace(m.Body) == "":
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// Receipt identifies a message accepted by a provider.
type Receipt struct {
	Provider  string `json:"provider"`
	MessageID string `json:"message_id,omitempty"`
}

// Transport hands a rendered message to an external provider.
// A nil error means the provider accepted the message; anything else is a failed attempt.
type Transport interface {
	Deliver(ctx context.Context, target string, msg Message) (Receipt, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, target string, msg Message) (Receipt, error)

// Deliver implements Transport.
func (f Func) Deliver(ctx context.Context, target string, msg Message) (Receipt, error) {
	return f(ctx, target, msg)
}

func validate(target string, msg Message) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("%w: target is required", ErrInvalidMessage)
	}
	return msg.Validate()
}
