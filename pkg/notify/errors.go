package notify

import "errors"

var (
	ErrUnknownJobType  = errors.New("notify: unknown job type")
	ErrInvalidPayload  = errors.New("notify: invalid payload")
	ErrRenderFailed    = errors.New("notify: failed to render message")
	ErrDeliveryTimeout = errors.New("notify: delivery timed out")
	ErrTransportNil    = errors.New("notify: transport cannot be nil")
	ErrProducerNil     = errors.New("notify: producer cannot be nil")
)
