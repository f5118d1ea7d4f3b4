package transport

import "errors"

var (
	ErrDeliveryFailed   = errors.New("transport: delivery failed")
	ErrInvalidMessage   = errors.New("transport: invalid message")
	ErrInvalidConfig    = errors.New("transport: invalid configuration")
	ErrUnknownTransport = errors.New("transport: unknown driver")
	ErrCircuitOpen      = errors.New("transport: circuit breaker is open")
	ErrPermanentFailure = errors.New("transport: provider rejected the message")
	ErrTimeout          = errors.New("transport: provider timed out")
	ErrInvalidSignature = errors.New("transport: invalid webhook signature")
)

// IsPermanent reports whether err means the provider will never accept the message.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentFailure) || errors.Is(err, ErrInvalidMessage)
}

// isCallerError reports failures caused by the message rather than the provider.
func isCallerError(err error) bool {
	return IsPermanent(err)
}
