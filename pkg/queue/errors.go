package queue

import "errors"

// Common errors
var (
	// ErrBrokerNil is returned when a nil broker is provided
	ErrBrokerNil = errors.New("broker cannot be nil")

	// ErrHandlerNil is returned when a worker is created without a handler
	ErrHandlerNil = errors.New("handler cannot be nil")

	// ErrEnvelopeNil is returned when attempting to enqueue a nil envelope
	ErrEnvelopeNil = errors.New("envelope cannot be nil")

	// ErrInvalidEnvelope is returned when an envelope misses its type, target or id
	ErrInvalidEnvelope = errors.New("invalid envelope")

	// ErrPayloadMarshal is returned when payload marshaling fails
	ErrPayloadMarshal = errors.New("failed to marshal payload to JSON")

	// ErrEnqueue is returned when the broker could not store a new envelope
	ErrEnqueue = errors.New("failed to enqueue job")

	// ErrNoJob is returned by Claim when nothing is claimable right now
	ErrNoJob = errors.New("no job to claim")

	// ErrJobNotFound is returned when an id is unknown to the broker
	ErrJobNotFound = errors.New("job not found")

	// ErrNotInFlight is returned when ack or nack targets an envelope that is not leased
	ErrNotInFlight = errors.New("job is not in flight")

	// ErrNotFailed is returned when replaying an envelope that is not permanently failed
	ErrNotFailed = errors.New("job is not permanently failed")

	// ErrDuplicateJob is returned when an envelope id already exists
	ErrDuplicateJob = errors.New("job already exists")

	// ErrFailedToClaim is returned when the broker could not be polled
	ErrFailedToClaim = errors.New("failed to claim job from broker")

	// ErrWorkerStarted is returned when Start is called twice
	ErrWorkerStarted = errors.New("worker already started")

	// ErrWorkerNotStarted is returned when Stop is called before Start
	ErrWorkerNotStarted = errors.New("worker not started")

	// ErrHandlerPanic wraps a recovered handler panic
	ErrHandlerPanic = errors.New("panic in handler")

	// ErrShutdownTimeout is returned when active jobs outlive the shutdown timeout
	ErrShutdownTimeout = errors.New("worker shutdown timed out")

	// ErrInvalidConfig is returned when queue configuration fails validation
	ErrInvalidConfig = errors.New("invalid queue configuration")

	// ErrInvalidSchedule is returned when the janitor cron expression cannot be parsed
	ErrInvalidSchedule = errors.New("invalid schedule format")
)
