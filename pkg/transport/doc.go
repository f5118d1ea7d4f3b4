// Package transport delivers rendered notifications to external providers.
//
// A Transport makes exactly one delivery attempt per call and reports the
// outcome; retries, backoff and dead-lettering belong to the queue that calls it.
//
// Implementations:
//
//   - LogTransport writes messages to slog. Use it in development.
//   - FileTransport writes an .html body and .json metadata per message for local preview.
//   - PostmarkTransport sends transactional email through Postmark.
//   - WebhookTransport posts JSON signed with HMAC-SHA256 to an HTTP provider.
//
// Decorators add provider protection:
//
//	t := transport.NewLogTransport(logger)
//	t = transport.WithCircuitBreaker(t, transport.NewCircuitBreaker(5, 2, 30*time.Second))
//	t = transport.WithRateLimit(t, 10, 20)
//
// New builds the configured stack from a Config loaded from the environment.
//
// Receivers of webhook deliveries verify them with ExtractSignatureHeaders and
// VerifySignature. The Idempotency-Key header carries the job id, which stays the
// same across retries, so receivers can drop duplicates.
package transport
