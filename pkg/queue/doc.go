// Package queue provides a broker-agnostic, at-least-once job queue used to run side effects
// (confirmation emails, cancellation notices) outside the request that triggers them.
//
// The package is organised around four components:
//
//   - Producer: turns a committed business event into an Envelope and stores it
//   - Broker: durable hand-off of envelopes between processes (Enqueue/Claim/Ack/Nack)
//   - Worker: a fixed pool of loops that claim envelopes and run a Handler
//   - RetryPolicy: decides after a failed attempt whether to retry (with backoff) or give up
//
// Producers and workers never share memory; the broker is the only shared resource, so both
// sides can be scaled independently. Bundled brokers: MemoryBroker (tests, single process),
// redisbroker, pgbroker and mongobroker.
//
// # Lifecycle
//
// An envelope moves pending → in_flight → completed | pending (retry) | failed_permanent.
// Claim leases an envelope to one worker for a lease timeout. If the worker dies before
// acking, the lease expires and the envelope becomes claimable again, so a job may run more
// than once: handlers must tolerate duplicates.
//
// Every failed attempt increments AttemptCount. Once it reaches MaxAttempts the envelope is
// permanently failed and kept for inspection through the Inspector interface.
//
// # Usage
//
//	broker := queue.NewMemoryBroker()
//
//	producer, _ := queue.NewProducer(broker)
//	id, err := producer.Enqueue(ctx, "welcome", "ann@example.com", payload)
//
//	worker, _ := queue.NewWorker(broker, handler,
//	    queue.WithConcurrency(4),
//	    queue.WithRetryPolicy(queue.DefaultRetryPolicy()),
//	)
//	g.Go(worker.Run(ctx))
//
// # Observability
//
// The worker reports a Result per attempt to an Observer (LogObserver, Stats, or a fan-out
// through Observers). Observers are side effects only; they never change the job flow.
//
// # Error Handling
//
// Package-level sentinel errors (e.g. ErrNoJob, ErrNotInFlight, ErrEnqueue) can be checked
// with errors.Is.
package queue
