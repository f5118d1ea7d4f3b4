// Package notify turns business events into delivered notifications.
//
// The producer side is Notifier: request handlers call Notify with a typed
// Payload after their change commits, and the payload is enqueued as a job.
// The worker side is Pipeline, a queue.Handler that decodes the job payload,
// renders it with Renderer and hands the message to a transport.Transport.
//
// Payload is a closed set (BookingConfirmation, BookingCancelled, Welcome,
// OrgInvite), so producers can only build notifications that have a template.
// A job whose type this build does not know, for example one enqueued by a
// newer release, fails with ErrUnknownJobType and is retried like any other
// failure until its attempts run out.
package notify
