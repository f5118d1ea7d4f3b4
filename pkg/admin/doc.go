// Package admin exposes the operator HTTP API of the notification daemon and a
// client for it.
//
// Routes, mounted by Handler.Handle:
//
//	GET  /healthz            liveness
//	GET  /readyz             readiness, runs the configured checks
//	GET  /stats              worker lifecycle counters
//	GET  /jobs/failed        permanently failed jobs, newest first (?limit=)
//	GET  /jobs/{id}          a single job
//	POST /jobs/{id}/replay   enqueue a fresh copy of a failed job
//	POST /jobs               schedule a notification from raw JSON
//
// Every JSON body uses the Response envelope: data on success, error with a
// stable code otherwise. Client speaks the same contract and maps error codes
// back to the queue and notify sentinel errors.
package admin
