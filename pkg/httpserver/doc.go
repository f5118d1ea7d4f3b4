// Package httpserver runs the admin HTTP surface of the notification daemon.
//
// Server wraps http.Server with functional options, start and stop hooks and a
// graceful shutdown bound to the context passed to Run. Signal handling is left
// to the process entrypoint, which cancels that context.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	err := srv.Run(ctx, router)
//
// HealthCheckHandler serves liveness (no checks) and readiness (named checks)
// probes as JSON.
//
// Run wraps listen errors with ErrStart, Shutdown wraps shutdown errors with
// ErrShutdown.
package httpserver
