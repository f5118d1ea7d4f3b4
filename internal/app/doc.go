// Package app wires the notification daemon: configuration, the selected
// broker, the delivery pipeline, the worker, the janitor and the admin server.
// Both cmd/notifyd and tests build the process through New.
package app
