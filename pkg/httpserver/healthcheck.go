package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/schedkit/pkg/logger"
)

// Check is a named dependency probe, such as a broker ping.
type Check struct {
	Name  string
	Probe func(context.Context) error
}

// HealthStatus is the JSON body written by HealthCheckHandler.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

const (
	StatusAlive    = "alive"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// checkTimeout bounds a single probe.
const checkTimeout = 3 * time.Second

// HealthCheckHandler returns a handler usable for liveness and readiness probes.
//
// With no checks it answers 200 with status "alive". Otherwise every check runs
// against the request context; all passing yields 200 "ready", any failure yields
// 503 "not_ready" with the failing check's error in the checks map.
func HealthCheckHandler(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			writeHealth(w, http.StatusOK, HealthStatus{Status: StatusAlive})
			return
		}

		res := HealthStatus{Status: StatusReady, Checks: make(map[string]string, len(checks))}
		code := http.StatusOK
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := c.Probe(ctx)
			cancel()

			if err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					slog.String("check", c.Name),
					logger.Error(err),
				)
				res.Checks[c.Name] = err.Error()
				res.Status = StatusNotReady
				code = http.StatusServiceUnavailable
				continue
			}
			res.Checks[c.Name] = "ok"
		}

		writeHealth(w, code, res)
	}
}

func writeHealth(w http.ResponseWriter, code int, body HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
