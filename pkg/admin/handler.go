package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/schedkit/pkg/httpserver"
	"github.com/dmitrymomot/schedkit/pkg/logger"
	"github.com/dmitrymomot/schedkit/pkg/queue"
	"github.com/dmitrymomot/schedkit/pkg/requestid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// StatsSource reports worker counters; *queue.Stats satisfies it.
type StatsSource interface {
	Snapshot() queue.StatsSnapshot
}

// Submitter schedules a notification from a raw payload; *notify.Notifier satisfies it.
type Submitter interface {
	Submit(ctx context.Context, jobType queue.JobType, target string, raw json.RawMessage, opts ...queue.EnqueueOption) (uuid.UUID, error)
}

// SubmitRequest is the body of POST /jobs.
type SubmitRequest struct {
	Type        queue.JobType   `json:"type"`
	Target      string          `json:"target"`
	Payload     json.RawMessage `json:"payload"`
	MaxAttempts int             `json:"max_attempts,omitempty"`
	// Delay is a Go duration string, e.g. "15m".
	Delay string `json:"delay,omitempty"`
}

// SubmitResult is the data of a successful POST /jobs.
type SubmitResult struct {
	ID uuid.UUID `json:"id"`
}

// Handler serves the admin API.
type Handler struct {
	inspector queue.Inspector
	stats     StatsSource
	submitter Submitter
	checks    []httpserver.Check
	logger    *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithStats enables GET /stats.
func WithStats(s StatsSource) Option {
	return func(h *Handler) { h.stats = s }
}

// WithSubmitter enables POST /jobs.
func WithSubmitter(s Submitter) Option {
	return func(h *Handler) { h.submitter = s }
}

// WithChecks adds readiness probes to GET /readyz.
func WithChecks(checks ...httpserver.Check) Option {
	return func(h *Handler) { h.checks = append(h.checks, checks...) }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates the admin handler over inspector.
func New(inspector queue.Inspector, opts ...Option) (*Handler, error) {
	if inspector == nil {
		return nil, ErrInspectorNil
	}
	h := &Handler{inspector: inspector, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle returns the router with every admin route mounted.
func (h *Handler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(h.logger))
	r.Get("/readyz", httpserver.HealthCheckHandler(h.logger, h.checks...))
	r.Get("/stats", h.getStats)

	r.Route("/jobs", func(jobs chi.Router) {
		jobs.Post("/", h.submit)
		jobs.Get("/failed", h.listFailed)
		jobs.Get("/{id}", h.getJob)
		jobs.Post("/{id}/replay", h.replay)
	})

	return r
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: stats", ErrNotEnabled))
		return
	}
	writeData(w, http.StatusOK, h.stats.Snapshot(), nil)
}

func (h *Handler) listFailed(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	envs, err := h.inspector.ListFailed(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, envs, map[string]any{"count": len(envs), "limit": limit})
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	env, err := h.inspector.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, env, nil)
}

func (h *Handler) replay(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	env, err := h.inspector.Replay(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "failed job replayed",
		slog.String("replay_of", id.String()),
		logger.JobID(env.ID),
		logger.JobType(env.Type),
	)
	writeData(w, http.StatusCreated, env, nil)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if h.submitter == nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: submit", ErrNotEnabled))
		return
	}

	var req SubmitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: %w", ErrInvalidBody, err))
		return
	}

	opts, err := req.options()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	id, err := h.submitter.Submit(r.Context(), req.Type, req.Target, req.Payload, opts...)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusAccepted, SubmitResult{ID: id}, nil)
}

func (req SubmitRequest) options() ([]queue.EnqueueOption, error) {
	var opts []queue.EnqueueOption
	if req.MaxAttempts != 0 {
		if req.MaxAttempts < 1 || req.MaxAttempts > queue.MaxAttemptsLimit {
			return nil, fmt.Errorf("%w: max_attempts must be within 1..%d", ErrInvalidBody, queue.MaxAttemptsLimit)
		}
		opts = append(opts, queue.WithMaxAttempts(req.MaxAttempts))
	}
	if req.Delay != "" {
		d, err := time.ParseDuration(req.Delay)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: delay %q", ErrInvalidBody, req.Delay)
		}
		opts = append(opts, queue.WithDelay(d))
	}
	return opts, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, raw)
	}
	return min(n, MaxListLimit), nil
}
