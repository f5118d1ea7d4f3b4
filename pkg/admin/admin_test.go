package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/admin"
	"github.com/dmitrymomot/schedkit/pkg/httpserver"
	"github.com/dmitrymomot/schedkit/pkg/notify"
	"github.com/dmitrymomot/schedkit/pkg/queue"
	"github.com/dmitrymomot/schedkit/pkg/requestid"
)

type harness struct {
	broker   *queue.MemoryBroker
	producer *queue.Producer
	stats    *queue.Stats
	server   *httptest.Server
	client   *admin.Client
}

func newHarness(t *testing.T, opts ...admin.Option) *harness {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	broker := queue.NewMemoryBroker()
	producer, err := queue.NewProducer(broker)
	require.NoError(t, err)
	notifier, err := notify.NewNotifier(producer, log)
	require.NoError(t, err)
	stats := &queue.Stats{}

	base := []admin.Option{
		admin.WithLogger(log),
		admin.WithStats(stats),
		admin.WithSubmitter(notifier),
	}
	h, err := admin.New(broker, append(base, opts...)...)
	require.NoError(t, err)

	srv := httptest.NewServer(h.Handle())
	t.Cleanup(srv.Close)

	client, err := admin.NewClient(srv.URL, admin.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return &harness{broker: broker, producer: producer, stats: stats, server: srv, client: client}
}

// failJob enqueues a job and drives it to failed_permanent.
func (h *harness) failJob(t *testing.T, target string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id, err := h.producer.Enqueue(ctx, notify.TypeWelcome, target, notify.Welcome{Name: "ada"})
	require.NoError(t, err)
	env, err := h.broker.Claim(ctx, "test-worker", time.Minute)
	require.NoError(t, err)
	require.Equal(t, id, env.ID)
	require.NoError(t, h.broker.Nack(ctx, id, "test-worker", queue.NackParams{Reason: "provider rejected recipient"}))
	return id
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := admin.New(nil)
	assert.ErrorIs(t, err, admin.ErrInspectorNil)
}

func TestNewClient_InvalidURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "localhost:8090", "ftp://host", "http://"} {
		_, err := admin.NewClient(raw)
		assert.ErrorIs(t, err, admin.ErrInvalidURL, raw)
	}
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	failing := httpserver.Check{Name: "broker", Probe: func(context.Context) error { return errors.New("down") }}
	h := newHarness(t, admin.WithChecks(failing))

	resp, err := h.server.Client().Get(h.server.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestid.Header))

	resp, err = h.server.Client().Get(h.server.URL + "/readyz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestListFailed(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	first := h.failJob(t, "a@example.com")
	second := h.failJob(t, "b@example.com")
	_, err := h.producer.Enqueue(ctx, notify.TypeWelcome, "c@example.com", notify.Welcome{})
	require.NoError(t, err)

	envs, err := h.client.ListFailed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, envs, 2)
	ids := []uuid.UUID{envs[0].ID, envs[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{first, second}, ids)
	for _, env := range envs {
		assert.Equal(t, queue.StatusFailedPermanent, env.Status)
		assert.Equal(t, "provider rejected recipient", env.LastError)
	}

	envs, err = h.client.ListFailed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, envs, 1)
}

func TestListFailed_Empty(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	envs, err := h.client.ListFailed(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestListFailed_InvalidLimit(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	resp, err := h.server.Client().Get(h.server.URL + "/jobs/failed?limit=abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body admin.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Error)
	assert.Equal(t, admin.CodeInvalidLimit, body.Error.Code)
}

func TestGetJob(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	id := h.failJob(t, "a@example.com")

	env, err := h.client.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, env.ID)
	assert.Equal(t, notify.TypeWelcome, env.Type)
	assert.Equal(t, "a@example.com", env.Target)

	_, err = h.client.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, queue.ErrJobNotFound)

	var apiErr *admin.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestGetJob_InvalidID(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	resp, err := h.server.Client().Get(h.server.URL + "/jobs/not-a-uuid")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReplay(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	id := h.failJob(t, "a@example.com")

	env, err := h.client.Replay(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, id, env.ID)
	require.NotNil(t, env.ReplayOf)
	assert.Equal(t, id, *env.ReplayOf)
	assert.Equal(t, queue.StatusPending, env.Status)
	assert.Zero(t, env.AttemptCount)

	src, err := h.client.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailedPermanent, src.Status)

	_, err = h.client.Replay(ctx, env.ID)
	assert.ErrorIs(t, err, queue.ErrNotFailed)

	_, err = h.client.Replay(ctx, uuid.New())
	assert.ErrorIs(t, err, queue.ErrJobNotFound)
}

func TestSubmit(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	id, err := h.client.Submit(ctx, admin.SubmitRequest{
		Type:        notify.TypeWelcome,
		Target:      "new@example.com",
		Payload:     json.RawMessage(`{"name":"grace"}`),
		MaxAttempts: 5,
		Delay:       "1h",
	})
	require.NoError(t, err)

	env, err := h.client.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, env.Status)
	assert.Equal(t, 5, env.MaxAttempts)
	assert.True(t, env.AvailableAt.After(time.Now().Add(50*time.Minute)))

	_, err = h.broker.Claim(ctx, "w", time.Minute)
	assert.ErrorIs(t, err, queue.ErrNoJob, "delayed job must not be claimable yet")
}

func TestSubmit_Rejects(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  admin.SubmitRequest
		want error
	}{
		{
			name: "unknown type",
			req:  admin.SubmitRequest{Type: "sms.reminder", Target: "a@example.com", Payload: json.RawMessage(`{}`)},
			want: notify.ErrUnknownJobType,
		},
		{
			name: "invalid payload",
			req:  admin.SubmitRequest{Type: notify.TypeOrgInvite, Target: "a@example.com", Payload: json.RawMessage(`{"org_name":"Acme"}`)},
			want: notify.ErrInvalidPayload,
		},
		{
			name: "bad delay",
			req:  admin.SubmitRequest{Type: notify.TypeWelcome, Target: "a@example.com", Payload: json.RawMessage(`{}`), Delay: "soon"},
			want: admin.ErrInvalidBody,
		},
		{
			name: "attempts over limit",
			req:  admin.SubmitRequest{Type: notify.TypeWelcome, Target: "a@example.com", Payload: json.RawMessage(`{}`), MaxAttempts: 99},
			want: admin.ErrInvalidBody,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := h.client.Submit(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmit_NotEnabled(t *testing.T) {
	t.Parallel()

	broker := queue.NewMemoryBroker()
	h, err := admin.New(broker, admin.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	srv := httptest.NewServer(h.Handle())
	t.Cleanup(srv.Close)
	client, err := admin.NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), admin.SubmitRequest{Type: notify.TypeWelcome, Target: "a@example.com"})
	assert.ErrorIs(t, err, admin.ErrNotEnabled)

	_, err = client.Stats(context.Background())
	assert.ErrorIs(t, err, admin.ErrNotEnabled)
}

func TestStats(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	h.stats.JobStarted(ctx, nil, "w")
	h.stats.JobFinished(ctx, queue.Result{Outcome: queue.OutcomeCompleted})

	s, err := h.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.StatsSnapshot{Started: 1, Completed: 1}, s)
}
