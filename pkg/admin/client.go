package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/schedkit/pkg/notify"
	"github.com/dmitrymomot/schedkit/pkg/queue"
	"github.com/dmitrymomot/schedkit/pkg/requestid"
)

// APIError is a non-2xx admin response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("admin api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Is maps error codes onto the sentinels the server classified them from.
func (e *APIError) Is(target error) bool {
	switch e.Code {
	case CodeNotFound:
		return target == queue.ErrJobNotFound
	case CodeNotFailed:
		return target == queue.ErrNotFailed
	case CodeUnknownType:
		return target == notify.ErrUnknownJobType
	case CodeInvalidPayload:
		return target == notify.ErrInvalidPayload
	case CodeInvalidID:
		return target == ErrInvalidID
	case CodeInvalidLimit:
		return target == ErrInvalidLimit
	case CodeInvalidBody:
		return target == ErrInvalidBody
	case CodeNotEnabled:
		return target == ErrNotEnabled
	}
	return false
}

// Client calls the admin API.
type Client struct {
	base *url.URL
	http *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default client (10s timeout, X-Request-ID propagation).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// NewClient creates a client for the admin API at baseURL, e.g. http://localhost:8090.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}

	c := &Client{base: u, http: &http.Client{
		Timeout:   10 * time.Second,
		Transport: &requestid.Transport{},
	}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListFailed returns permanently failed jobs, newest first. limit <= 0 uses the server default.
func (c *Client) ListFailed(ctx context.Context, limit int) ([]*queue.Envelope, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var envs []*queue.Envelope
	err := c.do(ctx, http.MethodGet, "/jobs/failed", q, nil, &envs)
	return envs, err
}

// Get returns a single job.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (*queue.Envelope, error) {
	var env queue.Envelope
	if err := c.do(ctx, http.MethodGet, "/jobs/"+id.String(), nil, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Replay enqueues a copy of a failed job and returns the new job.
func (c *Client) Replay(ctx context.Context, id uuid.UUID) (*queue.Envelope, error) {
	var env queue.Envelope
	if err := c.do(ctx, http.MethodPost, "/jobs/"+id.String()+"/replay", nil, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Submit schedules a notification and returns its job id.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (uuid.UUID, error) {
	var res SubmitResult
	if err := c.do(ctx, http.MethodPost, "/jobs", nil, req, &res); err != nil {
		return uuid.Nil, err
	}
	return res.ID, nil
}

// Stats returns the worker counters.
func (c *Client) Stats(ctx context.Context) (queue.StatsSnapshot, error) {
	var s queue.StatsSnapshot
	err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &s)
	return s, err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error *ErrorDetail    `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&envelope); err != nil {
		return fmt.Errorf("admin api: decode %s %s (status %d): %w", method, path, resp.StatusCode, err)
	}

	if resp.StatusCode >= 300 || envelope.Error != nil {
		apiErr := &APIError{Status: resp.StatusCode}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}
