package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WebhookConfig points the webhook transport at an HTTP notification provider.
type WebhookConfig struct {
	URL    string `env:"WEBHOOK_URL"`
	Secret string `env:"WEBHOOK_SECRET"`
}

// Validate checks the endpoint and signing secret.
func (c WebhookConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || c.URL == "" {
		return fmt.Errorf("%w: WEBHOOK_URL must be a valid URL", ErrInvalidConfig)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: WEBHOOK_URL must use http or https", ErrInvalidConfig)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: WEBHOOK_URL host is required", ErrInvalidConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: WEBHOOK_SECRET is required", ErrInvalidConfig)
	}
	return nil
}

// WebhookPayload is the JSON body posted to the provider.
type WebhookPayload struct {
	ID      string `json:"id,omitempty"`
	Target  string `json:"target"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Tag     string `json:"tag,omitempty"`
}

// WebhookTransport posts each message as signed JSON. It makes one attempt per
// call; retries belong to the queue.
type WebhookTransport struct {
	config WebhookConfig
	client *http.Client
	now    func() time.Time
}

// WebhookOption configures a WebhookTransport.
type WebhookOption func(*WebhookTransport)

// WithWebhookHTTPClient replaces the default HTTP client.
func WithWebhookHTTPClient(hc *http.Client) WebhookOption {
	return func(t *WebhookTransport) {
		if hc != nil {
			t.client = hc
		}
	}
}

// NewWebhookTransport validates cfg and creates the transport.
func NewWebhookTransport(cfg WebhookConfig, opts ...WebhookOption) (*WebhookTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &WebhookTransport{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Deliver implements Transport.
func (t *WebhookTransport) Deliver(ctx context.Context, target string, msg Message) (Receipt, error) {
	if err := validate(target, msg); err != nil {
		return Receipt{}, err
	}

	body, err := json.Marshal(WebhookPayload{
		ID:      msg.IdempotencyKey,
		Target:  target,
		Subject: msg.Subject,
		Body:    msg.Body,
		Tag:     msg.Tag,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	sig, err := SignPayload(t.config.Secret, body, t.now())
	if err != nil {
		return Receipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.URL, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "schedkit-notify/1.0")
	if msg.IdempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, msg.IdempotencyKey)
	}
	sig.Apply(req.Header)

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Receipt{}, errors.Join(ErrTimeout, err)
		}
		return Receipt{}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Receipt{Provider: "webhook", MessageID: sig.ID}, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	statusErr := fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	if isPermanentStatus(resp.StatusCode) {
		return Receipt{}, errors.Join(ErrPermanentFailure, statusErr)
	}
	return Receipt{}, statusErr
}

// isPermanentStatus reports whether a response will not change on retry.
// Most 4xx are client errors; 408, 425 and 429 are temporary.
func isPermanentStatus(code int) bool {
	if code < 400 || code >= 500 {
		return false
	}
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}
