package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/mrz1836/postmark"
)

// Postmark API error codes that will not succeed on retry.
// https://postmarkapp.com/developer/api/overview#error-codes
var postmarkPermanentCodes = map[int64]bool{
	300: true, // invalid email request
	406: true, // inactive recipient
	422: true, // invalid JSON
}

// PostmarkConfig holds the Postmark credentials and sender identities.
type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"SENDER_EMAIL"`
	SupportEmail string `env:"SUPPORT_EMAIL"`
}

// Validate checks that every field needed to send is present.
func (c PostmarkConfig) Validate() error {
	if c.ServerToken == "" {
		return fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is required", ErrInvalidConfig)
	}
	if c.AccountToken == "" {
		return fmt.Errorf("%w: POSTMARK_ACCOUNT_TOKEN is required", ErrInvalidConfig)
	}
	if _, err := mail.ParseAddress(c.SenderEmail); err != nil {
		return fmt.Errorf("%w: SENDER_EMAIL must be a valid email address", ErrInvalidConfig)
	}
	if _, err := mail.ParseAddress(c.SupportEmail); err != nil {
		return fmt.Errorf("%w: SUPPORT_EMAIL must be a valid email address", ErrInvalidConfig)
	}
	return nil
}

// PostmarkTransport delivers messages as transactional email through Postmark.
type PostmarkTransport struct {
	client *postmark.Client
	config PostmarkConfig
}

// PostmarkOption configures a PostmarkTransport.
type PostmarkOption func(*postmark.Client)

// WithPostmarkBaseURL points the client at another API host.
func WithPostmarkBaseURL(url string) PostmarkOption {
	return func(c *postmark.Client) { c.BaseURL = url }
}

// WithPostmarkHTTPClient replaces the HTTP client used for API calls.
func WithPostmarkHTTPClient(hc *http.Client) PostmarkOption {
	return func(c *postmark.Client) { c.HTTPClient = hc }
}

// NewPostmarkTransport validates cfg and creates the transport.
func NewPostmarkTransport(cfg PostmarkConfig, opts ...PostmarkOption) (*PostmarkTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	for _, opt := range opts {
		opt(client)
	}

	return &PostmarkTransport{client: client, config: cfg}, nil
}

// Deliver implements Transport. Opens and HTML link clicks are tracked;
// replies go to the support address.
func (t *PostmarkTransport) Deliver(ctx context.Context, target string, msg Message) (Receipt, error) {
	if err := validate(target, msg); err != nil {
		return Receipt{}, err
	}
	if _, err := mail.ParseAddress(target); err != nil {
		return Receipt{}, fmt.Errorf("%w: %q is not an email address: %w", ErrPermanentFailure, target, err)
	}

	resp, err := t.client.SendEmail(ctx, postmark.Email{
		From:       t.config.SenderEmail,
		ReplyTo:    t.config.SupportEmail,
		To:         target,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.Body,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Receipt{}, errors.Join(ErrTimeout, err)
		}
		return Receipt{}, errors.Join(ErrDeliveryFailed, err)
	}
	if resp.ErrorCode > 0 {
		perr := fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
		if postmarkPermanentCodes[int64(resp.ErrorCode)] {
			return Receipt{}, errors.Join(ErrDeliveryFailed, ErrPermanentFailure, perr)
		}
		return Receipt{}, errors.Join(ErrDeliveryFailed, perr)
	}

	return Receipt{Provider: "postmark", MessageID: resp.MessageID}, nil
}
