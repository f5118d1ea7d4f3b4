package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderSignature      = "X-Webhook-Signature"
	HeaderTimestamp      = "X-Webhook-Timestamp"
	HeaderID             = "X-Webhook-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// SignatureHeaders carries an HMAC signature bound to a timestamp.
type SignatureHeaders struct {
	Signature string
	Timestamp int64
	ID        string
}

// Apply sets the signature headers on h.
func (s SignatureHeaders) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Signature)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	h.Set(HeaderID, s.ID)
}

// SignPayload signs HMAC-SHA256(secret, timestamp + "." + payload).
func SignPayload(secret string, payload []byte, now time.Time) (SignatureHeaders, error) {
	if secret == "" {
		return SignatureHeaders{}, fmt.Errorf("%w: secret is required", ErrInvalidConfig)
	}
	if len(payload) == 0 {
		return SignatureHeaders{}, fmt.Errorf("%w: payload cannot be empty", ErrInvalidMessage)
	}

	ts := now.Unix()
	return SignatureHeaders{
		Signature: sign(secret, ts, payload),
		Timestamp: ts,
		ID:        uuid.NewString(),
	}, nil
}

// VerifySignature checks the signature in constant time and, when maxAge > 0,
// rejects timestamps older than maxAge or more than a minute in the future.
func VerifySignature(secret string, payload []byte, headers SignatureHeaders, maxAge time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfig)
	}
	if headers.Signature == "" {
		return fmt.Errorf("%w: signature is missing", ErrInvalidSignature)
	}

	if maxAge > 0 {
		age := time.Since(time.Unix(headers.Timestamp, 0))
		if age > maxAge {
			return fmt.Errorf("%w: timestamp too old: %v", ErrInvalidSignature, age)
		}
		if age < -time.Minute {
			return fmt.Errorf("%w: timestamp is in the future", ErrInvalidSignature)
		}
	}

	expected := sign(secret, headers.Timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(headers.Signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}

// ExtractSignatureHeaders reads the signature headers from an incoming request.
func ExtractSignatureHeaders(h http.Header) (SignatureHeaders, error) {
	sig := SignatureHeaders{
		Signature: h.Get(HeaderSignature),
		ID:        h.Get(HeaderID),
	}
	if sig.Signature == "" {
		return SignatureHeaders{}, fmt.Errorf("%w: %s header is missing", ErrInvalidSignature, HeaderSignature)
	}

	raw := h.Get(HeaderTimestamp)
	if raw == "" {
		return SignatureHeaders{}, fmt.Errorf("%w: %s header is missing", ErrInvalidSignature, HeaderTimestamp)
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return SignatureHeaders{}, fmt.Errorf("%w: bad timestamp: %w", ErrInvalidSignature, err)
	}
	sig.Timestamp = ts
	return sig, nil
}

func sign(secret string, ts int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.%s", ts, payload)
	return hex.EncodeToString(h.Sum(nil))
}
