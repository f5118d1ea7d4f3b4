package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// FileTransport saves each message as an .html body and a .json metadata file
// so templates can be inspected locally.
type FileTransport struct {
	dir string
	now func() time.Time
}

// NewFileTransport creates a transport writing into dir. The directory is created on first use.
func NewFileTransport(dir string) *FileTransport {
	return &FileTransport{dir: dir, now: time.Now}
}

type fileMetadata struct {
	Timestamp      string `json:"timestamp"`
	Target         string `json:"target"`
	Subject        string `json:"subject"`
	Tag            string `json:"tag,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Deliver implements Transport.
func (t *FileTransport) Deliver(ctx context.Context, target string, msg Message) (Receipt, error) {
	if err := validate(target, msg); err != nil {
		return Receipt{}, err
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return Receipt{}, fmt.Errorf("%w: failed to create directory: %w", ErrDeliveryFailed, err)
	}

	now := t.now()
	identifier := msg.Tag
	if identifier == "" {
		identifier = msg.Subject
	}
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405.000000"), sanitizeFilename(identifier))
	if msg.IdempotencyKey != "" {
		base += "_" + sanitizeFilename(msg.IdempotencyKey)
	}

	htmlPath := filepath.Join(t.dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(msg.Body), 0o644); err != nil {
		return Receipt{}, fmt.Errorf("%w: failed to write HTML file: %w", ErrDeliveryFailed, err)
	}

	meta, err := json.MarshalIndent(fileMetadata{
		Timestamp:      now.Format(time.RFC3339),
		Target:         target,
		Subject:        msg.Subject,
		Tag:            msg.Tag,
		IdempotencyKey: msg.IdempotencyKey,
	}, "", "  ")
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: failed to marshal metadata: %w", ErrDeliveryFailed, err)
	}

	if err := os.WriteFile(filepath.Join(t.dir, base+".json"), meta, 0o644); err != nil {
		return Receipt{}, fmt.Errorf("%w: failed to write JSON file: %w", ErrDeliveryFailed, err)
	}

	return Receipt{Provider: "file", MessageID: base}, nil
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename keeps letters, digits, dash, underscore and dot, lowercased and capped at 100 bytes.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "message"
	}
	return strings.ToLower(s)
}
