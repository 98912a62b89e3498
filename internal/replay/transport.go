package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ESmeer90/snapup/internal/store"
)

// Transport performs the network operation described by a queued write.
// A nil error means the server confirmed the write; any error leaves the
// entry in the queue for a later attempt.
type Transport interface {
	Do(ctx context.Context, w *store.QueuedWrite) error
}

// HTTPTransport replays queued writes as plain HTTP requests against the
// marketplace API.
type HTTPTransport struct {
	base   string
	client *http.Client
}

// NewHTTPTransport creates a transport resolving relative endpoints
// against base.
func NewHTTPTransport(base string) *HTTPTransport {
	return &HTTPTransport{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Do sends one queued write. The entry's idempotency key rides along as a
// header so the server can deduplicate at-least-once replays.
func (t *HTTPTransport) Do(ctx context.Context, w *store.QueuedWrite) error {
	url := w.Endpoint
	if strings.HasPrefix(url, "/") {
		url = t.base + url
	}

	var body io.Reader
	if len(w.Body) > 0 {
		body = bytes.NewReader(w.Body)
	}
	req, err := http.NewRequestWithContext(ctx, w.Method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range w.Headers {
		req.Header.Set(k, v)
	}
	if w.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", w.IdempotencyKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s %s: %w", w.Method, w.Endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: server returned %s", w.Method, w.Endpoint, resp.Status)
	}
	return nil
}
