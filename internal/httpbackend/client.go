// Package httpbackend implements backend.Backend against the league server's
// REST API. Request and response bodies are JSON.
package httpbackend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/ctxlog"
)

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL string
	Timeout time.Duration
	// HTTPClient replaces the default client. Its own timeout wins.
	HTTPClient *http.Client
}

// Client is a backend.Backend over HTTP. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

var _ backend.Backend = (*Client)(nil)

// New creates a client for the API at opts.BaseURL.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("httpbackend: base url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpbackend: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("httpbackend: unsupported scheme %q", base.Scheme)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, http: hc}, nil
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Op         backend.Op
	StatusCode int
	// Message is the server's error message, or the status text.
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
}

// errorBody is the error envelope of the API.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do sends in as the JSON body (when not nil) and decodes the response into
// out (when not nil).
func (c *Client) do(ctx context.Context, op backend.Op, method, p string, in, out any) error {
	logger := ctxlog.FromContext(ctx)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+p, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("Making backend request.", "op", op, "method", method, "path", p)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to execute request: %w", op, err)
	}
	defer resp.Body.Close()
	logger.Debug("Received backend response.", "op", op, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func statusError(op backend.Op, resp *http.Response) error {
	se := &StatusError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return se
	}
	var eb errorBody
	switch {
	case json.Unmarshal(raw, &eb) == nil && eb.Message != "":
		se.Message = eb.Message
	case eb.Error != "":
		se.Message = eb.Error
	default:
		se.Message = strings.TrimSpace(string(raw))
	}
	return se
}

// path joins escaped segments onto a leading slash.
func path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
