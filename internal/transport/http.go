package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/roach88/erpsync/internal/model"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize int64 = 32 << 20

// HTTP is the Transport talking JSON to the backend over HTTP.
//
// Thread-safety: HTTP is safe for concurrent use.
type HTTP struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	logger  *slog.Logger
	maxBody int64
}

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithClient replaces the underlying HTTP client.
func WithClient(c *http.Client) Option {
	return func(t *HTTP) {
		t.client = c
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTP) {
		t.client.Timeout = d
	}
}

// WithTokenSource attaches "Authorization: Bearer <token>" to requests
// while a session token is present.
func WithTokenSource(ts TokenSource) Option {
	return func(t *HTTP) {
		t.tokens = ts
	}
}

// WithMaxBodySize sets the largest response body accepted, in bytes.
// Non-positive values keep the default.
func WithMaxBodySize(n int64) Option {
	return func(t *HTTP) {
		if n > 0 {
			t.maxBody = n
		}
	}
}

// WithLogger sets the transport logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTP) {
		t.logger = l
	}
}

// NewHTTP creates a transport for the backend rooted at baseURL.
func NewHTTP(baseURL string, opts ...Option) *HTTP {
	t := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
		maxBody: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Client returns the underlying HTTP client.
func (t *HTTP) Client() *http.Client {
	return t.client
}

// Do performs the request. It never panics and never returns an error;
// failures are reported through the Response.
func (t *HTTP) Do(ctx context.Context, req Request) Response {
	start := time.Now()
	resp := t.do(ctx, req)

	t.logger.Debug("backend request",
		"method", req.Method,
		"path", req.Path,
		"status", resp.Status,
		"ok", resp.OK,
		"elapsed", time.Since(start),
	)
	return resp
}

func (t *HTTP) do(ctx context.Context, req Request) Response {
	target := t.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return Response{
				Message: fmt.Sprintf("encoding request body: %v", err),
				Code:    model.CodeInvalidInput,
			}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return Response{Message: fmt.Sprintf("building request: %v", err), Code: model.CodeInvalidInput}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if t.tokens != nil {
		token, err := t.tokens.Token(ctx)
		if err != nil {
			// A broken session store degrades to an anonymous request.
			t.logger.Warn("reading session token", "error", err)
		} else if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return Response{Message: enhanceConnectionError(err).Error(), Code: model.CodeUnreachable}
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			t.logger.Debug("closing response body", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, t.maxBody+1))
	if err != nil {
		return Response{
			Status:  httpResp.StatusCode,
			Message: enhanceConnectionError(err).Error(),
			Code:    model.CodeUnreachable,
		}
	}
	if int64(len(data)) > t.maxBody {
		return Response{
			Status:  httpResp.StatusCode,
			Message: fmt.Sprintf("response body exceeds %d bytes", t.maxBody),
			Code:    model.CodeMalformedResponse,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg, code := parseError(data)
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status code %d", httpResp.StatusCode)
		}
		return Response{Status: httpResp.StatusCode, Body: data, Message: msg, Code: code}
	}

	return Response{OK: true, Status: httpResp.StatusCode, Body: data}
}

// enhanceConnectionError adds context to common connection errors.
func enhanceConnectionError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "EOF"):
		return fmt.Errorf("connection closed unexpectedly before receiving response: %w", err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return fmt.Errorf("request timed out: %w", err)
	case strings.Contains(msg, "connection refused"):
		return fmt.Errorf("connection refused: %w (server down or incorrect base URL)", err)
	}
	return fmt.Errorf("network error: %w", err)
}
