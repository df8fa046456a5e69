package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("gateway base url is required")
	errLoggerRequired  = errors.New("gateway logger is required")
)

// ErrSessionExpired is returned when the backend rejects the bearer token.
var ErrSessionExpired = errors.New("session expired")

// TokenSource supplies the current bearer token, empty when unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// Client calls the backend API on behalf of an embedded assistant frontend.
// Every response is expected to carry the standard envelope; Data is unwrapped
// for callers and envelope failures become typed errors.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokens      TokenSource
	logger      *logger.Logger
	onExpired   func(ctx context.Context)
	exemptPaths map[string]struct{}
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionExpiredHandler registers a callback fired when a request comes
// back 401. Requests to exempt paths never trigger it, so a failed login
// cannot clear a session or bounce the user in a loop.
func WithSessionExpiredHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onExpired = fn }
}

// WithExpiryExemptPaths replaces the default set of paths whose 401 responses
// are surfaced as plain errors instead of session expiry.
func WithExpiryExemptPaths(paths ...string) Option {
	return func(c *Client) {
		c.exemptPaths = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			c.exemptPaths[p] = struct{}{}
		}
	}
}

// NewClient builds a gateway client rooted at baseURL.
func NewClient(baseURL string, tokens TokenSource, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    trimmed,
		tokens:     tokens,
		logger:     logg,
		exemptPaths: map[string]struct{}{
			"/api/users/login":    {},
			"/api/users/register": {},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues a GET and decodes the envelope's data field into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and decodes the envelope's data field into out.
func (c *Client) Post(ctx context.Context, path string, payload any, out any) error {
	return c.do(ctx, http.MethodPost, path, payload, out)
}

// Put issues a PUT with a JSON body and decodes the envelope's data field into out.
func (c *Client) Put(ctx context.Context, path string, payload any, out any) error {
	return c.do(ctx, http.MethodPut, path, payload, out)
}

// Delete issues a DELETE and decodes the envelope's data field into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token(ctx)); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading response")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if _, exempt := c.exemptPaths[path]; !exempt {
			c.logger.Warn(c.logger.WithFields(ctx, map[string]any{"path": path}), "session rejected by backend")
			if c.onExpired != nil {
				c.onExpired(ctx)
			}
			return ErrSessionExpired
		}
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "malformed response envelope")
	}

	if !envelope.Success {
		message := envelope.Error
		if message == "" {
			message = envelope.Message
		}
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return pkgerrors.New(codeForStatus(resp.StatusCode), message)
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding response data")
	}
	return nil
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		return pkgerrors.CodeDependency
	}
}
