package api

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

	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

// Client talks to the library backend's REST API.
// It holds no credential; protected calls take the token explicitly.
type Client struct {
	baseURL    string
	authScheme string
	timeout    time.Duration
	http       *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithAuthScheme sets the Authorization scheme ("Token" or "Bearer").
func WithAuthScheme(scheme string) Option {
	return func(c *Client) {
		if scheme != "" {
			c.authScheme = scheme
		}
	}
}

// New creates a Client for the API rooted at baseURL,
// e.g. http://127.0.0.1:8000/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authScheme: "Token",
		timeout:    defaultTimeout,
		http:       &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// url builds an API URL from path segments. Every backend route ends
// with a slash.
func (c *Client) url(parts ...string) string {
	return c.baseURL + "/" + strings.Join(parts, "/") + "/"
}

// doJSON sends body as JSON and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, method, url, token string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(b)
	}
	return c.send(ctx, method, url, token, bodyReader, "application/json", out)
}

// send executes one request with the standard headers and the client
// deadline. A nil out discards the response body.
func (c *Client) send(ctx context.Context, method, url, token string, body io.Reader, contentType string, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", c.authScheme+" "+token)
	}

	entry := logger.Log.WithFields(logrus.Fields{
		"method":     method,
		"url":        url,
		"request_id": reqID,
	})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		entry.WithError(err).Warn("request failed")
		return transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	entry.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("request done")

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// transportError classifies a failure that produced no response.
func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// requireToken short-circuits protected calls that have no credential.
func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrAuthRequired
	}
	return nil
}
