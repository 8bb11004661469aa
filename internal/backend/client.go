// Package backend talks to the fleet backend REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
)

const maxErrorBody = 64 << 10

type authKey struct{}

// WithAuthorization stores an Authorization header value that every backend
// request made with ctx forwards.
func WithAuthorization(ctx context.Context, header string) context.Context {
	if header == "" {
		return ctx
	}
	return context.WithValue(ctx, authKey{}, header)
}

func authorization(ctx context.Context) string {
	s, _ := ctx.Value(authKey{}).(string)
	return s
}

// Client is a JSON client for the backend API rooted at baseURL.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewClient creates a backend client. A zero timeout leaves requests
// unbounded except by their context.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		logger:       logger,
		metrics:      metrics,
	}
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a JSON request to path and decodes the response into out.
//
// Non-2xx responses return *domain.APIError carrying the status and body.
// Transport failures return an APIError with Network set. 204 responses,
// empty bodies and bodies that are not valid JSON leave out untouched and
// return nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if auth := authorization(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, "network")
		return networkError(method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &domain.APIError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       string(text),
		}
		if apiErr.BackendDown() {
			c.observe(method, "backend_down")
		} else {
			c.observe(method, "client_error")
		}
		return apiErr
	}
	c.observe(method, "ok")

	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.APIError{Network: true, Err: fmt.Errorf("read %s %s response: %w", method, path, err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Debug("ignoring undecodable backend response", "method", method, "path", path, "error", err)
	}
	return nil
}

func networkError(method, path string, err error) error {
	return &domain.APIError{Network: true, Err: fmt.Errorf("%s %s: %w", method, path, err)}
}

func (c *Client) observe(method, outcome string) {
	c.metrics.BackendRequests.WithLabelValues(method, outcome).Inc()
}
