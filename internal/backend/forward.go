package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// StreamPath is the backend's power-output SSE endpoint.
const StreamPath = "/api/1/stream/power-output"

// StreamURL returns the absolute power-output stream endpoint.
func (c *Client) StreamURL() string {
	return c.baseURL + StreamPath
}

// Forward sends a raw request to the backend and returns the response
// unread. The caller must close the body. Only the Authorization and
// Content-Type headers of h are forwarded. Transport failures return
// *domain.APIError with Network set; HTTP error statuses are returned as
// responses so the caller can relay them.
func (c *Client) Forward(ctx context.Context, method, pathAndQuery string, h http.Header, body io.Reader) (*http.Response, error) {
	return c.forward(ctx, c.httpClient, method, pathAndQuery, h, body)
}

// OpenStream opens the upstream power-output stream with the given raw
// query. The request is never timed out; cancel ctx to close it.
func (c *Client) OpenStream(ctx context.Context, rawQuery string, h http.Header) (*http.Response, error) {
	path := StreamPath
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	if h == nil {
		h = http.Header{}
	}
	h = h.Clone()
	h.Set("Accept", "text/event-stream")
	return c.forward(ctx, c.streamClient, http.MethodGet, path, h, nil)
}

func (c *Client) forward(ctx context.Context, client *http.Client, method, pathAndQuery string, h http.Header, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathAndQuery, body)
	if err != nil {
		return nil, fmt.Errorf("create forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, k := range []string{"Authorization", "Content-Type", "Accept"} {
		if v := h.Get(k); v != "" {
			req.Header.Set(k, v)
		}
	}
	if req.Header.Get("Authorization") == "" {
		if auth := authorization(ctx); auth != "" {
			req.Header.Set("Authorization", auth)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		c.observe(method, "network")
		return nil, networkError(method, pathAndQuery, err)
	}
	switch {
	case resp.StatusCode >= 500:
		c.observe(method, "backend_down")
	case resp.StatusCode >= 400:
		c.observe(method, "client_error")
	default:
		c.observe(method, "ok")
	}
	return resp, nil
}
