// Package httpclient is a thin retrying wrapper around net/http used for
// JSON-RPC traffic to HTTP tool servers. Retries apply exponential backoff
// and honor Retry-After on 429/503 responses.
package httpclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Client retries transient HTTP failures with backoff.
type Client struct {
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithMaxRetries sets the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) { c.maxRetries = max }
}

// WithBaseDelay sets the first backoff delay; subsequent delays double.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) { c.baseDelay = delay }
}

// New creates a retrying client.
func New(opts ...Option) *Client {
	c := &Client{
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes the request, retrying on retryable status codes. The request
// must have GetBody set when it carries a body (http.NewRequest does this
// for common body types).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", bodyErr)
			}
			req.Body = body
		}

		resp, err = c.client.Do(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= c.maxRetries {
			break
		}

		delay := c.baseDelay << attempt
		if resp != nil {
			if ra := retryAfter(resp.Header); ra > 0 {
				delay = ra
			}
			resp.Body.Close()
		}

		slog.Debug("Retrying HTTP request",
			"url", req.URL.String(),
			"attempt", attempt+1,
			"delay", delay,
		)

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, err)
	}
	return resp, &RetryableError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("max HTTP retries (%d) exceeded", c.maxRetries),
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter parses the Retry-After header (seconds form).
func retryAfter(headers http.Header) time.Duration {
	v := headers.Get("Retry-After")
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
