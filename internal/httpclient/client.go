// Package httpclient provides a resilient HTTP client for platform APIs.
// Transport failures and error statuses are classified into domain errors,
// and every request runs under the retry coordinator.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mojeeb/resilience-service/internal/domain"
	"github.com/mojeeb/resilience-service/internal/observability"
	"github.com/mojeeb/resilience-service/internal/retry"
)

// Client is an HTTP client with retry, default headers, and classified errors.
type Client struct {
	client    *http.Client
	baseURL   string
	policy    domain.RetryPolicy
	headers   map[string]string
	logger    *slog.Logger
	emitter   domain.EventEmitter
	service   string
	retryOpts []retry.Option
}

// New creates a client for baseURL using the default retry policy.
func New(baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		policy:  domain.DefaultRetryPolicy(),
		headers: make(map[string]string),
		logger:  slog.Default(),
	}
}

// WithPolicy overrides the retry policy.
func (c *Client) WithPolicy(policy domain.RetryPolicy) *Client {
	c.policy = policy
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.client.Timeout = timeout
	return c
}

// WithHeader adds a default header.
func (c *Client) WithHeader(key, value string) *Client {
	c.headers[key] = value
	return c
}

// WithLogger sets the diagnostic logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithEmitter sets the retry event emitter. Clients without one fall back
// to the process-wide default, see observability.SetDefault.
func (c *Client) WithEmitter(emitter domain.EventEmitter) *Client {
	c.emitter = emitter
	return c
}

// WithService tags retry events with the upstream service name.
func (c *Client) WithService(name string) *Client {
	c.service = name
	return c
}

// withRetryOptions appends raw coordinator options. Tests use it to stub the
// backoff wait.
func (c *Client) withRetryOptions(opts ...retry.Option) *Client {
	c.retryOpts = append(c.retryOpts, opts...)
	return c
}

// Response is the decoded result of a successful request.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	Duration   time.Duration
}

// IsSuccess returns true if status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	emitter := c.emitter
	if emitter == nil {
		emitter = observability.Default()
	}
	opts := append([]retry.Option{
		retry.WithService(c.service),
		retry.WithLogger(c.logger),
		retry.WithEmitter(emitter),
	}, c.retryOpts...)

	return retry.Run(ctx, c.policy, func(ctx context.Context) (*Response, error) {
		return c.doOnce(ctx, method, path, body)
	}, opts...)
}

// doOnce performs a single attempt. Failures come back as *domain.APIError
// so the coordinator can classify them.
func (c *Client) doOnce(ctx context.Context, method, path string, body []byte) (*Response, error) {
	url := c.baseURL + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request %s %s: %w", method, path, err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewTransportError(path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTransportError(path, err)
	}

	if resp.StatusCode >= 400 {
		return nil, domain.NewStatusError(path, resp.StatusCode, errorMessage(respBody))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
		Duration:   time.Since(start),
	}, nil
}

const maxErrorMessageLen = 256

func errorMessage(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	if msg == "" {
		msg = "request failed"
	}
	return msg
}
