package tiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/requester"
	"github.com/go-pkgz/requester/middleware"
)

// defaults for client configuration
const (
	defaultTimeout    = 30 * time.Second
	defaultRetryCount = 3
	defaultRetryDelay = 100 * time.Millisecond
)

// Client is a tile server client.
type Client struct {
	baseURL   string
	requester *requester.Requester
}

// clientConfig holds configuration options during client construction.
type clientConfig struct {
	timeout    time.Duration
	retryCount int
	retryDelay time.Duration
	userAgent  string
	httpClient *http.Client
}

// Option is a functional option for configuring the client.
type Option func(*clientConfig)

// WithTimeout sets the HTTP request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.timeout = timeout
	}
}

// WithRetry configures retry behavior.
func WithRetry(count int, delay time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.retryCount = count
		cfg.retryDelay = delay
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(cfg *clientConfig) {
		cfg.userAgent = ua
	}
}

// WithHTTPClient sets a custom http.Client.
// Note: when using WithHTTPClient, the WithTimeout option has no effect
// since timeout is configured on the http.Client directly.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = client
	}
}

// Stats is the server side cache and backend counters snapshot.
type Stats struct {
	Keys          int   `json:"keys"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	BackendCalls  int64 `json:"backend_calls"`
	BackendErrors int64 `json:"backend_errors"`
}

// New creates a new tile server client with the given base URL and options.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}

	// normalize base URL
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &clientConfig{
		timeout:    defaultTimeout,
		retryCount: defaultRetryCount,
		retryDelay: defaultRetryDelay,
	}

	// apply options
	for _, opt := range opts {
		opt(cfg)
	}

	// build requester with middleware
	var middlewares []middleware.RoundTripperHandler
	if cfg.retryCount > 0 {
		middlewares = append(middlewares, middleware.Retry(cfg.retryCount, cfg.retryDelay))
	}
	if cfg.userAgent != "" {
		middlewares = append(middlewares, middleware.Header("User-Agent", cfg.userAgent))
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL:   baseURL,
		requester: requester.New(*httpClient, middlewares...),
	}, nil
}

// Tile fetches the encoded mvt tile for zoom z, column x and row y.
func (c *Client) Tile(ctx context.Context, z, x, y int) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("/%d/%d/%d.mvt", z, x, y))
}

// Stats returns server side cache and backend counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	body, err := c.get(ctx, "/stats")
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	if err := json.Unmarshal(body, &st); err != nil {
		return Stats{}, fmt.Errorf("failed to decode stats: %w", err)
	}
	return st, nil
}

// Ping checks the server is alive.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.get(ctx, "/ping")
	if err != nil {
		return err
	}
	if string(body) != "pong" {
		return fmt.Errorf("unexpected ping response %q", string(body))
	}
	return nil
}

// get makes GET request for path and returns the body of a successful response.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.requester.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp.StatusCode, body)
	}
	return body, nil
}

// responseError decodes the JSON error body. A body that is not the expected JSON
// still gives a ResponseError with the status code.
func responseError(status int, body []byte) *ResponseError {
	res := &ResponseError{StatusCode: status}
	var payload struct {
		Title  *string `json:"title"`
		Detail *string `json:"detail"`
		Code   *string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return res
	}
	if payload.Title != nil {
		res.Title = *payload.Title
	}
	if payload.Detail != nil {
		res.Detail = *payload.Detail
	}
	if payload.Code != nil {
		res.Code = *payload.Code
	}
	return res
}
