package papersources

import (
	"net/http"
	"time"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// MinInterval is the minimum spacing between requests.
	MinInterval time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key").
	APIKeyHeader string
}

// HTTPClient wraps http.Client with a fixed-interval gate and common
// headers. It is safe for concurrent use.
//
// The client deliberately does not retry: a failed query is absorbed by the
// pipeline as "zero candidates", and retrying against an undocumented rate
// limit would multiply per-request latency for little gain.
type HTTPClient struct {
	client *http.Client
	gate   *Gate
	config HTTPClientConfig
}

// NewHTTPClient creates a new gated HTTP client.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Nexus-Research-App/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		gate:   NewGate(cfg.MinInterval),
		config: cfg,
	}
}

// Do executes an HTTP request after waiting on the gate. It sets the
// User-Agent and optional API key headers before sending.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.gate.Wait(req.Context()); err != nil {
		return nil, err
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	return c.client.Do(req)
}
