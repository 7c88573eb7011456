package docstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"cprfeed/internal"
	"cprfeed/internal/errors"
)

const userAgent = "cprfeed/1.0"

// Config holds document store client settings
type Config struct {
	Timeout time.Duration
	// MaxBodyBytes caps how much of a response body is read
	MaxBodyBytes int64
	Headers      map[string]string
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		Timeout:      60 * time.Second,
		MaxBodyBytes: 128 << 20,
	}
}

// Client fetches documents over HTTP
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *internal.Logger
}

// NewClient creates a document store client
func NewClient(config Config, logger *internal.Logger) *Client {
	return NewClientWithHTTP(config, &http.Client{Timeout: config.Timeout}, logger)
}

// NewClientWithHTTP creates a client around an existing http.Client
func NewClientWithHTTP(config Config, httpClient *http.Client, logger *internal.Logger) *Client {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger.WithComponent("DocStore"),
	}
}

// Get issues a GET and returns the body of a 2xx response.
// Transport failures and error statuses are UPSTREAM_UNAVAILABLE.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := c.buildRequest(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request for %s", url)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("GET %s failed after %s: %v", url, time.Since(startTime), err)
		return nil, errors.UpstreamUnavailable(fmt.Sprintf("GET %s failed", url), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		c.logger.Warn("GET %s returned status %d", url, resp.StatusCode)
		return nil, errors.UpstreamUnavailable(
			fmt.Sprintf("GET %s returned status %d", url, resp.StatusCode),
			fmt.Errorf("response body: %s", snippet),
		)
	}

	c.logger.Debug("GET %s -> %d in %s", url, resp.StatusCode, time.Since(startTime))
	if resp.ContentLength > c.config.MaxBodyBytes {
		resp.Body.Close()
		c.logger.Warn("GET %s declared %d bytes, over the %d byte limit", url, resp.ContentLength, c.config.MaxBodyBytes)
		return nil, tooLarge(url, c.config.MaxBodyBytes)
	}

	return &limitedBody{
		reader: io.LimitReader(resp.Body, c.config.MaxBodyBytes+1),
		closer: resp.Body,
		url:    url,
		limit:  c.config.MaxBodyBytes,
	}, nil
}

func tooLarge(url string, limit int64) error {
	return errors.UpstreamUnavailable(fmt.Sprintf("upstream document too large: %s exceeds %d bytes", url, limit), nil)
}

// buildRequest creates a GET request with the configured headers
func (c *Client) buildRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// limitedBody reads at most limit bytes and fails once the body goes past it
type limitedBody struct {
	reader io.Reader
	closer io.Closer
	url    string
	limit  int64
	read   int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.read > b.limit {
		return 0, tooLarge(b.url, b.limit)
	}
	n, err := b.reader.Read(p)
	b.read += int64(n)
	if b.read > b.limit {
		return n - int(b.read-b.limit), tooLarge(b.url, b.limit)
	}
	return n, err
}

func (b *limitedBody) Close() error {
	return b.closer.Close()
}
