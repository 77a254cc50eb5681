package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hall-dev/halldev-go/internal/infrastructure/caching/stores"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
)

// Client talks to the assistant backend with retry and GET caching
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *stores.ResponseStore
	logger     *logging.ChanneledLogger

	maxRetries        int
	retryBaseDelay    time.Duration
	backoffMultiplier float64
}

// Config carries the client's tunables
type Config struct {
	BaseURL           string
	RequestTimeout    time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration
	BackoffMultiplier float64
}

// NewClient creates an upstream client. The cache store is injected so
// its lifecycle is owned by the container, not this package.
func NewClient(cfg Config, cache *stores.ResponseStore, logger *logging.ChanneledLogger) *Client {
	return &Client{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:        &http.Client{Timeout: cfg.RequestTimeout},
		cache:             cache,
		logger:            logger,
		maxRetries:        cfg.MaxRetries,
		retryBaseDelay:    cfg.RetryBaseDelay,
		backoffMultiplier: cfg.BackoffMultiplier,
	}
}

// requestOptions alter a single request
type requestOptions struct {
	skipCache bool
}

// Option configures one request
type Option func(*requestOptions)

// SkipCache bypasses the GET response cache for this request
func SkipCache() Option {
	return func(o *requestOptions) { o.skipCache = true }
}

// doJSON performs a request with retry and decodes the JSON response
// into out. GET responses are served from and written to the cache.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any, opts ...Option) error {
	options := &requestOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	url := c.baseURL + path
	cacheKey := c.buildCacheKey(method, url, payload)
	cacheable := method == http.MethodGet && !options.skipCache

	if cacheable {
		start := time.Now()
		if entry, ok := c.cache.Get(cacheKey); ok {
			c.logger.LogCacheOperation("response_get", cacheKey, true, time.Since(start))
			return decodeBody(entry.Body, out)
		}
		c.logger.LogCacheOperation("response_get", cacheKey, false, time.Since(start))
	}

	status, respBody, err := c.doWithRetry(ctx, method, url, payload)
	if err != nil {
		return err
	}

	if status >= 400 {
		return &APIError{Status: status, Detail: extractDetail(respBody)}
	}

	if cacheable {
		c.cache.Set(cacheKey, status, respBody)
	}

	return decodeBody(respBody, out)
}

// doWithRetry runs the request loop: retry on transport errors and on
// status >= 500, return immediately on any 4xx, back off exponentially
// between attempts.
func (c *Client) doWithRetry(ctx context.Context, method, url string, payload []byte) (int, []byte, error) {
	var lastErr error
	start := time.Now()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.retryBaseDelay) * math.Pow(c.backoffMultiplier, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return 0, nil, &TransportError{Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to build request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = &TransportError{Err: err}
			c.logger.LogUpstreamCall(method, url, 0, attempt+1, time.Since(start), lastErr)
			if ctx.Err() != nil {
				return 0, nil, lastErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &TransportError{Err: readErr}
			continue
		}

		// Client errors are final. Server errors are worth another try.
		if resp.StatusCode >= 500 {
			lastErr = &APIError{Status: resp.StatusCode, Detail: extractDetail(respBody)}
			c.logger.LogUpstreamCall(method, url, resp.StatusCode, attempt+1, time.Since(start), lastErr)
			continue
		}

		c.logger.LogUpstreamCall(method, url, resp.StatusCode, attempt+1, time.Since(start), nil)
		return resp.StatusCode, respBody, nil
	}

	return 0, nil, lastErr
}

// buildCacheKey derives the cache key from the full request shape
func (c *Client) buildCacheKey(method, url string, payload []byte) string {
	if len(payload) == 0 {
		return method + ":" + url
	}
	return method + ":" + url + ":" + string(payload)
}

// InvalidateGet drops the cached response for a GET path so the next
// load refetches
func (c *Client) InvalidateGet(path string) {
	url := c.baseURL + path
	c.cache.Invalidate(http.MethodGet + ":" + url)
}

func decodeBody(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}

// extractDetail pulls the conventional detail/message field out of an
// error response body
func extractDetail(body []byte) string {
	var envelope struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return strings.TrimSpace(string(body))
	}
	if envelope.Detail != "" {
		return envelope.Detail
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error
}
