package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/wonny/africa-covid/backend/pkg/config"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// Client is an HTTP client wrapper with retry, rate limiting and logging
// ⭐ SSOT: 모든 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
	limiter     *rate.Limiter
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// StatusError is returned for responses outside the 2xx range
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// New creates a new HTTP client from the ingestion config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Ingest.FetchTimeout,
		},
		logger: log.Module("httputil"),
		retryConfig: RetryConfig{
			MaxRetries:   cfg.Ingest.MaxRetries,
			InitialDelay: cfg.Ingest.RetryInitialDelay,
			MaxDelay:     cfg.Ingest.RetryMaxDelay,
			Enabled:      cfg.Ingest.MaxRetries > 0,
		},
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = 30 * time.Second
	}
	if cfg.Ingest.RateLimit > 0 {
		c.WithRateLimit(cfg.Ingest.RateLimit)
	}
	return c
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = maxRetries > 0
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimit caps outbound requests per second (burst 1)
func (c *Client) WithRateLimit(perSecond float64) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	return c
}

// GetBody performs a GET request and returns the full body of a 2xx response
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	startTime := time.Now()

	c.logger.WithField("url", url).Debug("HTTP request started")

	body, err := c.doWithRetry(ctx, url)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"url":      url,
			"duration": duration,
		}).Error("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"url":      url,
		"bytes":    len(body),
		"duration": duration,
	}).Debug("HTTP request completed")

	return body, nil
}

// doWithRetry executes the request with exponential backoff.
// Transport errors, 5xx and 429 are retried; other statuses fail immediately.
func (c *Client) doWithRetry(ctx context.Context, url string) ([]byte, error) {
	if !c.retryConfig.Enabled {
		return c.fetchOnce(ctx, url)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.retryConfig.InitialDelay
	if c.retryConfig.MaxDelay > 0 {
		expBackoff.MaxInterval = c.retryConfig.MaxDelay
	}

	attempt := 0
	return backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		body, err := c.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !IsRetryableError(statusErr.StatusCode) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(c.retryConfig.MaxRetries+1)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"delay":   delay,
				"url":     url,
				"error":   err.Error(),
			}).Warn("Retrying HTTP request")
		}),
	)
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create GET request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
