// Package httpclient is a timeout-bounded, rate-limited JSON client for upstream APIs.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// Config configures a Client
type Config struct {
	Timeout    time.Duration // per request
	RateLimit  int           // requests per minute, 0 = unlimited
	MaxRetries int           // transport-level retries, usually 0 when the caller has its own policy
	UserAgent  string
}

// Client issues JSON requests against a single upstream provider
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// New creates a new Client
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(float64(cfg.RateLimit) / 60)
	}
	limiter := rate.NewLimiter(limit, 1)

	restyClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
			limiterCtx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
			defer cancel()

			if err := limiter.Wait(limiterCtx); err != nil {
				logger.Warn("Rate limiter wait failed", zap.Error(err))
				return err
			}
			if cfg.UserAgent != "" {
				r.SetHeader("User-Agent", cfg.UserAgent)
			}
			logger.Debug("Outgoing request", zap.String("url", r.URL))
			return nil
		}).
		AddResponseMiddleware(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				logger.Warn("HTTP request failed",
					zap.Int("status", resp.StatusCode()),
					zap.String("url", resp.Request.URL),
				)
			}
			return nil
		})

	return &Client{
		client:  restyClient,
		logger:  logger,
		limiter: limiter,
	}
}

// Close releases idle connections
func (c *Client) Close() error {
	return c.client.Close()
}

// GetJSON issues a GET and decodes a JSON body into out
func (c *Client) GetJSON(ctx context.Context, url string, query map[string]string, headers map[string]string, out interface{}) error {
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out)

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(url)
	if err != nil {
		c.logger.Debug("HTTP GET request failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("GET %s: %w", url, err)
	}

	if resp.StatusCode() >= 400 {
		return &HTTPError{StatusCode: resp.StatusCode(), URL: url, Body: truncate(resp.String(), 256)}
	}

	return nil
}

// PostJSON issues a POST with a JSON body and decodes a JSON response into out
func (c *Client) PostJSON(ctx context.Context, url string, body interface{}, headers map[string]string, out interface{}) error {
	req := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out)

	if headers != nil {
		req.SetHeaders(headers)
	}
	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Post(url)
	if err != nil {
		c.logger.Debug("HTTP POST request failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("POST %s: %w", url, err)
	}

	if resp.StatusCode() >= 400 {
		return &HTTPError{StatusCode: resp.StatusCode(), URL: url, Body: truncate(resp.String(), 256)}
	}

	return nil
}

// HTTPError is returned for 4xx/5xx responses
type HTTPError struct {
	StatusCode int    `json:"statusCode"`
	URL        string `json:"url"`
	Body       string `json:"body,omitempty"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsTimeout reports whether err is a deadline or network timeout, as opposed to an answered request
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsRateLimited reports whether the upstream answered 429
func IsRateLimited(err error) bool {
	return StatusCode(err) == 429
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
