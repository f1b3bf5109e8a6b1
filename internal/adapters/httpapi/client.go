// Package httpapi is the shared HTTP client for the external data
// providers. It adds the behavior every provider needs: static auth
// headers, retry with exponential backoff, and a per-client minimum
// delay between requests.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/port"
)

const (
	maxAttempts    = 3
	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
)

// Config configures one provider client.
type Config struct {
	BaseURL string
	Headers map[string]string
	Timeout time.Duration
	// RateLimitDelay is the minimum gap between consecutive requests
	// through this client.
	RateLimitDelay time.Duration
}

// Client is a rate-limited, retrying HTTP client bound to one provider.
type Client struct {
	baseURL    string
	headers    map[string]string
	rateDelay  time.Duration
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("httpapi: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		headers:    cfg.Headers,
		rateDelay:  cfg.RateLimitDelay,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// GetJSON fetches path and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v interface{}) error {
	body, status, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("httpapi: GET %s returned status %d", path, status)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpapi: failed to decode response from %s: %w", path, err)
	}
	return nil
}

// GetBytes fetches path and returns the raw body with the status code.
// Non-2xx statuses are returned to the caller, not turned into errors:
// tile providers use 404 to mean "outside coverage".
func (c *Client) GetBytes(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	return c.get(ctx, path, query)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	logger := contextkeys.LoggerFromContext(ctx)

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.waitRateLimit(ctx); err != nil {
			return nil, 0, err
		}

		body, status, err := c.doRequest(ctx, requestURL)
		if err == nil && status < http.StatusInternalServerError {
			return body, status, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("httpapi: GET %s returned status %d", path, status)
		}
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		if attempt == maxAttempts {
			break
		}

		logger.Warn("Provider request failed, retrying", port.Fields{
			"url":     requestURL,
			"attempt": attempt,
			"error":   lastErr.Error(),
		})

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, 0, ctx.Err()
		case <-timer.C:
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return nil, 0, lastErr
}

func (c *Client) doRequest(ctx context.Context, requestURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("httpapi: failed to build request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("httpapi: request to %s failed: %w", requestURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("httpapi: failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) waitRateLimit(ctx context.Context) error {
	if c.rateDelay <= 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	next := c.lastRequest.Add(c.rateDelay)
	if next.Before(now) {
		next = now
	}
	wait := next.Sub(now)
	c.lastRequest = next
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
