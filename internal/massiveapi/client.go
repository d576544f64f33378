// Package massiveapi is the delayed-feed (SIP) REST client: snapshot,
// grouped daily, aggregates/bars, reference news, reference financials and
// market status. Grounded on cloudmanic-massive's internal/api package —
// same base-URL/apiKey/httpClient shape and the same "get" helper, extended
// with context and error-kind classification (spec §6, §7).
package massiveapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/wavepilot/ingest/internal/config"
	"github.com/wavepilot/ingest/internal/ingesterr"
)

// requestsPerSecond caps outbound REST calls to every scheduler job sharing
// one Client (spec §4.4's per-ticker sleeps keep individual jobs polite,
// but only this limiter bounds the aggregate across jobs running
// concurrently).
const requestsPerSecond = 5

// rateLimitBackoff is the wait before the single retry on HTTP 429 (spec
// §4.4, §7: "on HTTP 429, back off 60s and retry the same request once;
// on second 429 surface as TRANSIENT").
const rateLimitBackoff = 60 * time.Second

// Client is the HTTP client for the delayed-feed vendor REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	// rateLimitBackoff overrides the package default so tests don't block
	// for a full minute; zero-value Client falls back to the real delay.
	rateLimitBackoff time.Duration
}

// NewClient builds a Client against baseURL, authenticating with apiKey.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		limiter:          rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		rateLimitBackoff: rateLimitBackoff,
	}
}

// get performs an authenticated GET to path with params, decoding the JSON
// response into result. Errors are classified per spec §7. A first HTTP 429
// is retried once after a backoff; a second 429 surfaces as TRANSIENT.
func (c *Client) get(ctx context.Context, path string, params map[string]string, result interface{}) error {
	body, err := c.getOnce(ctx, path, params)
	if err != nil {
		if ingesterr.Is(err, ingesterr.KindRateLimit) {
			if sleepErr := c.sleepBackoff(ctx); sleepErr != nil {
				return sleepErr
			}
			body, err = c.getOnce(ctx, path, params)
			if err != nil {
				if ingesterr.Is(err, ingesterr.KindRateLimit) {
					return ingesterr.Transient(fmt.Errorf("rate limited twice: %w", err))
				}
				return err
			}
		} else {
			return err
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// sleepBackoff waits out the rate-limit backoff unless ctx is cancelled
// first.
func (c *Client) sleepBackoff(ctx context.Context) error {
	d := c.rateLimitBackoff
	if d <= 0 {
		d = rateLimitBackoff
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// getOnce performs a single authenticated GET, returning the raw response
// body on success or a classified error (spec §7).
func (c *Client) getOnce(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	q := u.Query()
	q.Set("apiKey", c.apiKey)
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ingesterr.Transient(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ingesterr.Transient(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ingesterr.RateLimit(fmt.Errorf("rate limited: %s", body))
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return nil, ingesterr.NotAvailable(fmt.Errorf("not available (status %d): %s", resp.StatusCode, body))
	case resp.StatusCode >= 500:
		return nil, ingesterr.Transient(fmt.Errorf("upstream error (status %d): %s", resp.StatusCode, body))
	default:
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}
}
