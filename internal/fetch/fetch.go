package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// ── HTTP Fetcher ───────────────────────────────────────────
// Wraps GET-with-retry around the source API. Transient failures
// (transport errors, non-2xx responses) are retried with growing
// backoff; once attempts are exhausted the last error is returned.
// Failure is always an error value — this package never panics
// past its own boundary.

// Client issues GET requests and decodes JSON responses.
type Client struct {
	http *resty.Client
}

// New creates a Client. timeout bounds a single attempt; maxAttempts is
// the total number of attempts (so retries = maxAttempts - 1).
func New(timeout time.Duration, maxAttempts int) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	c := resty.New()
	c.SetTimeout(timeout)
	c.SetRetryCount(maxAttempts - 1)
	c.SetRetryWaitTime(1 * time.Second)
	c.SetRetryMaxWaitTime(10 * time.Second)
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || !r.IsSuccess()
	})
	c.AddRetryHook(func(r *resty.Response, err error) {
		if err != nil {
			log.Printf("fetch: retrying %s: %v", r.Request.URL, err)
			return
		}
		log.Printf("fetch: retrying %s: http %d", r.Request.URL, r.StatusCode())
	})

	return &Client{http: c}
}

// GetJSON fetches url and returns the decoded JSON value. The response
// may be an array, an object, or any other JSON value — callers decide
// what shape they expect.
func (c *Client) GetJSON(ctx context.Context, url string) (any, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("get %s: http %d", url, resp.StatusCode())
	}

	var v any
	if err := json.Unmarshal(resp.Body(), &v); err != nil {
		return nil, fmt.Errorf("parse json from %s: %w", url, err)
	}
	return v, nil
}
