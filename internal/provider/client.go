package provider

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"faunadex/internal/errors"
	"faunadex/internal/httpclient"
)

// maxResponseBytes bounds how much of a provider response we read.
const maxResponseBytes = 4 << 20

// apiClient is the shared fetch helper for the concrete providers. It
// wraps the pooled HTTP client with per-provider rate limiting and maps
// HTTP outcomes onto error categories the retry layer understands.
type apiClient struct {
	http      *httpclient.Client
	limiter   *rate.Limiter
	component string
}

func newAPIClient(client *httpclient.Client, limiter *rate.Limiter, component string) *apiClient {
	return &apiClient{http: client, limiter: limiter, component: component}
}

// getBytes performs a rate-limited GET and returns the response body.
//
// Error classification drives the resilient layer:
//   - transport failures and timeouts carry conn_failure=true, which is
//     the only signal allowed to flip the connectivity gate
//   - any HTTP status carries status_code; 429 is CategoryLimit so the
//     retry policy can see it, 404 is CategoryNotFound (absence)
func (c *apiClient) getBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Newf("rate limiter wait canceled: %w", err).
				Category(errors.CategoryCancellation).
				Component(c.component).
				Build()
		}
	}

	resp, err := c.http.Get(ctx, rawURL)
	if err != nil {
		return nil, c.transportError(ctx, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Component(c.component).
			Context("url", sanitizeURL(rawURL)).
			Build()
	}
	return body, nil
}

func (c *apiClient) transportError(ctx context.Context, rawURL string, err error) error {
	category := errors.CategoryNetwork
	if ctx.Err() != nil || isTimeout(err) {
		category = errors.CategoryTimeout
	}
	return errors.Newf("request failed: %w", err).
		Category(category).
		Component(c.component).
		Context("url", sanitizeURL(rawURL)).
		Context("conn_failure", true).
		Build()
}

func (c *apiClient) statusError(rawURL string, status int) error {
	var category errors.ErrorCategory
	switch {
	case status == http.StatusNotFound:
		category = errors.CategoryNotFound
	case status == http.StatusTooManyRequests:
		category = errors.CategoryLimit
	default:
		category = errors.CategoryNetwork
	}
	return errors.Newf("unexpected status %d", status).
		Category(category).
		Component(c.component).
		Context("url", sanitizeURL(rawURL)).
		Context("status_code", status).
		Build()
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

// sanitizeURL strips query parameters from URLs before they reach error
// context and logs.
func sanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}

// StatusCode extracts the HTTP status an error carries, or 0.
func StatusCode(err error) int {
	var enhanced *errors.EnhancedError
	if !errors.As(err, &enhanced) {
		return 0
	}
	if code, ok := enhanced.GetContext()["status_code"].(int); ok {
		return code
	}
	return 0
}

// IsConnFailure reports whether an error represents a connection-level
// failure, as opposed to a well-formed HTTP error response.
func IsConnFailure(err error) bool {
	var enhanced *errors.EnhancedError
	if !errors.As(err, &enhanced) {
		return false
	}
	failed, ok := enhanced.GetContext()["conn_failure"].(bool)
	return ok && failed
}
