package microsoft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driven"
	"github.com/vinhhap/airbyte-custom-connectors/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.GraphRequester = (*Client)(nil)

// DefaultGraphBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

const userAgent = "airbyte-custom-connectors/source-microsoft-excel-online"

// RetryConfig controls the retry and backoff behaviour of a Client.
type RetryConfig struct {
	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		RequestTimeout: 60 * time.Second,
		MaxRetries:     5,
		InitialBackoff: time.Second,
		MaxBackoff:     60 * time.Second,
	}
}

// Client issues authenticated Graph requests with retries and error normalisation.
// A single http.Client is shared across attempts so connections are pooled.
type Client struct {
	httpClient    *http.Client
	tokenProvider driven.TokenProvider
	rateLimiter   *RateLimiter
	retry         RetryConfig

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter replaces the default request pacing.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *Client) { c.rateLimiter = rl }
}

// WithSleep replaces the backoff sleep, e.g. to record waits in tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithJitter replaces the jitter source, which must return values in [0, 1).
func WithJitter(fn func() float64) Option {
	return func(c *Client) { c.jitter = fn }
}

// NewClient creates a Graph client that authenticates with tokenProvider.
func NewClient(tokenProvider driven.TokenProvider, retry RetryConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: retry.RequestTimeout},
		tokenProvider: tokenProvider,
		rateLimiter:   NewRateLimiter(ServiceExcel),
		retry:         retry,
		sleep:         sleepContext,
		jitter:        rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestJSON performs a request and decodes the JSON object in the response.
//
// Transport failures and 429/5xx responses are retried up to MaxRetries times.
// Any other status >= 400 fails immediately with a *GraphError. When transport
// retries are exhausted the last error is wrapped in a *RequestFailedError.
func (c *Client) RequestJSON(
	ctx context.Context, method, rawURL string, params url.Values,
) (map[string]any, error) {
	fullURL := rawURL
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := c.newRequest(ctx, method, fullURL)
		if err != nil {
			return nil, err
		}

		attempts++
		resp, body, err := c.send(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			lastErr = err
			if attempt >= c.retry.MaxRetries {
				break
			}
			wait := c.backoff(attempt)
			logger.Warn("microsoft: graph request failed (%v), retrying in %.1fs", err, wait.Seconds())
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 400 {
			return decodeObject(body, rawURL)
		}

		if IsRetryable(resp.StatusCode) && attempt < c.retry.MaxRetries {
			wait := c.retrySleep(resp, attempt)
			logger.Warn("microsoft: graph API %d for %s, retrying in %.1fs", resp.StatusCode, rawURL, wait.Seconds())
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		return nil, NewGraphError(resp, body, rawURL)
	}

	return nil, &RequestFailedError{URL: rawURL, Attempts: attempts, Err: lastErr}
}

// newRequest builds an authenticated request. A fresh token is requested for
// every attempt.
func (c *Client) newRequest(ctx context.Context, method, fullURL string) (*http.Request, error) {
	token, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// send performs a single attempt and reads the full body.
func (c *Client) send(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, body, nil
}

// backoff returns min(MaxBackoff, InitialBackoff * 2^attempt).
func (c *Client) backoff(attempt int) time.Duration {
	base := float64(c.retry.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(c.retry.MaxBackoff) {
		base = float64(c.retry.MaxBackoff)
	}
	return time.Duration(base)
}

// retrySleep honours a non-negative numeric Retry-After header exactly;
// otherwise it uses exponential backoff plus up to 25% jitter.
func (c *Client) retrySleep(resp *http.Response, attempt int) time.Duration {
	if v := strings.TrimSpace(resp.Header.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 && !math.IsInf(secs, 0) {
			return time.Duration(secs * float64(time.Second))
		}
	}

	base := c.backoff(attempt)
	return base + time.Duration(c.jitter()*0.25*float64(base))
}

func decodeObject(body []byte, rawURL string) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, &MalformedResponseError{URL: rawURL, Reason: "body is not a JSON object", Err: err}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
