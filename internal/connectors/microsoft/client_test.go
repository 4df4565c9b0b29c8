package microsoft

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokenProvider returns a fixed token and counts calls.
type staticTokenProvider struct {
	token string
	err   error
	calls atomic.Int32
}

func (p *staticTokenProvider) GetToken(_ context.Context) (string, error) {
	p.calls.Add(1)
	return p.token, p.err
}

// sleepRecorder records requested waits without sleeping.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newTestClient(tp *staticTokenProvider, retry RetryConfig, rec *sleepRecorder) *Client {
	return NewClient(tp, retry,
		WithSleep(rec.sleep),
		WithJitter(func() float64 { return 0 }),
		WithRateLimiter(NewRateLimiterWithConfig(RateLimitConfig{})),
	)
}

func testRetryConfig() RetryConfig {
	return RetryConfig{
		RequestTimeout: 5 * time.Second,
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     4 * time.Second,
	}
}

func TestRequestJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "id", r.URL.Query().Get("$select"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"site-1","count":12345678901234}`))
	}))
	defer server.Close()

	tp := &staticTokenProvider{token: "tok"}
	rec := &sleepRecorder{}
	c := newTestClient(tp, testRetryConfig(), rec)

	payload, err := c.RequestJSON(context.Background(), http.MethodGet, server.URL+"/sites/x",
		url.Values{"$select": {"id"}})

	require.NoError(t, err)
	assert.Equal(t, "site-1", payload["id"])
	assert.Equal(t, json.Number("12345678901234"), payload["count"])
	assert.Empty(t, rec.waits)
	assert.Equal(t, int32(1), tp.calls.Load())
}

func TestRequestJSON_RetryAfterHonouredExactly(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 2 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"ok"}`))
	}))
	defer server.Close()

	tp := &staticTokenProvider{token: "tok"}
	rec := &sleepRecorder{}
	c := newTestClient(tp, testRetryConfig(), rec)

	payload, err := c.RequestJSON(context.Background(), http.MethodGet, server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", payload["id"])
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, rec.waits)
	assert.Equal(t, int32(3), tp.calls.Load(), "token is requested for every attempt")
}

func TestRequestJSON_FractionalRetryAfter(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.5")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	c := newTestClient(&staticTokenProvider{token: "tok"}, testRetryConfig(), rec)

	_, err := c.RequestJSON(context.Background(), http.MethodGet, server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, rec.waits)
}

func TestRequestJSON_ExponentialBackoffWithoutRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	c := newTestClient(&staticTokenProvider{token: "tok"}, testRetryConfig(), rec)

	_, err := c.RequestJSON(context.Background(), http.MethodGet, server.URL, nil)

	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, http.StatusInternalServerError, ge.StatusCode)
	assert.Equal(t, "boom", ge.BodyExcerpt)
	// 1s, 2s, then capped at 4s; the final attempt is not retried.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.waits)
}

func TestRequestJSON_JitterAddsUpToQuarter(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	c := NewClient(&staticTokenProvider{token: "tok"}, testRetryConfig(),
		WithSleep(rec.sleep),
		WithJitter(func() float64 { return 0.5 }),
		WithRateLimiter(NewRateLimiterWithConfig(RateLimitConfig{})),
	)

	_, err := c.RequestJSON(context.Background(), http.MethodGet, server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{1125 * time.Millisecond}, rec.waits)
}

func TestRequestJSON_NonRetryableFailsImmediately(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("request-id", "abc")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"accessDenied","message":"Either scp or roles claim need to be present"}}`))
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	c := newTestClient(&staticTokenProvider{token: "tok"}, testRetryConfig(), rec)

	_, err := c.RequestJSON(context.Background(), http.MethodGet, server.URL, nil)

	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "accessDenied", ge.Code)
	assert.Contains(t, err.Error(), "accessDenied - Either scp or roles claim need to be present")
	assert.Contains(t, err.Error(), "request_id=abc")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int32(1), hits.Load())
	assert.Empty(t, rec.waits)
}

func TestRequestJSON_TransportFailureExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	serverURL := server.URL
	server.Close()

	rec := &sleepRecorder{}
	retry := testRetryConfig()
	retry.MaxRetries = 2
	c := newTestClient(&staticTokenProvider{token: "tok"}, retry, rec)

	_, err := c.RequestJSON(context.Background(), http.MethodGet, serverURL, nil)

	var rfe *RequestFailedError
	require.ErrorAs(t, err, &rfe)
	assert.Equal(t, 3, rfe.Attempts)
	assert.Error(t, rfe.Err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
}

func TestRequestJSON_TokenFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	authErr := &AuthenticationError{Code: "invalid_client", Description: "bad secret"}
	tp := &staticTokenProvider{err: authErr}
	rec := &sleepRecorder{}
	c := newTestClient(tp, testRetryConfig(), rec)

	_, err := c.RequestJSON(context.Background(), http.MethodGet, server.URL, nil)

	var got *AuthenticationError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "invalid_client", got.Code)
	assert.Equal(t, int32(0), hits.Load())
	assert.Empty(t, rec.waits)
}

func TestRequestJSON_NonObjectBodyIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer server.Close()

	c := newTestClient(&staticTokenProvider{token: "tok"}, testRetryConfig(), &sleepRecorder{})

	_, err := c.RequestJSON(context.Background(), http.MethodGet, server.URL, nil)

	var me *MalformedResponseError
	require.ErrorAs(t, err, &me)
}

func TestRequestJSON_EmptyBodyIsEmptyObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(&staticTokenProvider{token: "tok"}, testRetryConfig(), &sleepRecorder{})

	payload, err := c.RequestJSON(context.Background(), http.MethodGet, server.URL, nil)

	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestRequestJSON_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(&staticTokenProvider{token: "tok"}, testRetryConfig(),
		WithSleep(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}),
		WithRateLimiter(NewRateLimiterWithConfig(RateLimitConfig{})),
	)

	_, err := c.RequestJSON(ctx, http.MethodGet, server.URL, nil)

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetrySleep_InvalidRetryAfterFallsBack(t *testing.T) {
	c := newTestClient(&staticTokenProvider{token: "tok"}, testRetryConfig(), &sleepRecorder{})

	for _, v := range []string{"soon", "-1", "Wed, 21 Oct 2015 07:28:00 GMT"} {
		resp := newResponse(http.StatusTooManyRequests, map[string]string{"Retry-After": v})
		assert.Equal(t, 2*time.Second, c.retrySleep(resp, 1), "Retry-After %q", v)
	}
}

func TestBackoff_CappedAtMax(t *testing.T) {
	c := newTestClient(&staticTokenProvider{token: "tok"}, testRetryConfig(), &sleepRecorder{})

	assert.Equal(t, time.Second, c.backoff(0))
	assert.Equal(t, 4*time.Second, c.backoff(2))
	assert.Equal(t, 4*time.Second, c.backoff(10))
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 60*time.Second, cfg.MaxBackoff)
}

func TestDefaultGraphBaseURL(t *testing.T) {
	assert.Equal(t, "https://graph.microsoft.com/v1.0", DefaultGraphBaseURL)
}
