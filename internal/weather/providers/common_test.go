package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func statusServer(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(hits.Add(1)) - 1
		code := codes[len(codes)-1]
		if n < len(codes) {
			code = codes[n]
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func get(url string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

func TestResilienceRetriesServerErrors(t *testing.T) {
	srv, hits := statusServer(t, 500, 503, 200)
	cfg := HTTPClientConfig{Client: srv.Client(), Backoff: fastBackoff}

	resp, err := doRequestWithResilience(context.Background(), cfg, newBreaker("test"), get(srv.URL))
	require.NoError(t, err)
	resp.Body.Close()

	assert.EqualValues(t, 3, hits.Load())
}

func TestResilienceGivesUpAfterMaxRetries(t *testing.T) {
	srv, hits := statusServer(t, 429)
	cfg := HTTPClientConfig{Client: srv.Client(), Backoff: fastBackoff}

	_, err := doRequestWithResilience(context.Background(), cfg, newBreaker("test"), get(srv.URL))
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.ErrorIs(t, err, errRateLimited)
	assert.EqualValues(t, 3, hits.Load())
}

func TestResilienceDoesNotRetryClientErrors(t *testing.T) {
	srv, hits := statusServer(t, 404)
	cfg := HTTPClientConfig{Client: srv.Client(), Backoff: fastBackoff}

	_, err := doRequestWithResilience(context.Background(), cfg, newBreaker("test"), get(srv.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnexpected)
	assert.EqualValues(t, 1, hits.Load())
}

func TestResilienceConfigErrors(t *testing.T) {
	_, err := doRequestWithResilience(context.Background(), HTTPClientConfig{Backoff: fastBackoff}, newBreaker("test"), get("http://example.invalid"))
	assert.ErrorIs(t, err, errNoHTTPClient)

	_, err = doRequestWithResilience(context.Background(), HTTPClientConfig{Client: http.DefaultClient}, newBreaker("test"), get("http://example.invalid"))
	assert.ErrorIs(t, err, errInvalidConfig)
}

func TestResilienceHonoursCancellation(t *testing.T) {
	srv, _ := statusServer(t, 200)
	cfg := HTTPClientConfig{Client: srv.Client(), Backoff: fastBackoff}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := doRequestWithResilience(ctx, cfg, newBreaker("test"), get(srv.URL))
	assert.ErrorIs(t, err, context.Canceled)
}
