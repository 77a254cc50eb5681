package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hall-dev/halldev-go/internal/infrastructure/caching/stores"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
)

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToConsole: false,
		OutputToFile:    false,
	})
	require.NoError(t, err)
	return logger
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cache := stores.NewResponseStore(5*time.Minute, 50)
	return NewClient(Config{
		BaseURL:           baseURL,
		RequestTimeout:    5 * time.Second,
		MaxRetries:        3,
		RetryBaseDelay:    time.Millisecond,
		BackoffMultiplier: 2.0,
	}, cache, testLogger(t))
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":"x","title":"ok"}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)

	item, err := client.GetContent(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", item.Title)
	assert.Equal(t, int32(3), calls.Load(), "two failures then one success")
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"no such content"}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)

	_, err := client.GetContent(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "no such content", apiErr.Detail)
	assert.False(t, apiErr.IsRetryable())
	assert.Equal(t, int32(1), calls.Load(), "4xx never retries")
}

func TestRetriesExhaustedSurfacesLastError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail":"upstream down"}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)

	_, err := client.GetContent(context.Background(), "x")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.True(t, apiErr.IsRetryable())
	assert.Equal(t, int32(4), calls.Load(), "initial attempt plus three retries")
}

func TestConnectivityErrorIsTransport(t *testing.T) {
	client := testClient(t, "http://127.0.0.1:1") // nothing listens here

	_, err := client.GetContent(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsConnectivityError(err))
	assert.Equal(t, 0, StatusOf(err))
}

func TestGetResponsesAreCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"id":"1","title":"cached"}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)

	for i := 0; i < 3; i++ {
		item, err := client.GetContent(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, "cached", item.Title)
	}
	assert.Equal(t, int32(1), calls.Load(), "repeat GETs hit the cache")
}

func TestCacheExpiryRefetches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	cache := stores.NewResponseStore(10*time.Millisecond, 50)
	client := NewClient(Config{
		BaseURL:           srv.URL,
		RequestTimeout:    5 * time.Second,
		MaxRetries:        3,
		RetryBaseDelay:    time.Millisecond,
		BackoffMultiplier: 2.0,
	}, cache, testLogger(t))

	_, err := client.GetContent(context.Background(), "1")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = client.GetContent(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "expired entry refetches")
}

func TestPostIsNeverCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)

	for i := 0; i < 2; i++ {
		_, err := client.Suggest(context.Background(), SuggestRequest{Text: "go"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestSkipCacheBypassesStore(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"should_warn":false,"session_active":true}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)

	for i := 0; i < 2; i++ {
		status, err := client.CheckInactivity(context.Background(), "sess-1")
		require.NoError(t, err)
		assert.True(t, status.SessionActive)
	}
	assert.Equal(t, int32(2), calls.Load(), "inactivity polls always hit the network")
}

func TestContextCancellationAbortsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := stores.NewResponseStore(5*time.Minute, 50)
	client := NewClient(Config{
		BaseURL:           srv.URL,
		RequestTimeout:    5 * time.Second,
		MaxRetries:        3,
		RetryBaseDelay:    time.Hour, // cancellation must win, not the backoff
		BackoffMultiplier: 2.0,
	}, cache, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.GetContent(ctx, "x")
	require.Error(t, err)
	assert.True(t, IsConnectivityError(err))
	assert.Equal(t, int32(1), calls.Load())
}
