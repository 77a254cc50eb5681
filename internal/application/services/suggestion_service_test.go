package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suggestBackend(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode([]map[string]string{
			{"id": "1", "title": "match for " + req["text"]},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSuggestWaitsOutDebounce(t *testing.T) {
	var calls atomic.Int32
	srv := suggestBackend(t, &calls)
	svc := NewSuggestionService(newUpstream(t, srv.URL), 30*time.Millisecond, quietLogger(t))

	start := time.Now()
	suggestions, err := svc.Suggest(context.Background(), "client-1", "golang")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "match for golang", suggestions[0].Title)
}

func TestNewerRequestSupersedesOlder(t *testing.T) {
	var calls atomic.Int32
	srv := suggestBackend(t, &calls)
	svc := NewSuggestionService(newUpstream(t, srv.URL), 50*time.Millisecond, quietLogger(t))

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = svc.Suggest(context.Background(), "client-1", "gol")
	}()

	time.Sleep(10 * time.Millisecond) // first request is inside its debounce window
	suggestions, err := svc.Suggest(context.Background(), "client-1", "golang")
	require.NoError(t, err)
	wg.Wait()

	assert.ErrorIs(t, firstErr, ErrSuperseded)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "match for golang", suggestions[0].Title)
	assert.Equal(t, int32(1), calls.Load(), "the superseded request never reaches the network")
}

func TestDifferentClientsDoNotSupersedeEachOther(t *testing.T) {
	var calls atomic.Int32
	srv := suggestBackend(t, &calls)
	svc := NewSuggestionService(newUpstream(t, srv.URL), 10*time.Millisecond, quietLogger(t))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, client := range []string{"client-1", "client-2"} {
		wg.Add(1)
		go func(i int, client string) {
			defer wg.Done()
			_, errs[i] = svc.Suggest(context.Background(), client, "golang")
		}(i, client)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmptyTextShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := suggestBackend(t, &calls)
	svc := NewSuggestionService(newUpstream(t, srv.URL), time.Millisecond, quietLogger(t))

	suggestions, err := svc.Suggest(context.Background(), "client-1", "")
	require.NoError(t, err)
	assert.Nil(t, suggestions)
	assert.Equal(t, int32(0), calls.Load())
}
