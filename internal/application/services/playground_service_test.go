package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hall-dev/halldev-go/internal/domain/entities/playground"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
	"github.com/hall-dev/halldev-go/internal/infrastructure/persistence/localstate"
)

type playgroundBackend struct {
	transcribeCount   atomic.Int32
	registerLeadCount atomic.Int32
	updateExportCount atomic.Int32
	summarizeCount    atomic.Int32
	transcribeFails   bool
	registerLeadFails bool
	summarizeFails    bool
}

func (b *playgroundBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/playground/transcribe", func(w http.ResponseWriter, r *http.Request) {
		b.transcribeCount.Add(1)
		if b.transcribeFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"video_id":   "abc123def45",
			"video_url":  "https://youtu.be/abc123def45",
			"title":      "Go concurrency patterns",
			"transcript": "goroutines channels goroutines select channels goroutines",
			"language":   "en",
			"duration":   120.0,
			"segments": []playground.Segment{
				{Text: "goroutines", Start: 0, Duration: 30, End: 30},
				{Text: "channels", Start: 30, Duration: 30, End: 60},
			},
		})
	})
	mux.HandleFunc("/playground/summarize", func(w http.ResponseWriter, r *http.Request) {
		b.summarizeCount.Add(1)
		if b.summarizeFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"summary":        "A talk about Go concurrency.",
			"key_points":     []string{"goroutines are cheap", "channels synchronize"},
			"keywords_found": []string{"goroutines"},
			"confidence":     0.85,
			"was_truncated":  false,
		})
	})
	mux.HandleFunc("/playground/register-lead", func(w http.ResponseWriter, r *http.Request) {
		b.registerLeadCount.Add(1)
		if b.registerLeadFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/playground/update-export", func(w http.ResponseWriter, r *http.Request) {
		b.updateExportCount.Add(1)
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newStateStore(t *testing.T) *localstate.Store {
	t.Helper()
	db, err := localstate.NewConnection("sqlite3", ":memory:", quietLogger(t))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return localstate.NewStore(db)
}

func newPlaygroundService(t *testing.T, baseURL string) *PlaygroundService {
	t.Helper()
	return NewPlaygroundService(newUpstream(t, baseURL), newStateStore(t), nil, quietLogger(t), performance.NewTracker(nil))
}

func TestTranscribeBlockedWithoutRegistration(t *testing.T) {
	backend := &playgroundBackend{}
	svc := newPlaygroundService(t, backend.server(t).URL)

	_, err := svc.Transcribe(context.Background(), "client-1", "https://youtu.be/abc123def45")
	require.ErrorIs(t, err, ErrRegistrationRequired)
	assert.Equal(t, int32(0), backend.transcribeCount.Load(), "gate fires before any network call")
}

func TestRegisterThenTranscribeOnce(t *testing.T) {
	backend := &playgroundBackend{}
	svc := newPlaygroundService(t, backend.server(t).URL)

	_, err := svc.Register(context.Background(), "client-1", "Ana", "ana@x.com", "")
	require.NoError(t, err)

	result, err := svc.Transcribe(context.Background(), "client-1", "https://youtu.be/abc123def45")
	require.NoError(t, err)

	assert.Equal(t, "abc123def45", result.VideoID)
	assert.NotEmpty(t, result.Transcript)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, int32(1), backend.transcribeCount.Load())
	assert.Equal(t, int32(1), backend.registerLeadCount.Load(), "register-lead follows transcription")
}

func TestRegisterLeadFailureIsSwallowed(t *testing.T) {
	backend := &playgroundBackend{registerLeadFails: true}
	svc := newPlaygroundService(t, backend.server(t).URL)

	_, err := svc.Register(context.Background(), "client-1", "Ana", "ana@x.com", "")
	require.NoError(t, err)

	_, err = svc.Transcribe(context.Background(), "client-1", "https://youtu.be/abc123def45")
	require.NoError(t, err, "analytics failure never fails the transcription")
}

func TestRegistrationPersistsAcrossServiceInstances(t *testing.T) {
	backend := &playgroundBackend{}
	srv := backend.server(t)
	store := newStateStore(t)

	first := NewPlaygroundService(newUpstream(t, srv.URL), store, nil, quietLogger(t), performance.NewTracker(nil))
	_, err := first.Register(context.Background(), "client-1", "Ana", "ana@x.com", "Acme")
	require.NoError(t, err)

	second := NewPlaygroundService(newUpstream(t, srv.URL), store, nil, quietLogger(t), performance.NewTracker(nil))
	reg := second.Registration(context.Background(), "client-1")
	require.NotNil(t, reg, "returning visitors skip the gate")
	assert.Equal(t, "ana@x.com", reg.Email)
}

func TestTranscribeFailureClearsState(t *testing.T) {
	backend := &playgroundBackend{}
	svc := newPlaygroundService(t, backend.server(t).URL)

	_, err := svc.Register(context.Background(), "client-1", "Ana", "ana@x.com", "")
	require.NoError(t, err)

	_, err = svc.Transcribe(context.Background(), "client-1", "https://youtu.be/abc123def45")
	require.NoError(t, err)

	backend.transcribeFails = true
	_, err = svc.Transcribe(context.Background(), "client-1", "https://youtu.be/zzz999zzz99")
	require.Error(t, err)

	transcription, summary := svc.Current("client-1")
	assert.Nil(t, transcription, "failed transcription leaves no stale video state")
	assert.Nil(t, summary)
}

func TestInvalidVideoURLRejected(t *testing.T) {
	backend := &playgroundBackend{}
	svc := newPlaygroundService(t, backend.server(t).URL)

	_, err := svc.Register(context.Background(), "client-1", "Ana", "ana@x.com", "")
	require.NoError(t, err)

	_, err = svc.Transcribe(context.Background(), "client-1", "not a video url")
	require.ErrorIs(t, err, ErrInvalidVideoURL)
	assert.Equal(t, int32(0), backend.transcribeCount.Load())
}

func TestSummarizeRequiresTranscript(t *testing.T) {
	backend := &playgroundBackend{}
	svc := newPlaygroundService(t, backend.server(t).URL)

	_, err := svc.Summarize(context.Background(), "client-1", "", nil)
	require.ErrorIs(t, err, ErrNoTranscript)
	assert.Equal(t, int32(0), backend.summarizeCount.Load())
}

func TestSummarizeStoresResult(t *testing.T) {
	backend := &playgroundBackend{}
	svc := newPlaygroundService(t, backend.server(t).URL)

	_, err := svc.Register(context.Background(), "client-1", "Ana", "ana@x.com", "")
	require.NoError(t, err)
	_, err = svc.Transcribe(context.Background(), "client-1", "https://youtu.be/abc123def45")
	require.NoError(t, err)

	summary, err := svc.Summarize(context.Background(), "client-1", "focus on concurrency", []string{"goroutines"})
	require.NoError(t, err)

	assert.Equal(t, "A talk about Go concurrency.", summary.Text)
	assert.Len(t, summary.KeyPoints, 2)
	assert.InDelta(t, 0.85, summary.Confidence, 0.001)
	assert.False(t, summary.WasTruncated)

	_, stored := svc.Current("client-1")
	require.NotNil(t, stored)
}

func TestSegmentLookupIsDefensive(t *testing.T) {
	backend := &playgroundBackend{}
	svc := newPlaygroundService(t, backend.server(t).URL)

	// No transcript at all.
	assert.Equal(t, playground.Segment{}, svc.SegmentAt("client-1", 10))

	_, err := svc.Register(context.Background(), "client-1", "Ana", "ana@x.com", "")
	require.NoError(t, err)
	_, err = svc.Transcribe(context.Background(), "client-1", "https://youtu.be/abc123def45")
	require.NoError(t, err)

	seg := svc.SegmentAt("client-1", 45)
	assert.Equal(t, "channels", seg.Text)

	// Offset beyond every segment.
	assert.Equal(t, playground.Segment{}, svc.SegmentAt("client-1", 999))
}

func TestExportFormatsAndRegistersAnalytics(t *testing.T) {
	backend := &playgroundBackend{}
	svc := newPlaygroundService(t, backend.server(t).URL)

	_, err := svc.Register(context.Background(), "client-1", "Ana", "ana@x.com", "")
	require.NoError(t, err)
	_, err = svc.Transcribe(context.Background(), "client-1", "https://youtu.be/abc123def45")
	require.NoError(t, err)
	_, err = svc.Summarize(context.Background(), "client-1", "", nil)
	require.NoError(t, err)

	text, err := svc.Export(context.Background(), "client-1", "txt")
	require.NoError(t, err)

	assert.Contains(t, text, "Go concurrency patterns")
	assert.Contains(t, text, "A talk about Go concurrency.")
	assert.Contains(t, text, "goroutines channels")
	assert.Equal(t, int32(1), backend.updateExportCount.Load())
}

func TestKeywordSuggestionsRankByFrequency(t *testing.T) {
	backend := &playgroundBackend{}
	svc := newPlaygroundService(t, backend.server(t).URL)

	_, err := svc.Register(context.Background(), "client-1", "Ana", "ana@x.com", "")
	require.NoError(t, err)
	_, err = svc.Transcribe(context.Background(), "client-1", "https://youtu.be/abc123def45")
	require.NoError(t, err)

	suggestions := svc.KeywordSuggestions("client-1", 2)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "goroutines", suggestions[0])
	assert.Equal(t, "channels", suggestions[1])
}

func TestVideoIDExtractionPatterns(t *testing.T) {
	cases := map[string]string{
		"https://youtube.com/watch?v=abc123def45":        "abc123def45",
		"https://youtu.be/abc123def45":                   "abc123def45",
		"https://youtube.com/embed/abc123def45":          "abc123def45",
		"https://youtube.com/watch?list=x&v=abc123def45": "abc123def45",
		"abc123def45":                             "abc123def45",
		"not a video url":                         "",
		"https://example.com/watch?v=abc123def45": "",
	}
	for input, want := range cases {
		assert.Equal(t, want, playground.ExtractVideoID(input), "input: %s", input)
	}
}
