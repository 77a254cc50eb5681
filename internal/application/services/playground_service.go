package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hall-dev/halldev-go/internal/domain/entities/playground"
	"github.com/hall-dev/halldev-go/internal/infrastructure/aai"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
	"github.com/hall-dev/halldev-go/internal/infrastructure/persistence/localstate"
	"github.com/hall-dev/halldev-go/internal/infrastructure/security"
	"github.com/hall-dev/halldev-go/internal/infrastructure/upstream"
)

// ErrRegistrationRequired signals that the registration gate must be
// passed before transcription
var ErrRegistrationRequired = errors.New("registration required before transcription")

// ErrNoTranscript signals a summarize call without a transcript present
var ErrNoTranscript = errors.New("no transcript available to summarize")

// ErrInvalidVideoURL signals an input no pattern recognizes
var ErrInvalidVideoURL = errors.New("could not extract a video id from the input")

// playgroundState is one client's playground session
type playgroundState struct {
	mu             sync.Mutex
	registration   *playground.Registration
	transcription  *playground.Transcription
	summary        *playground.Summary
	leadRegistered map[string]bool // video id -> activity already registered
}

// PlaygroundService orchestrates the transcription and summarization
// workflow behind the registration gate
type PlaygroundService struct {
	states map[string]*playgroundState
	mu     sync.Mutex

	client     *upstream.Client
	store      *localstate.Store
	summarizer *aai.Summarizer // nil when no fallback is configured
	logger     *logging.ChanneledLogger
	perf       *performance.Tracker
}

// NewPlaygroundService creates the playground service
func NewPlaygroundService(client *upstream.Client, store *localstate.Store, summarizer *aai.Summarizer, logger *logging.ChanneledLogger, perf *performance.Tracker) *PlaygroundService {
	return &PlaygroundService{
		states:     make(map[string]*playgroundState),
		client:     client,
		store:      store,
		summarizer: summarizer,
		logger:     logger,
		perf:       perf,
	}
}

func (s *PlaygroundService) state(clientID string) *playgroundState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[clientID]
	if !ok {
		st = &playgroundState{leadRegistered: make(map[string]bool)}
		s.states[clientID] = st
	}
	return st
}

// Registration returns the client's registration, consulting the state
// store so returning visitors skip the gate
func (s *PlaygroundService) Registration(ctx context.Context, clientID string) *playground.Registration {
	st := s.state(clientID)

	st.mu.Lock()
	reg := st.registration
	st.mu.Unlock()
	if reg != nil {
		return reg
	}

	stored, err := s.store.GetRegistration(ctx, clientID)
	if err != nil {
		s.logger.Playground().Debug("Registration lookup failed", "error", err.Error())
		return nil
	}
	if stored != nil {
		st.mu.Lock()
		st.registration = stored
		st.mu.Unlock()
	}
	return stored
}

// Register captures the visitor's name and email, opening the gate
func (s *PlaygroundService) Register(ctx context.Context, clientID, name, email, company string) (*playground.Registration, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("name and email are required")
	}

	reg := playground.Registration{
		ID:           security.GenerateULID(),
		Name:         name,
		Email:        email,
		Company:      strings.TrimSpace(company),
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.store.SaveRegistration(ctx, clientID, reg); err != nil {
		return nil, fmt.Errorf("failed to persist registration: %w", err)
	}

	st := s.state(clientID)
	st.mu.Lock()
	st.registration = &reg
	st.mu.Unlock()

	s.logger.Playground().Info("Playground registration captured", "clientId", clientID)
	return &reg, nil
}

// Transcribe handles a video URL submission. With no registration the
// gate error is returned before any network call. On success the
// transcript and segments are stored and the lead activity is
// registered best-effort.
func (s *PlaygroundService) Transcribe(ctx context.Context, clientID, videoURL string) (*playground.Transcription, error) {
	marker := s.perf.StartOperation("playground:transcribe")
	defer marker.Complete()

	reg := s.Registration(ctx, clientID)
	if reg == nil {
		marker.SetError(ErrRegistrationRequired)
		return nil, ErrRegistrationRequired
	}

	if playground.ExtractVideoID(videoURL) == "" {
		marker.SetError(ErrInvalidVideoURL)
		return nil, ErrInvalidVideoURL
	}

	resp, err := s.client.Transcribe(ctx, upstream.TranscribeRequest{VideoURL: videoURL})

	st := s.state(clientID)
	st.mu.Lock()
	if err != nil {
		// A failed transcription leaves no stale video state behind.
		st.transcription = nil
		st.summary = nil
		st.mu.Unlock()
		marker.SetError(err)
		s.logger.Playground().Warn("Transcription failed", "clientId", clientID, "error", err.Error())
		return nil, err
	}

	transcription := &playground.Transcription{
		VideoID:    resp.VideoID,
		VideoURL:   resp.VideoURL,
		Title:      resp.Title,
		Transcript: resp.Transcript,
		Language:   resp.Language,
		Duration:   resp.Duration,
		Segments:   resp.Segments,
		FetchedAt:  time.Now().UTC(),
	}
	st.transcription = transcription
	st.summary = nil
	st.mu.Unlock()

	marker.SetSuccess(true)
	s.logger.Playground().Info("Video transcribed", "clientId", clientID, "videoId", resp.VideoID)

	s.registerLeadActivity(ctx, clientID, reg, resp.VideoID)

	return transcription, nil
}

// registerLeadActivity fires the analytics call once per video. Failure
// is swallowed; this is analytics, not core function.
func (s *PlaygroundService) registerLeadActivity(ctx context.Context, clientID string, reg *playground.Registration, videoID string) {
	st := s.state(clientID)
	st.mu.Lock()
	if st.leadRegistered[videoID] {
		st.mu.Unlock()
		return
	}
	st.leadRegistered[videoID] = true
	st.mu.Unlock()

	err := s.client.RegisterLead(ctx, upstream.RegisterLeadRequest{
		Name:    reg.Name,
		Email:   reg.Email,
		Company: reg.Company,
		VideoID: videoID,
	})
	if err != nil {
		s.logger.Playground().Debug("Lead activity registration failed, ignoring", "error", err.Error())
	}
}

// Summarize summarizes the stored transcript. The upstream endpoint is
// preferred; when it is unreachable and a LeMUR fallback is configured
// the summary is produced locally.
func (s *PlaygroundService) Summarize(ctx context.Context, clientID, contextText string, keywords []string) (*playground.Summary, error) {
	marker := s.perf.StartOperation("playground:summarize")
	defer marker.Complete()

	st := s.state(clientID)
	st.mu.Lock()
	transcription := st.transcription
	st.mu.Unlock()

	if transcription == nil || transcription.Transcript == "" {
		marker.SetError(ErrNoTranscript)
		return nil, ErrNoTranscript
	}

	var summary *playground.Summary

	resp, err := s.client.Summarize(ctx, upstream.SummarizeRequest{
		Transcript: transcription.Transcript,
		Context:    contextText,
		Keywords:   keywords,
	})
	switch {
	case err == nil:
		summary = &playground.Summary{
			Text:          resp.Summary,
			KeyPoints:     resp.KeyPoints,
			KeywordsFound: resp.KeywordsFound,
			Sections:      resp.Sections,
			Confidence:    resp.Confidence,
			WasTruncated:  resp.WasTruncated,
			GeneratedAt:   time.Now().UTC(),
		}
	case s.summarizer != nil && upstream.IsConnectivityError(err):
		s.logger.Playground().Info("Summarize endpoint unreachable, using LeMUR fallback", "clientId", clientID)
		fallback, fbErr := s.summarizer.Summarize(ctx, transcription.Transcript, keywords)
		if fbErr != nil {
			marker.SetError(err)
			return nil, err
		}
		summary = &playground.Summary{
			Text:          fallback.Summary,
			KeyPoints:     fallback.KeyPoints,
			KeywordsFound: matchKeywords(transcription.Transcript, keywords),
			Confidence:    fallback.Confidence,
			GeneratedAt:   time.Now().UTC(),
		}
	default:
		marker.SetError(err)
		s.logger.Playground().Warn("Summarization failed", "clientId", clientID, "error", err.Error())
		return nil, err
	}

	st.mu.Lock()
	st.summary = summary
	st.mu.Unlock()

	marker.SetSuccess(true)

	if reg := s.Registration(ctx, clientID); reg != nil {
		s.registerLeadActivity(ctx, clientID, reg, transcription.VideoID)
	}

	return summary, nil
}

// Current returns the client's transcription and summary, either of
// which may be nil
func (s *PlaygroundService) Current(clientID string) (*playground.Transcription, *playground.Summary) {
	st := s.state(clientID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.transcription, st.summary
}

// SegmentAt returns the transcript segment covering the offset, or the
// zero value when no transcript or segment exists
func (s *PlaygroundService) SegmentAt(clientID string, offset float64) playground.Segment {
	st := s.state(clientID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.transcription == nil {
		return playground.Segment{}
	}
	return st.transcription.SegmentAt(offset)
}

// Export formats the transcript and summary as plain text, journals the
// export, and fires the best-effort analytics update
func (s *PlaygroundService) Export(ctx context.Context, clientID, format string) (string, error) {
	marker := s.perf.StartOperation("playground:export")
	defer marker.Complete()

	st := s.state(clientID)
	st.mu.Lock()
	transcription := st.transcription
	summary := st.summary
	reg := st.registration
	st.mu.Unlock()

	if transcription == nil {
		marker.SetError(ErrNoTranscript)
		return "", ErrNoTranscript
	}
	if format == "" {
		format = "txt"
	}

	var sb strings.Builder
	if transcription.Title != "" {
		sb.WriteString(transcription.Title + "\n")
	}
	sb.WriteString("Video: " + transcription.VideoURL + "\n\n")
	if summary != nil {
		sb.WriteString("== Resumo ==\n" + summary.Text + "\n\n")
		for _, kp := range summary.KeyPoints {
			sb.WriteString("- " + kp + "\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("== Transcricao ==\n" + transcription.Transcript + "\n")

	exportID := security.GenerateULID()
	if err := s.store.RecordExport(ctx, exportID, clientID, transcription.VideoID, format); err != nil {
		s.logger.Playground().Debug("Export journal write failed", "error", err.Error())
	}

	if reg != nil {
		err := s.client.UpdateExport(ctx, upstream.UpdateExportRequest{
			Email:   reg.Email,
			VideoID: transcription.VideoID,
			Format:  format,
		})
		if err != nil {
			s.logger.Playground().Debug("Export analytics update failed, ignoring", "error", err.Error())
		}
	}

	marker.SetSuccess(true)
	return sb.String(), nil
}

// stopWords are excluded from keyword suggestion ranking. Mixed
// Portuguese and English, matching the content the site serves.
var stopWords = map[string]bool{
	"a": true, "o": true, "e": true, "de": true, "da": true, "do": true,
	"em": true, "um": true, "uma": true, "que": true, "para": true,
	"com": true, "nao": true, "os": true, "as": true, "se": true,
	"na": true, "no": true, "por": true, "mais": true, "como": true,
	"mas": true, "foi": true, "ele": true, "ela": true, "isso": true,
	"the": true, "and": true, "is": true, "in": true, "to": true,
	"of": true, "it": true, "that": true, "this": true, "you": true,
	"for": true, "on": true, "with": true, "are": true, "was": true,
	"but": true, "not": true, "have": true, "has": true, "they": true,
}

// KeywordSuggestions ranks the most frequent meaningful words in the
// stored transcript
func (s *PlaygroundService) KeywordSuggestions(clientID string, limit int) []string {
	st := s.state(clientID)
	st.mu.Lock()
	transcription := st.transcription
	st.mu.Unlock()

	if transcription == nil {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	counts := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(transcription.Transcript)) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if len(word) < 4 || stopWords[word] {
			continue
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

// matchKeywords reports which requested keywords appear in the transcript
func matchKeywords(transcript string, keywords []string) []string {
	lower := strings.ToLower(transcript)
	var found []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}
	return found
}
