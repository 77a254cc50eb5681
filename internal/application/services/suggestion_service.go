package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/upstream"
)

// ErrSuperseded is returned when a newer suggestion request from the
// same client replaced this one
var ErrSuperseded = errors.New("superseded by a newer request")

type pendingSuggest struct {
	seq    uint64
	cancel context.CancelFunc
}

// SuggestionService debounces and deduplicates content suggestion
// lookups per client. A new request from the same client cancels the
// one still waiting or in flight.
type SuggestionService struct {
	pending  map[string]*pendingSuggest
	seq      uint64
	mu       sync.Mutex
	debounce time.Duration

	client *upstream.Client
	logger *logging.ChanneledLogger
}

// NewSuggestionService creates the suggestion service
func NewSuggestionService(client *upstream.Client, debounce time.Duration, logger *logging.ChanneledLogger) *SuggestionService {
	return &SuggestionService{
		pending:  make(map[string]*pendingSuggest),
		debounce: debounce,
		client:   client,
		logger:   logger,
	}
}

// Suggest waits out the debounce window and then queries the backend.
// A newer call from the same client cancels this one, both during the
// window and mid-flight.
func (s *SuggestionService) Suggest(ctx context.Context, clientID, text string) ([]upstream.Suggestion, error) {
	if text == "" {
		return nil, nil
	}

	reqCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if prev, ok := s.pending[clientID]; ok {
		prev.cancel()
	}
	s.seq++
	mySeq := s.seq
	s.pending[clientID] = &pendingSuggest{seq: mySeq, cancel: cancel}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if current, ok := s.pending[clientID]; ok && current.seq == mySeq {
			delete(s.pending, clientID)
		}
		s.mu.Unlock()
		cancel()
	}()

	select {
	case <-reqCtx.Done():
		return nil, ErrSuperseded
	case <-time.After(s.debounce):
	}

	suggestions, err := s.client.Suggest(reqCtx, upstream.SuggestRequest{Text: text, UserID: clientID})
	if err != nil {
		// Distinguish "we were replaced" from a real failure.
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return nil, ErrSuperseded
		}
		return nil, err
	}
	return suggestions, nil
}
