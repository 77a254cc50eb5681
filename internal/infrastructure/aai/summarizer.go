// Package aai provides the LeMUR-backed fallback summarizer used when
// the assistant backend's summarize endpoint is unavailable.
package aai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
)

const (
	defaultModel       = "anthropic/claude-3-5-sonnet"
	defaultMaxTokens   = 4000
	requestTimeout     = 30 * time.Second
	fallbackConfidence = 0.7
)

// Summarizer runs summarization prompts through Assembly AI LeMUR.
type Summarizer struct {
	client *assemblyai.Client
	logger *logging.ChanneledLogger
}

// NewSummarizer creates a LeMUR summarizer. Returns nil when no API key
// is configured; callers treat a nil summarizer as "no fallback".
func NewSummarizer(apiKey string, logger *logging.ChanneledLogger) *Summarizer {
	if apiKey == "" {
		return nil
	}
	return &Summarizer{
		client: assemblyai.NewClient(apiKey),
		logger: logger,
	}
}

// Result is the parsed output of a fallback summarization
type Result struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points"`
	Confidence float64  `json:"-"`
}

// Summarize asks LeMUR for a summary and key points of the transcript.
func (s *Summarizer) Summarize(ctx context.Context, transcript string, keywords []string) (*Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prompt := "Summarize the following transcript. Respond with JSON containing " +
		"a \"summary\" string and a \"key_points\" array of short strings."
	if len(keywords) > 0 {
		prompt += " Pay particular attention to these topics: " + strings.Join(keywords, ", ") + "."
	}

	var params assemblyai.LeMURTaskParams
	params.Prompt = assemblyai.String(prompt)
	params.InputText = assemblyai.String(transcript)
	params.FinalModel = assemblyai.LeMURModel(defaultModel)
	params.MaxOutputSize = assemblyai.Int64(defaultMaxTokens)
	params.Temperature = assemblyai.Float64(0.0)

	start := time.Now()
	response, err := s.client.LeMUR.Task(ctx, params)
	if err != nil {
		s.logger.Playground().Error("LeMUR summarization failed", "error", err.Error(), "duration", time.Since(start))
		return nil, fmt.Errorf("lemur task failed: %w", err)
	}

	s.logger.Playground().Info("LeMUR summarization completed", "duration", time.Since(start))

	var raw string
	if response.Response != nil {
		raw = *response.Response
	}
	result := &Result{Confidence: fallbackConfidence}
	if err := json.Unmarshal([]byte(extractJSON(raw)), result); err != nil {
		// The model occasionally ignores the JSON instruction; the raw
		// text is still a usable summary.
		result.Summary = strings.TrimSpace(raw)
		result.KeyPoints = nil
	}

	return result, nil
}

// extractJSON trims any prose around the first JSON object in the reply
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
