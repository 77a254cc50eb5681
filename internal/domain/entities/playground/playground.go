// Package playground provides domain entities for the YouTube
// transcription and summarization playground.
package playground

import (
	"regexp"
	"time"
)

// Registration is the visitor registration that gates transcription
type Registration struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Company      string    `json:"company,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Segment is one timestamped slice of a transcript
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	End      float64 `json:"end"`
}

// Transcription is the stored result of a transcribe call
type Transcription struct {
	VideoID    string    `json:"video_id"`
	VideoURL   string    `json:"video_url"`
	Title      string    `json:"title,omitempty"`
	Transcript string    `json:"transcript"`
	Language   string    `json:"language,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	Segments   []Segment `json:"segments,omitempty"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// SegmentAt returns the segment covering the given offset in seconds.
// Returns the zero value when there are no segments or none match.
func (t *Transcription) SegmentAt(offset float64) Segment {
	for _, seg := range t.Segments {
		if offset >= seg.Start && offset < seg.End {
			return seg
		}
	}
	return Segment{}
}

// Section is one titled block of a structured summary
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Summary is the stored result of a summarize call
type Summary struct {
	Text          string    `json:"summary"`
	KeyPoints     []string  `json:"key_points,omitempty"`
	KeywordsFound []string  `json:"keywords_found,omitempty"`
	Sections      []Section `json:"sections,omitempty"`
	Confidence    float64   `json:"confidence"` // 0.0-1.0
	WasTruncated  bool      `json:"was_truncated"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?.*[&?]v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`),
}

// ExtractVideoID pulls the 11-character YouTube video id out of a URL or
// bare id. Returns "" when nothing matches.
func ExtractVideoID(input string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return m[1]
		}
	}
	return ""
}
