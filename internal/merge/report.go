package merge

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// MatchType tells how an extracted story was paired with an original one.
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
)

// Match pairs an extracted story with the original story it came from.
type Match struct {
	Extracted  StoryRecord `json:"extracted"`
	Original   StoryRecord `json:"original"`
	MatchType  MatchType   `json:"match_type"`
	Confidence float64     `json:"confidence"`
}

// Summary holds the report counts.
type Summary struct {
	TotalExtractedStories int `json:"total_extracted_stories"`
	TotalOriginalStories  int `json:"total_original_stories"`
	ExactMatches          int `json:"exact_matches"`
	FuzzyMatches          int `json:"fuzzy_matches"`
	NewStories            int `json:"new_stories"`
	RemovedStories        int `json:"removed_stories"`
}

// Report describes how an extracted graph lines up with the original it was
// rendered from.
type Report struct {
	ID             string        `json:"id,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	ExtractedFile  string        `json:"extracted_file"`
	OriginalFile   string        `json:"original_file"`
	Summary        Summary       `json:"summary"`
	ExactMatches   []Match       `json:"exact_matches"`
	FuzzyMatches   []Match       `json:"fuzzy_matches"`
	NewStories     []StoryRecord `json:"new_stories"`
	RemovedStories []StoryRecord `json:"removed_stories"`
	LargeDeletions *Deletions    `json:"large_deletions,omitempty"`
}

func newReport() *Report {
	return &Report{
		ExactMatches:   make([]Match, 0),
		FuzzyMatches:   make([]Match, 0),
		NewStories:     make([]StoryRecord, 0),
		RemovedStories: make([]StoryRecord, 0),
	}
}

// Matches returns the exact matches followed by the fuzzy ones.
func (r *Report) Matches() []Match {
	out := make([]Match, 0, len(r.ExactMatches)+len(r.FuzzyMatches))
	out = append(out, r.ExactMatches...)
	return append(out, r.FuzzyMatches...)
}

// NeedsReview reports whether a person should look at the report before the
// merge is applied.
func (r *Report) NeedsReview() bool {
	return len(r.FuzzyMatches) > 0 || len(r.RemovedStories) > 0 || !r.LargeDeletions.Empty()
}

func (r *Report) summarize() {
	r.Summary.ExactMatches = len(r.ExactMatches)
	r.Summary.FuzzyMatches = len(r.FuzzyMatches)
	r.Summary.NewStories = len(r.NewStories)
	r.Summary.RemovedStories = len(r.RemovedStories)
}

// EncodeReport writes r as indented JSON.
func EncodeReport(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// DecodeReport reads a report written by EncodeReport.
func DecodeReport(rd io.Reader) (*Report, error) {
	r := newReport()
	if err := json.NewDecoder(rd).Decode(r); err != nil {
		return nil, fmt.Errorf("decode merge report: %w", err)
	}
	return r, nil
}
