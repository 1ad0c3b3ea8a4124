// Package domain provides domain models and business logic for the Paper Recommendation Service.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies where a paper record came from.
// These values must match the database enum paper_source.
type SourceType string

const (
	// SourceLibrary marks papers persisted in the user's own library.
	SourceLibrary SourceType = "library"

	// SourceSemanticScholar marks papers fetched from the Semantic Scholar API.
	SourceSemanticScholar SourceType = "semantic_scholar"
)

// ExternalIDPrefix is prepended to Semantic Scholar paper ids so that external
// candidate ids and library UUIDs live in disjoint namespaces.
const ExternalIDPrefix = "ss_"

// Paper represents an academic paper, either saved in the library or fetched
// from the external search source. A Paper is immutable for the duration of a
// pipeline run.
type Paper struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Abstract      string     `json:"abstract,omitempty"`
	FullText      string     `json:"-"`
	Year          int        `json:"year,omitempty"`
	Authors       []string   `json:"authors"`
	CitationCount int        `json:"citationCount"`
	Source        SourceType `json:"source"`
	IsRead        bool       `json:"isRead,omitempty"`
	CreatedAt     time.Time  `json:"createdAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt,omitempty"`
}

// IsExternal reports whether the paper came from the external search source.
func (p *Paper) IsExternal() bool {
	return strings.HasPrefix(p.ID, ExternalIDPrefix)
}

// Summary returns the text used when describing this paper to the judge:
// the abstract if present, otherwise the full text, truncated to maxLen runes.
func (p *Paper) Summary(maxLen int) string {
	text := p.Abstract
	if text == "" {
		text = p.FullText
	}
	return Truncate(text, maxLen)
}

// Truncate shortens s to at most maxLen runes. Truncation is rune-safe so a
// multi-byte character is never split.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// NewLibraryID generates a fresh id for a library paper.
func NewLibraryID() string {
	return uuid.NewString()
}

// Candidate is a paper eligible for ranking against a seed, together with its
// provenance. Candidates are produced by the aggregator; ids are unique within
// a single aggregation run.
type Candidate struct {
	Paper  *Paper
	Source SourceType
}

// ScoredResult is one entry of the judge's ranking output after validation:
// the candidate it refers to, an integer score clamped to [0,100], and the
// judge's one-line explanation.
type ScoredResult struct {
	CandidateID string `json:"paperId"`
	Score       int    `json:"score"`
	Reason      string `json:"reason"`
}

// RankedPaper is a candidate joined with its score. RankedPaper lists are
// always ordered by score descending, ties broken by aggregation order.
type RankedPaper struct {
	Paper  *Paper `json:"paper"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// ClampScore coerces a raw judge score into the [0,100] contract.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
