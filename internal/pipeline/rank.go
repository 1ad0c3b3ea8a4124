package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
	"github.com/nexusresearch/paper-recommendation-service/internal/llm"
)

// Mode selects the ranking prompt family.
type Mode string

const (
	// ModeSimilarity ranks candidates against a single seed paper.
	ModeSimilarity Mode = "similarity"

	// ModeRecommendation ranks candidates against a reading history.
	ModeRecommendation Mode = "recommendation"
)

const (
	// maxJudgedCandidates caps how many candidates are put in front of
	// the judge. Everything past the cap is dropped before prompting.
	maxJudgedCandidates = 20

	// rankAbstractChars bounds per-candidate abstract text in the
	// ranking prompt.
	rankAbstractChars = 300
)

// Ranker submits candidates to the generative judge and validates the
// returned scores. Ranking is the mandatory stage of the pipeline: a judge
// failure here is returned to the caller, never absorbed. A malformed
// response is not retried; the judge already received explicit format
// instructions and a retry would double cost for a marginal recovery rate.
type Ranker struct {
	judge llm.Client
}

// NewRanker creates a ranker backed by the given judge.
func NewRanker(judge llm.Client) *Ranker {
	return &Ranker{judge: judge}
}

// judgeEntry is one element of the judge's ranking response. The score key
// varies with the prompt family, so all accepted spellings are declared and
// resolved after decoding.
type judgeEntry struct {
	PaperID         string   `json:"paperId"`
	SimilarityScore *float64 `json:"similarityScore"`
	RelevanceScore  *float64 `json:"relevanceScore"`
	Score           *float64 `json:"score"`
	Reason          string   `json:"reason"`
}

// score resolves the first populated score field.
func (e judgeEntry) score() (float64, bool) {
	for _, s := range []*float64{e.SimilarityScore, e.RelevanceScore, e.Score} {
		if s != nil {
			return *s, true
		}
	}
	return 0, false
}

// Rank scores candidates against the seed text and returns validated
// results ordered by score descending, at most topK of them.
//
// Validation drops judge entries whose id does not match any candidate and
// clamps every score to [0,100]. The descending order is re-established
// locally, ties broken by the candidates' aggregation order. An empty
// candidate list fails fast with domain.ErrNoCandidates; a response in
// which no entry resolves to a known candidate fails with a
// domain.JudgeOutputError in the unknown-id stage.
func (r *Ranker) Rank(ctx context.Context, mode Mode, seed string, candidates []domain.Candidate, topK int) ([]domain.ScoredResult, error) {
	if len(candidates) == 0 {
		return nil, domain.ErrNoCandidates
	}
	if topK <= 0 {
		topK = DefaultRecommendTopK
	}
	if len(candidates) > maxJudgedCandidates {
		candidates = candidates[:maxJudgedCandidates]
	}

	resp, err := r.judge.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt(mode)},
			{Role: llm.RoleUser, Content: buildRankPrompt(mode, seed, candidates, topK)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}

	var entries []judgeEntry
	if err := llm.DecodeJSON(resp.Content, &entries); err != nil {
		return nil, err
	}

	known := make(map[string]int, len(candidates))
	for i, c := range candidates {
		known[c.Paper.ID] = i
	}

	scored := make([]domain.ScoredResult, 0, len(entries))
	for _, entry := range entries {
		if _, ok := known[entry.PaperID]; !ok {
			continue
		}
		raw, ok := entry.score()
		if !ok {
			continue
		}
		scored = append(scored, domain.ScoredResult{
			CandidateID: entry.PaperID,
			Score:       domain.ClampScore(int(math.Round(raw))),
			Reason:      entry.Reason,
		})
	}
	if len(entries) > 0 && len(scored) == 0 {
		return nil, domain.NewJudgeOutputError(domain.JudgeFailureUnknownID,
			fmt.Sprintf("none of %d returned ids match a candidate", len(entries)), nil)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return known[scored[i].CandidateID] < known[scored[j].CandidateID]
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func systemPrompt(mode Mode) string {
	if mode == ModeSimilarity {
		return "You are a research paper similarity analyzer. " +
			"You respond with valid JSON only, no markdown fences and no prose."
	}
	return "You are a research recommendation engine. " +
		"You respond with valid JSON only, no markdown fences and no prose."
}

// scoreKey is the score field name each prompt family asks the judge to use.
func scoreKey(mode Mode) string {
	if mode == ModeSimilarity {
		return "similarityScore"
	}
	return "relevanceScore"
}

// buildRankPrompt renders the seed description and the candidate list with
// ids the judge must echo back verbatim.
func buildRankPrompt(mode Mode, seed string, candidates []domain.Candidate, topK int) string {
	var b strings.Builder

	if mode == ModeSimilarity {
		b.WriteString("Given this paper:\n")
	} else {
		b.WriteString("Given this reading history:\n")
	}
	b.WriteString(seed)
	b.WriteString("\n\nCandidate papers:\n")

	for _, c := range candidates {
		fmt.Fprintf(&b, "- id: %s\n  title: %q\n", c.Paper.ID, c.Paper.Title)
		if summary := c.Paper.Summary(rankAbstractChars); summary != "" {
			fmt.Fprintf(&b, "  abstract: %s\n", summary)
		}
	}

	key := scoreKey(mode)
	fmt.Fprintf(&b, "\nScore each candidate from 0 to 100 for %s and explain each score in one sentence. ", scoreNoun(mode))
	fmt.Fprintf(&b, "Respond with a JSON array of the form "+
		`[{"paperId": "<id copied exactly from the list>", "%s": 87, "reason": "..."}] `+
		"sorted by %s descending. Include the top %d candidates only.", key, key, topK)
	return b.String()
}

func scoreNoun(mode Mode) string {
	if mode == ModeSimilarity {
		return "similarity to the given paper"
	}
	return "relevance to the reading history"
}

// seedText renders the seed paper for the similarity prompt.
func seedText(seed *domain.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "title: %q", seed.Title)
	if summary := seed.Summary(topicAbstractChars); summary != "" {
		fmt.Fprintf(&b, "\nabstract: %s", summary)
	}
	return b.String()
}

// readingHistoryText renders the read papers for the recommendation prompt.
func readingHistoryText(read []*domain.Paper) string {
	var b strings.Builder
	for i, paper := range read {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %q", i+1, paper.Title)
	}
	return b.String()
}
