package pipeline

import (
	"sort"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
)

// merger accumulates candidates while deduplicating by paper id. The first
// occurrence of an id wins; later occurrences are dropped regardless of
// source. Insertion order is preserved so downstream ranking has a
// deterministic tie-break order.
type merger struct {
	seen  map[string]struct{}
	order []domain.Candidate
}

func newMerger() *merger {
	return &merger{seen: make(map[string]struct{})}
}

// add records a candidate unless its id was seen before. Papers with empty
// ids are dropped; they cannot be joined back after ranking.
func (m *merger) add(paper *domain.Paper, source domain.SourceType) {
	if paper == nil || paper.ID == "" {
		return
	}
	if _, ok := m.seen[paper.ID]; ok {
		return
	}
	m.seen[paper.ID] = struct{}{}
	m.order = append(m.order, domain.Candidate{Paper: paper, Source: source})
}

// candidates returns the deduplicated candidates in insertion order.
func (m *merger) candidates() []domain.Candidate {
	return m.order
}

// assemble joins validated judge scores back to their candidate papers and
// orders the result by score descending, ties broken by the candidates'
// aggregation order. Scores whose id does not resolve were already discarded
// by the ranker; a second lookup miss here would indicate a bug, so such
// entries are skipped silently.
func assemble(candidates []domain.Candidate, scored []domain.ScoredResult) []domain.RankedPaper {
	byID := make(map[string]domain.Candidate, len(candidates))
	pos := make(map[string]int, len(candidates))
	for i, c := range candidates {
		byID[c.Paper.ID] = c
		pos[c.Paper.ID] = i
	}

	ranked := make([]domain.RankedPaper, 0, len(scored))
	for _, s := range scored {
		c, ok := byID[s.CandidateID]
		if !ok {
			continue
		}
		ranked = append(ranked, domain.RankedPaper{
			Paper:  c.Paper,
			Score:  s.Score,
			Reason: s.Reason,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return pos[ranked[i].Paper.ID] < pos[ranked[j].Paper.ID]
	})
	return ranked
}
