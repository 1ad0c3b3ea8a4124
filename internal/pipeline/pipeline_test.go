package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
)

// fakeStore is an in-memory PaperStore with injectable failures.
type fakeStore struct {
	papers        []*domain.Paper
	listExceptErr error
	listReadErr   error
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Paper, error) {
	for _, p := range s.papers {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("paper", id)
}

func (s *fakeStore) ListExcept(_ context.Context, id string) ([]*domain.Paper, error) {
	if s.listExceptErr != nil {
		return nil, s.listExceptErr
	}
	var out []*domain.Paper
	for _, p := range s.papers {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) ListRead(_ context.Context, limit int) ([]*domain.Paper, error) {
	if s.listReadErr != nil {
		return nil, s.listReadErr
	}
	var out []*domain.Paper
	for _, p := range s.papers {
		if p.IsRead && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeSearcher returns canned results per query and records the queries it
// was asked, in order.
type fakeSearcher struct {
	results map[string][]*domain.Paper
	errs    map[string]error
	queries []string
	limits  []int
}

func (s *fakeSearcher) Search(_ context.Context, query string, limit int) ([]*domain.Paper, error) {
	s.queries = append(s.queries, query)
	s.limits = append(s.limits, limit)
	if err, ok := s.errs[query]; ok {
		return nil, err
	}
	return s.results[query], nil
}

func (s *fakeSearcher) Name() string { return "fake" }

func externalPaper(n int) *domain.Paper {
	return &domain.Paper{
		ID:     fmt.Sprintf("ss_ext%d", n),
		Title:  fmt.Sprintf("External %d", n),
		Source: domain.SourceSemanticScholar,
	}
}

func newTestPipeline(store *fakeStore, searcher *fakeSearcher, judge *fakeJudge) *Pipeline {
	return New(store, searcher, judge, Config{}, nil, zerolog.Nop())
}

func TestPipeline_Similar(t *testing.T) {
	seed := &domain.Paper{
		ID:       "seed-id",
		Title:    "Graph Neural Networks For Molecule Property Prediction",
		Abstract: "We study GNNs.",
		Source:   domain.SourceLibrary,
	}
	libraryPaper := &domain.Paper{ID: "lib-1", Title: "Message Passing Networks", Source: domain.SourceLibrary}

	t.Run("unknown seed returns not found", func(t *testing.T) {
		p := newTestPipeline(&fakeStore{}, &fakeSearcher{}, &fakeJudge{responses: []string{"[]"}})

		_, err := p.Similar(context.Background(), "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("merges library and external candidates with stats", func(t *testing.T) {
		store := &fakeStore{papers: []*domain.Paper{seed, libraryPaper}}
		searcher := &fakeSearcher{results: map[string][]*domain.Paper{
			"Graph Neural Networks For Molecule": {externalPaper(1), externalPaper(2)},
		}}
		judge := &fakeJudge{responses: []string{
			`[{"paperId": "lib-1", "similarityScore": 90, "reason": "same field"},
			  {"paperId": "ss_ext1", "similarityScore": 70, "reason": "related"}]`,
		}}

		result, err := newTestPipeline(store, searcher, judge).Similar(context.Background(), "seed-id")
		require.NoError(t, err)
		assert.Equal(t, seed, result.SelectedPaper)
		assert.Empty(t, result.Message)
		assert.Equal(t, 1, result.Stats.LibraryCount)
		assert.Equal(t, 2, result.Stats.OnlineCount)

		require.Len(t, result.SimilarPapers, 2)
		assert.Equal(t, "lib-1", result.SimilarPapers[0].Paper.ID)
		assert.Equal(t, 90, result.SimilarPapers[0].Score)

		// Query derives from the first five title words.
		require.Len(t, searcher.queries, 1)
		assert.Equal(t, "Graph Neural Networks For Molecule", searcher.queries[0])
		assert.Equal(t, []int{similarityExternalResults}, searcher.limits)
	})

	t.Run("library failure degrades to external only", func(t *testing.T) {
		store := &fakeStore{
			papers:        []*domain.Paper{seed},
			listExceptErr: errors.New("db down"),
		}
		searcher := &fakeSearcher{results: map[string][]*domain.Paper{
			"Graph Neural Networks For Molecule": {externalPaper(1)},
		}}
		judge := &fakeJudge{responses: []string{
			`[{"paperId": "ss_ext1", "similarityScore": 60, "reason": "related"}]`,
		}}

		result, err := newTestPipeline(store, searcher, judge).Similar(context.Background(), "seed-id")
		require.NoError(t, err)
		assert.Equal(t, 0, result.Stats.LibraryCount)
		assert.Equal(t, 1, result.Stats.OnlineCount)
		require.Len(t, result.SimilarPapers, 1)
	})

	t.Run("search failure degrades to library only", func(t *testing.T) {
		store := &fakeStore{papers: []*domain.Paper{seed, libraryPaper}}
		searcher := &fakeSearcher{errs: map[string]error{
			"Graph Neural Networks For Molecule": domain.NewRateLimitError("Semantic Scholar", 0),
		}}
		judge := &fakeJudge{responses: []string{
			`[{"paperId": "lib-1", "similarityScore": 85, "reason": "same field"}]`,
		}}

		result, err := newTestPipeline(store, searcher, judge).Similar(context.Background(), "seed-id")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Stats.LibraryCount)
		assert.Equal(t, 0, result.Stats.OnlineCount)
	})

	t.Run("no candidates yields message without judge call", func(t *testing.T) {
		store := &fakeStore{papers: []*domain.Paper{seed}}
		searcher := &fakeSearcher{}
		judge := &fakeJudge{responses: []string{"[]"}}

		result, err := newTestPipeline(store, searcher, judge).Similar(context.Background(), "seed-id")
		require.NoError(t, err)
		assert.Equal(t, "No papers to compare against", result.Message)
		assert.Empty(t, result.SimilarPapers)
		assert.Equal(t, 0, judge.callCount())
	})

	t.Run("ranking failure is fatal", func(t *testing.T) {
		store := &fakeStore{papers: []*domain.Paper{seed, libraryPaper}}
		searcher := &fakeSearcher{}
		judge := &fakeJudge{responses: []string{"garbage, not json"}}

		_, err := newTestPipeline(store, searcher, judge).Similar(context.Background(), "seed-id")
		require.ErrorIs(t, err, domain.ErrJudgeOutputInvalid)
	})
}

func TestPipeline_Recommend(t *testing.T) {
	read := []*domain.Paper{
		{ID: "r1", Title: "BERT", IsRead: true, Source: domain.SourceLibrary},
		{ID: "r2", Title: "GPT", IsRead: true, Source: domain.SourceLibrary},
	}
	topicsJSON := `{"topics": ["language models", "transfer learning", "tokenization", "scaling laws"], "keywords": []}`

	t.Run("no read papers yields onboarding message", func(t *testing.T) {
		p := newTestPipeline(&fakeStore{}, &fakeSearcher{}, &fakeJudge{responses: []string{"{}"}})

		result, err := p.Recommend(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, "Read some papers first to get recommendations!", result.Message)
		assert.Empty(t, result.Recommendations)
		assert.Equal(t, 0, result.ReadPapersAnalyzed)
	})

	t.Run("queries at most three topics and ranks merged candidates", func(t *testing.T) {
		store := &fakeStore{papers: read}
		searcher := &fakeSearcher{results: map[string][]*domain.Paper{
			"language models":   {externalPaper(1), externalPaper(2)},
			"transfer learning": {externalPaper(2), externalPaper(3)},
			"tokenization":      {externalPaper(4)},
		}}
		judge := &fakeJudge{responses: []string{
			topicsJSON,
			`[{"paperId": "ss_ext1", "relevanceScore": 92, "reason": "core interest"},
			  {"paperId": "ss_ext3", "relevanceScore": 75, "reason": "adjacent"}]`,
		}}

		result, err := newTestPipeline(store, searcher, judge).Recommend(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, 2, result.ReadPapersAnalyzed)
		assert.Equal(t, []string{"language models", "transfer learning", "tokenization", "scaling laws"}, result.TopicsExtracted)

		// Fourth topic is never queried.
		assert.Equal(t, []string{"language models", "transfer learning", "tokenization"}, searcher.queries)
		assert.Equal(t, []int{perTopicResults, perTopicResults, perTopicResults}, searcher.limits)

		require.Len(t, result.Recommendations, 2)
		assert.Equal(t, "ss_ext1", result.Recommendations[0].Paper.ID)
		assert.Equal(t, 92, result.Recommendations[0].Score)
	})

	t.Run("topic extraction failure degrades to empty result", func(t *testing.T) {
		store := &fakeStore{papers: read}
		judge := &fakeJudge{responses: []string{"not json", "still not json"}}

		result, err := newTestPipeline(store, &fakeSearcher{}, judge).Recommend(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, "Could not extract topics from your papers", result.Message)
		assert.Empty(t, result.Recommendations)
		assert.Equal(t, 2, result.ReadPapersAnalyzed)
	})

	t.Run("all searches failing yields message", func(t *testing.T) {
		store := &fakeStore{papers: read}
		searcher := &fakeSearcher{errs: map[string]error{
			"language models":   domain.NewRateLimitError("Semantic Scholar", 0),
			"transfer learning": errors.New("timeout"),
			"tokenization":      errors.New("timeout"),
		}}
		judge := &fakeJudge{responses: []string{topicsJSON}}

		result, err := newTestPipeline(store, searcher, judge).Recommend(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, "Could not find papers on Semantic Scholar", result.Message)
		assert.Empty(t, result.Recommendations)
		assert.Equal(t, 1, judge.callCount())
	})

	t.Run("default limit applies when request gives none", func(t *testing.T) {
		store := &fakeStore{papers: read}
		searcher := &fakeSearcher{results: map[string][]*domain.Paper{
			"language models": {
				externalPaper(1), externalPaper(2), externalPaper(3),
				externalPaper(4), externalPaper(5), externalPaper(6),
			},
		}}
		judge := &fakeJudge{responses: []string{
			`{"topics": ["language models"], "keywords": []}`,
			`[{"paperId": "ss_ext1", "relevanceScore": 96, "reason": "a"},
			  {"paperId": "ss_ext2", "relevanceScore": 90, "reason": "b"},
			  {"paperId": "ss_ext3", "relevanceScore": 85, "reason": "c"},
			  {"paperId": "ss_ext4", "relevanceScore": 80, "reason": "d"},
			  {"paperId": "ss_ext5", "relevanceScore": 74, "reason": "e"},
			  {"paperId": "ss_ext6", "relevanceScore": 70, "reason": "f"}]`,
		}}

		result, err := newTestPipeline(store, searcher, judge).Recommend(context.Background(), 0)
		require.NoError(t, err)
		assert.Len(t, result.Recommendations, DefaultRecommendTopK)
	})

	t.Run("ranking failure is fatal", func(t *testing.T) {
		store := &fakeStore{papers: read}
		searcher := &fakeSearcher{results: map[string][]*domain.Paper{
			"language models": {externalPaper(1)},
		}}
		judge := &fakeJudge{responses: []string{
			`{"topics": ["language models"], "keywords": []}`,
			"no json here",
		}}

		_, err := newTestPipeline(store, searcher, judge).Recommend(context.Background(), 5)
		require.ErrorIs(t, err, domain.ErrJudgeOutputInvalid)
	})

	t.Run("read papers lookup failure is fatal", func(t *testing.T) {
		store := &fakeStore{listReadErr: errors.New("db down")}

		_, err := newTestPipeline(store, &fakeSearcher{}, &fakeJudge{responses: []string{"{}"}}).Recommend(context.Background(), 5)
		require.Error(t, err)
	})
}
