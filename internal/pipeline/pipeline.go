// Package pipeline implements the candidate aggregation and relevance
// ranking pipeline shared by the similarity and recommendation features.
//
// Given a seed (one paper, or the set of papers the user has marked read),
// the pipeline gathers candidate papers from the user's library and the
// external search source, deduplicates them by id, submits them to a
// generative judge for scoring, and assembles a ranked, explained result
// list. Failures in optional enrichment steps (per-topic search, the
// library query in similarity mode) are absorbed and logged; failures in
// the mandatory ranking step are surfaced to the caller.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
	"github.com/nexusresearch/paper-recommendation-service/internal/llm"
	"github.com/nexusresearch/paper-recommendation-service/internal/observability"
	"github.com/nexusresearch/paper-recommendation-service/internal/papersources"
)

// Default pipeline tuning values.
const (
	// DefaultRecommendTopK is the default number of recommendations returned.
	DefaultRecommendTopK = 5

	// DefaultSimilarityTopK is the default number of similar papers returned.
	DefaultSimilarityTopK = 15

	// DefaultJudgeTimeout bounds a single generative call.
	DefaultJudgeTimeout = 30 * time.Second

	// maxReadSeedPapers is the number of most-recently-saved read papers
	// used as the recommendation seed.
	maxReadSeedPapers = 20

	// maxTopicQueries bounds external calls per recommendation run.
	maxTopicQueries = 3

	// perTopicResults is the external result cap for each topic query.
	perTopicResults = 8

	// similarityExternalResults is the external result cap for a
	// similarity lookup.
	similarityExternalResults = 15

	// titleQueryWords is how many leading title words form the
	// similarity search query.
	titleQueryWords = 5
)

// PaperStore is the read-only library access the pipeline needs.
// The pipeline never writes through this interface.
type PaperStore interface {
	// GetByID returns the paper with the given id.
	// Returns domain.ErrNotFound if no such paper exists.
	GetByID(ctx context.Context, id string) (*domain.Paper, error)

	// ListExcept returns all library papers except the one with the given
	// id, newest first.
	ListExcept(ctx context.Context, id string) ([]*domain.Paper, error)

	// ListRead returns up to limit most-recently-saved papers marked read.
	ListRead(ctx context.Context, limit int) ([]*domain.Paper, error)
}

// Config tunes the pipeline.
type Config struct {
	// RecommendTopK is the default recommendation count when the request
	// does not specify a limit.
	RecommendTopK int

	// SimilarityTopK is the number of similar papers requested from the
	// judge.
	SimilarityTopK int

	// JudgeTimeout bounds each generative call.
	JudgeTimeout time.Duration
}

// withDefaults fills zero fields with default values.
func (c Config) withDefaults() Config {
	if c.RecommendTopK <= 0 {
		c.RecommendTopK = DefaultRecommendTopK
	}
	if c.SimilarityTopK <= 0 {
		c.SimilarityTopK = DefaultSimilarityTopK
	}
	if c.JudgeTimeout <= 0 {
		c.JudgeTimeout = DefaultJudgeTimeout
	}
	return c
}

// SourceStats counts where the candidates of a run came from.
type SourceStats struct {
	// LibraryCount is the number of candidates drawn from the library.
	LibraryCount int `json:"libraryCount"`

	// OnlineCount is the number of candidates drawn from the external
	// source.
	OnlineCount int `json:"onlineCount"`
}

// SimilarityResult is the outcome of a similarity run.
type SimilarityResult struct {
	SelectedPaper *domain.Paper
	SimilarPapers []domain.RankedPaper
	Stats         SourceStats

	// Message is set on degraded runs that legitimately produced nothing
	// to compare against.
	Message string
}

// RecommendationResult is the outcome of a recommendation run.
type RecommendationResult struct {
	Recommendations    []domain.RankedPaper
	ReadPapersAnalyzed int
	TopicsExtracted    []string

	// Message is set on degraded runs (no read papers, no topics, or no
	// reachable candidates).
	Message string
}

// Pipeline wires the aggregation and ranking stages together. All
// collaborators are process-scoped and injected; a Pipeline is safe for
// concurrent use because each run keeps its state on the stack.
type Pipeline struct {
	store     PaperStore
	searcher  papersources.Searcher
	extractor *TopicExtractor
	ranker    *Ranker
	config    Config
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// New creates a pipeline from its collaborators.
func New(
	store PaperStore,
	searcher papersources.Searcher,
	judge llm.Client,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		store:     store,
		searcher:  searcher,
		extractor: NewTopicExtractor(judge),
		ranker:    NewRanker(judge),
		config:    cfg,
		metrics:   metrics,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// Similar runs the similarity pipeline for one seed paper.
//
// The seed must resolve in the library (domain.ErrNotFound otherwise).
// Candidates are the library minus the seed plus external results for a
// query derived from the seed title; library records take precedence on
// duplicate ids. Ranking failures are returned to the caller; search and
// library enrichment failures degrade to fewer candidates.
func (p *Pipeline) Similar(ctx context.Context, paperID string) (*SimilarityResult, error) {
	logger := p.logger.With().Str("mode", "similarity").Str("paper_id", paperID).Logger()

	seed, err := p.store.GetByID(ctx, paperID)
	if err != nil {
		return nil, err
	}

	library, err := p.store.ListExcept(ctx, paperID)
	if err != nil {
		// Optional enrichment; continue with external candidates only.
		logger.Warn().Err(err).Msg("library lookup failed, continuing without library candidates")
		library = nil
	}

	query := titleQuery(seed.Title)
	candidates, stats := p.aggregateSimilar(ctx, logger, library, query)
	p.observeCandidates(observability.QuerySimilarity, len(candidates))

	if len(candidates) == 0 {
		return &SimilarityResult{
			SelectedPaper: seed,
			SimilarPapers: []domain.RankedPaper{},
			Stats:         stats,
			Message:       "No papers to compare against",
		}, nil
	}

	scored, err := p.rank(ctx, ModeSimilarity, seedText(seed), candidates, p.config.SimilarityTopK)
	if err != nil {
		return nil, err
	}

	return &SimilarityResult{
		SelectedPaper: seed,
		SimilarPapers: assemble(candidates, scored),
		Stats:         stats,
	}, nil
}

// Recommend runs the recommendation pipeline over the user's read papers.
//
// Topic extraction and external search are best-effort: their failures
// produce an empty result with an explanatory message. A ranking failure is
// surfaced to the caller.
func (p *Pipeline) Recommend(ctx context.Context, limit int) (*RecommendationResult, error) {
	logger := p.logger.With().Str("mode", "recommendation").Logger()

	if limit <= 0 {
		limit = p.config.RecommendTopK
	}

	read, err := p.store.ListRead(ctx, maxReadSeedPapers)
	if err != nil {
		return nil, err
	}
	if len(read) == 0 {
		return &RecommendationResult{
			Recommendations: []domain.RankedPaper{},
			Message:         "Read some papers first to get recommendations!",
		}, nil
	}

	topics, err := p.extractTopics(ctx, read)
	if err != nil {
		// Topic extraction is best-effort: degrade to an empty result.
		logger.Warn().Err(err).Msg("topic extraction failed")
		return &RecommendationResult{
			Recommendations:    []domain.RankedPaper{},
			ReadPapersAnalyzed: len(read),
			Message:            "Could not extract topics from your papers",
		}, nil
	}
	if len(topics) == 0 {
		return &RecommendationResult{
			Recommendations:    []domain.RankedPaper{},
			ReadPapersAnalyzed: len(read),
			Message:            "Could not extract topics from your papers",
		}, nil
	}

	candidates := p.aggregateRecommend(ctx, logger, topics)
	p.observeCandidates(observability.QueryRecommendation, len(candidates))

	if len(candidates) == 0 {
		return &RecommendationResult{
			Recommendations:    []domain.RankedPaper{},
			ReadPapersAnalyzed: len(read),
			TopicsExtracted:    topics,
			Message:            "Could not find papers on Semantic Scholar",
		}, nil
	}

	scored, err := p.rank(ctx, ModeRecommendation, readingHistoryText(read), candidates, limit)
	if err != nil {
		return nil, err
	}

	return &RecommendationResult{
		Recommendations:    assemble(candidates, scored),
		ReadPapersAnalyzed: len(read),
		TopicsExtracted:    topics,
	}, nil
}

// extractTopics runs the topic extractor under the judge timeout.
func (p *Pipeline) extractTopics(ctx context.Context, read []*domain.Paper) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.JudgeTimeout)
	defer cancel()

	start := time.Now()
	topics, err := p.extractor.Extract(ctx, read)
	p.observeJudgeCall(observability.JudgeOpTopics, start, err)
	return topics, err
}

// rank runs the ranker under the judge timeout.
func (p *Pipeline) rank(ctx context.Context, mode Mode, seed string, candidates []domain.Candidate, topK int) ([]domain.ScoredResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.JudgeTimeout)
	defer cancel()

	start := time.Now()
	scored, err := p.ranker.Rank(ctx, mode, seed, candidates, topK)
	p.observeJudgeCall(observability.JudgeOpRank, start, err)
	return scored, err
}

// aggregateSimilar merges library candidates with one external search.
// Library records are inserted before external records, so they take
// precedence under the first-seen-wins merge policy.
func (p *Pipeline) aggregateSimilar(ctx context.Context, logger zerolog.Logger, library []*domain.Paper, query string) ([]domain.Candidate, SourceStats) {
	merger := newMerger()
	for _, paper := range library {
		merger.add(paper, domain.SourceLibrary)
	}

	external := p.search(ctx, logger, observability.QuerySimilarity, query, similarityExternalResults)
	for _, paper := range external {
		merger.add(paper, domain.SourceSemanticScholar)
	}

	candidates := merger.candidates()
	return candidates, sourceStats(candidates)
}

// aggregateRecommend gathers candidates from one external search per topic.
// Topics are queried sequentially in extraction order so the first-seen-wins
// merge stays deterministic; the shared gate spaces the calls.
func (p *Pipeline) aggregateRecommend(ctx context.Context, logger zerolog.Logger, topics []string) []domain.Candidate {
	queried := topics
	if len(queried) > maxTopicQueries {
		queried = queried[:maxTopicQueries]
	}

	merger := newMerger()
	for _, topic := range queried {
		for _, paper := range p.search(ctx, logger, observability.QueryRecommendation, topic, perTopicResults) {
			merger.add(paper, domain.SourceSemanticScholar)
		}
	}
	return merger.candidates()
}

// search performs one external query, absorbing throttling and upstream
// failures as "zero candidates from this query".
func (p *Pipeline) search(ctx context.Context, logger zerolog.Logger, kind observability.QueryKind, query string, limit int) []*domain.Paper {
	start := time.Now()
	papers, err := p.searcher.Search(ctx, query, limit)
	p.observeSearch(kind, start, err)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			logger.Warn().Str("query", query).Msg("external search throttled, skipping query")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			logger.Warn().Str("query", query).Msg("external search cancelled")
		default:
			logger.Warn().Err(err).Str("query", query).Msg("external search failed, skipping query")
		}
		return nil
	}
	return papers
}

func (p *Pipeline) observeSearch(kind observability.QueryKind, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObserveSearch(kind, time.Since(start), err)
}

func (p *Pipeline) observeJudgeCall(op observability.JudgeOp, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObserveJudgeCall(op, time.Since(start), err)
}

func (p *Pipeline) observeCandidates(kind observability.QueryKind, count int) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObserveCandidates(kind, count)
}

// titleQuery derives the external search query from a seed title: its first
// five words.
func titleQuery(title string) string {
	words := strings.Fields(title)
	if len(words) > titleQueryWords {
		words = words[:titleQueryWords]
	}
	return strings.Join(words, " ")
}

// sourceStats counts candidates per source.
func sourceStats(candidates []domain.Candidate) SourceStats {
	var stats SourceStats
	for _, c := range candidates {
		if c.Source == domain.SourceLibrary {
			stats.LibraryCount++
		} else {
			stats.OnlineCount++
		}
	}
	return stats
}
