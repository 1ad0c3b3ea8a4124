// Package papersources provides the client plumbing for external paper
// search capabilities.
//
// The service draws ranking candidates from one external bibliographic
// source (Semantic Scholar). This package defines the Searcher interface the
// pipeline consumes, a fixed-interval Gate that enforces minimum spacing
// between calls to the external service, and a thin HTTP client that applies
// the gate and common headers.
//
// Example usage:
//
//	client := semanticscholar.NewClient(cfg, nil)
//	papers, err := client.Search(ctx, "transformer attention", 15)
package papersources

import (
	"context"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
)

// Searcher is the external search capability consumed by the candidate
// aggregation pipeline.
type Searcher interface {
	// Search turns a free-text query into a bounded list of normalized
	// papers from the external source. Implementations must:
	//   - respect context cancellation,
	//   - enforce the source's minimum inter-call spacing,
	//   - return domain.RateLimitError on a throttling response and
	//     domain.ExternalAPIError on network or server failures,
	//   - prefix returned ids so they cannot collide with library ids.
	//
	// A limit of 0 uses the source's default.
	Search(ctx context.Context, query string, limit int) ([]*domain.Paper, error)

	// Name returns a human-readable name for logging and error attribution.
	Name() string
}
