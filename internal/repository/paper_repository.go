package repository

import (
	"context"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
)

// PaperRepository manages the user's paper library. Library papers carry
// UUID ids; external candidate ids (the "ss_" namespace) never reach this
// repository.
type PaperRepository interface {
	// Create inserts a new library paper. A missing id is generated; the
	// source is forced to library. Returns the stored paper with its
	// database-assigned timestamps.
	// Returns domain.ErrInvalidInput if the paper is nil or has no title.
	Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// GetByID retrieves a paper by its id.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id string) (*domain.Paper, error)

	// List retrieves library papers matching the filter, newest first,
	// together with the total count for pagination. The total count
	// reflects all matching records regardless of limit/offset.
	List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error)

	// ListExcept retrieves all library papers except the one with the
	// given id, newest first.
	ListExcept(ctx context.Context, id string) ([]*domain.Paper, error)

	// ListRead retrieves up to limit most-recently-saved papers that are
	// marked read, newest first.
	ListRead(ctx context.Context, limit int) ([]*domain.Paper, error)

	// SetRead updates the read flag of a paper.
	// Returns domain.ErrNotFound if the paper does not exist.
	SetRead(ctx context.Context, id string, read bool) error

	// Delete removes a paper from the library.
	// Returns domain.ErrNotFound if the paper does not exist.
	Delete(ctx context.Context, id string) error
}

// PaperFilter specifies criteria for listing papers.
type PaperFilter struct {
	// IsRead filters by read status (optional).
	// When nil, no filtering is applied.
	IsRead *bool

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *PaperFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
