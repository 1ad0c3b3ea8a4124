package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// paperColumns is the column list shared by all SELECT statements.
const paperColumns = `id, title, abstract, full_text, year, authors,
		citation_count, source, is_read, created_at, updated_at`

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// Create inserts a new library paper.
func (r *PgPaperRepository) Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if strings.TrimSpace(paper.Title) == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	if paper.ID == "" {
		paper.ID = domain.NewLibraryID()
	}
	paper.Source = domain.SourceLibrary
	now := time.Now().UTC()

	query := `
		INSERT INTO papers (
			id, title, abstract, full_text, year, authors,
			citation_count, source, is_read, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
		)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		paper.ID,
		paper.Title,
		paper.Abstract,
		paper.FullText,
		paper.Year,
		paper.Authors,
		paper.CitationCount,
		paper.Source,
		paper.IsRead,
		now,
	).Scan(&paper.CreatedAt, &paper.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to insert paper: %w", err)
	}

	return paper, nil
}

// GetByID retrieves a paper by its id.
func (r *PgPaperRepository) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "id is required")
	}

	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id)
		}
		return nil, fmt.Errorf("failed to get paper by ID: %w", err)
	}

	return paper, nil
}

// List retrieves library papers matching the filter, newest first.
func (r *PgPaperRepository) List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.IsRead != nil {
		conditions = append(conditions, fmt.Sprintf("is_read = $%d", argIndex))
		args = append(args, *filter.IsRead)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM papers %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT `+paperColumns+`
		FROM papers
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	papers, err := collectPapers(rows, filter.Limit)
	if err != nil {
		return nil, 0, err
	}

	return papers, totalCount, nil
}

// ListExcept retrieves all library papers except the given id, newest first.
func (r *PgPaperRepository) ListExcept(ctx context.Context, id string) ([]*domain.Paper, error) {
	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE id != $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	return collectPapers(rows, 0)
}

// ListRead retrieves up to limit most-recently-saved read papers.
func (r *PgPaperRepository) ListRead(ctx context.Context, limit int) ([]*domain.Paper, error) {
	if limit <= 0 {
		limit = defaultFilterLimit
	}

	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE is_read = true
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list read papers: %w", err)
	}
	defer rows.Close()

	return collectPapers(rows, limit)
}

// SetRead updates the read flag of a paper.
func (r *PgPaperRepository) SetRead(ctx context.Context, id string, read bool) error {
	query := `
		UPDATE papers
		SET is_read = $1, updated_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(ctx, query, read, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set read status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id)
	}

	return nil
}

// Delete removes a paper from the library.
func (r *PgPaperRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM papers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete paper: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id)
	}

	return nil
}

// scanDestinations returns the Scan targets matching paperColumns.
func scanDestinations(paper *domain.Paper) []interface{} {
	return []interface{}{
		&paper.ID, &paper.Title, &paper.Abstract, &paper.FullText, &paper.Year, &paper.Authors,
		&paper.CitationCount, &paper.Source, &paper.IsRead, &paper.CreatedAt, &paper.UpdatedAt,
	}
}

// scanPaper scans a single row into a Paper.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var paper domain.Paper
	if err := row.Scan(scanDestinations(&paper)...); err != nil {
		return nil, err
	}
	return &paper, nil
}

// collectPapers drains rows into a slice. capacityHint sizes the slice when
// the caller knows the query's LIMIT.
func collectPapers(rows pgx.Rows, capacityHint int) ([]*domain.Paper, error) {
	if capacityHint < 0 {
		capacityHint = 0
	}
	papers := make([]*domain.Paper, 0, capacityHint)
	for rows.Next() {
		var paper domain.Paper
		if err := rows.Scan(scanDestinations(&paper)...); err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, &paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating papers: %w", err)
	}
	return papers, nil
}
