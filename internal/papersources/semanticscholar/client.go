package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
	"github.com/nexusresearch/paper-recommendation-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMinInterval is the default minimum spacing between requests.
	DefaultMinInterval = 800 * time.Millisecond

	// DefaultMaxResults is the default maximum number of results per search.
	DefaultMaxResults = 15

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "title,authors,abstract,year,citationCount,openAccessPdf"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// MinInterval is the minimum spacing between requests.
	// Defaults to DefaultMinInterval if zero.
	MinInterval time.Duration

	// MaxResults is the maximum number of results to return per search.
	// Defaults to DefaultMaxResults if zero.
	MaxResults int
}

// Client implements the papersources.Searcher interface for Semantic Scholar.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

// Compile-time check that Client implements papersources.Searcher.
var _ papersources.Searcher = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given
// configuration. If httpClient is nil, a gated one is created from the
// configuration settings.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			MinInterval:  cfg.MinInterval,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search queries Semantic Scholar for papers matching the query and converts
// them to domain papers with prefixed ids.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*domain.Paper, error) {
	searchURL, err := c.buildSearchURL(query, limit)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewExternalAPIError(sourceName, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "decoding response", err)
	}

	return convertToPapers(searchResp.Data), nil
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(query string, limit int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", query)
	q.Set("fields", paperFields)

	if limit <= 0 || limit > c.config.MaxResults {
		limit = c.config.MaxResults
	}
	q.Set("limit", strconv.Itoa(limit))

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// handleErrorResponse checks for API errors and returns appropriate error
// types. A 429 becomes a domain.RateLimitError so the pipeline can absorb
// throttling without failing the whole request.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewRateLimitError(sourceName, retryAfter(resp))
	}

	// Read the error body (limit to 1MB to prevent resource exhaustion).
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// retryAfter parses the Retry-After header, if present, as a delay in seconds.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(header, 10, 64); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// convertToPapers converts API paper results to domain papers.
func convertToPapers(results []PaperResult) []*domain.Paper {
	papers := make([]*domain.Paper, 0, len(results))
	for _, result := range results {
		papers = append(papers, convertToPaper(result))
	}
	return papers
}

// convertToPaper converts a single API paper result to a domain paper.
// Ids are prefixed to keep the external namespace disjoint from library ids.
func convertToPaper(result PaperResult) *domain.Paper {
	authors := make([]string, 0, len(result.Authors))
	for _, a := range result.Authors {
		authors = append(authors, a.Name)
	}

	return &domain.Paper{
		ID:            domain.ExternalIDPrefix + result.PaperID,
		Title:         result.Title,
		Abstract:      result.Abstract,
		Year:          result.Year,
		Authors:       authors,
		CitationCount: result.CitationCount,
		Source:        domain.SourceSemanticScholar,
	}
}
