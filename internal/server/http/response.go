package httpserver

import (
	"encoding/base64"
	"strconv"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
	"github.com/nexusresearch/paper-recommendation-service/internal/pipeline"
)

// Response envelope types for JSON serialization.

type similarityResponse struct {
	SelectedPaper *domain.Paper        `json:"selectedPaper"`
	SimilarPapers []domain.RankedPaper `json:"similarPapers"`
	TotalSimilar  int                  `json:"totalSimilar"`
	Stats         pipeline.SourceStats `json:"stats"`
	Message       string               `json:"message,omitempty"`
}

type recommendationsResponse struct {
	Recommendations    []domain.RankedPaper `json:"recommendations"`
	TotalRecommended   int                  `json:"totalRecommended"`
	ReadPapersAnalyzed int                  `json:"readPapersAnalyzed"`
	TopicsExtracted    []string             `json:"topicsExtracted"`
	Message            string               `json:"message,omitempty"`
}

type searchResponse struct {
	Query        string          `json:"query"`
	Results      []*domain.Paper `json:"results"`
	TotalResults int             `json:"totalResults"`
}

type listPapersResponse struct {
	Papers        []*domain.Paper `json:"papers"`
	NextPageToken string          `json:"next_page_token,omitempty"`
	TotalCount    int             `json:"total_count"`
}

type setReadResponse struct {
	ID     string `json:"id"`
	IsRead bool   `json:"isRead"`
}

// Converter functions

func similarityResponseFrom(result *pipeline.SimilarityResult) similarityResponse {
	similar := result.SimilarPapers
	if similar == nil {
		similar = []domain.RankedPaper{}
	}
	return similarityResponse{
		SelectedPaper: result.SelectedPaper,
		SimilarPapers: similar,
		TotalSimilar:  len(similar),
		Stats:         result.Stats,
		Message:       result.Message,
	}
}

func recommendationsResponseFrom(result *pipeline.RecommendationResult) recommendationsResponse {
	recs := result.Recommendations
	if recs == nil {
		recs = []domain.RankedPaper{}
	}
	topics := result.TopicsExtracted
	if topics == nil {
		topics = []string{}
	}
	return recommendationsResponse{
		Recommendations:    recs,
		TotalRecommended:   len(recs),
		ReadPapersAnalyzed: result.ReadPapersAnalyzed,
		TopicsExtracted:    topics,
		Message:            result.Message,
	}
}

func searchResponseFrom(query string, papers []*domain.Paper) searchResponse {
	if papers == nil {
		papers = []*domain.Paper{}
	}
	return searchResponse{
		Query:        query,
		Results:      papers,
		TotalResults: len(papers),
	}
}

// encodePageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodePageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}

// decodePageToken parses a base64 page token back into an offset.
// Invalid tokens fall back to offset zero.
func decodePageToken(token string) int {
	if token == "" {
		return 0
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}
