package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
	"github.com/nexusresearch/paper-recommendation-service/internal/llm"
	"github.com/nexusresearch/paper-recommendation-service/internal/observability"
)

// Request validation constants.
const (
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
	searchResultLimit  = 10
	maxQueryLength     = 500
)

// similarityRequest is the JSON request body for a similarity lookup.
type similarityRequest struct {
	PaperID string `json:"paperId"`
}

// recommendationsRequest is the JSON request body for recommendations.
type recommendationsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// similarity handles POST /api/similarity.
// It ranks library and external papers against one seed paper.
func (s *Server) similarity(w http.ResponseWriter, r *http.Request) {
	var req similarityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	req.PaperID = strings.TrimSpace(req.PaperID)
	if req.PaperID == "" {
		writeError(w, http.StatusBadRequest, "paperId is required")
		return
	}

	result, err := s.pipeline.Similar(r.Context(), req.PaperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, similarityResponseFrom(result))
}

// recommendations handles POST /api/recommendations.
// It ranks external papers against the user's reading history.
func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}

	result, err := s.pipeline.Recommend(r.Context(), req.Limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendationsResponseFrom(result))
}

// searchPapers handles GET /api/search.
// It passes a free-text query straight to the external source.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be at most %d characters", maxQueryLength))
		return
	}

	start := time.Now()
	papers, err := s.searcher.Search(r.Context(), query, searchResultLimit)
	if s.metrics != nil {
		s.metrics.ObserveSearch(observability.QueryPassthrough, time.Since(start), err)
	}
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			writeError(w, http.StatusTooManyRequests, "external search is rate limited, please try again shortly")
			return
		}
		writeError(w, http.StatusBadGateway, "external search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponseFrom(query, papers))
}

// decodeBody reads and unmarshals a JSON request body, writing a 400 error
// response on failure. An empty body decodes to the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Ranking failures, whether bad judge output or a judge
// provider error, carry their message through so callers can see why a run
// failed; other internal details are not leaked.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Paper not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, "external service unavailable")
	case errors.Is(err, domain.ErrJudgeOutputInvalid):
		writeError(w, http.StatusInternalServerError, err.Error())
	case isJudgeAPIError(err):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// isJudgeAPIError reports whether err came from the judge provider. The
// ranking stage is mandatory, so these fail the whole request.
func isJudgeAPIError(err error) bool {
	var apiErr *llm.APIError
	return errors.As(err, &apiErr)
}
