package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nexusresearch/paper-recommendation-service/internal/domain"
	"github.com/nexusresearch/paper-recommendation-service/internal/repository"
)

// Pagination bounds for the library listing.
const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// authorsList accepts authors either as a JSON array of names or as a single
// comma-joined string.
type authorsList []string

// UnmarshalJSON implements json.Unmarshaler.
func (a *authorsList) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		*a = names
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}

	*a = nil
	for _, name := range strings.Split(joined, ",") {
		if name = strings.TrimSpace(name); name != "" {
			*a = append(*a, name)
		}
	}
	return nil
}

// createPaperRequest is the JSON request body for saving a paper.
type createPaperRequest struct {
	Title         string      `json:"title"`
	Abstract      string      `json:"abstract,omitempty"`
	FullText      string      `json:"fullText,omitempty"`
	Year          int         `json:"year,omitempty"`
	Authors       authorsList `json:"authors,omitempty"`
	CitationCount int         `json:"citationCount,omitempty"`
	IsRead        bool        `json:"isRead,omitempty"`
}

// setReadRequest is the JSON request body for updating the read flag.
type setReadRequest struct {
	IsRead *bool `json:"is_read"`
}

// listPapers handles GET /api/papers.
// It returns a paginated list of library papers, newest first.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	filter := repository.PaperFilter{
		Limit:  limit,
		Offset: offset,
	}

	if readParam := r.URL.Query().Get("is_read"); readParam != "" {
		isRead, err := strconv.ParseBool(readParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "is_read must be a boolean")
			return
		}
		filter.IsRead = &isRead
	}

	papers, totalCount, err := s.paperRepo.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if papers == nil {
		papers = []*domain.Paper{}
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:        papers,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// createPaper handles POST /api/papers.
// It saves a paper into the library.
func (s *Server) createPaper(w http.ResponseWriter, r *http.Request) {
	var req createPaperRequest
	if !decodeBody(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	paper := &domain.Paper{
		Title:         req.Title,
		Abstract:      req.Abstract,
		FullText:      req.FullText,
		Year:          req.Year,
		Authors:       req.Authors,
		CitationCount: req.CitationCount,
		IsRead:        req.IsRead,
	}

	created, err := s.paperRepo.Create(r.Context(), paper)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// getPaper handles GET /api/papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	paper, err := s.paperRepo.GetByID(r.Context(), paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paper)
}

// deletePaper handles DELETE /api/papers/{paperID}.
func (s *Server) deletePaper(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	if err := s.paperRepo.Delete(r.Context(), paperID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setPaperRead handles PATCH /api/papers/{paperID}/read.
// It updates the read flag used to build the recommendation seed.
func (s *Server) setPaperRead(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	var req setReadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.IsRead == nil {
		writeError(w, http.StatusBadRequest, "is_read is required")
		return
	}

	if err := s.paperRepo.SetRead(r.Context(), paperID, *req.IsRead); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, setReadResponse{
		ID:     paperID,
		IsRead: *req.IsRead,
	})
}

// parsePaginationParams extracts page_size and page_token from query
// parameters, applying default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset = decodePageToken(r.URL.Query().Get("page_token"))
	return limit, offset
}
