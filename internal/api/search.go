package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/starford/sift/internal/noteservice"
	"github.com/starford/sift/internal/search"
)

const defaultReportWindow = time.Hour

// Search handles GET /api/search.
//
//	@Summary		Ranked full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q				query		string	true	"Search query"
//	@Param			limit			query		int		false	"Max results"
//	@Param			fuzzy			query		bool	false	"Match single-character typos"
//	@Param			case_sensitive	query		bool	false	"Match case exactly"
//	@Param			snippets		query		bool	false	"Include snippets"
//	@Success		200				{object}	SearchResponse
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(r.Context(), noteservice.SearchRequest{
		Query:         q,
		Limit:         queryInt(r, "limit"),
		Fuzzy:         queryBool(r, "fuzzy"),
		CaseSensitive: queryBool(r, "case_sensitive"),
		Snippets:      queryBool(r, "snippets"),
	})
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Similar handles POST /api/similar.
//
//	@Summary		Notes similar to a text
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SimilarRequest	true	"Reference text"
//	@Success		200		{object}	SimilarResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/similar [post]
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	results, err := h.svc.FindSimilar(r.Context(), req.Text, search.SimilarOptions{
		Limit:         req.Limit,
		MinSimilarity: req.MinSimilarity,
		ExcludePath:   req.ExcludePath,
	})
	if err != nil {
		writeError(w, "similar", err)
		return
	}
	writeJSON(w, http.StatusOK, SimilarResponse{Results: results})
}

// Related handles GET /api/related/*.
//
//	@Summary		Similar notes and backlinks of a note
//	@Tags			search
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Param			limit	query		int		false	"Max similar notes"
//	@Success		200		{object}	noteservice.Related
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/related/{path} [get]
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	rel, err := h.svc.RelatedNotes(r.Context(), path, queryInt(r, "limit"))
	if err != nil {
		writeError(w, "related", err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// Suggest handles GET /api/suggest.
//
//	@Summary		Auto-complete suggestions
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Partial query"
//	@Param			limit	query		int		false	"Max suggestions per list"
//	@Success		200		{object}	search.Suggestions
//	@Security		BearerAuth
//	@Router			/suggest [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	sug, err := h.svc.Suggest(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, "suggest", err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

// CacheStats handles GET /api/stats/cache.
//
//	@Summary		Query cache statistics
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	cache.Stats
//	@Security		BearerAuth
//	@Router			/stats/cache [get]
func (h *Handler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CacheStats())
}

// PerformanceReport handles GET /api/stats/performance.
//
//	@Summary		Query performance report
//	@Tags			stats
//	@Produce		json
//	@Param			window	query		string	false	"Report window as a Go duration (default 1h)"
//	@Success		200		{object}	monitor.Report
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stats/performance [get]
func (h *Handler) PerformanceReport(w http.ResponseWriter, r *http.Request) {
	window := defaultReportWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid window"))
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, h.svc.PerformanceReport(time.Now().Add(-window)))
}

// ClearCache handles DELETE /api/cache.
//
//	@Summary		Drop every cached query result
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	ClearCacheResponse
//	@Security		BearerAuth
//	@Router			/cache [delete]
func (h *Handler) ClearCache(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ClearCacheResponse{Removed: h.svc.ClearCache()})
}
