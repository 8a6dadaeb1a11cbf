// Package api exposes the workspace search HTTP surface: chi handlers plus
// central domain-error to status-code mapping.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"gridbase/internal/domain"
	"gridbase/internal/service"
)

// Handler serves the authenticated search endpoints.
type Handler struct {
	search *service.SearchService
	logger *slog.Logger
}

func NewHandler(search *service.SearchService, logger *slog.Logger) *Handler {
	return &Handler{
		search: search,
		logger: logger.With("component", "api"),
	}
}

// Routes returns the authenticated API routes, mounted under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/workspaces/{workspace_id}/search", h.searchWorkspace)
	r.Get("/workspaces/{workspace_id}/search/{search_type}", h.searchType)
	return r
}

type searchResponse struct {
	Results []domain.SearchResult `json:"results"`
	HasMore bool                  `json:"has_more"`
}

type typedSearchResponse struct {
	Results []domain.SearchResult `json:"results"`
}

func (h *Handler) searchWorkspace(w http.ResponseWriter, r *http.Request) {
	p, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: 401, Message: "unauthorized"})
		return
	}

	workspaceID, err := workspaceIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sc, err := searchParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	results, hasMore, err := h.search.SearchWorkspace(r.Context(), p, workspaceID, sc)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results, HasMore: hasMore})
}

func (h *Handler) searchType(w http.ResponseWriter, r *http.Request) {
	p, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: 401, Message: "unauthorized"})
		return
	}

	workspaceID, err := workspaceIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sc, err := searchParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	typeTag := chi.URLParam(r, "search_type")
	results, err := h.search.SearchType(r.Context(), p, workspaceID, typeTag, sc)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, typedSearchResponse{Results: results})
}

func workspaceIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "workspace_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation("invalid workspace id %q", raw)
	}
	return id, nil
}

// searchParams parses and validates query, limit, and offset.
func searchParams(r *http.Request) (domain.SearchContext, error) {
	q := r.URL.Query()

	query := q.Get("query")
	if strings.TrimSpace(query) == "" {
		return domain.SearchContext{}, domain.ErrValidation("query parameter is required")
	}
	if len(query) > domain.MaxSearchQueryLength {
		return domain.SearchContext{}, domain.ErrValidation(
			"query exceeds %d characters", domain.MaxSearchQueryLength)
	}

	limit := domain.DefaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.SearchContext{}, domain.ErrValidation("invalid limit %q", raw)
		}
		if n < 1 || n > domain.MaxSearchLimit {
			return domain.SearchContext{}, domain.ErrValidation(
				"limit must be between 1 and %d", domain.MaxSearchLimit)
		}
		limit = n
	}

	offset := 0
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return domain.SearchContext{}, domain.ErrValidation("invalid offset %q", raw)
		}
		offset = n
	}

	return domain.SearchContext{Query: query, Limit: limit, Offset: offset}, nil
}

// Health is the unauthenticated liveness endpoint.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
