package service

import (
	"context"
	"log/slog"

	"gridbase/internal/domain"
	"gridbase/internal/search"
)

// SearchService orchestrates federated workspace search: it gates on
// workspace existence and membership, then hands the request to the engine.
// A principal outside the workspace gets the same answer as for a missing
// workspace; the two are indistinguishable on purpose.
type SearchService struct {
	workspaces domain.WorkspaceRepository
	authz      domain.Authorizer
	engine     *search.Engine
	registry   *search.Registry
	logger     *slog.Logger
}

func NewSearchService(workspaces domain.WorkspaceRepository, authz domain.Authorizer, engine *search.Engine, registry *search.Registry, logger *slog.Logger) *SearchService {
	return &SearchService{
		workspaces: workspaces,
		authz:      authz,
		engine:     engine,
		registry:   registry,
		logger:     logger.With("component", "search"),
	}
}

func (s *SearchService) gate(ctx context.Context, p domain.Principal, workspaceID int64) (*domain.Workspace, error) {
	w, err := s.workspaces.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	ok, err := s.authz.CanReadWorkspace(ctx, p, workspaceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound("workspace %d not found", workspaceID)
	}
	return w, nil
}

// SearchWorkspace runs the federated search across all registered types and
// returns one priority-ordered page plus the has-more flag.
func (s *SearchService) SearchWorkspace(ctx context.Context, p domain.Principal, workspaceID int64, sc domain.SearchContext) ([]domain.SearchResult, bool, error) {
	w, err := s.gate(ctx, p, workspaceID)
	if err != nil {
		return nil, false, err
	}

	results, hasMore, err := s.engine.SearchAllTypes(ctx, p, w, sc)
	if err != nil {
		return nil, false, err
	}
	if results == nil {
		results = []domain.SearchResult{}
	}

	s.logger.DebugContext(ctx, "workspace search",
		"workspace_id", workspaceID, "results", len(results), "has_more", hasMore)
	return results, hasMore, nil
}

// SearchType runs a single registered item type on its own.
func (s *SearchService) SearchType(ctx context.Context, p domain.Principal, workspaceID int64, typeTag string, sc domain.SearchContext) ([]domain.SearchResult, error) {
	it, ok := s.registry.Get(typeTag)
	if !ok {
		return nil, domain.ErrNotFound("unknown search type %q", typeTag)
	}

	w, err := s.gate(ctx, p, workspaceID)
	if err != nil {
		return nil, err
	}

	results, err := it.Search(ctx, p, w, sc)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	return results, nil
}
