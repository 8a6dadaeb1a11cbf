package search

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"gridbase/internal/domain"
)

// Engine merges every registered item type into one globally ordered,
// paginated result feed.
type Engine struct {
	db       *sql.DB
	registry *Registry
	logger   *slog.Logger
}

func NewEngine(readDB *sql.DB, registry *Registry, logger *slog.Logger) *Engine {
	return &Engine{
		db:       readDB,
		registry: registry,
		logger:   logger.With("component", "search-engine"),
	}
}

// SearchAllTypes builds a UNION ALL over every type's fragment, applies the
// global ordering (priority asc, rank desc nulls last, sort_key asc), probes
// one row past the page for the has-more flag, post-processes the page per
// type, and re-interleaves the results in page order.
//
// A failure building any fragment or post-processing any type fails the
// whole request; partial feeds are never returned.
func (e *Engine) SearchAllTypes(ctx context.Context, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) ([]domain.SearchResult, bool, error) {
	types := e.registry.All()
	if len(types) == 0 {
		return nil, false, nil
	}

	parts := make([]string, 0, len(types))
	var args []any
	for _, t := range types {
		frag, err := t.UnionFragment(ctx, p, w, sc)
		if err != nil {
			return nil, false, fmt.Errorf("build %s fragment: %w", t.Type(), err)
		}
		parts = append(parts, frag.SQL)
		args = append(args, frag.Args...)
	}

	query := "SELECT " + fragmentColumnList + " FROM (" +
		strings.Join(parts, " UNION ALL ") +
		") ORDER BY priority ASC, rank DESC NULLS LAST, sort_key ASC LIMIT ? OFFSET ?"
	args = append(args, sc.Limit+1, sc.Offset)

	e.logger.DebugContext(ctx, "federated search",
		"workspace_id", w.ID, "types", len(types), "limit", sc.Limit, "offset", sc.Offset)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("execute federated search: %w", err)
	}
	defer rows.Close()

	page, err := scanFragmentRows(rows)
	if err != nil {
		return nil, false, fmt.Errorf("scan federated search: %w", err)
	}

	hasMore := len(page) > sc.Limit
	if hasMore {
		page = page[:sc.Limit]
	}

	results, err := e.postprocessPage(ctx, page)
	if err != nil {
		return nil, false, err
	}
	return results, hasMore, nil
}

// postprocessPage groups the page rows by type, post-processes each group,
// then merges the results back in page order, matching them by object id.
// Results a post-processor dropped disappear from the page.
func (e *Engine) postprocessPage(ctx context.Context, page []domain.FragmentRow) ([]domain.SearchResult, error) {
	if len(page) == 0 {
		return []domain.SearchResult{}, nil
	}

	grouped := make(map[string][]domain.FragmentRow)
	var groupOrder []string
	for _, row := range page {
		if _, seen := grouped[row.SearchType]; !seen {
			groupOrder = append(groupOrder, row.SearchType)
		}
		grouped[row.SearchType] = append(grouped[row.SearchType], row)
	}

	byTypeAndID := make(map[string]map[string]domain.SearchResult)
	for _, typeTag := range groupOrder {
		it, ok := e.registry.Get(typeTag)
		if !ok {
			return nil, fmt.Errorf("unregistered search type %q in result page", typeTag)
		}
		processed, err := it.Postprocess(ctx, grouped[typeTag])
		if err != nil {
			return nil, fmt.Errorf("postprocess %s results: %w", typeTag, err)
		}
		byID := make(map[string]domain.SearchResult, len(processed))
		for _, r := range processed {
			byID[r.ID] = r
		}
		byTypeAndID[typeTag] = byID
	}

	results := make([]domain.SearchResult, 0, len(page))
	for _, row := range page {
		if r, ok := byTypeAndID[row.SearchType][row.ObjectID]; ok {
			results = append(results, r)
			delete(byTypeAndID[row.SearchType], row.ObjectID)
		}
	}
	return results, nil
}

// searchSingleType runs one type alone: its fragment with type-local
// ordering and pagination, then its post-processor.
func searchSingleType(ctx context.Context, db *sql.DB, t ItemType, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) ([]domain.SearchResult, error) {
	frag, err := t.UnionFragment(ctx, p, w, sc)
	if err != nil {
		return nil, fmt.Errorf("build %s fragment: %w", t.Type(), err)
	}

	query := "SELECT " + fragmentColumnList + " FROM (" + frag.SQL +
		") ORDER BY rank DESC NULLS LAST, sort_key ASC LIMIT ? OFFSET ?"
	args := append(append([]any{}, frag.Args...), sc.Limit, sc.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute %s search: %w", t.Type(), err)
	}
	defer rows.Close()

	page, err := scanFragmentRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s search: %w", t.Type(), err)
	}
	return t.Postprocess(ctx, page)
}

func inPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
