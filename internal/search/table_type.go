package search

import (
	"context"
	"database/sql"
	"fmt"

	"gridbase/internal/domain"
)

// TableType surfaces tables by substring match on their name. The subtitle
// and payload carry the owning database so results are self-describing.
type TableType struct {
	db    *sql.DB
	authz domain.Authorizer
}

func NewTableType(readDB *sql.DB, authz domain.Authorizer) *TableType {
	return &TableType{db: readDB, authz: authz}
}

func (t *TableType) Type() string           { return TypeTable }
func (t *TableType) Priority() int          { return PriorityTable }
func (t *TableType) SupportsFullText() bool { return false }

func (t *TableType) UnionFragment(ctx context.Context, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) (*Fragment, error) {
	ids, err := t.authz.ReadableTableIDs(ctx, p, w.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return EmptyFragment(TypeTable, PriorityTable), nil
	}

	query := fmt.Sprintf(`SELECT '%s' AS search_type, CAST(t.id AS TEXT) AS object_id,
	       t.id AS sort_key, NULL AS rank, %d AS priority,
	       t.name AS title, 'Table in ' || d.name AS subtitle,
	       json_object('workspace_id', d.workspace_id, 'database_id', d.id,
	                   'table_id', t.id, 'table_name', t.name,
	                   'database_name', d.name) AS payload
	 FROM tables t
	 JOIN databases d ON d.id = t.database_id
	 WHERE d.workspace_id = ? AND t.trashed = 0 AND d.trashed = 0
	   AND t.id IN (%s)
	   AND t.name LIKE ? ESCAPE '\'`,
		TypeTable, PriorityTable, inPlaceholders(len(ids)))

	args := make([]any, 0, len(ids)+2)
	args = append(args, w.ID)
	args = append(args, idArgs(ids)...)
	args = append(args, likePattern(sc.Query))

	return &Fragment{SQL: query, Args: args}, nil
}

func (t *TableType) Search(ctx context.Context, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) ([]domain.SearchResult, error) {
	return searchSingleType(ctx, t.db, t, p, w, sc)
}

func (t *TableType) Postprocess(_ context.Context, rows []domain.FragmentRow) ([]domain.SearchResult, error) {
	return defaultPostprocess(rows), nil
}
