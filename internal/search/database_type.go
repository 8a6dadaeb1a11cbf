package search

import (
	"context"
	"database/sql"
	"fmt"

	"gridbase/internal/domain"
)

// DatabaseType surfaces databases by substring match on their name.
type DatabaseType struct {
	db    *sql.DB
	authz domain.Authorizer
}

func NewDatabaseType(readDB *sql.DB, authz domain.Authorizer) *DatabaseType {
	return &DatabaseType{db: readDB, authz: authz}
}

func (t *DatabaseType) Type() string           { return TypeDatabase }
func (t *DatabaseType) Priority() int          { return PriorityDatabase }
func (t *DatabaseType) SupportsFullText() bool { return false }

func (t *DatabaseType) UnionFragment(ctx context.Context, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) (*Fragment, error) {
	ids, err := t.authz.ReadableDatabaseIDs(ctx, p, w.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return EmptyFragment(TypeDatabase, PriorityDatabase), nil
	}

	query := fmt.Sprintf(`SELECT '%s' AS search_type, CAST(d.id AS TEXT) AS object_id,
	       d.id AS sort_key, NULL AS rank, %d AS priority,
	       d.name AS title, 'Database' AS subtitle,
	       json_object('workspace_id', d.workspace_id, 'workspace_name', ?,
	                   'database_id', d.id, 'database_name', d.name,
	                   'created_on', d.created_on, 'updated_on', d.updated_on) AS payload
	 FROM databases d
	 WHERE d.workspace_id = ? AND d.trashed = 0
	   AND d.id IN (%s)
	   AND d.name LIKE ? ESCAPE '\'`,
		TypeDatabase, PriorityDatabase, inPlaceholders(len(ids)))

	args := make([]any, 0, len(ids)+3)
	args = append(args, w.Name, w.ID)
	args = append(args, idArgs(ids)...)
	args = append(args, likePattern(sc.Query))

	return &Fragment{SQL: query, Args: args}, nil
}

func (t *DatabaseType) Search(ctx context.Context, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) ([]domain.SearchResult, error) {
	return searchSingleType(ctx, t.db, t, p, w, sc)
}

func (t *DatabaseType) Postprocess(_ context.Context, rows []domain.FragmentRow) ([]domain.SearchResult, error) {
	return defaultPostprocess(rows), nil
}
