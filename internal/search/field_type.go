package search

import (
	"context"
	"database/sql"
	"fmt"

	"gridbase/internal/domain"
)

// FieldType surfaces field definitions by substring match on their name or
// description.
type FieldType struct {
	db    *sql.DB
	authz domain.Authorizer
}

func NewFieldType(readDB *sql.DB, authz domain.Authorizer) *FieldType {
	return &FieldType{db: readDB, authz: authz}
}

func (t *FieldType) Type() string           { return TypeField }
func (t *FieldType) Priority() int          { return PriorityField }
func (t *FieldType) SupportsFullText() bool { return false }

func (t *FieldType) UnionFragment(ctx context.Context, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) (*Fragment, error) {
	refs, err := t.authz.ReadableFieldRefs(ctx, p, w.ID)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return EmptyFragment(TypeField, PriorityField), nil
	}
	fieldIDs := make([]int64, len(refs))
	for i, ref := range refs {
		fieldIDs[i] = ref.FieldID
	}

	query := fmt.Sprintf(`SELECT '%s' AS search_type, CAST(f.id AS TEXT) AS object_id,
	       f.id AS sort_key, NULL AS rank, %d AS priority,
	       f.name AS title,
	       'Field in ' || d.name || ' / ' || t.name AS subtitle,
	       json_object('workspace_id', d.workspace_id, 'database_id', d.id,
	                   'table_id', t.id, 'field_id', f.id) AS payload
	 FROM fields f
	 JOIN tables t ON t.id = f.table_id
	 JOIN databases d ON d.id = t.database_id
	 WHERE d.workspace_id = ? AND f.trashed = 0 AND t.trashed = 0 AND d.trashed = 0
	   AND f.id IN (%s)
	   AND (f.name LIKE ? ESCAPE '\' OR f.description LIKE ? ESCAPE '\')`,
		TypeField, PriorityField, inPlaceholders(len(fieldIDs)))

	pattern := likePattern(sc.Query)
	args := make([]any, 0, len(fieldIDs)+3)
	args = append(args, w.ID)
	args = append(args, idArgs(fieldIDs)...)
	args = append(args, pattern, pattern)

	return &Fragment{SQL: query, Args: args}, nil
}

func (t *FieldType) Search(ctx context.Context, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) ([]domain.SearchResult, error) {
	return searchSingleType(ctx, t.db, t, p, w, sc)
}

func (t *FieldType) Postprocess(_ context.Context, rows []domain.FragmentRow) ([]domain.SearchResult, error) {
	return defaultPostprocess(rows), nil
}
