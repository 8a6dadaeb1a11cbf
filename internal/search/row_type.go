package search

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"gridbase/internal/domain"
)

// RowType surfaces user rows through the per-workspace full-text index. The
// fragment keeps only the best-ranked field per row; the post-processor then
// resolves primary field values and hierarchy names for the page.
type RowType struct {
	db      *sql.DB
	index   domain.SearchIndex
	authz   domain.Authorizer
	catalog domain.CatalogRepository
	rows    domain.RowRepository
}

func NewRowType(readDB *sql.DB, index domain.SearchIndex, authz domain.Authorizer, catalog domain.CatalogRepository, rows domain.RowRepository) *RowType {
	return &RowType{db: readDB, index: index, authz: authz, catalog: catalog, rows: rows}
}

func (t *RowType) Type() string           { return TypeRow }
func (t *RowType) Priority() int          { return PriorityRow }
func (t *RowType) SupportsFullText() bool { return true }

// UnionFragment degrades to the empty fragment when the workspace has no
// index yet, when the query sanitizes to nothing, or when the principal can
// read no fields. The ROW_NUMBER window keeps one entry per row: highest
// rank first, lowest field id breaking ties.
func (t *RowType) UnionFragment(ctx context.Context, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) (*Fragment, error) {
	exists, err := t.index.Exists(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return EmptyFragment(TypeRow, PriorityRow), nil
	}

	match := t.index.EscapeQuery(sc.Query)
	if match == "" {
		return EmptyFragment(TypeRow, PriorityRow), nil
	}

	refs, err := t.authz.ReadableFieldRefs(ctx, p, w.ID)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return EmptyFragment(TypeRow, PriorityRow), nil
	}
	fieldIDs := make([]int64, len(refs))
	for i, ref := range refs {
		fieldIDs[i] = ref.FieldID
	}

	// The MATCH scan is materialized first: FTS5 resolves neither table
	// aliases nor window functions over the virtual table itself. bm25
	// returns lower-is-better and is negated, so the window order rank DESC
	// picks the best field, lowest field id breaking ties.
	tbl := t.index.TableName(w.ID)
	query := fmt.Sprintf(`SELECT search_type, object_id, sort_key, rank, priority, title, subtitle, payload
	 FROM (
	   SELECT '%s' AS search_type,
	          CAST(table_id AS TEXT) || '_' || CAST(row_id AS TEXT) AS object_id,
	          row_id AS sort_key,
	          rank,
	          %d AS priority,
	          'row ' || CAST(row_id AS TEXT) AS title,
	          NULL AS subtitle,
	          json_object('table_id', table_id, 'row_id', row_id,
	                      'field_id', field_id, 'query', ?) AS payload,
	          ROW_NUMBER() OVER (PARTITION BY table_id, row_id
	                             ORDER BY rank DESC, field_id ASC) AS rn
	   FROM (
	     SELECT table_id, row_id, field_id, -bm25(%s) AS rank
	     FROM %s
	     WHERE %s MATCH ?
	       AND field_id IN (%s)
	   )
	 ) WHERE rn = 1`,
		TypeRow, PriorityRow, tbl, tbl, tbl, inPlaceholders(len(fieldIDs)))

	args := make([]any, 0, len(fieldIDs)+2)
	args = append(args, sc.Query, match)
	args = append(args, idArgs(fieldIDs)...)

	return &Fragment{SQL: query, Args: args}, nil
}

func (t *RowType) Search(ctx context.Context, p domain.Principal, w *domain.Workspace, sc domain.SearchContext) ([]domain.SearchResult, error) {
	return searchSingleType(ctx, t.db, t, p, w, sc)
}

// Postprocess resolves row titles from each table's primary field with one
// batched query per distinct table on the page, plus one field ancestry
// query. Rows whose payload is incomplete are dropped.
func (t *RowType) Postprocess(ctx context.Context, rows []domain.FragmentRow) ([]domain.SearchResult, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	fieldIDSet := make(map[int64]struct{})
	for _, row := range rows {
		if fid, ok := payloadInt64(row.Payload, "field_id"); ok {
			fieldIDSet[fid] = struct{}{}
		}
	}
	if len(fieldIDSet) == 0 {
		return nil, nil
	}
	fieldIDs := make([]int64, 0, len(fieldIDSet))
	for fid := range fieldIDSet {
		fieldIDs = append(fieldIDs, fid)
	}
	sort.Slice(fieldIDs, func(i, j int) bool { return fieldIDs[i] < fieldIDs[j] })

	ancestry, err := t.catalog.GetFieldAncestry(ctx, fieldIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve field ancestry: %w", err)
	}
	byField := make(map[int64]domain.FieldAncestry, len(ancestry))
	primaryByTable := make(map[int64]*int64)
	for _, fa := range ancestry {
		byField[fa.ID] = fa
		primaryByTable[fa.TableID] = fa.PrimaryFieldID
	}

	rowIDsByTable := make(map[int64][]int64)
	for _, row := range rows {
		tableID, okT := payloadInt64(row.Payload, "table_id")
		rowID, okR := payloadInt64(row.Payload, "row_id")
		if okT && okR {
			rowIDsByTable[tableID] = append(rowIDsByTable[tableID], rowID)
		}
	}

	tableIDs := make([]int64, 0, len(rowIDsByTable))
	for tid := range rowIDsByTable {
		tableIDs = append(tableIDs, tid)
	}
	sort.Slice(tableIDs, func(i, j int) bool { return tableIDs[i] < tableIDs[j] })

	type tableRow struct{ tableID, rowID int64 }
	primaryValues := make(map[tableRow]string)
	for _, tableID := range tableIDs {
		pfID := primaryByTable[tableID]
		if pfID == nil {
			continue
		}
		values, err := t.rows.PrimaryValues(ctx, tableID, *pfID, rowIDsByTable[tableID])
		if err != nil {
			return nil, fmt.Errorf("resolve primary values for table %d: %w", tableID, err)
		}
		for rowID, v := range values {
			primaryValues[tableRow{tableID, rowID}] = v
		}
	}

	results := make([]domain.SearchResult, 0, len(rows))
	for _, row := range rows {
		tableID, okT := payloadInt64(row.Payload, "table_id")
		rowID, okR := payloadInt64(row.Payload, "row_id")
		fieldID, okF := payloadInt64(row.Payload, "field_id")
		if !okT || !okR || !okF {
			continue
		}

		fa, haveAncestry := byField[fieldID]

		title := fmt.Sprintf("Row #%d", rowID)
		var primaryValue *string
		if v, ok := primaryValues[tableRow{tableID, rowID}]; ok && v != "" {
			title = v
			primaryValue = &v
		}

		var subtitle *string
		metadata := map[string]any{
			"table_id": tableID,
			"row_id":   rowID,
			"field_id": fieldID,
		}
		if row.Rank != nil {
			metadata["rank"] = *row.Rank
		}
		if primaryValue != nil {
			metadata["primary_field_value"] = *primaryValue
		}
		if haveAncestry {
			s := fmt.Sprintf("Row in %s / %s", fa.DatabaseName, fa.TableName)
			subtitle = &s
			metadata["workspace_id"] = fa.WorkspaceID
			metadata["database_id"] = fa.DatabaseID
			metadata["database_name"] = fa.DatabaseName
			metadata["table_name"] = fa.TableName
			metadata["field_name"] = fa.Name
		}

		results = append(results, domain.SearchResult{
			Type:     TypeRow,
			ID:       row.ObjectID,
			Title:    title,
			Subtitle: subtitle,
			Metadata: metadata,
		})
	}

	return results, nil
}
