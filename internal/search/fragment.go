package search

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gridbase/internal/domain"
)

// Fragment is one type's contribution to the federated union: a SELECT
// producing exactly the standard columns (search_type, object_id, sort_key,
// rank, priority, title, subtitle, payload) plus its bind arguments.
type Fragment struct {
	SQL  string
	Args []any
}

// fragmentColumnList is the SELECT list shared by the union wrapper and the
// single-type path.
var fragmentColumnList = strings.Join(domain.FragmentColumns, ", ")

// EmptyFragment contributes no rows while preserving the union's column
// shape, so a type with nothing to say never breaks the combined query.
func EmptyFragment(searchType string, priority int) *Fragment {
	return &Fragment{
		SQL: `SELECT ? AS search_type, '' AS object_id, 0 AS sort_key,
		       NULL AS rank, ? AS priority, NULL AS title, NULL AS subtitle,
		       '{}' AS payload
		 WHERE 0`,
		Args: []any{searchType, priority},
	}
}

// likePattern turns a raw query into a case-insensitive substring LIKE
// pattern, escaping the LIKE metacharacters. Pair with ESCAPE '\'.
func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
	return "%" + escaped + "%"
}

// scanFragmentRows drains a standard-column result set into FragmentRows.
func scanFragmentRows(rows *sql.Rows) ([]domain.FragmentRow, error) {
	var out []domain.FragmentRow
	for rows.Next() {
		var (
			fr       domain.FragmentRow
			rank     sql.NullFloat64
			title    sql.NullString
			subtitle sql.NullString
			payload  string
		)
		err := rows.Scan(&fr.SearchType, &fr.ObjectID, &fr.SortKey, &rank,
			&fr.Priority, &title, &subtitle, &payload)
		if err != nil {
			return nil, err
		}
		if rank.Valid {
			fr.Rank = &rank.Float64
		}
		if title.Valid {
			fr.Title = &title.String
		}
		if subtitle.Valid {
			fr.Subtitle = &subtitle.String
		}
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &fr.Payload); err != nil {
				return nil, fmt.Errorf("decode payload for %s %s: %w", fr.SearchType, fr.ObjectID, err)
			}
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

// defaultPostprocess maps fragment rows straight to results: payload becomes
// metadata, titles fall back to the object id. Types needing extra lookups
// implement their own Postprocess.
func defaultPostprocess(rows []domain.FragmentRow) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(rows))
	for _, row := range rows {
		r := domain.SearchResult{
			Type:     row.SearchType,
			ID:       row.ObjectID,
			Subtitle: row.Subtitle,
			Metadata: row.Payload,
		}
		if row.Title != nil && *row.Title != "" {
			r.Title = *row.Title
		} else {
			r.Title = row.ObjectID
		}
		if v, ok := payloadString(row.Payload, "description"); ok {
			r.Description = &v
		}
		if v, ok := payloadString(row.Payload, "created_on"); ok {
			r.CreatedOn = &v
		}
		if v, ok := payloadString(row.Payload, "updated_on"); ok {
			r.UpdatedOn = &v
		}
		results = append(results, r)
	}
	return results
}

func payloadInt64(p map[string]any, key string) (int64, bool) {
	switch v := p[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func payloadString(p map[string]any, key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok && v != ""
}
