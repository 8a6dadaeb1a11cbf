package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"gridbase/internal/domain"
)

// RowRepo manages the dynamic per-table row storage. Each catalog table owns
// a physical SQLite table named table_<id> with an integer primary key and
// one field_<id> TEXT column per field. Identifiers are derived from int64
// ids only, never from user input.
type RowRepo struct {
	db *sql.DB
}

func NewRowRepo(db *sql.DB) *RowRepo {
	return &RowRepo{db: db}
}

// UserTableName returns the physical storage table name for a catalog table.
func UserTableName(tableID int64) string {
	return fmt.Sprintf("table_%d", tableID)
}

// FieldColumn returns the physical column name for a field.
func FieldColumn(fieldID int64) string {
	return fmt.Sprintf("field_%d", fieldID)
}

// EnsureTable creates the physical storage table if it does not exist yet.
func (r *RowRepo) EnsureTable(ctx context.Context, tableID int64) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT)",
		UserTableName(tableID)))
	if err != nil {
		return fmt.Errorf("ensure row table %d: %w", tableID, err)
	}
	return nil
}

// AddFieldColumn adds the storage column for a newly created field.
func (r *RowRepo) AddFieldColumn(ctx context.Context, tableID, fieldID int64) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN %s TEXT",
		UserTableName(tableID), FieldColumn(fieldID)))
	if err != nil {
		return fmt.Errorf("add field column %d.%d: %w", tableID, fieldID, err)
	}
	return nil
}

// InsertRow stores a new row and returns its id. Missing fields stay NULL.
func (r *RowRepo) InsertRow(ctx context.Context, tableID int64, values map[int64]string) (int64, error) {
	fieldIDs := sortedKeys(values)
	if len(fieldIDs) == 0 {
		res, err := r.db.ExecContext(ctx, fmt.Sprintf(
			"INSERT INTO %s DEFAULT VALUES", UserTableName(tableID)))
		if err != nil {
			return 0, mapDBError(err)
		}
		return res.LastInsertId()
	}

	cols := make([]string, len(fieldIDs))
	args := make([]any, len(fieldIDs))
	for i, fid := range fieldIDs {
		cols[i] = FieldColumn(fid)
		args[i] = values[fid]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		UserTableName(tableID), strings.Join(cols, ", "), placeholders(len(cols)))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapDBError(err)
	}
	return res.LastInsertId()
}

// UpdateRow overwrites the given field values of one row.
func (r *RowRepo) UpdateRow(ctx context.Context, tableID, rowID int64, values map[int64]string) error {
	fieldIDs := sortedKeys(values)
	if len(fieldIDs) == 0 {
		return nil
	}

	sets := make([]string, len(fieldIDs))
	args := make([]any, 0, len(fieldIDs)+1)
	for i, fid := range fieldIDs {
		sets[i] = FieldColumn(fid) + " = ?"
		args = append(args, values[fid])
	}
	args = append(args, rowID)

	_, err := r.db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = ?",
		UserTableName(tableID), strings.Join(sets, ", ")), args...)
	return mapDBError(err)
}

func (r *RowRepo) DeleteRow(ctx context.Context, tableID, rowID int64) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE id = ?", UserTableName(tableID)), rowID)
	return mapDBError(err)
}

// PrimaryValues projects only the primary field's column for the given rows
// and returns each row's display string keyed by row id. NULL values are
// omitted so callers can apply their fallback title.
func (r *RowRepo) PrimaryValues(ctx context.Context, tableID, fieldID int64, rowIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(rowIDs))
	if len(rowIDs) == 0 {
		return out, nil
	}

	query := fmt.Sprintf("SELECT id, %s FROM %s WHERE id IN (%s)",
		FieldColumn(fieldID), UserTableName(tableID), placeholders(len(rowIDs)))

	rows, err := r.db.QueryContext(ctx, query, int64Args(rowIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var v sql.NullString
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		if v.Valid {
			out[id] = v.String
		}
	}
	return out, rows.Err()
}

// ListRows streams every row of a table with the requested field columns.
// Used by index rebuilds; not part of the search read path. A table whose
// physical storage was never provisioned has no rows.
func (r *RowRepo) ListRows(ctx context.Context, tableID int64, fieldIDs []int64) ([]domain.RowData, error) {
	exists, err := r.tableExists(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	cols := make([]string, 0, len(fieldIDs)+1)
	cols = append(cols, "id")
	for _, fid := range fieldIDs {
		cols = append(cols, FieldColumn(fid))
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY id",
		strings.Join(cols, ", "), UserTableName(tableID)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RowData
	for rows.Next() {
		rd := domain.RowData{Values: make(map[int64]string, len(fieldIDs))}
		dest := make([]any, 0, len(fieldIDs)+1)
		dest = append(dest, &rd.ID)
		vals := make([]sql.NullString, len(fieldIDs))
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, fid := range fieldIDs {
			if vals[i].Valid {
				rd.Values[fid] = vals[i].String
			}
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *RowRepo) tableExists(ctx context.Context, tableID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		UserTableName(tableID)).Scan(&n)
	return n > 0, err
}

func sortedKeys(m map[int64]string) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
