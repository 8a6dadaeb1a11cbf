package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gridbase/internal/db"
)

const searchTablePrefix = "workspace_search_"

// FTSIndex is the per-workspace full-text index backed by SQLite FTS5
// virtual tables. One table per workspace holds one entry per non-empty
// field value; only the value column is tokenized, the ids ride along
// unindexed for correlation.
//
// FTS5 requires a binary built with the sqlite_fts5 tag. Without it Ensure
// fails and Available reports false; search degrades instead of erroring.
type FTSIndex struct {
	db *sql.DB
}

func NewFTSIndex(sqlDB *sql.DB) *FTSIndex {
	return &FTSIndex{db: sqlDB}
}

// Available reports whether the linked SQLite build supports FTS5.
func (x *FTSIndex) Available(ctx context.Context) bool {
	return db.HasFTS5(ctx, x.db)
}

// TableName returns the physical index table name for a workspace.
func (x *FTSIndex) TableName(workspaceID int64) string {
	return fmt.Sprintf("%s%d", searchTablePrefix, workspaceID)
}

func (x *FTSIndex) Exists(ctx context.Context, workspaceID int64) (bool, error) {
	var n int
	err := x.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		x.TableName(workspaceID),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (x *FTSIndex) Ensure(ctx context.Context, workspaceID int64) error {
	_, err := x.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(value, field_id UNINDEXED, row_id UNINDEXED, table_id UNINDEXED)",
		x.TableName(workspaceID)))
	if err != nil {
		return fmt.Errorf("ensure search index for workspace %d: %w", workspaceID, err)
	}
	return nil
}

func (x *FTSIndex) Drop(ctx context.Context, workspaceID int64) error {
	_, err := x.db.ExecContext(ctx,
		"DROP TABLE IF EXISTS "+x.TableName(workspaceID))
	if err != nil {
		return fmt.Errorf("drop search index for workspace %d: %w", workspaceID, err)
	}
	return nil
}

var queryTokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// EscapeQuery sanitizes a raw user query into an FTS5 MATCH expression:
// each token is quoted, tokens are implicitly AND-combined, and the last
// token matches by prefix. Returns "" when no searchable token remains.
func (x *FTSIndex) EscapeQuery(raw string) string {
	tokens := queryTokenPattern.FindAllString(raw, -1)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + tok + `"`
	}
	quoted[len(quoted)-1] += "*"
	return strings.Join(quoted, " ")
}

// IndexRow replaces the index entries of one row with the given field
// values. Empty values are not indexed.
func (x *FTSIndex) IndexRow(ctx context.Context, workspaceID, tableID, rowID int64, values map[int64]string) error {
	table := x.TableName(workspaceID)

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE table_id = ? AND row_id = ?", tableID, rowID)
	if err != nil {
		return fmt.Errorf("deindex row %d.%d: %w", tableID, rowID, err)
	}

	for _, fieldID := range sortedKeys(values) {
		value := values[fieldID]
		if strings.TrimSpace(value) == "" {
			continue
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO "+table+" (value, field_id, row_id, table_id) VALUES (?, ?, ?, ?)",
			value, fieldID, rowID, tableID)
		if err != nil {
			return fmt.Errorf("index row %d.%d field %d: %w", tableID, rowID, fieldID, err)
		}
	}

	return tx.Commit()
}

func (x *FTSIndex) DeindexRow(ctx context.Context, workspaceID, tableID, rowID int64) error {
	_, err := x.db.ExecContext(ctx,
		"DELETE FROM "+x.TableName(workspaceID)+" WHERE table_id = ? AND row_id = ?",
		tableID, rowID)
	return err
}

func (x *FTSIndex) DeindexTable(ctx context.Context, workspaceID, tableID int64) error {
	_, err := x.db.ExecContext(ctx,
		"DELETE FROM "+x.TableName(workspaceID)+" WHERE table_id = ?", tableID)
	return err
}

// ListIndexedWorkspaceIDs returns the workspace id of every search index
// table present in the database. Used by the orphaned-index sweep.
func (x *FTSIndex) ListIndexedWorkspaceIDs(ctx context.Context) ([]int64, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE ?`,
		searchTablePrefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(name, searchTablePrefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
