package repository

import (
	"context"
	"database/sql"

	"gridbase/internal/domain"
)

// CatalogRepo reads and writes the workspace catalog (databases, tables,
// fields). All read paths exclude trashed records and records whose
// ancestors are trashed.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) ListDatabases(ctx context.Context, workspaceID int64) ([]domain.Database, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.workspace_id, d.name, d.sort_order, d.trashed, d.created_on, d.updated_on
		 FROM databases d
		 JOIN workspaces w ON w.id = d.workspace_id
		 WHERE d.workspace_id = ? AND d.trashed = 0 AND w.trashed = 0
		 ORDER BY d.sort_order, d.id`,
		workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Database
	for rows.Next() {
		var d domain.Database
		if err := rows.Scan(&d.ID, &d.WorkspaceID, &d.Name, &d.Order, &d.Trashed, &d.CreatedOn, &d.UpdatedOn); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) ListTables(ctx context.Context, workspaceID int64) ([]domain.Table, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.database_id, t.name, t.sort_order, t.trashed, t.created_on, t.updated_on
		 FROM tables t
		 JOIN databases d ON d.id = t.database_id
		 JOIN workspaces w ON w.id = d.workspace_id
		 WHERE d.workspace_id = ? AND t.trashed = 0 AND d.trashed = 0 AND w.trashed = 0
		 ORDER BY t.sort_order, t.id`,
		workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Table
	for rows.Next() {
		var t domain.Table
		if err := rows.Scan(&t.ID, &t.DatabaseID, &t.Name, &t.Order, &t.Trashed, &t.CreatedOn, &t.UpdatedOn); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) ListFieldRefs(ctx context.Context, workspaceID int64) ([]domain.FieldRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.id, f.table_id
		 FROM fields f
		 JOIN tables t ON t.id = f.table_id
		 JOIN databases d ON d.id = t.database_id
		 JOIN workspaces w ON w.id = d.workspace_id
		 WHERE d.workspace_id = ?
		   AND f.trashed = 0 AND t.trashed = 0 AND d.trashed = 0 AND w.trashed = 0
		 ORDER BY f.id`,
		workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FieldRef
	for rows.Next() {
		var fr domain.FieldRef
		if err := rows.Scan(&fr.FieldID, &fr.TableID); err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}

// GetFieldAncestry resolves fields together with their table and database
// names and each table's primary field id, in one query. Used by row result
// post-processing so the query count stays bounded by fields, not rows.
func (r *CatalogRepo) GetFieldAncestry(ctx context.Context, fieldIDs []int64) ([]domain.FieldAncestry, error) {
	if len(fieldIDs) == 0 {
		return nil, nil
	}

	query := `SELECT f.id, f.table_id, f.name, f.description, f.field_type, f.sort_order,
		        f.is_primary, f.trashed, f.created_on, f.updated_on,
		        t.name, d.id, d.name, d.workspace_id,
		        (SELECT pf.id FROM fields pf
		         WHERE pf.table_id = f.table_id AND pf.is_primary = 1 AND pf.trashed = 0
		         LIMIT 1)
		 FROM fields f
		 JOIN tables t ON t.id = f.table_id
		 JOIN databases d ON d.id = t.database_id
		 WHERE f.id IN (` + placeholders(len(fieldIDs)) + `)`

	rows, err := r.db.QueryContext(ctx, query, int64Args(fieldIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FieldAncestry
	for rows.Next() {
		var fa domain.FieldAncestry
		err := rows.Scan(
			&fa.ID, &fa.TableID, &fa.Name, &fa.Description, &fa.Type, &fa.Order,
			&fa.Primary, &fa.Trashed, &fa.CreatedOn, &fa.UpdatedOn,
			&fa.TableName, &fa.DatabaseID, &fa.DatabaseName, &fa.WorkspaceID,
			&fa.PrimaryFieldID,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, fa)
	}
	return out, rows.Err()
}

// CreateDatabase, CreateTable and CreateField exist for seeding, tests and
// the index maintenance paths; the search service itself only reads.

func (r *CatalogRepo) CreateDatabase(ctx context.Context, workspaceID int64, name string, order int) (*domain.Database, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO databases (workspace_id, name, sort_order) VALUES (?, ?, ?)`,
		workspaceID, name, order)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	var d domain.Database
	err = r.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, sort_order, trashed, created_on, updated_on
		 FROM databases WHERE id = ?`, id,
	).Scan(&d.ID, &d.WorkspaceID, &d.Name, &d.Order, &d.Trashed, &d.CreatedOn, &d.UpdatedOn)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &d, nil
}

func (r *CatalogRepo) CreateTable(ctx context.Context, databaseID int64, name string, order int) (*domain.Table, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tables (database_id, name, sort_order) VALUES (?, ?, ?)`,
		databaseID, name, order)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	var t domain.Table
	err = r.db.QueryRowContext(ctx,
		`SELECT id, database_id, name, sort_order, trashed, created_on, updated_on
		 FROM tables WHERE id = ?`, id,
	).Scan(&t.ID, &t.DatabaseID, &t.Name, &t.Order, &t.Trashed, &t.CreatedOn, &t.UpdatedOn)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &t, nil
}

func (r *CatalogRepo) CreateField(ctx context.Context, tableID int64, name, description string, order int, primary bool) (*domain.Field, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO fields (table_id, name, description, sort_order, is_primary)
		 VALUES (?, ?, ?, ?, ?)`,
		tableID, name, description, order, boolToInt(primary))
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	var f domain.Field
	err = r.db.QueryRowContext(ctx,
		`SELECT id, table_id, name, description, field_type, sort_order, is_primary, trashed, created_on, updated_on
		 FROM fields WHERE id = ?`, id,
	).Scan(&f.ID, &f.TableID, &f.Name, &f.Description, &f.Type, &f.Order, &f.Primary, &f.Trashed, &f.CreatedOn, &f.UpdatedOn)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &f, nil
}

func (r *CatalogRepo) MarkTableTrashed(ctx context.Context, tableID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tables SET trashed = 1, updated_on = CURRENT_TIMESTAMP WHERE id = ?`, tableID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("table %d not found", tableID)
	}
	return nil
}

func (r *CatalogRepo) MarkFieldTrashed(ctx context.Context, fieldID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fields SET trashed = 1, updated_on = CURRENT_TIMESTAMP WHERE id = ?`, fieldID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("field %d not found", fieldID)
	}
	return nil
}
