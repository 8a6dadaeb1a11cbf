package repository

import (
	"context"
	"database/sql"

	"gridbase/internal/domain"
)

type WorkspaceRepo struct {
	db *sql.DB
}

func NewWorkspaceRepo(db *sql.DB) *WorkspaceRepo {
	return &WorkspaceRepo{db: db}
}

// Get returns a workspace by id. Trashed workspaces are treated the same as
// missing ones.
func (r *WorkspaceRepo) Get(ctx context.Context, id int64) (*domain.Workspace, error) {
	var w domain.Workspace
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, trashed, created_on, updated_on
		 FROM workspaces WHERE id = ? AND trashed = 0`, id,
	).Scan(&w.ID, &w.Name, &w.Trashed, &w.CreatedOn, &w.UpdatedOn)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &w, nil
}

func (r *WorkspaceRepo) Create(ctx context.Context, name string) (*domain.Workspace, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO workspaces (name) VALUES (?)`, name)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *WorkspaceRepo) MarkTrashed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE workspaces SET trashed = 1, updated_on = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("workspace %d not found", id)
	}
	return nil
}

func (r *WorkspaceRepo) ListTrashedIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM workspaces WHERE trashed = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
