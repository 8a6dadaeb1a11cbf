package repository

import (
	"context"
	"database/sql"

	"gridbase/internal/domain"
)

type MembershipRepo struct {
	db *sql.DB
}

func NewMembershipRepo(db *sql.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

func (r *MembershipRepo) GetMemberRole(ctx context.Context, workspaceID, userID int64) (string, error) {
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM workspace_users WHERE workspace_id = ? AND user_id = ?`,
		workspaceID, userID,
	).Scan(&role)
	if err != nil {
		return "", mapDBError(err)
	}
	return role, nil
}

func (r *MembershipRepo) AddMember(ctx context.Context, workspaceID, userID int64, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workspace_users (workspace_id, user_id, role) VALUES (?, ?, ?)`,
		workspaceID, userID, role)
	return mapDBError(err)
}

func (r *MembershipRepo) ListAssignments(ctx context.Context, workspaceID, userID int64) ([]domain.RoleAssignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, user_id, scope_type, scope_id, role
		 FROM role_assignments WHERE workspace_id = ? AND user_id = ?`,
		workspaceID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoleAssignment
	for rows.Next() {
		var a domain.RoleAssignment
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.UserID, &a.ScopeType, &a.ScopeID, &a.Role); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *MembershipRepo) Assign(ctx context.Context, a domain.RoleAssignment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_assignments (workspace_id, user_id, scope_type, scope_id, role)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (workspace_id, user_id, scope_type, scope_id)
		 DO UPDATE SET role = excluded.role`,
		a.WorkspaceID, a.UserID, a.ScopeType, a.ScopeID, a.Role)
	return mapDBError(err)
}
