package domain

import "time"

// Roles assignable to a user, either on the whole workspace or scoped to a
// single database or table. More specific assignments override broader ones;
// RoleNoAccess hides the subtree entirely.
const (
	RoleAdmin    = "ADMIN"
	RoleMember   = "MEMBER"
	RoleViewer   = "VIEWER"
	RoleNoAccess = "NO_ACCESS"
)

// Scope types for role assignments.
const (
	ScopeDatabase = "database"
	ScopeTable    = "table"
)

// RoleCanRead reports whether a role grants read access.
func RoleCanRead(role string) bool {
	switch role {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	default:
		return false
	}
}

// User is a platform account. Authentication happens upstream (JWT/OIDC);
// the username is the stable key the token's subject maps to.
type User struct {
	ID        int64
	Username  string
	CreatedOn time.Time
}

// Workspace is the top-level container all search operations are scoped to.
type Workspace struct {
	ID        int64
	Name      string
	Trashed   bool
	CreatedOn time.Time
	UpdatedOn time.Time
}

// WorkspaceMember links a user to a workspace with a base role.
type WorkspaceMember struct {
	WorkspaceID int64
	UserID      int64
	Role        string
	CreatedOn   time.Time
}

// RoleAssignment is a scoped role override (database- or table-level).
type RoleAssignment struct {
	ID          int64
	WorkspaceID int64
	UserID      int64
	ScopeType   string
	ScopeID     int64
	Role        string
}

// Database is an application holding tables inside a workspace.
type Database struct {
	ID          int64
	WorkspaceID int64
	Name        string
	Order       int
	Trashed     bool
	CreatedOn   time.Time
	UpdatedOn   time.Time
}

// Table holds user-defined fields and rows. Row data lives in a physical
// per-table SQLite table named by UserTableName.
type Table struct {
	ID         int64
	DatabaseID int64
	Name       string
	Order      int
	Trashed    bool
	CreatedOn  time.Time
	UpdatedOn  time.Time
}

// Field is a column definition of a Table. Exactly one non-trashed field per
// table is the primary field, whose value titles the table's rows.
type Field struct {
	ID          int64
	TableID     int64
	Name        string
	Description string
	Type        string
	Order       int
	Primary     bool
	Trashed     bool
	CreatedOn   time.Time
	UpdatedOn   time.Time
}

// FieldRef pairs a field with its table, letting text-index hits be
// correlated back to a table without touching the per-table row storage.
type FieldRef struct {
	FieldID int64
	TableID int64
}
