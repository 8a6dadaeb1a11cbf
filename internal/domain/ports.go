package domain

import "context"

// UserRepository resolves authenticated principals to user accounts.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, username string) (*User, error)
}

// WorkspaceRepository provides workspace access. Get returns NotFoundError
// for unknown or trashed workspaces.
type WorkspaceRepository interface {
	Get(ctx context.Context, id int64) (*Workspace, error)
	Create(ctx context.Context, name string) (*Workspace, error)
	MarkTrashed(ctx context.Context, id int64) error
	ListTrashedIDs(ctx context.Context) ([]int64, error)
}

// MembershipRepository answers who may do what inside a workspace.
type MembershipRepository interface {
	// GetMemberRole returns the base workspace role for a user, or
	// NotFoundError when the user is not a member.
	GetMemberRole(ctx context.Context, workspaceID, userID int64) (string, error)
	AddMember(ctx context.Context, workspaceID, userID int64, role string) error
	// ListAssignments returns the scoped role overrides for a user within a
	// workspace.
	ListAssignments(ctx context.Context, workspaceID, userID int64) ([]RoleAssignment, error)
	Assign(ctx context.Context, a RoleAssignment) error
}

// FieldAncestry is a field joined with the names and ids of its ancestors,
// plus the id of its table's primary field. Fetched in one query so row
// post-processing stays bounded by the number of fields, not rows.
type FieldAncestry struct {
	Field
	TableName      string
	DatabaseID     int64
	DatabaseName   string
	WorkspaceID    int64
	PrimaryFieldID *int64
}

// CatalogRepository reads the workspace catalog (databases, tables, fields).
// All listings exclude trashed records and records under trashed ancestors.
type CatalogRepository interface {
	ListDatabases(ctx context.Context, workspaceID int64) ([]Database, error)
	ListTables(ctx context.Context, workspaceID int64) ([]Table, error)
	ListFieldRefs(ctx context.Context, workspaceID int64) ([]FieldRef, error)
	GetFieldAncestry(ctx context.Context, fieldIDs []int64) ([]FieldAncestry, error)
}

// RowData is one stored row: its id plus the text value of each field.
type RowData struct {
	ID     int64
	Values map[int64]string
}

// RowRepository reads user row data from the dynamic per-table storage.
type RowRepository interface {
	// PrimaryValues projects only the given field's column for the given
	// rows and returns each row's display string, keyed by row id.
	PrimaryValues(ctx context.Context, tableID, fieldID int64, rowIDs []int64) (map[int64]string, error)
	// ListRows streams every row of a table with the requested field
	// columns. Used by index rebuilds, not the search read path.
	ListRows(ctx context.Context, tableID int64, fieldIDs []int64) ([]RowData, error)
}

// SearchIndex is the per-workspace full-text index collaborator. A missing
// index table or an unsearchable query is never an error: readers degrade
// to the empty fragment.
type SearchIndex interface {
	// Available reports whether the storage engine supports full text at
	// all; when false, maintenance is a no-op and search degrades.
	Available(ctx context.Context) bool
	Exists(ctx context.Context, workspaceID int64) (bool, error)
	Ensure(ctx context.Context, workspaceID int64) error
	Drop(ctx context.Context, workspaceID int64) error
	// TableName returns the physical index table name for a workspace.
	TableName(workspaceID int64) string
	// EscapeQuery sanitizes a raw user query into the index's match syntax.
	// Returns "" when nothing searchable remains (stopwords, symbols only).
	EscapeQuery(raw string) string
	IndexRow(ctx context.Context, workspaceID, tableID, rowID int64, values map[int64]string) error
	DeindexRow(ctx context.Context, workspaceID, tableID, rowID int64) error
	DeindexTable(ctx context.Context, workspaceID, tableID int64) error
	ListIndexedWorkspaceIDs(ctx context.Context) ([]int64, error)
}

// Authorizer is the permission collaborator consumed by the search core.
// Denial is absence: filtered ids silently disappear from result sets, an
// error is reserved for storage failures.
type Authorizer interface {
	CanReadWorkspace(ctx context.Context, p Principal, workspaceID int64) (bool, error)
	ReadableDatabaseIDs(ctx context.Context, p Principal, workspaceID int64) ([]int64, error)
	ReadableTableIDs(ctx context.Context, p Principal, workspaceID int64) ([]int64, error)
	ReadableFieldRefs(ctx context.Context, p Principal, workspaceID int64) ([]FieldRef, error)
}
