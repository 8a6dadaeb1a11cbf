// Package service contains the application services: authorization, search
// orchestration, and search index maintenance.
package service

import (
	"context"
	"errors"
	"log/slog"

	"gridbase/internal/domain"
)

// AuthorizationService resolves a principal's effective read access inside a
// workspace. Base membership roles can be overridden per database or table
// by role assignments; the most specific assignment wins, and NO_ACCESS
// hides the subtree.
//
// Denial is expressed as absence: callers get smaller id sets, not errors.
type AuthorizationService struct {
	users      domain.UserRepository
	membership domain.MembershipRepository
	catalog    domain.CatalogRepository
	logger     *slog.Logger
}

func NewAuthorizationService(users domain.UserRepository, membership domain.MembershipRepository, catalog domain.CatalogRepository, logger *slog.Logger) *AuthorizationService {
	return &AuthorizationService{
		users:      users,
		membership: membership,
		catalog:    catalog,
		logger:     logger.With("component", "authorization"),
	}
}

// access is one principal's resolved access state within a workspace.
type access struct {
	member   bool
	baseRole string
	byDB     map[int64]string
	byTable  map[int64]string
}

func (s *AuthorizationService) resolve(ctx context.Context, p domain.Principal, workspaceID int64) (*access, error) {
	user, err := s.users.GetByUsername(ctx, p.Username)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return &access{}, nil
		}
		return nil, err
	}

	role, err := s.membership.GetMemberRole(ctx, workspaceID, user.ID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return &access{}, nil
		}
		return nil, err
	}

	a := &access{
		member:   true,
		baseRole: role,
		byDB:     make(map[int64]string),
		byTable:  make(map[int64]string),
	}

	assignments, err := s.membership.ListAssignments(ctx, workspaceID, user.ID)
	if err != nil {
		return nil, err
	}
	for _, asg := range assignments {
		switch asg.ScopeType {
		case domain.ScopeDatabase:
			a.byDB[asg.ScopeID] = asg.Role
		case domain.ScopeTable:
			a.byTable[asg.ScopeID] = asg.Role
		}
	}
	return a, nil
}

func (a *access) databaseRole(databaseID int64) string {
	if role, ok := a.byDB[databaseID]; ok {
		return role
	}
	return a.baseRole
}

func (a *access) tableRole(tableID, databaseID int64) string {
	if role, ok := a.byTable[tableID]; ok {
		return role
	}
	return a.databaseRole(databaseID)
}

// CanReadWorkspace reports whether the principal is a member of the
// workspace at all. Members with a NO_ACCESS base role still see the
// workspace; their scoped grants decide what is inside.
func (s *AuthorizationService) CanReadWorkspace(ctx context.Context, p domain.Principal, workspaceID int64) (bool, error) {
	a, err := s.resolve(ctx, p, workspaceID)
	if err != nil {
		return false, err
	}
	return a.member, nil
}

func (s *AuthorizationService) ReadableDatabaseIDs(ctx context.Context, p domain.Principal, workspaceID int64) ([]int64, error) {
	a, err := s.resolve(ctx, p, workspaceID)
	if err != nil {
		return nil, err
	}
	if !a.member {
		return nil, nil
	}

	databases, err := s.catalog.ListDatabases(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, db := range databases {
		if domain.RoleCanRead(a.databaseRole(db.ID)) {
			ids = append(ids, db.ID)
		}
	}
	return ids, nil
}

func (s *AuthorizationService) ReadableTableIDs(ctx context.Context, p domain.Principal, workspaceID int64) ([]int64, error) {
	tables, err := s.readableTables(ctx, p, workspaceID)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, t := range tables {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// ReadableFieldRefs returns a (field id, table id) pair for every field the
// principal can read. Fields inherit their table's effective role.
func (s *AuthorizationService) ReadableFieldRefs(ctx context.Context, p domain.Principal, workspaceID int64) ([]domain.FieldRef, error) {
	tables, err := s.readableTables(ctx, p, workspaceID)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, nil
	}
	readable := make(map[int64]struct{}, len(tables))
	for _, t := range tables {
		readable[t.ID] = struct{}{}
	}

	refs, err := s.catalog.ListFieldRefs(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var out []domain.FieldRef
	for _, ref := range refs {
		if _, ok := readable[ref.TableID]; ok {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (s *AuthorizationService) readableTables(ctx context.Context, p domain.Principal, workspaceID int64) ([]domain.Table, error) {
	a, err := s.resolve(ctx, p, workspaceID)
	if err != nil {
		return nil, err
	}
	if !a.member {
		return nil, nil
	}

	tables, err := s.catalog.ListTables(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var out []domain.Table
	for _, t := range tables {
		if domain.RoleCanRead(a.tableRole(t.ID, t.DatabaseID)) {
			out = append(out, t)
		}
	}
	return out, nil
}
