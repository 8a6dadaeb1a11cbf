// Package search implements the federated workspace search core: searchable
// item types project permission-filtered SQL fragments into a shared column
// shape, and the engine unions, orders, paginates, and post-processes them
// into one result feed.
package search

import (
	"context"
	"fmt"

	"gridbase/internal/domain"
)

// Type tags of the built-in searchable item types.
const (
	TypeDatabase = "database"
	TypeTable    = "database_table"
	TypeField    = "database_field"
	TypeRow      = "database_row"
)

// Priorities are coarse per-type ordering buckets; lower sorts first.
const (
	PriorityDatabase = 1
	PriorityTable    = 2
	PriorityField    = 6
	PriorityRow      = 7
)

// ItemType is one searchable entity type participating in federated search.
type ItemType interface {
	Type() string
	Priority() int
	SupportsFullText() bool

	// UnionFragment returns this type's permission-filtered query fragment.
	// The fragment must select exactly the standard columns and no
	// limit/offset. Types with nothing to contribute return the empty
	// fragment, never nil.
	UnionFragment(ctx context.Context, principal domain.Principal, workspace *domain.Workspace, sc domain.SearchContext) (*Fragment, error)

	// Search runs this type alone: fragment, type-local ordering,
	// pagination, postprocess.
	Search(ctx context.Context, principal domain.Principal, workspace *domain.Workspace, sc domain.SearchContext) ([]domain.SearchResult, error)

	// Postprocess converts this type's slice of a result page into final
	// results, batch-resolving anything the fragment could not express.
	Postprocess(ctx context.Context, rows []domain.FragmentRow) ([]domain.SearchResult, error)
}

// Registry holds the searchable item types in registration order. It is
// populated once at startup and read-only afterwards.
type Registry struct {
	order []string
	types map[string]ItemType
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]ItemType)}
}

// Register adds an item type. Registering the same type tag twice is a
// programming error.
func (r *Registry) Register(t ItemType) {
	if _, exists := r.types[t.Type()]; exists {
		panic(fmt.Sprintf("search: item type %q registered twice", t.Type()))
	}
	r.order = append(r.order, t.Type())
	r.types[t.Type()] = t
}

func (r *Registry) Get(typeTag string) (ItemType, bool) {
	t, ok := r.types[typeTag]
	return t, ok
}

// All returns the item types in registration order.
func (r *Registry) All() []ItemType {
	out := make([]ItemType, 0, len(r.order))
	for _, tag := range r.order {
		out = append(out, r.types[tag])
	}
	return out
}
