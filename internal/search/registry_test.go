package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbase/internal/domain"
)

type fakeType struct {
	tag      string
	priority int
}

func (f *fakeType) Type() string           { return f.tag }
func (f *fakeType) Priority() int          { return f.priority }
func (f *fakeType) SupportsFullText() bool { return false }

func (f *fakeType) UnionFragment(context.Context, domain.Principal, *domain.Workspace, domain.SearchContext) (*Fragment, error) {
	return EmptyFragment(f.tag, f.priority), nil
}

func (f *fakeType) Search(context.Context, domain.Principal, *domain.Workspace, domain.SearchContext) ([]domain.SearchResult, error) {
	return nil, nil
}

func (f *fakeType) Postprocess(_ context.Context, rows []domain.FragmentRow) ([]domain.SearchResult, error) {
	return defaultPostprocess(rows), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeType{tag: "alpha", priority: 1})
	r.Register(&fakeType{tag: "beta", priority: 2})

	it, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", it.Type())

	_, ok = r.Get("gamma")
	assert.False(t, ok)
}

func TestRegistry_AllPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeType{tag: "beta", priority: 2})
	r.Register(&fakeType{tag: "alpha", priority: 1})
	r.Register(&fakeType{tag: "gamma", priority: 3})

	var tags []string
	for _, it := range r.All() {
		tags = append(tags, it.Type())
	}
	assert.Equal(t, []string{"beta", "alpha", "gamma"}, tags)
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeType{tag: "alpha", priority: 1})

	assert.Panics(t, func() {
		r.Register(&fakeType{tag: "alpha", priority: 1})
	})
}
