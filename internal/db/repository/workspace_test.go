package repository

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "gridbase/internal/db"
	"gridbase/internal/domain"
)

func setupWorkspaceRepo(t *testing.T) *WorkspaceRepo {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewWorkspaceRepo(writeDB)
}

func TestWorkspaceRepo_CreateAndGet(t *testing.T) {
	repo := setupWorkspaceRepo(t)
	ctx := context.Background()

	w, err := repo.Create(ctx, "Marketing")
	require.NoError(t, err)
	assert.NotZero(t, w.ID)
	assert.Equal(t, "Marketing", w.Name)
	assert.False(t, w.Trashed)

	found, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, found.ID)
}

func TestWorkspaceRepo_Get_NotFound(t *testing.T) {
	repo := setupWorkspaceRepo(t)

	_, err := repo.Get(context.Background(), 999)
	require.Error(t, err)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestWorkspaceRepo_TrashedBehavesAsMissing(t *testing.T) {
	repo := setupWorkspaceRepo(t)
	ctx := context.Background()

	w, err := repo.Create(ctx, "Doomed")
	require.NoError(t, err)

	require.NoError(t, repo.MarkTrashed(ctx, w.ID))

	_, err = repo.Get(ctx, w.ID)
	require.Error(t, err)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	ids, err := repo.ListTrashedIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, w.ID)
}

func TestWorkspaceRepo_MarkTrashed_NotFound(t *testing.T) {
	repo := setupWorkspaceRepo(t)

	err := repo.MarkTrashed(context.Background(), 999)
	require.Error(t, err)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
