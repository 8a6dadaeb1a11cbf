package repository

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "gridbase/internal/db"
	"gridbase/internal/domain"
)

// seedCatalog builds workspace -> database -> table -> fields (Name primary,
// Notes secondary) and returns the created records.
func seedCatalog(t *testing.T, writeDB *sql.DB) (*domain.Workspace, *domain.Database, *domain.Table, *domain.Field, *domain.Field) {
	t.Helper()
	ctx := context.Background()
	catalog := NewCatalogRepo(writeDB)

	w, err := NewWorkspaceRepo(writeDB).Create(ctx, "ws")
	require.NoError(t, err)
	db, err := catalog.CreateDatabase(ctx, w.ID, "CRM", 0)
	require.NoError(t, err)
	tbl, err := catalog.CreateTable(ctx, db.ID, "Clients", 0)
	require.NoError(t, err)
	name, err := catalog.CreateField(ctx, tbl.ID, "Name", "", 0, true)
	require.NoError(t, err)
	notes, err := catalog.CreateField(ctx, tbl.ID, "Notes", "free text", 1, false)
	require.NoError(t, err)

	return w, db, tbl, name, notes
}

func TestCatalogRepo_Listings(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	w, db, tbl, name, notes := seedCatalog(t, writeDB)
	repo := NewCatalogRepo(writeDB)
	ctx := context.Background()

	dbs, err := repo.ListDatabases(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, db.ID, dbs[0].ID)
	assert.Equal(t, "CRM", dbs[0].Name)

	tables, err := repo.ListTables(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, tbl.ID, tables[0].ID)

	refs, err := repo.ListFieldRefs(ctx, w.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.FieldRef{
		{FieldID: name.ID, TableID: tbl.ID},
		{FieldID: notes.ID, TableID: tbl.ID},
	}, refs)
}

func TestCatalogRepo_ListingsExcludeTrashed(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	w, _, tbl, _, notes := seedCatalog(t, writeDB)
	repo := NewCatalogRepo(writeDB)
	ctx := context.Background()

	t.Run("trashed_field_disappears", func(t *testing.T) {
		require.NoError(t, repo.MarkFieldTrashed(ctx, notes.ID))
		refs, err := repo.ListFieldRefs(ctx, w.ID)
		require.NoError(t, err)
		assert.Len(t, refs, 1)
	})

	t.Run("trashed_table_hides_fields", func(t *testing.T) {
		require.NoError(t, repo.MarkTableTrashed(ctx, tbl.ID))
		tables, err := repo.ListTables(ctx, w.ID)
		require.NoError(t, err)
		assert.Empty(t, tables)
		refs, err := repo.ListFieldRefs(ctx, w.ID)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("trashed_workspace_hides_everything", func(t *testing.T) {
		require.NoError(t, NewWorkspaceRepo(writeDB).MarkTrashed(ctx, w.ID))
		dbs, err := repo.ListDatabases(ctx, w.ID)
		require.NoError(t, err)
		assert.Empty(t, dbs)
	})
}

func TestCatalogRepo_GetFieldAncestry(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	w, db, tbl, name, notes := seedCatalog(t, writeDB)
	repo := NewCatalogRepo(writeDB)
	ctx := context.Background()

	ancestry, err := repo.GetFieldAncestry(ctx, []int64{name.ID, notes.ID})
	require.NoError(t, err)
	require.Len(t, ancestry, 2)

	byID := map[int64]domain.FieldAncestry{}
	for _, fa := range ancestry {
		byID[fa.ID] = fa
	}

	fa := byID[notes.ID]
	assert.Equal(t, "Notes", fa.Name)
	assert.Equal(t, "Clients", fa.TableName)
	assert.Equal(t, db.ID, fa.DatabaseID)
	assert.Equal(t, "CRM", fa.DatabaseName)
	assert.Equal(t, w.ID, fa.WorkspaceID)
	require.NotNil(t, fa.PrimaryFieldID)
	assert.Equal(t, name.ID, *fa.PrimaryFieldID)
	_ = tbl
}

func TestCatalogRepo_GetFieldAncestry_NoPrimaryField(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewCatalogRepo(writeDB)
	ctx := context.Background()

	w, err := NewWorkspaceRepo(writeDB).Create(ctx, "ws")
	require.NoError(t, err)
	db, err := repo.CreateDatabase(ctx, w.ID, "CRM", 0)
	require.NoError(t, err)
	tbl, err := repo.CreateTable(ctx, db.ID, "Clients", 0)
	require.NoError(t, err)
	f, err := repo.CreateField(ctx, tbl.ID, "Notes", "", 0, false)
	require.NoError(t, err)

	ancestry, err := repo.GetFieldAncestry(ctx, []int64{f.ID})
	require.NoError(t, err)
	require.Len(t, ancestry, 1)
	assert.Nil(t, ancestry[0].PrimaryFieldID)
}

func TestCatalogRepo_GetFieldAncestry_EmptyInput(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewCatalogRepo(writeDB)

	ancestry, err := repo.GetFieldAncestry(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ancestry)
}
