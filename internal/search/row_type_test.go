package search

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbase/internal/db"
	"gridbase/internal/db/repository"
	"gridbase/internal/domain"
)

// setupRowSearch seeds the pipeline catalog plus two indexed rows in the
// deals table. Skips when the SQLite build has no FTS5.
func setupRowSearch(t *testing.T) (readDB *sql.DB, f *pipelineFixture, index *repository.FTSIndex, row1, row2 int64) {
	t.Helper()
	ctx := context.Background()

	writeDB, readDB := db.OpenTestSQLite(t)
	index = repository.NewFTSIndex(writeDB)
	if !index.Available(ctx) {
		t.Skip("SQLite build lacks FTS5 (build with -tags sqlite_fts5)")
	}

	f = seedPipelines(t, writeDB)
	rows := repository.NewRowRepo(writeDB)

	require.NoError(t, rows.EnsureTable(ctx, f.dealsTable.ID))
	require.NoError(t, rows.AddFieldColumn(ctx, f.dealsTable.ID, f.dealNameField.ID))
	require.NoError(t, rows.AddFieldColumn(ctx, f.dealsTable.ID, f.stageField.ID))

	var err error
	row1, err = rows.InsertRow(ctx, f.dealsTable.ID, map[int64]string{
		f.dealNameField.ID: "Globex Renewal",
		f.stageField.ID:    "Negotiation started",
	})
	require.NoError(t, err)
	row2, err = rows.InsertRow(ctx, f.dealsTable.ID, map[int64]string{
		f.dealNameField.ID: "Initech Negotiation",
		f.stageField.ID:    "Lost",
	})
	require.NoError(t, err)

	require.NoError(t, index.Ensure(ctx, f.workspace.ID))
	require.NoError(t, index.IndexRow(ctx, f.workspace.ID, f.dealsTable.ID, row1, map[int64]string{
		f.dealNameField.ID: "Globex Renewal",
		f.stageField.ID:    "Negotiation started",
	}))
	require.NoError(t, index.IndexRow(ctx, f.workspace.ID, f.dealsTable.ID, row2, map[int64]string{
		f.dealNameField.ID: "Initech Negotiation",
		f.stageField.ID:    "Lost",
	}))

	return readDB, f, index, row1, row2
}

func newFullEngine(readDB *sql.DB, index domain.SearchIndex, authz domain.Authorizer) *Engine {
	catalog := repository.NewCatalogRepo(readDB)
	rows := repository.NewRowRepo(readDB)

	registry := NewRegistry()
	registry.Register(NewDatabaseType(readDB, authz))
	registry.Register(NewTableType(readDB, authz))
	registry.Register(NewFieldType(readDB, authz))
	registry.Register(NewRowType(readDB, index, authz, catalog, rows))
	return NewEngine(readDB, registry, testLogger())
}

func TestRowSearch_ResolvesTitlesAndAncestry(t *testing.T) {
	readDB, f, index, row1, row2 := setupRowSearch(t)
	engine := newFullEngine(readDB, index, f.fullAccess())

	results, hasMore, err := engine.SearchAllTypes(context.Background(),
		domain.Principal{Username: "alice"}, f.workspace,
		domain.SearchContext{Query: "negotiation", Limit: 10})
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, results, 2)

	var titles, ids []string
	for _, r := range results {
		assert.Equal(t, TypeRow, r.Type)
		require.NotNil(t, r.Subtitle)
		assert.Equal(t, "Row in Sales Pipeline / Pipeline Deals", *r.Subtitle)
		assert.Equal(t, f.dealsTable.ID, r.Metadata["table_id"])
		assert.Contains(t, r.Metadata, "rank")
		assert.Contains(t, r.Metadata, "field_id")
		assert.Equal(t, "Pipeline Deals", r.Metadata["table_name"])
		titles = append(titles, r.Title)
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"Globex Renewal", "Initech Negotiation"}, titles)
	assert.ElementsMatch(t, []string{
		fmt.Sprintf("%d_%d", f.dealsTable.ID, row1),
		fmt.Sprintf("%d_%d", f.dealsTable.ID, row2),
	}, ids)
}

func TestRowSearch_PrefixMatchOnLastToken(t *testing.T) {
	readDB, f, index, _, _ := setupRowSearch(t)
	engine := newFullEngine(readDB, index, f.fullAccess())

	results, _, err := engine.SearchAllTypes(context.Background(),
		domain.Principal{Username: "alice"}, f.workspace,
		domain.SearchContext{Query: "negoti", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRowSearch_OneResultPerRow(t *testing.T) {
	readDB, f, index, _, _ := setupRowSearch(t)
	ctx := context.Background()

	// Same term in two fields of the same row must still yield one result,
	// with the lower field id winning the rank tie.
	require.NoError(t, index.IndexRow(ctx, f.workspace.ID, f.dealsTable.ID, 99, map[int64]string{
		f.dealNameField.ID: "Quartz",
		f.stageField.ID:    "Quartz",
	}))

	engine := newFullEngine(readDB, index, f.fullAccess())
	results, _, err := engine.SearchAllTypes(ctx,
		domain.Principal{Username: "alice"}, f.workspace,
		domain.SearchContext{Query: "quartz", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fmt.Sprintf("%d_99", f.dealsTable.ID), results[0].ID)
	assert.Equal(t, f.dealNameField.ID, results[0].Metadata["field_id"])
}

func TestRowSearch_FieldPermissionFiltering(t *testing.T) {
	readDB, f, index, _, _ := setupRowSearch(t)

	// Stage field hidden: hits on its values must disappear, hits on the
	// deal name survive.
	authz := f.fullAccess()
	authz.refs = []domain.FieldRef{
		{FieldID: f.dealNameField.ID, TableID: f.dealsTable.ID},
	}
	engine := newFullEngine(readDB, index, authz)
	ctx := context.Background()
	p := domain.Principal{Username: "bob"}

	results, _, err := engine.SearchAllTypes(ctx, p, f.workspace,
		domain.SearchContext{Query: "started", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, _, err = engine.SearchAllTypes(ctx, p, f.workspace,
		domain.SearchContext{Query: "globex", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Globex Renewal", results[0].Title)
}

func TestRowSearch_SymbolOnlyQueryDegrades(t *testing.T) {
	readDB, f, index, _, _ := setupRowSearch(t)
	engine := newFullEngine(readDB, index, f.fullAccess())

	results, hasMore, err := engine.SearchAllTypes(context.Background(),
		domain.Principal{Username: "alice"}, f.workspace,
		domain.SearchContext{Query: "!!!", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, hasMore)
}

func TestRowSearch_MissingIndexDegrades(t *testing.T) {
	ctx := context.Background()
	writeDB, readDB := db.OpenTestSQLite(t)
	index := repository.NewFTSIndex(writeDB)
	if !index.Available(ctx) {
		t.Skip("SQLite build lacks FTS5 (build with -tags sqlite_fts5)")
	}

	f := seedPipelines(t, writeDB)
	engine := newFullEngine(readDB, index, f.fullAccess())

	// No index table was ever created: catalog hits still come back.
	results, _, err := engine.SearchAllTypes(ctx,
		domain.Principal{Username: "alice"}, f.workspace,
		domain.SearchContext{Query: "pipeline", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 6)
	for _, r := range results {
		assert.NotEqual(t, TypeRow, r.Type)
	}
}

func TestRowSearch_RowsSortAfterCatalogTypes(t *testing.T) {
	readDB, f, index, row1, _ := setupRowSearch(t)
	ctx := context.Background()

	// A row mentioning "pipeline" must sort after every catalog hit.
	require.NoError(t, index.IndexRow(ctx, f.workspace.ID, f.dealsTable.ID, row1, map[int64]string{
		f.dealNameField.ID: "Pipeline review",
	}))

	engine := newFullEngine(readDB, index, f.fullAccess())
	results, _, err := engine.SearchAllTypes(ctx,
		domain.Principal{Username: "alice"}, f.workspace,
		domain.SearchContext{Query: "pipeline", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 7)
	assert.Equal(t, TypeRow, results[6].Type)
	// Title comes from the stored primary value, not the matched text.
	assert.Equal(t, "Globex Renewal", results[6].Title)
}

func TestRowSearch_TitleFallsBackWithoutPrimaryField(t *testing.T) {
	ctx := context.Background()
	writeDB, readDB := db.OpenTestSQLite(t)
	index := repository.NewFTSIndex(writeDB)
	if !index.Available(ctx) {
		t.Skip("SQLite build lacks FTS5 (build with -tags sqlite_fts5)")
	}

	f := seedPipelines(t, writeDB)
	catalog := repository.NewCatalogRepo(writeDB)
	rows := repository.NewRowRepo(writeDB)

	logsTable, err := catalog.CreateTable(ctx, f.salesDB.ID, "Logs", 3)
	require.NoError(t, err)
	msgField, err := catalog.CreateField(ctx, logsTable.ID, "Message", "", 1, false)
	require.NoError(t, err)

	require.NoError(t, rows.EnsureTable(ctx, logsTable.ID))
	require.NoError(t, rows.AddFieldColumn(ctx, logsTable.ID, msgField.ID))
	rowID, err := rows.InsertRow(ctx, logsTable.ID, map[int64]string{msgField.ID: "zygote spawned"})
	require.NoError(t, err)

	require.NoError(t, index.Ensure(ctx, f.workspace.ID))
	require.NoError(t, index.IndexRow(ctx, f.workspace.ID, logsTable.ID, rowID,
		map[int64]string{msgField.ID: "zygote spawned"}))

	authz := f.fullAccess()
	authz.tableIDs = append(authz.tableIDs, logsTable.ID)
	authz.refs = append(authz.refs, domain.FieldRef{FieldID: msgField.ID, TableID: logsTable.ID})

	engine := newFullEngine(readDB, index, authz)
	results, _, err := engine.SearchAllTypes(ctx,
		domain.Principal{Username: "alice"}, f.workspace,
		domain.SearchContext{Query: "zygote", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fmt.Sprintf("Row #%d", rowID), results[0].Title)
	require.NotNil(t, results[0].Subtitle)
	assert.Equal(t, "Row in Sales Pipeline / Logs", *results[0].Subtitle)
}
