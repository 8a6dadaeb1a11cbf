package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"gridbase/internal/domain"
)

// reindexConcurrency bounds the number of tables read in parallel during a
// rebuild. Writes still funnel through the single-writer pool.
const reindexConcurrency = 4

// IndexService maintains the per-workspace full-text indexes: row-level
// updates on mutation, full rebuilds, and a sweep dropping indexes whose
// workspace is gone. All operations are no-ops when the storage engine has
// no full-text support.
type IndexService struct {
	index      domain.SearchIndex
	workspaces domain.WorkspaceRepository
	catalog    domain.CatalogRepository
	rows       domain.RowRepository
	logger     *slog.Logger
}

func NewIndexService(index domain.SearchIndex, workspaces domain.WorkspaceRepository, catalog domain.CatalogRepository, rows domain.RowRepository, logger *slog.Logger) *IndexService {
	return &IndexService{
		index:      index,
		workspaces: workspaces,
		catalog:    catalog,
		rows:       rows,
		logger:     logger.With("component", "indexer"),
	}
}

// Reindex rebuilds a workspace's full-text index from scratch: drop,
// recreate, then re-read every readable table's rows.
func (s *IndexService) Reindex(ctx context.Context, workspaceID int64) error {
	if !s.index.Available(ctx) {
		s.logger.WarnContext(ctx, "full-text support missing, skipping reindex",
			"workspace_id", workspaceID)
		return nil
	}

	if _, err := s.workspaces.Get(ctx, workspaceID); err != nil {
		return err
	}

	if err := s.index.Drop(ctx, workspaceID); err != nil {
		return err
	}
	if err := s.index.Ensure(ctx, workspaceID); err != nil {
		return err
	}

	tables, err := s.catalog.ListTables(ctx, workspaceID)
	if err != nil {
		return err
	}
	refs, err := s.catalog.ListFieldRefs(ctx, workspaceID)
	if err != nil {
		return err
	}
	fieldsByTable := make(map[int64][]int64)
	for _, ref := range refs {
		fieldsByTable[ref.TableID] = append(fieldsByTable[ref.TableID], ref.FieldID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexConcurrency)
	for _, table := range tables {
		fieldIDs := fieldsByTable[table.ID]
		if len(fieldIDs) == 0 {
			continue
		}
		tableID := table.ID
		g.Go(func() error {
			rows, err := s.rows.ListRows(gctx, tableID, fieldIDs)
			if err != nil {
				return err
			}
			for _, row := range rows {
				if err := s.index.IndexRow(gctx, workspaceID, tableID, row.ID, row.Values); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "workspace reindexed",
		"workspace_id", workspaceID, "tables", len(tables))
	return nil
}

// IndexRow updates the index entries of one row after a mutation.
func (s *IndexService) IndexRow(ctx context.Context, workspaceID, tableID, rowID int64, values map[int64]string) error {
	if !s.index.Available(ctx) {
		return nil
	}
	if err := s.index.Ensure(ctx, workspaceID); err != nil {
		return err
	}
	return s.index.IndexRow(ctx, workspaceID, tableID, rowID, values)
}

func (s *IndexService) DeindexRow(ctx context.Context, workspaceID, tableID, rowID int64) error {
	if !s.index.Available(ctx) {
		return nil
	}
	exists, err := s.index.Exists(ctx, workspaceID)
	if err != nil || !exists {
		return err
	}
	return s.index.DeindexRow(ctx, workspaceID, tableID, rowID)
}

func (s *IndexService) DeindexTable(ctx context.Context, workspaceID, tableID int64) error {
	if !s.index.Available(ctx) {
		return nil
	}
	exists, err := s.index.Exists(ctx, workspaceID)
	if err != nil || !exists {
		return err
	}
	return s.index.DeindexTable(ctx, workspaceID, tableID)
}

// SweepOrphans drops the index of every workspace that no longer exists or
// was trashed. Returns how many indexes were dropped.
func (s *IndexService) SweepOrphans(ctx context.Context) (int, error) {
	if !s.index.Available(ctx) {
		return 0, nil
	}

	ids, err := s.index.ListIndexedWorkspaceIDs(ctx)
	if err != nil {
		return 0, err
	}

	dropped := 0
	for _, id := range ids {
		_, err := s.workspaces.Get(ctx, id)
		if err == nil {
			continue
		}
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			return dropped, err
		}
		if err := s.index.Drop(ctx, id); err != nil {
			return dropped, err
		}
		s.logger.InfoContext(ctx, "dropped orphaned search index", "workspace_id", id)
		dropped++
	}
	return dropped, nil
}
