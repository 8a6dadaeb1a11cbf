// Package main is the gridbase admin CLI: seed a demo catalog, rebuild
// search indexes, sweep orphaned ones, and run searches from the shell.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"gridbase/internal/db"
	"gridbase/internal/db/repository"
	"gridbase/internal/domain"
	"gridbase/internal/search"
	"gridbase/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stores bundles the open pools and the services the commands share.
type stores struct {
	writeDB *sql.DB
	readDB  *sql.DB

	workspaces *repository.WorkspaceRepo
	users      *repository.UserRepo
	membership *repository.MembershipRepo
	catalog    *repository.CatalogRepo
	rows       *repository.RowRepo
	index      *repository.FTSIndex

	indexer  *service.IndexService
	searcher *service.SearchService
}

func openStores(dbPath string) (*stores, error) {
	writeDB, readDB, err := db.OpenSQLitePair(dbPath, 4)
	if err != nil {
		return nil, fmt.Errorf("open metastore %s: %w", dbPath, err)
	}
	if err := db.RunMigrations(writeDB); err != nil {
		writeDB.Close()
		readDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := &stores{
		writeDB:    writeDB,
		readDB:     readDB,
		workspaces: repository.NewWorkspaceRepo(writeDB),
		users:      repository.NewUserRepo(writeDB),
		membership: repository.NewMembershipRepo(writeDB),
		catalog:    repository.NewCatalogRepo(writeDB),
		rows:       repository.NewRowRepo(writeDB),
		index:      repository.NewFTSIndex(writeDB),
	}

	authz := service.NewAuthorizationService(s.users, s.membership, s.catalog, logger)
	registry := search.NewRegistry()
	registry.Register(search.NewDatabaseType(readDB, authz))
	registry.Register(search.NewTableType(readDB, authz))
	registry.Register(search.NewFieldType(readDB, authz))
	registry.Register(search.NewRowType(readDB, s.index, authz, s.catalog, s.rows))

	engine := search.NewEngine(readDB, registry, logger)
	s.searcher = service.NewSearchService(s.workspaces, authz, engine, registry, logger)
	s.indexer = service.NewIndexService(s.index, s.workspaces, s.catalog, s.rows, logger)
	return s, nil
}

func (s *stores) Close() {
	_ = s.readDB.Close()
	_ = s.writeDB.Close()
}

func newRootCmd() *cobra.Command {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:           "gridbase",
		Short:         "Workspace search admin CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "gridbase.sqlite", "Path to the SQLite metastore")

	rootCmd.AddCommand(newSeedCmd(&dbPath))
	rootCmd.AddCommand(newReindexCmd(&dbPath))
	rootCmd.AddCommand(newSweepCmd(&dbPath))
	rootCmd.AddCommand(newSearchCmd(&dbPath))
	return rootCmd
}

func newSeedCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the metastore with a demo workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStores(*dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			return seedDemo(cmd.Context(), cmd, s)
		},
	}
}

// seedDemo creates a demo workspace with two users, a CRM database, two
// tables, and a handful of indexed rows. Idempotent: a second run is a no-op.
func seedDemo(ctx context.Context, cmd *cobra.Command, s *stores) error {
	if _, err := s.users.GetByUsername(ctx, "alice"); err == nil {
		cmd.Println("already seeded")
		return nil
	}

	alice, err := s.users.Create(ctx, "alice")
	if err != nil {
		return fmt.Errorf("create alice: %w", err)
	}
	bob, err := s.users.Create(ctx, "bob")
	if err != nil {
		return fmt.Errorf("create bob: %w", err)
	}

	ws, err := s.workspaces.Create(ctx, "Acme Workspace")
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	if err := s.membership.AddMember(ctx, ws.ID, alice.ID, domain.RoleAdmin); err != nil {
		return fmt.Errorf("add alice: %w", err)
	}
	if err := s.membership.AddMember(ctx, ws.ID, bob.ID, domain.RoleViewer); err != nil {
		return fmt.Errorf("add bob: %w", err)
	}

	crm, err := s.catalog.CreateDatabase(ctx, ws.ID, "CRM", 1)
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}

	clients, err := s.catalog.CreateTable(ctx, crm.ID, "Clients", 1)
	if err != nil {
		return fmt.Errorf("create clients table: %w", err)
	}
	clientName, err := s.catalog.CreateField(ctx, clients.ID, "Name", "", 1, true)
	if err != nil {
		return err
	}
	clientNotes, err := s.catalog.CreateField(ctx, clients.ID, "Notes", "Free-form notes", 2, false)
	if err != nil {
		return err
	}

	deals, err := s.catalog.CreateTable(ctx, crm.ID, "Deals", 2)
	if err != nil {
		return fmt.Errorf("create deals table: %w", err)
	}
	dealName, err := s.catalog.CreateField(ctx, deals.ID, "Deal", "", 1, true)
	if err != nil {
		return err
	}
	dealStage, err := s.catalog.CreateField(ctx, deals.ID, "Stage", "", 2, false)
	if err != nil {
		return err
	}

	type seedRow struct {
		table  int64
		values map[int64]string
	}
	seedRows := []seedRow{
		{clients.ID, map[int64]string{clientName.ID: "Wayne Enterprises", clientNotes.ID: "Gotham based, prefers evening calls"}},
		{clients.ID, map[int64]string{clientName.ID: "Stark Industries", clientNotes.ID: "Renewal due in March"}},
		{deals.ID, map[int64]string{dealName.ID: "Wayne annual contract", dealStage.ID: "Negotiation"}},
		{deals.ID, map[int64]string{dealName.ID: "Stark expansion", dealStage.ID: "Won"}},
	}

	for _, tableID := range []int64{clients.ID, deals.ID} {
		if err := s.rows.EnsureTable(ctx, tableID); err != nil {
			return err
		}
	}
	for _, f := range []struct{ table, field int64 }{
		{clients.ID, clientName.ID}, {clients.ID, clientNotes.ID},
		{deals.ID, dealName.ID}, {deals.ID, dealStage.ID},
	} {
		if err := s.rows.AddFieldColumn(ctx, f.table, f.field); err != nil {
			return err
		}
	}

	for _, row := range seedRows {
		rowID, err := s.rows.InsertRow(ctx, row.table, row.values)
		if err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
		if err := s.indexer.IndexRow(ctx, ws.ID, row.table, rowID, row.values); err != nil {
			return fmt.Errorf("index row: %w", err)
		}
	}

	cmd.Printf("seeded workspace %d (users: alice, bob)\n", ws.ID)
	if !s.index.Available(ctx) {
		cmd.Println("note: SQLite build lacks FTS5, rows were not indexed")
	}
	return nil
}

func newReindexCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <workspace-id>",
		Short: "Rebuild a workspace's full-text search index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid workspace id %q", args[0])
			}

			s, err := openStores(*dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.indexer.Reindex(cmd.Context(), workspaceID); err != nil {
				return err
			}
			cmd.Printf("workspace %d reindexed\n", workspaceID)
			return nil
		},
	}
}

func newSweepCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Drop search indexes of deleted workspaces",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStores(*dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			dropped, err := s.indexer.SweepOrphans(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("dropped %d orphaned indexes\n", dropped)
			return nil
		},
	}
}

func newSearchCmd(dbPath *string) *cobra.Command {
	var (
		username string
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "search <workspace-id> <query>",
		Short: "Search a workspace as a given user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid workspace id %q", args[0])
			}

			s, err := openStores(*dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			results, hasMore, err := s.searcher.SearchWorkspace(cmd.Context(),
				domain.Principal{Username: username}, workspaceID,
				domain.SearchContext{Query: args[1], Limit: limit, Offset: offset})
			if err != nil {
				return err
			}

			for _, r := range results {
				line := fmt.Sprintf("%-16s %-12s %s", r.Type, r.ID, r.Title)
				if r.Subtitle != nil {
					line += " (" + *r.Subtitle + ")"
				}
				cmd.Println(line)
			}
			cmd.Printf("%d results, has_more=%v\n", len(results), hasMore)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "alice", "Username to search as")
	cmd.Flags().IntVarP(&limit, "limit", "l", domain.DefaultSearchLimit, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}
