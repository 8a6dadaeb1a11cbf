package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"

	"gridbase/internal/api"
	"gridbase/internal/config"
	internaldb "gridbase/internal/db"
	"gridbase/internal/db/repository"
	"gridbase/internal/middleware"
	"gridbase/internal/search"
	"gridbase/internal/service"
)

func main() {
	ctx := context.Background()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	// Open the metastore: single-connection write pool (WAL, immediate
	// transactions), multi-connection read pool.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, cfg.ReadPool)
	if err != nil {
		logger.Error("open metastore", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := internaldb.RunMigrations(writeDB); err != nil {
		logger.Error("run migrations", "error", err)
		os.Exit(1)
	}

	if !internaldb.HasFTS5(ctx, writeDB) {
		logger.Warn("SQLite build lacks FTS5, row search disabled (build with -tags sqlite_fts5)")
	}

	// Repositories: read pool for the search path, write pool for index
	// maintenance.
	userRepo := repository.NewUserRepo(readDB)
	workspaceRepo := repository.NewWorkspaceRepo(readDB)
	membershipRepo := repository.NewMembershipRepo(readDB)
	catalogRepo := repository.NewCatalogRepo(readDB)
	rowRepo := repository.NewRowRepo(readDB)
	readIndex := repository.NewFTSIndex(readDB)
	writeIndex := repository.NewFTSIndex(writeDB)

	authz := service.NewAuthorizationService(userRepo, membershipRepo, catalogRepo, logger)

	registry := search.NewRegistry()
	registry.Register(search.NewDatabaseType(readDB, authz))
	registry.Register(search.NewTableType(readDB, authz))
	registry.Register(search.NewFieldType(readDB, authz))
	registry.Register(search.NewRowType(readDB, readIndex, authz, catalogRepo, rowRepo))

	engine := search.NewEngine(readDB, registry, logger)
	searchSvc := service.NewSearchService(workspaceRepo, authz, engine, registry, logger)
	indexSvc := service.NewIndexService(writeIndex, workspaceRepo, catalogRepo,
		repository.NewRowRepo(writeDB), logger)

	validator, err := buildValidator(ctx, cfg)
	if err != nil {
		logger.Error("configure token validator", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", api.Health)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(validator, cfg.Auth.NameClaim))
		r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
		r.Mount("/", api.NewHandler(searchSvc, logger).Routes())
	})

	// Periodic sweep dropping search indexes of deleted workspaces.
	var sweeper *cron.Cron
	if cfg.IndexSweepSchedule != "" {
		sweeper = cron.New()
		_, err := sweeper.AddFunc(cfg.IndexSweepSchedule, func() {
			dropped, err := indexSvc.SweepOrphans(context.Background())
			if err != nil {
				logger.Error("index sweep failed", "error", err)
				return
			}
			if dropped > 0 {
				logger.Info("index sweep complete", "dropped", dropped)
			}
		})
		if err != nil {
			logger.Error("invalid sweep schedule", "schedule", cfg.IndexSweepSchedule, "error", err)
			os.Exit(1)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "tls", cfg.TLSCertFile != "")
		if cfg.TLSCertFile != "" {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}

// buildValidator picks OIDC/JWKS when an identity provider is configured,
// falling back to the shared-secret HS256 validator for local development.
func buildValidator(ctx context.Context, cfg *config.Config) (middleware.JWTValidator, error) {
	if cfg.Auth.JWKSURL != "" {
		return middleware.NewOIDCValidatorFromJWKS(ctx,
			cfg.Auth.JWKSURL, cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	}
	if cfg.Auth.IssuerURL != "" {
		return middleware.NewOIDCValidator(ctx,
			cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	}
	return middleware.NewHS256Validator(cfg.Auth.JWTSecret)
}
