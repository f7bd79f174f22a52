package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	httpadapter "civbuilders/internal/adapter/http"
	metricsinmem "civbuilders/internal/adapter/metrics/inmemory"
	gormrepo "civbuilders/internal/adapter/repo/gorm"
	memrepo "civbuilders/internal/adapter/repo/memory"
	"civbuilders/internal/app/history"
	"civbuilders/internal/app/persistence"
	"civbuilders/internal/app/ports"
	"civbuilders/internal/app/session"
	"civbuilders/internal/config"
	"civbuilders/internal/domain/catalog"
	"civbuilders/internal/domain/progression"

	"gorm.io/gorm"
)

type application struct {
	Handler httpadapter.Handler
	Saves   *persistence.Synchronizer
	closers []func() error
}

func (a *application) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

type repos struct {
	saves  ports.SaveRepository
	events ports.EventRepository
	tx     ports.TxManager
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	cat, err := loadCatalog(cfg.Game.CatalogPath)
	if err != nil {
		return nil, err
	}

	a := &application{}
	r, err := buildRepos(ctx, cfg, logger, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	kpi := metricsinmem.NewRecorder()
	a.Saves = persistence.New(persistence.Options{
		Repo:    r.saves,
		Quiet:   cfg.Persistence.Debounce,
		Logger:  logger,
		Metrics: kpi,
	})
	manager := session.NewManager(session.Options{
		Engine: progression.Engine{
			Catalog:              cat,
			ContributionHandSize: cfg.Game.ContributionHandSize,
			MythHandSize:         cfg.Game.MythHandSize,
		},
		Persistence: a.Saves,
		Events:      r.events,
		TxManager:   r.tx,
		Metrics:     kpi,
		Logger:      logger,
	})

	a.Handler = httpadapter.Handler{
		Sessions:  manager,
		HistoryUC: history.UseCase{Events: r.events},
		Catalog:   cat,
		KPI:       kpi,
		CORS: httpadapter.CORSOptions{
			AllowedOrigin: cfg.CORS.AllowedOrigins,
			MaxAge:        cfg.CORS.MaxAge,
		},
		Logger: logger,
	}
	return a, nil
}

func buildRepos(ctx context.Context, cfg *config.Config, logger *slog.Logger, a *application) (repos, error) {
	if cfg.Store.IsMemory() {
		store := memrepo.NewStore()
		logger.Warn("using in-memory store; saves are lost on restart")
		return repos{
			saves:  memrepo.NewSaveRepo(store),
			events: memrepo.NewEventRepo(store),
			tx:     memrepo.NewTxManager(store),
		}, nil
	}

	db, err := gormrepo.OpenPostgresWithPool(cfg.Store.DSN, gormrepo.PoolConfig{
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		return repos{}, err
	}
	a.closers = append(a.closers, func() error { return gormrepo.Close(db) })

	if cfg.Store.AutoMigrate {
		applied, err := migrate(ctx, db, cfg.Store.MigrationsDir)
		if err != nil {
			return repos{}, err
		}
		logger.Info("migrations applied", "count", len(applied))
	}

	return repos{
		saves:  gormrepo.NewSaveRepo(db, cfg.Persistence.Document),
		events: gormrepo.NewEventRepo(db),
		tx:     gormrepo.NewTxManager(db),
	}, nil
}

func migrate(ctx context.Context, db *gorm.DB, dir string) ([]string, error) {
	fsys, err := gormrepo.Migrations(dir)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return gormrepo.ApplyMigrations(ctx, db, fsys)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := catalog.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}
