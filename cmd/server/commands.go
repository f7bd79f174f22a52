package main

import (
	"context"
	"fmt"
	"log/slog"

	gormrepo "civbuilders/internal/adapter/repo/gorm"
	"civbuilders/internal/config"
	"civbuilders/internal/logging"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "civbuilders",
		Short:         "Civilization Builders game service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (default $CONFIG_PATH or ./config.yaml)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations to the configured Postgres store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Store.IsMemory() {
				return fmt.Errorf("migrate: store.driver %q has no schema", cfg.Store.Driver)
			}
			logger := logging.New(cfg.Log)
			db, err := gormrepo.OpenPostgres(cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = gormrepo.Close(db) }()

			applied, err := migrate(commandContext(cmd), db, cfg.Store.MigrationsDir)
			if err != nil {
				return err
			}
			logger.Info("migrations applied", "count", len(applied), "versions", applied)
			for _, v := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	h := server.New(
		server.WithHostPorts(cfg.Server.Addr()),
		server.WithExitWaitTime(cfg.Server.ShutdownTimeout),
	)
	a.Handler.RegisterRoutes(h)
	h.OnShutdown = append(h.OnShutdown, func(ctx context.Context) {
		if err := a.Saves.Flush(ctx); err != nil {
			logger.Error("flush pending saves", "error", err)
		}
	})

	logger.Info("civbuilders server listening",
		slog.String("addr", cfg.Server.Addr()),
		slog.String("store", cfg.Store.Driver),
		slog.Duration("debounce", cfg.Persistence.Debounce),
	)
	h.Spin()
	return nil
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.LoadFrom(opts.ConfigPath, true)
	}
	return config.Load()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
