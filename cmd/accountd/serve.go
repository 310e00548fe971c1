// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/accountd/accountd/internal/accounts/postgres"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/httpapi"
	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/observability"
	"github.com/accountd/accountd/internal/store"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API under /api together with the metrics and
health listener. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

// setupLogger installs the configured logger as the slog default.
func setupLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded
	}
	return logging.SetDefault("accountd", version, cfg.Format, level), nil
}

// connect opens the database pool and, when configured, applies pending
// migrations.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	opts := store.DefaultConnectOptions()
	opts.MaxRetries = cfg.Database.ConnectRetries
	opts.MaxConns = cfg.Database.MaxConns
	opts.Logger = logger

	pool, err := store.Connect(ctx, cfg.Database.URL, opts)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return pool, nil
}

func migrateUp(databaseURL string, logger *slog.Logger) (err error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	pending, err := m.Pending()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	if len(pending) == 0 {
		return nil
	}
	logger.Info("applying migrations", "pending", pending)
	return m.Up() //nolint:wrapcheck // already coded
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err //nolint:wrapcheck // already coded
	}
	logger, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger.Info("starting accountd", "addr", cfg.Server.Addr, "mail_driver", cfg.Mail.Driver)

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	var (
		obs     *observability.Server
		metrics *observability.Metrics
	)
	if cfg.Metrics.Addr != "" {
		obs = observability.NewServer(cfg.Metrics.Addr, pool.Ping, logger)
		metrics = obs.Metrics()
		obsErr, err := obs.Start()
		if err != nil {
			return err //nolint:wrapcheck // already coded
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
			defer cancel()
			if err := obs.Stop(stopCtx); err != nil {
				logger.Warn("stopping observability server", "error", err)
			}
		}()
		go func() {
			for err := range obsErr {
				logger.Error("observability server failed", "error", err)
			}
		}()
	}

	notifier, err := newNotifier(cfg.Mail, os.Stdout, metrics, logger)
	if err != nil {
		return err
	}
	tokens, err := newTokenIssuer(cfg)
	if err != nil {
		return err
	}
	a, err := newApp(postgres.NewAccountRepository(pool), notifier, tokens, logger)
	if err != nil {
		return oops.Code("SERVE_INIT_FAILED").Wrap(err)
	}
	handler, err := a.router(cfg.Server.PublicRoutes, metrics, logger)
	if err != nil {
		return oops.Code("SERVE_INIT_FAILED").Wrap(err)
	}

	//nolint:wrapcheck // already coded
	return httpapi.NewServer(cfg.Server.Addr, handler, logger).Run(ctx, cfg.ShutdownTimeout())
}
