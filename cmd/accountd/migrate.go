// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/accountd/accountd/internal/store"
)

// migrator is the part of store.Migrator the migrate commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Pending() ([]uint, error)
	Close() error
}

// openMigrator is replaced in tests.
var openMigrator = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL) //nolint:wrapcheck // already coded
}

// NewMigrateCmd creates the migrate command and its subcommands. Without a
// subcommand it applies all pending migrations.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, revert and inspect the embedded PostgreSQL schema migrations.`,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			return runMigrateUp(cmd, m)
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			return runMigrateUp(cmd, m)
		}),
	})

	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the last migration (or all with --all)",
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if all {
				if err := m.Down(); err != nil {
					return err //nolint:wrapcheck // already coded
				}
				cmd.Println("All migrations reverted")
				return nil
			}
			if err := m.Steps(-1); err != nil {
				return err //nolint:wrapcheck // already coded
			}
			cmd.Println("Reverted one migration")
			return nil
		}),
	}
	down.Flags().BoolVar(&all, "all", false, "revert every migration (drops all account data)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			return runMigrateStatus(cmd, m)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it (clears a dirty state)",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err //nolint:wrapcheck // already coded
			}
			cmd.Printf("Forced version %d\n", v)
			return nil
		}),
	})

	return cmd
}

// withMigrator loads configuration, opens a migrator for the configured
// database and closes it after run.
func withMigrator(run func(*cobra.Command, migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("database url is required (set database.url or DATABASE_URL)")
		}

		m, err := openMigrator(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return run(cmd, m, args)
	}
}

func runMigrateUp(cmd *cobra.Command, m migrator) error {
	pending, err := m.Pending()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	if len(pending) == 0 {
		cmd.Println("Schema is up to date")
		return nil
	}
	if err := m.Up(); err != nil {
		return err //nolint:wrapcheck // already coded
	}
	cmd.Printf("Applied %d migration(s)\n", len(pending))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, m migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	pending, err := m.Pending()
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}

	cmd.Printf("Current version: %d\n", version)
	if dirty {
		cmd.Println("State: dirty (a migration failed; fix it and run 'migrate force')")
	}
	if len(pending) == 0 {
		cmd.Println("Pending: none")
		return nil
	}
	for _, v := range pending {
		name, err := store.MigrationName(v)
		if err != nil {
			return err //nolint:wrapcheck // already coded
		}
		cmd.Printf("Pending: %s\n", name)
	}
	return nil
}

func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer: %q", s)
	}
	if v < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative, got %d", v)
	}
	return v, nil
}
