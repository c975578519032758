// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/store"
)

// Migrator is the part of *store.Migrator driven by the migrate commands.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// migratorFactory opens a Migrator. Tests replace it.
var migratorFactory = func(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL users schema",
		Long:  `Apply, revert or inspect the embedded schema migrations.`,
	}

	var upSteps int
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				if upSteps > 0 {
					return m.Steps(upSteps)
				}
				return m.Up()
			}, "Migrations applied")
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "apply at most this many migrations (0 = all)")

	var downSteps int
	var downAll bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if downSteps <= 0 && !downAll {
				return oops.Code("MIGRATE_ARGS_INVALID").Errorf("pass --steps N or --all to revert migrations")
			}
			return withMigrator(cmd, func(m Migrator) error {
				if downAll {
					return m.Down()
				}
				return m.Steps(-downSteps)
			}, "Migrations reverted")
		},
	}
	down.Flags().IntVar(&downSteps, "steps", 0, "revert this many migrations")
	down.Flags().BoolVar(&downAll, "all", false, "revert every migration, dropping the users table")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				return writeYAML(cmd.OutOrStdout(), st)
			}, "")
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Record VERSION as applied without running it",
		Long: `Record VERSION as the applied migration and clear the dirty flag.
Use it to recover after a migration failed midway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").With("version", args[0]).Wrap(err)
			}
			return withMigrator(cmd, func(m Migrator) error {
				return m.Force(version)
			}, "Version forced")
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

// withMigrator opens a Migrator for the configured database, runs fn and
// prints done on success.
func withMigrator(cmd *cobra.Command, fn func(Migrator) error, done string) error {
	cfg, logger, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	if !cfg.UsesPostgres() {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("a database URL is required (--database-url or $%s)", config.DatabaseURLEnv)
	}

	m, err := migratorFactory(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := fn(m); err != nil {
		return err
	}
	if done != "" {
		cmd.Println(done)
	}
	return nil
}
