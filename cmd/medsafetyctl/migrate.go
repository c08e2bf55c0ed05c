package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmassist-medsafety/internal/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres schema",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: database.migrations_path)")

	open := func() (*database.MigrationRunner, error) {
		if opts.lite {
			return nil, errors.New("migrations apply to Postgres only; the lite stores create their schema on open")
		}
		cfg, manager, err := opts.loadConfig()
		if err != nil {
			return nil, err
		}
		dir := path
		if dir == "" {
			dir = cfg.Database.MigrationsPath
		}
		return database.NewMigrationRunner(manager.GetDatabaseURL(), dir, opts.logger)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				runner, err := open()
				if err != nil {
					return err
				}
				defer runner.Close()
				if err := runner.Up(cmd.Context()); err != nil {
					return err
				}
				return printVersion(cmd, runner)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				runner, err := open()
				if err != nil {
					return err
				}
				defer runner.Close()
				if err := runner.Down(cmd.Context()); err != nil {
					return err
				}
				return printVersion(cmd, runner)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				runner, err := open()
				if err != nil {
					return err
				}
				defer runner.Close()
				return printVersion(cmd, runner)
			},
		},
	)
	return cmd
}

func printVersion(cmd *cobra.Command, runner *database.MigrationRunner) error {
	v, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", v, dirty)
	return nil
}
