package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lockbox/lockbox/internal/repository"
)

var errNoDatabaseURL = errors.New("database URL is required (--database-url or DATABASE_URL)")

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect database migrations",
	}

	direction := func(use, short string, dir repository.MigrationDirection) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if opts.databaseURL == "" {
					return errNoDatabaseURL
				}
				logger := slog.New(slog.NewTextHandler(io.Discard, nil))
				if err := repository.Migrate(cmd.Context(), opts.databaseURL, dir, logger); err != nil {
					printFailure(cmd.ErrOrStderr(), "migrate %s failed: %v", use, err)
					return err
				}
				printSuccess(cmd.OutOrStdout(), "migrate %s complete", use)
				return nil
			},
		}
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.databaseURL == "" {
				return errNoDatabaseURL
			}
			if err := repository.MigrationStatus(cmd.Context(), opts.databaseURL, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("migration status: %w", err)
			}
			return nil
		},
	}

	cmd.AddCommand(
		direction("up", "Apply all pending migrations", repository.MigrateUp),
		direction("down", "Roll back the most recent migration", repository.MigrateDown),
		status,
	)
	return cmd
}
