package main

import (
	"os"

	"github.com/spf13/cobra"
)

// globalOptions are flags shared by every subcommand. Defaults come from
// the same environment variables the server reads.
type globalOptions struct {
	databaseURL string
	redisURL    string
	backend     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "lockboxctl",
		Short: "Administer a Lockbox deployment",
		Long: `lockboxctl manages a Lockbox deployment.

Available Commands:
  keygen       Generate ENCRYPTION_KEY and JWT_SECRET values
  migrate      Apply, roll back or inspect database migrations
  verify-key   Check that stored secrets decrypt with ENCRYPTION_KEY
`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	flags.StringVar(&opts.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis connection URL")
	flags.StringVar(&opts.backend, "backend", envOr("STORAGE_BACKEND", "postgres"), "storage backend: postgres or redis")

	root.AddCommand(newKeygenCmd())
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newVerifyKeyCmd(opts))

	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
