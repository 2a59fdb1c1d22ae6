package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/lockbox/lockbox/migrations"
)

// MigrationDirection selects which way Migrate moves the schema.
type MigrationDirection string

const (
	MigrateUp   MigrationDirection = "up"
	MigrateDown MigrationDirection = "down"
)

// Migrate applies the embedded goose migrations to databaseURL.
// goose works over database/sql, so this opens a short-lived lib/pq
// connection separate from the pgx pool.
func Migrate(ctx context.Context, databaseURL string, direction MigrationDirection, logger *slog.Logger) error {
	db, err := openMigrationDB(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case MigrateUp:
		err = goose.UpContext(ctx, db, ".")
	case MigrateDown:
		err = goose.DownContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if logger != nil {
		logger.Info("migrations applied",
			slog.String("direction", string(direction)),
			slog.Int64("version", version),
		)
	}
	return nil
}

// MigrationStatus writes goose's applied/pending table for every migration to w.
func MigrationStatus(ctx context.Context, databaseURL string, w io.Writer) error {
	db, err := openMigrationDB(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetLogger(log.New(w, "", 0))
	defer goose.SetLogger(goose.NopLogger())

	if err := goose.StatusContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

func openMigrationDB(databaseURL string) (*sql.DB, error) {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("goose dialect: %w", err)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	return db, nil
}
