package data

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/kavach-app/kavach/internal/migrate"
)

// RunMigrations applies pending schema migrations and logs the versions it applied.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	applied, err := migrate.NewRunner(migrate.Options{Logger: logger}).Apply(ctx, db)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.InfoContext(ctx, "database migrations applied", "versions", applied)
	}
	return nil
}
