package migrate

// Package migrate applies the embedded Postgres schema for accounts and profiles.

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// lockKey serializes concurrent migrators (several kavach replicas starting together).
const lockKey int64 = 0x6b617661636821

// Options configures a Runner.
type Options struct {
	// FS overrides the embedded migrations; files must live under "migrations/".
	FS     fs.FS
	Logger *slog.Logger
}

// Runner applies versioned SQL files inside per-file transactions.
type Runner struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewRunner builds a Runner over the embedded migrations unless opts.FS is set.
func NewRunner(opts Options) *Runner {
	fsys := opts.FS
	if fsys == nil {
		fsys = migrationsFS
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{fsys: fsys, logger: logger.With("component", "migrations")}
}

// Run applies all embedded migrations. It is safe to call multiple times.
func Run(ctx context.Context, db *sql.DB) error {
	_, err := NewRunner(Options{}).Apply(ctx, db)
	return err
}

// Versions lists the migration versions known to the runner in apply order.
func (r *Runner) Versions() ([]string, error) {
	entries, err := fs.ReadDir(r.fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(e.Name(), ".sql"))
	}
	sort.Strings(versions)
	return versions, nil
}

// Apply runs every pending migration and returns the versions it applied.
func (r *Runner) Apply(ctx context.Context, db *sql.DB) (applied []string, err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, unlockErr := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, lockKey); unlockErr != nil {
			err = errors.Join(err, fmt.Errorf("release migration lock: %w", unlockErr))
		}
	}()

	if err = ensureTable(ctx, conn); err != nil {
		return nil, err
	}
	pending, err := r.pending(ctx, conn)
	if err != nil {
		return nil, err
	}
	for _, version := range pending {
		if err = r.applyOne(ctx, conn, version); err != nil {
			return applied, err
		}
		applied = append(applied, version)
	}
	if len(applied) == 0 {
		r.logger.DebugContext(ctx, "schema up to date")
	}
	return applied, nil
}

// Pending reports the versions that Apply would run.
func (r *Runner) Pending(ctx context.Context, db *sql.DB) ([]string, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()
	if err := ensureTable(ctx, conn); err != nil {
		return nil, err
	}
	return r.pending(ctx, conn)
}

func ensureTable(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func (r *Runner) pending(ctx context.Context, conn *sql.Conn) ([]string, error) {
	versions, err := r.Versions()
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]struct{})
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		done[v] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migrations: %w", err)
	}

	out := make([]string, 0, len(versions))
	for _, v := range versions {
		if _, ok := done[v]; !ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *Runner) applyOne(ctx context.Context, conn *sql.Conn, version string) error {
	body, err := fs.ReadFile(r.fsys, "migrations/"+version+".sql")
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}

	r.logger.InfoContext(ctx, "applying migration", "version", version)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.ErrorContext(ctx, "failed to rollback migration", "error", rbErr, "version", version)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("exec migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
