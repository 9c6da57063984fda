package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/kavach-app/kavach/config"
	redisadapter "github.com/kavach-app/kavach/internal/adapters/redis"
	"github.com/kavach-app/kavach/internal/bootstrap"
	"github.com/kavach-app/kavach/internal/data"
	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/migrate"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Stdin  io.Reader
	Stdout io.Writer
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations (or list pending ones with -status)",
			run:         runMigrations,
		},
		"provision": {
			name:        "provision",
			description: "Create an account and profile for any role",
			run:         runProvision,
		},
		"revoke": {
			name:        "revoke",
			description: "Delete the stored credential for a browser client",
			run:         runRevoke,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: kavach-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(w, "  %-12s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

type migrateOptions struct {
	Timeout time.Duration
	Status  bool
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration to wait for migrations to complete")
	fs.BoolVar(&opts.Status, "status", false, "List pending migrations without applying them")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("timeout must be positive")
	}
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	db, _, err := connectInfraWithOptions(ctx, &connectInfraOptions{
		Logger: cmdCtx.Logger,
		Config: &cmdCtx.Config,
		WantDB: true,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	if opts.Status {
		pending, pendingErr := migrate.NewRunner(migrate.Options{Logger: cmdCtx.Logger}).Pending(ctx, db)
		if pendingErr != nil {
			return fmt.Errorf("list pending migrations: %w", pendingErr)
		}
		return printPending(cmdCtx.Stdout, pending)
	}

	cmdCtx.Logger.Info("running database migrations")
	if migrateErr := data.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}
	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

func printPending(w io.Writer, pending []string) error {
	if len(pending) == 0 {
		return writef(w, "schema is up to date\n")
	}
	if err := writef(w, "%d pending migration(s):\n", len(pending)); err != nil {
		return err
	}
	for _, v := range pending {
		if err := writef(w, "  %s\n", v); err != nil {
			return err
		}
	}
	return nil
}

type provisionOptions struct {
	Email         string
	Password      string
	PasswordStdin bool
	Role          domainauth.Role
	DisplayName   string
	Phone         string
	StationID     string
	StationName   string
	Timeout       time.Duration
}

func parseProvisionFlags(args []string) (provisionOptions, error) {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts provisionOptions
		role string
	)
	fs.StringVar(&opts.Email, "email", "", "Account email (required)")
	fs.StringVar(&opts.Password, "password", "", "Account password")
	fs.BoolVar(&opts.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	fs.StringVar(&role, "role", string(domainauth.RoleCitizen), "Role: citizen, station_admin or official")
	fs.StringVar(&opts.DisplayName, "display-name", "", "Display name")
	fs.StringVar(&opts.Phone, "phone", "", "Phone number")
	fs.StringVar(&opts.StationID, "station-id", "", "Station id (station_admin only)")
	fs.StringVar(&opts.StationName, "station-name", "", "Station name (station_admin only)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return provisionOptions{}, err
	}

	parsed, err := domainauth.ParseRole(role)
	if err != nil {
		return provisionOptions{}, err
	}
	opts.Role = parsed

	if strings.TrimSpace(opts.Email) == "" {
		return provisionOptions{}, errors.New("-email is required")
	}
	if opts.PasswordStdin && opts.Password != "" {
		return provisionOptions{}, errors.New("use either -password or -password-stdin")
	}
	if !opts.PasswordStdin && opts.Password == "" {
		return provisionOptions{}, errors.New("a password is required (-password or -password-stdin)")
	}
	if opts.Role == domainauth.RoleStationAdmin && strings.TrimSpace(opts.StationID) == "" {
		return provisionOptions{}, errors.New("-station-id is required for station_admin")
	}
	if opts.Role != domainauth.RoleStationAdmin && (opts.StationID != "" || opts.StationName != "") {
		return provisionOptions{}, fmt.Errorf("station flags only apply to station_admin, not %s", opts.Role)
	}
	if opts.Timeout <= 0 {
		return provisionOptions{}, errors.New("timeout must be positive")
	}
	return opts, nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("empty password on stdin")
	}
	return pw, nil
}

func (o provisionOptions) input() data.ProvisionInput {
	return data.ProvisionInput{
		Email:    o.Email,
		Password: o.Password,
		Role:     o.Role,
		Fields: domainauth.ProfileFields{
			DisplayName: o.DisplayName,
			PhoneNumber: o.Phone,
			StationID:   o.StationID,
			StationName: o.StationName,
		},
	}
}

func runProvision(cmdCtx *commandContext, args []string) error {
	opts, err := parseProvisionFlags(args)
	if err != nil {
		return err
	}
	if opts.PasswordStdin {
		if opts.Password, err = readPassword(cmdCtx.Stdin); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, _, err := connectInfraWithOptions(ctx, &connectInfraOptions{
		Logger: cmdCtx.Logger,
		Config: &cmdCtx.Config,
		WantDB: true,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	accounts := data.NewAccountRepo(data.AccountRepoOptions{DB: db, Logger: cmdCtx.Logger})
	principal, err := data.NewProvisioner(db, accounts, data.NewProfileRepo(db)).Provision(ctx, opts.input())
	if err != nil {
		return fmt.Errorf("provision %s: %w", opts.Email, err)
	}

	cmdCtx.Logger.InfoContext(ctx, "account provisioned", "uid", principal.ID, "role", principal.Role())
	return printPrincipal(cmdCtx.Stdout, principal)
}

func printPrincipal(w io.Writer, p domainauth.Principal) error {
	if err := writef(w, "uid:   %s\nemail: %s\nrole:  %s\n", p.ID, p.Email, p.Role()); err != nil {
		return err
	}
	if st, ok := p.Station(); ok {
		return writef(w, "station: %s (%s)\n", st.ID, st.Name)
	}
	return nil
}

type revokeOptions struct {
	ClientIDs []string
	Timeout   time.Duration
}

func parseRevokeFlags(args []string) (revokeOptions, error) {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := revokeOptions{}
	var ids string
	fs.StringVar(&ids, "client-id", "", "Comma separated browser client ids")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration for the command")

	if err := fs.Parse(args); err != nil {
		return revokeOptions{}, err
	}
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			opts.ClientIDs = append(opts.ClientIDs, id)
		}
	}
	if len(opts.ClientIDs) == 0 {
		return revokeOptions{}, errors.New("-client-id is required")
	}
	return opts, nil
}

func runRevoke(cmdCtx *commandContext, args []string) error {
	opts, err := parseRevokeFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	_, rc, err := connectInfraWithOptions(ctx, &connectInfraOptions{
		Logger:    cmdCtx.Logger,
		Config:    &cmdCtx.Config,
		WantRedis: true,
	})
	if err != nil {
		return err
	}
	if rc == nil {
		return errRedisNotConfigured
	}
	defer func() {
		if closeErr := closeInfra(nil, rc); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	return revokeCredentials(ctx, redisadapter.NewCredentialStore(rc), opts.ClientIDs, cmdCtx.Stdout, cmdCtx.Logger)
}

// credentialRevoker is the part of the credential store revoke needs.
type credentialRevoker interface {
	TTL(ctx context.Context, clientID string) (time.Duration, error)
	Delete(ctx context.Context, clientID string) error
}

// revokeCredentials deletes each client's credential and reports how much lifetime it had left.
func revokeCredentials(ctx context.Context, store credentialRevoker, ids []string, w io.Writer, logger *slog.Logger) error {
	for _, id := range ids {
		remaining, err := store.TTL(ctx, id)
		if err != nil {
			return fmt.Errorf("revoke %s: %w", id, err)
		}
		if err := store.Delete(ctx, id); err != nil {
			return fmt.Errorf("revoke %s: %w", id, err)
		}
		logger.InfoContext(ctx, "credential revoked", "client_id", id, "remaining", remaining)
		status := "revoked"
		if remaining == 0 {
			status = "absent"
		}
		if err := writef(w, "%-40s %-8s %s\n", id, status, remaining.Round(time.Second)); err != nil {
			return err
		}
	}
	return nil
}
