package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	apperrors "github.com/kavach-app/kavach/internal/errors"
	"github.com/kavach-app/kavach/internal/data/pgxutil"
	"github.com/kavach-app/kavach/internal/ports"
	"github.com/kavach-app/kavach/internal/util"
)

// MinPasswordLen is the shortest password accepted at registration and reset.
const MinPasswordLen = 6

// DefaultResetTTL bounds the lifetime of a password reset token.
const DefaultResetTTL = time.Hour

// dummyHash is compared against when an email is unknown so both paths cost a bcrypt round.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOa1JmdzRj/Q1S3oqL1sKYFm1aU1ZAK7S")

// AccountRepoOptions groups dependencies for AccountRepo.
type AccountRepoOptions struct {
	DB *sql.DB
	// Resets and Sender are optional; without them RequestPasswordReset fails.
	Resets   ports.ResetTokenStore
	Sender   ports.ResetSender
	ResetTTL time.Duration
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost   int
	Clock  TimeProvider
	Logger *slog.Logger
}

// AccountRepo stores email/password accounts in Postgres and implements ports.AccountBackend.
type AccountRepo struct {
	db       *sql.DB
	resets   ports.ResetTokenStore
	sender   ports.ResetSender
	resetTTL time.Duration
	cost     int
	clock    TimeProvider
	logger   *slog.Logger
}

var _ ports.AccountBackend = (*AccountRepo)(nil)

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(opts AccountRepoOptions) *AccountRepo {
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	ttl := opts.ResetTTL
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountRepo{
		db:       opts.DB,
		resets:   opts.Resets,
		sender:   opts.Sender,
		resetTTL: ttl,
		cost:     cost,
		clock:    clockOrDefault(opts.Clock),
		logger:   logger.With("component", "account_repo"),
	}
}

type accountRow struct {
	id    string
	email string
	hash  string
}

func (r *AccountRepo) findByEmail(ctx context.Context, email string) (accountRow, error) {
	var row accountRow
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM accounts WHERE lower(email) = $1`,
		util.NormalizeEmail(email),
	).Scan(&row.id, &row.email, &row.hash)
	return row, err
}

// Authenticate checks the password for email. Unknown emails and wrong passwords both
// return domainauth.ErrInvalidCredentials.
func (r *AccountRepo) Authenticate(ctx context.Context, email, password string) (domainauth.Account, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return domainauth.Account{}, domainauth.ErrInvalidCredentials
	}
	row, err := r.findByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return domainauth.Account{}, domainauth.ErrInvalidCredentials
	}
	if err != nil {
		return domainauth.Account{}, fmt.Errorf("find account: %w", apperrors.MapDBError(err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.hash), []byte(password)); err != nil {
		return domainauth.Account{}, domainauth.ErrInvalidCredentials
	}
	return domainauth.Account{UID: row.id, Email: row.email}, nil
}

// Register creates an account. An existing account for the email (case-insensitive)
// returns domainauth.ErrEmailInUse.
func (r *AccountRepo) Register(ctx context.Context, email, password string) (domainauth.Account, error) {
	return r.register(ctx, r.db, email, password)
}

func (r *AccountRepo) register(ctx context.Context, ex pgxutil.Execer, email, password string) (domainauth.Account, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		return domainauth.Account{}, err
	}
	hash, err := r.hashPassword(password)
	if err != nil {
		return domainauth.Account{}, err
	}

	id := uuid.NewString()
	now := r.clock.Now().UTC()
	_, err = ex.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		id, email, string(hash), now,
	)
	if apperrors.IsUniqueViolation(err) {
		return domainauth.Account{}, domainauth.ErrEmailInUse
	}
	if err != nil {
		return domainauth.Account{}, fmt.Errorf("insert account: %w", apperrors.MapDBError(err))
	}
	return domainauth.Account{UID: id, Email: email}, nil
}

func (r *AccountRepo) hashPassword(password string) ([]byte, error) {
	if len(password) < MinPasswordLen {
		return nil, ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// RequestPasswordReset issues a reset token and hands it to the ResetSender. Unknown
// emails succeed silently so the endpoint cannot be used to discover accounts.
func (r *AccountRepo) RequestPasswordReset(ctx context.Context, email string) error {
	if r.resets == nil || r.sender == nil {
		return ErrResetNotConfigured
	}
	if _, err := ValidateEmail(email); err != nil {
		return err
	}
	row, err := r.findByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.InfoContext(ctx, "password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find account: %w", apperrors.MapDBError(err))
	}

	token, err := r.resets.Issue(ctx, row.id, r.resetTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := r.sender.SendReset(ctx, row.email, token); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ConfirmPasswordReset consumes token and sets a new password on the bound account.
func (r *AccountRepo) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if r.resets == nil {
		return ErrResetNotConfigured
	}
	hash, err := r.hashPassword(newPassword)
	if err != nil {
		return err
	}
	accountID, err := r.resets.Consume(ctx, strings.TrimSpace(token))
	if errors.Is(err, ports.ErrResetTokenNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		string(hash), r.clock.Now().UTC(), accountID,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", apperrors.MapDBError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrResetTokenInvalid
	}
	return nil
}

// ValidateEmail trims email and checks it parses as a bare address.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
