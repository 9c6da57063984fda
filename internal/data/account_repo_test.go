package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	authmocks "github.com/kavach-app/kavach/internal/mocks/auth"
)

var repoNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type accountHarness struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	resets *authmocks.MemoryResetTokenStore
	sender *authmocks.RecordingResetSender
	repo   *AccountRepo
}

func newAccountHarness(t *testing.T) *accountHarness {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &accountHarness{
		db:     db,
		mock:   mock,
		resets: authmocks.NewMemoryResetTokenStore(),
		sender: &authmocks.RecordingResetSender{},
	}
	h.repo = NewAccountRepo(AccountRepoOptions{
		DB:     db,
		Resets: h.resets,
		Sender: h.sender,
		Cost:   bcrypt.MinCost,
		Clock:  NewFixedTimeProvider(repoNow),
	})
	return h
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash"})
}

func TestAccountRepo_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid password", func(t *testing.T) {
		h := newAccountHarness(t)
		h.mock.ExpectQuery("SELECT id, email, password_hash FROM accounts").
			WithArgs("ravi@example.in").
			WillReturnRows(accountRows().AddRow("acct-1", "Ravi@example.in", hashFor(t, "secret1")))

		acct, err := h.repo.Authenticate(ctx, " Ravi@Example.in ", "secret1")
		require.NoError(t, err)
		assert.Equal(t, domainauth.Account{UID: "acct-1", Email: "Ravi@example.in"}, acct)
		require.NoError(t, h.mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		h := newAccountHarness(t)
		h.mock.ExpectQuery("SELECT id, email, password_hash FROM accounts").
			WillReturnRows(accountRows().AddRow("acct-1", "ravi@example.in", hashFor(t, "secret1")))

		_, err := h.repo.Authenticate(ctx, "ravi@example.in", "nope12")
		require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		h := newAccountHarness(t)
		h.mock.ExpectQuery("SELECT id, email, password_hash FROM accounts").WillReturnRows(accountRows())

		_, err := h.repo.Authenticate(ctx, "ghost@example.in", "secret1")
		require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	})

	t.Run("empty input skips the database", func(t *testing.T) {
		h := newAccountHarness(t)
		_, err := h.repo.Authenticate(ctx, "", "secret1")
		require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
		require.NoError(t, h.mock.ExpectationsWereMet())
	})

	t.Run("database failure is not invalid credentials", func(t *testing.T) {
		h := newAccountHarness(t)
		h.mock.ExpectQuery("SELECT id, email, password_hash FROM accounts").WillReturnError(errors.New("conn reset"))

		_, err := h.repo.Authenticate(ctx, "ravi@example.in", "secret1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domainauth.ErrInvalidCredentials)
	})
}

func TestAccountRepo_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts hashed password", func(t *testing.T) {
		h := newAccountHarness(t)
		h.mock.ExpectExec("INSERT INTO accounts").
			WithArgs(sqlmock.AnyArg(), "asha@example.in", sqlmock.AnyArg(), repoNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		acct, err := h.repo.Register(ctx, " asha@example.in", "secret1")
		require.NoError(t, err)
		assert.NotEmpty(t, acct.UID)
		assert.Equal(t, "asha@example.in", acct.Email)
		require.NoError(t, h.mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		h := newAccountHarness(t)
		h.mock.ExpectExec("INSERT INTO accounts").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_email_lower_key"})

		_, err := h.repo.Register(ctx, "asha@example.in", "secret1")
		require.ErrorIs(t, err, domainauth.ErrEmailInUse)
	})

	t.Run("rejects weak password and bad email before writing", func(t *testing.T) {
		h := newAccountHarness(t)
		_, err := h.repo.Register(ctx, "asha@example.in", "12345")
		require.ErrorIs(t, err, ErrPasswordTooShort)
		_, err = h.repo.Register(ctx, "not-an-email", "secret1")
		require.ErrorIs(t, err, ErrInvalidEmail)
		_, err = h.repo.Register(ctx, "  ", "secret1")
		require.ErrorIs(t, err, ErrEmailRequired)
		require.NoError(t, h.mock.ExpectationsWereMet())
	})
}

func TestAccountRepo_PasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	h := newAccountHarness(t)

	h.mock.ExpectQuery("SELECT id, email, password_hash FROM accounts").
		WithArgs("asha@example.in").
		WillReturnRows(accountRows().AddRow("acct-7", "asha@example.in", hashFor(t, "secret1")))
	require.NoError(t, h.repo.RequestPasswordReset(ctx, "asha@example.in"))

	token, ok := h.sender.Token("asha@example.in")
	require.True(t, ok)
	assert.Equal(t, DefaultResetTTL, h.resets.TTLs[token])

	h.mock.ExpectExec("UPDATE accounts SET password_hash").
		WithArgs(sqlmock.AnyArg(), repoNow, "acct-7").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, h.repo.ConfirmPasswordReset(ctx, token, "newsecret"))

	err := h.repo.ConfirmPasswordReset(ctx, token, "newsecret")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestAccountRepo_RequestPasswordResetUnknownEmail(t *testing.T) {
	h := newAccountHarness(t)
	h.mock.ExpectQuery("SELECT id, email, password_hash FROM accounts").WillReturnRows(accountRows())

	require.NoError(t, h.repo.RequestPasswordReset(context.Background(), "ghost@example.in"))
	assert.Empty(t, h.sender.Sent)
}

func TestAccountRepo_RequestPasswordResetSenderFailure(t *testing.T) {
	h := newAccountHarness(t)
	h.sender.Err = errors.New("smtp refused")
	h.mock.ExpectQuery("SELECT id, email, password_hash FROM accounts").
		WillReturnRows(accountRows().AddRow("acct-7", "asha@example.in", "x"))

	err := h.repo.RequestPasswordReset(context.Background(), "asha@example.in")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp refused")
}

func TestAccountRepo_ResetNotConfigured(t *testing.T) {
	repo := NewAccountRepo(AccountRepoOptions{})
	require.ErrorIs(t, repo.RequestPasswordReset(context.Background(), "a@x.io"), ErrResetNotConfigured)
	require.ErrorIs(t, repo.ConfirmPasswordReset(context.Background(), "t", "secret1"), ErrResetNotConfigured)
}

func TestValidateEmail(t *testing.T) {
	got, err := ValidateEmail("  officer@police.gov.in ")
	require.NoError(t, err)
	assert.Equal(t, "officer@police.gov.in", got)

	for _, bad := range []string{"plain", "Name <a@x.io>", "a@"} {
		_, err := ValidateEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}
