package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSQLTx_Commits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithSQLTx(context.Background(), db, SQLTxConfig{Fn: func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(context.Background(), "UPDATE accounts SET email = $1", "a@x.io")
		return execErr
	}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSQLTx_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithSQLTx(context.Background(), db, SQLTxConfig{Fn: func(*sql.Tx) error { return boom }})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSQLTx_RequiresFn(t *testing.T) {
	require.Error(t, WithSQLTx(context.Background(), nil, SQLTxConfig{}))
}
