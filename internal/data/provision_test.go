package data

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
)

func newProvisioner(t *testing.T) (*Provisioner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := NewFixedTimeProvider(repoNow)
	accounts := NewAccountRepo(AccountRepoOptions{DB: db, Cost: bcrypt.MinCost, Clock: clock})
	profiles := NewProfileRepo(db)
	profiles.Clock = clock
	return NewProvisioner(db, accounts, profiles), mock
}

func TestProvisioner_StationAdmin(t *testing.T) {
	p, mock := newProvisioner(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO profiles").
		WithArgs(sqlmock.AnyArg(), "sho@police.gov.in", "station_admin", "SHO", "", "",
			"st-12", "Kothrud PS", []byte("{}"), repoNow, repoNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	principal, err := p.Provision(context.Background(), ProvisionInput{
		Email:    "sho@police.gov.in",
		Password: "secret1",
		Role:     domainauth.RoleStationAdmin,
		Fields:   domainauth.ProfileFields{DisplayName: "SHO", StationID: "st-12", StationName: "Kothrud PS"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, principal.ID)
	assert.Equal(t, domainauth.RoleStationAdmin, principal.Role())
	st, ok := principal.Station()
	require.True(t, ok)
	assert.Equal(t, "st-12", st.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisioner_RejectsStationlessAdminBeforeWriting(t *testing.T) {
	p, mock := newProvisioner(t)

	_, err := p.Provision(context.Background(), ProvisionInput{
		Email:    "sho@police.gov.in",
		Password: "secret1",
		Role:     domainauth.RoleStationAdmin,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisioner_DuplicateEmailRollsBack(t *testing.T) {
	p, mock := newProvisioner(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
	mock.ExpectRollback()

	_, err := p.Provision(context.Background(), ProvisionInput{
		Email:    "asha@example.in",
		Password: "secret1",
		Role:     domainauth.RoleCitizen,
	})
	require.ErrorIs(t, err, domainauth.ErrEmailInUse)
	require.NoError(t, mock.ExpectationsWereMet())
}
