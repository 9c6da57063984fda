package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/data/pgxutil"
)

// ProvisionInput describes an account created by an operator, typically a
// station_admin or official that cannot self-register with a station attached.
type ProvisionInput struct {
	Email    string
	Password string
	Role     domainauth.Role
	Fields   domainauth.ProfileFields
}

// Provisioner creates an account and its profile atomically.
type Provisioner struct {
	DB       *sql.DB
	Accounts *AccountRepo
	Profiles *ProfileRepo
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(db *sql.DB, accounts *AccountRepo, profiles *ProfileRepo) *Provisioner {
	return &Provisioner{DB: db, Accounts: accounts, Profiles: profiles}
}

// Provision validates the profile, then inserts the account and profile in one transaction.
func (p *Provisioner) Provision(ctx context.Context, in ProvisionInput) (domainauth.Principal, error) {
	if p.Accounts == nil || p.Profiles == nil {
		return domainauth.Principal{}, errors.New("provisioner is not configured")
	}
	email, err := ValidateEmail(in.Email)
	if err != nil {
		return domainauth.Principal{}, err
	}
	doc := domainauth.NewProfileDocument(email, in.Role, p.Accounts.clock.Now(), in.Fields)
	if _, err := domainauth.PrincipalFromProfile("pending", doc); err != nil {
		return domainauth.Principal{}, fmt.Errorf("invalid profile: %w", err)
	}

	var principal domainauth.Principal
	err = pgxutil.WithSQLTx(ctx, p.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		acct, err := p.Accounts.register(ctx, tx, email, in.Password)
		if err != nil {
			return err
		}
		if err := p.Profiles.upsert(ctx, tx, acct.UID, doc); err != nil {
			return err
		}
		principal, err = domainauth.PrincipalFromProfile(acct.UID, doc)
		return err
	}})
	if err != nil {
		return domainauth.Principal{}, err
	}
	return principal, nil
}
