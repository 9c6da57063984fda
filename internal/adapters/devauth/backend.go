package devauth

// Package devauth provides an in-memory, config-seeded AccountBackend for local
// development and tests. Nothing it stores survives a restart.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	apperrors "github.com/kavach-app/kavach/internal/errors"
	"github.com/kavach-app/kavach/internal/ports"
	"github.com/kavach-app/kavach/internal/util"
)

// Seed is an account created at startup, with the profile written by SeedProfiles.
type Seed struct {
	Email       string
	Password    string
	Role        domainauth.Role
	StationID   string
	StationName string
}

// ParseSeeds parses entries of the form "email:password:role[:station_id:station_name]".
func ParseSeeds(entries []string) ([]Seed, error) {
	var seeds []Seed
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 5)
		if len(parts) != 3 && len(parts) != 5 {
			return nil, fmt.Errorf("dev account %q: want email:password:role[:station_id:station_name]", raw)
		}
		role, err := domainauth.ParseRole(parts[2])
		if err != nil {
			return nil, fmt.Errorf("dev account %q: %w", parts[0], err)
		}
		s := Seed{Email: strings.TrimSpace(parts[0]), Password: parts[1], Role: role}
		if len(parts) == 5 {
			s.StationID, s.StationName = strings.TrimSpace(parts[3]), strings.TrimSpace(parts[4])
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}

// Config controls the dev backend.
type Config struct {
	Seeds []Seed
	// Sender receives reset links; when nil password reset is unsupported.
	Sender ports.ResetSender
}

var (
	errPasswordTooShort  = apperrors.ValidationField("password", "password should be at least 6 characters")
	errResetTokenInvalid = apperrors.ValidationField("token", "password reset link is invalid or has expired")
)

type account struct {
	id    string
	email string
	hash  []byte
}

// Backend implements ports.AccountBackend in memory.
type Backend struct {
	mu       sync.Mutex
	accounts map[string]*account
	resets   map[string]string
	seeds    []Seed
	sender   ports.ResetSender
}

var (
	_ ports.AccountBackend         = (*Backend)(nil)
	_ ports.PasswordResetConfirmer = (*Backend)(nil)
)

// NewBackend constructs a Backend holding the seeded accounts.
func NewBackend(cfg Config) (*Backend, error) {
	b := &Backend{
		accounts: make(map[string]*account),
		resets:   make(map[string]string),
		sender:   cfg.Sender,
	}
	for _, s := range cfg.Seeds {
		if _, err := domainauth.PrincipalFromProfile(AccountID(s.Email), seedDocument(s, time.Time{})); err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.Email, err)
		}
		if _, err := b.add(s.Email, s.Password); err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.Email, err)
		}
		b.seeds = append(b.seeds, s)
	}
	return b, nil
}

// AccountID returns the stable id assigned to email. Ids are derived from the email so
// credentials issued before a restart still resolve to the same account.
func AccountID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("kavach-dev:"+util.NormalizeEmail(email))).String()
}

func (b *Backend) add(email, password string) (*account, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.ValidationField("email", "email address is badly formatted")
	}
	if len(password) < 6 {
		return nil, errPasswordTooShort
	}
	key := util.NormalizeEmail(email)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[key]; exists {
		return nil, domainauth.ErrEmailInUse
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &account{id: AccountID(email), email: email, hash: hash}
	b.accounts[key] = a
	return a, nil
}

func (b *Backend) lookup(email string) (*account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[util.NormalizeEmail(email)]
	return a, ok
}

// Authenticate checks email and password.
func (b *Backend) Authenticate(_ context.Context, email, password string) (domainauth.Account, error) {
	a, ok := b.lookup(email)
	if !ok || bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return domainauth.Account{}, domainauth.ErrInvalidCredentials
	}
	return domainauth.Account{UID: a.id, Email: a.email}, nil
}

// Register adds an account.
func (b *Backend) Register(_ context.Context, email, password string) (domainauth.Account, error) {
	a, err := b.add(email, password)
	if err != nil {
		return domainauth.Account{}, err
	}
	return domainauth.Account{UID: a.id, Email: a.email}, nil
}

// RequestPasswordReset hands a one-time token to the configured sender.
func (b *Backend) RequestPasswordReset(ctx context.Context, email string) error {
	if b.sender == nil {
		return domainauth.NewProviderError("password reset", domainauth.ErrUnsupported)
	}
	a, ok := b.lookup(email)
	if !ok {
		return nil
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	b.mu.Lock()
	b.resets[token] = util.NormalizeEmail(a.email)
	b.mu.Unlock()
	return b.sender.SendReset(ctx, a.email, token)
}

// ConfirmPasswordReset consumes token and replaces the password.
func (b *Backend) ConfirmPasswordReset(_ context.Context, token, newPassword string) error {
	if len(newPassword) < 6 {
		return errPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key, ok := b.resets[token]
	if !ok {
		return errResetTokenInvalid
	}
	delete(b.resets, token)
	if a, ok := b.accounts[key]; ok {
		a.hash = hash
	}
	return nil
}

// SeedProfiles writes a profile for every seeded account that does not have one yet
// and returns how many it wrote.
func (b *Backend) SeedProfiles(ctx context.Context, store ports.ProfileStore, now time.Time) (int, error) {
	written := 0
	for _, s := range b.seeds {
		id := AccountID(s.Email)
		_, err := store.GetProfile(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, domainauth.ErrProfileNotFound) {
			return written, fmt.Errorf("check profile for %s: %w", s.Email, err)
		}
		if err := store.SetProfile(ctx, id, seedDocument(s, now)); err != nil {
			return written, fmt.Errorf("seed profile for %s: %w", s.Email, err)
		}
		written++
	}
	return written, nil
}

func seedDocument(s Seed, now time.Time) domainauth.ProfileDocument {
	return domainauth.NewProfileDocument(s.Email, s.Role, now, domainauth.ProfileFields{
		StationID:   s.StationID,
		StationName: s.StationName,
	})
}
