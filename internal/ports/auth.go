package ports

// Package ports defines interfaces (hexagonal ports) for session and identity behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
)

// CredentialListener receives the current credential; nil means signed out.
type CredentialListener func(cred *domainauth.Credential)

// IdentityProvider is the per-client identity session. It owns the raw credential and
// announces every change to subscribers. Explicit operations never return a Session;
// their effect is observed through the change stream.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (domainauth.Credential, error)
	CreateAccount(ctx context.Context, email, password string) (domainauth.Credential, error)
	// SignOut is idempotent: signing out while signed out succeeds.
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	// Refresh re-announces the current credential to subscribers.
	Refresh(ctx context.Context) error
	Subscribe(fn CredentialListener) (unsubscribe func())
}

// AccountBackend checks and creates accounts. It is shared by every client.
type AccountBackend interface {
	Authenticate(ctx context.Context, email, password string) (domainauth.Account, error)
	Register(ctx context.Context, email, password string) (domainauth.Account, error)
	RequestPasswordReset(ctx context.Context, email string) error
}

// ErrCredentialNotFound is returned by CredentialStore.Get when a client holds no credential.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore persists the signed credential token for a client.
type CredentialStore interface {
	Save(ctx context.Context, clientID, token string, ttl time.Duration) error
	Get(ctx context.Context, clientID string) (string, error)
	Delete(ctx context.Context, clientID string) error
}

// ProfileStore reads and writes profile documents keyed by account id.
// GetProfile returns domainauth.ErrProfileNotFound when no document exists.
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (domainauth.ProfileDocument, error)
	SetProfile(ctx context.Context, uid string, doc domainauth.ProfileDocument) error
}

// NotificationKind classifies user-visible notifications.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a single user-facing message.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}

// Notifier delivers user-visible notifications. Implementations are fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, kind NotificationKind, message string)
}

// ResetSender delivers a password reset link to an account's email address.
type ResetSender interface {
	SendReset(ctx context.Context, email, token string) error
}

// ErrResetTokenNotFound is returned when a reset token is unknown, expired or already used.
var ErrResetTokenNotFound = errors.New("reset token not found")

// ResetTokenStore issues single-use password reset tokens bound to an account.
type ResetTokenStore interface {
	Issue(ctx context.Context, accountID string, ttl time.Duration) (string, error)
	// Consume returns the account bound to token and invalidates it.
	Consume(ctx context.Context, token string) (string, error)
}

// PasswordResetConfirmer completes a reset started by AccountBackend.RequestPasswordReset.
type PasswordResetConfirmer interface {
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}
