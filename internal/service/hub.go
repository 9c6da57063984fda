package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/observability/statsd"
	"github.com/kavach-app/kavach/internal/ports"
)

// ClientIdentity is an identity session bound to one browser client that can reload
// the credential persisted for that client.
type ClientIdentity interface {
	ports.IdentityProvider
	Restore(ctx context.Context) *domainauth.Credential
}

// IdentityFactory opens the identity session for a client.
type IdentityFactory func(clientID string) (ClientIdentity, error)

// NotifierFactory returns the notification sink for a client.
type NotifierFactory func(clientID string) ports.Notifier

// HubOptions groups dependencies for SessionHub.
type HubOptions struct {
	Identities     IdentityFactory              // Required
	Profiles       ports.ProfileStore           // Required
	Notifiers      NotifierFactory              // Optional
	Authorizer     *Authorizer                  // Optional: defaults to the application route table
	Resets         ports.PasswordResetConfirmer // Optional: nil when the backend cannot complete resets
	ResolveTimeout time.Duration                // Optional: bound for Resolve, default 5s
	Metrics        statsd.Sink                  // Optional
	Logger         *slog.Logger                 // Optional
}

// SessionHub opens a Resolver per request for the calling browser client. Resolvers are
// short-lived: the persisted credential is the only state that outlives a request.
type SessionHub struct {
	identities     IdentityFactory
	profiles       ports.ProfileStore
	notifiers      NotifierFactory
	authorizer     *Authorizer
	resets         ports.PasswordResetConfirmer
	resolveTimeout time.Duration
	metrics        statsd.Sink
	logger         *slog.Logger
}

// ErrResetUnsupported is returned by ConfirmPasswordReset when no confirmer is configured.
var ErrResetUnsupported = errors.New("password reset confirmation is not supported")

// NewSessionHub validates options and constructs a SessionHub.
func NewSessionHub(opts HubOptions) (*SessionHub, error) {
	if opts.Identities == nil || opts.Profiles == nil {
		return nil, errors.New("identity factory and profile store are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authz := opts.Authorizer
	if authz == nil {
		authz = NewAuthorizer(AuthorizerOptions{Routes: domainauth.DefaultRouteTable(), Metrics: opts.Metrics})
	}
	timeout := opts.ResolveTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SessionHub{
		identities:     opts.Identities,
		profiles:       opts.Profiles,
		notifiers:      opts.Notifiers,
		authorizer:     authz,
		resets:         opts.Resets,
		resolveTimeout: timeout,
		metrics:        opts.Metrics,
		logger:         logger.With("component", "session_hub"),
	}, nil
}

// Authorizer returns the route authorizer shared by every request.
func (h *SessionHub) Authorizer() *Authorizer { return h.authorizer }

// Notifier returns the notification sink for a client, or nil.
func (h *SessionHub) Notifier(clientID string) ports.Notifier {
	if h.notifiers == nil {
		return nil
	}
	return h.notifiers(clientID)
}

// Open builds a resolver for clientID and restores the client's persisted credential.
// The caller must Close the returned resolver.
func (h *SessionHub) Open(ctx context.Context, clientID string) (*Resolver, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("client id is required")
	}
	ident, err := h.identities(clientID)
	if err != nil {
		return nil, fmt.Errorf("open identity for client: %w", err)
	}
	r := NewResolver(ResolverOptions{
		Identity: ident,
		Profiles: h.profiles,
		Notifier: h.Notifier(clientID),
		Metrics:  h.metrics,
		Logger:   h.logger,
	})
	ident.Restore(ctx)
	return r, nil
}

// Resolve opens a resolver for clientID and waits for the session to be ready.
// A session still loading after the resolve timeout is returned with the context error.
func (h *SessionHub) Resolve(ctx context.Context, clientID string) (domainauth.Session, error) {
	r, err := h.Open(ctx, clientID)
	if err != nil {
		return domainauth.Session{Status: domainauth.StatusLoading}, err
	}
	defer r.Close()
	return h.Await(ctx, r)
}

// Await waits, bounded by the resolve timeout, for r to become ready.
func (h *SessionHub) Await(ctx context.Context, r *Resolver) (domainauth.Session, error) {
	waitCtx, cancel := context.WithTimeout(ctx, h.resolveTimeout)
	defer cancel()
	sess, err := r.WaitReady(waitCtx)
	if err != nil {
		h.logger.WarnContext(ctx, "session did not resolve", "error", err)
	}
	return sess, err
}

// Decide resolves the client's session and evaluates a navigation to path. A redirect
// carrying a message is flashed to the client so the destination page can show it.
func (h *SessionHub) Decide(ctx context.Context, clientID, path string) (Decision, domainauth.Session) {
	d, sess := h.Preview(ctx, clientID, path)
	if d.Notify != "" {
		if n := h.Notifier(clientID); n != nil {
			n.Notify(ctx, ports.NotifyError, d.Notify)
		}
	}
	return d, sess
}

// Preview evaluates a navigation like Decide but queues no notification.
func (h *SessionHub) Preview(ctx context.Context, clientID, path string) (Decision, domainauth.Session) {
	sess, _ := h.Resolve(ctx, clientID)
	return h.authorizer.Evaluate(sess, path), sess
}

// ConfirmPasswordReset completes a reset with the token from the reset link.
func (h *SessionHub) ConfirmPasswordReset(ctx context.Context, clientID, token, newPassword string) error {
	if h.resets == nil {
		return ErrResetUnsupported
	}
	err := domainauth.AsProviderError("reset", h.resets.ConfirmPasswordReset(ctx, token, newPassword))
	n := h.Notifier(clientID)
	if n == nil {
		return err
	}
	if err != nil {
		n.Notify(ctx, ports.NotifyError, FailureMessage(err, MsgResetConfirmFailed))
		return err
	}
	n.Notify(ctx, ports.NotifySuccess, MsgResetConfirmed)
	return nil
}
