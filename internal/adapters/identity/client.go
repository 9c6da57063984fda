package identity

// Package identity implements the per-client identity session: it signs accounts in and
// out through an AccountBackend, keeps the signed credential in a CredentialStore keyed by
// the browser client, and announces every credential change to subscribers.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/ports"
)

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	ClientID string
	Accounts ports.AccountBackend
	Store    ports.CredentialStore
	Tokens   *TokenIssuer
	Logger   *slog.Logger
}

// Client is the identity session for one browser client.
type Client struct {
	clientID string
	accounts ports.AccountBackend
	store    ports.CredentialStore
	tokens   *TokenIssuer
	logger   *slog.Logger

	mu        sync.Mutex
	current   *domainauth.Credential
	listeners map[int]ports.CredentialListener
	nextID    int

	emitMu sync.Mutex
}

var _ ports.IdentityProvider = (*Client)(nil)

// NewClient constructs a signed-out Client. Call Restore to load a persisted credential.
func NewClient(opts ClientOptions) (*Client, error) {
	if strings.TrimSpace(opts.ClientID) == "" {
		return nil, errors.New("client id is required")
	}
	if opts.Accounts == nil || opts.Store == nil || opts.Tokens == nil {
		return nil, errors.New("accounts, store and tokens are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		clientID:  opts.ClientID,
		accounts:  opts.Accounts,
		store:     opts.Store,
		tokens:    opts.Tokens,
		logger:    logger.With("component", "identity_client", "client_id", opts.ClientID),
		listeners: make(map[int]ports.CredentialListener),
	}, nil
}

// Restore loads the persisted credential, if any, and announces it once.
// A missing, expired or tampered token restores as signed out.
func (c *Client) Restore(ctx context.Context) *domainauth.Credential {
	cred := c.load(ctx)
	c.set(cred)
	return cred
}

func (c *Client) load(ctx context.Context) *domainauth.Credential {
	token, err := c.store.Get(ctx, c.clientID)
	if err != nil {
		if !errors.Is(err, ports.ErrCredentialNotFound) {
			c.logger.WarnContext(ctx, "credential lookup failed", "error", err)
		}
		return nil
	}
	cred, err := c.tokens.Verify(token)
	if err != nil {
		c.logger.InfoContext(ctx, "discarding invalid credential", "error", err)
		if delErr := c.store.Delete(ctx, c.clientID); delErr != nil {
			c.logger.WarnContext(ctx, "credential cleanup failed", "error", delErr)
		}
		return nil
	}
	return &cred
}

// SignIn authenticates the account and stores a fresh credential for this client.
func (c *Client) SignIn(ctx context.Context, email, password string) (domainauth.Credential, error) {
	acct, err := c.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return domainauth.Credential{}, domainauth.AsProviderError("sign in", err)
	}
	return c.establish(ctx, acct)
}

// CreateAccount registers the account and signs it in.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (domainauth.Credential, error) {
	acct, err := c.accounts.Register(ctx, email, password)
	if err != nil {
		return domainauth.Credential{}, domainauth.AsProviderError("create account", err)
	}
	return c.establish(ctx, acct)
}

func (c *Client) establish(ctx context.Context, acct domainauth.Account) (domainauth.Credential, error) {
	cred, err := c.tokens.Issue(acct)
	if err != nil {
		return domainauth.Credential{}, domainauth.NewProviderError("issue credential", err)
	}
	ttl := time.Until(cred.ExpiresAt)
	if ttl <= 0 {
		ttl = c.tokens.TTL()
	}
	if err := c.store.Save(ctx, c.clientID, cred.Token, ttl); err != nil {
		return domainauth.Credential{}, domainauth.NewProviderError("store credential", err)
	}
	c.set(&cred)
	return cred, nil
}

// SignOut removes the stored credential. Signing out while signed out succeeds.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.clientID); err != nil {
		return domainauth.NewProviderError("sign out", fmt.Errorf("delete credential: %w", err))
	}
	c.set(nil)
	return nil
}

// SendPasswordReset asks the account backend to deliver a reset link.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	if err := c.accounts.RequestPasswordReset(ctx, email); err != nil {
		return domainauth.AsProviderError("password reset", err)
	}
	return nil
}

// Refresh re-announces the current credential.
func (c *Client) Refresh(_ context.Context) error {
	c.mu.Lock()
	cred := c.current
	c.mu.Unlock()
	c.set(cred)
	return nil
}

// Current returns the credential held by this client, or nil.
func (c *Client) Current() *domainauth.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cred := *c.current
	return &cred
}

// Subscribe registers fn for every credential change.
func (c *Client) Subscribe(fn ports.CredentialListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// set records cred and delivers it to every listener in change order.
func (c *Client) set(cred *domainauth.Credential) {
	c.mu.Lock()
	c.current = cred
	fns := make([]ports.CredentialListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()

	for _, fn := range fns {
		if cred == nil {
			fn(nil)
			continue
		}
		cp := *cred
		fn(&cp)
	}
}
