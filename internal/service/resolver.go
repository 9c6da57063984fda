package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/observability/metrics"
	"github.com/kavach-app/kavach/internal/observability/statsd"
	"github.com/kavach-app/kavach/internal/ports"
)

// User-facing notification text.
const (
	MsgLoginSuccess       = "Logged in successfully"
	MsgLoginInvalid       = "Invalid email or password"
	MsgLoginFailed        = "Failed to login"
	MsgSignupSuccess      = "Account created successfully"
	MsgSignupEmailInUse   = "Email already in use"
	MsgSignupFailed       = "Failed to create account"
	MsgLogoutSuccess      = "Logged out successfully"
	MsgLogoutFailed       = "Failed to logout"
	MsgResetSent          = "Password reset email sent"
	MsgResetFailed        = "Failed to send reset email"
	MsgResetConfirmed     = "Password updated, please log in"
	MsgResetConfirmFailed = "Failed to reset password"
	MsgPermissionDenied   = "You do not have permission to access that page"
)

const (
	profileLookupFound   = "found"
	profileLookupMissing = "missing"
	profileLookupInvalid = "invalid"
	profileLookupError   = "error"
)

// ErrResolverClosed is returned by WaitReady once the resolver has been closed.
var ErrResolverClosed = errors.New("session resolver closed")

// ResolverOptions groups dependencies for Resolver.
type ResolverOptions struct {
	Identity ports.IdentityProvider // Required: per-client identity session
	Profiles ports.ProfileStore     // Required: profile documents keyed by account id
	Notifier ports.Notifier         // Optional: user-visible notifications
	Metrics  statsd.Sink            // Optional: metrics sink (StatsD-compatible)
	Logger   *slog.Logger           // Optional: defaults to slog.Default()
	Now      func() time.Time       // Optional: clock used for profile timestamps
}

// SignupInput groups parameters for creating an account and its profile.
type SignupInput struct {
	Email    string
	Password string
	Role     domainauth.Role
	Fields   domainauth.ProfileFields
}

// SessionListener is invoked with a snapshot after every session transition.
type SessionListener func(domainauth.Session)

// Resolver turns the identity provider's raw credential into a resolved principal and
// exposes the result as a Session snapshot.
//
// State changes only through OnCredentialChange, which the resolver registers with the
// identity provider at construction. Profile fetches run on their own goroutine and are
// applied only while their generation is still current, so a late result for a superseded
// credential is dropped. Listeners are called in transition order and must not call back
// into the resolver synchronously.
type Resolver struct {
	identity ports.IdentityProvider
	profiles ports.ProfileStore
	notifier ports.Notifier
	metrics  statsd.Sink
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	gen         uint64
	session     domainauth.Session
	ready       chan struct{}
	readyClosed bool
	done        chan struct{}
	closed      bool
	listeners   map[int]SessionListener
	nextID      int
	unsubscribe func()

	// pending holds snapshots not yet delivered, in transition order. Only the goroutine
	// that set delivering drains it, and it calls listeners with mu released.
	pending    []delivery
	delivering bool
}

type delivery struct {
	session   domainauth.Session
	listeners []SessionListener
}

// NewResolver constructs a Resolver in the loading state and subscribes it to the
// identity provider. The session stays loading until the provider announces a credential.
func NewResolver(opts ResolverOptions) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())

	r := &Resolver{
		identity:  opts.Identity,
		profiles:  opts.Profiles,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "session_resolver"),
		now:       now,
		ctx:       ctx,
		cancel:    cancel,
		session:   domainauth.Session{Status: domainauth.StatusLoading},
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		listeners: make(map[int]SessionListener),
	}
	if opts.Identity != nil {
		unsub := opts.Identity.Subscribe(r.OnCredentialChange)
		r.mu.Lock()
		r.unsubscribe = unsub
		r.mu.Unlock()
	}
	return r
}

// Current returns the latest session snapshot.
func (r *Resolver) Current() domainauth.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Subscribe registers fn for every future transition and returns a function that removes it.
func (r *Resolver) Subscribe(fn SessionListener) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// WaitReady blocks until the session is ready, the context ends, or the resolver closes.
// It always returns the latest snapshot.
func (r *Resolver) WaitReady(ctx context.Context) (domainauth.Session, error) {
	for {
		r.mu.Lock()
		sess := r.session
		ready := r.ready
		r.mu.Unlock()

		if sess.IsReady() {
			return sess, nil
		}
		select {
		case <-ready:
		case <-r.done:
			return r.Current(), ErrResolverClosed
		case <-ctx.Done():
			return r.Current(), ctx.Err()
		}
	}
}

// OnCredentialChange is the identity provider's change callback.
func (r *Resolver) OnCredentialChange(cred *domainauth.Credential) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.gen++
	gen := r.gen

	if cred == nil {
		r.session = domainauth.Session{Status: domainauth.StatusReady}
		r.markReadyLocked()
		r.publishLocked()
		return
	}

	c := *cred
	r.session = domainauth.Session{Status: domainauth.StatusLoading, Credential: &c}
	r.markLoadingLocked()
	r.publishLocked()

	go r.resolve(gen, c)
}

func (r *Resolver) resolve(gen uint64, cred domainauth.Credential) {
	start := time.Now()
	principal, outcome := r.lookupPrincipal(cred)
	metrics.EmitProfileLookup(r.metrics, outcome, time.Since(start))

	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		r.logger.Debug("discarding stale profile lookup", "uid", cred.UID)
		return
	}
	r.session = domainauth.Session{Status: domainauth.StatusReady, Credential: &cred, Principal: principal}
	r.markReadyLocked()
	r.publishLocked()
}

func (r *Resolver) lookupPrincipal(cred domainauth.Credential) (*domainauth.Principal, string) {
	doc, err := r.profiles.GetProfile(r.ctx, cred.UID)
	if err != nil {
		if errors.Is(err, domainauth.ErrProfileNotFound) {
			r.logger.WarnContext(r.ctx, "no profile for signed-in account", "uid", cred.UID)
			return nil, profileLookupMissing
		}
		if r.ctx.Err() == nil {
			r.logger.WarnContext(r.ctx, "profile lookup failed", "uid", cred.UID, "error", err)
		}
		return nil, profileLookupError
	}

	p, err := domainauth.PrincipalFromProfile(cred.UID, doc)
	if err != nil {
		r.logger.WarnContext(r.ctx, "invalid profile document", "uid", cred.UID, "role", doc.Role, "error", err)
		return nil, profileLookupInvalid
	}
	if p.Email == "" {
		p.Email = cred.Email
	}
	return &p, profileLookupFound
}

// markReadyLocked must be called with mu held.
func (r *Resolver) markReadyLocked() {
	if !r.readyClosed {
		close(r.ready)
		r.readyClosed = true
	}
}

// markLoadingLocked must be called with mu held.
func (r *Resolver) markLoadingLocked() {
	if r.readyClosed {
		r.ready = make(chan struct{})
		r.readyClosed = false
	}
}

// publishLocked queues the current snapshot for every listener and releases mu.
// Listeners run without any resolver lock held, so they may call back into the
// resolver. A transition made while another goroutine is delivering is handed to
// that goroutine, which keeps deliveries in transition order.
func (r *Resolver) publishLocked() {
	fns := make([]SessionListener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.pending = append(r.pending, delivery{session: r.session, listeners: fns})
	if r.delivering {
		r.mu.Unlock()
		return
	}
	r.delivering = true
	for len(r.pending) > 0 {
		batch := r.pending
		r.pending = nil
		r.mu.Unlock()
		for _, d := range batch {
			for _, fn := range d.listeners {
				fn(d.session)
			}
		}
		r.mu.Lock()
	}
	r.delivering = false
	r.mu.Unlock()
}

// Close releases the identity subscription. In-flight lookups are abandoned.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	unsub := r.unsubscribe
	r.unsubscribe = nil
	close(r.done)
	r.mu.Unlock()

	r.cancel()
	if unsub != nil {
		unsub()
	}
}

// Login signs in through the identity provider. The session changes through the
// provider's change stream, never directly.
func (r *Resolver) Login(ctx context.Context, email, password string) error {
	start := time.Now()
	_, err := r.identity.SignIn(ctx, email, password)
	err = domainauth.AsProviderError("login", err)
	r.finish(ctx, "login", start, err, MsgLoginSuccess, MsgLoginFailed)
	return err
}

// Signup creates the account, writes its profile, then asks the provider to re-announce
// the credential so the new profile is resolved.
func (r *Resolver) Signup(ctx context.Context, in SignupInput) error {
	start := time.Now()
	err := r.signup(ctx, in)
	r.finish(ctx, "signup", start, err, MsgSignupSuccess, MsgSignupFailed)
	return err
}

func (r *Resolver) signup(ctx context.Context, in SignupInput) error {
	doc := domainauth.NewProfileDocument(in.Email, in.Role, r.now(), in.Fields)
	if _, err := domainauth.PrincipalFromProfile("pending", doc); err != nil {
		return &domainauth.ProviderError{
			Op:      "signup",
			Message: "Invalid profile: " + err.Error(),
			Err:     fmt.Errorf("%w: %w", domainauth.ErrInvalidProfile, err),
		}
	}

	cred, err := r.identity.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		return domainauth.AsProviderError("signup", err)
	}
	if cred.Email != "" {
		doc.Email = cred.Email
	}
	if err := r.profiles.SetProfile(ctx, cred.UID, doc); err != nil {
		return domainauth.AsProviderError("signup", err)
	}
	if err := r.identity.Refresh(ctx); err != nil {
		r.logger.WarnContext(ctx, "credential refresh after signup failed", "uid", cred.UID, "error", err)
	}
	return nil
}

// Logout signs out. Signing out while already signed out succeeds.
func (r *Resolver) Logout(ctx context.Context) error {
	start := time.Now()
	err := domainauth.AsProviderError("logout", r.identity.SignOut(ctx))
	r.finish(ctx, "logout", start, err, MsgLogoutSuccess, MsgLogoutFailed)
	return err
}

// RequestPasswordReset asks the provider to deliver a reset link.
func (r *Resolver) RequestPasswordReset(ctx context.Context, email string) error {
	start := time.Now()
	err := domainauth.AsProviderError("reset", r.identity.SendPasswordReset(ctx, email))
	r.finish(ctx, "reset", start, err, MsgResetSent, MsgResetFailed)
	return err
}

// finish emits exactly one notification and one metric for an explicit operation.
func (r *Resolver) finish(ctx context.Context, op string, start time.Time, err error, success, fallback string) {
	metrics.EmitAuthOperation(r.metrics, metrics.AuthMetric{Operation: op, Duration: time.Since(start), Err: err})
	if err != nil {
		r.logger.InfoContext(ctx, "identity operation failed", "operation", op, "error", err)
		r.notify(ctx, ports.NotifyError, FailureMessage(err, fallback))
		return
	}
	r.notify(ctx, ports.NotifySuccess, success)
}

func (r *Resolver) notify(ctx context.Context, kind ports.NotificationKind, msg string) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(ctx, kind, msg)
}

// FailureMessage maps an operation error to its user-facing text.
func FailureMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return MsgLoginInvalid
	case errors.Is(err, domainauth.ErrEmailInUse):
		return MsgSignupEmailInUse
	}
	var pe *domainauth.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return fallback
}
