package auth

// Package auth contains simple hand-written test doubles for identity and session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*FakeIdentity)(nil)
	_ ports.CredentialStore  = (*MemoryCredentialStore)(nil)
	_ ports.ProfileStore     = (*MemoryProfileStore)(nil)
	_ ports.Notifier         = (*RecordingNotifier)(nil)
	_ ports.ResetSender      = (*RecordingResetSender)(nil)
	_ ports.ResetTokenStore  = (*MemoryResetTokenStore)(nil)
)

// FakeIdentity simulates a per-client identity provider. Operations that succeed
// update the current credential and broadcast it synchronously, like a real client SDK.
type FakeIdentity struct {
	SignInFunc        func(ctx context.Context, email, password string) (domainauth.Credential, error)
	CreateAccountFunc func(ctx context.Context, email, password string) (domainauth.Credential, error)
	SignOutFunc       func(ctx context.Context) error
	ResetFunc         func(ctx context.Context, email string) error

	mu        sync.Mutex
	current   *domainauth.Credential
	listeners map[int]ports.CredentialListener
	nextID    int

	SignOutCalls int
	ResetEmails  []string
}

// NewFakeIdentity creates a signed-out FakeIdentity.
func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{listeners: make(map[int]ports.CredentialListener)}
}

// Emit sets the current credential and notifies every subscriber.
func (f *FakeIdentity) Emit(cred *domainauth.Credential) {
	f.mu.Lock()
	f.current = cred
	fns := f.snapshotLocked()
	f.mu.Unlock()
	for _, fn := range fns {
		fn(cred)
	}
}

// Listeners returns the number of active subscriptions.
func (f *FakeIdentity) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *FakeIdentity) snapshotLocked() []ports.CredentialListener {
	fns := make([]ports.CredentialListener, 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func (f *FakeIdentity) SignIn(ctx context.Context, email, password string) (domainauth.Credential, error) {
	if f.SignInFunc == nil {
		return domainauth.Credential{}, domainauth.ErrInvalidCredentials
	}
	cred, err := f.SignInFunc(ctx, email, password)
	if err != nil {
		return domainauth.Credential{}, err
	}
	f.Emit(&cred)
	return cred, nil
}

func (f *FakeIdentity) CreateAccount(ctx context.Context, email, password string) (domainauth.Credential, error) {
	if f.CreateAccountFunc == nil {
		return domainauth.Credential{}, errors.New("create account not configured")
	}
	cred, err := f.CreateAccountFunc(ctx, email, password)
	if err != nil {
		return domainauth.Credential{}, err
	}
	f.Emit(&cred)
	return cred, nil
}

func (f *FakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.SignOutCalls++
	f.mu.Unlock()
	if f.SignOutFunc != nil {
		if err := f.SignOutFunc(ctx); err != nil {
			return err
		}
	}
	f.Emit(nil)
	return nil
}

func (f *FakeIdentity) SendPasswordReset(ctx context.Context, email string) error {
	f.mu.Lock()
	f.ResetEmails = append(f.ResetEmails, email)
	f.mu.Unlock()
	if f.ResetFunc != nil {
		return f.ResetFunc(ctx, email)
	}
	return nil
}

func (f *FakeIdentity) Refresh(_ context.Context) error {
	f.mu.Lock()
	cred := f.current
	f.mu.Unlock()
	f.Emit(cred)
	return nil
}

func (f *FakeIdentity) Subscribe(fn ports.CredentialListener) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// MemoryCredentialStore is an in-memory credential store for unit tests. TTLs are recorded, not enforced.
type MemoryCredentialStore struct {
	mu     sync.Mutex
	tokens map[string]string
	TTLs   map[string]time.Duration
}

// NewMemoryCredentialStore creates a new in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{tokens: make(map[string]string), TTLs: make(map[string]time.Duration)}
}

func (m *MemoryCredentialStore) Save(_ context.Context, clientID, token string, ttl time.Duration) error {
	if clientID == "" {
		return errors.New("client ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[clientID] = token
	m.TTLs[clientID] = ttl
	return nil
}

func (m *MemoryCredentialStore) Get(_ context.Context, clientID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[clientID]
	if !ok {
		return "", ports.ErrCredentialNotFound
	}
	return tok, nil
}

func (m *MemoryCredentialStore) Delete(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, clientID)
	delete(m.TTLs, clientID)
	return nil
}

// MemoryProfileStore is an in-memory profile store. GetFunc, when set, replaces lookups.
type MemoryProfileStore struct {
	GetFunc func(ctx context.Context, uid string) (domainauth.ProfileDocument, error)
	SetErr  error

	mu       sync.Mutex
	profiles map[string]domainauth.ProfileDocument
	Gets     int
}

// NewMemoryProfileStore creates a new in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domainauth.ProfileDocument)}
}

func (m *MemoryProfileStore) GetProfile(ctx context.Context, uid string) (domainauth.ProfileDocument, error) {
	m.mu.Lock()
	m.Gets++
	fn := m.GetFunc
	doc, ok := m.profiles[uid]
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, uid)
	}
	if !ok {
		return domainauth.ProfileDocument{}, domainauth.ErrProfileNotFound
	}
	return doc, nil
}

func (m *MemoryProfileStore) SetProfile(_ context.Context, uid string, doc domainauth.ProfileDocument) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[uid] = doc
	return nil
}

// Profile returns the stored document for uid.
func (m *MemoryProfileStore) Profile(uid string) (domainauth.ProfileDocument, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.profiles[uid]
	return doc, ok
}

// Len returns the number of stored documents.
func (m *MemoryProfileStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.profiles)
}

// RecordingNotifier keeps every notification in order.
type RecordingNotifier struct {
	mu    sync.Mutex
	items []ports.Notification
}

func (r *RecordingNotifier) Notify(_ context.Context, kind ports.NotificationKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, ports.Notification{Kind: kind, Message: message, At: time.Now()})
}

// All returns a copy of the recorded notifications.
func (r *RecordingNotifier) All() []ports.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Notification(nil), r.items...)
}

// Messages returns only the message text of each notification.
func (r *RecordingNotifier) Messages() []string {
	all := r.All()
	out := make([]string, 0, len(all))
	for _, n := range all {
		out = append(out, n.Message)
	}
	return out
}

// RecordingResetSender captures reset deliveries.
type RecordingResetSender struct {
	mu   sync.Mutex
	Sent map[string]string
	Err  error
}

func (r *RecordingResetSender) SendReset(_ context.Context, email, token string) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Sent == nil {
		r.Sent = make(map[string]string)
	}
	r.Sent[email] = token
	return nil
}

// Token returns the last token delivered to email.
func (r *RecordingResetSender) Token(email string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.Sent[email]
	return tok, ok
}

// MemoryResetTokenStore issues sequential single-use tokens.
type MemoryResetTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
	seq    int
	// TTLs records the ttl requested per token.
	TTLs map[string]time.Duration
}

func NewMemoryResetTokenStore() *MemoryResetTokenStore {
	return &MemoryResetTokenStore{tokens: make(map[string]string), TTLs: make(map[string]time.Duration)}
}

func (m *MemoryResetTokenStore) Issue(_ context.Context, accountID string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	tok := fmt.Sprintf("reset-%d", m.seq)
	m.tokens[tok] = accountID
	m.TTLs[tok] = ttl
	return tok, nil
}

func (m *MemoryResetTokenStore) Consume(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return "", ports.ErrResetTokenNotFound
	}
	delete(m.tokens, token)
	return id, nil
}

// MemoryFlash queues notifications per client until they are drained.
type MemoryFlash struct {
	mu    sync.Mutex
	items map[string][]ports.Notification
}

func NewMemoryFlash() *MemoryFlash {
	return &MemoryFlash{items: make(map[string][]ports.Notification)}
}

// For returns a notifier that queues for clientID.
func (f *MemoryFlash) For(clientID string) ports.Notifier {
	return &memoryFlashNotifier{flash: f, clientID: clientID}
}

func (f *MemoryFlash) Drain(_ context.Context, clientID string) ([]ports.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items[clientID]
	delete(f.items, clientID)
	return out, nil
}

type memoryFlashNotifier struct {
	flash    *MemoryFlash
	clientID string
}

func (n *memoryFlashNotifier) Notify(_ context.Context, kind ports.NotificationKind, message string) {
	n.flash.mu.Lock()
	defer n.flash.mu.Unlock()
	n.flash.items[n.clientID] = append(n.flash.items[n.clientID], ports.Notification{Kind: kind, Message: message, At: time.Now()})
}
