package redis

// Package redis provides Redis-backed adapters for credentials, profile caching,
// flash notifications and password reset tokens.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kavach-app/kavach/internal/data/cryptoutil"
	"github.com/kavach-app/kavach/internal/ports"
)

// DefaultCredentialPrefix namespaces credential keys.
const DefaultCredentialPrefix = "credential:"

// CredentialStore keeps one signed credential token per browser client. Keys expire
// with the token, so an expired credential reads as missing.
type CredentialStore struct {
	client redis.UniversalClient
	prefix string
	sealer cryptoutil.Sealer
}

// CredentialStoreOptions configures a CredentialStore.
type CredentialStoreOptions struct {
	Prefix string
	// Sealer encrypts tokens bound to their client id; nil stores tokens as-is.
	Sealer cryptoutil.Sealer
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

// NewCredentialStore creates a CredentialStore using DefaultCredentialPrefix.
func NewCredentialStore(client redis.UniversalClient) *CredentialStore {
	return NewCredentialStoreWithPrefix(client, DefaultCredentialPrefix)
}

// NewCredentialStoreWithPrefix creates a CredentialStore with a custom key prefix.
func NewCredentialStoreWithPrefix(client redis.UniversalClient, prefix string) *CredentialStore {
	return NewCredentialStoreWithOptions(client, CredentialStoreOptions{Prefix: prefix})
}

// NewCredentialStoreWithOptions creates a CredentialStore from opts.
func NewCredentialStoreWithOptions(client redis.UniversalClient, opts CredentialStoreOptions) *CredentialStore {
	if opts.Prefix == "" {
		opts.Prefix = DefaultCredentialPrefix
	}
	return &CredentialStore{client: client, prefix: opts.Prefix, sealer: opts.Sealer}
}

func (s *CredentialStore) key(clientID string) string { return s.prefix + clientID }

// Save stores token for clientID, replacing any previous credential.
func (s *CredentialStore) Save(ctx context.Context, clientID, token string, ttl time.Duration) error {
	if strings.TrimSpace(clientID) == "" {
		return errors.New("client id cannot be empty")
	}
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("credential is expired")
	}
	value := token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal([]byte(token), clientID)
		if err != nil {
			return fmt.Errorf("seal credential: %w", err)
		}
		value = sealed
	}
	if err := s.client.Set(ctx, s.key(clientID), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the token for clientID or ports.ErrCredentialNotFound.
func (s *CredentialStore) Get(ctx context.Context, clientID string) (string, error) {
	if clientID == "" {
		return "", ports.ErrCredentialNotFound
	}
	token, err := s.client.Get(ctx, s.key(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	if s.sealer == nil {
		return token, nil
	}
	// A value sealed under a rotated key reads as signed out.
	pt, err := s.sealer.Open(token, clientID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ports.ErrCredentialNotFound, err)
	}
	return string(pt), nil
}

// Delete removes the credential for clientID. Deleting a missing credential succeeds.
func (s *CredentialStore) Delete(ctx context.Context, clientID string) error {
	if clientID == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(clientID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// TTL reports the remaining lifetime of the credential for clientID, or zero when none exists.
func (s *CredentialStore) TTL(ctx context.Context, clientID string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, s.key(clientID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}
