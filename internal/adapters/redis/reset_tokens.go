package redis

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kavach-app/kavach/internal/ports"
)

// ResetTokenStore keeps single-use password reset tokens. Only a hash of each token
// is used as the key, so the raw token exists solely in the delivered link.
type ResetTokenStore struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.ResetTokenStore = (*ResetTokenStore)(nil)

// NewResetTokenStore creates a ResetTokenStore.
func NewResetTokenStore(client redis.UniversalClient) *ResetTokenStore {
	return &ResetTokenStore{client: client, prefix: "reset:"}
}

func (s *ResetTokenStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + hex.EncodeToString(sum[:])
}

// Issue creates a random token bound to accountID that expires after ttl.
func (s *ResetTokenStore) Issue(ctx context.Context, accountID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", errors.New("account id cannot be empty")
	}
	if ttl <= 0 {
		return "", errors.New("reset token ttl must be greater than zero")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	ok, err := s.client.SetNX(ctx, s.key(token), accountID, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return "", errors.New("reset token collision")
	}
	return token, nil
}

// Consume returns the bound account and deletes the token atomically.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ports.ErrResetTokenNotFound
	}
	accountID, err := s.client.GetDel(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrResetTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis getdel: %w", err)
	}
	return accountID, nil
}
