package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavach-app/kavach/config"
	"github.com/kavach-app/kavach/internal/adapters/devauth"
	redisadapter "github.com/kavach-app/kavach/internal/adapters/redis"
	authmocks "github.com/kavach-app/kavach/internal/mocks/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseAuthConfig(mode config.AuthMode) config.AuthConfig {
	return config.AuthConfig{
		Mode:      mode,
		JWTSecret: testSecret,
		TokenTTL:  time.Hour,
		ResetTTL:  time.Hour,
	}
}

func TestBuildAuth_DevModeSeedsProfilesAndSignsIn(t *testing.T) {
	ctx := context.Background()
	auth := baseAuthConfig(config.AuthModeDev)
	auth.DevAuth.Accounts = []string{
		"asha@example.in:secret123:citizen",
		"ravi@example.in:secret123:station_admin:st-7:Koramangala",
	}
	profiles := authmocks.NewMemoryProfileStore()
	creds := authmocks.NewMemoryCredentialStore()

	stack, err := BuildAuth(ctx, AuthConfig{
		Auth:        auth,
		BaseURL:     "http://localhost:8080",
		Profiles:    profiles,
		Credentials: creds,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, config.AuthModeDev, stack.Mode)
	assert.NotNil(t, stack.Resets)
	assert.Equal(t, 2, profiles.Len())

	doc, ok := profiles.Profile(devauth.AccountID("ravi@example.in"))
	require.True(t, ok)
	assert.Equal(t, "st-7", doc.StationID)

	ident, err := stack.IdentityFactory()("client-1")
	require.NoError(t, err)
	cred, err := ident.SignIn(ctx, "asha@example.in", "secret123")
	require.NoError(t, err)
	assert.Equal(t, devauth.AccountID("asha@example.in"), cred.UID)

	stored, err := creds.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, cred.Token, stored)

	restored, err := stack.IdentityFactory()("client-1")
	require.NoError(t, err)
	got := restored.Restore(ctx)
	require.NotNil(t, got)
	assert.Equal(t, cred.UID, got.UID)
}

func TestBuildAuth_DevModeRejectsBadSeeds(t *testing.T) {
	auth := baseAuthConfig(config.AuthModeDev)
	auth.DevAuth.Accounts = []string{"asha@example.in:secret123:superuser"}

	_, err := BuildAuth(context.Background(), AuthConfig{
		Auth:        auth,
		Credentials: authmocks.NewMemoryCredentialStore(),
		Logger:      quietLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dev accounts")
}

func TestBuildAuth_RequiresCredentialStorage(t *testing.T) {
	_, err := BuildAuth(context.Background(), AuthConfig{
		Auth:   baseAuthConfig(config.AuthModeLocal),
		Logger: quietLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestBuildAuth_RedisCredentialStore(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rc.Close() })

	auth := baseAuthConfig(config.AuthModeDev)
	auth.DevAuth.Accounts = []string{"asha@example.in:secret123:citizen"}
	auth.CredentialKey = "credential-sealing-key"

	stack, err := BuildAuth(context.Background(), AuthConfig{
		Auth:        auth,
		RedisClient: rc,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	assert.IsType(t, &redisadapter.CredentialStore{}, stack.Credentials)
}

func TestBuildAuth_RejectsShortSecret(t *testing.T) {
	auth := baseAuthConfig(config.AuthModeLocal)
	auth.JWTSecret = "short"

	_, err := BuildAuth(context.Background(), AuthConfig{
		Auth:        auth,
		Credentials: authmocks.NewMemoryCredentialStore(),
		Logger:      quietLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token issuer")
}

func TestBuildAuth_LocalMode(t *testing.T) {
	_, err := BuildAuth(context.Background(), AuthConfig{
		Auth:        baseAuthConfig(config.AuthModeLocal),
		Credentials: authmocks.NewMemoryCredentialStore(),
		Logger:      quietLogger(),
	})
	require.Error(t, err, "local mode needs a database")

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	stack, err := BuildAuth(context.Background(), AuthConfig{
		Auth:        baseAuthConfig(config.AuthModeLocal),
		DB:          db,
		Credentials: authmocks.NewMemoryCredentialStore(),
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	assert.NotNil(t, stack.Accounts)
	assert.Nil(t, stack.Resets, "reset confirmation needs the redis token store")
}

func TestBuildAuth_OIDCRequiresDiscovery(t *testing.T) {
	auth := baseAuthConfig(config.AuthModeOIDC)
	auth.OAuth.ClientID = "kavach"

	_, err := BuildAuth(context.Background(), AuthConfig{
		Auth:        auth,
		Credentials: authmocks.NewMemoryCredentialStore(),
		Logger:      quietLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oidc backend")
}

func TestBuildAuth_UnknownMode(t *testing.T) {
	_, err := BuildAuth(context.Background(), AuthConfig{
		Auth:        baseAuthConfig(config.AuthMode("mock")),
		Credentials: authmocks.NewMemoryCredentialStore(),
		Logger:      quietLogger(),
	})
	require.Error(t, err)
}
