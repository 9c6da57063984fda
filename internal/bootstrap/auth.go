package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kavach-app/kavach/config"
	"github.com/kavach-app/kavach/internal/adapters/devauth"
	"github.com/kavach-app/kavach/internal/adapters/identity"
	"github.com/kavach-app/kavach/internal/adapters/mailer"
	"github.com/kavach-app/kavach/internal/adapters/oidc"
	redisadapter "github.com/kavach-app/kavach/internal/adapters/redis"
	"github.com/kavach-app/kavach/internal/data"
	"github.com/kavach-app/kavach/internal/data/cryptoutil"
	"github.com/kavach-app/kavach/internal/ports"
	"github.com/kavach-app/kavach/internal/service"
)

// AuthConfig contains configuration for the identity layer.
type AuthConfig struct {
	Auth        config.AuthConfig
	BaseURL     string
	DB          *sql.DB
	RedisClient redis.UniversalClient
	// Profiles receives the dev accounts' seeded profiles.
	Profiles ports.ProfileStore
	// Credentials overrides the Redis credential store (tests).
	Credentials ports.CredentialStore
	Logger      *slog.Logger
}

// AuthStack is the wired identity layer shared by every client.
type AuthStack struct {
	Mode        config.AuthMode
	Accounts    ports.AccountBackend
	Resets      ports.PasswordResetConfirmer // nil when the backend cannot complete resets
	Tokens      *identity.TokenIssuer
	Credentials ports.CredentialStore
	logger      *slog.Logger
}

// BuildAuth creates the account backend for the configured auth mode along with the
// token issuer and credential store that identity sessions share.
func BuildAuth(ctx context.Context, cfg AuthConfig) (AuthStack, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	creds := cfg.Credentials
	if creds == nil {
		if cfg.RedisClient == nil {
			return AuthStack{}, errors.New("auth requires redis for credential storage")
		}
		opts := redisadapter.CredentialStoreOptions{}
		if cfg.Auth.CredentialKey != "" {
			sealer, err := cryptoutil.NewSealerFromSecret(cfg.Auth.CredentialKey)
			if err != nil {
				return AuthStack{}, fmt.Errorf("credential sealer: %w", err)
			}
			opts.Sealer = sealer
		} else {
			logger.WarnContext(ctx, "AUTH_CREDENTIAL_KEY is empty; credentials are stored unsealed")
		}
		creds = redisadapter.NewCredentialStoreWithOptions(cfg.RedisClient, opts)
	}

	tokens, err := identity.NewTokenIssuer(identity.TokenOptions{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return AuthStack{}, fmt.Errorf("token issuer: %w", err)
	}

	stack := AuthStack{Mode: cfg.Auth.Mode, Tokens: tokens, Credentials: creds, logger: logger}
	switch cfg.Auth.Mode {
	case config.AuthModeLocal:
		err = buildLocalAccounts(&stack, cfg, logger)
	case config.AuthModeOIDC:
		err = buildOIDCAccounts(ctx, &stack, cfg)
	case config.AuthModeDev:
		err = buildDevAccounts(ctx, &stack, cfg, logger)
	default:
		err = fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
	if err != nil {
		return AuthStack{}, err
	}

	logger.InfoContext(ctx, "auth configured", "mode", cfg.Auth.Mode, "password_reset", stack.Resets != nil)
	return stack, nil
}

func buildLocalAccounts(stack *AuthStack, cfg AuthConfig, logger *slog.Logger) error {
	if cfg.DB == nil {
		return errors.New("AUTH_MODE=local requires a database")
	}
	opts := data.AccountRepoOptions{
		DB:       cfg.DB,
		ResetTTL: cfg.Auth.ResetTTL,
		Logger:   logger,
	}
	if cfg.RedisClient != nil {
		opts.Resets = redisadapter.NewResetTokenStore(cfg.RedisClient)
		opts.Sender = mailer.NewLogSender(cfg.BaseURL, logger)
	}
	repo := data.NewAccountRepo(opts)
	stack.Accounts = repo
	if opts.Resets != nil {
		stack.Resets = repo
	}
	return nil
}

func buildOIDCAccounts(ctx context.Context, stack *AuthStack, cfg AuthConfig) error {
	oauth := cfg.Auth.OAuth
	backend, err := oidc.NewBackend(ctx, oidc.Config{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		DiscoveryURL: oauth.DiscoveryURL,
		Scope:        oauth.Scope,
		SubjectPath:  oauth.SubjectPath,
		EmailPath:    oauth.EmailPath,
	})
	if err != nil {
		return fmt.Errorf("oidc backend: %w", err)
	}
	stack.Accounts = backend
	return nil
}

func buildDevAccounts(ctx context.Context, stack *AuthStack, cfg AuthConfig, logger *slog.Logger) error {
	seeds, err := devauth.ParseSeeds(cfg.Auth.DevAuth.Accounts)
	if err != nil {
		return fmt.Errorf("dev accounts: %w", err)
	}
	backend, err := devauth.NewBackend(devauth.Config{
		Seeds:  seeds,
		Sender: mailer.NewLogSender(cfg.BaseURL, logger),
	})
	if err != nil {
		return fmt.Errorf("dev backend: %w", err)
	}
	if cfg.Profiles != nil {
		written, seedErr := backend.SeedProfiles(ctx, cfg.Profiles, time.Now())
		if seedErr != nil {
			return fmt.Errorf("seed dev profiles: %w", seedErr)
		}
		logger.WarnContext(ctx, "dev auth enabled; accounts are in memory", "accounts", len(seeds), "profiles_seeded", written)
	}
	stack.Accounts = backend
	stack.Resets = backend
	return nil
}

// IdentityFactory opens an identity session per browser client.
func (s AuthStack) IdentityFactory() service.IdentityFactory {
	return func(clientID string) (service.ClientIdentity, error) {
		c, err := identity.NewClient(identity.ClientOptions{
			ClientID: clientID,
			Accounts: s.Accounts,
			Store:    s.Credentials,
			Tokens:   s.Tokens,
			Logger:   s.logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
