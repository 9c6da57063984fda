package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode selects the account backend.
type AuthMode string

const (
	// AuthModeLocal checks accounts stored in Postgres.
	AuthModeLocal AuthMode = "local"
	// AuthModeOIDC delegates sign-in to an OpenID Connect provider.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeDev uses in-memory accounts seeded from DEV_AUTH_ACCOUNTS (development only).
	AuthModeDev AuthMode = "dev"
)

// MinJWTSecretLen is the shortest accepted AUTH_JWT_SECRET.
const MinJWTSecretLen = 32

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "local", "oidc", "dev":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: local, oidc, dev)", v)
	}
}

// OAuthConfig contains OIDC provider configuration used when AUTH_MODE=oidc.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"openid email profile"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// SubjectPath and EmailPath are JMESPath expressions over the ID token claims.
	SubjectPath string `env:"SUBJECT_PATH" envDefault:"sub"`
	EmailPath   string `env:"EMAIL_PATH"   envDefault:"email"`
}

// DevAuthConfig lists the in-memory accounts used when AUTH_MODE=dev.
// Each entry is "email:password:role[:station_id:station_name]".
type DevAuthConfig struct {
	Accounts []string `env:"ACCOUNTS" envSeparator:";"`
}

// RateLimitConfig throttles auth POST endpoints per client IP.
type RateLimitConfig struct {
	PerSecond float64 `env:"PER_SECOND" envDefault:"1"`
	Burst     int     `env:"BURST"      envDefault:"5"`
}

// Enabled reports whether requests are throttled at all.
func (c RateLimitConfig) Enabled() bool { return c.PerSecond > 0 }

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which account backend to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"local"`

	// JWTSecret signs credential tokens (HS256).
	JWTSecret string `env:"AUTH_JWT_SECRET"`

	// TokenTTL bounds the lifetime of a signed-in credential.
	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"12h"`

	// ResolveTimeout bounds how long a guarded request waits for the session to resolve.
	ResolveTimeout time.Duration `env:"AUTH_RESOLVE_TIMEOUT" envDefault:"5s"`

	// CredentialKey seals stored credentials in Redis. A 64-char hex value is used as the
	// AES-256 key, anything else is hashed. Empty stores tokens unsealed.
	CredentialKey string `env:"AUTH_CREDENTIAL_KEY"`

	// SignupRoles lists the roles self-service sign up may request. Station and official
	// accounts still need their station fields.
	SignupRoles []string `env:"AUTH_SIGNUP_ROLES" envSeparator:"," envDefault:"citizen,station_admin,official"`

	// ResetTTL is how long a password reset link stays valid.
	ResetTTL time.Duration `env:"AUTH_RESET_TTL" envDefault:"1h"`

	OAuth     OAuthConfig     `envPrefix:"OAUTH_"`
	DevAuth   DevAuthConfig   `envPrefix:"DEV_AUTH_"`
	RateLimit RateLimitConfig `envPrefix:"AUTH_RATE_LIMIT_"`
}

// Sanitize applies defaults to out-of-range values.
func (c *AuthConfig) Sanitize() {
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.CredentialKey = strings.TrimSpace(c.CredentialKey)
	if c.Mode == "" {
		c.Mode = AuthModeLocal
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 12 * time.Hour
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = 5 * time.Second
	}
	if c.ResetTTL <= 0 {
		c.ResetTTL = time.Hour
	}
	if c.RateLimit.PerSecond < 0 {
		c.RateLimit.PerSecond = 0
	}
	if c.RateLimit.Burst < 1 {
		c.RateLimit.Burst = 1
	}
	roles := c.SignupRoles[:0]
	for _, r := range c.SignupRoles {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			roles = append(roles, r)
		}
	}
	c.SignupRoles = roles
	c.OAuth.DiscoveryURL = strings.TrimSpace(c.OAuth.DiscoveryURL)
	if strings.TrimSpace(c.OAuth.SubjectPath) == "" {
		c.OAuth.SubjectPath = "sub"
	}
	if strings.TrimSpace(c.OAuth.EmailPath) == "" {
		c.OAuth.EmailPath = "email"
	}
}

// Validate checks mode-specific requirements.
func (c *AuthConfig) Validate() error {
	if len(c.JWTSecret) < MinJWTSecretLen {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least %d characters", MinJWTSecretLen)
	}
	for _, r := range c.SignupRoles {
		switch r {
		case "citizen", "station_admin", "official":
		default:
			return fmt.Errorf("AUTH_SIGNUP_ROLES: unknown role %q", r)
		}
	}
	switch c.Mode {
	case AuthModeOIDC:
		if c.OAuth.ClientID == "" || c.OAuth.DiscoveryURL == "" {
			return errors.New("AUTH_MODE=oidc requires OAUTH_CLIENT_ID and OAUTH_DISCOVERY_URL")
		}
	case AuthModeDev:
		if len(c.DevAuth.Accounts) == 0 {
			return errors.New("AUTH_MODE=dev requires DEV_AUTH_ACCOUNTS")
		}
	}
	return nil
}
