package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"kavach"`
	Password string `env:"PASSWORD"                envDefault:"kavach"`
	Name     string `env:"NAME"                    envDefault:"kavach"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN builds a postgres URL, escaping credentials.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// CacheConfig controls Redis-backed caches and the notification flash list.
type CacheConfig struct {
	// ProfileTTL is how long a profile document stays cached. Zero disables the cache.
	ProfileTTL time.Duration `env:"CACHE_PROFILE_TTL" envDefault:"5m"`

	// FlashTTL is how long undelivered notifications are kept for a client.
	FlashTTL time.Duration `env:"FLASH_TTL" envDefault:"10m"`

	// FlashLimit caps the notifications kept per client.
	FlashLimit int `env:"FLASH_LIMIT" envDefault:"20"`
}

// Sanitize applies guardrails to cache settings.
func (c *CacheConfig) Sanitize() {
	if c.ProfileTTL < 0 {
		c.ProfileTTL = 0
	}
	if c.FlashTTL <= 0 {
		c.FlashTTL = 10 * time.Minute
	}
	if c.FlashLimit < 1 {
		c.FlashLimit = 20
	}
}
