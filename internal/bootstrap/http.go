package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kavach-app/kavach/config"
	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	httpx "github.com/kavach-app/kavach/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewHTTPServer builds the router and the server around it. The caller starts it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	var metrics *httpx.Metrics
	if reg := cfg.Services.Observability.Registry; reg != nil {
		metrics = httpx.NewMetrics(reg)
	}

	var limiter *httpx.RateLimiter
	if appCfg.Auth.RateLimit.Enabled() {
		limiter = httpx.NewRateLimiter(httpx.RateLimitOptions{
			PerSecond:      appCfg.Auth.RateLimit.PerSecond,
			Burst:          appCfg.Auth.RateLimit.Burst,
			TrustForwarded: appCfg.HTTP.TrustProxy,
		})
	}

	services := httpx.RouterServices{
		Metrics:     metrics,
		RateLimit:   limiter,
		SignupRoles: signupRoles(appCfg.Auth.SignupRoles, logger),
		Cookie: httpx.CookieConfig{
			Domain: appCfg.HTTP.CookieDomain,
			Secure: appCfg.HTTP.CookieSecure,
		},
		Health: healthChecks(cfg.DB, cfg.RedisClient),
		Logger: logger,
	}
	// Typed nils would defeat the router's optional checks.
	if cfg.Services.Sessions != nil {
		services.Sessions = cfg.Services.Sessions
	}
	if cfg.Services.Flash != nil {
		services.Flash = cfg.Services.Flash
	}

	return newServer(httpx.NewRouter(services), appCfg.HTTP.Addr)
}

// signupRoles parses the configured sign up roles, skipping any the domain rejects.
func signupRoles(raw []string, logger *slog.Logger) []domainauth.Role {
	roles := make([]domainauth.Role, 0, len(raw))
	for _, r := range raw {
		role, err := domainauth.ParseRole(r)
		if err != nil {
			logger.Warn("ignoring sign up role", "role", r, "error", err)
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

func newServer(handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// healthChecks pings the stores the service cannot work without.
func healthChecks(db *sql.DB, rc redis.UniversalClient) map[string]httpx.HealthCheck {
	checks := make(map[string]httpx.HealthCheck)
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}
	}
	return checks
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(cfg.Context, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
