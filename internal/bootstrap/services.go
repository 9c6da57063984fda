package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kavach-app/kavach/config"
	redisadapter "github.com/kavach-app/kavach/internal/adapters/redis"
	"github.com/kavach-app/kavach/internal/data"
	"github.com/kavach-app/kavach/internal/observability/statsd"
	"github.com/kavach-app/kavach/internal/ports"
	"github.com/kavach-app/kavach/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Sessions      *service.SessionHub
	Flash         *redisadapter.FlashStore
	Profiles      ports.ProfileStore
	Auth          AuthStack
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
	Registry      *prometheus.Registry
}

// Sink returns the statsd sink, or nil when none was created.
//
//nolint:ireturn // callers store the port, not the client.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildObservability configures the statsd sink and the Prometheus registry.
func buildObservability(ctx context.Context, logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := statsd.NewClient(ctx, statsd.Config{
		Enabled: cfg.Metrics.IsEnabled(),
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  obsLogger,
	})
	if err != nil {
		obsLogger.Error("failed to initialise statsd client", "error", err)
		client = nil
	}

	return ObservabilityContainer{
		MetricsSink:   client,
		MetricsConfig: cfg.Metrics,
		Registry:      reg,
	}
}

// buildProfileStore returns the Postgres profile repository, fronted by the Redis cache
// unless caching is disabled.
//
//nolint:ireturn // the cache and the repository both satisfy the port.
func buildProfileStore(deps *ServiceDeps, sink statsd.Sink) (ports.ProfileStore, error) {
	repo := data.NewProfileRepo(deps.DB)
	if deps.RedisClient == nil || deps.Config.Cache.ProfileTTL <= 0 {
		return repo, nil
	}
	cache, err := redisadapter.NewProfileCache(redisadapter.ProfileCacheOptions{
		Next:    repo,
		Client:  deps.RedisClient,
		TTL:     deps.Config.Cache.ProfileTTL,
		Metrics: sink,
		Logger:  deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("profile cache: %w", err)
	}
	return cache, nil
}

// NewServices wires storage, identity and the session hub.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps and config are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cfg := deps.Config

	obs := buildObservability(ctx, deps.Logger, cfg.Observability)
	sink := obs.Sink()

	profiles, err := buildProfileStore(deps, sink)
	if err != nil {
		return ServiceContainer{}, err
	}

	flash, err := redisadapter.NewFlashStore(redisadapter.FlashStoreOptions{
		Client: deps.RedisClient,
		TTL:    cfg.Cache.FlashTTL,
		Limit:  cfg.Cache.FlashLimit,
		Logger: deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("flash store: %w", err)
	}

	auth, err := BuildAuth(ctx, AuthConfig{
		Auth:        cfg.Auth,
		BaseURL:     cfg.HTTP.BaseURL,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		Profiles:    profiles,
		Logger:      deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	hub, err := service.NewSessionHub(service.HubOptions{
		Identities:     auth.IdentityFactory(),
		Profiles:       profiles,
		Notifiers:      flash.For,
		Resets:         auth.Resets,
		ResolveTimeout: cfg.Auth.ResolveTimeout,
		Metrics:        sink,
		Logger:         deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("session hub: %w", err)
	}

	return ServiceContainer{
		Sessions:      hub,
		Flash:         flash,
		Profiles:      profiles,
		Auth:          auth,
		Observability: obs,
	}, nil
}

// ServiceOrchestrationConfig contains dependencies for running the service until shutdown.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// RunServicesWithShutdown serves HTTP until SIGINT/SIGTERM or a fatal server error, then
// drains in-flight requests.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewHTTPServer(&HTTPServerConfig{
		Config:      cfg.Config,
		Services:    cfg.Services,
		DB:          cfg.DB,
		RedisClient: cfg.RedisClient,
		Logger:      logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		return ShutdownHTTPServer(ShutdownConfig{
			Context: context.WithoutCancel(gctx),
			Server:  server,
			Logger:  logger,
		})
	})

	err := g.Wait()
	if sink := cfg.Services.Observability.MetricsSink; sink != nil {
		if cerr := sink.Close(); cerr != nil {
			logger.Warn("close statsd client failed", "error", cerr)
		}
	}
	return err
}
