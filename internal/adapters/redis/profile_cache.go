package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/observability/statsd"
	"github.com/kavach-app/kavach/internal/ports"
)

const (
	// DefaultProfileTTL bounds how long a cached profile may lag behind the store.
	DefaultProfileTTL = 5 * time.Minute
	// DefaultProfileLoadTimeout bounds a shared backing read.
	DefaultProfileLoadTimeout = 5 * time.Second
)

// ProfileCacheOptions configures a ProfileCache.
type ProfileCacheOptions struct {
	Next    ports.ProfileStore
	Client  redis.UniversalClient
	TTL     time.Duration
	Prefix  string
	Metrics statsd.Sink
	Logger  *slog.Logger
	// LoadTimeout bounds a backing read shared by concurrent callers.
	LoadTimeout time.Duration
}

// ProfileCache decorates a ProfileStore with a Redis read-through cache. Concurrent
// misses for the same id share one backing read. Writes go to the store, then
// invalidate the cached entry. Missing profiles are never cached, so a profile
// written right after signup is visible on the next read.
type ProfileCache struct {
	next        ports.ProfileStore
	client      redis.UniversalClient
	ttl         time.Duration
	loadTimeout time.Duration
	prefix      string
	metrics     statsd.Sink
	logger      *slog.Logger
	group       singleflight.Group
}

var _ ports.ProfileStore = (*ProfileCache)(nil)

// NewProfileCache validates options and constructs a ProfileCache.
func NewProfileCache(opts ProfileCacheOptions) (*ProfileCache, error) {
	if opts.Next == nil {
		return nil, errors.New("backing profile store is required")
	}
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "profile:"
	}
	loadTimeout := opts.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = DefaultProfileLoadTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileCache{
		next:        opts.Next,
		client:      opts.Client,
		ttl:         ttl,
		loadTimeout: loadTimeout,
		prefix:      prefix,
		metrics:     opts.Metrics,
		logger:      logger.With("component", "profile_cache"),
	}, nil
}

func (c *ProfileCache) key(uid string) string { return c.prefix + uid }

// GetProfile serves uid from Redis when cached, otherwise from the backing store.
// Redis failures degrade to a direct store read.
func (c *ProfileCache) GetProfile(ctx context.Context, uid string) (domainauth.ProfileDocument, error) {
	raw, err := c.client.Get(ctx, c.key(uid)).Bytes()
	switch {
	case err == nil:
		var doc domainauth.ProfileDocument
		if jsonErr := json.Unmarshal(raw, &doc); jsonErr == nil {
			c.count("hit")
			return doc, nil
		}
		c.logger.WarnContext(ctx, "dropping undecodable cached profile", "uid", uid)
		c.client.Del(ctx, c.key(uid))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "profile cache read failed", "uid", uid, "error", err)
		c.count("error")
	}

	c.count("miss")
	// The shared read outlives any one caller; each caller waits on its own ctx.
	ch := c.group.DoChan(uid, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		doc, loadErr := c.next.GetProfile(loadCtx, uid)
		if loadErr != nil {
			return domainauth.ProfileDocument{}, loadErr
		}
		c.store(loadCtx, uid, doc)
		return doc, nil
	})
	select {
	case <-ctx.Done():
		return domainauth.ProfileDocument{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domainauth.ProfileDocument{}, res.Err
		}
		return res.Val.(domainauth.ProfileDocument), nil
	}
}

func (c *ProfileCache) store(ctx context.Context, uid string, doc domainauth.ProfileDocument) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(uid), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "profile cache write failed", "uid", uid, "error", err)
	}
}

// SetProfile writes through to the backing store and evicts the cached copy.
func (c *ProfileCache) SetProfile(ctx context.Context, uid string, doc domainauth.ProfileDocument) error {
	if err := c.next.SetProfile(ctx, uid, doc); err != nil {
		return err
	}
	return c.Invalidate(ctx, uid)
}

// Invalidate removes uid from the cache.
func (c *ProfileCache) Invalidate(ctx context.Context, uid string) error {
	c.group.Forget(uid)
	if err := c.client.Del(ctx, c.key(uid)).Err(); err != nil {
		return fmt.Errorf("invalidate cached profile: %w", err)
	}
	return nil
}

func (c *ProfileCache) count(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.Count("profile_cache.lookup", 1, map[string]string{"result": result})
}
