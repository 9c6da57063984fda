package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	authmocks "github.com/kavach-app/kavach/internal/mocks/auth"
	"github.com/kavach-app/kavach/internal/observability/statsd"
)

func TestNewProfileCache_Validation(t *testing.T) {
	_, err := NewProfileCache(ProfileCacheOptions{})
	require.Error(t, err)
	_, err = NewProfileCache(ProfileCacheOptions{Next: authmocks.NewMemoryProfileStore()})
	require.Error(t, err)
}

func TestProfileCache_ReadThroughAndInvalidate(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	backing := authmocks.NewMemoryProfileStore()
	rec := &statsd.Recorder{}

	cache, err := NewProfileCache(ProfileCacheOptions{Next: backing, Client: client, TTL: time.Minute, Metrics: rec})
	require.NoError(t, err)

	doc := domainauth.ProfileDocument{Email: "asha@example.in", Role: "citizen", DisplayName: "Asha"}
	require.NoError(t, cache.SetProfile(ctx, "u-1", doc))

	got, err := cache.GetProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.DisplayName)
	got, err = cache.GetProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.DisplayName)
	assert.Equal(t, 1, backing.Gets, "second read should be served from redis")

	doc.DisplayName = "Asha K"
	require.NoError(t, cache.SetProfile(ctx, "u-1", doc))
	got, err = cache.GetProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.DisplayName)
	assert.Equal(t, 2, backing.Gets)

	assert.NotEmpty(t, rec.Named("profile_cache.lookup"))
}

func TestProfileCache_MissingProfileIsNotCached(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	backing := authmocks.NewMemoryProfileStore()

	cache, err := NewProfileCache(ProfileCacheOptions{Next: backing, Client: client})
	require.NoError(t, err)

	_, err = cache.GetProfile(ctx, "u-late")
	require.ErrorIs(t, err, domainauth.ErrProfileNotFound)

	require.NoError(t, backing.SetProfile(ctx, "u-late", domainauth.ProfileDocument{Role: "citizen"}))
	got, err := cache.GetProfile(ctx, "u-late")
	require.NoError(t, err)
	assert.Equal(t, "citizen", got.Role)
}

func TestProfileCache_CollapsesConcurrentMisses(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	backing := authmocks.NewMemoryProfileStore()
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	backing.GetFunc = func(context.Context, string) (domainauth.ProfileDocument, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return domainauth.ProfileDocument{Role: "official", StationID: "d1", StationName: "District"}, nil
	}

	cache, err := NewProfileCache(ProfileCacheOptions{Next: backing, Client: client})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, getErr := cache.GetProfile(ctx, "u-hot")
			errs <- getErr
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for e := range errs {
		require.NoError(t, e)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, calls, 2)
}

func TestProfileCache_StoreErrorsPropagate(t *testing.T) {
	client := setupTestRedis(t)
	backing := authmocks.NewMemoryProfileStore()
	backing.SetErr = errors.New("write refused")

	cache, err := NewProfileCache(ProfileCacheOptions{Next: backing, Client: client})
	require.NoError(t, err)
	require.Error(t, cache.SetProfile(context.Background(), "u-1", domainauth.ProfileDocument{}))
}

func TestProfileCache_SharedLoadSurvivesFirstCallerCancel(t *testing.T) {
	// Nothing listens on this port; every Redis call fails fast and reads fall through.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	backing := authmocks.NewMemoryProfileStore()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	backing.GetFunc = func(ctx context.Context, _ string) (domainauth.ProfileDocument, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return domainauth.ProfileDocument{}, err
		}
		return domainauth.ProfileDocument{Role: "citizen", Email: "asha@example.in"}, nil
	}

	cache, err := NewProfileCache(ProfileCacheOptions{Next: backing, Client: client, LoadTimeout: 5 * time.Second})
	require.NoError(t, err)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, getErr := cache.GetProfile(firstCtx, "u-shared")
		firstErr <- getErr
	}()
	<-started

	secondErr := make(chan error, 1)
	var second domainauth.ProfileDocument
	go func() {
		doc, getErr := cache.GetProfile(context.Background(), "u-shared")
		second = doc
		secondErr <- getErr
	}()
	time.Sleep(100 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	require.NoError(t, <-secondErr)
	assert.Equal(t, "citizen", second.Role)
}
