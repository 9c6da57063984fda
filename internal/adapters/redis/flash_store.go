package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kavach-app/kavach/internal/ports"
)

const (
	// DefaultFlashTTL is how long undelivered notifications are kept.
	DefaultFlashTTL = 10 * time.Minute
	// DefaultFlashLimit caps queued notifications per client; older ones are dropped.
	DefaultFlashLimit = 20
)

// FlashStoreOptions configures a FlashStore.
type FlashStoreOptions struct {
	Client redis.UniversalClient
	Prefix string
	TTL    time.Duration
	Limit  int
	Now    func() time.Time
	Logger *slog.Logger
}

// FlashStore queues user notifications per browser client until the page layer drains them.
type FlashStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	limit  int64
	now    func() time.Time
	logger *slog.Logger
}

// NewFlashStore constructs a FlashStore.
func NewFlashStore(opts FlashStoreOptions) (*FlashStore, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	fs := &FlashStore{
		client: opts.Client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		limit:  int64(opts.Limit),
		now:    opts.Now,
		logger: opts.Logger,
	}
	if fs.prefix == "" {
		fs.prefix = "flash:"
	}
	if fs.ttl <= 0 {
		fs.ttl = DefaultFlashTTL
	}
	if fs.limit <= 0 {
		fs.limit = DefaultFlashLimit
	}
	if fs.now == nil {
		fs.now = time.Now
	}
	if fs.logger == nil {
		fs.logger = slog.Default()
	}
	fs.logger = fs.logger.With("component", "flash_store")
	return fs, nil
}

func (s *FlashStore) key(clientID string) string { return s.prefix + clientID }

// Push appends a notification to the client's queue.
func (s *FlashStore) Push(ctx context.Context, clientID string, n ports.Notification) error {
	if clientID == "" {
		return errors.New("client id cannot be empty")
	}
	if n.At.IsZero() {
		n.At = s.now().UTC()
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	key := s.key(clientID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -s.limit, -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push notification: %w", err)
	}
	return nil
}

// Drain returns and removes every queued notification for clientID, oldest first.
func (s *FlashStore) Drain(ctx context.Context, clientID string) ([]ports.Notification, error) {
	if clientID == "" {
		return nil, nil
	}
	key := s.key(clientID)
	pipe := s.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis drain notifications: %w", err)
	}

	items := rangeCmd.Val()
	out := make([]ports.Notification, 0, len(items))
	for _, item := range items {
		var n ports.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			s.logger.WarnContext(ctx, "skipping undecodable notification", "error", err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// For returns a Notifier bound to one client.
func (s *FlashStore) For(clientID string) ports.Notifier {
	return &clientFlash{store: s, clientID: clientID}
}

type clientFlash struct {
	store    *FlashStore
	clientID string
}

// Notify queues the message. Delivery failures are logged, never returned.
func (f *clientFlash) Notify(ctx context.Context, kind ports.NotificationKind, message string) {
	err := f.store.Push(ctx, f.clientID, ports.Notification{Kind: kind, Message: message})
	if err != nil {
		f.store.logger.WarnContext(ctx, "notification dropped", "kind", kind, "error", err)
	}
}
