package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/logger"
)

const (
	keyNamespace      = "sg"
	idempotencyPrefix = "idempotency"
	ticketsPrefix     = "tickets"
	lockPrefix        = "lock"
)

var errNotInitialized = errors.New("redis client not initialized")

// Owner-checked scripts keep lock release and renewal atomic across instances.
var (
	compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
	compareAndExpireScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	LPush(context.Context, string, ...any) *redis.IntCmd
	LTrim(context.Context, string, int64, int64) *redis.StatusCmd
	LRange(context.Context, string, int64, int64) *redis.StringSliceCmd
	TxPipelined(context.Context, func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// Client wraps the redis connection helpers needed by the platform.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is what the idempotency middleware needs: reserve, finalize, release.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// ListStore is the capped list surface used for validation history.
type ListStore interface {
	PushCapped(ctx context.Context, key string, value string, limit int64) error
	Range(ctx context.Context, key string, start, stop int64) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Set stores a string value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns a string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errNotInitialized
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

// PushCapped prepends value to the list at key and keeps only the newest limit entries.
// Both commands run in one MULTI/EXEC block.
func (c *Client) PushCapped(ctx context.Context, key string, value string, limit int64) error {
	if c.store == nil {
		return errNotInitialized
	}
	if limit <= 0 {
		return fmt.Errorf("list limit must be positive, got %d", limit)
	}
	_, err := c.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, value)
		pipe.LTrim(ctx, key, 0, limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("capped push %s: %w", key, err)
	}
	return nil
}

// Range returns list entries between start and stop (inclusive, redis semantics).
func (c *Client) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if c.store == nil {
		return nil, errNotInitialized
	}
	values, err := c.store.LRange(ctx, key, start, stop).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	return values, err
}

// IdempotencyKey returns a namespaced key for idempotency storage.
func (c *Client) IdempotencyKey(scope, id string) string {
	return c.buildKey(idempotencyPrefix, scope, id)
}

// ValidationHistoryKey returns the key of the door scan history list.
func (c *Client) ValidationHistoryKey() string {
	return c.buildKey(ticketsPrefix, "validations")
}

// LockKey returns a namespaced key for distributed locks.
func (c *Client) LockKey(parts ...string) string {
	return c.buildKey(append([]string{lockPrefix}, parts...)...)
}

// CompareAndDelete deletes key only while it still holds expected.
func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	if c.raw == nil {
		return false, errNotInitialized
	}
	n, err := compareAndDeleteScript.Run(ctx, c.raw, []string{key}, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("compare and delete %s: %w", key, err)
	}
	return n == 1, nil
}

// CompareAndExpire resets the TTL of key only while it still holds expected.
func (c *Client) CompareAndExpire(ctx context.Context, key, expected string, ttl time.Duration) (bool, error) {
	if c.raw == nil {
		return false, errNotInitialized
	}
	n, err := compareAndExpireScript.Run(ctx, c.raw, []string{key}, expected, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("compare and expire %s: %w", key, err)
	}
	return n == 1, nil
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}
