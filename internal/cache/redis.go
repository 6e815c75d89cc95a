package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisOptions parameterise the Redis-backed cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis shares cooldowns and resolved alerts between instances.
type Redis struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions, logger zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	r := NewRedisWithClient(client, opts.Prefix, logger)
	r.logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
	return r, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string, logger zerolog.Logger) *Redis {
	if prefix == "" {
		prefix = "campaignwatch"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("component", "cache_redis").Logger(),
	}
}

// Close closes the client.
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Health pings the server.
func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) cooldownKey(id string) string {
	return r.prefix + ":cooldown:" + id
}

func (r *Redis) resolvedKey() string {
	return r.prefix + ":resolved"
}

// Acquire implements Cooldown with SET NX and a TTL.
func (r *Redis) Acquire(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, r.cooldownKey(id), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire cooldown %s: %w", id, err)
	}
	return ok, nil
}

// Resolve implements ResolvedSet.
func (r *Redis) Resolve(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.client.SAdd(ctx, r.resolvedKey(), toArgs(ids)...).Err(); err != nil {
		return fmt.Errorf("resolve alerts: %w", err)
	}
	return nil
}

// Reopen implements ResolvedSet.
func (r *Redis) Reopen(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.client.SRem(ctx, r.resolvedKey(), toArgs(ids)...).Err(); err != nil {
		return fmt.Errorf("reopen alerts: %w", err)
	}
	return nil
}

// Resolved implements ResolvedSet.
func (r *Redis) Resolved(ctx context.Context) (map[string]bool, error) {
	members, err := r.client.SMembers(ctx, r.resolvedKey()).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("list resolved alerts: %w", err)
	}
	out := make(map[string]bool, len(members))
	for _, id := range members {
		out[id] = true
	}
	return out, nil
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

var (
	_ Cooldown    = (*Redis)(nil)
	_ ResolvedSet = (*Redis)(nil)
)
