package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/semcache-mcp/internal/config"
)

// RedisStore implements RecordStore on a Redis client. Hash records carry the
// cache entries; one sorted set carries the id -> timestamp index.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed record store and verifies the
// connection. Construction fails fast: an unreachable server yields
// ErrConnection, rejected credentials yield ErrAuthentication.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	options := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout(),
		ReadTimeout:  cfg.Timeout(),
		WriteTimeout: cfg.Timeout(),
	}

	if cfg.TLS {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(options)

	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return nil, fmt.Errorf("%w: redis at %s: %v", ErrConnection, cfg.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

// isAuthError distinguishes credential rejections from transport failures
func isAuthError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "NOAUTH") ||
		strings.Contains(msg, "WRONGPASS") ||
		strings.Contains(msg, "invalid username-password pair") ||
		strings.Contains(msg, "invalid password")
}

// HashSet writes/overwrites all fields of the record at key
func (s *RedisStore) HashSet(ctx context.Context, key string, fields map[string]string) error {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	if err := s.client.HSet(ctx, key, values).Err(); err != nil {
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}
	return nil
}

// HashGetAll reads all fields of the record at key; a missing record yields an
// empty map
func (s *RedisStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", key, err)
	}
	return fields, nil
}

// SortedSetAdd inserts member with the given score
func (s *RedisStore) SortedSetAdd(ctx context.Context, key, member string, score float64) error {
	if err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("failed to add %s to index %s: %w", member, key, err)
	}
	return nil
}

// SortedSetRange returns members of the sorted set in score order
func (s *RedisStore) SortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := s.client.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate index %s: %w", key, err)
	}
	return members, nil
}

// SortedSetRemove removes member from the sorted set
func (s *RedisStore) SortedSetRemove(ctx context.Context, key, member string) error {
	if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("failed to remove %s from index %s: %w", member, key, err)
	}
	return nil
}

// Delete removes the record at key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// Time reads the Redis server clock via the TIME command
func (s *RedisStore) Time(ctx context.Context) (time.Time, error) {
	t, err := s.client.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read server time: %w", err)
	}
	return t, nil
}

// Ping verifies connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Close closes the underlying Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
