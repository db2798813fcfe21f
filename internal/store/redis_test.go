package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcache-mcp/internal/config"
)

// setupMiniRedis creates a test Redis server using miniredis
func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func newTestStore(t *testing.T, mr *miniredis.Miniredis) *RedisStore {
	t.Helper()
	s, err := NewRedisStore(config.RedisConfig{
		Addr:           mr.Addr(),
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewRedisStore(t *testing.T) {
	t.Run("successful_connection", func(t *testing.T) {
		mr := setupMiniRedis(t)

		s, err := NewRedisStore(config.RedisConfig{Addr: mr.Addr(), TimeoutSeconds: 5})
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.NoError(t, s.Ping(context.Background()))
		assert.NoError(t, s.Close())
	})

	t.Run("unreachable_server_is_a_connection_error", func(t *testing.T) {
		_, err := NewRedisStore(config.RedisConfig{Addr: "localhost:1", TimeoutSeconds: 1})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConnection)
	})

	t.Run("rejected_credentials_are_an_authentication_error", func(t *testing.T) {
		mr := setupMiniRedis(t)
		mr.RequireAuth("correct-password")

		_, err := NewRedisStore(config.RedisConfig{
			Addr:           mr.Addr(),
			Password:       "wrong-password",
			TimeoutSeconds: 5,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuthentication)

		// The right password connects.
		s, err := NewRedisStore(config.RedisConfig{
			Addr:           mr.Addr(),
			Password:       "correct-password",
			TimeoutSeconds: 5,
		})
		require.NoError(t, err)
		assert.NoError(t, s.Close())
	})
}

func TestRedisStoreHashOperations(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)
	s := newTestStore(t, mr)

	t.Run("hash_set_and_get_all", func(t *testing.T) {
		fields := map[string]string{
			"id":        "abc",
			"query":     "what is go",
			"embedding": "[0.1,0.2]",
			"response":  `{"answer":"a language"}`,
			"timestamp": "1700000000",
		}
		require.NoError(t, s.HashSet(ctx, "semantic_cache:abc", fields))

		got, err := s.HashGetAll(ctx, "semantic_cache:abc")
		require.NoError(t, err)
		assert.Equal(t, fields, got)
	})

	t.Run("missing_record_yields_empty_map", func(t *testing.T) {
		got, err := s.HashGetAll(ctx, "semantic_cache:missing")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.HashSet(ctx, "semantic_cache:gone", map[string]string{"id": "gone"}))
		require.NoError(t, s.Delete(ctx, "semantic_cache:gone"))
		assert.False(t, mr.Exists("semantic_cache:gone"))

		// Deleting an absent key is not an error.
		assert.NoError(t, s.Delete(ctx, "semantic_cache:gone"))
	})
}

func TestRedisStoreSortedSetOperations(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)
	s := newTestStore(t, mr)

	t.Run("add_and_range_in_score_order", func(t *testing.T) {
		require.NoError(t, s.SortedSetAdd(ctx, "idx", "later", 300))
		require.NoError(t, s.SortedSetAdd(ctx, "idx", "earliest", 100))
		require.NoError(t, s.SortedSetAdd(ctx, "idx", "middle", 200))

		members, err := s.SortedSetRange(ctx, "idx", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"earliest", "middle", "later"}, members)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.SortedSetRemove(ctx, "idx", "middle"))

		members, err := s.SortedSetRange(ctx, "idx", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"earliest", "later"}, members)

		// Removing an absent member is not an error.
		assert.NoError(t, s.SortedSetRemove(ctx, "idx", "never-there"))
	})

	t.Run("range_of_missing_key_is_empty", func(t *testing.T) {
		members, err := s.SortedSetRange(ctx, "no-such-index", 0, -1)
		require.NoError(t, err)
		assert.Empty(t, members)
	})
}

func TestRedisStoreTime(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)
	s := newTestStore(t, mr)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mr.SetTime(fixed)

	got, err := s.Time(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixed.Unix(), got.Unix())
}
