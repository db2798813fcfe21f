package service

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcache-mcp/internal/config"
	"github.com/semcache-mcp/internal/logger"
	"github.com/semcache-mcp/internal/store"
)

// setupService starts a miniredis server and builds the MCP service against it
// with the mock embedding provider
func setupService(t *testing.T) *CacheMCPService {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{
		Redis: config.RedisConfig{
			Addr:           mr.Addr(),
			TimeoutSeconds: 5,
		},
		Embedding: config.EmbeddingConfig{
			Provider: "mock",
		},
		Cache: config.CacheConfig{
			SimilarityThreshold: 0.8,
			MaxAgeSeconds:       86400,
			DefaultTopK:         1,
		},
	}

	svc, err := NewCacheMCPService(cfg, logger.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return svc
}

func TestNewCacheMCPService(t *testing.T) {
	t.Run("fails_fast_on_unreachable_store", func(t *testing.T) {
		cfg := &config.Config{
			Redis:     config.RedisConfig{Addr: "localhost:1", TimeoutSeconds: 1},
			Embedding: config.EmbeddingConfig{Provider: "mock"},
		}

		_, err := NewCacheMCPService(cfg, logger.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrConnection)
	})

	t.Run("fails_fast_on_unknown_embedding_provider", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		cfg := &config.Config{
			Redis:     config.RedisConfig{Addr: mr.Addr(), TimeoutSeconds: 5},
			Embedding: config.EmbeddingConfig{Provider: "word2vec"},
		}

		_, err = NewCacheMCPService(cfg, logger.New())
		assert.Error(t, err)
	})
}

func TestCacheTools(t *testing.T) {
	t.Run("cache_then_retrieve", func(t *testing.T) {
		svc := setupService(t)

		resp, err := svc.cacheQueryResponse(CacheQueryResponseArgs{
			Query:    "Tell me about machine learning",
			Response: map[string]interface{}{"summary": "ML is a subset of AI"},
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Contains(t, resp.Content[0].TextContent.Text, "Cached entry")

		result, err := svc.retrieveSimilarResponse(RetrieveSimilarResponseArgs{
			Query: "Tell me about machine learning",
			TopK:  1,
		})
		require.NoError(t, err)
		text := result.Content[0].TextContent.Text
		assert.Contains(t, text, "similar cached response")
		assert.Contains(t, text, "ML is a subset of AI")
	})

	t.Run("retrieve_miss_reports_scan", func(t *testing.T) {
		svc := setupService(t)

		result, err := svc.retrieveSimilarResponse(RetrieveSimilarResponseArgs{Query: "anything"})
		require.NoError(t, err)
		assert.Contains(t, result.Content[0].TextContent.Text, "No cached responses")
	})

	t.Run("argument_validation", func(t *testing.T) {
		svc := setupService(t)

		_, err := svc.cacheQueryResponse(CacheQueryResponseArgs{Query: ""})
		assert.Error(t, err)

		_, err = svc.cacheQueryResponse(CacheQueryResponseArgs{Query: "q"})
		assert.Error(t, err, "missing response must be rejected")

		_, err = svc.retrieveSimilarResponse(RetrieveSimilarResponseArgs{Query: ""})
		assert.Error(t, err)

		_, err = svc.deleteCacheEntry(DeleteCacheEntryArgs{ID: ""})
		assert.Error(t, err)
	})

	t.Run("stats_reflect_inserts", func(t *testing.T) {
		svc := setupService(t)

		_, err := svc.cacheQueryResponse(CacheQueryResponseArgs{
			Query:    "counted",
			Response: map[string]interface{}{},
		})
		require.NoError(t, err)

		result, err := svc.getCacheStats(GetCacheStatsArgs{})
		require.NoError(t, err)
		text := result.Content[0].TextContent.Text
		assert.Contains(t, text, "Entries: 1")
		assert.Contains(t, text, "Similarity Threshold: 0.80")
	})

	t.Run("clear_old_cache_is_callable_when_empty", func(t *testing.T) {
		svc := setupService(t)

		result, err := svc.clearOldCache(ClearOldCacheArgs{MaxAgeSeconds: 60})
		require.NoError(t, err)
		assert.Contains(t, result.Content[0].TextContent.Text, "sweep complete")
	})
}
