package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mcp "github.com/metoro-io/mcp-golang"

	"github.com/semcache-mcp/internal/cache"
	"github.com/semcache-mcp/internal/config"
	"github.com/semcache-mcp/internal/embedding"
	"github.com/semcache-mcp/internal/logger"
	"github.com/semcache-mcp/internal/store"
)

// CacheMCPService exposes the semantic cache as MCP tools over stdio. The
// cache itself is a plain library; this layer only translates tool calls.
type CacheMCPService struct {
	cache  *cache.SemanticCache
	store  store.RecordStore
	config *config.Config
	logger *logger.Logger
}

// NewCacheMCPService wires the record store, embedding provider, and cache
// manager together. Construction fails fast on bad store credentials or an
// unreachable store.
func NewCacheMCPService(cfg *config.Config, log *logger.Logger) (*CacheMCPService, error) {
	recordStore, err := store.NewRedisStore(cfg.Redis)
	if err != nil {
		return nil, err
	}
	log.LogInitialization("record store", "connected", cfg.Redis.Addr)

	embedder, err := embedding.NewFromConfig(cfg.Embedding, log)
	if err != nil {
		_ = recordStore.Close()
		return nil, err
	}
	log.LogInitialization("embedding provider", "ready", cfg.Embedding.Provider)

	semanticCache := cache.New(recordStore, embedder, log, cfg.Cache)

	return &CacheMCPService{
		cache:  semanticCache,
		store:  recordStore,
		config: cfg,
		logger: log,
	}, nil
}

// Cache returns the underlying semantic cache for library-style use
func (s *CacheMCPService) Cache() *cache.SemanticCache {
	return s.cache
}

// RegisterTools registers all semantic cache tools with the MCP server
func (s *CacheMCPService) RegisterTools(server *mcp.Server) error {
	if err := server.RegisterTool("cache_query_response",
		"Store a query and its structured response in the semantic cache. Returns the id of the new cache entry. Every call creates a new entry, even for near-identical queries.",
		s.cacheQueryResponse); err != nil {
		return fmt.Errorf("failed to register cache_query_response tool: %w", err)
	}

	if err := server.RegisterTool("retrieve_similar_response",
		"Look up cached responses whose queries are semantically similar to the given query. Results are ranked by cosine similarity, best first, and limited to top_k entries at or above the similarity threshold. An empty result means no cached query was close enough.",
		s.retrieveSimilarResponse); err != nil {
		return fmt.Errorf("failed to register retrieve_similar_response tool: %w", err)
	}

	if err := server.RegisterTool("clear_old_cache",
		"Sweep the cache, removing every entry older than max_age_seconds (judged by the store's clock). Idempotent: running it twice in a row removes nothing the second time.",
		s.clearOldCache); err != nil {
		return fmt.Errorf("failed to register clear_old_cache tool: %w", err)
	}

	if err := server.RegisterTool("delete_cache_entry",
		"Delete a single cache entry by id, removing it from both the index and the record store. Deleting an id that does not exist is not an error.",
		s.deleteCacheEntry); err != nil {
		return fmt.Errorf("failed to register delete_cache_entry tool: %w", err)
	}

	if err := server.RegisterTool("get_cache_stats",
		"Get semantic cache statistics: entry count, similarity threshold, max entry age, and hit/miss counters for this server process.",
		s.getCacheStats); err != nil {
		return fmt.Errorf("failed to register get_cache_stats tool: %w", err)
	}

	s.logger.Debug("Successfully registered semantic cache tools")
	return nil
}

// RegisterResources registers contextual resources with the MCP server
func (s *CacheMCPService) RegisterResources(server *mcp.Server) error {
	if err := server.RegisterResource("cache://stats", "cache_stats", "Current semantic cache statistics", "application/json", func() (*mcp.ResourceResponse, error) {
		stats, err := s.cache.Stats(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to read cache stats: %w", err)
		}

		statsJSON, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache stats: %w", err)
		}

		return mcp.NewResourceResponse(mcp.NewTextEmbeddedResource("cache://stats", string(statsJSON), "application/json")), nil
	}); err != nil {
		return fmt.Errorf("failed to register cache_stats resource: %w", err)
	}

	s.logger.Debug("Successfully registered MCP resources")
	return nil
}

// Close releases the store connection
func (s *CacheMCPService) Close() error {
	return s.store.Close()
}

func (s *CacheMCPService) cacheQueryResponse(args CacheQueryResponseArgs) (*mcp.ToolResponse, error) {
	start := time.Now()

	if args.Query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	if args.Response == nil {
		return nil, fmt.Errorf("response parameter is required")
	}

	id, err := s.cache.CacheQueryResponse(context.Background(), args.Query, args.Response)
	s.logger.LogToolCall("cache_query_response", args, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to cache query response: %w", err)
	}

	return mcp.NewToolResponse(mcp.NewTextContent(fmt.Sprintf("Cached entry %s for query: %q", id, args.Query))), nil
}

func (s *CacheMCPService) retrieveSimilarResponse(args RetrieveSimilarResponseArgs) (*mcp.ToolResponse, error) {
	start := time.Now()

	if args.Query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}

	threshold := args.Threshold
	if threshold <= 0 {
		threshold = s.cache.SimilarityThreshold()
	}

	matches, stats, err := s.cache.RetrieveWithThreshold(context.Background(), args.Query, args.TopK, threshold)
	s.logger.LogToolCall("retrieve_similar_response", args, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve similar responses: %w", err)
	}

	if len(matches) == 0 {
		return mcp.NewToolResponse(mcp.NewTextContent(fmt.Sprintf(
			"No cached responses at or above similarity %.2f for: %q (scanned %d entries)",
			threshold, args.Query, stats.Scanned))), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d similar cached response(s) for: %q\n\n", len(matches), args.Query)
	for i, match := range matches {
		responseJSON, err := json.Marshal(match.Response)
		if err != nil {
			responseJSON = []byte("{}")
		}
		fmt.Fprintf(&sb, "%d. (%.1f%% similarity) %s\n   %s\n", i+1, match.Similarity*100, match.Query, responseJSON)
	}

	return mcp.NewToolResponse(mcp.NewTextContent(sb.String())), nil
}

func (s *CacheMCPService) clearOldCache(args ClearOldCacheArgs) (*mcp.ToolResponse, error) {
	start := time.Now()

	err := s.cache.ClearOldCache(context.Background(), args.MaxAgeSeconds)
	s.logger.LogToolCall("clear_old_cache", args, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep cache: %w", err)
	}

	stats, err := s.cache.Stats(context.Background())
	if err != nil {
		return mcp.NewToolResponse(mcp.NewTextContent("Cache sweep complete")), nil
	}

	return mcp.NewToolResponse(mcp.NewTextContent(fmt.Sprintf("Cache sweep complete - %d entries remain", stats.Entries))), nil
}

func (s *CacheMCPService) deleteCacheEntry(args DeleteCacheEntryArgs) (*mcp.ToolResponse, error) {
	start := time.Now()

	if args.ID == "" {
		return nil, fmt.Errorf("id parameter is required")
	}

	err := s.cache.DeleteEntry(context.Background(), args.ID)
	s.logger.LogToolCall("delete_cache_entry", args, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return mcp.NewToolResponse(mcp.NewTextContent(fmt.Sprintf("Deleted cache entry %s", args.ID))), nil
}

func (s *CacheMCPService) getCacheStats(args GetCacheStatsArgs) (*mcp.ToolResponse, error) {
	start := time.Now()

	stats, err := s.cache.Stats(context.Background())
	s.logger.LogToolCall("get_cache_stats", args, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Semantic Cache Statistics:\n")
	fmt.Fprintf(&sb, "- Store: %s\n", s.config.Redis.Addr)
	fmt.Fprintf(&sb, "- Entries: %d\n", stats.Entries)
	fmt.Fprintf(&sb, "- Similarity Threshold: %.2f\n", stats.SimilarityThreshold)
	fmt.Fprintf(&sb, "- Max Entry Age: %ds\n", stats.MaxAgeSeconds)
	fmt.Fprintf(&sb, "- Default TopK: %d\n", stats.DefaultTopK)
	fmt.Fprintf(&sb, "- Hits: %d, Misses: %d\n", stats.Hits, stats.Misses)

	return mcp.NewToolResponse(mcp.NewTextContent(sb.String())), nil
}
