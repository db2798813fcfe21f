// Package cache implements a semantic cache over an external record store:
// (query, response) pairs are stored with the query's embedding vector, and
// lookups return previously cached responses whose queries are semantically
// close to the incoming one. Retrieval is an exhaustive linear scan over the
// index; there is no approximate nearest-neighbor structure.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/semcache-mcp/internal/config"
	"github.com/semcache-mcp/internal/embedding"
	"github.com/semcache-mcp/internal/logger"
	"github.com/semcache-mcp/internal/store"
)

// ErrPartialWrite indicates an insert wrote the record but failed to write the
// index entry (or an eviction removed only one of the two). The store is left
// with an orphan; no rollback is attempted, retrieval tolerates the orphan by
// skipping it.
var ErrPartialWrite = errors.New("partial cache write")

// Match is one retrieval result: a cached response whose stored query cleared
// the similarity threshold against the incoming query.
type Match struct {
	Similarity float64                `json:"similarity"`
	Query      string                 `json:"query"`
	Response   map[string]interface{} `json:"response"`
}

// Skip reasons accumulated during a retrieval scan. Per-entry failures are
// isolated: they are counted and logged, never fatal to the batch.
const (
	SkipOrphanedIndexEntry = "orphaned_index_entry"
	SkipCorruptRecord      = "corrupt_record"
	SkipDimensionMismatch  = "dimension_mismatch"
	SkipDegenerateVector   = "degenerate_vector"
	SkipStoreError         = "store_error"
)

// ScanStats summarizes one retrieval scan
type ScanStats struct {
	Scanned        int            `json:"scanned"`
	Matched        int            `json:"matched"`
	BelowThreshold int            `json:"below_threshold"`
	Skipped        map[string]int `json:"skipped,omitempty"`
}

// Stats reports the cache's current size and configuration plus process-local
// hit/miss counters maintained by retrieval.
type Stats struct {
	Entries             int     `json:"entries"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	MaxAgeSeconds       int64   `json:"max_age_seconds"`
	DefaultTopK         int     `json:"default_top_k"`
	Hits                int64   `json:"hits"`
	Misses              int64   `json:"misses"`
}

// SemanticCache orchestrates id generation, record construction, insertion
// into the store and index, similarity-ranked retrieval, and age-based
// eviction. It is the sole writer of cache state; all concurrency safety is
// delegated to the atomicity of individual store operations.
type SemanticCache struct {
	store    store.RecordStore
	embedder embedding.Service
	logger   *logger.Logger

	threshold     float64
	maxAgeSeconds int64
	defaultTopK   int
	keyPrefix     string
	indexKey      string

	hits   atomic.Int64
	misses atomic.Int64
}

// Option overrides a configured value on the cache. Explicit options take
// precedence over configuration loaded from the environment.
type Option func(*SemanticCache)

// WithSimilarityThreshold sets the minimum similarity for a retrieval match
func WithSimilarityThreshold(threshold float64) Option {
	return func(c *SemanticCache) { c.threshold = threshold }
}

// WithMaxAge sets the default maximum entry age for the eviction sweep
func WithMaxAge(seconds int64) Option {
	return func(c *SemanticCache) { c.maxAgeSeconds = seconds }
}

// WithDefaultTopK sets the result count used when retrieval is called with
// topK <= 0
func WithDefaultTopK(k int) Option {
	return func(c *SemanticCache) { c.defaultTopK = k }
}

// WithKeyPrefix overrides the record key prefix
func WithKeyPrefix(prefix string) Option {
	return func(c *SemanticCache) { c.keyPrefix = prefix }
}

// WithIndexKey overrides the sorted-set index key
func WithIndexKey(key string) Option {
	return func(c *SemanticCache) { c.indexKey = key }
}

// New creates a semantic cache on top of a record store and an embedder
func New(recordStore store.RecordStore, embedder embedding.Service, log *logger.Logger, cfg config.CacheConfig, opts ...Option) *SemanticCache {
	c := &SemanticCache{
		store:         recordStore,
		embedder:      embedder,
		logger:        log,
		threshold:     cfg.SimilarityThreshold,
		maxAgeSeconds: cfg.MaxAgeSeconds,
		defaultTopK:   cfg.DefaultTopK,
		keyPrefix:     DefaultKeyPrefix,
		indexKey:      DefaultIndexKey,
	}

	if c.threshold == 0 {
		c.threshold = 0.8
	}
	if c.maxAgeSeconds == 0 {
		c.maxAgeSeconds = 86400
	}
	if c.defaultTopK <= 0 {
		c.defaultTopK = 1
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SimilarityThreshold returns the configured acceptance threshold
func (c *SemanticCache) SimilarityThreshold() float64 {
	return c.threshold
}

func (c *SemanticCache) recordKey(id string) string {
	return c.keyPrefix + id
}

// CacheQueryResponse stores a (query, response) pair keyed by a fresh id and
// returns the id. Every call creates a new record; near-identical queries are
// not deduplicated. The record write and the index write are two separate
// store operations and are not atomic as a unit: if the index write fails
// after the record write succeeded, the record is orphaned and the error is
// reported as ErrPartialWrite.
func (c *SemanticCache) CacheQueryResponse(ctx context.Context, query string, response map[string]interface{}) (string, error) {
	id := uuid.NewString()

	queryEmbedding, err := c.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	// The store's clock, not the caller's, so timestamps stay comparable
	// across distributed callers.
	now, err := c.store.Time(ctx)
	if err != nil {
		return "", err
	}

	record := &CacheRecord{
		ID:        id,
		Query:     query,
		Embedding: queryEmbedding,
		Response:  response,
		Timestamp: now.Unix(),
	}

	fields, err := record.fields()
	if err != nil {
		return "", err
	}

	if err := c.store.HashSet(ctx, c.recordKey(id), fields); err != nil {
		return "", err
	}

	if err := c.store.SortedSetAdd(ctx, c.indexKey, id, float64(record.Timestamp)); err != nil {
		c.logger.Error("Partial cache write: record %s stored but index entry failed: %v", id, err)
		return "", fmt.Errorf("%w: %v", ErrPartialWrite, err)
	}

	c.logger.Debug("Cached query %q as %s (dims: %d)", truncate(query, 50), id, len(queryEmbedding))
	return id, nil
}

// RetrieveSimilarResponse returns up to topK cached responses whose stored
// queries are at least the configured threshold similar to the incoming
// query, ordered by similarity descending. topK <= 0 uses the configured
// default. An empty result is success, not an error.
func (c *SemanticCache) RetrieveSimilarResponse(ctx context.Context, query string, topK int) ([]Match, error) {
	matches, _, err := c.RetrieveSimilarResponseWithStats(ctx, query, topK)
	return matches, err
}

// RetrieveSimilarResponseWithStats is RetrieveSimilarResponse plus a summary
// of what the scan saw: entries below threshold and entries skipped, by
// reason. Per-entry failures (orphaned index entries, corrupt records,
// dimension mismatches, degenerate vectors) are skipped and counted; only
// embedder or store connectivity failures abort the scan.
func (c *SemanticCache) RetrieveSimilarResponseWithStats(ctx context.Context, query string, topK int) ([]Match, ScanStats, error) {
	return c.RetrieveWithThreshold(ctx, query, topK, c.threshold)
}

// RetrieveWithThreshold runs one retrieval scan with an explicit acceptance
// threshold instead of the configured one
func (c *SemanticCache) RetrieveWithThreshold(ctx context.Context, query string, topK int, threshold float64) ([]Match, ScanStats, error) {
	stats := ScanStats{Skipped: make(map[string]int)}

	if topK <= 0 {
		topK = c.defaultTopK
	}

	queryEmbedding, err := c.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to embed query: %w", err)
	}

	// Full scan: every id in the index, no pagination, no early termination.
	ids, err := c.store.SortedSetRange(ctx, c.indexKey, 0, -1)
	if err != nil {
		return nil, stats, err
	}

	matches := make([]Match, 0, topK)
	for _, id := range ids {
		stats.Scanned++

		match, skipReason := c.scoreEntry(ctx, id, queryEmbedding)
		if skipReason != "" {
			stats.Skipped[skipReason]++
			continue
		}

		if match.Similarity >= threshold {
			stats.Matched++
			matches = append(matches, match)
		} else {
			stats.BelowThreshold++
		}
	}

	// Stable sort keeps enumeration order for equal similarities.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	if len(matches) > 0 {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	c.logger.LogCacheMetrics("retrieve_similar_response", len(matches) > 0, map[string]interface{}{
		"scanned": stats.Scanned,
		"matched": stats.Matched,
		"skipped": stats.Skipped,
	})

	return matches, stats, nil
}

// scoreEntry fetches and scores one index entry against the query embedding.
// A non-empty skip reason means the entry contributed nothing to the scan.
func (c *SemanticCache) scoreEntry(ctx context.Context, id string, queryEmbedding []float64) (Match, string) {
	fields, err := c.store.HashGetAll(ctx, c.recordKey(id))
	if err != nil {
		c.logger.Warn("Skipping cache entry %s: store read failed: %v", id, err)
		return Match{}, SkipStoreError
	}

	// An index entry whose record is gone: treated as not found. Can appear
	// when a sweep races a retrieval, or after a partial write.
	if len(fields) == 0 {
		c.logger.Debug("Skipping orphaned index entry %s", id)
		return Match{}, SkipOrphanedIndexEntry
	}

	record, err := recordFromFields(fields)
	if err != nil {
		c.logger.Warn("Skipping cache entry %s: %v", id, err)
		return Match{}, SkipCorruptRecord
	}

	similarity, err := CosineSimilarity(queryEmbedding, record.Embedding)
	if err != nil {
		switch {
		case errors.Is(err, ErrDimensionMismatch):
			c.logger.Warn("Skipping cache entry %s: stored %d dims vs query %d dims", id, len(record.Embedding), len(queryEmbedding))
			return Match{}, SkipDimensionMismatch
		case errors.Is(err, ErrZeroVector):
			c.logger.Warn("Skipping cache entry %s: degenerate embedding", id)
			return Match{}, SkipDegenerateVector
		default:
			c.logger.Warn("Skipping cache entry %s: %v", id, err)
			return Match{}, SkipStoreError
		}
	}

	return Match{
		Similarity: similarity,
		Query:      record.Query,
		Response:   record.Response,
	}, ""
}

// ClearOldCache removes every entry older than maxAgeSeconds, judged against
// the store's clock. maxAgeSeconds <= 0 uses the configured default. The
// index entry is removed before the record is deleted, so a concurrent
// retrieval sees at worst an orphaned index entry, which it skips. The sweep
// is idempotent: a second run with no intervening inserts removes nothing.
func (c *SemanticCache) ClearOldCache(ctx context.Context, maxAgeSeconds int64) error {
	if maxAgeSeconds <= 0 {
		maxAgeSeconds = c.maxAgeSeconds
	}

	now, err := c.store.Time(ctx)
	if err != nil {
		return err
	}
	currentTime := now.Unix()

	ids, err := c.store.SortedSetRange(ctx, c.indexKey, 0, -1)
	if err != nil {
		return err
	}

	removed := 0
	for _, id := range ids {
		fields, err := c.store.HashGetAll(ctx, c.recordKey(id))
		if err != nil {
			c.logger.Warn("Sweep: skipping entry %s: store read failed: %v", id, err)
			continue
		}

		// A missing or garbled timestamp counts as epoch, i.e. maximally
		// stale. That also reclaims orphaned index entries.
		var entryTime int64
		if raw, ok := fields[fieldTimestamp]; ok {
			if parsed, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
				entryTime = parsed
			}
		}

		if currentTime-entryTime <= maxAgeSeconds {
			continue
		}

		if err := c.removeEntry(ctx, id); err != nil {
			c.logger.Error("Sweep: failed to remove entry %s: %v", id, err)
			continue
		}
		removed++
	}

	c.logger.Info("Cache sweep complete: removed %d of %d entries (max age: %ds)", removed, len(ids), maxAgeSeconds)
	return nil
}

// DeleteEntry explicitly removes one entry from both the index and the store.
// Deleting an absent id is not an error.
func (c *SemanticCache) DeleteEntry(ctx context.Context, id string) error {
	return c.removeEntry(ctx, id)
}

// removeEntry removes id from the index first, then deletes its record. If
// the delete fails after the index removal the record is orphaned from the
// index's point of view but invisible to scans, which is the safe side of the
// race.
func (c *SemanticCache) removeEntry(ctx context.Context, id string) error {
	if err := c.store.SortedSetRemove(ctx, c.indexKey, id); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, c.recordKey(id)); err != nil {
		return fmt.Errorf("%w: index entry %s removed but record delete failed: %v", ErrPartialWrite, id, err)
	}
	return nil
}

// Stats reports the current index cardinality, configuration, and
// process-local hit/miss counters
func (c *SemanticCache) Stats(ctx context.Context) (Stats, error) {
	ids, err := c.store.SortedSetRange(ctx, c.indexKey, 0, -1)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Entries:             len(ids),
		SimilarityThreshold: c.threshold,
		MaxAgeSeconds:       c.maxAgeSeconds,
		DefaultTopK:         c.defaultTopK,
		Hits:                c.hits.Load(),
		Misses:              c.misses.Load(),
	}, nil
}

// truncate safely truncates a string for logging
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
