package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Storage key layout. Field names are part of the contract: any tooling
// inspecting the store directly relies on them.
const (
	// DefaultKeyPrefix prefixes every record key: semantic_cache:{id}
	DefaultKeyPrefix = "semantic_cache:"

	// DefaultIndexKey is the sorted set mapping id -> insertion timestamp
	DefaultIndexKey = "semantic_cache_index"

	fieldID        = "id"
	fieldQuery     = "query"
	fieldEmbedding = "embedding"
	fieldResponse  = "response"
	fieldTimestamp = "timestamp"
)

// ErrCorruptRecord indicates a stored embedding or response failed to decode.
// Corrupt records are skipped per-entry during scans, never fatal to the batch.
var ErrCorruptRecord = errors.New("corrupt cache record")

// CacheRecord is one entry in the cache. Records are write-once: created by
// insert, destroyed by eviction or explicit delete, never mutated.
type CacheRecord struct {
	ID        string
	Query     string
	Embedding []float64
	Response  map[string]interface{}
	Timestamp int64
}

// fields serializes the record into the persisted field layout: embedding and
// response as JSON strings, timestamp as a string-encoded integer.
func (r *CacheRecord) fields() (map[string]string, error) {
	embeddingJSON, err := json.Marshal(r.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding: %w", err)
	}

	responseJSON, err := json.Marshal(r.Response)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	return map[string]string{
		fieldID:        r.ID,
		fieldQuery:     r.Query,
		fieldEmbedding: string(embeddingJSON),
		fieldResponse:  string(responseJSON),
		fieldTimestamp: strconv.FormatInt(r.Timestamp, 10),
	}, nil
}

// recordFromFields parses a stored field map back into a CacheRecord. Any
// missing or undecodable field yields ErrCorruptRecord.
func recordFromFields(fields map[string]string) (*CacheRecord, error) {
	embeddingJSON, ok := fields[fieldEmbedding]
	if !ok {
		return nil, fmt.Errorf("%w: missing embedding field", ErrCorruptRecord)
	}

	var embedding []float64
	if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
		return nil, fmt.Errorf("%w: undecodable embedding: %v", ErrCorruptRecord, err)
	}

	responseJSON, ok := fields[fieldResponse]
	if !ok {
		return nil, fmt.Errorf("%w: missing response field", ErrCorruptRecord)
	}

	var response map[string]interface{}
	if err := json.Unmarshal([]byte(responseJSON), &response); err != nil {
		return nil, fmt.Errorf("%w: undecodable response: %v", ErrCorruptRecord, err)
	}

	// Timestamp defaults to epoch when missing or garbled, which the sweep
	// treats as maximally stale.
	var timestamp int64
	if raw, ok := fields[fieldTimestamp]; ok {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			timestamp = parsed
		}
	}

	return &CacheRecord{
		ID:        fields[fieldID],
		Query:     fields[fieldQuery],
		Embedding: embedding,
		Response:  response,
		Timestamp: timestamp,
	}, nil
}
