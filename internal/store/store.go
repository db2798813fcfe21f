// Package store defines the record store boundary of the semantic cache and
// its Redis implementation. The cache manager is the only writer; the store
// just persists field-map records and one sorted index of id -> score.
package store

import (
	"context"
	"time"
)

// RecordStore is the minimum set of operations the cache requires from its
// backing store. Each operation is individually atomic; sequences of
// operations are not. Implementations must be safe for concurrent use.
type RecordStore interface {
	// HashSet writes/overwrites all fields of the record at key.
	HashSet(ctx context.Context, key string, fields map[string]string) error

	// HashGetAll reads all fields of the record at key. A missing record
	// yields an empty map, not an error.
	HashGetAll(ctx context.Context, key string) (map[string]string, error)

	// SortedSetAdd inserts member with the given numeric score.
	SortedSetAdd(ctx context.Context, key, member string, score float64) error

	// SortedSetRange returns members in score order. Start/stop follow Redis
	// conventions; (0, -1) enumerates everything.
	SortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// SortedSetRemove removes member from the sorted set. Removing an absent
	// member is not an error.
	SortedSetRemove(ctx context.Context, key, member string) error

	// Delete removes the record at key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Time reads the store's server-side clock, so timestamps stay comparable
	// across distributed callers sharing one store.
	Time(ctx context.Context) (time.Time, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
