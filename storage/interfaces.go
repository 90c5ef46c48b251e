package storage

import (
	"context"

	"github.com/sozialkompass/semcore/core"
)

// SearchOptions bounds a vector similarity search.
type SearchOptions struct {
	// TopK is the maximum number of matches to return.
	TopK int

	// MinSimilarity filters out matches with cosine similarity below this value.
	MinSimilarity float32

	// Filter is an exact-match predicate over entry metadata fields.
	// A nil or empty filter matches every entry.
	Filter map[string]string
}

// VectorRepository stores vector entries and answers similarity queries.
// Implementations establish their dimensionality from the first insert and
// reject vectors of any other length with ErrDimensionMismatch.
type VectorRepository interface {
	// Add inserts or overwrites the entry with the same id.
	Add(ctx context.Context, entry *core.VectorEntry) error

	// Get retrieves an entry by id.
	// Returns ErrNotFound if the entry doesn't exist.
	Get(ctx context.Context, id string) (*core.VectorEntry, error)

	// Remove deletes an entry by id. Removing an absent id is a no-op.
	Remove(ctx context.Context, id string) error

	// Search computes cosine similarity between the query vector and every
	// stored entry whose metadata satisfies opts.Filter. Returns up to
	// opts.TopK matches with similarity >= opts.MinSimilarity, ordered by
	// similarity descending with ties broken by insertion order.
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]*core.Match, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Load reads persisted state into memory. A missing or corrupt backing
	// file is tolerated: the store starts empty and the condition is logged.
	Load(ctx context.Context) error

	// Save persists the full store state, flushing before returning.
	Save(ctx context.Context) error

	// Close releases the storage backend.
	Close() error
}

// CacheRepository stores cached embeddings keyed by content hash.
// Records older than the backend's configured TTL are treated as absent.
type CacheRepository interface {
	// Get retrieves a cache record by key.
	// Returns ErrNotFound for missing or expired records.
	Get(ctx context.Context, key string) (*core.CacheRecord, error)

	// Put inserts or overwrites a cache record.
	Put(ctx context.Context, record *core.CacheRecord) error

	// Delete removes a record by key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Clear removes all records.
	Clear(ctx context.Context) error

	// Count returns the number of live (non-expired) records.
	Count(ctx context.Context) (int, error)

	// Load reads persisted state into memory, tolerating a missing or
	// corrupt backing file by starting empty.
	Load(ctx context.Context) error

	// Save persists the full cache state, flushing before returning.
	Save(ctx context.Context) error

	// Close releases the storage backend.
	Close() error
}
