package badger

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/storage"
)

// CacheRepository implements storage.CacheRepository over BadgerDB.
// Expiry uses badger's native per-entry TTL, so expired records vanish from
// reads without a sweep.
type CacheRepository struct {
	backend *Backend
	ttl     time.Duration
	logger  *slog.Logger
}

var _ storage.CacheRepository = (*CacheRepository)(nil)

// CacheOption configures a CacheRepository.
type CacheOption func(*CacheRepository)

// WithTTL sets the record time-to-live. Zero (the default) disables expiry.
// Badger stores expiry at one-second granularity, so sub-second values are
// rounded up to one second.
func WithTTL(ttl time.Duration) CacheOption {
	return func(r *CacheRepository) {
		if ttl > 0 && ttl < time.Second {
			ttl = time.Second
		}
		r.ttl = ttl
	}
}

// NewCacheRepository creates a cache repository on the given backend.
func NewCacheRepository(backend *Backend, opts ...CacheOption) *CacheRepository {
	r := &CacheRepository{
		backend: backend,
		logger:  slog.Default().With("component", "badger-cache"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get retrieves a record by key. Expired records are absent.
func (r *CacheRepository) Get(ctx context.Context, key string) (*core.CacheRecord, error) {
	var record *core.CacheRecord

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			record, err = storage.UnmarshalCacheRecord(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Put inserts or overwrites a record, applying the configured TTL.
func (r *CacheRepository) Put(ctx context.Context, record *core.CacheRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeCacheKey(record.Key), storage.MarshalCacheRecord(record))
		if r.ttl > 0 {
			entry = entry.WithTTL(r.ttl)
		}
		return tx.SetEntry(entry)
	}, true)
}

// Delete removes a record by key. Deleting an absent key is a no-op.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Delete(makeCacheKey(key))
	}, true)
}

// Clear removes all records.
func (r *CacheRepository) Clear(ctx context.Context) error {
	var keys [][]byte

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(cacheRecordPrefix)
		iterOpts.PrefetchValues = false
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// Count returns the number of live records.
func (r *CacheRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(cacheRecordPrefix)
		iterOpts.PrefetchValues = false
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Load is a no-op: badger reads its own state lazily.
func (r *CacheRepository) Load(ctx context.Context) error {
	return nil
}

// Save flushes pending writes to disk.
func (r *CacheRepository) Save(ctx context.Context) error {
	return r.backend.Sync()
}

// Close releases the repository. The shared backend is closed separately.
func (r *CacheRepository) Close() error {
	return nil
}
