package badger

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/storage"
)

// VectorRepository implements storage.VectorRepository over BadgerDB.
// Entries are MUS-encoded; the established dimensionality is persisted under
// a meta key so it survives restarts.
type VectorRepository struct {
	backend *Backend
	logger  *slog.Logger

	mu  sync.Mutex
	dim int
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a vector repository on the given backend.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	r := &VectorRepository{
		backend: backend,
		logger:  slog.Default().With("component", "badger-vectorstore"),
	}

	// Restore the established dimensionality, if any.
	err := backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(vectorDimKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			dim, err := strconv.Atoi(string(val))
			if err != nil {
				r.logger.Warn("dimension meta key corrupt, re-establishing from next insert", "err", err)
				return nil
			}
			r.dim = dim
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Add inserts or overwrites an entry, enforcing the store dimensionality.
func (r *VectorRepository) Add(ctx context.Context, entry *core.VectorEntry) error {
	if len(entry.Vector) == 0 {
		return storage.ErrEmptyVector
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	establish := false
	if r.dim == 0 {
		establish = true
	} else if len(entry.Vector) != r.dim {
		return storage.ErrDimensionMismatch
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if establish {
			dimVal := strconv.Itoa(len(entry.Vector))
			if err := tx.Set([]byte(vectorDimKey), []byte(dimVal)); err != nil {
				return err
			}
		}
		return tx.Set(makeVectorKey(entry.Id), storage.MarshalVectorEntry(entry))
	}, true)
	if err != nil {
		return err
	}

	if establish {
		r.dim = len(entry.Vector)
	}
	return nil
}

// Get retrieves an entry by id.
func (r *VectorRepository) Get(ctx context.Context, id string) (*core.VectorEntry, error) {
	var entry *core.VectorEntry

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			entry, err = storage.UnmarshalVectorEntry(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Remove deletes an entry by id. Removing an absent id is a no-op.
func (r *VectorRepository) Remove(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Delete(makeVectorKey(id))
	}, true)
}

// Search scans all entries, applies the metadata filter, and scores the rest
// against the query vector. Ordering is similarity descending; ties are
// broken by index time, then id, which reproduces insertion order for
// entries indexed in sequence.
func (r *VectorRepository) Search(ctx context.Context, query []float32, opts storage.SearchOptions) ([]*core.Match, error) {
	var matches []*core.Match

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(vectorEntryPrefix)
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.VectorEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalVectorEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry == nil || len(entry.Vector) == 0 {
				continue
			}
			if !matchesFilter(entry.Metadata, opts.Filter) {
				continue
			}

			similarity := core.CosineSimilarity(query, entry.Vector)
			if similarity < opts.MinSimilarity {
				continue
			}
			matches = append(matches, &core.Match{Entry: entry, Similarity: similarity})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if !matches[i].Entry.IndexedAt.Equal(matches[j].Entry.IndexedAt) {
			return matches[i].Entry.IndexedAt.Before(matches[j].Entry.IndexedAt)
		}
		return matches[i].Entry.Id < matches[j].Entry.Id
	})

	if opts.TopK > 0 && len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}

	return matches, nil
}

// Count returns the number of stored entries.
func (r *VectorRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(vectorEntryPrefix)
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
func (r *VectorRepository) Load(ctx context.Context) error {
	return nil
}

// Save flushes pending writes to disk.
func (r *VectorRepository) Save(ctx context.Context) error {
	return r.backend.Sync()
}

// Close releases the repository. The shared backend is closed separately.
func (r *VectorRepository) Close() error {
	return nil
}

// matchesFilter reports whether metadata satisfies every key/value pair in
// filter exactly.
func matchesFilter(metadata, filter map[string]string) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}
