package jsonfile

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/storage"
)

// CacheStore is an in-memory embedding cache persisted as a single JSON
// document mapping cache keys to records.
type CacheStore struct {
	path   string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	records map[string]*core.CacheRecord
	closed  bool
}

// CacheOption configures a CacheStore.
type CacheOption func(*CacheStore)

// WithCacheTTL sets the record time-to-live. Records older than the TTL are
// treated as absent. Zero (the default) disables expiry.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(s *CacheStore) {
		s.ttl = ttl
	}
}

// WithCacheLogger sets a custom logger.
// Default is slog.Default().
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(s *CacheStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// withCacheClock overrides the time source, for expiry tests.
func withCacheClock(now func() time.Time) CacheOption {
	return func(s *CacheStore) {
		s.now = now
	}
}

// NewCacheStore creates a cache store backed by the JSON file at path.
// An empty path keeps the cache memory-only: Load and Save become no-ops.
func NewCacheStore(path string, opts ...CacheOption) *CacheStore {
	s := &CacheStore{
		path:    path,
		logger:  slog.Default().With("component", "jsonfile-cache"),
		now:     time.Now,
		records: make(map[string]*core.CacheRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.CacheRepository = (*CacheStore)(nil)

// Get retrieves a record by key. Expired records are treated as absent.
func (s *CacheStore) Get(ctx context.Context, key string) (*core.CacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	record, ok := s.records[key]
	if !ok || s.expired(record) {
		return nil, storage.ErrNotFound
	}
	return record, nil
}

// Put inserts or overwrites a record.
func (s *CacheStore) Put(ctx context.Context, record *core.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}
	s.records[record.Key] = record
	return nil
}

// Delete removes a record by key. Deleting an absent key is a no-op.
func (s *CacheStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}
	delete(s.records, key)
	return nil
}

// Clear removes all records.
func (s *CacheStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}
	s.records = make(map[string]*core.CacheRecord)
	return nil
}

// Count returns the number of live (non-expired) records.
func (s *CacheStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, storage.ErrStorageClosed
	}
	count := 0
	for _, record := range s.records {
		if !s.expired(record) {
			count++
		}
	}
	return count, nil
}

// Load reads the backing file into memory. A missing or corrupt cache file
// is recovered by starting empty; the condition is logged, never fatal.
func (s *CacheStore) Load(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("cache file not found, starting empty", "path", s.path)
			return nil
		}
		s.logger.Warn("cache file unreadable, starting empty", "path", s.path, "err", err)
		return nil
	}

	var records map[string]*core.CacheRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("cache file corrupt, starting empty", "path", s.path, "err", err)
		return nil
	}

	s.mu.Lock()
	s.records = records
	if s.records == nil {
		s.records = make(map[string]*core.CacheRecord)
	}
	s.mu.Unlock()

	s.logger.Debug("loaded embedding cache", "records", len(records))
	return nil
}

// Save rewrites the backing file wholesale and flushes it to disk.
// Expired records are dropped on the way out.
func (s *CacheStore) Save(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	live := make(map[string]*core.CacheRecord, len(s.records))
	for key, record := range s.records {
		if !s.expired(record) {
			live[key] = record
		}
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(live, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(s.path, data)
}

// Close marks the store closed. Pending state is not saved implicitly.
func (s *CacheStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *CacheStore) expired(record *core.CacheRecord) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(record.CreatedAt) > s.ttl
}
