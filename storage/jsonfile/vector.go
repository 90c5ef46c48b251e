package jsonfile

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/storage"
)

// VectorStore is an in-memory vector index persisted as a single JSON
// document mapping ids to vectors and metadata. The whole file is loaded at
// startup and rewritten wholesale on save.
type VectorStore struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*core.VectorEntry
	seqs    map[string]uint64 // insertion sequence, for stable tie-breaking
	nextSeq uint64
	dim     int
	closed  bool
}

// persistedVectorEntry is the on-disk shape of one index entry.
type persistedVectorEntry struct {
	Vector    []float32         `json:"vector"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	IndexedAt time.Time         `json:"indexed_at"`
	Seq       uint64            `json:"seq"`
}

// VectorOption configures a VectorStore.
type VectorOption func(*VectorStore)

// WithVectorLogger sets a custom logger.
// Default is slog.Default().
func WithVectorLogger(logger *slog.Logger) VectorOption {
	return func(s *VectorStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewVectorStore creates a vector store backed by the JSON file at path.
// An empty path keeps the store memory-only: Load and Save become no-ops.
func NewVectorStore(path string, opts ...VectorOption) *VectorStore {
	s := &VectorStore{
		path:    path,
		logger:  slog.Default().With("component", "jsonfile-vectorstore"),
		entries: make(map[string]*core.VectorEntry),
		seqs:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.VectorRepository = (*VectorStore)(nil)

// Add inserts or overwrites an entry. The store's dimensionality is
// established by the first insert; later vectors of a different length are
// rejected with ErrDimensionMismatch. Overwriting keeps the original
// insertion position.
func (s *VectorStore) Add(ctx context.Context, entry *core.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}
	if len(entry.Vector) == 0 {
		return storage.ErrEmptyVector
	}
	if s.dim == 0 {
		s.dim = len(entry.Vector)
	} else if len(entry.Vector) != s.dim {
		return storage.ErrDimensionMismatch
	}

	if _, exists := s.entries[entry.Id]; !exists {
		s.seqs[entry.Id] = s.nextSeq
		s.nextSeq++
	}
	s.entries[entry.Id] = entry
	return nil
}

// Get retrieves an entry by id.
func (s *VectorStore) Get(ctx context.Context, id string) (*core.VectorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	entry, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return entry, nil
}

// Remove deletes an entry by id. Removing an absent id is a no-op.
func (s *VectorStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}
	delete(s.entries, id)
	delete(s.seqs, id)
	return nil
}

// Search scans every stored entry whose metadata satisfies opts.Filter and
// scores it against the query vector. Results are ordered by similarity
// descending; ties keep insertion order. opts.TopK <= 0 means unlimited.
func (s *VectorStore) Search(ctx context.Context, query []float32, opts storage.SearchOptions) ([]*core.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	type scored struct {
		match *core.Match
		seq   uint64
	}

	candidates := make([]scored, 0, len(s.entries))
	for id, entry := range s.entries {
		if !matchesFilter(entry.Metadata, opts.Filter) {
			continue
		}
		similarity := core.CosineSimilarity(query, entry.Vector)
		if similarity < opts.MinSimilarity {
			continue
		}
		candidates = append(candidates, scored{
			match: &core.Match{Entry: entry, Similarity: similarity},
			seq:   s.seqs[id],
		})
	}

	// Order by insertion first so the similarity sort's stability yields
	// insertion-order tie-breaking.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].seq < candidates[j].seq
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].match.Similarity > candidates[j].match.Similarity
	})

	if opts.TopK > 0 && len(candidates) > opts.TopK {
		candidates = candidates[:opts.TopK]
	}

	matches := make([]*core.Match, len(candidates))
	for i, c := range candidates {
		matches[i] = c.match
	}
	return matches, nil
}

// Count returns the number of stored entries.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, storage.ErrStorageClosed
	}
	return len(s.entries), nil
}

// Load reads the backing file into memory. A missing or unreadable file is
// not an error: the store starts empty and the condition is logged.
func (s *VectorStore) Load(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("vector index file not found, starting empty", "path", s.path)
			return nil
		}
		s.logger.Warn("vector index file unreadable, starting empty", "path", s.path, "err", err)
		return nil
	}

	var persisted map[string]persistedVectorEntry
	if err := json.Unmarshal(data, &persisted); err != nil {
		s.logger.Warn("vector index file corrupt, starting empty", "path", s.path, "err", err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*core.VectorEntry, len(persisted))
	s.seqs = make(map[string]uint64, len(persisted))
	s.dim = 0
	s.nextSeq = 0

	// Restore in persisted insertion order so sequence numbers stay stable.
	ids := make([]string, 0, len(persisted))
	for id := range persisted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return persisted[ids[i]].Seq < persisted[ids[j]].Seq
	})

	for _, id := range ids {
		p := persisted[id]
		if len(p.Vector) == 0 {
			s.logger.Warn("skipping persisted entry without vector", "id", id)
			continue
		}
		if s.dim == 0 {
			s.dim = len(p.Vector)
		} else if len(p.Vector) != s.dim {
			s.logger.Warn("skipping persisted entry with mismatched dimension",
				"id", id, "want", s.dim, "got", len(p.Vector))
			continue
		}
		s.entries[id] = &core.VectorEntry{
			Id:        id,
			Vector:    p.Vector,
			Metadata:  p.Metadata,
			IndexedAt: p.IndexedAt,
		}
		s.seqs[id] = s.nextSeq
		s.nextSeq++
	}

	s.logger.Debug("loaded vector index", "entries", len(s.entries), "dimension", s.dim)
	return nil
}

// Save rewrites the backing file wholesale and flushes it to disk. The file
// is written to a temporary sibling and renamed so a crash mid-save never
// leaves a truncated index.
func (s *VectorStore) Save(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	persisted := make(map[string]persistedVectorEntry, len(s.entries))
	for id, entry := range s.entries {
		persisted[id] = persistedVectorEntry{
			Vector:    entry.Vector,
			Metadata:  entry.Metadata,
			IndexedAt: entry.IndexedAt,
			Seq:       s.seqs[id],
		}
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(s.path, data)
}

// Close marks the store closed. Pending state is not saved implicitly.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
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

// writeFileAtomic writes data to path via a temporary file, fsyncs, and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
