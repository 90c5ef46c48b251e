package badger

import (
	"context"
	"testing"
	"time"

	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) (storage.VectorRepository, storage.CacheRepository) {
	t.Helper()
	vectorRepo, cacheRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		vectorRepo.Close()
		cacheRepo.Close()
		backend.Close()
	})
	return vectorRepo, cacheRepo
}

func TestVectorRepositoryAddGet(t *testing.T) {
	ctx := context.Background()
	vectors, _ := newTestRepos(t)

	entry := &core.VectorEntry{
		Id:        "wohngeld",
		Vector:    []float32{1, 0, 0},
		Metadata:  map[string]string{"title": "Wohngeld"},
		IndexedAt: time.Now().UTC(),
	}
	require.NoError(t, vectors.Add(ctx, entry))

	got, err := vectors.Get(ctx, "wohngeld")
	require.NoError(t, err)
	assert.Equal(t, entry.Vector, got.Vector)
	assert.Equal(t, "Wohngeld", got.Metadata["title"])

	_, err = vectors.Get(ctx, "absent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVectorRepositoryDimensionality(t *testing.T) {
	ctx := context.Background()
	vectors, _ := newTestRepos(t)

	require.NoError(t, vectors.Add(ctx, &core.VectorEntry{Id: "a", Vector: []float32{1, 0, 0}}))

	err := vectors.Add(ctx, &core.VectorEntry{Id: "b", Vector: []float32{1, 0}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	err = vectors.Add(ctx, &core.VectorEntry{Id: "c"})
	assert.ErrorIs(t, err, storage.ErrEmptyVector)
}

func TestVectorRepositorySearch(t *testing.T) {
	ctx := context.Background()
	vectors, _ := newTestRepos(t)

	base := time.Now().UTC()
	add := func(id string, vec []float32, meta map[string]string, offset time.Duration) {
		require.NoError(t, vectors.Add(ctx, &core.VectorEntry{
			Id:        id,
			Vector:    vec,
			Metadata:  meta,
			IndexedAt: base.Add(offset),
		}))
	}

	add("x", []float32{1, 0, 0}, nil, 0)
	add("y", []float32{0, 1, 0}, nil, time.Second)
	add("diag", []float32{0.7, 0.7, 0}, nil, 2*time.Second)

	t.Run("ranks by cosine similarity", func(t *testing.T) {
		matches, err := vectors.Search(ctx, []float32{0.8, 0.6, 0}, storage.SearchOptions{TopK: 3})
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "diag", matches[0].Entry.Id)
		assert.Equal(t, "x", matches[1].Entry.Id)
		assert.Equal(t, "y", matches[2].Entry.Id)
	})

	t.Run("min similarity filters", func(t *testing.T) {
		matches, err := vectors.Search(ctx, []float32{1, 0, 0}, storage.SearchOptions{TopK: 10, MinSimilarity: 0.9})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "x", matches[0].Entry.Id)
	})

	t.Run("ties ordered by index time", func(t *testing.T) {
		add("dup1", []float32{0, 0, 1}, nil, 3*time.Second)
		add("dup2", []float32{0, 0, 1}, nil, 4*time.Second)

		matches, err := vectors.Search(ctx, []float32{0, 0, 1}, storage.SearchOptions{TopK: 2})
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "dup1", matches[0].Entry.Id)
		assert.Equal(t, "dup2", matches[1].Entry.Id)
	})

	t.Run("metadata filter", func(t *testing.T) {
		add("typed", []float32{1, 0, 0}, map[string]string{"type": "faq"}, 5*time.Second)

		matches, err := vectors.Search(ctx, []float32{1, 0, 0}, storage.SearchOptions{
			TopK:   10,
			Filter: map[string]string{"type": "faq"},
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "typed", matches[0].Entry.Id)
	})
}

func TestVectorRepositoryRemoveCount(t *testing.T) {
	ctx := context.Background()
	vectors, _ := newTestRepos(t)

	require.NoError(t, vectors.Add(ctx, &core.VectorEntry{Id: "a", Vector: []float32{1, 0}}))
	require.NoError(t, vectors.Add(ctx, &core.VectorEntry{Id: "b", Vector: []float32{0, 1}}))

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, vectors.Remove(ctx, "a"))
	require.NoError(t, vectors.Remove(ctx, "missing"))

	count, err = vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCacheRepository(t *testing.T) {
	ctx := context.Background()
	_, cache := newTestRepos(t)

	record := &core.CacheRecord{
		Key:         core.CacheKeyFor("embeddinggemma", "Wohngeld"),
		Vector:      []float32{0.1, 0.2},
		TextSnippet: "Wohngeld",
		Model:       "embeddinggemma",
		CreatedAt:   time.Now().UTC(),
	}

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, record))

		got, err := cache.Get(ctx, record.Key)
		require.NoError(t, err)
		assert.Equal(t, record.Vector, got.Vector)
		assert.Equal(t, record.Model, got.Model)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := cache.Get(ctx, "absent")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, cache.Delete(ctx, record.Key))
		require.NoError(t, cache.Delete(ctx, record.Key))

		_, err := cache.Get(ctx, record.Key)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("clear empties the cache", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, record))
		require.NoError(t, cache.Clear(ctx))

		count, err := cache.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestCacheRepositoryTTL(t *testing.T) {
	ctx := context.Background()
	_, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	t.Run("sub-second ttl rounds up to badger granularity", func(t *testing.T) {
		cache := NewCacheRepository(backend, WithTTL(50*time.Millisecond))
		assert.Equal(t, time.Second, cache.ttl)
	})

	t.Run("expired records vanish", func(t *testing.T) {
		// Expiry timestamps are whole seconds, so a 2s TTL guarantees the
		// record is still live immediately after the write.
		cache := NewCacheRepository(backend, WithTTL(2*time.Second))
		require.NoError(t, cache.Put(ctx, &core.CacheRecord{
			Key:       "short-lived",
			Vector:    []float32{1},
			Model:     "embeddinggemma",
			CreatedAt: time.Now().UTC(),
		}))

		_, err := cache.Get(ctx, "short-lived")
		require.NoError(t, err)

		time.Sleep(2500 * time.Millisecond)

		_, err = cache.Get(ctx, "short-lived")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
