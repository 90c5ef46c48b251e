package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addEntry(t *testing.T, s *VectorStore, id string, vector []float32, metadata map[string]string) {
	t.Helper()
	err := s.Add(context.Background(), &core.VectorEntry{
		Id:        id,
		Vector:    vector,
		Metadata:  metadata,
		IndexedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestVectorStoreAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		s := NewVectorStore("")
		addEntry(t, s, "a", []float32{1, 0, 0}, map[string]string{"title": "A"})

		entry, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, entry.Vector)
		assert.Equal(t, "A", entry.Metadata["title"])
	})

	t.Run("overwrite same id", func(t *testing.T) {
		s := NewVectorStore("")
		addEntry(t, s, "a", []float32{1, 0, 0}, nil)
		addEntry(t, s, "a", []float32{0, 1, 0}, nil)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		entry, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 1, 0}, entry.Vector)
	})

	t.Run("dimension mismatch rejected", func(t *testing.T) {
		s := NewVectorStore("")
		addEntry(t, s, "a", []float32{1, 0, 0}, nil)

		err := s.Add(ctx, &core.VectorEntry{Id: "b", Vector: []float32{1, 0}})
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

		// The store itself stays usable
		addEntry(t, s, "c", []float32{0, 0, 1}, nil)
	})

	t.Run("empty vector rejected", func(t *testing.T) {
		s := NewVectorStore("")
		err := s.Add(ctx, &core.VectorEntry{Id: "a"})
		assert.ErrorIs(t, err, storage.ErrEmptyVector)
	})
}

func TestVectorStoreRemove(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore("")
	addEntry(t, s, "a", []float32{1, 0}, nil)

	require.NoError(t, s.Remove(ctx, "a"))
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Removing an absent id is a no-op
	assert.NoError(t, s.Remove(ctx, "missing"))
}

func TestVectorStoreSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks by cosine similarity", func(t *testing.T) {
		s := NewVectorStore("")
		addEntry(t, s, "x", []float32{1, 0, 0}, map[string]string{"title": "X"})
		addEntry(t, s, "y", []float32{0, 1, 0}, map[string]string{"title": "Y"})
		addEntry(t, s, "diag", []float32{0.7, 0.7, 0}, map[string]string{"title": "Diag"})

		matches, err := s.Search(ctx, []float32{0.8, 0.6, 0}, storage.SearchOptions{TopK: 3})
		require.NoError(t, err)
		require.Len(t, matches, 3)

		assert.Equal(t, "diag", matches[0].Entry.Id)
		assert.Equal(t, "x", matches[1].Entry.Id)
		assert.Equal(t, "y", matches[2].Entry.Id)
	})

	t.Run("honors top k", func(t *testing.T) {
		s := NewVectorStore("")
		for _, id := range []string{"a", "b", "c", "d"} {
			addEntry(t, s, id, []float32{1, 0}, nil)
		}

		matches, err := s.Search(ctx, []float32{1, 0}, storage.SearchOptions{TopK: 2})
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("honors min similarity", func(t *testing.T) {
		s := NewVectorStore("")
		addEntry(t, s, "close", []float32{1, 0}, nil)
		addEntry(t, s, "far", []float32{0, 1}, nil)

		matches, err := s.Search(ctx, []float32{1, 0}, storage.SearchOptions{TopK: 10, MinSimilarity: 0.5})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "close", matches[0].Entry.Id)
		assert.GreaterOrEqual(t, matches[0].Similarity, float32(0.5))
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		s := NewVectorStore("")
		addEntry(t, s, "first", []float32{1, 0}, nil)
		addEntry(t, s, "second", []float32{1, 0}, nil)
		addEntry(t, s, "third", []float32{1, 0}, nil)

		matches, err := s.Search(ctx, []float32{1, 0}, storage.SearchOptions{TopK: 3})
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "first", matches[0].Entry.Id)
		assert.Equal(t, "second", matches[1].Entry.Id)
		assert.Equal(t, "third", matches[2].Entry.Id)
	})

	t.Run("metadata filter is exact match", func(t *testing.T) {
		s := NewVectorStore("")
		addEntry(t, s, "a", []float32{1, 0}, map[string]string{"type": "benefit"})
		addEntry(t, s, "b", []float32{1, 0}, map[string]string{"type": "faq"})

		matches, err := s.Search(ctx, []float32{1, 0}, storage.SearchOptions{
			TopK:   10,
			Filter: map[string]string{"type": "benefit"},
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "a", matches[0].Entry.Id)
	})

	t.Run("zero vector query matches nothing above zero", func(t *testing.T) {
		s := NewVectorStore("")
		addEntry(t, s, "a", []float32{1, 0}, nil)

		matches, err := s.Search(ctx, []float32{0, 0}, storage.SearchOptions{TopK: 10, MinSimilarity: 0.01})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestVectorStorePersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("save and load round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.json")

		s := NewVectorStore(path)
		addEntry(t, s, "a", []float32{1, 0}, map[string]string{"title": "A"})
		addEntry(t, s, "b", []float32{0, 1}, map[string]string{"title": "B"})
		require.NoError(t, s.Save(ctx))

		loaded := NewVectorStore(path)
		require.NoError(t, loaded.Load(ctx))

		count, err := loaded.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		entry, err := loaded.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "A", entry.Metadata["title"])

		// Dimensionality is re-established from the loaded entries
		err = loaded.Add(ctx, &core.VectorEntry{Id: "c", Vector: []float32{1, 2, 3}})
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})

	t.Run("missing file starts empty", func(t *testing.T) {
		s := NewVectorStore(filepath.Join(t.TempDir(), "absent.json"))
		require.NoError(t, s.Load(ctx))

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("corrupt file starts empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		s := NewVectorStore(path)
		require.NoError(t, s.Load(ctx))

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("memory-only store ignores save and load", func(t *testing.T) {
		s := NewVectorStore("")
		addEntry(t, s, "a", []float32{1, 0}, nil)
		require.NoError(t, s.Save(ctx))
		require.NoError(t, s.Load(ctx))
	})
}

func TestVectorStoreClosed(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore("")
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Add(ctx, &core.VectorEntry{Id: "a", Vector: []float32{1}}), storage.ErrStorageClosed)
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = s.Search(ctx, []float32{1}, storage.SearchOptions{})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
