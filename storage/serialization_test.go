package storage

import (
	"testing"
	"time"

	"github.com/sozialkompass/semcore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorEntrySerialization(t *testing.T) {
	indexedAt := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	entry := &core.VectorEntry{
		Id:     "wohngeld",
		Vector: []float32{0.25, -0.5, 1.0},
		Metadata: map[string]string{
			"title": "Wohngeld",
			"type":  "benefit",
		},
		IndexedAt: indexedAt,
	}

	data := MarshalVectorEntry(entry)
	got, err := UnmarshalVectorEntry(data)
	require.NoError(t, err)

	assert.Equal(t, entry.Id, got.Id)
	assert.Equal(t, entry.Vector, got.Vector)
	assert.Equal(t, entry.Metadata, got.Metadata)
	assert.True(t, got.IndexedAt.Equal(indexedAt))
}

func TestVectorEntrySerializationEmptyFields(t *testing.T) {
	entry := &core.VectorEntry{Id: "bare", Vector: []float32{1}}

	got, err := UnmarshalVectorEntry(MarshalVectorEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, "bare", got.Id)
	assert.Empty(t, got.Metadata)
}

func TestCacheRecordSerialization(t *testing.T) {
	createdAt := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	record := &core.CacheRecord{
		Key:         core.CacheKeyFor("embeddinggemma", "Wohngeld beantragen"),
		Vector:      []float32{0.1, 0.2, 0.3},
		TextSnippet: "Wohngeld beantragen",
		Model:       "embeddinggemma",
		CreatedAt:   createdAt,
	}

	got, err := UnmarshalCacheRecord(MarshalCacheRecord(record))
	require.NoError(t, err)

	assert.Equal(t, record.Key, got.Key)
	assert.Equal(t, record.Vector, got.Vector)
	assert.Equal(t, record.TextSnippet, got.TextSnippet)
	assert.Equal(t, record.Model, got.Model)
	assert.True(t, got.CreatedAt.Equal(createdAt))
}

func TestUnmarshalTruncatedData(t *testing.T) {
	entry := &core.VectorEntry{Id: "x", Vector: []float32{1, 2, 3}}
	data := MarshalVectorEntry(entry)

	_, err := UnmarshalVectorEntry(data[:len(data)/2])
	assert.Error(t, err)
}
