package search

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sozialkompass/semcore/ai/mock"
	"github.com/sozialkompass/semcore/core"
	"github.com/sozialkompass/semcore/embedding"
	"github.com/sozialkompass/semcore/storage"
	"github.com/sozialkompass/semcore/storage/jsonfile"
)

// topicVector maps text onto housing/work/family axes so tests get
// predictable similarity orderings without a real model.
func topicVector(text string) []float32 {
	lowered := strings.ToLower(text)
	v := []float32{0, 0, 0, 0.1}

	for _, kw := range []string{"wohngeld", "miete", "wohnkosten", "wohnen", "zuschuss"} {
		if strings.Contains(lowered, kw) {
			v[0]++
		}
	}
	for _, kw := range []string{"bürgergeld", "arbeitslos", "jobcenter", "grundsicherung", "finanzielle"} {
		if strings.Contains(lowered, kw) {
			v[1]++
		}
	}
	for _, kw := range []string{"kindergeld", "kinder", "familie", "eltern"} {
		if strings.Contains(lowered, kw) {
			v[2]++
		}
	}

	return core.NormalizeVector(v)
}

func newOrchestrator(t *testing.T, opts ...Option) (*Orchestrator, storage.VectorRepository) {
	t.Helper()

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return topicVector(text), nil
	}
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = topicVector(text)
		}
		return vectors, nil
	}

	svc, err := embedding.NewService(embedder, jsonfile.NewCacheStore(""), "embeddinggemma")
	require.NoError(t, err)

	vectors := jsonfile.NewVectorStore("")
	o, err := NewOrchestrator(vectors, svc, opts...)
	require.NoError(t, err)
	t.Cleanup(o.Release)

	return o, vectors
}

func TestIndexEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("stores vector with display metadata", func(t *testing.T) {
		o, vectors := newOrchestrator(t)

		err := o.IndexEntry(ctx, &core.Entry{
			Id:          "wohngeld",
			Title:       "Wohngeld",
			Description: "Zuschuss zu den Wohnkosten für Haushalte mit geringem Einkommen",
			Type:        "benefit",
			URL:         "https://example.org/wohngeld",
		})
		require.NoError(t, err)

		stored, err := vectors.Get(ctx, "wohngeld")
		require.NoError(t, err)
		assert.Equal(t, "Wohngeld", stored.Metadata["title"])
		assert.Equal(t, "benefit", stored.Metadata["type"])
		assert.Equal(t, "https://example.org/wohngeld", stored.Metadata["url"])
		assert.NotEmpty(t, stored.Metadata["description"])
		assert.False(t, stored.IndexedAt.IsZero())
	})

	t.Run("missing id", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		err := o.IndexEntry(ctx, &core.Entry{Title: "No id"})
		assert.ErrorIs(t, err, ErrMissingID)
	})

	t.Run("no extractable text", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		err := o.IndexEntry(ctx, &core.Entry{Id: "empty"})
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("short description falls back to content", func(t *testing.T) {
		o, vectors := newOrchestrator(t)

		err := o.IndexEntry(ctx, &core.Entry{
			Id:          "kindergeld",
			Title:       "Kindergeld",
			Description: "Geld",
			Content:     "Monatliche Leistung für Eltern mit Kindern",
		})
		require.NoError(t, err)

		stored, err := vectors.Get(ctx, "kindergeld")
		require.NoError(t, err)
		// The content keyword reached the embedding, so the family axis is set.
		assert.Positive(t, stored.Vector[2])
	})
}

func TestIndexAll(t *testing.T) {
	ctx := context.Background()

	t.Run("counts failures without aborting", func(t *testing.T) {
		o, _ := newOrchestrator(t)

		entries := make([]*core.Entry, 0, 10)
		for i := 0; i < 8; i++ {
			entries = append(entries, &core.Entry{
				Id:    "entry-" + string(rune('a'+i)),
				Title: "Wohngeld Variante " + string(rune('a'+i)),
			})
		}
		// Two entries with no extractable text
		entries = append(entries, &core.Entry{Id: "blank-1"}, &core.Entry{Id: "blank-2"})

		report, err := o.IndexAll(ctx, entries, nil)
		require.NoError(t, err)
		assert.Equal(t, 8, report.Success)
		assert.Equal(t, 2, report.Failed)
		assert.Equal(t, 10, report.Total)
	})

	t.Run("invokes progress per stored vector", func(t *testing.T) {
		o, _ := newOrchestrator(t)

		var calls int
		var lastStored, lastTotal int
		report, err := o.IndexAll(ctx, []*core.Entry{
			{Id: "a", Title: "Wohngeld"},
			{Id: "b", Title: "Bürgergeld"},
		}, func(stored, total int) {
			calls++
			lastStored, lastTotal = stored, total
		})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Success)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 2, lastStored)
		assert.Equal(t, 2, lastTotal)
	})

	t.Run("missing id counts as failed", func(t *testing.T) {
		o, _ := newOrchestrator(t)

		report, err := o.IndexAll(ctx, []*core.Entry{
			{Id: "", Title: "Anonymous"},
			{Id: "ok", Title: "Wohngeld"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Success)
		assert.Equal(t, 1, report.Failed)
	})

	t.Run("empty input yields empty report", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		report, err := o.IndexAll(ctx, nil, nil)
		require.NoError(t, err)
		assert.Zero(t, report.Total)
	})

	t.Run("counts unembeddable entries under a concurrent pool", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			vectors := make([][]float32, len(texts))
			for i, text := range texts {
				if strings.Contains(text, "kaputt") {
					continue
				}
				vectors[i] = topicVector(text)
			}
			return vectors, nil
		}

		svc, err := embedding.NewService(embedder, jsonfile.NewCacheStore(""), "embeddinggemma")
		require.NoError(t, err)
		o, err := NewOrchestrator(jsonfile.NewVectorStore(""), svc, WithPoolSize(4))
		require.NoError(t, err)
		t.Cleanup(o.Release)

		// Nil vectors interleaved with stores so the failure counter and the
		// pool tasks update the report at the same time.
		entries := make([]*core.Entry, 0, 12)
		for i := 0; i < 12; i++ {
			title := fmt.Sprintf("Wohngeld Variante %d", i)
			if i == 3 || i == 7 {
				title = fmt.Sprintf("kaputt %d", i)
			}
			entries = append(entries, &core.Entry{
				Id:    fmt.Sprintf("entry-%d", i),
				Title: title,
			})
		}

		report, err := o.IndexAll(ctx, entries, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, report.Success)
		assert.Equal(t, 2, report.Failed)
		assert.Equal(t, 12, report.Total)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, o *Orchestrator) {
		_, err := o.IndexAll(ctx, []*core.Entry{
			{Id: "b1", Title: "Bürgergeld", Description: "Finanzielle Unterstützung zur Grundsicherung"},
			{Id: "b2", Title: "Wohngeld", Description: "Zuschuss zu Wohnkosten"},
			{Id: "b3", Title: "Kindergeld", Description: "Leistung für Familien mit Kindern"},
		}, nil)
		require.NoError(t, err)
	}

	t.Run("ranks housing query above unrelated benefits", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		seed(t, o)

		results, err := o.Search(ctx, Query{
			Text:             "Hilfe bei der Miete",
			TopK:             5,
			MinSimilaritySet: true,
		})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "b2", results[0].Id)

		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("never exceeds top k and honors the floor", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		seed(t, o)

		results, err := o.Search(ctx, Query{
			Text:             "Wohngeld Zuschuss",
			TopK:             2,
			MinSimilarity:    0.2,
			MinSimilaritySet: true,
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), 2)
		for _, result := range results {
			assert.GreaterOrEqual(t, result.Similarity, float32(0.2))
		}
	})

	t.Run("similarity clamped to unit range", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		seed(t, o)

		results, err := o.Search(ctx, Query{Text: "Wohngeld", MinSimilaritySet: true})
		require.NoError(t, err)
		for _, result := range results {
			assert.GreaterOrEqual(t, result.Similarity, float32(0))
			assert.LessOrEqual(t, result.Similarity, float32(1))
		}
	})

	t.Run("metadata filter restricts results", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		require.NoError(t, o.IndexEntry(ctx, &core.Entry{
			Id: "faq-1", Title: "Wohngeld FAQ", Type: "faq",
		}))
		require.NoError(t, o.IndexEntry(ctx, &core.Entry{
			Id: "ben-1", Title: "Wohngeld", Type: "benefit",
		}))

		results, err := o.Search(ctx, Query{
			Text:             "Wohngeld",
			MinSimilaritySet: true,
			Filter:           map[string]string{"type": "faq"},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "faq-1", results[0].Id)
	})

	t.Run("empty query fails", func(t *testing.T) {
		o, _ := newOrchestrator(t)
		_, err := o.Search(ctx, Query{Text: "   "})
		assert.ErrorIs(t, err, embedding.ErrEmptyInput)
	})
}

func TestSearchRerank(t *testing.T) {
	ctx := context.Background()
	o, _ := newOrchestrator(t)

	_, err := o.IndexAll(ctx, []*core.Entry{
		{Id: "b1", Title: "Bürgergeld", Description: "Finanzielle Unterstützung zur Grundsicherung"},
		{Id: "b2", Title: "Wohngeld", Description: "Zuschuss zu Wohnkosten bei geringem Einkommen"},
	}, nil)
	require.NoError(t, err)

	t.Run("reranking preserves membership", func(t *testing.T) {
		plain, err := o.Search(ctx, Query{Text: "Wohngeld Miete Zuschuss", TopK: 10, MinSimilaritySet: true})
		require.NoError(t, err)

		reranked, err := o.Search(ctx, Query{Text: "Wohngeld Miete Zuschuss", TopK: 10, MinSimilaritySet: true, Rerank: true})
		require.NoError(t, err)

		ids := func(results []*Result) map[string]bool {
			set := make(map[string]bool, len(results))
			for _, r := range results {
				set[r.Id] = true
			}
			return set
		}
		assert.Equal(t, ids(plain), ids(reranked))
	})

	t.Run("term matches boost the housing entry", func(t *testing.T) {
		results, err := o.Search(ctx, Query{Text: "Wohngeld Miete", TopK: 5, MinSimilaritySet: true, Rerank: true})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "b2", results[0].Id)
	})
}

func TestFindSimilar(t *testing.T) {
	ctx := context.Background()
	o, _ := newOrchestrator(t)

	_, err := o.IndexAll(ctx, []*core.Entry{
		{Id: "b1", Title: "Wohngeld", Description: "Zuschuss zu Wohnkosten"},
		{Id: "b2", Title: "Mietzuschuss", Description: "Hilfe bei der Miete und Wohnkosten"},
		{Id: "b3", Title: "Kindergeld", Description: "Leistung für Familien"},
	}, nil)
	require.NoError(t, err)

	t.Run("excludes the entry itself", func(t *testing.T) {
		results, err := o.FindSimilar(ctx, "b1", 5)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, result := range results {
			assert.NotEqual(t, "b1", result.Id)
		}
	})

	t.Run("closest neighbor first", func(t *testing.T) {
		results, err := o.FindSimilar(ctx, "b1", 5)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "b2", results[0].Id)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := o.FindSimilar(ctx, "ghost", 5)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
