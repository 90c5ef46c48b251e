package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyFor(t *testing.T) {
	t.Run("deterministic for identical input", func(t *testing.T) {
		k1 := CacheKeyFor("embeddinggemma", "Wohngeld beantragen")
		k2 := CacheKeyFor("embeddinggemma", "Wohngeld beantragen")
		assert.Equal(t, k1, k2)
	})

	t.Run("whitespace is normalized before hashing", func(t *testing.T) {
		k1 := CacheKeyFor("embeddinggemma", "Wohngeld")
		k2 := CacheKeyFor("embeddinggemma", "  Wohngeld  ")
		assert.Equal(t, k1, k2)
	})

	t.Run("different model yields different key", func(t *testing.T) {
		k1 := CacheKeyFor("model-a", "Wohngeld")
		k2 := CacheKeyFor("model-b", "Wohngeld")
		assert.NotEqual(t, k1, k2)
	})

	t.Run("different text yields different key", func(t *testing.T) {
		k1 := CacheKeyFor("model-a", "Wohngeld")
		k2 := CacheKeyFor("model-a", "Kindergeld")
		assert.NotEqual(t, k1, k2)
	})

	t.Run("model and text boundaries are unambiguous", func(t *testing.T) {
		// "ab" + "c" must not collide with "a" + "bc"
		k1 := CacheKeyFor("ab", "c")
		k2 := CacheKeyFor("a", "bc")
		assert.NotEqual(t, k1, k2)
	})
}

func TestSnippet(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "kurz", Snippet("kurz"))
	})

	t.Run("long text truncated", func(t *testing.T) {
		long := strings.Repeat("a", 200)
		got := Snippet(long)
		assert.Len(t, got, snippetLength)
	})

	t.Run("multibyte text truncated at rune boundary", func(t *testing.T) {
		long := strings.Repeat("ü", 200)
		got := Snippet(long)
		assert.Equal(t, snippetLength, len([]rune(got)))
	})
}

func TestValidateEntry(t *testing.T) {
	t.Run("valid entry", func(t *testing.T) {
		err := ValidateEntry(&Entry{Id: "b1", Title: "Wohngeld"})
		assert.NoError(t, err)
	})

	t.Run("nil entry", func(t *testing.T) {
		err := ValidateEntry(nil)
		assert.ErrorIs(t, err, ErrInvalidEntry)
	})

	t.Run("missing id", func(t *testing.T) {
		err := ValidateEntry(&Entry{Title: "Wohngeld"})
		assert.ErrorIs(t, err, ErrMissingID)
	})

	t.Run("whitespace id", func(t *testing.T) {
		err := ValidateEntry(&Entry{Id: "   "})
		assert.ErrorIs(t, err, ErrMissingID)
	})
}

func TestEntryHasText(t *testing.T) {
	assert.True(t, (&Entry{Title: "Bürgergeld"}).HasText())
	assert.True(t, (&Entry{Description: "Finanzielle Unterstützung"}).HasText())
	assert.True(t, (&Entry{Content: "Voller Text"}).HasText())
	assert.False(t, (&Entry{Id: "x"}).HasText())
	assert.False(t, (&Entry{Title: "   "}).HasText())
}
