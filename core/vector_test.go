package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("self similarity is 1", func(t *testing.T) {
		vectors := [][]float32{
			{1, 0, 0},
			{0.3, 0.4, 0.5},
			{-1, 2, -3, 4},
		}
		for _, v := range vectors {
			assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a := []float32{0.8, 0.6, 0}
		b := []float32{0.1, 0.9, 0.2}
		assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-6)
	})

	t.Run("orthogonal vectors score 0", func(t *testing.T) {
		a := []float32{1, 0, 0}
		b := []float32{0, 1, 0}
		assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-6)
	})

	t.Run("opposite vectors score -1", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{-1, 0}
		assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-6)
	})

	t.Run("zero vector scores 0 against anything", func(t *testing.T) {
		zero := []float32{0, 0, 0}
		other := []float32{0.5, 0.5, 0.5}
		assert.Equal(t, float32(0), CosineSimilarity(zero, other))
		assert.Equal(t, float32(0), CosineSimilarity(other, zero))
		assert.Equal(t, float32(0), CosineSimilarity(zero, zero))
	})

	t.Run("empty vectors score 0", func(t *testing.T) {
		assert.Equal(t, float32(0), CosineSimilarity(nil, []float32{1, 2}))
	})

	t.Run("scale invariant", func(t *testing.T) {
		a := []float32{0.2, 0.7, 0.1}
		scaled := []float32{2, 7, 1}
		assert.InDelta(t, 1.0, CosineSimilarity(a, scaled), 1e-6)
	})
}

func TestNormalizeVector(t *testing.T) {
	t.Run("unit length after normalization", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("zero vector stays zero", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("empty vector unchanged", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []float32{3, 4}
		NormalizeVector(in)
		assert.Equal(t, []float32{3, 4}, in)
	})
}
