package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{name: "identical_vectors", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1.0},
		{name: "opposite_vectors", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1.0},
		{name: "orthogonal_vectors", a: []float64{1, 0}, b: []float64{0, 1}, want: 0.0},
		{name: "magnitude_independent", a: []float64{1, 1}, b: []float64{10, 10}, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	t.Run("dimension_mismatch", func(t *testing.T) {
		_, err := CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3, 4})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("zero_norm_left", func(t *testing.T) {
		_, err := CosineSimilarity([]float64{0, 0, 0}, []float64{1, 2, 3})
		assert.ErrorIs(t, err, ErrZeroVector)
	})

	t.Run("zero_norm_right", func(t *testing.T) {
		_, err := CosineSimilarity([]float64{1, 2, 3}, []float64{0, 0, 0})
		assert.ErrorIs(t, err, ErrZeroVector)
	})

	t.Run("result_stays_in_range", func(t *testing.T) {
		a := []float64{0.3, -0.7, 0.2, 0.9}
		b := []float64{-0.1, 0.4, 0.8, -0.5}
		got, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, -1.0)
		assert.LessOrEqual(t, got, 1.0)
	})
}
