package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want []float32
	}{
		{name: "unit axis", in: []float32{0, 2}, want: []float32{0, 1}},
		{name: "3-4-5", in: []float32{3, 4}, want: []float32{0.6, 0.8}},
		{name: "zero vector", in: []float32{0, 0}, want: []float32{0, 0}},
		{name: "empty", in: []float32{}, want: []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.InDeltaSlice(t, tt.want, got, 1e-6)
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []float32{3, 4}
	Normalize(in)
	assert.Equal(t, []float32{3, 4}, in)
}

func TestNormalize_UnitLength(t *testing.T) {
	v := Normalize([]float32{1, 2, 3, 4, 5})
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestSquaredEuclidean(t *testing.T) {
	assert.Equal(t, float32(25), SquaredEuclidean([]float32{0, 0}, []float32{3, 4}))
	assert.Equal(t, float32(0), SquaredEuclidean([]float32{1, 2}, []float32{1, 2}))
}

func TestFinite(t *testing.T) {
	assert.True(t, Finite([]float32{0, -1.5, 3}))
	assert.True(t, Finite(nil))
	assert.False(t, Finite([]float32{1, float32(math.NaN())}))
	assert.False(t, Finite([]float32{float32(math.Inf(1)), 0}))
}
