package rankstat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinRank(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []int
	}{
		{"ties share smallest", []float64{0.9, 0.9, 0.5}, []int{1, 1, 3}},
		{"descending order", []float64{1, 3, 2}, []int{3, 1, 2}},
		{"nan unranked", []float64{2, math.NaN(), 2, 1}, []int{1, 0, 1, 3}},
		{"empty", nil, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MinRank(tt.in))
		})
	}
}

func TestAverageRanks(t *testing.T) {
	assert.Equal(t, []float64{1.5, 1.5, 3}, AverageRanks([]float64{5, 5, 7}))
	assert.Equal(t, []float64{3, 1, 2}, AverageRanks([]float64{9, 1, 4}))
}

func TestSpearmanPerfect(t *testing.T) {
	c := Spearman([]float64{1, 2, 3, 4, 5}, []float64{10, 20, 30, 40, 50})
	assert.True(t, c.Defined)
	assert.InDelta(t, 1.0, c.Rho, 1e-12)
	assert.Less(t, c.P, 1e-6)
	assert.Equal(t, "***", c.Stars())

	c = Spearman([]float64{1, 2, 3, 4}, []float64{4, 3, 2, 1})
	assert.InDelta(t, -1.0, c.Rho, 1e-12)
}

func TestSpearmanKnownValue(t *testing.T) {
	// d = (0, 0, 1, -1, 0), sum d^2 = 2, rho = 1 - 6*2/(5*24) = 0.9.
	c := Spearman([]float64{1, 2, 3, 4, 5}, []float64{1, 2, 4, 3, 5})
	assert.True(t, c.Defined)
	assert.InDelta(t, 0.9, c.Rho, 1e-12)
	// t = 0.9*sqrt(3/0.19) = 3.576, two-sided p with 3 df is about 0.0374.
	assert.InDelta(t, 0.0374, c.P, 5e-4)
	assert.Equal(t, "**", c.Stars())
	assert.Equal(t, "0.90**", c.Label())
}

func TestSpearmanPairwiseComplete(t *testing.T) {
	nan := math.NaN()
	c := Spearman([]float64{1, nan, 2, 3, 4}, []float64{2, 9, 4, nan, 8})
	assert.Equal(t, 3, c.N)
	assert.True(t, c.Defined)
	assert.InDelta(t, 1.0, c.Rho, 1e-12)
}

func TestSpearmanUndefined(t *testing.T) {
	assert.False(t, Spearman([]float64{1, 2}, []float64{3, 4}).Defined)
	assert.False(t, Spearman([]float64{1, 1, 1}, []float64{3, 4, 5}).Defined)
	assert.False(t, Spearman(nil, nil).Defined)
	assert.Equal(t, "n/a", Spearman(nil, nil).Label())
}

func TestStars(t *testing.T) {
	assert.Equal(t, "***", Stars(0.001))
	assert.Equal(t, "**", Stars(0.01))
	assert.Equal(t, "*", Stars(0.05))
	assert.Equal(t, "", Stars(0.1))
	assert.Equal(t, "", Stars(math.NaN()))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.13, Round(0.125, 2))
	assert.Equal(t, -0.13, Round(-0.125, 2))
	assert.Equal(t, 0.667, Round(2.0/3.0, 3))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
}

func TestSnap(t *testing.T) {
	assert.Equal(t, 0.5, Snap(0.50000000000000011, 12))
	assert.Equal(t, Snap(0.7071067811865476, 12), Snap(0.7071067811865475, 12))
	assert.Equal(t, 0.0, Snap(0, 12))
	assert.True(t, math.IsNaN(Snap(math.NaN(), 12)))

	assert.Equal(t, []int{1, 1, 3}, MinRank([]float64{
		Snap(0.50000000000000011, 12), Snap(0.5, 12), Snap(0.25, 12),
	}))
}
