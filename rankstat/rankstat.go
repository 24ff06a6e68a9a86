// Package rankstat holds the rank and rank-correlation helpers shared by the
// centrality and ranking stages.
package rankstat

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinRank ranks vals in descending order with ties sharing the smallest rank
// (1, 1, 3). NaN entries are unranked and get 0.
func MinRank(vals []float64) []int {
	idx := make([]int, 0, len(vals))
	for i, v := range vals {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] > vals[idx[b]] })

	ranks := make([]int, len(vals))
	for pos, i := range idx {
		if pos > 0 && vals[i] == vals[idx[pos-1]] {
			ranks[i] = ranks[idx[pos-1]]
			continue
		}
		ranks[i] = pos + 1
	}
	return ranks
}

// AverageRanks ranks vals in ascending order with ties receiving the mean
// of the ranks they span. vals must not contain NaN.
func AverageRanks(vals []float64) []float64 {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })

	ranks := make([]float64, len(vals))
	for lo := 0; lo < len(idx); {
		hi := lo + 1
		for hi < len(idx) && vals[idx[hi]] == vals[idx[lo]] {
			hi++
		}
		r := float64(lo+hi+1) / 2
		for k := lo; k < hi; k++ {
			ranks[idx[k]] = r
		}
		lo = hi
	}
	return ranks
}

// Correlation is a rank correlation with its two-sided p-value.
type Correlation struct {
	Rho     float64 `json:"rho"`
	P       float64 `json:"p"`
	N       int     `json:"n"`
	Defined bool    `json:"defined"`
}

// Stars returns the significance label of the correlation, empty when
// undefined.
func (c Correlation) Stars() string {
	if !c.Defined {
		return ""
	}
	return Stars(c.P)
}

// Label renders rho with two decimals followed by its stars.
func (c Correlation) Label() string {
	if !c.Defined {
		return "n/a"
	}
	return formatFixed(c.Rho, 2) + c.Stars()
}

// MinPairs is the smallest number of complete pairs for which Spearman is
// defined.
const MinPairs = 3

// Spearman computes Spearman's rho over pairwise-complete observations.
// Pairs with a NaN on either side are dropped. The result is undefined with
// fewer than MinPairs pairs or when either side is constant.
func Spearman(x, y []float64) Correlation {
	n := min(len(x), len(y))
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	c := Correlation{N: len(xs)}
	if c.N < MinPairs || constant(xs) || constant(ys) {
		return c
	}

	rho := stat.Correlation(AverageRanks(xs), AverageRanks(ys), nil)
	if math.IsNaN(rho) {
		return c
	}
	rho = math.Max(-1, math.Min(1, rho))
	c.Rho = rho
	c.Defined = true

	df := float64(c.N - 2)
	if math.Abs(rho) == 1 {
		c.P = 0
		return c
	}
	t := rho * math.Sqrt(df/((1-rho)*(1+rho)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	c.P = 2 * dist.Survival(math.Abs(t))
	return c
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

// Stars maps a p-value to "***" (p < 0.01), "**" (p < 0.05), "*" (p < 0.1)
// or "".
func Stars(p float64) string {
	switch {
	case math.IsNaN(p):
		return ""
	case p < 0.01:
		return "***"
	case p < 0.05:
		return "**"
	case p < 0.1:
		return "*"
	}
	return ""
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
