package centrality

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	errNoDominantVector   = errors.New("no dominant eigenvector")
	errDegenerateSpectrum = errors.New("dominant eigenvalue is zero or repeated")
)

// eigenTolerance is the relative gap under which two eigenvalues count as
// equal. Defective eigenvalues are perturbed by roughly sqrt(machine eps).
const eigenTolerance = 1e-6

// eigenvector returns the dominant eigenvector of the weighted adjacency
// restricted to members, scaled to unit Euclidean norm with a positive sum.
// For directed snapshots the in-edge convention applies:
// x_v is proportional to the sum over edges u->v of w(u,v)*x_u.
func (a *adjacency) eigenvector(members []int, directed bool) ([]float64, error) {
	n := len(members)
	if n == 0 {
		return nil, errNoDominantVector
	}
	local := make(map[int]int, n)
	for i, m := range members {
		local[m] = i
	}

	var vec []float64
	if !directed {
		sym := mat.NewSymDense(n, nil)
		for i, u := range members {
			for _, e := range a.und[u] {
				j, ok := local[e.to]
				if ok && j > i {
					sym.SetSym(i, j, e.weight)
				}
			}
		}
		var es mat.EigenSym
		if !es.Factorize(sym, true) {
			return nil, errors.New("symmetric eigendecomposition failed")
		}
		vals := es.Values(nil)
		var vecs mat.Dense
		es.VectorsTo(&vecs)
		best := floats.MaxIdx(vals)
		vec = mat.Col(nil, best, &vecs)
	} else {
		if a.acyclic(members) {
			return nil, errDegenerateSpectrum
		}
		// M = A^T so that (M x)_v sums over predecessors of v.
		m := mat.NewDense(n, n, nil)
		for i, u := range members {
			for _, e := range a.out[u] {
				if j, ok := local[e.to]; ok {
					m.Set(j, i, e.weight)
				}
			}
		}
		var eig mat.Eigen
		if !eig.Factorize(m, mat.EigenRight) {
			return nil, errors.New("eigendecomposition failed")
		}
		vals := eig.Values(nil)
		best := 0
		for i, v := range vals {
			if real(v) > real(vals[best]) {
				best = i
			}
		}
		// A repeated leading eigenvalue has no unique eigenvector.
		lead := vals[best]
		tol := eigenTolerance * math.Max(1, cmplx.Abs(lead))
		if real(lead) <= tol {
			return nil, errDegenerateSpectrum
		}
		for i, v := range vals {
			if i != best && cmplx.Abs(v-lead) <= tol {
				return nil, errDegenerateSpectrum
			}
		}
		var vecs mat.CDense
		eig.VectorsTo(&vecs)
		vec = make([]float64, n)
		for i := range vec {
			c := vecs.At(i, best)
			if cmplx.IsNaN(c) {
				return nil, errNoDominantVector
			}
			vec[i] = real(c)
		}
	}

	norm := floats.Norm(vec, 2)
	sum := floats.Sum(vec)
	if norm == 0 || math.IsNaN(norm) {
		return nil, errNoDominantVector
	}
	scale := norm
	if sum < 0 {
		scale = -norm
	}
	floats.Scale(1/scale, vec)
	return vec, nil
}
