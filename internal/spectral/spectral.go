// Package spectral computes the smallest eigenvalues of the combinatorial
// graph Laplacian via a Lanczos iteration, yielding the Fiedler value
// (algebraic connectivity) and the spectral gap. The Laplacian is never
// materialized: matrix-vector products run over the sparse symmetrized
// adjacency.
package spectral

import (
	"math"
	"sort"

	"insight/internal/graph"
)

// Result holds the spectral summary of a graph.
type Result struct {
	Eigenvalues    []float64 // ascending, k = min(10, n-1) smallest
	FiedlerValue   float64   // lambda_2; 0 when the graph is disconnected
	SpectralGap    float64   // lambda_2 / lambda_3; 0 if lambda_3 == 0
	ComponentCount int
	Skipped        bool // n < 3 or no edges
}

// Analyze computes the Laplacian spectrum summary of g.
func Analyze(g *graph.Graph) Result {
	n := g.N()
	comps := g.WeaklyConnectedComponents()
	res := Result{ComponentCount: len(comps)}

	if n < 3 || g.M() == 0 {
		res.Skipped = true
		return res
	}

	adj := g.UndirectedAdjacency()
	deg := make([]float64, n)
	for i, row := range adj {
		for j, w := range row {
			if j != i {
				deg[i] += w
			}
		}
	}

	k := 10
	if n-1 < k {
		k = n - 1
	}
	eigs := lanczosSmallest(adj, deg, k)
	res.Eigenvalues = eigs

	if len(eigs) >= 2 {
		res.FiedlerValue = clampTiny(eigs[1])
	}
	if len(eigs) >= 3 && clampTiny(eigs[2]) > 0 {
		res.SpectralGap = res.FiedlerValue / eigs[2]
	}
	return res
}

// clampTiny squashes numeric noise around zero so a disconnected graph
// reports an exact zero Fiedler value.
func clampTiny(x float64) float64 {
	if math.Abs(x) < 1e-9 {
		return 0
	}
	return x
}

// lapMulV computes y = (D - A) x over the sparse adjacency.
func lapMulV(adj []map[int]float64, deg []float64, x, y []float64) {
	for i := range y {
		y[i] = deg[i] * x[i]
	}
	for i, row := range adj {
		for j, w := range row {
			if j == i {
				continue
			}
			y[i] -= w * x[j]
		}
	}
}

// lanczosSmallest runs Lanczos with full reorthogonalization and returns
// the k smallest Ritz values in ascending order. When an invariant
// subspace is exhausted the iteration restarts with a fresh deterministic
// vector orthogonalized against the accumulated basis (beta = 0 splits
// the tridiagonal into blocks), which recovers repeated eigenvalues. The
// start vectors come from a fixed LCG so runs are reproducible.
func lanczosSmallest(adj []map[int]float64, deg []float64, k int) []float64 {
	n := len(adj)
	steps := 2*k + 20
	if steps > n {
		steps = n
	}

	state := uint64(0x9e3779b97f4a7c15)
	nextVector := func() []float64 {
		v := make([]float64, n)
		for i := range v {
			state = state*6364136223846793005 + 1442695040888963407
			v[i] = float64(state>>11)/float64(1<<53) - 0.5
		}
		return v
	}

	basis := make([][]float64, 0, steps)
	alpha := make([]float64, 0, steps)
	beta := make([]float64, 0, steps)

	w := make([]float64, n)
	prev := make([]float64, n)
	prevBeta := 0.0

	// freshStart draws a new vector orthogonal to the basis; returns nil
	// when the basis already spans the space.
	freshStart := func() []float64 {
		for attempt := 0; attempt < 4; attempt++ {
			v := nextVector()
			for _, q := range basis {
				c := dot(v, q)
				for i := range v {
					v[i] -= c * q[i]
				}
			}
			if math.Sqrt(dot(v, v)) > 1e-10 {
				normalize(v)
				return v
			}
		}
		return nil
	}

	v := nextVector()
	normalize(v)

	for len(alpha) < steps {
		basis = append(basis, append([]float64(nil), v...))
		lapMulV(adj, deg, v, w)
		a := dot(w, v)
		alpha = append(alpha, a)

		for i := range w {
			w[i] -= a*v[i] + prevBeta*prev[i]
		}
		for _, q := range basis {
			c := dot(w, q)
			for i := range w {
				w[i] -= c * q[i]
			}
		}

		b := math.Sqrt(dot(w, w))
		if b < 1e-12 {
			if len(alpha) >= steps || len(basis) >= n {
				break
			}
			restart := freshStart()
			if restart == nil {
				break
			}
			beta = append(beta, 0)
			v = restart
			prevBeta = 0
			continue
		}
		beta = append(beta, b)
		copy(prev, v)
		for i := range v {
			v[i] = w[i] / b
		}
		prevBeta = b
	}

	nb := len(alpha) - 1
	if nb < 0 {
		nb = 0
	}
	if len(beta) > nb {
		beta = beta[:nb]
	}
	eigs := tridiagEigenvalues(alpha, beta)
	sort.Float64s(eigs)

	// The Laplacian always has eigenvalue 0; make sure the Ritz set
	// includes it even if the start vector had no kernel component left.
	if len(eigs) == 0 || eigs[0] > 1e-9 {
		eigs = append([]float64{0}, eigs...)
	}
	if len(eigs) > k {
		eigs = eigs[:k]
	}
	return eigs
}

// tridiagEigenvalues computes the eigenvalues of a symmetric tridiagonal
// matrix by QL iteration with implicit shifts.
func tridiagEigenvalues(diag, off []float64) []float64 {
	n := len(diag)
	if n == 0 {
		return nil
	}
	d := append([]float64(nil), diag...)
	e := make([]float64, n)
	copy(e, off)

	for l := 0; l < n; l++ {
		for iter := 0; iter < 50; iter++ {
			m := l
			for ; m < n-1; m++ {
				dd := math.Abs(d[m]) + math.Abs(d[m+1])
				if math.Abs(e[m]) <= 1e-14*dd {
					break
				}
			}
			if m == l {
				break
			}
			g := (d[l+1] - d[l]) / (2 * e[l])
			r := math.Hypot(g, 1)
			g = d[m] - d[l] + e[l]/(g+math.Copysign(r, g))
			s, c := 1.0, 1.0
			p := 0.0
			underflow := false
			for i := m - 1; i >= l; i-- {
				f := s * e[i]
				b := c * e[i]
				r = math.Hypot(f, g)
				e[i+1] = r
				if r == 0 {
					d[i+1] -= p
					e[m] = 0
					underflow = true
					break
				}
				s = f / r
				c = g / r
				g = d[i+1] - p
				r = (d[i]-g)*s + 2*c*b
				p = s * r
				d[i+1] = g + p
				g = c*r - b
			}
			if underflow {
				continue
			}
			d[l] -= p
			e[l] = g
			e[m] = 0
		}
	}
	return d
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func normalize(v []float64) {
	n := math.Sqrt(dot(v, v))
	if n == 0 {
		return
	}
	for i := range v {
		v[i] /= n
	}
}
