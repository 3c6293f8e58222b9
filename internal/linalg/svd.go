package linalg

import "math"

// SVDOptions configures the Jacobi SVD's sweep budget and numeric guards.
type SVDOptions struct {
	// MaxSweeps bounds how many full sweeps over the off-diagonal pairs
	// are attempted before accepting the best-so-far result.
	MaxSweeps int

	// ConvTol is both the per-entry delta threshold used to decide which
	// diagonal entries count toward the convergence sum, and the sum
	// threshold below which sweeping stops early.
	ConvTol float64

	// Epsilon guards the rotation-angle formula's division and the
	// singular-value reciprocal used to recover U.
	Epsilon float64
}

// DefaultSVDOptions returns the constants named in the component design:
// 20 sweeps, a convergence tolerance of 0.001, and an epsilon of 1e-10.
func DefaultSVDOptions() SVDOptions {
	return SVDOptions{MaxSweeps: 20, ConvTol: 0.001, Epsilon: 1e-10}
}

// SVDResult holds a (possibly truncated) singular value decomposition:
// A ≈ U · diag(S) · Vᵀ, with U column-orthonormal (m×k), V orthonormal
// (n×k), and S a vector of k non-negative singular values in no
// particular order.
type SVDResult struct {
	U *Matrix
	V *Matrix
	S Vector

	// SweepsRun is the number of sweeps actually executed before
	// convergence or MaxSweeps was reached.
	SweepsRun int
}

// JacobiSVD decomposes A via one-sided Jacobi rotations applied to the
// smaller of AᵀA or AAᵀ. Singular values are not sorted — callers sort
// when they need a descending spectrum. Non-convergence within
// opts.MaxSweeps is not an error; the best-so-far decomposition is
// returned.
func JacobiSVD(a *Matrix, opts SVDOptions) SVDResult {
	m, n := a.Rows(), a.Cols()
	k := m
	if n < k {
		k = n
	}

	transposed := m < n

	var gram, source *Matrix
	if !transposed {
		gram = mulPanic(a.Transpose(), a) // n×n, k == n
		source = a
	} else {
		gram = mulPanic(a, a.Transpose()) // m×m, k == m
		source = a.Transpose()
	}

	q := gram.Clone()
	v := Identity(k)

	var prevDiag []float64
	sweepsRun := 0
	for sweep := 1; sweep <= opts.MaxSweeps; sweep++ {
		sweepsRun = sweep
		for p := 0; p < k; p++ {
			for r := p + 1; r < k; r++ {
				jacobiRotate(q, v, p, r, opts.Epsilon)
			}
		}

		diag := diagonalOf(q, k)
		if sweep > 1 {
			var sum float64
			for i := 0; i < k; i++ {
				delta := math.Abs(diag[i] - prevDiag[i])
				if delta > opts.ConvTol {
					sum += delta
				}
			}
			if sum <= opts.ConvTol {
				prevDiag = diag
				break
			}
		}
		prevDiag = diag
	}

	s := make(Vector, k)
	for i := 0; i < k; i++ {
		s[i] = math.Sqrt(math.Max(q.At(i, i), 0))
	}

	sInv := NewMatrix(k, k)
	for i := 0; i < k; i++ {
		if s[i] > opts.Epsilon {
			sInv.Set(i, i, 1/s[i])
		}
	}

	// uRaw = source · V · S⁻¹, per the component design's recovery step.
	uRaw := mulPanic(mulPanic(source, v), sInv)

	if !transposed {
		// k == n: v diagonalized AᵀA and is already the canonical right
		// singular vectors; uRaw is the canonical left singular vectors.
		return SVDResult{U: uRaw, V: v, S: s, SweepsRun: sweepsRun}
	}

	// k == m: v diagonalized AAᵀ and is the canonical left singular
	// vectors; uRaw (computed against source = Aᵀ) is the canonical
	// right singular vectors.
	return SVDResult{U: v, V: uRaw, S: s, SweepsRun: sweepsRun}
}

// jacobiRotate zeroes q[p][r] with a two-sided Givens rotation, applying
// the matching right-rotation to v so that v keeps accumulating the
// eigenvector basis.
func jacobiRotate(q, v *Matrix, p, r int, epsilon float64) {
	apr := q.At(p, r)
	app := q.At(p, p)
	arr := q.At(r, r)

	numerator := 2 * apr
	denominator := app - arr

	var theta float64
	switch {
	case math.Abs(denominator) < epsilon && numerator >= 0:
		theta = math.Pi / 4
	case math.Abs(denominator) < epsilon:
		theta = -math.Pi / 4
	default:
		theta = 0.5 * math.Atan(numerator/denominator)
	}

	c := math.Cos(theta)
	s := math.Sin(theta)

	rotateColumns(q, p, r, c, s)
	rotateRows(q, p, r, c, s)
	rotateColumns(v, p, r, c, s)
}

func rotateColumns(m *Matrix, p, r int, c, s float64) {
	for i := 0; i < m.rows; i++ {
		mip := m.At(i, p)
		mir := m.At(i, r)
		m.Set(i, p, c*mip+s*mir)
		m.Set(i, r, -s*mip+c*mir)
	}
}

func rotateRows(m *Matrix, p, r int, c, s float64) {
	for j := 0; j < m.cols; j++ {
		mpj := m.At(p, j)
		mrj := m.At(r, j)
		m.Set(p, j, c*mpj+s*mrj)
		m.Set(r, j, -s*mpj+c*mrj)
	}
}

func diagonalOf(m *Matrix, k int) []float64 {
	d := make([]float64, k)
	for i := 0; i < k; i++ {
		d[i] = m.At(i, i)
	}
	return d
}
