package linalg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconstruct(res SVDResult) *Matrix {
	sInv := DiagonalMatrix(res.S)
	return mulPanic(mulPanic(res.U, sInv), res.V.Transpose())
}

func frobeniusNorm(m *Matrix) float64 {
	var sumSq float64
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Cols(); j++ {
			v := m.At(i, j)
			sumSq += v * v
		}
	}
	return math.Sqrt(sumSq)
}

func frobeniusDiff(a, b *Matrix) float64 {
	diff := NewMatrix(a.Rows(), a.Cols())
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			diff.Set(i, j, a.At(i, j)-b.At(i, j))
		}
	}
	return frobeniusNorm(diff)
}

func TestJacobiSVD_Reconstruction_Square(t *testing.T) {
	a, err := NewMatrixFromRows([][]float64{
		{2, 0},
		{0, 3},
	})
	require.NoError(t, err)

	res := JacobiSVD(a, DefaultSVDOptions())
	recon := reconstruct(res)

	diff := frobeniusDiff(a, recon)
	bound := 1e-2 * math.Max(1, frobeniusNorm(a))
	assert.LessOrEqual(t, diff, bound)
}

func TestJacobiSVD_WideMatrix_Shape(t *testing.T) {
	// A is 2x3: shape scenario from the concrete test suite.
	a, err := NewMatrixFromRows([][]float64{
		{1, 0, 0},
		{0, 1, 0},
	})
	require.NoError(t, err)

	res := JacobiSVD(a, DefaultSVDOptions())

	nonZero := 0
	for _, s := range res.S {
		if s > 1e-9 {
			nonZero++
		}
	}
	assert.LessOrEqual(t, nonZero, 2)

	recon := reconstruct(res)
	assert.Less(t, frobeniusDiff(a, recon), 1e-6)
}

func TestJacobiSVD_TallMatrix_Reconstruction(t *testing.T) {
	a, err := NewMatrixFromRows([][]float64{
		{1, 2},
		{3, 4},
		{5, 6},
	})
	require.NoError(t, err)

	res := JacobiSVD(a, DefaultSVDOptions())
	recon := reconstruct(res)

	diff := frobeniusDiff(a, recon)
	bound := 1e-2 * math.Max(1, frobeniusNorm(a))
	assert.LessOrEqual(t, diff, bound)
}

func TestJacobiSVD_SingularValuesNonNegative(t *testing.T) {
	a, err := NewMatrixFromRows([][]float64{
		{4, 1, -2},
		{1, 3, 0},
		{-2, 0, 5},
	})
	require.NoError(t, err)

	res := JacobiSVD(a, DefaultSVDOptions())
	for _, s := range res.S {
		assert.GreaterOrEqual(t, s, 0.0)
	}
}

func TestJacobiSVD_ZeroMatrix(t *testing.T) {
	a := NewMatrix(3, 2)
	res := JacobiSVD(a, DefaultSVDOptions())

	for _, s := range res.S {
		assert.Equal(t, 0.0, s)
	}
}
