package linalg

import "fmt"

// Matrix is a dense row-major matrix of real numbers, stored in a flat
// slice for cache-friendly arithmetic.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix returns a zero-filled rows×cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// NewMatrixFromRows builds a matrix from a sequence of rows. All rows must
// have equal length, else ErrShapeMismatch.
func NewMatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}
	cols := len(rows[0])
	m := NewMatrix(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("NewMatrixFromRows: row %d: %w (%d vs %d)", i, ErrShapeMismatch, len(row), cols)
		}
		copy(m.data[i*cols:(i+1)*cols], row)
	}
	return m, nil
}

// Identity returns the n×n identity matrix.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// DiagonalMatrix returns a square matrix with v along the diagonal and
// zeros elsewhere.
func DiagonalMatrix(v Vector) *Matrix {
	n := len(v)
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = v[i]
	}
	return m
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) index(r, c int) int { return r*m.cols + c }

// At returns the element at (r, c).
func (m *Matrix) At(r, c int) float64 {
	return m.data[m.index(r, c)]
}

// Set assigns value at (r, c).
func (m *Matrix) Set(r, c int, value float64) {
	m.data[m.index(r, c)] = value
}

// Row returns a copy of row r.
func (m *Matrix) Row(r int) Vector {
	out := make(Vector, m.cols)
	copy(out, m.data[r*m.cols:(r+1)*m.cols])
	return out
}

// Column returns a copy of column c.
func (m *Matrix) Column(c int) Vector {
	out := make(Vector, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = m.At(i, c)
	}
	return out
}

// SetColumn overwrites column c with v.
func (m *Matrix) SetColumn(c int, v Vector) error {
	if len(v) != m.rows {
		return fmt.Errorf("Matrix.SetColumn: %w (%d vs %d)", ErrShapeMismatch, len(v), m.rows)
	}
	for i := 0; i < m.rows; i++ {
		m.Set(i, c, v[i])
	}
	return nil
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	copy(out.data, m.data)
	return out
}

// Transpose returns a new matrix that is the transpose of m.
func (m *Matrix) Transpose() *Matrix {
	out := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.Set(j, i, m.At(i, j))
		}
	}
	return out
}

// Scale returns m multiplied by a scalar.
func (m *Matrix) Scale(s float64) *Matrix {
	out := &Matrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	for i, v := range m.data {
		out.data[i] = v * s
	}
	return out
}

// Mul returns m · other. Fails with ErrShapeMismatch when m.Cols() !=
// other.Rows().
func (m *Matrix) Mul(other *Matrix) (*Matrix, error) {
	if m.cols != other.rows {
		return nil, fmt.Errorf("Matrix.Mul: %w (%dx%d vs %dx%d)", ErrShapeMismatch, m.rows, m.cols, other.rows, other.cols)
	}
	out := NewMatrix(m.rows, other.cols)
	for i := 0; i < m.rows; i++ {
		for k := 0; k < m.cols; k++ {
			aik := m.At(i, k)
			if aik == 0 {
				continue
			}
			for j := 0; j < other.cols; j++ {
				out.data[out.index(i, j)] += aik * other.At(k, j)
			}
		}
	}
	return out, nil
}

// MulVector returns m · v. Fails with ErrShapeMismatch when m.Cols() !=
// len(v).
func (m *Matrix) MulVector(v Vector) (Vector, error) {
	if m.cols != len(v) {
		return nil, fmt.Errorf("Matrix.MulVector: %w (%d cols vs %d)", ErrShapeMismatch, m.cols, len(v))
	}
	out := make(Vector, m.rows)
	for i := 0; i < m.rows; i++ {
		var sum float64
		for j := 0; j < m.cols; j++ {
			sum += m.At(i, j) * v[j]
		}
		out[i] = sum
	}
	return out, nil
}

// mulPanic multiplies two matrices whose shapes are guaranteed compatible
// by the caller's own construction. It is used inside algorithms (the
// Jacobi SVD) where a shape mismatch would mean a bug in this package, not
// in caller-supplied data.
func mulPanic(a, b *Matrix) *Matrix {
	out, err := a.Mul(b)
	if err != nil {
		panic("linalg: internal shape invariant violated: " + err.Error())
	}
	return out
}
