package pae

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when the PAE matrix is not square or does not match
// the pLDDT array.
var ErrShape = errors.New("pae: malformed matrix shape")

// Matrix is a square predicted aligned error matrix. Entry (i, j) is the
// expected position error of residue j when aligned on residue i.
type Matrix struct {
	dense *mat.Dense
	n     int
}

// NewMatrix copies rows into a new matrix.
func NewMatrix(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrShape)
	}

	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrShape, i, len(row), n)
		}
		for j, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("%w: negative value %f at (%d,%d)", ErrShape, v, i, j)
			}
		}
		data = append(data, row...)
	}

	return &Matrix{dense: mat.NewDense(n, n, data), n: n}, nil
}

// Size returns the number of residues.
func (m *Matrix) Size() int { return m.n }

// At returns entry (i, j).
func (m *Matrix) At(i, j int) float64 { return m.dense.At(i, j) }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 { return mat.Row(nil, i, m.dense) }

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []float64 { return mat.Col(nil, j, m.dense) }

// Rows returns the matrix as a fresh slice of rows.
func (m *Matrix) Rows() [][]float64 {
	rows := make([][]float64, m.n)
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return rows
}

// Clone creates a deep copy of the matrix
func (m *Matrix) Clone() *Matrix {
	return &Matrix{dense: mat.DenseCopyOf(m.dense), n: m.n}
}

// AveragePAE returns the mean PAE over every ordered pair of the given
// 0-indexed positions, including the diagonal pairs. The second value is false
// for an empty position set.
func (m *Matrix) AveragePAE(positions []int) (float64, bool) {
	if len(positions) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, r1 := range positions {
		for _, r2 := range positions {
			sum += m.dense.At(r1, r2)
		}
	}
	return sum / float64(len(positions)*len(positions)), true
}
