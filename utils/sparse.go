package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

type CSR struct {
	M *sparse.CSR
}

func NewCSR(nr, nc int, indptr, ind []int, data []float64) (R CSR) {
	if len(indptr) != nr+1 || len(ind) != len(data) {
		panic(fmt.Errorf("malformed CSR storage: nr = %d, len(indptr) = %d, len(ind) = %d, len(data) = %d",
			nr, len(indptr), len(ind), len(data)))
	}
	R = CSR{sparse.NewCSR(nr, nc, indptr, ind, data)}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Data() []float64 {
	return m.RawMatrix().Data
}
func (m CSR) NNZ() int { return m.M.NNZ() }

// MulVec computes y = A*x
func (m CSR) MulVec(x, y []float64) {
	nr, nc := m.Dims()
	if len(x) != nc || len(y) != nr {
		panic(fmt.Errorf("dimension mismatch: matrix is %dx%d, len(x) = %d, len(y) = %d", nr, nc, len(x), len(y)))
	}
	for i := range y {
		y[i] = 0
	}
	m.M.MulVecTo(y, false, x)
}

// Diagonal returns the stored diagonal, zero where absent
func (m CSR) Diagonal() (d []float64) {
	nr, _ := m.Dims()
	d = make([]float64, nr)
	m.M.DoNonZero(func(i, j int, v float64) {
		if i == j {
			d[i] += v
		}
	})
	return
}

func (m CSR) ToDense() *mat.Dense { return m.M.ToDense() }
