package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStencil5_ToCSR(t *testing.T) {
	// 1D chain of 3 unknowns coupled through N/S
	A := NewStencil5(3)
	for n := 0; n < 3; n++ {
		A.P[n] = 2
		A.N[n] = -1
		A.S[n] = -1
	}
	nbr := [][4]int{
		{1, -1, -1, -1},
		{2, 0, -1, -1},
		{-1, 1, -1, -1},
	}
	csr := A.ToCSR(nbr)
	nr, nc := csr.Dims()
	require.Equal(t, 3, nr)
	require.Equal(t, 3, nc)
	assert.Equal(t, 7, csr.NNZ())
	assert.Equal(t, []float64{2, 2, 2}, csr.Diagonal())
	assert.Equal(t, -1., csr.At(1, 0))
	assert.Equal(t, 0., csr.At(0, 2))

	y := make([]float64, 3)
	csr.MulVec([]float64{1, 1, 1}, y)
	assert.Equal(t, []float64{1, 0, 1}, y)

	D := csr.ToDense()
	assert.Equal(t, -1., D.At(2, 1))

	A.SetIdentityRow(1)
	csr = A.ToCSR(nbr)
	csr.MulVec([]float64{1, 5, 1}, y)
	assert.Equal(t, []float64{-3, 5, -3}, y)

	assert.Panics(t, func() { csr.MulVec([]float64{1, 1}, y) })
	assert.Panics(t, func() { A.ToCSR(nbr[:2]) })
	assert.Panics(t, func() { A.Coefficient(0, 7) })
	*A.Coefficient(0, SlotE) = 3
	assert.Equal(t, [4]float64{-1, -1, 3, 0}, A.Offdiag(0))
}
