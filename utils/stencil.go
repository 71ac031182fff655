package utils

import (
	"fmt"
	"sort"
)

// Stencil5 stores one 5 point row per unknown: center P, neighbours N (i+1), S (i-1),
// E (j+1) and W (j-1).
type Stencil5 struct {
	P, N, S, E, W []float64
}

// Slots in the neighbour arrays handed to ToCSR
const (
	SlotN = iota
	SlotS
	SlotE
	SlotW
)

func NewStencil5(n int) *Stencil5 {
	return &Stencil5{
		P: make([]float64, n),
		N: make([]float64, n),
		S: make([]float64, n),
		E: make([]float64, n),
		W: make([]float64, n),
	}
}

func (A *Stencil5) Len() int { return len(A.P) }

// Offdiag returns the neighbour coefficients in slot order N, S, E, W
func (A *Stencil5) Offdiag(n int) [4]float64 {
	return [4]float64{A.N[n], A.S[n], A.E[n], A.W[n]}
}

func (A *Stencil5) Coefficient(n, slot int) *float64 {
	switch slot {
	case SlotN:
		return &A.N[n]
	case SlotS:
		return &A.S[n]
	case SlotE:
		return &A.E[n]
	case SlotW:
		return &A.W[n]
	}
	panic(fmt.Errorf("unknown stencil slot %d", slot))
}

// SetIdentityRow decouples row n from every neighbour
func (A *Stencil5) SetIdentityRow(n int) {
	A.P[n] = 1
	A.N[n], A.S[n], A.E[n], A.W[n] = 0, 0, 0, 0
}

// ToCSR builds the sparse matrix, nbr[n] holds the rows of the neighbours of row n in
// slot order, -1 where the neighbour has no row. Coefficients without a row and zero
// coefficients are not stored.
func (A *Stencil5) ToCSR(nbr [][4]int) (R CSR) {
	var (
		n      = A.Len()
		indptr = make([]int, n+1)
		ind    = make([]int, 0, 5*n)
		data   = make([]float64, 0, 5*n)
		row    = make([]entry, 0, 5)
	)
	if len(nbr) != n {
		panic(fmt.Errorf("neighbour table has %d rows, stencil has %d", len(nbr), n))
	}
	for r := 0; r < n; r++ {
		row = row[:0]
		row = append(row, entry{r, A.P[r]})
		for slot, val := range A.Offdiag(r) {
			if c := nbr[r][slot]; c >= 0 && val != 0 {
				row = append(row, entry{c, val})
			}
		}
		sort.Slice(row, func(a, b int) bool { return row[a].col < row[b].col })
		for _, e := range row {
			ind = append(ind, e.col)
			data = append(data, e.val)
		}
		indptr[r+1] = len(ind)
	}
	return NewCSR(n, n, indptr, ind, data)
}

type entry struct {
	col int
	val float64
}
