package grid2D

import "fmt"

type Cell struct {
	I, J int
}

// RowMap is the explicit mapping between active grid cells and linear system rows.
// Every pass that touches the pressure system iterates Cells, so row n always
// refers to the same cell.
type RowMap struct {
	Cells []Cell
	rows  *IntSlice // row index for each cell, -1 when the cell has no row
}

func NewRowMap(g *Grid) (rm *RowMap) {
	rm = &RowMap{
		rows: g.NewIntSlice(),
	}
	rm.rows.Fill(-1)
	g.Loop4(func(i, j int) {
		rm.rows.Set(i, j, len(rm.Cells))
		rm.Cells = append(rm.Cells, Cell{I: i, J: j})
	})
	return
}

func (rm *RowMap) Len() int { return len(rm.Cells) }

// Row returns the row of cell (i,j), or -1 when the cell is outside the system
func (rm *RowMap) Row(i, j int) int {
	M := rm.rows.Margin
	if i < -M || i >= rm.rows.Nx+M || j < -M || j >= rm.rows.Ny+M {
		return -1
	}
	return rm.rows.At(i, j)
}

// Scatter copies a solution vector into the field
func (rm *RowMap) Scatter(x []float64, f *Slice) {
	rm.checkLength(len(x))
	for n, c := range rm.Cells {
		f.Set(c.I, c.J, x[n])
	}
}

// Gather copies the field values of every row cell into x
func (rm *RowMap) Gather(f *Slice, x []float64) {
	rm.checkLength(len(x))
	for n, c := range rm.Cells {
		x[n] = f.At(c.I, c.J)
	}
}

func (rm *RowMap) checkLength(n int) {
	if n != len(rm.Cells) {
		panic(fmt.Errorf("vector length %d does not match row count %d", n, len(rm.Cells)))
	}
}
