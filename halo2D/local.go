package halo2D

import (
	"github.com/notargets/gosflow/grid2D"
)

// Local fills the ghost cells of the physical boundaries of one subdomain.
// Pressure ghost cells hold the prescribed boundary pressure and are left in place.
// Face fluxes normal to a wall are zero, every other ghost value is extrapolated with
// a zero gradient from the nearest active cell.
type Local struct {
	Grid *grid2D.Grid
}

func NewLocal(g *grid2D.Grid) *Local {
	return &Local{Grid: g}
}

func (lc *Local) Exchange(f *grid2D.Slice, class grid2D.BCClass) {
	if class == grid2D.ClassPressure {
		return
	}
	for _, side := range grid2D.Directions {
		if lc.Grid.Neighbors[side] >= 0 {
			continue
		}
		lc.extrapolate(f, side, class)
	}
}

func (lc *Local) extrapolate(f *grid2D.Slice, side grid2D.Direction, class grid2D.BCClass) {
	var (
		g      = lc.Grid
		M      = g.Margin
		normal = (class == grid2D.ClassU && !side.Lateral()) || (class == grid2D.ClassV && side.Lateral())
		fill   = func(i, j int, val float64) {
			if !g.Boundary(i, j) {
				return
			}
			if normal && g.Class(i, j) == grid2D.Wall {
				val = 0
			}
			f.Set(i, j, val)
		}
	)
	switch side {
	case grid2D.IMinus, grid2D.IPlus:
		for j := -M; j < g.Ny+M; j++ {
			for q := 1; q <= M; q++ {
				i, src := -q, 0
				if side == grid2D.IPlus {
					i, src = g.Nx-1+q, g.Nx-1
				}
				fill(i, j, f.At(src, j))
			}
		}
	case grid2D.JMinus, grid2D.JPlus:
		for i := -M; i < g.Nx+M; i++ {
			for q := 1; q <= M; q++ {
				j, src := -q, 0
				if side == grid2D.JPlus {
					j, src = g.Ny-1+q, g.Ny-1
				}
				fill(i, j, f.At(i, src))
			}
		}
	}
}
