package SWE2D

import (
	"fmt"

	"github.com/notargets/gosflow/grid2D"
	"github.com/notargets/gosflow/utils"
)

// Elimination is the treatment of a stencil coefficient pointing outside the active domain
type Elimination uint8

const (
	Dirichlet Elimination = iota // rhs -= coef * p(neighbour), coef = 0
	ZeroFlux                     // coef = 0, rhs untouched
)

func (e Elimination) String() string {
	return [...]string{"Dirichlet", "ZeroFlux"}[e]
}

// EliminationPolicy maps (direction, class of the outside neighbour) to an Elimination.
// The zero value eliminates everything as Dirichlet.
type EliminationPolicy [4][3]Elimination

// DefaultPolicy keeps streamwise inflow boundaries as zero flux, every other boundary
// uses the last known pressure of the neighbour.
func DefaultPolicy() (ep EliminationPolicy) {
	ep[grid2D.IMinus][grid2D.Inflow] = ZeroFlux
	ep[grid2D.IPlus][grid2D.Inflow] = ZeroFlux
	return
}

func (ep EliminationPolicy) Lookup(d grid2D.Direction, bc grid2D.BoundaryClass) Elimination {
	return ep[d][bc]
}

func (ep EliminationPolicy) Print() {
	for _, d := range grid2D.Directions {
		for bc := grid2D.Wall; bc <= grid2D.Outflow; bc++ {
			fmt.Printf("%-7s %-8s = %s\n", d, bc, ep[d][bc])
		}
	}
}

// Stencil slot holding the coefficient towards each direction
var slotOf = [4]int{
	grid2D.IMinus: utils.SlotS,
	grid2D.IPlus:  utils.SlotN,
	grid2D.JMinus: utils.SlotW,
	grid2D.JPlus:  utils.SlotE,
}

// Assemble fills the 5 point system in three passes over the same rows:
// interior coefficients, boundary elimination, then decoupling of degenerate rows.
func (pp *Projector) Assemble() {
	var (
		g   = pp.Grid
		st  = pp.State
		A   = pp.A
		sqd = 1 / (g.DX * g.DX * g.Metric)
	)
	for n, c := range pp.Rows.Cells {
		h := st.Hp.At(c.I, c.J)
		A.P[n] = (h*sqd+h*sqd)*g.XDir + (h*sqd+h*sqd)*g.YDir + 2/(hpFloor(h)*g.Metric)
		A.N[n] = -h * sqd * g.XDir
		A.S[n] = -h * sqd * g.XDir
		A.E[n] = -h * sqd * g.YDir
		A.W[n] = -h * sqd * g.YDir
	}

	for n, c := range pp.Rows.Cells {
		for _, d := range grid2D.Directions {
			pp.eliminate(n, c, d)
		}
	}

	for n, c := range pp.Rows.Cells {
		if pp.degenerate(c) {
			A.SetIdentityRow(n)
			pp.RHS[n] = 0
		}
	}
}

func (pp *Projector) eliminate(n int, c grid2D.Cell, d grid2D.Direction) {
	var (
		g      = pp.Grid
		di, dj = d.Offset()
		ni, nj = c.I + di, c.J + dj
	)
	if !g.Boundary(ni, nj) {
		return
	}
	coef := pp.A.Coefficient(n, slotOf[d])
	if pp.Policy.Lookup(d, g.Class(ni, nj)) == Dirichlet {
		pp.RHS[n] -= *coef * pp.State.Press.At(ni, nj)
	}
	*coef = 0
}

// degenerate cells are dry, breaking, or next to a dry cell
func (pp *Projector) degenerate(c grid2D.Cell) bool {
	var (
		st = pp.State
	)
	if st.Wet.At(c.I, c.J) == 0 || st.Breaking.At(c.I, c.J) == 1 {
		return true
	}
	for _, d := range grid2D.Directions {
		di, dj := d.Offset()
		if st.Wet.At(c.I+di, c.J+dj) == 0 {
			return true
		}
	}
	return false
}
