package SWE2D

import (
	"github.com/notargets/gosflow/grid2D"
	"github.com/notargets/gosflow/utils"
)

// BuildRHS computes the continuity residual of the provisional P, Q and ws for every row
// and zeroes the pressure on the same cells; the pressure is never updated incrementally.
func (pp *Projector) BuildRHS(P, Q, ws *grid2D.Slice, alpha float64) {
	var (
		st = pp.State
		dx = pp.Grid.DX
		dt = st.DT
	)
	if pp.Rows == nil {
		pp.Rows = grid2D.NewRowMap(pp.Grid)
	}
	pp.RHS = make([]float64, pp.Rows.Len())
	pp.A = utils.NewStencil5(pp.Rows.Len())
	for n, c := range pp.Rows.Cells {
		i, j := c.I, c.J
		h := st.Hp.At(i, j)
		pp.RHS[n] = -((P.At(i, j)-P.At(i-1, j))*h+(Q.At(i, j)-Q.At(i, j-1))*h)/(alpha*dt*dx) -
			2*(ws.At(i, j)+
				0.25*(P.At(i, j)+P.At(i-1, j))*(st.Depth.At(i+1, j)-st.Depth.At(i-1, j))/dx+
				0.25*(Q.At(i, j)+Q.At(i, j-1))*(st.Depth.At(i, j+1)-st.Depth.At(i, j-1))/dx)/(alpha*dt)
		st.Press.Set(i, j, 0)
	}
}
