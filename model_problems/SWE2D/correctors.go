package SWE2D

import (
	"github.com/notargets/gosflow/grid2D"
)

// faceHeight is the mean of the floored water columns on both sides of a face
func (pp *Projector) faceHeight(i, j, di, dj int) float64 {
	hp := pp.State.Hp
	return 0.5 * (hpFloor(hp.At(i, j)) + hpFloor(hp.At(i+di, j+dj)))
}

// UCorr applies the pressure gradient to P on the wet u faces
func (pp *Projector) UCorr(P *grid2D.Slice, alpha float64) {
	pp.Grid.Loop1(func(i, j int) {
		pp.faceCorr(P, alpha, i, j, 1, 0)
	})
}

// VCorr applies the pressure gradient to Q on the wet v faces
func (pp *Projector) VCorr(Q *grid2D.Slice, alpha float64) {
	pp.Grid.Loop2(func(i, j int) {
		pp.faceCorr(Q, alpha, i, j, 0, 1)
	})
}

func (pp *Projector) faceCorr(U *grid2D.Slice, alpha float64, i, j, di, dj int) {
	var (
		st     = pp.State
		g      = pp.Grid
		dt     = st.DT
		press  = st.Press
		depth  = st.Depth
		i1, j1 = i + di, j + dj
	)
	if st.Wet.At(i, j) == 0 || st.Wet.At(i1, j1) == 0 {
		return
	}
	if st.Breaking.At(i, j) != 0 || st.Breaking.At(i1, j1) != 0 {
		return
	}
	U.Add(i, j, -alpha*dt*((press.At(i1, j1)-press.At(i, j))/(g.DX*g.Metric))+
		alpha*dt*((press.At(i1, j1)+press.At(i, j))*(depth.At(i1, j1)-depth.At(i, j))/
			(g.DX*pp.faceHeight(i, j, di, dj)*g.Metric)))
}

// WCorr applies the free surface pressure term to the vertical velocity
func (pp *Projector) WCorr(ws *grid2D.Slice, alpha float64) {
	var (
		st = pp.State
		g  = pp.Grid
	)
	g.Loop4(func(i, j int) {
		if st.Wet.At(i, j) == 0 || st.Breaking.At(i, j) != 0 {
			return
		}
		ws.Add(i, j, st.DT*alpha*(2*st.Press.At(i, j)/(hpFloor(st.Hp.At(i, j))*g.Metric)))
	})
}

// ContinuityDefect is the largest violation of the discrete continuity constraint over
// the non degenerate rows surrounded by active, non breaking cells:
//
//	h*(dP + dQ)/dx + wOld + wNew + bed slope terms = 0
func (pp *Projector) ContinuityDefect(P, Q, wOld, wNew *grid2D.Slice) (defect float64) {
	var (
		st = pp.State
		g  = pp.Grid
		dx = g.DX
	)
	g.Loop4(func(i, j int) {
		if pp.degenerate(grid2D.Cell{I: i, J: j}) {
			return
		}
		for _, d := range grid2D.Directions {
			di, dj := d.Offset()
			if !g.Active(i+di, j+dj) || st.Breaking.At(i+di, j+dj) != 0 {
				return
			}
		}
		h := st.Hp.At(i, j)
		r := ((P.At(i, j)-P.At(i-1, j))*h+(Q.At(i, j)-Q.At(i, j-1))*h)/dx +
			wOld.At(i, j) + wNew.At(i, j) +
			0.5*(P.At(i, j)+P.At(i-1, j))*(st.Depth.At(i+1, j)-st.Depth.At(i-1, j))/dx +
			0.5*(Q.At(i, j)+Q.At(i, j-1))*(st.Depth.At(i, j+1)-st.Depth.At(i, j-1))/dx
		if r < 0 {
			r = -r
		}
		if r > defect {
			defect = r
		}
	})
	return
}
