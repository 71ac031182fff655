package flow2D

import (
	"fmt"
	"math"

	"github.com/notargets/gosflow/grid2D"
)

// Zone relaxes a field towards Target between XStart and XEnd. The weight is 1 (no
// relaxation) at the inner edge and falls to 0 at the outer edge; Outer is the side of
// the zone facing the domain boundary.
type Zone struct {
	XStart, XEnd float64
	Target       float64
	Outer        grid2D.Direction // IMinus: outer edge at XStart, IPlus: outer edge at XEnd
}

type Relaxation struct {
	Grid  *grid2D.Grid
	Zones []Zone
}

func NewRelaxation(g *grid2D.Grid, zones ...Zone) (rx *Relaxation) {
	for _, z := range zones {
		if z.XEnd <= z.XStart {
			panic(fmt.Errorf("relaxation zone must have XEnd > XStart, have [%8.5f, %8.5f]", z.XStart, z.XEnd))
		}
		if z.Outer != grid2D.IMinus && z.Outer != grid2D.IPlus {
			panic(fmt.Errorf("relaxation zone outer side must be IMinus or IPlus, have %s", z.Outer))
		}
	}
	return &Relaxation{Grid: g, Zones: zones}
}

// Weight is the relaxation function r(xi) = 1 - (exp(xi^3.5) - 1)/(exp(1) - 1)
func Weight(xi float64) float64 {
	xi = math.Max(0, math.Min(1, xi))
	return 1 - (math.Exp(math.Pow(xi, 3.5))-1)/(math.E-1)
}

func (z Zone) xi(x float64) (xi float64, inside bool) {
	if x < z.XStart || x > z.XEnd {
		return
	}
	inside = true
	xi = (x - z.XStart) / (z.XEnd - z.XStart)
	if z.Outer == grid2D.IMinus {
		xi = 1 - xi
	}
	return
}

// Relax blends the active cells inside the zones towards the zone target
func (rx *Relaxation) Relax(f *grid2D.Slice) {
	if len(rx.Zones) == 0 {
		return
	}
	rx.Grid.Loop4(func(i, j int) {
		x := rx.Grid.XC(i)
		for _, z := range rx.Zones {
			if xi, inside := z.xi(x); inside {
				r := Weight(xi)
				f.Set(i, j, r*f.At(i, j)+(1-r)*z.Target)
			}
		}
	})
}
