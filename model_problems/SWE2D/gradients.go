package SWE2D

import (
	"math"

	"github.com/notargets/gosflow/grid2D"
)

func (pp *Projector) elevation(eta, etaN *grid2D.Slice, i, j int) float64 {
	return pp.Blend*eta.At(i, j) + (1-pp.Blend)*etaN.At(i, j)
}

func (pp *Projector) surfaceGradient(eta, etaN *grid2D.Slice, i, j, di, dj int) float64 {
	return (pp.elevation(eta, etaN, i+di, j+dj) - pp.elevation(eta, etaN, i, j)) / pp.Grid.DX
}

// UPGrad adds the surface elevation gradient to the P forcing accumulator F
func (pp *Projector) UPGrad(eta, etaN *grid2D.Slice) {
	var (
		st   = pp.State
		grav = math.Abs(pp.Gravity)
	)
	pp.Grid.Loop1(func(i, j int) {
		if st.Wet.At(i, j) == 0 || st.Wet.At(i+1, j) == 0 {
			return
		}
		st.F.Add(i, j, -grav*pp.surfaceGradient(eta, etaN, i, j, 1, 0))
	})
	if pp.DryNeighborCorrection {
		pp.applyOverrides(eta, etaN)
	}
	pp.Patch.PressureUGrad(st, eta, etaN)
}

// applyOverrides replaces the elevation beyond the outflow cells by the floored bed level
func (pp *Projector) applyOverrides(eta, etaN *grid2D.Slice) {
	var (
		st   = pp.State
		grav = math.Abs(pp.Gravity)
	)
	for _, c := range pp.overrides {
		i, j := c.I, c.J
		if st.Wet.At(i, j) == 0 || st.Wet.At(i+1, j) == 0 {
			continue
		}
		substitute := st.Bed.At(i, j) - pp.DryFloor
		st.F.Add(i, j, grav*pp.surfaceGradient(eta, etaN, i, j, 1, 0))
		st.F.Add(i, j, -grav*(substitute-pp.elevation(eta, etaN, i, j))/pp.Grid.DX)
	}
}

// VPGrad adds the surface elevation gradient to the Q forcing accumulator G
func (pp *Projector) VPGrad(eta, etaN *grid2D.Slice) {
	var (
		st   = pp.State
		grav = math.Abs(pp.Gravity)
	)
	pp.Grid.Loop2(func(i, j int) {
		if st.Wet.At(i, j) == 0 || st.Wet.At(i, j+1) == 0 {
			return
		}
		st.G.Add(i, j, -grav*pp.surfaceGradient(eta, etaN, i, j, 0, 1))
	})
	pp.Patch.PressureVGrad(st, eta, etaN)
}

// WPGrad resets the ws forcing accumulator, vertical forcing has no surface gradient part
func (pp *Projector) WPGrad() {
	pp.Grid.Loop4(func(i, j int) {
		pp.State.L.Set(i, j, 0)
	})
}
