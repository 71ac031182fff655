package patchBC

import (
	"fmt"
	"math"

	"github.com/notargets/gosflow/grid2D"
)

type Kind uint8

const (
	Wall  Kind = iota // No surface gradient forcing across the patch faces
	Level             // Water level fixed at Patch.Level inside the patch
)

func NewKind(label string) (k Kind, err error) {
	switch label {
	case "Wall", "wall":
		k = Wall
	case "Level", "level":
		k = Level
	default:
		err = fmt.Errorf("unknown patch kind %q, must be Wall or Level", label)
	}
	return
}

// Patch covers global cells IMin <= i <= IMax, JMin <= j <= JMax
type Patch struct {
	IMin, IMax, JMin, JMax int
	Kind                   Kind
	Level                  float64
}

func (p Patch) contains(gi, j int) bool {
	return gi >= p.IMin && gi <= p.IMax && j >= p.JMin && j <= p.JMax
}

type Patches struct {
	Grid    *grid2D.Grid
	Gravity float64
	Blend   float64 // Weight of the current elevation against the previous sub step
	List    []Patch
}

func NewPatches(g *grid2D.Grid, gravity, blend float64, list ...Patch) *Patches {
	return &Patches{Grid: g, Gravity: gravity, Blend: blend, List: list}
}

func (pp *Patches) elevation(eta, etaN *grid2D.Slice, i, j int) float64 {
	return pp.Blend*eta.At(i, j) + (1-pp.Blend)*etaN.At(i, j)
}

// PressureUGrad adjusts F on the u faces that touch a patch
func (pp *Patches) PressureUGrad(st *grid2D.State, eta, etaN *grid2D.Slice) {
	pp.adjust(st, st.F, eta, etaN, 1, 0)
}

// PressureVGrad adjusts G on the v faces that touch a patch
func (pp *Patches) PressureVGrad(st *grid2D.State, eta, etaN *grid2D.Slice) {
	pp.adjust(st, st.G, eta, etaN, 0, 1)
}

func (pp *Patches) adjust(st *grid2D.State, acc, eta, etaN *grid2D.Slice, di, dj int) {
	if len(pp.List) == 0 {
		return
	}
	var (
		g    = pp.Grid
		grav = math.Abs(pp.Gravity)
		loop = g.Loop1
	)
	if dj == 1 {
		loop = g.Loop2
	}
	loop(func(i, j int) {
		if st.Wet.At(i, j) == 0 || st.Wet.At(i+di, j+dj) == 0 {
			return
		}
		gi := i + g.IOffset
		for _, p := range pp.List {
			in0, in1 := p.contains(gi, j), p.contains(gi+di, j+dj)
			if !in0 && !in1 {
				continue
			}
			// Remove the surface gradient added for this face and add the patch's own
			e0, e1 := pp.elevation(eta, etaN, i, j), pp.elevation(eta, etaN, i+di, j+dj)
			s0, s1 := e0, e1
			switch p.Kind {
			case Wall:
				s0, s1 = 0, 0
			case Level:
				if in0 {
					s0 = p.Level
				}
				if in1 {
					s1 = p.Level
				}
			}
			acc.Add(i, j, grav*((e1-e0)-(s1-s0))/g.DX)
			break // The first patch touching the face wins
		}
	})
}
