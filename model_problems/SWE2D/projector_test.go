package SWE2D

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/notargets/gosflow/grid2D"
	"github.com/notargets/gosflow/halo2D"
	"github.com/notargets/gosflow/solver2D"
	"github.com/notargets/gosflow/utils"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDX    = 0.5
	testDT    = 0.01
	testAlpha = 0.5
)

func newTestProjector(Nx, Ny int, depth float64, method solver2D.Method) (pp *Projector, hook *test.Hook) {
	var (
		g      = grid2D.NewGrid(Nx, Ny, testDX)
		st     = grid2D.NewState(g)
		logger *logrus.Logger
	)
	st.FlatBasin(depth)
	st.DT = testDT
	logger, hook = test.NewNullLogger()
	pp = NewProjector(st, Config{Method: method, Gravity: -9.81, Blend: 1, ProgressPeriod: 1},
		solver2D.NewSolver(1.e-12, 2000), halo2D.NewLocal(g), nil, nil, logger)
	return
}

// stencilLHS evaluates row n of the assembled system against the pressure field
func stencilLHS(pp *Projector, n int) float64 {
	var (
		A = pp.A
		c = pp.Rows.Cells[n]
		p = pp.State.Press
	)
	return A.P[n]*p.At(c.I, c.J) + A.N[n]*p.At(c.I+1, c.J) + A.S[n]*p.At(c.I-1, c.J) +
		A.E[n]*p.At(c.I, c.J+1) + A.W[n]*p.At(c.I, c.J-1)
}

func TestBuildRHS(t *testing.T) {
	pp, _ := newTestProjector(3, 3, 1, solver2D.Direct)
	var (
		g       = pp.Grid
		st      = pp.State
		P, Q, w = g.NewSlice(), g.NewSlice(), g.NewSlice()
	)
	st.Press.Fill(3)
	for i := -1; i <= 3; i++ {
		for j := -1; j <= 3; j++ {
			P.Set(i, j, 0.1*float64(i))
			Q.Set(i, j, 0.2*float64(j))
			w.Set(i, j, 0.05)
			st.Depth.Set(i, j, 1+0.01*float64(i)+0.02*float64(j))
		}
	}
	pp.Rows = grid2D.NewRowMap(g)
	pp.BuildRHS(P, Q, w, testAlpha)
	require.Len(t, pp.RHS, 9)
	n := pp.Rows.Row(1, 1)
	expected := -(0.1*1+0.2*1)/(testAlpha*testDT*testDX) -
		2*(0.05+0.25*(0.1+0.0)*(0.02)/testDX+0.25*(0.2+0.0)*(0.04)/testDX)/(testAlpha*testDT)
	assert.InDelta(t, expected, pp.RHS[n], 1.e-10)
	g.Loop4(func(i, j int) { assert.Equal(t, 0., st.Press.At(i, j)) })
	assert.Equal(t, 3., st.Press.At(-1, 0))
}

func TestDefaultPolicy(t *testing.T) {
	ep := DefaultPolicy()
	assert.Equal(t, ZeroFlux, ep.Lookup(grid2D.IMinus, grid2D.Inflow))
	assert.Equal(t, ZeroFlux, ep.Lookup(grid2D.IPlus, grid2D.Inflow))
	assert.Equal(t, Dirichlet, ep.Lookup(grid2D.IPlus, grid2D.Outflow))
	assert.Equal(t, Dirichlet, ep.Lookup(grid2D.IMinus, grid2D.Wall))
	for bc := grid2D.Wall; bc <= grid2D.Outflow; bc++ {
		assert.Equal(t, Dirichlet, ep.Lookup(grid2D.JMinus, bc), bc.String())
		assert.Equal(t, Dirichlet, ep.Lookup(grid2D.JPlus, bc), bc.String())
	}
	var zero EliminationPolicy
	pp, _ := newTestProjector(2, 2, 1, solver2D.Direct)
	assert.Equal(t, DefaultPolicy(), pp.Policy)
	pp = NewProjector(pp.State, Config{Elimination: &zero}, pp.Solver, pp.Halo, nil, nil, nil)
	assert.Equal(t, Dirichlet, pp.Policy.Lookup(grid2D.IMinus, grid2D.Inflow))
	assert.NotPanics(t, ep.Print)
}

func TestAssemble_Symmetry(t *testing.T) {
	pp, _ := newTestProjector(5, 4, 2, solver2D.Direct)
	g := pp.Grid
	zero := g.NewSlice()
	pp.Rows = grid2D.NewRowMap(g)
	pp.BuildRHS(zero, zero, zero, testAlpha)
	pp.Assemble()
	sqd := 1 / (testDX * testDX)
	for n, c := range pp.Rows.Cells {
		if nn := pp.Rows.Row(c.I+1, c.J); nn >= 0 {
			assert.Equal(t, pp.A.N[n], pp.A.S[nn])
			assert.Equal(t, -2*sqd, pp.A.N[n])
		} else {
			assert.Equal(t, 0., pp.A.N[n])
		}
		if nn := pp.Rows.Row(c.I, c.J+1); nn >= 0 {
			assert.Equal(t, pp.A.E[n], pp.A.W[nn])
		} else {
			assert.Equal(t, 0., pp.A.E[n])
		}
		// Diagonal dominance
		off := pp.A.Offdiag(n)
		assert.Greater(t, pp.A.P[n], math.Abs(off[0])+math.Abs(off[1])+math.Abs(off[2])+math.Abs(off[3]))
		assert.InDelta(t, 8*sqd+1, pp.A.P[n], 1.e-12)
	}
}

func TestAssemble_BoundaryElimination(t *testing.T) {
	var (
		pb = 2.5
		pw = 7.
	)
	pp, _ := newTestProjector(4, 3, 1, solver2D.Direct)
	g, st := pp.Grid, pp.State
	g.SetSideClass(grid2D.IPlus, grid2D.Outflow)
	g.SetSideClass(grid2D.IMinus, grid2D.Inflow)
	for j := 0; j < g.Ny; j++ {
		st.Press.Set(g.Nx, j, pb)
		st.Press.Set(-1, j, pw)
	}
	w := g.NewSlice()
	w.Fill(0.1)
	zero := g.NewSlice()
	pp.Rows = grid2D.NewRowMap(g)
	pp.BuildRHS(zero, zero, w, testAlpha)
	before := append([]float64{}, pp.RHS...)
	pp.Assemble()

	coef := -1 / (testDX * testDX)
	for n, c := range pp.Rows.Cells {
		switch c.I {
		case g.Nx - 1:
			assert.InDelta(t, before[n]-coef*pb, pp.RHS[n], 1.e-10)
			assert.Equal(t, 0., pp.A.N[n])
			assert.Equal(t, coef, pp.A.S[n])
		case 0:
			// Inflow: coefficient dropped, rhs untouched
			assert.Equal(t, before[n], pp.RHS[n])
			assert.Equal(t, 0., pp.A.S[n])
		default:
			assert.Equal(t, before[n], pp.RHS[n])
		}
		if c.J == 0 {
			assert.Equal(t, 0., pp.A.W[n])
		}
		if c.J == g.Ny-1 {
			assert.Equal(t, 0., pp.A.E[n])
		}
	}
}

func TestAssemble_DegenerateRows(t *testing.T) {
	pp, _ := newTestProjector(6, 5, 1, solver2D.BiCGStab)
	g, st := pp.Grid, pp.State
	st.Wet.Set(2, 2, 0)
	st.Breaking.Set(4, 1, 1)
	w := g.NewSlice()
	w.Fill(0.2)
	P, Q := g.NewSlice(), g.NewSlice()
	pp.Start(P, Q, w, testAlpha)

	degenerate := []grid2D.Cell{{I: 2, J: 2}, {I: 1, J: 2}, {I: 3, J: 2}, {I: 2, J: 1}, {I: 2, J: 3}, {I: 4, J: 1}}
	for _, c := range degenerate {
		n := pp.Rows.Row(c.I, c.J)
		assert.Equal(t, [4]float64{}, pp.A.Offdiag(n))
		assert.Equal(t, 1., pp.A.P[n])
		assert.Equal(t, 0., pp.RHS[n])
		assert.Equal(t, 0., st.Press.At(c.I, c.J))
	}
	// The dry cell and the breaking cell keep their provisional vertical velocity
	assert.Equal(t, 0.2, w.At(2, 2))
	assert.Equal(t, 0.2, w.At(4, 1))
	assert.NotEqual(t, 0.2, w.At(0, 4))
}

func TestStart_StencilEquation(t *testing.T) {
	for _, method := range []solver2D.Method{solver2D.BiCGStab, solver2D.Direct} {
		pp, _ := newTestProjector(8, 6, 1, method)
		var (
			g       = pp.Grid
			st      = pp.State
			rng     = rand.New(rand.NewSource(7))
			P, Q, w = g.NewSlice(), g.NewSlice(), g.NewSlice()
		)
		g.SetSideClass(grid2D.IMinus, grid2D.Inflow)
		g.SetSideClass(grid2D.IPlus, grid2D.Outflow)
		for n := range P.V {
			P.V[n] = 0.1 * rng.Float64()
			Q.V[n] = 0.1 * rng.Float64()
			w.V[n] = 0.01 * rng.Float64()
			st.Depth.V[n] = 1 + 0.1*rng.Float64()
			st.Hp.V[n] = st.Depth.V[n] + 0.01*rng.Float64()
			st.Press.V[n] = 0.3
		}
		st.Wet.Set(3, 3, 0)
		st.Breaking.Set(5, 1, 1)
		pp.Start(P, Q, w, testAlpha)
		require.True(t, pp.Result.Converged, method.String())

		var bnorm float64
		for _, b := range pp.RHS {
			bnorm += b * b
		}
		bnorm = math.Sqrt(bnorm)
		for n, c := range pp.Rows.Cells {
			assert.InDelta(t, pp.RHS[n], stencilLHS(pp, n), 1.e-9*bnorm, "row %d cell %v", n, c)
			if pp.degenerate(c) {
				assert.InDelta(t, 0., st.Press.At(c.I, c.J), 1.e-12)
			}
		}
		assert.Equal(t, 0.3, st.Press.At(g.Nx, 2))
	}
}

func TestCorrectors(t *testing.T) {
	pp, _ := newTestProjector(4, 4, 1, solver2D.Direct)
	var (
		g       = pp.Grid
		st      = pp.State
		P, Q, w = g.NewSlice(), g.NewSlice(), g.NewSlice()
	)
	for i := -1; i <= 4; i++ {
		for j := -1; j <= 4; j++ {
			st.Press.Set(i, j, float64(i+2*j))
			st.Depth.Set(i, j, 1+0.1*float64(i))
			st.Hp.Set(i, j, 1+0.1*float64(i))
		}
	}
	P.Fill(1)
	Q.Fill(2)
	w.Fill(3)
	P0, Q0, w0 := P.Copy(), Q.Copy(), w.Copy()

	// Idempotent for alpha = 0
	pp.UCorr(P, 0)
	pp.VCorr(Q, 0)
	pp.WCorr(w, 0)
	assert.Equal(t, P0.V, P.V)
	assert.Equal(t, Q0.V, Q.V)
	assert.Equal(t, w0.V, w.V)

	pp.UCorr(P, testAlpha)
	pp.VCorr(Q, testAlpha)
	pp.WCorr(w, testAlpha)
	ad := testAlpha * testDT
	hx := 0.5 * (1.1 + 1.2)
	assert.InDelta(t, 1-ad*(1/testDX)+ad*((4+3)*0.1)/(testDX*hx), P.At(1, 1), 1.e-12)
	assert.InDelta(t, 2-ad*(2/testDX), Q.At(1, 1), 1.e-12)
	assert.InDelta(t, 3+ad*2*3/1.1, w.At(1, 1), 1.e-12)
	// Wall faces are not corrected
	assert.Equal(t, 1., P.At(3, 0))
	assert.Equal(t, 2., Q.At(0, 3))

	// Breaking on either side of a face blocks the face correction
	st.Breaking.Set(2, 1, 1)
	P.Fill(1)
	w.Fill(3)
	pp.UCorr(P, testAlpha)
	pp.WCorr(w, testAlpha)
	assert.Equal(t, 1., P.At(1, 1))
	assert.Equal(t, 1., P.At(2, 1))
	assert.Equal(t, 3., w.At(2, 1))
	assert.NotEqual(t, 1., P.At(0, 1))
}

func TestRowOrderShared(t *testing.T) {
	pp, _ := newTestProjector(5, 4, 1, solver2D.Direct)
	var (
		g      = pp.Grid
		st     = pp.State
		zero   = g.NewSlice()
		w      = g.NewSlice()
		encode = func(i, j int) float64 { return float64(100 + 10*i + j) }
	)
	g.Block(2, 2)
	pp.Rows = grid2D.NewRowMap(g)
	g.Loop4(func(i, j int) {
		w.Set(i, j, encode(i, j))
		st.Hp.Set(i, j, encode(i, j))
	})
	pp.BuildRHS(zero, zero, w, testAlpha)
	pp.Assemble()
	sqd := 1 / (testDX * testDX)
	for n, c := range pp.Rows.Cells {
		// rhs row n was built from cell c
		assert.InDelta(t, -2*encode(c.I, c.J)/(testAlpha*testDT), pp.RHS[n], 1.e-9)
		// the center coefficient of row n was built from the water column of cell c
		h := encode(c.I, c.J)
		assert.InDelta(t, 4*h*sqd+2/h, pp.A.P[n], 1.e-9)
	}
	// The blocked cell is outside the system and its neighbours eliminate it
	assert.Equal(t, -1, pp.Rows.Row(2, 2))
	assert.Equal(t, 0., pp.A.N[pp.Rows.Row(1, 2)])

	// Copy back goes through the same map
	rec := &recordingSolver{}
	pp.Solver = rec
	pp.Start(zero.Copy(), zero.Copy(), w, testAlpha)
	for n, c := range pp.Rows.Cells {
		assert.Equal(t, float64(n), st.Press.At(c.I, c.J))
	}
	assert.Equal(t, pp.Rows.Cells, rec.cells)
}

type recordingSolver struct {
	cells []grid2D.Cell
}

func (rs *recordingSolver) Solve(A *utils.Stencil5, rhs []float64, rm *grid2D.RowMap, x *grid2D.Slice,
	method solver2D.Method) (res solver2D.Result) {
	rs.cells = append([]grid2D.Cell{}, rm.Cells...)
	v := make([]float64, rm.Len())
	for n := range v {
		v[n] = float64(n)
	}
	rm.Scatter(v, x)
	res.Converged = true
	return
}

func TestStart_UniformBasin(t *testing.T) {
	var (
		w0 = 0.1
		h  = 1.
	)
	pp, hook := newTestProjector(4, 4, h, solver2D.BiCGStab)
	var (
		g       = pp.Grid
		st      = pp.State
		P, Q, w = g.NewSlice(), g.NewSlice(), g.NewSlice()
		pStar   = -w0 * h * g.Metric / (testAlpha * testDT)
	)
	w.Fill(w0)
	wOld := w.Copy()
	// Boundary ghost cells carry the steady state pressure
	st.Press.Fill(pStar)
	pp.Start(P, Q, w, testAlpha)
	require.True(t, pp.Result.Converged)

	g.Loop4(func(i, j int) {
		assert.InDelta(t, pStar, st.Press.At(i, j), 1.e-8)
		// two level continuity: the corrected vertical velocity mirrors the provisional one
		assert.InDelta(t, 0., w.At(i, j)+w0, 1.e-9)
		assert.InDelta(t, 0., P.At(i, j), 1.e-10)
	})
	assert.InDelta(t, 0., pp.ContinuityDefect(P, Q, wOld, w), 1.e-9)
	// ws ghost cells follow the halo exchange
	assert.InDelta(t, -w0, w.At(-1, 2), 1.e-9)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, pp.Result.Iterations, hook.LastEntry().Data["piter"])
}

func TestStart_ContinuityInterior(t *testing.T) {
	pp, _ := newTestProjector(9, 7, 0.8, solver2D.BiCGStab)
	var (
		g       = pp.Grid
		P, Q, w = g.NewSlice(), g.NewSlice(), g.NewSlice()
		rng     = rand.New(rand.NewSource(11))
	)
	for n := range P.V {
		P.V[n] = 0.05 * (rng.Float64() - 0.5)
		Q.V[n] = 0.05 * (rng.Float64() - 0.5)
		w.V[n] = 0.01 * (rng.Float64() - 0.5)
	}
	wOld := w.Copy()
	pp.Start(P, Q, w, testAlpha)
	require.True(t, pp.Result.Converged)
	assert.Less(t, pp.ContinuityDefect(P, Q, wOld, w), 1.e-8)
}

func TestReport(t *testing.T) {
	pp, hook := newTestProjector(3, 3, 1, solver2D.Direct)
	g := pp.Grid
	w := g.NewSlice()
	w.Fill(0.01)
	pp.ProgressPeriod = 2
	pp.State.Count = 1
	pp.Start(g.NewSlice(), g.NewSlice(), w, testAlpha)
	assert.Empty(t, hook.Entries)
	pp.State.Count = 2
	pp.Start(g.NewSlice(), g.NewSlice(), w, testAlpha)
	assert.Len(t, hook.Entries, 1)

	// Only rank 0 reports
	hook.Reset()
	g.Rank = 1
	pp.Start(g.NewSlice(), g.NewSlice(), w, testAlpha)
	assert.Empty(t, hook.Entries)

	// A capped solve is accepted and reported as a warning
	g.Rank = 0
	pp.Method = solver2D.BiCGStab
	pp.Solver = solver2D.NewSolver(1.e-30, 1)
	pp.Start(g.NewSlice(), g.NewSlice(), w, testAlpha)
	require.False(t, pp.Result.Converged)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Data, "residual")
}

func TestGradients(t *testing.T) {
	pp, _ := newTestProjector(4, 3, 1, solver2D.Direct)
	var (
		g         = pp.Grid
		st        = pp.State
		eta, etaN = g.NewSlice(), g.NewSlice()
		rec       = &recordingPatch{}
	)
	pp.Patch = rec
	pp.Blend = 0.25
	for i := -1; i <= 4; i++ {
		for j := -1; j <= 3; j++ {
			eta.Set(i, j, 0.1*float64(i)+0.2*float64(j))
			etaN.Set(i, j, 0.3*float64(i))
		}
	}
	st.L.Fill(5)
	pp.UPGrad(eta, etaN)
	pp.VPGrad(eta, etaN)
	pp.WPGrad()
	slopeX := (0.25*0.1 + 0.75*0.3) / testDX
	slopeY := (0.25 * 0.2) / testDX
	assert.InDelta(t, -9.81*slopeX, st.F.At(1, 1), 1.e-12)
	assert.InDelta(t, -9.81*slopeY, st.G.At(1, 1), 1.e-12)
	assert.Equal(t, 0., st.F.At(3, 1)) // wall face
	assert.Equal(t, 0., st.L.At(2, 2))
	assert.Equal(t, 5., st.L.At(-1, 0))
	assert.Equal(t, 1, rec.u)
	assert.Equal(t, 1, rec.v)

	// Dry faces get no forcing
	st.F.Fill(0)
	st.Wet.Set(2, 1, 0)
	pp.UPGrad(eta, etaN)
	assert.Equal(t, 0., st.F.At(1, 1))
	assert.Equal(t, 0., st.F.At(2, 1))
	assert.NotEqual(t, 0., st.F.At(1, 0))
}

func TestGradients_DryNeighborOverride(t *testing.T) {
	var (
		g  = grid2D.NewGrid(4, 2, testDX)
		st = grid2D.NewState(g)
	)
	g.SetSideClass(grid2D.IPlus, grid2D.Outflow)
	st.FlatBasin(2)
	pp := NewProjector(st, Config{Gravity: 9.81, Blend: 1, DryFloor: 0.05, DryNeighborCorrection: true},
		nil, halo2D.NewLocal(g), nil, nil, nil)
	eta, etaN := g.NewSlice(), g.NewSlice()
	eta.Fill(0.1)
	eta.Set(g.Nx, 0, 1000) // invalid elevation beyond the outflow
	eta.Set(g.Nx, 1, 1000)
	pp.UPGrad(eta, etaN)
	for j := 0; j < g.Ny; j++ {
		assert.InDelta(t, -9.81*((-2-0.05)-0.1)/testDX, st.F.At(g.Nx-1, j), 1.e-9)
		assert.Equal(t, 0., st.F.At(1, j))
	}

	// Disabled, the outflow faces see the raw elevation
	st.F.Fill(0)
	pp.DryNeighborCorrection = false
	pp.UPGrad(eta, etaN)
	assert.InDelta(t, -9.81*(1000-0.1)/testDX, st.F.At(g.Nx-1, 0), 1.e-9)
}

type recordingPatch struct {
	u, v int
}

func (rp *recordingPatch) PressureUGrad(*grid2D.State, *grid2D.Slice, *grid2D.Slice) { rp.u++ }
func (rp *recordingPatch) PressureVGrad(*grid2D.State, *grid2D.Slice, *grid2D.Slice) { rp.v++ }

// fillGlobal sets every cell of f, ghosts included, from a function of the global index
func fillGlobal(g *grid2D.Grid, f *grid2D.Slice, fn func(gi, j int) float64) {
	for i := -g.Margin; i < g.Nx+g.Margin; i++ {
		for j := -g.Margin; j < g.Ny+g.Margin; j++ {
			f.Set(i, j, fn(g.IOffset+i, j))
		}
	}
}

type startFields struct {
	P, Q, W, WOld *grid2D.Slice
}

func newStartFields(g *grid2D.Grid) (sf *startFields) {
	sf = &startFields{P: g.NewSlice(), Q: g.NewSlice(), W: g.NewSlice()}
	fillGlobal(g, sf.P, func(gi, j int) float64 { return 0.02 * math.Cos(float64(gi+2*j)) })
	fillGlobal(g, sf.Q, func(gi, j int) float64 { return 0.01 * math.Sin(float64(gi*j)) })
	fillGlobal(g, sf.W, func(gi, j int) float64 { return 0.01 * math.Sin(float64(gi)) })
	sf.WOld = sf.W.Copy()
	return
}

func newBasinProjector(g *grid2D.Grid, s *solver2D.Solver, halo Halo) (pp *Projector) {
	st := grid2D.NewState(g)
	st.FlatBasin(1)
	st.DT = testDT
	logger, _ := test.NewNullLogger()
	return NewProjector(st, Config{Method: solver2D.BiCGStab}, s, halo, nil, nil, logger)
}

func TestStart_Partitioned(t *testing.T) {
	var (
		global = grid2D.NewGrid(12, 5, testDX)
		ref    = newStartFields(global)
		ppRef  = newBasinProjector(global, solver2D.NewSolver(1.e-13, 500), halo2D.NewLocal(global))
	)
	ppRef.Start(ref.P, ref.Q, ref.W, testAlpha)
	require.True(t, ppRef.Result.Converged)
	require.Less(t, ppRef.ContinuityDefect(ref.P, ref.Q, ref.WOld, ref.W), 1.e-8)

	for _, NP := range []int{2, 3} {
		var (
			pm      = utils.NewPartitionMap(NP, global.Nx)
			grids   = make([]*grid2D.Grid, NP)
			pps     = make([]*Projector, NP)
			fields  = make([]*startFields, NP)
			defects = make([]float64, NP)
			wg      sync.WaitGroup
		)
		for rank := 0; rank < NP; rank++ {
			grids[rank] = global.Subdomain(pm, rank)
		}
		pt := halo2D.NewPartitioned(grids)
		for rank := 0; rank < NP; rank++ {
			rx := pt.Rank(rank)
			pps[rank] = newBasinProjector(grids[rank], solver2D.NewPartitionedSolver(1.e-12, 500, rx), rx)
			fields[rank] = newStartFields(grids[rank])
		}
		wg.Add(NP)
		for rank := 0; rank < NP; rank++ {
			go func(rank int) {
				defer wg.Done()
				var (
					pp = pps[rank]
					sf = fields[rank]
				)
				pp.Start(sf.P, sf.Q, sf.W, testAlpha)
				pp.Halo.Exchange(sf.P, grid2D.ClassU)
				pp.Halo.Exchange(sf.Q, grid2D.ClassV)
				defects[rank] = pp.ContinuityDefect(sf.P, sf.Q, sf.WOld, sf.W)
			}(rank)
		}
		wg.Wait()

		nx := 0
		for rank := 0; rank < NP; rank++ {
			var (
				g  = grids[rank]
				pp = pps[rank]
				sf = fields[rank]
			)
			nx += g.Nx
			assert.True(t, pp.Result.Converged, "NP %d rank %d", NP, rank)
			assert.Equal(t, pps[0].Result.Iterations, pp.Result.Iterations)
			assert.Less(t, defects[rank], 1.e-8, "NP %d rank %d", NP, rank)
			// The partitioned run reproduces the single domain solution
			g.Loop4(func(i, j int) {
				gi := g.IOffset + i
				assert.InDelta(t, ppRef.State.Press.At(gi, j), pp.State.Press.At(i, j), 1.e-8,
					"NP %d pressure (%d,%d)", NP, gi, j)
				assert.InDelta(t, ref.W.At(gi, j), sf.W.At(i, j), 1.e-8, "NP %d w (%d,%d)", NP, gi, j)
				assert.InDelta(t, ref.P.At(gi, j), sf.P.At(i, j), 1.e-8, "NP %d P (%d,%d)", NP, gi, j)
				assert.InDelta(t, ref.Q.At(gi, j), sf.Q.At(i, j), 1.e-8, "NP %d Q (%d,%d)", NP, gi, j)
			})
		}
		assert.Equal(t, global.Nx, nx)
		// Interface ghosts hold the neighbour's corrected values
		for rank := 0; rank < NP-1; rank++ {
			var (
				gl   = grids[rank]
				l, r = pps[rank], pps[rank+1]
			)
			for j := 0; j < global.Ny; j++ {
				assert.Equal(t, r.State.Press.At(0, j), l.State.Press.At(gl.Nx, j))
				assert.Equal(t, l.State.Press.At(gl.Nx-1, j), r.State.Press.At(-1, j))
				assert.Equal(t, fields[rank+1].W.At(0, j), fields[rank].W.At(gl.Nx, j))
				assert.Equal(t, fields[rank].W.At(gl.Nx-1, j), fields[rank+1].W.At(-1, j))
			}
		}
	}
}
