package SWE2D

import (
	"time"

	"github.com/notargets/gosflow/grid2D"
	"github.com/notargets/gosflow/solver2D"
	"github.com/notargets/gosflow/utils"
	"github.com/sirupsen/logrus"
)

/*
	The projector enforces the depth integrated continuity constraint of the linearised
	non-hydrostatic shallow water equations on one subdomain:
		- a 5 point system for the non-hydrostatic pressure is assembled over the active cells
		- the solution corrects the discharges P, Q and the vertical velocity ws
	The row of every cell is fixed once per call by a RowMap and shared by all passes.
*/

type LinearSolver interface {
	Solve(A *utils.Stencil5, rhs []float64, rm *grid2D.RowMap, x *grid2D.Slice,
		method solver2D.Method) solver2D.Result
}

type Halo interface {
	Exchange(f *grid2D.Slice, class grid2D.BCClass)
}

type Relaxer interface {
	Relax(f *grid2D.Slice)
}

type PatchBC interface {
	PressureUGrad(st *grid2D.State, eta, etaN *grid2D.Slice)
	PressureVGrad(st *grid2D.State, eta, etaN *grid2D.Slice)
}

type Config struct {
	Method                solver2D.Method
	Gravity               float64 // Only the magnitude is used
	Blend                 float64 // Weight of the current elevation in the surface gradient
	DryFloor              float64 // Depth below the bed used as elevation next to outflow cells
	DryNeighborCorrection bool
	ProgressPeriod        int                // Steps between progress lines, 0 disables them
	Elimination           *EliminationPolicy // nil selects DefaultPolicy
}

type Projector struct {
	Grid   *grid2D.Grid
	State  *grid2D.State
	Solver LinearSolver
	Halo   Halo
	Flow   Relaxer
	Patch  PatchBC
	Log    logrus.FieldLogger
	Config
	Policy EliminationPolicy
	// Rebuilt on every call
	Rows *grid2D.RowMap
	A    *utils.Stencil5
	RHS  []float64
	// Diagnostics of the last call
	Result               solver2D.Result
	SolveTime, TotalTime time.Duration
	overrides            []grid2D.Cell
}

type identity struct{}

func (identity) Relax(*grid2D.Slice)                                       {}
func (identity) PressureUGrad(*grid2D.State, *grid2D.Slice, *grid2D.Slice) {}
func (identity) PressureVGrad(*grid2D.State, *grid2D.Slice, *grid2D.Slice) {}

// NewProjector wires the collaborators of one subdomain, a nil flow or patch delegate
// leaves the fields untouched and a nil logger uses the logrus standard logger.
func NewProjector(st *grid2D.State, cfg Config, solver LinearSolver, halo Halo,
	flow Relaxer, patch PatchBC, log logrus.FieldLogger) (pp *Projector) {
	pp = &Projector{
		Grid:   st.Grid,
		State:  st,
		Solver: solver,
		Halo:   halo,
		Flow:   flow,
		Patch:  patch,
		Log:    log,
		Config: cfg,
	}
	if pp.Flow == nil {
		pp.Flow = identity{}
	}
	if pp.Patch == nil {
		pp.Patch = identity{}
	}
	if pp.Log == nil {
		pp.Log = logrus.StandardLogger()
	}
	if cfg.Elimination != nil {
		pp.Policy = *cfg.Elimination
	} else {
		pp.Policy = DefaultPolicy()
	}
	pp.overrides = pp.Grid.OutflowCells()
	return
}

// Start projects the provisional discharges P, Q and vertical velocity ws for the sub
// step weight alpha and time step State.DT. P, Q, ws and the pressure are updated in place.
func (pp *Projector) Start(P, Q, ws *grid2D.Slice, alpha float64) {
	var (
		st    = pp.State
		start = time.Now()
	)
	pp.Rows = grid2D.NewRowMap(pp.Grid)

	pp.BuildRHS(P, Q, ws, alpha)
	pp.Halo.Exchange(st.Press, grid2D.ClassPressure)

	pp.Assemble()

	solveStart := time.Now()
	pp.Result = pp.Solver.Solve(pp.A, pp.RHS, pp.Rows, st.Press, pp.Method)
	pp.SolveTime = time.Since(solveStart)

	pp.Flow.Relax(st.Press)
	pp.Halo.Exchange(st.Press, grid2D.ClassPressure)

	pp.UCorr(P, alpha)
	pp.VCorr(Q, alpha)
	pp.WCorr(ws, alpha)
	pp.Halo.Exchange(ws, grid2D.ClassW)

	pp.TotalTime = time.Since(start)
	pp.report()
}

func (pp *Projector) report() {
	if pp.Grid.Rank != 0 || pp.ProgressPeriod <= 0 || pp.State.Count%pp.ProgressPeriod != 0 {
		return
	}
	entry := pp.Log.WithFields(logrus.Fields{
		"step":     pp.State.Count,
		"piter":    pp.Result.Iterations,
		"solvtime": pp.SolveTime.Seconds(),
		"ptime":    pp.TotalTime.Seconds(),
	})
	if !pp.Result.Converged {
		entry.WithField("residual", pp.Result.Residual).Warn("pressure solver stopped before convergence")
		return
	}
	entry.Info("pressure projection")
}

// hpFloor replaces a vanishing water column so it can divide
func hpFloor(h float64) float64 {
	if h > 1.e-20 || h < -1.e-20 {
		return h
	}
	return 1.e20
}
