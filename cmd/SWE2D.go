/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/notargets/gosflow/InputParameters"
	"github.com/notargets/gosflow/flow2D"
	"github.com/notargets/gosflow/grid2D"
	"github.com/notargets/gosflow/halo2D"
	"github.com/notargets/gosflow/model_problems/SWE2D"
	"github.com/notargets/gosflow/patchBC"
	"github.com/notargets/gosflow/solver2D"
	"github.com/notargets/gosflow/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type ModelSWE2D struct {
	ICFile     string
	Partitions int // Overrides the input file when positive
	Steps      int // Overrides the input file when positive
}

// SWE2DCmd represents the SWE2D command
var SWE2DCmd = &cobra.Command{
	Use:   "SWE2D",
	Short: "Two dimensional non-hydrostatic shallow water pressure projection",
	Long: `Runs the pressure projection of the linearised non-hydrostatic shallow water equations
over a rectangular basin described by a YAML input file. With more than one partition the
basin is split along x and every partition runs in its own goroutine.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
			ip  *InputParameters.InputParametersSWE2D
		)
		m := &ModelSWE2D{}
		if m.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		m.Partitions = viper.GetInt("partitions")
		m.Steps = viper.GetInt("steps")
		if ip, err = processInputSWE2D(m); err != nil {
			logrus.Error(err)
			os.Exit(1)
		}
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			ip.Print()
		}
		if _, err = RunSWE2D(ip, logrus.StandardLogger()); err != nil {
			logrus.Error(err)
			os.Exit(1)
		}
	},
}

func processInputSWE2D(m *ModelSWE2D) (ip *InputParameters.InputParametersSWE2D, err error) {
	var data []byte
	if len(m.ICFile) == 0 {
		exampleFile := `
########################################
Title: "Flat basin"
Nx: 40
Ny: 10
DX: 0.1
DT: 0.01
Alpha: 0.5
Depth: 1.
InitialW: 0.001
Solver:
  Method: BiCGStab # Can be CG or Direct
  Tolerance: 1.0e-10
BCs:
  West: Inflow
  East: Outflow
  OutflowPressure: 0.
Steps: 10
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		return
	}
	if data, err = os.ReadFile(m.ICFile); err != nil {
		return
	}
	ip = InputParameters.NewInputParametersSWE2D()
	if err = ip.Parse(data); err != nil {
		return
	}
	if m.Partitions > 0 {
		ip.Partitions = m.Partitions
	}
	if m.Steps > 0 {
		ip.Steps = m.Steps
	}
	err = ip.Validate()
	return
}

func init() {
	rootCmd.AddCommand(SWE2DCmd)
	SWE2DCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- Nx, Ny, DX\n\t- DT, Alpha\n\t- BCs")
	SWE2DCmd.Flags().IntP("partitions", "p", 0, "number of partitions along x, each solved concurrently")
	SWE2DCmd.Flags().IntP("steps", "n", 0, "number of projection steps")
	_ = viper.BindPFlag("partitions", SWE2DCmd.Flags().Lookup("partitions"))
	_ = viper.BindPFlag("steps", SWE2DCmd.Flags().Lookup("steps"))
}

// Summary of a run, solver figures are those of rank 0
type Summary struct {
	Steps      int
	Iterations int
	Converged  bool
	MaxDefect  float64 // Largest continuity defect over all steps and ranks
	Elapsed    time.Duration
}

// RankSWE2D holds the fields and the projector of one partition
type RankSWE2D struct {
	Grid      *grid2D.Grid
	State     *grid2D.State
	Projector *SWE2D.Projector
	Halo      SWE2D.Halo
	P, Q, W   *grid2D.Slice
	Eta, EtaN *grid2D.Slice
}

// NewGridSWE2D builds the global grid with the boundary classes of the input
func NewGridSWE2D(ip *InputParameters.InputParametersSWE2D) (g *grid2D.Grid, err error) {
	var (
		sides = [4]string{
			grid2D.IMinus: ip.BCs.West,
			grid2D.IPlus:  ip.BCs.East,
			grid2D.JMinus: ip.BCs.South,
			grid2D.JPlus:  ip.BCs.North,
		}
		bc grid2D.BoundaryClass
	)
	g = grid2D.NewGrid(ip.Nx, ip.Ny, ip.DX)
	g.Metric, g.XDir, g.YDir = ip.Metric, ip.XDir, ip.YDir
	for _, side := range grid2D.Directions {
		if bc, err = grid2D.NewBoundaryClass(sides[side]); err != nil {
			return nil, fmt.Errorf("boundary %s: %w", side, err)
		}
		g.SetSideClass(side, bc)
	}
	return
}

// NewRanksSWE2D splits the global grid along x and wires one projector per partition
func NewRanksSWE2D(ip *InputParameters.InputParametersSWE2D, log logrus.FieldLogger) (ranks []*RankSWE2D, err error) {
	var (
		global *grid2D.Grid
		NP     = ip.Partitions
		grids  = make([]*grid2D.Grid, NP)
		halos  = make([]SWE2D.Halo, NP)
		comms  = make([]solver2D.Comm, NP)
	)
	if global, err = NewGridSWE2D(ip); err != nil {
		return
	}
	if NP == 1 {
		grids[0] = global
		halos[0] = halo2D.NewLocal(global)
	} else {
		pm := utils.NewPartitionMap(NP, global.Nx)
		for rank := 0; rank < NP; rank++ {
			grids[rank] = global.Subdomain(pm, rank)
			if grids[rank].Nx < global.Margin {
				return nil, fmt.Errorf("partition %d has %d columns, at least %d are needed",
					rank, grids[rank].Nx, global.Margin)
			}
		}
		pt := halo2D.NewPartitioned(grids)
		for rank := 0; rank < NP; rank++ {
			rx := pt.Rank(rank)
			halos[rank], comms[rank] = rx, rx
		}
	}
	ranks = make([]*RankSWE2D, NP)
	for rank := 0; rank < NP; rank++ {
		if ranks[rank], err = newRankSWE2D(ip, grids[rank], halos[rank], comms[rank], log); err != nil {
			return nil, err
		}
	}
	return
}

// newRankSWE2D wires the projector of one partition, comm is nil for an unpartitioned grid
func newRankSWE2D(ip *InputParameters.InputParametersSWE2D, g *grid2D.Grid, halo SWE2D.Halo,
	comm solver2D.Comm, log logrus.FieldLogger) (r *RankSWE2D, err error) {
	var (
		method  solver2D.Method
		zones   []flow2D.Zone
		patches []patchBC.Patch
		solver  *solver2D.Solver
	)
	if method, err = solver2D.NewMethod(ip.Solver.Method); err != nil {
		return
	}
	if comm == nil {
		solver = solver2D.NewSolver(ip.Solver.Tolerance, ip.Solver.MaxIterations)
	} else {
		if method == solver2D.Direct {
			return nil, fmt.Errorf("solver method %s needs a single partition, have %d", method, ip.Partitions)
		}
		solver = solver2D.NewPartitionedSolver(ip.Solver.Tolerance, ip.Solver.MaxIterations, comm)
	}
	if zones, err = relaxZones(ip.RelaxZones); err != nil {
		return
	}
	if patches, err = patchList(ip.Patches); err != nil {
		return
	}
	st := grid2D.NewState(g)
	st.FlatBasin(ip.Depth)
	st.DT = ip.DT
	if ip.WetDry > 0 {
		st.UpdateWetDry(ip.WetDry)
	}
	holdOutflowPressure(g, st.Press, ip.BCs.OutflowPressure)

	r = &RankSWE2D{
		Grid:  g,
		State: st,
		Halo:  halo,
		P:     g.NewSlice(),
		Q:     g.NewSlice(),
		W:     g.NewSlice(),
		Eta:   g.NewSlice(),
	}
	g.Loop4(func(i, j int) { r.W.Set(i, j, ip.InitialW) })
	for n := range r.Eta.V {
		r.Eta.V[n] = st.Hp.V[n] + st.Bed.V[n]
	}
	r.EtaN = r.Eta.Copy()
	r.Projector = SWE2D.NewProjector(st,
		SWE2D.Config{
			Method:                method,
			Gravity:               ip.Gravity,
			Blend:                 ip.Blend,
			DryFloor:              ip.DryFloor,
			DryNeighborCorrection: ip.DryNeighborCorrection,
			ProgressPeriod:        ip.ProgressPeriod,
		},
		solver,
		halo,
		flow2D.NewRelaxation(g, zones...),
		patchBC.NewPatches(g, ip.Gravity, ip.Blend, patches...),
		log.WithField("rank", g.Rank),
	)
	return
}

func relaxZones(zp []InputParameters.ZoneParameters) (zones []flow2D.Zone, err error) {
	for i, z := range zp {
		var outer grid2D.Direction
		switch z.Outer {
		case "West", "west":
			outer = grid2D.IMinus
		case "East", "east":
			outer = grid2D.IPlus
		default:
			return nil, fmt.Errorf("relaxation zone %d: outer side %q must be West or East", i, z.Outer)
		}
		if z.XEnd <= z.XStart {
			return nil, fmt.Errorf("relaxation zone %d: XEnd %8.5f must exceed XStart %8.5f", i, z.XEnd, z.XStart)
		}
		zones = append(zones, flow2D.Zone{XStart: z.XStart, XEnd: z.XEnd, Target: z.Target, Outer: outer})
	}
	return
}

func patchList(pp []InputParameters.PatchParameters) (patches []patchBC.Patch, err error) {
	for i, p := range pp {
		var kind patchBC.Kind
		if kind, err = patchBC.NewKind(p.Kind); err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
		patches = append(patches, patchBC.Patch{
			IMin: p.IMin, IMax: p.IMax, JMin: p.JMin, JMax: p.JMax, Kind: kind, Level: p.Level})
	}
	return
}

// holdOutflowPressure sets the ghost pressure of outflow boundaries, it stays in place
// through the pressure halo exchanges
func holdOutflowPressure(g *grid2D.Grid, press *grid2D.Slice, pb float64) {
	for i := -g.Margin; i < g.Nx+g.Margin; i++ {
		for j := -g.Margin; j < g.Ny+g.Margin; j++ {
			if g.Boundary(i, j) && g.Class(i, j) == grid2D.Outflow {
				press.Set(i, j, pb)
			}
		}
	}
}

// Step accumulates the surface gradient forcing into the provisional fields, then
// projects them. It returns the continuity defect left by the projection.
func (r *RankSWE2D) Step(count int, alpha float64) (defect float64) {
	var (
		st = r.State
		pp = r.Projector
		ad = alpha * st.DT
	)
	st.Count = count
	st.F.Fill(0)
	st.G.Fill(0)
	pp.UPGrad(r.Eta, r.EtaN)
	pp.VPGrad(r.Eta, r.EtaN)
	pp.WPGrad()
	r.Grid.Loop4(func(i, j int) {
		r.P.Add(i, j, ad*st.F.At(i, j))
		r.Q.Add(i, j, ad*st.G.At(i, j))
		r.W.Add(i, j, ad*st.L.At(i, j))
	})
	r.Halo.Exchange(r.P, grid2D.ClassU)
	r.Halo.Exchange(r.Q, grid2D.ClassV)

	wOld := r.W.Copy()
	pp.Start(r.P, r.Q, r.W, alpha)
	// Interface faces of the neighbour were corrected after the last exchange
	r.Halo.Exchange(r.P, grid2D.ClassU)
	r.Halo.Exchange(r.Q, grid2D.ClassV)
	return pp.ContinuityDefect(r.P, r.Q, wOld, r.W)
}

// stepRanks advances every rank concurrently and returns the largest continuity defect
func stepRanks(ranks []*RankSWE2D, steps int, alpha float64) (defect float64) {
	var (
		defects = make([]float64, len(ranks))
		wg      sync.WaitGroup
	)
	wg.Add(len(ranks))
	for rank, r := range ranks {
		go func(rank int, r *RankSWE2D) {
			defer wg.Done()
			for step := 0; step < steps; step++ {
				defects[rank] = math.Max(defects[rank], r.Step(step, alpha))
			}
		}(rank, r)
	}
	wg.Wait()
	for _, d := range defects {
		defect = math.Max(defect, d)
	}
	return
}

// RunSWE2D runs ip.Steps projections on every partition concurrently
func RunSWE2D(ip *InputParameters.InputParametersSWE2D, log logrus.FieldLogger) (sum Summary, err error) {
	var (
		ranks []*RankSWE2D
		start = time.Now()
	)
	if ranks, err = NewRanksSWE2D(ip, log); err != nil {
		return
	}
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		ranks[0].Projector.Policy.Print()
	}
	sum.MaxDefect = stepRanks(ranks, ip.Steps, ip.Alpha)
	for rank, r := range ranks {
		if utils.IsNan(r.State.Press.V) || utils.IsNan(r.P.V) || utils.IsNan(r.Q.V) || utils.IsNan(r.W.V) {
			err = fmt.Errorf("rank %d: solution diverged within %d steps", rank, ip.Steps)
			return
		}
	}

	sum.Steps = ip.Steps
	sum.Iterations = ranks[0].Projector.Result.Iterations
	sum.Converged = ranks[0].Projector.Result.Converged || ip.Steps == 0
	sum.Elapsed = time.Since(start)
	alloc, sys, numGC := utils.MemUsage()
	log.WithFields(logrus.Fields{
		"title":      ip.Title,
		"steps":      sum.Steps,
		"partitions": len(ranks),
		"defect":     sum.MaxDefect,
		"elapsed":    sum.Elapsed.Seconds(),
		"allocMiB":   alloc,
		"sysMiB":     sys,
		"numGC":      numGC,
	}).Info("run complete")
	return
}
