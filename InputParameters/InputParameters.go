package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

type SolverParameters struct {
	Method        string  `json:"Method"` // BiCGStab, CG or Direct
	Tolerance     float64 `json:"Tolerance"`
	MaxIterations int     `json:"MaxIterations"`
}

type BCParameters struct {
	West, East, South, North string  // Wall, Inflow or Outflow
	OutflowPressure          float64 // Ghost pressure held on Outflow sides
}

type ZoneParameters struct {
	XStart, XEnd float64
	Target       float64
	Outer        string // West or East, the side of the zone facing the boundary
}

type PatchParameters struct {
	IMin, IMax, JMin, JMax int
	Kind                   string // Wall or Level
	Level                  float64
}

// Parameters obtained from the YAML input file
type InputParametersSWE2D struct {
	Title                 string            `json:"Title"`
	Nx                    int               `json:"Nx"`
	Ny                    int               `json:"Ny"`
	DX                    float64           `json:"DX"`
	DT                    float64           `json:"DT"`
	Alpha                 float64           `json:"Alpha"` // Sub step weight
	Metric                float64           `json:"Metric"`
	Gravity               float64           `json:"Gravity"`
	Blend                 float64           `json:"Blend"`
	DryFloor              float64           `json:"DryFloor"`
	WetDry                float64           `json:"WetDry"` // Water column below which a cell is dry
	XDir                  float64           `json:"XDir"`
	YDir                  float64           `json:"YDir"`
	Depth                 float64           `json:"Depth"`
	InitialW              float64           `json:"InitialW"`
	Solver                SolverParameters  `json:"Solver"`
	ProgressPeriod        int               `json:"ProgressPeriod"`
	Partitions            int               `json:"Partitions"`
	Steps                 int               `json:"Steps"`
	DryNeighborCorrection bool              `json:"DryNeighborCorrection"`
	BCs                   BCParameters      `json:"BCs"`
	RelaxZones            []ZoneParameters  `json:"RelaxZones"`
	Patches               []PatchParameters `json:"Patches"`
}

// NewInputParametersSWE2D returns the defaults, keys present in the input file replace them
func NewInputParametersSWE2D() *InputParametersSWE2D {
	return &InputParametersSWE2D{
		Title:          "SWE2D",
		Alpha:          1,
		Metric:         1,
		Gravity:        9.81,
		Blend:          1,
		DryFloor:       0.00005,
		XDir:           1,
		YDir:           1,
		ProgressPeriod: 1,
		Partitions:     1,
		Steps:          1,
		Solver: SolverParameters{
			Method:        "BiCGStab",
			Tolerance:     1.e-10,
			MaxIterations: 1000,
		},
	}
}

func (ip *InputParametersSWE2D) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return fmt.Errorf("unable to parse input parameters: %w", err)
	}
	return ip.Validate()
}

func (ip *InputParametersSWE2D) Validate() (err error) {
	switch {
	case ip.Nx < 1 || ip.Ny < 1:
		err = fmt.Errorf("grid must have at least one cell in each direction, have Nx = %d, Ny = %d", ip.Nx, ip.Ny)
	case ip.DX <= 0:
		err = fmt.Errorf("DX must be positive, have %8.5f", ip.DX)
	case ip.DT <= 0:
		err = fmt.Errorf("DT must be positive, have %8.5f", ip.DT)
	case ip.Alpha <= 0:
		err = fmt.Errorf("Alpha must be positive, have %8.5f", ip.Alpha)
	case ip.Depth <= 0:
		err = fmt.Errorf("Depth must be positive, have %8.5f", ip.Depth)
	case ip.Metric <= 0:
		err = fmt.Errorf("Metric must be positive, have %8.5f", ip.Metric)
	case ip.Blend < 0 || ip.Blend > 1:
		err = fmt.Errorf("Blend must be in [0,1], have %8.5f", ip.Blend)
	case ip.Partitions < 1:
		err = fmt.Errorf("Partitions must be at least 1, have %d", ip.Partitions)
	case ip.Partitions > ip.Nx:
		err = fmt.Errorf("cannot split %d columns into %d partitions", ip.Nx, ip.Partitions)
	case ip.Steps < 0:
		err = fmt.Errorf("Steps must not be negative, have %d", ip.Steps)
	}
	return
}

func (ip *InputParametersSWE2D) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d x %d]\t\t= Grid cells\n", ip.Nx, ip.Ny)
	fmt.Printf("%8.5f\t\t= DX\n", ip.DX)
	fmt.Printf("%8.5f\t\t= DT\n", ip.DT)
	fmt.Printf("%8.5f\t\t= Alpha\n", ip.Alpha)
	fmt.Printf("%8.5f\t\t= Depth\n", ip.Depth)
	fmt.Printf("[%s]\t\t= Solver Method\n", ip.Solver.Method)
	fmt.Printf("%8.2e\t\t= Solver Tolerance\n", ip.Solver.Tolerance)
	fmt.Printf("[%d]\t\t\t= Partitions\n", ip.Partitions)
	fmt.Printf("[%d]\t\t\t= Steps\n", ip.Steps)
	fmt.Printf("BCs[West,East,South,North] = [%s,%s,%s,%s]\n", ip.BCs.West, ip.BCs.East, ip.BCs.South, ip.BCs.North)
	for i, z := range ip.RelaxZones {
		fmt.Printf("RelaxZones[%d] = %v\n", i, z)
	}
	for i, p := range ip.Patches {
		fmt.Printf("Patches[%d] = %v\n", i, p)
	}
}
