package grid2D

import (
	"fmt"

	"github.com/notargets/gosflow/utils"
)

type Direction uint8

const (
	IMinus Direction = iota
	IPlus
	JMinus
	JPlus
)

var Directions = [4]Direction{IMinus, IPlus, JMinus, JPlus}

func (d Direction) Offset() (di, dj int) {
	switch d {
	case IMinus:
		return -1, 0
	case IPlus:
		return 1, 0
	case JMinus:
		return 0, -1
	case JPlus:
		return 0, 1
	}
	panic(fmt.Errorf("unknown direction %d", d))
}

// Lateral is true for the directions normal to the streamwise (i) axis
func (d Direction) Lateral() bool { return d == JMinus || d == JPlus }

func (d Direction) Opposite() Direction {
	switch d {
	case IMinus:
		return IPlus
	case IPlus:
		return IMinus
	case JMinus:
		return JPlus
	default:
		return JMinus
	}
}

func (d Direction) String() string {
	return [...]string{"IMinus", "IPlus", "JMinus", "JPlus"}[d]
}

// BoundaryClass classifies a cell outside the active domain
type BoundaryClass uint8

const (
	Wall BoundaryClass = iota
	Inflow
	Outflow
)

func (bc BoundaryClass) String() string {
	return [...]string{"Wall", "Inflow", "Outflow"}[bc]
}

func NewBoundaryClass(label string) (bc BoundaryClass, err error) {
	switch label {
	case "Wall", "wall", "":
		bc = Wall
	case "Inflow", "inflow":
		bc = Inflow
	case "Outflow", "outflow":
		bc = Outflow
	default:
		err = fmt.Errorf("unknown boundary class %q, must be one of Wall, Inflow, Outflow", label)
	}
	return
}

// BCClass tags the ghost cell treatment requested from a halo exchange
type BCClass uint8

const (
	ClassU BCClass = iota
	ClassV
	ClassW
	ClassPressure
	ClassScalar
)

func (c BCClass) String() string {
	return [...]string{"U", "V", "W", "Pressure", "Scalar"}[c]
}

type Grid struct {
	Nx, Ny, Margin int
	DX             float64
	Metric         float64 // pressure scaling applied to every gradient and the free surface term
	XDir, YDir     float64 // 1 when the axis is active, 0 otherwise
	X0             float64 // x coordinate of the lower edge of cell (0,0)
	IOffset        int     // Global i index of local cell 0
	Rank           int
	Neighbors      [4]int    // Rank across each side, -1 for a physical boundary
	Flag           *IntSlice // > 0 active, < 0 outside the active domain
	IOClass        *IntSlice // BoundaryClass of cells outside the active domain
}

func NewGrid(Nx, Ny int, DX float64) (g *Grid) {
	if DX <= 0 {
		panic(fmt.Errorf("grid spacing must be positive, have %8.5f", DX))
	}
	g = &Grid{
		Nx:        Nx,
		Ny:        Ny,
		Margin:    DefaultMargin,
		DX:        DX,
		Metric:    1,
		XDir:      1,
		YDir:      1,
		Neighbors: [4]int{-1, -1, -1, -1},
		Flag:      NewIntSlice(Nx, Ny, DefaultMargin),
		IOClass:   NewIntSlice(Nx, Ny, DefaultMargin),
	}
	g.Flag.Fill(-1)
	for i := 0; i < Nx; i++ {
		for j := 0; j < Ny; j++ {
			g.Flag.Set(i, j, 1)
		}
	}
	return
}

func (g *Grid) NewSlice() *Slice       { return NewSlice(g.Nx, g.Ny, g.Margin) }
func (g *Grid) NewIntSlice() *IntSlice { return NewIntSlice(g.Nx, g.Ny, g.Margin) }

func (g *Grid) Active(i, j int) bool   { return g.Flag.At(i, j) > 0 }
func (g *Grid) Boundary(i, j int) bool { return g.Flag.At(i, j) < 0 }
func (g *Grid) Class(i, j int) BoundaryClass {
	return BoundaryClass(g.IOClass.At(i, j))
}

// Block removes a cell from the active domain, turning it into a wall cell
func (g *Grid) Block(i, j int) {
	g.Flag.Set(i, j, -1)
	g.IOClass.Set(i, j, int(Wall))
}

// SetSideClass classifies the full ghost strip on one physical side
func (g *Grid) SetSideClass(side Direction, class BoundaryClass) {
	var (
		M = g.Margin
	)
	for i := -M; i < g.Nx+M; i++ {
		for j := -M; j < g.Ny+M; j++ {
			var inStrip bool
			switch side {
			case IMinus:
				inStrip = i < 0 && j >= 0 && j < g.Ny
			case IPlus:
				inStrip = i >= g.Nx && j >= 0 && j < g.Ny
			case JMinus:
				inStrip = j < 0 && i >= 0 && i < g.Nx
			case JPlus:
				inStrip = j >= g.Ny && i >= 0 && i < g.Nx
			}
			if inStrip && g.Flag.At(i, j) < 0 {
				g.IOClass.Set(i, j, int(class))
			}
		}
	}
}

// XC is the x coordinate of the center of local cell i
func (g *Grid) XC(i int) float64 { return g.X0 + (float64(i)+0.5)*g.DX }

// Loop4 visits the active cells in the fixed traversal order, i outer and j inner
func (g *Grid) Loop4(fn func(i, j int)) {
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			if g.Flag.At(i, j) > 0 {
				fn(i, j)
			}
		}
	}
}

// Loop1 visits the u faces between cell (i,j) and (i+1,j)
func (g *Grid) Loop1(fn func(i, j int)) {
	g.Loop4(func(i, j int) {
		if g.Flag.At(i+1, j) > 0 || g.Class(i+1, j) != Wall {
			fn(i, j)
		}
	})
}

// Loop2 visits the v faces between cell (i,j) and (i,j+1)
func (g *Grid) Loop2(fn func(i, j int)) {
	g.Loop4(func(i, j int) {
		if g.Flag.At(i, j+1) > 0 || g.Class(i, j+1) != Wall {
			fn(i, j)
		}
	})
}

// OutflowCells lists the active cells whose i+1 neighbour is an outflow ghost cell
func (g *Grid) OutflowCells() (cells []Cell) {
	g.Loop4(func(i, j int) {
		if g.Flag.At(i+1, j) < 0 && g.Class(i+1, j) == Outflow {
			cells = append(cells, Cell{I: i, J: j})
		}
	})
	return
}

// Subdomain cuts the grid along i into pm.ParallelDegree pieces and returns the piece for rank.
// Interface ghost cells stay active so the halo exchange can fill them from the neighbour.
func (g *Grid) Subdomain(pm *utils.PartitionMap, rank int) (sg *Grid) {
	var (
		iMin, iMax = pm.GetBucketRange(rank)
		M          = g.Margin
	)
	if pm.MaxIndex != g.Nx {
		panic(fmt.Errorf("partition map covers %d columns, grid has %d", pm.MaxIndex, g.Nx))
	}
	sg = NewGrid(iMax-iMin, g.Ny, g.DX)
	sg.Margin = M
	sg.Metric, sg.XDir, sg.YDir = g.Metric, g.XDir, g.YDir
	sg.X0 = g.X0 + float64(iMin)*g.DX
	sg.IOffset = g.IOffset + iMin
	sg.Rank = rank
	sg.Neighbors = g.Neighbors
	if rank > 0 {
		sg.Neighbors[IMinus] = rank - 1
	}
	if rank < pm.ParallelDegree-1 {
		sg.Neighbors[IPlus] = rank + 1
	}
	for i := -M; i < sg.Nx+M; i++ {
		gi := i + iMin
		for j := -M; j < g.Ny+M; j++ {
			if gi < -M || gi >= g.Nx+M {
				sg.Flag.Set(i, j, -1)
				continue
			}
			sg.Flag.Set(i, j, g.Flag.At(gi, j))
			sg.IOClass.Set(i, j, g.IOClass.At(gi, j))
		}
	}
	return
}
