package grid2D

// State holds the fields shared by the shallow water stages for one subdomain
type State struct {
	Grid     *Grid
	Press    *Slice // Non-hydrostatic pressure
	Depth    *Slice // Still water depth
	Hp       *Slice // Water column height
	Bed      *Slice // Bed elevation
	F, G, L  *Slice // Momentum forcing accumulators for the P, Q and ws predictors
	Wet      *IntSlice
	Breaking *IntSlice
	DT       float64 // Time step
	Count    int     // Time step counter, used to gate progress output
}

func NewState(g *Grid) (st *State) {
	st = &State{
		Grid:     g,
		Press:    g.NewSlice(),
		Depth:    g.NewSlice(),
		Hp:       g.NewSlice(),
		Bed:      g.NewSlice(),
		F:        g.NewSlice(),
		G:        g.NewSlice(),
		L:        g.NewSlice(),
		Wet:      g.NewIntSlice(),
		Breaking: g.NewIntSlice(),
	}
	st.Wet.Fill(1)
	return
}

// UpdateWetDry marks a cell wet when its water column exceeds the criterion
func (st *State) UpdateWetDry(criterion float64) {
	for n, h := range st.Hp.V {
		if h > criterion {
			st.Wet.V[n] = 1
		} else {
			st.Wet.V[n] = 0
		}
	}
}

// FlatBasin sets a still water basin of uniform depth over a flat bed at -depth
func (st *State) FlatBasin(depth float64) {
	st.Depth.Fill(depth)
	st.Hp.Fill(depth)
	st.Bed.Fill(-depth)
}
