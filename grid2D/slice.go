package grid2D

import "fmt"

// DefaultMargin is the number of halo cells carried on every side of a field.
const DefaultMargin = 3

// Slice is a 2D scalar field over i in [-Margin, Nx+Margin), j in [-Margin, Ny+Margin)
type Slice struct {
	Nx, Ny, Margin int
	stride         int
	V              []float64
}

func NewSlice(Nx, Ny, Margin int) (s *Slice) {
	if Nx <= 0 || Ny <= 0 || Margin < 1 {
		panic(fmt.Errorf("invalid slice dimensions: Nx = %d, Ny = %d, Margin = %d", Nx, Ny, Margin))
	}
	stride := Ny + 2*Margin
	s = &Slice{
		Nx:     Nx,
		Ny:     Ny,
		Margin: Margin,
		stride: stride,
		V:      make([]float64, (Nx+2*Margin)*stride),
	}
	return
}

func (s *Slice) index(i, j int) int {
	return (i+s.Margin)*s.stride + j + s.Margin
}

func (s *Slice) At(i, j int) float64       { return s.V[s.index(i, j)] }
func (s *Slice) Set(i, j int, val float64) { s.V[s.index(i, j)] = val }
func (s *Slice) Add(i, j int, val float64) { s.V[s.index(i, j)] += val }

// Fill sets every value, halo included.
func (s *Slice) Fill(val float64) {
	for n := range s.V {
		s.V[n] = val
	}
}

func (s *Slice) Copy() (R *Slice) {
	R = NewSlice(s.Nx, s.Ny, s.Margin)
	copy(R.V, s.V)
	return
}

func (s *Slice) SameShape(o *Slice) bool {
	return s.Nx == o.Nx && s.Ny == o.Ny && s.Margin == o.Margin
}

// IntSlice is the mask counterpart of Slice
type IntSlice struct {
	Nx, Ny, Margin int
	stride         int
	V              []int
}

func NewIntSlice(Nx, Ny, Margin int) (s *IntSlice) {
	if Nx <= 0 || Ny <= 0 || Margin < 1 {
		panic(fmt.Errorf("invalid mask dimensions: Nx = %d, Ny = %d, Margin = %d", Nx, Ny, Margin))
	}
	stride := Ny + 2*Margin
	s = &IntSlice{
		Nx:     Nx,
		Ny:     Ny,
		Margin: Margin,
		stride: stride,
		V:      make([]int, (Nx+2*Margin)*stride),
	}
	return
}

func (s *IntSlice) index(i, j int) int {
	return (i+s.Margin)*s.stride + j + s.Margin
}

func (s *IntSlice) At(i, j int) int       { return s.V[s.index(i, j)] }
func (s *IntSlice) Set(i, j int, val int) { s.V[s.index(i, j)] = val }

func (s *IntSlice) Fill(val int) {
	for n := range s.V {
		s.V[n] = val
	}
}
