package solver2D

import (
	"fmt"
	"math"

	"github.com/notargets/gosflow/grid2D"
	"github.com/notargets/gosflow/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type Method uint8

const (
	BiCGStab Method = iota
	CG
	Direct
)

var methodNames = map[string]Method{
	"BiCGStab": BiCGStab,
	"CG":       CG,
	"Direct":   Direct,
}

func NewMethod(label string) (m Method, err error) {
	var ok bool
	if label == "" {
		return BiCGStab, nil
	}
	if m, ok = methodNames[label]; !ok {
		err = fmt.Errorf("unknown solver method %q, must be one of BiCGStab, CG, Direct", label)
	}
	return
}

func (m Method) String() string {
	return [...]string{"BiCGStab", "CG", "Direct"}[m]
}

type Result struct {
	Iterations int
	Residual   float64 // Relative residual norm ||b - Ax|| / ||b||
	Converged  bool
}

// Comm connects the solvers of the subdomains of a partitioned grid. Every rank must
// call Exchange and Sum in the same sequence.
type Comm interface {
	Exchange(f *grid2D.Slice, class grid2D.BCClass)
	Sum(v float64) float64
}

type Solver struct {
	Tolerance     float64
	MaxIterations int
	Comm          Comm // nil for a single domain
}

func NewSolver(tol float64, maxIter int) *Solver {
	if tol <= 0 {
		tol = 1.e-10
	}
	if maxIter <= 0 {
		maxIter = 1000
	}
	return &Solver{Tolerance: tol, MaxIterations: maxIter}
}

// NewPartitionedSolver solves one subdomain's rows as part of the global system,
// couplings across the partition interface are applied on every product.
func NewPartitionedSolver(tol float64, maxIter int, comm Comm) (s *Solver) {
	s = NewSolver(tol, maxIter)
	s.Comm = comm
	return
}

// Solve computes the pressure system for the rows of rm and writes the result into x.
// The current values of x are the initial guess. Neighbours without a row are held at
// their current field value, except interface cells of a partitioned grid.
func (s *Solver) Solve(A *utils.Stencil5, rhs []float64, rm *grid2D.RowMap,
	x *grid2D.Slice, method Method) (res Result) {
	var (
		n  = rm.Len()
		op *operator
		b  []float64
	)
	if A.Len() != n || len(rhs) != n {
		panic(fmt.Errorf("system has %d rows and %d rhs entries, row map has %d", A.Len(), len(rhs), n))
	}
	if s.Comm == nil {
		if n == 0 {
			res.Converged = true
			return
		}
		var csr utils.CSR
		csr, b = Compose(A, rhs, rm, x)
		op = &operator{A: csr}
	} else {
		if method == Direct {
			panic(fmt.Errorf("the direct method cannot solve a partitioned system"))
		}
		csr, ghost := split(A, rm)
		b = make([]float64, n)
		copy(b, rhs)
		op = &operator{A: csr, rm: rm, comm: s.Comm, work: x.Copy()}
		// Cells filled by the exchange couple through every product, the rest are fixed
		op.work.Fill(0)
		rm.Scatter(ones(n), op.work)
		s.Comm.Exchange(op.work, grid2D.ClassPressure)
		for _, c := range ghost {
			if op.work.At(c.cell.I, c.cell.J) == 1 {
				op.ghost = append(op.ghost, c)
			} else {
				b[c.row] -= c.coef * x.At(c.cell.I, c.cell.J)
			}
		}
	}
	xv := make([]float64, n)
	rm.Gather(x, xv)
	switch method {
	case BiCGStab:
		res = s.bicgstab(op, b, xv)
	case CG:
		res = s.cg(op, b, xv)
	case Direct:
		res = s.direct(op.A, b, xv)
	default:
		panic(fmt.Errorf("unknown solver method %d", method))
	}
	rm.Scatter(xv, x)
	return
}

func ones(n int) (v []float64) {
	v = make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return
}

type coupling struct {
	row  int
	cell grid2D.Cell
	coef float64
}

// split converts the stencil to CSR over the rows of rm and returns the couplings to
// cells without a row separately
func split(A *utils.Stencil5, rm *grid2D.RowMap) (csr utils.CSR, ghost []coupling) {
	var (
		n   = rm.Len()
		nbr = make([][4]int, n)
		// Slot order N, S, E, W
		offsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	)
	for r, c := range rm.Cells {
		coef := A.Offdiag(r)
		for slot, off := range offsets {
			ni, nj := c.I+off[0], c.J+off[1]
			nbr[r][slot] = rm.Row(ni, nj)
			if nbr[r][slot] < 0 && coef[slot] != 0 {
				ghost = append(ghost, coupling{r, grid2D.Cell{I: ni, J: nj}, coef[slot]})
			}
		}
	}
	csr = A.ToCSR(nbr)
	return
}

// Compose converts the stencil to CSR over the rows of rm, moving the coupling to cells
// without a row into the right hand side.
func Compose(A *utils.Stencil5, rhs []float64, rm *grid2D.RowMap, x *grid2D.Slice) (csr utils.CSR, b []float64) {
	var ghost []coupling
	csr, ghost = split(A, rm)
	b = make([]float64, len(rhs))
	copy(b, rhs)
	for _, c := range ghost {
		b[c.row] -= c.coef * x.At(c.cell.I, c.cell.J)
	}
	return
}

// operator applies the system and reduces inner products, locally or across ranks
type operator struct {
	A     utils.CSR
	rm    *grid2D.RowMap
	comm  Comm
	ghost []coupling
	work  *grid2D.Slice // Interface values of the vector being multiplied
}

func (op *operator) MulVec(x, y []float64) {
	op.A.MulVec(x, y)
	if op.comm == nil {
		return
	}
	op.rm.Scatter(x, op.work)
	op.comm.Exchange(op.work, grid2D.ClassPressure)
	for _, c := range op.ghost {
		y[c.row] += c.coef * op.work.At(c.cell.I, c.cell.J)
	}
}

func (op *operator) Dot(a, b []float64) (d float64) {
	d = floats.Dot(a, b)
	if op.comm != nil {
		d = op.comm.Sum(d)
	}
	return
}

func (op *operator) Norm(a []float64) float64 { return math.Sqrt(op.Dot(a, a)) }

func residual(op *operator, b, x, r []float64) {
	op.MulVec(x, r)
	floats.SubTo(r, b, r)
}

func jacobi(A utils.CSR) (dinv []float64) {
	dinv = A.Diagonal()
	for i, d := range dinv {
		if d != 0 {
			dinv[i] = 1 / d
		} else {
			dinv[i] = 1
		}
	}
	return
}

// bicgstab is the Jacobi preconditioned stabilised bi-conjugate gradient method
func (s *Solver) bicgstab(op *operator, b, x []float64) (res Result) {
	var (
		n                      = len(b)
		r                      = make([]float64, n)
		rhat                   = make([]float64, n)
		p                      = make([]float64, n)
		v                      = make([]float64, n)
		phat                   = make([]float64, n)
		sv                     = make([]float64, n)
		shat                   = make([]float64, n)
		tv                     = make([]float64, n)
		dinv                   = jacobi(op.A)
		rho, alpha, omega      = 1., 1., 1.
		bnorm                  = op.Norm(b)
		tol                    = s.Tolerance
		rhoNew, beta, tt, norm float64
	)
	if bnorm == 0 {
		for i := range x {
			x[i] = 0
		}
		res.Converged = true
		return
	}
	residual(op, b, x, r)
	copy(rhat, r)
	if norm = op.Norm(r) / bnorm; norm < tol {
		res.Residual, res.Converged = norm, true
		return
	}
	for res.Iterations = 1; res.Iterations <= s.MaxIterations; res.Iterations++ {
		rhoNew = op.Dot(rhat, r)
		if rhoNew == 0 {
			break // Breakdown, keep the current iterate
		}
		beta = (rhoNew / rho) * (alpha / omega)
		// p = r + beta*(p - omega*v)
		floats.AddScaled(p, -omega, v)
		floats.Scale(beta, p)
		floats.Add(p, r)
		floats.MulTo(phat, dinv, p)
		op.MulVec(phat, v)
		alpha = rhoNew / op.Dot(rhat, v)
		floats.AddScaledTo(sv, r, -alpha, v)
		if norm = op.Norm(sv) / bnorm; norm < tol {
			floats.AddScaled(x, alpha, phat)
			res.Residual, res.Converged = norm, true
			return
		}
		floats.MulTo(shat, dinv, sv)
		op.MulVec(shat, tv)
		if tt = op.Dot(tv, tv); tt == 0 {
			floats.AddScaled(x, alpha, phat)
			break
		}
		omega = op.Dot(tv, sv) / tt
		floats.AddScaled(x, alpha, phat)
		floats.AddScaled(x, omega, shat)
		floats.AddScaledTo(r, sv, -omega, tv)
		if norm = op.Norm(r) / bnorm; norm < tol {
			res.Residual, res.Converged = norm, true
			return
		}
		if omega == 0 {
			break
		}
		rho = rhoNew
	}
	if res.Iterations > s.MaxIterations {
		res.Iterations = s.MaxIterations
	}
	residual(op, b, x, r)
	res.Residual = op.Norm(r) / bnorm
	res.Converged = res.Residual < tol
	return
}

// cg is the Jacobi preconditioned conjugate gradient method, for symmetric systems
func (s *Solver) cg(op *operator, b, x []float64) (res Result) {
	var (
		n               = len(b)
		r               = make([]float64, n)
		z               = make([]float64, n)
		p               = make([]float64, n)
		ap              = make([]float64, n)
		dinv            = jacobi(op.A)
		bnorm           = op.Norm(b)
		tol             = s.Tolerance
		rz, rzNew, norm float64
	)
	if bnorm == 0 {
		for i := range x {
			x[i] = 0
		}
		res.Converged = true
		return
	}
	residual(op, b, x, r)
	if norm = op.Norm(r) / bnorm; norm < tol {
		res.Residual, res.Converged = norm, true
		return
	}
	floats.MulTo(z, dinv, r)
	copy(p, z)
	rz = op.Dot(r, z)
	for res.Iterations = 1; res.Iterations <= s.MaxIterations; res.Iterations++ {
		op.MulVec(p, ap)
		pap := op.Dot(p, ap)
		if pap == 0 {
			break
		}
		alpha := rz / pap
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)
		if norm = op.Norm(r) / bnorm; norm < tol {
			res.Residual, res.Converged = norm, true
			return
		}
		floats.MulTo(z, dinv, r)
		rzNew = op.Dot(r, z)
		// p = z + beta*p
		floats.Scale(rzNew/rz, p)
		floats.Add(p, z)
		rz = rzNew
	}
	if res.Iterations > s.MaxIterations {
		res.Iterations = s.MaxIterations
	}
	residual(op, b, x, r)
	res.Residual = op.Norm(r) / bnorm
	res.Converged = res.Residual < tol
	return
}

// direct factorises the dense form of the system, intended for small grids and testing
func (s *Solver) direct(A utils.CSR, b, x []float64) (res Result) {
	var (
		n     = len(b)
		xv    mat.VecDense
		r     = make([]float64, n)
		bnorm = floats.Norm(b, 2)
	)
	if err := xv.SolveVec(A.ToDense(), mat.NewVecDense(n, b)); err != nil {
		if _, illConditioned := err.(mat.Condition); !illConditioned {
			// Singular, leave the initial guess in place
			res.Residual = math.Inf(1)
			return
		}
	}
	copy(x, xv.RawVector().Data)
	res.Iterations = 1
	if bnorm == 0 {
		res.Converged = true
		return
	}
	A.MulVec(x, r)
	floats.SubTo(r, b, r)
	res.Residual = floats.Norm(r, 2) / bnorm
	res.Converged = res.Residual < s.Tolerance
	return
}
