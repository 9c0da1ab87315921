// Package ssm defines continuous-time linear state space model templates and
// their mapping onto discrete observation intervals.
//
// A model describes the latent dynamics
//
//	x'(t) = A x(t) + B u(t)
//	y(t)  = C x(t) + D u(t) + e(t),  e(t) ~ N(0, R)
//
// with initial condition x(0) ~ N(x0, P0) and process noise covariance Q.
// The structural shape of every matrix (which cells are fixed, which are tied
// to a free parameter) is declared once at construction; Evaluate turns the
// template plus a parameter vector into concrete numeric matrices.
package ssm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/matutil"
)

// entry ties one matrix cell to either a fixed value or a free parameter.
type entry struct {
	row, col int
	param    int     // index into the parameter vector, -1 when fixed
	value    float64 // fixed value, ignored when param >= 0
}

// Template is the structural declaration of one model matrix. Cells not
// mentioned are structurally zero.
type Template struct {
	rows, cols int
	symmetric  bool
	entries    []entry
}

// Fix declares cell (i, j) to hold the constant value v.
func (t *Template) Fix(i, j int, v float64) {
	t.check(i, j)
	t.entries = append(t.entries, entry{row: i, col: j, param: -1, value: v})
}

// Link declares cell (i, j) to hold the value of free parameter param.
func (t *Template) Link(i, j, param int) {
	t.check(i, j)
	if param < 0 {
		panic("ssm: negative parameter index")
	}
	t.entries = append(t.entries, entry{row: i, col: j, param: param})
}

func (t *Template) check(i, j int) {
	if i < 0 || i >= t.rows || j < 0 || j >= t.cols {
		panic(fmt.Sprintf("ssm: cell (%d,%d) outside %dx%d template", i, j, t.rows, t.cols))
	}
	if t.symmetric && j < i {
		panic("ssm: symmetric templates are declared on the upper triangle")
	}
}

func (t *Template) fill(dst *mat.Dense, theta []float64) {
	for _, e := range t.entries {
		v := e.value
		if e.param >= 0 {
			v = theta[e.param]
		}
		dst.Set(e.row, e.col, v)
		if t.symmetric && e.row != e.col {
			dst.Set(e.col, e.row, v)
		}
	}
}

// ModelSpec is an immutable template for a continuous-time linear state space
// model. One spec is shared read-only by every subject; matrices are
// re-evaluated from the current parameter vector once per objective call.
type ModelSpec struct {
	Order    int // latent state dimension
	Observed int // observed process dimension

	Params []Parameter

	A  Template // drift
	C  Template // loading
	Q  Template // process noise covariance (symmetric)
	R  Template // measurement noise covariance (symmetric)
	X0 Template // initial state mean (Order x 1)
	P0 Template // initial state covariance (symmetric)
}

// NewModelSpec returns an empty spec for an order-dimensional latent state
// observed through an observed-dimensional process.
func NewModelSpec(order, observed int) *ModelSpec {
	return &ModelSpec{
		Order:    order,
		Observed: observed,
		A:        Template{rows: order, cols: order},
		C:        Template{rows: observed, cols: order},
		Q:        Template{rows: order, cols: order, symmetric: true},
		R:        Template{rows: observed, cols: observed, symmetric: true},
		X0:       Template{rows: order, cols: 1},
		P0:       Template{rows: order, cols: order, symmetric: true},
	}
}

// AddParameter appends p to the spec's parameter vector and returns its index
// for use in Template.Link.
func (s *ModelSpec) AddParameter(p Parameter) int {
	s.Params = append(s.Params, p)
	return len(s.Params) - 1
}

// Matrices holds one concrete evaluation of a ModelSpec. B and D are
// structurally zero in the models covered here but are carried so the filter
// equations keep their general form.
type Matrices struct {
	A  *mat.Dense
	B  *mat.Dense
	C  *mat.Dense
	D  *mat.Dense
	Q  *mat.Dense
	R  *mat.Dense
	X0 *mat.VecDense
	P0 *mat.SymDense
}

// Evaluate turns the template into concrete matrices for the parameter vector
// theta. It is a pure function: the spec is not modified and the result
// shares no storage with it, so one evaluation may be read concurrently by
// every subject's filter run.
func (s *ModelSpec) Evaluate(theta []float64) (*Matrices, error) {
	if len(theta) != len(s.Params) {
		return nil, fmt.Errorf("ssm: got %d parameter values for %d declared parameters",
			len(theta), len(s.Params))
	}
	n, p := s.Order, s.Observed
	m := &Matrices{
		A:  mat.NewDense(n, n, nil),
		B:  mat.NewDense(n, 1, nil),
		C:  mat.NewDense(p, n, nil),
		D:  mat.NewDense(p, 1, nil),
		Q:  mat.NewDense(n, n, nil),
		R:  mat.NewDense(p, p, nil),
		X0: mat.NewVecDense(n, nil),
		P0: mat.NewSymDense(n, nil),
	}
	s.A.fill(m.A, theta)
	s.C.fill(m.C, theta)
	s.Q.fill(m.Q, theta)
	s.R.fill(m.R, theta)

	x0 := mat.NewDense(n, 1, nil)
	s.X0.fill(x0, theta)
	for i := 0; i < n; i++ {
		m.X0.SetVec(i, x0.At(i, 0))
	}
	p0 := mat.NewDense(n, n, nil)
	s.P0.fill(p0, theta)
	matutil.Symmetrize(m.P0, p0)

	for _, mm := range []*mat.Dense{m.A, m.C, m.Q, m.R} {
		if matutil.NaNOrInf(mm) {
			return nil, fmt.Errorf("ssm: non-finite entry after evaluation")
		}
	}
	if matutil.NaNOrInf(m.X0) || matutil.NaNOrInf(m.P0) {
		return nil, fmt.Errorf("ssm: non-finite entry after evaluation")
	}
	return m, nil
}

// Growth model parameter names, in vector order.
const (
	ParamDynamics     = "dynamics"  // feedback of the level on its own change
	ParamLevelMean    = "levelMean" // initial level population mean
	ParamSlopeMean    = "slopeMean" // slope population mean
	ParamLevelVar     = "levelVar"
	ParamLevelSlopeCv = "levelSlopeCov"
	ParamSlopeVar     = "slopeVar"
	ParamMeasErrVar   = "measErrVar"
)

// NewGrowthModel returns the two-state continuous-time growth spec: a
// level component observed directly and a constant-slope component feeding
// it,
//
//	d level/dt = dynamics*level + slope
//	d slope/dt = 0
//	y = level + e,  e ~ N(0, measErrVar)
//
// with no process innovations (Q = 0); the only stochastic terms are the
// random initial state and the measurement error. The feedback coefficient is
// constrained to [-1, 0] and all variances to be non-negative. Starting
// values are the conventional ones for ability-test panels.
func NewGrowthModel() *ModelSpec {
	s := NewModelSpec(2, 1)

	dyn := s.AddParameter(Bounded(ParamDynamics, -0.2, -1, 0))
	mu0 := s.AddParameter(Free(ParamLevelMean, 12))
	mu1 := s.AddParameter(Free(ParamSlopeMean, 7))
	v0 := s.AddParameter(NonNegative(ParamLevelVar, 25))
	cv := s.AddParameter(Free(ParamLevelSlopeCv, 0.7))
	v1 := s.AddParameter(NonNegative(ParamSlopeVar, 3))
	me := s.AddParameter(NonNegative(ParamMeasErrVar, 2))

	s.A.Link(0, 0, dyn)
	s.A.Fix(0, 1, 1)

	s.C.Fix(0, 0, 1)

	s.R.Link(0, 0, me)

	s.X0.Link(0, 0, mu0)
	s.X0.Link(1, 0, mu1)

	s.P0.Link(0, 0, v0)
	s.P0.Link(0, 1, cv)
	s.P0.Link(1, 1, v1)

	return s
}
