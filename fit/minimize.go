package fit

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
)

// ErrNonConvergence marks a search that exhausted its iteration or
// evaluation budget before meeting the convergence tolerance. The returned
// Result still carries the best point found; the caller decides whether that
// point is usable.
var ErrNonConvergence = errors.New("fit: search stopped before convergence")

// Config collects the optimizer settings. The zero value selects the
// defaults below.
type Config struct {
	// MaxIterations bounds the number of major iterations. Default 200.
	MaxIterations int
	// GradientTolerance is the convergence criterion on the gradient norm
	// in the unconstrained search space. Default 1e-6.
	GradientTolerance float64
	// Penalty is the finite objective value substituted for infeasible
	// (degenerate-likelihood) trial points. Default 1e10.
	Penalty float64
	// BoundTolerance decides when a fitted value counts as sitting on a
	// declared bound. Default 1e-6.
	BoundTolerance float64
	// Logger, when non-nil, receives fit diagnostics: degenerate trial
	// points and the termination status.
	Logger *log.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxIterations == 0 {
		c.MaxIterations = 200
	}
	if c.GradientTolerance == 0 {
		c.GradientTolerance = 1e-6
	}
	if c.Penalty == 0 {
		c.Penalty = 1e10
	}
	if c.BoundTolerance == 0 {
		c.BoundTolerance = 1e-6
	}
	return c
}

// Result is the outcome of one bounded maximum-likelihood search.
type Result struct {
	// Parameters holds the declared parameters with Value replaced by the
	// estimate, in declaration order.
	Parameters []ssm.Parameter
	// Theta is the estimate as a bare vector, aligned with Parameters.
	Theta []float64
	// NegLogLikelihood is the objective value at the estimate.
	NegLogLikelihood float64
	// StdErrors are delta-method standard errors from the inverse observed
	// information, when the numerical Hessian at the estimate is positive
	// definite and no parameter sits on a bound; nil otherwise.
	StdErrors []float64
	// AtBound flags estimates within BoundTolerance of a declared bound.
	// Converging onto a bound is not an error but often indicates an
	// unidentified model.
	AtBound []bool
	// Converged reports whether the tolerance was met within the budget.
	Converged bool
	// DegenerateEvals counts trial points recovered with the penalty value.
	DegenerateEvals int
	// FuncEvaluations and MajorIterations are search effort counters.
	FuncEvaluations int
	MajorIterations int
}

// Minimize searches the declared box for the parameter vector minimizing
// obj, starting from the declared values. Infeasible evaluations are
// recovered as Config.Penalty so the search continues past them. The search
// runs quasi-Newton on a smooth reparameterization of the box; when that
// stage breaks down short of its budget it restarts as a derivative-free
// simplex search over the box itself, with trial points projected onto the
// bounds, so an optimum on a bound terminates as flagged convergence rather
// than a linesearch failure. A search that stops on its budget returns both
// the best Result found and ErrNonConvergence.
func Minimize(obj Objective, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	params := obj.Parameters()
	if len(params) == 0 {
		return nil, fmt.Errorf("fit: objective declares no parameters")
	}
	tr := transform{params: params}

	degenerate := 0
	value := func(theta []float64) float64 {
		v, err := obj.Value(theta)
		if err != nil {
			degenerate++
			if cfg.Logger != nil {
				cfg.Logger.Printf("fit: penalized trial point: %v", err)
			}
			return cfg.Penalty
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			degenerate++
			return cfg.Penalty
		}
		return v
	}
	wrapped := func(eta []float64) float64 {
		return value(tr.external(eta))
	}

	problem := optimize.Problem{
		Func: wrapped,
		Grad: func(grad, eta []float64) {
			fd.Gradient(grad, wrapped, eta, nil)
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   cfg.MaxIterations,
		GradientThreshold: cfg.GradientTolerance,
	}

	opt, optErr := optimize.Minimize(problem, tr.internal(ssm.Values(params)), settings, &optimize.BFGS{})
	if opt == nil {
		return nil, fmt.Errorf("fit: %w", optErr)
	}
	theta := tr.external(opt.X)
	best := opt.F
	status := opt.Status
	stats := opt.Stats

	// Near a bound the reparameterized surface flattens exponentially and
	// the Wolfe linesearch can fail before the gradient criterion is met.
	// Budget limits arrive with a nil error; anything else is a method
	// breakdown, restarted as a simplex search with projected trial points.
	if optErr != nil {
		if cfg.Logger != nil {
			cfg.Logger.Printf("fit: quasi-Newton stopped (%v), restarting with projected simplex", optErr)
		}
		projected := optimize.Problem{
			Func: func(x []float64) float64 { return value(tr.project(x)) },
		}
		polish, perr := optimize.Minimize(projected, theta, simplexSettings(), &optimize.NelderMead{})
		if polish != nil {
			theta = tr.project(polish.X)
			best = polish.F
			status = polish.Status
			stats.MajorIterations += polish.Stats.MajorIterations
			stats.FuncEvaluations += polish.Stats.FuncEvaluations
		}
		optErr = perr
	}
	if cfg.Logger != nil {
		cfg.Logger.Printf("fit: status %v after %d iterations, %d evaluations, %d penalized",
			status, stats.MajorIterations, stats.FuncEvaluations, degenerate)
	}

	res := &Result{
		Parameters:       make([]ssm.Parameter, len(params)),
		Theta:            theta,
		NegLogLikelihood: best,
		AtBound:          make([]bool, len(params)),
		DegenerateEvals:  degenerate,
		FuncEvaluations:  stats.FuncEvaluations,
		MajorIterations:  stats.MajorIterations,
	}
	anyAtBound := false
	for i, p := range params {
		p.Value = theta[i]
		res.Parameters[i] = p
		res.AtBound[i] = p.AtBound(theta[i], cfg.BoundTolerance)
		anyAtBound = anyAtBound || res.AtBound[i]
	}

	switch status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		return res, fmt.Errorf("%w: %v", ErrNonConvergence, status)
	}
	if optErr != nil {
		return res, fmt.Errorf("%w: %v", ErrNonConvergence, optErr)
	}
	res.Converged = true

	if !anyAtBound {
		res.StdErrors = standardErrors(obj, theta, cfg)
	} else if cfg.Logger != nil {
		cfg.Logger.Printf("fit: estimate on a bound, skipping standard errors")
	}
	return res, nil
}

// simplexSettings budgets the derivative-free restart. The simplex needs a
// run of non-improving iterations to declare function convergence, so its
// budget is independent of the quasi-Newton iteration limit.
func simplexSettings() *optimize.Settings {
	return &optimize.Settings{
		MajorIterations: 5000,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 100},
	}
}

// standardErrors inverts the numerical Hessian of the objective at theta.
// An indefinite Hessian yields nil rather than imaginary standard errors.
func standardErrors(obj Objective, theta []float64, cfg Config) []float64 {
	f := func(x []float64) float64 {
		v, err := obj.Value(x)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return cfg.Penalty
		}
		return v
	}
	n := len(theta)
	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, f, theta, nil)

	var chol mat.Cholesky
	if !chol.Factorize(hess) {
		if cfg.Logger != nil {
			cfg.Logger.Printf("fit: observed information not positive definite, skipping standard errors")
		}
		return nil
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil
	}
	se := make([]float64, n)
	for i := range se {
		se[i] = math.Sqrt(inv.At(i, i))
	}
	return se
}
