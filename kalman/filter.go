// Package kalman runs the predict/update recursion of a continuous-time
// linear state space model over one subject's irregularly spaced observation
// sequence and accumulates the subject's marginal log-likelihood.
package kalman

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/matutil"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/timeseries"
)

// ErrDegenerateLikelihood marks a filter step whose innovation variance is
// not strictly positive (or not finite). It signals that the current trial
// parameters are infeasible for the subject, not a programming error; the
// optimizer recovers by assigning the trial point a large penalty.
var ErrDegenerateLikelihood = errors.New("kalman: innovation variance not positive")

const log2Pi = 1.8378770664093453

// Result holds one subject's filter output: the accumulated log-likelihood
// and the terminal filtered state, kept for reporting.
type Result struct {
	LogLikelihood float64
	Mean          *mat.VecDense
	Cov           *mat.SymDense
	Steps         int
}

// Run filters series under one model evaluation.
//
// The recursion starts from x(0) ~ N(X0, P0) at time zero. For observation k
// at time t_k it propagates mean and covariance over dt = t_k - t_{k-1} with
// the discretized transition, then folds in the scalar observation:
//
//	v = y - C m          (innovation)
//	S = C P C^T + R      (innovation variance)
//	K = P C^T / S
//	m <- m + K v,  P <- (I - K C) P
//	loglik += -1/2 (log 2pi + log S + v^2/S)
//
// An empty series contributes log-likelihood zero and returns the initial
// state unchanged; whether such subjects are admitted at all is decided by
// the data layer. Run never mutates model and keeps all scratch state local,
// so concurrent runs over distinct subjects may share one evaluation.
func Run(model *ssm.Matrices, series timeseries.Series) (*Result, error) {
	n := model.X0.Len()
	if r, c := model.C.Dims(); r != 1 || c != n {
		return nil, fmt.Errorf("kalman: loading matrix is %dx%d, want 1x%d", r, c, n)
	}

	mean := mat.NewVecDense(n, nil)
	mean.CloneFromVec(model.X0)
	cov := mat.NewDense(n, n, nil)
	cov.Copy(model.P0)

	res := &Result{
		Mean: mat.NewVecDense(n, nil),
		Cov:  mat.NewSymDense(n, nil),
	}
	if len(series) == 0 {
		res.Mean.CloneFromVec(mean)
		matutil.Symmetrize(res.Cov, cov)
		return res, nil
	}

	// Loading row as a vector, gokick style: C m = <c, m>.
	c := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		c.SetVec(j, model.C.At(0, j))
	}
	r := model.R.At(0, 0)
	eye := matutil.Eye(n)

	var (
		loglik float64
		prev   float64 // reference time, zero before the first observation
		tmpV   mat.VecDense
		tmpM   mat.Dense
		k      mat.VecDense
		z      mat.Dense
	)
	for step, obs := range series {
		phi, qd, err := ssm.Discretize(model.A, model.Q, obs.Time-prev)
		if err != nil {
			return nil, fmt.Errorf("kalman: step %d: %w", step, err)
		}
		prev = obs.Time

		// Predict.
		tmpV.MulVec(phi, mean)
		mean.CloneFromVec(&tmpV)
		tmpM.Product(phi, cov, phi.T())
		cov.Add(&tmpM, qd)

		// Update.
		v := obs.Value - mat.Dot(c, mean)
		s := mat.Inner(c, cov, c) + r
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: S = %v at step %d", ErrDegenerateLikelihood, s, step)
		}
		k.MulVec(cov, c)
		k.ScaleVec(1/s, &k)
		mean.AddScaledVec(mean, v, &k)
		z.Outer(1, &k, c)
		z.Sub(eye, &z)
		tmpM.Mul(&z, cov)
		cov.Copy(&tmpM)

		loglik += -0.5 * (log2Pi + math.Log(s) + v*v/s)
		res.Steps++
	}

	res.LogLikelihood = loglik
	res.Mean.CloneFromVec(mean)
	matutil.Symmetrize(res.Cov, cov)
	return res, nil
}
