package lcs

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
)

// ErrDegenerateMoments marks a trial point whose implied covariance matrix is
// not positive definite; the optimizer recovers it with a penalty.
var ErrDegenerateMoments = errors.New("lcs: implied covariance not positive definite")

const log2Pi = 1.8378770664093453

// MomentObjective is the multivariate-normal maximum likelihood discrepancy
// between the model-implied moments and the sample moments of complete-case
// rows. It implements fit.Objective.
type MomentObjective struct {
	Model *Model

	n    int           // number of rows
	ybar *mat.VecDense // sample means
	scov *mat.SymDense // maximum-likelihood (1/n) sample covariance
}

// NewMomentObjective computes the sample moments of rows once and binds them
// to model. Every row must be complete and have Model.Occasions entries;
// incomplete subjects belong to the continuous-time engine, not to the
// regular-grid change score model.
func NewMomentObjective(model *Model, rows [][]float64) (*MomentObjective, error) {
	t := model.Occasions
	n := len(rows)
	if n < 2 {
		return nil, fmt.Errorf("lcs: need at least two complete rows, got %d", n)
	}
	cols := make([][]float64, t)
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for i, row := range rows {
		if len(row) != t {
			return nil, fmt.Errorf("lcs: row %d has %d entries, want %d", i, len(row), t)
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return nil, fmt.Errorf("lcs: row %d is not complete", i)
			}
			cols[j][i] = v
		}
	}
	ybar := mat.NewVecDense(t, nil)
	for j := 0; j < t; j++ {
		ybar.SetVec(j, stat.Mean(cols[j], nil))
	}
	// stat.Covariance is the unbiased 1/(n-1) estimate; maximum likelihood
	// compares against the 1/n moment matrix.
	scale := float64(n-1) / float64(n)
	scov := mat.NewSymDense(t, nil)
	for j := 0; j < t; j++ {
		for k := j; k < t; k++ {
			scov.SetSym(j, k, scale*stat.Covariance(cols[j], cols[k], nil))
		}
	}
	return &MomentObjective{Model: model, n: n, ybar: ybar, scov: scov}, nil
}

// Parameters returns the model's declared parameter vector.
func (o *MomentObjective) Parameters() []ssm.Parameter {
	return o.Model.Params
}

// Value returns the negative joint log-likelihood of the observed rows under
// the implied moments at theta,
//
//	-logL = n/2 (T log 2pi + log|Sigma| + tr(Sigma^-1 S) + d^T Sigma^-1 d)
//
// with d = ybar - mu and S the 1/n sample covariance.
func (o *MomentObjective) Value(theta []float64) (float64, error) {
	mu, sigma, err := o.Model.Moments(theta)
	if err != nil {
		return 0, err
	}
	var chol mat.Cholesky
	if !chol.Factorize(sigma) {
		return 0, ErrDegenerateMoments
	}

	t := o.Model.Occasions
	var diff mat.VecDense
	diff.SubVec(o.ybar, mu)
	var solved mat.VecDense
	if err := chol.SolveVecTo(&solved, &diff); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDegenerateMoments, err)
	}
	var traceArg mat.Dense
	if err := chol.SolveTo(&traceArg, o.scov); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDegenerateMoments, err)
	}

	nll := 0.5 * float64(o.n) * (float64(t)*log2Pi +
		chol.LogDet() +
		mat.Trace(&traceArg) +
		mat.Dot(&diff, &solved))
	return nll, nil
}
