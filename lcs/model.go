// Package lcs implements the discrete-time univariate dual change score
// model on regularly spaced measurement occasions. The model is declared as a
// directed graph of fixed and free linear relations among latent and observed
// variables and evaluated into expected moments by RAM path tracing,
//
//	mu    = F (I - A)^-1 m
//	Sigma = F (I - A)^-1 S (I - A)^-T F^T,
//
// where A holds the directed paths, S the two-headed (co)variances, m the
// means and F the filter selecting the observed variables.
package lcs

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/matutil"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
)

// Parameter names of the dual change score model, in vector order.
const (
	ParamProportion   = "proportion" // proportional change beta
	ParamLevelMean    = "levelMean"
	ParamSlopeMean    = "slopeMean"
	ParamLevelVar     = "levelVar"
	ParamLevelSlopeCv = "levelSlopeCov"
	ParamSlopeVar     = "slopeVar"
	ParamMeasErrVar   = "measErrVar"
)

// Model is the dual change score structure over a fixed number of occasions:
// a latent intercept g0 and constant change g1, true scores
//
//	x_1 = g0
//	x_{t+1} = x_t + g1 + beta x_t
//
// and observations y_t = x_t + e_t with shared error variance. The latent
// change between adjacent occasions is g1 + beta x_t, the sum of the constant
// and the proportional component.
type Model struct {
	Occasions int
	Params    []ssm.Parameter
}

// New returns a dual change score model over the given number of occasions,
// with the same starting values and bounds as the continuous-time growth
// spec so the two fits are comparable.
func New(occasions int) *Model {
	if occasions < 2 {
		panic("lcs: need at least two occasions")
	}
	return &Model{
		Occasions: occasions,
		Params: []ssm.Parameter{
			ssm.Bounded(ParamProportion, -0.2, -1, 0),
			ssm.Free(ParamLevelMean, 12),
			ssm.Free(ParamSlopeMean, 7),
			ssm.NonNegative(ParamLevelVar, 25),
			ssm.Free(ParamLevelSlopeCv, 0.7),
			ssm.NonNegative(ParamSlopeVar, 3),
			ssm.NonNegative(ParamMeasErrVar, 2),
		},
	}
}

// Moments evaluates the model-implied mean vector and covariance matrix of
// the observed occasions at theta. Pure function; one evaluation per
// objective call.
func (m *Model) Moments(theta []float64) (*mat.VecDense, *mat.SymDense, error) {
	if len(theta) != len(m.Params) {
		return nil, nil, fmt.Errorf("lcs: got %d parameter values for %d declared parameters",
			len(theta), len(m.Params))
	}
	var (
		beta = theta[0]
		mu0  = theta[1]
		mu1  = theta[2]
		v0   = theta[3]
		cv   = theta[4]
		v1   = theta[5]
		me   = theta[6]
	)
	t := m.Occasions
	// Variable layout: [g0, g1, x_1..x_T, y_1..y_T].
	n := 2 + 2*t
	x := func(i int) int { return 2 + i }
	y := func(i int) int { return 2 + t + i }

	a := mat.NewDense(n, n, nil)
	a.Set(x(0), 0, 1) // x_1 <- g0
	for i := 1; i < t; i++ {
		a.Set(x(i), x(i-1), 1+beta) // x_{t+1} <- x_t, direct plus proportional change
		a.Set(x(i), 1, 1)           // x_{t+1} <- g1, constant change
	}
	for i := 0; i < t; i++ {
		a.Set(y(i), x(i), 1)
	}

	s := mat.NewDense(n, n, nil)
	s.Set(0, 0, v0)
	s.Set(0, 1, cv)
	s.Set(1, 0, cv)
	s.Set(1, 1, v1)
	for i := 0; i < t; i++ {
		s.Set(y(i), y(i), me)
	}

	mvec := mat.NewVecDense(n, nil)
	mvec.SetVec(0, mu0)
	mvec.SetVec(1, mu1)

	// total = (I - A)^-1, the sum over all directed paths.
	ia := mat.NewDense(n, n, nil)
	ia.Sub(matutil.Eye(n), a)
	var total mat.Dense
	if err := total.Inverse(ia); err != nil {
		return nil, nil, fmt.Errorf("lcs: path matrix not invertible: %w", err)
	}

	var meanAll mat.VecDense
	meanAll.MulVec(&total, mvec)
	var covAll mat.Dense
	covAll.Product(&total, s, total.T())

	mu := mat.NewVecDense(t, nil)
	for i := 0; i < t; i++ {
		mu.SetVec(i, meanAll.AtVec(y(i)))
	}
	sigma := mat.NewSymDense(t, nil)
	matutil.Symmetrize(sigma, covAll.Slice(y(0), y(0)+t, y(0), y(0)+t))
	return mu, sigma, nil
}
