// Package simulate draws synthetic panel data from an evaluated
// continuous-time model, for tests and demonstrations. Subjects get an
// initial state from N(X0, P0), latent trajectories propagated exactly with
// the discretized transition over their own irregular time grid, and
// measurement noise from R.
package simulate

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/timeseries"
)

// Panel simulates one subject per time grid. Grids must be non-empty,
// non-negative and strictly increasing. The same seed reproduces the same
// panel.
func Panel(model *ssm.Matrices, grids [][]float64, seed int64) ([]timeseries.Series, error) {
	n := model.X0.Len()
	if r, c := model.C.Dims(); r != 1 || c != n {
		return nil, fmt.Errorf("simulate: loading matrix is %dx%d, want 1x%d", r, c, n)
	}
	rng := rand.New(rand.NewSource(seed))

	// Initial-state factor: P0 = L L^T. A Cholesky failure means P0 is
	// (semi)definite degenerate; fall back to the deterministic mean start.
	var chol mat.Cholesky
	var initL *mat.TriDense
	if chol.Factorize(model.P0) {
		initL = mat.NewTriDense(n, mat.Lower, nil)
		chol.LTo(initL)
	}
	sdMeas := 0.0
	if r := model.R.At(0, 0); r > 0 {
		sdMeas = math.Sqrt(r)
	}

	c := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		c.SetVec(j, model.C.At(0, j))
	}

	panel := make([]timeseries.Series, len(grids))
	for i, grid := range grids {
		if len(grid) == 0 {
			return nil, fmt.Errorf("simulate: subject %d has an empty time grid", i)
		}
		state := mat.NewVecDense(n, nil)
		state.CloneFromVec(model.X0)
		if initL != nil {
			z := mat.NewVecDense(n, nil)
			for j := 0; j < n; j++ {
				z.SetVec(j, rng.NormFloat64())
			}
			var dev mat.VecDense
			dev.MulVec(initL, z)
			state.AddVec(state, &dev)
		}

		series := make(timeseries.Series, len(grid))
		prev := 0.0
		var tmp mat.VecDense
		for k, t := range grid {
			phi, qd, err := ssm.Discretize(model.A, model.Q, t-prev)
			if err != nil {
				return nil, fmt.Errorf("simulate: subject %d: %w", i, err)
			}
			prev = t
			tmp.MulVec(phi, state)
			state.CloneFromVec(&tmp)
			addProcessNoise(state, qd, rng)
			series[k] = timeseries.Observation{
				Time:  t,
				Value: mat.Dot(c, state) + sdMeas*rng.NormFloat64(),
			}
		}
		panel[i] = series
	}
	return panel, nil
}

// addProcessNoise draws from N(0, qd) and adds it to state. A factorization
// failure means qd is zero or degenerate; the structurally zero Q of the
// growth model always lands here and contributes nothing.
func addProcessNoise(state *mat.VecDense, qd *mat.SymDense, rng *rand.Rand) {
	var chol mat.Cholesky
	if !chol.Factorize(qd) {
		return
	}
	n := state.Len()
	l := mat.NewTriDense(n, mat.Lower, nil)
	chol.LTo(l)
	z := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		z.SetVec(j, rng.NormFloat64())
	}
	var dev mat.VecDense
	dev.MulVec(l, z)
	state.AddVec(state, &dev)
}
