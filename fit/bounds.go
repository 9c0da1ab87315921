package fit

import (
	"math"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
)

// transform maps between the bounded parameter space the model declares and
// the unconstrained space the quasi-Newton search runs in. Two-sided bounds
// use a scaled logistic, one-sided bounds an exponential offset; unbounded
// entries pass through. The search can then never leave the box, which is the
// reparameterization equivalent of a bounded quasi-Newton method.
type transform struct {
	params []ssm.Parameter
}

// margin keeps starting values off the exact bound, where the inverse
// mapping is undefined.
const margin = 1e-8

// internal maps a bounded point theta into the unconstrained search space.
func (tr transform) internal(theta []float64) []float64 {
	eta := make([]float64, len(theta))
	for i, p := range tr.params {
		lo, hi := math.IsInf(p.Lower, -1), math.IsInf(p.Upper, 1)
		switch {
		case lo && hi:
			eta[i] = theta[i]
		case !lo && !hi:
			u := (theta[i] - p.Lower) / (p.Upper - p.Lower)
			u = math.Min(math.Max(u, margin), 1-margin)
			eta[i] = math.Log(u / (1 - u))
		case !lo:
			eta[i] = math.Log(math.Max(theta[i]-p.Lower, margin))
		default:
			eta[i] = math.Log(math.Max(p.Upper-theta[i], margin))
		}
	}
	return eta
}

// project clamps theta onto the declared box, coordinate by coordinate. It is
// the identity on interior points.
func (tr transform) project(theta []float64) []float64 {
	out := make([]float64, len(theta))
	for i, p := range tr.params {
		out[i] = math.Min(math.Max(theta[i], p.Lower), p.Upper)
	}
	return out
}

// external maps an unconstrained search point eta back onto the declared box.
func (tr transform) external(eta []float64) []float64 {
	theta := make([]float64, len(eta))
	for i, p := range tr.params {
		lo, hi := math.IsInf(p.Lower, -1), math.IsInf(p.Upper, 1)
		switch {
		case lo && hi:
			theta[i] = eta[i]
		case !lo && !hi:
			theta[i] = p.Lower + (p.Upper-p.Lower)/(1+math.Exp(-eta[i]))
		case !lo:
			theta[i] = p.Lower + math.Exp(eta[i])
		default:
			theta[i] = p.Upper - math.Exp(eta[i])
		}
	}
	return theta
}
