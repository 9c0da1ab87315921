package ssm

import "math"

// Parameter is one named scalar entry of a model parameter vector together
// with its box constraint. Lower and Upper are -Inf respectively +Inf when
// the entry is unbounded on that side. Value holds the starting point of the
// search until a fit replaces it with the estimate.
type Parameter struct {
	Name  string
	Value float64
	Lower float64
	Upper float64
}

// Free returns an unbounded parameter starting at value.
func Free(name string, value float64) Parameter {
	return Parameter{Name: name, Value: value, Lower: math.Inf(-1), Upper: math.Inf(1)}
}

// Bounded returns a parameter constrained to [lower, upper].
func Bounded(name string, value, lower, upper float64) Parameter {
	if lower > upper {
		panic("ssm: parameter bounds reversed")
	}
	return Parameter{Name: name, Value: value, Lower: lower, Upper: upper}
}

// NonNegative returns a parameter constrained to [0, +Inf).
func NonNegative(name string, value float64) Parameter {
	return Parameter{Name: name, Value: value, Lower: 0, Upper: math.Inf(1)}
}

// AtBound reports whether v lies within tol of either bound of p. A converged
// estimate at a bound is not an error but usually indicates an unidentified
// model, so fits flag it.
func (p Parameter) AtBound(v, tol float64) bool {
	if !math.IsInf(p.Lower, -1) && v-p.Lower <= tol {
		return true
	}
	if !math.IsInf(p.Upper, 1) && p.Upper-v <= tol {
		return true
	}
	return false
}

// Values extracts the current values of params in order.
func Values(params []Parameter) []float64 {
	out := make([]float64, len(params))
	for i, p := range params {
		out[i] = p.Value
	}
	return out
}
