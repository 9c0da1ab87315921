// Package ode implements fixed-step Runge-Kutta integration of ordinary
// differential equations, https://en.wikipedia.org/wiki/Runge–Kutta_methods.
// The model packages use it as an independent reference for the closed-form
// matrix-exponential state propagation.
package ode

import (
	"gonum.org/v1/gonum/mat"
)

// System is the right-hand side of the differential equation x'(t) = f(t, x).
type System interface {
	Derivative(t float64, state mat.Vector) mat.Vector
}

// SystemFunc adapts a plain function to the System interface.
type SystemFunc func(t float64, state mat.Vector) mat.Vector

// Derivative calls f.
func (f SystemFunc) Derivative(t float64, state mat.Vector) mat.Vector {
	return f(t, state)
}

// butcherTableau describes one explicit Runge-Kutta scheme,
// see https://en.wikipedia.org/wiki/Runge–Kutta_methods.
type butcherTableau struct {
	stages  int
	nodes   []float64
	weights []float64
	matrix  [][]float64
}

// RungeKutta integrates a System with the scheme held in its tableau.
type RungeKutta struct {
	tableau butcherTableau
}

// NewRK4 returns the classical fourth order Runge-Kutta integrator.
func NewRK4() *RungeKutta {
	return &RungeKutta{butcherTableau{
		stages:  4,
		nodes:   []float64{0, 1. / 2., 1. / 2., 1},
		weights: []float64{1. / 6., 1. / 3., 1. / 3., 1. / 6.},
		matrix: [][]float64{
			nil,
			{1. / 2.},
			{0, 1. / 2.},
			{0, 0, 1.},
		},
	}}
}

// NewEuler returns the first order Euler integrator.
func NewEuler() *RungeKutta {
	return &RungeKutta{butcherTableau{
		stages:  1,
		nodes:   []float64{0},
		weights: []float64{1},
	}}
}

// Step advances state from time t by one step of length h, in place.
func (rk *RungeKutta) Step(t, h float64, state *mat.VecDense, sys System) {
	m := state.Len()
	k := make([]mat.Vector, rk.tableau.stages)
	var tmp mat.VecDense
	for i := 0; i < rk.tableau.stages; i++ {
		tmp.CloneFromVec(state)
		if i < len(rk.tableau.matrix) {
			for j, a := range rk.tableau.matrix[i] {
				if a != 0 {
					tmp.AddScaledVec(&tmp, h*a, k[j])
				}
			}
		}
		var ki mat.VecDense
		ki.CloneFromVec(sys.Derivative(t+h*rk.tableau.nodes[i], &tmp))
		if ki.Len() != m {
			panic("ode: derivative dimension mismatch")
		}
		k[i] = &ki
	}
	for i, w := range rk.tableau.weights {
		state.AddScaledVec(state, h*w, k[i])
	}
}

// Integrate advances state from time t0 to t1 using the given number of
// equally sized steps, in place.
func (rk *RungeKutta) Integrate(t0, t1 float64, steps int, state *mat.VecDense, sys System) {
	if steps <= 0 {
		panic("ode: step count must be positive")
	}
	h := (t1 - t0) / float64(steps)
	for i := 0; i < steps; i++ {
		rk.Step(t0+float64(i)*h, h, state, sys)
	}
}
