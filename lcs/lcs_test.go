package lcs

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/fit"
)

func TestMomentsHandComputed(t *testing.T) {
	// Two occasions: x1 = g0, x2 = (1+beta) g0 + g1, y_t = x_t + e_t.
	m := New(2)
	beta, mu0, mu1 := -0.5, 10.0, 2.0
	v0, cv, v1, me := 4.0, 1.0, 1.0, 0.5
	theta := []float64{beta, mu0, mu1, v0, cv, v1, me}
	mu, sigma, err := m.Moments(theta)
	if err != nil {
		t.Fatal(err)
	}

	wantMu := []float64{mu0, (1+beta)*mu0 + mu1}
	for i, w := range wantMu {
		if !scalar.EqualWithinAbs(mu.AtVec(i), w, 1e-12) {
			t.Errorf("mu[%d] = %v, want %v", i, mu.AtVec(i), w)
		}
	}

	b := 1 + beta
	wantSigma := [][]float64{
		{v0 + me, b*v0 + cv},
		{b*v0 + cv, b*b*v0 + 2*b*cv + v1 + me},
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !scalar.EqualWithinAbs(sigma.At(i, j), wantSigma[i][j], 1e-12) {
				t.Errorf("Sigma[%d,%d] = %v, want %v", i, j, sigma.At(i, j), wantSigma[i][j])
			}
		}
	}
}

func TestMomentsWrongLength(t *testing.T) {
	if _, _, err := New(3).Moments([]float64{1, 2}); err == nil {
		t.Error("no error for short parameter vector")
	}
}

func TestNewPanicsOnOneOccasion(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic for a single occasion")
		}
	}()
	New(1)
}

var testRows = [][]float64{
	{10, 11, 13},
	{10, 9, 8},
	{12, 12.5, 14},
	{8, 8.5, 9.5},
	{11, 12, 12.5},
}

func TestMomentObjectiveValue(t *testing.T) {
	obj, err := NewMomentObjective(New(3), testRows)
	if err != nil {
		t.Fatal(err)
	}
	theta := make([]float64, len(obj.Parameters()))
	for i, p := range obj.Parameters() {
		theta[i] = p.Value
	}
	v, err := obj.Value(theta)
	if err != nil {
		t.Fatal(err)
	}
	if !(v > 0) || math.IsInf(v, 0) {
		t.Errorf("objective = %v, want finite positive", v)
	}

	v2, err := obj.Value(theta)
	if err != nil {
		t.Fatal(err)
	}
	if v != v2 {
		t.Errorf("repeated evaluations differ: %v vs %v", v, v2)
	}
}

func TestMomentObjectiveDegenerate(t *testing.T) {
	obj, err := NewMomentObjective(New(3), testRows)
	if err != nil {
		t.Fatal(err)
	}
	// Zero variances give a singular implied covariance.
	_, err = obj.Value([]float64{-0.2, 12, 7, 0, 0, 0, 0})
	if err == nil {
		t.Error("no error for a singular implied covariance")
	}
}

func TestMomentObjectiveRejectsBadRows(t *testing.T) {
	if _, err := NewMomentObjective(New(3), [][]float64{{1, 2, 3}}); err == nil {
		t.Error("no error for a single row")
	}
	if _, err := NewMomentObjective(New(3), [][]float64{{1, 2}, {3, 4}}); err == nil {
		t.Error("no error for short rows")
	}
	incomplete := [][]float64{{1, 2, 3}, {4, math.NaN(), 6}}
	if _, err := NewMomentObjective(New(3), incomplete); err == nil {
		t.Error("no error for an incomplete row")
	}
}

func TestMomentObjectiveImplementsFitObjective(t *testing.T) {
	var _ fit.Objective = (*MomentObjective)(nil)
}
