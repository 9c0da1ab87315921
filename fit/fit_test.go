package fit

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/timeseries"
)

var (
	subjectUp   = timeseries.Series{{Time: 0, Value: 10}, {Time: 1, Value: 11}, {Time: 2, Value: 13}}
	subjectDown = timeseries.Series{{Time: 0, Value: 10}, {Time: 1, Value: 9}, {Time: 2, Value: 8}}
)

func TestTransformRoundTrip(t *testing.T) {
	params := []ssm.Parameter{
		ssm.Bounded("two-sided", -0.2, -1, 0),
		ssm.Free("free", 12),
		ssm.NonNegative("lower-only", 3),
		ssm.Bounded("upper-only", -2, math.Inf(-1), 5),
	}
	tr := transform{params: params}
	theta := ssm.Values(params)
	back := tr.external(tr.internal(theta))
	for i := range theta {
		if !scalar.EqualWithinAbsOrRel(back[i], theta[i], 1e-9, 1e-9) {
			t.Errorf("%s: round trip %v -> %v", params[i].Name, theta[i], back[i])
		}
	}

	// Any search point must land inside the box.
	for _, eta := range [][]float64{
		{-50, 0, -50, -50},
		{50, 1e3, 50, 50},
		{0, 0, 0, 0},
	} {
		th := tr.external(eta)
		if th[0] < -1 || th[0] > 0 {
			t.Errorf("two-sided left the box: %v", th[0])
		}
		if th[2] < 0 {
			t.Errorf("lower-only left the box: %v", th[2])
		}
		if th[3] > 5 {
			t.Errorf("upper-only left the box: %v", th[3])
		}
	}
}

func TestTransformProject(t *testing.T) {
	params := []ssm.Parameter{
		ssm.Bounded("two-sided", -0.2, -1, 0),
		ssm.Free("free", 12),
		ssm.NonNegative("lower-only", 3),
	}
	tr := transform{params: params}

	got := tr.project([]float64{-2, 42, -1})
	want := []float64{-1, 42, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("project[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	interior := []float64{-0.5, -7, 1.5}
	got = tr.project(interior)
	for i := range interior {
		if got[i] != interior[i] {
			t.Errorf("interior point moved: project[%d] = %v, want %v", i, got[i], interior[i])
		}
	}
}

func TestPanelObjectiveAdditivity(t *testing.T) {
	spec := ssm.NewGrowthModel()
	theta := ssm.Values(spec.Params)

	joint := NewPanelObjective(spec, []timeseries.Series{subjectUp, subjectDown})
	vJoint, err := joint.Value(theta)
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, s := range []timeseries.Series{subjectUp, subjectDown} {
		v, err := NewPanelObjective(spec, []timeseries.Series{s}).Value(theta)
		if err != nil {
			t.Fatal(err)
		}
		sum += v
	}
	if vJoint != sum {
		t.Errorf("joint objective %v != sum of subjects %v", vJoint, sum)
	}
}

func TestPanelObjectiveDeterminism(t *testing.T) {
	obj := NewPanelObjective(ssm.NewGrowthModel(), []timeseries.Series{subjectUp, subjectDown})
	theta := ssm.Values(obj.Parameters())
	a, err := obj.Value(theta)
	if err != nil {
		t.Fatal(err)
	}
	b, err := obj.Value(theta)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("repeated evaluations differ: %v vs %v", a, b)
	}
}

func TestPanelObjectiveEmptySubject(t *testing.T) {
	obj := NewPanelObjective(ssm.NewGrowthModel(),
		[]timeseries.Series{subjectUp, nil, subjectDown})
	theta := ssm.Values(obj.Parameters())
	withEmpty, err := obj.Value(theta)
	if err != nil {
		t.Fatal(err)
	}
	without, err := NewPanelObjective(ssm.NewGrowthModel(),
		[]timeseries.Series{subjectUp, subjectDown}).Value(theta)
	if err != nil {
		t.Fatal(err)
	}
	if withEmpty != without {
		t.Errorf("empty subject changed the objective: %v vs %v", withEmpty, without)
	}
}

func TestMinimizeTwoSubjects(t *testing.T) {
	obj := NewPanelObjective(ssm.NewGrowthModel(), []timeseries.Series{subjectUp, subjectDown})

	start, err := obj.Value(ssm.Values(obj.Parameters()))
	if err != nil {
		t.Fatal(err)
	}
	if !(start > 0) || math.IsInf(start, 0) {
		t.Fatalf("starting objective = %v, want finite positive", start)
	}

	res, err := Minimize(obj, Config{MaxIterations: 200, GradientTolerance: 1e-5})
	if errors.Is(err, ErrNonConvergence) {
		t.Fatalf("search did not converge within budget: %v", err)
	}
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Error("result not marked converged")
	}
	if math.IsNaN(res.NegLogLikelihood) || res.NegLogLikelihood > start {
		t.Errorf("fitted objective %v, want finite and <= start %v", res.NegLogLikelihood, start)
	}
	// The optimum for this panel drives the variance estimates onto their
	// bounds and the objective well below zero; a search that stalls on the
	// way down stops near -1.
	if res.NegLogLikelihood > -5 {
		t.Errorf("fitted objective %v, want the bound optimum below -5", res.NegLogLikelihood)
	}
	for i, p := range res.Parameters {
		if p.Value < p.Lower-1e-12 || p.Value > p.Upper+1e-12 {
			t.Errorf("%s = %v escaped [%v, %v]", p.Name, p.Value, p.Lower, p.Upper)
		}
		if res.Theta[i] != p.Value {
			t.Errorf("Theta[%d] = %v disagrees with Parameters[%d].Value = %v",
				i, res.Theta[i], i, p.Value)
		}
	}
}

// alwaysDegenerate reports every trial point as infeasible.
type alwaysDegenerate struct{}

func (alwaysDegenerate) Parameters() []ssm.Parameter {
	return []ssm.Parameter{ssm.Free("x", 1), ssm.NonNegative("y", 2)}
}

func (alwaysDegenerate) Value([]float64) (float64, error) {
	return 0, errors.New("degenerate")
}

func TestMinimizePenalizesDegenerate(t *testing.T) {
	res, err := Minimize(alwaysDegenerate{}, Config{})
	if res == nil {
		t.Fatalf("no result: %v", err)
	}
	if res.DegenerateEvals == 0 {
		t.Error("degenerate evaluations not counted")
	}
	if res.NegLogLikelihood != 1e10 {
		t.Errorf("best value %v, want the penalty", res.NegLogLikelihood)
	}
}

func TestMinimizeIterationBudget(t *testing.T) {
	spec := ssm.NewGrowthModel()
	// Start far from the data so two iterations cannot be enough.
	spec.Params[1].Value = 200
	spec.Params[2].Value = -150
	obj := NewPanelObjective(spec, []timeseries.Series{subjectUp, subjectDown})

	res, err := Minimize(obj, Config{MaxIterations: 2})
	if !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("err = %v, want ErrNonConvergence", err)
	}
	if res == nil {
		t.Fatal("no best-so-far result with ErrNonConvergence")
	}
	if res.Converged {
		t.Error("budget-limited result marked converged")
	}
}

func TestMinimizeNoParameters(t *testing.T) {
	if _, err := Minimize(NewPanelObjective(&ssm.ModelSpec{}, nil), Config{}); err == nil {
		t.Error("no error for an empty parameter vector")
	}
}
