// Package fit estimates model parameters by bounded maximum likelihood. It
// couples an objective over a named, box-constrained parameter vector with a
// quasi-Newton search from gonum/optimize.
package fit

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/kalman"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/timeseries"
)

// Objective is a scalar cost over a declared parameter vector. Value returns
// an error when the trial point is infeasible (a degenerate likelihood);
// Minimize converts that into a finite penalty so the search continues.
type Objective interface {
	Parameters() []ssm.Parameter
	Value(theta []float64) (float64, error)
}

// PanelObjective is the joint negative log-likelihood of a panel of subjects
// sharing one model spec. Every call evaluates the spec once and filters the
// subjects against that single read-only evaluation; subjects are
// independent, so the filter runs execute concurrently. Contributions are
// summed in subject order, keeping repeated evaluations bitwise identical.
type PanelObjective struct {
	Spec  *ssm.ModelSpec
	Panel []timeseries.Series
}

// NewPanelObjective couples spec with the subject series in panel.
func NewPanelObjective(spec *ssm.ModelSpec, panel []timeseries.Series) *PanelObjective {
	return &PanelObjective{Spec: spec, Panel: panel}
}

// Parameters returns the shared parameter vector declared by the spec.
func (o *PanelObjective) Parameters() []ssm.Parameter {
	return o.Spec.Params
}

// Value returns the negative sum of per-subject log-likelihoods at theta.
// Subjects with an empty series contribute zero. The first subject error, in
// subject order, is returned.
func (o *PanelObjective) Value(theta []float64) (float64, error) {
	model, err := o.Spec.Evaluate(theta)
	if err != nil {
		return 0, err
	}
	lls := make([]float64, len(o.Panel))
	errs := make([]error, len(o.Panel))

	var wg sync.WaitGroup
	wg.Add(len(o.Panel))
	for i := range o.Panel {
		go func(i int) {
			defer wg.Done()
			res, err := kalman.Run(model, o.Panel[i])
			if err != nil {
				errs[i] = err
				return
			}
			lls[i] = res.LogLikelihood
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return 0, fmt.Errorf("subject %d: %w", i, err)
		}
	}
	return -floats.Sum(lls), nil
}

// FilteredStates runs the filter for every subject at theta and returns the
// per-subject results, for reporting terminal state estimates after a fit.
func (o *PanelObjective) FilteredStates(theta []float64) ([]*kalman.Result, error) {
	model, err := o.Spec.Evaluate(theta)
	if err != nil {
		return nil, err
	}
	out := make([]*kalman.Result, len(o.Panel))
	for i, series := range o.Panel {
		if out[i], err = kalman.Run(model, series); err != nil {
			return nil, fmt.Errorf("subject %d: %w", i, err)
		}
	}
	return out, nil
}
