// Package growthfit fits longitudinal growth models to panel data with
// irregular, per-subject observation times. Two model families describe the
// same developmental process: a continuous-time linear state space model
// estimated by per-subject Kalman filtering under shared parameters, and a
// discrete-time dual change score model estimated from expected moments on
// the regular measurement grid.
package growthfit

import (
	"fmt"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/dataset"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/fit"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/kalman"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/lcs"
	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/ssm"
)

// ContinuousResult bundles the fitted continuous-time model with the
// per-subject terminal filtered states it implies.
type ContinuousResult struct {
	*fit.Result
	// IDs are the identifiers of the fitted subjects, aligned with States.
	IDs []string
	// States holds each subject's terminal filtered mean and covariance at
	// the estimate.
	States []*kalman.Result
}

// Continuous fits the two-state continuous-time growth model to table by
// joint maximum likelihood over all subjects. Convergence failures return
// the best result found together with fit.ErrNonConvergence.
func Continuous(table *dataset.Table, cfg fit.Config) (*ContinuousResult, error) {
	panel, ids, err := table.Series()
	if err != nil {
		return nil, err
	}
	obj := fit.NewPanelObjective(ssm.NewGrowthModel(), panel)
	res, err := fit.Minimize(obj, cfg)
	if res == nil {
		return nil, err
	}
	out := &ContinuousResult{Result: res, IDs: ids}
	if states, serr := obj.FilteredStates(res.Theta); serr == nil {
		out.States = states
	}
	return out, err
}

// ChangeScore fits the discrete-time dual change score model to the
// complete-case rows of table. The model needs change scores, so tables with
// fewer than two occasions are rejected.
func ChangeScore(table *dataset.Table, cfg fit.Config) (*fit.Result, error) {
	if t := table.Occasions(); t < 2 {
		return nil, fmt.Errorf("growthfit: change score model needs at least two occasions, got %d", t)
	}
	rows := table.CompleteCases()
	if len(rows) == 0 {
		return nil, fmt.Errorf("growthfit: no complete-case subject for the change score model")
	}
	obj, err := lcs.NewMomentObjective(lcs.New(table.Occasions()), rows)
	if err != nil {
		return nil, err
	}
	return fit.Minimize(obj, cfg)
}
