// Package timeseries builds per-subject observation sequences from wide-format
// panel records with irregular, subject-specific measurement ages.
package timeseries

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRecord marks a structurally malformed subject record: mismatched
// value and age vectors, no valid observation at all, or ages out of order.
// It is fatal at data preparation time, before any optimization begins.
var ErrInvalidRecord = errors.New("timeseries: invalid subject record")

// ErrNoObservations is the InvalidRecord case of a subject whose every
// occasion is missing. The data layer may elect to drop such subjects
// instead of failing; the other InvalidRecord cases are always fatal.
var ErrNoObservations = fmt.Errorf("%w: no valid observation", ErrInvalidRecord)

// Observation is a single measured value at a subject-specific age.
type Observation struct {
	Time  float64
	Value float64
}

// Series is one subject's chronologically ordered observation sequence. It is
// built once and read-only thereafter.
type Series []Observation

// Build filters one subject's parallel value and age vectors into a Series.
// Missing entries are marked by NaN in either vector; an occasion is kept
// only when both its value and its age are present. The surviving
// observations keep their original order and are re-indexed consecutively
// from zero.
//
// Build fails with ErrInvalidRecord when the vectors differ in length, when
// no occasion survives the filtering, or when the surviving ages are not
// strictly increasing and non-negative.
func Build(values, ages []float64) (Series, error) {
	if len(values) != len(ages) {
		return nil, fmt.Errorf("%w: %d values for %d ages", ErrInvalidRecord, len(values), len(ages))
	}
	s := make(Series, 0, len(values))
	for i := range values {
		if math.IsNaN(values[i]) || math.IsNaN(ages[i]) {
			continue
		}
		if ages[i] < 0 {
			return nil, fmt.Errorf("%w: negative age %v at occasion %d", ErrInvalidRecord, ages[i], i)
		}
		if n := len(s); n > 0 && ages[i] <= s[n-1].Time {
			return nil, fmt.Errorf("%w: age %v at occasion %d not after %v",
				ErrInvalidRecord, ages[i], i, s[n-1].Time)
		}
		s = append(s, Observation{Time: ages[i], Value: values[i]})
	}
	if len(s) == 0 {
		return nil, ErrNoObservations
	}
	return s, nil
}

// Times returns the observation ages in order.
func (s Series) Times() []float64 {
	out := make([]float64, len(s))
	for i, o := range s {
		out[i] = o.Time
	}
	return out
}

// Values returns the observed values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, o := range s {
		out[i] = o.Value
	}
	return out
}
