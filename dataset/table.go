// Package dataset loads wide-format panel tables: one row per subject, one
// column block with the observed value at each measurement occasion and a
// parallel block with the exact observation age, plus a leading subject
// identifier. Missing entries use a single configurable marker.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/timeseries"
)

// ErrMalformedTable marks input that does not match the wide layout.
var ErrMalformedTable = errors.New("dataset: malformed table")

// Options configures parsing of a wide table.
type Options struct {
	// Missing is the marker for absent entries. Default "NA".
	Missing string
	// Occasions is the number of measurement occasions. Zero infers it as
	// half the data columns.
	Occasions int
	// AllowEmpty skips subjects without a single valid observation instead
	// of failing fast.
	AllowEmpty bool
}

// Table is the in-memory wide table: per subject a value vector and an age
// vector of equal length, with NaN marking missing entries.
type Table struct {
	IDs    []string
	Values [][]float64
	Ages   [][]float64

	allowEmpty bool
}

// ReadWide parses CSV input with a header row and the layout
//
//	id, y1..yT, a1..aT
//
// into a Table.
func ReadWide(r io.Reader, opts Options) (*Table, error) {
	if opts.Missing == "" {
		opts.Missing = "NA"
	}
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	t := opts.Occasions
	if t == 0 {
		if (len(header)-1)%2 != 0 {
			return nil, fmt.Errorf("%w: %d data columns do not split into value and age blocks",
				ErrMalformedTable, len(header)-1)
		}
		t = (len(header) - 1) / 2
	}
	if len(header) != 1+2*t {
		return nil, fmt.Errorf("%w: %d columns, want %d for %d occasions",
			ErrMalformedTable, len(header), 1+2*t, t)
	}

	tab := &Table{allowEmpty: opts.AllowEmpty}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTable, line, err)
		}
		values := make([]float64, t)
		ages := make([]float64, t)
		for j := 0; j < t; j++ {
			if values[j], err = parseCell(rec[1+j], opts.Missing); err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %v", ErrMalformedTable, line, 2+j, err)
			}
			if ages[j], err = parseCell(rec[1+t+j], opts.Missing); err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %v", ErrMalformedTable, line, 2+t+j, err)
			}
		}
		tab.IDs = append(tab.IDs, rec[0])
		tab.Values = append(tab.Values, values)
		tab.Ages = append(tab.Ages, ages)
	}
	if len(tab.IDs) == 0 {
		return nil, fmt.Errorf("%w: no subject rows", ErrMalformedTable)
	}
	return tab, nil
}

func parseCell(cell, missing string) (float64, error) {
	if cell == missing || cell == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

// Occasions returns the number of measurement occasions.
func (t *Table) Occasions() int {
	if len(t.Values) == 0 {
		return 0
	}
	return len(t.Values[0])
}

// Series builds the per-subject observation sequences for the
// continuous-time engine. Subjects without a single valid observation fail
// with the builder's ErrInvalidRecord unless the table was read with
// AllowEmpty, in which case they are dropped; IDs returns the identifiers of
// the kept subjects, aligned with the series.
func (t *Table) Series() (series []timeseries.Series, ids []string, err error) {
	for i := range t.Values {
		s, err := timeseries.Build(t.Values[i], t.Ages[i])
		if err != nil {
			if t.allowEmpty && errors.Is(err, timeseries.ErrNoObservations) {
				continue
			}
			return nil, nil, fmt.Errorf("subject %s: %w", t.IDs[i], err)
		}
		series = append(series, s)
		ids = append(ids, t.IDs[i])
	}
	if len(series) == 0 {
		return nil, nil, fmt.Errorf("%w: no subject with valid observations", ErrMalformedTable)
	}
	return series, ids, nil
}

// CompleteCases returns the value rows with every occasion present, for the
// regular-grid discrete-time model.
func (t *Table) CompleteCases() [][]float64 {
	var rows [][]float64
	for _, row := range t.Values {
		complete := true
		for _, v := range row {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, row)
		}
	}
	return rows
}
