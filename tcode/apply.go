package tcode

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/timeseries"
)

// Apply transforms s with code. The result is shorter than s by the code's
// lag order; the dropped leading timestamps are kept in Dropped and ValidFrom
// records the offset. Interior missing values stay missing.
//
// The first LagOrder+1 values from the first observation must be present,
// otherwise an *errs.InsufficientHistoryError is returned. Log codes fail with
// *errs.NonPositiveValueError at the first value <= 0; code 7 fails the same
// way on a zero base value.
func Apply(s *timeseries.Series, code Code) (*timeseries.Series, error) {
	if s == nil {
		return nil, errors.New("tcode: nil series")
	}
	if !code.Valid() {
		return nil, errs.NewInvalidCode(s.Name, int(code))
	}

	lag := code.LagOrder()
	first := s.FirstObserved()
	if first < 0 {
		return nil, errs.NewInsufficientHistory(s.Name, lag, 0)
	}
	run := 0
	for i := first; i < s.Len() && i <= first+lag && s.Values[i].Valid; i++ {
		run++
	}
	if run < lag+1 {
		return nil, errs.NewInsufficientHistory(s.Name, lag, run)
	}

	if err := checkDomain(s, code); err != nil {
		return nil, err
	}

	var out []timeseries.Value
	switch code {
	case Level:
		out = append([]timeseries.Value(nil), s.Values...)
	case Diff:
		out = diff(s.Values)
	case Diff2:
		out = diff(diff(s.Values))
	case Log:
		out = logValues(s.Values)
	case LogDiff:
		out = diff(logValues(s.Values))
	case LogDiff2:
		out = diff(diff(logValues(s.Values)))
	case PctChangeDiff:
		out = diff(pctChange(s.Values))
	}

	timestamps := make([]time.Time, s.Len()-lag)
	copy(timestamps, s.Timestamps[lag:])
	dropped := make([]time.Time, lag)
	copy(dropped, s.Timestamps[:lag])

	return &timeseries.Series{
		Name:       s.Name,
		Timestamps: timestamps,
		Values:     out[lag:],
		Frequency:  s.Frequency,
		Provenance: timeseries.ProvenanceTransformed,
		Code:       int(code),
		ValidFrom:  lag,
		Dropped:    dropped,
	}, nil
}

func checkDomain(s *timeseries.Series, code Code) error {
	if code.IsLog() {
		for i, v := range s.Values {
			if v.Valid && v.Float <= 0 {
				return errs.NewNonPositiveValue(s.Name, s.Timestamps[i], v.Float, "")
			}
		}
	}
	if code == PctChangeDiff {
		for i := 1; i < s.Len(); i++ {
			prev, cur := s.Values[i-1], s.Values[i]
			if prev.Valid && cur.Valid && prev.Float == 0 {
				return errs.NewNonPositiveValue(s.Name, s.Timestamps[i-1], 0,
					"percent change undefined for a zero base value")
			}
		}
	}
	return nil
}

// diff returns x[t] - x[t-1] with the same length as x; the first value is missing.
func diff(x []timeseries.Value) []timeseries.Value {
	out := make([]timeseries.Value, len(x))
	for i := 1; i < len(x); i++ {
		if x[i].Valid && x[i-1].Valid {
			out[i] = timeseries.Some(x[i].Float - x[i-1].Float)
		}
	}
	return out
}

func logValues(x []timeseries.Value) []timeseries.Value {
	out := make([]timeseries.Value, len(x))
	for i, v := range x {
		if v.Valid {
			out[i] = timeseries.Some(math.Log(v.Float))
		}
	}
	return out
}

func pctChange(x []timeseries.Value) []timeseries.Value {
	out := make([]timeseries.Value, len(x))
	for i := 1; i < len(x); i++ {
		if x[i].Valid && x[i-1].Valid {
			out[i] = timeseries.FromFloat(x[i].Float/x[i-1].Float - 1)
		}
	}
	return out
}

// Invert rebuilds levels from a transformed series and the LagOrder raw
// values that preceded it. The result has len(initial)+len(transformed)
// values. Neither input may contain NaN.
func Invert(transformed []float64, code Code, initial []float64) ([]float64, error) {
	if !code.Valid() {
		return nil, fmt.Errorf("tcode: invalid code %d", int(code))
	}
	if len(initial) != code.LagOrder() {
		return nil, fmt.Errorf("tcode: %s needs %d initial values, got %d",
			code, code.LagOrder(), len(initial))
	}
	for _, v := range append(append([]float64(nil), initial...), transformed...) {
		if math.IsNaN(v) {
			return nil, errors.New("tcode: cannot invert a series with missing values")
		}
	}

	levels := make([]float64, 0, len(initial)+len(transformed))
	levels = append(levels, initial...)

	switch code {
	case Level:
		levels = append(levels, transformed...)
	case Log:
		for _, v := range transformed {
			levels = append(levels, math.Exp(v))
		}
	case Diff:
		levels = append(levels, cumsum(transformed, initial[0])...)
	case Diff2:
		d := cumsum(transformed, initial[1]-initial[0])
		levels = append(levels, cumsum(d, initial[1])...)
	case LogDiff, LogDiff2:
		for _, v := range initial {
			if v <= 0 {
				return nil, errors.New("tcode: initial values must be positive for log codes")
			}
		}
		var logs []float64
		if code == LogDiff {
			logs = cumsum(transformed, math.Log(initial[0]))
		} else {
			l0, l1 := math.Log(initial[0]), math.Log(initial[1])
			logs = cumsum(cumsum(transformed, l1-l0), l1)
		}
		for _, v := range logs {
			levels = append(levels, math.Exp(v))
		}
	case PctChangeDiff:
		if initial[0] == 0 {
			return nil, errors.New("tcode: zero base value")
		}
		growth := cumsum(transformed, initial[1]/initial[0]-1)
		prev := initial[1]
		for _, g := range growth {
			prev *= 1 + g
			levels = append(levels, prev)
		}
	}
	return levels, nil
}

// cumsum returns start+y[0], start+y[0]+y[1], ...
func cumsum(y []float64, start float64) []float64 {
	out := make([]float64, len(y))
	acc := start
	for i, v := range y {
		acc += v
		out[i] = acc
	}
	return out
}

// ApplyPanel transforms every series of p that has a valid code. Series that
// fail are left out and their errors joined; the returned panel keeps p's
// index, so transformed series start with missing rows.
func ApplyPanel(p *timeseries.Panel, codes Map) (*timeseries.Panel, error) {
	out := timeseries.NewPanel(p.Index, p.Frequency)
	var failures []error
	for _, s := range p.Series() {
		code, err := codes.Lookup(s.Name)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		t, err := Apply(s, code)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if err := out.Add(t); err != nil {
			failures = append(failures, err)
		}
	}
	return out, errors.Join(failures...)
}
