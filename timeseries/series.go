// Package timeseries provides core time series data structures and operations.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Value is an observation that may be missing.
type Value struct {
	Float float64
	Valid bool
}

// Some returns an observed value.
func Some(v float64) Value {
	return Value{Float: v, Valid: true}
}

// Missing returns a missing value.
func Missing() Value {
	return Value{}
}

// FromFloat converts v to a Value, treating NaN and infinities as missing.
func FromFloat(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Some(v)
}

// OrNaN returns the float, or NaN if the value is missing.
func (v Value) OrNaN() float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float
}

// Provenance records the last stage that produced a series.
type Provenance string

const (
	ProvenanceRaw            Provenance = "raw"
	ProvenanceTransformed    Provenance = "transformed"
	ProvenanceDeseasonalized Provenance = "deseasonalized"
	ProvenanceStandardized   Provenance = "standardized"
)

// Series represents a time series with timestamps and possibly missing values.
type Series struct {
	Name       string
	Timestamps []time.Time
	Values     []Value
	Frequency  Frequency
	Provenance Provenance

	// Code is the transformation code applied, 0 for raw data.
	Code int
	// ValidFrom is the offset into the parent series where this series starts.
	ValidFrom int
	// Dropped holds the leading parent timestamps consumed by a transformation.
	Dropped []time.Time
}

// New creates a monthly series starting January 2000. NaN marks a missing value.
func New(values []float64) *Series {
	return NewRegular("", time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), Monthly, values)
}

// NewRegular creates a series with evenly spaced monthly or quarterly timestamps.
func NewRegular(name string, start time.Time, freq Frequency, values []float64) *Series {
	step := freq.Months()
	if step == 0 {
		step = 1
	}
	timestamps := make([]time.Time, len(values))
	vals := make([]Value, len(values))
	for i, v := range values {
		timestamps[i] = AddMonths(start, i*step)
		vals[i] = FromFloat(v)
	}
	return &Series{
		Name:       name,
		Timestamps: timestamps,
		Values:     vals,
		Frequency:  freq,
		Provenance: ProvenanceRaw,
	}
}

// NewWithTimestamps creates a raw series with explicit timestamps.
// Timestamps must be strictly increasing.
func NewWithTimestamps(name string, timestamps []time.Time, values []Value) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			return nil, fmt.Errorf("series %q: timestamps not strictly increasing at %s",
				name, timestamps[i].Format("2006-01-02"))
		}
	}
	return &Series{
		Name:       name,
		Timestamps: timestamps,
		Values:     values,
		Provenance: ProvenanceRaw,
	}, nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Floats returns the values as float64 with NaN for missing entries.
func (s *Series) Floats() []float64 {
	out := make([]float64, len(s.Values))
	for i, v := range s.Values {
		out[i] = v.OrNaN()
	}
	return out
}

// Observed returns the observed values in order, skipping missing ones.
func (s *Series) Observed() []float64 {
	out := make([]float64, 0, len(s.Values))
	for _, v := range s.Values {
		if v.Valid {
			out = append(out, v.Float)
		}
	}
	return out
}

// ObservedCount returns the number of non-missing values.
func (s *Series) ObservedCount() int {
	n := 0
	for _, v := range s.Values {
		if v.Valid {
			n++
		}
	}
	return n
}

// FirstObserved returns the index of the first observed value, or -1.
func (s *Series) FirstObserved() int {
	for i, v := range s.Values {
		if v.Valid {
			return i
		}
	}
	return -1
}

// LastObserved returns the index of the last observed value, or -1.
func (s *Series) LastObserved() int {
	for i := len(s.Values) - 1; i >= 0; i-- {
		if s.Values[i].Valid {
			return i
		}
	}
	return -1
}

// Mean calculates the arithmetic mean of the observed values.
func (s *Series) Mean() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return math.NaN()
	}
	return stat.Mean(obs, nil)
}

// Variance calculates the variance of the observed values with the given
// delta degrees of freedom (0 for population, 1 for sample variance).
func (s *Series) Variance(ddof int) float64 {
	obs := s.Observed()
	if len(obs) <= ddof || len(obs) == 0 {
		return math.NaN()
	}
	// stat.Variance uses n-1; rescale for the requested ddof.
	if len(obs) == 1 {
		return 0
	}
	v := stat.Variance(obs, nil)
	n := float64(len(obs))
	return v * (n - 1) / (n - float64(ddof))
}

// Std calculates the standard deviation of the observed values.
func (s *Series) Std(ddof int) float64 {
	return math.Sqrt(s.Variance(ddof))
}

// Min returns the minimum observed value.
func (s *Series) Min() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return math.NaN()
	}
	min := obs[0]
	for _, v := range obs[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the maximum observed value.
func (s *Series) Max() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return math.NaN()
	}
	max := obs[0]
	for _, v := range obs[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Median returns the median observed value.
func (s *Series) Median() float64 {
	sorted := s.Observed()
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Diff calculates the first difference of the series.
func (s *Series) Diff() *Series {
	return s.DiffN(1)
}

// DiffN calculates the lag-n difference x[t] - x[t-n]. A missing operand
// yields a missing output.
func (s *Series) DiffN(n int) *Series {
	if n <= 0 || len(s.Values) <= n {
		return s.derive(nil, nil, "_diff")
	}

	result := make([]Value, len(s.Values)-n)
	for i := n; i < len(s.Values); i++ {
		a, b := s.Values[i], s.Values[i-n]
		if a.Valid && b.Valid {
			result[i-n] = Some(a.Float - b.Float)
		}
	}

	timestamps := make([]time.Time, len(result))
	copy(timestamps, s.Timestamps[n:])

	return s.derive(timestamps, result, "_diff")
}

// Log applies the natural logarithm. Non-positive values become missing.
func (s *Series) Log() *Series {
	result := make([]Value, len(s.Values))
	for i, v := range s.Values {
		if v.Valid && v.Float > 0 {
			result[i] = Some(math.Log(v.Float))
		}
	}

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	return s.derive(timestamps, result, "_log")
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return s.derive(nil, nil, "")
	}

	values := make([]Value, end-start)
	copy(values, s.Values[start:end])

	timestamps := make([]time.Time, len(values))
	copy(timestamps, s.Timestamps[start:end])

	return s.derive(timestamps, values, "")
}

// Span returns the sub-series between the first and last observed values.
// The second return value is the offset of the span in s.
func (s *Series) Span() (*Series, int) {
	first, last := s.FirstObserved(), s.LastObserved()
	if first < 0 {
		return s.derive(nil, nil, ""), 0
	}
	return s.Slice(first, last+1), first
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]Value, len(s.Values))
	copy(values, s.Values)

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	out := s.derive(timestamps, values, "")
	if s.Dropped != nil {
		out.Dropped = append([]time.Time(nil), s.Dropped...)
	}
	return out
}

// WithValues returns a copy of s carrying new values and provenance.
// values must have the same length as s.
func (s *Series) WithValues(values []Value, p Provenance) *Series {
	out := s.Copy()
	copy(out.Values, values)
	out.Provenance = p
	return out
}

// LongestGap returns the start index and length of the longest run of
// missing values strictly inside the observed span.
func (s *Series) LongestGap() (start, length int) {
	first, last := s.FirstObserved(), s.LastObserved()
	if first < 0 {
		return -1, 0
	}
	start = -1
	run, runStart := 0, 0
	for i := first; i <= last; i++ {
		if s.Values[i].Valid {
			if run > length {
				start, length = runStart, run
			}
			run = 0
			continue
		}
		if run == 0 {
			runStart = i
		}
		run++
	}
	return start, length
}

// Interpolate returns the values with interior gaps filled by linear
// interpolation. Leading and trailing missing values stay NaN.
func (s *Series) Interpolate() []float64 {
	out := s.Floats()
	prev := -1
	for i, v := range s.Values {
		if !v.Valid {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			a, b := s.Values[prev].Float, v.Float
			for j := prev + 1; j < i; j++ {
				w := float64(j-prev) / float64(i-prev)
				out[j] = a + w*(b-a)
			}
		}
		prev = i
	}
	return out
}

func (s *Series) derive(timestamps []time.Time, values []Value, suffix string) *Series {
	if timestamps == nil {
		timestamps = []time.Time{}
	}
	if values == nil {
		values = []Value{}
	}
	return &Series{
		Name:       s.Name + suffix,
		Timestamps: timestamps,
		Values:     values,
		Frequency:  s.Frequency,
		Provenance: s.Provenance,
		Code:       s.Code,
		ValidFrom:  s.ValidFrom,
	}
}

// AddMonths adds n calendar months to t, keeping the day of month where possible.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	first := time.Date(y, time.Month(total+1), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// MonthsBetween returns the number of calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
