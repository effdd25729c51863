// Package deseason removes the seasonal component from series that a
// seasonality verdict marked seasonal.
//
// Non-seasonal series pass through unchanged. Seasonal series are decomposed
// into trend, seasonal and residual components at the verdict's period, and
// the adjusted series is the original minus (additive) or divided by
// (multiplicative) the seasonal component. The adjustment is exact on every
// observed point, so the original can always be rebuilt from the adjusted and
// seasonal series.
package deseason

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/gofredmd/arima"
	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/seasonality"
	"github.com/sartorproj/gofredmd/stats"
	"github.com/sartorproj/gofredmd/timeseries"
)

// Result is a deseasonalized series with its components. Seasonal, Trend
// and Residual are nil when the series passed through.
type Result struct {
	Original *timeseries.Series
	Adjusted *timeseries.Series
	Seasonal *timeseries.Series
	Trend    *timeseries.Series
	Residual *timeseries.Series

	Method    Method
	Algorithm Algorithm
	Period    int
	// Extended is the number of values added at each end before estimation.
	Extended int
}

// Deseasonalize adjusts s according to v.
//
// Within the observed span, a run of missing values longer than the period
// is a *errs.DecompositionError. Shorter gaps are interpolated for estimation
// and stay missing in the adjusted series.
func Deseasonalize(s *timeseries.Series, v seasonality.Verdict, opts Options) (*Result, error) {
	if s == nil {
		return nil, errors.New("deseason: nil series")
	}
	if !v.IsSeasonal || v.Period < 2 {
		return passThrough(s), nil
	}
	if opts.Algorithm == "" {
		opts.Algorithm = Classical
	}
	period := v.Period

	if start, length := s.LongestGap(); length > period {
		return nil, errs.NewDecomposition(s.Name, period, s.Timestamps[start],
			fmt.Sprintf("%d consecutive missing values exceed the seasonal period", length))
	}

	span, offset := s.Span()
	if span.Len() < 2*period {
		return nil, errs.NewDecomposition(s.Name, period, timeAt(s, offset),
			fmt.Sprintf("%d observations cover fewer than two seasonal cycles", span.Len()))
	}
	x := span.Interpolate()

	method, err := chooseMethod(span, x, period, opts)
	if err != nil {
		return nil, err
	}

	work, ext := x, 0
	if opts.ExtendEnds {
		ext = max(period/2, 1)
		padded, err := arima.Extend(x, opts.ExtendMaxAR, ext)
		if err != nil {
			return nil, errs.NewDecomposition(s.Name, period, timeAt(s, offset),
				"end extension: "+err.Error())
		}
		work = padded
	}

	model := stats.Additive
	if method == MethodMultiplicative {
		model = stats.Multiplicative
	}

	var d *stats.Decomposition
	switch opts.Algorithm {
	case STL:
		d, err = stats.STL(work, period, model, opts.RobustIters)
	default:
		d, err = stats.Decompose(work, period, model)
	}
	if err != nil {
		return nil, errs.NewDecomposition(s.Name, period, timeAt(s, offset), err.Error())
	}

	n := s.Len()
	adjusted := make([]timeseries.Value, n)
	seasonal := make([]timeseries.Value, n)
	trend := make([]timeseries.Value, n)
	residual := make([]timeseries.Value, n)
	for i := 0; i < span.Len(); i++ {
		idx, j := offset+i, ext+i
		sf := d.Seasonal[j]
		seasonal[idx] = timeseries.FromFloat(sf)
		trend[idx] = timeseries.FromFloat(d.Trend[j])

		o := s.Values[idx]
		if !o.Valid {
			continue
		}
		residual[idx] = timeseries.FromFloat(d.Residual[j])
		if method == MethodMultiplicative {
			adjusted[idx] = timeseries.Some(o.Float / sf)
		} else {
			adjusted[idx] = timeseries.Some(o.Float - sf)
		}
	}

	return &Result{
		Original:  s.Copy(),
		Adjusted:  s.WithValues(adjusted, timeseries.ProvenanceDeseasonalized),
		Seasonal:  component(s, seasonal, "_seasonal"),
		Trend:     component(s, trend, "_trend"),
		Residual:  component(s, residual, "_residual"),
		Method:    method,
		Algorithm: opts.Algorithm,
		Period:    period,
		Extended:  ext,
	}, nil
}

func passThrough(s *timeseries.Series) *Result {
	return &Result{
		Original: s.Copy(),
		Adjusted: s.Copy(),
		Method:   MethodNone,
	}
}

func component(s *timeseries.Series, values []timeseries.Value, suffix string) *timeseries.Series {
	out := s.WithValues(values, s.Provenance)
	out.Name = s.Name + suffix
	return out
}

func timeAt(s *timeseries.Series, i int) time.Time {
	if i >= 0 && i < len(s.Timestamps) {
		return s.Timestamps[i]
	}
	return time.Time{}
}

// ReconstructionError returns the largest deviation between the original and
// the series rebuilt from the adjusted and seasonal components, relative to
// the original value (absolute for values smaller than one in magnitude).
// An observed point missing from the adjusted series counts as +Inf.
func (r *Result) ReconstructionError() float64 {
	worst := 0.0
	for i, o := range r.Original.Values {
		if !o.Valid {
			continue
		}
		a := r.Adjusted.Values[i]
		if !a.Valid {
			return math.Inf(1)
		}

		rebuilt := a.Float
		switch r.Method {
		case MethodAdditive:
			rebuilt += r.Seasonal.Values[i].Float
		case MethodMultiplicative:
			rebuilt *= r.Seasonal.Values[i].Float
		}

		dev := math.Abs(rebuilt - o.Float)
		if scale := math.Abs(o.Float); scale > 1 {
			dev /= scale
		}
		worst = math.Max(worst, dev)
	}
	return worst
}

// chooseMethod resolves the configured mode for one series.
func chooseMethod(span *timeseries.Series, x []float64, period int, opts Options) (Method, error) {
	firstNonPositive := -1
	for i, v := range span.Values {
		if v.Valid && v.Float <= 0 {
			firstNonPositive = i
			break
		}
	}

	switch opts.Mode {
	case ModeAdditive:
		return MethodAdditive, nil
	case ModeMultiplicative:
		if firstNonPositive >= 0 {
			return "", errs.NewDecomposition(span.Name, period, span.Timestamps[firstNonPositive],
				fmt.Sprintf("multiplicative adjustment requires positive values, got %g",
					span.Values[firstNonPositive].Float))
		}
		return MethodMultiplicative, nil
	}

	if firstNonPositive >= 0 {
		return MethodAdditive, nil
	}
	if amplitudeLevelCorrelation(x, period) > opts.AutoCorrelationCutoff {
		return MethodMultiplicative, nil
	}
	return MethodAdditive, nil
}

// amplitudeLevelCorrelation correlates the per-cycle range of the detrended
// series with the per-cycle mean trend. It returns 0 with fewer than three
// complete cycles or when the amplitude does not vary.
func amplitudeLevelCorrelation(x []float64, period int) float64 {
	trend := stats.CentredMA(x, period)
	half := period / 2

	var levels, amps []float64
	for start := half; start+period <= len(x)-half; start += period {
		lo, hi := math.Inf(1), math.Inf(-1)
		level := 0.0
		for i := start; i < start+period; i++ {
			d := x[i] - trend[i]
			lo = math.Min(lo, d)
			hi = math.Max(hi, d)
			level += trend[i]
		}
		levels = append(levels, level/float64(period))
		amps = append(amps, hi-lo)
	}
	if len(amps) < 3 {
		return 0
	}

	mean, std := stat.MeanStdDev(amps, nil)
	if std <= 1e-9*math.Abs(mean) {
		return 0
	}
	r := stat.Correlation(levels, amps, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}
