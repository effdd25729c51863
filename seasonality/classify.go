// Package seasonality classifies the sampling frequency and seasonal pattern
// of a series.
//
// The verdict gates seasonal adjustment: only series whose statistic at the
// seasonal lag (12 for monthly data, 4 for quarterly) exceeds the configured
// threshold are adjusted. Series with too few complete cycles are never
// called seasonal; they get LowConfidence instead.
package seasonality

import (
	"fmt"
	"math"

	"github.com/sartorproj/gofredmd/stats"
	"github.com/sartorproj/gofredmd/timeseries"
)

// Metric selects the statistic compared against the threshold.
type Metric string

const (
	// MetricACF is the autocorrelation of the detrended series at the seasonal lag.
	MetricACF Metric = "acf"
	// MetricStrength is the seasonal strength F_S of a classical decomposition.
	MetricStrength Metric = "strength"
)

// ParseMetric parses "acf" or "strength".
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricACF, MetricStrength:
		return Metric(s), nil
	}
	return "", fmt.Errorf("seasonality: unknown metric %q", s)
}

// Config controls classification.
type Config struct {
	// Threshold above which a series is seasonal.
	Threshold float64
	Metric    Metric
	// MinHistoryCycles is the number of complete seasonal cycles needed for
	// a verdict. Values below 2 are treated as 2.
	MinHistoryCycles int
	// FrequencyTolerance is passed to InferFrequency.
	FrequencyTolerance float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:          0.3,
		Metric:             MetricACF,
		MinHistoryCycles:   2,
		FrequencyTolerance: DefaultFrequencyTolerance,
	}
}

// Verdict is the seasonality classification of one series.
type Verdict struct {
	Series    string
	Frequency timeseries.Frequency
	// IsSeasonal reports whether Statistic exceeded the threshold.
	IsSeasonal bool
	// Period is the seasonal period when IsSeasonal, 0 otherwise.
	Period int
	Metric Metric
	// Statistic is the value of Metric compared against the threshold.
	Statistic   float64
	Strength    float64
	SeasonalACF float64
	// QS is the QS statistic on the detrended series.
	QS float64
	// Confidence is 1 minus the QS p-value.
	Confidence float64
	// LowConfidence marks a verdict made on too little data.
	LowConfidence bool
	// Observations is the length of the observed span.
	Observations int
}

// Classify infers the frequency of s and tests it for seasonality.
//
// The test runs on the span between the first and last observation with
// interior gaps interpolated. The trend is removed with a centred moving
// average of the seasonal period before measuring the autocorrelation.
func Classify(s *timeseries.Series, cfg Config) (Verdict, error) {
	if cfg.Metric == "" {
		cfg.Metric = MetricACF
	}
	freq, err := InferFrequency(s, cfg.FrequencyTolerance)
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{
		Series:    s.Name,
		Frequency: freq,
		Metric:    cfg.Metric,
	}

	period := freq.Period()
	span, _ := s.Span()
	n := span.Len()
	v.Observations = n

	cycles := max(cfg.MinHistoryCycles, 2)
	if n < cycles*period {
		v.LowConfidence = true
		return v, nil
	}

	x := span.Interpolate()
	detrended := detrend(x, period)

	v.SeasonalACF = stats.ACFAt(detrended, period)
	if d, err := stats.Decompose(x, period, stats.Additive); err == nil {
		v.Strength = stats.SeasonalStrength(d)
	}
	if qs := stats.QS(detrended, period); qs != nil {
		v.QS = qs.Statistic
		v.Confidence = 1 - qs.PValue
	} else {
		v.LowConfidence = true
	}

	switch cfg.Metric {
	case MetricStrength:
		v.Statistic = v.Strength
	default:
		v.Statistic = v.SeasonalACF
	}

	if v.Statistic > cfg.Threshold {
		v.IsSeasonal = true
		v.Period = period
	}
	return v, nil
}

// detrend subtracts the centred moving average and drops the ends where it
// is undefined.
func detrend(x []float64, period int) []float64 {
	trend := stats.CentredMA(x, period)
	out := make([]float64, 0, len(x))
	for i, t := range trend {
		if math.IsNaN(t) {
			continue
		}
		out = append(out, x[i]-t)
	}
	return out
}
