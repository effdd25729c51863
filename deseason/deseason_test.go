package deseason

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/seasonality"
	"github.com/sartorproj/gofredmd/timeseries"
)

var jan2010 = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

func decemberSpikes(years int, noise float64) *timeseries.Series {
	values := make([]float64, 12*years)
	for i := range values {
		values[i] = 100 + 0.5*float64(i) + noise*math.Sin(2.3*float64(i))
		if i%12 == 11 {
			values[i] += 10
		}
	}
	return timeseries.NewRegular("RETAIL", jan2010, timeseries.Monthly, values)
}

// growingSeasonal has a seasonal swing proportional to an exponential level.
func growingSeasonal(years int) *timeseries.Series {
	values := make([]float64, 12*years)
	for i := range values {
		factor := 1 + 0.15*math.Cos(2*math.Pi*float64(i)/12)
		values[i] = 100 * math.Pow(1.015, float64(i)) * factor
	}
	return timeseries.NewRegular("HOUST", jan2010, timeseries.Monthly, values)
}

func seasonalVerdict(s *timeseries.Series) seasonality.Verdict {
	return seasonality.Verdict{
		Series:     s.Name,
		Frequency:  timeseries.Monthly,
		IsSeasonal: true,
		Period:     12,
		Metric:     seasonality.MetricACF,
	}
}

func additive() Options {
	opts := DefaultOptions()
	opts.Mode = ModeAdditive
	return opts
}

func TestPassThrough(t *testing.T) {
	s := decemberSpikes(5, 0.3)
	v := seasonality.Verdict{Series: s.Name, Frequency: timeseries.Monthly}

	res, err := Deseasonalize(s, v, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, MethodNone, res.Method)
	assert.Nil(t, res.Seasonal)
	assert.Equal(t, s.Values, res.Adjusted.Values)
	assert.Equal(t, s.Provenance, res.Adjusted.Provenance)
	assert.Equal(t, 0.0, res.ReconstructionError())

	again, err := Deseasonalize(res.Adjusted, v, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, res.Adjusted.Values, again.Adjusted.Values)

	// the result does not alias the input
	res.Adjusted.Values[0] = timeseries.Some(-1)
	assert.NotEqual(t, -1.0, s.Values[0].Float)
}

func TestDecemberSpikesRemoved(t *testing.T) {
	s := decemberSpikes(10, 0.3)
	cfg := seasonality.DefaultConfig()

	v, err := seasonality.Classify(s, cfg)
	require.NoError(t, err)
	require.True(t, v.IsSeasonal)
	require.Equal(t, 12, v.Period)

	res, err := Deseasonalize(s, v, additive())
	require.NoError(t, err)
	assert.Equal(t, MethodAdditive, res.Method)
	assert.Equal(t, Classical, res.Algorithm)
	assert.Equal(t, timeseries.ProvenanceDeseasonalized, res.Adjusted.Provenance)
	assert.Less(t, res.ReconstructionError(), 1e-6)

	after, err := seasonality.Classify(res.Adjusted, cfg)
	require.NoError(t, err)
	assert.Less(t, after.SeasonalACF, cfg.Threshold)
	assert.False(t, after.IsSeasonal)
	t.Logf("seasonal ACF before %.3f after %.3f", v.SeasonalACF, after.SeasonalACF)
}

func TestReconstructionAdditive(t *testing.T) {
	for _, alg := range []Algorithm{Classical, STL} {
		t.Run(string(alg), func(t *testing.T) {
			s := decemberSpikes(8, 0.5)
			opts := additive()
			opts.Algorithm = alg

			res, err := Deseasonalize(s, seasonalVerdict(s), opts)
			require.NoError(t, err)
			assert.Equal(t, alg, res.Algorithm)
			assert.Less(t, res.ReconstructionError(), 1e-6)

			for i, o := range s.Values {
				sum := res.Adjusted.Values[i].Float + res.Seasonal.Values[i].Float
				assert.InDelta(t, o.Float, sum, 1e-6*math.Abs(o.Float))
			}
		})
	}
}

func TestReconstructionMultiplicative(t *testing.T) {
	for _, alg := range []Algorithm{Classical, STL} {
		t.Run(string(alg), func(t *testing.T) {
			s := growingSeasonal(8)
			opts := DefaultOptions()
			opts.Mode = ModeMultiplicative
			opts.Algorithm = alg

			res, err := Deseasonalize(s, seasonalVerdict(s), opts)
			require.NoError(t, err)
			assert.Equal(t, MethodMultiplicative, res.Method)
			assert.Less(t, res.ReconstructionError(), 1e-6)

			for i, o := range s.Values {
				prod := res.Adjusted.Values[i].Float * res.Seasonal.Values[i].Float
				assert.InDelta(t, o.Float, prod, 1e-6*o.Float)
			}
		})
	}
}

func TestAutoMode(t *testing.T) {
	res, err := Deseasonalize(growingSeasonal(8), seasonalVerdict(growingSeasonal(8)), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, MethodMultiplicative, res.Method)

	flat := decemberSpikes(8, 0)
	res, err = Deseasonalize(flat, seasonalVerdict(flat), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, MethodAdditive, res.Method)

	withNegative := decemberSpikes(8, 0)
	withNegative.Values[30] = timeseries.Some(-4)
	res, err = Deseasonalize(withNegative, seasonalVerdict(withNegative), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, MethodAdditive, res.Method)
}

func TestMultiplicativeRejectsNonPositive(t *testing.T) {
	s := growingSeasonal(5)
	s.Values[20] = timeseries.Some(0)
	opts := DefaultOptions()
	opts.Mode = ModeMultiplicative

	_, err := Deseasonalize(s, seasonalVerdict(s), opts)
	var de *errs.DecompositionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, s.Timestamps[20], de.Timestamp)
	assert.Equal(t, 12, de.Period)
}

func TestShortGapsStayMissing(t *testing.T) {
	s := decemberSpikes(8, 0.3)
	for i := 40; i < 43; i++ {
		s.Values[i] = timeseries.Missing()
	}

	res, err := Deseasonalize(s, seasonalVerdict(s), additive())
	require.NoError(t, err)
	for i := 40; i < 43; i++ {
		assert.False(t, res.Adjusted.Values[i].Valid, "index %d", i)
		assert.True(t, res.Seasonal.Values[i].Valid, "index %d", i)
	}
	assert.True(t, res.Adjusted.Values[43].Valid)
	assert.Less(t, res.ReconstructionError(), 1e-6)
}

func TestLongGapFails(t *testing.T) {
	s := decemberSpikes(8, 0.3)
	for i := 30; i < 43; i++ {
		s.Values[i] = timeseries.Missing()
	}

	_, err := Deseasonalize(s, seasonalVerdict(s), additive())
	require.Error(t, err)
	assert.Equal(t, errs.KindDecomposition, errs.KindOf(err))

	var de *errs.DecompositionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "RETAIL", de.Series)
	assert.Equal(t, s.Timestamps[30], de.Timestamp)
}

func TestBoundaryMissingIgnored(t *testing.T) {
	s := decemberSpikes(8, 0.3)
	for i := 0; i < 20; i++ {
		s.Values[i] = timeseries.Missing()
	}

	res, err := Deseasonalize(s, seasonalVerdict(s), additive())
	require.NoError(t, err)
	assert.False(t, res.Adjusted.Values[0].Valid)
	assert.False(t, res.Seasonal.Values[0].Valid)
	assert.True(t, res.Adjusted.Values[20].Valid)
	assert.Less(t, res.ReconstructionError(), 1e-6)
}

func TestTooShortFails(t *testing.T) {
	s := decemberSpikes(1, 0)
	_, err := Deseasonalize(s, seasonalVerdict(s), additive())
	assert.Equal(t, errs.KindDecomposition, errs.KindOf(err))
}

func TestExtendEnds(t *testing.T) {
	s := decemberSpikes(8, 0.3)

	plain, err := Deseasonalize(s, seasonalVerdict(s), additive())
	require.NoError(t, err)
	assert.False(t, plain.Trend.Values[0].Valid)
	assert.Equal(t, 0, plain.Extended)

	opts := additive()
	opts.ExtendEnds = true
	res, err := Deseasonalize(s, seasonalVerdict(s), opts)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Extended)
	assert.True(t, res.Trend.Values[0].Valid)
	assert.True(t, res.Trend.Values[s.Len()-1].Valid)
	assert.Less(t, res.ReconstructionError(), 1e-6)
}

func TestParseOptions(t *testing.T) {
	m, err := ParseMode("auto")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)
	_, err = ParseMode("x11")
	assert.Error(t, err)

	a, err := ParseAlgorithm("stl")
	require.NoError(t, err)
	assert.Equal(t, STL, a)
	_, err = ParseAlgorithm("x13")
	assert.Error(t, err)
}
