package tcode

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/timeseries"
)

var start = time.Date(1959, time.January, 1, 0, 0, 0, 0, time.UTC)

func series(name string, values ...float64) *timeseries.Series {
	return timeseries.NewRegular(name, start, timeseries.Monthly, values)
}

func TestCodeProperties(t *testing.T) {
	tests := []struct {
		code  Code
		lag   int
		isLog bool
		name  string
	}{
		{Level, 0, false, "level"},
		{Diff, 1, false, "diff"},
		{Diff2, 2, false, "diff2"},
		{Log, 0, true, "log"},
		{LogDiff, 1, true, "logdiff"},
		{LogDiff2, 2, true, "logdiff2"},
		{PctChangeDiff, 2, false, "pctdiff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.lag, tt.code.LagOrder())
			assert.Equal(t, tt.isLog, tt.code.IsLog())
			assert.Equal(t, tt.name, tt.code.String())
			assert.True(t, tt.code.Valid())
		})
	}
	assert.Len(t, Codes, 7)
}

func TestParseCode(t *testing.T) {
	c, err := ParseCode(5)
	require.NoError(t, err)
	assert.Equal(t, LogDiff, c)

	for _, bad := range []int{0, 8, -1} {
		_, err := ParseCode(bad)
		assert.Error(t, err, "code %d", bad)
	}
	assert.Equal(t, "Code(9)", Code(9).String())
}

func TestApplyLengthAndMetadata(t *testing.T) {
	s := series("INDPRO", 100, 102, 101, 105, 107, 106, 110, 111)

	for _, code := range Codes {
		t.Run(code.String(), func(t *testing.T) {
			out, err := Apply(s, code)
			require.NoError(t, err)

			lag := code.LagOrder()
			assert.Equal(t, s.Len()-lag, out.Len())
			assert.Equal(t, lag, out.ValidFrom)
			assert.Equal(t, s.Timestamps[:lag], out.Dropped)
			assert.Equal(t, s.Timestamps[lag:], out.Timestamps)
			assert.Equal(t, int(code), out.Code)
			assert.Equal(t, timeseries.ProvenanceTransformed, out.Provenance)
			assert.Equal(t, "INDPRO", out.Name)

			// input untouched
			assert.Equal(t, timeseries.ProvenanceRaw, s.Provenance)
			assert.Equal(t, 8, s.Len())
		})
	}
}

func TestApplyValues(t *testing.T) {
	s := series("X", 100, 110, 121)

	out, err := Apply(s, Diff)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 11}, out.Floats(), 1e-12)

	out, err = Apply(s, Diff2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1}, out.Floats(), 1e-12)

	out, err = Apply(s, LogDiff)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.1), out.Values[0].Float, 1e-12)
	assert.InDelta(t, math.Log(1.1), out.Values[1].Float, 1e-12)

	// growth is 10% both periods, so its change is zero
	out, err = Apply(s, PctChangeDiff)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.InDelta(t, 0, out.Values[0].Float, 1e-12)
}

func TestApplyPropagatesInteriorMissing(t *testing.T) {
	s := series("X", 1, 2, 4, math.NaN(), 11, 16)

	out, err := Apply(s, Diff)
	require.NoError(t, err)
	require.Equal(t, 5, out.Len())
	assert.True(t, out.Values[0].Valid)
	assert.True(t, out.Values[1].Valid)
	assert.False(t, out.Values[2].Valid)
	assert.False(t, out.Values[3].Valid)
	assert.True(t, out.Values[4].Valid)
	assert.Equal(t, 5.0, out.Values[4].Float)
}

func TestApplyLeadingMissingShiftsWindow(t *testing.T) {
	s := series("X", math.NaN(), math.NaN(), 3, 5, 8)

	out, err := Apply(s, Diff)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	assert.False(t, out.Values[0].Valid)
	assert.False(t, out.Values[1].Valid)
	assert.Equal(t, 2.0, out.Values[2].Float)
}

func TestApplyInsufficientHistory(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		code      Code
		available int
	}{
		{"too short", []float64{1, 2}, Diff2, 2},
		{"gap in window", []float64{1, math.NaN(), 3, 4}, Diff, 1},
		{"all missing", []float64{math.NaN(), math.NaN()}, Level, 0},
		{"empty", nil, Diff, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(series("SHORT", tt.values...), tt.code)
			require.Error(t, err)

			var hist *errs.InsufficientHistoryError
			require.True(t, errors.As(err, &hist))
			assert.Equal(t, "SHORT", hist.Series)
			assert.Equal(t, tt.code.LagOrder(), hist.LagOrder)
			assert.Equal(t, tt.available, hist.Available)
			assert.Equal(t, errs.KindInsufficientHistory, errs.KindOf(err))
		})
	}
}

func TestApplyLogRejectsNegative(t *testing.T) {
	s := series("HOUST", 5, 4, 3, -2.0, 6)

	for _, code := range []Code{Log, LogDiff, LogDiff2} {
		_, err := Apply(s, code)
		require.Error(t, err)

		var npe *errs.NonPositiveValueError
		require.True(t, errors.As(err, &npe))
		assert.Equal(t, "HOUST", npe.Series)
		assert.Equal(t, -2.0, npe.Value)
		assert.Equal(t, s.Timestamps[3], npe.Timestamp)
		assert.True(t, strings.Contains(err.Error(), "1959-04-01"))
	}

	// Non-log codes accept negative values.
	_, err := Apply(s, Diff)
	assert.NoError(t, err)
}

func TestApplyPctChangeZeroBase(t *testing.T) {
	s := series("X", 1, 0, 2, 3)

	_, err := Apply(s, PctChangeDiff)
	var npe *errs.NonPositiveValueError
	require.True(t, errors.As(err, &npe))
	assert.Equal(t, s.Timestamps[1], npe.Timestamp)
}

func TestApplyInvalidCode(t *testing.T) {
	_, err := Apply(series("X", 1, 2, 3), Code(8))
	assert.Equal(t, errs.KindInvalidCode, errs.KindOf(err))

	_, err = Apply(nil, Level)
	assert.Error(t, err)
}

func TestInvertRoundTrip(t *testing.T) {
	raw := []float64{100, 101.5, 99.8, 103.2, 104.9, 104.1, 108.3, 110.0, 109.2, 112.7}
	s := series("X", raw...)

	for _, code := range Codes {
		t.Run(code.String(), func(t *testing.T) {
			out, err := Apply(s, code)
			require.NoError(t, err)

			lag := code.LagOrder()
			levels, err := Invert(out.Floats(), code, raw[:lag])
			require.NoError(t, err)
			require.Len(t, levels, len(raw))
			for i := range raw {
				assert.InDelta(t, raw[i], levels[i], 1e-9*math.Abs(raw[i]), "index %d", i)
			}
		})
	}
}

func TestInvertErrors(t *testing.T) {
	_, err := Invert([]float64{1, 2}, Diff, nil)
	assert.Error(t, err)

	_, err = Invert([]float64{1, math.NaN()}, Diff, []float64{1})
	assert.Error(t, err)

	_, err = Invert([]float64{0.1}, LogDiff, []float64{-1})
	assert.Error(t, err)

	_, err = Invert([]float64{0.1}, Code(0), nil)
	assert.Error(t, err)
}

func TestMapLookup(t *testing.T) {
	m := ParseMap(map[string]int{"RPI": 5, "UNRATE": 2, "BAD": 9})

	c, err := m.Lookup("RPI")
	require.NoError(t, err)
	assert.Equal(t, LogDiff, c)

	_, err = m.Lookup("BAD")
	assert.Equal(t, errs.KindInvalidCode, errs.KindOf(err))

	_, err = m.Lookup("NOPE")
	assert.Equal(t, errs.KindMissingCode, errs.KindOf(err))

	assert.Equal(t, []string{"BAD", "RPI", "UNRATE"}, m.Names())
	assert.Equal(t, 9, m.Ints()["BAD"])
}

func TestLoadMap(t *testing.T) {
	m, err := LoadMap(strings.NewReader(`{"RPI": 5, "W875RX1": "5", "UNRATE": 2.0}`))
	require.NoError(t, err)
	assert.Equal(t, Map{"RPI": LogDiff, "W875RX1": LogDiff, "UNRATE": Diff}, m)

	_, err = LoadMap(strings.NewReader(`{"RPI": "five"}`))
	assert.Error(t, err)

	_, err = LoadMap(strings.NewReader(`{"RPI": 2.5}`))
	assert.Error(t, err)

	_, err = LoadMap(strings.NewReader(`[1, 2]`))
	assert.Error(t, err)
}

func TestMapCheck(t *testing.T) {
	m := ParseMap(map[string]int{"RPI": 5, "UNRATE": 2, "OLD": 1, "BAD": 0})

	cov := m.Check([]string{"RPI", "BAD", "INDPRO", "UNRATE"})
	assert.Equal(t, []string{"BAD", "INDPRO"}, cov.Missing)
	assert.Equal(t, []string{"OLD"}, cov.Extra)
	assert.Equal(t, []string{"BAD"}, cov.Invalid)
	assert.False(t, cov.Complete())

	assert.True(t, m.Check([]string{"RPI"}).Complete())
}

func TestApplyPanel(t *testing.T) {
	a := series("A", 1, 2, 3, 4)
	b := series("B", 1, -1, 2, 3)
	p, err := timeseries.NewPanelFromSeries(timeseries.Monthly, a, b)
	require.NoError(t, err)

	out, err := ApplyPanel(p, ParseMap(map[string]int{"A": 2, "B": 4}))
	require.Error(t, err)
	assert.Equal(t, errs.KindNonPositiveValue, errs.KindOf(err))

	assert.Equal(t, []string{"A"}, out.Names())
	got, _ := out.Get("A")
	require.Equal(t, 4, got.Len())
	assert.False(t, got.Values[0].Valid)
	assert.Equal(t, 1.0, got.Values[1].Float)
}
