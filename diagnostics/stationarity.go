package diagnostics

import (
	"math"

	"github.com/sartorproj/gofredmd/stats"
	"github.com/sartorproj/gofredmd/timeseries"
)

// Decision combines the ADF and KPSS outcomes.
type Decision string

const (
	Stationary    Decision = "stationary"
	NonStationary Decision = "non-stationary"
	Inconclusive  Decision = "inconclusive"
)

// StationarityOptions configures the unit-root tests.
type StationarityOptions struct {
	Alpha float64
	// KPSSRegression is "c" (level) or "ct" (trend).
	KPSSRegression string
	// ADFMaxLag caps the AIC search over augmentation lags and KPSSLags
	// fixes the Bartlett window; 0 uses 12*(n/100)^(1/4) for either.
	ADFMaxLag int
	KPSSLags  int
	// RunPP adds the Phillips-Perron test.
	RunPP bool
	// MaxDiffs bounds the suggested number of extra differences.
	MaxDiffs int
}

// DefaultStationarityOptions returns the options used for panel reports.
func DefaultStationarityOptions() StationarityOptions {
	return StationarityOptions{
		Alpha:          0.05,
		KPSSRegression: "ct",
		MaxDiffs:       2,
	}
}

// SeriesStationarity is the test summary of one series. P-values are NaN
// when a test could not run.
type SeriesStationarity struct {
	Series     string   `json:"series"`
	N          int      `json:"n_non_na"`
	ADFStat    float64  `json:"adf_stat"`
	ADFPValue  float64  `json:"adf_pvalue"`
	KPSSStat   float64  `json:"kpss_stat"`
	KPSSPValue float64  `json:"kpss_pvalue"`
	PPPValue   float64  `json:"pp_pvalue"`
	KPSSReg    string   `json:"kpss_reg"`
	Decision   Decision `json:"decision"`
	// SuggestedDiffs is the number of further first differences KPSS asks for.
	SuggestedDiffs int `json:"suggested_diffs"`
	// SeasonalDiffs is 1 when seasonal strength calls for a seasonal difference.
	SeasonalDiffs int `json:"seasonal_diffs"`
	// LjungBoxPValue tests for autocorrelation up to two seasonal periods.
	LjungBoxPValue float64 `json:"ljungbox_pvalue"`
}

// Decide combines p-values: stationary when ADF rejects a unit root and KPSS
// does not reject stationarity, non-stationary in the opposite case.
func Decide(adfP, kpssP, alpha float64) Decision {
	if math.IsNaN(adfP) || math.IsNaN(kpssP) {
		return Inconclusive
	}
	adfReject, kpssReject := adfP < alpha, kpssP < alpha
	switch {
	case adfReject && !kpssReject:
		return Stationary
	case !adfReject && kpssReject:
		return NonStationary
	}
	return Inconclusive
}

// TestSeries runs the tests on the observed values of s.
func TestSeries(s *timeseries.Series, opts StationarityOptions) SeriesStationarity {
	if opts.Alpha <= 0 {
		opts.Alpha = 0.05
	}
	if opts.KPSSRegression == "" {
		opts.KPSSRegression = "c"
	}
	x := s.Observed()
	nan := math.NaN()
	out := SeriesStationarity{
		Series:     s.Name,
		N:          len(x),
		ADFStat:    nan,
		ADFPValue:  nan,
		KPSSStat:   nan,
		KPSSPValue: nan,
		PPPValue:   nan,
		KPSSReg:    opts.KPSSRegression,

		LjungBoxPValue: nan,
	}

	if r := stats.ADF(x, opts.ADFMaxLag); r != nil {
		out.ADFStat, out.ADFPValue = r.Statistic, r.PValue
	}
	if r := stats.KPSS(x, opts.KPSSRegression, opts.KPSSLags); r != nil {
		out.KPSSStat, out.KPSSPValue = r.Statistic, r.PValue
	}
	if opts.RunPP {
		if r := stats.PhillipsPerron(x, 0); r != nil {
			out.PPPValue = r.PValue
		}
	}
	out.Decision = Decide(out.ADFPValue, out.KPSSPValue, opts.Alpha)
	if len(x) >= 10 {
		out.SuggestedDiffs = stats.NDiffs(x, opts.MaxDiffs, "kpss")
	}
	period := s.Frequency.Period()
	out.SeasonalDiffs = stats.NSDiffs(x, period, 1)
	if r := stats.LjungBox(x, min(2*max(period, 1), len(x)/5), 0); r != nil {
		out.LjungBoxPValue = r.PValue
	}
	return out
}

// Stationarity tests every series of p, in panel order.
func Stationarity(p *timeseries.Panel, opts StationarityOptions) []SeriesStationarity {
	out := make([]SeriesStationarity, 0, p.Len())
	for _, s := range p.Series() {
		out = append(out, TestSeries(s, opts))
	}
	return out
}

// CountDecisions tallies decisions.
func CountDecisions(results []SeriesStationarity) map[Decision]int {
	counts := map[Decision]int{Stationary: 0, NonStationary: 0, Inconclusive: 0}
	for _, r := range results {
		counts[r.Decision]++
	}
	return counts
}
