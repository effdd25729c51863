// Package stats provides statistical tests and analysis functions for time series.
//
// Functions operate on dense []float64 slices; callers fill or drop missing
// values first. Linear algebra and distributions come from gonum.
//
// # Stationarity Tests
//
// Test whether a time series is stationary:
//
//	// Augmented Dickey-Fuller test
//	// H0: Series has unit root (non-stationary)
//	adf := stats.ADF(x, 0)
//	fmt.Printf("ADF: stat=%.4f, p=%.4f, stationary=%v\n",
//	    adf.Statistic, adf.PValue, adf.IsStationary)
//
//	// KPSS test
//	// H0: Series is stationary
//	kpss := stats.KPSS(x, "c", 0)
//
//	// Phillips-Perron test
//	pp := stats.PhillipsPerron(x, 0)
//
// # Differencing Analysis
//
//	d := stats.NDiffs(x, 2, "kpss")
//	sd := stats.NSDiffs(x, 12, 1)  // period=12 for monthly data
//
// # Autocorrelation Functions
//
//	acf := stats.ACF(x, 24)
//	r12 := stats.ACFAt(x, 12)
//	pacf := stats.PACF(x, 24)
//
// # Seasonality Tests
//
//	qs := stats.QS(detrended, 12)
//	if qs.PValue < 0.05 {
//	    // seasonal autocorrelation present
//	}
//
// # Time Series Decomposition
//
// Decompose time series into components:
//
//	// Classical decomposition
//	decomp, err := stats.Decompose(x, 12, stats.Additive)
//	fs := stats.SeasonalStrength(decomp)
//
//	// STL decomposition (robust to outliers)
//	stl, err := stats.STL(x, 12, stats.Multiplicative, 2)
//	adjusted := stl.Adjusted(x)
package stats
