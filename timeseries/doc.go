// Package timeseries provides time series data structures and utilities.
//
// This package includes the Value type for observations that may be missing,
// the Series type, the Panel of aligned series, and FRED-MD CSV loading.
//
// # Missing Values
//
// A missing observation is a Value with Valid == false. NaN never marks a
// missing value inside a Series; conversion happens only at the edges:
//
//	v := timeseries.FromFloat(math.NaN()) // missing
//	x := v.OrNaN()                        // NaN again
//
// # Creating a Series
//
// Create a monthly series from a slice (NaN entries become missing):
//
//	values := []float64{100, 102, math.NaN(), 103, 108, 110}
//	series := timeseries.New(values)
//
// Or with explicit, strictly increasing timestamps:
//
//	series, err := timeseries.NewWithTimestamps("INDPRO", timestamps, vals)
//
// # Basic Statistics
//
// Statistics are computed over observed values only:
//
//	mean := series.Mean()
//	pop := series.Variance(0)  // population variance
//	std := series.Std(1)       // sample standard deviation
//
// # Panels
//
// A Panel aligns series on a shared, outer-joined index:
//
//	panel, err := timeseries.NewPanelFromSeries(timeseries.Monthly, a, b)
//	for _, s := range panel.Series() { ... }
//
// # FRED-MD Files
//
// LoadFREDMD reads a vintage with its embedded transformation-code row:
//
//	vintage, err := timeseries.LoadFREDMD("2024-01.csv", nil)
//	fmt.Println(vintage.CodeRow, vintage.Codes["INDPRO"])
//
// SavePanelCSV writes a panel back in the same layout, with empty cells for
// missing values.
package timeseries
