// Package gofredmd prepares the FRED-MD macroeconomic panel for dynamic factor models.
//
// The pipeline validates each series, applies its Stock-Watson / McCracken-Ng
// transformation code, removes seasonality where the series shows it, standardizes
// the result and arranges the panel into economic groups. Every series ends the run
// either included in the model-ready panel or excluded with the stage and reason
// that removed it.
//
// # Quick Start
//
//	vintage, _ := timeseries.LoadFREDMD("current.csv", nil)
//	codes := tcode.ParseMap(vintage.Codes)
//	orch, _ := pipeline.New(pipeline.DefaultOptions())
//	result, _ := orch.Run(ctx, pipeline.Input{Panel: vintage.Panel, Codes: codes, Groups: factors.DefaultGroupMap()})
//	fmt.Println(result.Summary)
//
// # Packages
//
//   - timeseries: optional values, series, panels and FRED-MD CSV files
//   - tcode: transformation codes 1-7 and their inverses
//   - seasonality: frequency inference and seasonal verdicts
//   - deseason: classical and STL seasonal adjustment
//   - factors: standardization, group maps and the panel matrix
//   - diagnostics: missingness, stationarity and panel screening reports
//   - pipeline: the orchestrator and its per-series state machine
//   - stats, arima: numeric kernels used by the stages above
//   - config, logging, export: configuration, zerolog setup and output files
//   - cmd/fredprep: command line front end for the pipeline and the reports
//
// # References
//
//   - McCracken, M.W., & Ng, S. (2016). FRED-MD: A Monthly Database for Macroeconomic Research
//   - Stock, J.H., & Watson, M.W. (2002). Macroeconomic Forecasting Using Diffusion Indexes
//   - Cleveland, R.B. et al. (1990). STL: A Seasonal-Trend Decomposition Procedure Based on Loess
package gofredmd
