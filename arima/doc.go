// Package arima implements ARIMA(p,d,0) models.
//
// The models here serve one purpose: extending a series by a few
// observations at either end so that centred filters (moving-average trends,
// seasonal decompositions) are defined up to the first and last observation.
// An ARIMA(p,d,0) model combines:
//   - AR(p): AutoRegressive component with p lags, estimated by Yule-Walker
//   - I(d): Integration (differencing) of order d
//
// # Basic Usage
//
//	model := arima.New(2, 1)
//	if err := model.Fit(x); err != nil {
//	    return err
//	}
//	forecasts, _ := model.Predict(6)
//
// # Model Selection
//
// Select fits p = 0..maxP and keeps the lowest AICc:
//
//	best, err := arima.Select(x, 4, 1)
//
// # End Extension
//
// Extend pads both ends with backcasts and forecasts:
//
//	padded, err := arima.Extend(x, 4, 6) // 6 values before and after
package arima
