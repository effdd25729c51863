package arima

import (
	"errors"
	"math"
)

// Select fits ARIMA(p,d,0) for p = 0..maxP and returns the model with the
// lowest AICc.
func Select(x []float64, maxP, d int) (*Model, error) {
	if maxP < 0 {
		maxP = 0
	}
	var best *Model
	var lastErr error
	for p := 0; p <= maxP; p++ {
		m := New(p, d)
		if err := m.Fit(x); err != nil {
			lastErr = err
			continue
		}
		if best == nil || m.AICc < best.AICc {
			best = m
		}
	}
	if best == nil {
		if lastErr == nil {
			lastErr = errors.New("no model could be fitted")
		}
		return nil, lastErr
	}
	return best, nil
}

// Backcast predicts the steps values preceding x by fitting the model to the
// time-reversed series. The result is in chronological order.
func Backcast(x []float64, maxP, d, steps int) ([]float64, error) {
	rev := reversed(x)
	m, err := Select(rev, maxP, d)
	if err != nil {
		return nil, err
	}
	f, err := m.Predict(steps)
	if err != nil {
		return nil, err
	}
	return reversed(f), nil
}

// Forecast predicts the steps values following x.
func Forecast(x []float64, maxP, d, steps int) ([]float64, error) {
	m, err := Select(x, maxP, d)
	if err != nil {
		return nil, err
	}
	return m.Predict(steps)
}

// Extend pads x with steps backcasts before and steps forecasts after it.
// The differencing order is 1 when the series looks trending, 0 otherwise.
func Extend(x []float64, maxP, steps int) ([]float64, error) {
	if steps <= 0 {
		return append([]float64(nil), x...), nil
	}
	d := differencingOrder(x)
	head, err := Backcast(x, maxP, d, steps)
	if err != nil {
		return nil, err
	}
	tail, err := Forecast(x, maxP, d, steps)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(x)+2*steps)
	out = append(out, head...)
	out = append(out, x...)
	out = append(out, tail...)
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("extension produced non-finite values")
		}
	}
	return out, nil
}

func differencingOrder(x []float64) int {
	if len(x) < 4 {
		return 0
	}
	// A lag-1 autocorrelation near one marks a persistent level.
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	num, den := 0.0, 0.0
	for i, v := range x {
		den += (v - mean) * (v - mean)
		if i > 0 {
			num += (v - mean) * (x[i-1] - mean)
		}
	}
	if den == 0 || num/den < 0.9 {
		return 0
	}
	return 1
}

func reversed(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[len(x)-1-i] = v
	}
	return out
}
