package stats

import (
	"errors"
	"math"
	"sort"
)

// Model is the decomposition model.
type Model string

const (
	Additive       Model = "additive"       // Y = T + S + R
	Multiplicative Model = "multiplicative" // Y = T * S * R
)

// Decomposition errors.
var (
	ErrTooShort    = errors.New("series shorter than two seasonal cycles")
	ErrNonPositive = errors.New("multiplicative decomposition requires positive values")
	ErrBadPeriod   = errors.New("seasonal period must be at least 2")
	ErrMissing     = errors.New("decomposition input contains NaN")
)

// Decomposition holds the components of a decomposed series. Components have
// the length of the input; the classical trend and residual are NaN where the
// centred moving average is undefined.
type Decomposition struct {
	Trend    []float64
	Seasonal []float64
	Residual []float64
	Period   int
	Model    Model
	Method   string // "classical" or "stl"
}

// Adjusted removes the seasonal component from x.
func (d *Decomposition) Adjusted(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if d.Model == Multiplicative {
			out[i] = v / d.Seasonal[i]
		} else {
			out[i] = v - d.Seasonal[i]
		}
	}
	return out
}

func checkInput(x []float64, period int, model Model) error {
	if period < 2 {
		return ErrBadPeriod
	}
	if len(x) < 2*period {
		return ErrTooShort
	}
	for _, v := range x {
		if math.IsNaN(v) {
			return ErrMissing
		}
		if model == Multiplicative && v <= 0 {
			return ErrNonPositive
		}
	}
	return nil
}

// Decompose performs classical seasonal decomposition with a centred moving
// average trend. x must not contain NaN.
func Decompose(x []float64, period int, model Model) (*Decomposition, error) {
	if model != Multiplicative {
		model = Additive
	}
	if err := checkInput(x, period, model); err != nil {
		return nil, err
	}
	n := len(x)

	// Step 1: Calculate trend using centered moving average
	trend := CentredMA(x, period)

	// Step 2: Detrend the series
	detrended := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case math.IsNaN(trend[i]):
			detrended[i] = math.NaN()
		case model == Multiplicative:
			detrended[i] = x[i] / trend[i]
		default:
			detrended[i] = x[i] - trend[i]
		}
	}

	// Step 3: Average within each season, then normalize
	pattern := seasonalPattern(detrended, nil, period)
	normalizePattern(pattern, model)

	seasonal := make([]float64, n)
	for i := 0; i < n; i++ {
		seasonal[i] = pattern[i%period]
	}

	// Step 4: Calculate residual
	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case math.IsNaN(trend[i]):
			residual[i] = math.NaN()
		case model == Multiplicative:
			residual[i] = x[i] / (trend[i] * seasonal[i])
		default:
			residual[i] = x[i] - trend[i] - seasonal[i]
		}
	}

	return &Decomposition{
		Trend:    trend,
		Seasonal: seasonal,
		Residual: residual,
		Period:   period,
		Model:    model,
		Method:   "classical",
	}, nil
}

// CentredMA calculates the centred moving average of length period.
// Even periods use a 2xperiod MA. The first and last period/2 values are NaN.
func CentredMA(x []float64, period int) []float64 {
	n := len(x)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}
	if period < 1 {
		return trend
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		sum := 0.0
		if period%2 == 0 {
			sum += x[i-half] * 0.5
			sum += x[i+half] * 0.5
			for j := i - half + 1; j < i+half; j++ {
				sum += x[j]
			}
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += x[j]
			}
		}
		trend[i] = sum / float64(period)
	}

	return trend
}

// seasonalPattern averages values by position modulo period, skipping NaN.
// weights may be nil.
func seasonalPattern(x, weights []float64, period int) []float64 {
	pattern := make([]float64, period)
	counts := make([]float64, period)
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		pattern[i%period] += v * w
		counts[i%period] += w
	}
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= counts[i]
		}
	}
	return pattern
}

func normalizePattern(pattern []float64, model Model) {
	sum := 0.0
	for _, v := range pattern {
		sum += v
	}
	mean := sum / float64(len(pattern))
	for i := range pattern {
		if model == Multiplicative {
			pattern[i] /= mean
		} else {
			pattern[i] -= mean
		}
	}
}

// STL performs Seasonal and Trend decomposition using Loess.
// This is a simplified implementation: the seasonal component is a fixed
// pattern re-estimated with robustness weights, the trend is a triangular
// weighted moving average. Multiplicative decomposition is done on logs.
func STL(x []float64, period int, model Model, robustIters int) (*Decomposition, error) {
	if model != Multiplicative {
		model = Additive
	}
	if err := checkInput(x, period, model); err != nil {
		return nil, err
	}
	if robustIters < 1 {
		robustIters = 2
	}
	n := len(x)

	y := make([]float64, n)
	for i, v := range x {
		if model == Multiplicative {
			y[i] = math.Log(v)
		} else {
			y[i] = v
		}
	}

	trend := fillEnds(CentredMA(y, period))
	seasonal := make([]float64, n)
	residual := make([]float64, n)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0
	}

	trendWindow := period
	if trendWindow%2 == 0 {
		trendWindow++
	}
	halfWindow := trendWindow / 2

	for iter := 0; iter < robustIters; iter++ {
		for inner := 0; inner < 2; inner++ {
			// Step 1: Seasonal pattern of the detrended series
			detrended := make([]float64, n)
			for i := 0; i < n; i++ {
				detrended[i] = y[i] - trend[i]
			}
			pattern := seasonalPattern(detrended, weights, period)
			normalizePattern(pattern, Additive)
			for i := 0; i < n; i++ {
				seasonal[i] = pattern[i%period]
			}

			// Step 2: Smooth the deseasonalized series for the trend
			for i := 0; i < n; i++ {
				sum, weightSum := 0.0, 0.0
				for j := -halfWindow; j <= halfWindow; j++ {
					idx := i + j
					if idx < 0 || idx >= n {
						continue
					}
					w := weights[idx] * (1 - math.Abs(float64(j))/float64(halfWindow+1))
					sum += (y[idx] - seasonal[idx]) * w
					weightSum += w
				}
				if weightSum > 0 {
					trend[i] = sum / weightSum
				}
			}
		}

		for i := 0; i < n; i++ {
			residual[i] = y[i] - trend[i] - seasonal[i]
		}

		// Step 3: Bisquare robustness weights
		if iter < robustIters-1 {
			absResiduals := make([]float64, n)
			for i, r := range residual {
				absResiduals[i] = math.Abs(r)
			}
			h := 6 * median(absResiduals)
			if h > 0 {
				for i := 0; i < n; i++ {
					u := math.Abs(residual[i]) / h
					if u < 1 {
						weights[i] = (1 - u*u) * (1 - u*u)
					} else {
						weights[i] = 0
					}
				}
			}
		}
	}

	if model == Multiplicative {
		for i := 0; i < n; i++ {
			trend[i] = math.Exp(trend[i])
			seasonal[i] = math.Exp(seasonal[i])
			residual[i] = math.Exp(residual[i])
		}
	}

	return &Decomposition{
		Trend:    trend,
		Seasonal: seasonal,
		Residual: residual,
		Period:   period,
		Model:    model,
		Method:   "stl",
	}, nil
}

// fillEnds replaces leading and trailing NaN with the nearest defined value.
func fillEnds(x []float64) []float64 {
	first, last := -1, -1
	for i, v := range x {
		if !math.IsNaN(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		for i := range x {
			x[i] = 0
		}
		return x
	}
	for i := 0; i < first; i++ {
		x[i] = x[first]
	}
	for i := last + 1; i < len(x); i++ {
		x[i] = x[last]
	}
	return x
}

// median calculates the median of a slice.
func median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
