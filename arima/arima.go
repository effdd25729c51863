// Package arima implements ARIMA(p,d,0) models used to extend series ends.
package arima

import (
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/gofredmd/stats"
	"gonum.org/v1/gonum/stat"
)

// Order represents the model order (p, d).
type Order struct {
	P int // AR order (number of autoregressive terms)
	D int // Differencing order
}

func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,0)", o.P, o.D)
}

// Model represents an ARIMA(p,d,0) model.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // AR coefficients (phi)
	Intercept float64   // Mean of the differenced series
	Variance  float64   // Residual variance
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64

	fitted    bool
	data      []float64
	diffData  []float64
	residuals []float64
}

// New creates a new ARIMA(p,d,0) model.
func New(p, d int) *Model {
	return &Model{
		Order:    Order{P: p, D: d},
		ARCoeffs: make([]float64, p),
	}
}

// Fit fits the model to x by Yule-Walker estimation on the differenced,
// demeaned series. x must not contain NaN.
func (m *Model) Fit(x []float64) error {
	if m.Order.P < 0 || m.Order.D < 0 {
		return errors.New("order must be non-negative")
	}
	if len(x) < m.Order.P+m.Order.D+10 {
		return errors.New("insufficient data points for the specified order")
	}
	for _, v := range x {
		if math.IsNaN(v) {
			return errors.New("series contains NaN")
		}
	}

	m.data = append([]float64(nil), x...)

	diff := m.data
	for i := 0; i < m.Order.D; i++ {
		diff = stats.Diff(diff, 1)
	}
	m.diffData = diff
	n := len(diff)

	m.Intercept = stat.Mean(diff, nil)
	p := m.Order.P
	m.ARCoeffs = make([]float64, p)
	if p > 0 {
		centred := make([]float64, n)
		for i, v := range diff {
			centred[i] = v - m.Intercept
		}
		if acf := stats.ACF(centred, p); acf != nil {
			m.ARCoeffs = yuleWalker(acf, p)
		}
	}

	// Conditional residuals
	m.residuals = make([]float64, n)
	sse := 0.0
	count := 0
	for t := 0; t < n; t++ {
		pred := m.Intercept
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (diff[t-i-1] - m.Intercept)
		}
		m.residuals[t] = diff[t] - pred
		if t >= p {
			sse += m.residuals[t] * m.residuals[t]
			count++
		}
	}
	if count > p+1 {
		m.Variance = sse / float64(count-p-1)
	} else if count > 0 {
		m.Variance = sse / float64(count)
	}

	m.calculateIC(sse, count)
	m.fitted = true
	return nil
}

// calculateIC calculates AIC, AICc, and BIC from the conditional likelihood.
func (m *Model) calculateIC(sse float64, n int) {
	k := m.Order.P + 1
	if m.Variance > 0 && n > 0 {
		nf := float64(n)
		m.LogLik = -nf/2*math.Log(2*math.Pi) - nf/2*math.Log(m.Variance) - sse/(2*m.Variance)
	} else {
		m.LogLik = math.Inf(1)
	}
	ic := stats.CalculateIC(m.LogLik, n, k)
	m.AIC, m.AICc, m.BIC = ic.AIC, ic.AICc, ic.BIC
}

// Predict generates forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, errors.New("model must be fitted before prediction")
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	p := m.Order.P
	y := m.diffData
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (extY[t-i-1] - m.Intercept)
		}
		extY[t] = pred
	}

	forecasts := append([]float64(nil), extY[n:]...)
	if m.Order.D > 0 {
		forecasts = m.integrate(forecasts)
	}
	return forecasts, nil
}

// integrate undoes differencing to return forecasts on the original scale.
func (m *Model) integrate(forecasts []float64) []float64 {
	// Last value of each intermediate differenced series, from level upward.
	levels := make([]float64, m.Order.D)
	current := m.data
	for i := 0; i < m.Order.D; i++ {
		levels[i] = current[len(current)-1]
		current = stats.Diff(current, 1)
	}

	result := forecasts
	for i := m.Order.D - 1; i >= 0; i-- {
		out := make([]float64, len(result))
		prev := levels[i]
		for j, v := range result {
			prev += v
			out[j] = prev
		}
		result = out
	}
	return result
}

// Residuals returns the model residuals on the differenced scale.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.residuals...)
}

// Summary of a fitted model.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summary returns a summary of the fitted model.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  m.ARCoeffs,
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      len(m.data),
		LjungBox:  stats.LjungBox(m.residuals[m.Order.P:], 10, m.Order.P),
	}
}

// yuleWalker estimates AR coefficients using Levinson-Durbin recursion.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return make([]float64, max(order, 0))
	}

	phi := make([]float64, order)
	phi[0] = acf[1]
	if order == 1 {
		return phi
	}

	v := 1 - phi[0]*phi[0]
	for i := 1; i < order; i++ {
		if v <= 0 {
			break
		}
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v

		newPhi := make([]float64, i+1)
		for j := 0; j < i; j++ {
			newPhi[j] = phi[j] - lambda*phi[i-1-j]
		}
		newPhi[i] = lambda
		copy(phi, newPhi)

		v *= 1 - lambda*lambda
	}

	return phi
}
