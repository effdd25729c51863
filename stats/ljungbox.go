package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult represents the result of a Ljung-Box test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int // Degrees of freedom
}

// LjungBox performs the Ljung-Box test for autocorrelation in residuals.
// The null hypothesis is that there is no autocorrelation up to lag h.
// If p-value < 0.05, we reject the null and conclude there is significant autocorrelation.
// fitdf is the number of parameters estimated in the model (p + q for ARIMA).
func LjungBox(x []float64, lags, fitdf int) *LjungBoxResult {
	n := len(x)
	if n < 10 || lags < 1 {
		return nil
	}

	if lags >= n {
		lags = n - 1
	}

	acf := ACF(x, lags)
	if acf == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	return &LjungBoxResult{
		Statistic: q,
		PValue:    chiSquaredSurvival(q, dof),
		Lags:      lags,
		DOF:       dof,
	}
}

// QSResult represents the result of a QS seasonality test.
type QSResult struct {
	Statistic float64
	PValue    float64
	Period    int
}

// QS performs the QS test for residual seasonality: a Ljung-Box statistic
// restricted to the first two seasonal lags, counting only positive
// autocorrelations, compared against a chi-squared distribution with 2 dof.
// A small p-value indicates seasonality.
func QS(x []float64, period int) *QSResult {
	n := len(x)
	if period < 2 || n <= 2*period {
		return nil
	}

	acf := ACF(x, 2*period)
	if acf == nil {
		return nil
	}

	q := 0.0
	for _, k := range []int{period, 2 * period} {
		if acf[k] > 0 {
			q += acf[k] * acf[k] / float64(n-k)
		}
	}
	q *= float64(n * (n + 2))

	return &QSResult{
		Statistic: q,
		PValue:    chiSquaredSurvival(q, 2),
		Period:    period,
	}
}

// chiSquaredSurvival returns P(X > x) for a chi-squared variable with k dof.
func chiSquaredSurvival(x float64, k int) float64 {
	if x <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: float64(k)}.Survival(x)
}
