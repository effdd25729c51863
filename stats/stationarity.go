package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64 // Critical values at 1%, 5%, 10%
	IsStationary bool
}

// ADF performs the Augmented Dickey-Fuller test for unit root.
// The null hypothesis is that the series has a unit root (is non-stationary).
// If p-value < 0.05, we reject the null and conclude the series is stationary.
//
// maxLag bounds the number of lagged differences; 0 uses 12*(n/100)^(1/4).
// The lag is chosen by AIC over 0..maxLag on a common sample, and the test
// regression is then refit at that lag on every usable observation.
func ADF(x []float64, maxLag int) *ADFResult {
	n := len(x)
	if maxLag <= 0 {
		maxLag = int(12 * math.Pow(float64(n)/100, 0.25))
	}
	if limit := n/2 - 2; maxLag > limit {
		maxLag = limit
	}
	// Keep at least 10 observations in the common sample.
	if limit := n - 11; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		return nil
	}

	diff := Diff(x, 1)

	lag, best := -1, math.Inf(1)
	for p := 0; p <= maxLag; p++ {
		design, y := adfDesign(x, diff, p, maxLag)
		coeffs, _, sse := olsFit(design, y)
		if coeffs == nil {
			continue
		}
		nObs := len(y)
		logLik := -0.5 * float64(nObs) * (math.Log(2*math.Pi) + math.Log(sse/float64(nObs)) + 1)
		if aic := CalculateIC(logLik, nObs, len(coeffs)).AIC; aic < best {
			lag, best = p, aic
		}
	}
	if lag < 0 {
		return nil
	}

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i}) + epsilon
	// beta = 0 is the unit root.
	design, y := adfDesign(x, diff, lag, lag)
	coeffs, se := olsRegression(design, y)
	if coeffs == nil || se == nil {
		return nil
	}

	tStat := coeffs[1] / se[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic: tStat,
		PValue:    pValue,
		Lags:      lag,
		NObs:      len(y),
		CriticalVals: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		IsStationary: pValue < 0.05,
	}
}

// adfDesign builds the test regression of diff[t] on a constant, x[t] and
// lag lagged differences, for t from start (>= lag) to the last difference.
func adfDesign(x, diff []float64, lag, start int) (*mat.Dense, []float64) {
	nObs := len(diff) - start
	y := make([]float64, nObs)
	design := mat.NewDense(nObs, 2+lag, nil)
	for i := 0; i < nObs; i++ {
		t := i + start
		y[i] = diff[t]
		design.Set(i, 0, 1)
		design.Set(i, 1, x[t])
		for j := 1; j <= lag; j++ {
			design.Set(i, 1+j, diff[t-j])
		}
	}
	return design, y
}

// KPSSResult represents the result of a KPSS test.
type KPSSResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test for stationarity.
// The null hypothesis is that the series is stationary.
// regression is "c" (level) or "ct" (trend).
func KPSS(x []float64, regression string, nlags int) *KPSSResult {
	n := len(x)
	if n < 10 {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if nlags >= n {
		nlags = n - 1
	}

	residuals := make([]float64, n)
	if regression == "ct" {
		t := make([]float64, n)
		for i := range t {
			t[i] = float64(i)
		}
		a, b := stat.LinearRegression(t, x, nil, false)
		for i, v := range x {
			residuals[i] = v - a - b*t[i]
		}
	} else {
		mean := stat.Mean(x, nil)
		for i, v := range x {
			residuals[i] = v - mean
		}
	}

	// Partial sums
	cumSum := make([]float64, n)
	cumSum[0] = residuals[0]
	for i := 1; i < n; i++ {
		cumSum[i] = cumSum[i-1] + residuals[i]
	}

	s2 := longRunVariance(residuals, nlags)
	if s2 <= 0 {
		s2 = 1e-10
	}

	etaSq := 0.0
	for _, cs := range cumSum {
		etaSq += cs * cs
	}
	kpssStat := etaSq / (float64(n) * float64(n) * s2)

	var criticalVals map[string]float64
	if regression == "ct" {
		criticalVals = map[string]float64{"10%": 0.119, "5%": 0.146, "1%": 0.216}
	} else {
		criticalVals = map[string]float64{"10%": 0.347, "5%": 0.463, "1%": 0.739}
	}

	pValue := kpssPValue(kpssStat, regression)

	return &KPSSResult{
		Statistic:    kpssStat,
		PValue:       pValue,
		Lags:         nlags,
		CriticalVals: criticalVals,
		IsStationary: pValue >= 0.05,
	}
}

// PhillipsPerronResult represents the result of a Phillips-Perron test.
type PhillipsPerronResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool
}

// PhillipsPerron performs the Phillips-Perron test for unit root.
// Similar to ADF but handles serial correlation differently.
func PhillipsPerron(x []float64, nlags int) *PhillipsPerronResult {
	n := len(x)
	if n < 10 {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Floor(4 * math.Pow(float64(n)/100, 0.25)))
	}

	// delta_y_t = alpha + beta * y_{t-1} + epsilon
	nObs := n - 1
	y := Diff(x, 1)
	lagged := x[:nObs]
	design := mat.NewDense(nObs, 2, nil)
	for i := 0; i < nObs; i++ {
		design.Set(i, 0, 1)
		design.Set(i, 1, lagged[i])
	}

	coeffs, se := olsRegression(design, y)
	if coeffs == nil || se == nil {
		return nil
	}

	residuals := make([]float64, nObs)
	for i := 0; i < nObs; i++ {
		residuals[i] = y[i] - coeffs[0] - coeffs[1]*lagged[i]
	}

	gamma0 := 0.0
	for _, r := range residuals {
		gamma0 += r * r
	}
	gamma0 /= float64(nObs)
	lambda2 := longRunVariance(residuals, nlags)

	tStat := coeffs[1] / se[1]

	_, xVar := stat.MeanVariance(lagged, nil)
	sumXDev2 := xVar * float64(nObs-1)

	correction := 0.0
	if lambda2 > 0 && sumXDev2 > 0 {
		correction = (lambda2 - gamma0) * math.Sqrt(float64(nObs)) / (2 * math.Sqrt(lambda2) * math.Sqrt(sumXDev2))
	}

	ppStat := tStat
	if lambda2 > 0 {
		ppStat = math.Sqrt(gamma0/lambda2)*tStat - correction
	}

	pValue := mackinnonPValue(ppStat)

	return &PhillipsPerronResult{
		Statistic: ppStat,
		PValue:    pValue,
		Lags:      nlags,
		CriticalVals: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		IsStationary: pValue < 0.05,
	}
}

// longRunVariance is the Newey-West estimator with Bartlett weights.
func longRunVariance(residuals []float64, nlags int) float64 {
	n := len(residuals)
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)

	for l := 1; l <= nlags && l < n; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		weight := 1.0 - float64(l)/float64(nlags+1)
		s2 += 2 * weight * cov
	}
	return s2
}

// olsRegression performs ordinary least squares regression.
// Returns coefficients and their standard errors, or nil if the design is singular.
func olsRegression(design *mat.Dense, y []float64) (coeffs, stdErrors []float64) {
	coeffs, stdErrors, _ = olsFit(design, y)
	return coeffs, stdErrors
}

// olsFit is olsRegression that also returns the residual sum of squares.
// A singular design or a perfect fit yields nil coefficients.
func olsFit(design *mat.Dense, y []float64) (coeffs, stdErrors []float64, sse float64) {
	n, k := design.Dims()
	if n == 0 || n != len(y) || n <= k {
		return nil, nil, 0
	}

	var xtx mat.Dense
	xtx.Mul(design.T(), design)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, nil, 0
	}

	yVec := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(design.T(), yVec)

	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(design, &beta)
	var resid mat.VecDense
	resid.SubVec(yVec, &fitted)
	sse = mat.Dot(&resid, &resid)

	s2 := sse / float64(n-k)
	coeffs = make([]float64, k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * xtxInv.At(i, i))
		if stdErrors[i] == 0 || math.IsNaN(stdErrors[i]) {
			return nil, nil, 0
		}
	}

	return coeffs, stdErrors, sse
}

// interpolate evaluates the piecewise linear function through the knots
// (xs ascending), clamping outside the range.
func interpolate(v float64, xs, ys []float64) float64 {
	if v <= xs[0] {
		return ys[0]
	}
	for i := 1; i < len(xs); i++ {
		if v <= xs[i] {
			w := (v - xs[i-1]) / (xs[i] - xs[i-1])
			return ys[i-1] + w*(ys[i]-ys[i-1])
		}
	}
	return ys[len(ys)-1]
}

// mackinnonPValue approximates the p-value of an ADF/PP statistic with a
// constant, interpolating MacKinnon (1994) asymptotic quantiles.
func mackinnonPValue(stat float64) float64 {
	return interpolate(stat,
		[]float64{-3.96, -3.43, -2.86, -2.57, -1.94, -1.62, 0.34},
		[]float64{0.001, 0.01, 0.05, 0.10, 0.25, 0.50, 0.99},
	)
}

// kpssPValue approximates the p-value of a KPSS statistic. The table
// covers p in [0.01, 0.10]; smaller statistics extrapolate linearly.
func kpssPValue(stat float64, regression string) float64 {
	crit := []float64{0.347, 0.463, 0.574, 0.739}
	slope := 0.5
	if regression == "ct" {
		crit = []float64{0.119, 0.146, 0.176, 0.216}
		slope = 2
	}
	if stat < crit[0] {
		return math.Min(0.10+(crit[0]-stat)*slope, 0.99)
	}
	return interpolate(stat, crit, []float64{0.10, 0.05, 0.025, 0.01})
}
