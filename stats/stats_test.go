package stats

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func ar1(n int, phi float64) []float64 {
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = phi*values[i-1] + (float64(i%10)-5)/10
	}
	return values
}

func trendSeason(n, period int, slope, amp float64) []float64 {
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = 50 + float64(i)*slope + amp*math.Sin(2*math.Pi*float64(i%period)/float64(period))
	}
	return values
}

func TestACF(t *testing.T) {
	acf := ACF(ar1(100, 0.8), 10)

	if acf == nil {
		t.Fatal("ACF returned nil")
	}
	if len(acf) != 11 {
		t.Fatalf("Expected 11 values, got %d", len(acf))
	}

	// ACF at lag 0 should be 1
	if math.Abs(acf[0]-1.0) > 1e-10 {
		t.Errorf("ACF at lag 0 should be 1, got %f", acf[0])
	}
	if acf[1] <= 0 {
		t.Errorf("Expected positive lag-1 autocorrelation for AR(1), got %f", acf[1])
	}

	if ACF([]float64{3, 3, 3, 3}, 2) != nil {
		t.Error("Expected nil ACF for constant series")
	}
	if ACF(nil, 3) != nil {
		t.Error("Expected nil ACF for empty series")
	}
}

func TestACFAt(t *testing.T) {
	x := trendSeason(120, 12, 0, 10)

	if r := ACFAt(x, 12); r < 0.8 {
		t.Errorf("Expected strong lag-12 autocorrelation, got %f", r)
	}
	if r := ACFAt(x, 6); r > -0.5 {
		t.Errorf("Expected negative lag-6 autocorrelation, got %f", r)
	}
	if ACFAt(x, 0) != 0 || ACFAt(x, 500) != 0 {
		t.Error("Expected 0 for out-of-range lags")
	}
}

func TestPACF(t *testing.T) {
	pacf := PACF(ar1(100, 0.7), 10)

	if pacf == nil {
		t.Fatal("PACF returned nil")
	}

	if math.Abs(pacf[0]-1.0) > 1e-10 {
		t.Errorf("PACF at lag 0 should be 1, got %f", pacf[0])
	}

	acf := ACF(ar1(100, 0.7), 1)
	if math.Abs(pacf[1]-acf[1]) > 1e-12 {
		t.Errorf("PACF at lag 1 should equal ACF at lag 1: %f vs %f", pacf[1], acf[1])
	}
}

func TestACFWithConfidence(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i) + math.Sin(float64(i)/10)
	}

	result := ACFWithConfidence(values, 20)
	if result == nil {
		t.Fatal("ACFWithConfidence returned nil")
	}

	expected := 1.96 / math.Sqrt(100)
	if math.Abs(result.ConfBounds-expected) > 1e-12 {
		t.Errorf("Expected confidence bounds %f, got %f", expected, result.ConfBounds)
	}
}

func TestSignificantLags(t *testing.T) {
	values := []float64{1.0, 0.5, 0.3, 0.1, 0.05, -0.2, -0.5}

	significant := SignificantLags(values, 0.15)

	expected := []int{1, 2, 5, 6}
	if len(significant) != len(expected) {
		t.Fatalf("Expected %d significant lags, got %d", len(expected), len(significant))
	}
	for i := range expected {
		if significant[i] != expected[i] {
			t.Errorf("Expected lag %d, got %d", expected[i], significant[i])
		}
	}
}

func TestADF(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 200
	stationary := make([]float64, n)
	for i := range stationary {
		stationary[i] = 100 + math.Sin(float64(i)/10)*5 + float64(i%5-2) + rng.NormFloat64()
	}

	result := ADF(stationary, 0)
	if result == nil {
		t.Fatal("ADF returned nil for stationary data")
	}
	if result.PValue < 0 || result.PValue > 1 {
		t.Errorf("p-value out of range: %f", result.PValue)
	}

	t.Logf("ADF Statistic: %f, P-Value: %f, IsStationary: %v",
		result.Statistic, result.PValue, result.IsStationary)

	if ADF(stationary[:5], 0) != nil {
		t.Error("Expected nil for too few observations")
	}
}

func TestADFLagSelection(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 500
	limit := int(12 * math.Pow(float64(n)/100, 0.25))

	noise := make([]float64, n)
	for i := range noise {
		noise[i] = rng.NormFloat64()
	}
	result := ADF(noise, 0)
	if result == nil {
		t.Fatal("ADF returned nil for white noise")
	}
	if result.Lags >= limit {
		t.Errorf("Expected AIC to stop below %d lags for white noise, got %d", limit, result.Lags)
	}
	if result.NObs != n-1-result.Lags {
		t.Errorf("Expected %d observations at lag %d, got %d", n-1-result.Lags, result.Lags, result.NObs)
	}
	if !result.IsStationary {
		t.Errorf("Expected white noise to reject a unit root (p=%f)", result.PValue)
	}

	// A random walk with autocorrelated increments needs lagged differences.
	walk := make([]float64, n)
	d := 0.0
	for i := 1; i < n; i++ {
		d = 0.8*d + rng.NormFloat64()
		walk[i] = walk[i-1] + d
	}
	result = ADF(walk, 0)
	if result == nil {
		t.Fatal("ADF returned nil for a random walk")
	}
	if result.Lags < 1 {
		t.Errorf("Expected at least one lag for AR(1) increments, got %d", result.Lags)
	}

	if result = ADF(walk, 3); result == nil || result.Lags > 3 {
		t.Errorf("Expected the lag to respect an explicit cap of 3, got %+v", result)
	}

	constant := make([]float64, 50)
	for i := range constant {
		constant[i] = 5
	}
	if ADF(constant, 0) != nil {
		t.Error("Expected nil for a constant series")
	}
}

func TestKPSS(t *testing.T) {
	n := 400
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = float64(i) * 2
	}

	result := KPSS(trend, "c", 0)
	if result == nil {
		t.Fatal("KPSS returned nil")
	}
	if result.IsStationary {
		t.Errorf("Expected a deterministic trend to reject level stationarity (stat=%f, p=%f)",
			result.Statistic, result.PValue)
	}
	if result.PValue != 0.01 {
		t.Errorf("Expected p-value clamped at 0.01, got %f", result.PValue)
	}

	noise := make([]float64, n)
	for i := range noise {
		noise[i] = float64((i*7)%11 - 5)
	}
	level := KPSS(noise, "c", 0)
	t.Logf("KPSS on bounded noise: stat=%f p=%f", level.Statistic, level.PValue)

	ct := KPSS(trend, "ct", 0)
	if ct == nil {
		t.Fatal("KPSS ct returned nil")
	}
}

func TestPhillipsPerron(t *testing.T) {
	result := PhillipsPerron(ar1(200, 0.5), 0)
	if result == nil {
		t.Fatal("PhillipsPerron returned nil")
	}
	t.Logf("PP Statistic: %f, P-Value: %f", result.Statistic, result.PValue)
}

func TestLjungBox(t *testing.T) {
	result := LjungBox(ar1(200, 0.9), 10, 0)
	if result == nil {
		t.Fatal("LjungBox returned nil")
	}
	if result.PValue > 0.05 {
		t.Errorf("Expected strong autocorrelation to be detected, p=%f", result.PValue)
	}
	if result.DOF != 10 {
		t.Errorf("Expected 10 dof, got %d", result.DOF)
	}
}

func TestQS(t *testing.T) {
	x := trendSeason(120, 12, 0, 10)

	result := QS(x, 12)
	if result == nil {
		t.Fatal("QS returned nil")
	}
	if result.PValue > 0.01 {
		t.Errorf("Expected seasonal series to reject no-seasonality, p=%f", result.PValue)
	}

	if QS(x[:20], 12) != nil {
		t.Error("Expected nil QS for fewer than two cycles")
	}
}

func TestChiSquaredSurvival(t *testing.T) {
	tests := []struct {
		x        float64
		k        int
		expected float64
	}{
		{0, 1, 1},
		{3.841458820694124, 1, 0.05},
		{5.991464547107979, 2, 0.05},
		{7.814727903251178, 3, 0.05},
	}

	for _, tt := range tests {
		result := chiSquaredSurvival(tt.x, tt.k)
		if math.Abs(result-tt.expected) > 1e-6 {
			t.Errorf("chiSquaredSurvival(%f, %d) = %f, expected %f", tt.x, tt.k, result, tt.expected)
		}
	}
}

func TestDecompose(t *testing.T) {
	n := 120 // 10 years of monthly data
	period := 12
	values := trendSeason(n, period, 0.5, 10)

	result, err := Decompose(values, period, Additive)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	if len(result.Trend) != n || len(result.Seasonal) != n || len(result.Residual) != n {
		t.Fatalf("Component length mismatch")
	}

	// Ends are undefined for a centred MA
	if !math.IsNaN(result.Trend[0]) || !math.IsNaN(result.Trend[n-1]) {
		t.Errorf("Expected NaN trend at the ends")
	}

	for i := period / 2; i < n-period/2; i++ {
		// Linear trend is reproduced exactly by a 2x12 MA
		if math.Abs(result.Trend[i]-(50+float64(i)*0.5)) > 1e-9 {
			t.Errorf("Trend at %d: expected %f, got %f", i, 50+float64(i)*0.5, result.Trend[i])
		}
		reconstructed := result.Trend[i] + result.Seasonal[i] + result.Residual[i]
		if math.Abs(reconstructed-values[i]) > 1e-9 {
			t.Errorf("Reconstruction error at index %d: original=%f, reconstructed=%f",
				i, values[i], reconstructed)
		}
	}

	for i := 0; i < n; i++ {
		expected := 10 * math.Sin(2*math.Pi*float64(i%period)/float64(period))
		if math.Abs(result.Seasonal[i]-expected) > 1e-9 {
			t.Errorf("Seasonal at %d: expected %f, got %f", i, expected, result.Seasonal[i])
			break
		}
	}

	adjusted := result.Adjusted(values)
	for i := range adjusted {
		if math.Abs(adjusted[i]+result.Seasonal[i]-values[i]) > 1e-12 {
			t.Errorf("Adjusted plus seasonal differs from original at %d", i)
			break
		}
	}
}

func TestDecomposeMultiplicative(t *testing.T) {
	n := 96
	period := 12
	values := make([]float64, n)
	for i := range values {
		values[i] = (100 + float64(i)) * (1 + 0.2*math.Cos(2*math.Pi*float64(i)/12))
	}

	result, err := Decompose(values, period, Multiplicative)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	mean := 0.0
	for _, v := range result.Seasonal[:period] {
		mean += v
	}
	if math.Abs(mean/float64(period)-1) > 1e-12 {
		t.Errorf("Seasonal factors should average 1, got %f", mean/float64(period))
	}

	for i := period / 2; i < n-period/2; i++ {
		reconstructed := result.Trend[i] * result.Seasonal[i] * result.Residual[i]
		if math.Abs(reconstructed-values[i])/values[i] > 1e-9 {
			t.Errorf("Reconstruction error at %d", i)
		}
	}
}

func TestDecomposeErrors(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
		model  Model
		want   error
	}{
		{"too short", make([]float64, 20), 12, Additive, ErrTooShort},
		{"bad period", make([]float64, 20), 1, Additive, ErrBadPeriod},
		{"non-positive", append(make([]float64, 23), 1), 12, Multiplicative, ErrNonPositive},
		{"nan", append(make([]float64, 23), math.NaN()), 12, Additive, ErrMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decompose(tt.values, tt.period, tt.model); !errors.Is(err, tt.want) {
				t.Errorf("Decompose: expected %v, got %v", tt.want, err)
			}
			if _, err := STL(tt.values, tt.period, tt.model, 2); !errors.Is(err, tt.want) {
				t.Errorf("STL: expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSTL(t *testing.T) {
	n := 120
	period := 12
	values := trendSeason(n, period, 0.5, 10)
	for i := range values {
		values[i] += float64(i%5-2) / 5
	}

	result, err := STL(values, period, Additive, 2)
	if err != nil {
		t.Fatalf("STL: %v", err)
	}

	for i := 0; i < n; i++ {
		if math.IsNaN(result.Trend[i]) {
			t.Fatalf("STL trend should be defined everywhere, NaN at %d", i)
		}
		reconstructed := result.Trend[i] + result.Seasonal[i] + result.Residual[i]
		if math.Abs(reconstructed-values[i]) > 1e-9 {
			t.Errorf("Reconstruction error at index %d", i)
		}
	}

	// The seasonal component is periodic
	for i := period; i < n; i++ {
		if math.Abs(result.Seasonal[i]-result.Seasonal[i-period]) > 1e-12 {
			t.Errorf("Seasonal component not periodic at %d", i)
			break
		}
	}

	if SeasonalStrength(result) < 0.64 {
		t.Errorf("Expected strong seasonality, got %f", SeasonalStrength(result))
	}
}

func TestSTLMultiplicative(t *testing.T) {
	n := 120
	values := make([]float64, n)
	for i := range values {
		values[i] = (100 + float64(i)) * (1 + 0.3*math.Sin(2*math.Pi*float64(i)/12))
	}

	result, err := STL(values, 12, Multiplicative, 2)
	if err != nil {
		t.Fatalf("STL: %v", err)
	}

	for i := range values {
		reconstructed := result.Trend[i] * result.Seasonal[i] * result.Residual[i]
		if math.Abs(reconstructed-values[i])/values[i] > 1e-9 {
			t.Errorf("Reconstruction error at index %d", i)
			break
		}
		if result.Seasonal[i] <= 0 {
			t.Errorf("Seasonal factor must be positive at %d", i)
			break
		}
	}
}

func TestInterpolate(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 10, 0}

	tests := []struct {
		v, expected float64
	}{
		{-1, 0},
		{0.5, 5},
		{1.5, 5},
		{3, 0},
	}
	for _, tt := range tests {
		if got := interpolate(tt.v, xs, ys); math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("interpolate(%f) = %f, expected %f", tt.v, got, tt.expected)
		}
	}

	if p := mackinnonPValue(-10); p != 0.001 {
		t.Errorf("Expected clamped p-value 0.001, got %f", p)
	}
	if p := mackinnonPValue(-2.86); math.Abs(p-0.05) > 1e-12 {
		t.Errorf("Expected p-value 0.05 at the 5%% critical value, got %f", p)
	}
}
