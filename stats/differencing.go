package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Diff returns the lag-k difference x[t] - x[t-k].
func Diff(x []float64, k int) []float64 {
	if k <= 0 || len(x) <= k {
		return []float64{}
	}
	out := make([]float64, len(x)-k)
	for i := k; i < len(x); i++ {
		out[i-k] = x[i] - x[i-k]
	}
	return out
}

// NDiffs determines the number of first differences required for stationarity.
// Uses KPSS test by default. Returns 0, 1, or 2.
// maxD is the maximum number of differences to consider (default 2).
// testType can be "kpss" (default) or "adf".
func NDiffs(x []float64, maxD int, testType string) int {
	if maxD <= 0 {
		maxD = 2
	}
	if testType == "" {
		testType = "kpss"
	}

	current := x
	for d := 0; d < maxD; d++ {
		isStationary := false

		if testType == "adf" {
			if result := ADF(current, 0); result != nil && result.IsStationary {
				isStationary = true
			}
		} else {
			if result := KPSS(current, "c", 0); result != nil && result.IsStationary {
				isStationary = true
			}
		}

		if isStationary {
			return d
		}

		current = Diff(current, 1)
		if len(current) < 10 {
			return d
		}
	}

	return maxD
}

// NSDiffs determines the number of seasonal differences required.
// Uses seasonal strength measure: if F_S >= 0.64, one seasonal difference is suggested.
// period is the seasonal period (e.g., 12 for monthly data with yearly seasonality).
func NSDiffs(x []float64, period int, maxD int) int {
	if maxD <= 0 {
		maxD = 1
	}
	if period <= 1 || len(x) < 2*period {
		return 0
	}

	current := x
	for d := 0; d < maxD; d++ {
		decomp, err := Decompose(current, period, Additive)
		if err != nil || SeasonalStrength(decomp) < 0.64 {
			return d
		}

		current = Diff(current, period)
		if len(current) < 2*period {
			return d
		}
	}

	return maxD
}

// SeasonalStrength calculates the strength of seasonality of a decomposition.
// F_S = max(0, 1 - Var(R) / Var(S+R))
// where S is seasonal component and R is residual. Multiplicative
// decompositions are measured on the log scale.
func SeasonalStrength(d *Decomposition) float64 {
	if d == nil {
		return 0
	}

	var resid, seasonalPlusResid []float64
	for i := range d.Seasonal {
		s, r := d.Seasonal[i], d.Residual[i]
		if math.IsNaN(s) || math.IsNaN(r) {
			continue
		}
		if d.Model == Multiplicative {
			if s <= 0 || r <= 0 {
				continue
			}
			s, r = math.Log(s), math.Log(r)
		}
		resid = append(resid, r)
		seasonalPlusResid = append(seasonalPlusResid, s+r)
	}
	if len(resid) < 2 {
		return 0
	}

	varR := stat.Variance(resid, nil)
	varSR := stat.Variance(seasonalPlusResid, nil)
	if varSR == 0 {
		return 0
	}

	return math.Max(0, 1-varR/varSR)
}

// InformationCriteria holds AIC, AICc, and BIC for a fitted model.
type InformationCriteria struct {
	AIC    float64
	AICc   float64
	BIC    float64
	LogLik float64
}

// CalculateIC calculates all information criteria.
// logLik is the log-likelihood, nObs is the number of observations,
// nParams is the number of estimated parameters.
func CalculateIC(logLik float64, nObs int, nParams int) *InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	bic := -2*logLik + k*math.Log(n)

	aicc := math.Inf(1)
	if n-k-1 > 0 {
		aicc = aic + 2*k*(k+1)/(n-k-1)
	}

	return &InformationCriteria{
		AIC:    aic,
		AICc:   aicc,
		BIC:    bic,
		LogLik: logLik,
	}
}
