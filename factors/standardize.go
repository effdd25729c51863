// Package factors prepares transformed series for factor estimation:
// z-scoring, grouping by economic category and assembling the T x N panel
// matrix in a deterministic column order.
package factors

import (
	"errors"
	"math"

	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/timeseries"
)

// Moments are the location and scale removed by Standardize.
type Moments struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	N    int     `json:"n"`
}

// zeroVarianceULPs bounds the spread, in units of float64 resolution at the
// mean, that is still treated as rounding noise.
const zeroVarianceULPs = 64

// Standardize returns (x - mean) / std over the observed values. ddof is the
// delta degrees of freedom of the variance; 0 gives the population variance.
// A numerically zero variance is an *errs.ZeroVarianceError.
func Standardize(s *timeseries.Series, ddof int) (*timeseries.Series, Moments, error) {
	if s == nil {
		return nil, Moments{}, errors.New("factors: nil series")
	}
	n := s.ObservedCount()
	mean := s.Mean()
	variance := s.Variance(ddof)
	if n == 0 || math.IsNaN(variance) || variance <= noiseFloor(mean) {
		return nil, Moments{Mean: mean, N: n}, errs.NewZeroVariance(s.Name, variance)
	}
	std := math.Sqrt(variance)

	values := make([]timeseries.Value, s.Len())
	for i, v := range s.Values {
		if v.Valid {
			values[i] = timeseries.Some((v.Float - mean) / std)
		}
	}
	return s.WithValues(values, timeseries.ProvenanceStandardized), Moments{Mean: mean, Std: std, N: n}, nil
}

// noiseFloor is the largest variance indistinguishable from rounding error
// for values around mean.
func noiseFloor(mean float64) float64 {
	tol := zeroVarianceULPs * epsilon * math.Max(1, math.Abs(mean))
	return tol * tol
}

const epsilon = 0x1p-52
