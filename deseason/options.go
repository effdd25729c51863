package deseason

import "fmt"

// Mode selects how the seasonal component combines with the rest of the series.
type Mode string

const (
	ModeAdditive       Mode = "additive"
	ModeMultiplicative Mode = "multiplicative"
	// ModeAuto picks additive or multiplicative per series.
	ModeAuto Mode = "auto"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAdditive, ModeMultiplicative, ModeAuto:
		return Mode(s), nil
	}
	return "", fmt.Errorf("deseason: unknown mode %q", s)
}

// Algorithm selects the decomposition.
type Algorithm string

const (
	// Classical uses a centred moving-average trend and averaged seasonal indices.
	Classical Algorithm = "classical"
	// STL uses robust seasonal-trend decomposition.
	STL Algorithm = "stl"
)

// ParseAlgorithm parses an algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case Classical, STL:
		return Algorithm(s), nil
	}
	return "", fmt.Errorf("deseason: unknown algorithm %q", s)
}

// Method is the adjustment actually applied to a series.
type Method string

const (
	MethodNone           Method = "none"
	MethodAdditive       Method = "additive"
	MethodMultiplicative Method = "multiplicative"
)

// Options controls deseasonalization.
type Options struct {
	Mode      Mode
	Algorithm Algorithm
	// RobustIters is the number of STL robustness passes.
	RobustIters int
	// ExtendEnds pads the series with half a period of ARIMA backcasts and
	// forecasts before estimating the trend.
	ExtendEnds bool
	// ExtendMaxAR is the largest AR order tried for the extension.
	ExtendMaxAR int
	// AutoCorrelationCutoff is the amplitude-level correlation above which
	// ModeAuto chooses multiplicative.
	AutoCorrelationCutoff float64
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		Mode:                  ModeAuto,
		Algorithm:             Classical,
		RobustIters:           2,
		ExtendMaxAR:           3,
		AutoCorrelationCutoff: 0.5,
	}
}
