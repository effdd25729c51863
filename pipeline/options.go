package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/sartorproj/gofredmd/deseason"
	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/factors"
	"github.com/sartorproj/gofredmd/seasonality"
)

// Options configures a run. The zero Logger, Metrics and Tracer disable
// the corresponding output.
type Options struct {
	Seasonality seasonality.Config
	Deseason    deseason.Options

	// Standardize rescales every series to zero mean and unit variance.
	Standardize bool
	// Ddof is 0 for population or 1 for sample variance.
	Ddof    int
	Balance factors.BalanceMode
	// Workers bounds the number of series processed at once.
	Workers int
	// Exclude lists series to skip.
	Exclude []string

	Logger  zerolog.Logger
	Metrics *Metrics
	Tracer  trace.Tracer
}

// DefaultOptions returns sequential processing with standardization and the
// package defaults of each stage.
func DefaultOptions() Options {
	return Options{
		Seasonality: seasonality.DefaultConfig(),
		Deseason:    deseason.DefaultOptions(),
		Standardize: true,
		Balance:     factors.BalanceNone,
		Workers:     1,
		Logger:      zerolog.Nop(),
	}
}

// Validate reports option values no run could use.
func (o Options) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", errs.ErrInvalidOptions, fmt.Sprintf(format, args...))
	}
	c := o.Seasonality
	if c.Threshold < 0 || c.Threshold > 1 {
		return invalid("seasonal threshold %g outside [0, 1]", c.Threshold)
	}
	if c.Metric != "" {
		if _, err := seasonality.ParseMetric(string(c.Metric)); err != nil {
			return invalid("%v", err)
		}
	}
	if c.MinHistoryCycles < 0 {
		return invalid("min history cycles %d is negative", c.MinHistoryCycles)
	}
	if c.FrequencyTolerance < 0 || c.FrequencyTolerance >= 1 {
		return invalid("frequency tolerance %g outside [0, 1)", c.FrequencyTolerance)
	}
	if o.Deseason.Mode != "" {
		if _, err := deseason.ParseMode(string(o.Deseason.Mode)); err != nil {
			return invalid("%v", err)
		}
	}
	if o.Deseason.Algorithm != "" {
		if _, err := deseason.ParseAlgorithm(string(o.Deseason.Algorithm)); err != nil {
			return invalid("%v", err)
		}
	}
	if o.Ddof != 0 && o.Ddof != 1 {
		return invalid("ddof must be 0 or 1, got %d", o.Ddof)
	}
	if o.Balance != "" {
		if _, err := factors.ParseBalanceMode(string(o.Balance)); err != nil {
			return invalid("%v", err)
		}
	}
	if o.Workers < 0 {
		return invalid("workers %d is negative", o.Workers)
	}
	return nil
}
