// Package errs defines the error taxonomy shared by every preprocessing stage.
//
// Per-series errors carry the series name (and timestamp where one is at fault)
// and report a Kind so the orchestrator can tally exclusions. Structural errors
// are plain sentinels that abort a run.
package errs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a preprocessing error.
type Kind string

const (
	KindInsufficientHistory Kind = "insufficient_history"
	KindNonPositiveValue    Kind = "non_positive_value"
	KindIrregularFrequency  Kind = "irregular_frequency"
	KindDecomposition       Kind = "decomposition"
	KindZeroVariance        Kind = "zero_variance"
	KindUnknownSeries       Kind = "unknown_series"
	KindMissingCode         Kind = "missing_code"
	KindInvalidCode         Kind = "invalid_code"
	KindCancelled           Kind = "cancelled"
	KindInternal            Kind = "internal"
)

// Structural errors. These abort a run instead of excluding one series.
var (
	ErrEmptyPanel      = errors.New("panel is empty")
	ErrMissingCodeMap  = errors.New("transformation code map is missing")
	ErrInvalidOptions  = errors.New("invalid pipeline options")
	ErrInvalidGroupMap = errors.New("invalid group map")
)

// Kinded is implemented by every typed error in this package.
type Kinded interface {
	error
	Kind() Kind
}

const dateLayout = "2006-01-02"

// InsufficientHistoryError is returned when a series is shorter than the lag
// order of its transformation, or its first window has gaps.
type InsufficientHistoryError struct {
	Series    string
	LagOrder  int
	Available int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("series %q: insufficient history: lag order %d needs %d consecutive observations, have %d",
		e.Series, e.LagOrder, e.LagOrder+1, e.Available)
}

func (e *InsufficientHistoryError) Kind() Kind { return KindInsufficientHistory }

// NewInsufficientHistory creates an InsufficientHistoryError.
func NewInsufficientHistory(series string, lagOrder, available int) *InsufficientHistoryError {
	return &InsufficientHistoryError{Series: series, LagOrder: lagOrder, Available: available}
}

// NonPositiveValueError is returned when a log-based transformation meets a
// value that is zero or negative.
type NonPositiveValueError struct {
	Series    string
	Timestamp time.Time
	Value     float64
	Reason    string
}

func (e *NonPositiveValueError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "log transform requires positive values"
	}
	return fmt.Sprintf("series %q: non-positive value %g at %s: %s",
		e.Series, e.Value, e.Timestamp.Format(dateLayout), reason)
}

func (e *NonPositiveValueError) Kind() Kind { return KindNonPositiveValue }

// NewNonPositiveValue creates a NonPositiveValueError.
func NewNonPositiveValue(series string, ts time.Time, value float64, reason string) *NonPositiveValueError {
	return &NonPositiveValueError{Series: series, Timestamp: ts, Value: value, Reason: reason}
}

// IrregularFrequencyError is returned when timestamp spacing is neither
// monthly nor quarterly.
type IrregularFrequencyError struct {
	Series       string
	ModalSpacing int
	Irregular    float64
	Timestamp    time.Time
	// ExpectedSpacing is the panel spacing in months when the series is
	// regular but disagrees with it, 0 otherwise.
	ExpectedSpacing int
}

func (e *IrregularFrequencyError) Error() string {
	if e.ExpectedSpacing != 0 {
		return fmt.Sprintf("series %q: irregular frequency: modal spacing %d months, panel spacing %d months",
			e.Series, e.ModalSpacing, e.ExpectedSpacing)
	}
	if e.Timestamp.IsZero() {
		return fmt.Sprintf("series %q: irregular frequency: modal spacing %d months, %.1f%% of intervals off the mode",
			e.Series, e.ModalSpacing, 100*e.Irregular)
	}
	return fmt.Sprintf("series %q: irregular frequency: modal spacing %d months, %.1f%% of intervals off the mode (first at %s)",
		e.Series, e.ModalSpacing, 100*e.Irregular, e.Timestamp.Format(dateLayout))
}

func (e *IrregularFrequencyError) Kind() Kind { return KindIrregularFrequency }

// NewIrregularFrequency creates an IrregularFrequencyError.
func NewIrregularFrequency(series string, modal int, irregular float64, first time.Time) *IrregularFrequencyError {
	return &IrregularFrequencyError{Series: series, ModalSpacing: modal, Irregular: irregular, Timestamp: first}
}

// NewFrequencyMismatch creates an IrregularFrequencyError for a series whose
// spacing differs from the panel's.
func NewFrequencyMismatch(series string, modal, expected int) *IrregularFrequencyError {
	return &IrregularFrequencyError{Series: series, ModalSpacing: modal, ExpectedSpacing: expected}
}

// DecompositionError is returned when seasonal adjustment cannot be estimated.
type DecompositionError struct {
	Series    string
	Period    int
	Timestamp time.Time
	Reason    string
}

func (e *DecompositionError) Error() string {
	if e.Timestamp.IsZero() {
		return fmt.Sprintf("series %q: decomposition failed (period %d): %s", e.Series, e.Period, e.Reason)
	}
	return fmt.Sprintf("series %q: decomposition failed (period %d) at %s: %s",
		e.Series, e.Period, e.Timestamp.Format(dateLayout), e.Reason)
}

func (e *DecompositionError) Kind() Kind { return KindDecomposition }

// NewDecomposition creates a DecompositionError.
func NewDecomposition(series string, period int, ts time.Time, reason string) *DecompositionError {
	return &DecompositionError{Series: series, Period: period, Timestamp: ts, Reason: reason}
}

// ZeroVarianceError is returned when a series cannot be standardized.
type ZeroVarianceError struct {
	Series   string
	Variance float64
}

func (e *ZeroVarianceError) Error() string {
	return fmt.Sprintf("series %q: variance %g is numerically zero", e.Series, e.Variance)
}

func (e *ZeroVarianceError) Kind() Kind { return KindZeroVariance }

// NewZeroVariance creates a ZeroVarianceError.
func NewZeroVariance(series string, variance float64) *ZeroVarianceError {
	return &ZeroVarianceError{Series: series, Variance: variance}
}

// UnknownSeriesError is returned when a panel series has no group assignment.
type UnknownSeriesError struct {
	Series string
}

func (e *UnknownSeriesError) Error() string {
	return fmt.Sprintf("series %q: not present in group map", e.Series)
}

func (e *UnknownSeriesError) Kind() Kind { return KindUnknownSeries }

// NewUnknownSeries creates an UnknownSeriesError.
func NewUnknownSeries(series string) *UnknownSeriesError {
	return &UnknownSeriesError{Series: series}
}

// CodeError is returned when a series has no usable transformation code.
type CodeError struct {
	Series string
	Code   int
	Absent bool
}

func (e *CodeError) Error() string {
	if e.Absent {
		return fmt.Sprintf("series %q: no transformation code", e.Series)
	}
	return fmt.Sprintf("series %q: invalid transformation code %d", e.Series, e.Code)
}

func (e *CodeError) Kind() Kind {
	if e.Absent {
		return KindMissingCode
	}
	return KindInvalidCode
}

// NewMissingCode creates a CodeError for a series absent from the code map.
func NewMissingCode(series string) *CodeError {
	return &CodeError{Series: series, Absent: true}
}

// NewInvalidCode creates a CodeError for a code outside 1-7.
func NewInvalidCode(series string, code int) *CodeError {
	return &CodeError{Series: series, Code: code}
}

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindInternal
}

// Is reports whether err carries an error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
