// Package tcode applies the FRED-MD transformation codes.
//
// Each series in FRED-MD carries a code from 1 to 7 telling how it is made
// stationary before factor estimation (McCracken & Ng, 2016):
//
//	1  x_t                      level
//	2  Δx_t                     first difference
//	3  Δ²x_t                    second difference
//	4  log x_t                  log
//	5  Δlog x_t                 log first difference
//	6  Δ²log x_t                log second difference
//	7  Δ(x_t/x_{t-1} - 1)       change in the growth rate
//
// Apply consumes LagOrder leading observations and records them on the result.
package tcode

import "fmt"

// Code is a FRED-MD transformation code.
type Code int

const (
	Level Code = iota + 1
	Diff
	Diff2
	Log
	LogDiff
	LogDiff2
	PctChangeDiff
)

// Codes lists every valid code in ascending order.
var Codes = []Code{Level, Diff, Diff2, Log, LogDiff, LogDiff2, PctChangeDiff}

// ParseCode converts an integer to a Code.
func ParseCode(v int) (Code, error) {
	c := Code(v)
	if !c.Valid() {
		return 0, fmt.Errorf("tcode: invalid code %d (allowed 1-7)", v)
	}
	return c, nil
}

// Valid reports whether c is one of the seven codes.
func (c Code) Valid() bool {
	return c >= Level && c <= PctChangeDiff
}

// LagOrder returns the number of leading observations the transform consumes.
func (c Code) LagOrder() int {
	switch c {
	case Level, Log:
		return 0
	case Diff, LogDiff:
		return 1
	case Diff2, LogDiff2, PctChangeDiff:
		return 2
	}
	return 0
}

// IsLog reports whether the transform takes logarithms.
func (c Code) IsLog() bool {
	switch c {
	case Log, LogDiff, LogDiff2:
		return true
	}
	return false
}

func (c Code) String() string {
	switch c {
	case Level:
		return "level"
	case Diff:
		return "diff"
	case Diff2:
		return "diff2"
	case Log:
		return "log"
	case LogDiff:
		return "logdiff"
	case LogDiff2:
		return "logdiff2"
	case PctChangeDiff:
		return "pctdiff"
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Formula returns the textual transform, e.g. "Δlog(x)".
func (c Code) Formula() string {
	switch c {
	case Level:
		return "x"
	case Diff:
		return "Δx"
	case Diff2:
		return "Δ²x"
	case Log:
		return "log(x)"
	case LogDiff:
		return "Δlog(x)"
	case LogDiff2:
		return "Δ²log(x)"
	case PctChangeDiff:
		return "Δ(x/x(-1) - 1)"
	}
	return "?"
}
