package timeseries

import (
	"fmt"
	"strings"
)

// Frequency is the sampling frequency of a series.
type Frequency int

const (
	FrequencyUnknown Frequency = iota
	Monthly
	Quarterly
)

// Months returns the spacing in calendar months, 0 if unknown.
func (f Frequency) Months() int {
	switch f {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	default:
		return 0
	}
}

// Period returns the seasonal period: 12 for monthly, 4 for quarterly data.
func (f Frequency) Period() int {
	switch f {
	case Monthly:
		return 12
	case Quarterly:
		return 4
	default:
		return 0
	}
}

func (f Frequency) String() string {
	switch f {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	default:
		return "unknown"
	}
}

// FrequencyFromMonths maps a spacing in months to a Frequency.
func FrequencyFromMonths(m int) Frequency {
	switch m {
	case 1:
		return Monthly
	case 3:
		return Quarterly
	default:
		return FrequencyUnknown
	}
}

// ParseFrequency parses "monthly"/"m" or "quarterly"/"q".
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "m", "ms":
		return Monthly, nil
	case "quarterly", "q", "qs":
		return Quarterly, nil
	default:
		return FrequencyUnknown, fmt.Errorf("unsupported frequency %q", s)
	}
}
