package seasonality

import (
	"time"

	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/timeseries"
)

// DefaultFrequencyTolerance is the share of spacings allowed to differ from
// the mode.
const DefaultFrequencyTolerance = 0.05

// InferFrequency returns the sampling frequency of s from the modal spacing
// of consecutive timestamps, measured in calendar months. A mode other than
// 1 or 3 months, or more than tolerance of spacings off the mode, is an
// *errs.IrregularFrequencyError.
//
// A series with fewer than two timestamps keeps its declared frequency.
func InferFrequency(s *timeseries.Series, tolerance float64) (timeseries.Frequency, error) {
	if len(s.Timestamps) < 2 {
		if s.Frequency != timeseries.FrequencyUnknown {
			return s.Frequency, nil
		}
		return timeseries.FrequencyUnknown, errs.NewIrregularFrequency(s.Name, 0, 1, time.Time{})
	}

	counts := make(map[int]int)
	spacings := make([]int, len(s.Timestamps)-1)
	for i := 1; i < len(s.Timestamps); i++ {
		m := timeseries.MonthsBetween(s.Timestamps[i-1], s.Timestamps[i])
		spacings[i-1] = m
		counts[m]++
	}

	modal, best := 0, -1
	for m, c := range counts {
		if c > best || (c == best && m < modal) {
			modal, best = m, c
		}
	}

	off := 0
	var firstOff time.Time
	for i, m := range spacings {
		if m != modal {
			if off == 0 {
				firstOff = s.Timestamps[i+1]
			}
			off++
		}
	}
	share := float64(off) / float64(len(spacings))

	freq := timeseries.FrequencyFromMonths(modal)
	if freq == timeseries.FrequencyUnknown || share > tolerance {
		return timeseries.FrequencyUnknown, errs.NewIrregularFrequency(s.Name, modal, share, firstOff)
	}
	return freq, nil
}
