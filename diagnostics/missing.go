// Package diagnostics reports on panel quality before and after
// preprocessing: where values are missing, whether series look stationary,
// and which series survive the screening rules for a training window.
package diagnostics

import (
	"sort"
	"time"

	"github.com/sartorproj/gofredmd/timeseries"
)

// SeriesMissingness summarises the missing values of one series.
type SeriesMissingness struct {
	Series     string  `json:"series"`
	Rows       int     `json:"n_rows"`
	Missing    int     `json:"n_missing"`
	PctMissing float64 `json:"pct_missing"`

	MissFirst        bool `json:"miss_first"`
	MissSecond       bool `json:"miss_second"`
	MissBothFirstTwo bool `json:"miss_both_first_two"`
	MissAnyFirstTwo  bool `json:"miss_any_first_two"`
	// MissIntermediate covers rows strictly between the second and last.
	MissIntermediate    bool `json:"miss_intermediate"`
	MissingIntermediate int  `json:"n_missing_intermediate"`
	MissLast            bool `json:"miss_last"`

	FirstMissing *time.Time `json:"first_missing,omitempty"`
	LastMissing  *time.Time `json:"last_missing,omitempty"`
	Runs         int        `json:"n_runs"`
	LongestRun   int        `json:"longest_run"`
}

// MissingnessReport covers every series of a panel, sorted by name.
type MissingnessReport struct {
	Rows   int                 `json:"n_rows"`
	First  time.Time           `json:"first"`
	Second time.Time           `json:"second"`
	Last   time.Time           `json:"last"`
	Series []SeriesMissingness `json:"series"`
}

// Count returns how many series satisfy pred.
func (r *MissingnessReport) Count(pred func(SeriesMissingness) bool) int {
	n := 0
	for _, s := range r.Series {
		if pred(s) {
			n++
		}
	}
	return n
}

// Names returns the series satisfying pred, in report order.
func (r *MissingnessReport) Names(pred func(SeriesMissingness) bool) []string {
	out := []string{}
	for _, s := range r.Series {
		if pred(s) {
			out = append(out, s.Series)
		}
	}
	return out
}

// Missingness flags missing values at the first, second and last rows and
// counts those in between, for every series of p.
func Missingness(p *timeseries.Panel) *MissingnessReport {
	rows := p.Rows()
	report := &MissingnessReport{Rows: rows, Series: []SeriesMissingness{}}
	if rows > 0 {
		report.First = p.Index[0]
		report.Second = p.Index[min(1, rows-1)]
		report.Last = p.Index[rows-1]
	}

	for _, s := range p.Series() {
		m := SeriesMissingness{Series: s.Name, Rows: rows}
		if rows == 0 {
			report.Series = append(report.Series, m)
			continue
		}
		missing := func(i int) bool { return !s.Values[i].Valid }

		m.MissFirst = missing(0)
		m.MissSecond = missing(min(1, rows-1))
		m.MissBothFirstTwo = m.MissFirst && m.MissSecond
		m.MissAnyFirstTwo = m.MissFirst || m.MissSecond
		m.MissLast = missing(rows - 1)

		for i := 0; i < rows; i++ {
			if !missing(i) {
				continue
			}
			m.Missing++
			if i > 1 && i < rows-1 {
				m.MissingIntermediate++
			}
			ts := s.Timestamps[i]
			if m.FirstMissing == nil {
				m.FirstMissing = &ts
			}
			m.LastMissing = &ts
		}
		m.MissIntermediate = m.MissingIntermediate > 0
		m.PctMissing = 100 * float64(m.Missing) / float64(rows)

		for _, run := range seriesRuns(s) {
			m.Runs++
			m.LongestRun = max(m.LongestRun, run.Length)
		}
		report.Series = append(report.Series, m)
	}

	sort.Slice(report.Series, func(i, j int) bool {
		return report.Series[i].Series < report.Series[j].Series
	})
	return report
}

// MissingRun is a contiguous span of missing values.
type MissingRun struct {
	Series string    `json:"series"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Length int       `json:"length"`
}

// MissingRuns lists every run of missing values, series in panel order.
func MissingRuns(p *timeseries.Panel) []MissingRun {
	out := []MissingRun{}
	for _, s := range p.Series() {
		out = append(out, seriesRuns(s)...)
	}
	return out
}

func seriesRuns(s *timeseries.Series) []MissingRun {
	var out []MissingRun
	start := -1
	flush := func(end int) {
		out = append(out, MissingRun{
			Series: s.Name,
			Start:  s.Timestamps[start],
			End:    s.Timestamps[end],
			Length: end - start + 1,
		})
		start = -1
	}
	for i, v := range s.Values {
		switch {
		case !v.Valid && start < 0:
			start = i
		case v.Valid && start >= 0:
			flush(i - 1)
		}
	}
	if start >= 0 {
		flush(len(s.Values) - 1)
	}
	return out
}
