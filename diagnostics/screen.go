package diagnostics

import (
	"fmt"
	"time"

	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/timeseries"
)

// ScreenRules drop series that are too sparse to model. Lengths are in
// months.
type ScreenRules struct {
	MissingShareMax float64 `json:"missing_share_max" yaml:"missing_share_max"`
	LeadingLimit    int     `json:"leading_na_limit_months" yaml:"leading_na_limit_months"`
	InteriorGapMax  int     `json:"interior_gap_max_months" yaml:"interior_gap_max_months"`
	MinObsTrain     int     `json:"min_obs_train_months" yaml:"min_obs_train_months"`
}

// DefaultScreenRules returns the screening thresholds used for FRED-MD.
func DefaultScreenRules() ScreenRules {
	return ScreenRules{
		MissingShareMax: 0.40,
		LeadingLimit:    24,
		InteriorGapMax:  6,
		MinObsTrain:     36,
	}
}

// WindowRules drive the automatic training-window choice.
type WindowRules struct {
	// Coverage is the share of series that must be observed in a month.
	Coverage      float64 `json:"cov_thresh" yaml:"cov_thresh"`
	TrainYears    int     `json:"train_years" yaml:"train_years"`
	HoldoutMonths int     `json:"holdout_months" yaml:"holdout_months"`
	// MinRun is the number of consecutive covered months required.
	MinRun int `json:"min_run_consecutive" yaml:"min_run_consecutive"`
}

// DefaultWindowRules returns the training-window defaults.
func DefaultWindowRules() WindowRules {
	return WindowRules{
		Coverage:      0.75,
		TrainYears:    30,
		HoldoutMonths: 60,
		MinRun:        12,
	}
}

// TrainingWindow is an inclusive range of panel rows.
type TrainingWindow struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	StartRow int       `json:"start_row"`
	EndRow   int       `json:"end_row"`
}

// Rows returns the number of rows in the window.
func (w TrainingWindow) Rows() int {
	return w.EndRow - w.StartRow + 1
}

func monthsToRows(months int, freq timeseries.Frequency) int {
	if m := freq.Months(); m > 1 {
		return (months + m - 1) / m
	}
	return months
}

// PickTrainingWindow chooses the training rows of p. The window starts at
// the end of the first run of MinRun rows whose coverage is at least
// Coverage, ends HoldoutMonths before the last row, and spans at most
// TrainYears. When the holdout leaves no room the window is MinRun rows long
// from the start.
func PickTrainingWindow(p *timeseries.Panel, rules WindowRules) (TrainingWindow, error) {
	n := p.Rows()
	if n == 0 || p.Len() == 0 {
		return TrainingWindow{}, fmt.Errorf("diagnostics: training window: %w", errs.ErrEmptyPanel)
	}
	minRun := max(monthsToRows(rules.MinRun, p.Frequency), 1)
	holdout := monthsToRows(rules.HoldoutMonths, p.Frequency)
	desired := monthsToRows(rules.TrainYears*12, p.Frequency)

	coverage := make([]float64, n)
	for _, s := range p.Series() {
		for i, v := range s.Values {
			if v.Valid {
				coverage[i]++
			}
		}
	}
	for i := range coverage {
		coverage[i] /= float64(p.Len())
	}

	firstOK := -1
	run := 0
	for i, c := range coverage {
		if c >= rules.Coverage {
			run++
		} else {
			run = 0
		}
		if run >= minRun {
			firstOK = i
			break
		}
	}
	if firstOK < 0 {
		for i, c := range coverage {
			if c >= rules.Coverage {
				firstOK = i
				break
			}
		}
	}
	if firstOK < 0 {
		firstOK = min(minRun-1, n-1)
	}

	end := max(0, n-holdout-1)
	start := max(firstOK, end-desired+1)
	if start > end {
		start = firstOK
		end = min(start+minRun-1, n-1)
	}
	return TrainingWindow{
		Start:    p.Index[start],
		End:      p.Index[end],
		StartRow: start,
		EndRow:   end,
	}, nil
}

// Screening records the measurements behind a screening decision.
type Screening struct {
	Series         string  `json:"series"`
	MissingShare   float64 `json:"missing_share"`
	LeadingMissing int     `json:"leading_na_since_anchor"`
	InteriorGap    int     `json:"interior_gap_months"`
	TrainObs       int     `json:"nobs_train"`
	Reason         string  `json:"drop_reason,omitempty"`
}

// ScreenResult is the outcome of Screen.
type ScreenResult struct {
	Anchor  time.Time      `json:"anchor_start"`
	Window  TrainingWindow `json:"train_window"`
	Rules   ScreenRules    `json:"rules"`
	Kept    []string       `json:"kept_series"`
	Dropped []Screening    `json:"dropped_series"`
	// Panel holds the anchored rows and the kept series.
	Panel *timeseries.Panel `json:"-"`
}

// Screen anchors p at anchor (a zero anchor keeps every row), picks the
// training window, and drops series breaking a rule. Rules are checked in
// order and the first failure is the reason.
func Screen(p *timeseries.Panel, anchor time.Time, rules ScreenRules, window WindowRules) (*ScreenResult, error) {
	first := 0
	if !anchor.IsZero() {
		for first < p.Rows() && p.Index[first].Before(anchor) {
			first++
		}
	}
	anchored := p.SliceRows(first, p.Rows())
	w, err := PickTrainingWindow(anchored, window)
	if err != nil {
		return nil, err
	}

	res := &ScreenResult{
		Anchor:  anchored.Index[0],
		Window:  w,
		Rules:   rules,
		Kept:    []string{},
		Dropped: []Screening{},
	}
	for _, s := range anchored.Series() {
		sc := measure(s, w)
		switch {
		case sc.MissingShare > rules.MissingShareMax:
			sc.Reason = fmt.Sprintf("missing_share>%.2f", rules.MissingShareMax)
		case sc.LeadingMissing > rules.LeadingLimit:
			sc.Reason = fmt.Sprintf("leading_na>%d", rules.LeadingLimit)
		case sc.InteriorGap > rules.InteriorGapMax:
			sc.Reason = fmt.Sprintf("interior_gap>%d", rules.InteriorGapMax)
		case sc.TrainObs < rules.MinObsTrain:
			sc.Reason = fmt.Sprintf("nobs_train<%d", rules.MinObsTrain)
		}
		if sc.Reason != "" {
			res.Dropped = append(res.Dropped, sc)
			continue
		}
		res.Kept = append(res.Kept, s.Name)
	}

	res.Panel, err = anchored.Select(res.Kept)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func measure(s *timeseries.Series, w TrainingWindow) Screening {
	n := s.Len()
	sc := Screening{Series: s.Name}
	missing := n - s.ObservedCount()
	if n > 0 {
		sc.MissingShare = float64(missing) / float64(n)
	}

	first := s.FirstObserved()
	if first < 0 {
		sc.LeadingMissing = n
		sc.InteriorGap = n
		return sc
	}
	sc.LeadingMissing = first

	_, sc.InteriorGap = s.LongestGap()

	for i := w.StartRow; i <= w.EndRow && i < n; i++ {
		if s.Values[i].Valid {
			sc.TrainObs++
		}
	}
	return sc
}
