package pipeline

import (
	"time"

	"github.com/sartorproj/gofredmd/deseason"
	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/factors"
	"github.com/sartorproj/gofredmd/seasonality"
	"github.com/sartorproj/gofredmd/tcode"
	"github.com/sartorproj/gofredmd/timeseries"
)

// Status records what happened to one series.
type Status struct {
	Series  string  `json:"series"`
	Outcome Outcome `json:"outcome"`
	State   State   `json:"state"`
	// FailedStage, Kind and Reason are set for skipped and excluded series.
	FailedStage Stage     `json:"failed_stage,omitempty"`
	Kind        errs.Kind `json:"kind,omitempty"`
	Reason      string    `json:"reason,omitempty"`

	Code    tcode.Code           `json:"tcode,omitempty"`
	Verdict *seasonality.Verdict `json:"verdict,omitempty"`
	Method  deseason.Method      `json:"method,omitempty"`
	Mean    float64              `json:"mean"`
	Std     float64              `json:"std"`
	Group   string               `json:"group,omitempty"`

	Err error `json:"-"`
}

func (st *Status) exclude(stage Stage, err error) {
	st.State = StateExcluded
	st.Outcome = OutcomeFailed
	st.FailedStage = stage
	st.Kind = errs.KindOf(err)
	st.Reason = err.Error()
	st.Err = err
}

func (st *Status) skip(stage Stage, kind errs.Kind, reason string) {
	st.State = StateSkipped
	st.Outcome = OutcomeSkipped
	st.FailedStage = stage
	st.Kind = kind
	st.Reason = reason
}

// Summary counts series by outcome, by the stage that stopped them and by
// error kind.
type Summary struct {
	Total     int               `json:"total"`
	ByOutcome map[Outcome]int   `json:"by_outcome"`
	ByStage   map[Stage]int     `json:"by_stage"`
	ByKind    map[errs.Kind]int `json:"by_kind"`
	Seasonal  int               `json:"seasonal"`
}

func summarize(statuses []Status) Summary {
	s := Summary{
		Total:     len(statuses),
		ByOutcome: map[Outcome]int{OutcomeOK: 0, OutcomeSkipped: 0, OutcomeFailed: 0},
		ByStage:   map[Stage]int{},
		ByKind:    map[errs.Kind]int{},
	}
	for _, st := range statuses {
		s.ByOutcome[st.Outcome]++
		if st.FailedStage != "" {
			s.ByStage[st.FailedStage]++
		}
		if st.Kind != "" {
			s.ByKind[st.Kind]++
		}
		if st.Outcome == OutcomeOK && st.Method != "" && st.Method != deseason.MethodNone {
			s.Seasonal++
		}
	}
	return s
}

// Result is the output of a run. It is not modified after Run returns.
type Result struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Panel holds the model-ready series in matrix column order.
	Panel    *timeseries.Panel `json:"-"`
	Matrix   *factors.Matrix   `json:"-"`
	Grouping *factors.Grouping `json:"grouping,omitempty"`
	// Adjustments holds the decomposition of every seasonally adjusted series.
	Adjustments map[string]*deseason.Result `json:"-"`

	Statuses []Status `json:"series"`
	Summary  Summary  `json:"summary"`
}

// Status returns the status of a series.
func (r *Result) Status(series string) (Status, bool) {
	for _, st := range r.Statuses {
		if st.Series == series {
			return st, true
		}
	}
	return Status{}, false
}

// Included returns the series that reached the model-ready panel, in input
// order.
func (r *Result) Included() []string {
	return r.names(OutcomeOK)
}

// Excluded returns the series that failed a stage, in input order.
func (r *Result) Excluded() []string {
	return r.names(OutcomeFailed)
}

func (r *Result) names(o Outcome) []string {
	out := []string{}
	for _, st := range r.Statuses {
		if st.Outcome == o {
			out = append(out, st.Series)
		}
	}
	return out
}
