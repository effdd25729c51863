package pipeline

import "fmt"

// State is the position of a series in the preprocessing state machine.
//
//	raw -> validated -> transformed -> deseasonalized | passthrough
//	    -> standardized -> grouped -> included
//
// Any non-terminal state may move to excluded. Only raw may move to skipped.
type State string

const (
	StateRaw            State = "raw"
	StateValidated      State = "validated"
	StateTransformed    State = "transformed"
	StateDeseasonalized State = "deseasonalized"
	StatePassthrough    State = "passthrough"
	StateStandardized   State = "standardized"
	StateGrouped        State = "grouped"
	StateIncluded       State = "included"
	StateExcluded       State = "excluded"
	StateSkipped        State = "skipped"
)

var transitions = map[State][]State{
	StateRaw:            {StateValidated},
	StateValidated:      {StateTransformed},
	StateTransformed:    {StateDeseasonalized, StatePassthrough},
	StateDeseasonalized: {StateStandardized, StateGrouped},
	StatePassthrough:    {StateStandardized, StateGrouped},
	StateStandardized:   {StateGrouped},
	StateGrouped:        {StateIncluded},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateIncluded || s == StateExcluded || s == StateSkipped
}

// CanTransition reports whether the machine may move from one state to another.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StateExcluded:
		return true
	case StateSkipped:
		return from == StateRaw
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stage names the step that moves a series forward.
type Stage string

const (
	StageSelect        Stage = "select"
	StageValidate      Stage = "validate"
	StageTransform     Stage = "transform"
	StageSeasonality   Stage = "seasonality"
	StageDeseasonalize Stage = "deseasonalize"
	StageStandardize   Stage = "standardize"
	StageGroup         Stage = "group"
)

// Outcome is the coarse result for a series.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

func outcomeOf(s State) Outcome {
	switch s {
	case StateIncluded:
		return OutcomeOK
	case StateSkipped:
		return OutcomeSkipped
	case StateExcluded:
		return OutcomeFailed
	}
	return ""
}

// advance moves st to the next state.
func (st *Status) advance(to State) error {
	if !CanTransition(st.State, to) {
		return fmt.Errorf("pipeline: series %q: illegal transition %s -> %s", st.Series, st.State, to)
	}
	st.State = to
	st.Outcome = outcomeOf(to)
	return nil
}
