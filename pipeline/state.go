package pipeline

import "fmt"

// State is the position of an episode run in the pipeline.
type State int

const (
	StateParsed State = iota + 1
	StateStructured
	StateRegrouped
	StateExtracted
	StateResolved
	StateCommitted
	StateRejected
)

var stateNames = map[State]string{
	StateParsed:     "parsed",
	StateStructured: "structured",
	StateRegrouped:  "regrouped",
	StateExtracted:  "extracted",
	StateResolved:   "resolved",
	StateCommitted:  "committed",
	StateRejected:   "rejected",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRejected
}

// CanTransition reports whether a run in state s may move to next. Success
// states advance one step at a time; any non-terminal state may be rejected.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateRejected {
		return true
	}
	return next == s+1
}
