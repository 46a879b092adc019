package fixer

import (
	"time"

	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

// State is a node of the fix session state machine.
type State string

const (
	StateIdle          State = "idle"
	StateBuilding      State = "building"
	StateDiagnosing    State = "diagnosing"
	StatePatching      State = "patching"
	StateApplying      State = "applying"
	StateSuccess       State = "success"
	StateExhausted     State = "exhausted"
	StateUnrecoverable State = "unrecoverable"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateExhausted || s == StateUnrecoverable
}

var transitions = map[State][]State{
	StateIdle:       {StateBuilding, StateExhausted, StateUnrecoverable},
	StateBuilding:   {StateSuccess, StateDiagnosing, StateExhausted, StateUnrecoverable},
	StateDiagnosing: {StatePatching, StateUnrecoverable},
	StatePatching:   {StateApplying, StateUnrecoverable},
	StateApplying:   {StateBuilding, StateUnrecoverable},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition is one recorded edge taken by a session.
type Transition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Iteration int       `json:"iteration"`
	At        time.Time `json:"at"`
	Detail    string    `json:"detail,omitempty"`
}

// SessionState is the visible state of one fix session. Iteration counts
// completed build calls.
type SessionState struct {
	Iteration     int                      `json:"iteration"`
	MaxIterations int                      `json:"maxIterations"`
	LastResult    *types.CompilationResult `json:"lastCompilationResult,omitempty"`
	FirstErrors   string                   `json:"firstErrorSnapshot,omitempty"`
	State         State                    `json:"state"`
}
