package pipeline

import (
	"time"
)

// State is a run's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateBuildingContext
	StateRunningStages
	StateMerging
	StatePublishing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuildingContext:
		return "building_context"
	case StateRunningStages:
		return "running_stages"
	case StateMerging:
		return "merging"
	case StatePublishing:
		return "publishing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// EventKind tags an Event.
type EventKind string

const (
	EventState         EventKind = "state"
	EventStageStarted  EventKind = "stage_started"
	EventStageFinished EventKind = "stage_finished"
)

// Event is delivered to each observer synchronously, in run order.
type Event struct {
	Kind     EventKind     `json:"kind"`
	RunID    string        `json:"run_id,omitempty"`
	State    State         `json:"state,omitempty"`
	Stage    string        `json:"stage,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// runState tracks one run's transitions.
type runState struct {
	o     *Orchestrator
	id    string
	state State
}

func (r *runState) enter(s State) {
	r.o.log.Debug().Str("run", r.id).Stringer("from", r.state).Stringer("to", s).Msg("state transition")
	r.state = s
	r.emit(Event{Kind: EventState, State: s})
}

func (r *runState) fail(err error) {
	r.o.log.Error().Err(err).Str("run", r.id).Stringer("state", r.state).Msg("run failed")
	r.state = StateFailed
	r.emit(Event{Kind: EventState, State: StateFailed, Err: err.Error()})
}

func (r *runState) emit(e Event) {
	e.RunID = r.id
	for _, fn := range r.o.observers {
		fn(e)
	}
}
