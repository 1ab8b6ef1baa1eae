package pipeline

import "fmt"

// State is a step of a run.
type State int

const (
	Idle State = iota
	CollectingText
	BuildingDictionary
	Analysing
	Ranking
	Persisting
	Done
	Failed
)

var stateNames = [...]string{
	Idle:               "idle",
	CollectingText:     "collecting text",
	BuildingDictionary: "building dictionary",
	Analysing:          "analysing",
	Ranking:            "ranking",
	Persisting:         "persisting",
	Done:               "done",
	Failed:             "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// StageError reports which stage a run failed in. Err carries the apperr kind.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
