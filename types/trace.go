package types

import "encoding/json"

// Outcome of an episode
type Outcome string

var (
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeHorizon Outcome = "horizon"
	OutcomeError   Outcome = "error"
)

// Trace of an episode as triplets (state, action, nextState)
type Trace struct {
	states     []State
	actions    []Action
	nextStates []State

	Outcome    Outcome
	FinalScore float64
}

func NewTrace() *Trace {
	return &Trace{
		states:     make([]State, 0),
		actions:    make([]Action, 0),
		nextStates: make([]State, 0),
	}
}

func (t *Trace) Slice(from, to int) *Trace {
	slicedTrace := NewTrace()
	for i := from; i < to; i++ {
		slicedTrace.Append(t.states[i], t.actions[i], t.nextStates[i])
	}
	return slicedTrace
}

func (t *Trace) Append(state State, action Action, nextState State) {
	t.states = append(t.states, state)
	t.actions = append(t.actions, action)
	t.nextStates = append(t.nextStates, nextState)
}

func (t *Trace) Len() int {
	return len(t.states)
}

func (t *Trace) Get(i int) (State, Action, State, bool) {
	if i < 0 || i >= len(t.states) {
		return nil, nil, nil, false
	}
	return t.states[i], t.actions[i], t.nextStates[i], true
}

// Won is true if the episode ended in a win
func (t *Trace) Won() bool {
	return t.Outcome == OutcomeWin
}

type traceStep struct {
	State  string  `json:"state"`
	Action string  `json:"action"`
	Score  float64 `json:"score"`
}

// MarshalJSON records the trace as the sequence of state hashes, actions and scores
func (t *Trace) MarshalJSON() ([]byte, error) {
	steps := make([]traceStep, t.Len())
	for i := 0; i < t.Len(); i++ {
		steps[i] = traceStep{
			State:  t.states[i].Hash(),
			Action: t.actions[i].Hash(),
			Score:  t.nextStates[i].Score(),
		}
	}
	return json.Marshal(map[string]interface{}{
		"outcome": t.Outcome,
		"score":   t.FinalScore,
		"steps":   steps,
	})
}
