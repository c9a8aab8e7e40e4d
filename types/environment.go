package types

// Environment is the game host the policy plays in
type Environment interface {
	// Reset called at the start of each episode
	Reset() State
	// Step applies the action and returns the resulting state
	Step(Action) (State, error)
}

// State of the game that policies observe
type State interface {
	// Indexed by the Hash
	// Should be deterministic, equal worlds hash identically
	Hash() string
	// Actions legal from the state, may include the no-op action
	Actions() []Action
	// Cumulative score of the game so far
	Score() float64
	// Terminal is true once the game is won or lost
	Terminal() bool
}

// An Action that a policy can take
type Action interface {
	// Index of the action
	// Should be deterministic
	Hash() string
}

type StateAbstractor func(State) string

// DefaultStateAbstractor uses the state hash as is
func DefaultStateAbstractor() StateAbstractor {
	return func(s State) string {
		return s.Hash()
	}
}

// FilterActions returns the actions whose hash differs from the noop hash
func FilterActions(actions []Action, noop string) []Action {
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		if a.Hash() == noop {
			continue
		}
		out = append(out, a)
	}
	return out
}
