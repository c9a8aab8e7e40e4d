package types

import (
	"errors"
	"time"

	"golang.org/x/exp/rand"
)

// ErrNoLegalActions is returned when a policy is asked to move from a state
// that offers no legal action (after filtering the no-op)
var ErrNoLegalActions = errors.New("no legal actions")

// Policy is the callback interface the game host drives.
// SelectAction is called once per tick, EpisodeEnd once when the game is won or lost.
type Policy interface {
	SelectAction(State) (Action, error)
	EpisodeEnd(State) error
	// Abort is called instead of EpisodeEnd when the episode fails midway
	Abort()
	Reset()
	// Record dumps the policy for inspection
	Record(string) error
}

// ResolveSeed returns the seed, or a seed taken from the clock when it is 0
func ResolveSeed(seed uint64) uint64 {
	if seed == 0 {
		return uint64(time.Now().UnixNano())
	}
	return seed
}

type RandomPolicy struct {
	rand *rand.Rand
	noop string
}

var _ Policy = &RandomPolicy{}

// NewRandomPolicy picks uniformly among the legal actions, never the noop.
// A zero seed seeds from the clock.
func NewRandomPolicy(seed uint64, noop string) *RandomPolicy {
	return &RandomPolicy{
		rand: rand.New(rand.NewSource(ResolveSeed(seed))),
		noop: noop,
	}
}

func (r *RandomPolicy) Reset() {

}

func (r *RandomPolicy) Record(_ string) error {
	return nil
}

func (r *RandomPolicy) SelectAction(state State) (Action, error) {
	actions := FilterActions(state.Actions(), r.noop)
	if len(actions) == 0 {
		return nil, ErrNoLegalActions
	}
	i := r.rand.Intn(len(actions))
	return actions[i], nil
}

func (r *RandomPolicy) EpisodeEnd(_ State) error {
	return nil
}

func (r *RandomPolicy) Abort() {}
