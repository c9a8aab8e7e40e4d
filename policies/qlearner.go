package policies

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeu5/pacman-rl/types"
	"golang.org/x/exp/rand"
)

var (
	// ErrNoLegalActions is returned when the state offers nothing to choose from
	ErrNoLegalActions = types.ErrNoLegalActions
	// ErrNoPendingTransition is returned by EpisodeEnd when no action was selected during the episode
	ErrNoPendingTransition = errors.New("episode ended without a pending transition")
	// ErrInvalidConfig wraps every configuration validation failure
	ErrInvalidConfig = errors.New("invalid q-learner config")
)

// Source of randomness used for exploration
type Source interface {
	Float64() float64
	Intn(int) int
}

type QLearnerConfig struct {
	Alpha       float64 // base learning rate
	Epsilon     float64 // exploration rate
	Gamma       float64 // discount factor
	NumTraining int     // number of training episodes

	// hash of the no-op action, never selected
	Noop string
	// seed of the default random source, 0 seeds from the clock
	Seed uint64
	// overrides the default random source
	Rand Source
	// where the end of training notice is printed, stdout if nil
	Out io.Writer
}

func DefaultQLearnerConfig() QLearnerConfig {
	return QLearnerConfig{
		Alpha:       0.2,
		Epsilon:     0.05,
		Gamma:       0.8,
		NumTraining: 10,
		Noop:        "Stop",
	}
}

func (c QLearnerConfig) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v not in [0, 1]", ErrInvalidConfig, c.Alpha)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("%w: epsilon %v not in [0, 1]", ErrInvalidConfig, c.Epsilon)
	}
	if c.Gamma < 0 {
		return fmt.Errorf("%w: negative gamma %v", ErrInvalidConfig, c.Gamma)
	}
	if c.NumTraining < 0 {
		return fmt.Errorf("%w: negative number of training episodes %d", ErrInvalidConfig, c.NumTraining)
	}
	return nil
}

type transition struct {
	state  types.State
	action types.Action
}

// QLearner is a tabular Q-learning policy rewarded with the score delta
// between consecutive ticks. Exploration and learning are switched off
// for good once NumTraining episodes have been played.
type QLearner struct {
	config  QLearnerConfig
	qTable  *QTable
	alpha   float64
	epsilon float64
	gamma   float64

	numTraining int
	episodes    int
	schedule    []float64

	// transition waiting for its reward, credited on the next tick
	pending   *transition
	lastScore float64

	rand Source
	out  io.Writer
}

var _ types.Policy = &QLearner{}

func NewQLearner(config QLearnerConfig) (*QLearner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	r := config.Rand
	if r == nil {
		r = rand.New(rand.NewSource(types.ResolveSeed(config.Seed)))
	}
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	q := &QLearner{
		config:      config,
		gamma:       config.Gamma,
		numTraining: config.NumTraining,
		rand:        r,
		out:         out,
	}
	q.Reset()
	return q, nil
}

// Abort drops the pending transition of an episode that failed midway.
// Nothing is credited and the episode does not count towards training.
func (q *QLearner) Abort() {
	q.pending = nil
	q.lastScore = 0
}

// Reset forgets everything learned and restarts the training schedule
func (q *QLearner) Reset() {
	q.qTable = NewQTable()
	q.alpha = q.config.Alpha
	q.epsilon = q.config.Epsilon
	q.episodes = 0
	q.pending = nil
	q.lastScore = 0
	if q.numTraining == 0 {
		q.alpha = 0
		q.epsilon = 0
	}
	q.schedule = LearningRateSchedule(q.alpha, q.numTraining)
}

func (q *QLearner) Record(path string) error {
	return q.qTable.Record(path)
}

func (q *QLearner) Table() *QTable {
	return q.qTable
}

// Value of the action in the state, 0 if never updated
func (q *QLearner) Value(state types.State, action types.Action) float64 {
	return q.qTable.Get(state.Hash(), action.Hash(), 0)
}

func (q *QLearner) Alpha() float64 {
	return q.alpha
}

func (q *QLearner) Epsilon() float64 {
	return q.epsilon
}

func (q *QLearner) Gamma() float64 {
	return q.gamma
}

func (q *QLearner) NumTraining() int {
	return q.numTraining
}

func (q *QLearner) EpisodesCompleted() int {
	return q.episodes
}

// Training is true until NumTraining episodes are completed
func (q *QLearner) Training() bool {
	return q.episodes < q.numTraining
}

// Schedule is the current learning rate schedule
func (q *QLearner) Schedule() []float64 {
	out := make([]float64, len(q.schedule))
	copy(out, q.schedule)
	return out
}

// EffectiveAlpha is the learning rate applied by the next update.
// It reads the schedule at episodes-1, so the first episode uses the
// last entry of the schedule.
func (q *QLearner) EffectiveAlpha() float64 {
	if q.episodes >= q.numTraining {
		return 0
	}
	return scheduleAt(q.schedule, q.episodes-1)
}

// BellmanUpdate returns old + alpha * (reward + gamma * (maxNext - old))
func BellmanUpdate(old, reward, gamma, maxNext, alpha float64) float64 {
	return old + alpha*(reward+gamma*(maxNext-old))
}

func (q *QLearner) legalActions(state types.State) []types.Action {
	return types.FilterActions(state.Actions(), q.config.Noop)
}

func hashes(actions []types.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Hash()
	}
	return out
}

// maxValue over the legal actions of the state, 0 if there are none
func (q *QLearner) maxValue(state types.State) float64 {
	_, val := q.qTable.MaxAmong(state.Hash(), hashes(q.legalActions(state)), 0)
	return val
}

// credit applies the Bellman update to the pending pair. The future value
// is read at the pending state itself, not at its successor.
func (q *QLearner) credit(t *transition, reward float64) {
	alpha := q.EffectiveAlpha()
	if alpha == 0 {
		return
	}
	stateHash := t.state.Hash()
	actionHash := t.action.Hash()
	old := q.qTable.Get(stateHash, actionHash, 0)
	q.qTable.Set(stateHash, actionHash, BellmanUpdate(old, reward, q.gamma, q.maxValue(t.state), alpha))
}

// SelectAction credits the pending transition with the score gained since
// the previous tick and picks the next action epsilon-greedily
func (q *QLearner) SelectAction(state types.State) (types.Action, error) {
	q.schedule = LearningRateSchedule(q.alpha, q.numTraining)

	actions := q.legalActions(state)
	if len(actions) == 0 {
		return nil, fmt.Errorf("selecting action in %s: %w", state.Hash(), ErrNoLegalActions)
	}

	score := state.Score()
	if q.pending != nil {
		q.credit(q.pending, score-q.lastScore)
	}

	var chosen types.Action
	if q.epsilon > 0 && q.rand.Float64() < q.epsilon {
		chosen = actions[q.rand.Intn(len(actions))]
	} else {
		best, _ := q.qTable.MaxAmong(state.Hash(), hashes(actions), 0)
		for _, a := range actions {
			if a.Hash() == best {
				chosen = a
				break
			}
		}
	}

	q.pending = &transition{state: state, action: chosen}
	q.lastScore = score
	return chosen, nil
}

// EpisodeEnd credits the last transition with the final score delta and
// closes the episode
func (q *QLearner) EpisodeEnd(state types.State) error {
	if q.pending == nil {
		return ErrNoPendingTransition
	}
	q.credit(q.pending, state.Score()-q.lastScore)

	q.pending = nil
	q.lastScore = 0

	q.episodes += 1
	if q.episodes == q.numTraining {
		msg := "Training Done (turning off epsilon and alpha)"
		fmt.Fprintf(q.out, "%s\n%s\n", msg, strings.Repeat("-", len(msg)))
		q.alpha = 0
		q.epsilon = 0
	}
	return nil
}
