package policies

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/pacman-rl/types"
	"golang.org/x/exp/rand"
)

type testAction string

func (a testAction) Hash() string { return string(a) }

const (
	north testAction = "North"
	south testAction = "South"
	stop  testAction = "Stop"
)

type testState struct {
	hash     string
	actions  []types.Action
	score    float64
	terminal bool
}

func (s *testState) Hash() string            { return s.hash }
func (s *testState) Actions() []types.Action { return s.actions }
func (s *testState) Score() float64          { return s.score }
func (s *testState) Terminal() bool          { return s.terminal }

func newTestState(hash string, score float64, actions ...types.Action) *testState {
	return &testState{hash: hash, actions: actions, score: score}
}

// scriptedSource replays fixed draws
type scriptedSource struct {
	floats []float64
	ints   []int
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 1
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scriptedSource) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	i := s.ints[0] % n
	s.ints = s.ints[1:]
	return i
}

func newTestLearner(t *testing.T, cfg QLearnerConfig) (*QLearner, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	cfg.Out = out
	if cfg.Noop == "" {
		cfg.Noop = "Stop"
	}
	q, err := NewQLearner(cfg)
	require.NoError(t, err)
	return q, out
}

func TestBellmanUpdate(t *testing.T) {
	got := BellmanUpdate(0.3, 2.0, 0.8, 0.5, 0.4)
	assert.InDelta(t, 1.164, got, 1e-12)
}

func TestUnseenValuesAreZero(t *testing.T) {
	q, _ := newTestLearner(t, DefaultQLearnerConfig())
	s := newTestState("never-seen", 0, north, south)
	for _, a := range []types.Action{north, south, stop} {
		assert.Equal(t, 0.0, q.Value(s, a))
	}
	assert.Equal(t, 0, q.Table().Len())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultQLearnerConfig()
	assert.Equal(t, 0.2, cfg.Alpha)
	assert.Equal(t, 0.05, cfg.Epsilon)
	assert.Equal(t, 0.8, cfg.Gamma)
	assert.Equal(t, 10, cfg.NumTraining)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	cases := map[string]QLearnerConfig{
		"alpha":       {Alpha: 1.5, Epsilon: 0.1, Gamma: 0.8, NumTraining: 1},
		"epsilon":     {Alpha: 0.2, Epsilon: -0.1, Gamma: 0.8, NumTraining: 1},
		"gamma":       {Alpha: 0.2, Epsilon: 0.1, Gamma: -1, NumTraining: 1},
		"numTraining": {Alpha: 0.2, Epsilon: 0.1, Gamma: 0.8, NumTraining: -3},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewQLearner(cfg)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestGreedyTieBreakPicksFirstLegal(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0, Gamma: 0.8, NumTraining: 5})
	s := newTestState("s", 0, stop, south, north)
	a, err := q.SelectAction(s)
	require.NoError(t, err)
	assert.Equal(t, south, a)
}

func TestGreedyPicksHighestValue(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0, Gamma: 0.8, NumTraining: 5})
	q.Table().Set("s", "North", 0.7)
	q.Table().Set("s", "South", 0.2)
	a, err := q.SelectAction(newTestState("s", 0, south, north, stop))
	require.NoError(t, err)
	assert.Equal(t, north, a)
}

func TestStopIsNeverSelected(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 1, Gamma: 0.8, NumTraining: 5, Rand: rand.New(rand.NewSource(7))})
	q.Table().Set("s", "Stop", 100)
	for i := 0; i < 200; i++ {
		a, err := q.SelectAction(newTestState("s", 0, stop, north, south))
		require.NoError(t, err)
		assert.NotEqual(t, stop, a)
	}
}

func TestNoLegalActions(t *testing.T) {
	q, _ := newTestLearner(t, DefaultQLearnerConfig())
	_, err := q.SelectAction(newTestState("s", 0, stop))
	assert.True(t, errors.Is(err, ErrNoLegalActions))

	_, err = q.SelectAction(newTestState("s", 0))
	assert.True(t, errors.Is(err, ErrNoLegalActions))
}

func TestEpisodeEndWithoutPendingTransition(t *testing.T) {
	q, _ := newTestLearner(t, DefaultQLearnerConfig())
	err := q.EpisodeEnd(newTestState("end", 10))
	assert.True(t, errors.Is(err, ErrNoPendingTransition))
	assert.Equal(t, 0, q.EpisodesCompleted())
}

func TestExplorationUsesRandomSource(t *testing.T) {
	src := &scriptedSource{floats: []float64{0.01}, ints: []int{1}}
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0.05, Gamma: 0.8, NumTraining: 5, Rand: src})
	q.Table().Set("s", "North", 5)
	a, err := q.SelectAction(newTestState("s", 0, north, south))
	require.NoError(t, err)
	// 0.01 < epsilon, so the draw explores and Intn picks index 1
	assert.Equal(t, south, a)
}

func TestEpsilonGreedyDistribution(t *testing.T) {
	// alpha 0 keeps the table fixed while epsilon stays on
	q, _ := newTestLearner(t, QLearnerConfig{
		Alpha:       0,
		Epsilon:     0.05,
		Gamma:       0.8,
		NumTraining: 1,
		Rand:        rand.New(rand.NewSource(42)),
	})
	q.Table().Set("s", "South", 0)
	q.Table().Set("s", "North", 1)

	trials := 20000
	best := 0
	for i := 0; i < trials; i++ {
		a, err := q.SelectAction(newTestState("s", 0, south, north))
		require.NoError(t, err)
		if a == north {
			best++
		}
	}
	ratio := float64(best) / float64(trials)
	// expected 0.95 + 0.05/2
	assert.Greater(t, ratio, 0.95)
	assert.InDelta(t, 0.975, ratio, 0.01)
	assert.Equal(t, 1.0, q.Value(newTestState("s", 0), north))
}

func TestRewardIsScoreDelta(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.5, Epsilon: 0, Gamma: 0.8, NumTraining: 3})
	s1 := newTestState("s1", 100, north, south)
	s2 := newTestState("s2", 95, north, south)

	_, err := q.SelectAction(s1)
	require.NoError(t, err)
	_, err = q.SelectAction(s2)
	require.NoError(t, err)

	// first episode reads the last schedule entry (1.0)
	assert.InDelta(t, 1.0, q.EffectiveAlpha(), 1e-12)
	assert.InDelta(t, BellmanUpdate(0, -5, 0.8, 0, 1.0), q.Value(s1, north), 1e-12)
}

func TestEndToEndSingleTrainingEpisode(t *testing.T) {
	q, out := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0, Gamma: 0.8, NumTraining: 1})

	s1 := newTestState("s1", 0, north, south)
	a1, err := q.SelectAction(s1)
	require.NoError(t, err)
	assert.Equal(t, north, a1)

	s2 := newTestState("s2", 10, north, south)
	_, err = q.SelectAction(s2)
	require.NoError(t, err)

	schedule := q.Schedule()
	require.Len(t, schedule, 1)
	assert.Equal(t, 0.2, schedule[0])
	expected := BellmanUpdate(0, 10, 0.8, 0, schedule[0])
	assert.InDelta(t, expected, q.Value(s1, north), 1e-12)
	assert.InDelta(t, 2.0, q.Value(s1, north), 1e-12)
	assert.Equal(t, 0.0, q.Value(s1, south))

	final := &testState{hash: "end", score: 10, terminal: true}
	require.NoError(t, q.EpisodeEnd(final))

	assert.Equal(t, 1, q.EpisodesCompleted())
	assert.False(t, q.Training())
	assert.Equal(t, 0.0, q.Alpha())
	assert.Equal(t, 0.0, q.Epsilon())
	assert.Equal(t, 0.0, q.EffectiveAlpha())
	assert.Equal(t, 1, strings.Count(out.String(), "Training Done"))
}

func TestFrozenAfterTraining(t *testing.T) {
	src := &scriptedSource{}
	q, out := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0.5, Gamma: 0.8, NumTraining: 2, Rand: src})

	for episode := 0; episode < 2; episode++ {
		_, err := q.SelectAction(newTestState("a", 0, north, south))
		require.NoError(t, err)
		_, err = q.SelectAction(newTestState("b", 10, north, south))
		require.NoError(t, err)
		require.NoError(t, q.EpisodeEnd(&testState{hash: "end", score: 20, terminal: true}))
	}
	require.False(t, q.Training())

	snapshot := map[Key]float64{}
	for k, v := range q.Table().table {
		snapshot[k] = v
	}

	// a source that would always explore if epsilon were still on
	src.floats = []float64{0, 0, 0, 0, 0, 0}
	src.ints = []int{1, 1, 1, 1, 1, 1}
	for episode := 0; episode < 3; episode++ {
		a, err := q.SelectAction(newTestState("a", 0, north, south))
		require.NoError(t, err)
		best, _ := q.Table().MaxAmong("a", []string{"North", "South"}, 0)
		assert.Equal(t, best, a.Hash())
		_, err = q.SelectAction(newTestState("b", 50, north, south))
		require.NoError(t, err)
		require.NoError(t, q.EpisodeEnd(&testState{hash: "end", score: -400, terminal: true}))
	}

	assert.Equal(t, snapshot, q.Table().table)
	assert.Equal(t, 5, q.EpisodesCompleted())
	assert.Equal(t, 1, strings.Count(out.String(), "Training Done"))
}

func TestZeroTrainingEpisodesIsGreedyFromStart(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0.3, Gamma: 0.8, NumTraining: 0})
	assert.Equal(t, 0.0, q.Epsilon())
	assert.Equal(t, 0.0, q.EffectiveAlpha())
	assert.Empty(t, q.Schedule())
}

func TestEffectiveAlphaFollowsScheduleOffByOne(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0, Gamma: 0.8, NumTraining: 5})
	schedule := q.Schedule()

	// episode 0 wraps around to the last entry
	assert.InDelta(t, schedule[4], q.EffectiveAlpha(), 1e-12)
	for episode := 1; episode < 5; episode++ {
		_, err := q.SelectAction(newTestState("s", 0, north))
		require.NoError(t, err)
		require.NoError(t, q.EpisodeEnd(&testState{hash: "end", terminal: true}))
		assert.InDelta(t, schedule[episode-1], q.EffectiveAlpha(), 1e-12)
	}
}

func TestFutureValueIsReadAtUpdatedState(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0, Gamma: 0.8, NumTraining: 1})
	q.Table().Set("s1", "North", 1)
	q.Table().Set("s2", "North", 5)

	s1 := newTestState("s1", 0, north, south)
	a, err := q.SelectAction(s1)
	require.NoError(t, err)
	require.Equal(t, north, a)
	_, err = q.SelectAction(newTestState("s2", 0, north, south))
	require.NoError(t, err)

	// max over s1 is 1, the 5 at s2 plays no part
	assert.InDelta(t, BellmanUpdate(1, 0, 0.8, 1, 0.2), q.Value(s1, north), 1e-12)
	assert.InDelta(t, 1.0, q.Value(s1, north), 1e-12)
}

func TestFinalUpdateIgnoresFinalStateValues(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0, Gamma: 0.8, NumTraining: 1})
	q.Table().Set("s", "North", 2)
	q.Table().Set("f", "North", 100)

	s := newTestState("s", 0, north, south)
	_, err := q.SelectAction(s)
	require.NoError(t, err)
	require.NoError(t, q.EpisodeEnd(newTestState("f", 10, north)))

	assert.InDelta(t, 4.0, q.Value(s, north), 1e-12)
}

func TestAbortDropsPendingTransition(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0, Gamma: 0.8, NumTraining: 3})
	_, err := q.SelectAction(newTestState("first", 50, north))
	require.NoError(t, err)

	q.Abort()
	assert.True(t, errors.Is(q.EpisodeEnd(newTestState("end", 0)), ErrNoPendingTransition))
	assert.Equal(t, 0, q.EpisodesCompleted())
	assert.Zero(t, q.Table().Len())
}

// episodeScript replays fixed states, one slice per episode
type episodeScript struct {
	episodes [][]*testState
	current  []*testState
	tick     int
}

func (e *episodeScript) Reset() types.State {
	e.current, e.episodes = e.episodes[0], e.episodes[1:]
	e.tick = 0
	return e.current[0]
}

func (e *episodeScript) Step(types.Action) (types.State, error) {
	e.tick++
	return e.current[e.tick], nil
}

func TestFailedEpisodeDoesNotLeakIntoNext(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0, Gamma: 0.8, NumTraining: 3})
	env := &episodeScript{episodes: [][]*testState{
		// the second state only offers Stop, so the episode fails
		{newTestState("first", 50, north), newTestState("stuck", 50, stop)},
		{newTestState("first", 0, north), {hash: "end", terminal: true}},
	}}
	agent := types.NewAgent(&types.AgentConfig{Episodes: 2, Horizon: 10, Policy: q, Environment: env})

	_, err := agent.RunEpisode(context.Background())
	require.True(t, errors.Is(err, ErrNoLegalActions))

	trace, err := agent.RunEpisode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, trace.Len())
	assert.Equal(t, 0.0, q.Value(newTestState("first", 0), north))
	assert.Equal(t, 1, q.EpisodesCompleted())
}

func TestTerminalSuccessorHasNoFutureValue(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.5, Epsilon: 0, Gamma: 0.8, NumTraining: 2})
	s := newTestState("s", 0, north)
	_, err := q.SelectAction(s)
	require.NoError(t, err)
	require.NoError(t, q.EpisodeEnd(&testState{hash: "won", score: 500, terminal: true}))
	// first episode reads schedule[-1] = 1.0
	assert.InDelta(t, BellmanUpdate(0, 500, 0.8, 0, 1.0), q.Value(s, north), 1e-12)
}

func TestResetForgetsTable(t *testing.T) {
	q, _ := newTestLearner(t, QLearnerConfig{Alpha: 0.2, Epsilon: 0.1, Gamma: 0.8, NumTraining: 1})
	_, err := q.SelectAction(newTestState("s", 0, north))
	require.NoError(t, err)
	require.NoError(t, q.EpisodeEnd(&testState{hash: "end", score: 10, terminal: true}))
	require.NotZero(t, q.Table().Len())

	q.Reset()
	assert.Zero(t, q.Table().Len())
	assert.Equal(t, 0, q.EpisodesCompleted())
	assert.Equal(t, 0.2, q.Alpha())
	assert.Equal(t, 0.1, q.Epsilon())
	assert.True(t, errors.Is(q.EpisodeEnd(newTestState("x", 0)), ErrNoPendingTransition))
}
