package types

import (
	"context"
	"fmt"
)

type AgentConfig struct {
	Episodes    int
	Horizon     int
	Policy      Policy
	Environment Environment
}

// Agent plays the host role: it drives the policy through the
// environment one tick at a time
type Agent struct {
	config *AgentConfig
	// collects the traces of the run
	// Only populated if the Run function is invoked
	traces      []*Trace
	policy      Policy
	environment Environment
}

// Winner is implemented by terminal states that know whether the game was won
type Winner interface {
	Won() bool
}

// Instantiates a new Agent
func NewAgent(config *AgentConfig) *Agent {
	return &Agent{
		config:      config,
		traces:      make([]*Trace, 0, config.Episodes),
		policy:      config.Policy,
		environment: config.Environment,
	}
}

// Run the agent for the specified number of episodes and horizon
func (a *Agent) Run(ctx context.Context) error {
	for i := 0; i < a.config.Episodes; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		trace, err := a.RunEpisode(ctx)
		a.traces = append(a.traces, trace)
		if err != nil {
			return fmt.Errorf("episode %d: %w", i, err)
		}
	}
	return nil
}

// Traces collected by Run
func (a *Agent) Traces() []*Trace {
	return a.traces
}

// RunEpisode plays a single game and returns the resulting trace.
// The policy is asked for one action per tick until the game ends or the
// horizon is reached, then EpisodeEnd is called once with the last state.
func (a *Agent) RunEpisode(ctx context.Context) (*Trace, error) {
	state := a.environment.Reset()
	trace := NewTrace()

	for i := 0; a.config.Horizon <= 0 || i < a.config.Horizon; i++ {
		if state.Terminal() {
			break
		}
		select {
		case <-ctx.Done():
			return a.abort(trace, ctx.Err())
		default:
		}
		action, err := a.policy.SelectAction(state)
		if err != nil {
			return a.abort(trace, fmt.Errorf("selecting action at tick %d: %w", i, err))
		}
		nextState, err := a.environment.Step(action)
		if err != nil {
			return a.abort(trace, fmt.Errorf("stepping at tick %d: %w", i, err))
		}
		trace.Append(state, action, nextState)
		state = nextState
	}

	trace.FinalScore = state.Score()
	trace.Outcome = OutcomeHorizon
	if state.Terminal() {
		trace.Outcome = OutcomeLoss
		if w, ok := state.(Winner); ok && w.Won() {
			trace.Outcome = OutcomeWin
		}
	}

	// the game ended before the first tick, nothing to credit
	if trace.Len() == 0 {
		return trace, nil
	}
	if err := a.policy.EpisodeEnd(state); err != nil {
		trace.Outcome = OutcomeError
		return trace, fmt.Errorf("ending episode: %w", err)
	}
	return trace, nil
}

// abort marks the trace as failed and lets the policy drop what it was
// waiting to credit
func (a *Agent) abort(trace *Trace, err error) (*Trace, error) {
	trace.Outcome = OutcomeError
	a.policy.Abort()
	return trace, err
}
