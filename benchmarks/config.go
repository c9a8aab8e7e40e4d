package benchmarks

import (
	"fmt"
	"os"

	"github.com/zeu5/pacman-rl/policies"
	"gopkg.in/yaml.v3"
)

// PacmanConfig holds everything needed to train and evaluate the agent.
// It is filled from the command line and optionally from a YAML file.
type PacmanConfig struct {
	Episodes int    `yaml:"episodes"`
	Horizon  int    `yaml:"horizon"`
	Runs     int    `yaml:"runs"`
	SavePath string `yaml:"save"`

	Alpha       float64 `yaml:"alpha"`
	Epsilon     float64 `yaml:"epsilon"`
	Gamma       float64 `yaml:"gamma"`
	NumTraining int     `yaml:"num_training"`

	Layout    string `yaml:"layout"`
	Ghosts    int    `yaml:"ghosts"`
	GhostKind string `yaml:"ghost_kind"`
	Seed      uint64 `yaml:"seed"`

	Baseline     bool `yaml:"baseline"`
	PlotWindow   int  `yaml:"plot_window"`
	RecordTraces bool `yaml:"record_traces"`
	RecordScores bool `yaml:"record_scores"`
	RecordPolicy bool `yaml:"record_policy"`
}

func DefaultPacmanConfig() PacmanConfig {
	agent := policies.DefaultQLearnerConfig()
	return PacmanConfig{
		Episodes:     20,
		Horizon:      1000,
		Runs:         1,
		SavePath:     "results",
		Alpha:        agent.Alpha,
		Epsilon:      agent.Epsilon,
		Gamma:        agent.Gamma,
		NumTraining:  agent.NumTraining,
		Layout:       "small",
		Ghosts:       -1,
		GhostKind:    "random",
		Baseline:     true,
		PlotWindow:   10,
		RecordScores: true,
	}
}

// LoadPacmanConfig reads the YAML file on top of base, keys missing from the file keep the base value
func LoadPacmanConfig(path string, base PacmanConfig) (PacmanConfig, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	cfg := base
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return base, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// AgentConfig is the learner configuration described by the config
func (c PacmanConfig) AgentConfig() policies.QLearnerConfig {
	return policies.QLearnerConfig{
		Alpha:       c.Alpha,
		Epsilon:     c.Epsilon,
		Gamma:       c.Gamma,
		NumTraining: c.NumTraining,
		Seed:        c.Seed,
	}
}

// changedFlags lists the flags the user set explicitly
type changedFlags interface {
	Changed(string) bool
}

// overrideWith copies into c the values of the flags that were set on the command line
func (c *PacmanConfig) overrideWith(flags changedFlags, fromFlags PacmanConfig) {
	for _, name := range []string{
		"episodes", "horizon", "runs", "save",
		"alpha", "epsilon", "gamma", "num-training",
		"layout", "ghosts", "ghost-kind", "seed",
		"baseline", "plot-window", "record-traces", "record-scores", "record-policy",
	} {
		if !flags.Changed(name) {
			continue
		}
		switch name {
		case "episodes":
			c.Episodes = fromFlags.Episodes
		case "horizon":
			c.Horizon = fromFlags.Horizon
		case "runs":
			c.Runs = fromFlags.Runs
		case "save":
			c.SavePath = fromFlags.SavePath
		case "alpha":
			c.Alpha = fromFlags.Alpha
		case "epsilon":
			c.Epsilon = fromFlags.Epsilon
		case "gamma":
			c.Gamma = fromFlags.Gamma
		case "num-training":
			c.NumTraining = fromFlags.NumTraining
		case "layout":
			c.Layout = fromFlags.Layout
		case "ghosts":
			c.Ghosts = fromFlags.Ghosts
		case "ghost-kind":
			c.GhostKind = fromFlags.GhostKind
		case "seed":
			c.Seed = fromFlags.Seed
		case "baseline":
			c.Baseline = fromFlags.Baseline
		case "plot-window":
			c.PlotWindow = fromFlags.PlotWindow
		case "record-traces":
			c.RecordTraces = fromFlags.RecordTraces
		case "record-scores":
			c.RecordScores = fromFlags.RecordScores
		case "record-policy":
			c.RecordPolicy = fromFlags.RecordPolicy
		}
	}
}

func (c PacmanConfig) Validate() error {
	if c.Episodes < 1 {
		return fmt.Errorf("episodes must be positive, got %d", c.Episodes)
	}
	if c.Runs < 1 {
		return fmt.Errorf("runs must be positive, got %d", c.Runs)
	}
	return c.AgentConfig().Validate()
}
