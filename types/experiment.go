package types

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/gosuri/uilive"
	"github.com/zeu5/pacman-rl/util"
)

type experimentRunConfig struct {
	// execution configuration
	CurrentRun int
	Episodes   int
	Horizon    int
	Analyzers  []Analyzer
	Context    context.Context

	// thresholds to abort the experiment
	ConsecutiveErrorsAbort int

	// record flags
	RecordTraces bool
	RecordScores bool
	RecordPolicy bool

	ReportSavePath string
	Out            io.Writer

	//misc
	LongestExpNameLen int
}

// Experiment encapsulates a policy and the game it plays
type Experiment struct {
	Name        string
	policy      Policy
	environment Environment
}

// NewExperiment creates a new experiment instance
func NewExperiment(name string, policy Policy, environment Environment) *Experiment {
	return &Experiment{
		Name:        name,
		policy:      policy,
		environment: environment,
	}
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, trace *Trace) error {
	tracesFile := path.Join(rConfig.ReportSavePath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	bs, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	return util.AppendToFile(tracesFile, string(bs))
}

type scoreRecord struct {
	Episode int     `json:"episode"`
	Score   float64 `json:"score"`
	Outcome Outcome `json:"outcome"`
	Ticks   int     `json:"ticks"`
}

func (e *Experiment) recordScore(rConfig *experimentRunConfig, episode int, trace *Trace) error {
	scoresFile := path.Join(rConfig.ReportSavePath, "scores", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	bs, err := json.Marshal(scoreRecord{
		Episode: episode,
		Score:   trace.FinalScore,
		Outcome: trace.Outcome,
		Ticks:   trace.Len(),
	})
	if err != nil {
		return err
	}
	return util.AppendToFile(scoresFile, string(bs))
}

// Run the experiment for the specified number of episodes
// Each trace is handed to the analyzers
func (e *Experiment) Run(rConfig *experimentRunConfig) error {
	select {
	case <-rConfig.Context.Done():
		return rConfig.Context.Err()
	default:
	}

	agent := NewAgent(&AgentConfig{
		Episodes:    rConfig.Episodes,
		Horizon:     rConfig.Horizon,
		Policy:      e.policy,
		Environment: e.environment,
	})

	out := rConfig.Out
	if out == nil {
		out = os.Stdout
	}
	writer := uilive.New()
	writer.Out = out
	writer.Start()
	defer writer.Stop()

	totalWins := 0
	totalErrors := 0
	consecutiveErrors := 0
	totalScore := 0.0
	EPPadding := len(strconv.Itoa(rConfig.Episodes))
	NamePadding := rConfig.LongestExpNameLen

	for episode := 0; episode < rConfig.Episodes; episode++ {
		select {
		case <-rConfig.Context.Done():
			return rConfig.Context.Err()
		default:
		}

		trace, err := agent.RunEpisode(rConfig.Context)
		if err != nil {
			totalErrors += 1
			consecutiveErrors += 1
			fmt.Fprintf(out, "\nExp %s, episode %d: %s\n", e.Name, episode, err)
		} else {
			consecutiveErrors = 0
		}
		if trace.Won() {
			totalWins += 1
		}
		totalScore += trace.FinalScore

		if rConfig.RecordTraces {
			if err := e.recordTrace(rConfig, trace); err != nil {
				return fmt.Errorf("recording trace: %w", err)
			}
		}
		if rConfig.RecordScores {
			if err := e.recordScore(rConfig, episode, trace); err != nil {
				return fmt.Errorf("recording score: %w", err)
			}
		}

		// analyze the trace, even if the episode ended with an error
		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, episode, e.Name, trace)
		}

		if rConfig.ConsecutiveErrorsAbort > 0 && consecutiveErrors >= rConfig.ConsecutiveErrorsAbort {
			fmt.Fprintf(out, "\n Aborting experiment %s : %d consecutive errors\n", e.Name, consecutiveErrors)
			break
		}

		// terminal execution display
		fmt.Fprintf(writer, "Exp:%*s, Eps:%*d/%d, Wins:%*d [%5.1f%%], Err:%*d, AvgScore:%8.2f\n",
			NamePadding, e.Name, EPPadding, episode+1, rConfig.Episodes, EPPadding, totalWins,
			float64(totalWins)/float64(episode+1)*100, EPPadding, totalErrors, totalScore/float64(episode+1))
	}

	if rConfig.RecordPolicy {
		if err := e.policy.Record(path.Join(rConfig.ReportSavePath, "policies", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".json")); err != nil {
			return fmt.Errorf("recording policy: %w", err)
		}
	}
	return nil
}

// Reset the policy so that the next run starts from scratch
func (e *Experiment) Reset() {
	e.policy.Reset()
}

// Generic Dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses the information in the traces to a DataSet
type Analyzer interface {
	// Run, episode, experiment, trace
	Analyze(int, int, string, *Trace)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// Comparator differentiates between different datasets with associated names
// run, total episodes, experiment names, datasets
type Comparator func(int, int, []string, []DataSet) error

func NoopComparator() Comparator {
	return func(_, _ int, _ []string, _ []DataSet) error { return nil }
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs     int // number of runs
	Episodes int // number of episodes
	Horizon  int // number of ticks, 0 plays until the game ends

	RecordPath string    // path to store the results
	Out        io.Writer // progress output, stdout if nil

	// abort an experiment after this many consecutive failed episodes
	ConsecutiveErrorsAbort int

	// record flags
	RecordTraces bool
	RecordScores bool
	RecordPolicy bool
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig

	out := make(map[string]interface{})
	out["runs"] = cfg.Runs
	out["episodes"] = cfg.Episodes
	out["horizon"] = cfg.Horizon
	out["record_traces"] = cfg.RecordTraces
	out["record_scores"] = cfg.RecordScores
	out["record_policy"] = cfg.RecordPolicy

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	analyzers := make([]string, 0)
	for _, name := range c.analyzerNames {
		analyzers = append(analyzers, name)
	}
	out["analyzers"] = analyzers

	bs, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(cfg.RecordPath, "comparison_config.json"), bs, 0644)
}

// Comparison contains the different experiments to compare
// The traces obtained from the experiments are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	Experiments   []*Experiment
	analyzerNames []string
	analyzers     map[string]Analyzer
	comparators   map[string]Comparator
	cConfig       *ComparisonConfig
}

// NewComparison creates a comparison instance and the folders it records to
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	if err := os.MkdirAll(config.RecordPath, 0777); err != nil {
		return nil, err
	}

	foldersToCreate := make([]string, 0)
	if config.RecordTraces {
		foldersToCreate = append(foldersToCreate, "traces")
	}
	if config.RecordScores {
		foldersToCreate = append(foldersToCreate, "scores")
	}
	if config.RecordPolicy {
		foldersToCreate = append(foldersToCreate, "policies")
	}
	for _, s := range foldersToCreate {
		if err := os.MkdirAll(path.Join(config.RecordPath, s), 0777); err != nil {
			return nil, err
		}
	}

	return &Comparison{
		Experiments:   make([]*Experiment, 0),
		analyzerNames: make([]string, 0),
		analyzers:     make(map[string]Analyzer),
		comparators:   make(map[string]Comparator),
		cConfig:       config,
	}, nil
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	if _, ok := c.analyzers[name]; !ok {
		c.analyzerNames = append(c.analyzerNames, name)
	}
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// Run the comparison
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil {
		return fmt.Errorf("recording config: %w", err)
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		if len(e.Name) > longestNameLen {
			longestNameLen = len(e.Name)
		}
	}

	out := c.cConfig.Out
	if out == nil {
		out = os.Stdout
	}

	for run := 0; run < c.cConfig.Runs; run++ {
		fmt.Fprintf(out, "Run %d\n", run+1)
		datasets := make(map[string][]DataSet)
		for _, name := range c.analyzerNames {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := e.Run(c.prepareRunConfig(ctx, run, longestNameLen)); err != nil {
				return fmt.Errorf("experiment %s: %w", e.Name, err)
			}
			for _, name := range c.analyzerNames {
				a := c.analyzers[name]
				datasets[name][i] = a.DataSet()
				a.Reset()
			}
			names[i] = e.Name
			e.Reset()
		}
		for _, name := range c.analyzerNames {
			if err := c.comparators[name](run, c.cConfig.Episodes, names, datasets[name]); err != nil {
				return fmt.Errorf("comparing %s: %w", name, err)
			}
		}
	}
	return nil
}

// prepare the run configuration for the experiment
func (c *Comparison) prepareRunConfig(ctx context.Context, run, longestExpNameLen int) *experimentRunConfig {
	rCfg := &experimentRunConfig{
		CurrentRun:             run,
		Episodes:               c.cConfig.Episodes,
		Horizon:                c.cConfig.Horizon,
		Analyzers:              make([]Analyzer, 0),
		ConsecutiveErrorsAbort: c.cConfig.ConsecutiveErrorsAbort,
		RecordTraces:           c.cConfig.RecordTraces,
		RecordScores:           c.cConfig.RecordScores,
		RecordPolicy:           c.cConfig.RecordPolicy,
		ReportSavePath:         c.cConfig.RecordPath,
		Out:                    c.cConfig.Out,
		Context:                ctx,

		LongestExpNameLen: longestExpNameLen,
	}

	if rCfg.ConsecutiveErrorsAbort == 0 {
		rCfg.ConsecutiveErrorsAbort = 10
	}

	for _, name := range c.analyzerNames {
		rCfg.Analyzers = append(rCfg.Analyzers, c.analyzers[name])
	}
	return rCfg
}
