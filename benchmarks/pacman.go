package benchmarks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"

	"github.com/spf13/cobra"
	"github.com/zeu5/pacman-rl/pacman"
	"github.com/zeu5/pacman-rl/policies"
	"github.com/zeu5/pacman-rl/types"
	"github.com/zeu5/pacman-rl/util"
	"gopkg.in/yaml.v3"
)

// PacmanBenchmark trains the Q-learning agent for NumTraining games, keeps
// playing greedily for the remaining episodes and optionally compares it
// with a random policy on the same layout
func PacmanBenchmark(ctx context.Context, cfg PacmanConfig, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	layout, err := pacman.GetLayout(cfg.Layout)
	if err != nil {
		return fmt.Errorf("loading layout: %w", err)
	}
	ghostKind, err := pacman.ParseGhostKind(cfg.GhostKind)
	if err != nil {
		return err
	}
	newEnv := func(seed uint64) (*pacman.Environment, error) {
		return pacman.NewEnvironment(pacman.Config{
			Layout:    layout,
			NumGhosts: cfg.Ghosts,
			GhostKind: ghostKind,
			Seed:      seed,
		})
	}

	c, err := types.NewComparison(&types.ComparisonConfig{
		Runs:       cfg.Runs,
		Episodes:   cfg.Episodes,
		Horizon:    cfg.Horizon,
		RecordPath: cfg.SavePath,
		Out:        out,
		// record flags
		RecordTraces: cfg.RecordTraces,
		RecordScores: cfg.RecordScores,
		RecordPolicy: cfg.RecordPolicy,
	})
	if err != nil {
		return err
	}

	// resolved configuration next to the results
	bs, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := util.WriteToFile(path.Join(cfg.SavePath, "pacman_config.yaml"), string(bs)); err != nil {
		return fmt.Errorf("recording config: %w", err)
	}

	// games played after training
	testGames := cfg.Episodes - cfg.NumTraining
	c.AddAnalysis("Scores", types.NewScoreAnalyzer(), types.ScoreSummary(cfg.SavePath, testGames))
	c.AddAnalysis("ScorePlot", types.NewScoreAnalyzer(), types.ScorePlotter(path.Join(cfg.SavePath, "plots"), cfg.PlotWindow))
	c.AddAnalysis("Wins", types.NewWinAnalyzer(), types.WinRateSummary(testGames))
	c.AddAnalysis("Coverage", types.NewCoverageAnalyzer(types.DefaultStateAbstractor()), types.CoveragePlotter(path.Join(cfg.SavePath, "plots")))

	agentConfig := cfg.AgentConfig()
	agentConfig.Noop = pacman.NoopAction
	agentConfig.Out = out
	learner, err := policies.NewQLearner(agentConfig)
	if err != nil {
		return err
	}
	learnerEnv, err := newEnv(cfg.Seed)
	if err != nil {
		return err
	}
	c.AddExperiment(types.NewExperiment("QLearn", learner, learnerEnv))

	if cfg.Baseline {
		seed := cfg.Seed
		if seed != 0 {
			seed += 1
		}
		randomEnv, err := newEnv(seed)
		if err != nil {
			return err
		}
		c.AddExperiment(types.NewExperiment("Random", types.NewRandomPolicy(seed, pacman.NoopAction), randomEnv))
	}

	return c.Run(ctx)
}

func PacmanCommand() *cobra.Command {
	cfg := DefaultPacmanConfig()
	var configFile string

	cmd := &cobra.Command{
		Use:   "pacman",
		Short: "Train the Q-learning agent and play the remaining games greedily",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Episodes = episodes
			cfg.Horizon = horizon
			cfg.SavePath = saveFile
			cfg.Runs = runs

			resolved := cfg
			if configFile != "" {
				fileCfg, err := LoadPacmanConfig(configFile, cfg)
				if err != nil {
					return err
				}
				// explicitly set flags win over the file
				fileCfg.overrideWith(cmd.Flags(), cfg)
				resolved = fileCfg
			}

			stop, err := startProfiling(resolved.SavePath, cpuprofile, memprofile)
			if err != nil {
				return err
			}
			defer stop()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			return PacmanBenchmark(ctx, resolved, os.Stdout)
		},
	}
	cmd.PersistentFlags().Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "Base learning rate")
	cmd.PersistentFlags().Float64Var(&cfg.Epsilon, "epsilon", cfg.Epsilon, "Exploration rate during training")
	cmd.PersistentFlags().Float64Var(&cfg.Gamma, "gamma", cfg.Gamma, "Discount factor")
	cmd.PersistentFlags().IntVarP(&cfg.NumTraining, "num-training", "x", cfg.NumTraining, "Number of training episodes")
	cmd.PersistentFlags().StringVarP(&cfg.Layout, "layout", "l", cfg.Layout, "Built-in layout name or path to a layout file")
	cmd.PersistentFlags().IntVar(&cfg.Ghosts, "ghosts", cfg.Ghosts, "Number of ghosts, negative for one per ghost start")
	cmd.PersistentFlags().StringVar(&cfg.GhostKind, "ghost-kind", cfg.GhostKind, "Ghost behaviour: random or directional")
	cmd.PersistentFlags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed, 0 seeds from the clock")
	cmd.PersistentFlags().BoolVar(&cfg.Baseline, "baseline", cfg.Baseline, "Also play the games with a random policy")
	cmd.PersistentFlags().IntVar(&cfg.PlotWindow, "plot-window", cfg.PlotWindow, "Moving average window of the score plot")
	cmd.PersistentFlags().BoolVar(&cfg.RecordTraces, "record-traces", cfg.RecordTraces, "Record every game as JSON lines")
	cmd.PersistentFlags().BoolVar(&cfg.RecordScores, "record-scores", cfg.RecordScores, "Record the score of every game")
	cmd.PersistentFlags().BoolVar(&cfg.RecordPolicy, "record-policy", cfg.RecordPolicy, "Dump the learned table at the end of each run")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML file with the experiment configuration")
	return cmd
}

func LayoutsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layouts",
		Short: "Print the built-in layouts",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range pacman.BuiltinLayouts() {
				fmt.Printf("%s:\n%s\n", name, pacman.MustLayout(name))
			}
		},
	}
}
