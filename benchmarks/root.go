package benchmarks

import "github.com/spf13/cobra"

var (
	episodes   int
	horizon    int
	saveFile   string
	runs       int
	cpuprofile string
	memprofile string
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   "pacman-rl",
		Short: "Train and evaluate a tabular Q-learning Pacman agent",
	}
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", 20, "Number of games to play (training and testing)")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", 1000, "Maximum number of ticks per game, 0 for no limit")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile to this file in the save folder")
	rootCommand.PersistentFlags().StringVar(&memprofile, "memprofile", "", "Write a heap profile to this file in the save folder")
	// adding the subcommands here
	rootCommand.AddCommand(PacmanCommand())
	rootCommand.AddCommand(LayoutsCommand())
	return rootCommand
}
