package types

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ScoreAnalyzer collects the final score of every episode
type ScoreAnalyzer struct {
	scores []float64
}

var _ Analyzer = &ScoreAnalyzer{}

func NewScoreAnalyzer() *ScoreAnalyzer {
	return &ScoreAnalyzer{scores: make([]float64, 0)}
}

func (s *ScoreAnalyzer) Analyze(_, _ int, _ string, trace *Trace) {
	s.scores = append(s.scores, trace.FinalScore)
}

func (s *ScoreAnalyzer) DataSet() DataSet {
	out := make([]float64, len(s.scores))
	copy(out, s.scores)
	return out
}

func (s *ScoreAnalyzer) Reset() {
	s.scores = make([]float64, 0)
}

// WinAnalyzer records whether every episode was won
type WinAnalyzer struct {
	wins []bool
}

var _ Analyzer = &WinAnalyzer{}

func NewWinAnalyzer() *WinAnalyzer {
	return &WinAnalyzer{wins: make([]bool, 0)}
}

func (w *WinAnalyzer) Analyze(_, _ int, _ string, trace *Trace) {
	w.wins = append(w.wins, trace.Won())
}

func (w *WinAnalyzer) DataSet() DataSet {
	out := make([]bool, len(w.wins))
	copy(out, w.wins)
	return out
}

func (w *WinAnalyzer) Reset() {
	w.wins = make([]bool, 0)
}

// CoverageAnalyzer counts the distinct state signatures seen after each episode
type CoverageAnalyzer struct {
	abstractor   StateAbstractor
	uniqueStates map[string]bool
	coverage     []int
}

var _ Analyzer = &CoverageAnalyzer{}

func NewCoverageAnalyzer(abstractor StateAbstractor) *CoverageAnalyzer {
	if abstractor == nil {
		abstractor = DefaultStateAbstractor()
	}
	return &CoverageAnalyzer{
		abstractor:   abstractor,
		uniqueStates: make(map[string]bool),
		coverage:     make([]int, 0),
	}
}

func (c *CoverageAnalyzer) Analyze(_, _ int, _ string, trace *Trace) {
	for j := 0; j < trace.Len(); j++ {
		s, _, next, _ := trace.Get(j)
		c.uniqueStates[c.abstractor(s)] = true
		c.uniqueStates[c.abstractor(next)] = true
	}
	c.coverage = append(c.coverage, len(c.uniqueStates))
}

func (c *CoverageAnalyzer) DataSet() DataSet {
	out := make([]int, len(c.coverage))
	copy(out, c.coverage)
	return out
}

func (c *CoverageAnalyzer) Reset() {
	c.uniqueStates = make(map[string]bool)
	c.coverage = make([]int, 0)
}

// MovingAverage of the values over the trailing window
func MovingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	for i := range values {
		from := i - window + 1
		if from < 0 {
			from = 0
		}
		out[i] = stat.Mean(values[from:i+1], nil)
	}
	return out
}

// ScoreSummaryData is the per experiment summary written by ScoreSummary
type ScoreSummaryData struct {
	Experiment string  `json:"experiment"`
	Episodes   int     `json:"episodes"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	// statistics restricted to the last episodes (after training)
	TailEpisodes int     `json:"tail_episodes"`
	TailMean     float64 `json:"tail_mean"`
}

// SummarizeScores computes the statistics over the scores, the tail covers the last tail scores.
// A tail of 0 or less leaves the tail statistics empty.
func SummarizeScores(name string, scores []float64, tail int) ScoreSummaryData {
	summary := ScoreSummaryData{Experiment: name, Episodes: len(scores)}
	if len(scores) == 0 {
		return summary
	}
	summary.Mean, summary.StdDev = stat.MeanStdDev(scores, nil)
	if len(scores) == 1 {
		summary.StdDev = 0
	}
	summary.Min = floats.Min(scores)
	summary.Max = floats.Max(scores)
	if tail <= 0 {
		return summary
	}
	if tail > len(scores) {
		tail = len(scores)
	}
	summary.TailEpisodes = tail
	summary.TailMean = stat.Mean(scores[len(scores)-tail:], nil)
	return summary
}

func ensureDir(p string) error {
	if _, err := os.Stat(p); err != nil {
		return os.MkdirAll(p, os.ModePerm)
	}
	return nil
}

// ScoreSummary prints and stores the score statistics of each experiment.
// tail selects how many trailing episodes are summarized separately
func ScoreSummary(savePath string, tail int) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		if err := ensureDir(savePath); err != nil {
			return err
		}
		summaries := make([]ScoreSummaryData, len(names))
		for i := 0; i < len(names); i++ {
			scores := ds[i].([]float64)
			summaries[i] = SummarizeScores(names[i], scores, tail)
			fmt.Printf("%s: average score %.2f (std %.2f) over %d episodes", names[i],
				summaries[i].Mean, summaries[i].StdDev, summaries[i].Episodes)
			if summaries[i].TailEpisodes > 0 {
				fmt.Printf(", last %d: %.2f", summaries[i].TailEpisodes, summaries[i].TailMean)
			}
			fmt.Println()
		}
		bs, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path.Join(savePath, strconv.Itoa(run)+"_score_summary.json"), bs, 0644)
	}
}

// WinRate over the episodes, 0 if there are none
func WinRate(wins []bool) float64 {
	if len(wins) == 0 {
		return 0
	}
	count := 0
	for _, w := range wins {
		if w {
			count++
		}
	}
	return float64(count) / float64(len(wins))
}

// TailWinRate is the win rate over the last tail episodes along with the
// number of episodes it covers, (0, 0) when tail is not positive
func TailWinRate(wins []bool, tail int) (float64, int) {
	if tail <= 0 {
		return 0, 0
	}
	if tail > len(wins) {
		tail = len(wins)
	}
	return WinRate(wins[len(wins)-tail:]), tail
}

// WinRateSummary prints the overall win rate and the one over the last tail episodes
func WinRateSummary(tail int) Comparator {
	return func(_, _ int, names []string, ds []DataSet) error {
		for i := 0; i < len(names); i++ {
			wins := ds[i].([]bool)
			fmt.Printf("%s: won %.1f%% of %d games", names[i], WinRate(wins)*100, len(wins))
			if rate, n := TailWinRate(wins, tail); n > 0 {
				fmt.Printf(", last %d: %.1f%%", n, rate*100)
			}
			fmt.Println()
		}
		return nil
	}
}

// ScorePlotter draws the moving average of the episode scores of each experiment
func ScorePlotter(plotPath string, window int) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		if err := ensureDir(plotPath); err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Score (moving average " + strconv.Itoa(window) + ")"
		for i := 0; i < len(names); i++ {
			scores := MovingAverage(ds[i].([]float64), window)
			points := make(plotter.XYs, len(scores))
			for j, v := range scores {
				points[j] = plotter.XY{
					X: float64(j),
					Y: v,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_scores.png"))
	}
}

// CoveragePlotter draws the number of distinct states visited per episode
func CoveragePlotter(plotPath string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		if err := ensureDir(plotPath); err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "States covered"
		for i := 0; i < len(names); i++ {
			uniqueStates := ds[i].([]int)
			points := make(plotter.XYs, len(uniqueStates))
			for j, v := range uniqueStates {
				points[j] = plotter.XY{
					X: float64(j),
					Y: float64(v),
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
			if len(uniqueStates) > 0 {
				fmt.Printf("Number of unique states: %d for experiment: %s\n", uniqueStates[len(uniqueStates)-1], names[i])
			}
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_coverage.png"))
	}
}
