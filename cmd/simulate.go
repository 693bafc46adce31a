package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pb33f/lantern/lumen"
	"github.com/spf13/cobra"
)

var (
	simRTT          float64
	simThroughput   float64
	simCPUSlowdown  float64
	simLayoutFactor float64
	simJSON         bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <trace.json> <devtoolslog.json>",
	Short: "Run the full trace-to-metrics simulation pipeline",
	Long: `Simulate reconstructs the page load from a trace and a devtools log,
builds the request/task dependency graph, runs the optimistic and
pessimistic simulation bounds under the requested throttling, and prints
the blended metric estimates.`,
	Args: cobra.ExactArgs(2),
	Example: `  lantern simulate trace.json devtoolslog.json
  lantern simulate trace.json devtoolslog.json --rtt 150 --throughput 1600 --cpu-slowdown 4
  lantern simulate trace.json devtoolslog.json --json`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Float64Var(&simRTT, "rtt", 150, "Simulated round-trip time in milliseconds")
	simulateCmd.Flags().Float64Var(&simThroughput, "throughput", 1600, "Simulated link throughput in kbps")
	simulateCmd.Flags().Float64Var(&simCPUSlowdown, "cpu-slowdown", 4, "CPU slowdown multiplier")
	simulateCmd.Flags().Float64Var(&simLayoutFactor, "layout-multiplier", 1, "Extra multiplier for layout/style tasks")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "Emit machine-readable JSON instead of a table")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	report, err := runPipeline(cmd, args[0], args[1])
	if err != nil {
		return err
	}

	if simJSON {
		return printJSONReport(report)
	}
	printReport(report)
	return nil
}

// runPipeline loads both inputs and executes the pipeline with the shared
// throttling flags.
func runPipeline(cmd *cobra.Command, tracePath, devtoolsPath string) (*lumen.Report, error) {
	trace, err := LoadTrace(tracePath)
	if err != nil {
		return nil, err
	}
	events, err := LoadDevtoolsLog(devtoolsPath)
	if err != nil {
		return nil, err
	}

	opts := lumen.SimulationOptions{
		ThroughputKbps:        simThroughput,
		RTTMs:                 simRTT,
		CPUSlowdownMultiplier: simCPUSlowdown,
		LayoutTaskMultiplier:  simLayoutFactor,
	}

	pipeline := lumen.NewPipeline(Logger, lumen.NewComputedCache())
	report, err := pipeline.Run(cmd.Context(), trace, events, opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline failed: %w", err)
	}
	return report, nil
}

func printReport(report *lumen.Report) {
	fmt.Printf("Requests: %d   Tasks: %d   Graph nodes: %d\n\n",
		len(report.Requests), len(report.Tasks), len(report.Graph.Nodes))
	fmt.Printf("%-26s %12s %12s %12s\n", "METRIC", "ESTIMATE", "OPTIMISTIC", "PESSIMISTIC")
	for _, m := range report.Metrics {
		fmt.Printf("%-26s %10.0fms %10.0fms %10.0fms\n",
			m.Metric, m.EstimateMs, m.OptimisticMs, m.PessimisticMs)
	}
	for _, u := range report.Unavailable {
		fmt.Printf("%-26s   unavailable: %v\n", u.Metric, u.Reason)
	}
}

type jsonReport struct {
	Metrics     []*lumen.MetricEstimate  `json:"metrics"`
	Unavailable []string                 `json:"unavailable,omitempty"`
	Optimistic  map[int]lumen.NodeTiming `json:"optimisticNodeTimings"`
	Pessimistic map[int]lumen.NodeTiming `json:"pessimisticNodeTimings"`
}

func printJSONReport(report *lumen.Report) error {
	out := jsonReport{
		Metrics:     report.Metrics,
		Optimistic:  report.Optimistic.Timings,
		Pessimistic: report.Pessimistic.Timings,
	}
	for _, u := range report.Unavailable {
		out.Unavailable = append(out.Unavailable, u.Error())
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
