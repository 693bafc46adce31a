package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/pb33f/lantern/tui"
	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view <trace.json> <devtoolslog.json>",
	Short: "Browse simulated node timings in an interactive viewer",
	Long: `View runs the simulation pipeline and opens an interactive terminal
viewer over the results: metric estimates, per-node optimistic and
pessimistic timings, and a detail pane for each request and task.`,
	Args:    cobra.ExactArgs(2),
	Example: `  lantern view trace.json devtoolslog.json --rtt 150`,
	RunE:    runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().Float64Var(&simRTT, "rtt", 150, "Simulated round-trip time in milliseconds")
	viewCmd.Flags().Float64Var(&simThroughput, "throughput", 1600, "Simulated link throughput in kbps")
	viewCmd.Flags().Float64Var(&simCPUSlowdown, "cpu-slowdown", 4, "CPU slowdown multiplier")
	viewCmd.Flags().Float64Var(&simLayoutFactor, "layout-multiplier", 1, "Extra multiplier for layout/style tasks")
}

func runView(cmd *cobra.Command, args []string) error {
	report, err := runPipeline(cmd, args[0], args[1])
	if err != nil {
		return err
	}

	model := tui.NewReportViewModel(report)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
