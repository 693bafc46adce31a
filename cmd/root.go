package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	Logger  *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "lantern",
		Short: "Predict page-load performance under simulated network and CPU conditions",
		Long: `Lantern replays a captured browser trace and devtools protocol log
through a discrete-event simulation, predicting what the page's paint and
interactivity metrics would have been on a slower device and connection.
The capture happens once, fast; the throttled runs are simulated.`,
		Example: `  lantern simulate trace.json devtoolslog.json
  lantern simulate trace.json devtoolslog.json --rtt 150 --throughput 1600 --cpu-slowdown 4
  lantern view trace.json devtoolslog.json
  lantern export devtoolslog.json -o capture.har`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger()
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// will be reconfigured in PersistentPreRun based on flags
	setupLogger()
}

// setupLogger configures the global slog logger based on the verbose flag
func setupLogger() {
	var opts *slog.HandlerOptions

	if verbose {
		opts = &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}
	} else {
		opts = &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}
