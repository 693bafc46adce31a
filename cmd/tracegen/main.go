package main

import (
	"fmt"
	"os"

	"github.com/pb33f/lantern/tracegen"
	"github.com/spf13/cobra"
)

var (
	requestCount int
	redirectHops int
	scriptCount  int
	longTasks    int
	seed         int64
	pageURL      string
	h2           bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tracegen",
		Short: "Generate synthetic trace and devtools log pairs",
		Long: `tracegen is a tool for generating matched trace/devtools-log capture
pairs describing fictional page loads, for testing the simulation
pipeline without a real browser capture.`,
		RunE: runGenerate,
	}

	rootCmd.Flags().IntVarP(&requestCount, "requests", "n", 10, "Number of subresource requests")
	rootCmd.Flags().IntVar(&redirectHops, "redirects", 0, "Redirect hops ahead of the document")
	rootCmd.Flags().IntVar(&scriptCount, "scripts", 3, "How many requests are scripts")
	rootCmd.Flags().IntVar(&longTasks, "long-tasks", 0, "Long main-thread tasks after load")
	rootCmd.Flags().Int64VarP(&seed, "seed", "s", 0, "Random seed for reproducibility (0 = use current time)")
	rootCmd.Flags().StringVar(&pageURL, "url", "https://example.com/", "Document URL")
	rootCmd.Flags().BoolVar(&h2, "h2", false, "Mark origins as HTTP/2")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	result, err := tracegen.Generate(tracegen.GenerateOptions{
		PageURL:       pageURL,
		RequestCount:  requestCount,
		RedirectHops:  redirectHops,
		ScriptCount:   scriptCount,
		LongTaskCount: longTasks,
		Seed:          seed,
		H2:            h2,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Printf("Generated %d requests\n", result.TotalRequests)
	fmt.Printf("  trace:        %s\n", result.TraceFilePath)
	fmt.Printf("  devtools log: %s\n", result.DevtoolsFilePath)
	return nil
}
