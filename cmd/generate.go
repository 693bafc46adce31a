package cmd

import (
	"fmt"

	"github.com/pb33f/lantern/tracegen"
	"github.com/spf13/cobra"
)

var (
	genRequestCount int
	genRedirectHops int
	genScriptCount  int
	genLongTasks    int
	genSeed         int64
	genPageURL      string
	genH2           bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic trace and devtools log pair",
	Long: `Generate produces a matched pair of trace and devtools log files
describing a fictional page load, for testing and benchmarking the
pipeline without a real capture.

Examples:
  lantern generate -n 20 --scripts 5
  lantern generate -n 50 --redirects 2 --long-tasks 3 --seed 42
  lantern generate --h2 -n 30`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&genRequestCount, "requests", "n", 10, "Number of subresource requests")
	generateCmd.Flags().IntVar(&genRedirectHops, "redirects", 0, "Redirect hops ahead of the document")
	generateCmd.Flags().IntVar(&genScriptCount, "scripts", 3, "How many requests are scripts")
	generateCmd.Flags().IntVar(&genLongTasks, "long-tasks", 0, "Long main-thread tasks after load")
	generateCmd.Flags().Int64VarP(&genSeed, "seed", "s", 0, "Random seed for reproducibility (0 = use current time)")
	generateCmd.Flags().StringVar(&genPageURL, "url", "https://example.com/", "Document URL")
	generateCmd.Flags().BoolVar(&genH2, "h2", false, "Mark origins as HTTP/2")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	result, err := tracegen.Generate(tracegen.GenerateOptions{
		PageURL:       genPageURL,
		RequestCount:  genRequestCount,
		RedirectHops:  genRedirectHops,
		ScriptCount:   genScriptCount,
		LongTaskCount: genLongTasks,
		Seed:          genSeed,
		H2:            genH2,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Printf("Generated %d requests\n", result.TotalRequests)
	fmt.Printf("  trace:        %s\n", result.TraceFilePath)
	fmt.Printf("  devtools log: %s\n", result.DevtoolsFilePath)
	return nil
}
