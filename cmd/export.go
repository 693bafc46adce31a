package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pb33f/lantern/lumen"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <devtoolslog.json>",
	Short: "Convert a devtools protocol log into a HAR file",
	Long: `Export parses the network lifecycle records out of a devtools log and
writes them as an HTTP Archive, so the reconstruction can be inspected
with any HAR tooling.`,
	Args:    cobra.ExactArgs(1),
	Example: `  lantern export devtoolslog.json -o capture.har`,
	RunE:    runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "capture.har", "Output HAR file path")
}

func runExport(cmd *cobra.Command, args []string) error {
	events, err := LoadDevtoolsLog(args[0])
	if err != nil {
		return err
	}

	requests, err := lumen.ParseNetlog(events, Logger)
	if err != nil {
		return fmt.Errorf("failed to parse devtools log: %w", err)
	}
	if len(requests) == 0 {
		return fmt.Errorf("no network requests found in %s", args[0])
	}

	har := lumen.ExportHAR(requests, time.Now(), requests[0].DocumentURL)

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOutput, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(har); err != nil {
		return fmt.Errorf("failed to write HAR: %w", err)
	}

	fmt.Printf("Wrote %d entries to %s\n", len(har.Log.Entries), exportOutput)
	return nil
}
