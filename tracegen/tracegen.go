// Package tracegen generates synthetic page-load captures: a matched pair
// of trace events and devtools protocol log describing the same fictional
// navigation. The output is deterministic for a fixed seed, which makes it
// the fixture source for tests and benchmarks.
package tracegen

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pb33f/lantern/lumen/model"
)

// GenerateOptions configures a synthetic page load.
type GenerateOptions struct {
	// PageURL is the document URL. Defaults to https://example.com/.
	PageURL string

	// RequestCount is how many subresource requests to generate beyond the
	// document itself.
	RequestCount int

	// RedirectHops inserts this many redirects ahead of the document
	// request (0 = none).
	RedirectHops int

	// ScriptCount of the subresources are scripts; each script gets an
	// evaluation task on the main thread. Clamped to RequestCount.
	ScriptCount int

	// LongTaskCount adds main-thread tasks over 50ms after load, pushing
	// interactivity out.
	LongTaskCount int

	// Seed fixes the random stream; 0 uses the current time.
	Seed int64

	// H2 marks every origin as HTTP/2.
	H2 bool
}

// GenerateResult carries the in-memory capture pair.
type GenerateResult struct {
	Trace    *model.Trace
	Devtools []model.DevtoolsEvent

	// Paths are set by Generate, empty from GenerateInMemory.
	TraceFilePath    string
	DevtoolsFilePath string

	TotalRequests int
}

// navStartTs is the synthetic navigation start on the trace clock, in
// microseconds. The devtools clock runs in seconds on the same origin.
const navStartTs = 100_000_000

const (
	mainFrameID = "FRAME1"
	mainPid     = 1000
	mainTid     = 1
)

// GenerateInMemory builds the capture pair without touching disk.
func GenerateInMemory(opts GenerateOptions) (*GenerateResult, error) {
	if opts.PageURL == "" {
		opts.PageURL = "https://example.com/"
	}
	if opts.RequestCount < 0 {
		return nil, fmt.Errorf("negative request count %d", opts.RequestCount)
	}
	if opts.ScriptCount > opts.RequestCount {
		opts.ScriptCount = opts.RequestCount
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	g := &generator{opts: opts, rng: rng}
	g.build()

	return &GenerateResult{
		Trace:         &model.Trace{TraceEvents: g.traceEvents},
		Devtools:      g.devtools,
		TotalRequests: g.requestCount,
	}, nil
}

// Generate builds the capture pair and writes both files to temp storage.
func Generate(opts GenerateOptions) (*GenerateResult, error) {
	result, err := GenerateInMemory(opts)
	if err != nil {
		return nil, err
	}

	tracePath, err := writeJSON("tracegen-*.trace.json", result.Trace)
	if err != nil {
		return nil, err
	}
	devtoolsPath, err := writeJSON("tracegen-*.devtoolslog.json", result.Devtools)
	if err != nil {
		os.Remove(tracePath)
		return nil, err
	}

	result.TraceFilePath = tracePath
	result.DevtoolsFilePath = devtoolsPath
	return result, nil
}

func writeJSON(pattern string, v any) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write %s: %w", pattern, err)
	}
	return f.Name(), nil
}
