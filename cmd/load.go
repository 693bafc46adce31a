package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pb33f/lantern/lumen/model"
)

// LoadTrace reads a trace file, accepting both the bare-array and the
// {"traceEvents": [...]} forms.
func LoadTrace(path string) (*model.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	var trace model.Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("failed to parse trace %s: %w", path, err)
	}
	return &trace, nil
}

// LoadDevtoolsLog reads a devtools protocol log: a JSON array of
// {method, params} records.
func LoadDevtoolsLog(path string) ([]model.DevtoolsEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read devtools log: %w", err)
	}
	var events []model.DevtoolsEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse devtools log %s: %w", path, err)
	}
	return events, nil
}
