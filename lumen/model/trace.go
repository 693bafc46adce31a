package model

import "encoding/json"

// Trace represents a captured browser trace. Chrome emits either a bare
// JSON array of events or an object wrapping them in "traceEvents"; both
// forms unmarshal into this type via UnmarshalJSON.
type Trace struct {
	TraceEvents []TraceEvent `json:"traceEvents"`
	Metadata    TraceMeta    `json:"metadata"`
}

// TraceMeta contains optional metadata attached to a trace export.
type TraceMeta struct {
	Source     string `json:"source,omitempty"`
	StartTime  string `json:"startTime,omitempty"`
	DataOrigin string `json:"dataOrigin,omitempty"`
}

// UnmarshalJSON accepts both the wrapped {"traceEvents": [...]} form and a
// bare top-level array of events.
func (t *Trace) UnmarshalJSON(data []byte) error {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return json.Unmarshal(data, &t.TraceEvents)
		}
		break
	}

	type wrapped Trace
	var w wrapped
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Trace(w)
	return nil
}

// TraceEvent is a single record in the Trace Event Format.
//
// Timestamps (Ts) and durations (Dur) are in microseconds on the trace
// clock. Args is left raw because its shape depends entirely on Name.
type TraceEvent struct {
	// Name of the event, e.g. "navigationStart" or "EvaluateScript".
	Name string `json:"name"`

	// Cat holds the comma-separated category list.
	Cat string `json:"cat"`

	// Ph is the event phase, see the Phase* constants.
	Ph string `json:"ph"`

	// Pid and Tid identify the emitting process and thread.
	Pid int `json:"pid"`
	Tid int `json:"tid"`

	// Ts is the event timestamp in microseconds.
	Ts int64 `json:"ts"`

	// Dur is the duration in microseconds, only present for complete (X) events.
	Dur int64 `json:"dur,omitempty"`

	// ID associates async event pairs.
	ID string `json:"id,omitempty"`

	// Args carries the event-specific payload, decoded on demand.
	Args json.RawMessage `json:"args,omitempty"`
}

// Trace event phases used by the processor. The full format defines more;
// anything unrecognized is skipped at the parse boundary.
const (
	PhaseBegin    = "B" // duration event begin
	PhaseEnd      = "E" // duration event end
	PhaseComplete = "X" // complete event with inline duration
	PhaseInstant  = "I" // instant event
	PhaseMetadata = "M" // metadata (process/thread names)
	PhaseMark     = "R" // mark event (paint landmarks)
	PhaseCounter  = "C" // counter sample
)

// EventArgs is the common shape of the "args" payload for the events the
// processor cares about. Frame-scoped events nest everything under "data".
type EventArgs struct {
	Data      EventArgsData   `json:"data"`
	Frame     string          `json:"frame,omitempty"`
	BeginData json.RawMessage `json:"beginData,omitempty"`
	Name      string          `json:"name,omitempty"`
}

// EventArgsData holds the fields lantern reads out of args.data across the
// event names it recognizes. Unknown fields are simply never populated.
type EventArgsData struct {
	Frame             string          `json:"frame,omitempty"`
	IsMainFrame       bool            `json:"isMainFrame,omitempty"`
	IsOutermostMain   bool            `json:"isOutermostMainFrame,omitempty"`
	DocumentLoaderURL string          `json:"documentLoaderURL,omitempty"`
	URL               string          `json:"url,omitempty"`
	Frames            []TraceFrame    `json:"frames,omitempty"`
	RequestID         string          `json:"requestId,omitempty"`
	StackTrace        []TraceCallSite `json:"stackTrace,omitempty"`
	FunctionName      string          `json:"functionName,omitempty"`
	ScriptName        string          `json:"scriptName,omitempty"`
	Size              int64           `json:"size,omitempty"`
	NodeID            int             `json:"nodeId,omitempty"`
	Type              string          `json:"type,omitempty"`
}

// TraceFrame describes one frame in a TracingStartedInBrowser snapshot.
type TraceFrame struct {
	Frame     string `json:"frame"`
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	Parent    string `json:"parent,omitempty"`
	ProcessID int    `json:"processId,omitempty"`
}

// TraceCallSite is one entry of a stack trace attached to an event.
type TraceCallSite struct {
	FunctionName string `json:"functionName"`
	URL          string `json:"url"`
	ScriptID     string `json:"scriptId,omitempty"`
	LineNumber   int    `json:"lineNumber,omitempty"`
	ColumnNumber int    `json:"columnNumber,omitempty"`
}

// DecodeArgs unmarshals the raw args payload into EventArgs. Events with no
// args decode to the zero value.
func (e *TraceEvent) DecodeArgs() (EventArgs, error) {
	var args EventArgs
	if len(e.Args) == 0 {
		return args, nil
	}
	err := json.Unmarshal(e.Args, &args)
	return args, err
}
