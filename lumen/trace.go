package lumen

import (
	"log/slog"
	"sort"

	"github.com/pb33f/lantern/lumen/model"
)

// Trace event names the processor keys on.
const (
	eventTracingStarted    = "TracingStartedInBrowser"
	eventNavigationStart   = "navigationStart"
	eventFirstPaint        = "firstPaint"
	eventFCP               = "firstContentfulPaint"
	eventLCPCandidate      = "largestContentfulPaint::Candidate"
	eventLCPInvalidate     = "largestContentfulPaint::Invalidate"
	eventThreadName        = "thread_name"
	rendererMainThreadName = "CrRendererMain"
)

// ProcessedTrace is the structured view of a raw trace: the ordered
// main-thread event subset for the primary renderer, the frame tree, and
// the timestamp landmarks everything downstream is expressed against.
type ProcessedTrace struct {
	// MainThreadEvents holds the events of the primary renderer's main
	// thread, sorted by timestamp (stable across same-timestamp ties).
	MainThreadEvents []model.TraceEvent

	// MainFrameID identifies the frame the landmarks belong to.
	MainFrameID string

	// FrameParents maps frame id to parent frame id ("" for the root).
	FrameParents map[string]string

	// TimeOriginTs is the navigation start timestamp in trace microseconds.
	// All millisecond landmarks below are relative to it.
	TimeOriginTs int64

	// Landmarks, in milliseconds since TimeOriginTs. A value of -1 means
	// the landmark never occurred in the trace.
	FirstPaint             float64
	FirstContentfulPaint   float64
	LargestContentfulPaint float64
	TraceEnd               float64
}

// ProcessOptions adjusts trace processing.
type ProcessOptions struct {
	// FrameID pins processing to a specific frame instead of the detected
	// top-level frame, for analyzing a child frame across a navigation
	// boundary. Empty selects the top-level frame.
	FrameID string

	// Logger for recoverable parse warnings. Nil uses slog.Default.
	Logger *slog.Logger
}

// ProcessTrace orders the raw events, locates the primary frame and its
// renderer main thread, and extracts the paint landmarks. It fails with
// ErrEmptyTrace when no events exist and ErrNoNavigationStart when no
// navigation can be found for the selected frame.
func ProcessTrace(trace *model.Trace, opts ProcessOptions) (*ProcessedTrace, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(trace.TraceEvents) == 0 {
		return nil, ErrEmptyTrace
	}

	events := make([]model.TraceEvent, len(trace.TraceEvents))
	copy(events, trace.TraceEvents)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Ts < events[j].Ts })

	pt := &ProcessedTrace{
		FrameParents:           make(map[string]string),
		FirstPaint:             -1,
		FirstContentfulPaint:   -1,
		LargestContentfulPaint: -1,
	}

	// pass 1: frame tree and main frame selection
	mainFramePid := 0
	for i := range events {
		ev := &events[i]
		if ev.Name != eventTracingStarted && ev.Name != eventNavigationStart {
			continue
		}
		args, err := ev.DecodeArgs()
		if err != nil {
			logger.Warn("undecodable trace event args, skipping", "name", ev.Name, "ts", ev.Ts)
			continue
		}
		switch ev.Name {
		case eventTracingStarted:
			for _, f := range args.Data.Frames {
				pt.FrameParents[f.Frame] = f.Parent
				if f.Parent == "" && pt.MainFrameID == "" && opts.FrameID == "" {
					pt.MainFrameID = f.Frame
					mainFramePid = f.ProcessID
				}
				if opts.FrameID != "" && f.Frame == opts.FrameID {
					pt.MainFrameID = f.Frame
					mainFramePid = f.ProcessID
				}
			}
		case eventNavigationStart:
			frame := args.Data.Frame
			if frame == "" {
				frame = args.Frame
			}
			isMain := args.Data.IsOutermostMain || args.Data.IsMainFrame
			if opts.FrameID != "" {
				isMain = frame == opts.FrameID
			}
			// first qualifying navigation wins; documentLoaderURL filters
			// out synthetic about:blank navigations
			if isMain && pt.TimeOriginTs == 0 && args.Data.DocumentLoaderURL != "about:blank" {
				if pt.MainFrameID == "" {
					pt.MainFrameID = frame
				}
				if frame == pt.MainFrameID || pt.MainFrameID == "" {
					pt.TimeOriginTs = ev.Ts
					if mainFramePid == 0 {
						mainFramePid = ev.Pid
					}
				}
			}
		}
	}

	if pt.TimeOriginTs == 0 {
		return nil, ErrNoNavigationStart
	}

	// pass 2: identify the renderer main thread within the main frame's process
	mainTid := 0
	for i := range events {
		ev := &events[i]
		if ev.Ph != model.PhaseMetadata || ev.Name != eventThreadName || ev.Pid != mainFramePid {
			continue
		}
		args, err := ev.DecodeArgs()
		if err != nil {
			continue
		}
		if args.Name == rendererMainThreadName {
			mainTid = ev.Tid
			break
		}
	}

	// pass 3: main-thread subset, landmarks, trace end
	traceEndTs := pt.TimeOriginTs
	for i := range events {
		ev := &events[i]
		if end := ev.Ts + ev.Dur; end > traceEndTs {
			traceEndTs = end
		}

		switch ev.Name {
		case eventFirstPaint, eventFCP, eventLCPCandidate, eventLCPInvalidate:
			if ev.Ts < pt.TimeOriginTs {
				continue
			}
			args, err := ev.DecodeArgs()
			if err != nil {
				continue
			}
			frame := args.Data.Frame
			if frame == "" {
				frame = args.Frame
			}
			if frame != "" && frame != pt.MainFrameID {
				continue
			}
			ms := microsToMillis(ev.Ts - pt.TimeOriginTs)
			switch ev.Name {
			case eventFirstPaint:
				if pt.FirstPaint < 0 {
					pt.FirstPaint = ms
				}
			case eventFCP:
				if pt.FirstContentfulPaint < 0 {
					pt.FirstContentfulPaint = ms
				}
			case eventLCPCandidate:
				// candidates supersede each other, the last one stands
				pt.LargestContentfulPaint = ms
			case eventLCPInvalidate:
				pt.LargestContentfulPaint = -1
			}
		}

		if ev.Pid == mainFramePid && (mainTid == 0 || ev.Tid == mainTid) {
			switch ev.Ph {
			case model.PhaseBegin, model.PhaseEnd, model.PhaseComplete, model.PhaseInstant:
				pt.MainThreadEvents = append(pt.MainThreadEvents, *ev)
			}
		}
	}

	pt.TraceEnd = microsToMillis(traceEndTs - pt.TimeOriginTs)
	return pt, nil
}

// RelMillis converts an absolute trace timestamp to milliseconds since the
// time origin.
func (pt *ProcessedTrace) RelMillis(ts int64) float64 {
	return microsToMillis(ts - pt.TimeOriginTs)
}

func microsToMillis(us int64) float64 {
	return float64(us) / 1000
}
