package lumen

import (
	"encoding/json"
	"testing"

	"github.com/pb33f/lantern/lumen/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFrame  = "FRAME1"
	testPid    = 1000
	testTid    = 1
	testOrigin = int64(100_000_000)
)

func traceEvent(t *testing.T, name, ph string, ts, dur int64, args any) model.TraceEvent {
	t.Helper()
	ev := model.TraceEvent{Name: name, Ph: ph, Pid: testPid, Tid: testTid, Ts: ts, Dur: dur}
	if args != nil {
		raw, err := json.Marshal(args)
		require.NoError(t, err)
		ev.Args = raw
	}
	return ev
}

// traceHeader emits the minimum metadata a processable trace needs: the
// frame snapshot, the renderer main-thread name, and a navigation start.
func traceHeader(t *testing.T, pageURL string) []model.TraceEvent {
	t.Helper()
	return []model.TraceEvent{
		traceEvent(t, "TracingStartedInBrowser", model.PhaseInstant, testOrigin-5000, 0, map[string]any{
			"data": map[string]any{
				"frames": []map[string]any{
					{"frame": testFrame, "url": pageURL, "processId": testPid},
				},
			},
		}),
		{Name: "thread_name", Ph: model.PhaseMetadata, Pid: testPid, Tid: testTid,
			Args: json.RawMessage(`{"name":"CrRendererMain"}`)},
		traceEvent(t, "navigationStart", model.PhaseMark, testOrigin, 0, map[string]any{
			"data": map[string]any{
				"frame": testFrame, "isOutermostMainFrame": true,
				"documentLoaderURL": pageURL,
			},
		}),
	}
}

func frameMark(t *testing.T, name string, ts int64) model.TraceEvent {
	t.Helper()
	return traceEvent(t, name, model.PhaseMark, ts, 0, map[string]any{
		"data": map[string]any{"frame": testFrame},
	})
}

func TestProcessTrace_Empty(t *testing.T) {
	_, err := ProcessTrace(&model.Trace{}, ProcessOptions{})
	assert.ErrorIs(t, err, ErrEmptyTrace)
}

func TestProcessTrace_NoNavigationStart(t *testing.T) {
	trace := &model.Trace{TraceEvents: []model.TraceEvent{
		traceEvent(t, "Layout", model.PhaseComplete, testOrigin, 5000, nil),
	}}
	_, err := ProcessTrace(trace, ProcessOptions{})
	assert.ErrorIs(t, err, ErrNoNavigationStart)
}

func TestProcessTrace_AboutBlankNavigationSkipped(t *testing.T) {
	events := []model.TraceEvent{
		traceEvent(t, "TracingStartedInBrowser", model.PhaseInstant, testOrigin-5000, 0, map[string]any{
			"data": map[string]any{
				"frames": []map[string]any{
					{"frame": testFrame, "url": "https://example.com/", "processId": testPid},
				},
			},
		}),
		// the synthetic initial navigation must not become the time origin
		traceEvent(t, "navigationStart", model.PhaseMark, testOrigin-2000, 0, map[string]any{
			"data": map[string]any{
				"frame": testFrame, "isOutermostMainFrame": true,
				"documentLoaderURL": "about:blank",
			},
		}),
		traceEvent(t, "navigationStart", model.PhaseMark, testOrigin, 0, map[string]any{
			"data": map[string]any{
				"frame": testFrame, "isOutermostMainFrame": true,
				"documentLoaderURL": "https://example.com/",
			},
		}),
	}

	pt, err := ProcessTrace(&model.Trace{TraceEvents: events}, ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, testOrigin, pt.TimeOriginTs)
	assert.Equal(t, testFrame, pt.MainFrameID)
}

func TestProcessTrace_Landmarks(t *testing.T) {
	events := traceHeader(t, "https://example.com/")
	events = append(events,
		frameMark(t, "firstPaint", testOrigin+800_000),
		frameMark(t, "firstContentfulPaint", testOrigin+820_000),
		frameMark(t, "largestContentfulPaint::Candidate", testOrigin+900_000),
		frameMark(t, "largestContentfulPaint::Candidate", testOrigin+1_400_000),
		// a second FP must not overwrite the first
		frameMark(t, "firstPaint", testOrigin+1_500_000),
	)

	pt, err := ProcessTrace(&model.Trace{TraceEvents: events}, ProcessOptions{})
	require.NoError(t, err)

	assert.InDelta(t, 800, pt.FirstPaint, 0.001)
	assert.InDelta(t, 820, pt.FirstContentfulPaint, 0.001)
	// the last LCP candidate stands
	assert.InDelta(t, 1400, pt.LargestContentfulPaint, 0.001)
	assert.GreaterOrEqual(t, pt.TraceEnd, 1500.0)
}

func TestProcessTrace_LCPInvalidate(t *testing.T) {
	events := traceHeader(t, "https://example.com/")
	events = append(events,
		frameMark(t, "largestContentfulPaint::Candidate", testOrigin+900_000),
		frameMark(t, "largestContentfulPaint::Invalidate", testOrigin+950_000),
	)

	pt, err := ProcessTrace(&model.Trace{TraceEvents: events}, ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, -1.0, pt.LargestContentfulPaint)
}

func TestProcessTrace_MainThreadFilter(t *testing.T) {
	events := traceHeader(t, "https://example.com/")
	events = append(events,
		traceEvent(t, "EvaluateScript", model.PhaseComplete, testOrigin+100_000, 50_000, nil),
		// another thread in the same process
		model.TraceEvent{Name: "Decode Image", Ph: model.PhaseComplete,
			Pid: testPid, Tid: 7, Ts: testOrigin + 110_000, Dur: 5000},
		// a different process entirely
		model.TraceEvent{Name: "Layout", Ph: model.PhaseComplete,
			Pid: 2000, Tid: 1, Ts: testOrigin + 120_000, Dur: 5000},
	)

	pt, err := ProcessTrace(&model.Trace{TraceEvents: events}, ProcessOptions{})
	require.NoError(t, err)

	var names []string
	for _, ev := range pt.MainThreadEvents {
		if ev.Ph == model.PhaseComplete {
			names = append(names, ev.Name)
		}
	}
	assert.Equal(t, []string{"EvaluateScript"}, names)
}

func TestProcessTrace_EventsSortedByTimestamp(t *testing.T) {
	events := traceHeader(t, "https://example.com/")
	// deliberately out of order
	events = append(events,
		traceEvent(t, "Layout", model.PhaseComplete, testOrigin+300_000, 10_000, nil),
		traceEvent(t, "ParseHTML", model.PhaseComplete, testOrigin+100_000, 10_000, nil),
	)

	pt, err := ProcessTrace(&model.Trace{TraceEvents: events}, ProcessOptions{})
	require.NoError(t, err)

	var last int64 = -1
	for _, ev := range pt.MainThreadEvents {
		require.GreaterOrEqual(t, ev.Ts, last)
		last = ev.Ts
	}
}

func TestTraceUnmarshal_BareArrayAndWrapped(t *testing.T) {
	bare := []byte(`[{"name":"navigationStart","ph":"R","ts":100}]`)
	wrapped := []byte(`{"traceEvents":[{"name":"navigationStart","ph":"R","ts":100}]}`)

	var a, b model.Trace
	require.NoError(t, json.Unmarshal(bare, &a))
	require.NoError(t, json.Unmarshal(wrapped, &b))

	require.Len(t, a.TraceEvents, 1)
	assert.Equal(t, a.TraceEvents[0], b.TraceEvents[0])
}
