package lumen

import (
	"testing"

	"github.com/pb33f/lantern/lumen/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processedTrace wraps a main-thread event list with the standard test
// origin so task times come out in plain milliseconds.
func processedTrace(events []model.TraceEvent, traceEndMs float64) *ProcessedTrace {
	return &ProcessedTrace{
		MainThreadEvents: events,
		MainFrameID:      testFrame,
		TimeOriginTs:     testOrigin,
		TraceEnd:         traceEndMs,
	}
}

func completeEvent(t *testing.T, name string, startMs, durMs float64, args any) model.TraceEvent {
	t.Helper()
	return traceEvent(t, name, model.PhaseComplete,
		testOrigin+int64(startMs*1000), int64(durMs*1000), args)
}

func TestBuildTasks_NestedCompleteEvents(t *testing.T) {
	events := []model.TraceEvent{
		completeEvent(t, "RunTask", 0, 100, nil),
		completeEvent(t, "ParseHTML", 10, 20, nil),
		completeEvent(t, "EvaluateScript", 40, 30, nil),
	}

	tasks := BuildTasks(processedTrace(events, 200), nil)
	require.Len(t, tasks, 3)

	parent := tasks[0]
	assert.Equal(t, -1, parent.Parent)
	assert.Equal(t, []int{1, 2}, parent.Children)
	assert.InDelta(t, 100, parent.Duration, 0.001)
	// 100ms total minus 20ms + 30ms of child time
	assert.InDelta(t, 50, parent.SelfTime, 0.001)

	assert.Equal(t, 0, tasks[1].Parent)
	assert.InDelta(t, 20, tasks[1].SelfTime, 0.001)
	assert.Equal(t, 0, tasks[2].Parent)
	assert.InDelta(t, 30, tasks[2].SelfTime, 0.001)
}

func TestBuildTasks_SelfTimeInvariant(t *testing.T) {
	events := []model.TraceEvent{
		completeEvent(t, "RunTask", 0, 200, nil),
		completeEvent(t, "FunctionCall", 0, 120, nil),
		completeEvent(t, "Layout", 10, 40, nil),
		completeEvent(t, "Paint", 60, 20, nil),
		completeEvent(t, "RunTask", 300, 50, nil),
	}

	tasks := BuildTasks(processedTrace(events, 400), nil)
	require.NotEmpty(t, tasks)

	for _, task := range tasks {
		assert.GreaterOrEqual(t, task.SelfTime, 0.0)
		assert.LessOrEqual(t, task.SelfTime, task.Duration+0.001)
	}
	for _, task := range tasks {
		var childTime float64
		for _, c := range task.Children {
			childTime += tasks[c].Duration
			assert.GreaterOrEqual(t, tasks[c].StartTime, task.StartTime-0.001)
			assert.LessOrEqual(t, tasks[c].EndTime, task.EndTime+0.001)
		}
		assert.InDelta(t, task.Duration-childTime, task.SelfTime, 0.001)
	}
}

func TestBuildTasks_BeginEndPairs(t *testing.T) {
	events := []model.TraceEvent{
		traceEvent(t, "RunTask", model.PhaseBegin, testOrigin, 0, nil),
		traceEvent(t, "Layout", model.PhaseBegin, testOrigin+10_000, 0, nil),
		traceEvent(t, "Layout", model.PhaseEnd, testOrigin+30_000, 0, nil),
		traceEvent(t, "RunTask", model.PhaseEnd, testOrigin+50_000, 0, nil),
	}

	tasks := BuildTasks(processedTrace(events, 100), nil)
	require.Len(t, tasks, 2)
	assert.InDelta(t, 50, tasks[0].Duration, 0.001)
	assert.InDelta(t, 30, tasks[0].SelfTime, 0.001)
	assert.InDelta(t, 20, tasks[1].Duration, 0.001)
}

func TestBuildTasks_UnmatchedEndSkipped(t *testing.T) {
	events := []model.TraceEvent{
		traceEvent(t, "Layout", model.PhaseEnd, testOrigin+5000, 0, nil),
		completeEvent(t, "Paint", 10, 5, nil),
	}

	tasks := BuildTasks(processedTrace(events, 100), nil)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Paint", tasks[0].Event.Name)
}

func TestBuildTasks_UnclosedBeginClampedToTraceEnd(t *testing.T) {
	events := []model.TraceEvent{
		traceEvent(t, "RunTask", model.PhaseBegin, testOrigin+10_000, 0, nil),
	}

	tasks := BuildTasks(processedTrace(events, 75), nil)
	require.Len(t, tasks, 1)
	assert.InDelta(t, 75, tasks[0].EndTime, 0.001)
	assert.InDelta(t, 65, tasks[0].Duration, 0.001)
}

func TestBuildTasks_InheritsAncestorURLs(t *testing.T) {
	events := []model.TraceEvent{
		completeEvent(t, "EvaluateScript", 0, 100, map[string]any{
			"data": map[string]any{"url": "https://example.com/outer.js"},
		}),
		completeEvent(t, "FunctionCall", 10, 50, map[string]any{
			"data": map[string]any{"url": "https://example.com/inner.js"},
		}),
	}

	tasks := BuildTasks(processedTrace(events, 200), nil)
	require.Len(t, tasks, 2)
	assert.Equal(t, []string{"https://example.com/outer.js"}, tasks[0].AttributableURLs)
	// own candidate first, then the ancestor's
	assert.Equal(t, []string{
		"https://example.com/inner.js",
		"https://example.com/outer.js",
	}, tasks[1].AttributableURLs)
}

func TestAttributableURLForTask_TieBreak(t *testing.T) {
	candidates := []string{
		"https://something.com/page.html",
		"https://something.com/scripty.js",
		"https://example.com/another-script.js",
	}
	task := &Task{AttributableURLs: candidates, Group: GroupScriptEvaluation}

	// without script knowledge the first candidate wins
	assert.Equal(t, "https://something.com/page.html",
		AttributableURLForTask(task, nil))

	// a known script URL anywhere in the list beats positional order
	known := map[string]bool{"https://example.com/another-script.js": true}
	assert.Equal(t, "https://example.com/another-script.js",
		AttributableURLForTask(task, known))
}

func TestAttributableURLForTask_AboutBlankSkipped(t *testing.T) {
	task := &Task{AttributableURLs: []string{"about:blank", "https://example.com/app.js"}}
	assert.Equal(t, "https://example.com/app.js", AttributableURLForTask(task, nil))
}

func TestAttributableURLForTask_BrowserFallbacks(t *testing.T) {
	gc := &Task{Group: GroupGarbageCollection, Event: model.TraceEvent{Name: "MinorGC"}}
	assert.Equal(t, AttributionBrowserGC, AttributableURLForTask(gc, nil))

	browser := &Task{Group: GroupOther, Event: model.TraceEvent{Name: "CpuProfiler::StartProfiling"}}
	assert.Equal(t, AttributionBrowser, AttributableURLForTask(browser, nil))

	unknown := &Task{Group: GroupOther, Event: model.TraceEvent{Name: "MysteryWork"}}
	assert.Equal(t, AttributionUnattributable, AttributableURLForTask(unknown, nil))
}

func TestKnownScriptURLs(t *testing.T) {
	requests := []*model.NetworkRequest{
		{URL: "https://example.com/app.js", ResourceType: model.ResourceScript},
		{URL: "https://example.com/style.css", ResourceType: model.ResourceStylesheet},
	}
	known := KnownScriptURLs(requests)
	assert.True(t, known["https://example.com/app.js"])
	assert.False(t, known["https://example.com/style.css"])
}

func TestExecutionTimingsByURL(t *testing.T) {
	events := []model.TraceEvent{
		completeEvent(t, "EvaluateScript", 0, 100, map[string]any{
			"data": map[string]any{"url": "https://example.com/app.js"},
		}),
		completeEvent(t, "Layout", 10, 40, map[string]any{
			"data": map[string]any{"url": "https://example.com/app.js"},
		}),
	}

	tasks := BuildTasks(processedTrace(events, 200), nil)
	timings := ExecutionTimingsByURL(tasks, nil)

	byGroup := timings["https://example.com/app.js"]
	require.NotNil(t, byGroup)
	assert.InDelta(t, 60, byGroup[GroupScriptEvaluation], 0.001)
	assert.InDelta(t, 40, byGroup[GroupStyleLayout], 0.001)
}
