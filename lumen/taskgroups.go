package lumen

// TaskGroup is the semantic category of a main-thread task.
type TaskGroup string

const (
	GroupParseHTML         TaskGroup = "parseHTML"
	GroupStyleLayout       TaskGroup = "styleLayout"
	GroupPaintRender       TaskGroup = "paintCompositeRender"
	GroupScriptParse       TaskGroup = "scriptParseCompile"
	GroupScriptEvaluation  TaskGroup = "scriptEvaluation"
	GroupGarbageCollection TaskGroup = "garbageCollection"
	GroupOther             TaskGroup = "other"
)

// taskGroupOrder is the canonical iteration order over per-group rollups.
// Anything summing across groups must range over this, never over the map,
// so float accumulation order stays fixed.
var taskGroupOrder = []TaskGroup{
	GroupParseHTML,
	GroupStyleLayout,
	GroupPaintRender,
	GroupScriptParse,
	GroupScriptEvaluation,
	GroupGarbageCollection,
	GroupOther,
}

// taskGroupByEvent maps trace event names to their semantic group. Names
// absent from the table fall into GroupOther.
var taskGroupByEvent = map[string]TaskGroup{
	"ParseHTML":             GroupParseHTML,
	"ParseAuthorStyleSheet": GroupParseHTML,

	"ScheduleStyleRecalculation": GroupStyleLayout,
	"RecalculateStyles":          GroupStyleLayout,
	"UpdateLayoutTree":           GroupStyleLayout,
	"InvalidateLayout":           GroupStyleLayout,
	"Layout":                     GroupStyleLayout,

	"Paint":           GroupPaintRender,
	"PaintImage":      GroupPaintRender,
	"PaintSetup":      GroupPaintRender,
	"RasterTask":      GroupPaintRender,
	"CompositeLayers": GroupPaintRender,
	"UpdateLayerTree": GroupPaintRender,
	"ImageDecodeTask": GroupPaintRender,
	"DecodeImage":     GroupPaintRender,
	"Animation":       GroupPaintRender,

	"v8.compile":           GroupScriptParse,
	"v8.compileModule":     GroupScriptParse,
	"v8.parseOnBackground": GroupScriptParse,

	"EvaluateScript":        GroupScriptEvaluation,
	"v8.run":                GroupScriptEvaluation,
	"v8.evaluateModule":     GroupScriptEvaluation,
	"FunctionCall":          GroupScriptEvaluation,
	"TimerFire":             GroupScriptEvaluation,
	"EventDispatch":         GroupScriptEvaluation,
	"XHRReadyStateChange":   GroupScriptEvaluation,
	"XHRLoad":               GroupScriptEvaluation,
	"RunMicrotasks":         GroupScriptEvaluation,
	"FireAnimationFrame":    GroupScriptEvaluation,
	"FireIdleCallback":      GroupScriptEvaluation,
	"RequestAnimationFrame": GroupScriptEvaluation,

	"MinorGC":             GroupGarbageCollection,
	"MajorGC":             GroupGarbageCollection,
	"GCEvent":             GroupGarbageCollection,
	"BlinkGC.AtomicPhase": GroupGarbageCollection,
	"V8.GCCompactor":      GroupGarbageCollection,
	"V8.GCFinalizeMC":     GroupGarbageCollection,
	"V8.GCScavenger":      GroupGarbageCollection,

	"ThreadState::performIdleLazySweep": GroupGarbageCollection,
	"ThreadState::completeSweep":        GroupGarbageCollection,
}

// GroupForEvent returns the semantic group for a trace event name.
func GroupForEvent(name string) TaskGroup {
	if g, ok := taskGroupByEvent[name]; ok {
		return g
	}
	return GroupOther
}

// browserInternalTasks are event names attributed to the browser itself
// when no URL candidate exists.
var browserInternalTasks = map[string]bool{
	"CpuProfiler::StartProfiling": true,
	"MessageLoop::RunTask":        true,
	"TaskQueueManager::ProcessTaskFromWorkQueue": true,
	"ThreadControllerImpl::DoWork":               true,
	"ThreadControllerImpl::RunTask":              true,
	"V8.Execute":                                 true,
}

// Synthetic attribution labels for work no URL can claim.
const (
	AttributionBrowser        = "Browser"
	AttributionBrowserGC      = "Browser GC"
	AttributionUnattributable = "Unattributable"
)
