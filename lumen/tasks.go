package lumen

import (
	"encoding/json"
	"log/slog"

	"github.com/pb33f/lantern/lumen/model"
)

// Task is one slice of main-thread execution. Tasks live in the arena
// returned by BuildTasks; Parent and Children hold arena indices rather
// than pointers, so the tree carries no cyclic ownership.
type Task struct {
	// ID is the task's index in the arena.
	ID int

	// Event is the trace record that opened this task.
	Event model.TraceEvent

	// Times are milliseconds since the trace time origin.
	StartTime float64
	EndTime   float64
	Duration  float64

	// SelfTime is Duration minus the children's duration, clamped at zero.
	SelfTime float64

	// Parent is the arena index of the enclosing task, -1 at top level.
	Parent int

	// Children are arena indices in start order.
	Children []int

	Group TaskGroup

	// AttributableURLs are candidate URLs responsible for this work, own
	// candidates first, inherited ancestor candidates after.
	AttributableURLs []string
}

// openTask tracks a task on the builder stack. end is -1 for B events
// until the matching E arrives.
type openTask struct {
	idx int
	end int64
}

// BuildTasks converts the ordered main-thread event subset into a flat,
// depth-first task list with self-times computed. Negative self-time from
// overlapping events is clamped to zero with a warning.
func BuildTasks(pt *ProcessedTrace, logger *slog.Logger) []Task {
	if logger == nil {
		logger = slog.Default()
	}

	var tasks []Task
	var stack []openTask

	closeTop := func(endTs int64) {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t := &tasks[top.idx]
		t.EndTime = pt.RelMillis(endTs)
		t.Duration = t.EndTime - t.StartTime
	}

	for i := range pt.MainThreadEvents {
		ev := pt.MainThreadEvents[i]

		// X tasks carry their end inline; retire any that ended before
		// this event starts
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.end < 0 || top.end > ev.Ts {
				break
			}
			closeTop(top.end)
		}

		switch ev.Ph {
		case model.PhaseEnd:
			if len(stack) == 0 {
				logger.Warn("unmatched end event, skipping", "name", ev.Name, "ts", ev.Ts)
				continue
			}
			closeTop(ev.Ts)

		case model.PhaseBegin, model.PhaseComplete:
			if ev.Dur == 0 && ev.Ph == model.PhaseComplete {
				// zero-duration work contributes nothing to the tree
				continue
			}
			idx := len(tasks)
			parent := -1
			if len(stack) > 0 {
				parent = stack[len(stack)-1].idx
			}
			t := Task{
				ID:        idx,
				Event:     ev,
				StartTime: pt.RelMillis(ev.Ts),
				Parent:    parent,
				Group:     GroupForEvent(ev.Name),
			}
			t.AttributableURLs = candidateURLs(&ev)
			if parent >= 0 {
				t.AttributableURLs = append(t.AttributableURLs, tasks[parent].AttributableURLs...)
				tasks[parent].Children = append(tasks[parent].Children, idx)
			}
			tasks = append(tasks, t)

			end := int64(-1)
			if ev.Ph == model.PhaseComplete {
				end = ev.Ts + ev.Dur
			}
			stack = append(stack, openTask{idx: idx, end: end})

		default:
			// instant events never form tasks
		}
	}

	// close anything still open at the trace boundary
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		end := top.end
		if end < 0 {
			logger.Warn("begin event never closed, clamping to trace end",
				"name", tasks[top.idx].Event.Name)
			end = pt.TimeOriginTs + int64(pt.TraceEnd*1000)
		}
		closeTop(end)
	}

	computeSelfTimes(tasks, logger)
	return tasks
}

func computeSelfTimes(tasks []Task, logger *slog.Logger) {
	for i := range tasks {
		t := &tasks[i]
		childTime := 0.0
		for _, c := range t.Children {
			childTime += tasks[c].Duration
		}
		t.SelfTime = t.Duration - childTime
		if t.SelfTime < 0 {
			logger.Warn("negative task self-time, clamping to zero",
				"name", t.Event.Name, "selfTime", t.SelfTime)
			t.SelfTime = 0
		}
	}
}

// candidateURLs pulls every URL hint off a trace event: args.data.url,
// stack traces in args.data and args.beginData, in that order, deduplicated.
func candidateURLs(ev *model.TraceEvent) []string {
	args, err := ev.DecodeArgs()
	if err != nil {
		return nil
	}

	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}

	add(args.Data.URL)
	for _, site := range args.Data.StackTrace {
		add(site.URL)
	}
	if len(args.BeginData) > 0 {
		var begin struct {
			URL        string                `json:"url"`
			StackTrace []model.TraceCallSite `json:"stackTrace"`
		}
		if json.Unmarshal(args.BeginData, &begin) == nil {
			add(begin.URL)
			for _, site := range begin.StackTrace {
				add(site.URL)
			}
		}
	}
	return urls
}

// AttributableURLForTask resolves the single URL most responsible for a
// task. Tie-break order: a known script URL anywhere in the candidate list
// beats everything; otherwise the first candidate that is not about:blank;
// otherwise browser-internal work is labelled Browser or Browser GC; else
// the task is Unattributable.
func AttributableURLForTask(t *Task, knownScriptURLs map[string]bool) string {
	for _, u := range t.AttributableURLs {
		if knownScriptURLs[u] {
			return u
		}
	}
	for _, u := range t.AttributableURLs {
		if u != "about:blank" {
			return u
		}
	}
	if t.Group == GroupGarbageCollection {
		return AttributionBrowserGC
	}
	if browserInternalTasks[t.Event.Name] {
		return AttributionBrowser
	}
	return AttributionUnattributable
}

// KnownScriptURLs collects the URLs of every script resource in the
// request list, for attribution tie-breaking.
func KnownScriptURLs(requests []*model.NetworkRequest) map[string]bool {
	known := make(map[string]bool)
	for _, r := range requests {
		if r.ResourceType == model.ResourceScript {
			known[r.URL] = true
		}
	}
	return known
}
