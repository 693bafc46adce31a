package lumen

import "github.com/pb33f/lantern/lumen/model"

// ExecutionTimingsByURL buckets main-thread self-time by attributed URL and
// task group. Keys are resource URLs plus the synthetic Browser, Browser GC
// and Unattributable labels; values are milliseconds of self-time per group.
// Iteration order is unspecified.
func ExecutionTimingsByURL(tasks []Task, requests []*model.NetworkRequest) map[string]map[TaskGroup]float64 {
	known := KnownScriptURLs(requests)
	timings := make(map[string]map[TaskGroup]float64)

	for i := range tasks {
		t := &tasks[i]
		if t.SelfTime == 0 {
			continue
		}
		url := AttributableURLForTask(t, known)
		byGroup, ok := timings[url]
		if !ok {
			byGroup = make(map[TaskGroup]float64)
			timings[url] = byGroup
		}
		byGroup[t.Group] += t.SelfTime
	}
	return timings
}
