package lumen

import (
	"math"
	"sort"
)

// Quiet-period thresholds for interactivity.
const (
	// longTaskThresholdMs marks a CPU task as long enough to block input.
	longTaskThresholdMs = 50

	// taskClusterWindowMs merges long tasks closer together than this into
	// one busy cluster: two long tasks inside a one-second window never
	// count as quiet between them.
	taskClusterWindowMs = 1000

	// quietWindowMs is how long both the CPU and the network must stay
	// quiet before the page counts as interactive.
	quietWindowMs = 5000

	// maxConcurrentQuietRequests is how many in-flight GETs still count as
	// network-quiet.
	maxConcurrentQuietRequests = 2
)

// TimePeriod is a half-open [Start, End) window in milliseconds.
type TimePeriod struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the window length.
func (p TimePeriod) Duration() float64 { return p.End - p.Start }

// QuietPeriods is the result of the overlapping quiet-period search.
type QuietPeriods struct {
	CPUQuietPeriod     TimePeriod
	NetworkQuietPeriod TimePeriod

	// InteractiveAt is the later of the two quiet-period starts, clamped
	// to the start of their intersection.
	InteractiveAt float64
}

// FindOverlappingQuietPeriods locates the earliest pair of CPU-quiet and
// network-quiet windows whose intersection is non-empty, over
// [fcp, traceEnd]. CPU busyness comes from long tasks; network busyness
// from windows with more than two concurrent qualifying requests.
// Requests that are not GET, not 2xx/3xx or never finished are excluded
// from the network computation entirely.
func FindOverlappingQuietPeriods(longTasks []TimePeriod, requests []TimePeriod, fcp, traceEnd float64) (*QuietPeriods, error) {
	if traceEnd-fcp < quietWindowMs {
		return nil, ErrTraceTooShort
	}

	cpuQuiet := quietWindows(clusterBusyPeriods(longTasks, taskClusterWindowMs), fcp, traceEnd)
	if len(cpuQuiet) == 0 {
		return nil, ErrNoCPUIdlePeriod
	}

	netQuiet := quietWindows(networkBusyPeriods(requests, maxConcurrentQuietRequests), fcp, traceEnd)
	if len(netQuiet) == 0 {
		return nil, ErrNoNetworkIdlePeriod
	}

	for _, cpu := range cpuQuiet {
		for _, net := range netQuiet {
			overlapStart := math.Max(cpu.Start, net.Start)
			overlapEnd := math.Min(cpu.End, net.End)
			if overlapEnd <= overlapStart {
				continue
			}
			// the later quiet start is by construction the overlap start
			return &QuietPeriods{
				CPUQuietPeriod:     cpu,
				NetworkQuietPeriod: net,
				InteractiveAt:      overlapStart,
			}, nil
		}
	}

	// quiet windows exist on both sides but never at the same time
	return nil, ErrNoOverlappingQuietPeriod
}

// clusterBusyPeriods merges busy intervals whose gap is below window, so a
// burst of long tasks forms one busy stretch.
func clusterBusyPeriods(busy []TimePeriod, window float64) []TimePeriod {
	if len(busy) == 0 {
		return nil
	}
	sorted := make([]TimePeriod, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []TimePeriod{sorted[0]}
	for _, p := range sorted[1:] {
		last := &merged[len(merged)-1]
		if p.Start-last.End < window {
			if p.End > last.End {
				last.End = p.End
			}
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

// networkBusyPeriods sweeps the request windows and returns the stretches
// where concurrency exceeds maxConcurrent.
func networkBusyPeriods(requests []TimePeriod, maxConcurrent int) []TimePeriod {
	type edge struct {
		at    float64
		delta int
	}
	edges := make([]edge, 0, len(requests)*2)
	for _, r := range requests {
		if r.End <= r.Start {
			continue
		}
		edges = append(edges, edge{r.Start, 1}, edge{r.End, -1})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at != edges[j].at {
			return edges[i].at < edges[j].at
		}
		// ends before starts at the same instant
		return edges[i].delta < edges[j].delta
	})

	var busy []TimePeriod
	concurrent := 0
	busyStart := 0.0
	inBusy := false
	for _, e := range edges {
		concurrent += e.delta
		if !inBusy && concurrent > maxConcurrent {
			inBusy = true
			busyStart = e.at
		} else if inBusy && concurrent <= maxConcurrent {
			inBusy = false
			busy = append(busy, TimePeriod{Start: busyStart, End: e.at})
		}
	}
	return busy
}

// quietWindows complements the busy intervals over [from, to], keeping
// only windows of at least quietWindowMs.
func quietWindows(busy []TimePeriod, from, to float64) []TimePeriod {
	var quiet []TimePeriod
	cursor := from
	for _, b := range busy {
		if b.End <= from || b.Start >= to {
			continue
		}
		if b.Start > cursor {
			quiet = append(quiet, TimePeriod{Start: cursor, End: math.Min(b.Start, to)})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if cursor < to {
		quiet = append(quiet, TimePeriod{Start: cursor, End: to})
	}

	keep := quiet[:0]
	for _, q := range quiet {
		if q.Duration() >= quietWindowMs {
			keep = append(keep, q)
		}
	}
	return keep
}

// EstimateTTI predicts time to interactive: for each bound, project the
// long tasks and qualifying requests into simulated time, run the quiet
// period search from that bound's FCP, then blend.
func EstimateTTI(g *Graph, pt *ProcessedTrace, optimistic, pessimistic *SimulationResult) (*MetricEstimate, error) {
	fcp, err := EstimateFCP(g, pt, optimistic, pessimistic)
	if err != nil {
		return nil, &MetricUnavailable{Metric: MetricTTI, Reason: ErrNoFCP}
	}

	opt, err := interactiveAt(g, optimistic, fcp.OptimisticMs)
	if err != nil {
		return nil, &MetricUnavailable{Metric: MetricTTI, Reason: err}
	}
	pess, err := interactiveAt(g, pessimistic, fcp.PessimisticMs)
	if err != nil {
		return nil, &MetricUnavailable{Metric: MetricTTI, Reason: err}
	}

	return &MetricEstimate{
		Metric:        MetricTTI,
		EstimateMs:    blend(pess, opt, ttiBlendWeight),
		OptimisticMs:  opt,
		PessimisticMs: pess,
		Optimistic:    optimistic,
		Pessimistic:   pessimistic,
	}, nil
}

func interactiveAt(g *Graph, result *SimulationResult, fcpMs float64) (float64, error) {
	longTasks, requests, end := simulatedActivity(g, result)
	if end < result.TotalTime {
		end = result.TotalTime
	}
	// leave room for the quiet window past the last activity
	end += quietWindowMs + 1

	quiet, err := FindOverlappingQuietPeriods(longTasks, requests, fcpMs, end)
	if err != nil {
		return 0, err
	}
	return quiet.InteractiveAt, nil
}

// simulatedActivity projects graph nodes into simulated time: CPU windows
// at or above the long-task threshold, and network windows for finished
// 2xx/3xx GETs.
func simulatedActivity(g *Graph, result *SimulationResult) (longTasks, requests []TimePeriod, lastEnd float64) {
	for _, n := range g.Nodes {
		tm, ok := result.Timings[n.ID]
		if !ok || tm.EndTime < 0 {
			continue
		}
		if tm.EndTime > lastEnd {
			lastEnd = tm.EndTime
		}
		period := TimePeriod{Start: tm.StartTime, End: tm.EndTime}

		if n.Type == CPUNode {
			if period.Duration() >= longTaskThresholdMs {
				longTasks = append(longTasks, period)
			}
			continue
		}

		r := n.Request
		if r.RequestMethod != "" && r.RequestMethod != "GET" {
			continue
		}
		if !r.OK() {
			continue
		}
		requests = append(requests, period)
	}
	return longTasks, requests, lastEnd
}
