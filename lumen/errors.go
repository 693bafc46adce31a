package lumen

import "errors"

// Fatal pipeline errors. Topology and internal-invariant failures abort the
// whole run; the per-metric errors below are caught at the estimator
// boundary and reported as an unavailable metric instead.
var (
	// ErrEmptyTrace means the trace contained no events at all.
	ErrEmptyTrace = errors.New("empty trace")

	// ErrNoNavigationStart means no navigation-start event was found for
	// the main frame.
	ErrNoNavigationStart = errors.New("no navigation detected in trace")

	// ErrCyclicGraph means dependency construction produced a cycle.
	ErrCyclicGraph = errors.New("dependency graph contains a cycle")

	// ErrNoDocumentRequest means no root document request could be located
	// in the devtools log.
	ErrNoDocumentRequest = errors.New("no document request found")

	// ErrNoProgress is the simulator watchdog: a step completed no node and
	// started no work, which is impossible on an acyclic graph.
	ErrNoProgress = errors.New("simulation made no progress")
)

// Per-metric errors. Each estimator fails independently with one of these;
// callers receive them wrapped in a MetricUnavailable result.
var (
	// ErrNoFCP means the trace carried no first-contentful-paint landmark.
	ErrNoFCP = errors.New("no first contentful paint found")

	// ErrNoLCP means the trace carried no largest-contentful-paint landmark.
	ErrNoLCP = errors.New("no largest contentful paint found")

	// ErrNoCPUIdlePeriod means no CPU-quiet window of the required length
	// exists between FCP and the end of the trace.
	ErrNoCPUIdlePeriod = errors.New("no CPU idle period found")

	// ErrNoNetworkIdlePeriod means no network-quiet window of the required
	// length exists between FCP and the end of the trace.
	ErrNoNetworkIdlePeriod = errors.New("no network idle period found")

	// ErrNoOverlappingQuietPeriod means CPU-quiet and network-quiet windows
	// both exist but never coincide.
	ErrNoOverlappingQuietPeriod = errors.New("no overlapping quiet period found")

	// ErrTraceTooShort means the trace ends less than the required quiet
	// window past FCP, so interactivity cannot be established either way.
	ErrTraceTooShort = errors.New("trace ended too soon after FCP")
)

// MetricUnavailable is the structured "metric could not be computed"
// outcome. It satisfies error so it can flow through errors.Is, but the
// pipeline treats it as a result: one unavailable metric never aborts the
// others.
type MetricUnavailable struct {
	Metric string
	Reason error
}

func (m *MetricUnavailable) Error() string {
	return "metric " + m.Metric + " unavailable: " + m.Reason.Error()
}

func (m *MetricUnavailable) Unwrap() error {
	return m.Reason
}
