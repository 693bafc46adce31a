package lumen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pb33f/lantern/lumen/model"
)

// Report bundles everything one pipeline run produced: the reconstructed
// inputs, the graph, both simulation bounds and every metric estimate.
// Metrics that could not be computed appear in Unavailable with their
// typed reason instead of failing the run.
type Report struct {
	Requests []*model.NetworkRequest
	Tasks    []Task
	Trace    *ProcessedTrace
	Graph    *Graph

	Optimistic  *SimulationResult
	Pessimistic *SimulationResult

	Metrics     []*MetricEstimate
	Unavailable []*MetricUnavailable
}

// Pipeline wires the full trace-to-metrics flow: netlog parse, trace
// processing, task building, graph construction, the two simulation
// bounds, and the metric estimators. Estimators run concurrently; they
// share only read-only inputs and publish independent outputs.
type Pipeline struct {
	log   *slog.Logger
	cache *ComputedCache
}

// NewPipeline creates a pipeline. Logger may be nil; cache may be nil to
// disable memoization.
func NewPipeline(logger *slog.Logger, cache *ComputedCache) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{log: logger, cache: cache}
}

type estimator func(*Graph, *ProcessedTrace, *SimulationResult, *SimulationResult) (*MetricEstimate, error)

// metricOrder fixes the reporting order regardless of which estimator
// goroutine finishes first.
var metricOrder = []struct {
	name string
	fn   estimator
}{
	{MetricFCP, EstimateFCP},
	{MetricLCP, EstimateLCP},
	{MetricSpeedIndex, EstimateSpeedIndex},
	{MetricTTI, EstimateTTI},
}

// Run executes the pipeline. Topology and simulator-invariant errors abort
// the run; per-metric insufficient-data conditions land in
// Report.Unavailable. Cancellation via ctx discards the run between
// stages; a SimulationResult is only ever published complete.
func (p *Pipeline) Run(ctx context.Context, trace *model.Trace, events []model.DevtoolsEvent, opts SimulationOptions) (*Report, error) {
	requests, err := p.parseRequests(events)
	if err != nil {
		return nil, fmt.Errorf("parsing devtools log: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pt, err := ProcessTrace(trace, ProcessOptions{Logger: p.log})
	if err != nil {
		return nil, fmt.Errorf("processing trace: %w", err)
	}
	tasks := BuildTasks(pt, p.log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph, err := BuildGraph(requests, tasks, p.log)
	if err != nil {
		return nil, fmt.Errorf("building dependency graph: %w", err)
	}

	optOpts := opts
	optOpts.Policy = OptimisticPolicy
	pessOpts := opts
	pessOpts.Policy = PessimisticPolicy

	optimistic, err := Simulate(graph, optOpts)
	if err != nil {
		return nil, fmt.Errorf("optimistic simulation: %w", err)
	}
	pessimistic, err := Simulate(graph, pessOpts)
	if err != nil {
		return nil, fmt.Errorf("pessimistic simulation: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Requests:    requests,
		Tasks:       tasks,
		Trace:       pt,
		Graph:       graph,
		Optimistic:  optimistic,
		Pessimistic: pessimistic,
	}

	// estimators only read the graph and the two results, so each runs in
	// its own goroutine; one failing metric never blocks the others
	estimates := make([]*MetricEstimate, len(metricOrder))
	failures := make([]*MetricUnavailable, len(metricOrder))
	var wg sync.WaitGroup
	for i, m := range metricOrder {
		wg.Add(1)
		go func(slot int, name string, fn estimator) {
			defer wg.Done()
			est, err := fn(graph, pt, optimistic, pessimistic)
			if err != nil {
				var unavailable *MetricUnavailable
				if errors.As(err, &unavailable) {
					failures[slot] = unavailable
				} else {
					failures[slot] = &MetricUnavailable{Metric: name, Reason: err}
				}
				return
			}
			estimates[slot] = est
		}(i, m.name, m.fn)
	}
	wg.Wait()

	for i := range metricOrder {
		if estimates[i] != nil {
			report.Metrics = append(report.Metrics, estimates[i])
		}
		if failures[i] != nil {
			p.log.Warn("metric unavailable", "metric", failures[i].Metric, "reason", failures[i].Reason)
			report.Unavailable = append(report.Unavailable, failures[i])
		}
	}

	return report, nil
}

// parseRequests memoizes the netlog parse per unique log identity when a
// cache is attached.
func (p *Pipeline) parseRequests(events []model.DevtoolsEvent) ([]*model.NetworkRequest, error) {
	if p.cache == nil {
		return ParseNetlog(events, p.log)
	}

	key := p.cache.Key(netlogKeyParts(events)...)
	if v, ok := p.cache.Get(key); ok {
		if cached, ok := v.([]*model.NetworkRequest); ok {
			return cached, nil
		}
	}

	requests, err := ParseNetlog(events, p.log)
	if err != nil {
		return nil, err
	}
	p.cache.Put(key, requests)
	return requests, nil
}

// netlogKeyParts fingerprints the whole event stream. Every record's method
// and payload feeds the hash, so two logs agreeing only at their boundaries
// still get distinct keys.
func netlogKeyParts(events []model.DevtoolsEvent) []string {
	parts := make([]string, 0, 2*len(events)+1)
	parts = append(parts, "netlog")
	for _, ev := range events {
		parts = append(parts, ev.Method, string(ev.Params))
	}
	return parts
}
