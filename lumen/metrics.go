package lumen

import (
	"math"

	"github.com/pb33f/lantern/lumen/model"
)

// Metric names reported by the estimators.
const (
	MetricFCP        = "first-contentful-paint"
	MetricLCP        = "largest-contentful-paint"
	MetricTTI        = "interactive"
	MetricSpeedIndex = "speed-index"
)

// Blend weights applied to the pessimistic bound per metric. Paint-family
// metrics lean pessimistic because real devices rarely achieve best-case
// network parallelism; interactivity leans harder still. Pinned by the
// golden estimates in the test suite.
const (
	fcpBlendWeight        = 0.6
	lcpBlendWeight        = 0.55
	ttiBlendWeight        = 0.7
	speedIndexBlendWeight = 0.6
)

// MetricEstimate is the outcome of one metric estimation: the blended
// scalar plus both raw bounds and their full simulation results for
// debugging and visualization. Estimates never mutate the graph.
type MetricEstimate struct {
	Metric string `json:"metric"`

	// EstimateMs is the blended value, milliseconds from navigation start.
	EstimateMs float64 `json:"estimateMs"`

	OptimisticMs  float64 `json:"optimisticMs"`
	PessimisticMs float64 `json:"pessimisticMs"`

	Optimistic  *SimulationResult `json:"-"`
	Pessimistic *SimulationResult `json:"-"`
}

func blend(pessimistic, optimistic, weight float64) float64 {
	return pessimistic*weight + optimistic*(1-weight)
}

// EstimateFCP predicts first contentful paint under the simulated
// condition: the completion of the slowest node the observed FCP depended
// on, read from each bound and blended.
func EstimateFCP(g *Graph, pt *ProcessedTrace, optimistic, pessimistic *SimulationResult) (*MetricEstimate, error) {
	if pt.FirstContentfulPaint < 0 {
		return nil, &MetricUnavailable{Metric: MetricFCP, Reason: ErrNoFCP}
	}
	return paintEstimate(MetricFCP, fcpBlendWeight, g, pt.FirstContentfulPaint, optimistic, pessimistic)
}

// EstimateLCP predicts largest contentful paint the same way, cut off at
// the observed LCP candidate.
func EstimateLCP(g *Graph, pt *ProcessedTrace, optimistic, pessimistic *SimulationResult) (*MetricEstimate, error) {
	if pt.LargestContentfulPaint < 0 {
		return nil, &MetricUnavailable{Metric: MetricLCP, Reason: ErrNoLCP}
	}
	return paintEstimate(MetricLCP, lcpBlendWeight, g, pt.LargestContentfulPaint, optimistic, pessimistic)
}

// paintEstimate selects the sub-graph of nodes that completed before the
// observed paint landmark and reports the latest simulated completion in
// that sub-graph under each bound.
func paintEstimate(metric string, weight float64, g *Graph, landmarkMs float64, optimistic, pessimistic *SimulationResult) (*MetricEstimate, error) {
	opt := subgraphCompletion(g, landmarkMs, optimistic)
	pess := subgraphCompletion(g, landmarkMs, pessimistic)

	return &MetricEstimate{
		Metric:        metric,
		EstimateMs:    blend(pess, opt, weight),
		OptimisticMs:  opt,
		PessimisticMs: pess,
		Optimistic:    optimistic,
		Pessimistic:   pessimistic,
	}, nil
}

// subgraphCompletion returns the latest simulated end time among nodes
// whose observed completion preceded the landmark. The root always
// qualifies so the estimate is never zero.
func subgraphCompletion(g *Graph, landmarkMs float64, result *SimulationResult) float64 {
	latest := 0.0
	for _, n := range g.Nodes {
		inSubgraph := n.ID == g.Root ||
			(n.EndTime >= 0 && n.EndTime <= landmarkMs && n.StartTime <= landmarkMs)
		if !inSubgraph {
			continue
		}
		if tm, ok := result.Timings[n.ID]; ok && tm.EndTime > latest {
			latest = tm.EndTime
		}
	}
	return latest
}

// EstimateSpeedIndex derives speed index from simulated paint progress:
// paint-family CPU work and render-enabling bytes spread between simulated
// FCP and the simulated visual completion, following the same blend
// pattern as the node metrics.
func EstimateSpeedIndex(g *Graph, pt *ProcessedTrace, optimistic, pessimistic *SimulationResult) (*MetricEstimate, error) {
	fcp, err := EstimateFCP(g, pt, optimistic, pessimistic)
	if err != nil {
		return nil, &MetricUnavailable{Metric: MetricSpeedIndex, Reason: ErrNoFCP}
	}

	opt := paintProgressCenter(g, optimistic, fcp.OptimisticMs)
	pess := paintProgressCenter(g, pessimistic, fcp.PessimisticMs)

	return &MetricEstimate{
		Metric:        MetricSpeedIndex,
		EstimateMs:    blend(pess, opt, speedIndexBlendWeight),
		OptimisticMs:  opt,
		PessimisticMs: pess,
		Optimistic:    optimistic,
		Pessimistic:   pessimistic,
	}, nil
}

// paintProgressCenter approximates the center of mass of paint progress:
// each render-affecting node contributes its simulated completion weighted
// by its share of render work, floored at FCP.
func paintProgressCenter(g *Graph, result *SimulationResult, fcpMs float64) float64 {
	totalWeight := 0.0
	weighted := 0.0

	for _, n := range g.Nodes {
		w := renderWeight(n)
		if w <= 0 {
			continue
		}
		tm, ok := result.Timings[n.ID]
		if !ok || tm.EndTime < 0 {
			continue
		}
		totalWeight += w
		weighted += w * tm.EndTime
	}

	if totalWeight == 0 {
		return fcpMs
	}
	return math.Max(fcpMs, weighted/totalWeight)
}

// renderWeight scores how much a node contributes to visual progress.
func renderWeight(n *Node) float64 {
	if n.Type == CPUNode {
		return n.SelfTimeByGroup[GroupPaintRender] + n.SelfTimeByGroup[GroupStyleLayout]
	}
	switch n.Request.ResourceType {
	case model.ResourceDocument, model.ResourceStylesheet, model.ResourceImage, model.ResourceFont:
		return float64(n.Request.TransferSize)
	}
	return 0
}
