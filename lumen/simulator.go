package lumen

import (
	"fmt"
	"sort"

	"github.com/pb33f/lantern/lumen/model"
)

// ResourcePolicy resolves the modeling ambiguities that separate the
// optimistic and pessimistic bounds. The simulator core never branches on
// a mode name, only on these knobs, so further policies can be added
// without touching the loop.
type ResourcePolicy struct {
	Name string

	// ReuseConnections keeps connections warm across requests to the same
	// origin (HTTP keep-alive). When false every request pays the full
	// handshake.
	ReuseConnections bool

	// H2Multiplexing lets an HTTP/2 origin share one connection across any
	// number of streams. When false H2 origins behave like HTTP/1.1.
	H2Multiplexing bool

	// CacheHitLatencyMs is the flat cost charged to a request served from
	// browser cache.
	CacheHitLatencyMs float64
}

// OptimisticPolicy assumes best-case resolution of ambiguities: keep-alive
// reuse, full H2 multiplexing, near-free cache hits.
var OptimisticPolicy = ResourcePolicy{
	Name:              "optimistic",
	ReuseConnections:  true,
	H2Multiplexing:    true,
	CacheHitLatencyMs: 1,
}

// PessimisticPolicy assumes the opposite: cold connections per request, no
// multiplexing, cache hits still paying a disk round trip.
var PessimisticPolicy = ResourcePolicy{
	Name:              "pessimistic",
	ReuseConnections:  false,
	H2Multiplexing:    false,
	CacheHitLatencyMs: 16,
}

// SimulationOptions configures one simulator run.
type SimulationOptions struct {
	ThroughputKbps        float64
	RTTMs                 float64
	CPUSlowdownMultiplier float64
	LayoutTaskMultiplier  float64

	Policy ResourcePolicy

	// MaxConnectionsPerOrigin caps simultaneous non-H2 connections per
	// origin. Zero means the browser default of 6.
	MaxConnectionsPerOrigin int

	// H2StreamCap bounds concurrent streams on a multiplexed connection.
	// Zero means unlimited, the default approximation.
	H2StreamCap int

	// Less orders ready requests competing for a free connection. Nil uses
	// declared priority rank, then graph order.
	Less func(a, b *model.NetworkRequest) bool
}

// Mobile3GOptions returns throttling approximating a mid-tier device on a
// slow cellular connection.
func Mobile3GOptions() SimulationOptions {
	return SimulationOptions{
		ThroughputKbps:        1600,
		RTTMs:                 150,
		CPUSlowdownMultiplier: 4,
		LayoutTaskMultiplier:  1,
		Policy:                OptimisticPolicy,
	}
}

// NodeTiming is one node's simulated execution window, milliseconds from
// navigation start.
type NodeTiming struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTimeMs"`
}

// SimulationResult is the immutable output of one run.
type SimulationResult struct {
	// TotalTime is the graph's completion time in milliseconds.
	TotalTime float64

	// Timings maps node id to its simulated window.
	Timings map[int]NodeTiming

	// Policy names the resource policy that produced this result.
	Policy string
}

// transfer is an in-flight network download.
type transfer struct {
	node *Node
	conn *Connection

	// latencyLeft is handshake + request round-trip time still to burn
	// before bytes flow.
	latencyLeft float64

	bytesLeft float64
}

// Simulator executes a dependency graph under a resource model: a shared
// bandwidth pool, a finite connection pool per origin, per-connection RTT
// and slow start, and a single CPU thread. It is a discrete-event
// simulation over a logical clock; nothing here touches the wall clock.
type Simulator struct {
	graph *Graph
	opts  SimulationOptions

	clock   float64
	timings map[int]NodeTiming

	pendingDeps []int
	netQueue    []*Node
	cpuQueue    []*Node

	inflight []*transfer
	cpuBusy  *Node
	cpuLeft  float64

	pools map[string][]*Connection
}

// Simulate runs the graph to completion under the given options and
// returns a timing for every node. The run is deterministic: the same
// graph and options always produce an identical result.
func Simulate(graph *Graph, opts SimulationOptions) (*SimulationResult, error) {
	if opts.MaxConnectionsPerOrigin <= 0 {
		opts.MaxConnectionsPerOrigin = 6
	}
	if opts.CPUSlowdownMultiplier <= 0 {
		opts.CPUSlowdownMultiplier = 1
	}
	if opts.LayoutTaskMultiplier <= 0 {
		opts.LayoutTaskMultiplier = 1
	}
	if opts.RTTMs <= 0 {
		opts.RTTMs = 1
	}
	if opts.ThroughputKbps <= 0 {
		opts.ThroughputKbps = 10000
	}
	if opts.Less == nil {
		opts.Less = defaultRequestLess
	}

	s := &Simulator{
		graph:       graph,
		opts:        opts,
		timings:     make(map[int]NodeTiming, len(graph.Nodes)),
		pendingDeps: make([]int, len(graph.Nodes)),
		pools:       make(map[string][]*Connection),
	}

	for _, n := range graph.Nodes {
		s.pendingDeps[n.ID] = len(n.Dependencies)
	}
	for _, n := range graph.Nodes {
		if s.pendingDeps[n.ID] == 0 {
			s.enqueue(n)
		}
	}

	return s.run()
}

func (s *Simulator) run() (*SimulationResult, error) {
	completed := 0
	total := len(s.graph.Nodes)

	// every iteration must either start or finish work; an acyclic graph
	// guarantees that, so stalling indicates a modeling bug
	for guard := 0; completed < total; guard++ {
		if guard > 8*total+64 {
			return nil, fmt.Errorf("%w after %d nodes of %d", ErrNoProgress, completed, total)
		}

		started := s.startReadyWork()

		if s.cpuBusy == nil && len(s.inflight) == 0 {
			if started == 0 {
				return nil, fmt.Errorf("%w: %d nodes can never be scheduled", ErrNoProgress, total-completed)
			}
			continue
		}

		dt, finishers := s.nextCompletion()
		s.advance(dt)
		completed += s.complete(finishers)
	}

	return &SimulationResult{
		TotalTime: s.clock,
		Timings:   s.timings,
		Policy:    s.opts.Policy.Name,
	}, nil
}

func (s *Simulator) enqueue(n *Node) {
	if n.Type == CPUNode {
		s.cpuQueue = append(s.cpuQueue, n)
		return
	}
	s.netQueue = append(s.netQueue, n)
	sort.SliceStable(s.netQueue, func(i, j int) bool {
		return s.opts.Less(s.netQueue[i].Request, s.netQueue[j].Request)
	})
}

// defaultRequestLess orders by declared priority, highest first. The sort
// wrapping it is stable, so equal priorities keep graph order.
func defaultRequestLess(a, b *model.NetworkRequest) bool {
	return a.Priority.Rank() > b.Priority.Rank()
}

// startReadyWork moves queued nodes into execution as capacity allows and
// returns how many it started.
func (s *Simulator) startReadyWork() int {
	started := 0

	if s.cpuBusy == nil && len(s.cpuQueue) > 0 {
		n := s.cpuQueue[0]
		s.cpuQueue = s.cpuQueue[1:]
		s.cpuBusy = n
		s.cpuLeft = s.scaledCPUDuration(n)
		s.markStart(n)
		started++
	}

	remaining := s.netQueue[:0]
	for _, n := range s.netQueue {
		if s.startTransfer(n) {
			started++
		} else {
			remaining = append(remaining, n)
		}
	}
	s.netQueue = remaining

	return started
}

func (s *Simulator) scaledCPUDuration(n *Node) float64 {
	d := 0.0
	// fixed group order: summation over the map would make the float total
	// depend on iteration order and break run-to-run determinism
	for _, group := range taskGroupOrder {
		selfTime, ok := n.SelfTimeByGroup[group]
		if !ok {
			continue
		}
		t := selfTime * s.opts.CPUSlowdownMultiplier
		if group == GroupStyleLayout {
			t *= s.opts.LayoutTaskMultiplier
		}
		d += t
	}
	if d < 0.01 {
		d = 0.01
	}
	return d
}

// startTransfer begins a network node if a connection (or cache) can serve
// it now.
func (s *Simulator) startTransfer(n *Node) bool {
	r := n.Request

	if r.FromCache() {
		// cache hits bypass the network entirely
		s.inflight = append(s.inflight, &transfer{
			node:        n,
			latencyLeft: s.opts.Policy.CacheHitLatencyMs,
		})
		s.markStart(n)
		return true
	}

	conn := s.acquireConnection(r)
	if conn == nil {
		return false
	}

	latency := conn.SetupTime() + s.opts.RTTMs + serverLatency(r)
	conn.Warm()
	conn.Streams++

	s.inflight = append(s.inflight, &transfer{
		node:        n,
		conn:        conn,
		latencyLeft: latency,
		bytesLeft:   transferBytes(r),
	})
	s.markStart(n)
	return true
}

// acquireConnection finds or creates a connection for the request's
// origin, honoring the per-origin cap and the H2 multiplexing policy.
func (s *Simulator) acquireConnection(r *model.NetworkRequest) *Connection {
	origin := r.Origin()
	if origin == "" {
		origin = "unknown://"
	}
	h2 := s.opts.Policy.H2Multiplexing && isH2(r.Protocol)
	pool := s.pools[origin]

	if h2 {
		// all streams share the origin's single multiplexed connection
		if len(pool) > 0 {
			c := pool[0]
			if s.opts.H2StreamCap > 0 && c.Streams >= s.opts.H2StreamCap {
				return nil
			}
			return c
		}
		c := NewConnection(origin, r.IsSecure(), true, s.opts.RTTMs)
		s.pools[origin] = append(pool, c)
		return c
	}

	for _, c := range pool {
		if c.Streams == 0 && !c.H2 {
			return c
		}
	}
	if len(pool) < s.opts.MaxConnectionsPerOrigin {
		c := NewConnection(origin, r.IsSecure(), false, s.opts.RTTMs)
		s.pools[origin] = append(pool, c)
		return c
	}
	return nil
}

// linkRate is the shared bandwidth in bytes per millisecond.
func (s *Simulator) linkRate() float64 {
	return s.opts.ThroughputKbps / 8
}

// downloadRate computes a transfer's current byte rate: its fair share of
// the link divided across all downloading transfers, capped by its
// connection's congestion window.
func (s *Simulator) downloadRate(t *transfer, downloading int) float64 {
	share := s.linkRate() / float64(downloading)
	if maxRate := t.conn.MaxRate(); maxRate < share {
		return maxRate
	}
	return share
}

// nextCompletion returns the time until the earliest completion event and
// the transfers/CPU node finishing then.
func (s *Simulator) nextCompletion() (float64, []*transfer) {
	const epsilon = 1e-9

	downloading := 0
	for _, t := range s.inflight {
		if t.latencyLeft <= 0 && t.conn != nil {
			downloading++
		}
	}

	dt := -1.0
	consider := func(candidate float64) {
		if candidate < epsilon {
			candidate = epsilon
		}
		if dt < 0 || candidate < dt {
			dt = candidate
		}
	}

	if s.cpuBusy != nil {
		consider(s.cpuLeft)
	}
	for _, t := range s.inflight {
		if t.latencyLeft > 0 {
			consider(t.latencyLeft)
			continue
		}
		consider(t.bytesLeft / s.downloadRate(t, downloading))
	}

	// collect everything that completes exactly at dt
	var finishers []*transfer
	for _, t := range s.inflight {
		if t.latencyLeft > 0 {
			if t.latencyLeft <= dt+epsilon && (t.conn == nil || t.bytesLeft <= 0) {
				finishers = append(finishers, t)
			}
			continue
		}
		if t.bytesLeft <= dt*s.downloadRate(t, downloading)+epsilon {
			finishers = append(finishers, t)
		}
	}
	return dt, finishers
}

// advance moves the clock forward, burning latency, bytes and CPU time.
func (s *Simulator) advance(dt float64) {
	downloading := 0
	for _, t := range s.inflight {
		if t.latencyLeft <= 0 && t.conn != nil {
			downloading++
		}
	}

	for _, t := range s.inflight {
		if t.latencyLeft > 0 {
			t.latencyLeft -= dt
			if t.latencyLeft < 0 {
				t.latencyLeft = 0
			}
			continue
		}
		if t.conn != nil {
			rate := s.downloadRate(t, downloading)
			t.bytesLeft -= rate * dt
			if t.bytesLeft < 0 {
				t.bytesLeft = 0
			}
			t.conn.Advance(dt, s.linkRate())
		}
	}

	if s.cpuBusy != nil {
		s.cpuLeft -= dt
		if s.cpuLeft < 0 {
			s.cpuLeft = 0
		}
	}

	s.clock += dt
}

// complete retires finished work, releases connections and unblocks
// dependents. Returns the number of nodes completed.
func (s *Simulator) complete(finishers []*transfer) int {
	const epsilon = 1e-9
	done := 0

	if s.cpuBusy != nil && s.cpuLeft <= epsilon {
		s.finishNode(s.cpuBusy)
		s.cpuBusy = nil
		done++
	}

	finishing := make(map[*transfer]bool, len(finishers))
	for _, t := range finishers {
		// re-check: latency-phase transfers with bytes still pending just
		// transitioned into download, they are not done
		if t.conn != nil && t.bytesLeft > epsilon {
			continue
		}
		finishing[t] = true
	}

	remaining := s.inflight[:0]
	for _, t := range s.inflight {
		if !finishing[t] {
			remaining = append(remaining, t)
			continue
		}
		if t.conn != nil {
			t.conn.Streams--
			if !s.opts.Policy.ReuseConnections {
				t.conn.Cool()
			}
		}
		s.finishNode(t.node)
		done++
	}
	s.inflight = remaining

	return done
}

func (s *Simulator) markStart(n *Node) {
	s.timings[n.ID] = NodeTiming{StartTime: s.clock, EndTime: -1}
}

func (s *Simulator) finishNode(n *Node) {
	tm := s.timings[n.ID]
	tm.EndTime = s.clock
	s.timings[n.ID] = tm

	for _, d := range n.Dependents {
		s.pendingDeps[d]--
		if s.pendingDeps[d] == 0 {
			s.enqueue(s.graph.Nodes[d])
		}
	}
}

// serverLatency recovers the origin server's own response time from the
// observed capture, which throttling does not change.
func serverLatency(r *model.NetworkRequest) float64 {
	if r.Timing == nil {
		return 0
	}
	l := r.Timing.ReceiveHeadersEnd - r.Timing.SendEnd
	if l < 0 {
		return 0
	}
	return l
}

// transferBytes estimates how many bytes must cross the wire.
func transferBytes(r *model.NetworkRequest) float64 {
	b := float64(r.TransferSize)
	if b <= 0 {
		b = float64(r.ResourceSize)
	}
	if b < 400 {
		b = 400 // response headers are never free
	}
	return b
}

func isH2(protocol string) bool {
	return protocol == "h2" || protocol == "http/2" || protocol == "h3"
}
