package lumen

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/pb33f/lantern/lumen/model"
)

// NodeType discriminates the two kinds of graph node.
type NodeType string

const (
	NetworkNode NodeType = "network"
	CPUNode     NodeType = "cpu"
)

// Node is one unit of work in the dependency graph: a network request or a
// top-level main-thread task. Dependencies must all complete before the
// node may start.
type Node struct {
	ID   int
	Type NodeType

	// Request is set for network nodes.
	Request *model.NetworkRequest

	// Task is the arena index of the top-level task for CPU nodes, -1 for
	// network nodes.
	Task int

	// SelfTimeByGroup breaks a CPU node's subtree self-time down by group,
	// in milliseconds, so throttling multipliers can be applied per group.
	SelfTimeByGroup map[TaskGroup]float64

	// SubtreeURLs are the candidate URLs appearing anywhere in a CPU
	// node's task subtree.
	SubtreeURLs map[string]bool

	// StartTime and EndTime are the observed times from the capture, in
	// milliseconds since the time origin. Simulated times live in
	// SimulationResult, never on the node itself.
	StartTime float64
	EndTime   float64

	Dependencies []int
	Dependents   []int
}

// Graph is the directed acyclic dependency graph over one navigation. The
// graph owns its nodes; simulation runs only read it, publishing their
// timings separately.
type Graph struct {
	Nodes []*Node
	Root  int

	tasks []Task
}

// TaskArena returns the task list the graph was built from.
func (g *Graph) TaskArena() []Task { return g.tasks }

// NodeForRequestID returns the network node carrying the request with the
// given (possibly redirect-suffixed) id, or nil.
func (g *Graph) NodeForRequestID(id string) *Node {
	for _, n := range g.Nodes {
		if n.Type == NetworkNode && n.Request.RequestID == id {
			return n
		}
	}
	return nil
}

// NodeForURL returns the first network node whose request URL matches, or
// nil. Redirect hops share a URL only at distinct chain positions, so
// first match in graph order is the earliest.
func (g *Graph) NodeForURL(url string) *Node {
	for _, n := range g.Nodes {
		if n.Type == NetworkNode && n.Request.URL == url {
			return n
		}
	}
	return nil
}

// BuildGraph combines parsed requests and tasks into a single DAG rooted at
// the document request. It fails with ErrNoDocumentRequest when no root can
// be identified and ErrCyclicGraph when edge construction loops.
func BuildGraph(requests []*model.NetworkRequest, tasks []Task, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Graph{tasks: tasks}
	nodeByRecord := make(map[*model.NetworkRequest]*Node)
	nodeByURL := make(map[string]*Node)

	for _, r := range requests {
		if r.Failed {
			continue
		}
		n := &Node{
			ID:        len(g.Nodes),
			Type:      NetworkNode,
			Request:   r,
			Task:      -1,
			StartTime: r.RendererStartTime,
			EndTime:   r.NetworkEndTime,
		}
		g.Nodes = append(g.Nodes, n)
		nodeByRecord[r] = n
		if _, ok := nodeByURL[r.URL]; !ok {
			nodeByURL[r.URL] = n
		}
	}

	root := findDocumentNode(g.Nodes, requests)
	if root == nil {
		return nil, ErrNoDocumentRequest
	}
	g.Root = root.ID

	// CPU nodes: one per top-level task, with subtree rollups
	for i := range tasks {
		if tasks[i].Parent != -1 {
			continue
		}
		n := &Node{
			ID:              len(g.Nodes),
			Type:            CPUNode,
			Task:            i,
			SelfTimeByGroup: make(map[TaskGroup]float64),
			SubtreeURLs:     make(map[string]bool),
			StartTime:       tasks[i].StartTime,
			EndTime:         tasks[i].EndTime,
		}
		rollupSubtree(n, tasks, i)
		g.Nodes = append(g.Nodes, n)
	}

	addEdge := func(from, to *Node) {
		if from == nil || to == nil || from == to {
			return
		}
		for _, d := range to.Dependencies {
			if d == from.ID {
				return
			}
		}
		to.Dependencies = append(to.Dependencies, from.ID)
		from.Dependents = append(from.Dependents, to.ID)
	}

	// network edges: redirect predecessors and initiators
	for _, n := range g.Nodes {
		if n.Type != NetworkNode || n == root {
			continue
		}
		r := n.Request

		if r.RedirectSource != nil {
			addEdge(nodeByRecord[r.RedirectSource], n)
			continue
		}

		switch r.Initiator.Type {
		case "redirect":
			addEdge(nodeByURL[r.Initiator.URL], n)
		case "script":
			if cpu := issuingCPUNode(g, r); cpu != nil {
				addEdge(cpu, n)
			} else if r.Initiator.URL != "" {
				addEdge(nodeByURL[r.Initiator.URL], n)
			}
		case "parser", "preload":
			addEdge(nodeByURL[r.Initiator.URL], n)
		}

		if len(n.Dependencies) == 0 {
			addEdge(root, n)
		}
	}

	// CPU edges: a task consuming a response depends on the request; a
	// task with no network anchor hangs off the document
	for _, n := range g.Nodes {
		if n.Type != CPUNode {
			continue
		}
		// sorted so edge (and therefore Dependents) order never follows map
		// iteration; two builds of the same input must yield the same graph
		urls := make([]string, 0, len(n.SubtreeURLs))
		for url := range n.SubtreeURLs {
			urls = append(urls, url)
		}
		sort.Strings(urls)
		for _, url := range urls {
			dep := nodeByURL[url]
			if dep == nil || dep == n {
				continue
			}
			if dep.Request.NetworkEndTime >= 0 && dep.Request.NetworkEndTime <= n.StartTime {
				addEdge(dep, n)
			}
		}
		if len(n.Dependencies) == 0 {
			addEdge(root, n)
		}
	}

	if err := verifyAcyclic(g); err != nil {
		return nil, err
	}
	return g, nil
}

func findDocumentNode(nodes []*Node, requests []*model.NetworkRequest) *Node {
	for _, n := range nodes {
		if n.Type != NetworkNode {
			continue
		}
		r := n.Request
		if r.ResourceType == model.ResourceDocument && r.RedirectSource == nil {
			// the root of a redirect chain is still the document request
			return n
		}
	}
	return nil
}

// issuingCPUNode finds the CPU node whose execution window covers the
// moment the renderer issued the request and whose subtree touches the
// initiator's script URL.
func issuingCPUNode(g *Graph, r *model.NetworkRequest) *Node {
	initiatorURL := r.Initiator.URL
	if initiatorURL == "" && r.Initiator.Stack != nil && len(r.Initiator.Stack.CallFrames) > 0 {
		initiatorURL = r.Initiator.Stack.CallFrames[0].URL
	}
	for _, n := range g.Nodes {
		if n.Type != CPUNode {
			continue
		}
		if n.StartTime <= r.RendererStartTime && r.RendererStartTime <= n.EndTime {
			if initiatorURL == "" || n.SubtreeURLs[initiatorURL] {
				return n
			}
		}
	}
	return nil
}

func rollupSubtree(n *Node, tasks []Task, idx int) {
	t := &tasks[idx]
	n.SelfTimeByGroup[t.Group] += t.SelfTime
	for _, u := range t.AttributableURLs {
		n.SubtreeURLs[u] = true
	}
	for _, c := range t.Children {
		rollupSubtree(n, tasks, c)
	}
}

// verifyAcyclic runs Kahn's algorithm; any node left with unsatisfied
// dependencies sits on a cycle.
func verifyAcyclic(g *Graph) error {
	indegree := make([]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n.ID] = len(n.Dependencies)
	}

	queue := make([]int, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, d := range g.Nodes[id].Dependents {
			indegree[d]--
			if indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if visited != len(g.Nodes) {
		return fmt.Errorf("%w: %d of %d nodes unreachable by topological order",
			ErrCyclicGraph, len(g.Nodes)-visited, len(g.Nodes))
	}
	return nil
}

// TopoOrder returns node ids in a deterministic topological order,
// dependency-count first with graph id as the stable tie-break.
func (g *Graph) TopoOrder() []int {
	indegree := make([]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n.ID] = len(n.Dependencies)
	}
	order := make([]int, 0, len(g.Nodes))
	queue := make([]int, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, d := range g.Nodes[id].Dependents {
			indegree[d]--
			if indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	return order
}
