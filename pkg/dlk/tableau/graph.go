package tableau

import (
	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/rbox"
)

type nodeID int32

const none nodeID = -1

type nodeKind uint8

const (
	blockable nodeKind = iota
	nominal
	dataNode
)

// entry is a label element. Universal restrictions over complex roles
// carry the automaton state they have reached; everything else has q 0.
type entry struct {
	c expr.Handle
	q int32
}

type edge struct {
	to   nodeID
	role rbox.Role
	deps DepSet
}

type dataEdge struct {
	to   nodeID
	role rbox.DataRole
	deps DepSet
}

type node struct {
	id     nodeID
	kind   nodeKind
	parent nodeID
	depth  int

	order []entry
	label map[entry]DepSet

	edges     []edge
	dataEdges []dataEdge
	applied   map[expr.Handle]bool

	// merged points at the node this one was merged into; removed nodes
	// were pruned with their subtree.
	merged    nodeID
	mergeDeps DepSet
	removed   bool
}

func (n *node) live() bool { return n.merged == none && !n.removed }

func (n *node) has(c expr.Handle) bool {
	_, ok := n.label[entry{c: c}]
	return ok
}

func (n *node) copy() *node {
	m := *n
	m.order = append([]entry(nil), n.order...)
	m.label = make(map[entry]DepSet, len(n.label))
	for k, v := range n.label {
		m.label[k] = v
	}
	m.edges = append([]edge(nil), n.edges...)
	m.dataEdges = append([]dataEdge(nil), n.dataEdges...)
	if n.applied != nil {
		m.applied = make(map[expr.Handle]bool, len(n.applied))
		for k, v := range n.applied {
			m.applied[k] = v
		}
	}
	return &m
}

type pair [2]nodeID

func mkPair(a, b nodeID) pair {
	if b < a {
		a, b = b, a
	}
	return pair{a, b}
}

// graph is a completion graph. Clones share nodes until one side writes
// to them.
type graph struct {
	nodes    []*node
	owned    []bool
	neq      map[pair]DepSet
	nominals map[expr.Handle]nodeID
	queue    []nodeID
	queued   map[nodeID]bool
	level    int
	live     int
}

func newGraph() *graph {
	return &graph{
		neq:      make(map[pair]DepSet),
		nominals: make(map[expr.Handle]nodeID),
		queued:   make(map[nodeID]bool),
	}
}

func (g *graph) clone() *graph {
	h := &graph{
		nodes:    append([]*node(nil), g.nodes...),
		owned:    make([]bool, len(g.nodes)),
		neq:      make(map[pair]DepSet, len(g.neq)),
		nominals: make(map[expr.Handle]nodeID, len(g.nominals)),
		queue:    append([]nodeID(nil), g.queue...),
		queued:   make(map[nodeID]bool, len(g.queued)),
		level:    g.level,
		live:     g.live,
	}
	for k, v := range g.neq {
		h.neq[k] = v
	}
	for k, v := range g.nominals {
		h.nominals[k] = v
	}
	for k, v := range g.queued {
		h.queued[k] = v
	}
	// the original keeps using its nodes, so neither side owns them now
	for i := range g.owned {
		g.owned[i] = false
	}
	return h
}

// get returns a node for reading.
func (g *graph) get(id nodeID) *node { return g.nodes[id] }

// mut returns a node for writing, copying it first if it is shared.
func (g *graph) mut(id nodeID) *node {
	if !g.owned[id] {
		g.nodes[id] = g.nodes[id].copy()
		g.owned[id] = true
	}
	return g.nodes[id]
}

func (g *graph) newNode(kind nodeKind, parent nodeID) *node {
	n := &node{
		id:     nodeID(len(g.nodes)),
		kind:   kind,
		parent: parent,
		label:  make(map[entry]DepSet),
		merged: none,
	}
	if parent != none {
		n.depth = g.nodes[parent].depth + 1
	}
	g.nodes = append(g.nodes, n)
	g.owned = append(g.owned, true)
	g.live++
	g.enqueue(n.id)
	return n
}

func (g *graph) enqueue(id nodeID) {
	if !g.queued[id] {
		g.queued[id] = true
		g.queue = append(g.queue, id)
	}
}

func (g *graph) dequeue() (nodeID, bool) {
	for len(g.queue) > 0 {
		id := g.queue[0]
		g.queue = g.queue[1:]
		delete(g.queued, id)
		if g.nodes[id].live() {
			return id, true
		}
	}
	return none, false
}

// find follows merge links to the live representative.
func (g *graph) find(id nodeID) (nodeID, DepSet) {
	var deps DepSet
	for {
		n := g.nodes[id]
		if n.merged == none {
			return id, deps
		}
		deps = deps.Union(n.mergeDeps)
		id = n.merged
	}
}

func (g *graph) distinct(a, b nodeID) (DepSet, bool) {
	d, ok := g.neq[mkPair(a, b)]
	return d, ok
}

func (g *graph) setDistinct(a, b nodeID, deps DepSet) {
	p := mkPair(a, b)
	if _, ok := g.neq[p]; !ok {
		g.neq[p] = deps
	}
}

// edgesTo returns the roles of the edges from x to y.
func (g *graph) edgesTo(x, y nodeID) []edge {
	var out []edge
	for _, e := range g.nodes[x].edges {
		if e.to == y {
			out = append(out, e)
		}
	}
	return out
}

// removeEdgesTo drops every edge of x that points at y.
func (g *graph) removeEdgesTo(x, y nodeID) {
	n := g.mut(x)
	kept := n.edges[:0]
	for _, e := range n.edges {
		if e.to != y {
			kept = append(kept, e)
		}
	}
	n.edges = kept
	dkept := n.dataEdges[:0]
	for _, e := range n.dataEdges {
		if e.to != y {
			dkept = append(dkept, e)
		}
	}
	n.dataEdges = dkept
}
