// Package taxonomy builds the subsumption hierarchy of named classes and
// the most specific types of individuals on top of a satisfiability
// oracle.
package taxonomy

import (
	"sort"

	"github.com/cognicore/dlk/pkg/dlk/expr"
)

// Node is a set of equivalent classes.
type Node struct {
	ID       int
	Members  []expr.Handle
	Parents  []int
	Children []int
}

// Taxonomy is a DAG between a Top and a Bottom node.
type Taxonomy struct {
	nodes []*Node
	index map[expr.Handle]int
}

const (
	topID    = 0
	bottomID = 1
)

// New returns the taxonomy with only Top above Bottom.
func New() *Taxonomy {
	t := &Taxonomy{index: make(map[expr.Handle]int)}
	top := &Node{ID: topID, Members: []expr.Handle{expr.Top}, Children: []int{bottomID}}
	bottom := &Node{ID: bottomID, Members: []expr.Handle{expr.Bottom}, Parents: []int{topID}}
	t.nodes = []*Node{top, bottom}
	t.index[expr.Top] = topID
	t.index[expr.Bottom] = bottomID
	return t
}

// Top returns the node of owl:Thing.
func (t *Taxonomy) Top() *Node { return t.nodes[topID] }

// Bottom returns the node of owl:Nothing and every unsatisfiable class.
func (t *Taxonomy) Bottom() *Node { return t.nodes[bottomID] }

// Nodes returns every node, Top and Bottom first.
func (t *Taxonomy) Nodes() []*Node { return t.nodes }

// Node returns a node by ID.
func (t *Taxonomy) Node(id int) *Node { return t.nodes[id] }

// NodeOf returns the node holding class h.
func (t *Taxonomy) NodeOf(h expr.Handle) (*Node, bool) {
	id, ok := t.index[h]
	if !ok {
		return nil, false
	}
	return t.nodes[id], true
}

// Contains reports whether h has been classified.
func (t *Taxonomy) Contains(h expr.Handle) bool {
	_, ok := t.index[h]
	return ok
}

// Len returns the number of classified classes, sentinels included.
func (t *Taxonomy) Len() int { return len(t.index) }

func (t *Taxonomy) join(id int, h expr.Handle) {
	n := t.nodes[id]
	n.Members = append(n.Members, h)
	sort.Slice(n.Members, func(i, j int) bool { return n.Members[i] < n.Members[j] })
	t.index[h] = id
}

// insert adds a node for h between parents and children, dropping the
// direct links it now sits on.
func (t *Taxonomy) insert(h expr.Handle, parents, children []int) *Node {
	n := &Node{ID: len(t.nodes), Members: []expr.Handle{h}}
	t.nodes = append(t.nodes, n)
	t.index[h] = n.ID
	if len(children) == 0 {
		children = []int{bottomID}
	}
	for _, p := range parents {
		for _, c := range children {
			t.unlink(p, c)
		}
	}
	for _, p := range parents {
		t.link(p, n.ID)
	}
	for _, c := range children {
		t.link(n.ID, c)
	}
	return n
}

func (t *Taxonomy) link(parent, child int) {
	p, c := t.nodes[parent], t.nodes[child]
	for _, x := range p.Children {
		if x == child {
			return
		}
	}
	p.Children = append(p.Children, child)
	c.Parents = append(c.Parents, parent)
}

func (t *Taxonomy) unlink(parent, child int) {
	p, c := t.nodes[parent], t.nodes[child]
	p.Children = remove(p.Children, child)
	c.Parents = remove(c.Parents, parent)
}

func remove(xs []int, x int) []int {
	out := xs[:0]
	for _, y := range xs {
		if y != x {
			out = append(out, y)
		}
	}
	return out
}

// walk collects the nodes reachable from id through next, id excluded.
func (t *Taxonomy) walk(id int, next func(*Node) []int) []int {
	seen := map[int]bool{id: true}
	var out []int
	stack := append([]int(nil), next(t.nodes[id])...)
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
		stack = append(stack, next(t.nodes[x])...)
	}
	sort.Ints(out)
	return out
}

// Ancestors returns the IDs of every strict ancestor of id.
func (t *Taxonomy) Ancestors(id int) []int {
	return t.walk(id, func(n *Node) []int { return n.Parents })
}

// Descendants returns the IDs of every strict descendant of id.
func (t *Taxonomy) Descendants(id int) []int {
	return t.walk(id, func(n *Node) []int { return n.Children })
}

// IsAncestor reports whether a is a strict ancestor of d.
func (t *Taxonomy) IsAncestor(a, d int) bool {
	for _, x := range t.Ancestors(d) {
		if x == a {
			return true
		}
	}
	return false
}

// Members returns the member lists of the given nodes, ordered by their
// first member so the result does not depend on insertion order.
func (t *Taxonomy) Members(ids []int) [][]expr.Handle {
	out := make([][]expr.Handle, 0, len(ids))
	for _, id := range ids {
		out = append(out, append([]expr.Handle(nil), t.nodes[id].Members...))
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Supers returns the synonym sets above node id.
func (t *Taxonomy) Supers(id int, direct bool) [][]expr.Handle {
	if direct {
		return t.Members(sorted(t.nodes[id].Parents))
	}
	return t.Members(t.Ancestors(id))
}

// Subs returns the synonym sets below node id.
func (t *Taxonomy) Subs(id int, direct bool) [][]expr.Handle {
	if direct {
		return t.Members(sorted(t.nodes[id].Children))
	}
	return t.Members(t.Descendants(id))
}

func sorted(xs []int) []int {
	out := append([]int(nil), xs...)
	sort.Ints(out)
	return out
}
