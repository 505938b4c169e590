package rbox

import "fmt"

// Transition moves along an edge whose role is a sub-role of Role.
type Transition struct {
	Role Role
	To   int
}

// Automaton recognises the role paths that a universal restriction over
// its role must follow. State 0 is initial.
type Automaton struct {
	Final []bool
	Trans [][]Transition
}

// Simple reports whether the automaton is the single step 0 -r-> 1.
func (a *Automaton) Simple() bool {
	return len(a.Final) == 2 && len(a.Trans[0]) == 1 && len(a.Trans[1]) == 0
}

type nfaEdge struct {
	from, to int
	role     Role
	eps      bool
}

type nfa struct {
	states int
	edges  []nfaEdge
}

func (m *nfa) state() int {
	m.states++
	return m.states - 1
}

func (m *nfa) step(from, to int, r Role) {
	m.edges = append(m.edges, nfaEdge{from: from, to: to, role: r})
}

func (m *nfa) eps(from, to int) {
	m.edges = append(m.edges, nfaEdge{from: from, to: to, eps: true})
}

const maxAutomatonDepth = 64

// Automaton returns the automaton for ∀r.C propagation.
func (rb *RBox) Automaton(r Role) *Automaton {
	if a, ok := rb.automata[r]; ok {
		return a
	}
	m := &nfa{}
	from, to := m.state(), m.state()
	rb.build(m, r, from, to, 0)
	a := m.determinizeEps(from, to)
	rb.automata[r] = a
	return a
}

// build adds the paths of r between from and to. Callers pass states
// reserved for r.
func (rb *RBox) build(m *nfa, r Role, from, to int, depth int) {
	if depth > maxAutomatonDepth {
		panic(fmt.Sprintf("rbox: automaton for role %d exceeds depth %d", r, maxAutomatonDepth))
	}
	m.step(from, to, r)
	if rb.IsSimple(r) {
		return
	}
	for _, c := range rb.chains {
		if !rb.same(c.sup, r) {
			continue
		}
		n := len(c.roles)
		switch {
		case n == 2 && rb.same(c.roles[0], r) && rb.same(c.roles[1], r):
			m.eps(to, from)
		case rb.same(c.roles[0], r):
			rb.path(m, c.roles[1:], to, to, depth)
		case rb.same(c.roles[n-1], r):
			rb.path(m, c.roles[:n-1], from, from, depth)
		default:
			rb.path(m, c.roles, from, to, depth)
		}
	}
	// complex sub-roles contribute their own paths
	for s := 0; s < rb.n; s++ {
		sr := Role(s)
		if rb.class[s] != s || rb.same(sr, r) || !rb.supers[s][r] || rb.IsSimple(sr) {
			continue
		}
		i, f := m.state(), m.state()
		m.eps(from, i)
		m.eps(f, to)
		rb.build(m, sr, i, f, depth+1)
	}
}

func (rb *RBox) path(m *nfa, roles []Role, from, to int, depth int) {
	cur := from
	for k, s := range roles {
		i, f := m.state(), m.state()
		m.eps(cur, i)
		rb.build(m, s, i, f, depth+1)
		if k == len(roles)-1 {
			m.eps(f, to)
		} else {
			cur = m.state()
			m.eps(f, cur)
		}
	}
}

// determinizeEps removes ε-edges and unreachable states. State 0 of the
// result corresponds to start.
func (m *nfa) determinizeEps(start, final int) *Automaton {
	epsOut := make([][]int, m.states)
	stepOut := make([][]nfaEdge, m.states)
	for _, e := range m.edges {
		if e.eps {
			epsOut[e.from] = append(epsOut[e.from], e.to)
		} else {
			stepOut[e.from] = append(stepOut[e.from], e)
		}
	}
	closure := func(q int) []int {
		seen := map[int]bool{q: true}
		out := []int{q}
		for i := 0; i < len(out); i++ {
			for _, w := range epsOut[out[i]] {
				if !seen[w] {
					seen[w] = true
					out = append(out, w)
				}
			}
		}
		return out
	}

	index := map[int]int{start: 0}
	order := []int{start}
	a := &Automaton{}
	for i := 0; i < len(order); i++ {
		q := order[i]
		fin := false
		var trans []Transition
		seen := make(map[Transition]bool)
		for _, p := range closure(q) {
			if p == final {
				fin = true
			}
			for _, e := range stepOut[p] {
				id, ok := index[e.to]
				if !ok {
					id = len(order)
					index[e.to] = id
					order = append(order, e.to)
				}
				t := Transition{Role: e.role, To: id}
				if !seen[t] {
					seen[t] = true
					trans = append(trans, t)
				}
			}
		}
		a.Final = append(a.Final, fin)
		a.Trans = append(a.Trans, trans)
	}
	return a
}
