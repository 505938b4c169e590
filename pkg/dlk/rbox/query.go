package rbox

import (
	"sort"

	"github.com/cognicore/dlk/pkg/dlk/expr"
)

// order is a preorder over role indices.
type order struct {
	n      int
	le     func(a, b int) bool
	handle func(i int) expr.Handle
}

func (o order) equiv(a, b int) bool { return o.le(a, b) && o.le(b, a) }

func (o order) group(is []int) [][]expr.Handle {
	var reps []int
	for _, i := range is {
		dup := false
		for _, r := range reps {
			if o.equiv(i, r) {
				dup = true
				break
			}
		}
		if !dup {
			reps = append(reps, i)
		}
	}
	out := make([][]expr.Handle, 0, len(reps))
	for _, r := range reps {
		out = append(out, o.members(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func (o order) members(i int) []expr.Handle {
	var out []expr.Handle
	for j := 0; j < o.n; j++ {
		if o.equiv(i, j) {
			out = append(out, o.handle(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// strict returns the indices strictly above (up) or below i.
func (o order) strict(i int, up, direct bool) []int {
	rel := func(a, b int) bool {
		if up {
			return o.le(a, b)
		}
		return o.le(b, a)
	}
	var cand []int
	for j := 0; j < o.n; j++ {
		if rel(i, j) && !rel(j, i) {
			cand = append(cand, j)
		}
	}
	if !direct {
		return cand
	}
	var out []int
	for _, c := range cand {
		covered := false
		for _, d := range cand {
			if rel(d, c) && !rel(c, d) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, c)
		}
	}
	return out
}

func (rb *RBox) objectOrder() order {
	return order{
		n:      2 * len(rb.names),
		le:     func(a, b int) bool { return rb.IsSubRole(Role(a), Role(b)) },
		handle: func(i int) expr.Handle { return rb.Handle(Role(i)) },
	}
}

func (rb *RBox) dataOrder() order {
	return order{
		n:      len(rb.dnames),
		le:     func(a, b int) bool { return rb.IsSubDataRole(DataRole(a), DataRole(b)) },
		handle: func(i int) expr.Handle { return rb.dnames[i] },
	}
}

// hierarchy answers a super/sub query over o, treating top and bottom as
// the extreme elements.
func hierarchy(o order, i int, up, direct bool, top, bottom expr.Handle) [][]expr.Handle {
	out := o.group(o.strict(i, up, direct))
	extreme := bottom
	if up {
		extreme = top
	}
	if !direct || len(out) == 0 {
		out = append(out, []expr.Handle{extreme})
	}
	return out
}

// everything answers a query from the bottom (up) or top element, where
// every named role is a candidate.
func everything(o order, up, direct bool, extreme expr.Handle) [][]expr.Handle {
	var keep []int
	for i := 0; i < o.n; i++ {
		if !direct || len(o.strict(i, !up, false)) == 0 {
			keep = append(keep, i)
		}
	}
	out := o.group(keep)
	if !direct || len(out) == 0 {
		out = append(out, []expr.Handle{extreme})
	}
	return out
}

// SuperRoles returns the equivalence classes strictly above the object
// role h. Direct restricts the answer to the immediate parents.
func (rb *RBox) SuperRoles(h expr.Handle, direct bool) ([][]expr.Handle, error) {
	switch h {
	case expr.TopObjectRole:
		return nil, nil
	case expr.BottomObjectRole:
		return everything(rb.objectOrder(), true, direct, expr.TopObjectRole), nil
	}
	r, err := rb.Role(h)
	if err != nil {
		return nil, err
	}
	return hierarchy(rb.objectOrder(), int(r), true, direct, expr.TopObjectRole, expr.BottomObjectRole), nil
}

// SubRoles returns the equivalence classes strictly below the object role h.
func (rb *RBox) SubRoles(h expr.Handle, direct bool) ([][]expr.Handle, error) {
	switch h {
	case expr.BottomObjectRole:
		return nil, nil
	case expr.TopObjectRole:
		return everything(rb.objectOrder(), false, direct, expr.BottomObjectRole), nil
	}
	r, err := rb.Role(h)
	if err != nil {
		return nil, err
	}
	return hierarchy(rb.objectOrder(), int(r), false, direct, expr.TopObjectRole, expr.BottomObjectRole), nil
}

// EquivalentRoles returns the roles equivalent to h, h included.
func (rb *RBox) EquivalentRoles(h expr.Handle) ([]expr.Handle, error) {
	if h == expr.TopObjectRole || h == expr.BottomObjectRole {
		return []expr.Handle{h}, nil
	}
	r, err := rb.Role(h)
	if err != nil {
		return nil, err
	}
	return rb.objectOrder().members(int(r)), nil
}

// SuperDataRoles is the data property analogue of SuperRoles.
func (rb *RBox) SuperDataRoles(h expr.Handle, direct bool) ([][]expr.Handle, error) {
	switch h {
	case expr.TopDataRole:
		return nil, nil
	case expr.BottomDataRole:
		return everything(rb.dataOrder(), true, direct, expr.TopDataRole), nil
	}
	u, err := rb.DataRole(h)
	if err != nil {
		return nil, err
	}
	return hierarchy(rb.dataOrder(), int(u), true, direct, expr.TopDataRole, expr.BottomDataRole), nil
}

// SubDataRoles is the data property analogue of SubRoles.
func (rb *RBox) SubDataRoles(h expr.Handle, direct bool) ([][]expr.Handle, error) {
	switch h {
	case expr.BottomDataRole:
		return nil, nil
	case expr.TopDataRole:
		return everything(rb.dataOrder(), false, direct, expr.BottomDataRole), nil
	}
	u, err := rb.DataRole(h)
	if err != nil {
		return nil, err
	}
	return hierarchy(rb.dataOrder(), int(u), false, direct, expr.TopDataRole, expr.BottomDataRole), nil
}

// EquivalentDataRoles returns the data roles equivalent to h, h included.
func (rb *RBox) EquivalentDataRoles(h expr.Handle) ([]expr.Handle, error) {
	if h == expr.TopDataRole || h == expr.BottomDataRole {
		return []expr.Handle{h}, nil
	}
	u, err := rb.DataRole(h)
	if err != nil {
		return nil, err
	}
	return rb.dataOrder().members(int(u)), nil
}
