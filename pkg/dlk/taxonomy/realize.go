package taxonomy

import (
	"context"
	"fmt"
	"sort"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// Realization maps individuals to the taxonomy nodes of their most
// specific types.
type Realization struct {
	tax    *Taxonomy
	direct map[expr.Handle][]int
	tests  int
}

// Tests returns the number of instance checks the realization ran.
func (r *Realization) Tests() int { return r.tests }

// Individuals returns the realized individuals in handle order.
func (r *Realization) Individuals() []expr.Handle {
	out := make([]expr.Handle, 0, len(r.direct))
	for a := range r.direct {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether a has been realized.
func (r *Realization) Contains(a expr.Handle) bool {
	_, ok := r.direct[a]
	return ok
}

// Types returns the synonym sets of the types of a. Indirect types
// include Top.
func (r *Realization) Types(a expr.Handle, direct bool) [][]expr.Handle {
	ids := r.typeIDs(a, direct)
	return r.tax.Members(ids)
}

func (r *Realization) typeIDs(a expr.Handle, direct bool) []int {
	ds := r.direct[a]
	if direct {
		return sorted(ds)
	}
	set := make(map[int]bool)
	for _, d := range ds {
		set[d] = true
		for _, x := range r.tax.Ancestors(d) {
			set[x] = true
		}
	}
	out := make([]int, 0, len(set))
	for x := range set {
		out = append(out, x)
	}
	sort.Ints(out)
	return out
}

// Instances returns the individuals of node id: those whose most specific
// types include it, or with direct false any node below it.
func (r *Realization) Instances(id int, direct bool) []expr.Handle {
	want := map[int]bool{id: true}
	if !direct {
		for _, d := range r.tax.Descendants(id) {
			want[d] = true
		}
	}
	var out []expr.Handle
	for a, ds := range r.direct {
		for _, d := range ds {
			if want[d] {
				out = append(out, a)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Realize computes the most specific types of every individual with a
// top-down search over tax that only descends below confirmed types.
func Realize(ctx context.Context, oracle Oracle, mon Monitor, tax *Taxonomy, individuals []expr.Handle) (*Realization, error) {
	if mon == nil {
		mon = NopMonitor{}
	}
	ok, err := oracle.Consistent(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("realize: %w", internalerr.ErrInconsistentKB)
	}
	r := &Realization{tax: tax, direct: make(map[expr.Handle][]int, len(individuals))}
	mon.Started(len(individuals))
	for _, a := range individuals {
		if err := checkAbort(ctx, mon); err != nil {
			return nil, err
		}
		ds, err := r.realize(ctx, oracle, a)
		if err != nil {
			return nil, err
		}
		r.direct[a] = ds
		mon.Progress()
	}
	mon.Finished()
	return r, nil
}

func (r *Realization) realize(ctx context.Context, oracle Oracle, a expr.Handle) ([]int, error) {
	holds := map[int]bool{topID: true}
	check := func(id int) (bool, error) {
		if v, ok := holds[id]; ok {
			return v, nil
		}
		n := r.tax.nodes[id]
		for _, p := range n.Parents {
			if v, known := holds[p]; known && !v {
				holds[id] = false
				return false, nil
			}
		}
		r.tests++
		v, err := oracle.IsInstance(ctx, a, n.Members[0])
		if err != nil {
			return false, err
		}
		holds[id] = v
		return v, nil
	}

	visited := make(map[int]bool)
	var out []int
	var search func(id int) error
	search = func(id int) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		found := false
		for _, ch := range sorted(r.tax.nodes[id].Children) {
			if ch == bottomID {
				continue
			}
			ok, err := check(ch)
			if err != nil {
				return err
			}
			if ok {
				found = true
				if err := search(ch); err != nil {
					return err
				}
			}
		}
		if !found {
			out = append(out, id)
		}
		return nil
	}
	if err := search(topID); err != nil {
		return nil, err
	}
	var direct []int
	for _, x := range out {
		keep := true
		for _, y := range out {
			if x != y && r.tax.IsAncestor(x, y) {
				keep = false
				break
			}
		}
		if keep {
			direct = append(direct, x)
		}
	}
	sort.Ints(direct)
	return direct, nil
}
