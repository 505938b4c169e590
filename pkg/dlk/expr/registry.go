package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/dlk/pkg/dlk/internalerr"
)

// node is one arena slot. Leaves carry a key, composites carry args.
type node struct {
	op   Op
	sort Sort
	key  string
	n    int
	args []Handle
}

// Registry interns entities and expressions into an arena of handles.
// Structurally equal expressions share one handle.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	nodes    []node
	intern   map[string]Handle
	entities map[EntityKind]map[string]Handle
	byKind   map[EntityKind][]Handle

	nnf map[Handle]Handle
	neg map[Handle]Handle

	args argBuffer
}

// NewRegistry returns a registry holding only the sentinels.
func NewRegistry() *Registry {
	r := &Registry{
		nodes:    make([]node, 1, 256),
		intern:   make(map[string]Handle, 256),
		entities: make(map[EntityKind]map[string]Handle, 5),
		byKind:   make(map[EntityKind][]Handle, 5),
		nnf:      make(map[Handle]Handle, 256),
		neg:      make(map[Handle]Handle, 256),
	}
	for _, k := range []EntityKind{KindClass, KindObjectProperty, KindDataProperty, KindIndividual, KindDatatype} {
		r.entities[k] = make(map[string]Handle)
	}

	r.add(node{op: OpTop, sort: SortConcept, key: IRIThing})
	r.add(node{op: OpBottom, sort: SortConcept, key: IRINothing})
	r.add(node{op: OpTopObjectRole, sort: SortObjectRole, key: IRITopObjectProperty})
	r.add(node{op: OpBottomObjectRole, sort: SortObjectRole, key: IRIBottomObjectProperty})
	r.add(node{op: OpTopDataRole, sort: SortDataRole, key: IRITopDataProperty})
	r.add(node{op: OpBottomDataRole, sort: SortDataRole, key: IRIBottomDataProperty})
	r.add(node{op: OpDatatype, sort: SortDataRange, key: IRILiteral})

	r.entities[KindClass][IRIThing] = Top
	r.entities[KindClass][IRINothing] = Bottom
	r.entities[KindObjectProperty][IRITopObjectProperty] = TopObjectRole
	r.entities[KindObjectProperty][IRIBottomObjectProperty] = BottomObjectRole
	r.entities[KindDataProperty][IRITopDataProperty] = TopDataRole
	r.entities[KindDataProperty][IRIBottomDataProperty] = BottomDataRole
	r.entities[KindDatatype][IRILiteral] = TopDatatype
	return r
}

func (r *Registry) add(n node) Handle {
	h := Handle(len(r.nodes))
	r.nodes = append(r.nodes, n)
	r.intern[structKey(n)] = h
	return h
}

// structKey renders the structural identity of a node.
func structKey(n node) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(n.op)))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(n.n))
	b.WriteByte('|')
	b.WriteString(strconv.Quote(n.key))
	for _, a := range n.args {
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(uint64(a), 36))
	}
	return b.String()
}

// hashCons interns a node, returning the existing handle for equal structure.
func (r *Registry) hashCons(n node) Handle {
	if h, ok := r.intern[structKey(n)]; ok {
		return h
	}
	return r.add(n)
}

var kindOps = map[EntityKind]struct {
	op   Op
	sort Sort
}{
	KindClass:          {OpClass, SortConcept},
	KindObjectProperty: {OpObjectRole, SortObjectRole},
	KindDataProperty:   {OpDataRole, SortDataRole},
	KindIndividual:     {OpIndividual, SortIndividual},
	KindDatatype:       {OpDatatype, SortDataRange},
}

// Entity registers a named entity, returning the same handle for the same
// kind and key.
func (r *Registry) Entity(kind EntityKind, key string) (Handle, error) {
	ko, ok := kindOps[kind]
	if !ok {
		return Invalid, fmt.Errorf("entity kind %d: %w", kind, internalerr.ErrUsage)
	}
	if key == "" {
		return Invalid, fmt.Errorf("%s with empty key: %w", kind, internalerr.ErrUsage)
	}
	if h, ok := r.entities[kind][key]; ok {
		return h, nil
	}
	h := r.add(node{op: ko.op, sort: ko.sort, key: key})
	r.entities[kind][key] = h
	r.byKind[kind] = append(r.byKind[kind], h)
	return h, nil
}

// Lookup returns a previously registered entity without creating it.
func (r *Registry) Lookup(kind EntityKind, key string) (Handle, bool) {
	h, ok := r.entities[kind][key]
	return h, ok
}

// Class registers a class. Empty keys yield Invalid.
func (r *Registry) Class(key string) Handle { return r.mustEntity(KindClass, key) }

// ObjectProperty registers an object property.
func (r *Registry) ObjectProperty(key string) Handle {
	return r.mustEntity(KindObjectProperty, key)
}

// DataProperty registers a data property.
func (r *Registry) DataProperty(key string) Handle { return r.mustEntity(KindDataProperty, key) }

// Individual registers a named individual.
func (r *Registry) Individual(key string) Handle { return r.mustEntity(KindIndividual, key) }

// Datatype registers a datatype.
func (r *Registry) Datatype(key string) Handle { return r.mustEntity(KindDatatype, key) }

func (r *Registry) mustEntity(kind EntityKind, key string) Handle {
	h, err := r.Entity(kind, key)
	if err != nil {
		return Invalid
	}
	return h
}

// Entities returns the user-registered entities of a kind in registration
// order. Sentinels are not included.
func (r *Registry) Entities(kind EntityKind) []Handle {
	out := make([]Handle, len(r.byKind[kind]))
	copy(out, r.byKind[kind])
	return out
}

// Valid reports whether h names a slot of this registry.
func (r *Registry) Valid(h Handle) bool {
	return h != Invalid && int(h) < len(r.nodes)
}

// Len returns the number of arena slots in use, including the reserved zero slot.
func (r *Registry) Len() int { return len(r.nodes) }

// Op returns the constructor of h.
func (r *Registry) Op(h Handle) Op {
	if !r.Valid(h) {
		return OpInvalid
	}
	return r.nodes[h].op
}

// Sort returns the syntactic category of h.
func (r *Registry) Sort(h Handle) Sort {
	if !r.Valid(h) {
		return SortInvalid
	}
	return r.nodes[h].sort
}

// Args returns the operands of h. The slice must not be modified.
func (r *Registry) Args(h Handle) []Handle {
	if !r.Valid(h) {
		return nil
	}
	return r.nodes[h].args
}

// Arg returns the i-th operand of h or Invalid.
func (r *Registry) Arg(h Handle, i int) Handle {
	args := r.Args(h)
	if i < 0 || i >= len(args) {
		return Invalid
	}
	return args[i]
}

// Card returns the cardinality of a number restriction.
func (r *Registry) Card(h Handle) int {
	if !r.Valid(h) {
		return 0
	}
	return r.nodes[h].n
}

// Key returns the IRI of an entity, the lexical form of a literal or the
// name of a facet.
func (r *Registry) Key(h Handle) string {
	if !r.Valid(h) {
		return ""
	}
	return r.nodes[h].key
}

// IsNamed reports whether h is a named entity or one of the sentinels.
func (r *Registry) IsNamed(h Handle) bool {
	if !r.Valid(h) {
		return false
	}
	switch r.nodes[h].op {
	case OpTop, OpBottom, OpTopObjectRole, OpBottomObjectRole, OpTopDataRole, OpBottomDataRole:
		return true
	}
	return r.nodes[h].op.IsEntity()
}

// KindOf returns the entity kind of a named handle.
func (r *Registry) KindOf(h Handle) (EntityKind, bool) {
	switch r.Op(h) {
	case OpClass, OpTop, OpBottom:
		return KindClass, true
	case OpObjectRole, OpTopObjectRole, OpBottomObjectRole:
		return KindObjectProperty, true
	case OpDataRole, OpTopDataRole, OpBottomDataRole:
		return KindDataProperty, true
	case OpIndividual:
		return KindIndividual, true
	case OpDatatype:
		return KindDatatype, true
	}
	return 0, false
}

func (r *Registry) check(h Handle, want Sort) error {
	if !r.Valid(h) {
		return fmt.Errorf("handle %d: %w", h, internalerr.ErrUnknownEntity)
	}
	if got := r.nodes[h].sort; got != want {
		return fmt.Errorf("handle %d is a %s, expected %s: %w", h, got, want, internalerr.ErrTypeMismatch)
	}
	return nil
}

// Check verifies that h is live and of the wanted sort.
func (r *Registry) Check(h Handle, want Sort) error { return r.check(h, want) }
