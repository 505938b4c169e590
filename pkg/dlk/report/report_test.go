package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/taxonomy"
)

// hierarchy answers subsumption from a fixed parent map.
type hierarchy struct {
	parents map[expr.Handle][]expr.Handle
	unsat   map[expr.Handle]bool
	types   map[expr.Handle]expr.Handle
}

func (h hierarchy) above(c, d expr.Handle) bool {
	if c == d || d == expr.Top || h.unsat[c] {
		return true
	}
	for _, p := range h.parents[c] {
		if h.above(p, d) {
			return true
		}
	}
	return false
}

func (h hierarchy) Consistent(context.Context) (bool, error) { return true, nil }
func (h hierarchy) Satisfiable(_ context.Context, c expr.Handle) (bool, error) {
	return !h.unsat[c], nil
}
func (h hierarchy) IsSubsumedBy(_ context.Context, c, d expr.Handle) (bool, error) {
	return h.above(c, d), nil
}
func (h hierarchy) IsInstance(_ context.Context, a, c expr.Handle) (bool, error) {
	t, ok := h.types[a]
	return c == expr.Top || (ok && h.above(t, c)), nil
}

func collect(n *html.Node, class string, out *[]string) {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "class" && a.Val == class && n.FirstChild != nil {
				*out = append(*out, n.FirstChild.Data)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, class, out)
	}
}

func TestRender(t *testing.T) {
	reg := expr.NewRegistry()
	animal, dog, cat, pet, x := reg.Class("Animal"), reg.Class("Dog"), reg.Class("Cat"), reg.Class("Pet"), reg.Class("X")
	rex := reg.Individual("rex")
	h := hierarchy{
		parents: map[expr.Handle][]expr.Handle{dog: {animal, pet}, cat: {animal}},
		unsat:   map[expr.Handle]bool{x: true},
		types:   map[expr.Handle]expr.Handle{rex: dog},
	}
	ctx := context.Background()
	tax, _, err := taxonomy.Classify(ctx, h, nil, nil, []expr.Handle{animal, dog, cat, pet, x})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	rz, err := taxonomy.Realize(ctx, h, nil, tax, []expr.Handle{rex})
	if err != nil {
		t.Fatalf("Realize: %v", err)
	}

	var buf bytes.Buffer
	if err := Render(&buf, Page{Title: "zoo", Registry: reg, Taxonomy: tax, Realization: rz}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<!DOCTYPE html>") {
		t.Errorf("Expected a doctype, got %q", out[:20])
	}

	doc, err := html.Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Parse rendered page: %v", err)
	}
	var classes, inds []string
	collect(doc, "class", &classes)
	collect(doc, "individual", &inds)

	// Dog has two parents but is expanded once
	want := []string{"owl:Thing", "Animal", "Cat", "Dog", "Pet"}
	if strings.Join(classes, ",") != strings.Join(want, ",") {
		t.Errorf("Expected classes %v, got %v", want, classes)
	}
	if len(inds) != 1 || inds[0] != "rex" {
		t.Errorf("Expected rex listed once, got %v", inds)
	}
	if !strings.Contains(out, `href="#n`) {
		t.Error("Expected a link to the already expanded node")
	}
	if !strings.Contains(out, "<li>X</li>") {
		t.Errorf("Expected X among unsatisfiable classes")
	}
}
