// Package report renders a classified knowledge base as an HTML page.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/taxonomy"
)

// Page is the content of one report.
type Page struct {
	Title    string
	Registry *expr.Registry
	Taxonomy *taxonomy.Taxonomy
	// Realization is optional.
	Realization *taxonomy.Realization
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func withText(a atom.Atom, s string, attrs ...html.Attribute) *html.Node {
	n := element(a, attrs...)
	n.AppendChild(text(s))
	return n
}

func anchor(id int) string { return fmt.Sprintf("n%d", id) }

// Render writes p as a standalone HTML document. A node with several
// parents is expanded under the first and linked from the others.
func Render(w io.Writer, p Page) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(withText(atom.Title, p.Title))
	root.AppendChild(head)

	body := element(atom.Body)
	root.AppendChild(body)
	body.AppendChild(withText(atom.H1, p.Title))

	r := &renderer{p: p, done: make(map[int]bool), instances: make(map[int][]expr.Handle)}
	if p.Realization != nil {
		for _, a := range p.Realization.Individuals() {
			for _, ty := range p.Realization.Types(a, true) {
				if n, ok := p.Taxonomy.NodeOf(ty[0]); ok {
					r.instances[n.ID] = append(r.instances[n.ID], a)
				}
			}
		}
	}

	body.AppendChild(withText(atom.H2, "Classes"))
	tree := element(atom.Ul, html.Attribute{Key: "class", Val: "taxonomy"})
	tree.AppendChild(r.node(p.Taxonomy.Top()))
	body.AppendChild(tree)

	if bottom := p.Taxonomy.Bottom(); len(bottom.Members) > 1 {
		body.AppendChild(withText(atom.H2, "Unsatisfiable classes"))
		ul := element(atom.Ul, html.Attribute{Key: "class", Val: "unsatisfiable"})
		for _, m := range bottom.Members {
			if m != expr.Bottom {
				ul.AppendChild(withText(atom.Li, p.Registry.Key(m)))
			}
		}
		body.AppendChild(ul)
	}

	return html.Render(w, doc)
}

type renderer struct {
	p         Page
	done      map[int]bool
	instances map[int][]expr.Handle
}

func (r *renderer) label(n *taxonomy.Node) string {
	names := make([]string, 0, len(n.Members))
	for _, m := range n.Members {
		names = append(names, r.p.Registry.Key(m))
	}
	return strings.Join(names, " ≡ ")
}

func (r *renderer) node(n *taxonomy.Node) *html.Node {
	li := element(atom.Li)
	if r.done[n.ID] {
		li.AppendChild(withText(atom.A, r.label(n), html.Attribute{Key: "href", Val: "#" + anchor(n.ID)}))
		return li
	}
	r.done[n.ID] = true
	li.AppendChild(withText(atom.Span, r.label(n),
		html.Attribute{Key: "id", Val: anchor(n.ID)},
		html.Attribute{Key: "class", Val: "class"}))

	if inds := r.instances[n.ID]; len(inds) > 0 {
		ul := element(atom.Ul, html.Attribute{Key: "class", Val: "instances"})
		for _, a := range inds {
			ul.AppendChild(withText(atom.Li, r.p.Registry.Key(a), html.Attribute{Key: "class", Val: "individual"}))
		}
		li.AppendChild(ul)
	}

	var children []*taxonomy.Node
	for _, c := range n.Children {
		if c != r.p.Taxonomy.Bottom().ID {
			children = append(children, r.p.Taxonomy.Node(c))
		}
	}
	if len(children) > 0 {
		ul := element(atom.Ul)
		for _, c := range sortByLabel(children, r.label) {
			ul.AppendChild(r.node(c))
		}
		li.AppendChild(ul)
	}
	return li
}

func sortByLabel(ns []*taxonomy.Node, label func(*taxonomy.Node) string) []*taxonomy.Node {
	out := append([]*taxonomy.Node(nil), ns...)
	sort.SliceStable(out, func(i, j int) bool { return label(out[i]) < label(out[j]) })
	return out
}
