package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/dlk/pkg/dlk/expr"
	"github.com/cognicore/dlk/pkg/dlk/report"
	"github.com/cognicore/dlk/pkg/dlk/taxonomy"
)

var htmlOut string

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Print the class taxonomy of a knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

var realizeCmd = &cobra.Command{
	Use:   "realize [file]",
	Short: "Print the taxonomy with the most specific types of every individual",
	Args:  cobra.ExactArgs(1),
	RunE:  runRealize,
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()
	return classify(ctx, cmd.OutOrStdout(), args[0], false)
}

func runRealize(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()
	return classify(ctx, cmd.OutOrStdout(), args[0], true)
}

func classify(ctx context.Context, w io.Writer, path string, realize bool) error {
	comp, err := loadComponents(ctx)
	if err != nil {
		return err
	}
	kb, err := loadKB(ctx, path, comp)
	if err != nil {
		if comp.Journal != nil {
			comp.Journal.Close()
		}
		return err
	}
	k := kb.kernel
	defer k.Close()

	if realize {
		err = k.Realize(ctx)
	} else {
		err = k.Classify(ctx)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	page := report.Page{Title: kb.file.Name, Registry: k.Expr(), Taxonomy: k.Taxonomy()}
	if realize {
		page.Realization = k.Realization()
	}
	printTree(w, page)

	if htmlOut == "" {
		return nil
	}
	f, err := os.Create(htmlOut)
	if err != nil {
		return err
	}
	if err := report.Render(f, page); err != nil {
		f.Close()
		return err
	}
	logger.Info("report written")
	return f.Close()
}

// printTree writes the taxonomy as an indented outline. A node with
// several parents is printed under each of them.
func printTree(w io.Writer, p report.Page) {
	tax := p.Taxonomy
	label := func(n *taxonomy.Node) string {
		keys := make([]string, len(n.Members))
		for i, m := range n.Members {
			keys[i] = p.Registry.Key(m)
		}
		return strings.Join(keys, " = ")
	}
	instances := make(map[int][]string)
	if p.Realization != nil {
		for _, a := range p.Realization.Individuals() {
			for _, ty := range p.Realization.Types(a, true) {
				if n, ok := tax.NodeOf(ty[0]); ok {
					instances[n.ID] = append(instances[n.ID], p.Registry.Key(a))
				}
			}
		}
	}

	var walk func(n *taxonomy.Node, depth int)
	walk = func(n *taxonomy.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(w, "%s%s\n", indent, label(n))
		for _, a := range instances[n.ID] {
			fmt.Fprintf(w, "%s  - %s\n", indent, a)
		}
		children := make([]*taxonomy.Node, 0, len(n.Children))
		for _, c := range n.Children {
			if c != tax.Bottom().ID {
				children = append(children, tax.Node(c))
			}
		}
		sort.Slice(children, func(i, j int) bool { return label(children[i]) < label(children[j]) })
		for _, c := range children {
			walk(c, depth+1)
		}
	}
	walk(tax.Top(), 0)

	var unsat []string
	for _, m := range tax.Bottom().Members {
		if m != expr.Bottom {
			unsat = append(unsat, p.Registry.Key(m))
		}
	}
	if len(unsat) > 0 {
		fmt.Fprintf(w, "unsatisfiable: %s\n", strings.Join(unsat, ", "))
	}
}
