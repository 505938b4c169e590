package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/dlk/pkg/dlk/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the journal: committed changes and the latest taxonomy",
	Long: `Prints the changes recorded in the journal named by --journal (or the
config file), oldest first, followed by the newest taxonomy snapshot.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()
	return history(ctx, cmd.OutOrStdout())
}

func history(ctx context.Context, w io.Writer) error {
	comp, err := loadComponents(ctx)
	if err != nil {
		return err
	}
	if comp.Journal == nil {
		return fmt.Errorf("no journal configured; pass --journal")
	}
	defer comp.Journal.Close()

	changes, err := comp.Journal.Changes(ctx, historyLimit)
	if err != nil {
		return err
	}
	for _, c := range changes {
		fmt.Fprintf(w, "%s %s +%d -%d\n", c.ID, c.At.Format(time.RFC3339), len(c.Added), len(c.Removed))
		for _, a := range c.Added {
			fmt.Fprintf(w, "  + [%d] %s\n", a.Handle, a.Text)
		}
		for _, h := range c.Removed {
			fmt.Fprintf(w, "  - [%d]\n", h)
		}
	}

	snap, ok, err := comp.Journal.LatestSnapshot(ctx, store.KindTaxonomy)
	if err != nil || !ok {
		return err
	}
	fmt.Fprintf(w, "taxonomy %s (after change %s)\n", snap.ID, snap.ChangeID)
	for _, n := range snap.Nodes {
		fmt.Fprintf(w, "  %d: %s <- %v\n", n.ID, strings.Join(n.Members, " = "), n.Parents)
	}
	return nil
}
