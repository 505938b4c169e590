package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Check the consistency of knowledge bases",
	Long: `Loads every file into its own kernel, concurrently, and reports whether
each knowledge base is consistent. The exit code is non-zero when a file
fails to load or is inconsistent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

type checkResult struct {
	path       string
	axioms     int
	skipped    int
	consistent bool
	err        error
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()
	return check(ctx, cmd.OutOrStdout(), args)
}

func check(ctx context.Context, w io.Writer, paths []string) error {
	comp, err := loadComponents(ctx)
	if err != nil {
		return err
	}
	if comp.Journal != nil {
		defer comp.Journal.Close()
	}

	results := make([]checkResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res := checkResult{path: path}
			kb, err := loadKB(gctx, path, comp)
			if err == nil {
				res.axioms, res.skipped = kb.kernel.Axioms(), kb.skipped
				res.consistent, err = kb.kernel.IsConsistent(gctx)
			}
			res.err = err
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Fprintf(w, "%s: error: %v\n", r.path, r.err)
		case !r.consistent:
			failed++
			fmt.Fprintf(w, "%s: inconsistent (%d axioms)\n", r.path, r.axioms)
		default:
			fmt.Fprintf(w, "%s: consistent (%d axioms, %d skipped)\n", r.path, r.axioms, r.skipped)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d knowledge bases failed", failed, len(paths))
	}
	return nil
}
