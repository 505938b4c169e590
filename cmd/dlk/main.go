// Command dlk checks, classifies and realizes knowledge bases described in
// YAML files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	journalPath string
	timeout     time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dlk",
	Short: "Description logic reasoning kernel",
	Long: `dlk loads knowledge bases written as YAML descriptions, checks their
consistency, computes the class taxonomy and the most specific types of
individuals, and keeps a journal of changes and results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Reasoner config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "Journal: 'memory' or a SQLite path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Overall time budget (0 = none)")

	classifyCmd.Flags().StringVar(&htmlOut, "html", "", "Also write an HTML report to this file")
	realizeCmd.Flags().StringVar(&htmlOut, "html", "", "Also write an HTML report to this file")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show at most n changes (0 = all)")

	rootCmd.AddCommand(checkCmd, classifyCmd, realizeCmd, historyCmd)
}

// commandContext applies --timeout and cancels on interrupt.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
