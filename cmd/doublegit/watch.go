package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SilentByte/doublegit/internal/mirror"
	"github.com/SilentByte/doublegit/internal/ui"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch REPOSITORY",
	Short: "Run reconcile cycles on an interval until interrupted",
	Long: `Run an update cycle immediately and then on every interval tick.
Cycles are strictly sequential; a slow fetch delays the next tick
rather than overlapping it. A failed cycle is logged and retried on
the next tick, since no ledger state is left behind.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoPath := args[0]

		cfg, err := loadConfig(repoPath)
		if err != nil {
			return err
		}
		if watchInterval > 0 {
			cfg.Interval = watchInterval
		}

		rec, _, cleanup, err := buildReconciler(repoPath, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		logger := newLogger(cfg)
		ctx := cmd.Context()

		fmt.Printf("%s every %s\n", ui.RenderAccent("watching "+repoPath), cfg.Interval)

		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			report, err := rec.Run(ctx)
			if err != nil {
				logger.Printf("cycle failed while %s: %v", report.FailedIn, err)
			} else if !reportEmpty(report) {
				logger.Printf("cycle: %d new, %d changed, %d removed, %d pruned",
					len(report.New), len(report.Changed), len(report.Removed), len(report.Pruned))
			}

			select {
			case <-ctx.Done():
				// Interrupt between cycles is a normal stop.
				return nil
			case <-ticker.C:
			}
		}
	},
}

func reportEmpty(r *mirror.Report) bool {
	return len(r.New) == 0 && len(r.Changed) == 0 && len(r.Removed) == 0 && len(r.Pruned) == 0
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "cycle period (overrides config)")
	rootCmd.AddCommand(watchCmd)
}
