package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SilentByte/doublegit/internal/anchor"
	"github.com/SilentByte/doublegit/internal/config"
	"github.com/SilentByte/doublegit/internal/ledger"
	"github.com/SilentByte/doublegit/internal/mirror"
	"github.com/SilentByte/doublegit/internal/ui"
	"github.com/SilentByte/doublegit/internal/vcs/git"
)

var updateCmd = &cobra.Command{
	Use:   "update REPOSITORY",
	Short: "Run one fetch/reconcile cycle",
	Long: `Fetch the repository's remotes with pruning, record every ref movement
in the ledger, anchor each new target against garbage collection, and
retire anchors a newer anchor supersedes.

The cycle is transactional: on any fatal error the ledger is left
exactly as it was, and any anchors already created stay (extra anchors
are harmless, missing ones are not).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoPath := args[0]

		cfg, err := loadConfig(repoPath)
		if err != nil {
			return err
		}

		rec, _, cleanup, err := buildReconciler(repoPath, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := rec.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("cycle failed while %s: %w", report.FailedIn, err)
		}

		fmt.Printf("%s %d new, %d changed, %d removed; %d anchored, %d pruned\n",
			ui.RenderSuccess("updated:"),
			len(report.New), len(report.Changed), len(report.Removed),
			len(report.Anchored), len(report.Pruned))
		for _, w := range report.Warnings {
			fmt.Println(ui.RenderWarning("warning: " + w))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

// buildReconciler wires a repository, its ledger and the anchor manager
// into a Reconciler. The returned cleanup closes the ledger.
func buildReconciler(repoPath string, cfg *config.Config) (*mirror.Reconciler, *ledger.Ledger, func(), error) {
	repo, err := git.Open(repoPath, git.Options{FetchTimeout: cfg.FetchTimeout})
	if err != nil {
		return nil, nil, nil, err
	}

	led, err := ledger.Open(filepath.Join(repoPath, cfg.Database))
	if err != nil {
		return nil, nil, nil, err
	}

	logger := newLogger(cfg)
	anchors := anchor.New(repo, cfg.AnchorPrefix, logger)
	rec := mirror.New(repo, led, anchors, logger)

	return rec, led, func() { _ = led.Close() }, nil
}
