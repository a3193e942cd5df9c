package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SilentByte/doublegit/internal/ledger"
	"github.com/SilentByte/doublegit/internal/mirror"
	"github.com/SilentByte/doublegit/internal/ui"
	"github.com/SilentByte/doublegit/internal/vcs/git"
)

var auditCmd = &cobra.Command{
	Use:   "audit REPOSITORY",
	Short: "Verify that every current ledger target is still anchored",
	Long: `Check the retention-safety invariant: every commit the ledger claims a
ref currently points at must resolve and stay reachable from some
local branch (an anchor or otherwise). Exits non-zero when coverage is
broken.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoPath := args[0]

		cfg, err := loadConfig(repoPath)
		if err != nil {
			return err
		}

		repo, err := git.Open(repoPath, git.Options{FetchTimeout: cfg.FetchTimeout})
		if err != nil {
			return err
		}

		led, err := ledger.Open(filepath.Join(repoPath, cfg.Database))
		if err != nil {
			return err
		}
		defer led.Close()

		result, err := mirror.Audit(cmd.Context(), repo, led)
		if err != nil {
			return err
		}

		if result.OK() {
			fmt.Printf("%s %d targets checked, all anchored\n",
				ui.RenderSuccess("ok:"), result.Checked)
			return nil
		}

		for _, gap := range result.Gaps {
			fmt.Printf("%s %s at %s: %s\n",
				ui.RenderError("gap:"), gap.Ref, gap.SHA, gap.Reason)
		}
		return fmt.Errorf("%d of %d targets unprotected", len(result.Gaps), result.Checked)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
