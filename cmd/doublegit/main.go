// Command doublegit keeps a durable history of a remote git
// repository's refs.
//
// Pointed at a bare mirror with a configured remote, it fetches with
// pruning, records every ref movement as a closed/open interval in a
// SQLite ledger next to the repository, and maintains anchor branches
// so the garbage collector can never discard a commit the ledger still
// references.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/SilentByte/doublegit/internal/config"
	"github.com/SilentByte/doublegit/internal/ui"
)

var settings = config.New()

var rootCmd = &cobra.Command{
	Use:   "doublegit",
	Short: "Archive the ref history of a remote git repository",
	Long: `doublegit records what every branch of a remote repository pointed to,
and when, in an append-only ledger. Force-pushed, rewritten or deleted
history stays reachable: each observed commit is pinned by a local
anchor branch until a newer anchor supersedes it.

The repository argument is a bare mirror with a remote configured for
pruning fetches, e.g.:

    git init --bare mirror.git
    git -C mirror.git remote add origin <url>
    doublegit update mirror.git`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("anchor-prefix", "keep-", "prefix for anchor branch names")
	flags.String("database", "gitarchive.sqlite3", "ledger filename inside the repository")
	flags.Duration("fetch-timeout", 0, "abort the fetch after this long (0 = default)")
	flags.String("log-file", "", "also log to this rotating file")

	cobra.CheckErr(settings.BindPFlag("anchor-prefix", flags.Lookup("anchor-prefix")))
	cobra.CheckErr(settings.BindPFlag("database", flags.Lookup("database")))
	cobra.CheckErr(settings.BindPFlag("fetch-timeout", flags.Lookup("fetch-timeout")))
	cobra.CheckErr(settings.BindPFlag("log-file", flags.Lookup("log-file")))
}

// loadConfig merges file/env/flag settings for a repository path.
func loadConfig(repoPath string) (*config.Config, error) {
	return config.Load(settings, repoPath, ".")
}

// newLogger builds the cycle logger: stderr always, plus a rotating
// file when configured.
func newLogger(cfg *config.Config) *log.Logger {
	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		})
	}
	return log.New(w, "[doublegit] ", log.LstdFlags)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderError("error:"), err)
		os.Exit(1)
	}
}
