package main

import (
	"github.com/spf13/cobra"

	"github.com/drmikehenry/git-ibundle/internal/config"
	"github.com/drmikehenry/git-ibundle/internal/gitx"
	"github.com/drmikehenry/git-ibundle/internal/logx"
	"github.com/drmikehenry/git-ibundle/internal/meta"
)

var (
	verboseCount int
	quiet        bool
)

// verbosity is negative for -q, zero by default, positive per -v.
func verbosity() int {
	if quiet {
		return -1
	}
	return verboseCount
}

var rootCmd = &cobra.Command{
	Use:   "git-ibundle",
	Short: "Git offline incremental mirroring via ibundle files",
	Long: `git-ibundle mirrors a Git repository across a one-way file-transfer
boundary. The source side creates a sequence of self-describing ibundle
files; the destination side fetches them in order, each application
advancing the mirror to a new synchronization point.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logx.Setup(verbosity())
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "increase verbosity")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational output")
}

// openRepo locates the repository from the working directory, opens its
// metadata store, attaches the debug log, and loads settings.
func openRepo() (*gitx.Repo, *meta.Store, *config.Settings, error) {
	repo, err := gitx.Open(".")
	if err != nil {
		return nil, nil, nil, err
	}
	store := meta.Open(repo.GitDir())
	logx.AttachFile(store.LogDir())
	cfg, err := config.Load(store.Dir())
	if err != nil {
		return nil, nil, nil, err
	}
	return repo, store, cfg, nil
}

// progressAllowed decides whether git's progress meter is passed through
// during bundle creation.
func progressAllowed(cfg *config.Settings) bool {
	switch cfg.Progress {
	case "always":
		return true
	case "never":
		return false
	default:
		return verbosity() >= 0 && gitx.StderrIsTerminal()
	}
}
