package main

import (
	"github.com/spf13/cobra"

	"github.com/drmikehenry/git-ibundle/internal/logx"
	"github.com/drmikehenry/git-ibundle/internal/mirror"
)

var (
	fetchDryRun bool
	fetchForce  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [flags] IBUNDLE_FILE",
	Short: "Fetch from an ibundle",
	Long: `Apply an ibundle to this (bare) mirror repository: validate its
identity and basis, integrate its pack, update the references and HEAD to
match the source, and record the new synchronization point.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, store, _, err := openRepo()
		if err != nil {
			return err
		}

		opts := mirror.Options{
			DryRun: fetchDryRun,
			Force:  fetchForce,
			Quiet:  verbosity() < 0,
		}
		if opts.DryRun {
			logx.L().Infof("(dry run)")
		}

		result, err := mirror.Fetch(cmd.Context(), repo, store, args[0], opts)
		if err != nil {
			return err
		}
		logx.L().Infof("fetched %q: seq_num %d, %d refs, HEAD %s",
			args[0], result.SeqNum, result.Refs, result.Head)
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchDryRun, "dry-run", false, "perform a trial fetch without making changes to the repository")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "force fetch operation")
	rootCmd.AddCommand(fetchCmd)
}
