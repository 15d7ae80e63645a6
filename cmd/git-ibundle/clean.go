package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drmikehenry/git-ibundle/internal/config"
	"github.com/drmikehenry/git-ibundle/internal/logx"
	"github.com/drmikehenry/git-ibundle/internal/mirror"
)

var cleanKeep uint64

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old synchronization points",
	Long: `Remove old synchronization points from the metadata store, retaining
the most recent ones. The most recent sync point is always kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanKeep < 1 {
			return fmt.Errorf("invalid --keep %d: must be at least 1", cleanKeep)
		}
		_, store, cfg, err := openRepo()
		if err != nil {
			return err
		}
		keep := cleanKeep
		if !cmd.Flags().Changed("keep") {
			keep = cfg.Keep
		}

		removed, err := mirror.Clean(store, keep)
		if err != nil {
			return err
		}
		logx.L().Infof("removed %d sync points, keeping up to %d", removed, keep)
		return nil
	},
}

func init() {
	cleanCmd.Flags().Uint64Var(&cleanKeep, "keep", config.DefaultKeep, "number of sync points to retain")
	rootCmd.AddCommand(cleanCmd)
}
