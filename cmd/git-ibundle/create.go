package main

import (
	"github.com/spf13/cobra"

	"github.com/drmikehenry/git-ibundle/internal/logx"
	"github.com/drmikehenry/git-ibundle/internal/mirror"
)

var (
	createBasis        uint64
	createBasisCurrent bool
	createStandalone   bool
	createAllowEmpty   bool
)

var createCmd = &cobra.Command{
	Use:   "create [flags] IBUNDLE_FILE",
	Short: "Create an ibundle",
	Long: `Create an ibundle holding the changes since a basis synchronization
point (by default, the most recent one) and record the current repository
state as a new synchronization point.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, store, cfg, err := openRepo()
		if err != nil {
			return err
		}

		opts := mirror.Options{
			BasisCurrent: createBasisCurrent,
			Standalone:   createStandalone,
			AllowEmpty:   createAllowEmpty,
			Progress:     progressAllowed(cfg),
		}
		if cmd.Flags().Changed("basis") {
			opts.BasisNum = &createBasis
		}

		result, err := mirror.Create(cmd.Context(), repo, store, args[0], opts)
		if err != nil {
			return err
		}
		logx.L().Infof("wrote %q: seq_num %d, basis %d, added %d, removed %d",
			args[0], result.SeqNum, result.BasisSeqNum, result.Adds, result.Dels)
		return nil
	},
}

func init() {
	createCmd.Flags().Uint64Var(&createBasis, "basis", 0, "choose alternate basis sequence number")
	createCmd.Flags().BoolVar(&createBasisCurrent, "basis-current", false, "choose basis to be current repository state")
	createCmd.Flags().BoolVar(&createStandalone, "standalone", false, "force ibundle to be standalone")
	createCmd.Flags().BoolVar(&createAllowEmpty, "allow-empty", false, "allow creation of an empty ibundle")
	createCmd.MarkFlagsMutuallyExclusive("basis", "basis-current")
	rootCmd.AddCommand(createCmd)
}
