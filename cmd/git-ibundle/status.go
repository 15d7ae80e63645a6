package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drmikehenry/git-ibundle/internal/mirror"
)

var statusLong bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report status",
	Long: `Report the repository's mirroring state: its repo_id and the range of
recorded synchronization points. With --long (or -v), list every retained
sync point.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, _, err := openRepo()
		if err != nil {
			return err
		}

		long := statusLong || verbosity() > 0
		st, err := mirror.GetStatus(store, long)
		if err != nil {
			return err
		}

		fmt.Printf("repo_id: %s\n", st.RepoID)
		fmt.Printf("max_seq_num: %d\n", st.MaxSeqNum)
		fmt.Printf("next_seq_num: %d\n", st.NextSeqNum)
		if !long {
			fmt.Println("Use `--long` for details.")
			return nil
		}

		fmt.Printf("kept_seq_nums: %d\n", st.Kept)
		if len(st.Entries) > 0 {
			fmt.Printf("  %-8s %-8s %s\n", "seq_num", "num_refs", "HEAD")
			failed := false
			for _, e := range st.Entries {
				if e.Err != nil {
					fmt.Printf("  %-8d **Error: %v\n", e.SeqNum, e.Err)
					failed = true
					continue
				}
				fmt.Printf("  %-8d %-8d %s\n", e.SeqNum, e.Refs, e.Head)
			}
			if failed {
				return fmt.Errorf("failed to load one or more sync points")
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusLong, "long", false, "list retained sync points")
	rootCmd.AddCommand(statusCmd)
}
