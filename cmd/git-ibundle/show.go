package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drmikehenry/git-ibundle/internal/ibundle"
	"github.com/drmikehenry/git-ibundle/internal/pack"
)

var showCmd = &cobra.Command{
	Use:   "show IBUNDLE_FILE",
	Short: "Show details of an ibundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		f, err := ibundle.Decode(data)
		if err != nil {
			return err
		}

		yesNo := func(b bool) string {
			if b {
				return "yes"
			}
			return "no"
		}
		fmt.Printf("standalone: %s\n", yesNo(f.Standalone))
		fmt.Printf("repo_id: %s\n", f.RepoID)
		fmt.Printf("seq_num: %d\n", f.SeqNum)
		fmt.Printf("basis_seq_num: %d\n", f.BasisSeqNum)
		fmt.Printf("head: %s\n", f.Head)
		fmt.Printf("ref_mutations: %d\n", len(f.Mutations))
		detail := verbosity() > 0
		if detail {
			for _, m := range f.Mutations {
				if m.Op == ibundle.OpAdd {
					fmt.Printf("  %s %s %q\n", m.Op, m.OID, m.Name)
				} else {
					fmt.Printf("  %s %q\n", m.Op, m.Name)
				}
			}
		}
		if f.Standalone {
			fmt.Printf("full_refs: %d\n", len(f.FullRefs))
			if detail {
				for _, ref := range f.FullRefs {
					fmt.Printf("  %s %q\n", ref.OID, ref.Name)
				}
			}
			fmt.Printf("prereqs: %d\n", len(f.Prereqs))
			if detail {
				for _, oid := range f.Prereqs {
					fmt.Printf("  %s\n", oid)
				}
			}
		}
		fmt.Printf("pack_bytes: %d", len(f.Pack))
		if pack.IsEmpty(f.Pack) {
			fmt.Printf(" (empty)")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
