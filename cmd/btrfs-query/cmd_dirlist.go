package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfsutil"
)

func init() {
	subcommands = append(subcommands, subcommand{
		Command: cobra.Command{
			Use:   "dir-list OBJECT_ID",
			Short: "List a directory's entries",
			Args:  cobra.ExactArgs(1),
		},
		RunE: func(ctx context.Context, vol *btrfsutil.Volume, tree btrfsprim.ObjID, cmd *cobra.Command, args []string) error {
			objID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("object id: %w", err)
			}
			entries, err := vol.DirList(ctx, tree, btrfsprim.ObjID(objID))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				hidden := ""
				if e.Hidden {
					hidden = " (hidden)"
				}
				fmt.Fprintf(out, "%-20s %10d%s\n", e.Name, uint64(e.ObjectID), hidden)
			}
			return nil
		},
	})
}
