package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfsutil"
)

func init() {
	subcommands = append(subcommands, subcommand{
		Command: cobra.Command{
			Use:   "list-subvolumes",
			Short: "List every tree ID with a ROOT_ITEM in the root tree",
			Args:  cobra.NoArgs,
		},
		RunE: func(ctx context.Context, vol *btrfsutil.Volume, tree btrfsprim.ObjID, cmd *cobra.Command, args []string) error {
			ids, err := vol.ListSubvolumes(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				fmt.Fprintln(out, uint64(id))
			}
			return nil
		},
	})
}
