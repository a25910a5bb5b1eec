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
			Use:   "dump-tree",
			Short: "Print every leaf item of the selected tree, in key order",
			Args:  cobra.NoArgs,
		},
		RunE: func(ctx context.Context, vol *btrfsutil.Volume, tree btrfsprim.ObjID, cmd *cobra.Command, args []string) error {
			items, err := vol.DumpTree(ctx, tree)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range items {
				fmt.Fprintf(out, "%v %+v\n", item.Key, item.Body)
			}
			return nil
		},
	})
}
