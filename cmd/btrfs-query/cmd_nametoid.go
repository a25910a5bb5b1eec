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
			Use:   "name-to-id PARENT_ID NAME",
			Short: "Resolve a directory entry's name to its object ID",
			Args:  cobra.ExactArgs(2),
		},
		RunE: func(ctx context.Context, vol *btrfsutil.Volume, tree btrfsprim.ObjID, cmd *cobra.Command, args []string) error {
			parentID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parent id: %w", err)
			}
			id, err := vol.NameToID(ctx, tree, btrfsprim.ObjID(parentID), []byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uint64(id))
			return nil
		},
	})
}
