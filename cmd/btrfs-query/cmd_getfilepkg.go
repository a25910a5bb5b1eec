package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfsutil"
	"go.btrfsro.dev/btrfsro/lib/textui"
)

func init() {
	subcommands = append(subcommands, subcommand{
		Command: cobra.Command{
			Use:   "get-file-pkg OBJECT_ID",
			Short: "Print an inode's metadata, parent, and extent list",
			Args:  cobra.ExactArgs(1),
		},
		RunE: func(ctx context.Context, vol *btrfsutil.Volume, tree btrfsprim.ObjID, cmd *cobra.Command, args []string) error {
			objID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("object id: %w", err)
			}
			pkg, err := vol.GetFilePkg(ctx, tree, btrfsprim.ObjID(objID))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if pkg.HaveInode {
				fmt.Fprintf(out, "size: %v\n", textui.IEC(pkg.Inode.Size, "B"))
				fmt.Fprintf(out, "mtime: %s (%s)\n",
					pkg.Inode.MTime.ToStd().Format("2006-01-02 15:04:05"),
					humanize.Time(pkg.Inode.MTime.ToStd()))
			}
			if pkg.HaveName {
				fmt.Fprintf(out, "parent: %d\n", uint64(pkg.ParentID))
				fmt.Fprintf(out, "name: %s\n", pkg.Name)
				if pkg.Hidden {
					fmt.Fprintf(out, "hidden: true\n")
				}
			}
			for _, ext := range pkg.Extents {
				fmt.Fprintf(out, "extent: offset=%d %+v\n", ext.Key.Offset, ext.Data)
			}
			return nil
		},
	})
}
