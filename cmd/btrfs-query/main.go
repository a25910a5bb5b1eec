// Copyright (C) 2022-2024  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"go.btrfsro.dev/btrfsro/lib/btrfs/btrfsprim"
	"go.btrfsro.dev/btrfsro/lib/btrfsutil"
	"go.btrfsro.dev/btrfsro/lib/textui"
)

type subcommand struct {
	cobra.Command
	RunE func(ctx context.Context, vol *btrfsutil.Volume, tree btrfsprim.ObjID, cmd *cobra.Command, args []string) error
}

var subcommands []subcommand

func main() {
	logLevelFlag := textui.LogLevelFlag{Level: dlog.LogLevelInfo}
	var devicesFlag []string
	var cacheSizeFlag int
	var treeFlag string

	argparser := &cobra.Command{
		Use:   "btrfs-query {[flags]|SUBCOMMAND}",
		Short: "Answer read-only queries against a btrfs filesystem image",

		SilenceErrors: true,
		SilenceUsage:  true,

		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	argparser.PersistentFlags().Var(&logLevelFlag, "verbosity", "set the verbosity")
	argparser.PersistentFlags().StringArrayVar(&devicesFlag, "device", nil, "open `path` as a member device of the filesystem (may be repeated)")
	_ = argparser.MarkPersistentFlagRequired("device")
	argparser.PersistentFlags().IntVar(&cacheSizeFlag, "cache-size", 0, "number of blocks to keep in the node cache (0 for the default)")
	argparser.PersistentFlags().StringVar(&treeFlag, "tree", "default", `which tree to query: "default", "root", a numeric tree ID, or a well-known name such as "FS_TREE"`)

	for _, sub := range subcommands {
		cmd := sub.Command
		runE := sub.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := textui.NewLogger(os.Stderr, logLevelFlag.Level)
			ctx = dlog.WithLogger(ctx, logger)
			dlog.SetFallbackLogger(logger.WithField("btrfsro.THIS_IS_A_BUG", true))

			grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{EnableSignalHandling: true})
			grp.Go("main", func(ctx context.Context) error {
				vol, err := btrfsutil.Mount(ctx, devicesFlag, cacheSizeFlag)
				if err != nil {
					return err
				}
				defer func() {
					if err := vol.Unmount(); err != nil {
						dlog.Errorf(ctx, "unmount: %v", err)
					}
				}()

				tree, err := resolveTree(vol, treeFlag)
				if err != nil {
					return err
				}

				cmd.SetContext(ctx)
				return runE(ctx, vol, tree, cmd, args)
			})
			return grp.Wait()
		}
		argparser.AddCommand(&cmd)
	}

	if err := argparser.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%v: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}

func resolveTree(vol *btrfsutil.Volume, s string) (btrfsprim.ObjID, error) {
	switch s {
	case "default":
		return vol.DefaultSubvolume(), nil
	case "root":
		return btrfsprim.ROOT_TREE_OBJECTID, nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return btrfsprim.ObjID(n), nil
	}
	for id, name := range map[btrfsprim.ObjID]string{
		btrfsprim.ROOT_TREE_OBJECTID:   "ROOT_TREE",
		btrfsprim.CHUNK_TREE_OBJECTID:  "CHUNK_TREE",
		btrfsprim.FS_TREE_OBJECTID:     "FS_TREE",
		btrfsprim.CSUM_TREE_OBJECTID:   "CSUM_TREE",
		btrfsprim.UUID_TREE_OBJECTID:   "UUID_TREE",
	} {
		if name == s {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unrecognized --tree %q", s)
}
