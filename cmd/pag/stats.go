// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatsCmd implements `pag stats <file-or-patterns...>`: the same
// node/edge counters as `pag build`/`pag debug`, but accepting either
// input the way `pag dot` does, for quick inspection without writing a
// DOT file.
func newStatsCmd() *cobra.Command {
	var vgep, blk bool

	cmd := &cobra.Command{
		Use:   "stats <file-or-patterns...>",
		Short: "Report node/edge counts for a PAG",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(args, vgep, blk)
			if err != nil {
				return fmt.Errorf("pag stats: %w", err)
			}
			report(cmd, g)
			return nil
		},
	}

	cmd.Flags().BoolVar(&vgep, "vgep", false, "emit VariantGep edges when building from source")
	cmd.Flags().BoolVar(&blk, "blk", false, "route undefined-provenance pointers through the blackhole sentinel")
	return cmd
}
