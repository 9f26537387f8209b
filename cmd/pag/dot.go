// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagbuilder/pag/builder"
	"github.com/pagbuilder/pag/debugfile"
	"github.com/pagbuilder/pag/dot"
	"github.com/pagbuilder/pag/pag"
	"github.com/pagbuilder/pag/ssaload"
)

// newDotCmd implements `pag dot <file-or-patterns>`: if the single
// argument names a readable debug-format file, the graph is replayed
// from it; otherwise the arguments are treated as Go package patterns
// and built fresh, exactly like `pag build --dot`.
func newDotCmd() *cobra.Command {
	var vgep, blk bool

	cmd := &cobra.Command{
		Use:   "dot <file-or-patterns...>",
		Short: "Emit a DOT rendering of a PAG",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(args, vgep, blk)
			if err != nil {
				return fmt.Errorf("pag dot: %w", err)
			}
			return dot.Write(cmd.OutOrStdout(), g)
		},
	}

	cmd.Flags().BoolVar(&vgep, "vgep", false, "emit VariantGep edges when building from source")
	cmd.Flags().BoolVar(&blk, "blk", false, "route undefined-provenance pointers through the blackhole sentinel")
	return cmd
}

func loadGraph(args []string, vgep, blk bool) (*pag.Graph, error) {
	if len(args) == 1 {
		if f, err := os.Open(args[0]); err == nil {
			defer f.Close()
			if g, err := debugfile.Load(f); err == nil {
				return g, nil
			}
		}
	}

	res, err := ssaload.Load(args...)
	if err != nil {
		return nil, err
	}
	cfg := builder.DefaultConfig()
	cfg.VariantGep = vgep
	cfg.Blackhole = blk
	b := builder.New(res.Prog, res.Pkgs, res.Funcs, cfg)
	return builder.SafeBuild(b)
}
