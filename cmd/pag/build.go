// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagbuilder/pag/builder"
	"github.com/pagbuilder/pag/dot"
	"github.com/pagbuilder/pag/pag"
	"github.com/pagbuilder/pag/ssaload"
)

// newBuildCmd implements `pag build <patterns...>`: loads patterns
// via ssaload, runs the builder, reports node/edge counts, and
// optionally emits a DOT rendering.
func newBuildCmd() *cobra.Command {
	var vgep, blk bool
	var fieldCap int64
	var dotPath string

	cmd := &cobra.Command{
		Use:   "build <patterns...>",
		Short: "Build a PAG from Go packages and report its size",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := ssaload.Load(args...)
			if err != nil {
				return fmt.Errorf("pag build: %w", err)
			}

			cfg := builder.DefaultConfig()
			cfg.VariantGep = vgep
			cfg.Blackhole = blk
			if fieldCap > 0 {
				cfg.MaxFieldCap = fieldCap
			}

			b := builder.New(res.Prog, res.Pkgs, res.Funcs, cfg)
			g, err := builder.SafeBuild(b)
			if err != nil {
				return fmt.Errorf("pag build: %w", err)
			}

			report(cmd, g)

			if dotPath != "" {
				f, err := os.Create(dotPath)
				if err != nil {
					return fmt.Errorf("pag build: %w", err)
				}
				defer f.Close()
				if err := dot.Write(f, g); err != nil {
					return fmt.Errorf("pag build: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&vgep, "vgep", false, "emit VariantGep edges for non-constant array indices")
	cmd.Flags().BoolVar(&blk, "blk", false, "route undefined-provenance pointers through the blackhole sentinel")
	cmd.Flags().Int64Var(&fieldCap, "fieldcap", 0, "per-object field cap before collapsing to field-insensitive (0 = default)")
	cmd.Flags().StringVar(&dotPath, "dot", "", "write a DOT rendering of the built graph to this path")
	return cmd
}

func report(cmd *cobra.Command, g *pag.Graph) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "nodes: %d\n", g.NumNodes())
	for _, k := range []pag.EdgeKind{
		pag.Addr, pag.Copy, pag.Load, pag.Store,
		pag.NormalGep, pag.VariantGep, pag.Call, pag.Ret,
		pag.ThreadFork, pag.ThreadJoin,
	} {
		fmt.Fprintf(out, "%s edges: %d\n", k, len(g.Edges(k)))
	}
}
