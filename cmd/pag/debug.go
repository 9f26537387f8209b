// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagbuilder/pag/debugfile"
)

// newDebugCmd implements `pag debug <file>`: loads a serialized PAG via
// debugfile and reports its size, the same counters `pag build` prints.
func newDebugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug <file>",
		Short: "Load a serialized PAG and report its size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("pag debug: %w", err)
			}
			defer f.Close()

			g, err := debugfile.Load(f)
			if err != nil {
				return fmt.Errorf("pag debug: %w", err)
			}
			report(cmd, g)
			return nil
		},
	}
}
