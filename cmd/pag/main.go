// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pag loads real Go packages, builds a PAG, and can render or
// replay one via the dot and debugfile formats.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pag",
		Short: "Program Assignment Graph builder",
	}
	root.AddCommand(newBuildCmd())
	root.AddCommand(newDebugCmd())
	root.AddCommand(newDotCmd())
	root.AddCommand(newStatsCmd())
	return root
}
