// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ssaload is the IR loader: it loads real Go source via
// golang.org/x/tools/go/packages, builds it to SSA form via
// golang.org/x/tools/go/ssa, and returns the *ssa.Program together
// with the function set builder.New walks.
package ssaload

import (
	"fmt"
	"sort"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Result is everything builder.New needs from a loaded program.
type Result struct {
	Prog  *ssa.Program
	Funcs []*ssa.Function
	Pkgs  []*ssa.Package
}

// packagesMode is the minimal go/packages load mode that gives the ssa
// builder everything it needs: syntax, type information, and transitive
// dependencies (so cross-package static calls resolve to a real
// *ssa.Function rather than an external stub wherever source is
// available).
const packagesMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedDeps | packages.NeedTypes |
	packages.NeedSyntax | packages.NeedTypesInfo

// Load resolves patterns (the same package-pattern syntax `go build`
// accepts) via go/packages, builds every well-typed package to SSA
// with ssautil.AllPackages, and returns the program plus the full
// transitively-reachable function set via ssautil.AllFunctions, the
// set this module's Builder walks.
func Load(patterns ...string) (*Result, error) {
	cfg := &packages.Config{Mode: packagesMode}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("ssaload: loading packages: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("ssaload: packages contained errors")
	}

	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.SanityCheckFunctions)
	prog.Build()

	// ssautil.AllFunctions returns a map, whose iteration order is not
	// deterministic; the builder's node/edge ids must not depend on
	// map-iteration order, so the function set is sorted into a stable
	// order before being handed to the builder.
	all := ssautil.AllFunctions(prog)
	funcs := make([]*ssa.Function, 0, len(all))
	for fn := range all {
		funcs = append(funcs, fn)
	}
	sort.Slice(funcs, func(i, j int) bool {
		return funcs[i].String() < funcs[j].String()
	})

	return &Result{Prog: prog, Funcs: funcs, Pkgs: ssaPkgs}, nil
}
