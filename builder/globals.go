// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"sort"

	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/locset"
	"github.com/pagbuilder/pag/pag"
)

// walkGlobals is the global walker, run before the instruction
// stream: every *ssa.Global is address-taken by construction the same
// way a stack Alloc is, so each gets an Addr edge from its Obj node to
// its own Val node. Unlike an LLVM global, an ssa.Global
// carries no literal constant initializer to recurse through -- Go's
// ssa builder lowers global initialization into ordinary Store
// instructions inside each package's synthetic init() function, which
// the regular instruction walk already covers (those stores simply
// have an owning instruction, so they are not global edges). What
// remains genuinely initializer-like, with no owning instruction, is
// handled here: the Addr edge for the global's own address, and (for
// every function value in the program) the Addr edge binding a
// function's code pointer to its own Val node, since a function is
// "address-taken" the instant it exists, before any MakeClosure or
// indirect-call instruction ever references it.
//
// All edges here use pag.Global (the zero-value BuildContext), so
// they land in the edge store's global bucket: no owning instruction,
// and the same node must be reachable identically regardless of which
// function first references it.
func (b *Builder) walkGlobals() {
	for _, pkg := range b.pkgs {
		for _, gv := range sortedGlobals(pkg) {
			b.addrOf(gv, pag.Global)
		}
	}
	for _, fn := range b.funcs {
		b.addrOf(fn, pag.Global)
	}
}

// sortedGlobals returns pkg's *ssa.Global members in name order.
// Package.Members is a plain map, so ranging it directly would leak
// runtime map-iteration order into node and edge id assignment.
func sortedGlobals(pkg *ssa.Package) []*ssa.Global {
	names := make([]string, 0, len(pkg.Members))
	for name := range pkg.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []*ssa.Global
	for _, name := range names {
		if gv, ok := pkg.Members[name].(*ssa.Global); ok {
			out = append(out, gv)
		}
	}
	return out
}

// addrOf emits the canonical Addr: obj(v) -> val(v) edge for an
// already-registered object-valued v: every "this value denotes a
// fresh address-taken location" site (Alloc, Global, Function, and
// the Make* family handled in dispatch.go).
func (b *Builder) addrOf(v ssa.Value, ctx pag.BuildContext) {
	objID, ok := b.g.ObjectNode(v)
	if !ok {
		panic("pag: addrOf on unregistered object " + v.String())
	}
	valID, ok := b.g.ValueNode(v)
	if !ok {
		panic("pag: addrOf on unregistered value " + v.String())
	}
	b.g.AddIntra(objID, valID, pag.Addr, locset.Zero, ctx)
}

// resolveValue is the lazy half of value-node lookup: most operands
// were already pre-registered during initializeSymbols, but a handful
// of operand shapes are only ever discovered while walking
// instructions --
// *ssa.Const (whose only pointer-shaped instance is the nil constant
// of some reference type) and values belonging to a function outside
// b.funcs (an external function's formal parameters, referenced as a
// ThreadFork/Call target) -- so lookups for those are resolved here,
// on demand, exactly once.
func (b *Builder) resolveValue(v ssa.Value, ctx pag.BuildContext) pag.NodeId {
	if id, ok := b.g.ValueNode(v); ok {
		return id
	}
	if c, ok := v.(*ssa.Const); ok {
		if !isPointerShaped(c.Type()) {
			panic("pag: resolveValue on non-pointer-shaped constant " + c.String())
		}
		// Every pointer-shaped constant Go's SSA can produce is the nil
		// value of that type (interfaces, channels, maps, slices, funcs,
		// and pointers have no other literal form); alias it to the
		// canonical null node rather than minting one node per nil site.
		b.g.RegisterValue(v, b.g.Null)
		return b.g.Null
	}
	// A gep instruction referenced before the walk reaches it (a phi
	// back-edge operand defined later in block order): resolve it now,
	// in its own context, so the lookup lands on the canonical
	// field-cache node rather than an orphan Val node. The walk's own
	// later visit is a no-op (the dispatchers return early once the
	// instruction's value is registered).
	switch instr := v.(type) {
	case *ssa.FieldAddr:
		b.dispatchFieldAddr(instr, pag.BuildContext{Inst: instr, Block: instr.Block(), Fn: instr.Parent()})
		id, _ := b.g.ValueNode(v)
		return id
	case *ssa.IndexAddr:
		b.dispatchIndexAddr(instr, pag.BuildContext{Inst: instr, Block: instr.Block(), Fn: instr.Parent()})
		id, _ := b.g.ValueNode(v)
		return id
	}
	// A value from a function this builder never walked (typically a
	// parameter of a body-less external function, reached only as a
	// ThreadFork/Call formal). Register it lazily, attributed wherever
	// this lookup happened to occur.
	if !isPointerShaped(v.Type()) {
		panic("pag: resolveValue on non-pointer-shaped value with no node: " + v.String())
	}
	id := b.g.AddNode(&pag.Node{Kind: pag.KindVal, Value: v, Comment: v.Name()})
	b.g.RegisterValue(v, id)
	return id
}
