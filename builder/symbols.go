// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/pag"
)

// initializeSymbols is the symbol-table initialization pass: it
// creates the graph (reserving the blackhole and null sentinels), then
// pre-registers a node id for every value, object, return-slot and
// vararg-slot the instruction walk will later reference, before any
// edge is inserted.
func (b *Builder) initializeSymbols() {
	b.g = pag.NewGraph()
	b.tab = newTableForConfig(b.g, b.cfg)

	for _, pkg := range b.pkgs {
		for _, gv := range sortedGlobals(pkg) {
			b.registerObject(gv, pointedToType(gv.Type()))
		}
	}

	for _, fn := range b.funcs {
		b.registerFunction(fn)
	}
}

// registerFunction pre-registers fn's return slot, vararg slot,
// parameters, free variables, and every pointer-shaped value its
// instructions define.
func (b *Builder) registerFunction(fn *ssa.Function) {
	// An external (body-less) function still needs a return slot so
	// call-handling can target it even though fn.Blocks is nil.
	retID := b.g.AddNode(&pag.Node{Kind: pag.KindRet, Func: fn, Comment: fmt.Sprintf("ret(%s)", fn.String())})
	b.g.RegisterReturn(fn, retID)

	if fn.Signature.Variadic() {
		vaID := b.g.AddNode(&pag.Node{Kind: pag.KindVarArg, Func: fn, Comment: fmt.Sprintf("vararg(%s)", fn.String())})
		b.g.RegisterVararg(fn, vaID)
	}

	// The function itself, used as a first-class value (e.g. the
	// routine argument of a `go` statement or an indirect-call
	// target), is modelled as an address-taken Obj: its "address" is
	// the function's code pointer.
	b.registerObject(fn, fn.Signature)

	for _, p := range fn.Params {
		b.registerValue(p)
	}
	for _, fv := range fn.FreeVars {
		b.registerValue(fv)
	}
	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			v, ok := instr.(ssa.Value)
			if !ok {
				continue
			}
			switch {
			case isObjectSite(v):
				b.registerObject(v, pointedToType(v.Type()))
			case isGepInstr(v):
				// FieldAddr/IndexAddr results are resolved lazily by
				// the gep dispatcher through the field-node cache,
				// which may canonicalize this instruction's value
				// onto a node created for a structurally earlier,
				// offset-equivalent gep. Pre-registering a Val node
				// here would just be discarded as an orphan.
			default:
				b.registerValue(v)
			}
		}
	}
}

// registerValue pre-registers a Val node for v if v is
// pointer-shaped; non-pointer values are never given a node (the node
// store only tracks pointer-relevant locations).
func (b *Builder) registerValue(v ssa.Value) {
	if !isPointerShaped(v.Type()) {
		return
	}
	if _, ok := b.g.ValueNode(v); ok {
		return
	}
	id := b.g.AddNode(&pag.Node{Kind: pag.KindVal, Value: v, Comment: v.Name()})
	b.g.RegisterValue(v, id)
}

// registerObject pre-registers both the Obj node for the abstract
// memory location v denotes (using tab.MakeObject so its flattened
// field layout and field-insensitive collapse, if any, are computed
// up front) and the corresponding Val node for v itself, since every
// object-creating value is also a pointer-shaped value in its own
// right. The Addr edge linking them is emitted later, during the
// global or instruction walk, not here -- only the ids have to exist
// before the walk, not the edges.
func (b *Builder) registerObject(v ssa.Value, pointedTo types.Type) {
	objID := b.tab.MakeObject(v, pointedTo, v.String())
	b.g.RegisterObject(v, objID)
	b.registerValue(v)
}
