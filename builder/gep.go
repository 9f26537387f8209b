// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/locset"
	"github.com/pagbuilder/pag/pag"
	"github.com/pagbuilder/pag/symtab"
)

// dispatchFieldAddr handles *ssa.FieldAddr: a struct field access
// with a compile-time-constant field index, hence always a NormalGep
// step.
func (b *Builder) dispatchFieldAddr(instr *ssa.FieldAddr, ctx pag.BuildContext) {
	if _, ok := b.g.ValueNode(instr); ok {
		// Already resolved on demand: a phi whose back-edge operand is
		// this instruction looked it up before the walk reached it.
		return
	}
	srcID := b.resolveValue(instr.X, ctx)
	structType := derefStruct(instr.X.Type())
	if structType == nil {
		panic("pag: FieldAddr on non-struct-pointer base " + instr.X.String())
	}
	fieldOff := symtab.FieldOffset(structType, instr.Field)
	b.resolveGepStep(instr, srcID, locset.LocationSet{Offset: fieldOff}, false, ctx)
}

// dispatchIndexAddr handles *ssa.IndexAddr: array/slice element
// addressing. A constant index still contributes zero offset (array
// elements collapse to the same field for field-sensitivity
// purposes); a non-constant index forces the step to be variant.
func (b *Builder) dispatchIndexAddr(instr *ssa.IndexAddr, ctx pag.BuildContext) {
	if _, ok := b.g.ValueNode(instr); ok {
		return
	}
	srcID := b.resolveValue(instr.X, ctx)
	_, constIdx := instr.Index.(*ssa.Const)
	b.resolveGepStep(instr, srcID, locset.Zero, !constIdx, ctx)
}

// resolveGepStep performs one gep hop, where src is the Val node of
// the gep's base pointer operand and step is this hop's own
// contribution (zero if not yet known to be variant): walk src back to
// its base, accumulate the base's own offset, then canonicalize the
// result through the field-node cache. It registers dst (the gep
// instruction's own ssa.Value) as an alias of whatever node the cache
// returns, so that a structurally later, offset-equivalent gep reuses
// the same destination node.
func (b *Builder) resolveGepStep(dst ssa.Value, src pag.NodeId, step locset.LocationSet, stepVariant bool, ctx pag.BuildContext) {
	base := b.g.BaseOf(src)
	baseLS := b.g.LocationSetOfIncomingGep(src)
	srcAlreadyVariant := len(b.g.Incoming(src, pag.VariantGep)) > 0
	variant := stepVariant || srcAlreadyVariant

	if variant {
		if !b.cfg.VariantGep {
			// Degrades to Copy: a sound over-approximation.
			node := b.getOrCreateVariantDegradeNode(base, dst, ctx)
			b.g.RegisterValue(dst, node)
			return
		}
		node := b.getOrCreateVariantGepVal(base)
		b.g.RegisterValue(dst, node)
		return
	}

	combined := locset.Add(baseLS, step)
	node := b.getOrCreateGepVal(base, combined)
	b.g.RegisterValue(dst, node)
}

// getOrCreateVariantDegradeNode handles the degrade-to-Copy path: dst
// gets its own ordinary Val node (it is not field-sensitively
// canonicalized, since no LocationSet identity applies to a plain
// Copy), linked from base via a Copy edge.
func (b *Builder) getOrCreateVariantDegradeNode(base pag.NodeId, dst ssa.Value, ctx pag.BuildContext) pag.NodeId {
	if id, ok := b.g.ValueNode(dst); ok {
		b.g.AddIntra(base, id, pag.Copy, locset.Zero, ctx)
		return id
	}
	id := b.g.AddNode(&pag.Node{Kind: pag.KindVal, Value: dst, Comment: dst.Name()})
	b.g.AddIntra(base, id, pag.Copy, locset.Zero, ctx)
	return id
}

// getOrCreateGepVal looks (base, ls) up in the value-field cache; on
// miss it creates a new GepVal node and adds the canonical NormalGep
// edge from base to it, attributed as a global edge regardless of the
// caller's context: the edge defines a node shared across every
// callsite that reaches the same offset, so it cannot be owned by any
// one instruction.
func (b *Builder) getOrCreateGepVal(base pag.NodeId, ls locset.LocationSet) pag.NodeId {
	if id, ok := b.g.LookupGepVal(base, ls); ok {
		return id
	}
	id := b.g.AddNode(&pag.Node{Kind: pag.KindGepVal, Base: base, LS: ls})
	b.g.CacheGepVal(base, ls, id)
	b.g.AddIntra(base, id, pag.NormalGep, ls, pag.Global)
	return id
}

// getOrCreateVariantGepVal is the variant-offset counterpart: one
// variant-derived GepVal per base, cached separately from the
// offset-keyed cache so it can never collide with a NormalGep(0) node
// on the same base.
func (b *Builder) getOrCreateVariantGepVal(base pag.NodeId) pag.NodeId {
	if id, ok := b.g.LookupVariantGepVal(base); ok {
		return id
	}
	id := b.g.AddNode(&pag.Node{Kind: pag.KindGepVal, Base: base})
	b.g.CacheVariantGepVal(base, id)
	b.g.AddIntra(base, id, pag.VariantGep, locset.Zero, pag.Global)
	return id
}

// derefStruct returns the *types.Struct underlying t's pointed-to
// type, or nil if t does not point to a struct (a malformed gep
// input).
func derefStruct(t types.Type) *types.Struct {
	p, ok := t.Underlying().(*types.Pointer)
	if !ok {
		return nil
	}
	st, ok := p.Elem().Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	return st
}

