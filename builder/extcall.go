// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/extapi"
	"github.com/pagbuilder/pag/locset"
	"github.com/pagbuilder/pag/pag"
)

// handleExternalCall models a direct call whose callee has no body
// (fn.Blocks == nil, i.e. it is a declaration this program links
// against rather than defines -- runtime intrinsics, cgo stubs, or
// assembly-bodied stdlib functions) through the external-call table
// in extapi rather than walking it as a normal call.
func (b *Builder) handleExternalCall(instr ssa.CallInstruction, fn *ssa.Function, ctx pag.BuildContext) {
	policy := extapi.Classify(fn.RelString(nil))
	b.applyEffect(instr, policy, instr.Common().Args, ctx)
}

// applyEffect emits the synthetic edges an effect policy calls for,
// shared between a body-less external call (handleExternalCall) and a
// builtin call that the modeller treats the same way (append, copy --
// see handleBuiltinCall).
func (b *Builder) applyEffect(instr ssa.CallInstruction, policy extapi.Policy, args []ssa.Value, ctx pag.BuildContext) {
	result := instr.Value()
	resultPointer := result != nil && isPointerShaped(result.Type())

	switch policy.Effect {
	case extapi.NoEffect:
		// Nothing to model: the call has no pointer-assignment effect
		// (e.g. runtime.memhash over opaque bytes).

	case extapi.Alloc:
		if !resultPointer {
			return
		}
		dstID, ok := b.g.ValueNode(result)
		if !ok {
			panic("pag: external alloc call result has no node: " + result.String())
		}
		heap := b.tab.MakeObject(nil, pointedToType(result.Type()), "ext.alloc")
		b.g.AddIntra(heap, dstID, pag.Addr, locset.Zero, ctx)

	case extapi.Realloc:
		if !resultPointer {
			return
		}
		dstID, ok := b.g.ValueNode(result)
		if !ok {
			panic("pag: external realloc call result has no node: " + result.String())
		}
		if arg := argOrNil(args, policy.ArgIdx); arg != nil && isPointerShaped(arg.Type()) {
			srcID := b.resolveValue(arg, ctx)
			b.g.AddIntra(srcID, dstID, pag.Copy, locset.Zero, ctx)
		}
		// The backing store may also have been reallocated: the result
		// may just as soundly denote a fresh object, not only the
		// original argument's.
		heap := b.tab.MakeObject(nil, pointedToType(result.Type()), "ext.realloc")
		b.g.AddIntra(heap, dstID, pag.Addr, locset.Zero, ctx)

	case extapi.Memcpy:
		b.applyMemcpy(instr, policy, args, ctx)

	case extapi.Memset:
		b.applyMemset(instr, policy, args, ctx)

	case extapi.RetArg:
		if !resultPointer {
			return
		}
		arg := argOrNil(args, policy.ArgIdx)
		if arg == nil || !isPointerShaped(arg.Type()) {
			return
		}
		dstID, ok := b.g.ValueNode(result)
		if !ok {
			panic("pag: external call result has no node: " + result.String())
		}
		srcID := b.resolveValue(arg, ctx)
		b.g.AddIntra(srcID, dstID, pag.Copy, locset.Zero, ctx)

	case extapi.Unknown:
		if !resultPointer {
			return
		}
		dstID, ok := b.g.ValueNode(result)
		if !ok {
			panic("pag: external call result has no node: " + result.String())
		}
		b.g.AddIntra(b.g.Blackhole, dstID, pag.Copy, locset.Zero, ctx)
	}
}

// applyMemcpy models a memmove-shaped callee: for each flattened
// field offset common to dst's and src's pointed-to layouts, a
// Load/Store pair through a fresh per-field transient node carries
// whatever pointer value lives at that field from src to dst. The tmp
// node per field keeps the Load and Store edges for distinct fields
// from ever sharing an edge-store key even when two fields happen to
// read/write the same underlying base value (Load/Store identity has
// no field-offset component, only (src, dst, kind)).
func (b *Builder) applyMemcpy(instr ssa.CallInstruction, policy extapi.Policy, args []ssa.Value, ctx pag.BuildContext) {
	dst := argOrNil(args, policy.DstArg)
	src := argOrNil(args, policy.SrcArg)
	if dst == nil || src == nil || !isPointerShaped(dst.Type()) || !isPointerShaped(src.Type()) {
		return
	}
	dstID := b.resolveValue(dst, ctx)
	srcID := b.resolveValue(src, ctx)

	dstFields := b.tab.FlattenedFields(pointedToType(dst.Type()))
	srcFields := b.tab.FlattenedFields(pointedToType(src.Type()))
	n := len(dstFields)
	if len(srcFields) < n {
		n = len(srcFields)
	}
	for i := 0; i < n; i++ {
		if !isPointerShaped(dstFields[i].Type) && !isPointerShaped(srcFields[i].Type) {
			continue
		}
		off := locset.LocationSet{Offset: int64(i)}
		srcFieldAddr := b.getOrCreateGepVal(srcID, off)
		dstFieldAddr := b.getOrCreateGepVal(dstID, off)
		tmp := b.g.AddNode(&pag.Node{Kind: pag.KindVal, Comment: "memcpy.tmp"})
		b.g.AddIntra(srcFieldAddr, tmp, pag.Load, locset.Zero, ctx)
		b.g.AddIntra(tmp, dstFieldAddr, pag.Store, locset.Zero, ctx)
	}
}

// applyMemset models a memset-shaped callee: every flattened field
// offset of dst's pointed-to layout receives a Store of the fill
// value -- the fill argument if it is itself pointer-shaped, else the
// null constant (FillArg == -1 means the call has no fill operand at
// all, e.g. runtime.memclrNoHeapPointers, which only ever zeroes). No
// per-field tmp node is needed here: the Store edges already differ
// on their destination field address, which is enough to keep the
// edge store from collapsing them.
func (b *Builder) applyMemset(instr ssa.CallInstruction, policy extapi.Policy, args []ssa.Value, ctx pag.BuildContext) {
	dst := argOrNil(args, policy.DstArg)
	if dst == nil || !isPointerShaped(dst.Type()) {
		return
	}
	dstID := b.resolveValue(dst, ctx)

	fillID := b.g.Null
	if policy.FillArg >= 0 {
		if fill := argOrNil(args, policy.FillArg); fill != nil && isPointerShaped(fill.Type()) {
			fillID = b.resolveValue(fill, ctx)
		}
	}

	fields := b.tab.FlattenedFields(pointedToType(dst.Type()))
	for i, f := range fields {
		if !isPointerShaped(f.Type) {
			continue
		}
		off := locset.LocationSet{Offset: int64(i)}
		dstFieldAddr := b.getOrCreateGepVal(dstID, off)
		b.g.AddIntra(fillID, dstFieldAddr, pag.Store, locset.Zero, ctx)
	}
}

func argOrNil(args []ssa.Value, i int) ssa.Value {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}
