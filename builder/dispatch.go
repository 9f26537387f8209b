// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/locset"
	"github.com/pagbuilder/pag/pag"
)

// walkInstructions visits every basic block of every function this
// builder was constructed over and emits the edges dispatchInstr
// decides each instruction deserves, with the current-location context
// set to that instruction.
func (b *Builder) walkInstructions() {
	for _, fn := range b.funcs {
		b.tracef("walk %s", fn)
		for _, blk := range fn.Blocks {
			for _, instr := range blk.Instrs {
				b.tracef("\tvisit %v", instr)
				ctx := pag.BuildContext{Inst: instr, Block: blk, Fn: fn}
				b.dispatchInstr(instr, ctx)
			}
		}
	}
}

// dispatchInstr is the fixed per-instruction-kind rule table, keyed
// on the concrete ssa.Instruction dynamic type. Instruction kinds with
// no row in the table fall through to the default case and emit
// nothing, a deliberate sound over-approximation.
func (b *Builder) dispatchInstr(instr ssa.Instruction, ctx pag.BuildContext) {
	switch instr := instr.(type) {
	case *ssa.Alloc:
		b.addrOf(instr, ctx)

	case *ssa.MakeChan:
		b.addrOf(instr, ctx)
	case *ssa.MakeMap:
		b.addrOf(instr, ctx)
	case *ssa.MakeSlice:
		b.addrOf(instr, ctx)
	case *ssa.MakeInterface:
		b.dispatchMakeInterface(instr, ctx)

	case *ssa.FieldAddr:
		b.dispatchFieldAddr(instr, ctx)
	case *ssa.IndexAddr:
		b.dispatchIndexAddr(instr, ctx)

	case *ssa.Phi:
		b.dispatchPhi(instr, ctx)

	case *ssa.Store:
		b.dispatchStore(instr, ctx)

	case *ssa.UnOp:
		b.dispatchUnOp(instr, ctx)

	case *ssa.ChangeType:
		b.copyIfPointer(instr.X, instr, ctx)
	case *ssa.ChangeInterface:
		b.copyIfPointer(instr.X, instr, ctx)
	case *ssa.Convert:
		b.dispatchConvert(instr, ctx)
	case *ssa.Slice:
		b.copyIfPointer(instr.X, instr, ctx)
	case *ssa.TypeAssert:
		b.dispatchTypeAssert(instr, ctx)

	case *ssa.Extract:
		b.dispatchExtract(instr, ctx)
	case *ssa.Field:
		b.copyIfPointer(instr.X, instr, ctx)
	case *ssa.Index:
		b.copyIfPointer(instr.X, instr, ctx)

	case *ssa.MakeClosure:
		b.dispatchMakeClosure(instr, ctx)

	case *ssa.Return:
		b.dispatchReturn(instr, ctx)

	case *ssa.Send:
		b.storeIfPointer(instr.Chan, instr.X, ctx)
	case *ssa.MapUpdate:
		b.storeIfPointer(instr.Map, instr.Key, ctx)
		b.storeIfPointer(instr.Map, instr.Value, ctx)
	case *ssa.Lookup:
		b.loadIfPointer(instr.X, instr, ctx)
	case *ssa.Select:
		b.dispatchSelect(instr, ctx)

	case ssa.CallInstruction: // *ssa.Call, *ssa.Go, *ssa.Defer
		b.handleCall(instr, ctx)

	// *ssa.BinOp, *ssa.If, *ssa.Jump, *ssa.Range, *ssa.Panic,
	// *ssa.RunDefers, *ssa.DebugRef and every terminator/atomic
	// instruction not listed above carry no pointer-assignment
	// semantics in this model.
	default:
	}
}

// copyIfPointer emits Copy: val(src) -> val(dst) when both src and
// dst are pointer-shaped: the rule for casts and for every other "dst
// denotes the same object(s) as src" instruction (Slice,
// ChangeInterface). Field/Index-by-value also route here, but their
// operand is a struct or array value, which has no node, so they emit
// no edge.
func (b *Builder) copyIfPointer(src, dst ssa.Value, ctx pag.BuildContext) {
	if !isPointerShaped(dst.Type()) || !isPointerShaped(src.Type()) {
		return
	}
	srcID := b.resolveValue(src, ctx)
	dstID, ok := b.g.ValueNode(dst)
	if !ok {
		panic("pag: copyIfPointer on unregistered destination " + dst.String())
	}
	b.g.AddIntra(srcID, dstID, pag.Copy, locset.Zero, ctx)
}

// storeIfPointer emits Store: val(v) -> val(p) when v is
// pointer-typed. Send and MapUpdate reuse it too: they are
// Store-shaped writes through a channel/map reference rather than a
// plain pointer.
func (b *Builder) storeIfPointer(p, v ssa.Value, ctx pag.BuildContext) {
	if !isPointerShaped(v.Type()) {
		return
	}
	pID := b.resolveValue(p, ctx)
	vID := b.resolveValue(v, ctx)
	b.g.AddIntra(vID, pID, pag.Store, locset.Zero, ctx)
}

// loadIfPointer emits Load: val(p) -> val(dst) when dst is
// pointer-typed. A non-comma-ok Lookup reuses it: it reads a map value
// rather than dereferencing a plain pointer. (Next and comma-ok Lookup
// go through loadFromMap instead.)
func (b *Builder) loadIfPointer(p, dst ssa.Value, ctx pag.BuildContext) {
	if !isPointerShaped(dst.Type()) {
		return
	}
	pID := b.resolveValue(p, ctx)
	dstID, ok := b.g.ValueNode(dst)
	if !ok {
		panic("pag: loadIfPointer on unregistered destination " + dst.String())
	}
	b.g.AddIntra(pID, dstID, pag.Load, locset.Zero, ctx)
}

// dispatchPhi emits a Copy edge from each incoming value to the phi's
// own node, for pointer-typed phis.
func (b *Builder) dispatchPhi(instr *ssa.Phi, ctx pag.BuildContext) {
	if !isPointerShaped(instr.Type()) {
		return
	}
	dstID, ok := b.g.ValueNode(instr)
	if !ok {
		panic("pag: phi has no node: " + instr.String())
	}
	for _, edge := range instr.Edges {
		srcID := b.resolveValue(edge, ctx)
		b.g.AddIntra(srcID, dstID, pag.Copy, locset.Zero, ctx)
	}
}

// dispatchStore handles an ordinary store through a pointer.
func (b *Builder) dispatchStore(instr *ssa.Store, ctx pag.BuildContext) {
	b.storeIfPointer(instr.Addr, instr.Val, ctx)
}

// dispatchUnOp handles the two ssa.UnOp forms with pointer-assignment
// meaning: *p (token.MUL) and <-ch (token.ARROW, a load through a
// channel reference). NOT/SUB/XOR emit nothing; a MUL or non-comma-ok
// ARROW whose result is not pointer-shaped is dropped by the
// pointer-shaped-dst guard inside loadIfPointer.
func (b *Builder) dispatchUnOp(instr *ssa.UnOp, ctx pag.BuildContext) {
	switch instr.Op {
	case token.MUL, token.ARROW:
		if instr.CommaOk {
			// The (value, ok) tuple is unpacked by a later *ssa.Extract;
			// this UnOp itself is never pointer-shaped in that form.
			return
		}
		b.loadIfPointer(instr.X, instr, ctx)
	default:
		// NOT, SUB, XOR: no-op.
	}
}

// dispatchConvert handles pointer-to-pointer casts as Copy, plus the
// int-to-pointer special case: a Convert from an integer-kinded source
// to a pointer-kinded destination has no sound provenance, so its
// destination is routed through the blackhole (if enabled) or the null
// constant.
func (b *Builder) dispatchConvert(instr *ssa.Convert, ctx pag.BuildContext) {
	if !isPointerShaped(instr.Type()) {
		return
	}
	if isIntegerKinded(instr.X.Type()) {
		dstID, ok := b.g.ValueNode(instr)
		if !ok {
			panic("pag: convert has no node: " + instr.String())
		}
		if b.cfg.Blackhole {
			b.g.AddIntra(b.g.Blackhole, dstID, pag.Addr, locset.Zero, ctx)
		} else {
			b.g.AddIntra(b.g.Null, dstID, pag.Copy, locset.Zero, ctx)
		}
		return
	}
	if !isPointerShaped(instr.X.Type()) {
		// A conversion with a pointer-shaped result but
		// non-pointer-shaped source (e.g. string -> []byte): the
		// destination denotes a fresh backing object rather than
		// aliasing the source, the same treatment a MakeSlice gets.
		heap := b.tab.MakeObject(nil, pointedToType(instr.Type()), "convert")
		dstID, ok := b.g.ValueNode(instr)
		if !ok {
			panic("pag: convert has no node: " + instr.String())
		}
		b.g.AddIntra(heap, dstID, pag.Addr, locset.Zero, ctx)
		return
	}
	b.copyIfPointer(instr.X, instr, ctx)
}

// dispatchTypeAssert implements a type assertion's single-value form
// (v := x.(T)) as a Copy, the same sound over-approximation the cast
// row uses: the concrete value packed inside the interface may alias
// the same object regardless of which concrete type it is asserted to.
// The two-value, comma-ok form is unpacked by a following *ssa.Extract.
func (b *Builder) dispatchTypeAssert(instr *ssa.TypeAssert, ctx pag.BuildContext) {
	if instr.CommaOk {
		return
	}
	b.copyIfPointer(instr.X, instr, ctx)
}

// dispatchMakeInterface handles interface boxing: the interface value
// is itself address-taken (an interface header always denotes some
// concrete storage), and additionally aliases its boxed operand when
// that operand is itself pointer-shaped.
func (b *Builder) dispatchMakeInterface(instr *ssa.MakeInterface, ctx pag.BuildContext) {
	b.addrOf(instr, ctx)
	if isPointerShaped(instr.X.Type()) {
		b.copyIfPointer(instr.X, instr, ctx)
	}
}

// dispatchExtract handles tuple unpacking, for whichever
// tuple-producing instruction instr.Tuple denotes: the extracted
// component copies from the node that models the tuple's relevant
// field.
func (b *Builder) dispatchExtract(instr *ssa.Extract, ctx pag.BuildContext) {
	if !isPointerShaped(instr.Type()) {
		return
	}
	dstID, ok := b.g.ValueNode(instr)
	if !ok {
		panic("pag: extract has no node: " + instr.String())
	}
	srcID, ok := b.tupleFieldSource(instr.Tuple, instr.Index, ctx)
	if !ok {
		// An unmodelled tuple shape (e.g. the value of a comma-ok
		// channel receive):
		// blackhole rather than silently dropping the flow, since the
		// extracted value genuinely came from somewhere this builder
		// did not track precisely.
		srcID = b.g.Blackhole
		b.g.AddIntra(srcID, dstID, pag.Addr, locset.Zero, ctx)
		return
	}
	b.g.AddIntra(srcID, dstID, pag.Copy, locset.Zero, ctx)
}

// tupleFieldSource resolves the node that tuple unpacking should copy
// from for field index of a tuple-typed value. A multi-result static
// call's tuple collapses onto the callee's single Ret node (a function
// has one unique return slot, regardless of how many values it
// returns), which already makes this field-insensitive by construction
// -- there is no separate per-index cache to maintain.
func (b *Builder) tupleFieldSource(tuple ssa.Value, index int, ctx pag.BuildContext) (pag.NodeId, bool) {
	switch t := tuple.(type) {
	case *ssa.Call:
		if fn := t.Common().StaticCallee(); fn != nil {
			if id, ok := b.g.ReturnNode(fn); ok {
				return id, true
			}
		}
		return 0, false
	case *ssa.TypeAssert:
		if index == 0 && isPointerShaped(t.AssertedType) && isPointerShaped(t.X.Type()) {
			return b.resolveValue(t.X, ctx), true
		}
		return 0, false
	case *ssa.Next:
		if t.IsString || index == 0 {
			return 0, false
		}
		rng, ok := t.Iter.(*ssa.Range)
		if !ok {
			return 0, false
		}
		return b.loadFromMap(rng.X, ctx), true
	case *ssa.Lookup:
		if !t.CommaOk || index != 0 {
			return 0, false
		}
		return b.loadFromMap(t.X, ctx), true
	default:
		return 0, false
	}
}

// loadFromMap creates a fresh transient node representing "whatever
// was read out of theMap" and links it with a Load edge, mirroring the
// memcpy modeller's per-field tmp trick (extcall.go): the map's key and
// value types are flattened away here (field-insensitively) since Next
// and comma-ok Lookup both produce a single combined tuple rather than
// separately addressable key/value nodes.
func (b *Builder) loadFromMap(theMap ssa.Value, ctx pag.BuildContext) pag.NodeId {
	mapID := b.resolveValue(theMap, ctx)
	tmp := b.g.AddNode(&pag.Node{Kind: pag.KindVal, Comment: "maprange.tmp"})
	b.g.AddIntra(mapID, tmp, pag.Load, locset.Zero, ctx)
	return tmp
}

// dispatchMakeClosure handles closure creation: the closure value
// aliases its underlying function, and each bound free variable
// receives a Copy from its binding, exactly as a global's address
// flows to every reader of that global.
func (b *Builder) dispatchMakeClosure(instr *ssa.MakeClosure, ctx pag.BuildContext) {
	fn := instr.Fn.(*ssa.Function)
	b.copyIfPointer(fn, instr, ctx)
	for i, binding := range instr.Bindings {
		fv := fn.FreeVars[i]
		if !isPointerShaped(fv.Type()) {
			continue
		}
		srcID := b.resolveValue(binding, ctx)
		dstID, ok := b.g.ValueNode(fv)
		if !ok {
			panic("pag: free variable has no node: " + fv.String())
		}
		b.g.AddIntra(srcID, dstID, pag.Copy, locset.Zero, ctx)
	}
}

// dispatchReturn makes every pointer-typed result flow into the
// enclosing function's single Ret node.
func (b *Builder) dispatchReturn(instr *ssa.Return, ctx pag.BuildContext) {
	retID, ok := b.g.ReturnNode(instr.Parent())
	if !ok {
		panic("pag: function has no return node: " + instr.Parent().String())
	}
	for _, r := range instr.Results {
		if !isPointerShaped(r.Type()) {
			continue
		}
		srcID := b.resolveValue(r, ctx)
		b.g.AddIntra(srcID, retID, pag.Copy, locset.Zero, ctx)
	}
}

// dispatchSelect models a channel select: each send state is a Store
// to its channel. A receive state's value surfaces through a later
// Extract of instr's tuple (see tupleFieldSource), which this builder
// does not track per-state, so only the send direction is modelled
// here.
func (b *Builder) dispatchSelect(instr *ssa.Select, ctx pag.BuildContext) {
	for _, st := range instr.States {
		if st.Dir == types.SendOnly {
			b.storeIfPointer(st.Chan, st.Send, ctx)
		}
	}
}

// isIntegerKinded reports whether t is one of the basic integer
// kinds.
func isIntegerKinded(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	return b.Info()&types.IsInteger != 0
}
