// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/extapi"
	"github.com/pagbuilder/pag/locset"
	"github.com/pagbuilder/pag/pag"
	"github.com/pagbuilder/pag/threadapi"
)

// handleCall classifies and handles ssa.CallInstruction's three
// concrete forms (*ssa.Call, *ssa.Go, *ssa.Defer). A `go` statement
// always models thread fork structurally -- it needs no name lookup,
// unlike pthread_create; everything else is classified by callee
// name.
func (b *Builder) handleCall(instr ssa.CallInstruction, ctx pag.BuildContext) {
	if _, isGo := instr.(*ssa.Go); isGo {
		b.handleFork(instr, ctx)
		return
	}

	common := instr.Common()
	if blt, ok := common.Value.(*ssa.Builtin); ok {
		b.handleBuiltinCall(instr, blt, ctx)
		return
	}

	if fn := common.StaticCallee(); fn != nil {
		if threadapi.Classify(fn.RelString(nil)) == threadapi.Join {
			b.handleJoin(instr, ctx)
			return
		}
		b.resolveCallTo(instr, fn, ctx)
		return
	}

	// Neither a builtin nor statically resolvable: an interface-method
	// invoke or a call through a func-typed value. Record the call
	// site for later resolution; no edges until callee targets are
	// known.
	b.recordIndirectCall(instr)
}

// resolveCallTo handles a callee resolved
// either at the initial walk (a direct static call) or later, by a
// collaborator calling AddIndirectResolution for a call site that was
// originally indirect -- both paths converge here so an indirectly
// resolved callee gets exactly the same external-call/normal-call
// treatment a directly resolved one would.
func (b *Builder) resolveCallTo(instr ssa.CallInstruction, fn *ssa.Function, ctx pag.BuildContext) {
	if fn.Blocks == nil {
		b.handleExternalCall(instr, fn, ctx)
		return
	}
	b.genStaticCall(instr, fn, instr.Common().Args, ctx)
}

// genStaticCall is the normal-call rule: a Call edge per
// pointer-typed actual/formal pair, a Ret edge from the callee's
// single return slot to the call's result if used, and a Call edge
// from the last actual into the callee's dedicated vararg slot when
// the callee is variadic.
func (b *Builder) genStaticCall(instr ssa.CallInstruction, fn *ssa.Function, args []ssa.Value, ctx pag.BuildContext) {
	for i, actual := range args {
		if i >= len(fn.Params) {
			break
		}
		formal := fn.Params[i]
		if !isPointerShaped(actual.Type()) || !isPointerShaped(formal.Type()) {
			continue
		}
		srcID := b.resolveValue(actual, ctx)
		dstID, ok := b.g.ValueNode(formal)
		if !ok {
			panic("pag: formal parameter has no node: " + formal.String())
		}
		b.g.AddInter(srcID, dstID, pag.Call, instr, ctx)

		if fn.Signature.Variadic() && i == len(fn.Params)-1 {
			if vaID, ok := b.g.VarargNode(fn); ok {
				b.g.AddInter(srcID, vaID, pag.Call, instr, ctx)
			}
		}
	}

	result := instr.Value()
	if result == nil || !isPointerShaped(result.Type()) {
		return
	}
	retID, ok := b.g.ReturnNode(fn)
	if !ok {
		panic("pag: callee has no return node: " + fn.String())
	}
	dstID, ok := b.g.ValueNode(result)
	if !ok {
		panic("pag: call result has no node: " + result.String())
	}
	b.g.AddInter(retID, dstID, pag.Ret, instr, ctx)
}

// handleFork models a `go` statement: a ThreadFork edge per
// pointer-typed actual/formal pair of the spawned routine,
// generalizing pthread_create's single thread-argument shape to Go's
// natural multi-argument `go f(args...)`.
func (b *Builder) handleFork(instr ssa.CallInstruction, ctx pag.BuildContext) {
	fn := instr.Common().StaticCallee()
	if fn == nil {
		// `go` through a dynamically resolved func value or interface
		// method: record for later resolution like any other indirect
		// call (AddIndirectResolution re-invokes the direct-call rule,
		// which routes back through resolveForkTarget for a *ssa.Go
		// call site).
		b.recordIndirectCall(instr)
		return
	}
	b.resolveForkTarget(instr, fn, ctx)
}

// resolveForkTarget emits the ThreadFork edges for a *ssa.Go call site
// once its spawned function is known, whether that happened at the
// initial walk (handleFork) or later via AddIndirectResolution.
func (b *Builder) resolveForkTarget(instr ssa.CallInstruction, fn *ssa.Function, ctx pag.BuildContext) {
	args := instr.Common().Args
	for i, actual := range args {
		if i >= len(fn.Params) {
			break
		}
		formal := fn.Params[i]
		if !isPointerShaped(actual.Type()) || !isPointerShaped(formal.Type()) {
			continue
		}
		srcID := b.resolveValue(actual, ctx)
		dstID, ok := b.g.ValueNode(formal)
		if !ok {
			panic("pag: forked routine's formal parameter has no node: " + formal.String())
		}
		b.g.AddInter(srcID, dstID, pag.ThreadFork, instr, ctx)
	}
}

// handleJoin models a directly
// classified join call (a cgo-bridged pthread_join, or
// (*sync.WaitGroup).Wait): when the classifier's joined-thread and
// joined-return-value accessors both resolve to pointer-typed operands,
// a ThreadJoin edge threads the join handle's value into the
// out-parameter that receives the joined thread's result, mirroring
// the same shape a Call edge would use. APIs with no return-value
// out-parameter (sync.WaitGroup.Wait) have nothing to connect.
func (b *Builder) handleJoin(instr ssa.CallInstruction, ctx pag.BuildContext) {
	thread := threadapi.JoinedThreadArg(instr)
	ret := threadapi.JoinedRetArg(instr)
	if thread == nil || ret == nil || !isPointerShaped(thread.Type()) || !isPointerShaped(ret.Type()) {
		return
	}
	srcID := b.resolveValue(thread, ctx)
	dstID := b.resolveValue(ret, ctx)
	b.g.AddInter(srcID, dstID, pag.ThreadJoin, instr, ctx)
}

// handleBuiltinCall dispatches calls to Go's predeclared builtins:
// append (Realloc) and copy (per-field Memcpy) are modelled via the
// external-call modeller (extapi), recover conservatively blackholes (the
// previously panicking value is not tracked), and the remaining
// builtins (len, cap, close, delete, print, println, real, imag,
// complex) carry no pointer-assignment semantics.
func (b *Builder) handleBuiltinCall(instr ssa.CallInstruction, blt *ssa.Builtin, ctx pag.BuildContext) {
	args := instr.Common().Args
	switch blt.Name() {
	case "append", "copy":
		b.applyEffect(instr, extapi.Classify(blt.Name()), args, ctx)
	case "recover":
		if result := instr.Value(); result != nil && isPointerShaped(result.Type()) {
			if dstID, ok := b.g.ValueNode(result); ok {
				b.g.AddIntra(b.g.Blackhole, dstID, pag.Copy, locset.Zero, ctx)
			}
		}
	default:
		// close, delete, len, cap, print, println, real, imag, complex: no-ops.
	}
}

// recordIndirectCall records a call site whose callee set is not yet
// known. Downstream collaborators (on-the-fly solvers) discover
// targets and feed them back through Builder.AddIndirectResolution.
func (b *Builder) recordIndirectCall(instr ssa.CallInstruction) {
	b.indirectSites = append(b.indirectSites, instr)
}

// IndirectSites returns every call site recorded as indirect during
// the walk, for a collaborator driving on-the-fly callee discovery.
func (b *Builder) IndirectSites() []ssa.CallInstruction {
	return b.indirectSites
}
