// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package extapi implements the external-call policy table: a static
// table keyed by callee name mapping to one of a fixed set of effect
// kinds the builder turns into synthetic edges.
package extapi

// Effect is the synthetic-edge pattern an external call's effect kind
// selects.
type Effect int

const (
	// NoEffect emits nothing.
	NoEffect Effect = iota
	// Alloc means the return value points to a fresh heap object.
	Alloc
	// Realloc means the argument at ArgIdx aliases the result, which
	// may also denote a fresh heap object.
	Realloc
	// Memcpy flattens the pointed-to types of dst/src and emits a
	// Load/Store pair per field offset common to both layouts. The size
	// argument is not consulted: the copy is bounded by the shorter
	// flattened layout, not by sz.
	Memcpy
	// Memset emits a Store of the fill value at each field offset of
	// the pointed-to type.
	Memset
	// RetArg means the call's result aliases one specific argument.
	RetArg
	// Unknown means the call is a blackhole: emit Copy blackhole->val(cs).
	Unknown
)

func (e Effect) String() string {
	switch e {
	case NoEffect:
		return "no_effect"
	case Alloc:
		return "alloc"
	case Realloc:
		return "realloc"
	case Memcpy:
		return "memcpy"
	case Memset:
		return "memset"
	case RetArg:
		return "ret_arg"
	case Unknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Policy is one row of the external-call table: an effect kind plus,
// for RetArg and Realloc, the argument index that aliases the result, and for
// Memcpy/Memset the positional roles of dst/src/size/fill among the
// call's arguments.
type Policy struct {
	Effect  Effect
	ArgIdx  int // meaningful for RetArg/Realloc: which argument aliases the return value
	DstArg  int // meaningful for Memcpy/Memset: index of the destination pointer argument
	SrcArg  int // meaningful for Memcpy: index of the source pointer argument
	SizeArg int // meaningful for Memcpy/Memset: index of the size argument, or -1 if none
	FillArg int // meaningful for Memset: index of the fill-value argument
}

// table is the static policy table for Go's own external/intrinsic
// surface. It is deliberately not exhaustive: any callee absent from
// it is modelled Unknown, which is sound, so rows exist only where a
// more precise effect is both known and useful.
var table = map[string]Policy{
	// append grows or reuses the backing array, so its result aliases
	// argument 0 (the slice being appended to) under the sound
	// over-approximation that the realloc may or may not occur.
	"append": {Effect: Realloc, ArgIdx: 0},

	// The copy builtin is memmove-shaped: element flow from src to
	// dst, no aliasing of the int result. Its size is the min of the
	// two slice lengths, never a static constant, hence SizeArg -1.
	"copy": {Effect: Memcpy, DstArg: 0, SrcArg: 1, SizeArg: -1},

	// Compiler-recognized copy/zero intrinsics.
	"runtime.memmove":              {Effect: Memcpy, DstArg: 0, SrcArg: 1, SizeArg: 2},
	"runtime.memclrNoHeapPointers": {Effect: Memset, DstArg: 0, FillArg: -1, SizeArg: 1},
	"runtime.memclrHasPointers":    {Effect: Memset, DstArg: 0, FillArg: -1, SizeArg: 1},

	// Heap allocation.
	"runtime.newobject": {Effect: Alloc},
	"runtime.makeslice": {Effect: Alloc},
	"runtime.makemap":   {Effect: Alloc},
	"runtime.makechan":  {Effect: Alloc},

	// Hashing/comparison over opaque memory has no pointer effect.
	"runtime.memhash":  {Effect: NoEffect},
	"runtime.memequal": {Effect: NoEffect},

	// Raw syscalls are opaque: any pointer argument may escape to
	// arbitrary unknown state, modelled as a blackhole.
	"syscall.RawSyscall": {Effect: Unknown},
	"syscall.Syscall":    {Effect: Unknown},
	"syscall.Syscall6":   {Effect: Unknown},
}

// Classify returns the effect policy for an external callee name.
// A name absent from the table classifies as Unknown, the sound
// blackhole default.
func Classify(name string) Policy {
	if p, ok := table[name]; ok {
		return p
	}
	return Policy{Effect: Unknown}
}
