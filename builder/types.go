// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// isPointerShaped reports whether t is one of the Go types this
// builder treats as "pointer-typed": pointers proper, and the other
// Go reference types whose values already denote an indirection to a possibly
// shared, possibly heap-allocated object (interfaces, channels, maps,
// slices, and func values). unsafe.Pointer is included since it is a
// pointer at the representation level even though go/types classifies
// it as a Basic kind.
func isPointerShaped(t types.Type) bool {
	switch u := t.Underlying().(type) {
	case *types.Pointer, *types.Interface, *types.Chan, *types.Map, *types.Slice, *types.Signature:
		return true
	case *types.Basic:
		return u.Kind() == types.UnsafePointer
	default:
		return false
	}
}

// pointedToType returns the type of the abstract object t's pointer
// value denotes, used to compute an allocation site's flattened field
// layout. For a *types.Pointer, that is its element type; for the
// other reference-shaped kinds the value and its "object" coincide
// (there is no separate dereferenced element type), so t itself is
// used.
func pointedToType(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

// isGepInstr reports whether v is a field/index address computation
// whose destination node is resolved lazily through the field-node
// cache rather than pre-registered (see registerFunction).
func isGepInstr(v ssa.Value) bool {
	switch v.(type) {
	case *ssa.FieldAddr, *ssa.IndexAddr:
		return true
	default:
		return false
	}
}

// isObjectSite reports whether v is itself the definition of a new
// abstract memory object (an alloca-like allocation site) as opposed
// to a value merely computed from existing ones.
func isObjectSite(v ssa.Value) bool {
	switch v.(type) {
	case *ssa.Alloc, *ssa.Global, *ssa.MakeChan, *ssa.MakeMap, *ssa.MakeSlice, *ssa.MakeInterface, *ssa.Function:
		return true
	default:
		return false
	}
}
