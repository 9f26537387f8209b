// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symtab

import (
	"go/types"

	"github.com/pagbuilder/pag/locset"
)

// flatten computes the flattened field layout of typ:
//
//   - a non-aggregate type (basic, pointer, interface, chan, map, func,
//     signature) is a single leaf field at offset 0;
//   - a struct's layout is the concatenation of its fields' layouts, in
//     declaration order, each shifted by the running leaf count so far
//     (embedded/nested structs flatten recursively, matching the
//     upstream pointer-analysis package's field-sensitive gep handling);
//   - an array or slice collapses to a single occurrence of its element
//     layout: every index aliases the same flattened fields, since gep
//     with a non-constant (or out-of-range) array index cannot be
//     resolved to a distinct field at build time.
//
// The result is never empty: every type has at least one flattened
// field (itself, for a non-aggregate).
func flatten(typ types.Type) []FieldInfo {
	switch ut := typ.Underlying().(type) {
	case *types.Struct:
		var out []FieldInfo
		for i := 0; i < ut.NumFields(); i++ {
			base := int64(len(out))
			for _, f := range flatten(ut.Field(i).Type()) {
				out = append(out, FieldInfo{
					Type: f.Type,
					LS:   locset.Add(f.LS, locset.LocationSet{Offset: base}),
				})
			}
		}
		if len(out) == 0 {
			// An empty struct still occupies one nominal field so that
			// objects of this type have a well-defined (singleton)
			// field layout rather than an empty one.
			return []FieldInfo{{Type: typ}}
		}
		return out
	case *types.Array:
		return flatten(ut.Elem())
	case *types.Slice:
		return flatten(ut.Elem())
	default:
		return []FieldInfo{{Type: typ}}
	}
}
