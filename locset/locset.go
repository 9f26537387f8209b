// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package locset implements the location-set algebra used by the PAG's
// field-offset arithmetic: a symbolic accumulated offset within an
// aggregate object, expressed in units of the object's flattened field
// layout.
package locset

import "fmt"

// LocationSet currently wraps a single accumulated field Offset. The
// type is kept distinct from a bare int64 so it can later grow a
// stride/index set for array-indexed accesses without changing call
// sites that only need the zero/add/modulus operations below.
type LocationSet struct {
	Offset int64
}

// Zero is the identity element of Add.
var Zero = LocationSet{}

// Add returns the field-wise sum of a and b.
func Add(a, b LocationSet) LocationSet {
	return LocationSet{Offset: a.Offset + b.Offset}
}

// Equal reports whether a and b denote the same offset.
func (a LocationSet) Equal(b LocationSet) bool {
	return a.Offset == b.Offset
}

// Hash returns a value suitable for use as (part of) a map key.
func (a LocationSet) Hash() int64 {
	return a.Offset
}

// Modulus clamps the offset into [0, cap) by wraparound, keeping
// field offsets inside an object's bounded flattened layout. A
// cap of zero or less is treated as "no object layout known" and
// returns the offset unchanged: callers must not invoke Modulus with a
// non-positive cap for a real object.
func (a LocationSet) Modulus(cap int64) LocationSet {
	if cap <= 0 {
		return a
	}
	off := a.Offset % cap
	if off < 0 {
		off += cap
	}
	return LocationSet{Offset: off}
}

func (a LocationSet) String() string {
	return fmt.Sprintf("%d", a.Offset)
}
