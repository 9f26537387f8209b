// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locset

import "testing"

func TestAdd(t *testing.T) {
	a := LocationSet{Offset: 2}
	b := LocationSet{Offset: 3}
	got := Add(a, b)
	if got.Offset != 5 {
		t.Errorf("Add(%v,%v) = %v, want offset 5", a, b, got)
	}
}

func TestZeroIsIdentity(t *testing.T) {
	a := LocationSet{Offset: 7}
	if !Add(a, Zero).Equal(a) {
		t.Errorf("Add(a, Zero) != a")
	}
}

func TestModulus(t *testing.T) {
	tests := []struct {
		off, cap, want int64
	}{
		{5, 3, 2},
		{0, 3, 0},
		{-1, 3, 2},
		{5, 0, 5}, // non-positive cap: unchanged
	}
	for _, tt := range tests {
		got := LocationSet{Offset: tt.off}.Modulus(tt.cap)
		if got.Offset != tt.want {
			t.Errorf("Modulus(%d, %d) = %d, want %d", tt.off, tt.cap, got.Offset, tt.want)
		}
	}
}

func TestEqualAndHash(t *testing.T) {
	a := LocationSet{Offset: 4}
	b := LocationSet{Offset: 4}
	c := LocationSet{Offset: 5}
	if !a.Equal(b) {
		t.Errorf("expected %v == %v", a, b)
	}
	if a.Equal(c) {
		t.Errorf("expected %v != %v", a, c)
	}
	if a.Hash() != b.Hash() {
		t.Errorf("expected equal hashes for equal location sets")
	}
}
