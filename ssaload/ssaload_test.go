// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ssaload

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLoadFmtStandardLibrary exercises Load against a real installed
// package (the standard library's fmt, always present for any Go
// toolchain able to run this test) rather than a fixture module, since
// go/packages resolves patterns through the ambient build environment.
func TestLoadFmtStandardLibrary(t *testing.T) {
	res, err := Load("fmt")
	if err != nil {
		t.Skipf("no usable go/packages environment: %v", err)
	}
	assert.NotNil(t, res.Prog)
	assert.NotEmpty(t, res.Pkgs)
	assert.NotEmpty(t, res.Funcs)
}

// TestLoadFuncsAreSorted checks the determinism fix: Funcs must come
// back in a stable order rather than the nondeterministic order
// ssautil.AllFunctions's underlying map iteration would otherwise give.
func TestLoadFuncsAreSorted(t *testing.T) {
	res, err := Load("fmt")
	if err != nil {
		t.Skipf("no usable go/packages environment: %v", err)
	}
	names := make([]string, len(res.Funcs))
	for i, fn := range res.Funcs {
		names[i] = fn.String()
	}
	assert.True(t, sort.StringsAreSorted(names), "Load must return Funcs in sorted order")
}

// TestLoadUnknownPackageErrors checks that a pattern matching nothing
// real is reported as an error rather than silently producing an empty
// result.
func TestLoadUnknownPackageErrors(t *testing.T) {
	_, err := Load("this/package/does/not/exist/anywhere")
	assert.Error(t, err)
}
