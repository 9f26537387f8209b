// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threadapi

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/tools/go/ssa"
)

func TestClassifyPosix(t *testing.T) {
	assert.Equal(t, Fork, Classify("pthread_create"))
	assert.Equal(t, Join, Classify("pthread_join"))
	assert.Equal(t, Acquire, Classify("pthread_mutex_lock"))
	assert.Equal(t, None, Classify("not_a_thread_fn"))
}

func TestClassifyStdlib(t *testing.T) {
	assert.Equal(t, Acquire, Classify("(*sync.Mutex).Lock"))
	assert.Equal(t, Release, Classify("(*sync.Mutex).Unlock"))
	assert.Equal(t, Join, Classify("(*sync.WaitGroup).Wait"))
	assert.Equal(t, CondWait, Classify("(*sync.Cond).Wait"))
}

// buildSSA compiles src (a single-file package) to SSA form for tests
// that need a real ssa.CallInstruction, the same way the builder's own
// end-to-end scenario tests construct fixtures.
func buildSSA(t *testing.T, src string) (*ssa.Package, *ssa.Program) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "fork.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	files := []*ast.File{f}

	prog := ssa.NewProgram(fset, ssa.SanityCheckFunctions)
	tc := &types.Config{Importer: importer.Default()}
	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
	pkg, err := tc.Check("fork", fset, files, info)
	if err != nil {
		t.Fatalf("typecheck: %v", err)
	}
	ssapkg := prog.CreatePackage(pkg, files, info, false)
	prog.Build()
	return ssapkg, prog
}

func TestForkedArgsOnGoStatementNotClassifiedHere(t *testing.T) {
	// A `go` statement is classified Fork structurally by the builder
	// (it is a *ssa.Go, not a named call); Classify is never consulted
	// for it. This test documents that boundary.
	ssapkg, _ := buildSSA(t, `package fork

func worker(x int) {}

func spawn() {
	go worker(1)
}`)
	fn := ssapkg.Func("spawn")
	if !assert.NotNil(t, fn) {
		return
	}
	found := false
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if _, ok := instr.(*ssa.Go); ok {
				found = true
			}
		}
	}
	assert.True(t, found, "expected a *ssa.Go instruction for the go statement")
}

func TestLockValueIsReceiverForMethodCall(t *testing.T) {
	ssapkg, _ := buildSSA(t, `package fork

import "sync"

func locker(m *sync.Mutex) {
	m.Lock()
	m.Unlock()
}`)
	fn := ssapkg.Func("locker")
	if !assert.NotNil(t, fn) {
		return
	}
	var calls []ssa.CallInstruction
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if c, ok := instr.(*ssa.Call); ok {
				calls = append(calls, c)
			}
		}
	}
	if !assert.Len(t, calls, 2) {
		return
	}
	for _, cs := range calls {
		v := LockValue(cs)
		assert.NotNil(t, v)
	}
}
