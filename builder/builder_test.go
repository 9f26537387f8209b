// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/pag"
)

// buildSSAProgram compiles one or more single-file packages (keyed by
// package name, none importing another) into a shared *ssa.Program,
// the same technique threadapi's own tests use to get real SSA
// fixtures rather than hand-built ones.
func buildSSAProgram(t *testing.T, srcs map[string]string) (*ssa.Program, []*ssa.Package) {
	t.Helper()
	fset := token.NewFileSet()
	prog := ssa.NewProgram(fset, ssa.SanityCheckFunctions)

	names := make([]string, 0, len(srcs))
	for name := range srcs {
		names = append(names, name)
	}
	sort.Strings(names)

	var pkgs []*ssa.Package
	for _, name := range names {
		f, err := parser.ParseFile(fset, name+".go", srcs[name], parser.ParseComments)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		files := []*ast.File{f}

		tc := &types.Config{Importer: importer.Default()}
		info := &types.Info{
			Types:      make(map[ast.Expr]types.TypeAndValue),
			Defs:       make(map[*ast.Ident]types.Object),
			Uses:       make(map[*ast.Ident]types.Object),
			Implicits:  make(map[ast.Node]types.Object),
			Selections: make(map[*ast.SelectorExpr]*types.Selection),
			Scopes:     make(map[ast.Node]*types.Scope),
		}
		pkg, err := tc.Check(name, fset, files, info)
		if err != nil {
			t.Fatalf("typecheck %s: %v", name, err)
		}
		pkgs = append(pkgs, prog.CreatePackage(pkg, files, info, false))
	}
	created := make(map[*types.Package]bool)
	for _, p := range pkgs {
		created[p.Pkg] = true
	}
	for _, p := range pkgs {
		createImportedPackages(prog, p.Pkg, created)
	}
	prog.Build()
	return prog, pkgs
}

// createImportedPackages ensures every package transitively imported
// by pkg has a corresponding *ssa.Package, which ssa.Program.Build
// requires even for packages with no syntax of their own.
func createImportedPackages(prog *ssa.Program, pkg *types.Package, created map[*types.Package]bool) {
	for _, imp := range pkg.Imports() {
		if created[imp] {
			continue
		}
		created[imp] = true
		prog.CreatePackage(imp, nil, nil, true)
		createImportedPackages(prog, imp, created)
	}
}

// buildSSA is the single-package shorthand most tests want.
func buildSSA(t *testing.T, pkgName, src string) *ssa.Package {
	t.Helper()
	_, pkgs := buildSSAProgram(t, map[string]string{pkgName: src})
	return pkgs[0]
}

// allFuncs gathers every *ssa.Function member of the given packages,
// sorted by name the same way ssaload.Load sorts its function set:
// Members is a map, and the builder's id assignment must not see
// map-iteration order.
func allFuncs(pkgs ...*ssa.Package) []*ssa.Function {
	var funcs []*ssa.Function
	for _, p := range pkgs {
		for _, m := range p.Members {
			if fn, ok := m.(*ssa.Function); ok {
				funcs = append(funcs, fn)
			}
		}
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].String() < funcs[j].String() })
	return funcs
}

func newBuilder(t *testing.T, ssapkg *ssa.Package, cfg Config) *pag.Graph {
	t.Helper()
	b := New(ssapkg.Prog, []*ssa.Package{ssapkg}, allFuncs(ssapkg), cfg)
	g, err := SafeBuild(b)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return g
}

func findFieldAddrs(fn *ssa.Function) []*ssa.FieldAddr {
	var out []*ssa.FieldAddr
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			if fa, ok := instr.(*ssa.FieldAddr); ok {
				out = append(out, fa)
			}
		}
	}
	return out
}

// TestStoreLoad: two address-taken pointer cells, a store through
// one, a load back out.
func TestStoreLoad(t *testing.T) {
	ssapkg := buildSSA(t, "s1", `package s1

func f() *int {
	var p, q *int
	pp := &p
	qq := &q
	*pp = *qq
	return *pp
}`)
	g := newBuilder(t, ssapkg, DefaultConfig())

	assert.NotEmpty(t, g.Edges(pag.Addr), "expected Addr edges for the two address-taken locals")
	assert.NotEmpty(t, g.Edges(pag.Store), "expected a Store edge for *pp = *qq")
	assert.NotEmpty(t, g.Edges(pag.Load), "expected Load edges for *qq and *pp")
}

// TestDeterministicRebuild compiles and builds the same two-package,
// multi-global program twice, independently, and asserts the actual
// node ids of every named global and function -- and the full
// (src, dst, kind) edge sequence -- come out identical. Counts alone
// would not catch map-iteration order leaking into id assignment
// from the package or member walks.
func TestDeterministicRebuild(t *testing.T) {
	srcs := map[string]string{
		"alpha": `package alpha

var A1 *int
var A2 *int

func F(p *int) *int {
	A1 = p
	return A2
}`,
		"beta": `package beta

var B1 *int
var B2 *int

func G() **int {
	B2 = B1
	return &B1
}`,
	}

	build := func() (*pag.Graph, map[string]pag.NodeId) {
		prog, pkgs := buildSSAProgram(t, srcs)
		b := New(prog, pkgs, allFuncs(pkgs...), DefaultConfig())
		g, err := SafeBuild(b)
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		ids := make(map[string]pag.NodeId)
		for _, p := range pkgs {
			for name, member := range p.Members {
				key := p.Pkg.Path() + "." + name
				switch m := member.(type) {
				case *ssa.Global:
					if id, ok := g.ObjectNode(m); ok {
						ids[key+"/obj"] = id
					}
					if id, ok := g.ValueNode(m); ok {
						ids[key+"/val"] = id
					}
				case *ssa.Function:
					if id, ok := g.ReturnNode(m); ok {
						ids[key+"/ret"] = id
					}
				}
			}
		}
		return g, ids
	}

	g1, ids1 := build()
	g2, ids2 := build()

	assert.Equal(t, g1.NumNodes(), g2.NumNodes())
	assert.Equal(t, ids1, ids2, "node ids must not depend on package/member map-iteration order")

	type edge struct {
		Src, Dst pag.NodeId
		Kind     pag.EdgeKind
	}
	seq := func(g *pag.Graph) []edge {
		var out []edge
		for _, e := range g.AllEdges() {
			out = append(out, edge{Src: e.Src, Dst: e.Dst, Kind: e.Kind})
		}
		return out
	}
	assert.Equal(t, seq(g1), seq(g2), "edge ids and order must be reproducible")
}

// TestGepFieldSensitivity: two distinct FieldAddr instructions
// computing the address of the same struct field from the same base
// must canonicalize onto the same destination node through the
// field-node cache.
func TestGepFieldSensitivity(t *testing.T) {
	ssapkg := buildSSA(t, "s2", `package s2

type S struct {
	A *int
	B *int
}

func f(s *S) (*int, *int) {
	p1 := &s.B
	p2 := &s.B
	return *p1, *p2
}`)
	fn := ssapkg.Func("f")
	if !assert.NotNil(t, fn) {
		return
	}
	fieldAddrs := findFieldAddrs(fn)
	if !assert.Len(t, fieldAddrs, 2, "expected two FieldAddr instructions for &s.B, &s.B") {
		return
	}

	g := newBuilder(t, ssapkg, DefaultConfig())
	id1, ok1 := g.ValueNode(fieldAddrs[0])
	id2, ok2 := g.ValueNode(fieldAddrs[1])
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, id1, id2, "two geps to the same field must canonicalize to the same node")
}

// TestVariantGepDegradesToCopy: with variant gep disabled (the
// default), a non-constant slice index degrades to a plain Copy edge
// rather than a VariantGep.
func TestVariantGepDegradesToCopy(t *testing.T) {
	ssapkg := buildSSA(t, "s3a", `package s3a

func g(s []*int, i int) *int {
	return s[i]
}`)
	cfg := DefaultConfig()
	cfg.VariantGep = false
	graph := newBuilder(t, ssapkg, cfg)

	assert.Empty(t, graph.Edges(pag.VariantGep), "variant gep must be disabled by default")
	assert.NotEmpty(t, graph.Edges(pag.Copy), "a degraded variant gep emits a Copy edge")
}

// TestVariantGepEnabled: with --vgep, the same non-constant slice
// index emits a genuine VariantGep.
func TestVariantGepEnabled(t *testing.T) {
	ssapkg := buildSSA(t, "s3b", `package s3b

func g(s []*int, i int) *int {
	return s[i]
}`)
	cfg := DefaultConfig()
	cfg.VariantGep = true
	graph := newBuilder(t, ssapkg, cfg)

	assert.Len(t, graph.Edges(pag.VariantGep), 1)
}

// TestAppendRealloc exercises the external-call modeller's Realloc
// row through the append builtin: append's result
// aliases its first argument, and may also denote a fresh backing
// array (the builder's sound "it may or may not reallocate"
// over-approximation).
func TestAppendRealloc(t *testing.T) {
	ssapkg := buildSSA(t, "s4", `package s4

func h(s []int, x int) []int {
	return append(s, x)
}`)
	g := newBuilder(t, ssapkg, DefaultConfig())

	assert.NotEmpty(t, g.Edges(pag.Copy), "append's result should alias its first argument via Copy")
	assert.NotEmpty(t, g.Edges(pag.Addr), "append's result may also denote a fresh heap object")
}

// TestGoStatementThreadFork: a `go` statement must be classified Fork
// structurally (no name lookup) and emit a ThreadFork edge per
// pointer-typed actual/formal pair, attributed to the *ssa.Go
// callsite.
func TestGoStatementThreadFork(t *testing.T) {
	ssapkg := buildSSA(t, "s5", `package s5

func worker(x *int) {}

func spawn(p *int) {
	go worker(p)
}`)
	fn := ssapkg.Func("spawn")
	if !assert.NotNil(t, fn) {
		return
	}
	var goInstr *ssa.Go
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			if gi, ok := instr.(*ssa.Go); ok {
				goInstr = gi
			}
		}
	}
	if !assert.NotNil(t, goInstr, "expected a *ssa.Go instruction") {
		return
	}

	g := newBuilder(t, ssapkg, DefaultConfig())
	forks := g.Edges(pag.ThreadFork)
	found := false
	for _, e := range forks {
		if e.Callsite == ssa.CallInstruction(goInstr) {
			found = true
		}
	}
	assert.True(t, found, "expected a ThreadFork edge attributed to the go statement")
}

// TestWaitGroupWaitEmitsNoJoinEdge:
// (*sync.WaitGroup).Wait classifies as Join, but it has no
// return-value out-parameter (unlike pthread_join), so handleJoin
// correctly emits nothing rather than a ThreadJoin edge with a
// fabricated destination.
func TestWaitGroupWaitEmitsNoJoinEdge(t *testing.T) {
	ssapkg := buildSSA(t, "s5b", `package s5b

import "sync"

func joiner(wg *sync.WaitGroup) {
	wg.Wait()
}`)
	g := newBuilder(t, ssapkg, DefaultConfig())
	assert.Empty(t, g.Edges(pag.ThreadJoin))
}

// TestGlobalFieldAddress covers a constant-expression-like global
// initializer, which Go lowers into ordinary Store instructions
// inside a synthetic init() (see globals.go): a global pointing at a
// field of another global still produces the same Addr + NormalGep +
// Store chain. The Store is attributed to init()'s instruction; the
// Addr (from walkGlobals) and the NormalGep (from the field-node
// cache) are global edges with no owning instruction.
func TestGlobalFieldAddress(t *testing.T) {
	ssapkg := buildSSA(t, "s6", `package s6

type S struct {
	A *int
	B *int
}

var s S
var g = &s.B
`)
	g := newBuilder(t, ssapkg, DefaultConfig())

	sGlobal := ssapkg.Var("s")
	gGlobal := ssapkg.Var("g")
	if !assert.NotNil(t, sGlobal) || !assert.NotNil(t, gGlobal) {
		return
	}

	sObjID, ok := g.ObjectNode(sGlobal)
	assert.True(t, ok, "s must have been registered as an object during walkGlobals")
	sValID, ok := g.ValueNode(sGlobal)
	assert.True(t, ok)
	gValID, ok := g.ValueNode(gGlobal)
	assert.True(t, ok)

	foundAddr := false
	for _, e := range g.Edges(pag.Addr) {
		if e.Src == sObjID && e.Dst == sValID {
			foundAddr = true
		}
	}
	assert.True(t, foundAddr, "expected Addr: obj(s) -> val(s)")

	assert.NotEmpty(t, g.Edges(pag.NormalGep), "expected a NormalGep edge for &s.B")

	foundStore := false
	for _, e := range g.Edges(pag.Store) {
		if e.Dst == gValID {
			foundStore = true
		}
	}
	assert.True(t, foundStore, "expected a Store into val(g)")
}

// TestCopyBuiltinMemcpy exercises the memcpy effect through the copy
// builtin, Go's reachable memmove-shaped surface: each pointer-shaped
// flattened field of the source flows to the matching field of the
// destination via a Load/Store pair through a transient node.
func TestCopyBuiltinMemcpy(t *testing.T) {
	ssapkg := buildSSA(t, "s4b", `package s4b

func k(dst, src []*int) int {
	return copy(dst, src)
}`)
	g := newBuilder(t, ssapkg, DefaultConfig())

	assert.NotEmpty(t, g.Edges(pag.Load), "copy should emit a per-field Load from src")
	assert.NotEmpty(t, g.Edges(pag.Store), "copy should emit a per-field Store into dst")
	assert.NotEmpty(t, g.Edges(pag.NormalGep), "the per-field addresses are field-cache gep nodes")
}

// TestPhiBackEdgeGepOperand covers a phi whose back-edge operand is a
// FieldAddr defined in a later block than the phi itself: the lookup
// must resolve the gep on demand through the field-node cache, not
// mint an orphan node that the later dispatch silently replaces.
func TestPhiBackEdgeGepOperand(t *testing.T) {
	ssapkg := buildSSA(t, "s7", `package s7

type S struct {
	A *int
	B *int
}

func loop(s *S, n int) *int {
	p := &s.A
	for i := 0; i < n; i++ {
		p = &s.B
	}
	return *p
}`)
	fn := ssapkg.Func("loop")
	if !assert.NotNil(t, fn) {
		return
	}

	g := newBuilder(t, ssapkg, DefaultConfig())

	for _, fa := range findFieldAddrs(fn) {
		id, ok := g.ValueNode(fa)
		if !assert.True(t, ok, "FieldAddr %s must have a node", fa) {
			continue
		}
		assert.NotEqual(t, id, g.BaseOf(id), "FieldAddr %s must resolve to a field-cache node with an incoming gep edge", fa)
	}
}

// TestVariantAndNormalGepStayDistinct checks that a variant gep and a
// NormalGep at offset 0 on the same base canonicalize to different
// nodes: the variant cache is keyed on base alone, not (base, 0).
func TestVariantAndNormalGepStayDistinct(t *testing.T) {
	ssapkg := buildSSA(t, "s3c", `package s3c

func m(s []*int, i int) (*int, *int) {
	return s[0], s[i]
}`)
	cfg := DefaultConfig()
	cfg.VariantGep = true
	g := newBuilder(t, ssapkg, cfg)

	assert.Len(t, g.Edges(pag.VariantGep), 1)
	assert.NotEmpty(t, g.Edges(pag.NormalGep))
	for _, e := range g.Edges(pag.VariantGep) {
		for _, ne := range g.Edges(pag.NormalGep) {
			assert.NotEqual(t, e.Dst, ne.Dst, "variant and normal gep destinations must not collide")
		}
	}
}
