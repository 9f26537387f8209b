// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package builder implements the PAG builder: the subsystem that
// walks a golang.org/x/tools/go/ssa program and produces a pag.Graph.
// It owns the instruction dispatcher, the global walker, and the
// current-location context threading.
package builder

import (
	"fmt"
	"io"
	"sort"

	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/pag"
	"github.com/pagbuilder/pag/symtab"
)

// State is the builder's lifecycle state machine.
type State int

const (
	Fresh State = iota
	Initialized
	GlobalsWalked
	InstructionsWalked
	SanityChecked
	Done
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Initialized:
		return "initialized"
	case GlobalsWalked:
		return "globals_walked"
	case InstructionsWalked:
		return "instructions_walked"
	case SanityChecked:
		return "sanity_checked"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Config holds the builder's CLI-exposed switches.
type Config struct {
	// VariantGep enables emitting VariantGep edges for non-constant
	// array-index geps. When false (the default), a variant gep
	// degrades to a Copy edge, a sound over-approximation.
	VariantGep bool
	// Blackhole routes int-to-pointer conversions and other
	// undefined-provenance pointers through the blackhole sentinel.
	// When false (the default), they are routed through the null
	// constant instead.
	Blackhole bool
	// MaxFieldCap bounds the number of distinct fields an object is
	// modelled with before collapsing to field-insensitive
	// (symtab.DefaultMaxFieldCap if zero).
	MaxFieldCap int64
	// Trace, if non-nil, receives a line of diagnostic output per
	// instruction visited.
	Trace io.Writer
}

// DefaultConfig returns the spec's default switch settings: variant
// gep disabled, blackhole routing disabled, default field cap.
func DefaultConfig() Config {
	return Config{MaxFieldCap: symtab.DefaultMaxFieldCap}
}

// Builder drives one Build call to completion. It is not reusable
// across multiple builds and not safe for concurrent use: one program
// is built at a time, on one goroutine.
type Builder struct {
	cfg   Config
	state State

	prog  *ssa.Program
	pkgs  []*ssa.Package
	funcs []*ssa.Function

	g   *pag.Graph
	tab *symtab.Table

	// indirectTargets accumulates resolved callees for indirect call
	// sites registered via AddIndirectResolution.
	indirectTargets map[ssa.CallInstruction][]*ssa.Function

	// indirectSites collects every call site the initial walk could not
	// resolve statically, for a collaborator driving on-the-fly callee
	// discovery via AddIndirectResolution.
	indirectSites []ssa.CallInstruction
}

// New creates a Builder over prog that will walk the globals of pkgs
// and the instructions of funcs (typically ssaload.Result's Pkgs and
// Funcs). It does not begin building; call Build to run the full
// pipeline.
//
// Node and edge ids are handed out in walk order, so the walk order
// itself must be reproducible: funcs is expected pre-sorted (ssaload
// already does this), and pkgs is re-sorted here by import path
// rather than trusted, since ssa.Program.AllPackages-style sources
// are map-backed.
func New(prog *ssa.Program, pkgs []*ssa.Package, funcs []*ssa.Function, cfg Config) *Builder {
	if cfg.MaxFieldCap == 0 {
		cfg.MaxFieldCap = symtab.DefaultMaxFieldCap
	}
	sorted := append([]*ssa.Package(nil), pkgs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Pkg.Path() < sorted[j].Pkg.Path()
	})
	return &Builder{
		cfg:             cfg,
		state:           Fresh,
		prog:            prog,
		pkgs:            sorted,
		funcs:           funcs,
		indirectTargets: make(map[ssa.CallInstruction][]*ssa.Function),
	}
}

// Graph returns the builder's graph. Valid at any state from
// Initialized onward; callers that want the frozen, fully-built result
// should use Build's return value instead.
func (b *Builder) Graph() *pag.Graph { return b.g }

// Table returns the builder's symbol table.
func (b *Builder) Table() *symtab.Table { return b.tab }

// AddIndirectResolution re-invokes the direct-call rule for cs
// against a newly resolved callee target. Intended for collaborators
// (on-the-fly solvers) that discover indirect-call targets after the
// initial build. The edges are added to the builder's graph
// immediately; before Build has run there is no graph and the call
// panics.
func (b *Builder) AddIndirectResolution(cs ssa.CallInstruction, target *ssa.Function) {
	b.indirectTargets[cs] = append(b.indirectTargets[cs], target)
	ctx := pag.BuildContext{Inst: cs, Block: cs.Block(), Fn: cs.Parent()}
	if _, isGo := cs.(*ssa.Go); isGo {
		b.resolveForkTarget(cs, target, ctx)
		return
	}
	b.resolveCallTo(cs, target, ctx)
}

// Build runs the builder through every lifecycle state and returns
// the finished, read-only graph. Operations attempted out of sequence
// panic, as do internal inconsistencies (a malformed gep, a missing
// symbol-table registration): both are programming errors, not
// recoverable conditions. Build itself does not recover; callers that
// want an error return instead of a propagating panic should use
// SafeBuild.
func (b *Builder) Build() *pag.Graph {
	b.requireState(Fresh)
	b.initializeSymbols()
	b.state = Initialized

	b.requireState(Initialized)
	b.walkGlobals()
	b.state = GlobalsWalked

	b.requireState(GlobalsWalked)
	b.walkInstructions()
	b.state = InstructionsWalked

	b.requireState(InstructionsWalked)
	b.sanityCheck()
	b.state = SanityChecked

	b.state = Done
	return b.g
}

// SafeBuild runs b.Build, recovering any panic into an error. This is
// the entry point CLI-style callers (cmd/pag) should use; library
// callers that prefer the panic to propagate should call
// (*Builder).Build directly.
func SafeBuild(b *Builder) (g *pag.Graph, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pag: build failed: %v", r)
		}
	}()
	g = b.Build()
	return g, nil
}

func (b *Builder) requireState(want State) {
	if b.state != want {
		panic(fmt.Sprintf("pag: builder in state %s, expected %s", b.state, want))
	}
}

func newTableForConfig(g *pag.Graph, cfg Config) *symtab.Table {
	return symtab.NewWithCap(g, cfg.MaxFieldCap)
}

func (b *Builder) tracef(format string, args ...interface{}) {
	if b.cfg.Trace != nil {
		fmt.Fprintf(b.cfg.Trace, format+"\n", args...)
	}
}

// sanityCheck implements the SanityChecked state's checks: the
// invariants that are cheap to verify structurally without a full
// re-walk (single incoming gep edge per node, and gep edges
// originating at their destination's base). Canonical-edge uniqueness
// and field-cache uniqueness hold by construction of the edge and
// field-cache stores and are not re-verified here.
func (b *Builder) sanityCheck() {
	g := b.g
	for _, n := range g.Nodes() {
		normal := g.Incoming(n.ID, pag.NormalGep)
		variant := g.Incoming(n.ID, pag.VariantGep)
		if len(normal)+len(variant) > 1 {
			panic(fmt.Sprintf("pag: node n%d has more than one incoming gep edge", n.ID))
		}
		for _, id := range append(append([]pag.EdgeId{}, normal...), variant...) {
			e := g.Edge(id)
			if g.BaseOf(e.Dst) != e.Src {
				panic(fmt.Sprintf("pag: gep edge e%d violates base_of(dst) == src", id))
			}
		}
	}
}
