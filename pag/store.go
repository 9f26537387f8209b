// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pag

import (
	"fmt"
	"sort"

	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/locset"
)

// Graph is the Program Assignment Graph: a directed multigraph of
// abstract locations (Node) and typed pointer-assignment edges (Edge).
// It combines the node store, edge store, and field-node cache into a
// single owned value returned from a build, never a process-wide
// singleton.
//
// Graph is append-only during a build and read-only afterwards;
// nothing in this package enforces that mechanically -- the builder's
// state machine is the sole legitimate caller of the mutating methods
// below.
type Graph struct {
	nodes []*Node
	edges []*Edge

	byKind map[EdgeKind]map[edgeKey]EdgeId

	byInst      map[ssa.Instruction][]EdgeId
	entryEdges  []EdgeId
	globalEdges []EdgeId

	valueNodes  map[ssa.Value]NodeId
	objectNodes map[ssa.Value]NodeId
	returnNodes map[*ssa.Function]NodeId
	varargNodes map[*ssa.Function]NodeId
	fiObjNodes  map[NodeId]NodeId

	memToFields map[NodeId]map[NodeId]bool

	gepObjCache map[NodeId]map[int64]NodeId
	gepValCache map[NodeId]map[int64]NodeId

	// variantGepVals caches the single variant-derived GepVal per base
	// node. A variant gep carries no fixed offset, so it cannot share
	// the offset-keyed cache above: a VariantGep node and a
	// NormalGep(0) node on the same base are distinct locations.
	variantGepVals map[NodeId]NodeId

	// Reserved special nodes, created by NewGraph before any IR walk.
	Blackhole NodeId
	Null      NodeId
}

type edgeKey struct {
	Src, Dst NodeId
	Kind     EdgeKind
	Off      int64
	Callsite ssa.CallInstruction
}

// NewGraph allocates an empty graph with its reserved special nodes:
// node 0 is the "no node" sentinel returned for analytically
// uninteresting (non-pointerlike) values, node 1 is the blackhole
// absorber, node 2 is the null-pointer constant.
func NewGraph() *Graph {
	g := &Graph{
		byKind:         make(map[EdgeKind]map[edgeKey]EdgeId),
		byInst:         make(map[ssa.Instruction][]EdgeId),
		valueNodes:     make(map[ssa.Value]NodeId),
		objectNodes:    make(map[ssa.Value]NodeId),
		returnNodes:    make(map[*ssa.Function]NodeId),
		varargNodes:    make(map[*ssa.Function]NodeId),
		fiObjNodes:     make(map[NodeId]NodeId),
		memToFields:    make(map[NodeId]map[NodeId]bool),
		gepObjCache:    make(map[NodeId]map[int64]NodeId),
		gepValCache:    make(map[NodeId]map[int64]NodeId),
		variantGepVals: make(map[NodeId]NodeId),
	}
	zero := g.AddNode(&Node{Kind: KindInvalid, Comment: "(zero)"})
	if zero != 0 {
		panic("pag: zero node must be id 0")
	}
	g.Blackhole = g.AddNode(&Node{Kind: KindDummyObj, Comment: "blackhole"})
	g.Null = g.AddNode(&Node{Kind: KindDummyVal, Comment: "null"})
	return g
}

// ---------- Node store ----------

// AddNode assigns the next node id, stores n, and returns its id.
func (g *Graph) AddNode(n *Node) NodeId {
	id := NodeId(len(g.nodes))
	n.ID = id
	g.nodes = append(g.nodes, n)
	return id
}

// Get returns the node for id. It panics (a programming error, not a
// recoverable condition) if id is absent.
func (g *Graph) Get(id NodeId) *Node {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		panic(fmt.Sprintf("pag: no such node n%d", id))
	}
	return g.nodes[id]
}

// NumNodes returns the number of nodes created so far.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// RegisterValue associates the value node id with v. Locals and
// globals share the same map; context-sensitive duplication of value
// nodes, if a solver wants it, happens downstream of this layer.
func (g *Graph) RegisterValue(v ssa.Value, id NodeId) { g.valueNodes[v] = id }

// RegisterObject associates the object node id with the SSA value that
// denotes its allocation site (Alloc/Global/Function/...).
func (g *Graph) RegisterObject(v ssa.Value, id NodeId) { g.objectNodes[v] = id }

// RegisterReturn associates the unique return-slot node id with f.
func (g *Graph) RegisterReturn(f *ssa.Function, id NodeId) { g.returnNodes[f] = id }

// RegisterVararg associates the unique variadic-slot node id with f.
func (g *Graph) RegisterVararg(f *ssa.Function, id NodeId) { g.varargNodes[f] = id }

// RegisterFIObj associates obj's unique field-insensitive collapse
// node and records it in mem_to_fields.
func (g *Graph) RegisterFIObj(obj, fi NodeId) {
	g.fiObjNodes[obj] = fi
	g.addMemField(obj, fi)
}

func (g *Graph) ValueNode(v ssa.Value) (NodeId, bool) {
	id, ok := g.valueNodes[v]
	return id, ok
}

func (g *Graph) ObjectNode(v ssa.Value) (NodeId, bool) {
	id, ok := g.objectNodes[v]
	return id, ok
}

func (g *Graph) ReturnNode(f *ssa.Function) (NodeId, bool) {
	id, ok := g.returnNodes[f]
	return id, ok
}

func (g *Graph) VarargNode(f *ssa.Function) (NodeId, bool) {
	id, ok := g.varargNodes[f]
	return id, ok
}

func (g *Graph) FIObjNode(obj NodeId) (NodeId, bool) {
	id, ok := g.fiObjNodes[obj]
	return id, ok
}

// addMemField extends mem_to_fields: obj -> set of every GepObj/FIObj
// node derived from it.
func (g *Graph) addMemField(obj, derived NodeId) {
	set, ok := g.memToFields[obj]
	if !ok {
		set = make(map[NodeId]bool)
		g.memToFields[obj] = set
	}
	set[derived] = true
}

// AllFieldsOf returns every GepObj/FIObj node derived from obj, in id
// order so callers iterate deterministically.
func (g *Graph) AllFieldsOf(obj NodeId) []NodeId {
	set := g.memToFields[obj]
	out := make([]NodeId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ---------- Field-node cache ----------

func (g *Graph) LookupGepObj(obj NodeId, ls locset.LocationSet) (NodeId, bool) {
	m, ok := g.gepObjCache[obj]
	if !ok {
		return 0, false
	}
	id, ok := m[ls.Offset]
	return id, ok
}

func (g *Graph) CacheGepObj(obj NodeId, ls locset.LocationSet, node NodeId) {
	m, ok := g.gepObjCache[obj]
	if !ok {
		m = make(map[int64]NodeId)
		g.gepObjCache[obj] = m
	}
	m[ls.Offset] = node
	g.addMemField(obj, node)
}

func (g *Graph) LookupVariantGepVal(base NodeId) (NodeId, bool) {
	id, ok := g.variantGepVals[base]
	return id, ok
}

func (g *Graph) CacheVariantGepVal(base, node NodeId) {
	g.variantGepVals[base] = node
}

func (g *Graph) LookupGepVal(base NodeId, ls locset.LocationSet) (NodeId, bool) {
	m, ok := g.gepValCache[base]
	if !ok {
		return 0, false
	}
	id, ok := m[ls.Offset]
	return id, ok
}

func (g *Graph) CacheGepVal(base NodeId, ls locset.LocationSet, node NodeId) {
	m, ok := g.gepValCache[base]
	if !ok {
		m = make(map[int64]NodeId)
		g.gepValCache[base] = m
	}
	m[ls.Offset] = node
}

// ---------- Edge store ----------

// AddIntra inserts an intra-procedural edge (Addr, Copy, Load, Store,
// NormalGep, VariantGep) if no edge with the same (src, dst, kind[, ls])
// already exists. It reports whether a new edge was inserted.
func (g *Graph) AddIntra(src, dst NodeId, kind EdgeKind, ls locset.LocationSet, ctx BuildContext) (EdgeId, bool) {
	if kind.IsInter() {
		panic(fmt.Sprintf("pag: AddIntra called with inter-procedural kind %s", kind))
	}
	var off int64
	if kind == NormalGep {
		off = ls.Offset
	}
	key := edgeKey{Src: src, Dst: dst, Kind: kind, Off: off}
	return g.insert(key, &Edge{Src: src, Dst: dst, Kind: kind, LS: ls}, ctx)
}

// AddInter inserts an inter-procedural edge (Call, Ret, ThreadFork,
// ThreadJoin) keyed additionally on callsite.
func (g *Graph) AddInter(src, dst NodeId, kind EdgeKind, cs ssa.CallInstruction, ctx BuildContext) (EdgeId, bool) {
	if !kind.IsInter() {
		panic(fmt.Sprintf("pag: AddInter called with intra-procedural kind %s", kind))
	}
	key := edgeKey{Src: src, Dst: dst, Kind: kind, Callsite: cs}
	return g.insert(key, &Edge{Src: src, Dst: dst, Kind: kind, Callsite: cs}, ctx)
}

func (g *Graph) insert(key edgeKey, e *Edge, ctx BuildContext) (EdgeId, bool) {
	set, ok := g.byKind[e.Kind]
	if !ok {
		set = make(map[edgeKey]EdgeId)
		g.byKind[e.Kind] = set
	}
	if id, exists := set[key]; exists {
		return id, false // duplicate: not an error, just not inserted
	}

	id := EdgeId(len(g.edges))
	e.ID = id
	e.Inst = ctx.Inst
	g.edges = append(g.edges, e)
	set[key] = id

	srcNode := g.Get(e.Src)
	dstNode := g.Get(e.Dst)
	srcNode.addOut(e.Kind, id)
	dstNode.addIn(e.Kind, id)

	g.attribute(id, ctx)
	return id, true
}

// attribute attaches an edge to its instruction if one is set; else
// to the function-entry bucket if the current block is the function's
// entry block; else it becomes a global edge.
func (g *Graph) attribute(id EdgeId, ctx BuildContext) {
	switch {
	case ctx.Inst != nil:
		g.byInst[ctx.Inst] = append(g.byInst[ctx.Inst], id)
	case ctx.isEntryBlock():
		g.entryEdges = append(g.entryEdges, id)
	default:
		g.globalEdges = append(g.globalEdges, id)
	}
}

// EdgesForInst returns the edges attributed to inst.
func (g *Graph) EdgesForInst(inst ssa.Instruction) []EdgeId {
	return g.byInst[inst]
}

// EntryEdges returns the edges attributed to a function's entry block
// with no owning instruction.
func (g *Graph) EntryEdges() []EdgeId { return g.entryEdges }

// GlobalEdges returns the edges with neither owning instruction nor block.
func (g *Graph) GlobalEdges() []EdgeId { return g.globalEdges }
