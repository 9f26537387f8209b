// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pag

import "github.com/pagbuilder/pag/locset"

// This file implements the Graph's outbound read-only query
// interface, consumed by downstream pointer-analysis solvers and
// client analyses after the build has finished.

// Nodes returns every node in id order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Edges returns every edge of the given kind, in insertion order, so
// downstream tie-breaks are reproducible across identical builds.
func (g *Graph) Edges(kind EdgeKind) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// AllEdges returns every edge of every kind, in id order.
func (g *Graph) AllEdges() []*Edge {
	return g.edges
}

// Incoming returns the ids of edges of the given kind whose Dst is node.
func (g *Graph) Incoming(node NodeId, kind EdgeKind) []EdgeId {
	n := g.Get(node)
	return n.in[kind]
}

// Outgoing returns the ids of edges of the given kind whose Src is node.
func (g *Graph) Outgoing(node NodeId, kind EdgeKind) []EdgeId {
	n := g.Get(node)
	return n.out[kind]
}

// Edge looks up an edge by id.
func (g *Graph) Edge(id EdgeId) *Edge {
	if int(id) < 0 || int(id) >= len(g.edges) {
		panic("pag: no such edge")
	}
	return g.edges[id]
}

// IsValidPointer reports whether id denotes a real node other than the
// reserved zero/invalid sentinel.
func (g *Graph) IsValidPointer(id NodeId) bool {
	return id != 0 && int(id) < len(g.nodes)
}

// BaseOf returns the base node of id: the source of its single
// incoming gep edge (NormalGep or VariantGep), or id itself if it has
// none. Because every gep edge is inserted using the canonical
// base->dst endpoints, this is a single hop, never a walk: a node has
// at most one incoming gep edge and it already originates at the true
// base.
func (g *Graph) BaseOf(id NodeId) NodeId {
	n := g.Get(id)
	if ids := n.in[NormalGep]; len(ids) > 0 {
		return g.Edge(ids[0]).Src
	}
	if ids := n.in[VariantGep]; len(ids) > 0 {
		return g.Edge(ids[0]).Src
	}
	return id
}

// LocationSetOfIncomingGep returns the LocationSet carried by id's
// incoming NormalGep edge, or the zero LocationSet if id has no
// incoming NormalGep edge (including when it has an incoming
// VariantGep instead, which carries no fixed offset).
func (g *Graph) LocationSetOfIncomingGep(id NodeId) locset.LocationSet {
	n := g.Get(id)
	if ids := n.in[NormalGep]; len(ids) > 0 {
		return g.Edge(ids[0]).LS
	}
	return locset.Zero
}

// FieldsAfterCollapse returns the node set that should be treated as
// obj's fields once field-insensitive collapse is applied: the
// singleton {FIObj} if obj collapsed, else every derived GepObj node
// plus obj itself.
func (g *Graph) FieldsAfterCollapse(obj NodeId) []NodeId {
	if fi, ok := g.FIObjNode(obj); ok {
		return []NodeId{fi}
	}
	return append(g.AllFieldsOf(obj), obj)
}
