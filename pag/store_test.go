// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/locset"
)

func TestNewGraphReservesSpecialNodes(t *testing.T) {
	g := NewGraph()
	assert.Equal(t, NodeId(0), g.Get(0).ID)
	assert.Equal(t, KindInvalid, g.Get(0).Kind)
	assert.Equal(t, KindDummyObj, g.Get(g.Blackhole).Kind)
	assert.Equal(t, KindDummyVal, g.Get(g.Null).Kind)
}

func TestAddIntraDeduplicates(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(&Node{Kind: KindObj})
	b := g.AddNode(&Node{Kind: KindVal})

	id1, inserted1 := g.AddIntra(a, b, Addr, locset.Zero, Global)
	assert.True(t, inserted1)

	id2, inserted2 := g.AddIntra(a, b, Addr, locset.Zero, Global)
	assert.False(t, inserted2, "duplicate intra edge must not be inserted")
	assert.Equal(t, id1, id2)

	assert.Len(t, g.Edges(Addr), 1)
}

func TestNormalGepIncludesOffsetInIdentity(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(&Node{Kind: KindVal})
	b := g.AddNode(&Node{Kind: KindGepVal})
	c := g.AddNode(&Node{Kind: KindGepVal})

	g.AddIntra(a, b, NormalGep, locset.LocationSet{Offset: 1}, Global)
	g.AddIntra(a, c, NormalGep, locset.LocationSet{Offset: 2}, Global)

	assert.Len(t, g.Edges(NormalGep), 2, "distinct offsets are distinct edges")

	// Re-adding the first one is still a duplicate.
	_, inserted := g.AddIntra(a, b, NormalGep, locset.LocationSet{Offset: 1}, Global)
	assert.False(t, inserted)
}

func TestAddInterKeysOnCallsite(t *testing.T) {
	g := NewGraph()
	src := g.AddNode(&Node{Kind: KindVal})
	dst := g.AddNode(&Node{Kind: KindVal})

	_, inserted1 := g.AddInter(src, dst, Call, nil, Global)
	assert.True(t, inserted1)

	// The nil callsite (global/synthetic calls) dedupes against itself.
	_, inserted2 := g.AddInter(src, dst, Call, nil, Global)
	assert.False(t, inserted2)

	// Same (src,dst,kind) but a distinct callsite is a distinct edge.
	cs1, cs2 := &ssa.Call{}, &ssa.Call{}
	_, inserted3 := g.AddInter(src, dst, Call, cs1, Global)
	assert.True(t, inserted3)
	_, inserted4 := g.AddInter(src, dst, Call, cs2, Global)
	assert.True(t, inserted4)
	_, inserted5 := g.AddInter(src, dst, Call, cs1, Global)
	assert.False(t, inserted5)
	assert.Len(t, g.Edges(Call), 3)
}

func TestBaseOfSingleHop(t *testing.T) {
	g := NewGraph()
	s := g.AddNode(&Node{Kind: KindVal})   // val(%s)
	pb := g.AddNode(&Node{Kind: KindVal})  // val(%pb)

	g.AddIntra(s, pb, NormalGep, locset.LocationSet{Offset: 1}, Global)

	assert.Equal(t, s, g.BaseOf(pb))
	assert.Equal(t, s, g.BaseOf(s), "a node with no incoming gep is its own base")
	assert.Equal(t, locset.LocationSet{Offset: 1}, g.LocationSetOfIncomingGep(pb))
}

func TestAdjacencyMirrorsStore(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(&Node{Kind: KindObj})
	b := g.AddNode(&Node{Kind: KindVal})

	id, _ := g.AddIntra(a, b, Addr, locset.Zero, Global)

	assert.Contains(t, g.Outgoing(a, Addr), id)
	assert.Contains(t, g.Incoming(b, Addr), id)
}

func TestFieldCacheUniqueness(t *testing.T) {
	g := NewGraph()
	obj := g.AddNode(&Node{Kind: KindObj})

	gep1 := g.AddNode(&Node{Kind: KindGepObj, Base: obj, LS: locset.LocationSet{Offset: 1}})
	g.CacheGepObj(obj, locset.LocationSet{Offset: 1}, gep1)

	got, ok := g.LookupGepObj(obj, locset.LocationSet{Offset: 1})
	assert.True(t, ok)
	assert.Equal(t, gep1, got)

	_, ok = g.LookupGepObj(obj, locset.LocationSet{Offset: 2})
	assert.False(t, ok)
}

func TestFieldInsensitiveCollapse(t *testing.T) {
	g := NewGraph()
	obj := g.AddNode(&Node{Kind: KindObj})
	fi := g.AddNode(&Node{Kind: KindFIObj, Base: obj})
	g.RegisterFIObj(obj, fi)

	got, ok := g.FIObjNode(obj)
	assert.True(t, ok)
	assert.Equal(t, fi, got)

	assert.Equal(t, []NodeId{fi}, g.FieldsAfterCollapse(obj))
}

func TestIsValidPointer(t *testing.T) {
	g := NewGraph()
	assert.False(t, g.IsValidPointer(0), "the zero sentinel is never a valid pointer")
	v := g.AddNode(&Node{Kind: KindVal})
	assert.True(t, g.IsValidPointer(v))
}
