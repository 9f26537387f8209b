// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symtab implements the symbol-table / type-info service the
// PAG builder consumes: flattened field layouts for aggregate types,
// the modulus operation used to cap field-sensitive offsets, and
// memory object metadata. The layout computation is backed by
// go/types, deriving a flattened leaf-field view of structs and
// arrays the same way the upstream x/tools pointer-analysis package
// computes its own flatten/sizeof/offsetOf data.
package symtab

import (
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/locset"
	"github.com/pagbuilder/pag/pag"
)

// DefaultMaxFieldCap bounds the number of distinct fields a single
// object may be modelled with before it collapses to
// field-insensitive, keeping the node space finite for objects with
// huge or recursive layouts.
const DefaultMaxFieldCap = 10

// FieldInfo describes one flattened scalar leaf of an aggregate type:
// its own type, and its offset (in flattened-field units) within the
// containing object.
type FieldInfo struct {
	Type types.Type
	LS   locset.LocationSet
}

// MemObject is the metadata handle carried by a pag.Node of kind Obj.
type MemObject struct {
	ID               pag.NodeId
	Value            ssa.Value // defining value, or nil for a synthetic object (e.g. an external alloc)
	Type             types.Type
	Fields           []FieldInfo
	FieldInsensitive bool
}

// Table is the concrete symbol-table service: it wraps a pag.Graph
// (for the id-lookup half) and owns flattened-field computation and
// memory-object metadata (the type-info half).
type Table struct {
	g           *pag.Graph
	maxFieldCap int64
	flattenMemo map[types.Type][]FieldInfo
	objMeta     map[pag.NodeId]*MemObject
}

// New returns a Table over g with the default field cap.
func New(g *pag.Graph) *Table {
	return NewWithCap(g, DefaultMaxFieldCap)
}

// NewWithCap returns a Table over g with an explicit field cap.
func NewWithCap(g *pag.Graph, maxFieldCap int64) *Table {
	return &Table{
		g:           g,
		maxFieldCap: maxFieldCap,
		flattenMemo: make(map[types.Type][]FieldInfo),
		objMeta:     make(map[pag.NodeId]*MemObject),
	}
}

// ---------- id lookups (delegate to the node store) ----------

func (t *Table) ObjectID(v ssa.Value) (pag.NodeId, bool) { return t.g.ObjectNode(v) }
func (t *Table) ValueID(v ssa.Value) (pag.NodeId, bool)  { return t.g.ValueNode(v) }
func (t *Table) ReturnID(f *ssa.Function) (pag.NodeId, bool) {
	return t.g.ReturnNode(f)
}
func (t *Table) VarargID(f *ssa.Function) (pag.NodeId, bool) {
	return t.g.VarargNode(f)
}

// ---------- memory objects ----------

// MemObj returns the metadata for the object node id, or nil if id does
// not denote a registered object (a programming error for any caller
// that received id from MakeObject).
func (t *Table) MemObj(id pag.NodeId) *MemObject {
	return t.objMeta[id]
}

// MakeObject creates a new Obj node for v (or a synthetic object if
// v is nil, e.g. a heap allocation modelled by the external-call
// modeller) of pointed-to type typ, computes its flattened field
// layout, and -- if the field count exceeds the configured cap --
// immediately creates its FIObj collapse node too. It returns the
// object node id.
func (t *Table) MakeObject(v ssa.Value, typ types.Type, comment string) pag.NodeId {
	fields := t.FlattenedFields(typ)
	insensitive := int64(len(fields)) > t.maxFieldCap

	id := t.g.AddNode(&pag.Node{Kind: pag.KindObj, Value: v, Comment: comment})
	if v != nil {
		t.g.RegisterObject(v, id)
	}
	meta := &MemObject{ID: id, Value: v, Type: typ, Fields: fields, FieldInsensitive: insensitive}
	t.objMeta[id] = meta

	if insensitive {
		fi := t.g.AddNode(&pag.Node{Kind: pag.KindFIObj, Base: id, Comment: comment + ".fi"})
		t.g.RegisterFIObj(id, fi)
	}
	return id
}

// FlattenedFields returns the flattened, memoized field layout of
// typ.
func (t *Table) FlattenedFields(typ types.Type) []FieldInfo {
	if cached, ok := t.flattenMemo[typ]; ok {
		return cached
	}
	fields := flatten(typ)
	t.flattenMemo[typ] = fields
	return fields
}

// ModulusOffset clamps ls into the valid field range of obj.
func (t *Table) ModulusOffset(obj *MemObject, ls locset.LocationSet) locset.LocationSet {
	return ls.Modulus(int64(len(obj.Fields)))
}

// MaxFieldOffset returns the field cap of obj: the number of distinct
// flattened fields in its layout.
func (t *Table) MaxFieldOffset(obj *MemObject) int64 {
	return int64(len(obj.Fields))
}

// IsFieldInsensitive reports whether obj collapsed to a single field
// because its flattened field count exceeds the cap. No other
// condition marks an object field-insensitive.
func (t *Table) IsFieldInsensitive(obj *MemObject) bool {
	return obj.FieldInsensitive
}

// GetGepObj returns the node standing for obj's field at ls: the
// unique FIObj collapse node when obj is field-insensitive, else the
// cached GepObj for the modulus-normalized offset, created on first
// request. Value-level gep dispatch never needs this (only Val nodes
// are gep'd during the IR walk); it exists for solvers that resolve a
// Load/Store against the concrete objects a pointer may target and
// need to name "the k-th field of this object" directly.
func (t *Table) GetGepObj(obj pag.NodeId, ls locset.LocationSet) pag.NodeId {
	meta := t.MemObj(obj)
	if meta == nil {
		panic("symtab: GetGepObj on unregistered object")
	}
	if t.IsFieldInsensitive(meta) {
		fi, ok := t.g.FIObjNode(obj)
		if !ok {
			panic("symtab: field-insensitive object missing its FIObj node")
		}
		return fi
	}
	norm := t.ModulusOffset(meta, ls)
	if id, ok := t.g.LookupGepObj(obj, norm); ok {
		return id
	}
	id := t.g.AddNode(&pag.Node{Kind: pag.KindGepObj, Base: obj, LS: norm})
	t.g.CacheGepObj(obj, norm, id)
	return id
}

// FieldOffset returns the flattened-field offset of struct field
// index fieldIndex within aggregate type typ, used by the gep dispatch
// rule for a constant struct index.
func FieldOffset(typ types.Type, fieldIndex int) int64 {
	st, ok := typ.Underlying().(*types.Struct)
	if !ok {
		panic("symtab: FieldOffset on non-struct type " + typ.String())
	}
	var off int64
	for i := 0; i < fieldIndex; i++ {
		off += int64(len(flatten(st.Field(i).Type())))
	}
	return off
}
