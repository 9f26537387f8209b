// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pag

import (
	"fmt"

	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/locset"
)

// NodeId is a dense non-negative integer, monotonically assigned.
type NodeId int

// NodeKind discriminates the tagged variants of a PAG node. A single
// concrete struct carries every variant's payload: the union of fields
// replaces a class hierarchy, and callers switch on Kind instead of
// using a classof/isa pattern.
type NodeKind uint8

const (
	// KindInvalid is reserved for NodeId 0: the sentinel "no node"
	// value returned wherever a value is analytically uninteresting
	// (contains no pointers).
	KindInvalid NodeKind = iota
	KindVal
	KindGepVal
	KindObj
	KindGepObj
	KindFIObj
	KindRet
	KindVarArg
	KindDummyVal
	KindDummyObj
)

func (k NodeKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVal:
		return "val"
	case KindGepVal:
		return "gepval"
	case KindObj:
		return "obj"
	case KindGepObj:
		return "gepobj"
	case KindFIObj:
		return "fiobj"
	case KindRet:
		return "ret"
	case KindVarArg:
		return "vararg"
	case KindDummyVal:
		return "dummyval"
	case KindDummyObj:
		return "dummyobj"
	default:
		return "?"
	}
}

// Node is the single tagged-variant representation of every PAG node
// kind. Fields not relevant to Kind are left zero.
type Node struct {
	ID   NodeId
	Kind NodeKind

	// Val, Ret: source SSA value/function handle whose type determines
	// IsTopLevelPointer.
	Value ssa.Value
	Func  *ssa.Function

	// GepVal: base value-node id and accumulated offset.
	// GepObj: parent Obj id and accumulated offset.
	// FIObj: parent Obj id.
	Base NodeId
	LS   locset.LocationSet

	// Obj: opaque memory-object metadata handle, populated by symtab.
	ObjMeta interface{}

	// Comment documents the node's origin, purely a debugging aid.
	Comment string

	// adjacency mirrors the edge store; these sets are non-owning:
	// edges live in the Graph's edge arena.
	out map[EdgeKind][]EdgeId
	in  map[EdgeKind][]EdgeId
}

// IsAddressTaken reports whether n is one of the Obj-family variants,
// which are address-taken by construction.
func (n *Node) IsAddressTaken() bool {
	switch n.Kind {
	case KindObj, KindGepObj, KindFIObj, KindDummyObj:
		return true
	default:
		return false
	}
}

// IsTopLevelPointer reports whether n is a top-level SSA pointer value
// (Val/GepVal/Ret/VarArg/DummyVal), as opposed to an address-taken object.
func (n *Node) IsTopLevelPointer() bool {
	switch n.Kind {
	case KindVal, KindGepVal, KindRet, KindVarArg, KindDummyVal:
		return true
	default:
		return false
	}
}

func (n *Node) String() string {
	if n.Comment != "" {
		return fmt.Sprintf("n%d:%s(%s)", n.ID, n.Kind, n.Comment)
	}
	return fmt.Sprintf("n%d:%s", n.ID, n.Kind)
}

func (n *Node) addOut(k EdgeKind, id EdgeId) {
	if n.out == nil {
		n.out = make(map[EdgeKind][]EdgeId)
	}
	n.out[k] = append(n.out[k], id)
}

func (n *Node) addIn(k EdgeKind, id EdgeId) {
	if n.in == nil {
		n.in = make(map[EdgeKind][]EdgeId)
	}
	n.in[k] = append(n.in[k], id)
}
