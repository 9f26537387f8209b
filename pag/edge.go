// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pag

import (
	"fmt"

	"golang.org/x/tools/go/ssa"

	"github.com/pagbuilder/pag/locset"
)

// EdgeId is a dense non-negative integer, monotonically assigned.
type EdgeId int

// EdgeKind discriminates the ten canonical PAG edge relations. As
// with Node, a single struct carries the union of every kind's
// optional payload (LocationSet, callsite).
type EdgeKind uint8

const (
	Addr EdgeKind = iota
	Copy
	Load
	Store
	NormalGep
	VariantGep
	Call
	Ret
	ThreadFork
	ThreadJoin
)

func (k EdgeKind) String() string {
	switch k {
	case Addr:
		return "addr"
	case Copy:
		return "copy"
	case Load:
		return "load"
	case Store:
		return "store"
	case NormalGep:
		return "gep"
	case VariantGep:
		return "vgep"
	case Call:
		return "call"
	case Ret:
		return "ret"
	case ThreadFork:
		return "fork"
	case ThreadJoin:
		return "join"
	default:
		return "?"
	}
}

// IsInter reports whether k is one of the inter-procedural kinds,
// whose structural identity includes the callsite.
func (k EdgeKind) IsInter() bool {
	switch k {
	case Call, Ret, ThreadFork, ThreadJoin:
		return true
	default:
		return false
	}
}

// IsGep reports whether k is one of the two gep kinds.
func (k EdgeKind) IsGep() bool {
	return k == NormalGep || k == VariantGep
}

// Edge is the single tagged-variant representation of a PAG edge.
type Edge struct {
	ID       EdgeId
	Src, Dst NodeId
	Kind     EdgeKind

	// LS is meaningful only for NormalGep: the location set is part of
	// the edge's structural identity.
	LS locset.LocationSet

	// Callsite disambiguates inter-procedural edges. nil for intra
	// edges.
	Callsite ssa.CallInstruction

	// Inst is the attributing instruction, if any; nil for global or
	// function-entry edges.
	Inst ssa.Instruction
}

func (e *Edge) String() string {
	if e.Kind == NormalGep {
		return fmt.Sprintf("e%d: n%d --%s(%s)--> n%d", e.ID, e.Src, e.Kind, e.LS, e.Dst)
	}
	if e.Kind.IsInter() {
		return fmt.Sprintf("e%d: n%d --%s@%v--> n%d", e.ID, e.Src, e.Kind, e.Callsite, e.Dst)
	}
	return fmt.Sprintf("e%d: n%d --%s--> n%d", e.ID, e.Src, e.Kind, e.Dst)
}
