// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dot renders a finished pag.Graph as a graphviz digraph,
// with per-kind edge colors and per-node-kind shapes.
package dot

import (
	"fmt"
	"io"

	"github.com/pagbuilder/pag/pag"
)

// edgeStyle assigns each edge kind its color and line style:
// Addr=green, Copy=black, Load=red, Store=blue, Gep=purple,
// Fork/Join=turquoise, Call=dashed, Ret=dotted.
func edgeStyle(kind pag.EdgeKind) (color, style string) {
	switch kind {
	case pag.Addr:
		return "green", "solid"
	case pag.Copy:
		return "black", "solid"
	case pag.Load:
		return "red", "solid"
	case pag.Store:
		return "blue", "solid"
	case pag.NormalGep, pag.VariantGep:
		return "purple", "solid"
	case pag.ThreadFork, pag.ThreadJoin:
		return "turquoise", "solid"
	case pag.Call:
		return "black", "dashed"
	case pag.Ret:
		return "black", "dotted"
	default:
		return "gray", "solid"
	}
}

// nodeShape gives each node kind a distinct shape: address-taken
// Obj-family nodes are boxes, top-level pointer values are
// ellipses.
func nodeShape(n *pag.Node) string {
	if n.IsAddressTaken() {
		return "box"
	}
	return "ellipse"
}

// Write renders g as a DOT digraph to w. Node labels combine the
// node's String() (id, kind, comment) so the rendering is self
// describing without a separate legend.
func Write(w io.Writer, g *pag.Graph) error {
	if _, err := fmt.Fprintln(w, "digraph pag {"); err != nil {
		return err
	}
	for _, n := range g.Nodes() {
		if _, err := fmt.Fprintf(w, "  n%d [label=%q shape=%s];\n", n.ID, n.String(), nodeShape(n)); err != nil {
			return err
		}
	}
	for _, e := range g.AllEdges() {
		color, style := edgeStyle(e.Kind)
		label := e.Kind.String()
		if e.Kind == pag.NormalGep {
			label = fmt.Sprintf("%s(%s)", label, e.LS)
		}
		if _, err := fmt.Fprintf(w, "  n%d -> n%d [label=%q color=%s style=%s];\n", e.Src, e.Dst, label, color, style); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "}"); err != nil {
		return err
	}
	return nil
}
