// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagbuilder/pag/locset"
	"github.com/pagbuilder/pag/pag"
)

func TestWriteProducesWellFormedDigraph(t *testing.T) {
	g := pag.NewGraph()
	obj := g.AddNode(&pag.Node{Kind: pag.KindObj, Comment: "obj"})
	val := g.AddNode(&pag.Node{Kind: pag.KindVal, Comment: "val"})
	g.AddIntra(obj, val, pag.Addr, locset.Zero, pag.Global)

	var buf bytes.Buffer
	assert.NoError(t, Write(&buf, g))

	out := buf.String()
	assert.Contains(t, out, "digraph pag {")
	assert.Contains(t, out, "shape=box")
	assert.Contains(t, out, "shape=ellipse")
	assert.Contains(t, out, "color=green")
	assert.Contains(t, out, "}")
}

func TestEdgeStyleCoversEveryKind(t *testing.T) {
	kinds := []pag.EdgeKind{
		pag.Addr, pag.Copy, pag.Load, pag.Store,
		pag.NormalGep, pag.VariantGep, pag.Call, pag.Ret,
		pag.ThreadFork, pag.ThreadJoin,
	}
	for _, k := range kinds {
		color, style := edgeStyle(k)
		assert.NotEmpty(t, color, "kind %s", k)
		assert.NotEmpty(t, style, "kind %s", k)
	}
}
