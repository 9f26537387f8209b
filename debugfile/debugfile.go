// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package debugfile implements the text-format PAG serialization: a
// pre-serialized graph, one edge per line, for the debug driver to
// replay without re-running a full IR walk.
package debugfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pagbuilder/pag/locset"
	"github.com/pagbuilder/pag/pag"
)

// kindByName maps the text format's kind tokens onto pag.EdgeKind.
var kindByName = map[string]pag.EdgeKind{
	"addr":  pag.Addr,
	"copy":  pag.Copy,
	"load":  pag.Load,
	"store": pag.Store,
	"gep":   pag.NormalGep,
	"vgep":  pag.VariantGep,
	"call":  pag.Call,
	"ret":   pag.Ret,
	"fork":  pag.ThreadFork,
	"join":  pag.ThreadJoin,
}

// Load parses a debug-format PAG from r: each line is
// `src dst offset kind`, whitespace-separated, and blank lines/lines
// starting with '#' are skipped. The returned graph contains only the
// nodes and edges named in the file (no symbol-table metadata, no
// object flattening); it is meant for inspecting/replaying a dump, not
// for feeding back through the builder.
func Load(r io.Reader) (*pag.Graph, error) {
	g := pag.NewGraph()
	seen := make(map[int64]pag.NodeId)
	nodeFor := func(raw int64) pag.NodeId {
		if id, ok := seen[raw]; ok {
			return id
		}
		id := g.AddNode(&pag.Node{Kind: pag.KindVal, Comment: fmt.Sprintf("debug(%d)", raw)})
		seen[raw] = id
		return id
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("debugfile: line %d: want 4 fields, got %d", lineNo, len(fields))
		}
		srcRaw, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("debugfile: line %d: bad src: %w", lineNo, err)
		}
		dstRaw, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("debugfile: line %d: bad dst: %w", lineNo, err)
		}
		offset, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("debugfile: line %d: bad offset: %w", lineNo, err)
		}
		kind, ok := kindByName[fields[3]]
		if !ok {
			return nil, fmt.Errorf("debugfile: line %d: unknown kind %q", lineNo, fields[3])
		}

		src := nodeFor(srcRaw)
		dst := nodeFor(dstRaw)
		ls := locset.LocationSet{Offset: offset}
		if kind.IsInter() {
			g.AddInter(src, dst, kind, nil, pag.Global)
		} else {
			g.AddIntra(src, dst, kind, ls, pag.Global)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("debugfile: scan: %w", err)
	}
	return g, nil
}

// Write serializes g back to the same text format Load reads, using
// each node's own id as its "raw" identifier (so Load(Write(g)) is a
// stable round trip of the graph's shape, if not its symbol-table
// metadata).
func Write(w io.Writer, g *pag.Graph) error {
	for _, e := range g.AllEdges() {
		name := nameByKind(e.Kind)
		if name == "" {
			continue
		}
		offset := int64(0)
		if e.Kind == pag.NormalGep {
			offset = e.LS.Offset
		}
		if _, err := fmt.Fprintf(w, "%d %d %d %s\n", e.Src, e.Dst, offset, name); err != nil {
			return err
		}
	}
	return nil
}

func nameByKind(kind pag.EdgeKind) string {
	for name, k := range kindByName {
		if k == kind {
			return name
		}
	}
	return ""
}
