// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmdHasAllSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"build", "debug", "dot", "stats"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestBuildCmdRequiresPatterns(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"build"})
	err := root.Execute()
	assert.Error(t, err)
}

func TestDebugCmdReportsCounts(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/g.pag"
	assert.NoError(t, os.WriteFile(path, []byte("0 1 0 addr\n1 2 0 copy\n"), 0o644))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"debug", path})
	assert.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "nodes:")
	assert.Contains(t, out.String(), "addr edges:")
}
