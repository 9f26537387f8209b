package pag

import "golang.org/x/tools/go/ssa"

// BuildContext identifies which instruction, basic block, and function
// an edge insertion should be attributed to. It is an explicit value
// threaded through the dispatcher rather than an ambient current
// location: every AddIntra/AddInter call takes a BuildContext
// explicitly, so the builder has no hidden mutable state and stays
// re-entrant.
type BuildContext struct {
	Inst  ssa.Instruction // nil if no owning instruction
	Block *ssa.BasicBlock // nil if no owning block (e.g. a pure constant expression)
	Fn    *ssa.Function   // the enclosing function, for entry-block detection
}

// Global is the zero-value context used by the global walker and by
// the field-node cache when it adds a derived node's defining gep
// edge: it has no owning instruction or block, so inserted edges
// become global edges.
var Global = BuildContext{}

// WithoutInst returns a copy of c with the instruction cleared, used
// when a synthetic edge (e.g. a constant-expression gep) must not be
// attributed to the instruction whose operand triggered its creation:
// the same derived node may be reached from many instructions, and its
// defining edge has to be globally unique.
func (c BuildContext) WithoutInst() BuildContext {
	c.Inst = nil
	return c
}

// isEntryBlock reports whether c's block is its function's entry block.
func (c BuildContext) isEntryBlock() bool {
	return c.Inst == nil && c.Block != nil && c.Fn != nil &&
		len(c.Fn.Blocks) > 0 && c.Block == c.Fn.Blocks[0]
}

// isGlobal reports whether c carries neither instruction nor block.
func (c BuildContext) isGlobal() bool {
	return c.Inst == nil && c.Block == nil
}
