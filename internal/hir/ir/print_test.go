package ir_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/hir/types"
)

// TestPrintI32Add renders an i32 add over two block parameters and checks
// the rendering has the one parameterized block label and the add and
// return mnemonics.
func TestPrintI32Add(t *testing.T) {
	c := ir.NewContext()
	region := c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	entry := c.CreateBlockWithParams([]*types.Type{types.I32(), types.I32()})
	c.AppendBlock(region, entry)

	add := dialect.Binary(c, dialect.OpAdd, entry.Param(0), entry.Param(1), types.I32(), ir.SourceSpan{})
	entry.AppendOp(add)
	ret := dialect.Return(c, []ir.Value{add.Result(0)}, ir.SourceSpan{})
	entry.AppendOp(ret)

	var buf bytes.Buffer
	require.NoError(t, ir.Print(&buf, region))
	out := buf.String()

	require.Contains(t, out, "^bb0(")
	require.Contains(t, out, "add")
	require.Contains(t, out, "return")
	require.Equal(t, 1, strings.Count(out, "^bb"))
}

// TestPrintBranchSuccessor confirms a terminator with a successor renders
// the target block label.
func TestPrintBranchSuccessor(t *testing.T) {
	c := ir.NewContext()
	region := c.AddRegion(c.CreateOperation(ir.NewOpDef("func", 0, 0), nil, nil, ir.SourceSpan{}))
	entry := c.CreateBlock()
	target := c.CreateBlock()
	c.AppendBlock(region, entry)
	c.AppendBlock(region, target)

	br := dialect.Br(c, target, nil, ir.SourceSpan{})
	entry.AppendOp(br)
	target.AppendOp(dialect.Return(c, nil, ir.SourceSpan{}))

	var buf bytes.Buffer
	require.NoError(t, ir.Print(&buf, region))
	out := buf.String()
	require.Contains(t, out, "-> ^bb1")
}
