package masm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/types"
)

func TestLocalsTableMonotonic(t *testing.T) {
	locals := NewLocalsTable()
	a := locals.Allocate("a", 1)
	b := locals.Allocate("b", 4)
	c := locals.Allocate("c", 1)
	require.Equal(t, uint32(0), a)
	require.Equal(t, uint32(1), b)
	require.Equal(t, uint32(5), c)
	require.Equal(t, uint32(6), locals.NumWords())
}

func TestModuleImportAliasDedup(t *testing.T) {
	imp := NewModuleImportInfo()
	a1 := imp.Alias("miden:add/add@1.0.0")
	a2 := imp.Alias("miden:add/add@1.0.0")
	require.Equal(t, a1, a2)
	require.Equal(t, "add", a1)
}

func TestModuleImportAliasCollision(t *testing.T) {
	imp := NewModuleImportInfo()
	a1 := imp.Alias("miden:add/add@1.0.0")
	a2 := imp.Alias("other:ns/add@2.0.0")
	require.NotEqual(t, a1, a2)
	require.Equal(t, "add", a1)
}

func TestModuleImportTrack(t *testing.T) {
	imp := NewModuleImportInfo()
	fn := FunctionIdent{Module: "add", Name: "add"}
	imp.Track("miden:add/add@1.0.0", fn)
	got := imp.FunctionsFor("miden:add/add@1.0.0")
	require.Equal(t, []FunctionIdent{fn}, got)
}

func TestPrintProgram(t *testing.T) {
	m := NewModule("inc")
	fn := NewFunction("inc", Signature{Params: []*types.Type{types.U32()}, Results: []*types.Type{types.U32()}})
	fn.IsExport = true
	fn.Body.Body.Append(Push{Value: 1})
	fn.Body.Body.Append(U32Add{})
	m.AddFunction(fn)

	p := NewProgram()
	p.AddModule(m)
	p.Entrypoint = fn.Ident("inc")

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, p))
	out := buf.String()
	require.Contains(t, out, "export.inc")
	require.Contains(t, out, "push.1")
	require.Contains(t, out, "u32wrapping_add")
	require.Contains(t, out, "begin")
	require.Contains(t, out, "exec.inc::inc")
}

func TestPrintStructuredControlFlow(t *testing.T) {
	m := NewModule("m")
	fn := NewFunction("f", Signature{})
	region := fn.Body
	thenBlk := region.NewBlock()
	thenBlk.Append(Push{Value: 1})
	elseBlk := region.NewBlock()
	elseBlk.Append(Push{Value: 0})
	region.Body.Append(If{Then: thenBlk, Else: elseBlk})
	m.AddFunction(fn)

	p := NewProgram()
	p.AddModule(m)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, p))
	out := buf.String()
	require.Contains(t, out, "if.true")
	require.Contains(t, out, "else")
}
