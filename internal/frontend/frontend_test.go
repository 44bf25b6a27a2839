package frontend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/dialect"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/session"
)

// --- tiny hand-rolled Wasm binary encoder, test-only -----------------

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			return out
		}
	}
}

func sleb(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func wasmName(s string) []byte {
	return append(uleb(uint64(len(s))), []byte(s)...)
}

func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint64(len(body)))...)
	return append(out, body...)
}

func wasmModule(sections ...[]byte) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// buildSingleFuncModule assembles a module with one type (the given
// params/results), one function of that type, and codeBody as its
// undecorated operator stream (locals count 0, then the operators, then
// opEnd).
func buildSingleFuncModule(params, results []ValType, ops []byte) []byte {
	typeBody := []byte{uleb(1)[0], 0x60}
	typeBody = append(typeBody, uleb(uint64(len(params)))...)
	for _, p := range params {
		typeBody = append(typeBody, byte(p))
	}
	typeBody = append(typeBody, uleb(uint64(len(results)))...)
	for _, r := range results {
		typeBody = append(typeBody, byte(r))
	}

	funcBody := append(uleb(1), uleb(0)...) // 1 function, type index 0

	code := append([]byte{0x00}, ops...) // 0 local decls, then ops
	code = append(code, opEnd)
	codeSection := append(uleb(1), uleb(uint64(len(code)))...)
	codeSection = append(codeSection, code...)

	return wasmModule(
		section(secType, typeBody),
		section(secFunction, funcBody),
		section(secCode, codeSection),
	)
}

func allOps(t *testing.T, region ir.Handle[ir.Region]) []ir.Handle[ir.Operation] {
	t.Helper()
	var ops []ir.Handle[ir.Operation]
	for _, blk := range region.Blocks() {
		blk.ForEachOp(func(op ir.Handle[ir.Operation]) { ops = append(ops, op) })
	}
	return ops
}

func newSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New(session.NewOptions())
	require.NoError(t, err)
	return sess
}

// TestTranslateI32Add checks that a two-parameter i32 add translates
// op-for-op into an "add" over the two local.get-resolved parameter
// values.
func TestTranslateI32Add(t *testing.T) {
	data := buildSingleFuncModule(
		[]ValType{ValI32, ValI32},
		[]ValType{ValI32},
		[]byte{opLocalGet, 0x00, opLocalGet, 0x01, opI32Add},
	)
	mod, err := DecodeModule(data)
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)

	c := ir.NewContext()
	ft := NewFuncTranslator(c, newSession(t), mod, nil)
	region, sig, err := ft.Translate(0)
	require.NoError(t, err)
	require.Equal(t, []ValType{ValI32}, sig.Results)

	foundAdd := false
	for _, op := range allOps(t, region) {
		if op.OpName() == dialect.OpAdd.Name {
			require.Equal(t, 2, op.NumOperands())
			foundAdd = true
		}
	}
	require.True(t, foundAdd, "expected an add op among the translated function's ops")
}

// TestTranslateStoreTruncatesBeforeNarrowStore checks that storing an i32
// value through i32.store16 truncates the value to i16 before the narrow
// store, and the store's address is used unmodified from its const when
// the memarg offset is zero.
func TestTranslateStoreTruncatesBeforeNarrowStore(t *testing.T) {
	ops := []byte{opI32Const}
	ops = append(ops, sleb(1024)...)
	ops = append(ops, opI32Const)
	ops = append(ops, sleb(1)...)
	ops = append(ops, opI32Store16)
	ops = append(ops, uleb(0)...) // align
	ops = append(ops, uleb(0)...) // offset

	data := buildSingleFuncModule(nil, nil, ops)
	mod, err := DecodeModule(data)
	require.NoError(t, err)

	c := ir.NewContext()
	ft := NewFuncTranslator(c, newSession(t), mod, nil)
	region, _, err := ft.Translate(0)
	require.NoError(t, err)

	got := allOps(t, region)
	var kinds []string
	for _, op := range got {
		kinds = append(kinds, op.OpName().Mnemonic)
	}

	truncIdx, ptrIdx, storeIdx := -1, -1, -1
	for i, k := range kinds {
		switch k {
		case "trunc":
			truncIdx = i
		case "inttoptr":
			ptrIdx = i
		case "store":
			storeIdx = i
		}
	}
	require.GreaterOrEqual(t, truncIdx, 0, "expected a trunc op among %v", kinds)
	require.GreaterOrEqual(t, ptrIdx, 0, "expected an inttoptr op among %v", kinds)
	require.GreaterOrEqual(t, storeIdx, 0, "expected a store op among %v", kinds)
	require.Less(t, truncIdx, storeIdx, "value must be truncated before the store")
	require.Less(t, ptrIdx, storeIdx, "address must be converted to a pointer before the store")

	// The address operand of inttoptr, and the stored value's defining op,
	// must each trace back to a distinct i32 const rather than sharing one.
	for _, op := range got {
		if op.OpName().Mnemonic == "store" {
			ptr := op.Operand(0)
			value := op.Operand(1)
			require.NotEqual(t, ptr, value)
		}
	}
}

// TestTranslateRejectsF32Const confirms that the frontend surfaces an
// explicit, diagnosable error rather than silently mistranslating a value
// type this backend's HIR cannot represent.
func TestTranslateRejectsF32Const(t *testing.T) {
	ops := []byte{opF32Const, 0x00, 0x00, 0x00, 0x00}
	data := buildSingleFuncModule(nil, nil, ops)
	mod, err := DecodeModule(data)
	require.NoError(t, err)

	c := ir.NewContext()
	sess := newSession(t)
	ft := NewFuncTranslator(c, sess, mod, nil)
	_, _, err = ft.Translate(0)
	require.Error(t, err)
}

// TestDecodeModuleMemoryAndGlobal exercises section decoding beyond the
// function/code sections: a memory with a max page count and a mutable
// i32 global with a const initializer.
func TestDecodeModuleMemoryAndGlobal(t *testing.T) {
	memBody := append(uleb(1), 0x01) // 1 memory, flags=has-max
	memBody = append(memBody, uleb(1)...)  // min=1
	memBody = append(memBody, uleb(4)...)  // max=4

	globalBody := append(uleb(1), byte(ValI32), 0x01) // 1 global, i32, mutable
	globalBody = append(globalBody, opI32Const)
	globalBody = append(globalBody, sleb(1048576)...)
	globalBody = append(globalBody, opEnd)

	data := wasmModule(
		section(secMemory, memBody),
		section(secGlobal, globalBody),
	)
	mod, err := DecodeModule(data)
	require.NoError(t, err)
	require.Len(t, mod.Memories, 1)
	require.Equal(t, uint32(1), mod.Memories[0].MinPages)
	require.True(t, mod.Memories[0].HasMax)
	require.Equal(t, uint32(4), mod.Memories[0].MaxPages)

	require.Len(t, mod.Globals, 1)
	require.True(t, mod.Globals[0].Mutable)
	require.Equal(t, int64(1048576), mod.Globals[0].Init)
}
