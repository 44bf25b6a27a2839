package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// --- tiny hand-rolled Wasm binary encoder, test-only (mirrors
// internal/frontend's own self-contained test encoder; not shared across
// packages since both are internal test helpers, not library code) -------

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

const (
	valI32       = 0x7F
	opLocalGet   = 0x20
	opI32Add     = 0x6A
	opEnd        = 0x0B
)

// buildAddModule assembles a minimal module exporting one function,
// "add", that returns the sum of its two i32 parameters.
func buildAddModule() []byte {
	typeBody := append(uleb(1), 0x60, 0x02, valI32, valI32, 0x01, valI32)
	funcBody := append(uleb(1), uleb(0)...)
	code := []byte{0x00, opLocalGet, 0x00, opLocalGet, 0x01, opI32Add, opEnd}
	codeSection := append(uleb(1), uleb(uint64(len(code)))...)
	codeSection = append(codeSection, code...)
	exportBody := append(uleb(1), wasmName("add")...)
	exportBody = append(exportBody, 0x00, 0x00) // kind=func, index=0

	return wasmModule(
		section(1, typeBody),
		section(3, funcBody),
		section(7, exportBody),
		section(10, codeSection),
	)
}

func writeTempWasm(t *testing.T, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "add.wasm")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestCompileEmitsMASM(t *testing.T) {
	path := writeTempWasm(t, buildAddModule())

	var stdOut, stdErr bytes.Buffer
	code := run([]string{"compile", path, "--emit", "masm"}, &stdOut, &stdErr)
	require.Equal(t, 0, code, "stderr: %s", stdErr.String())
	require.Contains(t, stdOut.String(), "export.add")
	require.Contains(t, stdOut.String(), "u32wrapping_add")
}

func TestCompileEmitsHIR(t *testing.T) {
	path := writeTempWasm(t, buildAddModule())

	var stdOut, stdErr bytes.Buffer
	code := run([]string{"compile", path, "--emit", "hir"}, &stdOut, &stdErr)
	require.Equal(t, 0, code, "stderr: %s", stdErr.String())
	require.Contains(t, stdOut.String(), "add")
}

func TestCompileEmitsPackageRoundTrips(t *testing.T) {
	path := writeTempWasm(t, buildAddModule())
	outPath := filepath.Join(t.TempDir(), "add.masp")

	var stdOut, stdErr bytes.Buffer
	code := run([]string{"compile", path, "--emit", "masp", "-o", outPath}, &stdOut, &stdErr)
	require.Equal(t, 0, code, "stderr: %s", stdErr.String())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, []byte("MASP\x00"), data[:5])
}

func TestCompileMultipleEmitKindsWritesSuffixedFiles(t *testing.T) {
	path := writeTempWasm(t, buildAddModule())
	base := filepath.Join(t.TempDir(), "add")

	var stdOut, stdErr bytes.Buffer
	code := run([]string{"compile", path, "--emit", "hir,masm", "-o", base}, &stdOut, &stdErr)
	require.Equal(t, 0, code, "stderr: %s", stdErr.String())

	_, err := os.Stat(base + ".hir")
	require.NoError(t, err)
	_, err = os.Stat(base + ".masm")
	require.NoError(t, err)
}

func TestCompileRejectsMissingInput(t *testing.T) {
	var stdOut, stdErr bytes.Buffer
	code := run([]string{"compile", "/nonexistent/path.wasm"}, &stdOut, &stdErr)
	require.NotEqual(t, 0, code)
}

func TestCompileRejectsBadEmitKind(t *testing.T) {
	path := writeTempWasm(t, buildAddModule())
	var stdOut, stdErr bytes.Buffer
	code := run([]string{"compile", path, "--emit", "bogus"}, &stdOut, &stdErr)
	require.NotEqual(t, 0, code)
}

func TestRunNoArgsPrintsUsage(t *testing.T) {
	var stdOut, stdErr bytes.Buffer
	code := run(nil, &stdOut, &stdErr)
	require.Equal(t, 1, code)
	require.Contains(t, stdErr.String(), "usage")
}
