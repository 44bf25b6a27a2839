package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/hir/ir"
)

func TestNewDefaults(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	require.Equal(t, TargetBase, s.Options().Target())
	require.Equal(t, []EmitKind{EmitHIR}, s.Options().Emit())
	require.False(t, s.Failed())
}

func TestOptionsAreImmutable(t *testing.T) {
	base := NewOptions()
	withRollup := base.WithTarget(TargetRollup)

	require.Equal(t, TargetBase, base.Target())
	require.Equal(t, TargetRollup, withRollup.Target())
}

func TestNewRejectsEmptyEmit(t *testing.T) {
	opts := NewOptions().WithEmit()
	_, err := New(opts)
	require.Error(t, err)
}

func TestImportDigestRoundTrip(t *testing.T) {
	var digest [32]byte
	digest[0] = 0xAB
	opts := NewOptions().WithImportDigest("miden:add/add@1.0.0::add", digest)
	got, ok := opts.ImportDigest("miden:add/add@1.0.0::add")
	require.True(t, ok)
	require.Equal(t, digest, got)

	_, ok = opts.ImportDigest("missing")
	require.False(t, ok)
}

func TestParseTargetAndEmitKind(t *testing.T) {
	tgt, err := ParseTarget("rollup")
	require.NoError(t, err)
	require.Equal(t, TargetRollup, tgt)

	_, err = ParseTarget("bogus")
	require.Error(t, err)

	kind, err := ParseEmitKind("masm")
	require.NoError(t, err)
	require.Equal(t, EmitMASM, kind)
}

func TestEmitterTracksErrors(t *testing.T) {
	e := NewBufferEmitter()
	e.Emit(Diagnostic{Severity: SeverityWarning, Message: "heads up"})
	require.False(t, e.HasErrors())

	e.Emit(Diagnostic{
		Severity: SeverityError,
		Primary:  ir.SourceSpan{File: "a.wat", Offset: 12},
		Message:  "unsupported operator",
		Help:     "try --target base",
	})
	require.True(t, e.HasErrors())
	require.Len(t, e.Diagnostics(), 2)
}
