package intexpand

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/midenc-go/midenc/internal/masm"
)

// TestEqI128EmitsDocumentedSequence reproduces the documented i128
// equality sequence exactly: Eqw, Movdn(8), Dropw, Dropw.
func TestEqI128EmitsDocumentedSequence(t *testing.T) {
	ops := EqI128()
	require.Equal(t, []masm.Op{
		masm.Eqw{},
		masm.Movdn{Index: 8},
		masm.Dropw{},
		masm.Dropw{},
	}, ops)
}

func TestInt128ToU64DropsHighLimbs(t *testing.T) {
	ops := Int128ToU64()
	require.Len(t, ops, 4)
	for _, op := range ops {
		switch op.(type) {
		case masm.Movup, masm.Drop:
		default:
			t.Fatalf("unexpected op %T in Int128ToU64", op)
		}
	}
}

func TestNarrowNoopWhenNotNarrowing(t *testing.T) {
	require.Nil(t, Narrow(2, 4))
	require.Nil(t, Narrow(2, 2))
}

func TestInt128ToU32DropsThreeLimbs(t *testing.T) {
	ops := Int128ToU32()
	dropCount := 0
	for _, op := range ops {
		if _, ok := op.(masm.Drop); ok {
			dropCount++
		}
	}
	require.Equal(t, 3, dropCount)
}

func TestTruncI128ToFeltMatchesInt128ToU32(t *testing.T) {
	require.Equal(t, Int128ToU32(), TruncI128ToFelt())
}

func TestSextNoopWhenNotWidening(t *testing.T) {
	require.Nil(t, Sext(32, 32))
	require.Nil(t, Sext(64, 32))
}

func TestSextWidensByExpectedLimbCount(t *testing.T) {
	ops := Sext(32, 128)
	// The structured If sits second-to-last; a final Movup restores the
	// original value to the top of the widened result.
	ifOp, ok := ops[len(ops)-2].(masm.If)
	require.True(t, ok, "Sext must produce a structured If before the restoring Movup")
	require.Len(t, ifOp.Then.Ops, 3)
	require.Len(t, ifOp.Else.Ops, 3)
	movup, ok := ops[len(ops)-1].(masm.Movup)
	require.True(t, ok)
	require.Equal(t, uint8(3), movup.Index)
}

func TestZextNoopWhenNotWidening(t *testing.T) {
	require.Nil(t, Zext(32, 16))
}

func TestZextPushesZeroLimbsThenRestoresOriginal(t *testing.T) {
	ops := Zext(32, 128)
	require.Len(t, ops, 4)
	for _, op := range ops[:3] {
		push, ok := op.(masm.Push)
		require.True(t, ok)
		require.Equal(t, masm.Felt(0), push.Value)
	}
	movup, ok := ops[3].(masm.Movup)
	require.True(t, ok)
	require.Equal(t, uint8(3), movup.Index)
}

func TestCheckedAddSmallIntMasksToWidth(t *testing.T) {
	ops := CheckedAddSmallInt(8)
	require.Len(t, ops, 6)
	push, ok := ops[3].(masm.Push)
	require.True(t, ok)
	require.Equal(t, masm.Felt(0xFF), push.Value)
	_, ok = ops[len(ops)-1].(masm.AssertEq)
	require.True(t, ok)
}

func TestEqI64LeavesSingleBoolean(t *testing.T) {
	ops := EqI64()
	require.Len(t, ops, 5)
	_, ok := ops[len(ops)-1].(masm.U32And)
	require.True(t, ok)
}

func TestPushU128LowLimbEndsOnTop(t *testing.T) {
	ops := PushU128([4]masm.Felt{10, 20, 30, 40})
	last, ok := ops[len(ops)-1].(masm.Push)
	require.True(t, ok)
	require.Equal(t, masm.Felt(10), last.Value)
}

func TestCdropSelectsBySwapOrDrop(t *testing.T) {
	op := Cdrop().(masm.If)
	require.Len(t, op.Then.Ops, 2)
	require.Len(t, op.Else.Ops, 1)
}

func TestCdropwSelectsWholeWord(t *testing.T) {
	op := Cdropw().(masm.If)
	require.Len(t, op.Then.Ops, 5)
	require.Len(t, op.Else.Ops, 1)
}
