// Package intexpand expands wide-integer and polymorphic-width operations
// that have no single Miden Assembly primitive into fixed sequences of
// masm.Op, keyed to the felt-limb representation internal/hir/types
// defines (32 bits per limb, little-limb-first on the operand stack): i64
// as two limbs, i128 as four. The stackifier calls these directly when it
// encounters an operation whose operand or result type needs more than one
// limb.
package intexpand

import "github.com/midenc-go/midenc/internal/masm"

// limbsForBits returns the number of 32-bit felt limbs needed to hold a
// value of the given bit width.
func limbsForBits(bits int) int {
	return (bits + 31) / 32
}

// PushU128 emits the four felt limbs of a 128-bit value, least-significant
// limb ending up on top of the stack.
func PushU128(limbs [4]masm.Felt) []masm.Op {
	ops := make([]masm.Op, 4)
	for i := 0; i < 4; i++ {
		// Push the most-significant limb first so each subsequent push
		// buries it deeper, leaving limbs[0] (least significant) on top.
		ops[i] = masm.Push{Value: limbs[3-i]}
	}
	return ops
}

// Narrow discards the high (fromLimbs-toLimbs) limbs of a value on top of
// the stack, keeping its low toLimbs limbs (least significant still on
// top) in their original relative order. Each discarded limb is brought to
// the top with Movup before being Dropped so that the limbs beneath it are
// left undisturbed.
func Narrow(fromLimbs, toLimbs int) []masm.Op {
	var ops []masm.Op
	for i := fromLimbs - 1; i >= toLimbs; i-- {
		ops = append(ops, masm.Movup{Index: uint8(i)}, masm.Drop{})
	}
	return ops
}

// Int128ToU64 discards the high two limbs of a 128-bit value, leaving its
// low 64 bits (two felt limbs, least significant on top).
func Int128ToU64() []masm.Op {
	return Narrow(4, 2)
}

// Int128ToU32 discards the high three limbs of a 128-bit value, leaving
// its low 32 bits as a single felt.
func Int128ToU32() []masm.Op {
	return Narrow(4, 1)
}

// I128ToI64 narrows a 128-bit value to 64 bits, asserting the discarded
// high two limbs are the correct sign-extension of bit 63 of the kept
// portion so that silent truncation of a too-large signed value is caught
// rather than producing a wrong result.
func I128ToI64() []masm.Op {
	return []masm.Op{
		// Bring the two high limbs to the top to check them: Movup(3)
		// twice turns [lo0,lo1,hi0,hi1] into [hi0,hi1,lo0,lo1].
		masm.Movup{Index: 3},
		masm.Movup{Index: 3},
		// Duplicate the kept value's top (most significant) limb to
		// compute its expected sign-extension word.
		masm.Dup{Index: 3},
		masm.Push{Value: 0x80000000},
		masm.U32And{},
		masm.Push{Value: 0},
		masm.U32Gt{},
		signExtendWordFromBool(),
		// Compare both discarded limbs against one shared copy of the
		// expected sign word before it is consumed.
		masm.Dup{Index: 0},
		masm.Movup{Index: 2},
		masm.AssertEq{},
		masm.AssertEq{},
	}
}

// signExtendWordFromBool consumes a boolean on top and pushes FeltMax if
// it was true, 0 otherwise: one extra word to compare the discarded high
// limb of I128ToI64/trunc-style narrowings against.
func signExtendWordFromBool() masm.Op {
	return masm.If{
		Then: blockOf(masm.Push{Value: masm.FeltMax}),
		Else: blockOf(masm.Push{Value: 0}),
	}
}

func blockOf(ops ...masm.Op) *masm.Block {
	b := &masm.Block{}
	for _, op := range ops {
		b.Append(op)
	}
	return b
}

// TruncI128ToFelt narrows a 128-bit value to a single felt by discarding
// its upper three limbs. Whether the kept low limb is itself a valid felt
// (below the field modulus) is left to the caller to range-check, matching
// the source's documented intent.
func TruncI128ToFelt() []masm.Op {
	return Int128ToU32()
}

// EqI128 compares two 128-bit values (each a contiguous four-felt word)
// for equality, leaving a single boolean on top: `Eqw ; Movdn(8) ; Dropw ;
// Dropw`, matching the VM's word-equality primitive directly since each
// 128-bit operand occupies exactly one Miden word.
func EqI128() []masm.Op {
	return []masm.Op{
		masm.Eqw{},
		masm.Movdn{Index: 8},
		masm.Dropw{},
		masm.Dropw{},
	}
}

// EqI64 compares two 64-bit (two-limb) values for equality, leaving a
// single boolean on top. Miden has no dedicated two-felt word-equality
// primitive (Eqw only operates on whole four-felt words), so this checks
// each limb pair with Eq and combines the results with U32And.
func EqI64() []masm.Op {
	return []masm.Op{
		// [rhs_lo, rhs_hi, lhs_lo, lhs_hi] -> bring lhs_lo to top.
		masm.Movup{Index: 2},
		masm.Eq{}, // lhs_lo == rhs_lo
		// [loEq, rhs_hi, lhs_hi] -> sink loEq below the high pair.
		masm.Movdn{Index: 2},
		masm.Eq{}, // rhs_hi == lhs_hi
		masm.U32And{},
	}
}

// Sext expands a narrower signed integer (fromBits wide) already on top of
// the stack to a wider one (toBits wide) by pushing extra high limbs:
// FeltMax-filled if the sign bit of the kept value is set, zero-filled
// otherwise. fromBits/toBits name any of the i1/i8/i16/i32/i64/i128
// widths; a zero-limb result (toBits <= fromBits) is a no-op.
func Sext(fromBits, toBits int) []masm.Op {
	extra := limbsForBits(toBits) - limbsForBits(fromBits)
	if extra <= 0 {
		return nil
	}
	signBit := uint32(1) << uint((fromBits-1)%32)
	ops := []masm.Op{
		masm.Dup{Index: uint8(limbsForBits(fromBits) - 1)},
		masm.Push{Value: masm.Felt(signBit)},
		masm.U32And{},
		masm.Push{Value: 0},
		masm.U32Gt{},
	}
	thenBlk := &masm.Block{}
	elseBlk := &masm.Block{}
	for i := 0; i < extra; i++ {
		thenBlk.Append(masm.Push{Value: masm.FeltMax})
		elseBlk.Append(masm.Push{Value: 0})
	}
	ops = append(ops, masm.If{Then: thenBlk, Else: elseBlk})
	// The If left the new high limbs on top, above the original value;
	// moving each original limb back up, most significant first, leaves the
	// original limbs on top as the least-significant part of the result.
	return append(ops, restoreLimbs(limbsForBits(fromBits), extra)...)
}

// restoreLimbs brings the `kept` limbs buried under `extra` freshly pushed
// high limbs back to the top, preserving their relative order.
func restoreLimbs(kept, extra int) []masm.Op {
	ops := make([]masm.Op, 0, kept)
	for i := 0; i < kept; i++ {
		ops = append(ops, masm.Movup{Index: uint8(extra + kept - 1)})
	}
	return ops
}

// Zext expands a narrower unsigned (or boolean) integer to a wider one by
// pushing zero-valued high limbs, then restoring the original value to the
// top of the stack so it remains the widened result's least-significant
// limb.
func Zext(fromBits, toBits int) []masm.Op {
	extra := limbsForBits(toBits) - limbsForBits(fromBits)
	if extra <= 0 {
		return nil
	}
	ops := make([]masm.Op, 0, extra+1)
	for i := 0; i < extra; i++ {
		ops = append(ops, masm.Push{Value: 0})
	}
	return append(ops, restoreLimbs(limbsForBits(fromBits), extra)...)
}

// CheckedAddSmallInt adds two single-limb integers and asserts the result
// did not overflow the destination width by comparing against the result
// of a wider (u32) addition; applicable to i1/i8/i16/i32 operands, which
// all fit in one felt limb. Leaves the checked sum on top, undisturbed.
func CheckedAddSmallInt(bits int) []masm.Op {
	mask := uint32(1)<<uint(bits) - 1
	return []masm.Op{
		masm.U32Add{},
		// Two extra copies: one consumed by the mask check, one consumed
		// by the equality assertion, leaving the third as the kept result.
		masm.Dup{Index: 0},
		masm.Dup{Index: 1},
		masm.Push{Value: masm.Felt(mask)},
		masm.U32And{},
		masm.AssertEq{},
	}
}

// SelectI64 implements a polymorphic two-limb conditional select: given a
// boolean and two 64-bit (two-limb) operands on the stack, it leaves a if
// the boolean is true and b otherwise. Lowered as a pair of single-limb
// Cdrop-style selections (via Miden's conditional-drop idiom) rather than
// one 4-wide select, since Cdropw operates on whole words and a 64-bit
// value is only half a word.
func SelectI64() []masm.Op {
	return []masm.Op{
		// stack: cond, a_lo, a_hi, b_lo, b_hi  (each operand two limbs,
		// low limb on top within its pair)
		masm.Movup{Index: 3},
		masm.Movdn{Index: 2},
		// [cond, a_lo, b_lo, a_hi, b_hi] -> keep a copy of cond for the
		// high pair below it.
		masm.Dup{Index: 0},
		masm.Movdn{Index: 5},
		Cdrop(), // [lo, a_hi, b_hi, cond]
		masm.Movdn{Index: 3},
		masm.Movup{Index: 2},
		Cdrop(), // [hi, lo]
		masm.Swap{Index: 1},
	}
}

// Cdrop implements Miden's conditional-drop idiom for a single felt limb:
// given a boolean and two candidate limbs on top, it drops whichever the
// boolean did not select.
func Cdrop() masm.Op {
	return masm.If{
		Then: blockOf(masm.Swap{Index: 1}, masm.Drop{}),
		Else: blockOf(masm.Drop{}),
	}
}

// Cdropw is Cdrop's whole-word analogue, used to select between two
// 128-bit (four-limb) operands. The Then arm sinks each limb of the top
// word beneath the second word (there is no word-swap op in this IR) and
// then drops the second word.
func Cdropw() masm.Op {
	return masm.If{
		Then: blockOf(masm.Movdn{Index: 7}, masm.Movdn{Index: 7}, masm.Movdn{Index: 7}, masm.Movdn{Index: 7}, masm.Dropw{}),
		Else: blockOf(masm.Dropw{}),
	}
}
