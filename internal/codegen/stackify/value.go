package stackify

import (
	"github.com/midenc-go/midenc/internal/codegen/solver"
	"github.com/midenc-go/midenc/internal/hir/ir"
)

// limbValue identifies one 32-bit felt limb of an HIR value on the
// simulated operand stack. Wide integers (i64/i128) occupy more than one
// stack slot, so the solver, which only ever reasons about opaque
// solver.StackValue identities, needs a distinct identity per limb rather
// than one identity per HIR value. limb 0 is always the least significant
// limb, which this compiler's stack convention keeps on top.
func limbValue(v ir.Value, limb int) solver.StackValue {
	return solver.StackValue(uint32(v.ID())<<2 | uint32(limb&0x3))
}

// limbsOf returns the solver.StackValue identities of every limb of v,
// ordered least-significant first (top-of-stack order), for a value whose
// type has the given limb count.
func limbsOf(v ir.Value, limbCount int) []solver.StackValue {
	out := make([]solver.StackValue, limbCount)
	for i := 0; i < limbCount; i++ {
		out[i] = limbValue(v, i)
	}
	return out
}

// pushWindow returns, top-first, the limb identities of each value in vs in
// reverse order: the last value of vs ends up topmost, matching the
// convention that operands are conceptually pushed left to right so the
// rightmost/last-pushed operand is nearest the top.
func pushWindow(vs []ir.Value, limbCounts []int) []solver.StackValue {
	var out []solver.StackValue
	for i := len(vs) - 1; i >= 0; i-- {
		out = append(out, limbsOf(vs[i], limbCounts[i])...)
	}
	return out
}
