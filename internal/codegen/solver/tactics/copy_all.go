// Package tactics implements the concrete strategies tried by the
// operand-placement solver's portfolio (internal/codegen/solver.Solve):
// CopyAll, the always-applicable fallback; Linear, the general
// permutation-cycle solver backed by gonum's graph/Tarjan-SCC primitives;
// MoveUpAndSwap and MoveDownAndSwap, which resolve the same permutation
// cycles as Linear by direct cycle traversal; and SwapAndMoveUp, which
// applies only when a single Swap with the top fixes the window.
package tactics

import "github.com/midenc-go/midenc/internal/codegen/solver"

// CopyAll places the expected prefix by duplicating every required value
// from wherever it currently sits, from the last expected position to the
// first so that the final Dup sequence builds the prefix on top in order.
// It never moves or drops anything, so it is always applicable as long as
// every expected value is present somewhere on the stack, making it the
// portfolio's fallback of last resort: correct but rarely cheapest, since
// it pays one Dup per expected element even when most are already in
// place.
func CopyAll(in solver.Input) solver.TacticResult {
	b := solver.NewSolutionBuilder(in.Stack)
	n := len(in.Expected)
	for i := n - 1; i >= 0; i-- {
		v := in.Expected[i]
		idx := b.Stack().IndexOf(v)
		if idx < 0 {
			return solver.TacticResult{Status: solver.StatusPreconditionFailed, Reason: "expected value is not present anywhere on the stack"}
		}
		b.Dup(idx)
	}
	return solver.TacticResult{
		Status:     solver.StatusOk,
		Actions:    b.Actions(),
		Cost:       len(b.Actions()),
		FinalStack: b.Stack(),
	}
}
