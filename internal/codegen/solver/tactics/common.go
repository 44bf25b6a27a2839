package tactics

import "github.com/midenc-go/midenc/internal/codegen/solver"

// dupCopies duplicates every value in in.Copies to the top of b's stack,
// in the order in.Expected lists them, leaving the original occurrence in
// place below so a later use can still find it. Returns false if some
// copied value is not present on the stack at all.
func dupCopies(b *solver.SolutionBuilder, in solver.Input) bool {
	for _, v := range in.Expected {
		if !in.Copies[v] {
			continue
		}
		idx := b.Stack().IndexOf(v)
		if idx < 0 {
			return false
		}
		b.Dup(idx)
	}
	return true
}

func notApplicable(reason string) solver.TacticResult {
	return solver.TacticResult{Status: solver.StatusNotApplicable, Reason: reason}
}

func preconditionFailed(reason string) solver.TacticResult {
	return solver.TacticResult{Status: solver.StatusPreconditionFailed, Reason: reason}
}

func ok(b *solver.SolutionBuilder) solver.TacticResult {
	return solver.TacticResult{
		Status:     solver.StatusOk,
		Actions:    b.Actions(),
		Cost:       len(b.Actions()),
		FinalStack: b.Stack(),
	}
}
