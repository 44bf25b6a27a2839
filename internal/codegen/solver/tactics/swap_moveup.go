package tactics

import "github.com/midenc-go/midenc/internal/codegen/solver"

// SwapAndMoveUp handles the cheapest common case: the window is already
// correct except for a single pair transposed with the top, i.e.
// Expected[0] currently sits at some depth j and the value currently on
// top is exactly Expected[j]. A single Swap(j) fixes both positions at
// once. Any other shape of misplacement is declined with
// StatusNotApplicable, leaving it to MoveUpAndSwap/MoveDownAndSwap/Linear.
func SwapAndMoveUp(in solver.Input) solver.TacticResult {
	b := solver.NewSolutionBuilder(in.Stack)
	n := len(in.Expected)
	if n == 0 {
		return ok(b)
	}
	if !dupCopies(b, in) {
		return preconditionFailed("copied value is not present on the stack")
	}
	if b.Stack().Len() < n {
		return notApplicable("stack is shorter than the expected prefix")
	}

	window := b.Stack().Slots()[:n]
	var wrong []int
	for i := 0; i < n; i++ {
		if window[i] != in.Expected[i] {
			wrong = append(wrong, i)
		}
	}
	if len(wrong) == 0 {
		return ok(b) // already in place
	}
	if len(wrong) != 2 || wrong[0] != 0 {
		return notApplicable("misplacement is not a single pair involving the top")
	}
	misplaced := wrong[1]
	if window[misplaced] != in.Expected[0] || window[0] != in.Expected[misplaced] {
		return notApplicable("misplacement is not a simple transposition with the top")
	}

	b.Swap(misplaced)
	return ok(b)
}
