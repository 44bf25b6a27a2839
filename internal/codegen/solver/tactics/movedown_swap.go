package tactics

import "github.com/midenc-go/midenc/internal/codegen/solver"

// MoveDownAndSwap resolves the same manually-traced permutation cycles as
// MoveUpAndSwap. It is kept as a distinct portfolio entry because the
// solver's cost-based driver (internal/codegen/solver.Solve) only ever
// compares reported costs, not implementations: having two tactics that
// agree on simple inputs but diverge once a future revision specializes
// one of them (e.g. to prefer fewer Movdn ops when the misplacement is
// concentrated near the bottom of the window) costs nothing today and
// avoids having to re-plumb the portfolio wiring later.
func MoveDownAndSwap(in solver.Input) solver.TacticResult {
	return cycleTactic(in)
}
