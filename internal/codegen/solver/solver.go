package solver

import "fmt"

// Status reports the outcome of a single tactic's attempt to place the
// stack. Mirrors the Rust source's Result-shaped tactic return convention,
// but as an explicit three-way enum since a NotApplicable tactic is not an
// error: the driver simply tries the next one in the portfolio.
type Status uint8

const (
	// StatusOk means Actions, replayed on the input stack, produces a
	// stack satisfying the request.
	StatusOk Status = iota
	// StatusPreconditionFailed means the tactic's required inputs were
	// themselves invalid (e.g. a requested value is absent from the
	// stack entirely). This is propagated as a solver error, since no
	// other tactic can succeed either.
	StatusPreconditionFailed
	// StatusNotApplicable means this tactic's simplifying assumptions
	// don't hold for this input, but a different tactic might still
	// succeed.
	StatusNotApplicable
)

// Input is one placement request: the current stack, the values that must
// occupy its top len(Expected) positions in order after placement, and the
// subset of those values that must additionally survive (via Dup rather
// than being consumed/moved) because they are used again later.
type Input struct {
	Stack    *Stack
	Expected []StackValue
	Copies   map[StackValue]bool
}

// TacticResult is what a single tactic returns for one Input.
type TacticResult struct {
	Status     Status
	Actions    []Action
	Cost       int
	FinalStack *Stack
	Reason     string
}

// Tactic is a pure function from placement Input to TacticResult. Each
// tactic in the solver's portfolio only needs to handle the subset of
// inputs its own strategy applies to, returning StatusNotApplicable
// otherwise; see internal/codegen/solver/tactics for the concrete
// strategies.
type Tactic func(Input) TacticResult

// Solve tries every tactic in portfolio against in, and returns the
// lowest-cost result among those that returned StatusOk. It is an error
// for every tactic to fail, or for any tactic to report
// StatusPreconditionFailed (since a precondition failure means the
// request itself cannot be satisfied, regardless of strategy).
//
// Every candidate Ok result is independently replayed against a fresh
// clone of in.Stack before being considered, and rejected if the replay's
// final stack disagrees with the tactic's own FinalStack or fails to
// satisfy the expected prefix: a tactic that lies about its own effect
// must not be allowed to win the portfolio.
func Solve(in Input, portfolio []Tactic) (TacticResult, error) {
	var best *TacticResult
	for _, t := range portfolio {
		res := t(in)
		switch res.Status {
		case StatusPreconditionFailed:
			return TacticResult{}, fmt.Errorf("solver: precondition failed: %s", res.Reason)
		case StatusNotApplicable:
			continue
		case StatusOk:
			if !validate(in, res) {
				continue
			}
			if best == nil || res.Cost < best.Cost {
				r := res
				best = &r
			}
		}
	}
	if best == nil {
		return TacticResult{}, fmt.Errorf("solver: no tactic in the portfolio produced a valid placement for a prefix of length %d", len(in.Expected))
	}
	return *best, nil
}

// validate replays res.Actions against a fresh clone of in.Stack and
// checks that the result matches res.FinalStack exactly and that its top
// len(in.Expected) slots equal in.Expected in order.
func validate(in Input, res TacticResult) bool {
	replayed := Replay(in.Stack, res.Actions)
	if res.FinalStack == nil || res.FinalStack.Len() != replayed.Len() {
		return false
	}
	for i := 0; i < replayed.Len(); i++ {
		if replayed.Top(i) != res.FinalStack.Top(i) {
			return false
		}
	}
	if replayed.Len() < len(in.Expected) {
		return false
	}
	for i, want := range in.Expected {
		if replayed.Top(i) != want {
			return false
		}
	}
	return true
}
