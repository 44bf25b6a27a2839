package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackPrimitives(t *testing.T) {
	s := NewStack([]StackValue{1, 2, 3, 4})
	s.Swap(2)
	require.Equal(t, []StackValue{3, 2, 1, 4}, s.Slots())

	s2 := NewStack([]StackValue{1, 2, 3, 4})
	s2.Movup(2)
	require.Equal(t, []StackValue{3, 1, 2, 4}, s2.Slots())

	s3 := NewStack([]StackValue{1, 2, 3, 4})
	s3.Movdn(2)
	require.Equal(t, []StackValue{2, 3, 1, 4}, s3.Slots())

	s4 := NewStack([]StackValue{1, 2, 3})
	s4.Dup(1)
	require.Equal(t, []StackValue{2, 1, 2, 3}, s4.Slots())
}

func TestReplayMatchesSolutionBuilder(t *testing.T) {
	stack := NewStack([]StackValue{1, 2, 3, 4})
	b := NewSolutionBuilder(stack)
	b.Movup(2)
	b.Swap(1)
	b.Evict()

	replayed := Replay(stack, b.Actions())
	require.Equal(t, b.Stack().Slots(), replayed.Slots())
}

func identityTactic(in Input) TacticResult {
	b := NewSolutionBuilder(in.Stack)
	return TacticResult{Status: StatusOk, Actions: b.Actions(), Cost: 0, FinalStack: b.Stack()}
}

func TestSolveRejectsInvalidTacticViaReplay(t *testing.T) {
	stack := NewStack([]StackValue{2, 1, 3})
	lying := func(in Input) TacticResult {
		return TacticResult{Status: StatusOk, Actions: nil, Cost: 0, FinalStack: nil}
	}
	fixed := func(in Input) TacticResult {
		b := NewSolutionBuilder(in.Stack)
		b.Swap(1)
		return TacticResult{Status: StatusOk, Actions: b.Actions(), Cost: 1, FinalStack: b.Stack()}
	}
	in := Input{Stack: stack, Expected: []StackValue{1, 2}}
	res, err := Solve(in, []Tactic{lying, fixed})
	require.NoError(t, err)
	require.Equal(t, 1, res.Cost)
}

func TestSolveNoApplicableTactic(t *testing.T) {
	stack := NewStack([]StackValue{1, 2})
	always := func(in Input) TacticResult {
		return TacticResult{Status: StatusNotApplicable}
	}
	_, err := Solve(Input{Stack: stack, Expected: []StackValue{1}}, []Tactic{always})
	require.Error(t, err)
}

func TestSolvePropagatesPreconditionFailure(t *testing.T) {
	stack := NewStack([]StackValue{1, 2})
	fails := func(in Input) TacticResult {
		return TacticResult{Status: StatusPreconditionFailed, Reason: "boom"}
	}
	_, err := Solve(Input{Stack: stack, Expected: []StackValue{1}}, []Tactic{fails})
	require.Error(t, err)
}
