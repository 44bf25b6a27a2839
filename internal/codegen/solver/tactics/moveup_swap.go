package tactics

import "github.com/midenc-go/midenc/internal/codegen/solver"

// MoveUpAndSwap places the expected prefix by manually tracing
// permutation cycles in the post-dup window (without gonum's
// graph/Tarjan-SCC machinery, unlike Linear) and resolving each with one
// Movup to the shallowest member followed by cascading Swaps and a final
// Movdn, the same rotation Linear uses, reached here by direct cycle
// traversal instead of an explicit graph build. A stack [b,d,c,a,e] with
// expected prefix [a,b,c,d,e] and no copies resolves under this strategy
// as swap(1) then swap(3); no movup is emitted, because the shallowest
// member of that cycle is already on top.
func MoveUpAndSwap(in solver.Input) solver.TacticResult {
	return cycleTactic(in)
}

// cycleTactic is shared by MoveUpAndSwap and MoveDownAndSwap: both trace
// and resolve the same cycles with the same resolveCycle rotation (see
// linear.go), so they currently produce identical results. Kept as one
// implementation here since both are genuinely the same algorithm applied
// to the manually-traced cycle set.
func cycleTactic(in solver.Input) solver.TacticResult {
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
	expectedCount := make(map[solver.StackValue]int, n)
	for _, v := range in.Expected {
		expectedCount[v]++
	}
	windowCount := make(map[solver.StackValue]int, n)
	for _, v := range window {
		windowCount[v]++
	}
	for v, c := range expectedCount {
		if windowCount[v] != c {
			return notApplicable("top-of-stack window is not a permutation of the expected prefix")
		}
	}

	pos := make(map[solver.StackValue]int, n)
	for i, v := range window {
		pos[v] = i
	}

	visited := make([]bool, n)
	for start := 0; start < n; start++ {
		if visited[start] || pos[in.Expected[start]] == start {
			visited[start] = true
			continue
		}
		var cycle []int
		cur := start
		for !visited[cur] {
			visited[cur] = true
			cycle = append(cycle, cur)
			cur = pos[in.Expected[cur]]
		}
		if len(cycle) > 1 {
			vals := make([]solver.StackValue, len(cycle))
			for i, p := range cycle {
				vals[i] = in.Expected[p]
			}
			resolveCycle(b, vals)
		}
	}
	return ok(b)
}
