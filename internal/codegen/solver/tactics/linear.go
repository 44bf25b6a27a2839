package tactics

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/midenc-go/midenc/internal/codegen/solver"
)

// Linear resolves the general case: the top len(in.Expected) stack slots,
// after duping every copied value, hold exactly a permutation of the
// expected values (no foreign value in the window, no expected value
// missing). It treats that window as a permutation-cycle problem: window
// position i "wants" whichever value currently sits at the position
// holding Expected[i]. It builds the misplaced-position digraph, and
// decomposes it into cycles with gonum's Tarjan-SCC implementation
// (graph/topo.TarjanSCC), since a fixed point (self-loop-free singleton
// SCC) needs no work and a genuine cycle needs the same
// movup-then-swap-then-movdn rotation regardless of its length.
//
// If the post-dup window is not a clean permutation of Expected (some
// other live value is interleaved with it, or an expected value sits
// outside the window), Linear declines with StatusNotApplicable, leaving
// it to a simpler tactic (which may itself decline) or to the eviction
// handling a future tactic could add for the case of genuinely dead
// occupants blocking a window position.
func Linear(in solver.Input) solver.TacticResult {
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

	g := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	anyMisplaced := false
	for i := 0; i < n; i++ {
		have := pos[in.Expected[i]]
		if have != i {
			anyMisplaced = true
			g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(have)})
		}
	}
	if !anyMisplaced {
		return ok(b)
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue // fixed point, no rotation needed
		}
		vals := make([]solver.StackValue, len(scc))
		for i, node := range scc {
			vals[i] = in.Expected[node.ID()]
		}
		resolveCycle(b, vals)
	}

	return ok(b)
}

// resolveCycle rotates the stack positions currently holding vals into
// place: it looks up each value's live position immediately before
// acting (rather than reusing positions computed before any prior cycle
// was resolved, which earlier movup/swap/movdn calls may have shifted),
// brings the shallowest member to the top with one Movup, rotates the
// rest into place with one Swap per remaining member, and finishes by
// moving the value now on top down into the vacated shallow slot.
func resolveCycle(b *solver.SolutionBuilder, vals []solver.StackValue) {
	positions := make([]int, len(vals))
	for i, v := range vals {
		positions[i] = b.Stack().IndexOf(v)
	}
	sort.Ints(positions)

	shallow := positions[0]
	b.Movup(shallow)
	for _, p := range positions[1:] {
		b.Swap(p)
	}
	b.Movdn(shallow)
}
