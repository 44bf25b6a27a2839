// Package solver implements the operand-placement constraint solver: given
// a simulated operand stack, a required top-of-stack prefix, and the set
// of values that must survive past this placement (because they are used
// again later), it produces a sequence of stack-manipulation actions
// (dup/swap/movup/movdn) that arranges the stack as required. Concrete
// strategies for producing that sequence live in the tactics subpackage;
// this package owns the shared stack model, action vocabulary, and the
// cost-based driver that picks among a portfolio of tactics.
package solver

// StackValue is an opaque identifier for whatever occupies one stack slot.
// The stackifier keys these by HIR value identity; the solver itself never
// interprets them beyond equality.
type StackValue uint32

// Stack models the simulated Miden operand stack during stackification.
// Index 0 is always the top of the stack.
type Stack struct {
	slots []StackValue
}

// NewStack creates a Stack with slots as its initial contents, top first.
func NewStack(slots []StackValue) *Stack {
	s := &Stack{slots: append([]StackValue(nil), slots...)}
	return s
}

// Clone returns an independent copy of s.
func (s *Stack) Clone() *Stack {
	return NewStack(s.slots)
}

// Len returns the number of slots currently on the stack.
func (s *Stack) Len() int { return len(s.slots) }

// Top returns the value at position i (0 = top of stack).
func (s *Stack) Top(i int) StackValue { return s.slots[i] }

// Slots returns a copy of the full stack contents, top first.
func (s *Stack) Slots() []StackValue {
	return append([]StackValue(nil), s.slots...)
}

// IndexOf returns the position of the first occurrence of v (searching
// from the top), or -1 if v is not present.
func (s *Stack) IndexOf(v StackValue) int {
	for i, x := range s.slots {
		if x == v {
			return i
		}
	}
	return -1
}

// Push places v on top of the stack.
func (s *Stack) Push(v StackValue) {
	s.slots = append([]StackValue{v}, s.slots...)
}

// Drop removes the top element.
func (s *Stack) Drop() {
	s.slots = s.slots[1:]
}

// Dup duplicates the element at i onto the top.
func (s *Stack) Dup(i int) {
	s.Push(s.slots[i])
}

// Swap exchanges the top element with the element at i. A no-op for i==0.
func (s *Stack) Swap(i int) {
	s.slots[0], s.slots[i] = s.slots[i], s.slots[0]
}

// Movup moves the element at i to the top, shifting [0, i) down by one.
func (s *Stack) Movup(i int) {
	if i == 0 {
		return
	}
	v := s.slots[i]
	copy(s.slots[1:i+1], s.slots[0:i])
	s.slots[0] = v
}

// Movdn moves the top element down to i, shifting [0, i) up by one.
func (s *Stack) Movdn(i int) {
	if i == 0 {
		return
	}
	v := s.slots[0]
	copy(s.slots[0:i], s.slots[1:i+1])
	s.slots[i] = v
}

// ActionKind identifies one of the five primitive stack-manipulation
// actions a tactic may emit.
type ActionKind uint8

const (
	ActionDup ActionKind = iota
	ActionSwap
	ActionMovup
	ActionMovdn
	ActionDrop
)

func (k ActionKind) String() string {
	switch k {
	case ActionDup:
		return "dup"
	case ActionSwap:
		return "swap"
	case ActionMovup:
		return "movup"
	case ActionMovdn:
		return "movdn"
	case ActionDrop:
		return "drop"
	default:
		return "invalid"
	}
}

// Action is one recorded stack-manipulation step, replayable against a
// Stack via Replay.
type Action struct {
	Kind  ActionKind
	Index int
}

// Replay applies actions, in order, to a clone of stack and returns the
// resulting stack. Used both by tactics' own bookkeeping (SolutionBuilder)
// and by the driver's independent validation pass.
func Replay(stack *Stack, actions []Action) *Stack {
	s := stack.Clone()
	for _, a := range actions {
		switch a.Kind {
		case ActionDup:
			s.Dup(a.Index)
		case ActionSwap:
			s.Swap(a.Index)
		case ActionMovup:
			s.Movup(a.Index)
		case ActionMovdn:
			s.Movdn(a.Index)
		case ActionDrop:
			s.Drop()
		}
	}
	return s
}

// SolutionBuilder accumulates Actions while mutating its own private Stack
// copy, so a tactic can read back the effect of each action it has taken
// so far (via Stack/IndexOf) when deciding the next one.
type SolutionBuilder struct {
	stack   *Stack
	actions []Action
}

// NewSolutionBuilder starts a builder from a clone of stack; stack itself
// is left untouched.
func NewSolutionBuilder(stack *Stack) *SolutionBuilder {
	return &SolutionBuilder{stack: stack.Clone()}
}

func (b *SolutionBuilder) Stack() *Stack { return b.stack }

func (b *SolutionBuilder) Actions() []Action {
	return append([]Action(nil), b.actions...)
}

func (b *SolutionBuilder) Dup(i int) {
	b.stack.Dup(i)
	b.actions = append(b.actions, Action{Kind: ActionDup, Index: i})
}

func (b *SolutionBuilder) Swap(i int) {
	if i == 0 {
		return
	}
	b.stack.Swap(i)
	b.actions = append(b.actions, Action{Kind: ActionSwap, Index: i})
}

func (b *SolutionBuilder) Movup(i int) {
	if i == 0 {
		return
	}
	b.stack.Movup(i)
	b.actions = append(b.actions, Action{Kind: ActionMovup, Index: i})
}

func (b *SolutionBuilder) Movdn(i int) {
	if i == 0 {
		return
	}
	b.stack.Movdn(i)
	b.actions = append(b.actions, Action{Kind: ActionMovdn, Index: i})
}

// Evict drops the top element, used once a tactic has arranged for the
// value no longer needed at top to have no other effect on the result.
func (b *SolutionBuilder) Evict() {
	b.stack.Drop()
	b.actions = append(b.actions, Action{Kind: ActionDrop})
}

// EvictFrom brings the element at i to the top and discards it in one
// step, for removing a misplaced occupant that blocks a needed position.
func (b *SolutionBuilder) EvictFrom(i int) {
	b.Movup(i)
	b.Evict()
}
