package ir

import (
	"fmt"
	"sync"
)

// borrowState implements dynamically-checked shared/exclusive borrow
// rules: mutation requires an exclusive borrow, and no entity may be
// borrowed mutably while any other borrow is live. Go has no compile-time
// borrow checker, so violations panic at runtime instead.
type borrowState struct {
	mu        sync.Mutex
	shared    int
	exclusive bool
}

func (b *borrowState) lockShared(kind string) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exclusive {
		panic(fmt.Sprintf("%s: cannot borrow, already exclusively borrowed", kind))
	}
	b.shared++
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.shared--
	}
}

func (b *borrowState) lockExclusive(kind string) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exclusive {
		panic(fmt.Sprintf("%s: cannot borrow mutably, already exclusively borrowed", kind))
	}
	if b.shared > 0 {
		panic(fmt.Sprintf("%s: cannot borrow mutably while %d shared borrow(s) are live", kind, b.shared))
	}
	b.exclusive = true
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.exclusive = false
	}
}

// EntityID is a small integer identity assigned by a Context at allocation
// time, stable for the lifetime of the compilation session.
type EntityID uint32

// entity is the common arena record backing every Handle[T]: the payload,
// its identity, and its borrow-tracking state.
type entity[T any] struct {
	id    EntityID
	kind  string
	state borrowState
	value T
}

// Handle is a uniform, ref-counted-by-GC smart pointer into a Context's
// arena, with dynamically-checked read/write borrows. The zero Handle is
// invalid; Handles are produced by the Context's Create*/Add* methods.
type Handle[T any] struct {
	e *entity[T]
}

// Valid reports whether h refers to a live entity.
func (h Handle[T]) Valid() bool { return h.e != nil }

// ID returns the stable identity of the referenced entity.
func (h Handle[T]) ID() EntityID {
	if h.e == nil {
		return 0
	}
	return h.e.id
}

// Equal reports whether h and o refer to the same entity.
func (h Handle[T]) Equal(o Handle[T]) bool { return h.e == o.e }

// Borrow acquires a shared (read-only) borrow of the referenced entity and
// returns the value together with a release function that must be called
// exactly once. Borrow panics if an exclusive borrow is currently live.
func (h Handle[T]) Borrow() (*T, func()) {
	if h.e == nil {
		panic("Borrow: invalid handle")
	}
	release := h.e.state.lockShared(h.e.kind)
	return &h.e.value, release
}

// BorrowMut acquires an exclusive (read-write) borrow. BorrowMut panics if
// any other borrow, shared or exclusive, of the same entity is currently
// live.
func (h Handle[T]) BorrowMut() (*T, func()) {
	if h.e == nil {
		panic("BorrowMut: invalid handle")
	}
	release := h.e.state.lockExclusive(h.e.kind)
	return &h.e.value, release
}

// With is a convenience wrapper that acquires a shared borrow for the
// duration of fn.
func With[T any](h Handle[T], fn func(*T)) {
	v, release := h.Borrow()
	defer release()
	fn(v)
}

// WithMut is a convenience wrapper that acquires an exclusive borrow for the
// duration of fn.
func WithMut[T any](h Handle[T], fn func(*T)) {
	v, release := h.BorrowMut()
	defer release()
	fn(v)
}

// listLink is embedded (by value, not pointer) into entity payloads that
// must live in exactly one intrusive doubly-linked list at a time: blocks
// in a region, ops in a block, regions in an op, or operand-uses in a
// value's use-list. An entity is either detached (linked == false) or
// attached to exactly one parent list.
type listLink[T any] struct {
	linked     bool
	prev, next Handle[T]
}

// Detached reports whether the owning entity is not currently a member of
// any list.
func (l *listLink[T]) Detached() bool { return !l.linked }
