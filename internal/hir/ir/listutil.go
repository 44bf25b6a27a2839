package ir

// linkOf extracts the listLink embedded in the entity referenced by h.
type linkOf[T any] func(Handle[T]) *listLink[T]

// linkAppend attaches h to the tail of the intrusive list anchored at
// (*head, *tail), panicking if h is already attached to some list: an
// entity is either detached or attached to exactly one parent list.
func linkAppend[T any](head, tail *Handle[T], h Handle[T], link linkOf[T]) {
	l := link(h)
	if l.linked {
		panic("linkAppend: entity is already attached to a list")
	}
	l.linked = true
	l.prev = *tail
	l.next = Handle[T]{}
	if tail.Valid() {
		link(*tail).next = h
	} else {
		*head = h
	}
	*tail = h
}

// linkInsertBefore inserts h immediately before `before` in the list
// anchored at (*head, *tail).
func linkInsertBefore[T any](head, tail *Handle[T], before, h Handle[T], link linkOf[T]) {
	l := link(h)
	if l.linked {
		panic("linkInsertBefore: entity is already attached to a list")
	}
	bl := link(before)
	prev := bl.prev
	l.linked = true
	l.prev = prev
	l.next = before
	bl.prev = h
	if prev.Valid() {
		link(prev).next = h
	} else {
		*head = h
	}
}

// unlink detaches h from the list anchored at (*head, *tail). It is a
// no-op error (panic) to unlink a detached entity.
func unlink[T any](head, tail *Handle[T], h Handle[T], link linkOf[T]) {
	l := link(h)
	if !l.linked {
		panic("unlink: entity is not attached to any list")
	}
	prev, next := l.prev, l.next
	if prev.Valid() {
		link(prev).next = next
	} else {
		*head = next
	}
	if next.Valid() {
		link(next).prev = prev
	} else {
		*tail = prev
	}
	l.linked = false
	l.prev = Handle[T]{}
	l.next = Handle[T]{}
}
