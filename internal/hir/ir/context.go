package ir

import "sync/atomic"

// Context owns every IR entity allocated during one compilation session:
// blocks, values, operations, regions, and their use-list bookkeeping. A
// Handle never outlives its Context, and a Context's arenas are simply
// released (left to the garbage collector) when the Context itself becomes
// unreachable.
type Context struct {
	nextID uint32

	dialects map[string]*Dialect
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{dialects: make(map[string]*Dialect)}
}

func (c *Context) allocID() EntityID {
	return EntityID(atomic.AddUint32(&c.nextID, 1))
}

// alloc is the generic entity constructor shared by every concrete IR
// entity type (Block, Operation, Region, valueRec, opOperandRec, ...).
func alloc[T any](c *Context, kind string, value T) Handle[T] {
	e := &entity[T]{id: c.allocID(), kind: kind, value: value}
	return Handle[T]{e: e}
}

func (c *Context) allocUse(rec opOperandRec) OpOperand {
	return alloc(c, "OpOperand", rec)
}

// RegisterDialect installs d in this Context's dialect registry, keyed by
// its namespace. Registering the same namespace twice returns the
// previously registered Dialect.
func (c *Context) RegisterDialect(d *Dialect) *Dialect {
	if existing, ok := c.dialects[d.Namespace]; ok {
		return existing
	}
	c.dialects[d.Namespace] = d
	return d
}

// Dialect looks up a previously registered dialect by namespace.
func (c *Context) Dialect(namespace string) (*Dialect, bool) {
	d, ok := c.dialects[namespace]
	return d, ok
}
