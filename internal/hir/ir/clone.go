package ir

import "github.com/midenc-go/midenc/internal/hir/types"

// CloneOperation builds a new operation with the same definition, span,
// and attributes as op, passing every operand value (including successor
// argument groups) through remapValue first. Regions are not cloned;
// callers that need to duplicate an op with nested regions must recurse
// themselves; the core dialect's operations are all region-free.
func (c *Context) CloneOperation(op Handle[Operation], remapValue func(Value) Value) Handle[Operation] {
	rec, release := op.Borrow()
	def := rec.Def
	span := rec.Span
	resultTypes := make([]*types.Type, len(rec.results))
	for i, r := range rec.results {
		resultTypes[i] = r.Type()
	}
	group0 := make([]Value, len(rec.operandGroups[0]))
	for i, o := range rec.operandGroups[0] {
		group0[i] = remapValue(o.Value())
	}
	type succInfo struct {
		target Handle[Block]
		args   []Value
	}
	var succs []succInfo
	for _, s := range rec.successors {
		args := make([]Value, len(rec.operandGroups[s.ArgGroup]))
		for i, o := range rec.operandGroups[s.ArgGroup] {
			args[i] = remapValue(o.Value())
		}
		succs = append(succs, succInfo{target: s.Dest.Block(), args: args})
	}
	attrKeys := rec.Attrs.Keys()
	release()

	clone := c.CreateOperation(def, group0, resultTypes, span)
	for _, k := range attrKeys {
		v, _ := op.Attr(k)
		clone.SetAttr(k, v)
	}
	for _, s := range succs {
		c.AddSuccessor(clone, s.target, s.args)
	}
	return clone
}
