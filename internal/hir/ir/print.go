package ir

import (
	"fmt"
	"io"
	"sort"
)

// Print renders region as textual HIR: one labeled block per basic block,
// each holding its parameter list and its operations in order, each
// operation's results named `%<id>` after the entity id its defining
// value was allocated under. This is the human-readable compiler output,
// independent of MASM's internal/masm.Print (MASM has no SSA values to
// name, only a flat operand stack). The module has no parser for this
// text, so it cannot be read back into HIR.
func Print(w io.Writer, region Handle[Region]) error {
	blocks := region.Blocks()
	ids := make(map[Handle[Block]]int, len(blocks))
	for i, b := range blocks {
		ids[b] = i
	}
	for _, b := range blocks {
		if err := printBlock(w, b, ids); err != nil {
			return err
		}
	}
	return nil
}

func printBlock(w io.Writer, b Handle[Block], ids map[Handle[Block]]int) error {
	if _, err := fmt.Fprintf(w, "^bb%d(", ids[b]); err != nil {
		return err
	}
	for i, p := range b.Params() {
		if i > 0 {
			if _, err := io.WriteString(w, ", "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%%%d: %s", p.ID(), p.Type()); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "):\n"); err != nil {
		return err
	}

	var err error
	b.ForEachOp(func(op Handle[Operation]) {
		if err != nil {
			return
		}
		err = printOp(w, op, ids)
	})
	return err
}

func printOp(w io.Writer, op Handle[Operation], ids map[Handle[Block]]int) error {
	if _, err := io.WriteString(w, "  "); err != nil {
		return err
	}
	if n := op.NumResults(); n > 0 {
		for i := 0; i < n; i++ {
			if i > 0 {
				if _, err := io.WriteString(w, ", "); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%%%d", op.Result(i).ID()); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, " = "); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, op.OpName().String()); err != nil {
		return err
	}
	for i := 0; i < op.NumOperands(); i++ {
		if _, err := fmt.Fprintf(w, " %%%d", op.Operand(i).ID()); err != nil {
			return err
		}
	}
	keys := op.AttrKeys()
	sort.Strings(keys)
	for _, k := range keys {
		attr, _ := op.Attr(k)
		if _, err := fmt.Fprintf(w, " {%s = %s}", k, formatAttr(attr)); err != nil {
			return err
		}
	}
	for i := 0; i < op.NumSuccessors(); i++ {
		succ := op.Successor(i)
		if _, err := fmt.Fprintf(w, " -> ^bb%d", ids[succ.Dest.Block()]); err != nil {
			return err
		}
	}
	if n := op.NumResults(); n > 0 {
		if _, err := io.WriteString(w, " :"); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if _, err := fmt.Fprintf(w, " %s", op.Result(i).Type()); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func formatAttr(a Attribute) string {
	switch v := a.(type) {
	case IntAttr:
		return fmt.Sprintf("%d", v.Value)
	case UintAttr:
		return fmt.Sprintf("%d", v.Value)
	case BoolAttr:
		return fmt.Sprintf("%t", v.Value)
	case StringAttr:
		return fmt.Sprintf("%q", v.Value)
	case SymbolAttr:
		return "@" + v.Value
	case ArrayAttr:
		out := "["
		for i, e := range v.Elems {
			if i > 0 {
				out += ", "
			}
			out += formatAttr(e)
		}
		return out + "]"
	default:
		return "<attr>"
	}
}
