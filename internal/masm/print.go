package masm

import (
	"fmt"
	"io"
	"strings"
)

// Print renders p as textual MASM: one `use` line per imported module
// alias, one `proc`/`export` per function, and (if set) a `begin ... end`
// block for the entrypoint.
func Print(w io.Writer, p *Program) error {
	for _, m := range p.AllModules() {
		for _, fq := range m.Imports.FullyQualifiedNames() {
			if _, err := fmt.Fprintf(w, "use.%s->%s\n", fq, m.Imports.Alias(fq)); err != nil {
				return err
			}
		}
	}
	for _, m := range p.AllModules() {
		for _, fn := range m.Functions {
			kw := "proc"
			if fn.IsExport {
				kw = "export"
			}
			if _, err := fmt.Fprintf(w, "%s.%s\n", kw, fn.Name); err != nil {
				return err
			}
			if err := printBlock(w, fn.Body.Body, 1); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, "end"); err != nil {
				return err
			}
		}
	}
	if p.Entrypoint != (FunctionIdent{}) {
		if _, err := fmt.Fprintln(w, "begin"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "    exec.%s\n", p.Entrypoint); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "end"); err != nil {
			return err
		}
	}
	return nil
}

func printBlock(w io.Writer, b *Block, depth int) error {
	indent := strings.Repeat("    ", depth)
	for _, op := range b.Ops {
		if err := printOp(w, op, indent, depth); err != nil {
			return err
		}
	}
	return nil
}

func printOp(w io.Writer, op Op, indent string, depth int) error {
	switch o := op.(type) {
	case If:
		if _, err := fmt.Fprintf(w, "%sif.true\n", indent); err != nil {
			return err
		}
		if err := printBlock(w, o.Then, depth+1); err != nil {
			return err
		}
		if o.Else != nil && len(o.Else.Ops) > 0 {
			if _, err := fmt.Fprintf(w, "%selse\n", indent); err != nil {
				return err
			}
			if err := printBlock(w, o.Else, depth+1); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%send\n", indent)
		return err
	case While:
		if _, err := fmt.Fprintf(w, "%swhile.true\n", indent); err != nil {
			return err
		}
		if err := printBlock(w, o.Body, depth+1); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%send\n", indent)
		return err
	case Repeat:
		if _, err := fmt.Fprintf(w, "%srepeat.%d\n", indent, o.Count); err != nil {
			return err
		}
		if err := printBlock(w, o.Body, depth+1); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%send\n", indent)
		return err
	case Push:
		_, err := fmt.Fprintf(w, "%spush.%d\n", indent, uint32(o.Value))
		return err
	case Swap:
		return printIndexed(w, indent, "swap", o.Index)
	case Dup:
		return printIndexed(w, indent, "dup", o.Index)
	case Movup:
		return printIndexed(w, indent, "movup", o.Index)
	case Movdn:
		return printIndexed(w, indent, "movdn", o.Index)
	case Exec:
		_, err := fmt.Fprintf(w, "%sexec.%s\n", indent, o.Target)
		return err
	case Call:
		_, err := fmt.Fprintf(w, "%scall.%s\n", indent, o.Target)
		return err
	case SysCall:
		_, err := fmt.Fprintf(w, "%ssyscall.%s\n", indent, o.Target)
		return err
	case MemLoad:
		_, err := fmt.Fprintf(w, "%smem_load.%d\n", indent, o.Addr)
		return err
	case MemStore:
		_, err := fmt.Fprintf(w, "%smem_store.%d\n", indent, o.Addr)
		return err
	case MemLoadw:
		_, err := fmt.Fprintf(w, "%smem_loadw.%d\n", indent, o.Addr)
		return err
	case MemStorew:
		_, err := fmt.Fprintf(w, "%smem_storew.%d\n", indent, o.Addr)
		return err
	case LocLoad:
		_, err := fmt.Fprintf(w, "%sloc_load.%d\n", indent, o.Index)
		return err
	case LocStore:
		_, err := fmt.Fprintf(w, "%sloc_store.%d\n", indent, o.Index)
		return err
	default:
		_, err := fmt.Fprintf(w, "%s%s\n", indent, Mnemonic(op))
		return err
	}
}

func printIndexed(w io.Writer, indent, mnemonic string, index uint8) error {
	if index == 0 {
		_, err := fmt.Fprintf(w, "%s%s\n", indent, mnemonic)
		return err
	}
	_, err := fmt.Fprintf(w, "%s%s.%d\n", indent, mnemonic, index)
	return err
}
