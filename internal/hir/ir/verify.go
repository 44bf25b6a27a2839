package ir

import "fmt"

// VerifyError reports a structural IR invariant violation.
type VerifyError struct {
	Op      OperationName
	Message string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Verify checks the generic, trait-independent invariants for a single
// operation: operand/result arity matches its OpDef, and, if the op
// declares the Terminator trait and is a multi-destination terminator,
// that its successors are distinct. It then runs the op-specific Verify
// hook, if one was registered on the OpDef.
//
// Verify is invoked automatically on builder commit; it does not walk
// nested regions or enclosing blocks, see VerifyBlock/VerifyFunc for those
// checks.
func Verify(op Handle[Operation]) error {
	rec, release := op.Borrow()
	def := rec.Def
	name := rec.Name
	numResults := len(rec.results)
	numSuccessors := len(rec.successors)
	release()

	if def.ResultArity >= 0 && numResults != def.ResultArity {
		return &VerifyError{Op: name, Message: fmt.Sprintf(
			"expected %d results, got %d", def.ResultArity, numResults)}
	}
	if def.OperandArity >= 0 {
		n := op.NumOperands()
		if n != def.OperandArity {
			return &VerifyError{Op: name, Message: fmt.Sprintf(
				"expected %d operands, got %d", def.OperandArity, n)}
		}
	}
	if numSuccessors > 1 {
		seen := make(map[EntityID]struct{}, numSuccessors)
		for i := 0; i < numSuccessors; i++ {
			s := op.Successor(i)
			blk := s.Dest.Block()
			if _, dup := seen[blk.ID()]; dup {
				return &VerifyError{Op: name, Message: "multi-destination terminator has duplicate successor block"}
			}
			seen[blk.ID()] = struct{}{}
		}
	}
	if def.Verify != nil {
		if err := def.Verify(op); err != nil {
			return err
		}
	}
	return nil
}

// VerifyBlock checks the per-block structural invariants: a detached block
// is permitted and not validated; otherwise it must end in exactly one
// terminator, and no non-terminator may appear before the last position.
func VerifyBlock(b Handle[Block]) error {
	if b.Detached() {
		return nil
	}
	n := b.NumOps()
	if n == 0 {
		return fmt.Errorf("block %d: empty block is not attached-valid, expected a terminator", b.ID())
	}
	i := 0
	var err error
	b.ForEachOp(func(op Handle[Operation]) {
		if err != nil {
			return
		}
		isLast := i == n-1
		if op.IsTerminator() && !isLast {
			err = fmt.Errorf("block %d: terminator %s appears before the last position", b.ID(), op.Value0Name())
			return
		}
		if !op.IsTerminator() && isLast {
			err = fmt.Errorf("block %d: last operation %s is not a terminator", b.ID(), op.Value0Name())
			return
		}
		i++
	})
	return err
}

// Value0Name is a small debug helper returning the operation's qualified
// name, used only for diagnostic messages.
func (op Handle[Operation]) Value0Name() string {
	rec, release := op.Borrow()
	defer release()
	return rec.Name.String()
}
