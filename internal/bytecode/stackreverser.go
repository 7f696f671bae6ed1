package bytecode

import "fmt"

// StackReverser simulates the operand stack for a sequence of
// instructions executed in reverse order. Starting from an instruction
// whose stack holds an operand of interest, feeding it the preceding
// instructions one at a time will eventually identify the instruction
// that produced that operand.
//
// The simulator tracks only operand counts, not values. It also does not
// keep a true count of stack depth: dup-family instructions that cannot
// influence the search are folded away instead of being modeled exactly.
type StackReverser struct {
	pool *ConstantPool

	// matchPointer marks how many producers are still required to
	// generate the operand of interest, relative to its distance from
	// the stack top.
	matchPointer int
	// stackTopDist is how far the operand of interest sits from the
	// top of the stack. The producer is found when it equals
	// matchPointer.
	stackTopDist int
}

// NewStackReverser returns a simulator whose operand of interest is on
// top of the stack.
func NewStackReverser(pool *ConstantPool) *StackReverser {
	return &StackReverser{pool: pool}
}

// NewStackReverserAt returns a simulator whose operand of interest is
// offset operandDepth slots from the top of the stack.
func NewStackReverserAt(pool *ConstantPool, operandDepth int) *StackReverser {
	return &StackReverser{pool: pool, stackTopDist: operandDepth}
}

// RunInstruction simulates one instruction in reverse and reports
// whether it produced the operand of interest. Instructions that control
// flow could not legally have passed through, such as returns and
// athrow, yield an error, as do operands that would be uninitialized
// objects or return addresses.
func (sr *StackReverser) RunInstruction(ins *Instruction) (bool, error) {
	push, pop, err := StackEffect(ins, sr.pool)
	if err != nil {
		return false, err
	}
	op := ins.Opcode
	if op == WIDE {
		op = ins.Operands[0]
	}
	atMatch := sr.stackTopDist == sr.matchPointer

	switch {
	case op == ATHROW || (op >= IRETURN && op <= RETURN):
		return false, fmt.Errorf("control flow from producer cannot pass through %s",
			Mnemonic(op))

	case op == NEW:
		if atMatch {
			return false, fmt.Errorf("%w: stack operand is an uninitialized object",
				ErrBadFormat)
		}

	case op == JSR || op == JSR_W:
		if atMatch {
			return false, fmt.Errorf("%w: stack operand is a return address",
				ErrBadFormat)
		}

	// The dup family duplicates operands already on the stack, so it is
	// never itself the producer. Each variant shifts the match window
	// when the duplicated slots sit between the stack top and the
	// operand of interest, then discards one (or both) of the copies
	// from the simulated depth.
	case op == DUP:
		if sr.stackTopDist > 1 {
			if sr.matchPointer == sr.stackTopDist-2 {
				sr.matchPointer = sr.stackTopDist - 1
			}
			sr.stackTopDist--
		}
		return false, nil

	case op == DUP_X1:
		if sr.stackTopDist > 2 {
			if sr.matchPointer == sr.stackTopDist-3 {
				sr.matchPointer = sr.stackTopDist - 1
			}
			sr.stackTopDist--
		}
		return false, nil

	case op == DUP_X2:
		if sr.stackTopDist > 3 {
			if sr.matchPointer == sr.stackTopDist-4 {
				sr.matchPointer = sr.stackTopDist - 1
			}
			sr.stackTopDist--
		}
		return false, nil

	case op == DUP2:
		if sr.stackTopDist > 2 {
			switch sr.matchPointer {
			case sr.stackTopDist - 3:
				sr.matchPointer = sr.stackTopDist - 1
			case sr.stackTopDist - 4:
				sr.matchPointer = sr.stackTopDist - 2
			}
			if sr.stackTopDist > 3 {
				sr.stackTopDist -= 2
			} else {
				sr.stackTopDist--
			}
		}
		return false, nil

	case op == DUP2_X1:
		if sr.stackTopDist > 3 {
			switch sr.matchPointer {
			case sr.stackTopDist - 4:
				sr.matchPointer = sr.stackTopDist - 1
			case sr.stackTopDist - 5:
				sr.matchPointer = sr.stackTopDist - 2
			}
			if sr.stackTopDist > 4 {
				sr.stackTopDist -= 2
			} else {
				sr.stackTopDist--
			}
		}
		return false, nil

	case op == DUP2_X2:
		if sr.stackTopDist > 4 {
			switch sr.matchPointer {
			case sr.stackTopDist - 5:
				sr.matchPointer = sr.stackTopDist - 1
			case sr.stackTopDist - 6:
				sr.matchPointer = sr.stackTopDist - 2
			}
			if sr.stackTopDist > 5 {
				sr.stackTopDist -= 2
			} else {
				sr.stackTopDist--
			}
		}
		return false, nil

	case op == SWAP:
		if sr.stackTopDist < 2 {
			sr.stackTopDist = 2
		} else if sr.matchPointer == sr.stackTopDist-1 {
			sr.matchPointer--
		} else if sr.matchPointer == sr.stackTopDist-2 {
			sr.matchPointer++
		}
		return false, nil

	case isValueProducer(op):
		if atMatch {
			return true, nil
		}

	case isStackTransparent(op):
		// falls through to the depth adjustment

	default:
		return false, fmt.Errorf("%w: illegal opcode %s in reverse simulation",
			ErrBadFormat, Mnemonic(op))
	}

	sr.stackTopDist += pop - push
	return false, nil
}

// AtPossibleProducer reports whether the next producing instruction fed
// to the simulator would be identified as the producer of the operand of
// interest.
func (sr *StackReverser) AtPossibleProducer() bool {
	return sr.stackTopDist == sr.matchPointer
}

// Copy returns an independent simulator in the same state. Callers
// walking code with joins should copy the simulator per predecessor path
// and combine the results.
func (sr *StackReverser) Copy() *StackReverser {
	clone := *sr
	return &clone
}

// isValueProducer reports whether the instruction leaves a newly created
// value on top of the stack.
func isValueProducer(op byte) bool {
	switch {
	case op >= ACONST_NULL && op <= LDC2_W: // constants and ldc
		return true
	case op >= ILOAD && op <= SALOAD: // local and array loads
		return true
	case op >= IADD && op <= LXOR: // arithmetic and logic
		return true
	case op >= I2L && op <= DCMPG: // conversions and comparisons
		return true
	}
	switch op {
	case GETSTATIC, GETFIELD,
		INVOKEVIRTUAL, INVOKESPECIAL, INVOKESTATIC, INVOKEINTERFACE,
		INVOKEDYNAMIC,
		NEWARRAY, ANEWARRAY, MULTIANEWARRAY,
		ARRAYLENGTH, CHECKCAST, INSTANCEOF:
		return true
	}
	return false
}

// isStackTransparent reports whether the instruction only consumes
// operands or leaves the stack alone, so reverse simulation reduces to
// adjusting the tracked depth.
func isStackTransparent(op byte) bool {
	switch {
	case op >= ISTORE && op <= SASTORE: // local and array stores
		return true
	case op >= IFEQ && op <= GOTO: // conditional branches and goto
		return true
	}
	switch op {
	case NOP, POP, POP2, IINC, RET,
		TABLESWITCH, LOOKUPSWITCH,
		PUTSTATIC, PUTFIELD,
		MONITORENTER, MONITOREXIT,
		IFNULL, IFNONNULL, GOTO_W:
		return true
	}
	return false
}
