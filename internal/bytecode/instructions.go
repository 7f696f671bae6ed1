package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Instruction is one decoded bytecode instruction. Branch and switch
// targets are held as absolute code offsets and re-encoded as relative
// offsets against recomputed positions.
type Instruction struct {
	Opcode   byte
	Operands []byte // raw operand bytes for non-branch instructions

	Target int // absolute target for branch instructions

	SwitchDefault int
	SwitchLow     int32
	SwitchHigh    int32
	SwitchKeys    []int32 // lookupswitch match keys
	SwitchTargets []int

	Pos int // byte offset within the current code layout
}

// Simple builds an instruction with no operands.
func Simple(op byte) *Instruction {
	return &Instruction{Opcode: op, Pos: -1}
}

// Mnemonic returns the instruction's JVMS mnemonic.
func (ins *Instruction) Mnemonic() string {
	return Mnemonic(ins.Opcode)
}

// RefIndex returns the 2-byte constant-pool operand of field access,
// method invocation, new, checkcast and similar instructions.
func (ins *Instruction) RefIndex() uint16 {
	return binary.BigEndian.Uint16(ins.Operands)
}

func (ins *Instruction) length(pos int) int {
	switch {
	case IsBranch(ins.Opcode):
		return 3
	case IsWideBranch(ins.Opcode):
		return 5
	case ins.Opcode == TABLESWITCH:
		pad := (4 - (pos+1)%4) % 4
		return 1 + pad + 12 + 4*int(ins.SwitchHigh-ins.SwitchLow+1)
	case ins.Opcode == LOOKUPSWITCH:
		pad := (4 - (pos+1)%4) % 4
		return 1 + pad + 8 + 8*len(ins.SwitchKeys)
	default:
		return 1 + len(ins.Operands)
	}
}

// InstructionList is an editable sequence of instructions decoded from
// one method body.
type InstructionList struct {
	ins []*Instruction
}

// DecodeInstructions parses a Code attribute's code array.
func DecodeInstructions(code []byte) (*InstructionList, error) {
	il := &InstructionList{}
	for pos := 0; pos < len(code); {
		op := code[pos]
		if op > lastOpcode || mnemonics[op] == "" {
			return nil, fmt.Errorf("%w: illegal opcode 0x%02x at %d", ErrBadFormat, op, pos)
		}
		ins := &Instruction{Opcode: op, Pos: pos}
		var size int
		switch {
		case IsBranch(op):
			if pos+3 > len(code) {
				return nil, truncatedCode(pos)
			}
			ins.Target = pos + int(int16(binary.BigEndian.Uint16(code[pos+1:])))
			size = 3
		case IsWideBranch(op):
			if pos+5 > len(code) {
				return nil, truncatedCode(pos)
			}
			ins.Target = pos + int(int32(binary.BigEndian.Uint32(code[pos+1:])))
			size = 5
		case op == TABLESWITCH:
			n, err := decodeTableSwitch(code, pos, ins)
			if err != nil {
				return nil, err
			}
			size = n
		case op == LOOKUPSWITCH:
			n, err := decodeLookupSwitch(code, pos, ins)
			if err != nil {
				return nil, err
			}
			size = n
		case op == WIDE:
			n := 3
			if pos+1 < len(code) && code[pos+1] == IINC {
				n = 5
			}
			if pos+1+n > len(code) {
				return nil, truncatedCode(pos)
			}
			ins.Operands = append([]byte(nil), code[pos+1:pos+1+n]...)
			size = 1 + n
		default:
			n := int(operandLens[op])
			if pos+1+n > len(code) {
				return nil, truncatedCode(pos)
			}
			ins.Operands = append([]byte(nil), code[pos+1:pos+1+n]...)
			size = 1 + n
		}
		il.ins = append(il.ins, ins)
		pos += size
	}
	return il, nil
}

func truncatedCode(pos int) error {
	return fmt.Errorf("%w: truncated instruction at %d", ErrBadFormat, pos)
}

func decodeTableSwitch(code []byte, pos int, ins *Instruction) (int, error) {
	p := pos + 1 + (4-(pos+1)%4)%4
	if p+12 > len(code) {
		return 0, truncatedCode(pos)
	}
	ins.SwitchDefault = pos + int(int32(binary.BigEndian.Uint32(code[p:])))
	ins.SwitchLow = int32(binary.BigEndian.Uint32(code[p+4:]))
	ins.SwitchHigh = int32(binary.BigEndian.Uint32(code[p+8:]))
	n := int(ins.SwitchHigh - ins.SwitchLow + 1)
	if n < 0 || p+12+4*n > len(code) {
		return 0, truncatedCode(pos)
	}
	ins.SwitchTargets = make([]int, n)
	for i := 0; i < n; i++ {
		ins.SwitchTargets[i] = pos + int(int32(binary.BigEndian.Uint32(code[p+12+4*i:])))
	}
	return p + 12 + 4*n - pos, nil
}

func decodeLookupSwitch(code []byte, pos int, ins *Instruction) (int, error) {
	p := pos + 1 + (4-(pos+1)%4)%4
	if p+8 > len(code) {
		return 0, truncatedCode(pos)
	}
	ins.SwitchDefault = pos + int(int32(binary.BigEndian.Uint32(code[p:])))
	n := int(int32(binary.BigEndian.Uint32(code[p+4:])))
	if n < 0 || p+8+8*n > len(code) {
		return 0, truncatedCode(pos)
	}
	ins.SwitchKeys = make([]int32, n)
	ins.SwitchTargets = make([]int, n)
	for i := 0; i < n; i++ {
		ins.SwitchKeys[i] = int32(binary.BigEndian.Uint32(code[p+8+8*i:]))
		ins.SwitchTargets[i] = pos + int(int32(binary.BigEndian.Uint32(code[p+8+8*i+4:])))
	}
	return p + 8 + 8*n - pos, nil
}

// Instructions exposes the backing slice; callers must not reorder it
// directly.
func (il *InstructionList) Instructions() []*Instruction {
	return il.ins
}

// Len returns the number of instructions.
func (il *InstructionList) Len() int {
	return len(il.ins)
}

// At returns the instruction at an absolute code offset, or nil.
func (il *InstructionList) At(pos int) *Instruction {
	for _, ins := range il.ins {
		if ins.Pos == pos {
			return ins
		}
	}
	return nil
}

// IndexOf returns the index of target in the list, compared by identity,
// or -1.
func (il *InstructionList) IndexOf(target *Instruction) int {
	for i, ins := range il.ins {
		if ins == target {
			return i
		}
	}
	return -1
}

// Remove deletes target from the list, compared by identity.
func (il *InstructionList) Remove(target *Instruction) bool {
	i := il.IndexOf(target)
	if i < 0 {
		return false
	}
	il.ins = append(il.ins[:i], il.ins[i+1:]...)
	return true
}

// InsertAfter inserts newIns immediately after index i. The new
// instruction gets a position on the next SetPositions pass.
func (il *InstructionList) InsertAfter(i int, newIns *Instruction) {
	newIns.Pos = -1
	il.ins = append(il.ins, nil)
	copy(il.ins[i+2:], il.ins[i+1:])
	il.ins[i+1] = newIns
}

// SetPositions recomputes instruction offsets and remaps branch and
// switch targets. It returns the old-to-new offset mapping, including a
// mapping for the end-of-code offset (used to remap exclusive handler
// ranges). Instructions with no prior position contribute no mapping.
func (il *InstructionList) SetPositions() map[int]int {
	oldEnd := 0
	remap := make(map[int]int, len(il.ins)+1)
	pos := 0
	for _, ins := range il.ins {
		if ins.Pos >= 0 {
			remap[ins.Pos] = pos
			end := ins.Pos + ins.length(ins.Pos)
			if end > oldEnd {
				oldEnd = end
			}
		}
		ins.Pos = pos
		pos += ins.length(pos)
	}
	remap[oldEnd] = pos

	mapTarget := func(t int) int {
		if n, ok := remap[t]; ok {
			return n
		}
		return t
	}
	for _, ins := range il.ins {
		if IsBranch(ins.Opcode) || IsWideBranch(ins.Opcode) {
			ins.Target = mapTarget(ins.Target)
		}
		if ins.Opcode == TABLESWITCH || ins.Opcode == LOOKUPSWITCH {
			ins.SwitchDefault = mapTarget(ins.SwitchDefault)
			for i := range ins.SwitchTargets {
				ins.SwitchTargets[i] = mapTarget(ins.SwitchTargets[i])
			}
		}
	}
	return remap
}

// ByteLength returns the encoded size of the list under current
// positions.
func (il *InstructionList) ByteLength() int {
	if len(il.ins) == 0 {
		return 0
	}
	last := il.ins[len(il.ins)-1]
	return last.Pos + last.length(last.Pos)
}

// Encode serializes the list. Positions must be current (SetPositions).
func (il *InstructionList) Encode() ([]byte, error) {
	var w writer
	for _, ins := range il.ins {
		if len(w.buf) != ins.Pos {
			return nil, fmt.Errorf("%w: stale instruction positions", ErrBadFormat)
		}
		w.u8(ins.Opcode)
		switch {
		case IsBranch(ins.Opcode):
			rel := ins.Target - ins.Pos
			if rel < -0x8000 || rel > 0x7fff {
				return nil, fmt.Errorf("%w: branch offset %d exceeds 16 bits at %d",
					ErrBadFormat, rel, ins.Pos)
			}
			w.u16(uint16(int16(rel)))
		case IsWideBranch(ins.Opcode):
			w.u32(uint32(int32(ins.Target - ins.Pos)))
		case ins.Opcode == TABLESWITCH:
			for i := (4 - (ins.Pos+1)%4) % 4; i > 0; i-- {
				w.u8(0)
			}
			w.u32(uint32(int32(ins.SwitchDefault - ins.Pos)))
			w.u32(uint32(ins.SwitchLow))
			w.u32(uint32(ins.SwitchHigh))
			for _, t := range ins.SwitchTargets {
				w.u32(uint32(int32(t - ins.Pos)))
			}
		case ins.Opcode == LOOKUPSWITCH:
			for i := (4 - (ins.Pos+1)%4) % 4; i > 0; i-- {
				w.u8(0)
			}
			w.u32(uint32(int32(ins.SwitchDefault - ins.Pos)))
			w.u32(uint32(len(ins.SwitchKeys)))
			for i, k := range ins.SwitchKeys {
				w.u32(uint32(k))
				w.u32(uint32(int32(ins.SwitchTargets[i] - ins.Pos)))
			}
		default:
			w.raw(ins.Operands)
		}
	}
	return w.buf, nil
}

// StackEffect resolves the operand-stack effect of an instruction in
// slots, consulting the constant pool where the opcode alone is not
// enough. Instructions whose effect cannot be determined are reported
// as a format error.
func StackEffect(ins *Instruction, cp *ConstantPool) (push, pop int, err error) {
	op := ins.Opcode
	if op == WIDE {
		if len(ins.Operands) == 0 {
			return 0, 0, fmt.Errorf("%w: wide prefix with no opcode", ErrBadFormat)
		}
		mod := ins.Operands[0]
		return int(produceSlots[mod]), int(consumeSlots[mod]), nil
	}
	push = int(produceSlots[op])
	pop = int(consumeSlots[op])
	if push != poolDependent && pop != poolDependent {
		return push, pop, nil
	}

	switch op {
	case GETSTATIC, PUTSTATIC, GETFIELD, PUTFIELD:
		_, _, desc, err := cp.RefInfo(ins.RefIndex())
		if err != nil {
			return 0, 0, err
		}
		width, err := TypeSlots(desc)
		if err != nil {
			return 0, 0, err
		}
		switch op {
		case GETSTATIC:
			return width, 0, nil
		case PUTSTATIC:
			return 0, width, nil
		case GETFIELD:
			return width, 1, nil
		default:
			return 0, width + 1, nil
		}
	case INVOKEVIRTUAL, INVOKESPECIAL, INVOKESTATIC, INVOKEINTERFACE,
		INVOKEDYNAMIC:
		_, _, desc, err := cp.RefInfo(ins.RefIndex())
		if err != nil {
			return 0, 0, err
		}
		argSlots, retSlots, err := MethodDescriptorSlots(desc)
		if err != nil {
			return 0, 0, err
		}
		if op != INVOKESTATIC && op != INVOKEDYNAMIC {
			argSlots++ // receiver
		}
		return retSlots, argSlots, nil
	case MULTIANEWARRAY:
		return 1, int(ins.Operands[2]), nil
	}
	return 0, 0, fmt.Errorf("%w: cannot determine stack effect of %s",
		ErrBadFormat, Mnemonic(op))
}
