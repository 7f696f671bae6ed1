package operators

import (
	"fmt"
	"strings"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

// AOPTypeTag is the serialization type tag of arithmetic operator
// mutations.
const AOPTypeTag = "AOP"

func init() {
	adapter.RegisterMutationType(AOPTypeTag, deserializeAOP)
}

// AOP is the arithmetic operator change operator: every arithmetic
// instruction can be replaced by another operation on the same value
// type.
type AOP struct{}

func (AOP) Name() string        { return AOPTypeTag }
func (AOP) Description() string { return "arithmetic operator change" }

// Replacement candidates, one family per JVM value type.
var (
	intArithmeticOps = []byte{bytecode.IADD, bytecode.ISUB, bytecode.IMUL,
		bytecode.IDIV, bytecode.IREM}
	longArithmeticOps = []byte{bytecode.LADD, bytecode.LSUB, bytecode.LMUL,
		bytecode.LDIV, bytecode.LREM}
	floatArithmeticOps = []byte{bytecode.FADD, bytecode.FSUB, bytecode.FMUL,
		bytecode.FDIV, bytecode.FREM}
	doubleArithmeticOps = []byte{bytecode.DADD, bytecode.DSUB, bytecode.DMUL,
		bytecode.DDIV, bytecode.DREM}
)

func isArithmeticOp(op byte) bool {
	return op >= bytecode.IADD && op <= bytecode.DREM
}

func arithmeticFamily(op byte) []byte {
	switch (op - bytecode.IADD) % 4 {
	case 0:
		return intArithmeticOps
	case 1:
		return longArithmeticOps
	case 2:
		return floatArithmeticOps
	default:
		return doubleArithmeticOps
	}
}

func arithmeticSymbol(op byte) string {
	switch (op - bytecode.IADD) / 4 {
	case 0:
		return "+"
	case 1:
		return "-"
	case 2:
		return "*"
	case 3:
		return "/"
	case 4:
		return "%"
	}
	return "?"
}

// GenerateMutants records one mutation per arithmetic instruction, with
// a random same-type replacement as the default variant. All candidates
// of one method form a group.
func (AOP) GenerateMutants(mt m.MutationTable, cf *bytecode.ClassFile) error {
	className, err := cf.ClassName()
	if err != nil {
		return err
	}
	for i := range cf.Methods {
		meth := &cf.Methods[i]
		name, sig, err := cf.MemberName(meth)
		if err != nil {
			return err
		}
		code, err := cf.DecodeCode(meth)
		if err != nil {
			return err
		}
		if code == nil {
			continue
		}
		group := m.NewMutationGroup(className, name, sig)
		relOffset := int32(0)
		for _, ins := range code.Instrs.Instructions() {
			if !isArithmeticOp(ins.Opcode) {
				continue
			}
			group.AddMutation(newAOPMutation(className, name, sig, ins.Pos,
				relOffset, ins.Opcode,
				randomChoice(arithmeticFamily(ins.Opcode), ins.Opcode)))
			relOffset++
		}
		if err := emitGroup(mt, group); err != nil {
			return err
		}
	}
	return nil
}

// AOPVariant selects the replacement arithmetic opcode.
type AOPVariant struct {
	opcode byte
}

// Opcode returns the replacement opcode the variant stands for.
func (v AOPVariant) Opcode() byte { return v.opcode }

func (v AOPVariant) String() string { return arithmeticSymbol(v.opcode) }

// AOPMutation replaces one arithmetic instruction with a different
// operation on the same value type. The instruction is addressed by its
// relative offset: the ordinal of the instruction among the method's
// arithmetic instructions, which stays stable across unrelated edits to
// the method body.
type AOPMutation struct {
	m.GroupableMethodMutation

	CodeOffset    int32
	RelOffset     int32
	OrigOpcode    byte
	MutatedOpcode byte

	applied  m.Variant
	snapshot *codeSnapshot
	undoIns  *bytecode.Instruction
}

func newAOPMutation(className, methodName, signature string, codeOffset int,
	relOffset int32, origOpcode, mutatedOpcode byte) *AOPMutation {
	mu := &AOPMutation{
		CodeOffset:    int32(codeOffset),
		RelOffset:     relOffset,
		OrigOpcode:    origOpcode,
		MutatedOpcode: mutatedOpcode,
	}
	mu.Class = className
	mu.Method = methodName
	mu.Sig = signature
	return mu
}

func (mu *AOPMutation) Type() string { return AOPTypeTag }

func (mu *AOPMutation) DefaultVariant() m.Variant {
	return AOPVariant{opcode: mu.MutatedOpcode}
}

// Variants returns the four same-type alternatives to the original
// operation, in family order.
func (mu *AOPMutation) Variants() []m.Variant {
	family := arithmeticFamily(mu.OrigOpcode)
	variants := make([]m.Variant, 0, len(family)-1)
	for _, op := range family {
		if op != mu.OrigOpcode {
			variants = append(variants, AOPVariant{opcode: op})
		}
	}
	return variants
}

func (mu *AOPMutation) variantOpcode(v m.Variant) (byte, error) {
	if v == nil {
		v = mu.DefaultVariant()
	}
	av, ok := v.(AOPVariant)
	if !ok {
		return 0, fmt.Errorf("variant %v does not select an arithmetic opcode", v)
	}
	return av.opcode, nil
}

// Apply mutates a standalone copy of the method body and commits it
// back to the class.
func (mu *AOPMutation) Apply(cf *bytecode.ClassFile, v m.Variant) error {
	opcode, err := mu.variantOpcode(v)
	if err != nil {
		return err
	}
	meth, err := resolveMethod(cf, mu.Class, mu.Method, mu.Sig)
	if err != nil {
		return err
	}
	code, err := cf.DecodeCode(meth)
	if err != nil {
		return err
	}
	if code == nil {
		return fmt.Errorf("method %s has no code", methodScope(mu.Class, mu.Method, mu.Sig))
	}
	snap, err := snapshotCode(cf, meth)
	if err != nil {
		return err
	}
	if _, err := replaceOpcodeAt(code, nil, AOPTypeTag, isArithmeticOp,
		mu.RelOffset, mu.OrigOpcode, opcode,
		methodScope(mu.Class, mu.Method, mu.Sig)); err != nil {
		return err
	}
	if err := cf.CommitCode(meth, code); err != nil {
		return err
	}
	mu.snapshot = snap
	mu.applied = AOPVariant{opcode: opcode}
	return nil
}

// Undo restores the method body captured by Apply.
func (mu *AOPMutation) Undo(cf *bytecode.ClassFile) error {
	if mu.snapshot == nil {
		return fmt.Errorf("mutation %s has not been applied", mu.ID())
	}
	mu.snapshot.restore()
	mu.snapshot = nil
	mu.applied = nil
	return nil
}

// ApplyInGroup mutates the shared decoded body, resuming the arithmetic
// instruction scan where the previous group member stopped.
func (mu *AOPMutation) ApplyInGroup(cf *bytecode.ClassFile, code *bytecode.Code, link m.LinkData, v m.Variant) error {
	opcode, err := mu.variantOpcode(v)
	if err != nil {
		return err
	}
	ins, err := replaceOpcodeAt(code, link, AOPTypeTag, isArithmeticOp,
		mu.RelOffset, mu.OrigOpcode, opcode,
		methodScope(mu.Class, mu.Method, mu.Sig))
	if err != nil {
		return err
	}
	mu.undoIns = ins
	mu.applied = AOPVariant{opcode: opcode}
	return nil
}

// UndoInGroup restores the original opcode on the shared body.
func (mu *AOPMutation) UndoInGroup(code *bytecode.Code, link m.LinkData) error {
	if mu.undoIns == nil {
		return fmt.Errorf("mutation %s has not been applied in a group", mu.ID())
	}
	mu.undoIns.Opcode = mu.OrigOpcode
	mu.undoIns = nil
	mu.applied = nil
	return nil
}

func (mu *AOPMutation) Accept(v m.MutationVisitor) error {
	if mu.Group() != nil {
		return v.VisitGroupable(mu)
	}
	return v.Visit(mu)
}

func (mu *AOPMutation) Serialize(w m.MutationWriter) error {
	if err := w.WriteUTF(mu.Class); err != nil {
		return err
	}
	if err := w.WriteUTF(mu.Method); err != nil {
		return err
	}
	if err := w.WriteUTF(mu.Sig); err != nil {
		return err
	}
	if err := w.WriteInt(mu.CodeOffset); err != nil {
		return err
	}
	if err := w.WriteInt(mu.RelOffset); err != nil {
		return err
	}
	if err := w.WriteShort(int16(mu.OrigOpcode)); err != nil {
		return err
	}
	out := mu.MutatedOpcode
	if av, ok := mu.applied.(AOPVariant); ok {
		out = av.opcode
	}
	return w.WriteShort(int16(out))
}

func deserializeAOP(r m.MutationReader) (m.Mutation, error) {
	mu := &AOPMutation{}
	var err error
	if mu.Class, err = r.ReadUTF(); err != nil {
		return nil, err
	}
	if mu.Method, err = r.ReadUTF(); err != nil {
		return nil, err
	}
	if mu.Sig, err = r.ReadUTF(); err != nil {
		return nil, err
	}
	if mu.CodeOffset, err = r.ReadInt(); err != nil {
		return nil, err
	}
	if mu.RelOffset, err = r.ReadInt(); err != nil {
		return nil, err
	}
	orig, err := r.ReadShort()
	if err != nil {
		return nil, err
	}
	mutated, err := r.ReadShort()
	if err != nil {
		return nil, err
	}
	mu.OrigOpcode = byte(orig)
	mu.MutatedOpcode = byte(mutated)
	return mu, nil
}

func (mu *AOPMutation) String() string {
	var sb strings.Builder
	sb.WriteString(AOPTypeTag + " {\n")
	if mu.ID().Assigned() {
		fmt.Fprintf(&sb, "\tid: %d\n", mu.ID().Int())
	} else {
		sb.WriteString("\tid not assigned\n")
	}
	fmt.Fprintf(&sb, "\tclass: %s\n\tmethod: %s\n\tsignature: %s\n",
		mu.Class, mu.Method, mu.Sig)
	fmt.Fprintf(&sb, "\toriginal code offset: %d\n\trelative position offset: %d\n",
		mu.CodeOffset, mu.RelOffset)
	fmt.Fprintf(&sb, "\toriginal opcode: %s [%s]\n\tmutated opcode: %s [%s]\n}",
		bytecode.Mnemonic(mu.OrigOpcode), arithmeticSymbol(mu.OrigOpcode),
		bytecode.Mnemonic(mu.MutatedOpcode), arithmeticSymbol(mu.MutatedOpcode))
	return sb.String()
}
