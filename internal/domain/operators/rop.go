package operators

import (
	"fmt"
	"strings"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

// ROPTypeTag is the serialization type tag of relational operator
// mutations.
const ROPTypeTag = "ROP"

func init() {
	adapter.RegisterMutationType(ROPTypeTag, deserializeROP)
}

// ROP is the relational operator change operator: every conditional
// branch can be replaced by a branch testing a different relation on
// the same operands.
type ROP struct{}

func (ROP) Name() string        { return ROPTypeTag }
func (ROP) Description() string { return "relational operator change" }

// Replacement candidates for the two six-way comparison families. The
// reference and null tests only have their negations.
var (
	ifIntOps = []byte{bytecode.IFEQ, bytecode.IFNE, bytecode.IFLT,
		bytecode.IFGE, bytecode.IFGT, bytecode.IFLE}
	icmpOps = []byte{bytecode.IF_ICMPEQ, bytecode.IF_ICMPNE, bytecode.IF_ICMPLT,
		bytecode.IF_ICMPGE, bytecode.IF_ICMPGT, bytecode.IF_ICMPLE}
)

func isRelationalOp(op byte) bool {
	return (op >= bytecode.IFEQ && op <= bytecode.IF_ACMPNE) ||
		op == bytecode.IFNULL || op == bytecode.IFNONNULL
}

func relationalSymbol(op byte) string {
	switch op {
	case bytecode.IFEQ, bytecode.IF_ICMPEQ, bytecode.IF_ACMPEQ, bytecode.IFNULL:
		return "=="
	case bytecode.IFNE, bytecode.IF_ICMPNE, bytecode.IF_ACMPNE, bytecode.IFNONNULL:
		return "!="
	case bytecode.IFLT, bytecode.IF_ICMPLT:
		return "<"
	case bytecode.IFGE, bytecode.IF_ICMPGE:
		return ">="
	case bytecode.IFGT, bytecode.IF_ICMPGT:
		return ">"
	case bytecode.IFLE, bytecode.IF_ICMPLE:
		return "<="
	}
	return "?"
}

func mutatedRelationalOp(op byte) byte {
	switch {
	case op >= bytecode.IFEQ && op <= bytecode.IFLE:
		return randomChoice(ifIntOps, op)
	case op >= bytecode.IF_ICMPEQ && op <= bytecode.IF_ICMPLE:
		return randomChoice(icmpOps, op)
	case op == bytecode.IF_ACMPEQ:
		return bytecode.IF_ACMPNE
	case op == bytecode.IF_ACMPNE:
		return bytecode.IF_ACMPEQ
	case op == bytecode.IFNULL:
		return bytecode.IFNONNULL
	default:
		return bytecode.IFNULL
	}
}

// GenerateMutants records one mutation per conditional branch, with a
// random same-family replacement as the default variant. All candidates
// of one method form a group.
func (ROP) GenerateMutants(mt m.MutationTable, cf *bytecode.ClassFile) error {
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
			if !isRelationalOp(ins.Opcode) {
				continue
			}
			group.AddMutation(newROPMutation(className, name, sig, ins.Pos,
				relOffset, ins.Opcode, mutatedRelationalOp(ins.Opcode)))
			relOffset++
		}
		if err := emitGroup(mt, group); err != nil {
			return err
		}
	}
	return nil
}

// ROPVariant selects the replacement branch opcode.
type ROPVariant struct {
	opcode byte
}

// Opcode returns the replacement opcode the variant stands for.
func (v ROPVariant) Opcode() byte { return v.opcode }

func (v ROPVariant) String() string { return relationalSymbol(v.opcode) }

// ROPMutation replaces one conditional branch with a branch testing a
// different relation, keeping the branch target. The instruction is
// addressed by its ordinal among the method's conditional branches.
type ROPMutation struct {
	m.GroupableMethodMutation

	CodeOffset    int32
	RelOffset     int32
	OrigOpcode    byte
	MutatedOpcode byte

	applied  m.Variant
	snapshot *codeSnapshot
	undoIns  *bytecode.Instruction
}

func newROPMutation(className, methodName, signature string, codeOffset int,
	relOffset int32, origOpcode, mutatedOpcode byte) *ROPMutation {
	mu := &ROPMutation{
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

func (mu *ROPMutation) Type() string { return ROPTypeTag }

func (mu *ROPMutation) DefaultVariant() m.Variant {
	return ROPVariant{opcode: mu.MutatedOpcode}
}

// Variants returns the same-family alternatives to the original test.
// The six-way comparison families have five; the null tests have only
// their negation; the reference comparisons have no selectable variant
// beyond the default.
func (mu *ROPMutation) Variants() []m.Variant {
	var family []byte
	switch {
	case mu.OrigOpcode == bytecode.IFNULL || mu.OrigOpcode == bytecode.IFNONNULL:
		return []m.Variant{ROPVariant{opcode: mu.MutatedOpcode}}
	case mu.OrigOpcode == bytecode.IF_ACMPEQ || mu.OrigOpcode == bytecode.IF_ACMPNE:
		return nil
	case mu.OrigOpcode >= bytecode.IFEQ && mu.OrigOpcode <= bytecode.IFLE:
		family = ifIntOps
	default:
		family = icmpOps
	}
	variants := make([]m.Variant, 0, len(family)-1)
	for _, op := range family {
		if op != mu.OrigOpcode {
			variants = append(variants, ROPVariant{opcode: op})
		}
	}
	return variants
}

func (mu *ROPMutation) variantOpcode(v m.Variant) (byte, error) {
	if v == nil {
		v = mu.DefaultVariant()
	}
	rv, ok := v.(ROPVariant)
	if !ok {
		return 0, fmt.Errorf("variant %v does not select a branch opcode", v)
	}
	if !isRelationalOp(rv.opcode) {
		return 0, fmt.Errorf("opcode %s is not a conditional branch", bytecode.Mnemonic(rv.opcode))
	}
	return rv.opcode, nil
}

// Apply mutates a standalone copy of the method body and commits it
// back to the class.
func (mu *ROPMutation) Apply(cf *bytecode.ClassFile, v m.Variant) error {
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
	if _, err := replaceOpcodeAt(code, nil, ROPTypeTag, isRelationalOp,
		mu.RelOffset, mu.OrigOpcode, opcode,
		methodScope(mu.Class, mu.Method, mu.Sig)); err != nil {
		return err
	}
	if err := cf.CommitCode(meth, code); err != nil {
		return err
	}
	mu.snapshot = snap
	mu.applied = ROPVariant{opcode: opcode}
	return nil
}

// Undo restores the method body captured by Apply.
func (mu *ROPMutation) Undo(cf *bytecode.ClassFile) error {
	if mu.snapshot == nil {
		return fmt.Errorf("mutation %s has not been applied", mu.ID())
	}
	mu.snapshot.restore()
	mu.snapshot = nil
	mu.applied = nil
	return nil
}

// ApplyInGroup mutates the shared decoded body, resuming the branch
// scan where the previous group member stopped.
func (mu *ROPMutation) ApplyInGroup(cf *bytecode.ClassFile, code *bytecode.Code, link m.LinkData, v m.Variant) error {
	opcode, err := mu.variantOpcode(v)
	if err != nil {
		return err
	}
	ins, err := replaceOpcodeAt(code, link, ROPTypeTag, isRelationalOp,
		mu.RelOffset, mu.OrigOpcode, opcode,
		methodScope(mu.Class, mu.Method, mu.Sig))
	if err != nil {
		return err
	}
	mu.undoIns = ins
	mu.applied = ROPVariant{opcode: opcode}
	return nil
}

// UndoInGroup restores the original opcode on the shared body.
func (mu *ROPMutation) UndoInGroup(code *bytecode.Code, link m.LinkData) error {
	if mu.undoIns == nil {
		return fmt.Errorf("mutation %s has not been applied in a group", mu.ID())
	}
	mu.undoIns.Opcode = mu.OrigOpcode
	mu.undoIns = nil
	mu.applied = nil
	return nil
}

func (mu *ROPMutation) Accept(v m.MutationVisitor) error {
	if mu.Group() != nil {
		return v.VisitGroupable(mu)
	}
	return v.Visit(mu)
}

func (mu *ROPMutation) Serialize(w m.MutationWriter) error {
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
	if rv, ok := mu.applied.(ROPVariant); ok {
		out = rv.opcode
	}
	return w.WriteShort(int16(out))
}

func deserializeROP(r m.MutationReader) (m.Mutation, error) {
	mu := &ROPMutation{}
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

func (mu *ROPMutation) String() string {
	var sb strings.Builder
	sb.WriteString(ROPTypeTag + " {\n")
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
		bytecode.Mnemonic(mu.OrigOpcode), relationalSymbol(mu.OrigOpcode),
		bytecode.Mnemonic(mu.MutatedOpcode), relationalSymbol(mu.MutatedOpcode))
	return sb.String()
}
