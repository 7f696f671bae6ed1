package operators

import (
	"fmt"
	"strings"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

// AFCTypeTag is the serialization type tag of field access flag
// mutations.
const AFCTypeTag = "AFC"

func init() {
	adapter.RegisterMutationType(AFCTypeTag, deserializeAFC)
}

// AFC is the access flag change operator: the visibility of every field
// can be replaced by one of the three other visibilities.
type AFC struct{}

func (AFC) Name() string        { return AFCTypeTag }
func (AFC) Description() string { return "access flag change" }

// Field visibilities, as access flag values: package public, public,
// private, protected.
var visibilityFlags = []byte{0, 1, 2, 4}

const visibilityMask = 0x0007

// GenerateMutants records one mutation per field, with a random
// different visibility as the default variant.
func (AFC) GenerateMutants(mt m.MutationTable, cf *bytecode.ClassFile) error {
	className, err := cf.ClassName()
	if err != nil {
		return err
	}
	for i := range cf.Fields {
		field := &cf.Fields[i]
		name, err := cf.Pool.Utf8(field.NameIndex)
		if err != nil {
			return err
		}
		orig := field.AccessFlags
		mu := &AFCMutation{
			FieldName:       name,
			OrigAccessFlags: int32(orig),
			DefaultFlag:     randomChoice(visibilityFlags, byte(orig&visibilityMask)),
		}
		mu.Class = className
		if err := mt.AddMutation(mu); err != nil {
			return err
		}
	}
	return nil
}

// AFCVariant selects the replacement field visibility.
type AFCVariant struct {
	flag byte
}

// AccessFlag returns the visibility bits the variant stands for.
func (v AFCVariant) AccessFlag() byte { return v.flag }

func (v AFCVariant) String() string {
	switch v.flag {
	case 0:
		return "(package public)"
	case 1:
		return "public"
	case 2:
		return "private"
	case 4:
		return "protected"
	}
	return "?"
}

// AFCMutation changes the declared visibility of one field, leaving the
// other access flags untouched.
type AFCMutation struct {
	m.ClassMutation

	FieldName       string
	OrigAccessFlags int32
	DefaultFlag     byte

	applied   m.Variant
	undoField *bytecode.Member
}

func (mu *AFCMutation) Type() string { return AFCTypeTag }

func (mu *AFCMutation) DefaultVariant() m.Variant {
	return AFCVariant{flag: mu.DefaultFlag}
}

// Variants returns the three visibilities other than the original one.
func (mu *AFCMutation) Variants() []m.Variant {
	skip := byte(mu.OrigAccessFlags & visibilityMask)
	variants := make([]m.Variant, 0, len(visibilityFlags)-1)
	for _, flag := range visibilityFlags {
		if flag != skip {
			variants = append(variants, AFCVariant{flag: flag})
		}
	}
	return variants
}

func (mu *AFCMutation) variantFlag(v m.Variant) (byte, error) {
	if v == nil {
		v = mu.DefaultVariant()
	}
	av, ok := v.(AFCVariant)
	if !ok {
		return 0, fmt.Errorf("variant %v does not select an access flag", v)
	}
	return av.flag, nil
}

// Apply rewrites the field's visibility bits in place.
func (mu *AFCMutation) Apply(cf *bytecode.ClassFile, v m.Variant) error {
	flag, err := mu.variantFlag(v)
	if err != nil {
		return err
	}
	loaded, err := cf.ClassName()
	if err != nil {
		return err
	}
	if loaded != mu.Class {
		return fmt.Errorf("mutation targets class %s, loaded class is %s", mu.Class, loaded)
	}
	field, _ := cf.Field(mu.FieldName)
	if field == nil {
		return fmt.Errorf("field %s not found in %s", mu.FieldName, mu.Class)
	}
	field.AccessFlags = uint16(mu.OrigAccessFlags)&^visibilityMask | uint16(flag)
	mu.undoField = field
	mu.applied = AFCVariant{flag: flag}
	return nil
}

// Undo restores the field's original access flags.
func (mu *AFCMutation) Undo(cf *bytecode.ClassFile) error {
	if mu.undoField == nil {
		return fmt.Errorf("mutation %s has not been applied", mu.ID())
	}
	mu.undoField.AccessFlags = uint16(mu.OrigAccessFlags)
	mu.undoField = nil
	mu.applied = nil
	return nil
}

func (mu *AFCMutation) Accept(v m.MutationVisitor) error {
	return v.Visit(mu)
}

func (mu *AFCMutation) Serialize(w m.MutationWriter) error {
	if err := w.WriteUTF(mu.Class); err != nil {
		return err
	}
	if err := w.WriteUTF(mu.FieldName); err != nil {
		return err
	}
	if err := w.WriteInt(mu.OrigAccessFlags); err != nil {
		return err
	}
	out := mu.DefaultFlag
	if av, ok := mu.applied.(AFCVariant); ok {
		out = av.flag
	}
	return w.WriteByte(out)
}

func deserializeAFC(r m.MutationReader) (m.Mutation, error) {
	mu := &AFCMutation{}
	var err error
	if mu.Class, err = r.ReadUTF(); err != nil {
		return nil, err
	}
	if mu.FieldName, err = r.ReadUTF(); err != nil {
		return nil, err
	}
	if mu.OrigAccessFlags, err = r.ReadInt(); err != nil {
		return nil, err
	}
	if mu.DefaultFlag, err = r.ReadByte(); err != nil {
		return nil, err
	}
	return mu, nil
}

func (mu *AFCMutation) String() string {
	var sb strings.Builder
	sb.WriteString(AFCTypeTag + " {\n")
	if mu.ID().Assigned() {
		fmt.Fprintf(&sb, "\tid: %d\n", mu.ID().Int())
	} else {
		sb.WriteString("\tid not assigned\n")
	}
	fmt.Fprintf(&sb, "\tclass: %s\n\tfield: %s\n", mu.Class, mu.FieldName)
	fmt.Fprintf(&sb, "\toriginal visibility: %s\n\tmutated visibility: %s\n}",
		AFCVariant{flag: byte(mu.OrigAccessFlags & visibilityMask)},
		AFCVariant{flag: mu.DefaultFlag})
	return sb.String()
}
