package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Constant pool tags.
const (
	TagUtf8               byte = 1
	TagInteger            byte = 3
	TagFloat              byte = 4
	TagLong               byte = 5
	TagDouble             byte = 6
	TagClass              byte = 7
	TagString             byte = 8
	TagFieldref           byte = 9
	TagMethodref          byte = 10
	TagInterfaceMethodref byte = 11
	TagNameAndType        byte = 12
	TagMethodHandle       byte = 15
	TagMethodType         byte = 16
	TagDynamic            byte = 17
	TagInvokeDynamic      byte = 18
	TagModule             byte = 19
	TagPackage            byte = 20
)

// Constant is one constant-pool entry. Utf8 entries are decoded; all
// other tags keep their raw payload so untouched entries round-trip
// byte-exact.
type Constant struct {
	Tag  byte
	Utf8 string
	Data []byte
}

// ConstantPool is the class constant pool. Index 0 is unused; long and
// double entries are followed by an unusable placeholder slot, as in the
// class-file format.
type ConstantPool struct {
	entries []Constant
}

func constantPayloadLen(tag byte) (int, error) {
	switch tag {
	case TagInteger, TagFloat:
		return 4, nil
	case TagLong, TagDouble:
		return 8, nil
	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		return 2, nil
	case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType,
		TagDynamic, TagInvokeDynamic:
		return 4, nil
	case TagMethodHandle:
		return 3, nil
	}
	return 0, fmt.Errorf("%w: unknown constant tag %d", ErrBadFormat, tag)
}

func parseConstantPool(r *reader) (*ConstantPool, error) {
	count := int(r.u16())
	if count == 0 {
		return nil, fmt.Errorf("%w: constant pool count is zero", ErrBadFormat)
	}
	cp := &ConstantPool{entries: make([]Constant, count)}
	for i := 1; i < count; i++ {
		tag := r.u8()
		if r.err != nil {
			return nil, r.err
		}
		if tag == TagUtf8 {
			n := int(r.u16())
			cp.entries[i] = Constant{Tag: tag, Utf8: string(r.bytes(n))}
		} else {
			n, err := constantPayloadLen(tag)
			if err != nil {
				return nil, err
			}
			cp.entries[i] = Constant{Tag: tag, Data: r.bytes(n)}
		}
		if tag == TagLong || tag == TagDouble {
			i++ // placeholder slot
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return cp, nil
}

func (cp *ConstantPool) write(w *writer) {
	w.u16(uint16(len(cp.entries)))
	for i := 1; i < len(cp.entries); i++ {
		c := cp.entries[i]
		w.u8(c.Tag)
		if c.Tag == TagUtf8 {
			w.u16(uint16(len(c.Utf8)))
			w.raw([]byte(c.Utf8))
		} else {
			w.raw(c.Data)
		}
		if c.Tag == TagLong || c.Tag == TagDouble {
			i++
		}
	}
}

// Count returns the constant_pool_count value (number of slots plus one
// is already included by the format).
func (cp *ConstantPool) Count() int {
	return len(cp.entries)
}

func (cp *ConstantPool) at(index uint16, tag byte) (Constant, error) {
	i := int(index)
	if i <= 0 || i >= len(cp.entries) {
		return Constant{}, fmt.Errorf("%w: constant index %d out of range", ErrBadFormat, index)
	}
	c := cp.entries[i]
	if c.Tag != tag {
		return Constant{}, fmt.Errorf("%w: constant %d has tag %d, want %d",
			ErrBadFormat, index, c.Tag, tag)
	}
	return c, nil
}

// Utf8 resolves a CONSTANT_Utf8 entry.
func (cp *ConstantPool) Utf8(index uint16) (string, error) {
	c, err := cp.at(index, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Utf8, nil
}

// ClassName resolves a CONSTANT_Class entry to its internal name with
// slashes replaced by dots.
func (cp *ConstantPool) ClassName(index uint16) (string, error) {
	c, err := cp.at(index, TagClass)
	if err != nil {
		return "", err
	}
	name, err := cp.Utf8(binary.BigEndian.Uint16(c.Data))
	if err != nil {
		return "", err
	}
	return dotted(name), nil
}

// NameAndType resolves a CONSTANT_NameAndType entry.
func (cp *ConstantPool) NameAndType(index uint16) (name, desc string, err error) {
	c, err := cp.at(index, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = cp.Utf8(binary.BigEndian.Uint16(c.Data[0:2])); err != nil {
		return "", "", err
	}
	if desc, err = cp.Utf8(binary.BigEndian.Uint16(c.Data[2:4])); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// RefInfo resolves a field/method/interface-method reference to its
// owning class, member name, and descriptor. For CONSTANT_InvokeDynamic
// the class is empty.
func (cp *ConstantPool) RefInfo(index uint16) (class, name, desc string, err error) {
	i := int(index)
	if i <= 0 || i >= len(cp.entries) {
		return "", "", "", fmt.Errorf("%w: constant index %d out of range", ErrBadFormat, index)
	}
	c := cp.entries[i]
	switch c.Tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		class, err = cp.ClassName(binary.BigEndian.Uint16(c.Data[0:2]))
		if err != nil {
			return "", "", "", err
		}
	case TagDynamic, TagInvokeDynamic:
		// first two bytes are the bootstrap method index
	default:
		return "", "", "", fmt.Errorf("%w: constant %d is not a member reference", ErrBadFormat, index)
	}
	name, desc, err = cp.NameAndType(binary.BigEndian.Uint16(c.Data[2:4]))
	if err != nil {
		return "", "", "", err
	}
	return class, name, desc, nil
}

// ReferencedClasses returns the dotted names of every CONSTANT_Class
// entry in the pool.
func (cp *ConstantPool) ReferencedClasses() []string {
	var names []string
	for i := 1; i < len(cp.entries); i++ {
		c := cp.entries[i]
		if c.Tag == TagClass {
			if name, err := cp.Utf8(binary.BigEndian.Uint16(c.Data)); err == nil {
				names = append(names, dotted(name))
			}
		}
		if c.Tag == TagLong || c.Tag == TagDouble {
			i++
		}
	}
	return names
}

// AddUtf8 interns a Utf8 constant, returning the index of an existing
// equal entry if present so that apply/undo cycles do not grow the pool.
func (cp *ConstantPool) AddUtf8(s string) uint16 {
	for i := 1; i < len(cp.entries); i++ {
		c := cp.entries[i]
		if c.Tag == TagUtf8 && c.Utf8 == s {
			return uint16(i)
		}
		if c.Tag == TagLong || c.Tag == TagDouble {
			i++
		}
	}
	cp.entries = append(cp.entries, Constant{Tag: TagUtf8, Utf8: s})
	return uint16(len(cp.entries) - 1)
}

// AddClass interns a CONSTANT_Class entry for a dotted class name.
func (cp *ConstantPool) AddClass(dottedName string) uint16 {
	nameIdx := cp.AddUtf8(slashed(dottedName))
	payload := []byte{byte(nameIdx >> 8), byte(nameIdx)}
	for i := 1; i < len(cp.entries); i++ {
		c := cp.entries[i]
		if c.Tag == TagClass && c.Data[0] == payload[0] && c.Data[1] == payload[1] {
			return uint16(i)
		}
		if c.Tag == TagLong || c.Tag == TagDouble {
			i++
		}
	}
	cp.entries = append(cp.entries, Constant{Tag: TagClass, Data: payload})
	return uint16(len(cp.entries) - 1)
}

func dotted(internal string) string {
	b := []byte(internal)
	for i := range b {
		if b[i] == '/' {
			b[i] = '.'
		}
	}
	return string(b)
}

func slashed(name string) string {
	b := []byte(name)
	for i := range b {
		if b[i] == '.' {
			b[i] = '/'
		}
	}
	return string(b)
}
