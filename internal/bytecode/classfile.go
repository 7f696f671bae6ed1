package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadFormat distinguishes corrupt or unsupported input from resource
// errors such as a missing file.
var ErrBadFormat = errors.New("bad class file format")

const classMagic = 0xCAFEBABE

type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) fail() {
	if r.err == nil {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrBadFormat, r.off)
	}
}

func (r *reader) u8() byte {
	if r.off+1 > len(r.data) {
		r.fail()
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	if r.off+2 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	if r.off+4 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if n < 0 || r.off+n > len(r.data) {
		r.fail()
		return nil
	}
	v := append([]byte(nil), r.data[r.off:r.off+n]...)
	r.off += n
	return v
}

type writer struct {
	buf []byte
}

func (w *writer) u8(v byte)    { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = append(w.buf, byte(v>>8), byte(v)) }
func (w *writer) u32(v uint32) {
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
func (w *writer) raw(b []byte) { w.buf = append(w.buf, b...) }

// Attribute is an undecoded class, field, or method attribute.
type Attribute struct {
	NameIndex uint16
	Data      []byte
}

// Member is a field or method.
type Member struct {
	AccessFlags uint16
	NameIndex   uint16
	DescIndex   uint16
	Attributes  []Attribute
}

// Access flag bits shared by classes, fields, and methods.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccProtected uint16 = 0x0004
	AccStatic    uint16 = 0x0008
	AccFinal     uint16 = 0x0010
	AccAbstract  uint16 = 0x0400
	AccInterface uint16 = 0x0200
)

// ClassFile is a parsed, mutable class document.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         *ConstantPool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []Member
	Methods      []Member
	Attributes   []Attribute
}

// Parse decodes a class file from its binary form.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{data: data}
	if magic := r.u32(); magic != classMagic && r.err == nil {
		return nil, fmt.Errorf("%w: bad magic 0x%08X", ErrBadFormat, magic)
	}
	cf := &ClassFile{}
	cf.MinorVersion = r.u16()
	cf.MajorVersion = r.u16()

	pool, err := parseConstantPool(r)
	if err != nil {
		return nil, err
	}
	cf.Pool = pool

	cf.AccessFlags = r.u16()
	cf.ThisClass = r.u16()
	cf.SuperClass = r.u16()

	ifCount := int(r.u16())
	cf.Interfaces = make([]uint16, ifCount)
	for i := 0; i < ifCount; i++ {
		cf.Interfaces[i] = r.u16()
	}

	if cf.Fields, err = parseMembers(r); err != nil {
		return nil, err
	}
	if cf.Methods, err = parseMembers(r); err != nil {
		return nil, err
	}
	if cf.Attributes, err = parseAttributes(r); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadFormat, len(data)-r.off)
	}
	return cf, nil
}

func parseMembers(r *reader) ([]Member, error) {
	count := int(r.u16())
	members := make([]Member, count)
	for i := 0; i < count; i++ {
		members[i].AccessFlags = r.u16()
		members[i].NameIndex = r.u16()
		members[i].DescIndex = r.u16()
		attrs, err := parseAttributes(r)
		if err != nil {
			return nil, err
		}
		members[i].Attributes = attrs
	}
	return members, r.err
}

func parseAttributes(r *reader) ([]Attribute, error) {
	count := int(r.u16())
	attrs := make([]Attribute, count)
	for i := 0; i < count; i++ {
		attrs[i].NameIndex = r.u16()
		attrs[i].Data = r.bytes(int(r.u32()))
	}
	return attrs, r.err
}

// Bytes serializes the class back to its binary form.
func (cf *ClassFile) Bytes() []byte {
	w := &writer{}
	w.u32(classMagic)
	w.u16(cf.MinorVersion)
	w.u16(cf.MajorVersion)
	cf.Pool.write(w)
	w.u16(cf.AccessFlags)
	w.u16(cf.ThisClass)
	w.u16(cf.SuperClass)
	w.u16(uint16(len(cf.Interfaces)))
	for _, i := range cf.Interfaces {
		w.u16(i)
	}
	writeMembers(w, cf.Fields)
	writeMembers(w, cf.Methods)
	writeAttributes(w, cf.Attributes)
	return w.buf
}

func writeMembers(w *writer, members []Member) {
	w.u16(uint16(len(members)))
	for _, m := range members {
		w.u16(m.AccessFlags)
		w.u16(m.NameIndex)
		w.u16(m.DescIndex)
		writeAttributes(w, m.Attributes)
	}
}

func writeAttributes(w *writer, attrs []Attribute) {
	w.u16(uint16(len(attrs)))
	for _, a := range attrs {
		w.u16(a.NameIndex)
		w.u32(uint32(len(a.Data)))
		w.raw(a.Data)
	}
}

// ClassName returns the dotted name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return cf.Pool.ClassName(cf.ThisClass)
}

// SuperClassName returns the dotted name of the superclass, or "" for
// java.lang.Object itself.
func (cf *ClassFile) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return cf.Pool.ClassName(cf.SuperClass)
}

// InterfaceNames returns the dotted names of all directly implemented
// interfaces.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, 0, len(cf.Interfaces))
	for _, idx := range cf.Interfaces {
		name, err := cf.Pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// IsInterface reports whether the class is an interface.
func (cf *ClassFile) IsInterface() bool {
	return cf.AccessFlags&AccInterface != 0
}

// MemberName resolves a member's name and descriptor.
func (cf *ClassFile) MemberName(m *Member) (name, desc string, err error) {
	if name, err = cf.Pool.Utf8(m.NameIndex); err != nil {
		return "", "", err
	}
	if desc, err = cf.Pool.Utf8(m.DescIndex); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// Method returns the method with the given name and descriptor, and its
// index in the method table, or nil.
func (cf *ClassFile) Method(name, desc string) (*Member, int) {
	for i := range cf.Methods {
		n, d, err := cf.MemberName(&cf.Methods[i])
		if err == nil && n == name && d == desc {
			return &cf.Methods[i], i
		}
	}
	return nil, -1
}

// Field returns the field with the given name, and its index, or nil.
func (cf *ClassFile) Field(name string) (*Member, int) {
	for i := range cf.Fields {
		n, err := cf.Pool.Utf8(cf.Fields[i].NameIndex)
		if err == nil && n == name {
			return &cf.Fields[i], i
		}
	}
	return nil, -1
}

func (cf *ClassFile) attributeNamed(attrs []Attribute, name string) int {
	for i := range attrs {
		n, err := cf.Pool.Utf8(attrs[i].NameIndex)
		if err == nil && n == name {
			return i
		}
	}
	return -1
}
