package bytecode

import "fmt"

// ExceptionHandler is one entry of a Code attribute's exception table.
// Offsets are absolute; EndPC is exclusive.
type ExceptionHandler struct {
	StartPC   int
	EndPC     int
	HandlerPC int
	CatchType uint16
}

// Code is a decoded Code attribute. Sub-attributes are kept raw and
// dropped when the instruction layout changes, since their offsets would
// no longer be valid.
type Code struct {
	MaxStack  uint16
	MaxLocals uint16
	Instrs    *InstructionList
	Handlers  []ExceptionHandler

	attrs []Attribute
}

// DecodeCode parses a method's Code attribute. It returns nil with no
// error for abstract and native methods, which carry no code.
func (cf *ClassFile) DecodeCode(m *Member) (*Code, error) {
	i := cf.attributeNamed(m.Attributes, "Code")
	if i < 0 {
		return nil, nil
	}
	r := &reader{data: m.Attributes[i].Data}
	c := &Code{}
	c.MaxStack = r.u16()
	c.MaxLocals = r.u16()
	code := r.bytes(int(r.u32()))
	if r.err != nil {
		return nil, r.err
	}
	il, err := DecodeInstructions(code)
	if err != nil {
		return nil, err
	}
	c.Instrs = il

	nHandlers := int(r.u16())
	c.Handlers = make([]ExceptionHandler, nHandlers)
	for j := 0; j < nHandlers; j++ {
		c.Handlers[j] = ExceptionHandler{
			StartPC:   int(r.u16()),
			EndPC:     int(r.u16()),
			HandlerPC: int(r.u16()),
			CatchType: r.u16(),
		}
	}
	if c.attrs, err = parseAttributes(r); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

// Attributes named by offsets into the code array. They are discarded
// rather than rewritten when instruction positions move.
func positionSensitive(name string) bool {
	switch name {
	case "LineNumberTable", "LocalVariableTable", "LocalVariableTypeTable",
		"StackMapTable":
		return true
	}
	return false
}

// CommitCode re-encodes a Code attribute into the method. Branch targets
// and the exception table are remapped against recomputed instruction
// positions.
func (cf *ClassFile) CommitCode(m *Member, c *Code) error {
	remap := c.Instrs.SetPositions()
	code, err := c.Instrs.Encode()
	if err != nil {
		return err
	}

	moved := false
	for old, now := range remap {
		if old != now {
			moved = true
			break
		}
	}
	mapPC := func(pc int) (int, error) {
		if now, ok := remap[pc]; ok {
			return now, nil
		}
		return 0, fmt.Errorf("%w: exception table offset %d does not start an instruction",
			ErrBadFormat, pc)
	}

	w := &writer{}
	w.u16(c.MaxStack)
	w.u16(c.MaxLocals)
	w.u32(uint32(len(code)))
	w.raw(code)
	w.u16(uint16(len(c.Handlers)))
	for i := range c.Handlers {
		h := c.Handlers[i]
		if moved {
			if h.StartPC, err = mapPC(h.StartPC); err != nil {
				return err
			}
			if h.EndPC, err = mapPC(h.EndPC); err != nil {
				return err
			}
			if h.HandlerPC, err = mapPC(h.HandlerPC); err != nil {
				return err
			}
			c.Handlers[i] = h
		}
		w.u16(uint16(h.StartPC))
		w.u16(uint16(h.EndPC))
		w.u16(uint16(h.HandlerPC))
		w.u16(h.CatchType)
	}

	kept := c.attrs
	if moved {
		kept = kept[:0:0]
		for _, a := range c.attrs {
			name, err := cf.Pool.Utf8(a.NameIndex)
			if err != nil {
				return err
			}
			if !positionSensitive(name) {
				kept = append(kept, a)
			}
		}
		c.attrs = kept
	}
	writeAttributes(w, kept)

	i := cf.attributeNamed(m.Attributes, "Code")
	if i < 0 {
		return fmt.Errorf("%w: method has no Code attribute", ErrBadFormat)
	}
	m.Attributes[i].Data = w.buf
	return nil
}
