// Package bytecode provides a mutable representation of JVM class files:
// constant pool, fields, methods, and an editable instruction list with
// position tracking and branch-offset rewriting. It also implements a
// backward operand-stack simulator used to find the instruction that
// produced a given stack operand.
package bytecode

// JVM opcodes, JVMS numbering.
const (
	NOP             byte = 0x00
	ACONST_NULL     byte = 0x01
	ICONST_M1       byte = 0x02
	ICONST_0        byte = 0x03
	ICONST_1        byte = 0x04
	ICONST_2        byte = 0x05
	ICONST_3        byte = 0x06
	ICONST_4        byte = 0x07
	ICONST_5        byte = 0x08
	LCONST_0        byte = 0x09
	LCONST_1        byte = 0x0a
	FCONST_0        byte = 0x0b
	FCONST_1        byte = 0x0c
	FCONST_2        byte = 0x0d
	DCONST_0        byte = 0x0e
	DCONST_1        byte = 0x0f
	BIPUSH          byte = 0x10
	SIPUSH          byte = 0x11
	LDC             byte = 0x12
	LDC_W           byte = 0x13
	LDC2_W          byte = 0x14
	ILOAD           byte = 0x15
	LLOAD           byte = 0x16
	FLOAD           byte = 0x17
	DLOAD           byte = 0x18
	ALOAD           byte = 0x19
	ILOAD_0         byte = 0x1a
	ILOAD_1         byte = 0x1b
	ILOAD_2         byte = 0x1c
	ILOAD_3         byte = 0x1d
	LLOAD_0         byte = 0x1e
	LLOAD_1         byte = 0x1f
	LLOAD_2         byte = 0x20
	LLOAD_3         byte = 0x21
	FLOAD_0         byte = 0x22
	FLOAD_1         byte = 0x23
	FLOAD_2         byte = 0x24
	FLOAD_3         byte = 0x25
	DLOAD_0         byte = 0x26
	DLOAD_1         byte = 0x27
	DLOAD_2         byte = 0x28
	DLOAD_3         byte = 0x29
	ALOAD_0         byte = 0x2a
	ALOAD_1         byte = 0x2b
	ALOAD_2         byte = 0x2c
	ALOAD_3         byte = 0x2d
	IALOAD          byte = 0x2e
	LALOAD          byte = 0x2f
	FALOAD          byte = 0x30
	DALOAD          byte = 0x31
	AALOAD          byte = 0x32
	BALOAD          byte = 0x33
	CALOAD          byte = 0x34
	SALOAD          byte = 0x35
	ISTORE          byte = 0x36
	LSTORE          byte = 0x37
	FSTORE          byte = 0x38
	DSTORE          byte = 0x39
	ASTORE          byte = 0x3a
	ISTORE_0        byte = 0x3b
	ISTORE_1        byte = 0x3c
	ISTORE_2        byte = 0x3d
	ISTORE_3        byte = 0x3e
	LSTORE_0        byte = 0x3f
	LSTORE_1        byte = 0x40
	LSTORE_2        byte = 0x41
	LSTORE_3        byte = 0x42
	FSTORE_0        byte = 0x43
	FSTORE_1        byte = 0x44
	FSTORE_2        byte = 0x45
	FSTORE_3        byte = 0x46
	DSTORE_0        byte = 0x47
	DSTORE_1        byte = 0x48
	DSTORE_2        byte = 0x49
	DSTORE_3        byte = 0x4a
	ASTORE_0        byte = 0x4b
	ASTORE_1        byte = 0x4c
	ASTORE_2        byte = 0x4d
	ASTORE_3        byte = 0x4e
	IASTORE         byte = 0x4f
	LASTORE         byte = 0x50
	FASTORE         byte = 0x51
	DASTORE         byte = 0x52
	AASTORE         byte = 0x53
	BASTORE         byte = 0x54
	CASTORE         byte = 0x55
	SASTORE         byte = 0x56
	POP             byte = 0x57
	POP2            byte = 0x58
	DUP             byte = 0x59
	DUP_X1          byte = 0x5a
	DUP_X2          byte = 0x5b
	DUP2            byte = 0x5c
	DUP2_X1         byte = 0x5d
	DUP2_X2         byte = 0x5e
	SWAP            byte = 0x5f
	IADD            byte = 0x60
	LADD            byte = 0x61
	FADD            byte = 0x62
	DADD            byte = 0x63
	ISUB            byte = 0x64
	LSUB            byte = 0x65
	FSUB            byte = 0x66
	DSUB            byte = 0x67
	IMUL            byte = 0x68
	LMUL            byte = 0x69
	FMUL            byte = 0x6a
	DMUL            byte = 0x6b
	IDIV            byte = 0x6c
	LDIV            byte = 0x6d
	FDIV            byte = 0x6e
	DDIV            byte = 0x6f
	IREM            byte = 0x70
	LREM            byte = 0x71
	FREM            byte = 0x72
	DREM            byte = 0x73
	INEG            byte = 0x74
	LNEG            byte = 0x75
	FNEG            byte = 0x76
	DNEG            byte = 0x77
	ISHL            byte = 0x78
	LSHL            byte = 0x79
	ISHR            byte = 0x7a
	LSHR            byte = 0x7b
	IUSHR           byte = 0x7c
	LUSHR           byte = 0x7d
	IAND            byte = 0x7e
	LAND            byte = 0x7f
	IOR             byte = 0x80
	LOR             byte = 0x81
	IXOR            byte = 0x82
	LXOR            byte = 0x83
	IINC            byte = 0x84
	I2L             byte = 0x85
	I2F             byte = 0x86
	I2D             byte = 0x87
	L2I             byte = 0x88
	L2F             byte = 0x89
	L2D             byte = 0x8a
	F2I             byte = 0x8b
	F2L             byte = 0x8c
	F2D             byte = 0x8d
	D2I             byte = 0x8e
	D2L             byte = 0x8f
	D2F             byte = 0x90
	I2B             byte = 0x91
	I2C             byte = 0x92
	I2S             byte = 0x93
	LCMP            byte = 0x94
	FCMPL           byte = 0x95
	FCMPG           byte = 0x96
	DCMPL           byte = 0x97
	DCMPG           byte = 0x98
	IFEQ            byte = 0x99
	IFNE            byte = 0x9a
	IFLT            byte = 0x9b
	IFGE            byte = 0x9c
	IFGT            byte = 0x9d
	IFLE            byte = 0x9e
	IF_ICMPEQ       byte = 0x9f
	IF_ICMPNE       byte = 0xa0
	IF_ICMPLT       byte = 0xa1
	IF_ICMPGE       byte = 0xa2
	IF_ICMPGT       byte = 0xa3
	IF_ICMPLE       byte = 0xa4
	IF_ACMPEQ       byte = 0xa5
	IF_ACMPNE       byte = 0xa6
	GOTO            byte = 0xa7
	JSR             byte = 0xa8
	RET             byte = 0xa9
	TABLESWITCH     byte = 0xaa
	LOOKUPSWITCH    byte = 0xab
	IRETURN         byte = 0xac
	LRETURN         byte = 0xad
	FRETURN         byte = 0xae
	DRETURN         byte = 0xaf
	ARETURN         byte = 0xb0
	RETURN          byte = 0xb1
	GETSTATIC       byte = 0xb2
	PUTSTATIC       byte = 0xb3
	GETFIELD        byte = 0xb4
	PUTFIELD        byte = 0xb5
	INVOKEVIRTUAL   byte = 0xb6
	INVOKESPECIAL   byte = 0xb7
	INVOKESTATIC    byte = 0xb8
	INVOKEINTERFACE byte = 0xb9
	INVOKEDYNAMIC   byte = 0xba
	NEW             byte = 0xbb
	NEWARRAY        byte = 0xbc
	ANEWARRAY       byte = 0xbd
	ARRAYLENGTH     byte = 0xbe
	ATHROW          byte = 0xbf
	CHECKCAST       byte = 0xc0
	INSTANCEOF      byte = 0xc1
	MONITORENTER    byte = 0xc2
	MONITOREXIT     byte = 0xc3
	WIDE            byte = 0xc4
	MULTIANEWARRAY  byte = 0xc5
	IFNULL          byte = 0xc6
	IFNONNULL       byte = 0xc7
	GOTO_W          byte = 0xc8
	JSR_W           byte = 0xc9
)

const lastOpcode = JSR_W

// poolDependent marks stack effects that cannot be read from the opcode
// alone and must be resolved against the constant pool.
const poolDependent = -1

// variableLength marks opcodes whose operand size depends on context
// (wide prefix, switch padding).
const variableLength = -1

var mnemonics = [lastOpcode + 1]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2",
	"iconst_3", "iconst_4", "iconst_5", "lconst_0", "lconst_1", "fconst_0",
	"fconst_1", "fconst_2", "dconst_0", "dconst_1", "bipush", "sipush",
	"ldc", "ldc_w", "ldc2_w", "iload", "lload", "fload", "dload", "aload",
	"iload_0", "iload_1", "iload_2", "iload_3", "lload_0", "lload_1",
	"lload_2", "lload_3", "fload_0", "fload_1", "fload_2", "fload_3",
	"dload_0", "dload_1", "dload_2", "dload_3", "aload_0", "aload_1",
	"aload_2", "aload_3", "iaload", "laload", "faload", "daload", "aaload",
	"baload", "caload", "saload", "istore", "lstore", "fstore", "dstore",
	"astore", "istore_0", "istore_1", "istore_2", "istore_3", "lstore_0",
	"lstore_1", "lstore_2", "lstore_3", "fstore_0", "fstore_1", "fstore_2",
	"fstore_3", "dstore_0", "dstore_1", "dstore_2", "dstore_3", "astore_0",
	"astore_1", "astore_2", "astore_3", "iastore", "lastore", "fastore",
	"dastore", "aastore", "bastore", "castore", "sastore", "pop", "pop2",
	"dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap",
	"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
	"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr", "iushr", "lushr", "iand", "land",
	"ior", "lor", "ixor", "lxor", "iinc", "i2l", "i2f", "i2d", "l2i",
	"l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l", "d2f", "i2b", "i2c",
	"i2s", "lcmp", "fcmpl", "fcmpg", "dcmpl", "dcmpg", "ifeq", "ifne",
	"iflt", "ifge", "ifgt", "ifle", "if_icmpeq", "if_icmpne", "if_icmplt",
	"if_icmpge", "if_icmpgt", "if_icmple", "if_acmpeq", "if_acmpne",
	"goto", "jsr", "ret", "tableswitch", "lookupswitch", "ireturn",
	"lreturn", "freturn", "dreturn", "areturn", "return", "getstatic",
	"putstatic", "getfield", "putfield", "invokevirtual", "invokespecial",
	"invokestatic", "invokeinterface", "invokedynamic", "new", "newarray",
	"anewarray", "arraylength", "athrow", "checkcast", "instanceof",
	"monitorenter", "monitorexit", "wide", "multianewarray", "ifnull",
	"ifnonnull", "goto_w", "jsr_w",
}

// Mnemonic returns the JVMS mnemonic for an opcode, or "illegal".
func Mnemonic(op byte) string {
	if int(op) < len(mnemonics) && mnemonics[op] != "" {
		return mnemonics[op]
	}
	return "illegal"
}

// operandLens gives the number of operand bytes following each opcode.
// Branch operands are included; variableLength marks wide and the two
// switch instructions.
var operandLens = [lastOpcode + 1]int8{
	BIPUSH: 1, SIPUSH: 2,
	LDC: 1, LDC_W: 2, LDC2_W: 2,
	ILOAD: 1, LLOAD: 1, FLOAD: 1, DLOAD: 1, ALOAD: 1,
	ISTORE: 1, LSTORE: 1, FSTORE: 1, DSTORE: 1, ASTORE: 1,
	IINC: 2,
	IFEQ: 2, IFNE: 2, IFLT: 2, IFGE: 2, IFGT: 2, IFLE: 2,
	IF_ICMPEQ: 2, IF_ICMPNE: 2, IF_ICMPLT: 2, IF_ICMPGE: 2,
	IF_ICMPGT: 2, IF_ICMPLE: 2, IF_ACMPEQ: 2, IF_ACMPNE: 2,
	GOTO: 2, JSR: 2, RET: 1,
	TABLESWITCH: variableLength, LOOKUPSWITCH: variableLength,
	GETSTATIC: 2, PUTSTATIC: 2, GETFIELD: 2, PUTFIELD: 2,
	INVOKEVIRTUAL: 2, INVOKESPECIAL: 2, INVOKESTATIC: 2,
	INVOKEINTERFACE: 4, INVOKEDYNAMIC: 4,
	NEW: 2, NEWARRAY: 1, ANEWARRAY: 2,
	CHECKCAST: 2, INSTANCEOF: 2,
	WIDE: variableLength, MULTIANEWARRAY: 3,
	IFNULL: 2, IFNONNULL: 2,
	GOTO_W: 4, JSR_W: 4,
}

// consumeSlots/produceSlots give the static operand-stack effect in
// slots (longs and doubles occupy two). poolDependent entries require
// the constant pool; see StackEffect.
var consumeSlots = [lastOpcode + 1]int8{
	IALOAD: 2, LALOAD: 2, FALOAD: 2, DALOAD: 2, AALOAD: 2,
	BALOAD: 2, CALOAD: 2, SALOAD: 2,
	ISTORE: 1, LSTORE: 2, FSTORE: 1, DSTORE: 2, ASTORE: 1,
	ISTORE_0: 1, ISTORE_1: 1, ISTORE_2: 1, ISTORE_3: 1,
	LSTORE_0: 2, LSTORE_1: 2, LSTORE_2: 2, LSTORE_3: 2,
	FSTORE_0: 1, FSTORE_1: 1, FSTORE_2: 1, FSTORE_3: 1,
	DSTORE_0: 2, DSTORE_1: 2, DSTORE_2: 2, DSTORE_3: 2,
	ASTORE_0: 1, ASTORE_1: 1, ASTORE_2: 1, ASTORE_3: 1,
	IASTORE: 3, LASTORE: 4, FASTORE: 3, DASTORE: 4, AASTORE: 3,
	BASTORE: 3, CASTORE: 3, SASTORE: 3,
	POP: 1, POP2: 2,
	DUP: 1, DUP_X1: 2, DUP_X2: 3, DUP2: 2, DUP2_X1: 3, DUP2_X2: 4,
	SWAP: 2,
	IADD: 2, LADD: 4, FADD: 2, DADD: 4,
	ISUB: 2, LSUB: 4, FSUB: 2, DSUB: 4,
	IMUL: 2, LMUL: 4, FMUL: 2, DMUL: 4,
	IDIV: 2, LDIV: 4, FDIV: 2, DDIV: 4,
	IREM: 2, LREM: 4, FREM: 2, DREM: 4,
	INEG: 1, LNEG: 2, FNEG: 1, DNEG: 2,
	ISHL: 2, LSHL: 3, ISHR: 2, LSHR: 3, IUSHR: 2, LUSHR: 3,
	IAND: 2, LAND: 4, IOR: 2, LOR: 4, IXOR: 2, LXOR: 4,
	I2L: 1, I2F: 1, I2D: 1, L2I: 2, L2F: 2, L2D: 2,
	F2I: 1, F2L: 1, F2D: 1, D2I: 2, D2L: 2, D2F: 2,
	I2B: 1, I2C: 1, I2S: 1,
	LCMP: 4, FCMPL: 2, FCMPG: 2, DCMPL: 4, DCMPG: 4,
	IFEQ: 1, IFNE: 1, IFLT: 1, IFGE: 1, IFGT: 1, IFLE: 1,
	IF_ICMPEQ: 2, IF_ICMPNE: 2, IF_ICMPLT: 2, IF_ICMPGE: 2,
	IF_ICMPGT: 2, IF_ICMPLE: 2, IF_ACMPEQ: 2, IF_ACMPNE: 2,
	TABLESWITCH: 1, LOOKUPSWITCH: 1,
	IRETURN: 1, LRETURN: 2, FRETURN: 1, DRETURN: 2, ARETURN: 1,
	GETSTATIC: poolDependent, PUTSTATIC: poolDependent,
	GETFIELD: poolDependent, PUTFIELD: poolDependent,
	INVOKEVIRTUAL: poolDependent, INVOKESPECIAL: poolDependent,
	INVOKESTATIC: poolDependent, INVOKEINTERFACE: poolDependent,
	INVOKEDYNAMIC: poolDependent,
	NEWARRAY:      1, ANEWARRAY: 1, ARRAYLENGTH: 1,
	ATHROW: 1, CHECKCAST: 1, INSTANCEOF: 1,
	MONITORENTER: 1, MONITOREXIT: 1,
	MULTIANEWARRAY: poolDependent,
	IFNULL:         1, IFNONNULL: 1,
}

var produceSlots = [lastOpcode + 1]int8{
	ACONST_NULL: 1,
	ICONST_M1:   1, ICONST_0: 1, ICONST_1: 1, ICONST_2: 1,
	ICONST_3: 1, ICONST_4: 1, ICONST_5: 1,
	LCONST_0: 2, LCONST_1: 2,
	FCONST_0: 1, FCONST_1: 1, FCONST_2: 1,
	DCONST_0: 2, DCONST_1: 2,
	BIPUSH: 1, SIPUSH: 1,
	LDC: 1, LDC_W: 1, LDC2_W: 2,
	ILOAD: 1, LLOAD: 2, FLOAD: 1, DLOAD: 2, ALOAD: 1,
	ILOAD_0: 1, ILOAD_1: 1, ILOAD_2: 1, ILOAD_3: 1,
	LLOAD_0: 2, LLOAD_1: 2, LLOAD_2: 2, LLOAD_3: 2,
	FLOAD_0: 1, FLOAD_1: 1, FLOAD_2: 1, FLOAD_3: 1,
	DLOAD_0: 2, DLOAD_1: 2, DLOAD_2: 2, DLOAD_3: 2,
	ALOAD_0: 1, ALOAD_1: 1, ALOAD_2: 1, ALOAD_3: 1,
	IALOAD: 1, LALOAD: 2, FALOAD: 1, DALOAD: 2, AALOAD: 1,
	BALOAD: 1, CALOAD: 1, SALOAD: 1,
	DUP: 2, DUP_X1: 3, DUP_X2: 4, DUP2: 4, DUP2_X1: 5, DUP2_X2: 6,
	SWAP: 2,
	IADD: 1, LADD: 2, FADD: 1, DADD: 2,
	ISUB: 1, LSUB: 2, FSUB: 1, DSUB: 2,
	IMUL: 1, LMUL: 2, FMUL: 1, DMUL: 2,
	IDIV: 1, LDIV: 2, FDIV: 1, DDIV: 2,
	IREM: 1, LREM: 2, FREM: 1, DREM: 2,
	INEG: 1, LNEG: 2, FNEG: 1, DNEG: 2,
	ISHL: 1, LSHL: 2, ISHR: 1, LSHR: 2, IUSHR: 1, LUSHR: 2,
	IAND: 1, LAND: 2, IOR: 1, LOR: 2, IXOR: 1, LXOR: 2,
	I2L: 2, I2F: 1, I2D: 2, L2I: 1, L2F: 1, L2D: 2,
	F2I: 1, F2L: 2, F2D: 2, D2I: 1, D2L: 2, D2F: 1,
	I2B: 1, I2C: 1, I2S: 1,
	LCMP: 1, FCMPL: 1, FCMPG: 1, DCMPL: 1, DCMPG: 1,
	JSR: 1, JSR_W: 1,
	GETSTATIC: poolDependent, PUTSTATIC: poolDependent,
	GETFIELD: poolDependent, PUTFIELD: poolDependent,
	INVOKEVIRTUAL: poolDependent, INVOKESPECIAL: poolDependent,
	INVOKESTATIC: poolDependent, INVOKEINTERFACE: poolDependent,
	INVOKEDYNAMIC: poolDependent,
	NEW:           1, NEWARRAY: 1, ANEWARRAY: 1, ARRAYLENGTH: 1,
	ATHROW: 1, CHECKCAST: 1, INSTANCEOF: 1,
	MULTIANEWARRAY: 1,
}

// IsBranch reports whether op carries a 2-byte relative branch offset.
func IsBranch(op byte) bool {
	return (op >= IFEQ && op <= JSR) || op == IFNULL || op == IFNONNULL
}

// IsWideBranch reports whether op carries a 4-byte relative branch offset.
func IsWideBranch(op byte) bool {
	return op == GOTO_W || op == JSR_W
}

// IsInvoke reports whether op is a method invocation.
func IsInvoke(op byte) bool {
	return op >= INVOKEVIRTUAL && op <= INVOKEDYNAMIC
}
