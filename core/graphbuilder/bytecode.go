package graphbuilder

// ByteCode is a single bytecode of the managed-VM instruction set.
type ByteCode byte

// 0x00 range - constants.
const (
	NOP         ByteCode = 0x00
	ACONST_NULL ByteCode = 0x01
	ICONST_M1   ByteCode = 0x02
	ICONST_0    ByteCode = 0x03
	ICONST_1    ByteCode = 0x04
	ICONST_2    ByteCode = 0x05
	ICONST_3    ByteCode = 0x06
	ICONST_4    ByteCode = 0x07
	ICONST_5    ByteCode = 0x08
	LCONST_0    ByteCode = 0x09
	LCONST_1    ByteCode = 0x0a
	FCONST_0    ByteCode = 0x0b
	FCONST_1    ByteCode = 0x0c
	FCONST_2    ByteCode = 0x0d
	DCONST_0    ByteCode = 0x0e
	DCONST_1    ByteCode = 0x0f
	BIPUSH      ByteCode = 0x10
	SIPUSH      ByteCode = 0x11
	LDC         ByteCode = 0x12
	LDC_W       ByteCode = 0x13
	LDC2_W      ByteCode = 0x14
)

// 0x15 range - local loads.
const (
	ILOAD   ByteCode = 0x15
	LLOAD   ByteCode = 0x16
	FLOAD   ByteCode = 0x17
	DLOAD   ByteCode = 0x18
	ALOAD   ByteCode = 0x19
	ILOAD_0 ByteCode = 0x1a
	ILOAD_1 ByteCode = 0x1b
	ILOAD_2 ByteCode = 0x1c
	ILOAD_3 ByteCode = 0x1d
	LLOAD_0 ByteCode = 0x1e
	LLOAD_1 ByteCode = 0x1f
	LLOAD_2 ByteCode = 0x20
	LLOAD_3 ByteCode = 0x21
	FLOAD_0 ByteCode = 0x22
	FLOAD_1 ByteCode = 0x23
	FLOAD_2 ByteCode = 0x24
	FLOAD_3 ByteCode = 0x25
	DLOAD_0 ByteCode = 0x26
	DLOAD_1 ByteCode = 0x27
	DLOAD_2 ByteCode = 0x28
	DLOAD_3 ByteCode = 0x29
	ALOAD_0 ByteCode = 0x2a
	ALOAD_1 ByteCode = 0x2b
	ALOAD_2 ByteCode = 0x2c
	ALOAD_3 ByteCode = 0x2d
	IALOAD  ByteCode = 0x2e
	LALOAD  ByteCode = 0x2f
	FALOAD  ByteCode = 0x30
	DALOAD  ByteCode = 0x31
	AALOAD  ByteCode = 0x32
	BALOAD  ByteCode = 0x33
	CALOAD  ByteCode = 0x34
	SALOAD  ByteCode = 0x35
)

// 0x36 range - local stores.
const (
	ISTORE   ByteCode = 0x36
	LSTORE   ByteCode = 0x37
	FSTORE   ByteCode = 0x38
	DSTORE   ByteCode = 0x39
	ASTORE   ByteCode = 0x3a
	ISTORE_0 ByteCode = 0x3b
	ISTORE_1 ByteCode = 0x3c
	ISTORE_2 ByteCode = 0x3d
	ISTORE_3 ByteCode = 0x3e
	LSTORE_0 ByteCode = 0x3f
	LSTORE_1 ByteCode = 0x40
	LSTORE_2 ByteCode = 0x41
	LSTORE_3 ByteCode = 0x42
	FSTORE_0 ByteCode = 0x43
	FSTORE_1 ByteCode = 0x44
	FSTORE_2 ByteCode = 0x45
	FSTORE_3 ByteCode = 0x46
	DSTORE_0 ByteCode = 0x47
	DSTORE_1 ByteCode = 0x48
	DSTORE_2 ByteCode = 0x49
	DSTORE_3 ByteCode = 0x4a
	ASTORE_0 ByteCode = 0x4b
	ASTORE_1 ByteCode = 0x4c
	ASTORE_2 ByteCode = 0x4d
	ASTORE_3 ByteCode = 0x4e
	IASTORE  ByteCode = 0x4f
	LASTORE  ByteCode = 0x50
	FASTORE  ByteCode = 0x51
	DASTORE  ByteCode = 0x52
	AASTORE  ByteCode = 0x53
	BASTORE  ByteCode = 0x54
	CASTORE  ByteCode = 0x55
	SASTORE  ByteCode = 0x56
)

// 0x57 range - operand stack manipulation.
const (
	POP     ByteCode = 0x57
	POP2    ByteCode = 0x58
	DUP     ByteCode = 0x59
	DUP_X1  ByteCode = 0x5a
	DUP_X2  ByteCode = 0x5b
	DUP2    ByteCode = 0x5c
	DUP2_X1 ByteCode = 0x5d
	DUP2_X2 ByteCode = 0x5e
	SWAP    ByteCode = 0x5f
)

// 0x60 range - arithmetic, logic and conversion.
const (
	IADD  ByteCode = 0x60
	LADD  ByteCode = 0x61
	FADD  ByteCode = 0x62
	DADD  ByteCode = 0x63
	ISUB  ByteCode = 0x64
	LSUB  ByteCode = 0x65
	FSUB  ByteCode = 0x66
	DSUB  ByteCode = 0x67
	IMUL  ByteCode = 0x68
	LMUL  ByteCode = 0x69
	FMUL  ByteCode = 0x6a
	DMUL  ByteCode = 0x6b
	IDIV  ByteCode = 0x6c
	LDIV  ByteCode = 0x6d
	FDIV  ByteCode = 0x6e
	DDIV  ByteCode = 0x6f
	IREM  ByteCode = 0x70
	LREM  ByteCode = 0x71
	FREM  ByteCode = 0x72
	DREM  ByteCode = 0x73
	INEG  ByteCode = 0x74
	LNEG  ByteCode = 0x75
	FNEG  ByteCode = 0x76
	DNEG  ByteCode = 0x77
	ISHL  ByteCode = 0x78
	LSHL  ByteCode = 0x79
	ISHR  ByteCode = 0x7a
	LSHR  ByteCode = 0x7b
	IUSHR ByteCode = 0x7c
	LUSHR ByteCode = 0x7d
	IAND  ByteCode = 0x7e
	LAND  ByteCode = 0x7f
	IOR   ByteCode = 0x80
	LOR   ByteCode = 0x81
	IXOR  ByteCode = 0x82
	LXOR  ByteCode = 0x83
	IINC  ByteCode = 0x84
	I2L   ByteCode = 0x85
	I2F   ByteCode = 0x86
	I2D   ByteCode = 0x87
	L2I   ByteCode = 0x88
	L2F   ByteCode = 0x89
	L2D   ByteCode = 0x8a
	F2I   ByteCode = 0x8b
	F2L   ByteCode = 0x8c
	F2D   ByteCode = 0x8d
	D2I   ByteCode = 0x8e
	D2L   ByteCode = 0x8f
	D2F   ByteCode = 0x90
	I2B   ByteCode = 0x91
	I2C   ByteCode = 0x92
	I2S   ByteCode = 0x93
)

// 0x94 range - comparison and control transfer.
const (
	LCMP         ByteCode = 0x94
	FCMPL        ByteCode = 0x95
	FCMPG        ByteCode = 0x96
	DCMPL        ByteCode = 0x97
	DCMPG        ByteCode = 0x98
	IFEQ         ByteCode = 0x99
	IFNE         ByteCode = 0x9a
	IFLT         ByteCode = 0x9b
	IFGE         ByteCode = 0x9c
	IFGT         ByteCode = 0x9d
	IFLE         ByteCode = 0x9e
	IF_ICMPEQ    ByteCode = 0x9f
	IF_ICMPNE    ByteCode = 0xa0
	IF_ICMPLT    ByteCode = 0xa1
	IF_ICMPGE    ByteCode = 0xa2
	IF_ICMPGT    ByteCode = 0xa3
	IF_ICMPLE    ByteCode = 0xa4
	IF_ACMPEQ    ByteCode = 0xa5
	IF_ACMPNE    ByteCode = 0xa6
	GOTO         ByteCode = 0xa7
	JSR          ByteCode = 0xa8
	RET          ByteCode = 0xa9
	TABLESWITCH  ByteCode = 0xaa
	LOOKUPSWITCH ByteCode = 0xab
	IRETURN      ByteCode = 0xac
	LRETURN      ByteCode = 0xad
	FRETURN      ByteCode = 0xae
	DRETURN      ByteCode = 0xaf
	ARETURN      ByteCode = 0xb0
	RETURN       ByteCode = 0xb1
)

// 0xb2 range - field access, invocation and object model.
const (
	GETSTATIC       ByteCode = 0xb2
	PUTSTATIC       ByteCode = 0xb3
	GETFIELD        ByteCode = 0xb4
	PUTFIELD        ByteCode = 0xb5
	INVOKEVIRTUAL   ByteCode = 0xb6
	INVOKESPECIAL   ByteCode = 0xb7
	INVOKESTATIC    ByteCode = 0xb8
	INVOKEINTERFACE ByteCode = 0xb9
	NEW             ByteCode = 0xbb
	NEWARRAY        ByteCode = 0xbc
	ANEWARRAY       ByteCode = 0xbd
	ARRAYLENGTH     ByteCode = 0xbe
	ATHROW          ByteCode = 0xbf
	CHECKCAST       ByteCode = 0xc0
	INSTANCEOF      ByteCode = 0xc1
	MONITORENTER    ByteCode = 0xc2
	MONITOREXIT     ByteCode = 0xc3
	WIDE            ByteCode = 0xc4
	MULTIANEWARRAY  ByteCode = 0xc5
	IFNULL          ByteCode = 0xc6
	IFNONNULL       ByteCode = 0xc7
	GOTO_W          ByteCode = 0xc8
	JSR_W           ByteCode = 0xc9
	BREAKPOINT      ByteCode = 0xca
)

// opLengths holds the instruction length of each opcode in bytes, including
// the opcode byte itself. Zero marks an undefined opcode and variableLength
// marks the switch instructions whose size depends on their padding and case
// count. WIDE doubles the operand width of the modified instruction.
const variableLength = -1

var opLengths [256]int8

func init() {
	for op := 0; op < 256; op++ {
		opLengths[op] = 0
	}
	one := []ByteCode{
		NOP, ACONST_NULL, ICONST_M1, ICONST_0, ICONST_1, ICONST_2, ICONST_3,
		ICONST_4, ICONST_5, LCONST_0, LCONST_1, FCONST_0, FCONST_1, FCONST_2,
		DCONST_0, DCONST_1,
		ILOAD_0, ILOAD_1, ILOAD_2, ILOAD_3, LLOAD_0, LLOAD_1, LLOAD_2, LLOAD_3,
		FLOAD_0, FLOAD_1, FLOAD_2, FLOAD_3, DLOAD_0, DLOAD_1, DLOAD_2, DLOAD_3,
		ALOAD_0, ALOAD_1, ALOAD_2, ALOAD_3,
		IALOAD, LALOAD, FALOAD, DALOAD, AALOAD, BALOAD, CALOAD, SALOAD,
		ISTORE_0, ISTORE_1, ISTORE_2, ISTORE_3, LSTORE_0, LSTORE_1, LSTORE_2,
		LSTORE_3, FSTORE_0, FSTORE_1, FSTORE_2, FSTORE_3, DSTORE_0, DSTORE_1,
		DSTORE_2, DSTORE_3, ASTORE_0, ASTORE_1, ASTORE_2, ASTORE_3,
		IASTORE, LASTORE, FASTORE, DASTORE, AASTORE, BASTORE, CASTORE, SASTORE,
		POP, POP2, DUP, DUP_X1, DUP_X2, DUP2, DUP2_X1, DUP2_X2, SWAP,
		IADD, LADD, FADD, DADD, ISUB, LSUB, FSUB, DSUB, IMUL, LMUL, FMUL, DMUL,
		IDIV, LDIV, FDIV, DDIV, IREM, LREM, FREM, DREM, INEG, LNEG, FNEG, DNEG,
		ISHL, LSHL, ISHR, LSHR, IUSHR, LUSHR, IAND, LAND, IOR, LOR, IXOR, LXOR,
		I2L, I2F, I2D, L2I, L2F, L2D, F2I, F2L, F2D, D2I, D2L, D2F, I2B, I2C, I2S,
		LCMP, FCMPL, FCMPG, DCMPL, DCMPG,
		IRETURN, LRETURN, FRETURN, DRETURN, ARETURN, RETURN,
		ARRAYLENGTH, ATHROW, MONITORENTER, MONITOREXIT, BREAKPOINT,
	}
	two := []ByteCode{BIPUSH, LDC, ILOAD, LLOAD, FLOAD, DLOAD, ALOAD,
		ISTORE, LSTORE, FSTORE, DSTORE, ASTORE, RET, NEWARRAY}
	three := []ByteCode{SIPUSH, LDC_W, LDC2_W, IINC,
		IFEQ, IFNE, IFLT, IFGE, IFGT, IFLE,
		IF_ICMPEQ, IF_ICMPNE, IF_ICMPLT, IF_ICMPGE, IF_ICMPGT, IF_ICMPLE,
		IF_ACMPEQ, IF_ACMPNE, GOTO, JSR, IFNULL, IFNONNULL,
		GETSTATIC, PUTSTATIC, GETFIELD, PUTFIELD,
		INVOKEVIRTUAL, INVOKESPECIAL, INVOKESTATIC,
		NEW, ANEWARRAY, CHECKCAST, INSTANCEOF,
	}
	for _, op := range one {
		opLengths[op] = 1
	}
	for _, op := range two {
		opLengths[op] = 2
	}
	for _, op := range three {
		opLengths[op] = 3
	}
	opLengths[MULTIANEWARRAY] = 4
	opLengths[INVOKEINTERFACE] = 5
	opLengths[GOTO_W] = 5
	opLengths[JSR_W] = 5
	opLengths[TABLESWITCH] = variableLength
	opLengths[LOOKUPSWITCH] = variableLength
	opLengths[WIDE] = variableLength
}

var opNames = map[ByteCode]string{
	NOP: "nop", ACONST_NULL: "aconst_null", ICONST_M1: "iconst_m1",
	ICONST_0: "iconst_0", ICONST_1: "iconst_1", ICONST_2: "iconst_2",
	ICONST_3: "iconst_3", ICONST_4: "iconst_4", ICONST_5: "iconst_5",
	LCONST_0: "lconst_0", LCONST_1: "lconst_1", FCONST_0: "fconst_0",
	FCONST_1: "fconst_1", FCONST_2: "fconst_2", DCONST_0: "dconst_0",
	DCONST_1: "dconst_1", BIPUSH: "bipush", SIPUSH: "sipush", LDC: "ldc",
	LDC_W: "ldc_w", LDC2_W: "ldc2_w", ILOAD: "iload", LLOAD: "lload",
	FLOAD: "fload", DLOAD: "dload", ALOAD: "aload", IINC: "iinc",
	GOTO: "goto", JSR: "jsr", RET: "ret", TABLESWITCH: "tableswitch",
	LOOKUPSWITCH: "lookupswitch", IRETURN: "ireturn", LRETURN: "lreturn",
	FRETURN: "freturn", DRETURN: "dreturn", ARETURN: "areturn",
	RETURN: "return", GETSTATIC: "getstatic", PUTSTATIC: "putstatic",
	GETFIELD: "getfield", PUTFIELD: "putfield",
	INVOKEVIRTUAL: "invokevirtual", INVOKESPECIAL: "invokespecial",
	INVOKESTATIC: "invokestatic", INVOKEINTERFACE: "invokeinterface",
	NEW: "new", NEWARRAY: "newarray", ANEWARRAY: "anewarray",
	ARRAYLENGTH: "arraylength", ATHROW: "athrow", CHECKCAST: "checkcast",
	INSTANCEOF: "instanceof", MONITORENTER: "monitorenter",
	MONITOREXIT: "monitorexit", WIDE: "wide",
	MULTIANEWARRAY: "multianewarray", IFNULL: "ifnull",
	IFNONNULL: "ifnonnull", GOTO_W: "goto_w", JSR_W: "jsr_w",
}

// NameOf returns a printable mnemonic for the opcode.
func NameOf(op ByteCode) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "<illegal>"
}

// BytecodeStream provides random-access decoding over a routine's bytecode.
// The cursor tracks the current instruction and precomputes the start of the
// following one, including the padding of switch instructions and the operand
// widening of WIDE.
type BytecodeStream struct {
	code    []byte
	curBCI  int
	nextBCI int
	opcode  ByteCode
	wide    bool
}

// NewBytecodeStream returns a stream positioned at offset 0.
func NewBytecodeStream(code []byte) *BytecodeStream {
	s := &BytecodeStream{code: code}
	s.SetBCI(0)
	return s
}

// EndBCI returns the offset one past the last bytecode.
func (s *BytecodeStream) EndBCI() int { return len(s.code) }

// CurrentBCI returns the offset of the current instruction.
func (s *BytecodeStream) CurrentBCI() int { return s.curBCI }

// NextBCI returns the offset of the instruction following the current one.
func (s *BytecodeStream) NextBCI() int { return s.nextBCI }

// CurrentBC returns the current opcode. A WIDE prefix is transparent: the
// modified opcode is returned and the index readers widen automatically.
func (s *BytecodeStream) CurrentBC() ByteCode { return s.opcode }

// IsWide reports whether the current instruction carries a WIDE prefix.
func (s *BytecodeStream) IsWide() bool { return s.wide }

// Next advances the cursor to the following instruction.
func (s *BytecodeStream) Next() { s.SetBCI(s.nextBCI) }

// SetBCI positions the cursor on the instruction at the given offset.
func (s *BytecodeStream) SetBCI(bci int) {
	s.curBCI = bci
	s.wide = false
	if bci >= len(s.code) {
		s.opcode = BREAKPOINT
		s.nextBCI = len(s.code)
		return
	}
	s.opcode = ByteCode(s.code[bci])
	opBCI := bci
	if s.opcode == WIDE {
		if bci+1 >= len(s.code) {
			// A trailing prefix modifies nothing. Leave the cursor past the
			// end so the boundary scan reports the truncation.
			s.nextBCI = len(s.code) + 1
			return
		}
		s.wide = true
		s.opcode = ByteCode(s.code[bci+1])
		opBCI = bci + 1
	}
	s.nextBCI = s.computeNextBCI(opBCI)
}

func (s *BytecodeStream) computeNextBCI(opBCI int) int {
	switch s.opcode {
	case TABLESWITCH:
		ts := newTableSwitch(s, s.curBCI)
		if !ts.isWellFormed() {
			return len(s.code) + 1
		}
		return ts.offsetToNextInstruction()
	case LOOKUPSWITCH:
		ls := newLookupSwitch(s, s.curBCI)
		if !ls.isWellFormed() {
			return len(s.code) + 1
		}
		return ls.offsetToNextInstruction()
	default:
		length := int(opLengths[s.opcode])
		if length <= 0 {
			// Undefined opcodes occupy a single byte so the scan can continue
			// and the builder can report them at a precise offset.
			length = 1
		}
		if s.wide {
			// The WIDE prefix doubles the width of the index operand.
			if s.opcode == IINC {
				return opBCI + 5
			}
			return opBCI + 3
		}
		return opBCI + length
	}
}

// ReadUByte reads an unsigned byte at an absolute offset.
func (s *BytecodeStream) ReadUByte(bci int) int { return int(s.code[bci]) }

// ReadByte reads the signed byte operand of the current instruction.
func (s *BytecodeStream) ReadByte() int { return int(int8(s.code[s.curBCI+1])) }

// ReadShort reads the signed 16-bit operand of the current instruction.
func (s *BytecodeStream) ReadShort() int {
	return int(int16(uint16(s.code[s.curBCI+1])<<8 | uint16(s.code[s.curBCI+2])))
}

// ReadCPI reads the constant-pool index operand of the current instruction.
func (s *BytecodeStream) ReadCPI() int {
	if s.opcode == LDC {
		return int(s.code[s.curBCI+1])
	}
	return int(uint16(s.code[s.curBCI+1])<<8 | uint16(s.code[s.curBCI+2]))
}

// ReadLocalIndex reads the local-slot operand, honoring a WIDE prefix.
func (s *BytecodeStream) ReadLocalIndex() int {
	if s.wide {
		return int(uint16(s.code[s.curBCI+2])<<8 | uint16(s.code[s.curBCI+3]))
	}
	return int(s.code[s.curBCI+1])
}

// ReadIncrement reads the signed delta operand of IINC, honoring WIDE.
func (s *BytecodeStream) ReadIncrement() int {
	if s.wide {
		return int(int16(uint16(s.code[s.curBCI+4])<<8 | uint16(s.code[s.curBCI+5])))
	}
	return int(int8(s.code[s.curBCI+2]))
}

// ReadBranchDest resolves the 16-bit branch offset against the current BCI.
func (s *BytecodeStream) ReadBranchDest() int {
	return s.curBCI + s.ReadShort()
}

// ReadFarBranchDest resolves the 32-bit branch offset of GOTO_W/JSR_W.
func (s *BytecodeStream) ReadFarBranchDest() int {
	off := int(int32(uint32(s.code[s.curBCI+1])<<24 | uint32(s.code[s.curBCI+2])<<16 |
		uint32(s.code[s.curBCI+3])<<8 | uint32(s.code[s.curBCI+4])))
	return s.curBCI + off
}

func (s *BytecodeStream) readInt(bci int) int {
	return int(int32(uint32(s.code[bci])<<24 | uint32(s.code[bci+1])<<16 |
		uint32(s.code[bci+2])<<8 | uint32(s.code[bci+3])))
}

// bytecodeTableSwitch decodes the layout of a TABLESWITCH instruction.
type bytecodeTableSwitch struct {
	stream  *BytecodeStream
	bci     int
	aligned int // offset of the default entry after alignment padding
}

func newTableSwitch(s *BytecodeStream, bci int) *bytecodeTableSwitch {
	return &bytecodeTableSwitch{stream: s, bci: bci, aligned: (bci + 4) &^ 3}
}

func (ts *bytecodeTableSwitch) defaultOffset() int { return ts.stream.readInt(ts.aligned) }
func (ts *bytecodeTableSwitch) lowKey() int        { return ts.stream.readInt(ts.aligned + 4) }
func (ts *bytecodeTableSwitch) highKey() int       { return ts.stream.readInt(ts.aligned + 8) }

func (ts *bytecodeTableSwitch) numberOfCases() int {
	return ts.highKey() - ts.lowKey() + 1
}

func (ts *bytecodeTableSwitch) offsetAt(i int) int {
	return ts.stream.readInt(ts.aligned + 12 + 4*i)
}

// isWellFormed reports whether the whole switch payload lies inside the
// code, so the entry accessors can read it without going out of bounds.
func (ts *bytecodeTableSwitch) isWellFormed() bool {
	code := ts.stream.code
	if ts.aligned+12 > len(code) {
		return false
	}
	n := ts.numberOfCases()
	return n >= 0 && ts.aligned+12+4*n <= len(code)
}

func (ts *bytecodeTableSwitch) defaultTarget() int { return ts.bci + ts.defaultOffset() }
func (ts *bytecodeTableSwitch) targetAt(i int) int { return ts.bci + ts.offsetAt(i) }

func (ts *bytecodeTableSwitch) offsetToNextInstruction() int {
	return ts.aligned + 12 + 4*ts.numberOfCases()
}

// bytecodeLookupSwitch decodes the layout of a LOOKUPSWITCH instruction.
type bytecodeLookupSwitch struct {
	stream  *BytecodeStream
	bci     int
	aligned int
}

func newLookupSwitch(s *BytecodeStream, bci int) *bytecodeLookupSwitch {
	return &bytecodeLookupSwitch{stream: s, bci: bci, aligned: (bci + 4) &^ 3}
}

func (ls *bytecodeLookupSwitch) defaultOffset() int { return ls.stream.readInt(ls.aligned) }
func (ls *bytecodeLookupSwitch) numberOfCases() int { return ls.stream.readInt(ls.aligned + 4) }

func (ls *bytecodeLookupSwitch) keyAt(i int) int {
	return ls.stream.readInt(ls.aligned + 8 + 8*i)
}

func (ls *bytecodeLookupSwitch) offsetAt(i int) int {
	return ls.stream.readInt(ls.aligned + 12 + 8*i)
}

func (ls *bytecodeLookupSwitch) isWellFormed() bool {
	code := ls.stream.code
	if ls.aligned+8 > len(code) {
		return false
	}
	n := ls.numberOfCases()
	return n >= 0 && ls.aligned+8+8*n <= len(code)
}

func (ls *bytecodeLookupSwitch) defaultTarget() int { return ls.bci + ls.defaultOffset() }
func (ls *bytecodeLookupSwitch) targetAt(i int) int { return ls.bci + ls.offsetAt(i) }

func (ls *bytecodeLookupSwitch) offsetToNextInstruction() int {
	return ls.aligned + 8 + 8*ls.numberOfCases()
}
