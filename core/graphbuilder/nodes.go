package graphbuilder

// Kind tags the width and representation class of a value. Sub-int kinds
// exist only for field and array element accesses; on the operand stack they
// are always widened to Int.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBoolean
	KindByte
	KindChar
	KindShort
	KindInt
	KindFloat
	KindLong
	KindDouble
	KindObject
	KindAddress // subroutine return address
	KindIllegal
)

// StackKind returns the kind a value of this kind has on the operand stack.
func (k Kind) StackKind() Kind {
	switch k {
	case KindBoolean, KindByte, KindChar, KindShort:
		return KindInt
	default:
		return k
	}
}

// IsWide reports whether the kind occupies two frame slots.
func (k Kind) IsWide() bool { return k == KindLong || k == KindDouble }

// Slots returns the number of frame slots a value of this kind occupies.
func (k Kind) Slots() int {
	if k.IsWide() {
		return 2
	}
	return 1
}

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBoolean:
		return "boolean"
	case KindByte:
		return "byte"
	case KindChar:
		return "char"
	case KindShort:
		return "short"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindLong:
		return "long"
	case KindDouble:
		return "double"
	case KindObject:
		return "object"
	case KindAddress:
		return "address"
	default:
		return "illegal"
	}
}

// Condition is the comparison relation of If and guard nodes.
type Condition uint8

const (
	CondEQ Condition = iota
	CondNE
	CondLT
	CondGE
	CondGT
	CondLE
	CondBT // unsigned below, used by array bounds checks
)

func (c Condition) String() string {
	switch c {
	case CondEQ:
		return "=="
	case CondNE:
		return "!="
	case CondLT:
		return "<"
	case CondGE:
		return ">="
	case CondGT:
		return ">"
	case CondLE:
		return "<="
	case CondBT:
		return "|<|"
	default:
		return "?"
	}
}

// Constant is a compile-time value. I holds integral payloads (including
// subroutine return addresses), F floating payloads, and Ref object payloads
// such as interned strings or type references; a nil Ref with KindObject is
// the null constant.
type Constant struct {
	Kind Kind
	I    int64
	F    float64
	Ref  interface{}
}

// NullConstant is the well-known null object constant.
var NullConstant = Constant{Kind: KindObject}

// IntConstant returns an int constant.
func IntConstant(v int64) Constant { return Constant{Kind: KindInt, I: v} }

// LongConstant returns a long constant.
func LongConstant(v int64) Constant { return Constant{Kind: KindLong, I: v} }

// FloatConstant returns a float constant.
func FloatConstant(v float64) Constant { return Constant{Kind: KindFloat, F: v} }

// DoubleConstant returns a double constant.
func DoubleConstant(v float64) Constant { return Constant{Kind: KindDouble, F: v} }

// ObjectConstant returns an object constant wrapping ref.
func ObjectConstant(ref interface{}) Constant { return Constant{Kind: KindObject, Ref: ref} }

func jsrConstant(retBCI int) Constant {
	return Constant{Kind: KindAddress, I: int64(retBCI)}
}

// defaultForKind is the zero value pushed in place of a result whose
// producing operation was replaced by a deoptimization.
func defaultForKind(kind Kind) Constant {
	switch kind.StackKind() {
	case KindInt:
		return IntConstant(0)
	case KindLong:
		return LongConstant(0)
	case KindFloat:
		return FloatConstant(0)
	case KindDouble:
		return DoubleConstant(0)
	default:
		return NullConstant
	}
}

// IsNull reports whether the constant is the null object.
func (c Constant) IsNull() bool { return c.Kind == KindObject && c.Ref == nil }

// Op discriminates the node union. Control nodes first, then fixed effectful
// nodes, then floating value nodes.
type Op uint8

const (
	OpInvalid Op = iota

	// Control.
	OpStart
	OpPlaceholder
	OpEnd
	OpMerge
	OpLoopBegin
	OpLoopEnd
	OpIf
	OpTableSwitch
	OpLookupSwitch
	OpReturn
	OpUnwind
	OpDeoptimize

	// Fixed nodes with a next successor.
	OpLoadIndexed
	OpStoreIndexed
	OpLoadField
	OpStoreField
	OpInvoke
	OpNewInstance
	OpNewTypeArray
	OpNewObjectArray
	OpNewMultiArray
	OpMonitorEnter
	OpMonitorExit
	OpArrayLength
	OpCheckCast
	OpExceptionObject
	OpCreateException
	OpRegisterFinalizer
	OpValueAnchor

	// Floating values.
	OpConstant
	OpParameter
	OpPhi
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpShl
	OpShr
	OpUshr
	OpAnd
	OpOr
	OpXor
	OpNormalizeCompare
	OpConvert
	OpCompare
	OpIsNonNull
	OpInstanceOf

	OpDeleted
)

var opStrings = map[Op]string{
	OpStart: "Start", OpPlaceholder: "Placeholder", OpEnd: "End",
	OpMerge: "Merge", OpLoopBegin: "LoopBegin", OpLoopEnd: "LoopEnd",
	OpIf: "If", OpTableSwitch: "TableSwitch", OpLookupSwitch: "LookupSwitch",
	OpReturn: "Return", OpUnwind: "Unwind", OpDeoptimize: "Deoptimize",
	OpLoadIndexed: "LoadIndexed", OpStoreIndexed: "StoreIndexed",
	OpLoadField: "LoadField", OpStoreField: "StoreField", OpInvoke: "Invoke",
	OpNewInstance: "NewInstance", OpNewTypeArray: "NewTypeArray",
	OpNewObjectArray: "NewObjectArray", OpNewMultiArray: "NewMultiArray",
	OpMonitorEnter: "MonitorEnter", OpMonitorExit: "MonitorExit",
	OpArrayLength: "ArrayLength", OpCheckCast: "CheckCast",
	OpExceptionObject: "ExceptionObject",
	OpCreateException: "CreateException", OpRegisterFinalizer: "RegisterFinalizer",
	OpValueAnchor: "ValueAnchor", OpConstant: "Constant",
	OpParameter: "Parameter", OpPhi: "Phi",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpRem: "Rem",
	OpNeg: "Neg", OpShl: "Shl", OpShr: "Shr", OpUshr: "Ushr", OpAnd: "And",
	OpOr: "Or", OpXor: "Xor", OpNormalizeCompare: "NormalizeCompare",
	OpConvert: "Convert", OpCompare: "Compare", OpIsNonNull: "IsNonNull",
	OpInstanceOf: "InstanceOf", OpDeleted: "Deleted",
}

func (op Op) String() string {
	if s, ok := opStrings[op]; ok {
		return s
	}
	return "Invalid"
}

// needsStateAfter reports whether a fixed node must capture a frame snapshot
// once its bytecode has been translated.
func needsStateAfter(op Op) bool {
	switch op {
	case OpInvoke, OpMonitorEnter, OpMonitorExit, OpStoreField, OpStoreIndexed,
		OpNewInstance, OpNewTypeArray, OpNewObjectArray, OpNewMultiArray,
		OpExceptionObject, OpCreateException:
		return true
	}
	return false
}
