package graphbuilder

// translationRule translates the instruction the builder's stream is
// positioned on. Rules mutate the frame and append nodes; control-transfer
// rules additionally end the current block.
type translationRule func(b *GraphBuilder) error

// dispatchTable maps each opcode to its translation rule. A nil entry is an
// opcode that must not reach the translator.
var dispatchTable [256]translationRule

func constantRule(c Constant) translationRule {
	return func(b *GraphBuilder) error {
		b.pushConstant(c)
		return nil
	}
}

func loadRule(index int, kind Kind) translationRule {
	return func(b *GraphBuilder) error { return b.genLoadLocal(index, kind) }
}

func storeRule(index int, kind Kind) translationRule {
	return func(b *GraphBuilder) error { return b.genStoreLocal(index, kind) }
}

func init() {
	t := &dispatchTable

	t[NOP] = func(b *GraphBuilder) error { return nil }
	t[ACONST_NULL] = constantRule(NullConstant)
	for i := ByteCode(0); i < 7; i++ {
		t[ICONST_M1+i] = constantRule(IntConstant(int64(i) - 1))
	}
	t[LCONST_0] = constantRule(LongConstant(0))
	t[LCONST_1] = constantRule(LongConstant(1))
	t[FCONST_0] = constantRule(FloatConstant(0))
	t[FCONST_1] = constantRule(FloatConstant(1))
	t[FCONST_2] = constantRule(FloatConstant(2))
	t[DCONST_0] = constantRule(DoubleConstant(0))
	t[DCONST_1] = constantRule(DoubleConstant(1))
	t[BIPUSH] = func(b *GraphBuilder) error {
		b.pushConstant(IntConstant(int64(b.stream.ReadByte())))
		return nil
	}
	t[SIPUSH] = func(b *GraphBuilder) error {
		b.pushConstant(IntConstant(int64(b.stream.ReadShort())))
		return nil
	}
	t[LDC] = (*GraphBuilder).genLoadConstant
	t[LDC_W] = (*GraphBuilder).genLoadConstant
	t[LDC2_W] = (*GraphBuilder).genLoadConstant

	localKinds := []Kind{KindInt, KindLong, KindFloat, KindDouble, KindObject}
	for i, kind := range localKinds {
		k := kind
		t[ILOAD+ByteCode(i)] = func(b *GraphBuilder) error {
			return b.genLoadLocal(b.stream.ReadLocalIndex(), k)
		}
		t[ISTORE+ByteCode(i)] = func(b *GraphBuilder) error {
			return b.genStoreLocal(b.stream.ReadLocalIndex(), k)
		}
		for slot := 0; slot < 4; slot++ {
			t[ILOAD_0+ByteCode(4*i+slot)] = loadRule(slot, k)
			t[ISTORE_0+ByteCode(4*i+slot)] = storeRule(slot, k)
		}
	}

	arrayKinds := []Kind{KindInt, KindLong, KindFloat, KindDouble, KindObject, KindByte, KindChar, KindShort}
	for i, kind := range arrayKinds {
		k := kind
		t[IALOAD+ByteCode(i)] = func(b *GraphBuilder) error { return b.genArrayLoad(k) }
		t[IASTORE+ByteCode(i)] = func(b *GraphBuilder) error { return b.genArrayStore(k) }
	}

	for _, op := range []ByteCode{POP, POP2, DUP, DUP_X1, DUP_X2, DUP2, DUP2_X1, DUP2_X2, SWAP} {
		op := op
		t[op] = func(b *GraphBuilder) error { return b.genStackOp(op) }
	}

	arithKinds := []Kind{KindInt, KindLong, KindFloat, KindDouble}
	arithOps := []Op{OpAdd, OpSub, OpMul, OpDiv, OpRem}
	for i, op := range arithOps {
		for j, kind := range arithKinds {
			op, k := op, kind
			t[IADD+ByteCode(4*i+j)] = func(b *GraphBuilder) error { return b.genArithmetic(op, k) }
		}
	}
	for j, kind := range arithKinds {
		k := kind
		t[INEG+ByteCode(j)] = func(b *GraphBuilder) error { return b.genNegate(k) }
	}
	shiftOps := []Op{OpShl, OpShr, OpUshr}
	for i, op := range shiftOps {
		for j, kind := range []Kind{KindInt, KindLong} {
			op, k := op, kind
			t[ISHL+ByteCode(2*i+j)] = func(b *GraphBuilder) error { return b.genShift(op, k) }
		}
	}
	logicOps := []Op{OpAnd, OpOr, OpXor}
	for i, op := range logicOps {
		for j, kind := range []Kind{KindInt, KindLong} {
			op, k := op, kind
			t[IAND+ByteCode(2*i+j)] = func(b *GraphBuilder) error { return b.genArithmetic(op, k) }
		}
	}
	t[IINC] = (*GraphBuilder).genIinc

	conversions := map[ByteCode][2]Kind{
		I2L: {KindInt, KindLong}, I2F: {KindInt, KindFloat}, I2D: {KindInt, KindDouble},
		L2I: {KindLong, KindInt}, L2F: {KindLong, KindFloat}, L2D: {KindLong, KindDouble},
		F2I: {KindFloat, KindInt}, F2L: {KindFloat, KindLong}, F2D: {KindFloat, KindDouble},
		D2I: {KindDouble, KindInt}, D2L: {KindDouble, KindLong}, D2F: {KindDouble, KindFloat},
		I2B: {KindInt, KindByte}, I2C: {KindInt, KindChar}, I2S: {KindInt, KindShort},
	}
	for op, kinds := range conversions {
		from, to := kinds[0], kinds[1]
		t[op] = func(b *GraphBuilder) error { return b.genConvert(from, to) }
	}

	t[LCMP] = func(b *GraphBuilder) error { return b.genNormalizeCompare(KindLong, false) }
	t[FCMPL] = func(b *GraphBuilder) error { return b.genNormalizeCompare(KindFloat, true) }
	t[FCMPG] = func(b *GraphBuilder) error { return b.genNormalizeCompare(KindFloat, false) }
	t[DCMPL] = func(b *GraphBuilder) error { return b.genNormalizeCompare(KindDouble, true) }
	t[DCMPG] = func(b *GraphBuilder) error { return b.genNormalizeCompare(KindDouble, false) }

	conditions := []Condition{CondEQ, CondNE, CondLT, CondGE, CondGT, CondLE}
	for i, cond := range conditions {
		c := cond
		t[IFEQ+ByteCode(i)] = func(b *GraphBuilder) error { return b.genIfZero(c) }
		t[IF_ICMPEQ+ByteCode(i)] = func(b *GraphBuilder) error { return b.genIfSame(KindInt, c) }
	}
	t[IF_ACMPEQ] = func(b *GraphBuilder) error { return b.genIfSame(KindObject, CondEQ) }
	t[IF_ACMPNE] = func(b *GraphBuilder) error { return b.genIfSame(KindObject, CondNE) }
	t[IFNULL] = func(b *GraphBuilder) error { return b.genIfNull(CondEQ) }
	t[IFNONNULL] = func(b *GraphBuilder) error { return b.genIfNull(CondNE) }

	t[GOTO] = func(b *GraphBuilder) error { return b.genGoto(b.stream.ReadBranchDest()) }
	t[GOTO_W] = func(b *GraphBuilder) error { return b.genGoto(b.stream.ReadFarBranchDest()) }
	t[JSR] = func(b *GraphBuilder) error { return b.genJsr(b.stream.ReadBranchDest()) }
	t[JSR_W] = func(b *GraphBuilder) error { return b.genJsr(b.stream.ReadFarBranchDest()) }
	t[RET] = (*GraphBuilder).genRet
	t[TABLESWITCH] = (*GraphBuilder).genTableSwitch
	t[LOOKUPSWITCH] = (*GraphBuilder).genLookupSwitch

	returnKinds := []Kind{KindInt, KindLong, KindFloat, KindDouble, KindObject}
	for i, kind := range returnKinds {
		k := kind
		t[IRETURN+ByteCode(i)] = func(b *GraphBuilder) error { return b.genReturn(k) }
	}
	t[RETURN] = func(b *GraphBuilder) error { return b.genReturn(KindVoid) }

	t[GETSTATIC] = (*GraphBuilder).genGetStatic
	t[PUTSTATIC] = (*GraphBuilder).genPutStatic
	t[GETFIELD] = (*GraphBuilder).genGetField
	t[PUTFIELD] = (*GraphBuilder).genPutField
	for _, op := range []ByteCode{INVOKEVIRTUAL, INVOKESPECIAL, INVOKESTATIC, INVOKEINTERFACE} {
		op := op
		t[op] = func(b *GraphBuilder) error { return b.genInvoke(op) }
	}
	t[NEW] = (*GraphBuilder).genNewInstance
	t[NEWARRAY] = (*GraphBuilder).genNewTypeArray
	t[ANEWARRAY] = (*GraphBuilder).genNewObjectArray
	t[MULTIANEWARRAY] = (*GraphBuilder).genNewMultiArray
	t[ARRAYLENGTH] = (*GraphBuilder).genArrayLength
	t[ATHROW] = (*GraphBuilder).genThrow
	t[CHECKCAST] = (*GraphBuilder).genCheckCast
	t[INSTANCEOF] = (*GraphBuilder).genInstanceOf
	t[MONITORENTER] = (*GraphBuilder).genMonitorEnter
	t[MONITOREXIT] = (*GraphBuilder).genMonitorExit
}
