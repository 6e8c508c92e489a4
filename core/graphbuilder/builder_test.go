package graphbuilder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBuild(t *testing.T, m Method, pool ConstantPool) *Graph {
	t.Helper()
	g, err := BuildGraph(m, pool, nil, nil)
	require.NoError(t, err)
	return g
}

func TestBuildStraightLine(t *testing.T) {
	code := []byte{
		byte(ICONST_1),
		byte(ICONST_2),
		byte(IADD),
		byte(IRETURN),
	}
	m := staticMethod(code, 0, 2, testSignature{ret: KindInt})
	g := mustBuild(t, m, emptyPool)

	assert.Zero(t, countOp(g, OpMerge))
	assert.Zero(t, countOp(g, OpPhi))
	assert.Zero(t, countOp(g, OpLoopBegin))
	adds := nodesWithOp(g, OpAdd)
	require.Len(t, adds, 1)
	rets := nodesWithOp(g, OpReturn)
	require.Len(t, rets, 1)
	require.Equal(t, []NodeID{adds[0]}, g.At(rets[0]).Inputs())
	assert.True(t, g.Cacheable())
}

func TestBuildDiamondCreatesPhi(t *testing.T) {
	code := []byte{
		byte(ICONST_1),
		byte(IFEQ), 0x00, 0x06, // -> 7
		byte(ICONST_2),
		byte(GOTO), 0x00, 0x03, // -> 8
		byte(ICONST_3),
		byte(IRETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindInt})
	g := mustBuild(t, m, emptyPool)

	require.Equal(t, 1, countOp(g, OpMerge))
	require.Equal(t, 1, countOp(g, OpIf))
	phis := nodesWithOp(g, OpPhi)
	require.Len(t, phis, 1)
	phi := g.At(phis[0])
	require.Len(t, phi.Inputs(), 2)
	var values []int64
	for _, in := range phi.Inputs() {
		c, ok := constantValueOf(g, in)
		require.True(t, ok, "phi input must be a constant")
		values = append(values, c.I)
	}
	assert.ElementsMatch(t, []int64{2, 3}, values)

	rets := nodesWithOp(g, OpReturn)
	require.Len(t, rets, 1)
	assert.Equal(t, phis[0], g.At(rets[0]).Inputs()[0])
}

func TestBuildCountingLoop(t *testing.T) {
	code := []byte{
		byte(ICONST_0),
		byte(ISTORE_0),
		byte(ILOAD_0), // 2, loop header
		byte(BIPUSH), 10,
		byte(IF_ICMPGE), 0x00, 0x08, // -> 13
		byte(IINC), 0, 1,
		byte(GOTO), 0xff, 0xf7, // -> 2
		byte(RETURN),
	}
	m := staticMethod(code, 1, 2, testSignature{ret: KindVoid})
	g := mustBuild(t, m, emptyPool)

	begins := nodesWithOp(g, OpLoopBegin)
	require.Len(t, begins, 1)
	ends := nodesWithOp(g, OpLoopEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, begins[0], g.At(ends[0]).MergeOf())

	phis := g.phisAt(begins[0])
	require.Len(t, phis, 1, "only the counter local is live around the loop")
	in := g.At(phis[0]).Inputs()
	require.Len(t, in, 2)
	c, ok := constantValueOf(g, in[0])
	require.True(t, ok)
	assert.Equal(t, int64(0), c.I)
	assert.Equal(t, OpAdd, g.At(in[1]).Op())
}

func TestBuildSealedLoopPhisAreStable(t *testing.T) {
	code := []byte{
		byte(ICONST_0),
		byte(ISTORE_0),
		byte(ILOAD_0), // 2, loop header
		byte(BIPUSH), 10,
		byte(IF_ICMPGE), 0x00, 0x08, // -> 13
		byte(IINC), 0, 1,
		byte(GOTO), 0xff, 0xf7, // -> 2
		byte(RETURN),
	}
	m := staticMethod(code, 1, 2, testSignature{ret: KindVoid})
	b := NewGraphBuilder(m, emptyPool, nil, nil)
	g, err := b.Build()
	require.NoError(t, err)

	begins := nodesWithOp(g, OpLoopBegin)
	require.Len(t, begins, 1)
	phis := g.phisAt(begins[0])
	require.Len(t, phis, 1)
	before := append([]NodeID(nil), g.At(phis[0]).Inputs()...)

	require.NoError(t, b.sealLoops())
	assert.Equal(t, before, g.At(phis[0]).Inputs(), "a sealed loop must not fold its back edge state twice")
}

func TestBuildDispatchesExceptionEdge(t *testing.T) {
	thrown := &testType{name: "T", initialized: true}
	caught := &testType{name: "E", initialized: true}
	code := []byte{
		byte(NEW), 0x00, 0x01,
		byte(POP),
		byte(RETURN),
		byte(POP), // 5, handler entry
		byte(RETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	m.handlers = []ExceptionHandler{{StartBCI: 0, EndBCI: 4, HandlerBCI: 5, CatchType: caught}}
	pool := &testPool{types: map[int]TypeRef{1: thrown}}
	g := mustBuild(t, m, pool)

	allocs := nodesWithOp(g, OpNewInstance)
	require.Len(t, allocs, 1)
	succ := g.At(allocs[0]).Successors()
	require.Len(t, succ, 2, "allocation inside a try range needs an exception edge")
	require.NotEqual(t, InvalidID, succ[1])
	ex := g.At(succ[1])
	require.Equal(t, OpExceptionObject, ex.Op())
	require.NotNil(t, ex.StateAfter())
	assert.Equal(t, 1, ex.StateAfter().StackSize())

	assert.Equal(t, 1, countOp(g, OpInstanceOf), "dispatch tests the exception against the catch type")
	assert.Equal(t, 1, countOp(g, OpUnwind))
	assert.Equal(t, 1, countOp(g, OpReturn), "both returns funnel through the shared return block")
}

func TestBuildTrapCheckEntersCoveringHandler(t *testing.T) {
	code := []byte{
		byte(ALOAD_0),
		byte(ICONST_0),
		byte(IALOAD),
		byte(IRETURN),
		byte(POP), // 4, catch-all handler
		byte(ICONST_1),
		byte(IRETURN),
	}
	m := instanceMethod(code, 1, 2, testSignature{ret: KindInt})
	m.handlers = []ExceptionHandler{{StartBCI: 0, EndBCI: 3, HandlerBCI: 4}}
	g := mustBuild(t, m, emptyPool)

	// The null and bounds checks each split control flow into the dispatch
	// chain instead of ending it.
	require.Equal(t, 2, countOp(g, OpIf))
	require.Equal(t, 2, countOp(g, OpCreateException))
	assert.Zero(t, countOp(g, OpDeoptimize))
	assert.Zero(t, countOp(g, OpUnwind), "the catch-all covers every trap site")

	// The handler body is translated and meets the normal path at the
	// shared return.
	rets := nodesWithOp(g, OpReturn)
	require.Len(t, rets, 1)
	phi := g.At(g.At(rets[0]).Inputs()[0])
	require.Equal(t, OpPhi, phi.Op())
	require.Len(t, phi.Inputs(), 2)
	c, ok := constantValueOf(g, phi.Inputs()[0])
	require.True(t, ok)
	assert.Equal(t, int64(1), c.I)
	loads := nodesWithOp(g, OpLoadIndexed)
	require.Len(t, loads, 1)
	assert.Equal(t, loads[0], phi.Inputs()[1])
}

func TestBuildUncoveredTrapCheckUnwinds(t *testing.T) {
	code := []byte{
		byte(ILOAD_0),
		byte(ILOAD_1),
		byte(IDIV),
		byte(IRETURN),
	}
	m := staticMethod(code, 2, 2, testSignature{args: []Kind{KindInt, KindInt}, ret: KindInt})
	g := mustBuild(t, m, emptyPool)

	require.Equal(t, 1, countOp(g, OpIf))
	exs := nodesWithOp(g, OpCreateException)
	require.Len(t, exs, 1)
	unwinds := nodesWithOp(g, OpUnwind)
	require.Len(t, unwinds, 1)
	assert.Equal(t, exs[0], g.At(unwinds[0]).Inputs()[0])
	assert.Equal(t, 1, countOp(g, OpReturn))
}

func TestBuildUnresolvedStaticFieldDeoptimizes(t *testing.T) {
	code := []byte{
		byte(GETSTATIC), 0x00, 0x01,
		byte(IRETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindInt})
	pool := &testPool{fields: map[int]FieldRef{
		1: unresolvedField{name: "x", kind: KindInt, holder: unresolvedType{name: "H"}},
	}}
	g := mustBuild(t, m, pool)

	require.Equal(t, 1, countOp(g, OpDeoptimize))
	assert.False(t, g.Cacheable(), "a graph with a resolution deopt must not be cached")
	rets := nodesWithOp(g, OpReturn)
	require.Len(t, rets, 1)
	c, ok := constantValueOf(g, g.At(rets[0]).Inputs()[0])
	require.True(t, ok, "the unresolved load is replaced by the kind's default value")
	assert.Equal(t, int64(0), c.I)
}

func TestBuildStaticFinalFieldFolds(t *testing.T) {
	answer := IntConstant(42)
	holder := &testType{name: "C", initialized: true}
	code := []byte{
		byte(GETSTATIC), 0x00, 0x01,
		byte(IRETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindInt})
	pool := &testPool{fields: map[int]FieldRef{
		1: &testField{name: "ANSWER", kind: KindInt, holder: holder, static: true, final: true, constant: &answer},
	}}
	g := mustBuild(t, m, pool)

	assert.Zero(t, countOp(g, OpLoadField))
	rets := nodesWithOp(g, OpReturn)
	require.Len(t, rets, 1)
	c, ok := constantValueOf(g, g.At(rets[0]).Inputs()[0])
	require.True(t, ok)
	assert.Equal(t, int64(42), c.I)
	assert.True(t, g.Cacheable())
}

func TestBuildUnbalancedMonitorsFailVerification(t *testing.T) {
	code := []byte{
		byte(ALOAD_0),
		byte(MONITORENTER),
		byte(ALOAD_0),
		byte(MONITORENTER),
		byte(ALOAD_0),
		byte(MONITOREXIT),
		byte(RETURN),
	}
	m := instanceMethod(code, 1, 1, testSignature{ret: KindVoid})
	_, err := BuildGraph(m, emptyPool, nil, nil)
	require.ErrorIs(t, err, ErrVerificationFailure)
}

func TestBuildBranchIntoOperandIsMalformed(t *testing.T) {
	code := []byte{byte(GOTO), 0x00, 0x02}
	m := staticMethod(code, 0, 0, testSignature{ret: KindVoid})
	_, err := BuildGraph(m, emptyPool, nil, nil)
	require.ErrorIs(t, err, ErrMalformedControlFlow)
	var bail *Bailout
	require.True(t, errors.As(err, &bail))
	assert.Equal(t, 0, bail.BCI)
}

func TestBuildFallOffEndIsMalformed(t *testing.T) {
	code := []byte{byte(NOP)}
	m := staticMethod(code, 0, 0, testSignature{ret: KindVoid})
	_, err := BuildGraph(m, emptyPool, nil, nil)
	require.ErrorIs(t, err, ErrMalformedControlFlow)
}

func TestBuildTrailingConditionalBranchIsMalformed(t *testing.T) {
	code := []byte{byte(ICONST_0), byte(IFEQ), 0xff, 0xff}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	_, err := BuildGraph(m, emptyPool, nil, nil)
	require.ErrorIs(t, err, ErrMalformedControlFlow)
}

func TestBuildTrailingJsrIsMalformed(t *testing.T) {
	code := []byte{byte(JSR), 0x00, 0x00}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	_, err := BuildGraph(m, emptyPool, nil, nil)
	require.ErrorIs(t, err, ErrMalformedControlFlow)
}

func TestBuildTruncatedSwitchIsMalformed(t *testing.T) {
	for _, op := range []ByteCode{TABLESWITCH, LOOKUPSWITCH} {
		m := staticMethod([]byte{byte(op)}, 0, 1, testSignature{ret: KindVoid})
		_, err := BuildGraph(m, emptyPool, nil, nil)
		require.ErrorIs(t, err, ErrMalformedControlFlow, NameOf(op))
	}
}

func TestBuildTrailingWidePrefixIsMalformed(t *testing.T) {
	m := staticMethod([]byte{byte(WIDE)}, 0, 0, testSignature{ret: KindVoid})
	_, err := BuildGraph(m, emptyPool, nil, nil)
	require.ErrorIs(t, err, ErrMalformedControlFlow)
}

func TestBuildStackUnderflowFailsVerification(t *testing.T) {
	code := []byte{byte(POP), byte(RETURN)}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	_, err := BuildGraph(m, emptyPool, nil, nil)
	require.ErrorIs(t, err, ErrVerificationFailure)
	var bail *Bailout
	require.True(t, errors.As(err, &bail))
	assert.Equal(t, 0, bail.BCI)
}

func TestBuildSubroutineRoundTrip(t *testing.T) {
	code := []byte{
		byte(JSR), 0x00, 0x04, // -> 4
		byte(RETURN),
		byte(ASTORE_0), // 4, subroutine entry
		byte(RET), 0,
	}
	m := staticMethod(code, 1, 1, testSignature{ret: KindVoid})
	g := mustBuild(t, m, emptyPool)

	assert.Zero(t, countOp(g, OpUnwind))
	assert.Equal(t, 1, countOp(g, OpReturn))
}

func TestBuildConflictingSubroutineScopesUnsupported(t *testing.T) {
	code := []byte{
		byte(JSR), 0x00, 0x06, // -> 6
		byte(JSR), 0x00, 0x03, // -> 6
		byte(ASTORE_0), // 6, entered from two call sites
		byte(RET), 0,
	}
	m := staticMethod(code, 1, 1, testSignature{ret: KindVoid})
	_, err := BuildGraph(m, emptyPool, nil, nil)
	require.ErrorIs(t, err, ErrUnsupportedControlFlow)
}

func TestBuildSynchronizedMethodBracketsMonitor(t *testing.T) {
	code := []byte{byte(RETURN)}
	m := instanceMethod(code, 1, 1, testSignature{ret: KindVoid})
	m.synced = true
	g := mustBuild(t, m, emptyPool)

	enters := nodesWithOp(g, OpMonitorEnter)
	require.Len(t, enters, 1)
	assert.Equal(t, syncEntryBCI, g.At(enters[0]).BCI())
	recv := g.At(enters[0]).Inputs()[0]
	assert.Equal(t, OpParameter, g.At(recv).Op())
	assert.Equal(t, 1, countOp(g, OpMonitorExit))
}

func TestBuildTableSwitch(t *testing.T) {
	code := []byte{
		byte(ILOAD_0),
		byte(TABLESWITCH), 0, 0, // padding to offset 4
		0, 0, 0, 27, // default -> 28
		0, 0, 0, 0, // low
		0, 0, 0, 1, // high
		0, 0, 0, 23, // case 0 -> 24
		0, 0, 0, 25, // case 1 -> 26
		byte(ICONST_1), byte(IRETURN),
		byte(ICONST_2), byte(IRETURN),
		byte(ICONST_3), byte(IRETURN),
	}
	m := staticMethod(code, 1, 1, testSignature{args: []Kind{KindInt}, ret: KindInt})
	g := mustBuild(t, m, emptyPool)

	switches := nodesWithOp(g, OpTableSwitch)
	require.Len(t, switches, 1)
	sw := g.At(switches[0])
	require.Len(t, sw.Successors(), 3)
	assert.Equal(t, int32(0), sw.low)
	require.Len(t, sw.prob, 3)

	phis := nodesWithOp(g, OpPhi)
	require.Len(t, phis, 1)
	assert.Len(t, g.At(phis[0]).Inputs(), 3, "all three arms feed the shared return")
}

func TestBuildDevirtualizesExactReceiver(t *testing.T) {
	target := &testType{name: "T", initialized: true}
	callee := &testMethod{
		name: "m", code: []byte{byte(RETURN)}, sig: testSignature{ret: KindVoid}, holder: target,
	}
	code := []byte{
		byte(NEW), 0x00, 0x01,
		byte(INVOKEVIRTUAL), 0x00, 0x02,
		byte(RETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindVoid})
	pool := &testPool{
		types:   map[int]TypeRef{1: target},
		methods: map[int]MethodRef{2: callee},
	}
	g := mustBuild(t, m, pool)

	invokes := nodesWithOp(g, OpInvoke)
	require.Len(t, invokes, 1)
	n := g.At(invokes[0])
	assert.True(t, n.IsDirectCall(), "a freshly allocated receiver has an exact type")
	assert.Equal(t, INVOKEVIRTUAL, n.InvokeBC())
}

func TestBuildVirtualCallOnUnknownReceiverStaysIndirect(t *testing.T) {
	callee := &testMethod{
		name: "m", code: []byte{byte(ICONST_0), byte(IRETURN)},
		sig: testSignature{ret: KindInt}, holder: objectType,
	}
	code := []byte{
		byte(ALOAD_0),
		byte(INVOKEVIRTUAL), 0x00, 0x01,
		byte(IRETURN),
	}
	m := instanceMethod(code, 1, 1, testSignature{ret: KindInt})
	pool := &testPool{methods: map[int]MethodRef{1: callee}}
	g := mustBuild(t, m, pool)

	invokes := nodesWithOp(g, OpInvoke)
	require.Len(t, invokes, 1)
	assert.False(t, g.At(invokes[0]).IsDirectCall())
}

func TestBuildUnresolvedInvokeDeoptimizes(t *testing.T) {
	code := []byte{
		byte(INVOKESTATIC), 0x00, 0x01,
		byte(IRETURN),
	}
	m := staticMethod(code, 0, 1, testSignature{ret: KindInt})
	pool := &testPool{methods: map[int]MethodRef{
		1: unresolvedMethod{name: "gone", sig: testSignature{ret: KindInt}, holder: unresolvedType{name: "H"}},
	}}
	g := mustBuild(t, m, pool)

	require.Equal(t, 1, countOp(g, OpDeoptimize))
	assert.Zero(t, countOp(g, OpInvoke))
	assert.False(t, g.Cacheable())
}

func TestBuildTwiceOnOneBuilderPanics(t *testing.T) {
	m := staticMethod([]byte{byte(RETURN)}, 0, 0, testSignature{ret: KindVoid})
	b := NewGraphBuilder(m, emptyPool, nil, nil)
	_, err := b.Build()
	require.NoError(t, err)
	assert.Panics(t, func() { b.Build() })
}
