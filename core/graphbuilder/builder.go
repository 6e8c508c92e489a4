package graphbuilder

// GraphBuilder translates one routine's bytecode into a graph. A builder is
// single-use: Build may be called once.
//
// Construction runs in two passes. The block map partitions the bytecode and
// numbers blocks in reverse postorder; the worklist then translates blocks in
// ascending number order, so every forward predecessor of a block is
// translated before the block itself. Control edges into untranslated blocks
// go through placeholders that are promoted to merges on the second arrival,
// which is when phis first become necessary. Loop headers get their loop
// begin, loop end and phis on first touch; back edge states are folded in by
// a post-pass once the loop body is complete.
type GraphBuilder struct {
	method  Method
	pool    ConstantPool
	profile ProfilingOracle
	opts    *Options

	graph    *Graph
	blockMap *BlockMap
	stream   *BytecodeStream
	work     *workList
	loops    map[*Block]*loopInfo

	curBlock   *Block
	frame      *FrameState
	lastInstr  NodeID
	blockEnded bool
	built      bool
}

type loopInfo struct {
	begin     NodeID
	end       NodeID
	backMerge NodeID
	backState *FrameState
	sealed    bool
}

// NewGraphBuilder returns a builder for one routine. profile and opts may be
// nil, in which case no profile is used and the default options apply.
func NewGraphBuilder(m Method, pool ConstantPool, profile ProfilingOracle, opts *Options) *GraphBuilder {
	if profile == nil {
		profile = NoProfile{}
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return &GraphBuilder{
		method:  m,
		pool:    pool,
		profile: profile,
		opts:    opts,
		loops:   make(map[*Block]*loopInfo),
	}
}

// BuildGraph translates m in one call.
func BuildGraph(m Method, pool ConstantPool, profile ProfilingOracle, opts *Options) (*Graph, error) {
	return NewGraphBuilder(m, pool, profile, opts).Build()
}

// Build runs the translation and returns the completed graph. A returned
// error always unwraps to one of the Err* sentinels; no partial graph
// accompanies it.
func (b *GraphBuilder) Build() (*Graph, error) {
	if b.built {
		panic("graphbuilder: Build called twice")
	}
	b.built = true
	bm, err := buildBlockMap(b.method)
	if err != nil {
		bailoutCounter.Inc(1)
		return nil, err
	}
	b.blockMap = bm
	b.graph = NewGraph()
	b.stream = NewBytecodeStream(b.method.Code())
	b.work = newWorkList()
	if err := b.run(); err != nil {
		bailoutCounter.Inc(1)
		return nil, err
	}
	builtCounter.Inc(1)
	return b.graph, nil
}

func (b *GraphBuilder) run() error {
	g := b.graph
	b.frame = b.entryFrame()
	if reason := b.frame.failure(); reason != "" {
		return verificationFailure(0, "%s", reason)
	}
	b.lastInstr = g.Start()
	if b.method.IsSynchronized() {
		var obj NodeID
		if b.method.IsStatic() {
			obj = g.uniqueConstant(ObjectConstant(b.method.HolderType()))
		} else {
			obj = b.frame.LocalAt(0)
		}
		b.genMonitorEnterAt(obj, syncEntryBCI)
	}
	target, err := b.createTarget(b.blockMap.blockAt(0), b.frame)
	if err != nil {
		return err
	}
	g.setNext(b.lastInstr, target)
	if err := b.iterateAllBlocks(); err != nil {
		return err
	}
	if err := b.sealLoops(); err != nil {
		return err
	}
	b.cleanup()
	return nil
}

func (b *GraphBuilder) entryFrame() *FrameState {
	g := b.graph
	m := b.method
	f := newFrameState(m.MaxLocals(), m.MaxStackSize())
	slot := 0
	index := int32(0)
	place := func(k Kind) {
		if slot+k.Slots() > len(f.locals) {
			f.failf("routine declares %d local slots, arguments need more", len(f.locals))
			return
		}
		p := g.newValue(OpParameter, k, 0)
		g.At(p).aux = index
		f.locals[slot] = p
		slot += k.Slots()
		index++
	}
	if !m.IsStatic() {
		place(KindObject)
	}
	sig := m.Signature()
	for i := 0; i < sig.ArgumentCount(); i++ {
		place(sig.ArgumentKindAt(i).StackKind())
	}
	return f
}

func (b *GraphBuilder) iterateAllBlocks() error {
	for !b.work.empty() {
		block := b.work.pop()
		debugf("translating block %d at bci %d", block.id, block.startBCI)
		b.curBlock = block
		b.frame = block.entryState.duplicate()
		b.lastInstr = block.firstInstruction
		b.blockEnded = false
		var err error
		switch {
		case block.isReturnBlock:
			err = b.translateReturn()
		case block.isUnwindBlock:
			err = b.translateUnwind()
		case block.isExceptionDispatch:
			err = b.translateDispatch(block)
		default:
			err = b.iterateBytecodes(block)
		}
		if err != nil {
			return err
		}
		if reason := b.frame.failure(); reason != "" {
			return verificationFailure(block.startBCI, "%s", reason)
		}
	}
	return nil
}

func (b *GraphBuilder) iterateBytecodes(block *Block) error {
	g := b.graph
	s := b.stream
	s.SetBCI(block.startBCI)
	for !b.blockEnded && s.CurrentBCI() <= block.endBCI {
		bci := s.CurrentBCI()
		prev := b.lastInstr
		rule := dispatchTable[s.CurrentBC()]
		if rule == nil {
			return malformedControlFlow(bci, "unexpected opcode %s", NameOf(s.CurrentBC()))
		}
		if err := rule(b); err != nil {
			return err
		}
		if reason := b.frame.failure(); reason != "" {
			return verificationFailure(bci, "%s", reason)
		}
		if b.lastInstr != prev {
			if n := g.At(b.lastInstr); needsStateAfter(n.op) && n.state == nil {
				n.state = b.frame.duplicate()
			}
		}
		s.Next()
	}
	if !b.blockEnded {
		target, err := b.createTarget(b.blockMap.blockAt(s.CurrentBCI()), b.frame)
		if err != nil {
			return err
		}
		b.appendGoto(target)
	}
	return nil
}

// createTarget returns the node an edge to block should be wired to and
// folds state into the block's entry frame. First arrival plants a
// placeholder (or the loop skeleton for a loop header); later arrivals
// promote to a merge and return a fresh end node for the new edge.
func (b *GraphBuilder) createTarget(block *Block, state *FrameState) (NodeID, error) {
	g := b.graph
	if block.firstInstruction == InvalidID {
		if block.isLoopHeader {
			begin := g.newFixed(OpLoopBegin, KindIllegal, block.startBCI)
			loopEnd := g.newNode(OpLoopEnd, KindIllegal, block.startBCI)
			g.At(loopEnd).link = begin
			b.loops[block] = &loopInfo{begin: begin, end: loopEnd, backMerge: InvalidID}
			entry := state.duplicate()
			entry.insertLoopPhis(g, begin)
			block.entryState = entry
			g.At(begin).state = entry.duplicate()
			block.firstInstruction = begin
			fwd := g.newNode(OpEnd, KindIllegal, block.startBCI)
			g.addEnd(begin, fwd)
			b.work.add(block)
			return fwd, nil
		}
		ph := g.newFixed(OpPlaceholder, KindIllegal, block.startBCI)
		block.firstInstruction = ph
		block.entryState = state.duplicate()
		b.work.add(block)
		return ph, nil
	}

	if block.isLoopHeader && b.work.isVisited(block) {
		return b.createBackEdge(block, state)
	}

	if !block.entryState.isCompatibleWith(g, state) {
		return InvalidID, verificationFailure(block.startBCI, "incompatible frames at block entry")
	}
	var merge NodeID
	switch g.At(block.firstInstruction).op {
	case OpPlaceholder:
		// Second arrival: promote the placeholder to a merge. The
		// placeholder stays behind as the stub of the first incoming edge.
		merge = g.newFixed(OpMerge, KindIllegal, block.startBCI)
		oldNext := g.next(block.firstInstruction)
		stub := g.newNode(OpEnd, KindIllegal, block.startBCI)
		g.setNext(block.firstInstruction, stub)
		g.addEnd(merge, stub)
		if oldNext != InvalidID {
			g.setNext(merge, oldNext)
		}
		block.firstInstruction = merge
	case OpMerge, OpLoopBegin:
		merge = block.firstInstruction
	default:
		return InvalidID, verificationFailure(block.startBCI, "edge into the middle of a translated block")
	}
	end := g.newNode(OpEnd, KindIllegal, block.startBCI)
	g.addEnd(merge, end)
	if err := block.entryState.merge(g, merge, state); err != nil {
		return InvalidID, verificationFailure(block.startBCI, "%v", err)
	}
	b.work.add(block)
	return end, nil
}

func (b *GraphBuilder) createBackEdge(block *Block, state *FrameState) (NodeID, error) {
	g := b.graph
	li := b.loops[block]
	if !block.entryState.isCompatibleWith(g, state) {
		return InvalidID, verificationFailure(block.startBCI, "incompatible frames at loop back edge")
	}
	if li.backState == nil {
		li.backState = state.duplicate()
		return li.end, nil
	}
	if li.backMerge == InvalidID {
		// More than one back edge: funnel them through a merge feeding the
		// single loop end.
		merge := g.newFixed(OpMerge, KindIllegal, block.startBCI)
		pred := g.At(li.end).pred
		stub := g.newNode(OpEnd, KindIllegal, block.startBCI)
		g.redirectSucc(pred, li.end, stub)
		g.addEnd(merge, stub)
		g.setNext(merge, li.end)
		li.backMerge = merge
	}
	end := g.newNode(OpEnd, KindIllegal, block.startBCI)
	g.addEnd(li.backMerge, end)
	if err := li.backState.merge(g, li.backMerge, state); err != nil {
		return InvalidID, verificationFailure(block.startBCI, "%v", err)
	}
	return end, nil
}

// sealLoops folds each loop's back edge state into the phis created at its
// loop begin. A loop whose back edge was never reached degenerates into a
// plain merge. Sealing a loop is a one-shot transition; loops already sealed
// are skipped.
func (b *GraphBuilder) sealLoops() error {
	g := b.graph
	for block, li := range b.loops {
		if li.sealed {
			continue
		}
		li.sealed = true
		if li.backState == nil {
			warnf("loop header at bci %d has no reachable back edge, collapsing to a merge", block.startBCI)
			g.At(li.begin).op = OpMerge
			g.deleteNode(li.end)
			continue
		}
		if err := block.entryState.merge(g, li.begin, li.backState); err != nil {
			return verificationFailure(block.startBCI, "%v", err)
		}
	}
	return nil
}

// cleanup splices out placeholders and folds single-input phis into their
// operand. Runs once, after all blocks are translated and loops sealed.
func (b *GraphBuilder) cleanup() {
	g := b.graph
	for id := NodeID(0); int(id) < g.NodeCount(); id++ {
		if n := g.At(id); n.op == OpPhi && len(n.in) == 1 {
			g.replaceAndDelete(id, n.in[0])
		}
	}
	for id := NodeID(0); int(id) < g.NodeCount(); id++ {
		n := g.At(id)
		if n.op != OpPlaceholder {
			continue
		}
		if n.pred == InvalidID {
			g.deleteNode(id)
			continue
		}
		if next := g.next(id); next != InvalidID {
			g.replaceAndDelete(id, next)
		}
	}
}

func (b *GraphBuilder) bci() int { return b.stream.CurrentBCI() }

func (b *GraphBuilder) append(id NodeID) NodeID {
	b.graph.setNext(b.lastInstr, id)
	b.lastInstr = id
	return id
}

func (b *GraphBuilder) appendGoto(target NodeID) {
	b.graph.setNext(b.lastInstr, target)
	b.blockEnded = true
}

// endBlockWith wires a control sink or branching node as the block's last
// instruction.
func (b *GraphBuilder) endBlockWith(id NodeID) {
	b.graph.setNext(b.lastInstr, id)
	b.lastInstr = id
	b.blockEnded = true
}

func (b *GraphBuilder) appendDeopt(bci int, reason string) {
	g := b.graph
	d := g.newFixed(OpDeoptimize, KindVoid, bci)
	g.At(d).ref = reason
	g.At(d).state = b.frame.duplicate()
	b.append(d)
	g.markUncacheable()
	deoptCounter.Inc(1)
	debugf("deoptimization planted at bci %d: %s", bci, reason)
}

// Synthetic block translation.

func (b *GraphBuilder) translateReturn() error {
	g := b.graph
	kind := b.method.Signature().ReturnKind().StackKind()
	value := InvalidID
	if kind != KindVoid {
		value = b.frame.pop(g, kind)
		if value == InvalidID {
			return nil
		}
	}
	if b.method.IsSynchronized() {
		obj := b.frame.unlock()
		if obj == InvalidID {
			return nil
		}
		exit := g.newFixed(OpMonitorExit, KindVoid, returnBlockBCI, obj)
		g.At(exit).state = b.frame.duplicate()
		b.append(exit)
	}
	if b.frame.LockDepth() != 0 {
		return verificationFailure(returnBlockBCI, "unbalanced monitor state at return")
	}
	ret := g.newNode(OpReturn, kind, returnBlockBCI)
	if value != InvalidID {
		g.At(ret).in = []NodeID{value}
	}
	b.endBlockWith(ret)
	return nil
}

func (b *GraphBuilder) translateUnwind() error {
	g := b.graph
	ex := b.frame.apop(g)
	if ex == InvalidID {
		return nil
	}
	if b.method.IsSynchronized() {
		obj := b.frame.unlock()
		if obj == InvalidID {
			return nil
		}
		exit := g.newFixed(OpMonitorExit, KindVoid, unwindBlockBCI, obj)
		g.At(exit).state = b.frame.duplicate()
		b.append(exit)
	}
	unwind := g.newNode(OpUnwind, KindVoid, unwindBlockBCI)
	g.At(unwind).in = []NodeID{ex}
	b.endBlockWith(unwind)
	return nil
}

// translateDispatch emits one step of an exception dispatch chain: test the
// in-flight exception against the handler's catch type, enter the handler on
// a match and fall through to the next dispatch (or the unwind) otherwise.
func (b *GraphBuilder) translateDispatch(block *Block) error {
	g := b.graph
	h := block.handler
	bci := h.HandlerBCI
	ex := b.frame.apop(g)
	if ex == InvalidID {
		return nil
	}
	b.frame.push(g, KindObject, ex)
	entry := block.successors[0]
	if h.IsCatchAll() {
		target, err := b.createTarget(entry, b.frame)
		if err != nil {
			return err
		}
		b.appendGoto(target)
		return nil
	}
	rt := asResolvedType(h.CatchType)
	if rt == nil {
		// The catch type cannot be checked without resolving it; give the
		// handler everything and let the runtime sort it out after the
		// deoptimization.
		b.appendDeopt(bci, "unresolved catch type "+h.CatchType.Name())
		target, err := b.createTarget(entry, b.frame)
		if err != nil {
			return err
		}
		b.appendGoto(target)
		return nil
	}
	iof := g.newValue(OpInstanceOf, KindInt, bci, ex)
	g.At(iof).ref = rt
	ifNode := g.newNode(OpIf, KindIllegal, bci)
	g.At(ifNode).in = []NodeID{iof}
	g.At(ifNode).prob = []float64{0.5, 0.5}
	match, err := b.createTarget(entry, b.frame)
	if err != nil {
		return err
	}
	miss, err := b.createTarget(block.successors[1], b.frame)
	if err != nil {
		return err
	}
	g.setSucc(ifNode, 0, match)
	g.setSucc(ifNode, 1, miss)
	b.endBlockWith(ifNode)
	return nil
}

// attachExceptionEdge gives a throwing instruction its exceptional successor:
// an exception-object node that enters the block's dispatch chain.
func (b *GraphBuilder) attachExceptionEdge(id NodeID, bci int) error {
	entry := b.curBlock.dispatchEntry
	if entry == nil {
		return nil
	}
	g := b.graph
	ex := g.newFixed(OpExceptionObject, KindObject, bci)
	st := b.frame.duplicateWithEmptyStack()
	st.push(g, KindObject, ex)
	g.At(ex).state = st.duplicate()
	target, err := b.createTarget(entry, st)
	if err != nil {
		return err
	}
	g.setNext(ex, target)
	g.setSucc(id, 1, ex)
	return nil
}

// Explicit trap checks. All are gated on the policy option and on the block
// map's trap bitmap. A check is a control-flow split: the passing edge
// continues with the block, the failing edge materializes the exception and
// enters the block's dispatch chain like any other throwing instruction.

const trapEdgeProbability = 0.000001

func (b *GraphBuilder) emitTrapSplit(cond NodeID, bci int, reason string) error {
	g := b.graph
	ex := g.newFixed(OpCreateException, KindObject, bci)
	g.At(ex).ref = reason
	st := b.frame.duplicateWithEmptyStack()
	st.push(g, KindObject, ex)
	g.At(ex).state = st.duplicate()
	target, err := b.createTarget(b.curBlock.dispatchEntry, st)
	if err != nil {
		return err
	}
	g.setNext(ex, target)
	ifNode := g.newNode(OpIf, KindIllegal, bci)
	g.At(ifNode).in = []NodeID{cond}
	g.At(ifNode).prob = []float64{1 - trapEdgeProbability, trapEdgeProbability}
	g.setSucc(ifNode, 1, ex)
	b.append(ifNode)
	return nil
}

// alwaysNonNull reports whether a value is non-null without a check: a
// non-null object constant, a fresh allocation or an in-flight exception.
func alwaysNonNull(g *Graph, id NodeID) bool {
	n := g.At(id)
	switch n.op {
	case OpNewInstance, OpNewTypeArray, OpNewObjectArray, OpNewMultiArray,
		OpExceptionObject, OpCreateException:
		return true
	case OpConstant:
		return n.con.Kind == KindObject && !n.con.IsNull()
	}
	return false
}

func (b *GraphBuilder) emitNullCheck(obj NodeID, bci int) error {
	if !b.opts.AllowExplicitTrapChecks || !b.blockMap.canTrapAt(bci) || obj == InvalidID {
		return nil
	}
	g := b.graph
	if alwaysNonNull(g, obj) {
		return nil
	}
	cond := g.newValue(OpIsNonNull, KindInt, bci, obj)
	return b.emitTrapSplit(cond, bci, "null pointer dereference")
}

func (b *GraphBuilder) emitBoundsCheck(array, index NodeID, bci int) error {
	if !b.opts.AllowExplicitTrapChecks || !b.blockMap.canTrapAt(bci) || array == InvalidID || index == InvalidID {
		return nil
	}
	g := b.graph
	length := b.append(g.newFixed(OpArrayLength, KindInt, bci, array))
	cond := g.newValue(OpCompare, KindInt, bci, index, length)
	g.At(cond).cond = CondBT
	return b.emitTrapSplit(cond, bci, "array index out of bounds")
}

func (b *GraphBuilder) emitZeroCheck(divisor NodeID, kind Kind, bci int) error {
	if !b.opts.AllowExplicitTrapChecks || !b.blockMap.canTrapAt(bci) || divisor == InvalidID {
		return nil
	}
	g := b.graph
	var zero Constant
	if kind == KindLong {
		zero = LongConstant(0)
	} else {
		zero = IntConstant(0)
	}
	cond := g.newValue(OpCompare, KindInt, bci, divisor, g.uniqueConstant(zero))
	g.At(cond).cond = CondNE
	return b.emitTrapSplit(cond, bci, "division by zero")
}

// Per-bytecode translation rules, called through the dispatch table.

func (b *GraphBuilder) pushConstant(c Constant) {
	b.frame.push(b.graph, c.Kind.StackKind(), b.graph.uniqueConstant(c))
}

func (b *GraphBuilder) genLoadConstant() error {
	c := b.pool.LookupConstant(b.stream.ReadCPI())
	b.pushConstant(c)
	return nil
}

func (b *GraphBuilder) genLoadLocal(index int, kind Kind) error {
	v := b.frame.loadLocal(b.graph, index, kind)
	if v == InvalidID {
		return nil
	}
	b.frame.push(b.graph, kind, v)
	return nil
}

func (b *GraphBuilder) genStoreLocal(index int, kind Kind) error {
	g := b.graph
	var v NodeID
	if kind == KindObject {
		v = b.frame.popForObjectStore(g)
	} else {
		v = b.frame.pop(g, kind)
	}
	if v == InvalidID {
		return nil
	}
	b.frame.storeLocal(g, index, g.At(v).kind, v)
	return nil
}

func (b *GraphBuilder) genIinc() error {
	g := b.graph
	index := b.stream.ReadLocalIndex()
	delta := b.stream.ReadIncrement()
	v := b.frame.loadLocal(g, index, KindInt)
	if v == InvalidID {
		return nil
	}
	sum := g.newValue(OpAdd, KindInt, b.bci(), v, g.uniqueConstant(IntConstant(int64(delta))))
	b.frame.storeLocal(g, index, KindInt, sum)
	return nil
}

func (b *GraphBuilder) genArrayLoad(elemKind Kind) error {
	g := b.graph
	bci := b.bci()
	index := b.frame.ipop(g)
	array := b.frame.apop(g)
	if index == InvalidID || array == InvalidID {
		return nil
	}
	if err := b.emitNullCheck(array, bci); err != nil {
		return err
	}
	if err := b.emitBoundsCheck(array, index, bci); err != nil {
		return err
	}
	load := g.newFixed(OpLoadIndexed, elemKind.StackKind(), bci, array, index)
	g.At(load).aux = int32(elemKind)
	b.append(load)
	b.frame.push(g, elemKind, load)
	return nil
}

func (b *GraphBuilder) genArrayStore(elemKind Kind) error {
	g := b.graph
	bci := b.bci()
	value := b.frame.pop(g, elemKind)
	index := b.frame.ipop(g)
	array := b.frame.apop(g)
	if value == InvalidID || index == InvalidID || array == InvalidID {
		return nil
	}
	if err := b.emitNullCheck(array, bci); err != nil {
		return err
	}
	if err := b.emitBoundsCheck(array, index, bci); err != nil {
		return err
	}
	store := g.newFixed(OpStoreIndexed, KindVoid, bci, array, index, value)
	g.At(store).aux = int32(elemKind)
	b.append(store)
	return nil
}

func (b *GraphBuilder) genArithmetic(op Op, kind Kind) error {
	g := b.graph
	bci := b.bci()
	y := b.frame.pop(g, kind)
	x := b.frame.pop(g, kind)
	if x == InvalidID || y == InvalidID {
		return nil
	}
	if (op == OpDiv || op == OpRem) && (kind == KindInt || kind == KindLong) {
		if err := b.emitZeroCheck(y, kind, bci); err != nil {
			return err
		}
	}
	b.frame.push(g, kind, g.newValue(op, kind, bci, x, y))
	return nil
}

func (b *GraphBuilder) genNegate(kind Kind) error {
	g := b.graph
	v := b.frame.pop(g, kind)
	if v == InvalidID {
		return nil
	}
	b.frame.push(g, kind, g.newValue(OpNeg, kind, b.bci(), v))
	return nil
}

func (b *GraphBuilder) genShift(op Op, kind Kind) error {
	g := b.graph
	amount := b.frame.ipop(g)
	v := b.frame.pop(g, kind)
	if amount == InvalidID || v == InvalidID {
		return nil
	}
	b.frame.push(g, kind, g.newValue(op, kind, b.bci(), v, amount))
	return nil
}

func (b *GraphBuilder) genConvert(from, to Kind) error {
	g := b.graph
	v := b.frame.pop(g, from)
	if v == InvalidID {
		return nil
	}
	conv := g.newValue(OpConvert, to.StackKind(), b.bci(), v)
	g.At(conv).aux = int32(to)
	b.frame.push(g, to, conv)
	return nil
}

func (b *GraphBuilder) genNormalizeCompare(kind Kind, unorderedLess bool) error {
	g := b.graph
	y := b.frame.pop(g, kind)
	x := b.frame.pop(g, kind)
	if x == InvalidID || y == InvalidID {
		return nil
	}
	cmp := g.newValue(OpNormalizeCompare, KindInt, b.bci(), x, y)
	if unorderedLess {
		g.At(cmp).aux = 1
	}
	b.frame.push(g, KindInt, cmp)
	return nil
}

func (b *GraphBuilder) genIfZero(cond Condition) error {
	g := b.graph
	x := b.frame.ipop(g)
	if x == InvalidID {
		return nil
	}
	return b.genIf(x, g.uniqueConstant(IntConstant(0)), cond)
}

func (b *GraphBuilder) genIfNull(cond Condition) error {
	g := b.graph
	x := b.frame.apop(g)
	if x == InvalidID {
		return nil
	}
	return b.genIf(x, g.uniqueConstant(NullConstant), cond)
}

func (b *GraphBuilder) genIfSame(kind Kind, cond Condition) error {
	g := b.graph
	y := b.frame.pop(g, kind)
	x := b.frame.pop(g, kind)
	if x == InvalidID || y == InvalidID {
		return nil
	}
	return b.genIf(x, y, cond)
}

func (b *GraphBuilder) genIf(x, y NodeID, cond Condition) error {
	g := b.graph
	bci := b.bci()
	takenBCI := b.stream.ReadBranchDest()
	notTakenBCI := b.stream.NextBCI()
	cmp := g.newValue(OpCompare, KindInt, bci, x, y)
	g.At(cmp).cond = cond
	p := 0.5
	if b.opts.BranchPrediction {
		if q := b.profile.BranchProbability(bci); q >= 0 {
			p = q
		}
	}
	ifNode := g.newNode(OpIf, KindIllegal, bci)
	g.At(ifNode).in = []NodeID{cmp}
	g.At(ifNode).prob = []float64{p, 1 - p}
	taken, err := b.createTarget(b.blockMap.blockAt(takenBCI), b.frame)
	if err != nil {
		return err
	}
	notTaken, err := b.createTarget(b.blockMap.blockAt(notTakenBCI), b.frame)
	if err != nil {
		return err
	}
	g.setSucc(ifNode, 0, taken)
	g.setSucc(ifNode, 1, notTaken)
	b.endBlockWith(ifNode)
	return nil
}

func (b *GraphBuilder) genGoto(dest int) error {
	target, err := b.createTarget(b.blockMap.blockAt(dest), b.frame)
	if err != nil {
		return err
	}
	b.appendGoto(target)
	return nil
}

func (b *GraphBuilder) genTableSwitch() error {
	g := b.graph
	bci := b.bci()
	ts := newTableSwitch(b.stream, bci)
	value := b.frame.ipop(g)
	if value == InvalidID {
		return nil
	}
	cases := ts.numberOfCases()
	node := g.newNode(OpTableSwitch, KindIllegal, bci)
	g.At(node).in = []NodeID{value}
	g.At(node).low = int32(ts.lowKey())
	for i := 0; i < cases; i++ {
		target, err := b.createTarget(b.blockMap.blockAt(ts.targetAt(i)), b.frame)
		if err != nil {
			return err
		}
		g.setSucc(node, i, target)
	}
	dflt, err := b.createTarget(b.blockMap.blockAt(ts.defaultTarget()), b.frame)
	if err != nil {
		return err
	}
	g.setSucc(node, cases, dflt)
	g.At(node).prob = b.switchProbabilities(bci, cases+1)
	b.endBlockWith(node)
	return nil
}

func (b *GraphBuilder) genLookupSwitch() error {
	g := b.graph
	bci := b.bci()
	ls := newLookupSwitch(b.stream, bci)
	value := b.frame.ipop(g)
	if value == InvalidID {
		return nil
	}
	cases := ls.numberOfCases()
	node := g.newNode(OpLookupSwitch, KindIllegal, bci)
	g.At(node).in = []NodeID{value}
	keys := make([]int32, cases)
	for i := 0; i < cases; i++ {
		keys[i] = int32(ls.keyAt(i))
		target, err := b.createTarget(b.blockMap.blockAt(ls.targetAt(i)), b.frame)
		if err != nil {
			return err
		}
		g.setSucc(node, i, target)
	}
	g.At(node).keys = keys
	dflt, err := b.createTarget(b.blockMap.blockAt(ls.defaultTarget()), b.frame)
	if err != nil {
		return err
	}
	g.setSucc(node, cases, dflt)
	g.At(node).prob = b.switchProbabilities(bci, cases+1)
	b.endBlockWith(node)
	return nil
}

func (b *GraphBuilder) switchProbabilities(bci, successors int) []float64 {
	if b.opts.BranchPrediction {
		if ps := b.profile.SwitchProbabilities(bci, successors); len(ps) == successors {
			return ps
		}
	}
	ps := make([]float64, successors)
	for i := range ps {
		ps[i] = 1 / float64(successors)
	}
	return ps
}

func (b *GraphBuilder) genReturn(kind Kind) error {
	g := b.graph
	value := InvalidID
	if kind != KindVoid {
		value = b.frame.pop(g, kind)
		if value == InvalidID {
			return nil
		}
	}
	b.frame.clearStack()
	if value != InvalidID {
		b.frame.push(g, kind, value)
	}
	target, err := b.createTarget(b.blockMap.returnBlock, b.frame)
	if err != nil {
		return err
	}
	b.appendGoto(target)
	return nil
}

func (b *GraphBuilder) genThrow() error {
	g := b.graph
	bci := b.bci()
	ex := b.frame.apop(g)
	if ex == InvalidID {
		return nil
	}
	if err := b.emitNullCheck(ex, bci); err != nil {
		return err
	}
	st := b.frame.duplicateWithEmptyStack()
	st.push(g, KindObject, ex)
	target, err := b.createTarget(b.curBlock.dispatchEntry, st)
	if err != nil {
		return err
	}
	b.appendGoto(target)
	return nil
}

func (b *GraphBuilder) genJsr(dest int) error {
	bci := b.bci()
	succ := b.curBlock.jsrSucc
	if succ == nil || succ.startBCI != dest {
		return malformedControlFlow(bci, "jsr target %d does not begin a block", dest)
	}
	b.frame.push(b.graph, KindAddress, b.graph.uniqueConstant(jsrConstant(b.stream.NextBCI())))
	target, err := b.createTarget(succ, b.frame)
	if err != nil {
		return err
	}
	b.appendGoto(target)
	return nil
}

func (b *GraphBuilder) genRet() error {
	g := b.graph
	bci := b.bci()
	index := b.stream.ReadLocalIndex()
	v := b.frame.loadLocal(g, index, KindAddress)
	if v == InvalidID {
		return nil
	}
	scope := b.curBlock.scope
	n := g.At(v)
	if n.op != OpConstant || n.con.Kind != KindAddress || int(n.con.I) != scope.NextReturnAddress() {
		return unsupportedControlFlow(bci, "ret does not return to the active subroutine call site")
	}
	target, err := b.createTarget(b.curBlock.retSucc, b.frame)
	if err != nil {
		return err
	}
	b.appendGoto(target)
	return nil
}

func (b *GraphBuilder) genGetField() error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(GETFIELD))
	}
	field := b.pool.LookupField(cpi)
	obj := b.frame.apop(g)
	if obj == InvalidID {
		return nil
	}
	rf := asResolvedField(field)
	if rf == nil {
		b.appendDeopt(bci, "unresolved field "+field.Name())
		b.pushConstant(defaultForKind(field.Kind()))
		return nil
	}
	if err := b.emitNullCheck(obj, bci); err != nil {
		return err
	}
	load := g.newFixed(OpLoadField, field.Kind().StackKind(), bci, obj)
	g.At(load).ref = rf
	b.append(load)
	b.frame.push(g, field.Kind(), load)
	return nil
}

func (b *GraphBuilder) genPutField() error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(PUTFIELD))
	}
	field := b.pool.LookupField(cpi)
	value := b.frame.pop(g, field.Kind())
	obj := b.frame.apop(g)
	if value == InvalidID || obj == InvalidID {
		return nil
	}
	rf := asResolvedField(field)
	if rf == nil {
		b.appendDeopt(bci, "unresolved field "+field.Name())
		return nil
	}
	if err := b.emitNullCheck(obj, bci); err != nil {
		return err
	}
	store := g.newFixed(OpStoreField, KindVoid, bci, obj, value)
	g.At(store).ref = rf
	b.append(store)
	return nil
}

func (b *GraphBuilder) genGetStatic() error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(GETSTATIC))
	}
	field := b.pool.LookupField(cpi)
	rf := asResolvedField(field)
	if rf == nil || !rf.HolderType().IsInitialized() {
		b.appendDeopt(bci, "unresolved or uninitialized static field "+field.Name())
		b.pushConstant(defaultForKind(field.Kind()))
		return nil
	}
	if rf.IsFinal() {
		if c, ok := rf.ConstantValue(); ok {
			b.pushConstant(c)
			return nil
		}
	}
	load := g.newFixed(OpLoadField, field.Kind().StackKind(), bci)
	g.At(load).ref = rf
	b.append(load)
	b.frame.push(g, field.Kind(), load)
	return nil
}

func (b *GraphBuilder) genPutStatic() error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(PUTSTATIC))
	}
	field := b.pool.LookupField(cpi)
	value := b.frame.pop(g, field.Kind())
	if value == InvalidID {
		return nil
	}
	rf := asResolvedField(field)
	if rf == nil || !rf.HolderType().IsInitialized() {
		b.appendDeopt(bci, "unresolved or uninitialized static field "+field.Name())
		return nil
	}
	store := g.newFixed(OpStoreField, KindVoid, bci, value)
	g.At(store).ref = rf
	b.append(store)
	return nil
}

const invokeDirectFlag = 1 << 8

// IsDirectCall reports whether an Invoke node was bound to a single callee,
// either by its bytecode or by devirtualization.
func (n *Node) IsDirectCall() bool { return n.op == OpInvoke && n.aux&invokeDirectFlag != 0 }

// InvokeBC returns the invocation bytecode of an Invoke node.
func (n *Node) InvokeBC() ByteCode { return ByteCode(n.aux &^ invokeDirectFlag) }

func (b *GraphBuilder) genInvoke(opcode ByteCode) error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(opcode))
	}
	target := b.pool.LookupMethod(cpi, byte(opcode))
	sig := target.Signature()
	hasReceiver := opcode != INVOKESTATIC
	args := b.frame.popArguments(sig.ArgumentSlots(hasReceiver))
	if b.frame.failure() != "" {
		return nil
	}
	retKind := sig.ReturnKind()
	rm := asResolvedMethod(target)
	if rm == nil {
		b.appendDeopt(bci, "unresolved method "+target.Name())
		if retKind != KindVoid {
			b.pushConstant(defaultForKind(retKind))
		}
		return nil
	}
	direct := opcode == INVOKESTATIC || opcode == INVOKESPECIAL || rm.CanBeStaticallyBound()
	if !direct && hasReceiver && len(args) > 0 {
		if b.exactReceiverType(args[0], rm) != nil {
			direct = true
		}
	}
	if hasReceiver && len(args) > 0 {
		if err := b.emitNullCheck(args[0], bci); err != nil {
			return err
		}
	}
	invoke := g.newFixed(OpInvoke, retKind.StackKind(), bci, args...)
	n := g.At(invoke)
	n.ref = rm
	n.aux = int32(opcode)
	if direct {
		g.At(invoke).aux |= invokeDirectFlag
	}
	b.append(invoke)
	if err := b.attachExceptionEdge(invoke, bci); err != nil {
		return err
	}
	if retKind != KindVoid {
		b.frame.push(g, retKind, invoke)
	}
	return nil
}

// exactReceiverType returns the only possible runtime type of the receiver,
// or nil when the type is not exact. An allocation is exact by construction;
// otherwise the callee's holder may admit a single concrete type.
func (b *GraphBuilder) exactReceiverType(recv NodeID, callee Method) ResolvedType {
	n := b.graph.At(recv)
	if n.op == OpNewInstance {
		if rt, ok := n.ref.(ResolvedType); ok {
			return rt
		}
	}
	if ht := callee.HolderType(); ht != nil {
		return ht.ExactType()
	}
	return nil
}

func (b *GraphBuilder) genNewInstance() error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(NEW))
	}
	t := b.pool.LookupType(cpi)
	rt := asResolvedType(t)
	if rt == nil || !rt.IsInitialized() {
		b.appendDeopt(bci, "unresolved or uninitialized type "+t.Name())
		b.pushConstant(NullConstant)
		return nil
	}
	alloc := g.newFixed(OpNewInstance, KindObject, bci)
	g.At(alloc).ref = rt
	b.append(alloc)
	if err := b.attachExceptionEdge(alloc, bci); err != nil {
		return err
	}
	b.frame.push(g, KindObject, alloc)
	return nil
}

// elementKinds maps the operand of NEWARRAY to the array's element kind.
var elementKinds = map[int]Kind{
	4: KindBoolean, 5: KindChar, 6: KindFloat, 7: KindDouble,
	8: KindByte, 9: KindShort, 10: KindInt, 11: KindLong,
}

func (b *GraphBuilder) genNewTypeArray() error {
	g := b.graph
	bci := b.bci()
	elem, ok := elementKinds[b.stream.ReadUByte(bci+1)]
	if !ok {
		return malformedControlFlow(bci, "newarray with invalid element type %d", b.stream.ReadUByte(bci+1))
	}
	length := b.frame.ipop(g)
	if length == InvalidID {
		return nil
	}
	alloc := g.newFixed(OpNewTypeArray, KindObject, bci, length)
	g.At(alloc).aux = int32(elem)
	b.append(alloc)
	if err := b.attachExceptionEdge(alloc, bci); err != nil {
		return err
	}
	b.frame.push(g, KindObject, alloc)
	return nil
}

func (b *GraphBuilder) genNewObjectArray() error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(ANEWARRAY))
	}
	t := b.pool.LookupType(cpi)
	length := b.frame.ipop(g)
	if length == InvalidID {
		return nil
	}
	rt := asResolvedType(t)
	if rt == nil {
		b.appendDeopt(bci, "unresolved array element type "+t.Name())
		b.pushConstant(NullConstant)
		return nil
	}
	alloc := g.newFixed(OpNewObjectArray, KindObject, bci, length)
	g.At(alloc).ref = rt
	b.append(alloc)
	if err := b.attachExceptionEdge(alloc, bci); err != nil {
		return err
	}
	b.frame.push(g, KindObject, alloc)
	return nil
}

func (b *GraphBuilder) genNewMultiArray() error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(MULTIANEWARRAY))
	}
	t := b.pool.LookupType(cpi)
	rank := b.stream.ReadUByte(bci + 3)
	if rank < 1 {
		return malformedControlFlow(bci, "multianewarray with rank %d", rank)
	}
	dims := make([]NodeID, rank)
	for i := rank - 1; i >= 0; i-- {
		dims[i] = b.frame.ipop(g)
		if dims[i] == InvalidID {
			return nil
		}
	}
	rt := asResolvedType(t)
	if rt == nil {
		b.appendDeopt(bci, "unresolved array type "+t.Name())
		b.pushConstant(NullConstant)
		return nil
	}
	alloc := g.newFixed(OpNewMultiArray, KindObject, bci, dims...)
	g.At(alloc).ref = rt
	b.append(alloc)
	if err := b.attachExceptionEdge(alloc, bci); err != nil {
		return err
	}
	b.frame.push(g, KindObject, alloc)
	return nil
}

func (b *GraphBuilder) genArrayLength() error {
	g := b.graph
	bci := b.bci()
	array := b.frame.apop(g)
	if array == InvalidID {
		return nil
	}
	if err := b.emitNullCheck(array, bci); err != nil {
		return err
	}
	length := g.newFixed(OpArrayLength, KindInt, bci, array)
	b.append(length)
	b.frame.push(g, KindInt, length)
	return nil
}

func (b *GraphBuilder) genCheckCast() error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(CHECKCAST))
	}
	t := b.pool.LookupType(cpi)
	obj := b.frame.apop(g)
	if obj == InvalidID {
		return nil
	}
	rt := asResolvedType(t)
	if rt == nil {
		b.appendDeopt(bci, "unresolved cast type "+t.Name())
		b.frame.push(g, KindObject, obj)
		return nil
	}
	cast := g.newFixed(OpCheckCast, KindObject, bci, obj)
	g.At(cast).ref = rt
	b.append(cast)
	b.frame.push(g, KindObject, cast)
	return nil
}

func (b *GraphBuilder) genInstanceOf() error {
	g := b.graph
	bci := b.bci()
	cpi := b.stream.ReadCPI()
	if b.opts.EagerResolution {
		b.pool.LoadReferencedType(cpi, byte(INSTANCEOF))
	}
	t := b.pool.LookupType(cpi)
	obj := b.frame.apop(g)
	if obj == InvalidID {
		return nil
	}
	rt := asResolvedType(t)
	if rt == nil {
		b.appendDeopt(bci, "unresolved type "+t.Name())
		b.pushConstant(IntConstant(0))
		return nil
	}
	iof := g.newValue(OpInstanceOf, KindInt, bci, obj)
	g.At(iof).ref = rt
	b.frame.push(g, KindInt, iof)
	return nil
}

func (b *GraphBuilder) genMonitorEnter() error {
	g := b.graph
	bci := b.bci()
	obj := b.frame.apop(g)
	if obj == InvalidID {
		return nil
	}
	if err := b.emitNullCheck(obj, bci); err != nil {
		return err
	}
	b.genMonitorEnterAt(obj, bci)
	return nil
}

func (b *GraphBuilder) genMonitorEnterAt(obj NodeID, bci int) {
	g := b.graph
	enter := g.newFixed(OpMonitorEnter, KindVoid, bci, obj)
	b.frame.lock(obj)
	g.At(enter).state = b.frame.duplicate()
	b.append(enter)
}

func (b *GraphBuilder) genMonitorExit() error {
	g := b.graph
	bci := b.bci()
	obj := b.frame.apop(g)
	if obj == InvalidID {
		return nil
	}
	if b.frame.unlock() == InvalidID {
		return nil
	}
	exit := g.newFixed(OpMonitorExit, KindVoid, bci, obj)
	b.append(exit)
	return nil
}

func (b *GraphBuilder) genStackOp(op ByteCode) error {
	f := b.frame
	switch op {
	case POP:
		f.xpop()
	case POP2:
		f.xpop()
		f.xpop()
	case DUP:
		v := f.xpop()
		f.xpush(v)
		f.xpush(v)
	case DUP_X1:
		v1 := f.xpop()
		v2 := f.xpop()
		f.xpush(v1)
		f.xpush(v2)
		f.xpush(v1)
	case DUP_X2:
		v1 := f.xpop()
		v2 := f.xpop()
		v3 := f.xpop()
		f.xpush(v1)
		f.xpush(v3)
		f.xpush(v2)
		f.xpush(v1)
	case DUP2:
		v1 := f.xpop()
		v2 := f.xpop()
		f.xpush(v2)
		f.xpush(v1)
		f.xpush(v2)
		f.xpush(v1)
	case DUP2_X1:
		v1 := f.xpop()
		v2 := f.xpop()
		v3 := f.xpop()
		f.xpush(v2)
		f.xpush(v1)
		f.xpush(v3)
		f.xpush(v2)
		f.xpush(v1)
	case DUP2_X2:
		v1 := f.xpop()
		v2 := f.xpop()
		v3 := f.xpop()
		v4 := f.xpop()
		f.xpush(v2)
		f.xpush(v1)
		f.xpush(v4)
		f.xpush(v3)
		f.xpush(v2)
		f.xpush(v1)
	case SWAP:
		v1 := f.xpop()
		v2 := f.xpop()
		f.xpush(v1)
		f.xpush(v2)
	}
	return nil
}
