package graphbuilder

// ExceptionHandler describes one entry of a routine's exception table. The
// covered range is [StartBCI, EndBCI). A nil CatchType catches every
// exception (the finally/catch-all form).
type ExceptionHandler struct {
	StartBCI   int
	EndBCI     int
	HandlerBCI int
	CatchType  TypeRef
}

// Covers reports whether the handler protects the instruction at bci.
func (h *ExceptionHandler) Covers(bci int) bool {
	return bci >= h.StartBCI && bci < h.EndBCI
}

// IsCatchAll reports whether the handler catches every exception type.
func (h *ExceptionHandler) IsCatchAll() bool { return h.CatchType == nil }

type bitmap []uint64

func newBitmap(n int) bitmap      { return make(bitmap, (n+63)/64) }
func (b bitmap) set(i int)        { b[i>>6] |= 1 << (uint(i) & 63) }
func (b bitmap) isSet(i int) bool { return b[i>>6]&(1<<(uint(i)&63)) != 0 }

// Block is one basic block of the routine. Identifiers are assigned once in
// reverse postorder and never change, so the worklist priority of a block is
// stable for the whole construction. The two trailing fields are the
// builder's per-block state: the entry instruction planted by createTarget
// and the frame at that instruction.
type Block struct {
	id       int
	startBCI int
	endBCI   int

	isLoopHeader        bool
	isExceptionEntry    bool
	isExceptionDispatch bool
	isReturnBlock       bool
	isUnwindBlock       bool
	canTrap             bool
	handler             *ExceptionHandler

	successors    []*Block
	dispatchEntry *Block // head of the exception dispatch chain covering this block
	scope         *JsrScope
	jsrSucc       *Block
	jsrRetBCI     int
	retSucc       *Block

	firstInstruction NodeID
	entryState       *FrameState
}

// BlockMap partitions a routine's bytecode into basic blocks. Building it is
// the first of the two construction passes: a boundary scan that also
// validates branch targets, then block creation with successor wiring,
// subroutine scope propagation, and reverse-postorder numbering.
type BlockMap struct {
	method   Method
	code     []byte
	blocks   []*Block
	blockPos []*Block // containing block per instruction bci
	canTrap  bitmap
	handlers []ExceptionHandler
	nextID   int
	hasJsr   bool

	returnBlock *Block
	unwindBlock *Block
}

func buildBlockMap(m Method) (*BlockMap, error) {
	code := m.Code()
	if len(code) == 0 {
		return nil, malformedControlFlow(0, "routine has no code")
	}
	bm := &BlockMap{
		method:   m,
		code:     code,
		blockPos: make([]*Block, len(code)),
		canTrap:  newBitmap(len(code)),
		handlers: m.ExceptionHandlers(),
	}
	starts, err := bm.scanBoundaries()
	if err != nil {
		return nil, err
	}
	if err := bm.createBlocks(starts); err != nil {
		return nil, err
	}
	for i := range bm.handlers {
		bm.blockPos[bm.handlers[i].HandlerBCI].isExceptionEntry = true
	}
	if bm.hasJsr {
		if err := bm.computeJsrScopes(); err != nil {
			return nil, err
		}
	}
	bm.createSyntheticBlocks()
	bm.assignIDs()
	return bm, nil
}

// Pseudo bytecode offsets of construction-synthesized program points.
const (
	syncEntryBCI   = -1 // monitor entry of a synchronized routine
	returnBlockBCI = -2
	unwindBlockBCI = -3
)

// createSyntheticBlocks allocates the shared return and unwind blocks and
// one dispatch chain per distinct (handler, continuation) pair. Sharing the
// chains is what lets the worklist invariant extend to exception flow: every
// throwing site targets the same chain entry, so the chain and the handler
// entries behind it are numbered after all of their predecessors.
func (bm *BlockMap) createSyntheticBlocks() {
	bm.returnBlock = &Block{
		startBCI: returnBlockBCI, endBCI: returnBlockBCI,
		isReturnBlock: true, jsrRetBCI: -1, firstInstruction: InvalidID,
	}
	bm.unwindBlock = &Block{
		startBCI: unwindBlockBCI, endBCI: unwindBlockBCI,
		isUnwindBlock: true, jsrRetBCI: -1, firstInstruction: InvalidID,
	}
	type chainKey struct {
		handler *ExceptionHandler
		next    *Block
	}
	memo := make(map[chainKey]*Block)
	for _, b := range bm.allBytecodeBlocks() {
		if !b.canTrap && bm.lastOp(b) != ATHROW {
			continue
		}
		hs := bm.handlersFor(b.startBCI)
		// A catch-all handler ends the dispatch order early.
		for i, h := range hs {
			if h.IsCatchAll() {
				hs = hs[:i+1]
				break
			}
		}
		next := bm.unwindBlock
		for i := len(hs) - 1; i >= 0; i-- {
			h := hs[i]
			key := chainKey{h, next}
			d, ok := memo[key]
			if !ok {
				d = &Block{
					startBCI: h.HandlerBCI, endBCI: h.HandlerBCI,
					isExceptionDispatch: true, handler: h,
					jsrRetBCI: -1, firstInstruction: InvalidID,
				}
				entry := bm.blockPos[h.HandlerBCI]
				if h.IsCatchAll() {
					d.successors = []*Block{entry}
				} else {
					d.successors = []*Block{entry, next}
				}
				memo[key] = d
			}
			next = d
		}
		b.dispatchEntry = next
	}
}

func (bm *BlockMap) allBytecodeBlocks() []*Block {
	var bs []*Block
	var last *Block
	for _, b := range bm.blockPos {
		if b != last {
			bs = append(bs, b)
			last = b
		}
	}
	return bs
}

// scanBoundaries walks every instruction once, recording block start
// offsets and validating that all branch targets and exception table
// offsets land on instruction boundaries.
func (bm *BlockMap) scanBoundaries() (bitmap, error) {
	code := bm.code
	starts := newBitmap(len(code))
	boundary := newBitmap(len(code))
	type jump struct{ from, to int }
	var jumps []jump
	branch := func(from, to int) error {
		if to < 0 || to >= len(code) {
			return malformedControlFlow(from, "branch target %d outside the code", to)
		}
		starts.set(to)
		jumps = append(jumps, jump{from, to})
		return nil
	}

	starts.set(0)
	s := NewBytecodeStream(code)
	for s.CurrentBCI() < len(code) {
		bci := s.CurrentBCI()
		boundary.set(bci)
		op := s.CurrentBC()
		if opLengths[op] == 0 {
			return nil, malformedControlFlow(bci, "undefined opcode 0x%02x", byte(op))
		}
		if s.IsWide() {
			switch op {
			case ILOAD, LLOAD, FLOAD, DLOAD, ALOAD,
				ISTORE, LSTORE, FSTORE, DSTORE, ASTORE, RET, IINC:
			default:
				return nil, malformedControlFlow(bci, "wide prefix on %s", NameOf(op))
			}
		}
		if s.NextBCI() > len(code) {
			return nil, malformedControlFlow(bci, "truncated %s", NameOf(op))
		}

		switch op {
		case IFEQ, IFNE, IFLT, IFGE, IFGT, IFLE,
			IF_ICMPEQ, IF_ICMPNE, IF_ICMPLT, IF_ICMPGE, IF_ICMPGT, IF_ICMPLE,
			IF_ACMPEQ, IF_ACMPNE, IFNULL, IFNONNULL:
			if err := branch(bci, s.ReadBranchDest()); err != nil {
				return nil, err
			}
			if s.NextBCI() >= len(code) {
				return nil, malformedControlFlow(bci, "conditional branch falls off the end of the code")
			}
			starts.set(s.NextBCI())
		case GOTO:
			if err := branch(bci, s.ReadBranchDest()); err != nil {
				return nil, err
			}
		case GOTO_W:
			if err := branch(bci, s.ReadFarBranchDest()); err != nil {
				return nil, err
			}
		case JSR:
			bm.hasJsr = true
			if err := branch(bci, s.ReadBranchDest()); err != nil {
				return nil, err
			}
			if s.NextBCI() >= len(code) {
				return nil, malformedControlFlow(bci, "jsr return address falls off the end of the code")
			}
			starts.set(s.NextBCI())
		case JSR_W:
			bm.hasJsr = true
			if err := branch(bci, s.ReadFarBranchDest()); err != nil {
				return nil, err
			}
			if s.NextBCI() >= len(code) {
				return nil, malformedControlFlow(bci, "jsr return address falls off the end of the code")
			}
			starts.set(s.NextBCI())
		case RET:
			bm.hasJsr = true
		case TABLESWITCH:
			ts := newTableSwitch(s, bci)
			if ts.numberOfCases() < 0 {
				return nil, malformedControlFlow(bci, "tableswitch with inverted key range")
			}
			for i := 0; i < ts.numberOfCases(); i++ {
				if err := branch(bci, ts.targetAt(i)); err != nil {
					return nil, err
				}
			}
			if err := branch(bci, ts.defaultTarget()); err != nil {
				return nil, err
			}
		case LOOKUPSWITCH:
			ls := newLookupSwitch(s, bci)
			if ls.numberOfCases() < 0 {
				return nil, malformedControlFlow(bci, "lookupswitch with negative case count")
			}
			for i := 0; i < ls.numberOfCases(); i++ {
				if err := branch(bci, ls.targetAt(i)); err != nil {
					return nil, err
				}
			}
			if err := branch(bci, ls.defaultTarget()); err != nil {
				return nil, err
			}

		case IALOAD, LALOAD, FALOAD, DALOAD, AALOAD, BALOAD, CALOAD, SALOAD,
			IASTORE, LASTORE, FASTORE, DASTORE, AASTORE, BASTORE, CASTORE, SASTORE,
			ARRAYLENGTH, GETFIELD, PUTFIELD, CHECKCAST, ATHROW,
			IDIV, LDIV, IREM, LREM,
			INVOKEVIRTUAL, INVOKESPECIAL, INVOKESTATIC, INVOKEINTERFACE,
			NEW, NEWARRAY, ANEWARRAY, MULTIANEWARRAY,
			MONITORENTER, MONITOREXIT:
			bm.canTrap.set(bci)
		}
		s.Next()
	}

	for _, j := range jumps {
		if !boundary.isSet(j.to) {
			return nil, malformedControlFlow(j.from, "branch target %d is not an instruction boundary", j.to)
		}
	}
	for i := range bm.handlers {
		h := &bm.handlers[i]
		if h.StartBCI < 0 || h.StartBCI >= len(code) || h.EndBCI <= h.StartBCI || h.EndBCI > len(code) ||
			h.HandlerBCI < 0 || h.HandlerBCI >= len(code) {
			return nil, malformedControlFlow(h.HandlerBCI, "exception table range [%d, %d) -> %d outside the code",
				h.StartBCI, h.EndBCI, h.HandlerBCI)
		}
		if !boundary.isSet(h.StartBCI) || !boundary.isSet(h.HandlerBCI) ||
			(h.EndBCI < len(code) && !boundary.isSet(h.EndBCI)) {
			return nil, malformedControlFlow(h.HandlerBCI, "exception table offset is not an instruction boundary")
		}
		// Try-range edges and handler entries are block boundaries, so
		// handler coverage is uniform within any block.
		starts.set(h.StartBCI)
		starts.set(h.HandlerBCI)
		if h.EndBCI < len(code) {
			starts.set(h.EndBCI)
		}
	}
	return starts, nil
}

// createBlocks materializes one block per start offset and wires normal
// control flow successors, branch targets first and fall-through last.
func (bm *BlockMap) createBlocks(starts bitmap) error {
	code := bm.code
	succBCIs := make(map[*Block][]int)
	var cur *Block
	s := NewBytecodeStream(code)
	for s.CurrentBCI() < len(code) {
		bci := s.CurrentBCI()
		if starts.isSet(bci) {
			cur = &Block{startBCI: bci, jsrRetBCI: -1, firstInstruction: InvalidID}
		}
		bm.blockPos[bci] = cur
		cur.endBCI = bci
		if bm.canTrap.isSet(bci) {
			cur.canTrap = true
		}
		op := s.CurrentBC()
		switch op {
		case IFEQ, IFNE, IFLT, IFGE, IFGT, IFLE,
			IF_ICMPEQ, IF_ICMPNE, IF_ICMPLT, IF_ICMPGE, IF_ICMPGT, IF_ICMPLE,
			IF_ACMPEQ, IF_ACMPNE, IFNULL, IFNONNULL:
			succBCIs[cur] = []int{s.ReadBranchDest(), s.NextBCI()}
		case GOTO:
			succBCIs[cur] = []int{s.ReadBranchDest()}
		case GOTO_W:
			succBCIs[cur] = []int{s.ReadFarBranchDest()}
		case JSR:
			cur.jsrRetBCI = s.NextBCI()
			succBCIs[cur] = []int{s.ReadBranchDest()}
		case JSR_W:
			cur.jsrRetBCI = s.NextBCI()
			succBCIs[cur] = []int{s.ReadFarBranchDest()}
		case TABLESWITCH:
			ts := newTableSwitch(s, bci)
			var targets []int
			for i := 0; i < ts.numberOfCases(); i++ {
				targets = append(targets, ts.targetAt(i))
			}
			succBCIs[cur] = append(targets, ts.defaultTarget())
		case LOOKUPSWITCH:
			ls := newLookupSwitch(s, bci)
			var targets []int
			for i := 0; i < ls.numberOfCases(); i++ {
				targets = append(targets, ls.targetAt(i))
			}
			succBCIs[cur] = append(targets, ls.defaultTarget())
		case RET, IRETURN, LRETURN, FRETURN, DRETURN, ARETURN, RETURN, ATHROW:
			succBCIs[cur] = []int{}
		default:
			if s.NextBCI() >= len(code) {
				return malformedControlFlow(bci, "control falls off the end of the code")
			}
			if starts.isSet(s.NextBCI()) {
				succBCIs[cur] = []int{s.NextBCI()}
			}
		}
		s.Next()
	}
	for b, bcis := range succBCIs {
		for _, t := range bcis {
			b.successors = append(b.successors, bm.blockPos[t])
		}
		if b.jsrRetBCI >= 0 && len(b.successors) == 1 {
			b.jsrSucc = b.successors[0]
		}
	}
	return nil
}

func (bm *BlockMap) lastOp(b *Block) ByteCode {
	return ByteCode(bm.code[b.endBCI])
}

// computeJsrScopes propagates subroutine scopes from the entry block with a
// breadth-first walk. Every block must be reached under exactly one scope;
// non-stack-like subroutine nesting is rejected as unsupported rather than
// translated wrong.
func (bm *BlockMap) computeJsrScopes() error {
	entry := bm.blockPos[0]
	type item struct {
		b     *Block
		scope *JsrScope
	}
	queue := []item{{entry, emptyScope}}
	assigned := map[*Block]bool{entry: true}
	enqueue := func(from *Block, to *Block, scope *JsrScope) error {
		if assigned[to] {
			if !to.scope.Equals(scope) {
				return unsupportedControlFlow(to.startBCI, "block reached under conflicting subroutine scopes")
			}
			return nil
		}
		assigned[to] = true
		to.scope = scope
		queue = append(queue, item{to, scope})
		return nil
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		b, sc := it.b, it.scope
		switch bm.lastOp(b) {
		case JSR, JSR_W:
			if err := enqueue(b, b.jsrSucc, sc.Push(b.jsrRetBCI)); err != nil {
				return err
			}
		case RET:
			if sc.IsEmpty() {
				return unsupportedControlFlow(b.endBCI, "ret outside any subroutine")
			}
			ret := bm.blockPos[sc.NextReturnAddress()]
			if ret == nil || ret.startBCI != sc.NextReturnAddress() {
				return malformedControlFlow(b.endBCI, "subroutine return address %d is not a block entry", sc.NextReturnAddress())
			}
			b.retSucc = ret
			if err := enqueue(b, ret, sc.Pop()); err != nil {
				return err
			}
		default:
			for _, succ := range b.successors {
				if err := enqueue(b, succ, sc); err != nil {
					return err
				}
			}
		}
		for i := range bm.handlers {
			h := &bm.handlers[i]
			if b.canTrap && h.Covers(b.startBCI) {
				if err := enqueue(b, bm.blockPos[h.HandlerBCI], sc); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// traversalSuccessors enumerates every block control can reach from b: its
// normal successors, the subroutine return continuation, the dispatch chain
// of a trapping block, and the shared return block of return bytecodes.
func (bm *BlockMap) traversalSuccessors(b *Block) []*Block {
	succs := append([]*Block(nil), b.successors...)
	if b.retSucc != nil {
		succs = append(succs, b.retSucc)
	}
	if b.dispatchEntry != nil {
		succs = append(succs, b.dispatchEntry)
	}
	if !b.isExceptionDispatch && !b.isReturnBlock && !b.isUnwindBlock {
		switch bm.lastOp(b) {
		case IRETURN, LRETURN, FRETURN, DRETURN, ARETURN, RETURN:
			succs = append(succs, bm.returnBlock)
		}
	}
	return succs
}

// assignIDs numbers reachable blocks in reverse postorder with an iterative
// depth-first walk. A successor still on the walk stack closes a back edge
// and marks a loop header. The numbering is final: nothing renumbers blocks
// afterwards.
func (bm *BlockMap) assignIDs() {
	entry := bm.blockPos[0]
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[*Block]int)
	type frame struct {
		b     *Block
		succs []*Block
		i     int
	}
	var postorder []*Block
	stack := []frame{{b: entry, succs: bm.traversalSuccessors(entry)}}
	state[entry] = active
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.i < len(f.succs) {
			s := f.succs[f.i]
			f.i++
			switch state[s] {
			case unvisited:
				state[s] = active
				stack = append(stack, frame{b: s, succs: bm.traversalSuccessors(s)})
			case active:
				s.isLoopHeader = true
			}
			continue
		}
		state[f.b] = done
		postorder = append(postorder, f.b)
		stack = stack[:len(stack)-1]
	}
	n := len(postorder)
	bm.blocks = make([]*Block, n)
	for i, b := range postorder {
		b.id = n - 1 - i
		bm.blocks[b.id] = b
	}
	bm.nextID = n
}

// blockAt returns the block containing the instruction at bci.
func (bm *BlockMap) blockAt(bci int) *Block { return bm.blockPos[bci] }

// canTrapAt reports whether the instruction at bci may raise an implicit
// exception (null dereference, bounds violation, division by zero).
func (bm *BlockMap) canTrapAt(bci int) bool { return bm.canTrap.isSet(bci) }

// handlersFor returns the handlers covering bci in exception table order,
// which is the dispatch order.
func (bm *BlockMap) handlersFor(bci int) []*ExceptionHandler {
	var hs []*ExceptionHandler
	for i := range bm.handlers {
		if bm.handlers[i].Covers(bci) {
			hs = append(hs, &bm.handlers[i])
		}
	}
	return hs
}
