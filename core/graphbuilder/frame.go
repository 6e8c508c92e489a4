package graphbuilder

import "fmt"

// FrameState models the abstract interpreter frame at one program point:
// local variable slots, the operand stack, and the stack of held monitors.
// Values are node handles; wide values (long, double) occupy two slots with
// an InvalidID filler in the high slot.
//
// Stack and local accessors do not return errors. A misuse (underflow, kind
// mismatch, read of a killed slot) latches a failure reason instead; the
// builder checks the latch after each translated bytecode and converts it
// into a verification bailout at the right offset. This keeps the hundreds
// of call sites in the translation rules linear.
type FrameState struct {
	locals []NodeID
	stack  []NodeID
	locks  []NodeID
	fail   string
}

func newFrameState(maxLocals, maxStack int) *FrameState {
	s := &FrameState{
		locals: make([]NodeID, maxLocals),
		stack:  make([]NodeID, 0, maxStack),
	}
	for i := range s.locals {
		s.locals[i] = InvalidID
	}
	return s
}

func (s *FrameState) failf(format string, args ...interface{}) {
	if s.fail == "" {
		s.fail = fmt.Sprintf(format, args...)
	}
}

// failure returns the latched misuse reason, empty when the frame is clean.
func (s *FrameState) failure() string { return s.fail }

// StackSize returns the operand stack depth in slots.
func (s *FrameState) StackSize() int { return len(s.stack) }

// LocalCount returns the number of local slots.
func (s *FrameState) LocalCount() int { return len(s.locals) }

// LockDepth returns the number of held monitors.
func (s *FrameState) LockDepth() int { return len(s.locks) }

// StackAt returns the stack slot at depth i (0 is the bottom).
func (s *FrameState) StackAt(i int) NodeID { return s.stack[i] }

// LocalAt returns local slot i.
func (s *FrameState) LocalAt(i int) NodeID { return s.locals[i] }

// LockAt returns the i'th held monitor object.
func (s *FrameState) LockAt(i int) NodeID { return s.locks[i] }

func (s *FrameState) clearStack() { s.stack = s.stack[:0] }

// push pushes a value of the given kind, adding the high filler slot for
// wide kinds.
func (s *FrameState) push(g *Graph, kind Kind, v NodeID) {
	sk := kind.StackKind()
	if g.At(v).kind != sk && g.At(v).kind != KindIllegal {
		s.failf("pushed %s where %s expected", g.At(v).kind, sk)
	}
	s.stack = append(s.stack, v)
	if sk.IsWide() {
		s.stack = append(s.stack, InvalidID)
	}
}

// xpush pushes one raw slot without kind bookkeeping. Used by the untyped
// stack shuffles (dup*, swap, pop, pop2).
func (s *FrameState) xpush(v NodeID) { s.stack = append(s.stack, v) }

// xpop pops one raw slot.
func (s *FrameState) xpop() NodeID {
	if len(s.stack) == 0 {
		s.failf("operand stack underflow")
		return InvalidID
	}
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

// pop pops a value of the given kind, consuming the filler slot for wide
// kinds, and checks the value's kind.
func (s *FrameState) pop(g *Graph, kind Kind) NodeID {
	sk := kind.StackKind()
	if sk.IsWide() {
		if f := s.xpop(); f != InvalidID {
			s.failf("expected wide filler slot, found a value")
			return InvalidID
		}
	}
	v := s.xpop()
	if v == InvalidID {
		s.failf("popped a killed stack slot")
		return InvalidID
	}
	if k := g.At(v).kind; k != sk {
		s.failf("popped %s where %s expected", k, sk)
	}
	return v
}

// popForObjectStore pops the operand of an object store, which may also be
// a subroutine return address about to be saved for ret.
func (s *FrameState) popForObjectStore(g *Graph) NodeID {
	v := s.xpop()
	if v == InvalidID {
		s.failf("popped a killed stack slot")
		return InvalidID
	}
	if k := g.At(v).kind; k != KindObject && k != KindAddress {
		s.failf("popped %s where object or address expected", k)
	}
	return v
}

func (s *FrameState) ipop(g *Graph) NodeID { return s.pop(g, KindInt) }
func (s *FrameState) lpop(g *Graph) NodeID { return s.pop(g, KindLong) }
func (s *FrameState) fpop(g *Graph) NodeID { return s.pop(g, KindFloat) }
func (s *FrameState) dpop(g *Graph) NodeID { return s.pop(g, KindDouble) }
func (s *FrameState) apop(g *Graph) NodeID { return s.pop(g, KindObject) }
func (s *FrameState) wpop(g *Graph) NodeID { return s.pop(g, KindAddress) }

// loadLocal reads local slot index as the given kind.
func (s *FrameState) loadLocal(g *Graph, index int, kind Kind) NodeID {
	if index < 0 || index+kind.Slots() > len(s.locals) {
		s.failf("local index %d out of range", index)
		return InvalidID
	}
	v := s.locals[index]
	if v == InvalidID {
		s.failf("load of killed local %d", index)
		return InvalidID
	}
	if k := g.At(v).kind; k != kind.StackKind() {
		s.failf("local %d holds %s, %s expected", index, k, kind.StackKind())
	}
	return v
}

// storeLocal writes local slot index. Storing kills the neighbouring slot of
// any wide value the write overlaps, and the high filler of a wide store.
func (s *FrameState) storeLocal(g *Graph, index int, kind Kind, v NodeID) {
	if index < 0 || index+kind.Slots() > len(s.locals) {
		s.failf("local index %d out of range", index)
		return
	}
	// A store into the second slot of a live wide value kills that value.
	if index > 0 && s.locals[index] == InvalidID && s.locals[index-1] != InvalidID &&
		g.At(s.locals[index-1]).kind.IsWide() {
		s.locals[index-1] = InvalidID
	}
	s.locals[index] = v
	if kind.StackKind().IsWide() {
		s.locals[index+1] = InvalidID
	}
}

// popArguments pops slots stack slots and returns the argument values in
// call order, skipping wide fillers.
func (s *FrameState) popArguments(slots int) []NodeID {
	if slots > len(s.stack) {
		s.failf("operand stack underflow popping %d argument slots", slots)
		slots = len(s.stack)
	}
	base := len(s.stack) - slots
	var args []NodeID
	for i := base; i < len(s.stack); i++ {
		if s.stack[i] != InvalidID {
			args = append(args, s.stack[i])
		}
	}
	s.stack = s.stack[:base]
	return args
}

// lock pushes a held monitor object.
func (s *FrameState) lock(obj NodeID) { s.locks = append(s.locks, obj) }

// unlock pops the innermost held monitor.
func (s *FrameState) unlock() NodeID {
	if len(s.locks) == 0 {
		s.failf("monitor stack underflow")
		return InvalidID
	}
	v := s.locks[len(s.locks)-1]
	s.locks = s.locks[:len(s.locks)-1]
	return v
}

// duplicate returns a deep copy sharing no slices with the receiver.
func (s *FrameState) duplicate() *FrameState {
	return &FrameState{
		locals: append([]NodeID(nil), s.locals...),
		stack:  append([]NodeID(nil), s.stack...),
		locks:  append([]NodeID(nil), s.locks...),
		fail:   s.fail,
	}
}

// duplicateWithEmptyStack returns a copy with the operand stack cleared.
// Exception dispatch enters with only the in-flight exception live.
func (s *FrameState) duplicateWithEmptyStack() *FrameState {
	d := s.duplicate()
	d.clearStack()
	return d
}

// isCompatibleWith reports whether two frames can merge: equal stack depth
// with slot-wise matching kinds (killed slots match anything), and equal
// lock depth.
func (s *FrameState) isCompatibleWith(g *Graph, other *FrameState) bool {
	if len(s.stack) != len(other.stack) || len(s.locks) != len(other.locks) {
		return false
	}
	for i := range s.stack {
		a, b := s.stack[i], other.stack[i]
		if a == InvalidID || b == InvalidID {
			if a != b {
				return false
			}
			continue
		}
		if g.At(a).kind != g.At(b).kind {
			return false
		}
	}
	return true
}

// merge folds other into the receiver at mergeNode. Slots that differ get a
// phi attached to mergeNode; an existing phi of that merge is extended with
// the incoming value. Local slots that cannot reconcile are killed, stack
// slots that cannot reconcile are an error. The number of ends already
// recorded at mergeNode determines how many copies of the existing value
// seed a freshly created phi.
func (s *FrameState) merge(g *Graph, mergeNode NodeID, other *FrameState) error {
	if !s.isCompatibleWith(g, other) {
		return fmt.Errorf("incompatible frames: stack %d/%d, locks %d/%d",
			len(s.stack), len(other.stack), len(s.locks), len(other.locks))
	}
	for i := range s.locals {
		merged, kill := s.mergeSlot(g, mergeNode, s.locals[i], other.locals[i])
		if kill {
			s.locals[i] = InvalidID
		} else {
			s.locals[i] = merged
		}
	}
	for i := range s.stack {
		merged, kill := s.mergeSlot(g, mergeNode, s.stack[i], other.stack[i])
		if kill {
			return fmt.Errorf("operand stack slot %d has irreconcilable values", i)
		}
		s.stack[i] = merged
	}
	for i := range s.locks {
		if s.locks[i] != other.locks[i] {
			return fmt.Errorf("monitor slot %d differs across merge predecessors", i)
		}
	}
	return nil
}

func (s *FrameState) mergeSlot(g *Graph, mergeNode NodeID, existing, incoming NodeID) (NodeID, bool) {
	if existing == incoming {
		return existing, false
	}
	if existing == InvalidID || incoming == InvalidID {
		return InvalidID, true
	}
	if en := g.At(existing); en.op == OpPhi && en.link == mergeNode {
		en.in = append(en.in, incoming)
		return existing, false
	}
	if g.At(existing).kind != g.At(incoming).kind {
		return InvalidID, true
	}
	// Seed the phi with one copy of the existing value per already-arrived
	// predecessor, then the incoming value for the edge being added.
	preds := len(g.At(mergeNode).ends) - 1
	if preds < 1 {
		preds = 1
	}
	in := make([]NodeID, 0, preds+1)
	for j := 0; j < preds; j++ {
		in = append(in, existing)
	}
	in = append(in, incoming)
	phi := g.newValue(OpPhi, g.At(existing).kind, g.At(mergeNode).bci, in...)
	g.At(phi).link = mergeNode
	return phi, false
}

// insertLoopPhis replaces every live slot with a single-input phi attached
// to loopBegin, so values flowing around the back edge merge through the
// ordinary machinery when the loop end is sealed.
func (s *FrameState) insertLoopPhis(g *Graph, loopBegin NodeID) {
	at := func(v NodeID) NodeID {
		if v == InvalidID {
			return InvalidID
		}
		phi := g.newValue(OpPhi, g.At(v).kind, g.At(loopBegin).bci, v)
		g.At(phi).link = loopBegin
		return phi
	}
	for i := range s.locals {
		s.locals[i] = at(s.locals[i])
	}
	for i := range s.stack {
		s.stack[i] = at(s.stack[i])
	}
}

// replaceValue substitutes every occurrence of old in the snapshot.
func (s *FrameState) replaceValue(old, repl NodeID) {
	for i, v := range s.locals {
		if v == old {
			s.locals[i] = repl
		}
	}
	for i, v := range s.stack {
		if v == old {
			s.stack[i] = repl
		}
	}
	for i, v := range s.locks {
		if v == old {
			s.locks[i] = repl
		}
	}
}
