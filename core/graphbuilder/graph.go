package graphbuilder

// NodeID is a handle into the graph's node arena.
type NodeID int32

// InvalidID is the null node handle.
const InvalidID NodeID = -1

// Node is the single representation of every graph node. Which fields are
// meaningful depends on op:
//
//	in    data inputs (condition for If, value for switches, phi operands)
//	succ  control successors; succ[0] is the linear next for fixed nodes,
//	      [true, false] for If, [arms..., default] for switches, and
//	      succ[1] the exception edge of an Invoke when present
//	ends  the incoming End nodes of a Merge/LoopBegin, in predecessor order
//	link  pairing edge: End/Phi -> its merge, LoopEnd -> its LoopBegin
//	pred  the single control predecessor of a fixed node
//	state frame snapshot after the node (merges: state at entry)
//	con   constant payload (OpConstant, OpDeoptimize reason-free)
//	cond  comparison relation (OpIf, OpCompare)
//	ref   unresolved or resolved symbol (fields, methods, types)
//	keys/low
//	      lookup-switch keys / table-switch low key
//	prob  branch probabilities, one per successor
//	aux   small per-op scratch: invoke bytecode, convert target kind,
//	      unordered-compare flag, elemental array kind
type Node struct {
	op    Op
	kind  Kind
	bci   int
	in    []NodeID
	succ  []NodeID
	ends  []NodeID
	link  NodeID
	pred  NodeID
	state *FrameState
	con   Constant
	cond  Condition
	ref   interface{}
	keys  []int32
	low   int32
	prob  []float64
	aux   int32
}

// Op returns the node's operation tag.
func (n *Node) Op() Op { return n.op }

// Kind returns the node's value kind.
func (n *Node) Kind() Kind { return n.kind }

// BCI returns the bytecode offset the node was generated at.
func (n *Node) BCI() int { return n.bci }

// Inputs returns the data inputs.
func (n *Node) Inputs() []NodeID { return n.in }

// Successors returns the control successors.
func (n *Node) Successors() []NodeID { return n.succ }

// Ends returns the incoming forward ends of a merge.
func (n *Node) Ends() []NodeID { return n.ends }

// Predecessor returns the single control predecessor of a fixed node.
func (n *Node) Predecessor() NodeID { return n.pred }

// MergeOf returns the merge a Phi or End belongs to, or the LoopBegin a
// LoopEnd belongs to.
func (n *Node) MergeOf() NodeID { return n.link }

// StateAfter returns the frame snapshot attached to the node, if any.
func (n *Node) StateAfter() *FrameState { return n.state }

// Value returns the constant payload of an OpConstant node.
func (n *Node) Value() Constant { return n.con }

// Cond returns the comparison relation of an If, Compare or guard node.
func (n *Node) Cond() Condition { return n.cond }

// Ref returns the symbol a field/method/type node refers to.
func (n *Node) Ref() interface{} { return n.ref }

// Graph owns every node of one routine's translation. Nodes are reached via
// NodeID handles only; the arena never hands out long-lived pointers across
// mutations, callers re-fetch through At.
type Graph struct {
	nodes     []Node
	constants map[Constant]NodeID
	start     NodeID
	cacheable bool
}

// NewGraph returns an empty graph containing only the start node.
func NewGraph() *Graph {
	g := &Graph{
		constants: make(map[Constant]NodeID),
		cacheable: true,
	}
	g.start = g.add(Node{op: OpStart, kind: KindIllegal, bci: 0, pred: InvalidID, link: InvalidID, succ: []NodeID{InvalidID}})
	return g
}

// Start returns the start node handle.
func (g *Graph) Start() NodeID { return g.start }

// NodeCount returns the number of allocated node slots, deleted included.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Cacheable reports whether the finished graph may be stored by a cache
// collaborator. It is cleared when construction had to plant a
// deoptimization for an unresolved symbol: such a graph encodes a snapshot
// of resolution state that later compilations should not inherit.
func (g *Graph) Cacheable() bool { return g.cacheable }

func (g *Graph) markUncacheable() { g.cacheable = false }

// At returns the node for a handle. The pointer is valid until the next
// node allocation.
func (g *Graph) At(id NodeID) *Node { return &g.nodes[id] }

func (g *Graph) add(n Node) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return id
}

// newNode allocates a node with pred/link initialized to InvalidID.
func (g *Graph) newNode(op Op, kind Kind, bci int) NodeID {
	return g.add(Node{op: op, kind: kind, bci: bci, pred: InvalidID, link: InvalidID})
}

// newValue allocates a floating value node with the given data inputs.
func (g *Graph) newValue(op Op, kind Kind, bci int, in ...NodeID) NodeID {
	id := g.newNode(op, kind, bci)
	g.nodes[id].in = append([]NodeID(nil), in...)
	return id
}

// newFixed allocates a fixed node with one (yet unset) next successor.
func (g *Graph) newFixed(op Op, kind Kind, bci int, in ...NodeID) NodeID {
	id := g.newValue(op, kind, bci, in...)
	g.nodes[id].succ = []NodeID{InvalidID}
	return id
}

// uniqueConstant returns the canonical node for a constant, allocating it on
// first use. Constants are floating and shared across the whole graph.
func (g *Graph) uniqueConstant(c Constant) NodeID {
	if id, ok := g.constants[c]; ok {
		return id
	}
	id := g.newNode(OpConstant, c.Kind.StackKind(), -1)
	g.nodes[id].con = c
	g.constants[c] = id
	return id
}

// setNext links from's linear next successor to to and records the reverse
// predecessor edge.
func (g *Graph) setNext(from, to NodeID) {
	g.setSucc(from, 0, to)
}

// next returns the linear next successor of a fixed node.
func (g *Graph) next(from NodeID) NodeID {
	s := g.nodes[from].succ
	if len(s) == 0 {
		return InvalidID
	}
	return s[0]
}

// setSucc sets the idx'th control successor, growing the successor slice as
// needed, and maintains the target's predecessor back-reference.
func (g *Graph) setSucc(from NodeID, idx int, to NodeID) {
	n := &g.nodes[from]
	for len(n.succ) <= idx {
		n.succ = append(n.succ, InvalidID)
	}
	n.succ[idx] = to
	if to != InvalidID {
		g.nodes[to].pred = from
	}
}

// redirectSucc rewrites the successor edge from -> old to point at repl.
func (g *Graph) redirectSucc(from, old, repl NodeID) {
	n := &g.nodes[from]
	for i, s := range n.succ {
		if s == old {
			n.succ[i] = repl
			g.nodes[repl].pred = from
			return
		}
	}
}

// deleteNode retires a node's slot, removing it from its merge's incoming
// edge list when it is an End.
func (g *Graph) deleteNode(id NodeID) {
	n := &g.nodes[id]
	if n.op == OpEnd && n.link != InvalidID {
		m := &g.nodes[n.link]
		for i, e := range m.ends {
			if e == id {
				m.ends = append(m.ends[:i], m.ends[i+1:]...)
				break
			}
		}
	}
	n.op = OpDeleted
	n.in, n.succ, n.ends, n.state = nil, nil, nil, nil
	n.pred, n.link = InvalidID, InvalidID
}

// addEnd appends a forward End to a merge's incoming edge list and pairs the
// End with its merge.
func (g *Graph) addEnd(merge, end NodeID) {
	m := &g.nodes[merge]
	m.ends = append(m.ends, end)
	g.nodes[end].link = merge
}

// endIndex returns the predecessor slot of an End at its merge.
func (g *Graph) endIndex(merge, end NodeID) int {
	for i, e := range g.nodes[merge].ends {
		if e == end {
			return i
		}
	}
	return -1
}

// predecessorCount returns the number of arrived control edges at a node:
// the recorded ends of a merge plus one for a direct predecessor.
func (g *Graph) predecessorCount(id NodeID) int {
	n := &g.nodes[id]
	c := len(n.ends)
	if n.pred != InvalidID {
		c++
	}
	return c
}

// replaceAndDelete redirects every edge pointing at old to repl and retires
// old's slot. Used by the post-construction placeholder sweep.
func (g *Graph) replaceAndDelete(old, repl NodeID) {
	for i := range g.nodes {
		n := &g.nodes[i]
		if NodeID(i) == old {
			continue
		}
		for j, in := range n.in {
			if in == old {
				n.in[j] = repl
			}
		}
		for j, s := range n.succ {
			if s == old {
				n.succ[j] = repl
				if repl != InvalidID {
					g.nodes[repl].pred = NodeID(i)
				}
			}
		}
		for j, e := range n.ends {
			if e == old {
				n.ends[j] = repl
			}
		}
		if n.link == old {
			n.link = repl
		}
		if n.state != nil {
			n.state.replaceValue(old, repl)
		}
	}
	o := &g.nodes[old]
	o.op = OpDeleted
	o.in = nil
	o.succ = nil
	o.ends = nil
	o.state = nil
	o.pred = InvalidID
	o.link = InvalidID
}

// phisAt collects the phis attached to a merge.
func (g *Graph) phisAt(merge NodeID) []NodeID {
	var phis []NodeID
	for i := range g.nodes {
		if g.nodes[i].op == OpPhi && g.nodes[i].link == merge {
			phis = append(phis, NodeID(i))
		}
	}
	return phis
}
