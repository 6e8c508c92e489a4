package graphbuilder

// Test doubles for the resolution collaborators. Resolved-ness is expressed
// the same way production runtimes express it: by which interface a value
// satisfies.

type testSignature struct {
	args []Kind
	ret  Kind
}

func (s testSignature) ArgumentCount() int         { return len(s.args) }
func (s testSignature) ArgumentKindAt(i int) Kind  { return s.args[i] }
func (s testSignature) ReturnKind() Kind           { return s.ret }

func (s testSignature) ArgumentSlots(withReceiver bool) int {
	slots := 0
	if withReceiver {
		slots++
	}
	for _, k := range s.args {
		slots += k.StackKind().Slots()
	}
	return slots
}

type testType struct {
	name        string
	iface       bool
	initialized bool
	final       bool
}

func (t *testType) Name() string            { return t.name }
func (t *testType) IsInterface() bool       { return t.iface }
func (t *testType) IsInitialized() bool     { return t.initialized }
func (t *testType) ComponentType() TypeRef  { return nil }
func (t *testType) IsSubtypeOf(ResolvedType) bool { return false }

func (t *testType) ExactType() ResolvedType {
	if t.final {
		return t
	}
	return nil
}

// unresolvedType satisfies TypeRef but not ResolvedType.
type unresolvedType struct{ name string }

func (t unresolvedType) Name() string { return t.name }

type testField struct {
	name     string
	kind     Kind
	holder   *testType
	static   bool
	final    bool
	constant *Constant
}

func (f *testField) Name() string             { return f.name }
func (f *testField) Kind() Kind               { return f.kind }
func (f *testField) Holder() TypeRef          { return f.holder }
func (f *testField) HolderType() ResolvedType { return f.holder }
func (f *testField) IsStatic() bool           { return f.static }
func (f *testField) IsFinal() bool            { return f.final }

func (f *testField) ConstantValue() (Constant, bool) {
	if f.constant == nil {
		return Constant{}, false
	}
	return *f.constant, true
}

// unresolvedField satisfies FieldRef but not ResolvedField.
type unresolvedField struct {
	name   string
	kind   Kind
	holder TypeRef
}

func (f unresolvedField) Name() string    { return f.name }
func (f unresolvedField) Kind() Kind      { return f.kind }
func (f unresolvedField) Holder() TypeRef { return f.holder }

// unresolvedMethod satisfies MethodRef but not Method.
type unresolvedMethod struct {
	name   string
	sig    testSignature
	holder TypeRef
}

func (m unresolvedMethod) Name() string         { return m.name }
func (m unresolvedMethod) Signature() Signature { return m.sig }
func (m unresolvedMethod) Holder() TypeRef      { return m.holder }

type testMethod struct {
	name      string
	code      []byte
	maxLocals int
	maxStack  int
	handlers  []ExceptionHandler
	static    bool
	synced    bool
	bindable  bool
	sig       testSignature
	holder    *testType
}

func (m *testMethod) Name() string                          { return m.name }
func (m *testMethod) Signature() Signature                  { return m.sig }
func (m *testMethod) Holder() TypeRef                       { return m.holder }
func (m *testMethod) HolderType() ResolvedType              { return m.holder }
func (m *testMethod) Code() []byte                          { return m.code }
func (m *testMethod) MaxLocals() int                        { return m.maxLocals }
func (m *testMethod) MaxStackSize() int                     { return m.maxStack }
func (m *testMethod) ExceptionHandlers() []ExceptionHandler { return m.handlers }
func (m *testMethod) IsStatic() bool                        { return m.static }
func (m *testMethod) IsSynchronized() bool                  { return m.synced }
func (m *testMethod) CanBeStaticallyBound() bool            { return m.bindable }

type testPool struct {
	constants map[int]Constant
	types     map[int]TypeRef
	fields    map[int]FieldRef
	methods   map[int]MethodRef
}

func (p *testPool) LookupConstant(cpi int) Constant { return p.constants[cpi] }
func (p *testPool) LookupType(cpi int) TypeRef      { return p.types[cpi] }
func (p *testPool) LookupField(cpi int) FieldRef    { return p.fields[cpi] }

func (p *testPool) LookupMethod(cpi int, opcode byte) MethodRef { return p.methods[cpi] }
func (p *testPool) LoadReferencedType(cpi int, opcode byte)     {}

var emptyPool = &testPool{}

var objectType = &testType{name: "java.lang.Object", initialized: true}

func staticMethod(code []byte, maxLocals, maxStack int, sig testSignature) *testMethod {
	return &testMethod{
		name: "test", code: code, maxLocals: maxLocals, maxStack: maxStack,
		static: true, sig: sig, holder: objectType,
	}
}

func instanceMethod(code []byte, maxLocals, maxStack int, sig testSignature) *testMethod {
	m := staticMethod(code, maxLocals, maxStack, sig)
	m.static = false
	return m
}

// Graph inspection helpers.

func nodesWithOp(g *Graph, op Op) []NodeID {
	var ids []NodeID
	for i := range g.nodes {
		if g.nodes[i].op == op {
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}

func countOp(g *Graph, op Op) int { return len(nodesWithOp(g, op)) }

func constantValueOf(g *Graph, id NodeID) (Constant, bool) {
	n := g.At(id)
	if n.op != OpConstant {
		return Constant{}, false
	}
	return n.con, true
}
