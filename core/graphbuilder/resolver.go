package graphbuilder

// Symbol resolution is a collaborator concern. The builder works against the
// narrow interfaces below; whether a reference is resolved is discovered by
// type assertion against the Resolved* refinement, never by a boolean flag.
// An unresolved reference is not an error: the affected operation is replaced
// by a deoptimization point and construction continues.

// TypeRef names a type that may not be resolved yet.
type TypeRef interface {
	Name() string
}

// ResolvedType is a type the runtime has loaded.
type ResolvedType interface {
	TypeRef
	IsInterface() bool
	IsInitialized() bool
	// ExactType returns the only concrete type a value declared as this
	// type can have (final classes, arrays of final element types), or nil.
	ExactType() ResolvedType
	// ComponentType returns the element type of an array type, or nil.
	ComponentType() TypeRef
	IsSubtypeOf(other ResolvedType) bool
}

// FieldRef names a field access that may not be resolved yet.
type FieldRef interface {
	Name() string
	Kind() Kind
	Holder() TypeRef
}

// ResolvedField is a field the runtime has located in its holder.
type ResolvedField interface {
	FieldRef
	HolderType() ResolvedType
	IsStatic() bool
	IsFinal() bool
	// ConstantValue returns the compile-time constant value of a static
	// final field of an initialized holder, when the runtime knows one.
	ConstantValue() (Constant, bool)
}

// MethodRef names an invocation target that may not be resolved yet.
type MethodRef interface {
	Name() string
	Signature() Signature
	Holder() TypeRef
}

// Method is a resolved method, including the routine under translation.
type Method interface {
	MethodRef
	HolderType() ResolvedType
	Code() []byte
	MaxLocals() int
	MaxStackSize() int
	ExceptionHandlers() []ExceptionHandler
	IsStatic() bool
	IsSynchronized() bool
	// CanBeStaticallyBound reports whether an indirect call to this method
	// always lands here (final or private methods, final holders).
	CanBeStaticallyBound() bool
}

// Signature describes a method's parameter and return kinds.
type Signature interface {
	ArgumentCount() int
	ArgumentKindAt(i int) Kind
	// ArgumentSlots is the frame-slot footprint of the arguments, counting
	// wide kinds twice, plus one for the receiver when requested.
	ArgumentSlots(withReceiver bool) int
	ReturnKind() Kind
}

// ConstantPool resolves symbolic references of the routine under
// translation. Lookups return the most refined reference the runtime has;
// they never fail, an unrefinable reference simply stays unresolved.
type ConstantPool interface {
	LookupConstant(cpi int) Constant
	LookupType(cpi int) TypeRef
	LookupField(cpi int) FieldRef
	LookupMethod(cpi int, opcode byte) MethodRef
	// LoadReferencedType asks the runtime to resolve the type behind a
	// constant pool entry ahead of use. Only called under EagerResolution.
	LoadReferencedType(cpi int, opcode byte)
}

// ProfilingOracle supplies execution profiles gathered by earlier tiers.
// The zero oracle is usable: NoProfile answers put every branch at the
// default probability.
type ProfilingOracle interface {
	// BranchProbability returns the taken probability of the branch at bci,
	// or a negative value when no profile exists.
	BranchProbability(bci int) float64
	// SwitchProbabilities returns one probability per successor (arms then
	// default) for the switch at bci, or nil when no profile exists.
	SwitchProbabilities(bci int, successors int) []float64
}

// NoProfile is the oracle used when no profiling data is available.
type NoProfile struct{}

func (NoProfile) BranchProbability(int) float64          { return -1 }
func (NoProfile) SwitchProbabilities(int, int) []float64 { return nil }

// asResolvedType refines a TypeRef, returning nil when unresolved.
func asResolvedType(t TypeRef) ResolvedType {
	if rt, ok := t.(ResolvedType); ok {
		return rt
	}
	return nil
}

// asResolvedField refines a FieldRef, returning nil when unresolved.
func asResolvedField(f FieldRef) ResolvedField {
	if rf, ok := f.(ResolvedField); ok {
		return rf
	}
	return nil
}

// asResolvedMethod refines a MethodRef, returning nil when unresolved.
func asResolvedMethod(m MethodRef) Method {
	if rm, ok := m.(Method); ok {
		return rm
	}
	return nil
}
