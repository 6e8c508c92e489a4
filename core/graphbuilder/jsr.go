package graphbuilder

// JsrScope records the nested subroutine call sites a block executes under.
// It is an immutable stack-like value: pushing a return address yields a new
// scope sharing the caller's tail. Two scopes are equal when their chains of
// return addresses match exactly, which is the property used to reject
// unstructured (non-stack-like) subroutine control flow.
type JsrScope struct {
	returnAddress int
	parent        *JsrScope
}

// emptyScope is the scope of all code outside any subroutine.
var emptyScope = (*JsrScope)(nil)

// IsEmpty reports whether the scope is outside any subroutine.
func (s *JsrScope) IsEmpty() bool { return s == nil }

// Push returns the scope extended by one call site returning to retBCI.
func (s *JsrScope) Push(retBCI int) *JsrScope {
	return &JsrScope{returnAddress: retBCI, parent: s}
}

// Pop returns the scope with its innermost frame removed. Popping the empty
// scope yields the empty scope.
func (s *JsrScope) Pop() *JsrScope {
	if s == nil {
		return nil
	}
	return s.parent
}

// NextReturnAddress returns the return address of the innermost frame, or -1
// for the empty scope.
func (s *JsrScope) NextReturnAddress() int {
	if s == nil {
		return -1
	}
	return s.returnAddress
}

// Equals compares two scopes frame by frame.
func (s *JsrScope) Equals(other *JsrScope) bool {
	for s != nil && other != nil {
		if s.returnAddress != other.returnAddress {
			return false
		}
		s, other = s.parent, other.parent
	}
	return s == nil && other == nil
}
