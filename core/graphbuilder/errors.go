package graphbuilder

import (
	"errors"
	"fmt"
)

// Construction aborts with one of three fatal classes. Callers are expected
// to fall back to a non-optimizing execution strategy when any of these is
// returned; there is no partial graph to salvage.
var (
	// ErrMalformedControlFlow marks bytecode whose branches target offsets
	// that are not instruction boundaries, or undefined opcodes.
	ErrMalformedControlFlow = errors.New("malformed control flow")

	// ErrVerificationFailure marks bytecode that does not verify: stack or
	// lock depth mismatches at a merge, operand stack underflow, or
	// unbalanced monitor state.
	ErrVerificationFailure = errors.New("bytecode does not verify")

	// ErrUnsupportedControlFlow marks non-stack-like subroutine nesting.
	// This is a named limitation rather than a miscompile: the routine is
	// valid bytecode the builder chooses not to translate.
	ErrUnsupportedControlFlow = errors.New("unsupported control flow")
)

// Bailout is the concrete error carried out of a failed construction. It
// always records the bytecode offset that triggered the failure.
type Bailout struct {
	Class  error // one of the Err* sentinels above
	BCI    int
	Reason string
}

func (b *Bailout) Error() string {
	return fmt.Sprintf("%v at bci %d: %s", b.Class, b.BCI, b.Reason)
}

func (b *Bailout) Unwrap() error { return b.Class }

func malformedControlFlow(bci int, format string, args ...interface{}) error {
	return &Bailout{Class: ErrMalformedControlFlow, BCI: bci, Reason: fmt.Sprintf(format, args...)}
}

func verificationFailure(bci int, format string, args ...interface{}) error {
	return &Bailout{Class: ErrVerificationFailure, BCI: bci, Reason: fmt.Sprintf(format, args...)}
}

func unsupportedControlFlow(bci int, format string, args ...interface{}) error {
	return &Bailout{Class: ErrUnsupportedControlFlow, BCI: bci, Reason: fmt.Sprintf(format, args...)}
}
