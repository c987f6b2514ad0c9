package infer

import (
	"fmt"

	"github.com/pkg/errors"
)

// Mismatch is the recoverable disagreement between two concrete values during
// scalar unification. Which operand lands in Expected is chosen by the
// aIsExpected flag the caller passed, so diagnostics can phrase
// "expected X, found Y" correctly regardless of argument order.
type Mismatch[V comparable] struct {
	Expected V
	Found    V
}

func (m Mismatch[V]) Error() string {
	return fmt.Sprintf("type mismatch: expected type '%v', but found a different type '%v'", m.Expected, m.Found)
}

func newMismatch[V comparable](aIsExpected bool, a, b V) Mismatch[V] {
	if aIsExpected {
		return Mismatch[V]{Expected: a, Found: b}
	}
	return Mismatch[V]{Expected: b, Found: a}
}

// bugf builds the error for a broken engine invariant. These are bugs in the
// caller (the type checker), never type errors in the program under
// inference, so call sites panic with it instead of returning it.
func bugf(format string, args ...any) error {
	return errors.Errorf("inference engine bug: "+format, args...)
}
