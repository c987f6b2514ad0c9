// Package trace replays recorded inference scenarios against a fresh engine
// state and reports what the engine did. Scenarios are YAML documents listing
// the operations a type-checking pass would perform; they serve both as
// debugging input for the trace command and as end-to-end fixtures.
package trace

import (
	"fmt"

	"github.com/cay-lang/cay/infer"
)

// Scenario is one replayable inference session.
type Scenario struct {
	// Name identifies the scenario in reports and test output
	Name string `yaml:"name"`
	// Ops run in order against a single fresh state
	Ops []Op `yaml:"ops"`
}

// Op is one step of a scenario. Op selects the operation; the other fields
// that apply depend on it:
//
//	new_var      var, kind (type|int|float, default type), diverging, default
//	relate       a, dir, b (type kind only)
//	instantiate  var, value (type kind only)
//	probe        var, kind, expect (a value, or "none")
//	unify        a, b, kind (int|float), expected_side, expect (ok|mismatch)
//	unify_value  var, value, kind (int|float), expected_side, expect
//	snapshot     mark
//	rollback     mark (innermost open mark only)
//	commit       mark (innermost open mark only; older marks become invalid)
//	unsolved     expect_list (names of type variables still unresolved)
//	escaping     mark, expect_list (values escaping that open snapshot)
type Op struct {
	Op string `yaml:"op"`
	// Kind is the variable kind: type, int or float. new_var defaults to type.
	Kind string `yaml:"kind,omitempty"`
	// Var names the variable created or targeted
	Var string `yaml:"var,omitempty"`
	// A and B name the two operands of relate and unify
	A string `yaml:"a,omitempty"`
	B string `yaml:"b,omitempty"`
	// Dir is subtype-of, supertype-of, equal-to or bidirectional-to
	Dir string `yaml:"dir,omitempty"`
	// Value is the concrete type for instantiate and unify_value
	Value string `yaml:"value,omitempty"`
	// ExpectedSide says which operand a mismatch reports as expected: a
	// (the default) or b
	ExpectedSide string `yaml:"expected_side,omitempty"`
	// Mark names a snapshot
	Mark string `yaml:"mark,omitempty"`
	// Diverging marks a new type variable that cannot produce a value
	Diverging bool `yaml:"diverging,omitempty"`
	// Default is the fallback value recorded on a new type variable
	Default string `yaml:"default,omitempty"`
	// Expect asserts a single outcome: ok, mismatch, none, or a probed value
	Expect string `yaml:"expect,omitempty"`
	// ExpectList asserts a set-valued outcome for unsolved and escaping
	ExpectList []string `yaml:"expect_list,omitempty"`
}

func parseDirection(s string) (infer.Direction, error) {
	switch s {
	case "subtype-of":
		return infer.SubtypeOf, nil
	case "supertype-of":
		return infer.SupertypeOf, nil
	case "equal-to":
		return infer.EqualTo, nil
	case "bidirectional-to":
		return infer.BidirectionalTo, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}
