// Package infer implements the constraint-variable store at the core of the
// type checker: inference variables looked up by dense ids, directional
// relations between them, rank-based union-find for the literal kinds, and a
// replayable undo log so speculative inference attempts leave no residue.
package infer

import "go/token"

// TypeVarID identifies a general type variable: the kind that accumulates
// directional relations until it is instantiated to a concrete value.
// Ids are dense, zero-based and scoped to the table that issued them; kinds
// never share ids and ids are never reused within a session.
type TypeVarID uint32

// IntVarID identifies an integer-literal inference variable.
type IntVarID uint32

// FloatVarID identifies a float-literal inference variable.
type FloatVarID uint32

// Direction is the sense of a relation imposed between two variables.
type Direction uint8

const (
	SubtypeOf Direction = iota
	SupertypeOf
	EqualTo
	BidirectionalTo
)

// Opposite is an involution: it swaps SubtypeOf with SupertypeOf and fixes
// the symmetric directions.
func (d Direction) Opposite() Direction {
	switch d {
	case SubtypeOf:
		return SupertypeOf
	case SupertypeOf:
		return SubtypeOf
	default:
		return d
	}
}

func (d Direction) String() string {
	switch d {
	case SubtypeOf:
		return "subtype-of"
	case SupertypeOf:
		return "supertype-of"
	case EqualTo:
		return "equal-to"
	case BidirectionalTo:
		return "bidirectional-to"
	}
	return "unknown-direction"
}

// Relation is one pending directional constraint against another variable.
// Relations always exist in symmetric pairs: recording (d, b) on a records
// (d.Opposite(), a) on b.
type Relation struct {
	Dir Direction
	Var TypeVarID
}

// PendingRelation is fan-out work produced when a variable is instantiated:
// the caller must still check Value against whatever Var resolves to.
type PendingRelation[V any] struct {
	Value V
	Dir   Direction
	Var   TypeVarID
}

// DefID identifies the definition a default originated from.
type DefID uint64

// Default is the fallback a variable acquires if inference never solves it,
// together with where that fallback came from.
type Default[V any] struct {
	Value  V
	Origin Range
	DefID  DefID
}

// Range is a span of source positions, used only to report default origins.
type Range struct {
	PosStart token.Pos
	PosEnd   token.Pos
}

// Pos returns the starting position of the range.
func (r Range) Pos() token.Pos { return r.PosStart }

// End returns the ending position of the range.
func (r Range) End() token.Pos { return r.PosEnd }
