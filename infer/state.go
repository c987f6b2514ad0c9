package infer

// State owns one table per variable kind for a single type-checking session:
// general type variables plus the integer- and float-literal scalars. Kinds
// never share ids. A State is exclusively owned by one checking pass and is
// not safe for concurrent use.
type State[T any, I, F comparable] struct {
	Types  *TypeVarTable[T]
	Ints   *UnifyTable[IntVarID, I]
	Floats *UnifyTable[FloatVarID, F]
}

func NewState[T any, I, F comparable]() *State[T, I, F] {
	return &State[T, I, F]{
		Types:  NewTypeVarTable[T](),
		Ints:   NewUnifyTable[IntVarID, I]("int"),
		Floats: NewUnifyTable[FloatVarID, F]("float"),
	}
}

// Snapshot marks all three tables as one transactional unit.
type Snapshot struct {
	types  Mark
	ints   Mark
	floats Mark
}

// Snapshot captures a combined mark. Speculative inference brackets its work
// with Snapshot and then exactly one of RollbackTo or Commit.
func (s *State[T, I, F]) Snapshot() Snapshot {
	return Snapshot{
		types:  s.Types.Snapshot(),
		ints:   s.Ints.Snapshot(),
		floats: s.Floats.Snapshot(),
	}
}

// RollbackTo undoes everything since snap across all kinds, in reverse order
// of capture.
func (s *State[T, I, F]) RollbackTo(snap Snapshot) {
	s.Floats.RollbackTo(snap.floats)
	s.Ints.RollbackTo(snap.ints)
	s.Types.RollbackTo(snap.types)
}

// Commit makes everything since snap permanent across all kinds.
func (s *State[T, I, F]) Commit(snap Snapshot) {
	s.Floats.Commit(snap.floats)
	s.Ints.Commit(snap.ints)
	s.Types.Commit(snap.types)
}

// TypesEscaping reports values bound since snap to type variables that
// predate snap.
func (s *State[T, I, F]) TypesEscaping(snap Snapshot) []T {
	return s.Types.TypesEscapingSnapshot(snap.types)
}
