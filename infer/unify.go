package infer

type scalarSlotKind uint8

const (
	slotRoot scalarSlotKind = iota
	slotRedirect
)

// scalarSlot is Root or Redirect; the discriminant field stands in for a
// tagged union. A Root is the canonical representative of its class and may
// carry the class's resolved value. A Redirect points toward the root.
type scalarSlot[K ~uint32, V comparable] struct {
	kind     scalarSlotKind
	to       K // Redirect target
	value    V // Root: resolved value, meaningful when hasValue
	hasValue bool
	rank     uint32 // Root: union-by-rank weight
}

// UnifyTable is the union-find store for one scalar kind, such as the
// integer-literal and float-literal variables. Scalar variables carry no
// subtyping: unifying two of them means they must resolve to the same value,
// so a direct rank-based merge replaces relation bookkeeping.
type UnifyTable[K ~uint32, V comparable] struct {
	table slotTable[K, scalarSlot[K, V]]
}

// NewUnifyTable returns an empty table. kind names the variable kind in logs
// and invariant failures.
func NewUnifyTable[K ~uint32, V comparable](kind string) *UnifyTable[K, V] {
	return &UnifyTable[K, V]{table: newSlotTable[K, scalarSlot[K, V]](kind)}
}

// NewVar creates a fresh variable that is its own root, with no value yet.
func (u *UnifyTable[K, V]) NewVar() K {
	vid := u.table.push(scalarSlot[K, V]{kind: slotRoot})
	logger.Debug("new scalar variable", "kind", u.table.kind, "var", uint32(vid))
	return vid
}

// find walks redirects to vid's root, then compresses the walked path: every
// visited redirect not already pointing at the root is rewritten to point
// straight there, one logged overwrite per hop. Finding the same variable
// again rewrites nothing. Explicit loops, not recursion, so pathological
// chains cannot exhaust the stack.
func (u *UnifyTable[K, V]) find(vid K) (K, scalarSlot[K, V]) {
	root := vid
	slot := u.table.get(root)
	for slot.kind == slotRedirect {
		root = slot.to
		slot = u.table.get(root)
	}
	for cur := vid; cur != root; {
		s := u.table.get(cur)
		next := s.to
		if next != root {
			s.to = root
			u.table.set(cur, s)
		}
		cur = next
	}
	return root, slot
}

// union merges two distinct roots under the rank heuristic and stores the
// combined value on the surviving root. Exactly one side's rank can grow, and
// only by one, which keeps redirect chains logarithmic in the class size.
func (u *UnifyTable[K, V]) union(rootA, rootB K, value V, hasValue bool) K {
	a := u.table.get(rootA)
	b := u.table.get(rootB)
	winner, rank := rootA, a.rank
	switch {
	case a.rank > b.rank:
		u.table.set(rootB, scalarSlot[K, V]{kind: slotRedirect, to: rootA})
	case a.rank < b.rank:
		winner, rank = rootB, b.rank
		u.table.set(rootA, scalarSlot[K, V]{kind: slotRedirect, to: rootB})
	default:
		rank = a.rank + 1
		u.table.set(rootB, scalarSlot[K, V]{kind: slotRedirect, to: rootA})
	}
	u.table.set(winner, scalarSlot[K, V]{kind: slotRoot, value: value, hasValue: hasValue, rank: rank})
	logger.Debug("union", "kind", u.table.kind, "a", uint32(rootA), "b", uint32(rootB), "root", uint32(winner), "rank", rank)
	return winner
}

// UnifyVarVar requires a and b to resolve to the same value, merging their
// classes. When both classes already hold values that disagree, the returned
// Mismatch is oriented by aIsExpected and neither class is touched.
func (u *UnifyTable[K, V]) UnifyVarVar(aIsExpected bool, a, b K) error {
	rootA, slotA := u.find(a)
	rootB, slotB := u.find(b)
	if rootA == rootB {
		return nil
	}
	var value V
	hasValue := false
	switch {
	case slotA.hasValue && slotB.hasValue:
		if slotA.value != slotB.value {
			return newMismatch(aIsExpected, slotA.value, slotB.value)
		}
		value, hasValue = slotA.value, true
	case slotA.hasValue:
		value, hasValue = slotA.value, true
	case slotB.hasValue:
		value, hasValue = slotB.value, true
	}
	u.union(rootA, rootB, value, hasValue)
	return nil
}

// UnifyVarValue requires a's class to resolve to v. A class with no value yet
// takes v; a class that already resolved to something different reports a
// Mismatch, oriented by aIsExpected with the class's value on a's side, and
// stays unchanged.
func (u *UnifyTable[K, V]) UnifyVarValue(aIsExpected bool, a K, v V) error {
	root, slot := u.find(a)
	if !slot.hasValue {
		slot.value = v
		slot.hasValue = true
		u.table.set(root, slot)
		logger.Debug("scalar variable resolved", "kind", u.table.kind, "var", uint32(a), "value", v)
		return nil
	}
	if slot.value == v {
		return nil
	}
	return newMismatch(aIsExpected, slot.value, v)
}

// ProbeValue reports the value vid's class has resolved to, if any.
func (u *UnifyTable[K, V]) ProbeValue(vid K) (V, bool) {
	_, slot := u.find(vid)
	return slot.value, slot.hasValue
}

// NumVars is how many variables this table has issued.
func (u *UnifyTable[K, V]) NumVars() int { return u.table.numVars() }

// Snapshot marks the current state for a later RollbackTo or Commit.
func (u *UnifyTable[K, V]) Snapshot() Mark { return u.table.snapshot() }

// RollbackTo undoes every mutation since m was taken.
func (u *UnifyTable[K, V]) RollbackTo(m Mark) { u.table.rollbackTo(m) }

// Commit makes every mutation since m permanent; marks older than m become
// invalid.
func (u *UnifyTable[K, V]) Commit(m Mark) { u.table.commit(m) }
