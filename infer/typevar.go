package infer

import "math"

// typeVarSlot is Bounded or Known, discriminated by known. A Bounded slot
// accumulates relations and may carry a default; a Known slot carries only
// the resolved value. diverging survives the transition.
type typeVarSlot[V any] struct {
	known     bool
	diverging bool
	value     V          // Known
	relations []Relation // Bounded: pending constraints, appended in pairs
	deflt     *Default[V]
}

// TypeVarTable stores the general type variables: the kind that does not
// union-find-merge but instead tracks pending directional relations, handing
// them back as fresh work when a variable is instantiated. A variable goes
// Bounded to Known at most once.
type TypeVarTable[V any] struct {
	table slotTable[TypeVarID, typeVarSlot[V]]
}

func NewTypeVarTable[V any]() *TypeVarTable[V] {
	t := &TypeVarTable[V]{table: newSlotTable[TypeVarID, typeVarSlot[V]]("type")}
	t.table.reverseRelated = t.popRelatedPair
	return t
}

// popRelatedPair undoes one RelateVars: relations are only ever appended in
// symmetric pairs, so dropping each list's tail restores both exactly.
func (t *TypeVarTable[V]) popRelatedPair(a, b TypeVarID) {
	sa := &t.table.slots[a]
	sa.relations = sa.relations[:len(sa.relations)-1]
	sb := &t.table.slots[b]
	sb.relations = sb.relations[:len(sb.relations)-1]
}

// NewVar creates an unresolved variable. diverging marks variables introduced
// for expressions that cannot produce a value; deflt, when non-nil, is the
// fallback the checker applies if inference never solves the variable.
func (t *TypeVarTable[V]) NewVar(diverging bool, deflt *Default[V]) TypeVarID {
	vid := t.table.push(typeVarSlot[V]{diverging: diverging, deflt: deflt})
	logger.Debug("new type variable", "var", uint32(vid), "diverging", diverging, "hasDefault", deflt != nil)
	return vid
}

// RelateVars records a dir b, and the opposite relation on b, as pending
// work for whenever either side is instantiated. Relating a variable to
// itself is a no-op. Both sides must still be unresolved.
func (t *TypeVarTable[V]) RelateVars(a TypeVarID, dir Direction, b TypeVarID) {
	if a == b {
		return
	}
	if t.table.get(a).known || t.table.get(b).known {
		panic(bugf("relating type variables %d %v %d, but one side is already instantiated", a, dir, b))
	}
	logger.Debug("relating", "a", uint32(a), "dir", dir, "b", uint32(b))
	t.table.slots[a].relations = append(t.table.slots[a].relations, Relation{Dir: dir, Var: b})
	t.table.slots[b].relations = append(t.table.slots[b].relations, Relation{Dir: dir.Opposite(), Var: a})
	t.table.recordRelated(a, b)
}

// InstantiateAndPush resolves vid to v. The variable's pending relations are
// moved out and appended to worklist as (v, dir, other) entries: one
// resolution fans out into new constraints the caller must still check
// against each related variable. Instantiating a variable twice is a bug.
func (t *TypeVarTable[V]) InstantiateAndPush(vid TypeVarID, v V, worklist *[]PendingRelation[V]) {
	slot := t.table.get(vid)
	if slot.known {
		panic(bugf("asked to instantiate type variable %d, which is already instantiated", vid))
	}
	relations := slot.relations
	t.table.setInstantiated(vid, typeVarSlot[V]{known: true, diverging: slot.diverging, value: v})
	for _, rel := range relations {
		*worklist = append(*worklist, PendingRelation[V]{Value: v, Dir: rel.Dir, Var: rel.Var})
	}
	logger.Debug("instantiated", "var", uint32(vid), "value", v, "fanout", len(relations))
}

// Probe reports vid's resolved value, if it has one. It never mutates or
// logs.
func (t *TypeVarTable[V]) Probe(vid TypeVarID) (V, bool) {
	slot := t.table.get(vid)
	return slot.value, slot.known
}

// Default returns the fallback recorded when vid was created, or nil once vid
// is instantiated.
func (t *TypeVarTable[V]) Default(vid TypeVarID) *Default[V] {
	return t.table.get(vid).deflt
}

// Diverging reports whether vid was created for a diverging expression.
func (t *TypeVarTable[V]) Diverging(vid TypeVarID) bool {
	return t.table.get(vid).diverging
}

// UnsolvedVariables lists every variable still unresolved, in creation order,
// for end-of-pass could-not-infer diagnostics.
func (t *TypeVarTable[V]) UnsolvedVariables() []TypeVarID {
	var unsolved []TypeVarID
	for vid, slot := range t.table.slots {
		if !slot.known {
			unsolved = append(unsolved, TypeVarID(vid))
		}
	}
	return unsolved
}

// TypesEscapingSnapshot returns the values bound, since m was taken, to
// variables that already existed at m. Such bindings leak information out of
// the speculative region even if the caller rolls the region back, so the
// caller must surface them either way.
func (t *TypeVarTable[V]) TypesEscapingSnapshot(m Mark) []V {
	var escaping []V
	threshold := TypeVarID(math.MaxUint32)
	for _, r := range t.table.actionsSince(m) {
		switch r.kind {
		case undoNewSlot:
			if r.vid < threshold {
				threshold = r.vid
			}
		case undoInstantiate:
			if r.vid < threshold {
				v, ok := t.Probe(r.vid)
				if !ok {
					panic(bugf("escape scan found an instantiation record for unresolved variable %d", r.vid))
				}
				escaping = append(escaping, v)
			}
		}
	}
	logger.Debug("escape scan", "mark", m.undoLen, "escaping", len(escaping))
	return escaping
}

// NumVars is how many variables this table has issued.
func (t *TypeVarTable[V]) NumVars() int { return t.table.numVars() }

// Snapshot marks the current state for a later RollbackTo or Commit.
func (t *TypeVarTable[V]) Snapshot() Mark { return t.table.snapshot() }

// RollbackTo undoes every mutation since m was taken, restoring relation
// lists and defaults exactly.
func (t *TypeVarTable[V]) RollbackTo(m Mark) { t.table.rollbackTo(m) }

// Commit makes every mutation since m permanent; marks older than m become
// invalid.
func (t *TypeVarTable[V]) Commit(m Mark) { t.table.commit(m) }
