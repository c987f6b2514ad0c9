package infer

import (
	"github.com/cay-lang/cay/internal/log"
	"github.com/cay-lang/cay/util"
)

var logger = log.DefaultLogger.With("section", "infer")

// Mark is an opaque point in one table's undo log, captured by Snapshot.
// Marks must be resolved innermost first, each exactly once, by either
// RollbackTo or Commit.
type Mark struct {
	undoLen int
}

type undoKind uint8

const (
	// undoNewSlot records that the table grew by one slot
	undoNewSlot undoKind = iota
	// undoWrite records an overwritten slot and its previous value
	undoWrite
	// undoInstantiate is an undoWrite that resolved a bounded variable; it
	// keeps its own tag so escape analysis can recognize it in the log
	undoInstantiate
	// undoRelate records one relation appended to each of two variables
	undoRelate
)

type undoRecord[K ~uint32, S any] struct {
	kind  undoKind
	vid   K // the slot created, written or instantiated; first of a related pair
	other K // second of a related pair
	prev  S // previous slot value for undoWrite and undoInstantiate
}

// slotTable is the append-only variable store of one kind plus its undo log.
// Slots are indexed by dense zero-based ids. Every mutation after a slot's
// creation is logged, so rollbackTo restores the table exactly as it was when
// the mark was taken. Storage itself never shrinks within a session.
type slotTable[K ~uint32, S any] struct {
	kind      string
	slots     []S
	log       []undoRecord[K, S]
	openMarks util.Stack[Mark]
	committed int

	// reverseRelated undoes one undoRelate record by popping the relation
	// appended to each of a and b. Wired by the bounded kind, which is the
	// only kind that logs such records.
	reverseRelated func(a, b K)
}

func newSlotTable[K ~uint32, S any](kind string) slotTable[K, S] {
	return slotTable[K, S]{kind: kind}
}

// push appends a fresh slot and returns its id. It never fails.
func (t *slotTable[K, S]) push(slot S) K {
	vid := K(len(t.slots))
	t.slots = append(t.slots, slot)
	t.log = append(t.log, undoRecord[K, S]{kind: undoNewSlot, vid: vid})
	return vid
}

func (t *slotTable[K, S]) get(vid K) S {
	t.mustExist(vid)
	return t.slots[vid]
}

// set overwrites vid's slot, logging the previous value first.
func (t *slotTable[K, S]) set(vid K, slot S) {
	t.mustExist(vid)
	t.log = append(t.log, undoRecord[K, S]{kind: undoWrite, vid: vid, prev: t.slots[vid]})
	t.slots[vid] = slot
}

// setInstantiated is set tagged as a variable resolution.
func (t *slotTable[K, S]) setInstantiated(vid K, slot S) {
	t.mustExist(vid)
	t.log = append(t.log, undoRecord[K, S]{kind: undoInstantiate, vid: vid, prev: t.slots[vid]})
	t.slots[vid] = slot
}

// recordRelated logs an undoRelate without touching any slot; the caller has
// already performed the two appends itself.
func (t *slotTable[K, S]) recordRelated(a, b K) {
	t.log = append(t.log, undoRecord[K, S]{kind: undoRelate, vid: a, other: b})
}

func (t *slotTable[K, S]) mustExist(vid K) {
	if int(vid) >= len(t.slots) {
		panic(bugf("%s variable %d was never created (table holds %d)", t.kind, vid, len(t.slots)))
	}
}

func (t *slotTable[K, S]) numVars() int { return len(t.slots) }

// snapshot marks the current log position for a later rollbackTo or commit.
func (t *slotTable[K, S]) snapshot() Mark {
	m := Mark{undoLen: len(t.log)}
	t.openMarks.Push(m)
	logger.Debug("snapshot taken", "kind", t.kind, "mark", m.undoLen)
	return m
}

// rollbackTo undoes, newest first, every record logged since m was taken,
// then truncates the log back to m. m must be the innermost open mark and
// must not predate the last commit.
func (t *slotTable[K, S]) rollbackTo(m Mark) {
	t.resolveMark(m, "rollback")
	tail := t.log[m.undoLen:]
	for r := range util.Reverse(tail) {
		switch r.kind {
		case undoNewSlot:
			if int(r.vid) != len(t.slots)-1 {
				panic(bugf("%s undo log out of sync: expected slot %d on top, found %d", t.kind, r.vid, len(t.slots)-1))
			}
			t.slots = t.slots[:len(t.slots)-1]
		case undoWrite, undoInstantiate:
			t.slots[r.vid] = r.prev
		case undoRelate:
			t.reverseRelated(r.vid, r.other)
		}
	}
	t.log = t.log[:m.undoLen]
	logger.Debug("rolled back", "kind", t.kind, "mark", m.undoLen, "undone", len(tail))
}

// commit makes every mutation since m permanent by dropping its records
// without replaying them. Marks taken before m become invalid: the engine
// never rolls back past a commit.
func (t *slotTable[K, S]) commit(m Mark) {
	t.resolveMark(m, "commit")
	dropped := len(t.log) - m.undoLen
	t.log = t.log[:m.undoLen]
	t.committed = m.undoLen
	logger.Debug("committed", "kind", t.kind, "mark", m.undoLen, "records", dropped)
}

func (t *slotTable[K, S]) resolveMark(m Mark, op string) {
	top, ok := t.openMarks.Pop()
	if !ok {
		panic(bugf("%s %s(%d) with no snapshot open", t.kind, op, m.undoLen))
	}
	if top != m {
		panic(bugf("%s %s(%d) out of order: innermost open mark is %d", t.kind, op, m.undoLen, top.undoLen))
	}
	if m.undoLen < t.committed {
		panic(bugf("%s %s(%d) predates the last commit (%d)", t.kind, op, m.undoLen, t.committed))
	}
}

// actionsSince returns the records logged after m was taken, oldest first.
// The slice aliases the live log and must not be retained across mutations.
func (t *slotTable[K, S]) actionsSince(m Mark) []undoRecord[K, S] {
	if m.undoLen > len(t.log) {
		panic(bugf("%s actionsSince(%d) is past the end of the log (%d)", t.kind, m.undoLen, len(t.log)))
	}
	return t.log[m.undoLen:]
}
