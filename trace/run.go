package trace

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/cay-lang/cay/infer"
	"github.com/cay-lang/cay/internal/log"
	"github.com/cay-lang/cay/util"
	"github.com/cay-lang/cay/util/hset"
	xtgo "github.com/xtgo/set"
)

var logger = log.DefaultLogger.With("section", "trace")

type runner struct {
	state     *infer.State[string, string, string]
	typeVars  map[string]infer.TypeVarID
	intVars   map[string]infer.IntVarID
	floatVars map[string]infer.FloatVarID
	typeNames map[infer.TypeVarID]string
	marks     map[string]infer.Snapshot
	invalid   map[string]bool
	open      []string
	values    hset.HSet[string]
	escaped   []string
	report    *Report
}

// Run executes sc against a fresh state. It errors when the scenario itself
// is malformed or one of its expectations does not hold; engine mismatches
// are ordinary outcomes recorded in the report.
func Run(sc Scenario) (*Report, error) {
	r := &runner{
		state:     infer.NewState[string, string, string](),
		typeVars:  map[string]infer.TypeVarID{},
		intVars:   map[string]infer.IntVarID{},
		floatVars: map[string]infer.FloatVarID{},
		typeNames: map[infer.TypeVarID]string{},
		marks:     map[string]infer.Snapshot{},
		invalid:   map[string]bool{},
		values:    hset.Empty(immutable.NewHasher("")),
		report:    &Report{Scenario: sc.Name},
	}
	logger.Debug("running scenario", "name", sc.Name, "ops", len(sc.Ops))
	for i, op := range sc.Ops {
		if err := r.step(op); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, op.Op, err)
		}
	}
	r.finish()
	return r.report, nil
}

func (r *runner) step(op Op) error {
	switch op.Op {
	case "new_var":
		return r.newVar(op)
	case "relate":
		return r.relate(op)
	case "instantiate":
		return r.instantiate(op)
	case "probe":
		return r.probe(op)
	case "unify":
		return r.unify(op)
	case "unify_value":
		return r.unifyValue(op)
	case "snapshot":
		return r.snapshot(op)
	case "rollback":
		return r.resolveMark(op, false)
	case "commit":
		return r.resolveMark(op, true)
	case "unsolved":
		return r.unsolved(op)
	case "escaping":
		return r.escaping(op)
	}
	return fmt.Errorf("unknown op %q", op.Op)
}

func (r *runner) logStep(format string, args ...any) {
	r.report.Steps = append(r.report.Steps, fmt.Sprintf(format, args...))
}

func (r *runner) newVar(op Op) error {
	if op.Var == "" {
		return errors.New("new_var needs a var name")
	}
	kind := op.Kind
	if kind == "" {
		kind = "type"
	}
	switch kind {
	case "type":
		if _, dup := r.typeVars[op.Var]; dup {
			return fmt.Errorf("type variable %q already exists", op.Var)
		}
		var deflt *infer.Default[string]
		if op.Default != "" {
			deflt = &infer.Default[string]{Value: op.Default}
		}
		vid := r.state.Types.NewVar(op.Diverging, deflt)
		r.typeVars[op.Var] = vid
		r.typeNames[vid] = op.Var
	case "int":
		if _, dup := r.intVars[op.Var]; dup {
			return fmt.Errorf("int variable %q already exists", op.Var)
		}
		r.intVars[op.Var] = r.state.Ints.NewVar()
	case "float":
		if _, dup := r.floatVars[op.Var]; dup {
			return fmt.Errorf("float variable %q already exists", op.Var)
		}
		r.floatVars[op.Var] = r.state.Floats.NewVar()
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	r.logStep("new %s variable %s", kind, op.Var)
	return nil
}

func (r *runner) typeVar(name string) (infer.TypeVarID, error) {
	vid, ok := r.typeVars[name]
	if !ok {
		return 0, fmt.Errorf("unknown type variable %q", name)
	}
	return vid, nil
}

func (r *runner) relate(op Op) error {
	a, err := r.typeVar(op.A)
	if err != nil {
		return err
	}
	b, err := r.typeVar(op.B)
	if err != nil {
		return err
	}
	dir, err := parseDirection(op.Dir)
	if err != nil {
		return err
	}
	if _, known := r.state.Types.Probe(a); known {
		return fmt.Errorf("%q is already instantiated", op.A)
	}
	if _, known := r.state.Types.Probe(b); known {
		return fmt.Errorf("%q is already instantiated", op.B)
	}
	r.state.Types.RelateVars(a, dir, b)
	r.logStep("related %s %s %s", op.A, dir, op.B)
	return nil
}

func (r *runner) instantiate(op Op) error {
	vid, err := r.typeVar(op.Var)
	if err != nil {
		return err
	}
	if op.Value == "" {
		return errors.New("instantiate needs a value")
	}
	if _, known := r.state.Types.Probe(vid); known {
		return fmt.Errorf("%q is already instantiated", op.Var)
	}
	var wl []infer.PendingRelation[string]
	r.state.Types.InstantiateAndPush(vid, op.Value, &wl)
	r.values.Add(op.Value)
	r.logStep("instantiated %s = %s (fanout %d)", op.Var, op.Value, len(wl))
	for _, pending := range wl {
		r.logStep("  pending: %s %s %s", pending.Value, pending.Dir, r.typeNames[pending.Var])
	}
	return nil
}

func (r *runner) probe(op Op) error {
	var val string
	var ok bool
	kind := op.Kind
	if kind == "" {
		kind = "type"
	}
	switch kind {
	case "type":
		vid, err := r.typeVar(op.Var)
		if err != nil {
			return err
		}
		val, ok = r.state.Types.Probe(vid)
	case "int":
		vid, found := r.intVars[op.Var]
		if !found {
			return fmt.Errorf("unknown int variable %q", op.Var)
		}
		val, ok = r.state.Ints.ProbeValue(vid)
	case "float":
		vid, found := r.floatVars[op.Var]
		if !found {
			return fmt.Errorf("unknown float variable %q", op.Var)
		}
		val, ok = r.state.Floats.ProbeValue(vid)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	if !ok {
		r.logStep("probed %s: unresolved", op.Var)
	} else {
		r.logStep("probed %s = %s", op.Var, val)
	}
	switch {
	case op.Expect == "":
		return nil
	case op.Expect == "none":
		if ok {
			return fmt.Errorf("expected %s to be unresolved, found %s", op.Var, val)
		}
	case !ok:
		return fmt.Errorf("expected %s to be %s, found it unresolved", op.Var, op.Expect)
	case val != op.Expect:
		return fmt.Errorf("expected %s to be %s, found %s", op.Var, op.Expect, val)
	}
	return nil
}

func (r *runner) unify(op Op) error {
	aIsExpected := op.ExpectedSide != "b"
	var err error
	switch op.Kind {
	case "int":
		a, foundA := r.intVars[op.A]
		b, foundB := r.intVars[op.B]
		if !foundA || !foundB {
			return fmt.Errorf("unknown int variables %q, %q", op.A, op.B)
		}
		err = r.state.Ints.UnifyVarVar(aIsExpected, a, b)
	case "float":
		a, foundA := r.floatVars[op.A]
		b, foundB := r.floatVars[op.B]
		if !foundA || !foundB {
			return fmt.Errorf("unknown float variables %q, %q", op.A, op.B)
		}
		err = r.state.Floats.UnifyVarVar(aIsExpected, a, b)
	default:
		return fmt.Errorf("unify needs kind int or float, got %q", op.Kind)
	}
	return r.outcome(op, fmt.Sprintf("unified %s with %s", op.A, op.B), err)
}

func (r *runner) unifyValue(op Op) error {
	if op.Value == "" {
		return errors.New("unify_value needs a value")
	}
	aIsExpected := op.ExpectedSide != "b"
	var err error
	switch op.Kind {
	case "int":
		vid, found := r.intVars[op.Var]
		if !found {
			return fmt.Errorf("unknown int variable %q", op.Var)
		}
		err = r.state.Ints.UnifyVarValue(aIsExpected, vid, op.Value)
	case "float":
		vid, found := r.floatVars[op.Var]
		if !found {
			return fmt.Errorf("unknown float variable %q", op.Var)
		}
		err = r.state.Floats.UnifyVarValue(aIsExpected, vid, op.Value)
	default:
		return fmt.Errorf("unify_value needs kind int or float, got %q", op.Kind)
	}
	if err == nil {
		r.values.Add(op.Value)
	}
	return r.outcome(op, fmt.Sprintf("unified %s with value %s", op.Var, op.Value), err)
}

// outcome folds an engine result into the report, honoring the op's expect
// field. Mismatches are recorded, not fatal, unless the op expected success.
func (r *runner) outcome(op Op, action string, err error) error {
	var mm infer.Mismatch[string]
	switch {
	case err == nil:
		if op.Expect == "mismatch" {
			return fmt.Errorf("expected a mismatch, but %s succeeded", action)
		}
		r.logStep("%s: ok", action)
		return nil
	case errors.As(err, &mm):
		r.report.Mismatches++
		r.logStep("%s: mismatch (expected %s, found %s)", action, mm.Expected, mm.Found)
		if op.Expect == "ok" {
			return fmt.Errorf("expected success: %w", err)
		}
		return nil
	}
	return err
}

func (r *runner) snapshot(op Op) error {
	if op.Mark == "" {
		return errors.New("snapshot needs a mark name")
	}
	if _, dup := r.marks[op.Mark]; dup {
		return fmt.Errorf("mark %q already exists", op.Mark)
	}
	r.marks[op.Mark] = r.state.Snapshot()
	r.open = append(r.open, op.Mark)
	r.logStep("snapshot %s", op.Mark)
	return nil
}

func (r *runner) resolveMark(op Op, commit bool) error {
	snap, err := r.openMark(op.Mark)
	if err != nil {
		return err
	}
	if top := r.open[len(r.open)-1]; top != op.Mark {
		return fmt.Errorf("mark %q is not the innermost open mark (%q is)", op.Mark, top)
	}
	r.open = r.open[:len(r.open)-1]
	delete(r.marks, op.Mark)
	if commit {
		r.state.Commit(snap)
		// everything still open predates this commit
		for _, name := range r.open {
			r.invalid[name] = true
		}
		r.logStep("commit %s", op.Mark)
		return nil
	}
	r.state.RollbackTo(snap)
	r.logStep("rollback %s", op.Mark)
	return nil
}

func (r *runner) openMark(name string) (infer.Snapshot, error) {
	if name == "" {
		return infer.Snapshot{}, errors.New("a mark name is required")
	}
	if r.invalid[name] {
		return infer.Snapshot{}, fmt.Errorf("mark %q predates a commit and is no longer valid", name)
	}
	snap, ok := r.marks[name]
	if !ok {
		return infer.Snapshot{}, fmt.Errorf("unknown or already resolved mark %q", name)
	}
	return snap, nil
}

func (r *runner) unsolved(op Op) error {
	ids := r.state.Types.UnsolvedVariables()
	names := util.SetFromSeq(util.MapIter(slices.Values(ids), func(vid infer.TypeVarID) string {
		return r.typeNames[vid]
	}), len(ids))
	sorted := names.Slice()
	sort.Strings(sorted)
	r.logStep("unsolved: %s", strings.Join(sorted, ", "))
	if op.ExpectList == nil {
		return nil
	}
	if names.Size() != len(op.ExpectList) || !names.ContainsSlice(op.ExpectList) {
		return fmt.Errorf("expected unsolved {%s}, found {%s}",
			strings.Join(op.ExpectList, ", "), strings.Join(sorted, ", "))
	}
	return nil
}

func (r *runner) escaping(op Op) error {
	snap, err := r.openMark(op.Mark)
	if err != nil {
		return err
	}
	vals := r.state.TypesEscaping(snap)
	r.escaped = append(r.escaped, vals...)
	r.logStep("escaping since %s: [%s]", op.Mark, strings.Join(vals, ", "))
	if op.ExpectList == nil {
		return nil
	}
	got := uniqueSorted(slices.Clone(vals))
	want := uniqueSorted(slices.Clone(op.ExpectList))
	if !slices.Equal(got, want) {
		return fmt.Errorf("expected escaping {%s}, found {%s}",
			strings.Join(want, ", "), strings.Join(got, ", "))
	}
	return nil
}

func uniqueSorted(vals []string) []string {
	sort.Strings(vals)
	n := xtgo.Uniq(sort.StringSlice(vals))
	return vals[:n]
}

func (r *runner) finish() {
	ids := r.state.Types.UnsolvedVariables()
	for _, vid := range ids {
		r.report.Unsolved = append(r.report.Unsolved, r.typeNames[vid])
	}
	sort.Strings(r.report.Unsolved)
	r.report.EscapedValues = uniqueSorted(r.escaped)
	r.report.DistinctValues = r.values.Len()
	r.report.OpenMarks = len(r.open)
	logger.Debug("scenario finished",
		"name", r.report.Scenario,
		"mismatches", r.report.Mismatches,
		"unsolved", len(r.report.Unsolved),
		"openMarks", r.report.OpenMarks,
	)
}
