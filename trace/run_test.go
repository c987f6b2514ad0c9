package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestRunScenarios(t *testing.T) {
	testCases := []struct {
		name    string
		ops     []Op
		wantErr string
		check   func(t *testing.T, report *Report)
	}{
		{
			name: "int literals widen and clash",
			ops: []Op{
				{Op: "new_var", Kind: "int", Var: "lit1"},
				{Op: "new_var", Kind: "int", Var: "lit2"},
				{Op: "unify", Kind: "int", A: "lit1", B: "lit2", Expect: "ok"},
				{Op: "unify_value", Kind: "int", Var: "lit1", Value: "i32", Expect: "ok"},
				{Op: "probe", Kind: "int", Var: "lit2", Expect: "i32"},
				{Op: "new_var", Kind: "int", Var: "lit3"},
				{Op: "unify_value", Kind: "int", Var: "lit3", Value: "u8"},
				{Op: "unify", Kind: "int", A: "lit1", B: "lit3", Expect: "mismatch"},
				{Op: "probe", Kind: "int", Var: "lit3", Expect: "u8"},
			},
			check: func(t *testing.T, report *Report) {
				assert.Equal(t, 1, report.Mismatches)
				assert.Equal(t, 2, report.DistinctValues)
				assert.Empty(t, report.Unsolved)
			},
		},
		{
			name: "speculative attempt rolls back cleanly",
			ops: []Op{
				{Op: "new_var", Var: "ret"},
				{Op: "snapshot", Mark: "attempt"},
				{Op: "new_var", Var: "tmp"},
				{Op: "relate", A: "tmp", Dir: "subtype-of", B: "ret"},
				{Op: "instantiate", Var: "ret", Value: "String"},
				{Op: "escaping", Mark: "attempt", ExpectList: []string{"String"}},
				{Op: "rollback", Mark: "attempt"},
				{Op: "probe", Var: "ret", Expect: "none"},
				{Op: "unsolved", ExpectList: []string{"ret"}},
			},
			check: func(t *testing.T, report *Report) {
				assert.Equal(t, []string{"String"}, report.EscapedValues)
				assert.Equal(t, []string{"ret"}, report.Unsolved)
				assert.Zero(t, report.OpenMarks)
			},
		},
		{
			name: "committed work is kept",
			ops: []Op{
				{Op: "new_var", Var: "x"},
				{Op: "snapshot", Mark: "m"},
				{Op: "instantiate", Var: "x", Value: "Bool"},
				{Op: "commit", Mark: "m"},
				{Op: "probe", Var: "x", Expect: "Bool"},
				{Op: "unsolved", ExpectList: []string{}},
			},
			check: func(t *testing.T, report *Report) {
				assert.Zero(t, report.Mismatches)
				assert.Zero(t, report.OpenMarks)
			},
		},
		{
			name: "mismatch where success was expected",
			ops: []Op{
				{Op: "new_var", Kind: "int", Var: "lit"},
				{Op: "unify_value", Kind: "int", Var: "lit", Value: "i32"},
				{Op: "unify_value", Kind: "int", Var: "lit", Value: "u8", Expect: "ok"},
			},
			wantErr: "expected success",
		},
		{
			name: "success where a mismatch was expected",
			ops: []Op{
				{Op: "new_var", Kind: "float", Var: "lit"},
				{Op: "unify_value", Kind: "float", Var: "lit", Value: "f64", Expect: "mismatch"},
			},
			wantErr: "expected a mismatch",
		},
		{
			name: "out-of-order rollback is rejected",
			ops: []Op{
				{Op: "snapshot", Mark: "outer"},
				{Op: "snapshot", Mark: "inner"},
				{Op: "rollback", Mark: "outer"},
			},
			wantErr: "not the innermost",
		},
		{
			name: "marks predating a commit are dead",
			ops: []Op{
				{Op: "snapshot", Mark: "outer"},
				{Op: "new_var", Var: "x"},
				{Op: "snapshot", Mark: "inner"},
				{Op: "commit", Mark: "inner"},
				{Op: "rollback", Mark: "outer"},
			},
			wantErr: "no longer valid",
		},
		{
			name: "unknown names are scenario errors",
			ops: []Op{
				{Op: "new_var", Var: "a"},
				{Op: "relate", A: "a", Dir: "equal-to", B: "ghost"},
			},
			wantErr: `unknown type variable "ghost"`,
		},
		{
			name: "double instantiation is a scenario error",
			ops: []Op{
				{Op: "new_var", Var: "a"},
				{Op: "instantiate", Var: "a", Value: "i32"},
				{Op: "instantiate", Var: "a", Value: "Str"},
			},
			wantErr: "already instantiated",
		},
		{
			name: "relating a resolved variable is a scenario error",
			ops: []Op{
				{Op: "new_var", Var: "a"},
				{Op: "new_var", Var: "b"},
				{Op: "instantiate", Var: "a", Value: "i32"},
				{Op: "relate", A: "a", Dir: "subtype-of", B: "b"},
			},
			wantErr: "already instantiated",
		},
		{
			name: "unknown ops are rejected",
			ops: []Op{
				{Op: "frobnicate"},
			},
			wantErr: `unknown op "frobnicate"`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			report, err := Run(Scenario{Name: tc.name, Ops: tc.ops})
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
			if tc.check != nil {
				tc.check(t, report)
			}
		})
	}
}

func TestUnresolvedMarksAreReported(t *testing.T) {
	report, err := Run(Scenario{
		Name: "leak",
		Ops: []Op{
			{Op: "snapshot", Mark: "forgotten"},
			{Op: "new_var", Var: "x"},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, report.OpenMarks)
}

func TestScenarioYAML(t *testing.T) {
	doc := `
name: widening
ops:
  - op: new_var
    kind: int
    var: lit
  - op: unify_value
    kind: int
    var: lit
    value: i32
    expected_side: b
    expect: ok
  - op: new_var
    var: ret
  - op: snapshot
    mark: m
  - op: instantiate
    var: ret
    value: Str
  - op: escaping
    mark: m
    expect_list: [Str]
  - op: rollback
    mark: m
  - op: unsolved
    expect_list: [ret]
`
	var sc Scenario
	err := yaml.Unmarshal([]byte(doc), &sc)
	assert.NoError(t, err)
	assert.Equal(t, "widening", sc.Name)
	assert.Len(t, sc.Ops, 8)
	assert.Equal(t, "b", sc.Ops[1].ExpectedSide)
	assert.Equal(t, []string{"Str"}, sc.Ops[5].ExpectList)

	report, err := Run(sc)
	assert.NoError(t, err)
	assert.Equal(t, []string{"Str"}, report.EscapedValues)
	assert.Equal(t, []string{"ret"}, report.Unsolved)
}

func TestReportRender(t *testing.T) {
	report := &Report{
		Scenario:       "widening",
		Steps:          []string{"new int variable lit"},
		Unsolved:       []string{"ret"},
		EscapedValues:  []string{"Str"},
		DistinctValues: 2,
		OpenMarks:      1,
	}

	var plain bytes.Buffer
	report.Render(&plain, false)
	out := plain.String()
	assert.Contains(t, out, "scenario: widening")
	assert.Contains(t, out, "  new int variable lit")
	assert.Contains(t, out, "mismatches: none")
	assert.Contains(t, out, "unsolved: ret")
	assert.Contains(t, out, "escaping: Str")
	assert.Contains(t, out, "distinct values: 2")
	assert.Contains(t, out, "open snapshots left behind: 1")
	assert.NotContains(t, out, ansiReset)

	report.Mismatches = 3
	var colored bytes.Buffer
	report.Render(&colored, true)
	assert.Contains(t, colored.String(), "mismatches: 3")
	assert.Contains(t, colored.String(), ansiRed)
}
