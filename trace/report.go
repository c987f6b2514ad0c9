package trace

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// Report summarizes one scenario run.
type Report struct {
	Scenario string
	// Steps is one rendered line per executed operation
	Steps []string
	// Mismatches counts recoverable unification disagreements
	Mismatches int
	// Unsolved names the type variables still unresolved at the end
	Unsolved []string
	// EscapedValues is the sorted, de-duplicated union of every escaping op
	EscapedValues []string
	// DistinctValues counts the distinct concrete values bound anywhere
	DistinctValues int
	// OpenMarks counts snapshots never rolled back or committed
	OpenMarks int
}

// Render writes a human-readable summary. color turns on ANSI escapes.
func (r *Report) Render(w io.Writer, color bool) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}
	_, _ = fmt.Fprintf(w, "%s\n", paint(ansiBold, "scenario: "+r.Scenario))
	for _, step := range r.Steps {
		_, _ = fmt.Fprintf(w, "  %s\n", paint(ansiDim, step))
	}
	if r.Mismatches > 0 {
		_, _ = fmt.Fprintf(w, "%s\n", paint(ansiRed, fmt.Sprintf("mismatches: %d", r.Mismatches)))
	} else {
		_, _ = fmt.Fprintf(w, "%s\n", paint(ansiGreen, "mismatches: none"))
	}
	if len(r.Unsolved) > 0 {
		_, _ = fmt.Fprintf(w, "unsolved: %s\n", strings.Join(r.Unsolved, ", "))
	}
	if len(r.EscapedValues) > 0 {
		_, _ = fmt.Fprintf(w, "escaping: %s\n", strings.Join(r.EscapedValues, ", "))
	}
	_, _ = fmt.Fprintf(w, "distinct values: %d\n", r.DistinctValues)
	if r.OpenMarks > 0 {
		_, _ = fmt.Fprintf(w, "%s\n", paint(ansiYellow, fmt.Sprintf("open snapshots left behind: %d", r.OpenMarks)))
	}
}
