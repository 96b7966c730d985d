package verify

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

// Report is the result of verifying one run.
type Report struct {
	Variant     string             `json:"variant"`
	RunID       string             `json:"run_id,omitempty"`
	Expected    []string           `json:"expected"`
	Observed    []string           `json:"observed"`
	Outcome     checkpoint.Outcome `json:"-"`
	AbortReason string             `json:"abort_reason,omitempty"`
	Emitted     []string           `json:"emitted,omitempty"`
	Violations  []Violation        `json:"violations"`
}

// OK reports whether the run had no violations.
func (r *Report) OK() bool { return len(r.Violations) == 0 }

// Err combines every violation into one error, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, v := range r.Violations {
		err = multierr.Append(err, v)
	}
	return err
}

// Count returns how many violations are of kind k.
func (r *Report) Count(k ViolationKind) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind == k {
			n++
		}
	}
	return n
}

func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		*plain
		Outcome string `json:"outcome"`
		OK      bool   `json:"ok"`
	}{(*plain)(r), r.Outcome.String(), r.OK()})
}

// WriteText prints the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	status := "PASS"
	if !r.OK() {
		status = "FAIL"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %d/%d checkpoints, outcome %s", status, r.Variant,
		len(r.Observed), len(r.Expected), r.Outcome)
	if r.AbortReason != "" {
		fmt.Fprintf(&b, " (%s)", r.AbortReason)
	}
	b.WriteByte('\n')
	for _, v := range r.Violations {
		fmt.Fprintf(&b, "  %s: %s\n", v.Kind, v.Error())
	}
	_, err := io.WriteString(w, b.String())
	return err
}
