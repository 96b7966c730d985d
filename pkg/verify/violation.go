package verify

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

// ViolationKind classifies what went wrong in a run.
type ViolationKind int

const (
	// MissingCheckpoint: an expected checkpoint was never delivered.
	MissingCheckpoint ViolationKind = iota
	// UnexpectedCheckpoint: a checkpoint arrived out of order or was not declared.
	UnexpectedCheckpoint
	// HookFailed: the inspection hook of a checkpoint returned an error.
	HookFailed
	// OutcomeMismatch: the run ended differently than declared.
	OutcomeMismatch
	// ResourceMisuse: a heap buffer leaked or was freed twice.
	ResourceMisuse
)

var violationKindNames = map[ViolationKind]string{
	MissingCheckpoint:    "missing_checkpoint",
	UnexpectedCheckpoint: "unexpected_checkpoint",
	HookFailed:           "hook_failed",
	OutcomeMismatch:      "outcome_mismatch",
	ResourceMisuse:       "resource_misuse",
}

func (k ViolationKind) String() string {
	if s, ok := violationKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("violation(%d)", int(k))
}

func (k ViolationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ViolationKind) UnmarshalText(b []byte) error {
	for kind, name := range violationKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return errors.Errorf("unknown violation kind %q", b)
}

// Violation is one protocol or inspection failure.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Checkpoint string        `json:"checkpoint,omitempty"`
	Ordinal    int           `json:"ordinal,omitempty"`
	Message    string        `json:"message"`
}

func (v Violation) Error() string {
	if v.Ordinal > 0 {
		return fmt.Sprintf("%s (#%d)", v.Message, v.Ordinal)
	}
	return v.Message
}

func missing(name string) Violation {
	return Violation{
		Kind:       MissingCheckpoint,
		Checkpoint: name,
		Message:    fmt.Sprintf("missing checkpoint `%s`", name),
	}
}

func unexpected(name string, ordinal int, want string) Violation {
	msg := fmt.Sprintf("unexpected checkpoint `%s`", name)
	if want != "" {
		msg = fmt.Sprintf("unexpected checkpoint `%s`, expected `%s`", name, want)
	}
	return Violation{Kind: UnexpectedCheckpoint, Checkpoint: name, Ordinal: ordinal, Message: msg}
}

func outcomeMismatch(want, got checkpoint.Outcome) Violation {
	return Violation{
		Kind:    OutcomeMismatch,
		Message: fmt.Sprintf("expected outcome %s, got %s", want, got),
	}
}

func resourceViolations(leaked, doubleFrees int) []Violation {
	var vs []Violation
	if leaked > 0 {
		vs = append(vs, Violation{Kind: ResourceMisuse, Message: fmt.Sprintf("%d heap buffer(s) leaked", leaked)})
	}
	if doubleFrees > 0 {
		vs = append(vs, Violation{Kind: ResourceMisuse, Message: fmt.Sprintf("%d double free(s)", doubleFrees)})
	}
	return vs
}

// match advances through seq from next on delivery of name. A name found
// further ahead marks the skipped checkpoints missing; a name not found ahead
// is unexpected and does not advance.
func match(seq []string, next int, name string, ordinal int) (int, []Violation) {
	for j := next; j < len(seq); j++ {
		if seq[j] != name {
			continue
		}
		var vs []Violation
		for _, skipped := range seq[next:j] {
			vs = append(vs, missing(skipped))
		}
		return j + 1, vs
	}
	want := ""
	if next < len(seq) {
		want = seq[next]
	}
	return next, []Violation{unexpected(name, ordinal, want)}
}

// CheckSequence compares an observed checkpoint sequence and outcome against
// exp.
func CheckSequence(exp Expectation, observed []string, outcome checkpoint.Outcome) []Violation {
	var (
		vs   []Violation
		next int
	)
	for i, name := range observed {
		var found []Violation
		next, found = match(exp.Sequence, next, name, i+1)
		vs = append(vs, found...)
	}
	for _, name := range exp.Sequence[next:] {
		vs = append(vs, missing(name))
	}
	if outcome != exp.Outcome {
		vs = append(vs, outcomeMismatch(exp.Outcome, outcome))
	}
	return vs
}

// CheckExit compares how the fixture process ended with the expected
// outcome. The trace can say "aborted" while the process died some other
// way, so out-of-process observers check both.
func CheckExit(exp Expectation, exit checkpoint.Outcome) []Violation {
	if exit == exp.Outcome {
		return nil
	}
	return []Violation{{
		Kind:    OutcomeMismatch,
		Message: fmt.Sprintf("process exit: expected %s, got %s", exp.Outcome, exit),
	}}
}
