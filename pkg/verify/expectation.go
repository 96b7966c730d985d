package verify

import (
	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/fixture"
)

// stepSlack is how many deliveries past the declared sequence a verifier
// tolerates before it stops waiting for a missing checkpoint.
const stepSlack = 8

// Expectation is what an observer expects of one run.
type Expectation struct {
	Variant  string
	Sequence []string
	Outcome  checkpoint.Outcome
	// MaxSteps bounds how many checkpoint deliveries are examined. Zero means
	// the length of Sequence plus a small slack.
	MaxSteps int
}

// ExpectationFor derives the expectation of a fixture variant.
func ExpectationFor(v fixture.Variant) Expectation {
	return Expectation{
		Variant:  v.Name,
		Sequence: v.Expected(),
		Outcome:  v.Terminal,
	}
}

// Steps is the effective delivery bound.
func (e Expectation) Steps() int {
	if e.MaxSteps > 0 {
		return e.MaxSteps
	}
	return len(e.Sequence) + stepSlack
}

// Filter drops the checkpoints o does not deliver.
func (e Expectation) Filter(o checkpoint.Options) Expectation {
	if !o.Enabled {
		e.Sequence = nil
		return e
	}
	seq := make([]string, 0, len(e.Sequence))
	for _, name := range e.Sequence {
		if o.ShouldObserve(name) {
			seq = append(seq, name)
		}
	}
	e.Sequence = seq
	return e
}
