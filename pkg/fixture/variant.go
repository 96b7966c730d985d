package fixture

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

// StepKind distinguishes what an entry routine does at a step.
type StepKind int

const (
	// UnitStep invokes a catalogue unit
	UnitStep StepKind = iota
	// MarkerStep reaches a top-level checkpoint with no unit body
	MarkerStep
	// AggregateStep reaches tests_done after the units
	AggregateStep
)

// Step is one entry in a variant's declared sequence.
type Step struct {
	Kind StepKind
	Name string
}

func unit(name string) Step   { return Step{Kind: UnitStep, Name: name} }
func marker(name string) Step { return Step{Kind: MarkerStep, Name: name} }
func done() Step              { return Step{Kind: AggregateStep, Name: TestsDone} }

// Variant is one fixture program: its marker tag, its declared sequence and
// how its entry routine ends.
type Variant struct {
	Name        string
	Tag         checkpoint.Tag
	Params      Params
	Steps       []Step
	Terminal    checkpoint.Outcome
	AbortReason string
}

// Expected returns the checkpoint names a run of v reaches, in order.
func (v Variant) Expected() []string {
	names := make([]string, len(v.Steps))
	for i, s := range v.Steps {
		names[i] = s.Name
	}
	return names
}

// Units returns the catalogue units v invokes, in order.
func (v Variant) Units() []Unit {
	var units []Unit
	for _, s := range v.Steps {
		if s.Kind != UnitStep {
			continue
		}
		if u, ok := LookupUnit(s.Name); ok {
			units = append(units, u)
		}
	}
	return units
}

// Validate checks that v only names known units and ends in a terminal outcome.
func (v Variant) Validate() error {
	if v.Name == "" {
		return errors.Errorf("variant has no name")
	}
	if !v.Tag.Known() {
		return errors.Errorf("variant %s: unknown tag %q", v.Name, v.Tag)
	}
	seen := map[string]bool{}
	for i, s := range v.Steps {
		switch s.Kind {
		case UnitStep:
			if _, ok := LookupUnit(s.Name); !ok {
				return errors.Errorf("variant %s: step %d: unknown unit %q", v.Name, i, s.Name)
			}
			if seen[s.Name] {
				return errors.Errorf("variant %s: step %d: unit %q invoked twice", v.Name, i, s.Name)
			}
			seen[s.Name] = true
		case AggregateStep:
			if seen[TestsDone] {
				return errors.Errorf("variant %s: step %d: %s reached twice", v.Name, i, TestsDone)
			}
			seen[TestsDone] = true
		case MarkerStep:
			if _, ok := LookupUnit(s.Name); ok || s.Name == TestsDone {
				return errors.Errorf("variant %s: step %d: %q is not a top-level checkpoint", v.Name, i, s.Name)
			}
		}
	}
	if !v.Terminal.Terminal() {
		return errors.Errorf("variant %s: terminal outcome %s", v.Name, v.Terminal)
	}
	return nil
}

// Execute runs the entry routine of v on r: it declares the entry-level
// bindings, walks the steps once in order and takes the terminal action.
func (v Variant) Execute(r *checkpoint.Run, args []string) checkpoint.Outcome {
	r.Start(args)
	ctx := NewContext(args)
	release := r.Declare(ctx.Bindings()...)

	for _, s := range v.Steps {
		switch s.Kind {
		case UnitStep:
			u, ok := LookupUnit(s.Name)
			if !ok {
				panic(fmt.Sprintf("fixture: variant %s names unknown unit %q", v.Name, s.Name))
			}
			u.Body(r, v.Params)
		case MarkerStep, AggregateStep:
			r.Checkpoint(s.Name)
		}
	}

	release()
	if v.Terminal == checkpoint.AbortedDeliberately {
		return r.Abort(v.AbortReason)
	}
	return r.Complete()
}
