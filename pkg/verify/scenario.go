package verify

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/fixture"
)

// Scenario is an end-to-end check of one fixture variant, loaded from YAML.
type Scenario struct {
	// Name identifies the scenario in reports.
	Name string `yaml:"name"`

	// Description says what the scenario demonstrates.
	Description string `yaml:"description,omitempty"`

	// Variant is the fixture variant to run.
	Variant string `yaml:"variant"`

	// Args is the argument vector. The first element is argv[0].
	Args []string `yaml:"args,omitempty"`

	// Expect overrides parts of the variant's own expectation.
	Expect ScenarioExpect `yaml:"expect"`

	// Only and Skip select checkpoints like RUMMAGE_ONLY and RUMMAGE_SKIP.
	Only []string `yaml:"only,omitempty"`
	Skip []string `yaml:"skip,omitempty"`

	// Hooks is "default" or "none".
	Hooks string `yaml:"hooks,omitempty"`
}

// ScenarioExpect is the expected behaviour of a scenario run.
type ScenarioExpect struct {
	// Sequence, when set, must equal the variant's declared sequence after
	// selection. It documents the order in the scenario file.
	Sequence []string `yaml:"sequence,omitempty"`

	// Outcome is "completed" or "aborted".
	Outcome string `yaml:"outcome"`

	// MaxSteps bounds checkpoint deliveries.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Violations lists violation kinds the run must produce, e.g. for a
	// scenario demonstrating a missing checkpoint. Empty means none.
	Violations []string `yaml:"violations,omitempty"`
}

// LoadScenario reads and validates a scenario file. Unknown fields are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scenario")
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", filepath.Base(path))
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "parsing YAML")
	}
	if err := s.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if _, ok := fixture.Lookup(s.Variant); !ok {
		return errors.Errorf("unknown variant %q", s.Variant)
	}
	if _, err := s.outcome(); err != nil {
		return err
	}
	switch s.Hooks {
	case "", "default", "none":
	default:
		return errors.Errorf("hooks must be default or none, got %q", s.Hooks)
	}
	for _, k := range s.Expect.Violations {
		var kind ViolationKind
		if err := kind.UnmarshalText([]byte(k)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) outcome() (checkpoint.Outcome, error) {
	o, err := checkpoint.ParseOutcome(s.Expect.Outcome)
	if err != nil {
		return o, errors.Wrap(err, "expect.outcome")
	}
	if !o.Terminal() {
		return o, errors.New("expect.outcome must be terminal")
	}
	return o, nil
}

// Selection is the checkpoint selection the scenario runs with.
func (s *Scenario) Selection() checkpoint.Options {
	o := checkpoint.DefaultOptions()
	o.Only = s.Only
	o.Skip = s.Skip
	return o
}

// Expectation builds the expectation the scenario checks, starting from the
// variant's declared sequence.
func (s *Scenario) Expectation() (Expectation, error) {
	v, ok := fixture.Lookup(s.Variant)
	if !ok {
		return Expectation{}, errors.Errorf("unknown variant %q", s.Variant)
	}
	exp := ExpectationFor(v).Filter(s.Selection())
	exp.MaxSteps = s.Expect.MaxSteps

	o, err := s.outcome()
	if err != nil {
		return exp, err
	}
	exp.Outcome = o

	if len(s.Expect.Sequence) > 0 && strings.Join(s.Expect.Sequence, ",") != strings.Join(exp.Sequence, ",") {
		return exp, errors.Errorf("expect.sequence %v does not match variant %s: %v",
			s.Expect.Sequence, v.Name, exp.Sequence)
	}
	return exp, nil
}

// Evaluate compares a report against the violations the scenario expects.
// It returns nil when the report has exactly the expected violation kinds.
func (s *Scenario) Evaluate(r *Report) error {
	want := map[ViolationKind]int{}
	for _, k := range s.Expect.Violations {
		var kind ViolationKind
		_ = kind.UnmarshalText([]byte(k))
		want[kind]++
	}
	if len(want) == 0 {
		return r.Err()
	}
	for kind, n := range want {
		if got := r.Count(kind); got < n {
			return errors.Errorf("scenario %s: expected %d %s violation(s), got %d", s.Name, n, kind, got)
		}
	}
	for _, v := range r.Violations {
		if want[v.Kind] == 0 {
			return errors.Wrapf(v, "scenario %s", s.Name)
		}
	}
	return nil
}
