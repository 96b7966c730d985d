package verify

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

func TestShippedScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			report, err := RunScenario(context.Background(), s, RunOptions{})
			require.NoError(t, err)
			assert.NoError(t, s.Evaluate(report))
		})
	}
}

func TestScenarioExpectation(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: c
variant: toplevel
only: [break_main, just_checking]
expect:
  sequence: [just_checking, break_main, just_checking, break_main]
  outcome: completed
  max_steps: 10
`))
	require.NoError(t, err)

	exp, err := s.Expectation()
	require.NoError(t, err)
	assert.Equal(t, []string{"just_checking", "break_main", "just_checking", "break_main"}, exp.Sequence)
	assert.Equal(t, checkpoint.CompletedNormally, exp.Outcome)
	assert.Equal(t, 10, exp.MaxSteps)
}

func TestScenarioSequenceMismatch(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
variant: basic
expect:
  sequence: [test_float, test_int]
  outcome: completed
`))
	require.NoError(t, err)
	_, err = s.Expectation()
	assert.ErrorContains(t, err, "does not match variant basic")
}

func TestScenarioOutcomeMismatch(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: basic-aborts
variant: basic
expect:
  outcome: aborted
  violations: [outcome_mismatch]
`))
	require.NoError(t, err)
	report, err := RunScenario(context.Background(), s, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(OutcomeMismatch))
	assert.NoError(t, s.Evaluate(report))
}

func TestScenarioRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field":   "name: x\nvariant: basic\nexpect: {outcome: completed}\nextra: 1\n",
		"no name":         "variant: basic\nexpect: {outcome: completed}\n",
		"unknown variant": "name: x\nvariant: nope\nexpect: {outcome: completed}\n",
		"bad outcome":     "name: x\nvariant: basic\nexpect: {outcome: crashed}\n",
		"running outcome": "name: x\nvariant: basic\nexpect: {outcome: running}\n",
		"bad hooks":       "name: x\nvariant: basic\nhooks: some\nexpect: {outcome: completed}\n",
		"bad violation":   "name: x\nvariant: basic\nexpect: {outcome: completed, violations: [oops]}\n",
	} {
		_, err := ParseScenario([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadScenarioMissing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
