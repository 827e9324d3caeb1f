package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuiteDefinitionFull(t *testing.T) {
	doc := `
name: "fsl tests"
container: fsl
default_timeout: 300
test_data:
  input_dir: data/fsl
  output_dir: out/fsl
env_setup: "export FSLOUTPUTTYPE=NIFTI_GZ"
setup:
  script: "mkdir -p staging"
cleanup:
  script: "rm -rf staging"
tests:
  - name: "bet runs"
    command: "bet ${input_dir}/t1.nii ${output_dir}/brain"
    timeout: 60
    expected_exit_code: 0
  - name: "version banner"
    command: "flirt -version"
    expected_output_contains: "FLIRT version"
`
	def, err := ParseSuiteDefinition([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "fsl tests", def.Name)
	assert.Equal(t, "fsl", def.Container)
	assert.Equal(t, 300, def.DefaultTimeout)
	assert.Equal(t, "data/fsl", def.TestData["input_dir"])
	assert.Equal(t, "export FSLOUTPUTTYPE=NIFTI_GZ", def.EnvSetup)
	assert.Equal(t, "mkdir -p staging", def.Setup.Script)
	assert.Equal(t, "rm -rf staging", def.Cleanup.Script)
	require.Len(t, def.Tests, 2)

	first := def.Tests[0]
	assert.Equal(t, 60, first.Timeout)
	require.NotNil(t, first.ExpectedExitCode)
	assert.Equal(t, 0, *first.ExpectedExitCode)

	second := def.Tests[1]
	assert.Nil(t, second.ExpectedExitCode)
	assert.Equal(t, StringList{"FLIRT version"}, second.ExpectedOutputContains)
}

func TestParseSuiteDefinitionInvalidYAML(t *testing.T) {
	_, err := ParseSuiteDefinition([]byte("tests: [unclosed"))
	require.Error(t, err)
}

func TestStringListAcceptsSequence(t *testing.T) {
	doc := `
tests:
  - name: multi
    command: run
    expected_output_contains:
      - "first"
      - "second"
`
	def, err := ParseSuiteDefinition([]byte(doc))
	require.NoError(t, err)
	require.Len(t, def.Tests, 1)
	assert.Equal(t, StringList{"first", "second"}, def.Tests[0].ExpectedOutputContains)
}

func TestStringListRejectsMapping(t *testing.T) {
	doc := `
tests:
  - name: bad
    command: run
    expected_output_contains:
      nested: value
`
	_, err := ParseSuiteDefinition([]byte(doc))
	require.Error(t, err)
}

func TestEffectiveTimeoutSeconds(t *testing.T) {
	spec := TestSpec{Timeout: 45}
	assert.Equal(t, 45, spec.EffectiveTimeoutSeconds(300))

	spec.Timeout = 0
	assert.Equal(t, 300, spec.EffectiveTimeoutSeconds(300))
	assert.Equal(t, DefaultTimeoutSeconds, spec.EffectiveTimeoutSeconds(0))
}

func TestDisplayNameFallback(t *testing.T) {
	named := TestSpec{Name: "bet runs"}
	assert.Equal(t, "bet runs", named.DisplayName())

	unnamed := TestSpec{}
	assert.Equal(t, "Unnamed test", unnamed.DisplayName())
}

func TestNegatedExitCodeParses(t *testing.T) {
	doc := `
tests:
  - name: must fail
    command: "false"
    expected_exit_code_not: 0
`
	def, err := ParseSuiteDefinition([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, def.Tests[0].ExpectedExitCodeNot)
	assert.Equal(t, 0, *def.Tests[0].ExpectedExitCodeNot)
}

func TestNewSuiteResultCounts(t *testing.T) {
	results := []TestResult{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false},
		{Name: "c", Passed: false, Skipped: true},
	}
	sr := NewSuiteResult("suite", "img", results, 5*time.Second)

	assert.Equal(t, 3, sr.Total)
	assert.Equal(t, 1, sr.Passed)
	assert.Equal(t, 2, sr.Failed)
	assert.Equal(t, 1, sr.Skipped)
	assert.False(t, sr.Ok())
}

func TestRunResultAggregates(t *testing.T) {
	run := RunResult{
		Suites: []SuiteResult{
			NewSuiteResult("ok", "a", []TestResult{{Passed: true}, {Passed: true}}, 0),
			NewSuiteResult("bad", "b", []TestResult{{Passed: true}, {Passed: false}}, 0),
		},
	}

	assert.Equal(t, 4, run.TotalTests())
	assert.Equal(t, 3, run.TotalPassed())
	assert.Equal(t, 1, run.TotalFailed())
	assert.Equal(t, 1, run.SuitesPassed())
	assert.Equal(t, 1, run.SuitesFailed())
}

func TestCloneVariablesIsIndependent(t *testing.T) {
	src := map[string]string{"a": "1"}
	clone := CloneVariables(src)
	clone["a"] = "2"
	assert.Equal(t, "1", src["a"])
}

func TestPreparedTestKey(t *testing.T) {
	unit := PreparedTest{SuiteName: "fsl", Spec: TestSpec{Name: "bet"}}
	assert.Equal(t, "fsl: bet", unit.Key())

	unit.Spec.Name = ""
	assert.Equal(t, "fsl: Unnamed test", unit.Key())
}
