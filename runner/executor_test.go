package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodesk/testrunner/types"
)

func intPtr(v int) *int { return &v }

// newUnit builds a prepared unit that runs on the host shell (no container),
// which exercises the full script/timeout/evaluation path without needing a
// container runtime on the test machine.
func newUnit(t *testing.T, spec types.TestSpec) types.PreparedTest {
	t.Helper()
	return types.PreparedTest{
		SuiteName:     "suite",
		ContainerName: "img",
		Spec:          spec,
		Variables:     map[string]string{},
		WorkDir:       t.TempDir(),
	}
}

func TestExecuteNoCommand(t *testing.T) {
	executor := NewTestExecutor("")
	result := executor.Execute(context.Background(), newUnit(t, types.TestSpec{Name: "empty"}))

	assert.False(t, result.Passed)
	assert.Equal(t, "No command specified", result.Message)
	assert.Zero(t, result.Duration)
}

func TestExecuteSuccess(t *testing.T) {
	executor := NewTestExecutor("")
	spec := types.TestSpec{Name: "hello", Command: "echo hello world"}

	result := executor.Execute(context.Background(), newUnit(t, spec))

	assert.True(t, result.Passed)
	assert.Equal(t, "OK", result.Message)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "hello world")
	assert.False(t, result.StartTime.IsZero())
}

func TestExecuteNonZeroExitFailsByDefault(t *testing.T) {
	executor := NewTestExecutor("")
	spec := types.TestSpec{Name: "fails", Command: "exit 3"}

	result := executor.Execute(context.Background(), newUnit(t, spec))

	assert.False(t, result.Passed)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "Expected exit code 0, got 3", result.Message)
}

func TestExecuteExpectedExitCode(t *testing.T) {
	executor := NewTestExecutor("")
	spec := types.TestSpec{
		Name:             "expected failure",
		Command:          "exit 3",
		ExpectedExitCode: intPtr(3),
	}

	result := executor.Execute(context.Background(), newUnit(t, spec))

	assert.True(t, result.Passed)
	assert.Equal(t, 3, result.ExitCode)
}

func TestExecuteNegatedExitCode(t *testing.T) {
	executor := NewTestExecutor("")
	spec := types.TestSpec{
		Name:                "must not succeed",
		Command:             "exit 2",
		ExpectedExitCodeNot: intPtr(0),
	}

	result := executor.Execute(context.Background(), newUnit(t, spec))
	assert.True(t, result.Passed)

	spec.Command = "exit 0"
	result = executor.Execute(context.Background(), newUnit(t, spec))
	assert.False(t, result.Passed)
	assert.Equal(t, "Exit code should not be 0", result.Message)
}

func TestExecuteNegatedExitCodeTakesPrecedence(t *testing.T) {
	executor := NewTestExecutor("")
	// Both forms declared: the negated form decides and the exact form is
	// not consulted, so exit 5 passes even though it is not 1.
	spec := types.TestSpec{
		Name:                "both declared",
		Command:             "exit 5",
		ExpectedExitCode:    intPtr(1),
		ExpectedExitCodeNot: intPtr(0),
	}

	result := executor.Execute(context.Background(), newUnit(t, spec))
	assert.True(t, result.Passed)
}

func TestExecuteVariableSubstitution(t *testing.T) {
	executor := NewTestExecutor("")
	unit := newUnit(t, types.TestSpec{
		Name:                   "substituted",
		Command:                "echo ${greeting} and $subject",
		ExpectedOutputContains: types.StringList{"hi and tests"},
	})
	unit.Variables = map[string]string{"greeting": "hi", "subject": "tests"}

	result := executor.Execute(context.Background(), unit)
	assert.True(t, result.Passed)
}

func TestExecuteExpectedOutputContains(t *testing.T) {
	executor := NewTestExecutor("")
	spec := types.TestSpec{
		Name:                   "matches",
		Command:                "echo FLIRT version 6.0",
		ExpectedOutputContains: types.StringList{"FLIRT version"},
	}

	result := executor.Execute(context.Background(), newUnit(t, spec))
	assert.True(t, result.Passed)
}

func TestExecuteExpectedOutputMatchesStderr(t *testing.T) {
	executor := NewTestExecutor("")
	spec := types.TestSpec{
		Name:                   "stderr counts",
		Command:                "echo warning >&2",
		ExpectedOutputContains: types.StringList{"warning"},
	}

	result := executor.Execute(context.Background(), newUnit(t, spec))
	assert.True(t, result.Passed)
}

func TestExecuteExpectedOutputMissing(t *testing.T) {
	executor := NewTestExecutor("")
	long := strings.Repeat("x", 80)
	spec := types.TestSpec{
		Name:                   "no match",
		Command:                "echo something else",
		ExpectedOutputContains: types.StringList{long},
	}

	result := executor.Execute(context.Background(), newUnit(t, spec))
	assert.False(t, result.Passed)
	assert.Equal(t, "Expected output not found: '"+long[:50]+"...'", result.Message)
}

func TestExecuteTimeout(t *testing.T) {
	executor := NewTestExecutor("")
	spec := types.TestSpec{
		Name:    "hangs",
		Command: "sleep 10",
		Timeout: 1,
	}

	start := time.Now()
	result := executor.Execute(context.Background(), newUnit(t, spec))

	assert.False(t, result.Passed)
	assert.Equal(t, "Timeout after 1s", result.Message)
	assert.Empty(t, result.Stdout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecuteTimeoutWithBackgroundChild(t *testing.T) {
	executor := NewTestExecutor("")
	// The background child inherits the stdout/stderr pipes; the worker must
	// not stay blocked on them after the timeout kill.
	spec := types.TestSpec{
		Name:    "leaves a daemon behind",
		Command: "sleep 30 &\nsleep 30",
		Timeout: 1,
	}

	start := time.Now()
	result := executor.Execute(context.Background(), newUnit(t, spec))

	assert.False(t, result.Passed)
	assert.Equal(t, "Timeout after 1s", result.Message)
	assert.Less(t, time.Since(start), 1*time.Second+2*PipeWaitDelay)
}

func TestExecuteEnvSetupOverride(t *testing.T) {
	executor := NewTestExecutor("")
	unit := newUnit(t, types.TestSpec{
		Name:                   "per-test env wins",
		Command:                "echo marker=$MARKER",
		EnvSetup:               "export MARKER=local",
		ExpectedOutputContains: types.StringList{"marker=local"},
	})
	unit.GlobalEnvSetup = "export MARKER=global"

	result := executor.Execute(context.Background(), unit)
	assert.True(t, result.Passed)
}

func TestExecuteGlobalEnvSetupApplies(t *testing.T) {
	executor := NewTestExecutor("")
	unit := newUnit(t, types.TestSpec{
		Name:                   "global env",
		Command:                "echo marker=$MARKER",
		ExpectedOutputContains: types.StringList{"marker=global"},
	})
	unit.GlobalEnvSetup = "export MARKER=global"

	result := executor.Execute(context.Background(), unit)
	assert.True(t, result.Passed)
}

func TestExecuteOutputExistsValidation(t *testing.T) {
	executor := NewTestExecutor("")
	unit := newUnit(t, types.TestSpec{
		Name:    "produces file",
		Command: "touch ${output_dir}/result.txt",
		Validate: []types.Validation{
			{Kind: types.ValidationOutputExists, Path: "${output_dir}/result.txt"},
		},
	})
	outDir := filepath.Join(unit.WorkDir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	unit.Variables = map[string]string{"output_dir": outDir}

	result := executor.Execute(context.Background(), unit)
	assert.True(t, result.Passed)
}

func TestExecuteOutputExistsValidationFails(t *testing.T) {
	executor := NewTestExecutor("")
	unit := newUnit(t, types.TestSpec{
		Name:    "missing file",
		Command: "true",
		Validate: []types.Validation{
			{Kind: types.ValidationOutputExists, Path: "${output_dir}/never.txt"},
		},
	})
	unit.Variables = map[string]string{"output_dir": unit.WorkDir}

	result := executor.Execute(context.Background(), unit)
	assert.False(t, result.Passed)
	assert.Equal(t, "Output file not found: "+filepath.Join(unit.WorkDir, "never.txt"), result.Message)
}

func TestExecuteSameDimensionsValidation(t *testing.T) {
	executor := NewTestExecutor("")
	dir := t.TempDir()
	a := writeNifti1(t, dir, "a.nii", []int16{64, 64, 32})
	b := writeNifti1(t, dir, "b.nii", []int16{64, 64, 32})
	c := writeNifti1(t, dir, "c.nii", []int16{32, 32, 32})

	unit := newUnit(t, types.TestSpec{
		Name:    "same shape",
		Command: "true",
		Validate: []types.Validation{
			{Kind: types.ValidationSameDimensions, Paths: [2]string{a, b}},
		},
	})
	result := executor.Execute(context.Background(), unit)
	assert.True(t, result.Passed)

	unit = newUnit(t, types.TestSpec{
		Name:    "different shape",
		Command: "true",
		Validate: []types.Validation{
			{Kind: types.ValidationSameDimensions, Paths: [2]string{a, c}},
		},
	})
	result = executor.Execute(context.Background(), unit)
	assert.False(t, result.Passed)
	assert.Equal(t, "Dimension mismatch: (64, 64, 32) vs (32, 32, 32)", result.Message)
}

func TestExecuteValidationErrorOnUnreadableFile(t *testing.T) {
	executor := NewTestExecutor("")
	unit := newUnit(t, types.TestSpec{
		Name:    "bad image",
		Command: "true",
		Validate: []types.Validation{
			{Kind: types.ValidationSameDimensions, Paths: [2]string{"/nonexistent/a.nii", "/nonexistent/b.nii"}},
		},
	})

	result := executor.Execute(context.Background(), unit)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "Error comparing dimensions:")
}

func TestExecuteRemovesScript(t *testing.T) {
	executor := NewTestExecutor("")
	unit := newUnit(t, types.TestSpec{Name: "tidy", Command: "true"})

	result := executor.Execute(context.Background(), unit)
	require.True(t, result.Passed)

	leftovers, err := filepath.Glob(filepath.Join(unit.WorkDir, ".test_*.sh"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExecuteMissingRuntimeBinary(t *testing.T) {
	executor := NewTestExecutor("/nonexistent/apptainer")
	unit := newUnit(t, types.TestSpec{Name: "no runtime", Command: "true"})
	unit.ContainerPath = "/nonexistent/image.simg"

	result := executor.Execute(context.Background(), unit)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "Error:")
}

func TestBindMounts(t *testing.T) {
	workDir := t.TempDir()
	dataDir := t.TempDir()

	variables := map[string]string{
		"input_file": filepath.Join(dataDir, "t1.nii"),
		"output_dir": filepath.Join(workDir, "out"), // excluded by name
		"threshold":  "0.5",                         // not path-shaped
	}

	binds := bindMounts(workDir, variables)
	assert.Contains(t, binds, workDir+":"+workDir)
	assert.Contains(t, binds, dataDir+":"+dataDir)
	assert.Len(t, binds, 2)
}

func TestWriteScriptContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, writeScript(path, "export A=1", "run --flag"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/usr/bin/env bash\nexport A=1\nrun --flag\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
