package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodesk/testrunner/types"
)

func sampleRun() *types.RunResult {
	start := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return &types.RunResult{
		RunID:    "run-1",
		Duration: 90 * time.Second,
		Suites: []types.SuiteResult{
			types.NewSuiteResult("zeta", "z.simg", []types.TestResult{
				{Name: "last alphabetically", Passed: true, StartTime: start, Duration: time.Second, Message: "OK"},
			}, time.Second),
			types.NewSuiteResult("alpha", "a.simg", []types.TestResult{
				{Name: "passes", Passed: true, StartTime: start, Duration: 1500 * time.Millisecond, Message: "OK"},
				{Name: "fails", Passed: false, StartTime: start, Duration: time.Second,
					Message: "Expected exit code 0,\ngot 1"},
			}, 3*time.Second),
		},
	}
}

func TestWriteTextLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_results.log")
	generated := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, WriteTextLog(path, sampleRun(), generated))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "# Container Test Results")
	assert.Contains(t, out, "# Generated: 2025-03-14T10:00:00Z")
	assert.Contains(t, out, "# Run ID: run-1")
	assert.Contains(t, out, "# Total Duration: 90.00s")
	assert.Contains(t, out, "# Format: STATE | START_TIME | DURATION | SUITE | TEST_NAME | MESSAGE")

	assert.Contains(t, out, "PASS | 2025-03-14T09:26:53Z | 1.500s | alpha | passes | OK")
	// Newlines in messages are collapsed so the line format holds.
	assert.Contains(t, out, "FAIL | 2025-03-14T09:26:53Z | 1.000s | alpha | fails | Expected exit code 0, got 1")

	// Suites are ordered by name regardless of run order.
	alphaIdx := strings.Index(out, "| alpha |")
	zetaIdx := strings.Index(out, "| zeta |")
	assert.Less(t, alphaIdx, zetaIdx)
}

func TestWriteTextLogStripsANSI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_results.log")
	run := &types.RunResult{
		Suites: []types.SuiteResult{
			types.NewSuiteResult("suite", "img", []types.TestResult{
				{Name: "colorful", Passed: false, StartTime: time.Now(),
					Message: "\x1b[31merror\x1b[0m in tool"},
			}, 0),
		},
	}

	require.NoError(t, WriteTextLog(path, run, time.Now()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| colorful | error in tool")
	assert.NotContains(t, string(data), "\x1b[31m")
}
