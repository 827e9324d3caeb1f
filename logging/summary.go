package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/neurodesk/testrunner/types"
)

// RunSummary is the aggregate JSON document written at the end of a run.
type RunSummary struct {
	Summary SummaryTotals  `json:"summary"`
	Suites  []SuiteSummary `json:"suites"`
}

// SummaryTotals holds run-level counts.
type SummaryTotals struct {
	RunID        string  `json:"run_id"`
	TotalSuites  int     `json:"total_suites"`
	SuitesPassed int     `json:"suites_passed"`
	SuitesFailed int     `json:"suites_failed"`
	TotalTests   int     `json:"total_tests"`
	TestsPassed  int     `json:"tests_passed"`
	TestsFailed  int     `json:"tests_failed"`
	Duration     float64 `json:"duration"`
	RunTimestamp string  `json:"run_timestamp"`
}

// SuiteSummary holds per-suite counts and per-test entries.
type SuiteSummary struct {
	Name      string        `json:"name"`
	Container string        `json:"container"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  float64       `json:"duration"`
	Tests     []TestSummary `json:"tests"`
}

// TestSummary is the per-test entry in the summary document. Captured output
// lives in the streaming JSONL records, not here.
type TestSummary struct {
	Name      string  `json:"name"`
	Passed    bool    `json:"passed"`
	StartTime string  `json:"start_time"`
	Duration  float64 `json:"duration"`
	Message   string  `json:"message"`
}

// BuildRunSummary converts a run result into its summary document form.
func BuildRunSummary(run *types.RunResult, timestamp time.Time) RunSummary {
	summary := RunSummary{
		Summary: SummaryTotals{
			RunID:        run.RunID,
			TotalSuites:  len(run.Suites),
			SuitesPassed: run.SuitesPassed(),
			SuitesFailed: run.SuitesFailed(),
			TotalTests:   run.TotalTests(),
			TestsPassed:  run.TotalPassed(),
			TestsFailed:  run.TotalFailed(),
			Duration:     run.Duration.Seconds(),
			RunTimestamp: timestamp.Format(time.RFC3339),
		},
	}

	for _, suite := range run.Suites {
		ss := SuiteSummary{
			Name:      suite.Name,
			Container: suite.Container,
			Total:     suite.Total,
			Passed:    suite.Passed,
			Failed:    suite.Failed,
			Skipped:   suite.Skipped,
			Duration:  suite.Duration.Seconds(),
			Tests:     make([]TestSummary, 0, len(suite.Results)),
		}
		for _, test := range suite.Results {
			ss.Tests = append(ss.Tests, TestSummary{
				Name:      test.Name,
				Passed:    test.Passed,
				StartTime: test.StartTime.Format(time.RFC3339Nano),
				Duration:  test.Duration.Seconds(),
				Message:   test.Message,
			})
		}
		summary.Suites = append(summary.Suites, ss)
	}

	return summary
}

// WriteSummary writes the aggregate summary JSON document.
func WriteSummary(path string, run *types.RunResult, timestamp time.Time) error {
	data, err := json.MarshalIndent(BuildRunSummary(run, timestamp), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary %s: %w", path, err)
	}
	return nil
}
