package types

import (
	"time"
)

// TestResult captures the outcome of a single test run. It is immutable once
// constructed; aggregation only ever reads it.
type TestResult struct {
	Name      string
	Passed    bool
	Duration  time.Duration
	StartTime time.Time
	Message   string
	Stdout    string
	Stderr    string
	ExitCode  int

	// Skipped marks synthetic failures recorded for tests that were never
	// executed because their suite aborted during preparation. Skipped
	// results still count as failed.
	Skipped bool
}

// SuiteResult aggregates the results of one suite. It is built only after all
// of the suite's tests have completed, or holds a synthetic entry when the
// suite was abandoned during preparation.
type SuiteResult struct {
	Name      string
	Container string
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	Duration  time.Duration
	Results   []TestResult
}

// NewSuiteResult builds a SuiteResult from completed test results. Duration is
// supplied by the caller: wall-clock for sequential runs, summed test time for
// parallel runs where suite tests interleave.
func NewSuiteResult(name, container string, results []TestResult, duration time.Duration) SuiteResult {
	sr := SuiteResult{
		Name:      name,
		Container: container,
		Total:     len(results),
		Duration:  duration,
		Results:   results,
	}
	for _, r := range results {
		if r.Passed {
			sr.Passed++
		} else {
			sr.Failed++
		}
		if r.Skipped {
			sr.Skipped++
		}
	}
	return sr
}

// Ok reports whether the suite had no failures.
func (s *SuiteResult) Ok() bool {
	return s.Failed == 0
}

// RunResult is the aggregate outcome of one engine run across all suites.
type RunResult struct {
	RunID    string
	Suites   []SuiteResult
	Duration time.Duration
}

// TotalTests returns the number of test results across all suites.
func (r *RunResult) TotalTests() int {
	n := 0
	for i := range r.Suites {
		n += r.Suites[i].Total
	}
	return n
}

// TotalPassed returns the number of passed tests across all suites.
func (r *RunResult) TotalPassed() int {
	n := 0
	for i := range r.Suites {
		n += r.Suites[i].Passed
	}
	return n
}

// TotalFailed returns the number of failed tests across all suites.
// Preparation failures count here too; the run's exit signal is failure
// exactly when this is nonzero.
func (r *RunResult) TotalFailed() int {
	n := 0
	for i := range r.Suites {
		n += r.Suites[i].Failed
	}
	return n
}

// SuitesPassed returns the number of suites with no failed tests.
func (r *RunResult) SuitesPassed() int {
	n := 0
	for i := range r.Suites {
		if r.Suites[i].Ok() {
			n++
		}
	}
	return n
}

// SuitesFailed returns the number of suites with at least one failed test.
func (r *RunResult) SuitesFailed() int {
	return len(r.Suites) - r.SuitesPassed()
}
